// Package sim provides a deterministic in-memory driver.Driver backend used
// by the dispatcher's own tests and by anyone embedding WCM against a
// firmware simulator. It is the reference implementation of the
// command/event contract: every STA/uAP/power-save FSM test in this
// repository drives against it instead of real firmware.
package sim

import (
	"context"
	"sync"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// Backend is a scriptable driver.Driver. Tests call the On* setters to
// script return values and call Emit to push a driver.Event as if the
// firmware had raised it.
type Backend struct {
	mu sync.Mutex

	events chan driver.Event

	// Recorded commands, useful for asserting what the FSM asked for.
	Scans        []driver.ScanParams
	Associations []driver.AssociateParams
	UapStarts    []driver.UapStartParams
	HostSleeps   []driver.HostSleepParams

	// Scriptable failures: when non-nil, the next matching call returns it.
	ScanErr        error
	AssociateErr   error
	UapStartErr    error
	AllowedChans   []int
	AllowedChanErr error
	DTIMPeriod     int
	DTIMErr        error

	outstandingTransfer bool
}

// New creates a Backend with a buffered event channel.
func New() *Backend {
	return &Backend{events: make(chan driver.Event, 64)}
}

// Emit pushes ev onto the event channel, simulating a firmware callback.
func (b *Backend) Emit(ev driver.Event) {
	b.events <- ev
}

// Events exposes the backend's event channel for the dispatcher to drain,
// mirroring the netlink backend's own Events method.
func (b *Backend) Events() <-chan driver.Event { return b.events }

// SetOutstandingTransfer controls HasOutstandingTransfer's return value,
// used to exercise the sleep-confirm deferral path.
func (b *Backend) SetOutstandingTransfer(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outstandingTransfer = v
}

func (b *Backend) HasOutstandingTransfer() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outstandingTransfer
}

func (b *Backend) Scan(_ context.Context, params driver.ScanParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Scans = append(b.Scans, params)
	if b.ScanErr != nil {
		err := b.ScanErr
		b.ScanErr = nil
		return err
	}
	return nil
}

func (b *Backend) Associate(_ context.Context, params driver.AssociateParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Associations = append(b.Associations, params)
	if b.AssociateErr != nil {
		err := b.AssociateErr
		b.AssociateErr = nil
		return err
	}
	return nil
}

func (b *Backend) Deauthenticate(_ context.Context, _ [6]byte) error { return nil }
func (b *Backend) Disassociate(_ context.Context, _ [6]byte) error   { return nil }

func (b *Backend) ConfigureSTAAddrStatic(_ context.Context, _, _, _, _, _ [4]byte) error {
	return nil
}
func (b *Backend) ConfigureSTAAddrDHCP(_ context.Context) error { return nil }

func (b *Backend) UapStart(_ context.Context, params driver.UapStartParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.UapStarts = append(b.UapStarts, params)
	if b.UapStartErr != nil {
		err := b.UapStartErr
		b.UapStartErr = nil
		return err
	}
	return nil
}
func (b *Backend) UapStop(_ context.Context) error { return nil }

func (b *Backend) AllowedChannels(_ context.Context) ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.AllowedChanErr != nil {
		return nil, b.AllowedChanErr
	}
	if len(b.AllowedChans) == 0 {
		return []int{1, 6, 11}, nil
	}
	return b.AllowedChans, nil
}

func (b *Backend) EnterIEEEPS(_ context.Context) error       { return nil }
func (b *Backend) ExitIEEEPS(_ context.Context) error        { return nil }
func (b *Backend) EnterDeepSleepPS(_ context.Context) error  { return nil }
func (b *Backend) ExitDeepSleepPS(_ context.Context) error   { return nil }

func (b *Backend) SendHostSleepConfig(_ context.Context, params driver.HostSleepParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.HostSleeps = append(b.HostSleeps, params)
	return nil
}

func (b *Backend) SendSleepConfirm(_ context.Context, _ wcmtypes.Role) error { return nil }

func (b *Backend) GetDTIMPeriod(_ context.Context, _ [6]byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DTIMErr != nil {
		return 0, b.DTIMErr
	}
	return b.DTIMPeriod, nil
}

var _ driver.Driver = (*Backend)(nil)
