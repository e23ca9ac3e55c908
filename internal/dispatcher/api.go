package dispatcher

import (
	"context"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/scan"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// These methods are the boundary between user-facing callers (the wcm
// facade, the HTTP control plane) and the dispatcher goroutine.
// connect/reassociate/user-scan acquire the scan lock in the caller's own
// goroutine, blocking indefinitely, before the work is handed to the
// dispatcher queue — the dispatcher goroutine itself never blocks
// acquiring the lock.

// Connect implements the user-facing connect() entry point.
func (d *Dispatcher) Connect(ctx context.Context, profileName string) error {
	if err := d.acquireForConnect(ctx); err != nil {
		return err
	}
	return d.send(ctx, Message{Kind: KindUserConnect, ProfileName: profileName})
}

// Reassociate implements the user-facing reassociate() entry point. It is
// the same pipeline as Connect; the STA FSM distinguishes a fresh connect
// from a reassociate only by whether a session is already active, which it
// inspects itself via cur_sta_idx.
func (d *Dispatcher) Reassociate(ctx context.Context, profileName string) error {
	if err := d.acquireForConnect(ctx); err != nil {
		return err
	}
	return d.send(ctx, Message{Kind: KindUserReassociate, ProfileName: profileName})
}

// acquireForConnect takes the scan lock for the connect pipeline. Unlike a
// bare user scan, the STA FSM's StartConnect issues the scan itself once
// the message is processed on the dispatcher goroutine, so this only needs
// to reserve the lock as KindConnect ahead of time.
func (d *Dispatcher) acquireForConnect(ctx context.Context) error {
	return d.arb.StartInternal(ctx, scan.KindConnect)
}

// Disconnect implements the ANY-state USER_DISCONNECT entry point. No scan
// lock is acquired here; the STA FSM releases it itself if a pipeline was
// in flight.
func (d *Dispatcher) Disconnect(ctx context.Context) error {
	return d.send(ctx, Message{Kind: KindUserDisconnect})
}

// Scan implements user_scan(channels, cb): acquires the scan lock in the
// caller's goroutine, then hands the driver Scan call to the
// dispatcher so the eventual SCAN_RESULT is still only ever processed on
// the dispatcher goroutine. If the STA FSM is mid-pipeline (CONNECTING, the
// ASSOCIATING..OBT_ADDR range), the dispatcher goroutine rejects the
// request and releases the lock it just acquired rather than silently
// queueing behind it; the state itself is only ever inspected on the
// dispatcher goroutine, never here.
func (d *Dispatcher) Scan(ctx context.Context, channels []int, cb scan.UserCallback) error {
	if err := d.arb.StartUser(ctx, cb); err != nil {
		return err
	}
	return d.send(ctx, Message{Kind: KindUserScan, ScanChannels: channels})
}

// StartNetwork implements the uAP start_network() entry point.
func (d *Dispatcher) StartNetwork(ctx context.Context, profileName string) error {
	return d.send(ctx, Message{Kind: KindUapStart, ProfileName: profileName})
}

// StopNetwork implements the uAP stop_network() entry point.
func (d *Dispatcher) StopNetwork(ctx context.Context) error {
	return d.send(ctx, Message{Kind: KindUapStop})
}

// EnableIEEEPS implements ieeeps_on().
func (d *Dispatcher) EnableIEEEPS(ctx context.Context) error {
	return d.send(ctx, Message{Kind: KindIEEEPSOn})
}

// DisableIEEEPS implements ieeeps_off().
func (d *Dispatcher) DisableIEEEPS(ctx context.Context) error {
	return d.send(ctx, Message{Kind: KindIEEEPSOff})
}

// EnableDeepSleepPS implements deepsleepps_on().
func (d *Dispatcher) EnableDeepSleepPS(ctx context.Context) error {
	return d.send(ctx, Message{Kind: KindDeepSleepPSOn})
}

// DisableDeepSleepPS implements deepsleepps_off().
func (d *Dispatcher) DisableDeepSleepPS(ctx context.Context) error {
	return d.send(ctx, Message{Kind: KindDeepSleepPSOff})
}

// RequestHostSleep implements send_host_sleep(wakeup).
func (d *Dispatcher) RequestHostSleep(ctx context.Context, wakeup wcmtypes.WakeupCondition) error {
	return d.send(ctx, Message{Kind: KindHostSleepRequest, Wakeup: wakeup})
}

// Deinit implements WLAN_DEINIT.
func (d *Dispatcher) Deinit(ctx context.Context) error {
	return d.send(ctx, Message{Kind: KindDeinit})
}

// AddNetwork implements add_network(profile): the insert runs on this
// goroutine like every other store mutation, so it can never race the STA/
// uAP FSMs' own reads and writes of the same slots.
func (d *Dispatcher) AddNetwork(ctx context.Context, p profile.Profile) (int, error) {
	idx := -1
	msg := Message{Kind: KindUserAddNetwork, Profile: p, AddResult: &idx}
	if err := d.send(ctx, msg); err != nil {
		return -1, err
	}
	return idx, nil
}

// RemoveNetwork implements remove_network(name), run on this goroutine for
// the same reason as AddNetwork.
func (d *Dispatcher) RemoveNetwork(ctx context.Context, name string) error {
	return d.send(ctx, Message{Kind: KindUserRemoveNetwork, ProfileName: name})
}

// Query runs fn synchronously on the dispatcher goroutine and blocks until
// it returns. Callers use this to read FSM or profile-store state without
// reaching into either from their own goroutine — the same single-writer
// discipline that AddNetwork/RemoveNetwork and every other mutating method
// on this type already enforce, applied to reads.
func (d *Dispatcher) Query(ctx context.Context, fn func()) error {
	return d.send(ctx, Message{Kind: KindQuery, Query: fn})
}

// PostDriverEvent hands a raw driver event to the dispatcher queue. The
// driver backend's event-listening goroutine is the only other producer
// onto this queue besides the user-facing methods above.
func (d *Dispatcher) PostDriverEvent(ctx context.Context, ev driver.Event) error {
	return d.enqueue(ctx, Message{Kind: KindDriverEvent, Driver: ev})
}

// send enqueues msg and blocks until the dispatcher goroutine has finished
// processing it, returning any synchronous rejection it reported.
func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	msg.Done = make(chan error, 1)
	if err := d.enqueue(ctx, msg); err != nil {
		return err
	}
	select {
	case err := <-msg.Done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
