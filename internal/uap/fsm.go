package uap

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// STAQuery lets the uAP FSM ask whether a STA session is CONNECTED and on
// which channel, for auto-channel inheritance, without importing the sta
// package (which does not depend on uap either, but keeping both
// leaf-independent avoids ever having to care).
type STAQuery interface {
	Connected() bool
	Channel() int
}

// EventKind enumerates the events the uAP FSM reacts to.
type EventKind int

const (
	EvUapStarted EventKind = iota
	EvUapStartFailed
	EvUapStopped
	EvNetAddrConfigOK
	EvNetAddrConfigFailed
	EvClientAssoc
	EvClientConn
	EvClientDeauth
)

// Event is the value delivered to Handle.
type Event struct {
	Kind EventKind
	MAC  [6]byte
}

// FSM is the uAP state machine. Handle must only be called
// from the dispatcher goroutine.
type FSM struct {
	log zerolog.Logger

	store *profile.Store
	drv   driver.Driver
	sta   STAQuery
	cb    func(wcmtypes.CallbackEvent)

	state  State
	curIdx int
}

// New creates an idle uAP FSM.
func New(store *profile.Store, drv driver.Driver, sta STAQuery, cb func(wcmtypes.CallbackEvent), log zerolog.Logger) *FSM {
	return &FSM{
		log:    log.With().Str("component", "uap").Logger(),
		store:  store,
		drv:    drv,
		sta:    sta,
		cb:     cb,
		state:  StateInit,
		curIdx: -1,
	}
}

// State returns the current uAP state.
func (f *FSM) State() State { return f.state }

// CurrentIndex returns cur_uap_idx, or -1 when no uAP session is active.
func (f *FSM) CurrentIndex() int { return f.curIdx }

// CurrentUAPUp implements profile.UapStateQuery.
func (f *FSM) CurrentUAPUp(name string) bool {
	if f.state != StateIPUp || f.curIdx < 0 {
		return false
	}
	p, ok := f.store.GetByIndex(f.curIdx)
	return ok && p.Name == name
}

func (f *FSM) emit(reason wcmtypes.EventReason) {
	f.cb(wcmtypes.CallbackEvent{Reason: reason})
}

func (f *FSM) emitMAC(reason wcmtypes.EventReason, mac [6]byte) {
	f.cb(wcmtypes.CallbackEvent{Reason: reason, MAC: mac})
}

// StartNetwork implements USER_START.
func (f *FSM) StartNetwork(ctx context.Context, name string) error {
	const op = "uap.start_network"
	if f.state != StateInit {
		return wcmerrors.New(op, wcmerrors.KindState, nil)
	}

	p, ok := f.store.GetByName(name)
	if !ok {
		return wcmerrors.New(op, wcmerrors.KindInvalid, nil)
	}
	idx, _ := f.store.IndexOfName(name)

	autoChannel := !p.ChannelSpecific
	params := driver.UapStartParams{
		SSID:        p.SSID,
		Channel:     p.Channel,
		AutoChannel: autoChannel,
		Security:    p.Security.Type,
		PSK:         p.Security.PSK,
		Address:     [4]byte(p.IP.Address),
		Netmask:     [4]byte(p.IP.Netmask),
	}

	if autoChannel {
		if f.sta.Connected() {
			params.InheritedChannel = f.sta.Channel()
		} else {
			chans, err := f.drv.AllowedChannels(ctx)
			if err != nil {
				f.emit(wcmtypes.ReasonUapStartFailed)
				return wcmerrors.New(op, wcmerrors.KindFail, err)
			}
			params.AllowedChannels = chans
		}
	}

	f.curIdx = idx
	f.state = StateConfigured
	if err := f.drv.UapStart(ctx, params); err != nil {
		f.state = StateInit
		f.curIdx = -1
		f.emit(wcmtypes.ReasonUapStartFailed)
		return wcmerrors.New(op, wcmerrors.KindFail, err)
	}
	return nil
}

// StopNetwork implements USER_STOP.
func (f *FSM) StopNetwork(ctx context.Context) error {
	const op = "uap.stop_network"
	if f.state == StateInit {
		return wcmerrors.New(op, wcmerrors.KindState, nil)
	}
	if err := f.drv.UapStop(ctx); err != nil {
		f.emit(wcmtypes.ReasonUapStopFailed)
		return wcmerrors.New(op, wcmerrors.KindFail, err)
	}
	return nil
}

// Handle applies one driver event to the FSM.
func (f *FSM) Handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EvUapStarted:
		f.handleUapStarted(ctx, ev.MAC)
	case EvUapStartFailed:
		if f.state == StateConfigured {
			f.state = StateInit
			f.curIdx = -1
			f.emit(wcmtypes.ReasonUapStartFailed)
		}
	case EvUapStopped:
		if f.state != StateInit {
			f.state = StateInit
			f.curIdx = -1
			f.emit(wcmtypes.ReasonUapStopped)
		}
	case EvNetAddrConfigOK:
		if f.state == StateStarted {
			f.state = StateIPUp
			f.emit(wcmtypes.ReasonUapSuccess)
		}
	case EvNetAddrConfigFailed:
		if f.state == StateStarted {
			f.emit(wcmtypes.ReasonAddressFailed)
		}
	case EvClientAssoc:
		f.emitMAC(wcmtypes.ReasonUapClientAssoc, ev.MAC)
	case EvClientConn:
		f.emitMAC(wcmtypes.ReasonUapClientConn, ev.MAC)
	case EvClientDeauth:
		f.emitMAC(wcmtypes.ReasonUapClientDisassoc, ev.MAC)
	}
}

// handleUapStarted copies the driver-assigned MAC into the profile's BSSID
// if it was unspecified, then either configures the AP's
// own static address or, if none is requested, reports success directly.
func (f *FSM) handleUapStarted(ctx context.Context, mac [6]byte) {
	if f.state != StateConfigured {
		return
	}
	p := f.store.MutableByIndex(f.curIdx)
	if p == nil {
		f.state = StateInit
		f.curIdx = -1
		return
	}
	if !p.BSSIDSpecific {
		p.BSSID = mac
	}
	f.state = StateStarted

	if !p.IP.Static {
		f.state = StateIPUp
		f.emit(wcmtypes.ReasonUapSuccess)
		return
	}

	addr := [4]byte(p.IP.Address)
	netmask := [4]byte(p.IP.Netmask)
	if err := f.drv.ConfigureSTAAddrStatic(ctx, addr, addr, netmask, [4]byte{}, [4]byte{}); err != nil {
		f.emit(wcmtypes.ReasonAddressFailed)
		return
	}
	// Wait for the driver's NET_ADDR_CONFIG confirmation (EvNetAddrConfigOK/
	// Failed) before advancing to IP_UP, mirroring the STA FSM's address-
	// acquisition acknowledgement pattern.
}
