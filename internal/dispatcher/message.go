// Package dispatcher runs a single cooperative event loop: one worker
// goroutine that owns every WCM FSM, receiving driver events and user
// commands over a FIFO queue and routing each to the STA FSM, the uAP
// FSM, or the power-save controller.
package dispatcher

import (
	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// Kind enumerates every message the dispatcher's queue carries. Driver
// events and user commands are unified into one queue; producers may only
// enqueue, never call into an FSM directly.
type Kind int

const (
	KindDriverEvent Kind = iota
	KindUserConnect
	KindUserDisconnect
	KindUserReassociate
	KindUserScan
	KindUapStart
	KindUapStop
	KindIEEEPSOn
	KindIEEEPSOff
	KindDeepSleepPSOn
	KindDeepSleepPSOff
	KindHostSleepRequest
	KindDeinit
	KindAssocPauseElapsed
	KindUserAddNetwork
	KindUserRemoveNetwork
	KindQuery
)

// Message is the single envelope type carried on the event queue.
type Message struct {
	Kind Kind

	Driver driver.Event

	ProfileName  string
	Profile      profile.Profile // KindUserAddNetwork payload
	Wakeup       wcmtypes.WakeupCondition
	ScanChannels []int // KindUserScan directed probe, nil = full scan

	// AddResult, if non-nil, receives the slot index KindUserAddNetwork
	// assigned before Done is signalled.
	AddResult *int

	// Query, set for KindQuery, runs on the dispatcher goroutine itself so
	// a caller can read FSM/store state without touching it from its own
	// goroutine. The Done channel's synchronization is what makes any
	// state Query writes into caller-owned variables safe to read back
	// once send() returns.
	Query func()

	// Done, if non-nil, is closed after the message has been fully
	// processed; user-facing commands that need to report a synchronous
	// rejection (e.g. "no such profile") use this instead of blocking the
	// dispatcher goroutine on a bidirectional call.
	Done chan error
}
