package powersave

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// SessionQuery lets the power-save controller ask which sessions are
// active, for the sleep-confirm protocol's "neither STA nor uAP is
// active" defer check and the DISABLE-from-SLEEP guard, without importing the sta/uap packages.
type SessionQuery interface {
	STAConnected() bool
	UAPActive() bool
	CurrentIPAddress() [4]byte
}

// sharedState is the driver-facing sleep-state variable and the
// sleep-confirm deferral flag, both explicitly shared between the two PS
// FSMs.
type sharedState struct {
	mu              sync.Mutex
	cmPs            CMPsState
	reqSleepConfirm bool
	hostSleep       bool
	wakeup          wcmtypes.WakeupCondition
}

func (s *sharedState) setCMPs(v CMPsState) {
	s.mu.Lock()
	s.cmPs = v
	s.mu.Unlock()
}

func (s *sharedState) getCMPs() CMPsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmPs
}

func (s *sharedState) setReqSleepConfirm(v bool) {
	s.mu.Lock()
	s.reqSleepConfirm = v
	s.mu.Unlock()
}

func (s *sharedState) getReqSleepConfirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqSleepConfirm
}

func (s *sharedState) requestHostSleep(wakeup wcmtypes.WakeupCondition) {
	s.mu.Lock()
	s.hostSleep = true
	s.wakeup = wakeup
	s.mu.Unlock()
}

func (s *sharedState) hostSleepRequested() (wcmtypes.WakeupCondition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wakeup, s.hostSleep
}

// FSM is one power-save sub-machine (either IEEE-PS or Deep-Sleep-PS).
// Handle must only be called from the dispatcher goroutine.
type FSM struct {
	mode wcmtypes.PSMode
	log  zerolog.Logger

	drv    driver.Driver
	sess   SessionQuery
	shared *sharedState
	cb     func(wcmtypes.CallbackEvent)

	state State

	// skipDSExitCB suppresses the first post-wake PsExit callback on the
	// Deep-Sleep machine only, to avoid reordering with the system Init
	// event. Implemented as
	// a single bool cleared on first use, not a counter: a second
	// wake/sleep cycle before the first Initialized event reproduces the
	// flagged unsuppressed-PsExit behavior rather than hardening it.
	skipDSExitCB bool

	// enablePending is set by Enable while the machine still sits in INIT
	// waiting for ENABLE_DONE, so a second Enable in that window is rejected.
	enablePending bool
}

func newFSM(mode wcmtypes.PSMode, drv driver.Driver, sess SessionQuery, shared *sharedState, cb func(wcmtypes.CallbackEvent), log zerolog.Logger) *FSM {
	return &FSM{
		mode:         mode,
		log:          log.With().Str("component", "powersave").Str("mode", mode.String()).Logger(),
		drv:          drv,
		sess:         sess,
		shared:       shared,
		cb:           cb,
		state:        StateInit,
		skipDSExitCB: mode == wcmtypes.PSModeDeepSleep,
	}
}

// State returns the current state of this sub-machine.
func (f *FSM) State() State { return f.state }

// Enable implements ieeeps_on/deepsleepps_on. Two successive calls yield
// a single PsEnter event; the second is rejected.
func (f *FSM) Enable(ctx context.Context) error {
	if f.state != StateInit || f.enablePending {
		return wcmerrors.New("powersave.enable", wcmerrors.KindState, nil)
	}
	f.enablePending = true
	f.apply(ctx, EvEnable)
	return nil
}

// Disable implements ieeeps_off/deepsleepps_off.
func (f *FSM) Disable(ctx context.Context) error {
	if f.state == StateInit {
		return wcmerrors.New("powersave.disable", wcmerrors.KindState, nil)
	}
	f.apply(ctx, EvDisable)
	return nil
}

// Handle applies one driver event to this sub-machine.
func (f *FSM) Handle(ctx context.Context, ev Event) {
	f.apply(ctx, ev.Kind)
}

// retry re-runs the entry action of PRE_SLEEP, used by the dispatcher's
// short-tick sleep-confirm retry.
func (f *FSM) retry(ctx context.Context) {
	if f.state == StatePreSleep {
		f.apply(ctx, evEnter)
	}
}

// apply runs one event through step and keeps re-entering the resulting
// state with the internal ENTER pseudo-event until it stabilizes: a
// self-transition invokes the step function again with event ENTER.
func (f *FSM) apply(ctx context.Context, kind EventKind) {
	prev := f.state
	next, actions := step(f.state, kind, f.sess.STAConnected())
	f.state = next
	f.runActions(ctx, actions)

	for f.state != prev {
		prev = f.state
		next, actions = step(f.state, evEnter, f.sess.STAConnected())
		f.state = next
		f.runActions(ctx, actions)
	}
	if f.state != StateInit {
		f.enablePending = false
	}
}

func (f *FSM) runActions(ctx context.Context, actions []action) {
	for _, a := range actions {
		switch a {
		case actionSendEnterPS:
			f.sendEnterPS(ctx)
		case actionSendExitPS:
			f.sendExitPS(ctx)
		case actionAttemptSleepConfirm:
			f.attemptSleepConfirm(ctx)
		case actionEmitPsEnter:
			f.cb(wcmtypes.CallbackEvent{Reason: wcmtypes.ReasonPsEnter, PSMode: f.mode})
		case actionEmitPsExit:
			f.emitPsExit()
		}
	}
}

func (f *FSM) sendEnterPS(ctx context.Context) {
	var err error
	if f.mode == wcmtypes.PSModeDeepSleep {
		err = f.drv.EnterDeepSleepPS(ctx)
	} else {
		err = f.drv.EnterIEEEPS(ctx)
	}
	if err != nil {
		f.log.Warn().Err(err).Msg("enter-ps command rejected")
	}
}

func (f *FSM) sendExitPS(ctx context.Context) {
	var err error
	if f.mode == wcmtypes.PSModeDeepSleep {
		err = f.drv.ExitDeepSleepPS(ctx)
	} else {
		err = f.drv.ExitIEEEPS(ctx)
	}
	if err != nil {
		f.log.Warn().Err(err).Msg("exit-ps command rejected")
	}
}

func (f *FSM) emitPsExit() {
	if f.mode == wcmtypes.PSModeDeepSleep && f.skipDSExitCB {
		f.skipDSExitCB = false
		return
	}
	f.cb(wcmtypes.CallbackEvent{Reason: wcmtypes.ReasonPsExit, PSMode: f.mode})
}

func (f *FSM) activeRole() (wcmtypes.Role, bool) {
	if f.sess.STAConnected() {
		return wcmtypes.RoleSTA, true
	}
	if f.sess.UAPActive() {
		return wcmtypes.RoleUAP, true
	}
	return wcmtypes.RoleSTA, false
}

// attemptSleepConfirm implements sleep-confirm protocol.
// Deep-Sleep-PS never applies host-sleep configuration ("send a plain
// sleep-confirm (no host-sleep configuration)"), so the host-sleep branch
// of the pseudocode is scoped to the IEEE-PS machine here; deep sleep, and
// IEEE-PS when no host-sleep request is outstanding, fall through to the
// plain-confirm path the pseudocode leaves as an implicit else.
func (f *FSM) attemptSleepConfirm(ctx context.Context) {
	if f.drv.HasOutstandingTransfer() {
		f.shared.setReqSleepConfirm(true)
		return
	}

	f.shared.setCMPs(CMPreSleep)

	wakeup, hostSleepConfigured := f.shared.hostSleepRequested()
	if f.mode == wcmtypes.PSModeIEEE && hostSleepConfigured {
		role, active := f.activeRole()
		err := f.drv.SendHostSleepConfig(ctx, driver.HostSleepParams{
			Wakeup:    wakeup,
			Role:      role,
			IPAddress: f.sess.CurrentIPAddress(),
		})
		if err != nil || !active {
			f.shared.setReqSleepConfirm(true)
			return
		}
	}

	role, _ := f.activeRole()
	f.shared.setCMPs(CMSleepCfm)
	if err := f.drv.SendSleepConfirm(ctx, role); err != nil {
		f.shared.setReqSleepConfirm(true)
		return
	}
	f.shared.setReqSleepConfirm(false)
}

// Controller owns both power-save sub-machines and the state they share.
type Controller struct {
	IEEE      *FSM
	DeepSleep *FSM

	shared *sharedState
	sess   SessionQuery
}

// NewController wires both power-save sub-machines against a common
// driver, session query and shared sleep-confirm state.
func NewController(drv driver.Driver, sess SessionQuery, cb func(wcmtypes.CallbackEvent), log zerolog.Logger) *Controller {
	shared := &sharedState{}
	return &Controller{
		IEEE:      newFSM(wcmtypes.PSModeIEEE, drv, sess, shared, cb, log),
		DeepSleep: newFSM(wcmtypes.PSModeDeepSleep, drv, sess, shared, cb, log),
		shared:    shared,
		sess:      sess,
	}
}

// RequestHostSleep implements send_host_sleep: the user supplies a
// wakeup-condition bitmask; the core retains it, along with the IP
// address at request time and the active interface, for the next
// sleep-confirm attempt.
func (c *Controller) RequestHostSleep(_ context.Context, wakeup wcmtypes.WakeupCondition) error {
	c.shared.requestHostSleep(wakeup)
	return nil
}

// PendingSleepConfirm reports g_req_sleep_confirm, consulted by the
// dispatcher to pick its 10 ms tick over an infinite wait.
func (c *Controller) PendingSleepConfirm() bool {
	return c.shared.getReqSleepConfirm()
}

// RetryTick implements the dispatcher's short-tick branch: "if STA ==
// CONNECTED && g_req_sleep_confirm: ieeeps_sm(SLEEP)". The
// retry always targets the IEEE-PS machine, matching the pseudocode.
func (c *Controller) RetryTick(ctx context.Context) {
	if c.shared.getReqSleepConfirm() && c.sess.STAConnected() {
		c.IEEE.retry(ctx)
	}
}

// CMPsState returns the shared driver-facing sleep-state variable.
func (c *Controller) CMPsState() CMPsState {
	return c.shared.getCMPs()
}
