package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/powersave"
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/scan"
	"github.com/nxp-wmsdk/wlcmgr/internal/sta"
	"github.com/nxp-wmsdk/wlcmgr/internal/uap"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
)

// Config carries the dispatcher's own tunables, taken from config.Settings
// by the caller so this package does not import internal/config directly.
type Config struct {
	SleepConfirmTick time.Duration
	QueueDepth       int
}

// Dispatcher is the single goroutine that owns every WCM FSM. Every FSM's
// Handle method is only ever called from Dispatcher's own goroutine; every
// other package's public methods that mutate FSM state funnel through the
// message queue this type owns.
type Dispatcher struct {
	cfg Config
	log zerolog.Logger

	sta   *sta.FSM
	uap   *uap.FSM
	ps    *powersave.Controller
	arb   *scan.Arbiter
	drv   driver.Driver
	store *profile.Store

	queue chan Message

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	assocPauseTimer *time.Timer
}

// New wires a Dispatcher against already-constructed FSMs, arbiter and
// profile store. The caller (the wcm facade) is responsible for
// constructing sta.FSM/uap.FSM/powersave.Controller against that same
// profile.Store, scan.Arbiter and driver.Driver — store is also mutated
// directly here, by KindUserAddNetwork/KindUserRemoveNetwork, so Add/
// Remove run on this goroutine exactly like every other WCM mutation.
func New(cfg Config, staFSM *sta.FSM, uapFSM *uap.FSM, ps *powersave.Controller, arb *scan.Arbiter, drv driver.Driver, store *profile.Store, log zerolog.Logger) *Dispatcher {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 32
	}
	return &Dispatcher{
		cfg:   cfg,
		log:   log.With().Str("component", "dispatcher").Logger(),
		sta:   staFSM,
		uap:   uapFSM,
		ps:    ps,
		arb:   arb,
		drv:   drv,
		store: store,
		queue: make(chan Message, cfg.QueueDepth),
	}
}

// Start launches the dispatcher goroutine. Safe to call once; a second call
// before Stop returns an error.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.running.Load() {
		return wcmerrors.New("dispatcher.start", wcmerrors.KindState, nil)
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
	return nil
}

// Stop cancels the dispatcher goroutine and blocks until it exits.
func (d *Dispatcher) Stop() {
	if !d.running.Load() {
		return
	}
	d.cancel()
	d.wg.Wait()
	d.running.Store(false)
}

// enqueue posts msg to the dispatcher's queue, blocking on ctx like every
// other blocking point in this package.
func (d *Dispatcher) enqueue(ctx context.Context, msg Message) error {
	select {
	case d.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the single event loop: an infinite wait on the queue, replaced by
// a short tick whenever a sleep-confirm retry is outstanding.
func (d *Dispatcher) run(ctx context.Context) {
	d.log.Info().Msg("dispatcher started")
	tick := d.cfg.SleepConfirmTick
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}

	var timer *time.Timer
	for {
		var timeout <-chan time.Time
		if d.ps.PendingSleepConfirm() {
			timer = time.NewTimer(tick)
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			d.log.Info().Msg("dispatcher stopped")
			return
		case <-timeout:
			d.ps.RetryTick(ctx)
		case msg := <-d.queue:
			if timer != nil {
				timer.Stop()
			}
			d.dispatch(ctx, msg)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, msg Message) {
	var err error
	switch msg.Kind {
	case KindDriverEvent:
		d.handleDriverEvent(ctx, msg.Driver)
	case KindUserConnect:
		err = d.sta.StartConnect(ctx, msg.ProfileName)
	case KindUserDisconnect:
		d.sta.HandleUserDisconnect(ctx)
	case KindUserReassociate:
		err = d.sta.StartConnect(ctx, msg.ProfileName)
	case KindUserScan:
		if d.sta.Connecting() {
			d.arb.Finish()
			err = wcmerrors.New("dispatcher.scan", wcmerrors.KindState, nil)
			break
		}
		err = d.drv.Scan(ctx, driver.ScanParams{Channels: msg.ScanChannels})
		if err != nil {
			d.arb.Finish()
		}
	case KindUapStart:
		err = d.uap.StartNetwork(ctx, msg.ProfileName)
	case KindUapStop:
		err = d.uap.StopNetwork(ctx)
	case KindIEEEPSOn:
		err = d.ps.IEEE.Enable(ctx)
	case KindIEEEPSOff:
		err = d.ps.IEEE.Disable(ctx)
	case KindDeepSleepPSOn:
		err = d.ps.DeepSleep.Enable(ctx)
	case KindDeepSleepPSOff:
		err = d.ps.DeepSleep.Disable(ctx)
	case KindHostSleepRequest:
		err = d.ps.RequestHostSleep(ctx, msg.Wakeup)
	case KindAssocPauseElapsed:
		d.sta.Handle(ctx, sta.Event{Kind: sta.EvAssocPauseElapsed})
	case KindDeinit:
		d.handleDeinit(ctx)
	case KindUserAddNetwork:
		idx, aerr := d.store.Add(msg.Profile)
		if msg.AddResult != nil {
			*msg.AddResult = idx
		}
		err = aerr
	case KindUserRemoveNetwork:
		err = d.store.Remove(msg.ProfileName)
	case KindQuery:
		if msg.Query != nil {
			msg.Query()
		}
	}
	if msg.Done != nil {
		msg.Done <- err
		close(msg.Done)
	}
}

// handleDeinit implements WLAN_DEINIT: any in-progress STA
// session is torn down like a user disconnect, any running uAP session is
// stopped, and both power-save machines are disabled if enabled.
func (d *Dispatcher) handleDeinit(ctx context.Context) {
	d.sta.HandleUserDisconnect(ctx)
	if d.uap.State() != uap.StateInit {
		_ = d.uap.StopNetwork(ctx)
	}
	if d.ps.IEEE.State() != powersave.StateInit {
		_ = d.ps.IEEE.Disable(ctx)
	}
	if d.ps.DeepSleep.State() != powersave.StateInit {
		_ = d.ps.DeepSleep.Disable(ctx)
	}
}

// isUapMessage implements is_uap_message(msg) predicate:
// events belonging to the uAP bss are routed to the uAP FSM rather than
// STA/PS.
func isUapMessage(kind driver.EventKind) bool {
	switch kind {
	case driver.EventUapStarted, driver.EventUapStartFailed, driver.EventUapStopped,
		driver.EventUapClientAssoc, driver.EventUapClientConn, driver.EventUapClientDeauth,
		driver.EventUapNetAddrConfig, driver.EventUapNetAddrConfigFailed,
		driver.EventUAPMACAddrConfig:
		return true
	default:
		return false
	}
}

// handleDriverEvent translates a driver.Event into the target FSM's own
// event type and routes it. SCAN_RESULT is special-cased:
// the arbiter's current pending routing decides whether it goes to a user
// callback or into the STA FSM's selection pipeline.
func (d *Dispatcher) handleDriverEvent(ctx context.Context, ev driver.Event) {
	if ev.Kind == driver.EventScanResult {
		d.handleScanResult(ctx, ev)
		return
	}

	if isUapMessage(ev.Kind) {
		if uapEv, ok := translateUap(ev); ok {
			d.uap.Handle(ctx, uapEv)
		}
		return
	}

	if psEv, ok := translatePS(ev); ok {
		if ev.Kind == driver.EventDeepSleep {
			d.ps.DeepSleep.Handle(ctx, psEv)
		} else {
			d.ps.IEEE.Handle(ctx, psEv)
		}
		return
	}

	if staEv, ok := translateSTA(ev); ok {
		d.sta.Handle(ctx, staEv)
		if staEv.Kind == sta.EvAuthFailed && staEv.AuthFail == driver.AuthFailMICFailure {
			d.scheduleAssocPause()
		}
	}
}

// handleScanResult routes SCAN_RESULT to the user callback for a bare user
// scan, otherwise into the STA FSM's selection pipeline. For a user scan
// the dispatcher clears the arbiter's pending routing and releases the lock
// here; for a connect scan the STA FSM releases it itself once it has
// consumed the descriptors it needs (it may keep scanning first, e.g. the
// hidden-SSID follow-up). A SCAN_RESULT with no routing pending goes to the
// STA FSM only while it is scanning: that is a retry scan it issued after
// releasing the lock on entering ASSOCIATING.
func (d *Dispatcher) handleScanResult(ctx context.Context, ev driver.Event) {
	kind, cb, ok := d.arb.Current()
	if !ok {
		if st := d.sta.State(); st == sta.StateScanning || st == sta.StateScanningHidden {
			d.sta.Handle(ctx, sta.Event{Kind: sta.EvScanResult, Descriptors: ev.ScanResults})
		}
		return
	}
	if kind == scan.KindUser {
		d.arb.Finish()
		if cb != nil {
			cb(len(ev.ScanResults))
		}
		return
	}
	d.sta.Handle(ctx, sta.Event{Kind: sta.EvScanResult, Descriptors: ev.ScanResults})
}

// scheduleAssocPause arms the 60s (config.AssocPauseOnMIC) timer that
// re-enters the pipeline once a MIC-failure pause elapses.
func (d *Dispatcher) scheduleAssocPause() {
	if d.assocPauseTimer != nil {
		d.assocPauseTimer.Stop()
	}
	deadline, paused := d.sta.AssocPauseDeadline()
	if !paused {
		return
	}
	wait := time.Until(deadline)
	if wait < 0 {
		wait = 0
	}
	d.assocPauseTimer = time.AfterFunc(wait, func() {
		_ = d.enqueue(context.Background(), Message{Kind: KindAssocPauseElapsed})
	})
}
