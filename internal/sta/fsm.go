package sta

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/scan"
	"github.com/nxp-wmsdk/wlcmgr/internal/supplicant"
	"github.com/nxp-wmsdk/wlcmgr/internal/wakelock"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// Config carries the STA FSM's tunables: RESCAN_LIMIT, RECONNECT_LIMIT,
// and the MIC-failure assoc-pause duration.
type Config struct {
	RescanLimit    int
	ReconnectLimit int
	AssocPause     time.Duration
	ReassocControl bool
}

// EventKind enumerates the events the STA FSM reacts to. Driver-originated
// events arrive translated from driver.EventKind by the dispatcher; the
// rest are internal or user-triggered.
type EventKind int

const (
	EvNetIfConfigOK EventKind = iota
	EvNetIfConfigFailed
	EvUserConnect
	EvUserDisconnect
	EvScanResult
	EvAssocOK
	EvAssocFailed
	EvAuthOK
	EvAuthFailed
	EvAddrConfigOK
	EvAddrConfigFailed
	EvDHCPConfigOK
	EvDHCPConfigFailed
	EvLinkLoss
	EvDeauth
	EvChanSwitch
	EvAssocPauseElapsed
)

// Event is the value delivered to Handle.
type Event struct {
	Kind EventKind

	ProfileName string // EvUserConnect
	Descriptors []wcmtypes.BSSDescriptor
	AuthFail    driver.AuthFailReason
	Channel     int
	DHCPAddress [4]byte // set on EvDHCPConfigOK, the lease address
}

// FSM is the STA state machine. Handle must only be called from the
// dispatcher goroutine. The read-only query methods (State, CurrentIndex,
// ...) are plain field getters with no synchronization of their own; they
// are safe to call from the dispatcher goroutine itself (including from
// another FSM's Handle) but not from an arbitrary caller goroutine, which
// must go through dispatcher.Dispatcher.Query instead.
type FSM struct {
	cfg Config
	log zerolog.Logger

	store *profile.Store
	arb   *scan.Arbiter
	drv   driver.Driver
	sup   supplicant.Supplicant
	wake  *wakelock.Lock
	cb    func(wcmtypes.CallbackEvent)

	state  State
	curIdx int // cur_sta_idx; -1 when unused

	scanCount    int
	reassocCount int
	assocPaused  bool
	pausedUntil  time.Time

	// hadPriorAssociation and pendingSameESS track the 802.11r same-ESS
	// fast path: hadPriorAssociation is set once curIdx has reached
	// StateConnected at least once since the current StartConnect, and
	// pendingSameESS is computed at scan-match time by comparing the
	// newly selected BSS's mobility domain against the one the profile
	// last associated with.
	hadPriorAssociation bool
	pendingSameESS      bool

	hiddenChannels []int
	wakeGuard      *wakelock.Guard

	allowedChannels []int
}

// New creates an idle STA FSM.
func New(cfg Config, store *profile.Store, arb *scan.Arbiter, drv driver.Driver, sup supplicant.Supplicant, wake *wakelock.Lock, cb func(wcmtypes.CallbackEvent), log zerolog.Logger) *FSM {
	return &FSM{
		cfg:    cfg,
		log:    log.With().Str("component", "sta").Logger(),
		store:  store,
		arb:    arb,
		drv:    drv,
		sup:    sup,
		wake:   wake,
		cb:     cb,
		state:  StateInitializing,
		curIdx: -1,
	}
}

// State returns the current STA state.
func (f *FSM) State() State { return f.state }

// CurrentIndex returns cur_sta_idx, or -1 when no STA session is active.
func (f *FSM) CurrentIndex() int { return f.curIdx }

// Connecting reports whether the FSM is in the ASSOCIATING..OBT_ADDR range,
// mirroring State.connecting. Only safe to call from the dispatcher
// goroutine, same as State and CurrentIndex.
func (f *FSM) Connecting() bool { return f.state.connecting() }

// IsAddAllowed implements profile.StaStateQuery.
func (f *FSM) IsAddAllowed() bool {
	switch f.state {
	case StateIdle, StateAssociated, StateConnected:
		return true
	default:
		return false
	}
}

// CurrentSTAConnected implements profile.StaStateQuery.
func (f *FSM) CurrentSTAConnected(name string) bool {
	if f.state != StateConnected || f.curIdx < 0 {
		return false
	}
	p, ok := f.store.GetByIndex(f.curIdx)
	return ok && p.Name == name
}

func (f *FSM) emit(reason wcmtypes.EventReason) {
	f.cb(wcmtypes.CallbackEvent{Reason: reason})
}

// releaseWakeGuard is idempotent and safe to call from every terminal
// state.
func (f *FSM) releaseWakeGuard() {
	if f.wakeGuard != nil {
		f.wakeGuard.Release()
		f.wakeGuard = nil
	}
}

// toIdle resets pipeline bookkeeping and returns the FSM to IDLE, releasing
// the scan lock and wake-lock guard if still held.
func (f *FSM) toIdle(releaseScan bool) {
	f.state = StateIdle
	f.hiddenChannels = nil
	if releaseScan && f.arb.Lock().Held() {
		f.arb.Finish()
	}
	f.releaseWakeGuard()
}

// StartConnect begins a connect pipeline against the named profile. The
// caller (dispatcher.Dispatcher.Connect) must have already acquired the scan
// lock via arb.StartInternal(ctx, scan.KindConnect) or arb.StartUser before
// posting this as an event — Handle assumes the lock is already held.
func (f *FSM) StartConnect(ctx context.Context, name string) error {
	if f.state.connecting() || f.state.scanningAny() || f.state == StateConnected {
		// USER_CONNECT while CONNECTING/CONNECTED first deauthenticates,
		// then restarts.
		f.abortForReconnect(ctx)
	}

	p, ok := f.store.GetByName(name)
	if !ok {
		f.arb.Finish()
		return errNotFound
	}
	idx, _ := f.store.IndexOfName(name)

	if idx != f.curIdx {
		// Switching to a different profile than the one this session was
		// last associated with; there is no prior BSS to compare a
		// mobility domain against.
		f.hadPriorAssociation = false
	}
	f.curIdx = idx
	f.scanCount = 0
	f.assocPaused = false
	f.pendingSameESS = false
	f.wakeGuard = f.wake.Acquire()
	f.state = StateScanning

	if err := f.drv.Scan(ctx, driver.ScanParams{SSID: p.SSID, BSSID: p.BSSID}); err != nil {
		f.log.Warn().Err(err).Str("profile", name).Msg("initial scan failed")
		f.finishConnectFailure(ctx)
		return nil
	}
	return nil
}

func (f *FSM) abortForReconnect(ctx context.Context) {
	if f.curIdx >= 0 {
		if p, ok := f.store.GetByIndex(f.curIdx); ok {
			_ = f.drv.Deauthenticate(ctx, p.BSSID)
		}
	}
	f.toIdle(true)
}

// HandleUserDisconnect implements the ANY-state USER_DISCONNECT transition
//: aborts any in-progress pipeline, emits UserDisconnect,
// releases the scan lock if held, resets reassoc counters, returns to IDLE.
func (f *FSM) HandleUserDisconnect(ctx context.Context) {
	if f.curIdx >= 0 {
		if p, ok := f.store.GetByIndex(f.curIdx); ok {
			_ = f.drv.Deauthenticate(ctx, p.BSSID)
		}
	}
	f.reassocCount = 0
	f.curIdx = -1
	f.hadPriorAssociation = false
	f.pendingSameESS = false
	f.toIdle(true)
	f.emit(wcmtypes.ReasonUserDisconnect)
}

// Handle applies one driver/internal event to the FSM. Only valid to call
// from the dispatcher goroutine.
func (f *FSM) Handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EvNetIfConfigOK:
		if f.state == StateInitializing {
			f.state = StateIdle
			f.emit(wcmtypes.ReasonInitialized)
		}
	case EvNetIfConfigFailed:
		if f.state == StateInitializing {
			f.emit(wcmtypes.ReasonInitializationFailed)
		}
	case EvUserDisconnect:
		f.HandleUserDisconnect(ctx)
	case EvScanResult:
		f.handleScanResult(ctx, ev.Descriptors)
	case EvAssocOK:
		f.handleAssocOK(ctx)
	case EvAssocFailed:
		f.handleAssocFailed(ctx)
	case EvAuthOK:
		f.handleAuthOK(ctx)
	case EvAuthFailed:
		f.handleAuthFailed(ctx, ev.AuthFail)
	case EvAddrConfigOK:
		f.handleAddrOK(ctx)
	case EvAddrConfigFailed:
		f.handleAddrFailed(ctx)
	case EvDHCPConfigOK:
		f.handleDHCPOK(ctx, ev.DHCPAddress)
	case EvDHCPConfigFailed:
		f.handleAddrFailed(ctx)
	case EvLinkLoss, EvDeauth:
		f.handleLinkLoss(ctx)
	case EvChanSwitch:
		if f.state == StateConnected {
			f.emit(wcmtypes.ReasonChanSwitch)
			f.handleLinkLoss(ctx)
		}
	case EvAssocPauseElapsed:
		f.assocPaused = false
		f.retryOrFail(ctx)
	}
}

// handleScanResult implements the BSS selection pipeline.
func (f *FSM) handleScanResult(ctx context.Context, descriptors []wcmtypes.BSSDescriptor) {
	if !f.state.scanningAny() {
		// Stale or unrelated SCAN_RESULT; nothing to do but drop the lock
		// if we somehow still hold it.
		if f.arb.Lock().Held() {
			f.arb.Finish()
		}
		return
	}

	p := f.store.MutableByIndex(f.curIdx)
	if p == nil {
		f.finishConnectFailure(ctx)
		return
	}

	result := selectFromResults(p, descriptors, f.allowedChannels)
	if result.best != nil {
		// Same-ESS fast transition: the newly selected BSS advertises FT
		// support and shares a mobility domain with the BSS this profile
		// was last associated to. Must be read before applyMatch
		// overwrites p.Discovered with the new BSS's parameters.
		f.pendingSameESS = f.hadPriorAssociation &&
			result.best.FTSupported &&
			result.best.MobilityDomain == p.Discovered.MobilityDomain
		applyMatch(p, *result.best)
		f.beginAssociate(ctx, p, *result.best)
		return
	}

	if len(result.hiddenChannels) > 0 {
		f.state = StateScanningHidden
		if err := f.drv.Scan(ctx, driver.ScanParams{Channels: result.hiddenChannels}); err != nil {
			f.finishConnectFailure(ctx)
		}
		return
	}

	if f.scanCount < f.cfg.RescanLimit {
		f.scanCount++
		f.state = StateScanning
		if err := f.drv.Scan(ctx, driver.ScanParams{SSID: p.SSID, BSSID: p.BSSID}); err != nil {
			f.finishConnectFailure(ctx)
		}
		return
	}

	f.finishNetworkNotFound(ctx)
}

func (f *FSM) beginAssociate(ctx context.Context, p *profile.Profile, d wcmtypes.BSSDescriptor) {
	if err := f.configureSecurity(ctx, p); err != nil {
		f.log.Warn().Err(err).Msg("configure_security failed")
		f.retryOrFail(ctx)
		return
	}

	params := driver.AssociateParams{
		BSSID:          d.BSSID,
		Security:       p.Security.Type,
		Ciphers:        p.Discovered.Ciphers,
		OWETransition:  len(d.OWETransitionSSID) > 0,
		FastTransition: d.FTSupported,
	}
	f.state = StateAssociating
	// Selection is complete; release the scan lock now, before waiting on
	// the ASSOC event. A retry scan issued after an earlier failed attempt
	// runs without the lock, so then there is nothing to release.
	if kind, _, ok := f.arb.Current(); ok && kind != scan.KindUser {
		f.arb.Finish()
	}

	if err := f.drv.Associate(ctx, params); err != nil {
		f.log.Warn().Err(err).Msg("associate failed")
		f.retryOrFail(ctx)
	}
}

func (f *FSM) configureSecurity(ctx context.Context, p *profile.Profile) error {
	sec := p.Security
	switch sec.Type {
	case wcmtypes.SecurityWEPOpen, wcmtypes.SecurityWEPShared:
		return f.sup.AddWEPKey(ctx, sec.WEPKeyIndex, sec.WEPKey)
	case wcmtypes.SecurityWPA3SAE, wcmtypes.SecurityWPA2WPA3Mixed:
		return f.sup.AddSAEPassword(ctx, p.SSID, sec.Passphrase)
	case wcmtypes.SecurityNone, wcmtypes.SecurityOWE:
		return nil
	default:
		var pmk [32]byte
		copy(pmk[:], sec.PMK)
		return f.sup.AddPSK(ctx, p.SSID, pmk)
	}
}

func (f *FSM) handleAssocOK(ctx context.Context) {
	if f.state != StateAssociating {
		return
	}
	f.state = StateAssociated
	if !f.sup.Authoritative() {
		f.handleAuthOK(ctx)
		return
	}
	// Supplicant-backed builds wait for the supplicant's own success event,
	// modeled by the caller routing an EvAuthOK once that arrives.
}

func (f *FSM) handleAssocFailed(ctx context.Context) {
	if f.state != StateAssociating {
		return
	}
	// Association failure while scan_count < RESCAN_LIMIT retries the scan
	//; the scan lock for this pipeline
	// was already released on entering ASSOCIATING, so a retry here simply
	// re-issues a driver scan without touching the arbiter — the pipeline
	// still logically owns this connect attempt.
	f.retryOrFail(ctx)
}

func (f *FSM) handleAuthOK(ctx context.Context) {
	if f.state != StateAssociated {
		return
	}
	f.emit(wcmtypes.ReasonAuthSuccess)

	p, ok := f.store.GetByIndex(f.curIdx)
	if !ok {
		f.finishConnectFailure(ctx)
		return
	}

	if f.pendingSameESS {
		f.pendingSameESS = false
		// 802.11r same-ESS fast path: skip address acquisition entirely.
		f.finishConnected(ctx)
		return
	}

	f.state = StateReqAddr
	var err error
	if p.IP.Static {
		gw := [4]byte(p.IP.Gateway)
		nm := [4]byte(p.IP.Netmask)
		dns1 := [4]byte(p.IP.DNS1)
		dns2 := [4]byte(p.IP.DNS2)
		addr := [4]byte(p.IP.Address)
		err = f.drv.ConfigureSTAAddrStatic(ctx, addr, gw, nm, dns1, dns2)
	} else {
		err = f.drv.ConfigureSTAAddrDHCP(ctx)
	}
	if err != nil {
		f.handleAddrFailed(ctx)
	}
}

func (f *FSM) handleAuthFailed(ctx context.Context, reason driver.AuthFailReason) {
	if f.state != StateAssociating && f.state != StateAssociated {
		return
	}
	if reason == driver.AuthFailMICFailure {
		f.assocPaused = true
		f.pausedUntil = time.Now().Add(f.cfg.AssocPause)
	}
	f.retryOrFail(ctx)
}

func (f *FSM) handleAddrOK(ctx context.Context) {
	if f.state != StateReqAddr {
		return
	}
	if p, ok := f.store.GetByIndex(f.curIdx); ok && !p.IP.Static {
		f.state = StateObtAddr
		return
	}
	f.finishConnected(ctx)
}

func (f *FSM) handleDHCPOK(ctx context.Context, addr [4]byte) {
	if f.state != StateObtAddr {
		return
	}
	if p := f.store.MutableByIndex(f.curIdx); p != nil {
		p.IP.LearnedAddress = profile.IPv4Addr(addr)
	}
	f.finishConnected(ctx)
}

func (f *FSM) handleAddrFailed(ctx context.Context) {
	if f.state != StateReqAddr && f.state != StateObtAddr {
		return
	}
	f.emit(wcmtypes.ReasonAddressFailed)
	_ = ctx
	f.finishConnectFailure(ctx)
}

func (f *FSM) handleLinkLoss(ctx context.Context) {
	switch f.state {
	case StateConnected:
		f.toIdle(false)
		f.emit(wcmtypes.ReasonLinkLost)
		f.retryOrFail(ctx)
	case StateReqAddr, StateObtAddr:
		f.handleAddrFailed(ctx)
	}
}

func (f *FSM) finishConnected(ctx context.Context) {
	_ = ctx
	f.state = StateConnected
	f.reassocCount = 0
	f.hadPriorAssociation = true
	f.emit(wcmtypes.ReasonSuccess)
}

// finishConnectFailure emits ConnectFailed (after exhausting reassoc
// retries) and returns to IDLE.
func (f *FSM) finishConnectFailure(ctx context.Context) {
	if f.tryReassociate(ctx) {
		return
	}
	f.toIdle(true)
	f.emit(wcmtypes.ReasonConnectFailed)
}

func (f *FSM) finishNetworkNotFound(ctx context.Context) {
	if f.tryReassociate(ctx) {
		return
	}
	f.toIdle(true)
	f.emit(wcmtypes.ReasonNetworkNotFound)
}

// retryOrFail is the shared "association failed, should we rescan or give
// up" decision used by both assoc-failure and auth-failure paths.
func (f *FSM) retryOrFail(ctx context.Context) {
	if f.assocPaused {
		// A dispatcher timer will deliver EvAssocPauseElapsed once the 60s
		// pause expires.
		return
	}
	if f.scanCount < f.cfg.RescanLimit {
		f.scanCount++
		p, ok := f.store.GetByIndex(f.curIdx)
		if !ok {
			f.finishConnectFailure(ctx)
			return
		}
		f.state = StateScanning
		if err := f.drv.Scan(ctx, driver.ScanParams{SSID: p.SSID, BSSID: p.BSSID}); err != nil {
			f.finishConnectFailure(ctx)
		}
		return
	}
	f.finishConnectFailure(ctx)
}

// tryReassociate implements reassociation policy: schedules
// a fresh connect attempt against the same profile, bounded by
// RECONNECT_LIMIT, unless reassoc is disabled.
func (f *FSM) tryReassociate(ctx context.Context) bool {
	if !f.cfg.ReassocControl || f.reassocCount >= f.cfg.ReconnectLimit || f.curIdx < 0 {
		return false
	}
	p, ok := f.store.GetByIndex(f.curIdx)
	if !ok {
		return false
	}
	f.reassocCount++
	f.scanCount = 0
	f.state = StateScanning
	if err := f.drv.Scan(ctx, driver.ScanParams{SSID: p.SSID, BSSID: p.BSSID}); err != nil {
		return false
	}
	return true
}

// AssocPauseDeadline reports the time an in-progress MIC-failure pause
// expires, for the dispatcher to schedule EvAssocPauseElapsed.
func (f *FSM) AssocPauseDeadline() (time.Time, bool) {
	return f.pausedUntil, f.assocPaused
}

var errNotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "sta: profile not found" }
