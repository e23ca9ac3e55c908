// Package wcm assembles the FSMs, the event dispatcher, the profile store,
// and the driver backend into the single user-facing facade: init/start/
// stop/deinit, network management, connect/reassociate/disconnect,
// scanning, uAP lifecycle, power-save, and the status queries. Everything
// here runs on the caller's own goroutine except where it hands off to
// the dispatcher.
package wcm

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nxp-wmsdk/wlcmgr/internal/diagnostics"
	"github.com/nxp-wmsdk/wlcmgr/internal/dispatcher"
	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/history"
	"github.com/nxp-wmsdk/wlcmgr/internal/powersave"
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/scan"
	"github.com/nxp-wmsdk/wlcmgr/internal/sta"
	"github.com/nxp-wmsdk/wlcmgr/internal/supplicant"
	"github.com/nxp-wmsdk/wlcmgr/internal/supplicant/embedded"
	"github.com/nxp-wmsdk/wlcmgr/internal/supplicant/none"
	"github.com/nxp-wmsdk/wlcmgr/internal/uap"
	"github.com/nxp-wmsdk/wlcmgr/internal/wakelock"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// EventSource is implemented by every driver.Driver backend this facade
// can drain events from (internal/driver/sim, internal/driver/netlink).
type EventSource interface {
	Events() <-chan driver.Event
}

// Config carries everything Manager needs to assemble the WCM core. The
// caller (cmd/wlcmgrd) builds this from config.Settings.
type Config struct {
	Interface        string
	MaxKnownNetworks int

	RescanLimit     uint
	ReconnectLimit  uint
	AssocPauseOnMIC time.Duration

	SleepConfirmTick time.Duration
	EventQueueDepth  int

	DatabasePath    string
	HistoryCapacity int

	// Supplicant selects the authentication backend: "embedded" (default,
	// in-process PMK/PSK/SAE/WEP derivation) or "none" (legacy, WCM loads
	// keys directly and the firmware's own AUTH event is authoritative).
	Supplicant string
}

// Manager is the WCM facade. One Manager owns one STA session, one uAP
// session, and both power-save sub-machines against a single driver
// backend.
type Manager struct {
	cfg Config
	log zerolog.Logger

	store *profile.Store
	arb   *scan.Arbiter
	drv   driver.Driver
	src   EventSource

	sta *sta.FSM
	uap *uap.FSM
	ps  *powersave.Controller
	hist *history.Store

	disp *dispatcher.Dispatcher

	pumpCancel context.CancelFunc
	pumpDone   chan struct{}

	mu          sync.Mutex
	userCB      func(wcmtypes.CallbackEvent)
	lastResults []wcmtypes.BSSDescriptor
}

// New assembles every FSM against a fresh profile store and wires the
// dispatcher, but does not start its goroutine — call Start for that.
func New(cfg Config, drv driver.Driver, src EventSource, log zerolog.Logger) (*Manager, error) {
	if cfg.MaxKnownNetworks <= 0 {
		cfg.MaxKnownNetworks = 16
	}

	store := profile.New(cfg.MaxKnownNetworks)
	arb := scan.NewArbiter()

	var sup supplicant.Supplicant
	if cfg.Supplicant == "none" {
		sup = none.New()
	} else {
		sup = embedded.New()
	}

	hist, err := history.Open(cfg.DatabasePath, cfg.HistoryCapacity, log)
	if err != nil {
		return nil, err
	}

	m := &Manager{cfg: cfg, log: log.With().Str("component", "wcm").Logger(), store: store, arb: arb, drv: drv, src: src, hist: hist}
	cb := m.dispatchCallback

	staFSM := sta.New(sta.Config{
		RescanLimit:    int(cfg.RescanLimit),
		ReconnectLimit: int(cfg.ReconnectLimit),
		AssocPause:     cfg.AssocPauseOnMIC,
	}, store, arb, drv, sup, wakelock.New(), cb, log)
	m.sta = staFSM

	uapFSM := uap.New(store, drv, dispatcher.StaQuery{STA: staFSM, Store: store}, cb, log)
	store.SetStateQueries(staFSM, uapFSM)
	m.uap = uapFSM

	m.ps = powersave.NewController(drv, dispatcher.SessionQuery{STA: staFSM, UAP: uapFSM, Store: store}, cb, log)

	m.disp = dispatcher.New(dispatcher.Config{
		SleepConfirmTick: cfg.SleepConfirmTick,
		QueueDepth:       cfg.EventQueueDepth,
	}, staFSM, uapFSM, m.ps, arb, drv, store, log)

	return m, nil
}

// dispatchCallback is installed on every FSM as their cb. It records the
// event to history and fans it out to whatever caller registered via
// Start, without either FSM ever importing internal/history itself.
func (m *Manager) dispatchCallback(ev wcmtypes.CallbackEvent) {
	m.hist.Record(context.Background(), ev)
	m.mu.Lock()
	userCB := m.userCB
	m.mu.Unlock()
	if userCB != nil {
		userCB(ev)
	}
}

// Start implements init(firmware_image)+start(callback) together: it wires
// the caller's callback, advances the STA FSM past StateInitializing the
// way the driver's own NET_IF_CONFIG confirmation would, then launches the
// dispatcher goroutine and the driver-event pump.
func (m *Manager) Start(ctx context.Context, cb func(wcmtypes.CallbackEvent)) error {
	m.mu.Lock()
	m.userCB = cb
	m.mu.Unlock()

	m.sta.Handle(ctx, sta.Event{Kind: sta.EvNetIfConfigOK})

	if err := m.disp.Start(ctx); err != nil {
		return err
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	m.pumpCancel = cancel
	m.pumpDone = make(chan struct{})
	go m.pump(pumpCtx)

	return nil
}

// pump drains the driver's event channel and hands each event to the
// dispatcher, capturing scan descriptors for GetScanResult along the way
// (get_scan_result(i, out), which the dispatcher's own
// SCAN_RESULT routing does not retain past the user callback's int count).
func (m *Manager) pump(ctx context.Context) {
	defer close(m.pumpDone)
	events := m.src.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == driver.EventScanResult {
				m.mu.Lock()
				m.lastResults = ev.ScanResults
				m.mu.Unlock()
			}
			if err := m.disp.PostDriverEvent(ctx, ev); err != nil {
				m.log.Warn().Err(err).Msg("dropped driver event on shutdown")
				return
			}
		}
	}
}

// Stop implements stop(): deinit the active sessions, then stop the
// dispatcher goroutine and the event pump, and close the history store.
func (m *Manager) Stop(ctx context.Context) {
	_ = m.disp.Deinit(ctx)
	m.disp.Stop()
	if m.pumpCancel != nil {
		m.pumpCancel()
		<-m.pumpDone
	}
	_ = m.hist.Close()
}

// Deinit implements WLAN_DEINIT without tearing down the dispatcher
// goroutine itself, for callers that want to reconfigure and Start again.
func (m *Manager) Deinit(ctx context.Context) error {
	return m.disp.Deinit(ctx)
}

// AddNetwork implements add_network(profile). The insert is enqueued onto
// the dispatcher rather than applied here, so it runs on the same
// goroutine as every other store mutation instead of racing the STA/uAP
// FSMs' own reads and writes of the profile slots.
func (m *Manager) AddNetwork(ctx context.Context, p profile.Profile) (int, error) {
	return m.disp.AddNetwork(ctx, p)
}

// RemoveNetwork implements remove_network(name), enqueued for the same
// reason as AddNetwork.
func (m *Manager) RemoveNetwork(ctx context.Context, name string) error {
	return m.disp.RemoveNetwork(ctx, name)
}

// GetNetworkByIndex implements get_network(by_index).
func (m *Manager) GetNetworkByIndex(i int) (profile.Profile, bool) {
	return m.store.GetByIndex(i)
}

// GetNetworkByName implements get_network(by_name).
func (m *Manager) GetNetworkByName(name string) (profile.Profile, bool) {
	return m.store.GetByName(name)
}

// GetNetworkCount implements get_network(count).
func (m *Manager) GetNetworkCount() int {
	return m.store.Count()
}

// Connect implements connect(name).
func (m *Manager) Connect(ctx context.Context, name string) error {
	return m.disp.Connect(ctx, name)
}

// Reassociate implements reassociate(). The current profile's name is read
// through the dispatcher so it never touches sta.FSM's cur_sta_idx or the
// store directly from the caller's own goroutine.
func (m *Manager) Reassociate(ctx context.Context) error {
	var name string
	var ok bool
	if err := m.disp.Query(ctx, func() {
		p, found := m.store.GetByIndex(m.sta.CurrentIndex())
		name, ok = p.Name, found
	}); err != nil {
		return err
	}
	if !ok {
		return wcmerrors.New("wcm.reassociate", wcmerrors.KindState, nil)
	}
	return m.disp.Reassociate(ctx, name)
}

// Disconnect implements disconnect().
func (m *Manager) Disconnect(ctx context.Context) error {
	return m.disp.Disconnect(ctx)
}

// Scan implements scan(callback): a full scan across every allowed
// channel.
func (m *Manager) Scan(ctx context.Context, cb func(count int)) error {
	return m.disp.Scan(ctx, nil, cb)
}

// ScanWithOpt implements scan_with_opt(params): a directed scan over the
// given channel set.
func (m *Manager) ScanWithOpt(ctx context.Context, channels []int, cb func(count int)) error {
	return m.disp.Scan(ctx, channels, cb)
}

// GetScanResult implements get_scan_result(i, out): the i'th descriptor
// from the most recently completed scan, regardless of whether it was a
// user scan or an internal one.
func (m *Manager) GetScanResult(i int) (wcmtypes.BSSDescriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.lastResults) {
		return wcmtypes.BSSDescriptor{}, false
	}
	return m.lastResults[i], true
}

// GetScanResultCount reports how many descriptors GetScanResult can index.
func (m *Manager) GetScanResultCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lastResults)
}

// GetCurrentNetwork implements get_current_network(out): the profile the
// STA FSM currently holds (StateConnected) or (zero, false) otherwise. The
// read runs on the dispatcher goroutine so it can't race the STA FSM's own
// state and cur_sta_idx transitions.
func (m *Manager) GetCurrentNetwork(ctx context.Context) (profile.Profile, bool) {
	var p profile.Profile
	var ok bool
	_ = m.disp.Query(ctx, func() {
		if m.sta.State() != sta.StateConnected {
			return
		}
		p, ok = m.store.GetByIndex(m.sta.CurrentIndex())
	})
	return p, ok
}

// StartNetwork implements start_network(name).
func (m *Manager) StartNetwork(ctx context.Context, name string) error {
	return m.disp.StartNetwork(ctx, name)
}

// StopNetwork implements stop_network(name). The dispatcher's own
// StopNetwork takes no name (there is at most one active uAP session);
// the parameter is accepted here only to mirror signature.
func (m *Manager) StopNetwork(ctx context.Context, name string) error {
	return m.disp.StopNetwork(ctx)
}

// EnableIEEEPS implements ieeeps_on().
func (m *Manager) EnableIEEEPS(ctx context.Context) error { return m.disp.EnableIEEEPS(ctx) }

// DisableIEEEPS implements ieeeps_off().
func (m *Manager) DisableIEEEPS(ctx context.Context) error { return m.disp.DisableIEEEPS(ctx) }

// EnableDeepSleepPS implements deepsleepps_on().
func (m *Manager) EnableDeepSleepPS(ctx context.Context) error {
	return m.disp.EnableDeepSleepPS(ctx)
}

// DisableDeepSleepPS implements deepsleepps_off().
func (m *Manager) DisableDeepSleepPS(ctx context.Context) error {
	return m.disp.DisableDeepSleepPS(ctx)
}

// SendHostSleep implements send_host_sleep(conditions).
func (m *Manager) SendHostSleep(ctx context.Context, wakeup wcmtypes.WakeupCondition) error {
	return m.disp.RequestHostSleep(ctx, wakeup)
}

// GetConnectionState implements get_connection_state(): the STA FSM's own
// state, which already distinguishes IDLE/SCANNING/ASSOCIATING/CONNECTED.
// Read through the dispatcher rather than off f.state directly, since that
// field is written by the dispatcher goroutine on every transition.
func (m *Manager) GetConnectionState(ctx context.Context) sta.State {
	var st sta.State
	_ = m.disp.Query(ctx, func() { st = m.sta.State() })
	return st
}

// GetMACAddress implements get_mac_address(): the hardware address of the
// configured network interface. This queries the OS directly since
// driver.Driver has no MAC-query command of its own (the firmware reports
// its MAC only via STA_MAC_ADDR_CONFIG/UAP_MAC_ADDR_CONFIG events, which
// this facade does not retain outside of the uAP path's EvUapStarted MAC).
func (m *Manager) GetMACAddress() ([6]byte, error) {
	var mac [6]byte
	iface, err := net.InterfaceByName(m.cfg.Interface)
	if err != nil {
		return mac, wcmerrors.New("wcm.get_mac_address", wcmerrors.KindFail, err)
	}
	copy(mac[:], iface.HardwareAddr)
	return mac, nil
}

// GetAddress implements get_address(): the active session's IPv4 address,
// STA taking priority over uAP when both happen to be up. Run through the
// dispatcher since SessionQuery reads sta.FSM/uap.FSM/profile.Store state
// that only the dispatcher goroutine may touch directly.
func (m *Manager) GetAddress(ctx context.Context) [4]byte {
	var addr [4]byte
	q := dispatcher.SessionQuery{STA: m.sta, UAP: m.uap, Store: m.store}
	_ = m.disp.Query(ctx, func() { addr = q.CurrentIPAddress() })
	return addr
}

// Diagnostics returns a point-in-time host resource sample from c, for the
// control plane's status route. It carries no connection or uAP state.
func (m *Manager) Diagnostics(c *diagnostics.Collector) diagnostics.HostStats {
	return c.Sample()
}
