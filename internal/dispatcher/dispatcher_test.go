package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/driver/sim"
	"github.com/nxp-wmsdk/wlcmgr/internal/powersave"
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/scan"
	"github.com/nxp-wmsdk/wlcmgr/internal/sta"
	"github.com/nxp-wmsdk/wlcmgr/internal/supplicant/none"
	"github.com/nxp-wmsdk/wlcmgr/internal/uap"
	"github.com/nxp-wmsdk/wlcmgr/internal/wakelock"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

type harness struct {
	d     *Dispatcher
	store *profile.Store
	arb   *scan.Arbiter
	drv   *sim.Backend

	mu     chan struct{}
	events []wcmtypes.CallbackEvent
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: profile.New(8), arb: scan.NewArbiter(), drv: sim.New()}

	cb := func(ev wcmtypes.CallbackEvent) {
		h.events = append(h.events, ev)
	}

	staFSM := sta.New(sta.Config{RescanLimit: 5, ReconnectLimit: 5, AssocPause: 60 * time.Second}, h.store, h.arb, h.drv, none.New(), wakelock.New(), cb, zerolog.Nop())
	uapFSM := uap.New(h.store, h.drv, StaQuery{STA: staFSM, Store: h.store}, cb, zerolog.Nop())
	h.store.SetStateQueries(staFSM, uapFSM)
	ps := powersave.NewController(h.drv, SessionQuery{STA: staFSM, UAP: uapFSM, Store: h.store}, cb, zerolog.Nop())

	h.d = New(Config{SleepConfirmTick: time.Millisecond}, staFSM, uapFSM, ps, h.arb, h.drv, h.store, zerolog.Nop())

	staFSM.Handle(context.Background(), sta.Event{Kind: sta.EvNetIfConfigOK})

	require.NoError(t, h.d.Start(context.Background()))
	t.Cleanup(h.d.Stop)
	return h
}

func addHomeProfile(t *testing.T, h *harness, static bool) {
	t.Helper()
	p := profile.Profile{
		Name:     "home",
		Role:     wcmtypes.RoleSTA,
		SSID:     []byte("Home"),
		Security: profile.SecurityDescriptor{Type: wcmtypes.SecurityWPA2, PSK: "abcdefgh", PMK: make([]byte, 32)},
		IP:       profile.IPConfig{Static: static},
	}
	_, err := h.store.Add(p)
	require.NoError(t, err)
}

func homeDescriptor(rssi int8) wcmtypes.BSSDescriptor {
	return wcmtypes.BSSDescriptor{
		BSSID:        [6]byte{1, 2, 3, 4, 5, 6},
		SSID:         []byte("Home"),
		Channel:      6,
		RSSI:         rssi,
		Security:     wcmtypes.SecurityWPA2,
		SecurityMask: wcmtypes.SecurityMask{WPA2: true},
	}
}

// waitForReason polls the recorded events for reason, used since events are
// appended on the dispatcher goroutine while the test asserts from its own.
func waitForReason(t *testing.T, h *harness, reason wcmtypes.EventReason) wcmtypes.CallbackEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range h.events {
			if ev.Reason == reason {
				return ev
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for reason %v, got %v", reason, h.events)
	return wcmtypes.CallbackEvent{}
}

func TestHappyConnectDHCP(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	addHomeProfile(t, h, false)

	require.NoError(t, h.d.Connect(ctx, "home"))

	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{homeDescriptor(-40)}}))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventAssociation}))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventNetSTAAddrConfig}))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventNetDHCPConfig, IPAddress: [4]byte{10, 0, 0, 5}}))

	waitForReason(t, h, wcmtypes.ReasonSuccess)

	assert.Equal(t, sta.StateConnected, h.d.sta.State())
	p := h.store.MutableByIndex(h.d.sta.CurrentIndex())
	require.NotNil(t, p)
	assert.Equal(t, profile.IPv4Addr{10, 0, 0, 5}, p.IP.LearnedAddress)
}

func TestWrongPassphraseExhaustsRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	addHomeProfile(t, h, false)

	require.NoError(t, h.d.Connect(ctx, "home"))

	for i := 0; i < 6; i++ {
		require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{homeDescriptor(-40)}}))
		require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventAuthenticationFailed, Reason: driver.AuthFailFourWayTimeout}))
	}

	waitForReason(t, h, wcmtypes.ReasonConnectFailed)
	assert.Equal(t, sta.StateIdle, h.d.sta.State())
}

func TestNetworkNotFoundAfterRescanLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	addHomeProfile(t, h, false)

	require.NoError(t, h.d.Connect(ctx, "home"))
	for i := 0; i < 6; i++ {
		require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventScanResult, ScanResults: nil}))
	}

	waitForReason(t, h, wcmtypes.ReasonNetworkNotFound)
}

func TestDisconnectMidScanReleasesLock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	addHomeProfile(t, h, false)

	require.NoError(t, h.d.Connect(ctx, "home"))
	require.Eventually(t, func() bool { return h.arb.Lock().Held() }, time.Second, time.Millisecond)

	require.NoError(t, h.d.Disconnect(ctx))
	waitForReason(t, h, wcmtypes.ReasonUserDisconnect)

	assert.False(t, h.arb.Lock().Held())
	assert.Equal(t, sta.StateIdle, h.d.sta.State())
}

func TestScanRejectedWhileAssociating(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	addHomeProfile(t, h, false)

	require.NoError(t, h.d.Connect(ctx, "home"))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{homeDescriptor(-40)}}))

	require.Eventually(t, func() bool { return h.d.sta.State() == sta.StateAssociating }, time.Second, time.Millisecond)

	err := h.d.Scan(ctx, nil, func(int) {})
	require.Error(t, err)
	assert.False(t, h.arb.Lock().Held(), "rejection must release the lock it just acquired")
}

// authoritativeSupplicant holds STA at StateAssociated after EvAssocOK,
// requiring a separate EvAuthOK event to proceed, so tests can observe the
// full CONNECTING range rather than only ASSOCIATING.
type authoritativeSupplicant struct{ none.Backend }

func (authoritativeSupplicant) Authoritative() bool { return true }

// newAuthoritativeHarness is a variant of newHarness whose STA FSM waits for
// a separate auth event instead of collapsing ASSOCIATED into REQ_ADDR
// immediately, so every CONNECTING sub-state can be driven independently.
func newAuthoritativeHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: profile.New(8), arb: scan.NewArbiter(), drv: sim.New()}

	cb := func(ev wcmtypes.CallbackEvent) {
		h.events = append(h.events, ev)
	}

	staFSM := sta.New(sta.Config{RescanLimit: 5, ReconnectLimit: 5, AssocPause: 60 * time.Second}, h.store, h.arb, h.drv, authoritativeSupplicant{}, wakelock.New(), cb, zerolog.Nop())
	uapFSM := uap.New(h.store, h.drv, StaQuery{STA: staFSM, Store: h.store}, cb, zerolog.Nop())
	h.store.SetStateQueries(staFSM, uapFSM)
	ps := powersave.NewController(h.drv, SessionQuery{STA: staFSM, UAP: uapFSM, Store: h.store}, cb, zerolog.Nop())

	h.d = New(Config{SleepConfirmTick: time.Millisecond}, staFSM, uapFSM, ps, h.arb, h.drv, h.store, zerolog.Nop())

	staFSM.Handle(context.Background(), sta.Event{Kind: sta.EvNetIfConfigOK})

	require.NoError(t, h.d.Start(context.Background()))
	t.Cleanup(h.d.Stop)
	return h
}

func TestScanRejectedThroughoutConnecting(t *testing.T) {
	states := []struct {
		name    string
		want    sta.State
		advance func(t *testing.T, ctx context.Context, h *harness)
	}{
		{
			name: "ASSOCIATING",
			want: sta.StateAssociating,
			advance: func(t *testing.T, ctx context.Context, h *harness) {
				require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{homeDescriptor(-40)}}))
			},
		},
		{
			name: "ASSOCIATED",
			want: sta.StateAssociated,
			advance: func(t *testing.T, ctx context.Context, h *harness) {
				require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{homeDescriptor(-40)}}))
				require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventAssociation}))
			},
		},
		{
			name: "REQ_ADDR",
			want: sta.StateReqAddr,
			advance: func(t *testing.T, ctx context.Context, h *harness) {
				require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{homeDescriptor(-40)}}))
				require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventAssociation}))
				require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventAuthentication}))
			},
		},
		{
			name: "OBT_ADDR",
			want: sta.StateObtAddr,
			advance: func(t *testing.T, ctx context.Context, h *harness) {
				require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{homeDescriptor(-40)}}))
				require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventAssociation}))
				require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventAuthentication}))
				require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventNetSTAAddrConfig}))
			},
		},
	}

	for _, tc := range states {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			h := newAuthoritativeHarness(t)
			addHomeProfile(t, h, false)

			require.NoError(t, h.d.Connect(ctx, "home"))
			tc.advance(t, ctx, h)
			require.Eventually(t, func() bool { return h.d.sta.State() == tc.want }, time.Second, time.Millisecond)

			err := h.d.Scan(ctx, nil, func(int) {})
			require.Error(t, err)
			assert.False(t, h.arb.Lock().Held(), "rejection must release the lock it just acquired")
		})
	}
}

func TestSoftAPLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	p := profile.Profile{
		Name:     "hotspot",
		Role:     wcmtypes.RoleUAP,
		SSID:     []byte("Hotspot"),
		Security: profile.SecurityDescriptor{Type: wcmtypes.SecurityWPA2, PSK: "abcdefgh"},
		IP:       profile.IPConfig{Static: false},
		Channel:  6,
	}
	_, err := h.store.Add(p)
	require.NoError(t, err)

	require.NoError(t, h.d.StartNetwork(ctx, "hotspot"))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventUapStarted, MAC: [6]byte{9, 9, 9, 9, 9, 9}}))

	waitForReason(t, h, wcmtypes.ReasonUapSuccess)
	assert.Equal(t, uap.StateIPUp, h.d.uap.State())

	require.NoError(t, h.d.StopNetwork(ctx))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventUapStopped}))
	waitForReason(t, h, wcmtypes.ReasonUapStopped)
	assert.Equal(t, uap.StateInit, h.d.uap.State())
}

func TestEnterIEEEPSWhileConnected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	addHomeProfile(t, h, false)

	require.NoError(t, h.d.Connect(ctx, "home"))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{homeDescriptor(-40)}}))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventAssociation}))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventAuthentication}))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventNetSTAAddrConfig}))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventNetDHCPConfig, IPAddress: [4]byte{10, 0, 0, 5}}))
	waitForReason(t, h, wcmtypes.ReasonSuccess)

	require.NoError(t, h.d.EnableIEEEPS(ctx))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventIEEEPS, PS: driver.PSActionEnableDone}))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventIEEEPS, PS: driver.PSActionSleep}))
	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventIEEEPS, PS: driver.PSActionSleepConfirm}))

	waitForReason(t, h, wcmtypes.ReasonPsEnter)

	require.NoError(t, h.d.PostDriverEvent(ctx, driver.Event{Kind: driver.EventIEEEPS, PS: driver.PSActionDisAutoPS}))
	waitForReason(t, h, wcmtypes.ReasonPsExit)
}
