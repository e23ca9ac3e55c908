package sta

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/driver/sim"
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/scan"
	"github.com/nxp-wmsdk/wlcmgr/internal/supplicant/none"
	"github.com/nxp-wmsdk/wlcmgr/internal/wakelock"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

type harness struct {
	fsm     *FSM
	store   *profile.Store
	arb     *scan.Arbiter
	drv     *sim.Backend
	events  []wcmtypes.EventReason
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		store: profile.New(5),
		arb:   scan.NewArbiter(),
		drv:   sim.New(),
	}
	h.fsm = New(cfg, h.store, h.arb, h.drv, none.New(), wakelock.New(), func(ev wcmtypes.CallbackEvent) {
		h.events = append(h.events, ev.Reason)
	}, zerolog.Nop())
	h.store.SetStateQueries(h.fsm, nullUAP{})
	h.fsm.Handle(context.Background(), Event{Kind: EvNetIfConfigOK})
	h.events = nil // tests assert only what follows initialization
	return h
}

type nullUAP struct{}

func (nullUAP) CurrentUAPUp(string) bool { return false }

func addHomeProfile(t *testing.T, h *harness, static bool) {
	t.Helper()
	p := profile.Profile{
		Name: "home",
		Role: wcmtypes.RoleSTA,
		SSID: []byte("Home"),
		Security: profile.SecurityDescriptor{
			Type: wcmtypes.SecurityWPA2,
			PSK:  "abcdefgh",
			PMK:  make([]byte, 32),
		},
		IP: profile.IPConfig{Static: static},
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

func TestHappyConnectDHCP(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{RescanLimit: 5, ReconnectLimit: 5})
	addHomeProfile(t, h, false)

	require.NoError(t, h.arb.StartInternal(ctx, scan.KindConnect))
	require.NoError(t, h.fsm.StartConnect(ctx, "home"))
	assert.Equal(t, StateScanning, h.fsm.State())
	assert.Len(t, h.drv.Scans, 1)

	h.fsm.Handle(ctx, Event{Kind: EvScanResult, Descriptors: []wcmtypes.BSSDescriptor{homeDescriptor(-55)}})
	require.Equal(t, StateAssociating, h.fsm.State())
	assert.Len(t, h.drv.Associations, 1)
	assert.False(t, h.arb.Lock().Held(), "scan lock released once selection completes")

	h.fsm.Handle(ctx, Event{Kind: EvAssocOK})
	require.Equal(t, StateReqAddr, h.fsm.State(), "none supplicant auto-confirms auth")

	h.fsm.Handle(ctx, Event{Kind: EvAddrConfigOK})
	assert.Equal(t, StateObtAddr, h.fsm.State())

	h.fsm.Handle(ctx, Event{Kind: EvDHCPConfigOK})
	assert.Equal(t, StateConnected, h.fsm.State())

	assert.Equal(t, []wcmtypes.EventReason{wcmtypes.ReasonAuthSuccess, wcmtypes.ReasonSuccess}, h.events)
}

func TestHappyConnectStaticIP(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{RescanLimit: 5, ReconnectLimit: 5})
	addHomeProfile(t, h, true)

	require.NoError(t, h.arb.StartInternal(ctx, scan.KindConnect))
	require.NoError(t, h.fsm.StartConnect(ctx, "home"))
	h.fsm.Handle(ctx, Event{Kind: EvScanResult, Descriptors: []wcmtypes.BSSDescriptor{homeDescriptor(-40)}})
	h.fsm.Handle(ctx, Event{Kind: EvAssocOK})
	h.fsm.Handle(ctx, Event{Kind: EvAddrConfigOK})

	assert.Equal(t, StateConnected, h.fsm.State(), "static IP goes straight to CONNECTED")
	assert.Equal(t, []wcmtypes.EventReason{wcmtypes.ReasonAuthSuccess, wcmtypes.ReasonSuccess}, h.events)
}

func TestAuthFailureExhaustsRetriesThenConnectFailed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{RescanLimit: 2, ReconnectLimit: 0})
	addHomeProfile(t, h, false)

	require.NoError(t, h.arb.StartInternal(ctx, scan.KindConnect))
	require.NoError(t, h.fsm.StartConnect(ctx, "home"))

	for i := 0; i < 3; i++ {
		h.fsm.Handle(ctx, Event{Kind: EvScanResult, Descriptors: []wcmtypes.BSSDescriptor{homeDescriptor(-60)}})
		require.Equal(t, StateAssociating, h.fsm.State())
		h.fsm.Handle(ctx, Event{Kind: EvAuthFailed, AuthFail: driver.AuthFailFourWayTimeout})
	}

	assert.Equal(t, StateIdle, h.fsm.State())
	assert.Contains(t, h.events, wcmtypes.ReasonConnectFailed)
	assert.NotContains(t, h.events, wcmtypes.ReasonAuthSuccess)
	assert.False(t, h.arb.Lock().Held())
}

func TestNetworkNotFoundAfterRescanLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{RescanLimit: 3, ReconnectLimit: 0})
	addHomeProfile(t, h, false)

	require.NoError(t, h.arb.StartInternal(ctx, scan.KindConnect))
	require.NoError(t, h.fsm.StartConnect(ctx, "home"))

	for i := 0; i < 4; i++ {
		h.fsm.Handle(ctx, Event{Kind: EvScanResult})
	}

	assert.Equal(t, StateIdle, h.fsm.State())
	assert.Equal(t, []wcmtypes.EventReason{wcmtypes.ReasonNetworkNotFound}, h.events)
	assert.Len(t, h.drv.Scans, 4, "one initial scan plus three rescans")
	assert.False(t, h.arb.Lock().Held())
}

func TestUserDisconnectMidScanReleasesLock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{RescanLimit: 5, ReconnectLimit: 5})
	addHomeProfile(t, h, false)

	require.NoError(t, h.arb.StartInternal(ctx, scan.KindConnect))
	require.NoError(t, h.fsm.StartConnect(ctx, "home"))
	require.Equal(t, StateScanning, h.fsm.State())

	h.fsm.Handle(ctx, Event{Kind: EvUserDisconnect})

	assert.Equal(t, StateIdle, h.fsm.State())
	assert.False(t, h.arb.Lock().Held())
	assert.Equal(t, []wcmtypes.EventReason{wcmtypes.ReasonUserDisconnect}, h.events)
}

func TestSameESSFastPathSkipsAddressAcquisition(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{RescanLimit: 5, ReconnectLimit: 5})
	addHomeProfile(t, h, false)

	md := [2]byte{0xAB, 0xCD}
	ftHome := func(rssi int8) wcmtypes.BSSDescriptor {
		d := homeDescriptor(rssi)
		d.FTSupported = true
		d.MobilityDomain = md
		return d
	}

	require.NoError(t, h.arb.StartInternal(ctx, scan.KindConnect))
	require.NoError(t, h.fsm.StartConnect(ctx, "home"))
	h.fsm.Handle(ctx, Event{Kind: EvScanResult, Descriptors: []wcmtypes.BSSDescriptor{ftHome(-55)}})
	h.fsm.Handle(ctx, Event{Kind: EvAssocOK})
	h.fsm.Handle(ctx, Event{Kind: EvAddrConfigOK})
	h.fsm.Handle(ctx, Event{Kind: EvDHCPConfigOK})
	require.Equal(t, StateConnected, h.fsm.State(), "no prior association: full address acquisition, not the fast path")

	// Roam to a different BSS in the same mobility domain.
	require.NoError(t, h.arb.StartInternal(ctx, scan.KindConnect))
	require.NoError(t, h.fsm.StartConnect(ctx, "home"))
	h.fsm.Handle(ctx, Event{Kind: EvScanResult, Descriptors: []wcmtypes.BSSDescriptor{ftHome(-40)}})
	h.fsm.Handle(ctx, Event{Kind: EvAssocOK})

	assert.Equal(t, StateConnected, h.fsm.State(), "same-ESS reassociation skips address acquisition entirely")
}

func TestSameESSRequiresMatchingMobilityDomain(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Config{RescanLimit: 5, ReconnectLimit: 5})
	addHomeProfile(t, h, false)

	first := homeDescriptor(-55)
	first.FTSupported = true
	first.MobilityDomain = [2]byte{0x01, 0x02}

	require.NoError(t, h.arb.StartInternal(ctx, scan.KindConnect))
	require.NoError(t, h.fsm.StartConnect(ctx, "home"))
	h.fsm.Handle(ctx, Event{Kind: EvScanResult, Descriptors: []wcmtypes.BSSDescriptor{first}})
	h.fsm.Handle(ctx, Event{Kind: EvAssocOK})
	h.fsm.Handle(ctx, Event{Kind: EvAddrConfigOK})
	h.fsm.Handle(ctx, Event{Kind: EvDHCPConfigOK})
	require.Equal(t, StateConnected, h.fsm.State())

	// Roam to an FT-capable BSS in a different mobility domain: the
	// fast path must not trigger even though FTSupported is set.
	second := homeDescriptor(-40)
	second.FTSupported = true
	second.MobilityDomain = [2]byte{0x03, 0x04}

	require.NoError(t, h.arb.StartInternal(ctx, scan.KindConnect))
	require.NoError(t, h.fsm.StartConnect(ctx, "home"))
	h.fsm.Handle(ctx, Event{Kind: EvScanResult, Descriptors: []wcmtypes.BSSDescriptor{second}})
	h.fsm.Handle(ctx, Event{Kind: EvAssocOK})

	assert.Equal(t, StateReqAddr, h.fsm.State(), "mismatched mobility domain must run full address acquisition")
}

func TestSelectionPicksHighestRSSI(t *testing.T) {
	p := &profile.Profile{SSID: []byte("Home"), SSIDSpecific: true, Security: profile.SecurityDescriptor{Type: wcmtypes.SecurityWPA2}}
	weak := homeDescriptor(-70)
	strong := homeDescriptor(-40)
	res := selectFromResults(p, []wcmtypes.BSSDescriptor{weak, strong}, nil)
	require.NotNil(t, res.best)
	assert.Equal(t, int8(-40), res.best.RSSI)
}

func TestSelectionCollectsHiddenChannelsOnlyWhenNoMatch(t *testing.T) {
	p := &profile.Profile{SSID: []byte("Home"), SSIDSpecific: true, Security: profile.SecurityDescriptor{Type: wcmtypes.SecurityWPA2}}
	hidden := wcmtypes.BSSDescriptor{Channel: 11, SecurityMask: wcmtypes.SecurityMask{WPA2: true}}
	res := selectFromResults(p, []wcmtypes.BSSDescriptor{hidden}, nil)
	assert.Nil(t, res.best)
	assert.Equal(t, []int{11}, res.hiddenChannels)

	matched := homeDescriptor(-50)
	res = selectFromResults(p, []wcmtypes.BSSDescriptor{hidden, matched}, nil)
	assert.NotNil(t, res.best)
	assert.Empty(t, res.hiddenChannels, "hidden channels dropped once something matched")
}

func TestWPA3SAERequiresPMFToMatch(t *testing.T) {
	p := &profile.Profile{
		SSID:         []byte("Secure"),
		SSIDSpecific: true,
		Security:     profile.SecurityDescriptor{Type: wcmtypes.SecurityWPA3SAE, PMFCapable: false, PMFRequired: false},
	}
	d := wcmtypes.BSSDescriptor{SSID: []byte("Secure"), SecurityMask: wcmtypes.SecurityMask{SAE: true}}
	res := selectFromResults(p, []wcmtypes.BSSDescriptor{d}, nil)
	assert.Nil(t, res.best, "SAE without PMF capable+required must not match")

	p.Security.PMFCapable = true
	p.Security.PMFRequired = true
	res = selectFromResults(p, []wcmtypes.BSSDescriptor{d}, nil)
	assert.NotNil(t, res.best)
}

func TestSecuredProfileRejectsOpenBSS(t *testing.T) {
	p := &profile.Profile{
		SSID:         []byte("Home"),
		SSIDSpecific: true,
		Security:     profile.SecurityDescriptor{Type: wcmtypes.SecurityWildcard, PSK: "abcdefgh"},
	}
	open := wcmtypes.BSSDescriptor{SSID: []byte("Home"), SecurityMask: wcmtypes.SecurityMask{Open: true}}
	res := selectFromResults(p, []wcmtypes.BSSDescriptor{open}, nil)
	assert.Nil(t, res.best)
}
