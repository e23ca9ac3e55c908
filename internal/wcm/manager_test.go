package wcm

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/driver/sim"
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/sta"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

func newTestManager(t *testing.T) (*Manager, *sim.Backend) {
	t.Helper()
	drv := sim.New()
	m, err := New(Config{
		Interface:        "wlan0",
		MaxKnownNetworks: 8,
		RescanLimit:      5,
		ReconnectLimit:   5,
		AssocPauseOnMIC:  60 * time.Second,
		SleepConfirmTick: time.Millisecond,
		DatabasePath:     ":memory:",
		HistoryCapacity:  50,
		Supplicant:       "none",
	}, drv, drv, zerolog.Nop())
	require.NoError(t, err)
	return m, drv
}

func waitForState(t *testing.T, m *Manager, want sta.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.GetConnectionState(context.Background()) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %v, got %v", want, m.GetConnectionState(context.Background()))
}

func TestConnectLifecycle(t *testing.T) {
	m, drv := newTestManager(t)
	ctx := context.Background()

	var events []wcmtypes.CallbackEvent
	require.NoError(t, m.Start(ctx, func(ev wcmtypes.CallbackEvent) { events = append(events, ev) }))
	t.Cleanup(func() { m.Stop(ctx) })

	_, err := m.AddNetwork(ctx, profile.Profile{
		Name:     "home",
		Role:     wcmtypes.RoleSTA,
		SSID:     []byte("Home"),
		Security: profile.SecurityDescriptor{Type: wcmtypes.SecurityWPA2, PSK: "abcdefgh", PMK: make([]byte, 32)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.GetNetworkCount())

	require.NoError(t, m.Connect(ctx, "home"))

	drv.Emit(driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{{
		BSSID: [6]byte{1, 2, 3, 4, 5, 6}, SSID: []byte("Home"), Channel: 6, RSSI: -40,
		Security: wcmtypes.SecurityWPA2, SecurityMask: wcmtypes.SecurityMask{WPA2: true},
	}}})
	drv.Emit(driver.Event{Kind: driver.EventAssociation})
	drv.Emit(driver.Event{Kind: driver.EventNetSTAAddrConfig})
	drv.Emit(driver.Event{Kind: driver.EventNetDHCPConfig, IPAddress: [4]byte{192, 168, 1, 7}})

	waitForState(t, m, sta.StateConnected)

	p, ok := m.GetCurrentNetwork(ctx)
	require.True(t, ok)
	assert.Equal(t, "home", p.Name)
	assert.Equal(t, [4]byte{192, 168, 1, 7}, m.GetAddress(ctx))
}

func TestScanCapturesResultsForGetScanResult(t *testing.T) {
	m, drv := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx, nil))
	t.Cleanup(func() { m.Stop(ctx) })

	done := make(chan int, 1)
	require.NoError(t, m.Scan(ctx, func(count int) { done <- count }))

	drv.Emit(driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{
		{SSID: []byte("A")}, {SSID: []byte("B")},
	}})

	select {
	case n := <-done:
		assert.Equal(t, 2, n)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scan callback")
	}

	assert.Eventually(t, func() bool { return m.GetScanResultCount() == 2 }, time.Second, time.Millisecond)
	d, ok := m.GetScanResult(0)
	require.True(t, ok)
	assert.Equal(t, []byte("A"), d.SSID)
}
