package driver

import (
	"context"

	"github.com/nxp-wmsdk/wlcmgr/internal/circuitbreaker"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// Guarded wraps a Driver with a circuit breaker so a wedged firmware link
// (repeated command timeouts) trips open and fails fast instead of
// blocking the single dispatcher goroutine indefinitely. WCM issues at
// most one outstanding command at a time and assumes the driver
// eventually answers; this is the guard for when it stops.
type Guarded struct {
	inner Driver
	cb    *circuitbreaker.CircuitBreaker
}

// NewGuarded wraps inner with a circuit breaker using cfg (zero value picks
// circuitbreaker.DefaultConfig: 5 consecutive failures, 30s open, 2
// successes to close).
func NewGuarded(inner Driver, cfg circuitbreaker.Config) *Guarded {
	return &Guarded{inner: inner, cb: circuitbreaker.New("wcm-driver", cfg)}
}

func (g *Guarded) run(op string, fn func() error) error {
	err := g.cb.Execute(fn)
	if err == circuitbreaker.ErrCircuitOpen {
		return wcmerrors.New(op, wcmerrors.KindFail, err)
	}
	return err
}

func (g *Guarded) Scan(ctx context.Context, p ScanParams) error {
	return g.run("driver.scan", func() error { return g.inner.Scan(ctx, p) })
}

func (g *Guarded) Associate(ctx context.Context, p AssociateParams) error {
	return g.run("driver.associate", func() error { return g.inner.Associate(ctx, p) })
}

func (g *Guarded) Deauthenticate(ctx context.Context, bssid [6]byte) error {
	return g.run("driver.deauthenticate", func() error { return g.inner.Deauthenticate(ctx, bssid) })
}

func (g *Guarded) Disassociate(ctx context.Context, bssid [6]byte) error {
	return g.run("driver.disassociate", func() error { return g.inner.Disassociate(ctx, bssid) })
}

func (g *Guarded) ConfigureSTAAddrStatic(ctx context.Context, addr, gw, netmask, dns1, dns2 [4]byte) error {
	return g.run("driver.configure_sta_addr_static", func() error {
		return g.inner.ConfigureSTAAddrStatic(ctx, addr, gw, netmask, dns1, dns2)
	})
}

func (g *Guarded) ConfigureSTAAddrDHCP(ctx context.Context) error {
	return g.run("driver.configure_sta_addr_dhcp", func() error { return g.inner.ConfigureSTAAddrDHCP(ctx) })
}

func (g *Guarded) UapStart(ctx context.Context, p UapStartParams) error {
	return g.run("driver.uap_start", func() error { return g.inner.UapStart(ctx, p) })
}

func (g *Guarded) UapStop(ctx context.Context) error {
	return g.run("driver.uap_stop", func() error { return g.inner.UapStop(ctx) })
}

func (g *Guarded) AllowedChannels(ctx context.Context) ([]int, error) {
	var out []int
	err := g.run("driver.allowed_channels", func() error {
		var innerErr error
		out, innerErr = g.inner.AllowedChannels(ctx)
		return innerErr
	})
	return out, err
}

func (g *Guarded) EnterIEEEPS(ctx context.Context) error {
	return g.run("driver.enter_ieeeps", func() error { return g.inner.EnterIEEEPS(ctx) })
}

func (g *Guarded) ExitIEEEPS(ctx context.Context) error {
	return g.run("driver.exit_ieeeps", func() error { return g.inner.ExitIEEEPS(ctx) })
}

func (g *Guarded) EnterDeepSleepPS(ctx context.Context) error {
	return g.run("driver.enter_deepsleepps", func() error { return g.inner.EnterDeepSleepPS(ctx) })
}

func (g *Guarded) ExitDeepSleepPS(ctx context.Context) error {
	return g.run("driver.exit_deepsleepps", func() error { return g.inner.ExitDeepSleepPS(ctx) })
}

func (g *Guarded) SendHostSleepConfig(ctx context.Context, p HostSleepParams) error {
	return g.run("driver.send_host_sleep_config", func() error { return g.inner.SendHostSleepConfig(ctx, p) })
}

func (g *Guarded) SendSleepConfirm(ctx context.Context, role wcmtypes.Role) error {
	return g.run("driver.send_sleep_confirm", func() error { return g.inner.SendSleepConfirm(ctx, role) })
}

func (g *Guarded) HasOutstandingTransfer() bool { return g.inner.HasOutstandingTransfer() }

func (g *Guarded) GetDTIMPeriod(ctx context.Context, bssid [6]byte) (int, error) {
	var period int
	err := g.run("driver.get_dtim_period", func() error {
		var innerErr error
		period, innerErr = g.inner.GetDTIMPeriod(ctx, bssid)
		return innerErr
	})
	return period, err
}

var _ Driver = (*Guarded)(nil)
