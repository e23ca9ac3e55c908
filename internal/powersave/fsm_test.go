package powersave

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver/sim"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

type fakeSession struct {
	sta bool
	uap bool
	ip  [4]byte
}

func (f *fakeSession) STAConnected() bool        { return f.sta }
func (f *fakeSession) UAPActive() bool           { return f.uap }
func (f *fakeSession) CurrentIPAddress() [4]byte { return f.ip }

func newHarness(sta bool) (*Controller, *sim.Backend, *fakeSession, *[]wcmtypes.CallbackEvent) {
	drv := sim.New()
	sess := &fakeSession{sta: sta}
	events := &[]wcmtypes.CallbackEvent{}
	c := NewController(drv, sess, func(ev wcmtypes.CallbackEvent) {
		*events = append(*events, ev)
	}, zerolog.Nop())
	return c, drv, sess, events
}

func TestIEEEPSEnterSleepAndExit(t *testing.T) {
	ctx := context.Background()
	c, _, _, events := newHarness(true)

	require.NoError(t, c.IEEE.Enable(ctx))
	assert.Equal(t, StateInit, c.IEEE.State(), "state only advances on ENABLE_DONE")

	c.IEEE.Handle(ctx, Event{Kind: EvEnableDone})
	assert.Equal(t, StateConfiguring, c.IEEE.State())

	c.IEEE.Handle(ctx, Event{Kind: EvSleep})
	require.Equal(t, StatePreSleep, c.IEEE.State())
	assert.False(t, c.PendingSleepConfirm())
	assert.Equal(t, CMSleepCfm, c.CMPsState())

	c.IEEE.Handle(ctx, Event{Kind: EvSlpCfm})
	assert.Equal(t, StateSleep, c.IEEE.State())
	require.Len(t, *events, 1)
	assert.Equal(t, wcmtypes.ReasonPsEnter, (*events)[0].Reason)
	assert.Equal(t, wcmtypes.PSModeIEEE, (*events)[0].PSMode)

	// Driver-initiated exit (DIS_AUTO_PS) emits PsExit.
	c.IEEE.Handle(ctx, Event{Kind: EvAwake})
	assert.Equal(t, StateAwake, c.IEEE.State())
	require.Len(t, *events, 2)
	assert.Equal(t, wcmtypes.ReasonPsExit, (*events)[1].Reason)
}

func TestIEEEPSSecondEnableRejected(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newHarness(true)

	require.NoError(t, c.IEEE.Enable(ctx))
	err := c.IEEE.Enable(ctx)
	assert.Error(t, err, "second ieeeps_on is rejected")
}

func TestSleepConfirmDefersOnOutstandingTransfer(t *testing.T) {
	ctx := context.Background()
	c, drv, _, events := newHarness(true)
	drv.SetOutstandingTransfer(true)

	c.IEEE.Handle(ctx, Event{Kind: EvEnableDone})
	c.IEEE.Handle(ctx, Event{Kind: EvSleep})

	assert.Equal(t, StatePreSleep, c.IEEE.State())
	assert.True(t, c.PendingSleepConfirm())
	assert.Empty(t, *events)

	drv.SetOutstandingTransfer(false)
	c.RetryTick(ctx)
	assert.False(t, c.PendingSleepConfirm())
}

func TestRetryTickNoOpWhenSTADisconnected(t *testing.T) {
	ctx := context.Background()
	c, drv, _, _ := newHarness(false)
	drv.SetOutstandingTransfer(true)

	c.IEEE.Handle(ctx, Event{Kind: EvEnableDone})
	c.IEEE.Handle(ctx, Event{Kind: EvSleep})
	require.True(t, c.PendingSleepConfirm())

	drv.SetOutstandingTransfer(false)
	c.RetryTick(ctx)
	assert.True(t, c.PendingSleepConfirm(), "retry only fires while STA is CONNECTED")
}

func TestHostSleepUsesConfiguredWakeupMask(t *testing.T) {
	ctx := context.Background()
	c, drv, _, _ := newHarness(true)
	require.NoError(t, c.RequestHostSleep(ctx, wcmtypes.WakeOnUnicast|wcmtypes.WakeOnMACEvent))

	c.IEEE.Handle(ctx, Event{Kind: EvEnableDone})
	c.IEEE.Handle(ctx, Event{Kind: EvSleep})

	require.Len(t, drv.HostSleeps, 1)
	assert.Equal(t, wcmtypes.WakeOnUnicast|wcmtypes.WakeOnMACEvent, drv.HostSleeps[0].Wakeup)
	assert.Equal(t, wcmtypes.RoleSTA, drv.HostSleeps[0].Role)
}

func TestDisableFromSleepWhileConnectedGoesThroughPreDisable(t *testing.T) {
	ctx := context.Background()
	c, _, _, events := newHarness(true)

	c.IEEE.Handle(ctx, Event{Kind: EvEnableDone})
	c.IEEE.Handle(ctx, Event{Kind: EvSleep})
	c.IEEE.Handle(ctx, Event{Kind: EvSlpCfm})
	require.Equal(t, StateSleep, c.IEEE.State())

	require.NoError(t, c.IEEE.Disable(ctx))
	assert.Equal(t, StateDisabling, c.IEEE.State(), "PRE_DISABLE chains straight to DISABLING via the ENTER re-entry")

	c.IEEE.Handle(ctx, Event{Kind: EvDisableDone})
	assert.Equal(t, StateInit, c.IEEE.State())

	reasons := make([]wcmtypes.EventReason, len(*events))
	for i, e := range *events {
		reasons[i] = e.Reason
	}
	assert.Equal(t, []wcmtypes.EventReason{wcmtypes.ReasonPsEnter, wcmtypes.ReasonPsExit}, reasons)
}

func TestDisableFromAwakeSkipsExitPSHandshake(t *testing.T) {
	ctx := context.Background()
	c, _, _, events := newHarness(true)

	c.IEEE.Handle(ctx, Event{Kind: EvEnableDone})
	c.IEEE.Handle(ctx, Event{Kind: EvAwake})
	require.Equal(t, StateAwake, c.IEEE.State())

	require.NoError(t, c.IEEE.Disable(ctx))
	assert.Equal(t, StateInit, c.IEEE.State())
	assert.Empty(t, *events, "never slept, so no PsExit is owed")
}

func TestDeepSleepFirstPsExitSuppressed(t *testing.T) {
	ctx := context.Background()
	c, _, _, events := newHarness(true)

	c.DeepSleep.Handle(ctx, Event{Kind: EvEnableDone})
	c.DeepSleep.Handle(ctx, Event{Kind: EvSleep})
	c.DeepSleep.Handle(ctx, Event{Kind: EvSlpCfm})
	require.Len(t, *events, 1, "PsEnter is never suppressed")

	c.DeepSleep.Handle(ctx, Event{Kind: EvAwake})
	assert.Len(t, *events, 1, "first post-wake PsExit is suppressed (skip_ds_exit_cb)")

	// A second wake/sleep cycle before the first Initialized event is not
	// suppressed again.
	c.DeepSleep.Handle(ctx, Event{Kind: EvSleep})
	c.DeepSleep.Handle(ctx, Event{Kind: EvSlpCfm})
	c.DeepSleep.Handle(ctx, Event{Kind: EvAwake})
	require.Len(t, *events, 3)
	assert.Equal(t, wcmtypes.ReasonPsExit, (*events)[2].Reason)
}

func TestIEEEPSFirstPsExitNotSuppressed(t *testing.T) {
	ctx := context.Background()
	c, _, _, events := newHarness(true)

	c.IEEE.Handle(ctx, Event{Kind: EvEnableDone})
	c.IEEE.Handle(ctx, Event{Kind: EvSleep})
	c.IEEE.Handle(ctx, Event{Kind: EvSlpCfm})
	c.IEEE.Handle(ctx, Event{Kind: EvAwake})

	require.Len(t, *events, 2)
	assert.Equal(t, wcmtypes.ReasonPsExit, (*events)[1].Reason, "suppression is Deep-Sleep-only")
}
