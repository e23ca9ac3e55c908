package dispatcher

import (
	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/powersave"
	"github.com/nxp-wmsdk/wlcmgr/internal/sta"
	"github.com/nxp-wmsdk/wlcmgr/internal/uap"
)

// translateSTA maps a driver.Event onto the STA FSM's own event type.
// Events that belong to the uAP bss or to power-save are filtered out
// before this is called; ok is false for anything the STA FSM does not
// react to (e.g. GET_HW_SPEC).
func translateSTA(ev driver.Event) (sta.Event, bool) {
	switch ev.Kind {
	case driver.EventNetInterfaceConfig:
		return sta.Event{Kind: sta.EvNetIfConfigOK}, true
	case driver.EventAssociation:
		return sta.Event{Kind: sta.EvAssocOK}, true
	case driver.EventAssociationFailed:
		return sta.Event{Kind: sta.EvAssocFailed}, true
	case driver.EventAuthentication:
		return sta.Event{Kind: sta.EvAuthOK}, true
	case driver.EventAuthenticationFailed:
		return sta.Event{Kind: sta.EvAuthFailed, AuthFail: ev.Reason}, true
	case driver.EventNetSTAAddrConfig:
		return sta.Event{Kind: sta.EvAddrConfigOK}, true
	case driver.EventNetSTAAddrConfigFailed:
		return sta.Event{Kind: sta.EvAddrConfigFailed}, true
	case driver.EventNetDHCPConfig:
		return sta.Event{Kind: sta.EvDHCPConfigOK, DHCPAddress: ev.IPAddress}, true
	case driver.EventLinkLoss:
		return sta.Event{Kind: sta.EvLinkLoss}, true
	case driver.EventDeauthentication, driver.EventDisassociation:
		return sta.Event{Kind: sta.EvDeauth}, true
	case driver.EventChanSwitch:
		return sta.Event{Kind: sta.EvChanSwitch, Channel: ev.Channel}, true
	default:
		return sta.Event{}, false
	}
}

// translateUap maps a driver.Event onto the uAP FSM's own event type. ok is
// false for a uAP-routed kind the uAP FSM has no reaction to (e.g. the
// interface's own MAC-address-configuration confirmation).
func translateUap(ev driver.Event) (uap.Event, bool) {
	switch ev.Kind {
	case driver.EventUapStarted:
		return uap.Event{Kind: uap.EvUapStarted, MAC: ev.MAC}, true
	case driver.EventUapStartFailed:
		return uap.Event{Kind: uap.EvUapStartFailed}, true
	case driver.EventUapStopped:
		return uap.Event{Kind: uap.EvUapStopped}, true
	case driver.EventUapNetAddrConfig:
		return uap.Event{Kind: uap.EvNetAddrConfigOK}, true
	case driver.EventUapNetAddrConfigFailed:
		return uap.Event{Kind: uap.EvNetAddrConfigFailed}, true
	case driver.EventUapClientAssoc:
		return uap.Event{Kind: uap.EvClientAssoc, MAC: ev.MAC}, true
	case driver.EventUapClientConn:
		return uap.Event{Kind: uap.EvClientConn, MAC: ev.MAC}, true
	case driver.EventUapClientDeauth:
		return uap.Event{Kind: uap.EvClientDeauth, MAC: ev.MAC}, true
	default:
		return uap.Event{}, false
	}
}

// translatePS maps a driver.Event's IEEE_PS/DEEP_SLEEP sub-indication onto
// the power-save package's own event type (scenario 6:
// "IEEE_PS(SLEEP_CONFIRM)", "IEEE_PS(DIS_AUTO_PS)"). ok is false for any
// other event kind.
func translatePS(ev driver.Event) (powersave.Event, bool) {
	if ev.Kind != driver.EventIEEEPS && ev.Kind != driver.EventDeepSleep {
		return powersave.Event{}, false
	}
	switch ev.PS {
	case driver.PSActionEnableDone:
		return powersave.Event{Kind: powersave.EvEnableDone}, true
	case driver.PSActionSleep:
		return powersave.Event{Kind: powersave.EvSleep}, true
	case driver.PSActionSleepConfirm:
		return powersave.Event{Kind: powersave.EvSlpCfm}, true
	case driver.PSActionAwake, driver.PSActionDisAutoPS:
		return powersave.Event{Kind: powersave.EvAwake}, true
	case driver.PSActionDisableDone:
		return powersave.Event{Kind: powersave.EvDisableDone}, true
	default:
		return powersave.Event{}, false
	}
}
