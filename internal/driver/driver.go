// Package driver models the opaque 802.11 MAC/PHY firmware driver as an
// external collaborator: the narrow command surface the WCM core issues
// into, and the event identifiers it emits back onto the dispatcher's
// event queue.
//
// WCM issues at most one outstanding command at a time; this
// package's Driver interface reflects that by making every method
// synchronous from the caller's perspective (it returns once the driver has
// accepted or rejected the command, not once the eventual firmware event
// arrives).
package driver

import (
	"context"

	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// AssociateParams carries the fields associate() needs:
// "associate(bssid, type, ciphers, owe_transition, ft_flag)".
type AssociateParams struct {
	BSSID          [6]byte
	Security       wcmtypes.SecurityType
	Ciphers        wcmtypes.CipherSuite
	OWETransition  bool
	FastTransition bool // 802.11r
}

// ScanParams carries directed-scan parameters, including the hidden-SSID
// follow-up probe.
type ScanParams struct {
	SSID     []byte
	BSSID    [6]byte
	Channels []int // empty = full scan
}

// UapStartParams carries the fields the uAP FSM needs from the profile at
// UapStart time.
type UapStartParams struct {
	SSID             []byte
	Channel          int // 0 = "any" / use AllowedChannels
	AutoChannel      bool
	InheritedChannel int   // valid when AutoChannel and a STA session is CONNECTED
	AllowedChannels  []int // queried from the driver when AutoChannel and no STA session is CONNECTED
	Security         wcmtypes.SecurityType
	PSK              string
	Address          [4]byte
	Netmask          [4]byte
}

// HostSleepParams is the translated wakeup-condition bitmask plus the
// interface and IP address the host-sleep config is bound to.
type HostSleepParams struct {
	Wakeup    wcmtypes.WakeupCondition
	Role      wcmtypes.Role // which interface (STA or uAP) is configured
	IPAddress [4]byte
}

// Driver is the command surface WCM issues into the firmware driver. Every
// method may return a wcmerrors-Kind-Fail error if the driver rejects the
// command; the caller (an FSM transition function) is responsible for
// rolling back to a terminal state on failure.
type Driver interface {
	// Scan issues a scan and blocks until the driver has accepted it (the
	// eventual SCAN_RESULT arrives as an Event, not a return value).
	Scan(ctx context.Context, params ScanParams) error

	Associate(ctx context.Context, params AssociateParams) error
	Deauthenticate(ctx context.Context, bssid [6]byte) error
	Disassociate(ctx context.Context, bssid [6]byte) error

	// ConfigureSTAAddrStatic assigns a static IPv4 address. The uAP FSM
	// reuses the same call for its own AP-interface address (gateway equal
	// to address) rather than getting a second method, sharing one
	// address-config primitive across both session types.
	ConfigureSTAAddrStatic(ctx context.Context, addr, gw, netmask, dns1, dns2 [4]byte) error
	ConfigureSTAAddrDHCP(ctx context.Context) error

	UapStart(ctx context.Context, params UapStartParams) error
	UapStop(ctx context.Context) error
	AllowedChannels(ctx context.Context) ([]int, error)

	EnterIEEEPS(ctx context.Context) error
	ExitIEEEPS(ctx context.Context) error
	EnterDeepSleepPS(ctx context.Context) error
	ExitDeepSleepPS(ctx context.Context) error

	SendHostSleepConfig(ctx context.Context, params HostSleepParams) error
	SendSleepConfirm(ctx context.Context, role wcmtypes.Role) error

	// HasOutstandingTransfer reports whether the driver has a bus transfer
	// in flight, consulted by the sleep-confirm protocol's defer check.
	HasOutstandingTransfer() bool

	// GetDTIMPeriod blocks up to the caller's context deadline awaiting
	// scan completion, wlan_get_dtim_period blocking point.
	GetDTIMPeriod(ctx context.Context, bssid [6]byte) (int, error)
}

// Event is a by-value event payload delivered from the driver to the
// dispatcher's event queue. It is never a pointer the receiver must free.
type Event struct {
	Kind EventKind

	ScanResults []wcmtypes.BSSDescriptor
	Reason      AuthFailReason // valid for Kind == EventAuthenticationFailed
	MAC         [6]byte        // valid for uAP client events
	Channel     int            // valid for CHAN_SWITCH*
	PS          PSAction       // valid for Kind == EventIEEEPS/EventDeepSleep
	IPAddress   [4]byte        // valid for EventNetDHCPConfig/EventNetIPv6Config
}

// PSAction carries the IEEE_PS/DEEP_SLEEP driver sub-indication, e.g.
// IEEE_PS(SLEEP_CONFIRM) or IEEE_PS(DIS_AUTO_PS).
type PSAction int

const (
	PSActionEnableDone PSAction = iota
	PSActionSleep
	PSActionSleepConfirm
	PSActionAwake
	PSActionDisAutoPS
	PSActionDisableDone
)

// EventKind enumerates the driver-side event identifiers.
type EventKind int

const (
	EventScanStart EventKind = iota
	EventScanResult
	EventAssociation
	EventAssociationFailed
	EventAuthentication
	EventAuthenticationFailed
	EventPMK
	EventLinkLoss
	EventDisassociation
	EventDeauthentication
	EventNetSTAAddrConfig
	EventNetSTAAddrConfigFailed
	EventNetInterfaceConfig
	EventNetDHCPConfig
	EventNetIPv6Config
	EventChanSwitchAnn
	EventChanSwitch
	EventSleep
	EventAwake
	EventIEEEPS
	EventDeepSleep
	EventHSConfig
	EventHSActivated
	EventSleepConfirmDone
	EventSTAMACAddrConfig
	EventUAPMACAddrConfig
	EventUapStarted
	EventUapStartFailed
	EventUapStopped
	EventUapClientAssoc
	EventUapClientConn
	EventUapClientDeauth
	EventUapNetAddrConfig
	EventUapNetAddrConfigFailed
	EventRssiLow
	EventGetHWSpec
)

// AuthFailReason mirrors the driver's authentication failure reason codes;
// "reason code 15 (4-way timeout)" and "MIC_FAILURE" are the
// two the STA FSM inspects.
type AuthFailReason int

const (
	AuthFailNone AuthFailReason = iota
	AuthFailFourWayTimeout
	AuthFailMICFailure
	AuthFailOther
)
