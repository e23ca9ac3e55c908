// Package wcmtypes holds the data types shared across the WCM core packages:
// profile, scan, sta, uap, powersave, driver and supplicant. Keeping them in
// one leaf package avoids import cycles between those components.
package wcmtypes

import "fmt"

// Role distinguishes a profile's intended session type.
type Role int

const (
	RoleSTA Role = iota
	RoleUAP
)

func (r Role) String() string {
	if r == RoleUAP {
		return "uap"
	}
	return "sta"
}

// SecurityType enumerates the security descriptor's authentication mode.
// Ordering below doubles as the strongest-advertised precedence used to
// resolve a profile's security type when it is Wildcard.
type SecurityType int

const (
	SecurityWildcard SecurityType = iota
	SecurityNone
	SecurityWEPOpen
	SecurityWEPShared
	SecurityWPA
	SecurityWPA2
	SecurityWPA2SHA256
	SecurityWPAWPA2Mixed
	SecurityWPA3SAE
	SecurityWPA2WPA3Mixed
	SecurityOWE
)

func (s SecurityType) String() string {
	switch s {
	case SecurityWildcard:
		return "wildcard"
	case SecurityNone:
		return "none"
	case SecurityWEPOpen:
		return "wep-open"
	case SecurityWEPShared:
		return "wep-shared"
	case SecurityWPA:
		return "wpa"
	case SecurityWPA2:
		return "wpa2"
	case SecurityWPA2SHA256:
		return "wpa2-sha256"
	case SecurityWPAWPA2Mixed:
		return "wpa-wpa2-mixed"
	case SecurityWPA3SAE:
		return "wpa3-sae"
	case SecurityWPA2WPA3Mixed:
		return "wpa2-wpa3-mixed"
	case SecurityOWE:
		return "owe"
	default:
		return fmt.Sprintf("security(%d)", int(s))
	}
}

// RequiresPMF reports whether this security type mandates PMF: for any
// PMF-mandatory mode (WPA3-SAE, OWE, WPA2-SHA256) pmf_capable must be
// true; for WPA3-SAE and OWE pmf_required must also be true.
func (s SecurityType) RequiresPMF() bool {
	switch s {
	case SecurityWPA3SAE, SecurityOWE, SecurityWPA2SHA256, SecurityWPA2WPA3Mixed:
		return true
	default:
		return false
	}
}

// RequiresPMFRequired reports whether pmf_required must also be set.
func (s SecurityType) RequiresPMFRequired() bool {
	switch s {
	case SecurityWPA3SAE, SecurityOWE:
		return true
	default:
		return false
	}
}

// securityStrength orders security types from weakest to strongest for
// wildcard resolution: WPA2/WPA3-mixed > WPA3-SAE > WPA2 > WPA-mixed >
// WEP > none.
var securityStrength = map[SecurityType]int{
	SecurityNone:          0,
	SecurityWEPOpen:       1,
	SecurityWEPShared:     1,
	SecurityWPAWPA2Mixed:  2,
	SecurityWPA2:          3,
	SecurityWPA2SHA256:    3,
	SecurityWPA3SAE:       4,
	SecurityWPA2WPA3Mixed: 5,
	SecurityOWE:           3,
	SecurityWPA:           2,
}

// Strongest returns the strongest of a and b by the precedence above.
func Strongest(a, b SecurityType) SecurityType {
	if securityStrength[b] > securityStrength[a] {
		return b
	}
	return a
}

// CipherSuite is a bitmask of advertised/required pairwise ciphers.
type CipherSuite uint16

const (
	CipherNone        CipherSuite = 1 << iota
	CipherWEP40
	CipherWEP104
	CipherTKIP
	CipherCCMP
	CipherAESCMAC
	CipherGCMP
	CipherSMS4
	CipherGCMP256
	CipherCCMP256
)

// WakeupCondition is a bitmask of host-sleep wakeup triggers.
type WakeupCondition uint8

const (
	WakeOnUnicast WakeupCondition = 1 << iota
	WakeOnBroadcast
	WakeOnMulticast
	WakeOnARPBroadcast
	WakeOnMACEvent
	WakeOnMgmtFrame
)

// PSMode identifies which power-save sub-machine an event or callback
// concerns.
type PSMode int

const (
	PSModeIEEE PSMode = iota
	PSModeDeepSleep
)

func (m PSMode) String() string {
	if m == PSModeDeepSleep {
		return "deep-sleep"
	}
	return "ieee"
}

// AddressFamily distinguishes IPv4/IPv6 address-acquisition substates.
type AddressFamily int

const (
	FamilyIPv4 AddressFamily = iota
	FamilyIPv6
)

// BSSDescriptor is one scanned basic service set record.
type BSSDescriptor struct {
	BSSID   [6]byte
	SSID    []byte
	Channel int
	RSSI    int8 // signed dBm-like strength; numerically greater is stronger

	Security      SecurityType
	SecurityMask  SecurityMask // advertised capabilities, finer than Security
	Ciphers       CipherSuite
	PMFCapable    bool
	PMFRequired   bool

	HT11n  bool // 802.11n
	VHT11ac bool // 802.11ac
	HE11ax  bool // 802.11ax

	MobilityDomain   [2]byte // 802.11r FT mobility domain, zero if absent
	FTSupported      bool
	BeaconPeriod     int
	DTIMPeriod       int
	RRM11k           bool
	WNM11v           bool
	OWETransitionSSID []byte // empty if none advertised
}

// SecurityMask records which security suites the BSS advertises
// independent of the profile's chosen type, used by the security
// compatibility table.
type SecurityMask struct {
	Open     bool
	WEP      bool
	WPA      bool
	WPA2     bool
	WPA2SHA256 bool
	SAE      bool
	OWE      bool
	TKIPOnly bool // WPA advertises TKIP only, no CCMP
}

// EventReason enumerates the callback reasons raised across STA, uAP, and
// power-save transitions.
type EventReason int

const (
	ReasonSuccess EventReason = iota
	ReasonAuthSuccess
	ReasonConnectFailed
	ReasonNetworkNotFound
	ReasonNetworkAuthFailed
	ReasonAddressSuccess
	ReasonAddressFailed
	ReasonLinkLost
	ReasonChanSwitch
	ReasonUserDisconnect
	ReasonPsEnter
	ReasonPsExit
	ReasonUapSuccess
	ReasonUapClientAssoc
	ReasonUapClientConn
	ReasonUapClientDisassoc
	ReasonUapStartFailed
	ReasonUapStopFailed
	ReasonUapStopped
	ReasonRssiLow
	ReasonBgScanNetworkNotFound
	ReasonInitialized
	ReasonInitializationFailed
)

func (r EventReason) String() string {
	names := [...]string{
		"Success", "AuthSuccess", "ConnectFailed", "NetworkNotFound",
		"NetworkAuthFailed", "AddressSuccess", "AddressFailed", "LinkLost",
		"ChanSwitch", "UserDisconnect", "PsEnter", "PsExit", "UapSuccess",
		"UapClientAssoc", "UapClientConn", "UapClientDisassoc",
		"UapStartFailed", "UapStopFailed", "UapStopped", "RssiLow",
		"BgScanNetworkNotFound", "Initialized", "InitializationFailed",
	}
	if int(r) < 0 || int(r) >= len(names) {
		return fmt.Sprintf("reason(%d)", int(r))
	}
	return names[r]
}

// CallbackEvent is the by-value payload delivered to the user callback.
// At most one of MAC/PSMode is meaningful, depending on Reason.
type CallbackEvent struct {
	Reason EventReason
	MAC    [6]byte // valid for UapClient* reasons
	PSMode PSMode  // valid for PsEnter/PsExit
}
