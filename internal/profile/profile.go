// Package profile implements the network-profile store: an
// in-memory catalog of at most MAX_KNOWN_NETWORKS named STA/uAP profiles,
// validated at add-time and mutated only by the dispatcher thereafter.
package profile

import (
	"encoding/hex"

	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// SecurityDescriptor is the security portion of a profile.
type SecurityDescriptor struct {
	Type SecurityType

	PSK        string // raw ASCII [8,63] or 64 hex digits, WPA/WPA2/mixed
	Passphrase string // [8,255] chars, WPA3-SAE/mixed/OWE
	PMK        []byte // optional precomputed 32-byte PMK

	PMFCapable  bool
	PMFRequired bool

	Ciphers wcmtypes.CipherSuite

	// WEP-only fields.
	WEPKeyIndex int
	WEPKey      []byte
}

// SecurityType re-exports wcmtypes.SecurityType so callers of this package
// do not need a second import for the common case.
type SecurityType = wcmtypes.SecurityType

const (
	SecurityWildcard      = wcmtypes.SecurityWildcard
	SecurityNone          = wcmtypes.SecurityNone
	SecurityWEPOpen       = wcmtypes.SecurityWEPOpen
	SecurityWEPShared     = wcmtypes.SecurityWEPShared
	SecurityWPA           = wcmtypes.SecurityWPA
	SecurityWPA2          = wcmtypes.SecurityWPA2
	SecurityWPA2SHA256    = wcmtypes.SecurityWPA2SHA256
	SecurityWPAWPA2Mixed  = wcmtypes.SecurityWPAWPA2Mixed
	SecurityWPA3SAE       = wcmtypes.SecurityWPA3SAE
	SecurityWPA2WPA3Mixed = wcmtypes.SecurityWPA2WPA3Mixed
	SecurityOWE           = wcmtypes.SecurityOWE
)

// IPv4Addr is a raw 4-octet IPv4 address, modeled as a plain fixed-size
// value rather than a net.IP parsing target, since this package never
// needs string-parsing machinery for it.
type IPv4Addr [4]byte

// IPConfig is the profile's address configuration.
type IPConfig struct {
	Static bool

	Address IPv4Addr
	Gateway IPv4Addr
	Netmask IPv4Addr
	DNS1    IPv4Addr
	DNS2    IPv4Addr

	// LearnedAddress is populated by the dispatcher once DHCP/SLAAC
	// completes; cleared by CopyOut for non-static profiles.
	LearnedAddress IPv4Addr
}

// Profile is a named STA or uAP network.
type Profile struct {
	Name string
	Role wcmtypes.Role

	SSID    []byte // 0..32 octets
	BSSID   [6]byte
	Channel int // 0 = "any"

	Security SecurityDescriptor
	IP       IPConfig

	Capabilities uint32

	// Specificity bits, computed at add-time from whether the caller
	// supplied a non-empty value.
	SSIDSpecific    bool
	BSSIDSpecific   bool
	ChannelSpecific bool

	// Discovered fields, filled in by the STA FSM on successful scan match
	// for fields the profile
	// did not constrain.
	Discovered DiscoveredParams
}

// DiscoveredParams holds BSS parameters learned at association time.
type DiscoveredParams struct {
	PMFRequired     bool
	Ciphers         wcmtypes.CipherSuite
	HT11n           bool
	VHT11ac         bool
	HE11ax          bool
	MobilityDomain  [2]byte
	FTSupported     bool
	BeaconPeriod    int
	DTIMPeriod      int
	RRM11k          bool
	WNM11v          bool
	OWETransitionSSID []byte
}

// IsHexPSK reports whether psk is exactly 64 hexadecimal digits, the
// alternate raw-PSK form alongside the ASCII passphrase.
func IsHexPSK(psk string) bool {
	if len(psk) != 64 {
		return false
	}
	_, err := hex.DecodeString(psk)
	return err == nil
}
