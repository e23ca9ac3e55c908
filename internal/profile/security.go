package profile

import (
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

const (
	pskMinASCII    = 8
	pskMaxASCII    = 63
	pskHexLen      = 64
	passwordMin    = 8
	passwordMax    = 255
)

// ValidateSecurity enforces the security-descriptor invariants: PSK length
// bounds for WPA/WPA2/mixed, password length bounds for WPA3-SAE/mixed/OWE,
// and the PMF-mandatory capable/required bits.
func ValidateSecurity(sec SecurityDescriptor) error {
	switch sec.Type {
	case SecurityWPA, SecurityWPA2, SecurityWPA2SHA256, SecurityWPAWPA2Mixed:
		if !validPSK(sec.PSK) {
			return wcmerrors.New("profile.validate_security", wcmerrors.KindInvalid, nil)
		}
	case SecurityWPA3SAE, SecurityWPA2WPA3Mixed, SecurityOWE:
		if len(sec.Passphrase) < passwordMin || len(sec.Passphrase) > passwordMax {
			return wcmerrors.New("profile.validate_security", wcmerrors.KindInvalid, nil)
		}
	case SecurityWEPOpen, SecurityWEPShared:
		if len(sec.WEPKey) == 0 {
			return wcmerrors.New("profile.validate_security", wcmerrors.KindInvalid, nil)
		}
	case SecurityNone, SecurityWildcard:
		// no credential constraints
	}

	if sec.Type.RequiresPMF() && !sec.PMFCapable {
		return wcmerrors.New("profile.validate_security", wcmerrors.KindInvalid, nil)
	}
	if sec.Type.RequiresPMFRequired() && !sec.PMFRequired {
		return wcmerrors.New("profile.validate_security", wcmerrors.KindInvalid, nil)
	}
	return nil
}

// validPSK accepts an ASCII passphrase in [8,63] chars, or exactly 64 hex
// digits.
func validPSK(psk string) bool {
	if IsHexPSK(psk) {
		return true
	}
	return len(psk) >= pskMinASCII && len(psk) <= pskMaxASCII
}

// ValidateIP enforces the uAP gateway-equals-address invariant: a profile
// whose role is uAP must satisfy ip.gateway == ip.address.
func ValidateIP(role wcmtypes.Role, ip IPConfig) error {
	if role == wcmtypes.RoleUAP && ip.Static && ip.Gateway != ip.Address {
		return wcmerrors.New("profile.validate_ip", wcmerrors.KindInvalid, nil)
	}
	return nil
}
