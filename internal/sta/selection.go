package sta

import (
	"bytes"

	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// matchOutcome is what applying the match predicate to one descriptor
// produced.
type matchOutcome struct {
	descriptor wcmtypes.BSSDescriptor
	matched    bool
	hiddenChan int // valid when the descriptor is a hidden-SSID candidate
	hidden     bool
}

// matchDescriptor applies the channel/BSSID/SSID/security/credential/
// allowed-channel filters in order to one scanned descriptor against p.
func matchDescriptor(p *profile.Profile, d wcmtypes.BSSDescriptor, allowedChannels []int) matchOutcome {
	if p.ChannelSpecific && d.Channel != p.Channel {
		return matchOutcome{descriptor: d}
	}
	if p.BSSIDSpecific && d.BSSID != p.BSSID {
		return matchOutcome{descriptor: d}
	}
	if p.SSIDSpecific {
		if len(d.SSID) == 0 {
			return matchOutcome{descriptor: d, hidden: true, hiddenChan: d.Channel}
		}
		if !ssidEqualLongest(p.SSID, d.SSID) {
			return matchOutcome{descriptor: d}
		}
	}
	if !securityCompatible(p.Security, d) {
		return matchOutcome{descriptor: d}
	}
	if hasCredential(p.Security) && d.Security == wcmtypes.SecurityNone {
		return matchOutcome{descriptor: d}
	}
	if len(allowedChannels) > 0 && !channelAllowed(allowedChannels, d.Channel) {
		return matchOutcome{descriptor: d}
	}
	// Optional 11k/11v/MBO filters have no
	// corresponding per-profile knob in this port; nothing to enforce.
	return matchOutcome{descriptor: d, matched: true}
}

// ssidEqualLongest compares a and b byte-for-byte, zero-padded out to the
// longer of the two lengths.
func ssidEqualLongest(a, b []byte) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	pa := make([]byte, n)
	pb := make([]byte, n)
	copy(pa, a)
	copy(pb, b)
	return bytes.Equal(pa, pb)
}

func hasCredential(sec profile.SecurityDescriptor) bool {
	return sec.PSK != "" || sec.Passphrase != "" || len(sec.PMK) != 0 || len(sec.WEPKey) != 0
}

func channelAllowed(allowed []int, ch int) bool {
	for _, c := range allowed {
		if c == ch {
			return true
		}
	}
	return false
}

// securityCompatible implements the profile-to-BSS security compatibility
// table.
func securityCompatible(sec profile.SecurityDescriptor, d wcmtypes.BSSDescriptor) bool {
	switch sec.Type {
	case wcmtypes.SecurityWildcard:
		// Wildcard accepts whatever the BSS advertises; a concrete type is
		// chosen afterward by applyMatch.
		return d.SecurityMask.Open || d.SecurityMask.WEP || d.SecurityMask.WPA ||
			d.SecurityMask.WPA2 || d.SecurityMask.WPA2SHA256 || d.SecurityMask.SAE ||
			d.SecurityMask.OWE
	case wcmtypes.SecurityNone:
		return d.SecurityMask.Open && !d.SecurityMask.WEP && !d.SecurityMask.WPA &&
			!d.SecurityMask.WPA2 && !d.SecurityMask.WPA2SHA256 && !d.SecurityMask.SAE &&
			!d.SecurityMask.OWE
	case wcmtypes.SecurityWEPOpen, wcmtypes.SecurityWEPShared:
		return d.SecurityMask.WEP && !d.HT11n
	case wcmtypes.SecurityWPA:
		return d.SecurityMask.WPA && !d.SecurityMask.TKIPOnly
	case wcmtypes.SecurityWPA2, wcmtypes.SecurityWPA2SHA256:
		return d.SecurityMask.WPA2 || d.SecurityMask.WPA2SHA256
	case wcmtypes.SecurityWPAWPA2Mixed:
		return d.SecurityMask.WPA || d.SecurityMask.WPA2
	case wcmtypes.SecurityWPA3SAE:
		return d.SecurityMask.SAE && sec.PMFCapable && sec.PMFRequired
	case wcmtypes.SecurityWPA2WPA3Mixed:
		return (d.SecurityMask.SAE || d.SecurityMask.WPA2) && sec.PMFCapable && sec.PMFRequired
	case wcmtypes.SecurityOWE:
		return d.SecurityMask.OWE
	default:
		return false
	}
}

// strongestAdvertised picks the concrete security type wildcard profiles
// resolve to, by precedence WPA2/WPA3-mixed > WPA3-SAE > WPA2 >
// WPA-mixed > WEP > none.
func strongestAdvertised(d wcmtypes.BSSDescriptor) wcmtypes.SecurityType {
	best := wcmtypes.SecurityNone
	if d.SecurityMask.WEP {
		best = wcmtypes.Strongest(best, wcmtypes.SecurityWEPOpen)
	}
	if d.SecurityMask.WPA {
		best = wcmtypes.Strongest(best, wcmtypes.SecurityWPA)
	}
	if d.SecurityMask.OWE {
		best = wcmtypes.Strongest(best, wcmtypes.SecurityOWE)
	}
	if d.SecurityMask.WPA2 || d.SecurityMask.WPA2SHA256 {
		best = wcmtypes.Strongest(best, wcmtypes.SecurityWPA2)
	}
	if d.SecurityMask.SAE {
		if d.SecurityMask.WPA2 || d.SecurityMask.WPA2SHA256 {
			best = wcmtypes.Strongest(best, wcmtypes.SecurityWPA2WPA3Mixed)
		} else {
			best = wcmtypes.Strongest(best, wcmtypes.SecurityWPA3SAE)
		}
	}
	return best
}

// selectionResult is the outcome of running the whole scan-result list
// through matchDescriptor and picking the strongest candidate.
type selectionResult struct {
	best           *wcmtypes.BSSDescriptor
	hiddenChannels []int
}

// selectFromResults picks the matching descriptor with the highest RSSI,
// plus hidden-channel accumulation for SSID-specific profiles that found
// no matches.
func selectFromResults(p *profile.Profile, descriptors []wcmtypes.BSSDescriptor, allowedChannels []int) selectionResult {
	var res selectionResult
	seenHidden := make(map[int]bool)

	for _, d := range descriptors {
		outcome := matchDescriptor(p, d, allowedChannels)
		if outcome.hidden {
			if !seenHidden[outcome.hiddenChan] {
				seenHidden[outcome.hiddenChan] = true
				res.hiddenChannels = append(res.hiddenChannels, outcome.hiddenChan)
			}
			continue
		}
		if !outcome.matched {
			continue
		}
		if res.best == nil || d.RSSI > res.best.RSSI {
			dd := d
			res.best = &dd
		}
	}

	// Hidden channels are only consulted when the pass produced zero
	// matches; if something matched, any hidden channels collected in
	// the same pass are discarded.
	if res.best != nil {
		res.hiddenChannels = nil
	}
	return res
}

// applyMatch fills the non-specific fields of p from d and resolves a
// wildcard security type to the concrete strongest-advertised one. p must
// be the store's live profile pointer, not a copy-out.
func applyMatch(p *profile.Profile, d wcmtypes.BSSDescriptor) {
	if !p.ChannelSpecific {
		p.Channel = d.Channel
	}
	if !p.BSSIDSpecific {
		p.BSSID = d.BSSID
	}
	if !p.SSIDSpecific {
		p.SSID = append([]byte(nil), d.SSID...)
	}

	p.Discovered = profile.DiscoveredParams{
		PMFRequired:       d.PMFRequired,
		Ciphers:           d.Ciphers,
		HT11n:             d.HT11n,
		VHT11ac:           d.VHT11ac,
		HE11ax:            d.HE11ax,
		MobilityDomain:    d.MobilityDomain,
		FTSupported:       d.FTSupported,
		BeaconPeriod:      d.BeaconPeriod,
		DTIMPeriod:        d.DTIMPeriod,
		RRM11k:            d.RRM11k,
		WNM11v:            d.WNM11v,
		OWETransitionSSID: append([]byte(nil), d.OWETransitionSSID...),
	}

	if p.Security.Type == wcmtypes.SecurityWildcard {
		p.Security.Type = strongestAdvertised(d)
	}
}
