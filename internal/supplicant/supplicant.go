// Package supplicant defines the capability interface a STA session
// authenticates through: an embedded in-process backend and a legacy
// no-supplicant backend, selected at construction time. The STA FSM
// depends only on this interface, never on a concrete backend.
package supplicant

import "context"

// Supplicant installs credentials and drives 802.1X/SAE/PSK authentication
// on behalf of the STA FSM. A supplicant that is in use becomes
// authoritative for auth success; otherwise the firmware's own AUTH event
// is definitive.
type Supplicant interface {
	// AddPSK installs a raw 32-byte PMK (already derived from a passphrase
	// or supplied directly) for the given SSID.
	AddPSK(ctx context.Context, ssid []byte, pmk [32]byte) error

	// AddSAEPassword installs a WPA3-SAE password for the given SSID.
	AddSAEPassword(ctx context.Context, ssid []byte, password string) error

	// AddWEPKey installs a WEP key at the given index.
	AddWEPKey(ctx context.Context, index int, key []byte) error

	// Connect authorizes the supplicant to begin its exchange against
	// bssid; a no-op for backends where the firmware handles auth itself.
	Connect(ctx context.Context, bssid [6]byte) error

	// Disconnect tears down any in-progress or completed exchange.
	Disconnect(ctx context.Context) error

	// Authoritative reports whether this backend's own success/failure
	// events (rather than the firmware's AUTH event) determine auth
	// outcome.
	Authoritative() bool
}
