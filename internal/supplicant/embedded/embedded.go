// Package embedded implements supplicant.Supplicant with no external
// supplicant process: PSK/PMK derivation happens in-process, and
// authentication success is left to the firmware's own AUTH event.
package embedded

import (
	"context"
	"crypto/sha1"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/nxp-wmsdk/wlcmgr/internal/supplicant"
)

const (
	pmkIterations = 4096
	pmkLength     = 32
)

// DerivePMK computes the WPA/WPA2 PMK from an ASCII passphrase and SSID,
// the same PBKDF2-HMAC-SHA1 construction mdlayher/wifi uses internally
// for ConnectWPAPSK.
func DerivePMK(passphrase string, ssid []byte) [32]byte {
	key := pbkdf2.Key([]byte(passphrase), ssid, pmkIterations, pmkLength, sha1.New)
	var pmk [32]byte
	copy(pmk[:], key)
	return pmk
}

// Backend is the in-process, no-external-process supplicant.
type Backend struct {
	mu sync.Mutex

	pmks     map[string][32]byte
	sae      map[string]string
	wepKeys  map[int][]byte
}

// New creates an embedded supplicant backend.
func New() *Backend {
	return &Backend{
		pmks:    make(map[string][32]byte),
		sae:     make(map[string]string),
		wepKeys: make(map[int][]byte),
	}
}

func (b *Backend) AddPSK(_ context.Context, ssid []byte, pmk [32]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pmks[string(ssid)] = pmk
	return nil
}

func (b *Backend) AddSAEPassword(_ context.Context, ssid []byte, password string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sae[string(ssid)] = password
	return nil
}

func (b *Backend) AddWEPKey(_ context.Context, index int, key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wepKeys[index] = key
	return nil
}

func (b *Backend) Connect(_ context.Context, _ [6]byte) error    { return nil }
func (b *Backend) Disconnect(_ context.Context) error             { return nil }
func (b *Backend) Authoritative() bool                            { return false }

var _ supplicant.Supplicant = (*Backend)(nil)
