// Package none is the null-object supplicant.Supplicant used for open and
// WEP profiles, where the WCM core loads the WEP key directly and the
// firmware's own AUTH event is always authoritative.
package none

import (
	"context"

	"github.com/nxp-wmsdk/wlcmgr/internal/supplicant"
)

// Backend is a no-op supplicant: every credential call succeeds trivially
// and Authoritative always reports false.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (Backend) AddPSK(context.Context, []byte, [32]byte) error     { return nil }
func (Backend) AddSAEPassword(context.Context, []byte, string) error { return nil }
func (Backend) AddWEPKey(context.Context, int, []byte) error       { return nil }
func (Backend) Connect(context.Context, [6]byte) error             { return nil }
func (Backend) Disconnect(context.Context) error                   { return nil }
func (Backend) Authoritative() bool                                { return false }

var _ supplicant.Supplicant = (*Backend)(nil)
