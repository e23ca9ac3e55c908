package history

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

func TestRecordAndRecent(t *testing.T) {
	s, err := Open(":memory:", 3, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	s.Record(ctx, wcmtypes.CallbackEvent{Reason: wcmtypes.ReasonSuccess})
	s.Record(ctx, wcmtypes.CallbackEvent{Reason: wcmtypes.ReasonUapClientAssoc, MAC: [6]byte{1, 2, 3, 4, 5, 6}})
	s.Record(ctx, wcmtypes.CallbackEvent{Reason: wcmtypes.ReasonPsEnter, PSMode: wcmtypes.PSModeDeepSleep})

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, wcmtypes.ReasonPsEnter, entries[0].Reason)
	assert.Equal(t, "deep-sleep", entries[0].PSMode)
	assert.Equal(t, "01:02:03:04:05:06", entries[1].MAC)
}

func TestRetentionTrimsOldest(t *testing.T) {
	s, err := Open(":memory:", 2, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Record(ctx, wcmtypes.CallbackEvent{Reason: wcmtypes.ReasonLinkLost})
	}

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
