package errors

import (
	"context"
	"errors"
	"testing"

	e "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	tcs := []struct {
		err  error
		kind string
	}{
		{nil, "none"},
		{Configurationf("no"), "configuration"},
		{&SearchExhaustionError{Round: 4, Mask: "{0,2}", Bound: 0.001}, "search-exhaustion"},
		{&InsufficientSignalError{Round: 3, Filtered: 2, Minimum: 32}, "insufficient-signal"},
		{&KeyNotRecoverableError{Subkey: 2, Trials: 64, Candidates: 4}, "key-not-recoverable"},
		{context.Canceled, "canceled"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("boom"), "unknown"},
	}

	for _, tc := range tcs {
		t.Run(tc.kind, func(t *testing.T) {
			require.Equal(t, tc.kind, Kind(tc.err))
			if tc.err == nil {
				return
			}

			wrapped := e.Wrap(tc.err, "while testing")
			require.Equal(t, tc.kind, Kind(wrapped))

			attackErr := &AttackError{Round: 3, Subkey: 4, Mask: "{1,3}", Err: wrapped}
			require.Equal(t, tc.kind, Kind(attackErr))
			require.Contains(t, attackErr.Error(), "round 3 (subkey 4, s-boxes {1,3})")
			require.Contains(t, attackErr.Error(), tc.kind)
		})
	}
}

func TestIsHelpers(t *testing.T) {
	err := &AttackError{Round: 2, Subkey: 3, Err: Configurationf("mask %s is empty", "{}")}
	require.True(t, IsConfigurationError(err))
	require.False(t, IsSearchExhaustionError(err))
	require.False(t, IsInsufficientSignalError(err))
	require.False(t, IsKeyNotRecoverableError(err))
	require.Equal(t, "bad configuration: mask {} is empty", e.Cause(err).Error())
}
