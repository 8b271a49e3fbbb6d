// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package counter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIncr(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, int64(1), s.Incr("key", time.Minute))
	require.Equal(t, int64(2), s.Incr("key", time.Minute))
	require.Equal(t, int64(3), s.Incr("key", time.Minute))

	require.Equal(t, int64(1), s.Incr("other", time.Minute))
}

func TestPeek(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, int64(0), s.Peek("key"))
	s.Incr("key", time.Minute)
	s.Incr("key", time.Minute)
	require.Equal(t, int64(2), s.Peek("key"))
	// Peeking does not count.
	require.Equal(t, int64(2), s.Peek("key"))
}

func TestReset(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)
	defer s.Close()

	s.Incr("key", time.Minute)
	s.Reset("key")
	require.Equal(t, int64(0), s.Peek("key"))
	require.Equal(t, int64(1), s.Incr("key", time.Minute))
}

func TestExpiry(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)
	defer s.Close()

	s.Incr("key", 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return s.Peek("key") == 0
	}, time.Second, 10*time.Millisecond)
}
