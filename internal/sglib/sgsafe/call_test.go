// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package sgsafe_test

import (
	"testing"

	"github.com/stoneguard/waf/internal/sglib/sgsafe"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestCall(t *testing.T) {
	t.Run("without error", func(t *testing.T) {
		err := sgsafe.Call(func() error {
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("with a regular error", func(t *testing.T) {
		err := sgsafe.Call(func() error {
			return xerrors.New("oops")
		})
		require.Error(t, err)
		require.Equal(t, "oops", err.Error())
	})

	t.Run("with a panic string error", func(t *testing.T) {
		err := sgsafe.Call(func() error {
			panic("oops")
		})
		require.Error(t, err)
		var panicErr *sgsafe.PanicError
		require.True(t, xerrors.As(err, &panicErr))
		require.Equal(t, "oops", panicErr.Err.Error())
	})

	t.Run("with a panic error", func(t *testing.T) {
		origErr := xerrors.New("oops")
		err := sgsafe.Call(func() error {
			panic(origErr)
		})
		require.Error(t, err)
		var panicErr *sgsafe.PanicError
		require.True(t, xerrors.As(err, &panicErr))
	})

	t.Run("with another panic argument type", func(t *testing.T) {
		err := sgsafe.Call(func() error {
			panic(33.7)
		})
		require.Error(t, err)
		var panicErr *sgsafe.PanicError
		require.True(t, xerrors.As(err, &panicErr))
		require.Equal(t, "33.7", panicErr.Err.Error())
	})
}
