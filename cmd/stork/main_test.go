package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Setenv("STORK_HOME", t.TempDir())
	t.Setenv("STORK_LOG_LEVEL", "error")

	t.Run("key command succeeds", func(t *testing.T) {
		require.NoError(t, run(context.Background(), []string{"cache", "key", "realtime", "600519"}))
	})

	t.Run("unknown command fails", func(t *testing.T) {
		assert.Error(t, run(context.Background(), []string{"no-such-command"}))
	})

	t.Run("version flag", func(t *testing.T) {
		require.NoError(t, run(context.Background(), []string{"--version"}))
	})
}
