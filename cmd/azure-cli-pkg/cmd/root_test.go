package cmd

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRootCommand_RejectsUnknownLogLevel ensures a bad --log-level value is a
// fatal input error rather than silently falling back to the default level.
func TestRootCommand_RejectsUnknownLogLevel(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"macos-arm64", "--log-level", "loud"})

	err := rootCmd.Execute()
	require.ErrorIs(t, err, errUnknownLogLevel)
	require.Contains(t, err.Error(), `"loud"`)
}
