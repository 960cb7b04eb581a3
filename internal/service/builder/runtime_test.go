package builder

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
	"github.com/stretchr/testify/require"
)

// callIndex returns the position of the first invocation whose arguments
// contain the provided substring, or -1.
func callIndex(calls []call, substring string) int {
	for i, c := range calls {
		for _, arg := range c.args {
			if strings.Contains(arg, substring) {
				return i
			}
		}
	}

	return -1
}

// TestBuildRuntime_InstallOrder verifies the fixed dependency order:
// telemetry first, core second, the top-level CLI package last, with the
// environment created and tooling upgraded before any of them.
func TestBuildRuntime_InstallOrder(t *testing.T) {
	t.Parallel()

	b, runner := newTestBuilder(t)
	seedComponents(t, b)

	require.NoError(t, b.buildRuntime(context.Background(), "/tmp/venv"))

	venvIdx := callIndex(runner.calls, "--copies")
	upgradeIdx := callIndex(runner.calls, "setuptools")
	telemetryIdx := callIndex(runner.calls, "azure-cli-telemetry")
	coreIdx := callIndex(runner.calls, "azure-cli-core")
	smokeIdx := callIndex(runner.calls, "--version")

	require.GreaterOrEqual(t, venvIdx, 0)
	require.Less(t, venvIdx, upgradeIdx)
	require.Less(t, upgradeIdx, telemetryIdx)
	require.Less(t, telemetryIdx, coreIdx)

	// The top-level package is installed after core and before the smoke test.
	cliIdx := -1

	for i, c := range runner.calls {
		last := c.args[len(c.args)-1]
		if filepath.Base(last) == "azure-cli" {
			cliIdx = i
		}
	}

	require.Greater(t, cliIdx, coreIdx)
	require.Greater(t, smokeIdx, cliIdx)
}

// TestBuildRuntime_MissingComponent ensures the error names the missing path
// and no install command is attempted for it.
func TestBuildRuntime_MissingComponent(t *testing.T) {
	t.Parallel()

	b, runner := newTestBuilder(t)

	// Only the telemetry component exists.
	telemetry := b.cfg.ComponentDirs()[0]
	require.NoError(t, b.fsys.WriteFile(filepath.Join(telemetry, "setup.py"), []byte("# setup"), 0o644))

	err := b.buildRuntime(context.Background(), "/tmp/venv")
	require.ErrorIs(t, err, errComponentMissing)
	require.Contains(t, err.Error(), filepath.Join("src", "azure-cli-core"))
	require.Equal(t, -1, callIndex(runner.calls, "azure-cli-core"))
}

// TestBuildRuntime_FailurePropagatesOutput ensures a failing install surfaces
// the captured tool output verbatim.
func TestBuildRuntime_FailurePropagatesOutput(t *testing.T) {
	t.Parallel()

	b, runner := newTestBuilder(t)
	seedComponents(t, b)

	runner.onRun = func(_ string, args []string) (*executor.Result, error) {
		if callIndex([]call{{args: args}}, "azure-cli-telemetry") >= 0 {
			return &executor.Result{
				Stdout:   "resolving dependencies",
				Stderr:   "no matching distribution",
				ExitCode: 1,
			}, errors.New("exit status 1")
		}

		return &executor.Result{ExitCode: 0}, nil
	}

	err := b.buildRuntime(context.Background(), "/tmp/venv")
	require.Error(t, err)
	require.Contains(t, err.Error(), "resolving dependencies")
	require.Contains(t, err.Error(), "no matching distribution")
}

// TestBuildRuntime_SmokeTestFailureIsFatal ensures a broken installed CLI
// aborts the build.
func TestBuildRuntime_SmokeTestFailureIsFatal(t *testing.T) {
	t.Parallel()

	b, runner := newTestBuilder(t)
	seedComponents(t, b)

	runner.onRun = func(_ string, args []string) (*executor.Result, error) {
		if args[len(args)-1] == "--version" {
			return &executor.Result{Stderr: "ModuleNotFoundError", ExitCode: 1}, errors.New("exit status 1")
		}

		return &executor.Result{ExitCode: 0}, nil
	}

	err := b.buildRuntime(context.Background(), "/tmp/venv")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ModuleNotFoundError")
}
