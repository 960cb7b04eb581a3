package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/executor"
	bfs "github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	ps "github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"

	"github.com/naga-nandyala/azure-cli-pkg-1/internal/config"
)

// call records a single external tool invocation.
type call struct {
	program string
	args    []string
}

// fakeRunner records invocations and lets tests script results and side effects.
type fakeRunner struct {
	calls []call
	onRun func(program string, args []string) (*executor.Result, error)
}

func (f *fakeRunner) Run(
	_ context.Context,
	program string,
	args []string,
	_ ...executor.Option,
) (*executor.Result, error) {
	f.calls = append(f.calls, call{program: program, args: args})

	if f.onRun != nil {
		return f.onRun(program, args)
	}

	return &executor.Result{ExitCode: 0}, nil
}

// fakeProcess is a minimal ps.Process for the concurrent-build guard tests.
type fakeProcess struct {
	pid        int
	executable string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 0 }
func (p fakeProcess) Executable() string { return p.executable }

// newTestBuilder wires a builder against an in-memory filesystem with all
// external collaborators faked out.
func newTestBuilder(t *testing.T) (*builder, *fakeRunner) {
	t.Helper()

	cfg := config.Default()
	require.NoError(t, config.Validate(cfg))

	runner := &fakeRunner{}

	return &builder{
		cfg:         cfg,
		platformTag: "macos-arm64",
		fsys:        bfs.NewInMemoryFS(),
		run:         runner,
		lookPath: func(string) (string, error) {
			return "/usr/bin/tool", nil
		},
		processes: func() ([]ps.Process, error) {
			return nil, nil
		},
	}, runner
}

// seedComponents creates the three component source directories in the
// builder's filesystem.
func seedComponents(t *testing.T, b *builder) {
	t.Helper()

	for _, dir := range b.cfg.ComponentDirs() {
		require.NoError(t, b.fsys.WriteFile(filepath.Join(dir, "setup.py"), []byte("# setup"), 0o644))
	}
}

// seedVersionFile writes a version declaration into the builder's filesystem.
func seedVersionFile(t *testing.T, b *builder, version string) {
	t.Helper()

	contents := "__version__ = \"" + version + "\"\n"
	require.NoError(t, b.fsys.WriteFile(b.cfg.VersionFilePath(), []byte(contents), 0o644))
}

// seedVenv creates a plausible virtual environment tree, including bytecode
// artifacts that staging is expected to prune.
func seedVenv(t *testing.T, b *builder, venvDir string) {
	t.Helper()

	files := map[string]string{
		"bin/python3": "#!fake interpreter",
		"lib/python3.12/site-packages/azure/__init__.py":                      "# azure",
		"lib/python3.12/site-packages/azure/__pycache__/__init__.cpython.pyc": "bytecode",
		"lib/python3.12/site-packages/knack/mod.pyo":                          "bytecode",
		"lib/python3.12/site-packages/knack/mod.py":                           "# knack",
	}

	for rel, contents := range files {
		path := filepath.Join(venvDir, filepath.FromSlash(rel))
		require.NoError(t, b.fsys.WriteFile(path, []byte(contents), 0o644))
	}
}

// snapshotTree collects path -> contents for all files under root.
func snapshotTree(t *testing.T, b *builder, root string) map[string]string {
	t.Helper()

	snapshot := make(map[string]string)

	err := b.fsys.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if info.IsDir() {
			return nil
		}

		contents, err := b.fsys.ReadFile(path)
		if err != nil {
			return err
		}

		snapshot[path] = string(contents)

		return nil
	})
	require.NoError(t, err)

	return snapshot
}
