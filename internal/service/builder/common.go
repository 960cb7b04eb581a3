package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/executor"

	"github.com/naga-nandyala/azure-cli-pkg-1/internal/logger"
)

const (
	// VersionEnvVar overrides the release version, bypassing the source lookup.
	VersionEnvVar = "VERSION"

	// MarkerFilename marks that a build is running right now to avoid parallel execution.
	MarkerFilename = "azure-cli-pkg-build-marker.bin"

	// builderExecutableName is the process name checked when a leftover marker is found.
	builderExecutableName = "azure-cli-pkg"

	// tempDirPrefix names the scoped working directory of a single build.
	tempDirPrefix = "azure-cli-pkg-build-"

	// installLocation is the target prefix the payload is installed under.
	installLocation = "/usr/local"

	// defaultDirPermissions is used for directories produced during staging.
	defaultDirPermissions os.FileMode = 0o755

	// defaultFilePermissions is used for generated non-executable files.
	defaultFilePermissions os.FileMode = 0o644

	// executablePermissions is used for the generated launcher script.
	executablePermissions os.FileMode = 0o755

	// bytesPerMB converts byte counts for human-readable size logging.
	bytesPerMB = 1024 * 1024

	// minComponentPkgSizeMB is the heuristic floor below which the component
	// package triggers a warning. Not a hard gate: minimal platform variants
	// may legitimately be small.
	minComponentPkgSizeMB = 1.0
)

var (
	errBuildAlreadyRunning = errors.New("another build is already running")
	errUnknownPlatformTag  = errors.New("unknown platform tag")
	errComponentMissing    = errors.New("component directory not found")
	errVersionNotFound     = errors.New("could not find __version__")
)

// platformTags is the fixed set of supported target platforms.
//
//nolint:gochecknoglobals // Static enumeration shared by validation and CLI help.
var platformTags = []string{"macos-arm64", "macos-x86_64"}

// PlatformTags returns the supported platform/architecture tags.
func PlatformTags() []string {
	return append([]string(nil), platformTags...)
}

// commandRunner abstracts external tool invocation so tests can record and
// script calls without spawning processes.
type commandRunner interface {
	Run(ctx context.Context, program string, args []string, opts ...executor.Option) (*executor.Result, error)
}

// execRunner invokes real processes through the executor wrapper.
type execRunner struct{}

func (execRunner) Run(
	ctx context.Context,
	program string,
	args []string,
	opts ...executor.Option,
) (*executor.Result, error) {
	//nolint:wrapcheck // Callers wrap with the full command line via commandError.
	return executor.New(program, args...).Execute(ctx, opts...)
}

// runCommand executes an external tool, mirroring its output to the console
// while capturing it for diagnostics.
func (b *builder) runCommand(ctx context.Context, program string, args ...string) (*executor.Result, error) {
	logger.Infof(ctx, "→ %s %s", program, strings.Join(args, " "))

	res, err := b.run.Run(ctx, program, args, executor.CaptureAll())
	if err != nil {
		return res, commandError(program, args, res, err)
	}

	return res, nil
}

// runCommandQuiet executes an external tool capturing output without echoing it.
func (b *builder) runCommandQuiet(ctx context.Context, program string, args ...string) (*executor.Result, error) {
	logger.Infof(ctx, "→ %s %s", program, strings.Join(args, " "))

	res, err := b.run.Run(ctx, program, args, executor.SilentMode())
	if err != nil {
		return res, commandError(program, args, res, err)
	}

	return res, nil
}

// commandError builds an error carrying the failing command line and its
// captured output streams verbatim for post-mortem diagnosis.
func commandError(program string, args []string, res *executor.Result, err error) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "command failed: %s %s", program, strings.Join(args, " "))

	if res != nil {
		fmt.Fprintf(&sb, " (exit code %d)", res.ExitCode)

		if res.Stdout != "" {
			sb.WriteString("\nSTDOUT:\n")
			sb.WriteString(res.Stdout)
		}

		if res.Stderr != "" {
			sb.WriteString("\nSTDERR:\n")
			sb.WriteString(res.Stderr)
		}
	}

	return fmt.Errorf("%s: %w", sb.String(), err)
}

// markerPath returns the location of the concurrent-build marker file.
func (b *builder) markerPath() string {
	return filepath.Join(os.TempDir(), MarkerFilename)
}

// isBuildRunningNow checks presence of a build marker and removes it when it
// is stale, i.e. no other builder process is actually alive.
func (b *builder) isBuildRunningNow(ctx context.Context) bool {
	exists, err := b.fsys.Exists(b.markerPath())
	if err != nil || !exists {
		return false
	}

	if b.isAnotherBuilderAlive() {
		return true
	}

	logger.Info(ctx, "Found a stale build marker, removing it")

	if err := b.fsys.Remove(b.markerPath()); err != nil {
		return true
	}

	return false
}

// isAnotherBuilderAlive reports whether a different process with the builder
// executable name is currently running.
func (b *builder) isAnotherBuilderAlive() bool {
	processList, err := b.processes()
	if err != nil {
		// Cannot inspect the process table; treat the marker as live.
		return true
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == builderExecutableName {
			return true
		}
	}

	return false
}

// createMarker writes the concurrent-build marker for the duration of the build.
func (b *builder) createMarker() error {
	pid := fmt.Sprintf("%d\n", os.Getpid())

	if err := b.fsys.WriteFile(b.markerPath(), []byte(pid), defaultFilePermissions); err != nil {
		return fmt.Errorf("write build marker: %w", err)
	}

	return nil
}

// removeMarker deletes the concurrent-build marker. Best-effort.
func (b *builder) removeMarker(ctx context.Context) {
	if err := b.fsys.Remove(b.markerPath()); err != nil {
		logger.WarnKV(ctx, "Failed to remove build marker", "path", b.markerPath(), "error", err)
	}
}

// removeTree deletes the file tree rooted at root. Missing roots are fine.
func (b *builder) removeTree(root string) error {
	exists, err := b.fsys.Exists(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}

	if !exists {
		return nil
	}

	var files, dirs []string

	err = b.fsys.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if info.IsDir() {
			dirs = append(dirs, path)
		} else {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}

	for _, file := range files {
		if err := b.fsys.Remove(file); err != nil {
			return fmt.Errorf("remove %s: %w", file, err)
		}
	}

	// Children first. Some backends track directories implicitly and refuse
	// to remove them, so directory removal is best-effort.
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = b.fsys.Remove(dirs[i])
	}

	return nil
}

// treeSize sums the sizes of all regular files under root.
func (b *builder) treeSize(root string) (int64, error) {
	var total int64

	err := b.fsys.Walk(root, func(_ string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if !info.IsDir() {
			total += info.Size()
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", root, err)
	}

	return total, nil
}

// sliceToSet converts a slice to a set for quick lookups.
func sliceToSet[T comparable](elements []T) map[T]struct{} {
	result := make(map[T]struct{}, len(elements))
	for _, value := range elements {
		result[value] = struct{}{}
	}

	return result
}
