package builder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	bfs "github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	ps "github.com/mitchellh/go-ps"

	"github.com/naga-nandyala/azure-cli-pkg-1/internal/config"
	"github.com/naga-nandyala/azure-cli-pkg-1/internal/logger"
)

// Options contains inputs for the builder entry point.
type Options struct {
	// ConfigPath is an optional path to the build settings YAML file.
	ConfigPath string
	// PlatformTag selects the target platform, e.g. macos-arm64.
	PlatformTag string
	// OutputDir optionally overrides the artifacts directory from the settings.
	OutputDir string
	// Version optionally overrides the release version, usually sourced from
	// the VERSION environment variable by the CLI driver.
	Version string
}

// builder holds the state and collaborators for a single build execution.
// It is unexported; callers should use Run, which encapsulates setup and validation.
type builder struct {
	// cfg holds the build settings, constructed once and never mutated.
	cfg *config.Config
	// platformTag is the validated target platform tag.
	platformTag string
	// versionOverride bypasses the source version lookup when non-blank.
	versionOverride string
	// fsys abstracts filesystem access; OS-backed in production, in-memory in tests.
	fsys *bfs.FS
	// run executes external tools.
	run commandRunner
	// lookPath locates external tools on PATH.
	lookPath func(string) (string, error)
	// processes lists running processes for the concurrent-build guard.
	processes func() ([]ps.Process, error)
}

// Run executes the full packaging pipeline for the requested platform.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "azure-cli-pkg")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}

	b, err := newBuilder(cfg, opts)
	if err != nil {
		return err
	}

	if err := b.build(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Build completed successfully")

	return nil
}

// newBuilder validates the platform tag and wires the production collaborators.
func newBuilder(cfg *config.Config, opts *Options) (*builder, error) {
	if _, ok := sliceToSet(platformTags)[opts.PlatformTag]; !ok {
		return nil, fmt.Errorf("%w: %q (expected one of: %s)",
			errUnknownPlatformTag, opts.PlatformTag, strings.Join(platformTags, ", "))
	}

	return &builder{
		cfg:             cfg,
		platformTag:     opts.PlatformTag,
		versionOverride: opts.Version,
		fsys:            bfs.NewBaseOSFS(),
		run:             execRunner{},
		lookPath:        exec.LookPath,
		processes:       ps.Processes,
	}, nil
}

// build drives the four pipeline phases inside a scoped working directory.
func (b *builder) build(ctx context.Context) error {
	if b.isBuildRunningNow(ctx) {
		return errBuildAlreadyRunning
	}

	if err := b.createMarker(); err != nil {
		return err
	}

	defer b.removeMarker(ctx)

	version, err := b.resolveVersion(ctx)
	if err != nil {
		return fmt.Errorf("resolve version: %w", err)
	}

	if err := b.fsys.MkdirAll(b.cfg.OutputPath(), defaultDirPermissions); err != nil {
		return fmt.Errorf("create artifacts directory: %w", err)
	}

	logger.Infof(ctx, "Building %s %s for %s (.pkg installer)", b.cfg.DisplayName, version, b.platformTag)

	workDir, err := b.fsys.TempDir(os.TempDir(), tempDirPrefix)
	if err != nil {
		return fmt.Errorf("create working directory: %w", err)
	}

	// The working directory is removed on every exit path, including early aborts.
	defer func() {
		if cleanupErr := b.removeTree(workDir); cleanupErr != nil {
			logger.WarnKV(ctx, "Failed to clean working directory", "path", workDir, "error", cleanupErr)
		}
	}()

	logger.Info(ctx, "[Phase 1/4] Creating virtual environment and installing components")

	venvDir := filepath.Join(workDir, "bundle-venv")
	if err := b.buildRuntime(ctx, venvDir); err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	logger.Info(ctx, "[Phase 2/4] Staging package root")

	pkgRoot, err := b.stage(ctx, venvDir, workDir)
	if err != nil {
		return fmt.Errorf("stage package root: %w", err)
	}

	logger.Info(ctx, "[Phase 3/4] Creating .pkg installer")

	pkgPath, err := b.createInstaller(ctx, pkgRoot, workDir, version)
	if err != nil {
		return fmt.Errorf("create installer: %w", err)
	}

	logger.Info(ctx, "[Phase 4/4] Generating checksum")

	checksumPath, err := b.emitChecksum(ctx, pkgPath)
	if err != nil {
		return fmt.Errorf("emit checksum: %w", err)
	}

	b.printSummary(ctx, pkgPath, checksumPath, version)

	return nil
}

// printSummary logs the produced artifacts and human-readable next steps.
func (b *builder) printSummary(ctx context.Context, pkgPath, checksumPath, version string) {
	var size int64
	if info, err := b.fsys.Stat(pkgPath); err == nil {
		size = info.Size()
	}

	logger.Infof(ctx, "%s PKG INSTALLER BUILD COMPLETE", strings.ToUpper(b.cfg.DisplayName))
	logger.InfoKV(ctx, "Build summary",
		"package", pkgPath,
		"size_mb", fmt.Sprintf("%.1f", float64(size)/bytesPerMB),
		"sha256", checksumPath,
		"platform", b.platformTag,
		"version", version,
		"identifier", b.cfg.PkgIdentifier,
	)

	var sb strings.Builder

	sb.WriteString("Installation details:\n")
	fmt.Fprintf(&sb, "  Target:     %s/\n", installLocation)
	fmt.Fprintf(&sb, "  Executable: %s/bin/%s\n", installLocation, b.cfg.ExecutableName)
	fmt.Fprintf(&sb, "  Runtime:    %s/%s/\n", installLocation, b.cfg.InstallDir())
	sb.WriteString("Next steps:\n")
	sb.WriteString("  1. Test locally: sudo installer -pkg <pkg-file> -target /\n")
	fmt.Fprintf(&sb, "  2. Verify: %s --version\n", b.cfg.ExecutableName)
	sb.WriteString("  3. Upload to the release page and update the Homebrew Cask")

	logger.Info(ctx, sb.String())
}
