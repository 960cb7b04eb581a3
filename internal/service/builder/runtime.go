package builder

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/naga-nandyala/azure-cli-pkg-1/internal/logger"
)

// buildRuntime produces an isolated virtual environment with all product
// components installed and verified to be invocable.
func (b *builder) buildRuntime(ctx context.Context, venvDir string) error {
	// Idempotent cleanup of any leftover runtime directory.
	if err := b.removeTree(venvDir); err != nil {
		return fmt.Errorf("clean runtime directory: %w", err)
	}

	logger.InfoKV(ctx, "Creating build virtual environment", "path", venvDir)

	// Full-copy semantics so the staged tree can be relocated without
	// dangling interpreter references.
	if _, err := b.runCommand(ctx, b.cfg.Python, "-m", "venv", "--copies", venvDir); err != nil {
		return err
	}

	python := virtualenvPython(venvDir)

	if _, err := b.runCommand(ctx, python, "-m", "pip", "install", "--upgrade", "pip", "setuptools", "wheel"); err != nil {
		return err
	}

	if err := b.installComponents(ctx, python); err != nil {
		return err
	}

	return b.verifyRuntime(ctx, python)
}

// installComponents installs the product components in fixed dependency
// order. Later components declare dependencies on earlier ones, and a naive
// solver might otherwise attempt installation out of order.
func (b *builder) installComponents(ctx context.Context, python string) error {
	logger.Infof(ctx, "Installing %s components", b.cfg.DisplayName)

	for _, dir := range b.cfg.ComponentDirs() {
		exists, err := b.fsys.Exists(dir)
		if err != nil {
			return fmt.Errorf("stat %s: %w", dir, err)
		}

		if !exists {
			return fmt.Errorf("%w: %s", errComponentMissing, dir)
		}

		logger.InfoKV(ctx, "Installing component", "component", filepath.Base(dir))

		if _, err := b.runCommand(ctx, python, "-m", "pip", "install", dir); err != nil {
			return err
		}
	}

	return nil
}

// verifyRuntime smoke-tests the installed CLI inside the runtime. A failure
// here means the packaged runtime cannot execute at all, so it aborts the build.
func (b *builder) verifyRuntime(ctx context.Context, python string) error {
	logger.Infof(ctx, "Verifying %s installation", b.cfg.DisplayName)

	res, err := b.runCommandQuiet(ctx, python, "-m", b.cfg.PythonModule, "--version")
	if err != nil {
		return err
	}

	logger.Infof(ctx, "Installed %s version:\n%s", b.cfg.DisplayName, res.Stdout)

	return nil
}

// virtualenvPython returns the interpreter path inside a virtual environment.
func virtualenvPython(venvDir string) string {
	return filepath.Join(venvDir, "bin", "python3")
}
