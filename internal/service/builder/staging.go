package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/naga-nandyala/azure-cli-pkg-1/internal/logger"
)

// stage transforms the runtime directory into a tree mirroring the target
// system layout under /usr/local, ready for pkgbuild. Staging either
// completes fully or the whole build aborts; there is no partial state.
func (b *builder) stage(ctx context.Context, venvDir, workDir string) (string, error) {
	pkgRoot := filepath.Join(workDir, "pkg_root")
	binDir := filepath.Join(pkgRoot, "bin")
	prefixDir := filepath.Join(pkgRoot, b.cfg.InstallPrefix)
	venvTarget := filepath.Join(prefixDir, b.cfg.AppName)

	// Fully rebuilt from scratch on every run; no incremental reuse.
	if err := b.removeTree(pkgRoot); err != nil {
		return "", fmt.Errorf("clean staging root: %w", err)
	}

	for _, dir := range []string{binDir, prefixDir} {
		if err := b.fsys.MkdirAll(dir, defaultDirPermissions); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}

	logger.InfoKV(ctx, "Copying virtual environment", "target", venvTarget)

	if size, err := b.treeSize(venvDir); err == nil {
		logger.Infof(ctx, "  Source size: %.1f MB", float64(size)/bytesPerMB)
	}

	if err := b.copyTree(venvDir, venvTarget); err != nil {
		return "", fmt.Errorf("copy runtime: %w", err)
	}

	logger.Info(ctx, "Pruning Python bytecode files")

	if err := b.pruneBytecode(venvTarget); err != nil {
		return "", fmt.Errorf("prune bytecode: %w", err)
	}

	if size, err := b.treeSize(venvTarget); err == nil {
		logger.Infof(ctx, "  Target size: %.1f MB", float64(size)/bytesPerMB)
	}

	logger.Info(ctx, "Creating system launcher script")

	if err := b.writeLauncher(ctx, binDir); err != nil {
		return "", err
	}

	return pkgRoot, nil
}

// copyTree deep-copies the tree at src into dst. Contents are read and
// rewritten, so symlinks are materialized as the real files they point to:
// the staged tree carries no references that could dangle after relocation.
func (b *builder) copyTree(src, dst string) error {
	err := b.fsys.Walk(src, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return b.fsys.MkdirAll(target, info.Mode().Perm())
		}

		contents, err := b.fsys.ReadFile(path)
		if err != nil {
			return err
		}

		return b.fsys.WriteFile(target, contents, info.Mode().Perm())
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", src, err)
	}

	return nil
}

// pruneBytecode removes __pycache__ directories and compiled bytecode files
// from the staged runtime. This only reduces artifact size; the runtime does
// not need the caches to work.
func (b *builder) pruneBytecode(root string) error {
	var (
		cacheDirs []string
		byteFiles []string
	)

	err := b.fsys.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if info.IsDir() && info.Name() == "__pycache__" {
			cacheDirs = append(cacheDirs, path)
			return filepath.SkipDir
		}

		if !info.IsDir() && (strings.HasSuffix(path, ".pyc") || strings.HasSuffix(path, ".pyo")) {
			byteFiles = append(byteFiles, path)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}

	for _, dir := range cacheDirs {
		if err := b.removeTree(dir); err != nil {
			return err
		}
	}

	for _, file := range byteFiles {
		if err := b.fsys.Remove(file); err != nil {
			return fmt.Errorf("remove %s: %w", file, err)
		}
	}

	return nil
}

// writeLauncher generates the launcher script installed into /usr/local/bin.
// The script hardcodes the installed runtime path, verifies the interpreter
// before executing, marks the installation method, and replaces itself with
// the product module, forwarding all arguments.
func (b *builder) writeLauncher(ctx context.Context, binDir string) error {
	runtimeDir := installLocation + "/" + b.cfg.InstallDir()

	script := fmt.Sprintf(`#!/usr/bin/env bash
set -euo pipefail

# Direct path into the installed runtime - no symlink resolution needed.
VENV_DIR=%q
PYTHON="${VENV_DIR}/bin/python3"

# Verify installation integrity.
if [[ ! -x "${PYTHON}" ]]; then
    echo "Error: %s installation appears corrupted" >&2
    echo "Python executable not found at: ${PYTHON}" >&2
    echo "Try reinstalling with: brew reinstall --cask %s" >&2
    exit 1
fi

# Identify the installation method for telemetry.
export AZ_INSTALLER=PKG

exec "${PYTHON}" -m %s "$@"
`, runtimeDir, b.cfg.DisplayName, b.cfg.AppName, b.cfg.PythonModule)

	launcherPath := filepath.Join(binDir, b.cfg.ExecutableName)

	if err := b.fsys.WriteFile(launcherPath, []byte(script), executablePermissions); err != nil {
		return fmt.Errorf("write launcher script: %w", err)
	}

	logger.InfoKV(ctx, "Created launcher script", "path", launcherPath)

	return nil
}
