package builder

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/naga-nandyala/azure-cli-pkg-1/internal/logger"
)

// createInstaller turns the staged tree into the final distribution package:
// pkgbuild produces a component package, then productbuild wraps it with the
// generated manifest. Both invocations are synchronous; a non-zero exit from
// either aborts the pipeline with the captured tool output.
func (b *builder) createInstaller(ctx context.Context, pkgRoot, workDir, version string) (string, error) {
	if err := b.verifyBuildTools(); err != nil {
		return "", err
	}

	pkgFilename := fmt.Sprintf("%s-%s-%s.pkg", b.cfg.AppName, version, b.platformTag)
	finalPkgPath := filepath.Join(b.cfg.OutputPath(), pkgFilename)

	// Overwrite semantics for the final artifact.
	if exists, err := b.fsys.Exists(finalPkgPath); err == nil && exists {
		if err := b.fsys.Remove(finalPkgPath); err != nil {
			return "", fmt.Errorf("remove previous artifact: %w", err)
		}
	}

	componentPkgName := fmt.Sprintf("%s-component-%s-%s.pkg", b.cfg.AppName, version, b.platformTag)
	componentPkgPath := filepath.Join(workDir, componentPkgName)

	logger.InfoKV(ctx, "Creating component package", "path", componentPkgPath)

	if _, err := b.runCommand(ctx, "pkgbuild",
		"--root", pkgRoot,
		"--identifier", b.cfg.PkgIdentifier,
		"--version", version,
		"--install-location", installLocation,
		componentPkgPath,
	); err != nil {
		return "", err
	}

	info, err := b.fsys.Stat(componentPkgPath)
	if err != nil {
		return "", fmt.Errorf("component package creation failed, %s does not exist: %w", componentPkgPath, err)
	}

	sizeMB := float64(info.Size()) / bytesPerMB
	logger.Infof(ctx, "Component package size: %.1f MB", sizeMB)

	if sizeMB < minComponentPkgSizeMB {
		// Heuristic sanity check, not a hard gate.
		logger.Warnf(ctx, "Component package is unusually small (%.1f MB)", sizeMB)
	}

	logger.Info(ctx, "Creating distribution XML")

	manifestPath, err := b.writeDistributionXML(ctx, workDir, version, componentPkgName)
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Creating distribution package", "path", finalPkgPath)

	if _, err := b.runCommand(ctx, "productbuild",
		"--distribution", manifestPath,
		"--package-path", workDir,
		finalPkgPath,
	); err != nil {
		return "", err
	}

	exists, err := b.fsys.Exists(finalPkgPath)
	if err != nil || !exists {
		return "", fmt.Errorf("package creation failed: %s does not exist", finalPkgPath)
	}

	logger.InfoKV(ctx, "Created distribution package", "path", finalPkgPath)

	return finalPkgPath, nil
}

// verifyBuildTools checks that both packaging utilities are on PATH before
// any work starts, failing with remediation instructions when they are not.
func (b *builder) verifyBuildTools() error {
	for _, tool := range []string{"pkgbuild", "productbuild"} {
		if _, err := b.lookPath(tool); err != nil {
			return fmt.Errorf(
				"%s not found, install Xcode Command Line Tools: xcode-select --install: %w", tool, err)
		}
	}

	return nil
}
