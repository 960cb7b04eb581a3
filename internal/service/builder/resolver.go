package builder

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/naga-nandyala/azure-cli-pkg-1/internal/logger"
)

// versionPattern matches the quoted literal in `__version__ = "X.Y.Z"`.
var versionPattern = regexp.MustCompile(`__version__\s*=\s*['"](.+?)['"]`)

// resolveVersion determines the release version. A non-blank override wins
// verbatim (trimmed) and the source file is never inspected; otherwise the
// version declaration in the core component is parsed. No valid artifact can
// be named without a version, so both failure paths are fatal.
func (b *builder) resolveVersion(ctx context.Context) (string, error) {
	if v := strings.TrimSpace(b.versionOverride); v != "" {
		logger.InfoKV(ctx, "Using version from environment", "version", v)
		return v, nil
	}

	path := b.cfg.VersionFilePath()

	contents, err := b.fsys.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not locate %s to determine version: %w", path, err)
	}

	match := versionPattern.FindSubmatch(contents)
	if match == nil {
		return "", fmt.Errorf("%w in %s", errVersionNotFound, path)
	}

	v := string(match[1])
	logger.InfoKV(ctx, "Using version from sources", "version", v)

	return v, nil
}
