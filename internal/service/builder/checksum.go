package builder

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/naga-nandyala/azure-cli-pkg-1/internal/logger"

	// Ensure SHA256 is available for checksum calculation.
	_ "crypto/sha256"
)

const (
	// checksumFunction is the digest emitted next to the final artifact.
	checksumFunction crypto.Hash = crypto.SHA256

	// checksumExtension is the sidecar file suffix.
	checksumExtension = ".sha256"

	// checksumChunkSize bounds memory use while hashing regardless of artifact size.
	checksumChunkSize = 1024 * 1024
)

var errHashUnavailable = errors.New("hash function unavailable")

// emitChecksum streams the artifact through the checksum function and writes
// a sidecar file in the shasum-compatible `<hex digest>  <file name>` format.
func (b *builder) emitChecksum(ctx context.Context, artifactPath string) (string, error) {
	logger.InfoKV(ctx, "Generating SHA256 checksum", "artifact", filepath.Base(artifactPath))

	if !checksumFunction.Available() {
		return "", fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	file, err := b.fsys.Open(artifactPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := checksumFunction.New()

	if _, err := io.CopyBuffer(hasher, file, make([]byte, checksumChunkSize)); err != nil {
		return "", fmt.Errorf("hash artifact: %w", err)
	}

	checksumPath := artifactPath + checksumExtension
	line := fmt.Sprintf("%s  %s\n", hex.EncodeToString(hasher.Sum(nil)), filepath.Base(artifactPath))

	if err := b.fsys.WriteFile(checksumPath, []byte(line), defaultFilePermissions); err != nil {
		return "", fmt.Errorf("write checksum file: %w", err)
	}

	logger.InfoKV(ctx, "SHA256", "checksum", strings.TrimSpace(line))

	return checksumPath, nil
}
