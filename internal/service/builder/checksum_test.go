package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEmitChecksum verifies the sidecar digest matches an independently
// computed SHA256 and follows the shasum line format.
func TestEmitChecksum(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)

	payload := []byte("not a real installer, but stable bytes to hash")
	artifact := "/out/azure-cli-2.76.0-macos-arm64.pkg"
	require.NoError(t, b.fsys.WriteFile(artifact, payload, 0o644))

	checksumPath, err := b.emitChecksum(context.Background(), artifact)
	require.NoError(t, err)
	require.Equal(t, artifact+".sha256", checksumPath)

	contents, err := b.fsys.ReadFile(checksumPath)
	require.NoError(t, err)

	digest := sha256.Sum256(payload)
	expected := fmt.Sprintf("%s  %s\n", hex.EncodeToString(digest[:]), "azure-cli-2.76.0-macos-arm64.pkg")
	require.Equal(t, expected, string(contents))
}

// TestEmitChecksum_LargeArtifact exercises the chunked hashing path with an
// artifact bigger than a single read buffer.
func TestEmitChecksum_LargeArtifact(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)

	payload := []byte(strings.Repeat("azure", checksumChunkSize/4))
	artifact := "/out/big.pkg"
	require.NoError(t, b.fsys.WriteFile(artifact, payload, 0o644))

	checksumPath, err := b.emitChecksum(context.Background(), artifact)
	require.NoError(t, err)

	contents, err := b.fsys.ReadFile(checksumPath)
	require.NoError(t, err)

	digest := sha256.Sum256(payload)
	require.True(t, strings.HasPrefix(string(contents), hex.EncodeToString(digest[:])))
}

// TestEmitChecksum_MissingArtifact ensures a vanished artifact surfaces as an error.
func TestEmitChecksum_MissingArtifact(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)

	_, err := b.emitChecksum(context.Background(), "/out/absent.pkg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "open artifact")
}
