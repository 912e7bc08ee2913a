package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressFile_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	// Repetitive payload so compression visibly shrinks it
	payload := []byte(strings.Repeat("Магистратура ИТМО: Искусственный интеллект. ", 500))
	srcPath := filepath.Join(dir, "kb.db")
	require.NoError(t, os.WriteFile(srcPath, payload, 0o644))

	zstPath := srcPath + ".zst"
	require.NoError(t, CompressFile(srcPath, zstPath))

	compressed, err := os.Stat(zstPath)
	require.NoError(t, err)
	assert.Less(t, compressed.Size(), int64(len(payload)), "compressed file should be smaller than source")

	zst, err := os.Open(zstPath)
	require.NoError(t, err)
	defer zst.Close()

	outPath := filepath.Join(dir, "restored.db")
	require.NoError(t, DecompressStream(zst, outPath))

	restored, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, restored), "round trip must preserve content")
}

func TestCompressFile_MissingSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	err := CompressFile(filepath.Join(dir, "does-not-exist.db"), filepath.Join(dir, "out.zst"))
	assert.Error(t, err)
}

func TestDecompressStream_GarbageInput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	err := DecompressStream(strings.NewReader("definitely not zstd"), filepath.Join(dir, "out.db"))
	assert.Error(t, err)
}
