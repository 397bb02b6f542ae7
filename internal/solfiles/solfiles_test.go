package solfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCollectSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Token.sol")
	writeFile(t, path, "contract Token {}\n")

	files, err := Collect(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestCollectDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b", "Vault.sol"), "contract Vault {}\n")
	writeFile(t, filepath.Join(dir, "a", "Token.sol"), "contract Token {}\n")
	writeFile(t, filepath.Join(dir, "README.md"), "not solidity\n")
	writeFile(t, filepath.Join(dir, "node_modules", "dep", "Dep.sol"), "contract Dep {}\n")
	writeFile(t, filepath.Join(dir, ".hidden", "Hidden.sol"), "contract Hidden {}\n")

	files, err := Collect(dir)
	require.NoError(t, err)
	require.Len(t, files, 2, "node_modules and hidden directories are skipped")
	assert.Equal(t, filepath.Join(dir, "a", "Token.sol"), files[0], "results are sorted")
	assert.Equal(t, filepath.Join(dir, "b", "Vault.sol"), files[1])
}

func TestCollectEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "README.md"), "no contracts here\n")

	_, err := Collect(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Solidity sources")
}

func TestCollectMissingPath(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestLineAt(t *testing.T) {
	content := "line one\nline two\nline three"
	offsets := LineOffsets(content)

	tests := []struct {
		pos  int
		want int
	}{
		{0, 1},                    // first byte
		{7, 1},                    // last byte of line one
		{8, 1},                    // the newline itself
		{9, 2},                    // first byte of line two
		{len(content) - 1, 3},     // last byte of the file
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LineAt(offsets, tt.pos), "pos %d", tt.pos)
	}
}

func TestLineOffsetsTrailingNewline(t *testing.T) {
	offsets := LineOffsets("a\nb\n")
	assert.Equal(t, []int{0, 2, 4}, offsets)
}
