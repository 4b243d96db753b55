package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNested(t *testing.T) {
	root := t.TempDir()

	got, err := EnsureDir(root, "data", "media")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "data", "media"), got)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm())
	}

	again, err := EnsureDir(root, "data", "media")
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestEnsureDir_FailsOverFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "media"), []byte("x"), 0o600))

	_, err := EnsureDir(root, "media")
	require.Error(t, err)
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"lesson.mp3":          "lesson.mp3",
		"my notes (v2).pdf":   "my_notes_v2_.pdf",
		"../../etc/passwd":    "_.._etc_passwd",
		".hidden":             "hidden",
		"résumé.docx":         "r_sum_.docx",
		"already_safe-1.png":  "already_safe-1.png",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeName(in), "input %q", in)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.wav")
	require.NoError(t, os.WriteFile(f, []byte("RIFF"), 0o600))

	assert.True(t, Exists(f))
	assert.False(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "missing")))
}
