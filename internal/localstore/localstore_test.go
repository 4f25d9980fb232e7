package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "ycf")
}

func TestDefaultDir_UsesXDG(t *testing.T) {
	base := withTmpConfig(t)
	require.Equal(t, base, DefaultDir())
	require.Equal(t, filepath.Join(base, FileName), New("").Path())
}

func TestToken_SaveLoadRemove(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())

	tok, err := s.LoadToken()
	require.NoError(t, err)
	require.Empty(t, tok, "missing file means no token")

	require.NoError(t, s.SaveToken("abc"))
	tok, err = s.LoadToken()
	require.NoError(t, err)
	require.Equal(t, "abc", tok)

	require.NoError(t, s.RemoveToken())
	tok, err = s.LoadToken()
	require.NoError(t, err)
	require.Empty(t, tok)
}

func TestDrawer_IndependentOfToken(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())

	open, err := s.DrawerOpen()
	require.NoError(t, err)
	require.False(t, open)

	require.NoError(t, s.SaveToken("tok"))
	require.NoError(t, s.SetDrawerOpen(true))
	require.NoError(t, s.RemoveToken())

	open, err = s.DrawerOpen()
	require.NoError(t, err)
	require.True(t, open, "logout must not reset the drawer preference")
}

func TestFilePermissions(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, s.SaveToken("tok"))

	fi, err := os.Stat(s.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestCorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{"), 0o600))
	_, err := New(dir).LoadToken()
	require.Error(t, err)
}
