package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManager_CreateAndCleanup(t *testing.T) {
	base := t.TempDir()
	mgr := NewManager(base, "publish", nil)

	require.NoError(t, mgr.Create())
	wsPath := mgr.GetPath()
	require.NotEmpty(t, wsPath)
	require.True(t, strings.HasPrefix(filepath.Base(wsPath), "sitebuilder-publish-"), wsPath)
	require.DirExists(t, wsPath)

	require.NoError(t, mgr.Cleanup())
	require.NoDirExists(t, wsPath)
	require.Empty(t, mgr.GetPath())
	require.NoError(t, mgr.Cleanup())
}

func TestManager_UniqueDirectories(t *testing.T) {
	base := t.TempDir()
	a := NewManager(base, "publish", nil)
	b := NewManager(base, "publish", nil)
	require.NoError(t, a.Create())
	require.NoError(t, b.Create())
	t.Cleanup(func() {
		_ = a.Cleanup()
		_ = b.Cleanup()
	})
	require.NotEqual(t, a.GetPath(), b.GetPath())
}

func TestManager_CreateSubdir(t *testing.T) {
	mgr := NewManager(t.TempDir(), "", nil)
	_, err := mgr.CreateSubdir("repo")
	require.Error(t, err)

	require.NoError(t, mgr.Create())
	defer func() { _ = mgr.Cleanup() }()

	sub, err := mgr.CreateSubdir("repo")
	require.NoError(t, err)
	info, err := os.Stat(sub)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, mgr.GetPath(), filepath.Dir(sub))
}
