package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	paths := NewPaths(filepath.Join(t.TempDir(), "tabula"))
	require.NoError(t, paths.Setup())

	for _, dir := range []string{paths.BinaryDirectory, paths.SourceDirectory, paths.RunsDirectory} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}

	require.NoError(t, os.WriteFile(paths.OraclesFile, []byte("kept: {}\n"), 0644))
	require.NoError(t, paths.Setup(), "setup is idempotent")

	data, err := os.ReadFile(paths.OraclesFile)
	require.NoError(t, err)
	require.Equal(t, "kept: {}\n", string(data))
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv(HomeEnv, "/tmp/elsewhere")

	paths := DefaultPaths()
	require.Equal(t, "/tmp/elsewhere", paths.Directory)
	require.Equal(t, "/tmp/elsewhere/runs/first", paths.Run("first"))
	require.Equal(t, "/tmp/elsewhere/bin/santorini", paths.Binary("santorini"))
}
