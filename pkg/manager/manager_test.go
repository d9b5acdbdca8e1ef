package manager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"laptudirm.com/x/tabula/pkg/common"
)

func newManager(t *testing.T) *Manager {
	t.Helper()

	manager, err := Open(common.NewPaths(t.TempDir()))
	require.NoError(t, err)
	return manager
}

func TestNewOracle(t *testing.T) {
	manager := newManager(t)

	t.Run("github", func(t *testing.T) {
		oracle, err := manager.NewOracle("someone/santorini")
		require.NoError(t, err)
		require.Equal(t, "santorini", oracle.Name)
		require.Equal(t, "someone", oracle.Author)
		require.Equal(t, "https://github.com/someone/santorini", oracle.URL)
		require.Equal(t, filepath.Join(manager.Paths.SourceDirectory, "santorini"), oracle.Path)
		require.Nil(t, oracle.Info)
	})

	t.Run("git url", func(t *testing.T) {
		oracle, err := manager.NewOracle("https://git.example.org/games/Santorini.git")
		require.NoError(t, err)
		require.Equal(t, "Santorini", oracle.Name)
		require.Equal(t, "games", oracle.Author)
		require.Equal(t, "https://git.example.org/games/Santorini.git", oracle.URL)
		require.Equal(t, filepath.Join(manager.Paths.SourceDirectory, "santorini"), oracle.Path)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := manager.NewOracle("santorini")
		require.Error(t, err)
	})

	t.Run("installed name", func(t *testing.T) {
		manager.Oracles["santorini"] = OracleInfo{
			Author:      "someone",
			Source:      "https://github.com/someone/santorini",
			BuildScript: "make",
		}

		oracle, err := manager.NewOracle("santorini")
		require.NoError(t, err)
		require.Equal(t, "https://github.com/someone/santorini", oracle.URL)
		require.Equal(t, "someone", oracle.Author)
		require.Equal(t, "make", oracle.Info.BuildScript)
	})
}

func TestLockfile(t *testing.T) {
	manager := newManager(t)

	oracle, err := manager.NewOracle("someone/santorini")
	require.NoError(t, err)

	manager.Oracles.AddVersion(oracle, "v1.0")
	manager.Oracles.AddVersion(oracle, "v1.1")
	manager.Oracles.AddVersion(oracle, "v1.0")
	manager.Oracles.SetMainVersion("santorini", "v1.1")
	require.NoError(t, manager.Save())

	loaded, err := LoadOracles(manager.Paths.OraclesFile)
	require.NoError(t, err)
	require.Equal(t, OracleInfoList{
		"santorini": {
			Author:   "someone",
			Source:   "https://github.com/someone/santorini",
			Current:  "v1.1",
			Versions: []string{"v1.0", "v1.1"},
		},
	}, loaded)

	loaded.RemoveVersion("santorini", "v1.1")
	require.Equal(t, []string{"v1.0"}, loaded["santorini"].Versions)
	require.Empty(t, loaded["santorini"].Current)

	t.Run("missing lockfile", func(t *testing.T) {
		list, err := LoadOracles(filepath.Join(t.TempDir(), "oracles.yaml"))
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("malformed lockfile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "oracles.yaml")
		require.NoError(t, os.WriteFile(path, []byte("santorini: [1, 2"), 0644))

		_, err := LoadOracles(path)
		require.Error(t, err)
	})
}

func TestBinaries(t *testing.T) {
	manager := newManager(t)

	oracle, err := manager.NewOracle("someone/santorini")
	require.NoError(t, err)

	require.False(t, manager.Downloaded("santorini", "v1"))
	require.Error(t, manager.SetMain("santorini", "v1"))

	for _, version := range []string{"v1", "v2"} {
		binary := manager.VersionBinary("santorini", version)
		require.NoError(t, os.WriteFile(binary, []byte(version), 0755))
		manager.Oracles.AddVersion(oracle, version)
	}

	require.True(t, manager.Downloaded("santorini", "v1"))
	require.NoError(t, manager.SetMain("santorini", "v2"))

	data, err := os.ReadFile(manager.Binary("santorini"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))

	t.Run("remove version", func(t *testing.T) {
		require.NoError(t, manager.Remove("santorini", "v1"))
		require.False(t, manager.Downloaded("santorini", "v1"))
		require.FileExists(t, manager.Binary("santorini"))
		require.Equal(t, []string{"v2"}, manager.Oracles["santorini"].Versions)
	})

	t.Run("remove oracle", func(t *testing.T) {
		require.NoError(t, manager.Remove("santorini", ""))
		require.NoFileExists(t, manager.Binary("santorini"))
		require.False(t, manager.Downloaded("santorini", "v2"))
		require.NotContains(t, manager.Oracles, "santorini")

		require.Error(t, manager.Remove("santorini", ""))
	})
}

func TestLatestTag(t *testing.T) {
	hash := func(c byte) plumbing.Hash {
		var h plumbing.Hash
		h[0] = c
		return h
	}

	refs := []*plumbing.Reference{
		plumbing.NewHashReference("HEAD", hash(1)),
		plumbing.NewHashReference("refs/heads/main", hash(1)),
		plumbing.NewHashReference("refs/tags/v2", hash(2)),
		plumbing.NewHashReference("refs/tags/v10", hash(3)),
		plumbing.NewHashReference("refs/tags/v10^{}", hash(4)),
		plumbing.NewHashReference("refs/tags/v9", hash(5)),
	}

	stable := latestTag(refs)
	require.NotNil(t, stable)
	require.Equal(t, "v10", stable.Name().Short())
	require.Equal(t, hash(4), stable.Hash(), "annotated tags resolve to their commit")

	require.Nil(t, latestTag(refs[:2]))
	require.Equal(t, hash(2), peel(refs, refs[2]).Hash())
}

func TestScriptBuild(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "santorini-v1")

	require.NoError(t, scriptBuild(src, dst, "printf 'built' > "+BuildOutput+"\n"))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "built", string(data))

	t.Run("failing script", func(t *testing.T) {
		require.Error(t, scriptBuild(src, dst, "exit 3\n"))
	})

	t.Run("missing output", func(t *testing.T) {
		require.Error(t, scriptBuild(src, dst, "true\n"))
	})
}

func TestFindMakefile(t *testing.T) {
	src := t.TempDir()
	require.Empty(t, findMakefile(src))

	deep := filepath.Join(src, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(deep, "Makefile"), nil, 0644))
	require.Equal(t, deep, findMakefile(src))

	shallow := filepath.Join(src, "a")
	require.NoError(t, os.WriteFile(filepath.Join(shallow, "makefile"), nil, 0644))
	require.Equal(t, shallow, findMakefile(src))
}
