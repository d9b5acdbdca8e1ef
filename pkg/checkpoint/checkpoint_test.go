package checkpoint

import (
	"bytes"
	"encoding/gob"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"laptudirm.com/x/tabula/pkg/oracle"
	"laptudirm.com/x/tabula/pkg/qtable"
)

func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func newCheckpoint(episode int) *Checkpoint {
	table := qtable.New(newRNG())
	for _, state := range []oracle.State{"b|0|1", "a|2|0", "c|1|1"} {
		table.Row(state)
	}

	// Values which do not survive a decimal round trip.
	table.Assign("a|2|0", 5, math.Nextafter(-1.0/3, 0))
	table.Assign("a|2|0", 6, math.SmallestNonzeroFloat64)

	return &Checkpoint{Run: uuid.New(), Episode: episode, Table: table}
}

func requireSameTable(t *testing.T, want, got *qtable.Table) {
	t.Helper()

	require.Equal(t, want.Len(), got.Len())
	want.Range(func(state oracle.State, row *qtable.Row) bool {
		require.True(t, got.Has(state), "missing state %q", state)

		other := got.Row(state)
		for i := range row {
			require.Equal(t, math.Float64bits(row[i]), math.Float64bits(other[i]),
				"state %q action %d", state, i)
		}
		return true
	})
}

func TestRoundTrip(t *testing.T) {
	original := newCheckpoint(300)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, original))

	restored, err := Read(&buf, newRNG())
	require.NoError(t, err)
	require.Equal(t, original.Run, restored.Run)
	require.Equal(t, 300, restored.Episode)
	requireSameTable(t, original.Table, restored.Table)
}

func TestReadRejectsMalformed(t *testing.T) {
	encode := func(values ...any) *bytes.Buffer {
		var buf bytes.Buffer
		encoder := gob.NewEncoder(&buf)
		for _, value := range values {
			require.NoError(t, encoder.Encode(value))
		}
		return &buf
	}

	good := make([]float64, oracle.ActionN)

	tests := []struct {
		name string
		data *bytes.Buffer
	}{
		{"empty", &bytes.Buffer{}},
		{"version", encode(header{Version: 99, Actions: oracle.ActionN})},
		{"action count", encode(header{Version: Version, Actions: 64})},
		{"short vector", encode(header{Version: Version, Actions: oracle.ActionN, States: 1}, entry{State: "s", Q: good[:3]})},
		{"missing entries", encode(header{Version: Version, Actions: oracle.ActionN, States: 2}, entry{State: "s", Q: good})},
		{"duplicate state", encode(header{Version: Version, Actions: oracle.ActionN, States: 2}, entry{State: "s", Q: good}, entry{State: "s", Q: good})},
		{"empty state", encode(header{Version: Version, Actions: oracle.ActionN, States: 1}, entry{State: "", Q: good})},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Read(test.data, newRNG())
			require.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestStore(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "run"))
	require.NoError(t, err)

	t.Run("empty store", func(t *testing.T) {
		_, err := store.Latest()
		require.True(t, errors.Is(err, ErrNoCheckpoint))
	})

	for _, episode := range []int{0, 100, 1000, 200} {
		path, err := store.Save(newCheckpoint(episode))
		require.NoError(t, err)
		require.Equal(t, store.Path(episode), path)
	}

	t.Run("never overwrites", func(t *testing.T) {
		before, err := os.ReadFile(store.Path(100))
		require.NoError(t, err)

		_, err = store.Save(newCheckpoint(100))
		require.True(t, errors.Is(err, ErrExists))

		after, err := os.ReadFile(store.Path(100))
		require.NoError(t, err)
		require.Equal(t, before, after)
	})

	t.Run("list in episode order", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "notes.txt"), nil, 0644))

		entries, err := store.List()
		require.NoError(t, err)

		var episodes []int
		for _, entry := range entries {
			episodes = append(episodes, entry.Episode)
			require.Positive(t, entry.Size)
		}
		require.Equal(t, []int{0, 100, 200, 1000}, episodes)
	})

	t.Run("no temporary files left behind", func(t *testing.T) {
		matches, err := filepath.Glob(filepath.Join(store.Dir, ".qtable-*"))
		require.NoError(t, err)
		require.Empty(t, matches)
	})

	t.Run("resolve", func(t *testing.T) {
		path, err := store.Resolve("latest")
		require.NoError(t, err)
		require.Equal(t, store.Path(1000), path)

		path, err = store.Resolve("200")
		require.NoError(t, err)
		require.Equal(t, store.Path(200), path)

		path, err = store.Resolve(store.Path(0))
		require.NoError(t, err)
		require.Equal(t, store.Path(0), path)

		_, err = store.Resolve("300")
		require.True(t, errors.Is(err, ErrNoCheckpoint))
	})

	t.Run("load", func(t *testing.T) {
		original := newCheckpoint(5000)
		path, err := store.Save(original)
		require.NoError(t, err)

		loaded, err := Load(path, newRNG())
		require.NoError(t, err)
		require.Equal(t, 5000, loaded.Episode)
		requireSameTable(t, original.Table, loaded.Table)
	})
}
