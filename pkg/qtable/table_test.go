package qtable

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"laptudirm.com/x/tabula/pkg/oracle"
)

func newTable(seed uint64) *Table {
	return New(rand.New(rand.NewSource(seed)))
}

func TestRowInitialization(t *testing.T) {
	table := newTable(1)

	for _, state := range []oracle.State{"a", "b", "c"} {
		row := table.Row(state)
		require.Len(t, row, oracle.ActionN)

		for _, q := range row {
			require.GreaterOrEqual(t, q, InitLow)
			require.Less(t, q, InitHigh)
		}
	}

	t.Run("rows are allocated once", func(t *testing.T) {
		first := *table.Row("a")
		require.Equal(t, first, *table.Row("a"))
		require.Equal(t, 3, table.Len())
	})

	t.Run("entries are sampled independently", func(t *testing.T) {
		row := table.Row("d")
		distinct := map[float64]bool{}
		for _, q := range row {
			distinct[q] = true
		}
		require.Greater(t, len(distinct), oracle.ActionN/2)
	})

	t.Run("same seed same table", func(t *testing.T) {
		require.Equal(t, *newTable(7).Row("x"), *newTable(7).Row("x"))
	})
}

func TestGreedy(t *testing.T) {
	table := newTable(1)

	var row Row
	row[3], row[5], row[9] = 1, 4, 4
	table.Set("s", row)

	t.Run("restricted to the valid set", func(t *testing.T) {
		best, ok := table.Greedy("s", []oracle.Action{0, 3})
		require.True(t, ok)
		require.Equal(t, oracle.Action(3), best)
	})

	t.Run("first maximum wins", func(t *testing.T) {
		best, _ := table.Greedy("s", []oracle.Action{9, 5})
		require.Equal(t, oracle.Action(9), best)

		best, _ = table.Greedy("s", []oracle.Action{5, 9})
		require.Equal(t, oracle.Action(5), best)
	})

	t.Run("empty valid set", func(t *testing.T) {
		_, ok := table.Greedy("s", nil)
		require.False(t, ok)
	})

	t.Run("unseen state is allocated", func(t *testing.T) {
		_, ok := table.Greedy("new", []oracle.Action{1})
		require.True(t, ok)
		require.True(t, table.Has("new"))
	})
}

func TestBootstrap(t *testing.T) {
	const alpha, gamma, reward = 0.1, 0.95, -1.0

	table := newTable(1)

	var next Row
	for i := range next {
		next[i] = -3
	}
	next[10] = 2
	table.Set("next", next)

	var row Row
	row[4] = -10
	table.Set("s", row)

	target := reward + gamma*2

	got := table.Bootstrap("s", 4, reward, "next", alpha, gamma)
	require.InDelta(t, 0.9*-10+0.1*target, got, 1e-12)

	t.Run("converges monotonically toward the target", func(t *testing.T) {
		for _, alpha := range []float64{0.1, 0.5, 1} {
			table.Assign("s", 4, -10)

			previous := math.Abs(-10 - target)
			for i := 0; i < 50; i++ {
				q := table.Bootstrap("s", 4, reward, "next", alpha, gamma)
				distance := math.Abs(q - target)
				require.LessOrEqual(t, distance, previous+1e-12)
				previous = distance
			}
			require.InDelta(t, target, table.Row("s")[4], 0.1)
		}
	})

	t.Run("unseen successor is allocated before the read", func(t *testing.T) {
		table.Bootstrap("s", 4, reward, "fresh", alpha, gamma)
		require.True(t, table.Has("fresh"))
	})
}

func TestAssignOverridesBootstrap(t *testing.T) {
	table := newTable(3)

	table.Bootstrap("s", 2, -1, "t", 0.1, 0.95)
	table.Assign("s", 2, 100)
	require.Equal(t, 100.0, table.Row("s")[2])
}
