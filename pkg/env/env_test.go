package env

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"laptudirm.com/x/tabula/pkg/oracle"
	"laptudirm.com/x/tabula/pkg/oracle/oracletest"
)

// newScript returns a game with one quiet move, one winning move and
// one losing move out of S0, plus an action which is listed as legal
// but which the oracle refuses to perform.
func newScript() *oracletest.Script {
	return oracletest.NewScript("S0").
		Move("S0", 1, "S1").Reply("S1", "S2").
		Move("S0", 2, "SW").
		Move("S0", 3, "SL").Reply("SL", "SL2").
		Allow("S0", oracle.Agent, 7).
		Allow("S0", oracle.Opponent, 0).
		Allow("S1", oracle.Agent, 0).Allow("S1", oracle.Opponent, 0).
		Allow("S2", oracle.Agent, 0).Allow("S2", oracle.Opponent, 0).
		Allow("SW", oracle.Agent, 0).Allow("SW", oracle.Opponent, 0).
		Allow("SL", oracle.Agent, 0).Allow("SL", oracle.Opponent, 0).
		Allow("SL2", oracle.Agent, 0).Allow("SL2", oracle.Opponent, 0).
		Finish("SW", oracle.Status{You: true}).
		Finish("SL2", oracle.Status{Them: true})
}

func TestReset(t *testing.T) {
	script := newScript()
	env := New(script.Oracle(), DefaultRewards)

	state, err := env.Reset(context.Background())
	require.NoError(t, err)
	require.Equal(t, oracle.State("S0"), state)
	require.Equal(t, state, env.State())
}

func TestValidActionsIsSideEffectFree(t *testing.T) {
	ctx := context.Background()
	env := New(newScript().Oracle(), DefaultRewards)
	_, err := env.Reset(ctx)
	require.NoError(t, err)

	first, err := env.ValidActions(ctx, oracle.Agent)
	require.NoError(t, err)
	second, err := env.ValidActions(ctx, oracle.Agent)
	require.NoError(t, err)

	require.Equal(t, []oracle.Action{1, 2, 3, 7}, first)
	require.Equal(t, first, second)
	require.Equal(t, oracle.State("S0"), env.State())
}

func TestStatusStalemate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		agent    []oracle.Action
		opponent []oracle.Action
		raw      oracle.Status
		want     oracle.Status
	}{
		{"ongoing", []oracle.Action{1}, []oracle.Action{1}, oracle.Status{}, oracle.Status{}},
		{"raw win", []oracle.Action{1}, []oracle.Action{1}, oracle.Status{You: true}, oracle.Status{You: true}},
		{"agent has no moves", nil, []oracle.Action{1}, oracle.Status{}, oracle.Status{Them: true}},
		{"opponent has no moves", []oracle.Action{1}, nil, oracle.Status{}, oracle.Status{You: true}},
		{"no moves overrides raw flags", nil, []oracle.Action{1}, oracle.Status{You: true}, oracle.Status{You: true, Them: true}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			script := oracletest.NewScript("S").
				Allow("S", oracle.Agent, test.agent...).
				Allow("S", oracle.Opponent, test.opponent...).
				Finish("S", test.raw)

			env := New(script.Oracle(), DefaultRewards)
			_, err := env.Reset(ctx)
			require.NoError(t, err)

			status, err := env.Status(ctx)
			require.NoError(t, err)
			require.Equal(t, test.want, status)
		})
	}
}

func TestStep(t *testing.T) {
	ctx := context.Background()

	for _, win := range []float64{0, 100} {
		rewards := Rewards{Win: win, Loss: -100, Step: -1}

		t.Run("illegal action", func(t *testing.T) {
			env := New(newScript().Oracle(), rewards)
			_, err := env.Reset(ctx)
			require.NoError(t, err)

			state, reward, done, err := env.Step(ctx, 7)
			require.NoError(t, err)
			require.Equal(t, oracle.State("S0"), state)
			require.Equal(t, -100.0, reward)
			require.True(t, done)
			require.Equal(t, Illegal, env.Outcome())
		})

		t.Run("agent wins", func(t *testing.T) {
			script := newScript()
			env := New(script.Oracle(), rewards)
			_, err := env.Reset(ctx)
			require.NoError(t, err)

			state, reward, done, err := env.Step(ctx, 2)
			require.NoError(t, err)
			require.Equal(t, oracle.State("SW"), state)
			require.Equal(t, win, reward)
			require.True(t, done)
			require.Zero(t, script.Calls["advance-opponent"])
		})

		t.Run("opponent wins after reply", func(t *testing.T) {
			env := New(newScript().Oracle(), rewards)
			_, err := env.Reset(ctx)
			require.NoError(t, err)

			state, reward, done, err := env.Step(ctx, 3)
			require.NoError(t, err)
			require.Equal(t, oracle.State("SL2"), state)
			require.Equal(t, -100.0, reward)
			require.True(t, done)
			require.Equal(t, Lost, env.Outcome())
		})

		t.Run("quiet move", func(t *testing.T) {
			env := New(newScript().Oracle(), rewards)
			_, err := env.Reset(ctx)
			require.NoError(t, err)

			state, reward, done, err := env.Step(ctx, 1)
			require.NoError(t, err)
			require.Equal(t, oracle.State("S2"), state)
			require.Equal(t, -1.0, reward)
			require.False(t, done)
		})
	}
}

func TestStepStalemateLoss(t *testing.T) {
	ctx := context.Background()

	// After the move the agent is left without legal actions.
	script := oracletest.NewScript("S0").
		Move("S0", 1, "S1").
		Allow("S0", oracle.Opponent, 0).
		Allow("S1", oracle.Opponent, 0)

	env := New(script.Oracle(), DefaultRewards)
	_, err := env.Reset(ctx)
	require.NoError(t, err)

	_, reward, done, err := env.Step(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, -100.0, reward)
	require.True(t, done)
	require.Equal(t, Lost, env.Outcome())
}

func TestTerminalIsAbsorbing(t *testing.T) {
	ctx := context.Background()
	env := New(newScript().Oracle(), DefaultRewards)

	_, _, _, err := env.Step(ctx, 1)
	require.True(t, errors.Is(err, ErrEpisodeOver), "step before reset")

	_, err = env.Reset(ctx)
	require.NoError(t, err)

	_, _, done, err := env.Step(ctx, 2)
	require.NoError(t, err)
	require.True(t, done)

	_, _, _, err = env.Step(ctx, 1)
	require.True(t, errors.Is(err, ErrEpisodeOver))

	_, err = env.Reset(ctx)
	require.NoError(t, err)

	_, _, done, err = env.Step(ctx, 1)
	require.NoError(t, err)
	require.False(t, done)
}

func TestOracleFailureIsReturned(t *testing.T) {
	env := New(&oracle.Func{}, DefaultRewards)

	_, err := env.Reset(context.Background())
	require.True(t, errors.Is(err, oracle.ErrUnsupported))
}

func TestValidActionsOutOfRange(t *testing.T) {
	ctx := context.Background()

	for _, actions := range [][]oracle.Action{{3, oracle.ActionN}, {-1}} {
		env := New(&oracle.Func{
			GenerateFunc: func() oracle.State { return "S0" },
			LegalActionsFunc: func(oracle.State, oracle.Player) []oracle.Action {
				return actions
			},
		}, DefaultRewards)

		_, err := env.Reset(ctx)
		require.NoError(t, err)

		_, err = env.ValidActions(ctx, oracle.Agent)
		require.True(t, errors.Is(err, oracle.ErrMalformed), "actions %v", actions)

		_, err = env.Status(ctx)
		require.True(t, errors.Is(err, oracle.ErrMalformed), "actions %v", actions)
	}
}
