package oracle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const fakeEngine = `#!/bin/sh
case "$1" in
  -g) echo "s0" ;;
  -u|-v|-s) cat ;;
  -t) read s; echo "${s}t" ;;
  -o) cat >/dev/null; if [ "$2" = "0" ]; then echo "[3,1,4]"; else echo "[]"; fi ;;
  -a) read s; echo "${s}a$2" ;;
  --state) cat >/dev/null; echo '{"you":true,"them":false}' ;;
  --junk) cat >/dev/null; echo "not json" ;;
  --range) cat >/dev/null; echo "[1,128]" ;;
  --sleep) exec sleep 5 ;;
  *) echo "bad flag $1" >&2; exit 2 ;;
esac
`

func newFakePipeline(t *testing.T, ops Operations, timeout time.Duration) *Pipeline {
	t.Helper()

	path := filepath.Join(t.TempDir(), "engine")
	require.NoError(t, os.WriteFile(path, []byte(fakeEngine), 0755))

	pipeline, err := NewPipeline(PipelineConfig{Cmd: path, Timeout: timeout, Ops: ops})
	require.NoError(t, err)
	return pipeline
}

func TestPipelineOperations(t *testing.T) {
	ctx := context.Background()
	pipeline := newFakePipeline(t, Operations{}, 0)

	t.Run("generate", func(t *testing.T) {
		state, err := pipeline.Generate(ctx)
		require.NoError(t, err)
		require.Equal(t, State("s0"), state)
	})

	t.Run("legal actions keep engine order", func(t *testing.T) {
		actions, err := pipeline.LegalActions(ctx, "s0", Agent)
		require.NoError(t, err)
		require.Equal(t, []Action{3, 1, 4}, actions)

		actions, err = pipeline.LegalActions(ctx, "s0", Opponent)
		require.NoError(t, err)
		require.Empty(t, actions)
	})

	t.Run("apply substitutes the action", func(t *testing.T) {
		state, err := pipeline.Apply(ctx, "s0", 17)
		require.NoError(t, err)
		require.Equal(t, State("s0a17"), state)
	})

	t.Run("advance opponent", func(t *testing.T) {
		state, err := pipeline.AdvanceOpponent(ctx, "s0")
		require.NoError(t, err)
		require.Equal(t, State("s0t"), state)
	})

	t.Run("status", func(t *testing.T) {
		status, err := pipeline.Status(ctx, "s0")
		require.NoError(t, err)
		require.Equal(t, Status{You: true}, status)
	})
}

func TestPipelineFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing engine", func(t *testing.T) {
		_, err := NewPipeline(PipelineConfig{Cmd: filepath.Join(t.TempDir(), "missing")})
		require.Error(t, err)
	})

	t.Run("non-zero exit carries stderr", func(t *testing.T) {
		pipeline := newFakePipeline(t, Operations{Generate: Stages{{"-g"}, {"--nope"}}}, 0)

		_, err := pipeline.Generate(ctx)
		var queryErr *QueryError
		require.True(t, errors.As(err, &queryErr))
		require.Equal(t, "generate", queryErr.Op)
		require.Equal(t, 1, queryErr.Stage)
		require.Contains(t, err.Error(), "bad flag --nope")
	})

	t.Run("malformed json", func(t *testing.T) {
		pipeline := newFakePipeline(t, Operations{Status: Stages{{"--junk"}}}, 0)

		_, err := pipeline.Status(ctx, "s0")
		require.True(t, errors.Is(err, ErrMalformed))
	})

	t.Run("action out of range", func(t *testing.T) {
		pipeline := newFakePipeline(t, Operations{LegalActions: Stages{{"--range"}}}, 0)

		_, err := pipeline.LegalActions(ctx, "s0", Agent)
		require.True(t, errors.Is(err, ErrMalformed))
	})

	t.Run("timeout", func(t *testing.T) {
		pipeline := newFakePipeline(t, Operations{Status: Stages{{"--sleep"}}}, 50*time.Millisecond)

		_, err := pipeline.Status(ctx, "s0")
		require.True(t, errors.Is(err, ErrTimeout))
	})
}

func TestFuncUnsupported(t *testing.T) {
	_, err := (&Func{}).Generate(context.Background())
	require.True(t, errors.Is(err, ErrUnsupported))
}
