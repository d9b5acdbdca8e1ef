// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Stages is a chain of invocations of the oracle binary. The first
// stage receives the operation's input on stdin and every later stage
// receives the trimmed stdout of the previous one, like a shell pipe.
type Stages [][]string

// Operations maps every oracle operation to its stages. The argument
// placeholders {player} and {action} are substituted per query.
type Operations struct {
	Generate        Stages `yaml:"generate"`
	LegalActions    Stages `yaml:"legal-actions"`
	Apply           Stages `yaml:"apply"`
	AdvanceOpponent Stages `yaml:"advance-opponent"`
	Status          Stages `yaml:"status"`
}

// DefaultOperations are the flag chains understood by the reference
// santorini engine: -u and -v unpack and pack the state token, -g
// generates, -o lists a player's actions, -a applies an action, -s -t
// play the opponent's turn, and --state reports the terminal flags.
var DefaultOperations = Operations{
	Generate:        Stages{{"-g"}, {"-v"}},
	LegalActions:    Stages{{"-u"}, {"-o", "{player}"}},
	Apply:           Stages{{"-u"}, {"-a", "{action}"}, {"-v"}},
	AdvanceOpponent: Stages{{"-u"}, {"-s"}, {"-t"}, {"-v"}},
	Status:          Stages{{"-u"}, {"--state"}},
}

type PipelineConfig struct {
	Cmd string `yaml:"cmd"`
	Dir string `yaml:"dir"`

	// Timeout bounds a single query. Zero waits forever.
	Timeout time.Duration `yaml:"timeout"`

	Ops Operations `yaml:"ops"`
}

// Pipeline is an Oracle backed by repeated invocations of an engine
// binary which reads a state on stdin and writes a result on stdout.
type Pipeline struct {
	config PipelineConfig
}

var _ Oracle = (*Pipeline)(nil)

// NewPipeline creates a Pipeline from config. Operations left empty in
// the config fall back to DefaultOperations.
func NewPipeline(config PipelineConfig) (*Pipeline, error) {
	if config.Cmd == "" {
		return nil, errors.New("oracle: no engine command configured")
	}

	if _, err := exec.LookPath(config.Cmd); err != nil {
		return nil, errors.Wrapf(err, "oracle: engine %s", config.Cmd)
	}

	fill := func(stages *Stages, fallback Stages) {
		if len(*stages) == 0 {
			*stages = fallback
		}
	}

	fill(&config.Ops.Generate, DefaultOperations.Generate)
	fill(&config.Ops.LegalActions, DefaultOperations.LegalActions)
	fill(&config.Ops.Apply, DefaultOperations.Apply)
	fill(&config.Ops.AdvanceOpponent, DefaultOperations.AdvanceOpponent)
	fill(&config.Ops.Status, DefaultOperations.Status)

	return &Pipeline{config: config}, nil
}

func (pipeline *Pipeline) Generate(ctx context.Context) (State, error) {
	out, err := pipeline.query(ctx, "generate", pipeline.config.Ops.Generate, nil, "")
	if err != nil {
		return "", err
	}

	return pipeline.state("generate", out)
}

func (pipeline *Pipeline) LegalActions(ctx context.Context, state State, player Player) ([]Action, error) {
	vars := map[string]string{"{player}": strconv.Itoa(int(player))}
	out, err := pipeline.query(ctx, "legal-actions", pipeline.config.Ops.LegalActions, vars, state)
	if err != nil {
		return nil, err
	}

	var actions []Action
	if err := json.Unmarshal([]byte(out), &actions); err != nil {
		return nil, &QueryError{Op: "legal-actions", Stage: -1, Err: errors.Wrap(ErrMalformed, err.Error())}
	}

	for _, action := range actions {
		if action < 0 || action >= ActionN {
			return nil, &QueryError{
				Op: "legal-actions", Stage: -1,
				Err: errors.Wrapf(ErrMalformed, "action %d out of range", action),
			}
		}
	}

	return actions, nil
}

func (pipeline *Pipeline) Apply(ctx context.Context, state State, action Action) (State, error) {
	vars := map[string]string{"{action}": strconv.Itoa(int(action))}
	out, err := pipeline.query(ctx, "apply", pipeline.config.Ops.Apply, vars, state)
	if err != nil {
		return "", err
	}

	return pipeline.state("apply", out)
}

func (pipeline *Pipeline) AdvanceOpponent(ctx context.Context, state State) (State, error) {
	out, err := pipeline.query(ctx, "advance-opponent", pipeline.config.Ops.AdvanceOpponent, nil, state)
	if err != nil {
		return "", err
	}

	return pipeline.state("advance-opponent", out)
}

func (pipeline *Pipeline) Status(ctx context.Context, state State) (Status, error) {
	out, err := pipeline.query(ctx, "status", pipeline.config.Ops.Status, nil, state)
	if err != nil {
		return Status{}, err
	}

	var status Status
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		return Status{}, &QueryError{Op: "status", Stage: -1, Err: errors.Wrap(ErrMalformed, err.Error())}
	}

	return status, nil
}

func (pipeline *Pipeline) state(op, out string) (State, error) {
	if out == "" || strings.ContainsAny(out, "\n\r") {
		return "", &QueryError{Op: op, Stage: -1, Err: errors.Wrapf(ErrMalformed, "bad state token %q", out)}
	}

	return State(out), nil
}

// query runs the stages of an operation in order, feeding input to the
// first one, and returns the trimmed output of the last stage.
func (pipeline *Pipeline) query(ctx context.Context, op string, stages Stages, vars map[string]string, input State) (string, error) {
	if pipeline.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pipeline.config.Timeout)
		defer cancel()
	}

	data := string(input)
	for i, stage := range stages {
		args := make([]string, len(stage))
		for j, arg := range stage {
			if value, found := vars[arg]; found {
				arg = value
			}
			args[j] = arg
		}

		logrus.Tracef("\x1b[34m%s\x1b[0m %s <<< %s", pipeline.config.Cmd, strings.Join(args, " "), data)

		cmd := exec.CommandContext(ctx, pipeline.config.Cmd, args...)
		cmd.Dir = pipeline.config.Dir
		cmd.WaitDelay = time.Second

		// The first stage of a generating operation has nothing to read.
		if i > 0 || input != "" {
			cmd.Stdin = strings.NewReader(data + "\n")
		}

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = ErrTimeout
			} else if ctx.Err() != nil {
				err = ctx.Err()
			}

			return "", &QueryError{Op: op, Stage: i, Stderr: stderr.String(), Err: err}
		}

		data = strings.TrimSpace(stdout.String())
	}

	logrus.Tracef("\x1b[34m%s\x1b[0m >>> %s", op, data)
	return data, nil
}
