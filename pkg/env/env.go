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

// Package env presents a two-player oracle as a single-agent decision
// process. One Step is the agent's move followed by the opponent's reply.
package env

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/tabula/pkg/oracle"
)

// ErrEpisodeOver is returned by Step once the episode has reached a
// terminal state and Reset has not been called since.
var ErrEpisodeOver = errors.New("env: step after terminal state")

// Rewards are the constants handed out by Step.
type Rewards struct {
	// Win is paid when the agent wins. 0 frames the task as minimizing
	// moves, 100 makes wins and losses symmetric.
	Win float64 `yaml:"win"`

	// Loss is paid when the opponent wins or the agent plays an illegal
	// action.
	Loss float64 `yaml:"loss"`

	// Step is paid for every non-terminal step.
	Step float64 `yaml:"step"`
}

// DefaultRewards are the move-minimization rewards.
var DefaultRewards = Rewards{Win: 0, Loss: -100, Step: -1}

// Outcome classifies how a step ended.
type Outcome int

const (
	Ongoing Outcome = iota
	Won
	Lost
	Illegal
)

func (outcome Outcome) String() string {
	switch outcome {
	case Ongoing:
		return "ongoing"
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Illegal:
		return "illegal"
	default:
		return "?"
	}
}

// Environment wraps an oracle and the current position of an episode.
type Environment struct {
	oracle  oracle.Oracle
	rewards Rewards

	state   oracle.State
	outcome Outcome
	started bool
}

func New(o oracle.Oracle, rewards Rewards) *Environment {
	return &Environment{
		oracle:  o,
		rewards: rewards,
	}
}

// State returns the current position.
func (env *Environment) State() oracle.State {
	return env.state
}

// Outcome returns how the last Step ended.
func (env *Environment) Outcome() Outcome {
	return env.outcome
}

// Reset starts a new episode from a fresh initial position.
func (env *Environment) Reset(ctx context.Context) (oracle.State, error) {
	state, err := env.oracle.Generate(ctx)
	if err != nil {
		return "", errors.Wrap(err, "env: reset")
	}

	env.state = state
	env.outcome = Ongoing
	env.started = true

	logrus.WithField("state", state).Trace("Reset the environment")
	return state, nil
}

// ValidActions returns the actions player may perform in the current
// position. Actions outside [0, oracle.ActionN) are rejected with
// oracle.ErrMalformed whatever the backend.
func (env *Environment) ValidActions(ctx context.Context, player oracle.Player) ([]oracle.Action, error) {
	actions, err := env.oracle.LegalActions(ctx, env.state, player)
	if err != nil {
		return nil, errors.Wrapf(err, "env: valid actions of %s", player)
	}

	for _, action := range actions {
		if action < 0 || action >= oracle.ActionN {
			return nil, errors.Wrapf(oracle.ErrMalformed, "env: %s action %d out of range", player, action)
		}
	}

	return actions, nil
}

// Status returns the oracle's terminal flags for the current position,
// with a side that has no legal actions counted as having lost.
func (env *Environment) Status(ctx context.Context) (oracle.Status, error) {
	agent, err := env.ValidActions(ctx, oracle.Agent)
	if err != nil {
		return oracle.Status{}, err
	}

	opponent, err := env.ValidActions(ctx, oracle.Opponent)
	if err != nil {
		return oracle.Status{}, err
	}

	status, err := env.oracle.Status(ctx, env.state)
	if err != nil {
		return oracle.Status{}, errors.Wrap(err, "env: status")
	}

	status.You = status.You || len(opponent) == 0
	status.Them = status.Them || len(agent) == 0
	return status, nil
}

// Step plays action for the agent and, unless that ends the game, the
// opponent's reply. An action which leaves the position unchanged is
// illegal and ends the episode with the loss penalty.
func (env *Environment) Step(ctx context.Context, action oracle.Action) (oracle.State, float64, bool, error) {
	if !env.started || env.outcome != Ongoing {
		return env.state, 0, true, ErrEpisodeOver
	}

	next, err := env.oracle.Apply(ctx, env.state, action)
	if err != nil {
		return env.state, 0, true, errors.Wrapf(err, "env: apply %d", action)
	}

	if next == env.state {
		logrus.WithFields(logrus.Fields{
			"state":  env.state,
			"action": action,
		}).Debug("Agent played an illegal action")

		env.outcome = Illegal
		return env.state, env.rewards.Loss, true, nil
	}

	// agent moved
	env.state = next
	if reward, done, err := env.settle(ctx); err != nil || done {
		return env.state, reward, done, err
	}

	// opponent moved
	next, err = env.oracle.AdvanceOpponent(ctx, env.state)
	if err != nil {
		return env.state, 0, true, errors.Wrap(err, "env: advance opponent")
	}

	env.state = next
	if reward, done, err := env.settle(ctx); err != nil || done {
		return env.state, reward, done, err
	}

	return env.state, env.rewards.Step, false, nil
}

// settle checks the current position for a result and records it.
func (env *Environment) settle(ctx context.Context) (float64, bool, error) {
	status, err := env.Status(ctx)
	if err != nil {
		return 0, true, err
	}

	switch {
	case status.You:
		env.outcome = Won
		return env.rewards.Win, true, nil
	case status.Them:
		env.outcome = Lost
		return env.rewards.Loss, true, nil
	default:
		return 0, false, nil
	}
}
