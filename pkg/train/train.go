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

// Package train runs episodic tabular Q-learning against an environment.
package train

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"laptudirm.com/x/tabula/pkg/checkpoint"
	"laptudirm.com/x/tabula/pkg/env"
	"laptudirm.com/x/tabula/pkg/oracle"
	"laptudirm.com/x/tabula/pkg/qtable"
	"laptudirm.com/x/tabula/pkg/stats"
)

var ErrNoActions = errors.New("train: agent has no valid actions")

// Trainer owns a Q-table and improves it by playing episodes. A Trainer
// is not safe for concurrent use.
type Trainer struct {
	Config Config

	Env   *env.Environment
	Table *qtable.Table

	// Store receives a snapshot every Config.CheckpointEvery episodes.
	// Snapshots are skipped if it is nil.
	Store *checkpoint.Store

	// Stats receives every aggregate if not nil.
	Stats *stats.Writer

	// Run identifies the training run in its snapshots.
	Run uuid.UUID

	// First is the number of the run's first episode. Runs resumed from a
	// snapshot continue after the snapshot's episode.
	First int

	epsilon Schedule
	window  *stats.Window
	rng     *rand.Rand
}

// New creates a trainer. rng is used for exploration only; the table
// has its own source for initializing rows.
func New(config Config, environment *env.Environment, table *qtable.Table, rng *rand.Rand) (*Trainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Trainer{
		Config: config,
		Env:    environment,
		Table:  table,
		Run:    uuid.New(),

		epsilon: Schedule{
			Start: config.Epsilon.Start,
			Begin: config.Epsilon.DecayStart,
			End:   config.Epsilon.DecayEnd,
		},
		window: stats.NewWindow(config.StatsEvery),
		rng:    rng,
	}, nil
}

// Aggregates returns the statistics collected so far.
func (trainer *Trainer) Aggregates() []stats.Aggregate {
	return trainer.window.Aggregates()
}

// Train plays Config.Episodes episodes. The only way to stop it early is
// to cancel ctx, which ends the run after the current step.
func (trainer *Trainer) Train(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"run":      trainer.Run,
		"first":    trainer.First,
		"episodes": trainer.Config.Episodes,
		"states":   trainer.Table.Len(),
		"policy":   trainer.Config.Exploration,
	}).Info("Starting training")

	if err := trainer.checkStore(); err != nil {
		return err
	}

	for i := 0; i < trainer.Config.Episodes; i++ {
		episode := trainer.First + i
		epsilon := trainer.epsilon.At(i)

		reward, err := trainer.Episode(ctx, epsilon)
		if err != nil {
			return errors.Wrapf(err, "episode %d", episode)
		}

		if episode%trainer.Config.CheckpointEvery == 0 && trainer.Store != nil {
			if _, err := trainer.Store.Save(&checkpoint.Checkpoint{
				Run:     trainer.Run,
				Episode: episode,
				Table:   trainer.Table,
			}); err != nil {
				return err
			}
		}

		if aggregate, ok := trainer.window.Add(episode, reward); ok {
			// The reported rate is the one left after this episode's decay.
			decayed := trainer.epsilon.At(i + 1)
			logrus.WithField("epsilon", decayed).Infof(
				"Episode: %5d, average reward: %6.1f, max: %6.1f, min: %6.1f, current epsilon: %1.2f, states: %d",
				episode, aggregate.Avg, aggregate.Max, aggregate.Min, decayed, trainer.Table.Len(),
			)

			if trainer.Stats != nil {
				if err := trainer.Stats.Write(aggregate); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// checkStore fails if a snapshot the run is going to take already exists,
// so that a clash is found before any episode is played.
func (trainer *Trainer) checkStore() error {
	if trainer.Store == nil || trainer.Config.Episodes == 0 {
		return nil
	}

	every := trainer.Config.CheckpointEvery
	first := trainer.First + (every-trainer.First%every)%every
	last := trainer.First + trainer.Config.Episodes - 1

	for episode := first; episode <= last; episode += every {
		path := trainer.Store.Path(episode)
		if _, err := os.Stat(path); err == nil {
			return errors.Wrap(checkpoint.ErrExists, path)
		} else if !os.IsNotExist(err) {
			return errors.Wrap(err, "train: check snapshots")
		}
	}

	return nil
}

// Episode plays one episode, updating the table after every step, and
// returns the total reward collected.
func (trainer *Trainer) Episode(ctx context.Context, epsilon float64) (float64, error) {
	state, err := trainer.Env.Reset(ctx)
	if err != nil {
		return 0, err
	}

	trainer.Table.Row(state)

	total := 0.0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		action, err := trainer.choose(ctx, state, epsilon)
		if err != nil {
			return total, err
		}

		next, reward, done, err := trainer.Env.Step(ctx, action)
		if err != nil {
			return total, err
		}

		total += reward
		trainer.Table.Row(next)

		logrus.WithFields(logrus.Fields{
			"action": action,
			"reward": reward,
			"state":  next,
		}).Trace("Step")

		if !done {
			trainer.Table.Bootstrap(state, action, reward, next, trainer.Config.LearningRate, trainer.Config.Discount)
			state = next
			continue
		}

		// Terminal transitions take the observed result as is.
		switch trainer.Env.Outcome() {
		case env.Won:
			trainer.Table.Assign(state, action, reward)
		case env.Lost:
			trainer.Table.Assign(state, action, trainer.Config.Rewards.Loss)
		case env.Illegal:
			if trainer.Config.PenalizeIllegal {
				trainer.Table.Assign(state, action, reward)
			}
		}

		return total, nil
	}
}

// choose picks the agent's action in state.
func (trainer *Trainer) choose(ctx context.Context, state oracle.State, epsilon float64) (oracle.Action, error) {
	valid, err := trainer.Env.ValidActions(ctx, oracle.Agent)
	if err != nil {
		return 0, err
	}

	if len(valid) == 0 {
		return 0, errors.Wrapf(ErrNoActions, "state %s", state)
	}

	if trainer.Config.Exploration == EpsilonGreedy && trainer.rng.Float64() < epsilon {
		return valid[trainer.rng.Intn(len(valid))], nil
	}

	action, _ := trainer.Table.Greedy(state, valid)
	return action, nil
}
