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

package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"laptudirm.com/x/tabula/pkg/checkpoint"
	"laptudirm.com/x/tabula/pkg/common"
	"laptudirm.com/x/tabula/pkg/env"
	"laptudirm.com/x/tabula/pkg/oracle"
	"laptudirm.com/x/tabula/pkg/qtable"
	"laptudirm.com/x/tabula/pkg/stats"
	"laptudirm.com/x/tabula/pkg/train"
)

// StatsFile is the name of the statistics file kept in a run's directory.
const StatsFile = "stats.csv"

func Train() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a Q-table against the oracle",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`train plays episodes against the oracle and updates a
			Q-table after every step. A snapshot of the table is written to
			the run's directory every checkpoint-every episodes, and reward
			statistics over every stats-every episodes are logged and
			appended to stats.csv next to the snapshots.

			With --resume the run continues from its latest snapshot, and
			with --from from the given one, which may be an episode number
			of the run or a path. Episode numbers continue after the
			snapshot's episode. Without either flag an empty table is used.

			Interrupting the command stops the run after the current step.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := common.DefaultPaths()
			if err := paths.Setup(); err != nil {
				return err
			}

			config, err := loadConfig(cmd, paths)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("episodes") {
				config.Episodes, _ = cmd.Flags().GetInt("episodes")
			}

			if cmd.Flags().Changed("win") {
				config.Rewards.Win, _ = cmd.Flags().GetFloat64("win")
			}

			if cmd.Flags().Changed("seed") {
				config.Seed, _ = cmd.Flags().GetUint64("seed")
			}

			if config.Seed == 0 {
				config.Seed = uint64(time.Now().UnixNano())
			}

			run, _ := cmd.Flags().GetString("run")
			store, err := checkpoint.Open(paths.Run(run))
			if err != nil {
				return err
			}

			resume, _ := cmd.Flags().GetBool("resume")
			from, _ := cmd.Flags().GetString("from")
			if resume && from == "" {
				from = "latest"
			}

			if from == "" {
				if entries, err := store.List(); err != nil {
					return err
				} else if len(entries) > 0 {
					return errors.Errorf("run %s already has snapshots; use --resume or another --run", run)
				}
			}

			tableRNG := rand.New(rand.NewSource(config.Seed))
			snapshot, err := restore(store, from, tableRNG)
			if err != nil {
				return err
			}

			pipeline, err := oracle.NewPipeline(config.Oracle)
			if err != nil {
				return err
			}

			environment := env.New(pipeline, config.Rewards)
			trainer, err := train.New(config, environment, snapshot.Table, rand.New(rand.NewSource(config.Seed+1)))
			if err != nil {
				return err
			}

			trainer.Store = store
			if from != "" {
				trainer.Run = snapshot.Run
				trainer.First = snapshot.Episode + 1
			}

			writer, err := stats.Create(filepath.Join(store.Dir, StatsFile))
			if err != nil {
				return err
			}
			trainer.Stats = writer

			logrus.WithFields(logrus.Fields{
				"run":    run,
				"oracle": config.Oracle.Cmd,
				"seed":   config.Seed,
			}).Debug("Prepared training run")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = trainer.Train(ctx)
			if closeErr := writer.Close(); err == nil {
				err = closeErr
			}

			if errors.Is(err, context.Canceled) {
				logrus.Warn("Training interrupted")
				return nil
			}

			return err
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().StringP("run", "r", DefaultRun, "Name of the training run")
	cmd.Flags().Bool("resume", false, "Continue from the run's latest snapshot")
	cmd.Flags().String("from", "", "Continue from the given snapshot")
	cmd.Flags().IntP("episodes", "n", 0, "Number of episodes to play")
	cmd.Flags().Float64("win", 0, "Reward for winning a game")
	cmd.Flags().Uint64("seed", 0, "Seed of the table's random source")

	return cmd
}

// restore loads the named snapshot from store, or returns an empty table
// for a fresh run if name is empty.
func restore(store *checkpoint.Store, name string, rng *rand.Rand) (*checkpoint.Checkpoint, error) {
	if name == "" {
		return &checkpoint.Checkpoint{
			Run:     uuid.New(),
			Episode: -1,
			Table:   qtable.New(rng),
		}, nil
	}

	path, err := store.Resolve(name)
	if err != nil {
		return nil, err
	}

	snapshot, err := checkpoint.Load(path, rng)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"run":     snapshot.Run,
		"episode": snapshot.Episode,
		"states":  snapshot.Table.Len(),
	}).Infof("Loaded snapshot %s", path)

	return snapshot, nil
}
