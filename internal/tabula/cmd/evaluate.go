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
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"laptudirm.com/x/tabula/pkg/checkpoint"
	"laptudirm.com/x/tabula/pkg/common"
	"laptudirm.com/x/tabula/pkg/env"
	"laptudirm.com/x/tabula/pkg/oracle"
	"laptudirm.com/x/tabula/pkg/train"
)

func Evaluate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [snapshot]",
		Short: "Play greedy games with a trained Q-table",
		Args:  cobra.MaximumNArgs(1),
		Long: heredoc.Doc(`evaluate plays games against the oracle with a snapshot
			of a run's Q-table, always picking the best scored action and
			never updating the table. The snapshot may be an episode number
			of the run, a path, or "latest", which is the default.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := common.DefaultPaths()

			config, err := loadConfig(cmd, paths)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("win") {
				config.Rewards.Win, _ = cmd.Flags().GetFloat64("win")
			}

			run, _ := cmd.Flags().GetString("run")
			store, err := checkpoint.Open(paths.Run(run))
			if err != nil {
				return err
			}

			name := "latest"
			if len(args) == 1 {
				name = args[0]
			}

			snapshot, err := restore(store, name, rand.New(rand.NewSource(config.Seed)))
			if err != nil {
				return err
			}

			pipeline, err := oracle.NewPipeline(config.Oracle)
			if err != nil {
				return err
			}

			games, _ := cmd.Flags().GetInt("games")
			if games < 1 {
				return errors.Errorf("invalid number of games %d", games)
			}

			report, err := train.Evaluate(cmd.Context(), env.New(pipeline, config.Rewards), snapshot.Table, games)
			if err != nil {
				return err
			}

			fmt.Printf("%s %d games with the snapshot of episode %d\n\n",
				aurora.Green("Played"), report.Games, snapshot.Episode)
			fmt.Printf("- %-8s %d\n", aurora.Blue("wins:"), report.Wins)
			fmt.Printf("- %-8s %d\n", aurora.Blue("losses:"), report.Losses)
			fmt.Printf("- %-8s %d\n", aurora.Blue("illegal:"), report.Illegal)
			fmt.Printf("- %-8s %d\n", aurora.Blue("steps:"), report.Steps)
			fmt.Printf("- %-8s avg %.2f, max %.2f, min %.2f\n", aurora.Blue("reward:"),
				report.Rewards.Avg, report.Rewards.Max, report.Rewards.Min)

			return nil
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().StringP("run", "r", DefaultRun, "Name of the training run")
	cmd.Flags().IntP("games", "g", 100, "Number of games to play")
	cmd.Flags().Float64("win", 0, "Reward for winning a game")

	return cmd
}
