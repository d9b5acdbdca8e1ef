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
	"os"
	"sort"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"laptudirm.com/x/tabula/pkg/checkpoint"
	"laptudirm.com/x/tabula/pkg/common"
	"laptudirm.com/x/tabula/pkg/oracle"
	"laptudirm.com/x/tabula/pkg/qtable"
)

func Checkpoints() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Inspect the snapshots of training runs",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(listCheckpoints())
	cmd.AddCommand(inspectCheckpoint())
	return cmd
}

func listCheckpoints() *cobra.Command {
	return &cobra.Command{
		Use:   "list [run]",
		Short: "List training runs, or the snapshots of a run",
		Args:  cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			paths := common.DefaultPaths()

			if len(args) == 0 {
				return listRuns(paths)
			}

			store := &checkpoint.Store{Dir: paths.Run(args[0])}
			entries, err := store.List()
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println(aurora.Red("No snapshots found."))
				return nil
			}

			fmt.Printf("%s:\n\n", aurora.Green("Snapshots of "+args[0]))
			for _, entry := range entries {
				fmt.Printf("- %s %8d bytes  %s\n",
					aurora.Blue(fmt.Sprintf("%7d", entry.Episode)), entry.Size, entry.Path)
			}

			return nil
		},
	}
}

func listRuns(paths common.Paths) error {
	entries, err := os.ReadDir(paths.RunsDirectory)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "list runs")
	}

	var runs []string
	for _, entry := range entries {
		if entry.IsDir() {
			runs = append(runs, entry.Name())
		}
	}

	if len(runs) == 0 {
		fmt.Println(aurora.Red("No training runs found."))
		return nil
	}

	fmt.Printf("%s:\n\n", aurora.Green("Training runs"))
	for _, run := range runs {
		store := &checkpoint.Store{Dir: paths.Run(run)}

		latest, err := store.Latest()
		if err != nil {
			fmt.Printf("- %-20s %s\n", aurora.Blue(run+":"), aurora.Yellow("no snapshots"))
			continue
		}

		fmt.Printf("- %-20s latest episode %d\n", aurora.Blue(run+":"), latest.Episode)
	}

	return nil
}

func inspectCheckpoint() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect snapshot",
		Short: "Show the contents of a snapshot",
		Args:  cobra.ExactArgs(1),
		Long: heredoc.Doc(`inspect loads a snapshot and prints its run, episode, and
			the number of states it scores. With --top it also lists the
			states with the highest best score.

			The snapshot may be an episode number of the run given by
			--run, a path, or "latest".`),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := common.DefaultPaths()
			run, _ := cmd.Flags().GetString("run")
			store := &checkpoint.Store{Dir: paths.Run(run)}

			path, err := store.Resolve(args[0])
			if err != nil {
				return err
			}

			snapshot, err := checkpoint.Load(path, rand.New(rand.NewSource(1)))
			if err != nil {
				return err
			}

			fmt.Printf("- %-9s %s\n", aurora.Blue("file:"), path)
			fmt.Printf("- %-9s %s\n", aurora.Blue("run:"), snapshot.Run)
			fmt.Printf("- %-9s %d\n", aurora.Blue("episode:"), snapshot.Episode)
			fmt.Printf("- %-9s %d\n", aurora.Blue("states:"), snapshot.Table.Len())

			top, _ := cmd.Flags().GetInt("top")
			if top <= 0 {
				return nil
			}

			fmt.Printf("\n%s:\n\n", aurora.Green("Best scored states"))
			for _, scored := range bestStates(snapshot.Table, top) {
				fmt.Printf("%s %s\n", aurora.Yellow(fmt.Sprintf("%9.3f", scored.value)), scored.state)
			}

			return nil
		},
	}

	cmd.Flags().StringP("run", "r", DefaultRun, "Name of the training run")
	cmd.Flags().Int("top", 0, "List this many of the best scored states")
	return cmd
}

type scoredState struct {
	state oracle.State
	value float64
}

// bestStates returns the n states with the highest maximum score, best
// first. Ties are broken by state.
func bestStates(table *qtable.Table, n int) []scoredState {
	var states []scoredState
	table.Range(func(state oracle.State, row *qtable.Row) bool {
		states = append(states, scoredState{state: state, value: row.Max()})
		return true
	})

	sort.Slice(states, func(i, j int) bool {
		if states[i].value != states[j].value {
			return states[i].value > states[j].value
		}
		return states[i].state < states[j].state
	})

	return states[:min(n, len(states))]
}
