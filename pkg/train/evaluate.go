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

package train

import (
	"context"

	"github.com/pkg/errors"

	"laptudirm.com/x/tabula/pkg/env"
	"laptudirm.com/x/tabula/pkg/oracle"
	"laptudirm.com/x/tabula/pkg/qtable"
	"laptudirm.com/x/tabula/pkg/stats"
)

// Report summarizes a number of evaluation games.
type Report struct {
	Games int

	Wins, Losses, Illegal int

	// Steps is the total number of steps played over all games.
	Steps int

	Rewards stats.Aggregate
}

// Evaluate plays games greedy episodes without learning. Scores of
// states the table has never seen are still allocated, so callers
// should not persist the table afterwards.
func Evaluate(ctx context.Context, environment *env.Environment, table *qtable.Table, games int) (Report, error) {
	report := Report{Games: games}
	rewards := make([]float64, 0, games)

	for game := 0; game < games; game++ {
		state, err := environment.Reset(ctx)
		if err != nil {
			return report, err
		}

		total := 0.0
		for done := false; !done; {
			valid, err := environment.ValidActions(ctx, oracle.Agent)
			if err != nil {
				return report, err
			}

			action, ok := table.Greedy(state, valid)
			if !ok {
				return report, errors.Wrapf(ErrNoActions, "state %s", state)
			}

			var reward float64
			state, reward, done, err = environment.Step(ctx, action)
			if err != nil {
				return report, err
			}

			total += reward
			report.Steps++
		}

		switch environment.Outcome() {
		case env.Won:
			report.Wins++
		case env.Lost:
			report.Losses++
		case env.Illegal:
			report.Illegal++
		}

		rewards = append(rewards, total)
	}

	report.Rewards = stats.Summarize(rewards)
	report.Rewards.Episode = games - 1
	return report, nil
}
