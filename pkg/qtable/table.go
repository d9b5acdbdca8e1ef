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

// Package qtable implements the tabular action-value function learnt by
// the trainer. Rows are keyed by opaque oracle states and hold one score
// per action.
package qtable

import (
	"golang.org/x/exp/rand"

	"laptudirm.com/x/tabula/pkg/oracle"
)

// Range of the pessimistic initial action scores, [InitLow, InitHigh).
const (
	InitLow  = -2.0
	InitHigh = 0.0
)

// Row holds the scores of every action in one state.
type Row [oracle.ActionN]float64

// Max returns the highest score in the row.
func (row *Row) Max() float64 {
	best := row[0]
	for _, q := range row[1:] {
		if q > best {
			best = q
		}
	}

	return best
}

// Table maps states to their action scores. A Table is owned by a single
// goroutine; concurrent updates must be serialized by the caller.
type Table struct {
	rows map[oracle.State]*Row
	rng  *rand.Rand
}

// New returns an empty table drawing initial scores from rng.
func New(rng *rand.Rand) *Table {
	return &Table{
		rows: make(map[oracle.State]*Row),
		rng:  rng,
	}
}

// Len returns the number of visited states.
func (table *Table) Len() int {
	return len(table.rows)
}

// Has reports whether state has been visited.
func (table *Table) Has(state oracle.State) bool {
	_, found := table.rows[state]
	return found
}

// Row returns the scores of state, allocating them on first touch.
func (table *Table) Row(state oracle.State) *Row {
	if row, found := table.rows[state]; found {
		return row
	}

	row := new(Row)
	for i := range row {
		row[i] = InitLow + (InitHigh-InitLow)*table.rng.Float64()
	}

	table.rows[state] = row
	return row
}

// Set replaces the scores of state. It is used when restoring tables.
func (table *Table) Set(state oracle.State, row Row) {
	table.rows[state] = &row
}

// Range calls fn for every state in the table until fn returns false.
// The iteration order is unspecified.
func (table *Table) Range(fn func(state oracle.State, row *Row) bool) {
	for state, row := range table.rows {
		if !fn(state, row) {
			return
		}
	}
}

// Greedy returns the action in valid with the highest score in state.
// Ties go to the action listed first. ok is false if valid is empty.
func (table *Table) Greedy(state oracle.State, valid []oracle.Action) (best oracle.Action, ok bool) {
	if len(valid) == 0 {
		return 0, false
	}

	row := table.Row(state)

	best = valid[0]
	for _, action := range valid[1:] {
		if row[action] > row[best] {
			best = action
		}
	}

	return best, true
}

// Bootstrap applies the one-step Q-learning update for a non-terminal
// transition from state to next:
//
//	Q[s][a] = (1-alpha)*Q[s][a] + alpha*(reward + gamma*max_b Q[s'][b])
func (table *Table) Bootstrap(state oracle.State, action oracle.Action, reward float64, next oracle.State, alpha, gamma float64) float64 {
	future := table.Row(next).Max()
	row := table.Row(state)

	row[action] = (1-alpha)*row[action] + alpha*(reward+gamma*future)
	return row[action]
}

// Assign sets Q[s][a] directly; terminal transitions are never bootstrapped.
func (table *Table) Assign(state oracle.State, action oracle.Action, value float64) {
	table.Row(state)[action] = value
}
