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

// Package checkpoint persists snapshots of a Q-table. Every snapshot is
// a separate file named after the episode it was taken at, and files
// are never overwritten.
package checkpoint

import (
	"bufio"
	"encoding/gob"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"laptudirm.com/x/tabula/pkg/internal/util"
	"laptudirm.com/x/tabula/pkg/oracle"
	"laptudirm.com/x/tabula/pkg/qtable"
)

// Version of the on-disk format.
const Version = 1

var ErrMalformed = errors.New("checkpoint: malformed file")

// Checkpoint is a Q-table snapshot together with where it was taken.
type Checkpoint struct {
	Run     uuid.UUID // training run which produced the table
	Episode int       // episode after which the snapshot was taken

	Table *qtable.Table
}

// The file is a gob stream of one header followed by header.States
// entries, sorted by state.
type header struct {
	Version int
	Run     uuid.UUID
	Episode int
	Actions int
	States  int
}

type entry struct {
	State string
	Q     []float64
}

// Write encodes checkpoint to w.
func Write(w io.Writer, checkpoint *Checkpoint) error {
	table := checkpoint.Table

	states := make([]oracle.State, 0, table.Len())
	table.Range(func(state oracle.State, _ *qtable.Row) bool {
		states = append(states, state)
		return true
	})
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(header{
		Version: Version,
		Run:     checkpoint.Run,
		Episode: checkpoint.Episode,
		Actions: oracle.ActionN,
		States:  len(states),
	}); err != nil {
		return errors.Wrap(err, "checkpoint: write header")
	}

	for _, state := range states {
		row := table.Row(state)
		if err := encoder.Encode(entry{State: string(state), Q: row[:]}); err != nil {
			return errors.Wrapf(err, "checkpoint: write %q", state)
		}
	}

	return nil
}

// Read decodes a checkpoint from r. Rows which are allocated later by
// the returned table draw their initial scores from rng.
func Read(r io.Reader, rng *rand.Rand) (*Checkpoint, error) {
	decoder := gob.NewDecoder(r)

	var head header
	if err := decoder.Decode(&head); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	switch {
	case head.Version != Version:
		return nil, errors.Wrapf(ErrMalformed, "unsupported version %d", head.Version)
	case head.Actions != oracle.ActionN:
		return nil, errors.Wrapf(ErrMalformed, "%d actions per state, want %d", head.Actions, oracle.ActionN)
	case head.States < 0:
		return nil, errors.Wrapf(ErrMalformed, "negative state count %d", head.States)
	}

	table := qtable.New(rng)
	for i := 0; i < head.States; i++ {
		var e entry
		if err := decoder.Decode(&e); err != nil {
			return nil, errors.Wrapf(ErrMalformed, "entry %d of %d: %v", i, head.States, err)
		}

		state := oracle.State(e.State)
		switch {
		case state == "":
			return nil, errors.Wrapf(ErrMalformed, "entry %d: empty state", i)
		case len(e.Q) != oracle.ActionN:
			return nil, errors.Wrapf(ErrMalformed, "state %q: %d scores, want %d", state, len(e.Q), oracle.ActionN)
		case table.Has(state):
			return nil, errors.Wrapf(ErrMalformed, "state %q: duplicate entry", state)
		}

		var row qtable.Row
		copy(row[:], e.Q)
		table.Set(state, row)
	}

	return &Checkpoint{
		Run:     head.Run,
		Episode: head.Episode,
		Table:   table,
	}, nil
}

// Load reads the checkpoint file at path.
func Load(path string, rng *rand.Rand) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: load")
	}
	defer file.Close()

	util.StartSpinner()
	defer util.PauseSpinner()

	checkpoint, err := Read(bufio.NewReader(file), rng)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	return checkpoint, nil
}
