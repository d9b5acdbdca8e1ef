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

// Package oracle defines the contract through which tabula talks to an
// external game engine. The engine is authoritative: it generates
// positions, enumerates and applies actions, and adjudicates results.
// Positions are opaque tokens which are never parsed by tabula.
package oracle

import (
	"context"
	"fmt"
)

// State is an opaque token representing a full board configuration,
// including whose turn it is. Two states are the same position iff
// their tokens are equal.
type State string

// Action identifies one of the fixed move+build combinations.
type Action int

// ActionN is the number of distinct actions; valid actions are in the
// range [0, ActionN).
const ActionN = 128

// Player identifies a side from the point of view of the learning agent.
type Player int

const (
	Agent    Player = 0
	Opponent Player = 1
)

func (player Player) String() string {
	switch player {
	case Agent:
		return "agent"
	case Opponent:
		return "opponent"
	default:
		return fmt.Sprintf("player(%d)", int(player))
	}
}

// Status is a terminal report for a position. You is set if the agent
// has won, and Them if the opponent has. Neither is set for ongoing games.
type Status struct {
	You  bool `json:"you"`
	Them bool `json:"them"`
}

// Oracle is the game engine as seen by tabula. Every operation is a
// pure, deterministic, blocking query; an error means the engine is
// unusable and should not be retried.
type Oracle interface {
	// Generate returns a fresh initial position.
	Generate(ctx context.Context) (State, error)

	// LegalActions returns the actions player may perform in state.
	LegalActions(ctx context.Context, state State, player Player) ([]Action, error)

	// Apply performs action in state. An illegal action leaves the
	// state unchanged instead of returning an error.
	Apply(ctx context.Context, state State, action Action) (State, error)

	// AdvanceOpponent plays the opponent's full turn in state.
	AdvanceOpponent(ctx context.Context, state State) (State, error)

	// Status reports the engine's raw terminal flags for state.
	Status(ctx context.Context, state State) (Status, error)
}

// Func is an in-process Oracle assembled from plain functions. A nil
// field makes the corresponding operation fail with ErrUnsupported.
type Func struct {
	GenerateFunc        func() State
	LegalActionsFunc    func(state State, player Player) []Action
	ApplyFunc           func(state State, action Action) State
	AdvanceOpponentFunc func(state State) State
	StatusFunc          func(state State) Status
}

var _ Oracle = (*Func)(nil)

func (oracle *Func) Generate(ctx context.Context) (State, error) {
	if oracle.GenerateFunc == nil {
		return "", unsupported("generate")
	}

	return oracle.GenerateFunc(), ctx.Err()
}

func (oracle *Func) LegalActions(ctx context.Context, state State, player Player) ([]Action, error) {
	if oracle.LegalActionsFunc == nil {
		return nil, unsupported("legal-actions")
	}

	return oracle.LegalActionsFunc(state, player), ctx.Err()
}

func (oracle *Func) Apply(ctx context.Context, state State, action Action) (State, error) {
	if oracle.ApplyFunc == nil {
		return "", unsupported("apply")
	}

	return oracle.ApplyFunc(state, action), ctx.Err()
}

func (oracle *Func) AdvanceOpponent(ctx context.Context, state State) (State, error) {
	if oracle.AdvanceOpponentFunc == nil {
		return "", unsupported("advance-opponent")
	}

	return oracle.AdvanceOpponentFunc(state), ctx.Err()
}

func (oracle *Func) Status(ctx context.Context, state State) (Status, error) {
	if oracle.StatusFunc == nil {
		return Status{}, unsupported("status")
	}

	return oracle.StatusFunc(state), ctx.Err()
}
