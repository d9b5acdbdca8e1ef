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

// Package oracletest provides scripted in-process oracles for tests.
package oracletest

import (
	"fmt"

	"laptudirm.com/x/tabula/pkg/oracle"
)

// Script is a game given as explicit tables. Transitions missing from
// Moves or Replies leave the state unchanged, which the environment
// treats as an illegal action.
type Script struct {
	Start oracle.State

	Legal   map[oracle.State][2][]oracle.Action
	Moves   map[oracle.State]map[oracle.Action]oracle.State
	Replies map[oracle.State]oracle.State
	Raw     map[oracle.State]oracle.Status

	// Calls counts the queries made per operation.
	Calls map[string]int
}

func NewScript(start oracle.State) *Script {
	return &Script{
		Start:   start,
		Legal:   make(map[oracle.State][2][]oracle.Action),
		Moves:   make(map[oracle.State]map[oracle.Action]oracle.State),
		Replies: make(map[oracle.State]oracle.State),
		Raw:     make(map[oracle.State]oracle.Status),
		Calls:   make(map[string]int),
	}
}

// Move records that action takes state to next. The action is also
// added to the agent's legal actions in state.
func (script *Script) Move(state oracle.State, action oracle.Action, next oracle.State) *Script {
	if script.Moves[state] == nil {
		script.Moves[state] = make(map[oracle.Action]oracle.State)
	}
	script.Moves[state][action] = next

	legal := script.Legal[state]
	legal[oracle.Agent] = append(legal[oracle.Agent], action)
	script.Legal[state] = legal
	return script
}

// Allow lists actions as legal for player in state without giving them
// a transition.
func (script *Script) Allow(state oracle.State, player oracle.Player, actions ...oracle.Action) *Script {
	legal := script.Legal[state]
	legal[player] = append(legal[player], actions...)
	script.Legal[state] = legal
	return script
}

// Reply records the opponent's answer to state.
func (script *Script) Reply(state, next oracle.State) *Script {
	script.Replies[state] = next
	return script
}

// Finish records raw terminal flags for state.
func (script *Script) Finish(state oracle.State, status oracle.Status) *Script {
	script.Raw[state] = status
	return script
}

// Oracle returns an oracle playing the script.
func (script *Script) Oracle() *oracle.Func {
	return &oracle.Func{
		GenerateFunc: func() oracle.State {
			script.Calls["generate"]++
			return script.Start
		},
		LegalActionsFunc: func(state oracle.State, player oracle.Player) []oracle.Action {
			script.Calls["legal-actions"]++
			return script.Legal[state][player]
		},
		ApplyFunc: func(state oracle.State, action oracle.Action) oracle.State {
			script.Calls["apply"]++
			if next, found := script.Moves[state][action]; found {
				return next
			}
			return state
		},
		AdvanceOpponentFunc: func(state oracle.State) oracle.State {
			script.Calls["advance-opponent"]++
			if next, found := script.Replies[state]; found {
				return next
			}
			return state
		},
		StatusFunc: func(state oracle.State) oracle.Status {
			script.Calls["status"]++
			return script.Raw[state]
		},
	}
}

// Race is a game where both sides walk toward goal. The agent moves
// first and advances one square with action 0 or two with action 1; the
// opponent always advances two. The agent only wins by always
// taking the long step. States are written "<agent>/<opponent>".
func Race(goal int) *Script {
	name := func(a, b int) oracle.State {
		return oracle.State(fmt.Sprintf("%d/%d", a, b))
	}

	script := NewScript(name(0, 0))
	for a := 0; a <= goal; a++ {
		for b := 0; b <= goal; b++ {
			state := name(a, b)
			script.Allow(state, oracle.Opponent, 0)

			switch {
			case a >= goal:
				script.Finish(state, oracle.Status{You: true})
				continue
			case b >= goal:
				script.Finish(state, oracle.Status{Them: true})
				continue
			}

			script.Move(state, 0, name(min(a+1, goal), b))
			script.Move(state, 1, name(min(a+2, goal), b))
			script.Reply(state, name(a, min(b+2, goal)))
		}
	}

	return script
}
