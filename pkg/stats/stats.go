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

// Package stats aggregates episode rewards for reporting. Nothing in it
// is fed back into training.
package stats

import "math"

// Aggregate summarizes the rewards of a window of episodes.
type Aggregate struct {
	Episode int // last episode of the window
	Count   int // number of episodes in the window

	Avg, Max, Min float64
}

// Window collects per-episode rewards and aggregates them every Every
// episodes.
type Window struct {
	Every int

	rewards    []float64
	aggregates []Aggregate
}

func NewWindow(every int) *Window {
	if every < 1 {
		every = 1
	}

	return &Window{Every: every}
}

// Add records the reward of episode. Episodes are aggregated whenever
// episode is a multiple of Every, over the last Every rewards recorded
// (or all of them if fewer are available).
func (window *Window) Add(episode int, reward float64) (Aggregate, bool) {
	window.rewards = append(window.rewards, reward)

	if episode%window.Every != 0 {
		return Aggregate{}, false
	}

	recent := window.rewards
	if len(recent) > window.Every {
		recent = recent[len(recent)-window.Every:]
	}

	aggregate := Summarize(recent)
	aggregate.Episode = episode

	window.aggregates = append(window.aggregates, aggregate)

	// Only the last window is ever needed again.
	window.rewards = append(window.rewards[:0], recent...)
	return aggregate, true
}

// Aggregates returns every aggregate produced so far, oldest first.
func (window *Window) Aggregates() []Aggregate {
	return window.aggregates
}

// Summarize computes the average, maximum, and minimum of rewards.
func Summarize(rewards []float64) Aggregate {
	if len(rewards) == 0 {
		return Aggregate{}
	}

	aggregate := Aggregate{
		Count: len(rewards),
		Max:   math.Inf(-1),
		Min:   math.Inf(+1),
	}

	sum := 0.0
	for _, reward := range rewards {
		sum += reward
		aggregate.Max = math.Max(aggregate.Max, reward)
		aggregate.Min = math.Min(aggregate.Min, reward)
	}

	aggregate.Avg = sum / float64(len(rewards))
	return aggregate
}
