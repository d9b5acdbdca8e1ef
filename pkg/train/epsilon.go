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

// Schedule is a linearly decaying exploration rate. Epsilon is lowered
// by Start/(End-Begin) after every episode in [Begin, End].
type Schedule struct {
	Start      float64
	Begin, End int
}

// At returns the exploration rate in effect during the given episode of
// a run, never less than zero. Episodes count from the start of the run,
// so a resumed run decays from Start again.
func (schedule Schedule) At(episode int) float64 {
	span := schedule.End - schedule.Begin
	if span <= 0 {
		if episode > schedule.Begin {
			return 0
		}
		return schedule.Start
	}

	decays := episode - schedule.Begin
	switch {
	case decays < 0:
		decays = 0
	case decays > span+1:
		decays = span + 1
	}

	epsilon := schedule.Start - float64(decays)*schedule.Start/float64(span)
	if epsilon < 0 {
		return 0
	}

	return epsilon
}
