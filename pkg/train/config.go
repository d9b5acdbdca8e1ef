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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"laptudirm.com/x/tabula/pkg/env"
	"laptudirm.com/x/tabula/pkg/oracle"
)

// Exploration policies.
const (
	// Greedy always plays the best known valid action. The epsilon
	// schedule is still kept and reported.
	Greedy = "greedy"

	// EpsilonGreedy plays a uniformly random valid action with
	// probability epsilon.
	EpsilonGreedy = "epsilon-greedy"
)

type Config struct {
	// Number of episodes to play in this run.
	Episodes int `yaml:"episodes"`

	LearningRate float64 `yaml:"learning-rate"`
	Discount     float64 `yaml:"discount"`

	Exploration string `yaml:"exploration"`

	// PenalizeIllegal makes an illegal action score the loss reward.
	// Otherwise the table is left as it was.
	PenalizeIllegal bool `yaml:"penalize-illegal"`

	// Epsilon decays linearly from Start to zero over the episodes
	// [DecayStart, DecayEnd] of the run. A zero DecayEnd means half of
	// the run's episodes.
	Epsilon struct {
		Start      float64 `yaml:"start"`
		DecayStart int     `yaml:"decay-start"`
		DecayEnd   int     `yaml:"decay-end"`
	} `yaml:"epsilon"`

	CheckpointEvery int `yaml:"checkpoint-every"`
	StatsEvery      int `yaml:"stats-every"`

	Rewards env.Rewards `yaml:"rewards"`

	// Seed of the random source used to initialize table rows. Zero
	// picks a seed from the clock.
	Seed uint64 `yaml:"seed"`

	Oracle oracle.PipelineConfig `yaml:"oracle"`
}

// DefaultConfig returns the reference training setup.
func DefaultConfig() Config {
	var config Config

	config.Episodes = 20000
	config.LearningRate = 0.1
	config.Discount = 0.95
	config.Exploration = Greedy

	config.Epsilon.Start = 1
	config.Epsilon.DecayStart = 1

	config.CheckpointEvery = 100
	config.StatsEvery = 10

	config.Rewards = env.DefaultRewards
	return config
}

// LoadConfig reads a yaml config file. Fields missing from the file keep
// their default values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrap(err, "train: load config")
	}

	if err := yaml.Unmarshal(file, &config); err != nil {
		return config, errors.Wrapf(err, "train: parse config %s", path)
	}

	return config, nil
}

// Validate checks the config and fills in derived defaults.
func (config *Config) Validate() error {
	switch {
	case config.Episodes < 0:
		return errors.Errorf("train: negative episode count %d", config.Episodes)
	case config.LearningRate <= 0 || config.LearningRate > 1:
		return errors.Errorf("train: learning rate %v not in (0, 1]", config.LearningRate)
	case config.Discount < 0 || config.Discount > 1:
		return errors.Errorf("train: discount %v not in [0, 1]", config.Discount)
	case config.CheckpointEvery < 1:
		return errors.Errorf("train: checkpoint interval %d < 1", config.CheckpointEvery)
	case config.StatsEvery < 1:
		return errors.Errorf("train: stats window %d < 1", config.StatsEvery)
	}

	switch config.Exploration {
	case "":
		config.Exploration = Greedy
	case Greedy, EpsilonGreedy:
	default:
		return errors.Errorf("train: unknown exploration policy %q", config.Exploration)
	}

	if config.Epsilon.DecayEnd == 0 {
		config.Epsilon.DecayEnd = config.Episodes / 2
	}

	return nil
}
