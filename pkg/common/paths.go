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

package common

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// HomeEnv overrides the location of the data directory.
const HomeEnv = "TABULA_HOME"

// Paths is the layout of tabula's data directory.
type Paths struct {
	// Directory is the root of the data directory.
	Directory string

	// BinaryDirectory holds installed oracle binaries.
	BinaryDirectory string

	// SourceDirectory holds the source repositories of oracles.
	SourceDirectory string

	// RunsDirectory holds one directory of checkpoints per training run.
	RunsDirectory string

	// OraclesFile is the lockfile of installed oracles and versions.
	OraclesFile string
}

// NewPaths returns the layout rooted at dir.
func NewPaths(dir string) Paths {
	return Paths{
		Directory:       dir,
		BinaryDirectory: filepath.Join(dir, "bin"),
		SourceDirectory: filepath.Join(dir, "src"),
		RunsDirectory:   filepath.Join(dir, "runs"),
		OraclesFile:     filepath.Join(dir, "oracles.yaml"),
	}
}

// DefaultPaths returns the layout rooted at $TABULA_HOME, or at
// ~/tabula if it is not set.
func DefaultPaths() Paths {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return NewPaths(dir)
	}

	return NewPaths(filepath.Join(xdg.Home, "tabula"))
}

// Run returns the checkpoint directory of the named training run.
func (paths Paths) Run(name string) string {
	return filepath.Join(paths.RunsDirectory, name)
}

// Binary returns the path of the main binary of the named oracle.
func (paths Paths) Binary(oracle string) string {
	return filepath.Join(paths.BinaryDirectory, oracle)
}
