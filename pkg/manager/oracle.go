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

package manager

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Oracle is the source of an installable oracle binary.
type Oracle struct {
	// Basic Information
	Name   string
	Author string
	Info   *OracleInfo

	// Source Repository Information
	URL        string // URL of the oracle's remote repository
	Path       string // Path to the oracle's local repository
	Repository *git.Repository
	Worktree   *git.Worktree
}

// NewOracle identifies an oracle from one of the following formats:
//
// 1. <name>                - an oracle that was installed before
// 2. <owner>/<name>        - a repository hosted on GitHub
// 3. <full-source-git-url> - any git repository
func (manager *Manager) NewOracle(identifier string) (*Oracle, error) {
	var oracle Oracle

	// In all formats, the oracle's name is the last part of the identifier.
	oracle.Name = strings.TrimSuffix(filepath.Base(identifier), ".git")
	if oracle.Name == "" || oracle.Name == "." || oracle.Name == "/" {
		return nil, errors.Errorf("invalid oracle identifier %q", identifier)
	}

	// The repository is kept at $TABULA_HOME/src/<name>.
	oracle.Path = filepath.Join(manager.Paths.SourceDirectory, strings.ToLower(oracle.Name))

	if info, found := manager.Oracles[oracle.Name]; found {
		oracle.Info = &info
	}

	switch strings.Count(identifier, "/") {
	case 0:
		if oracle.Info == nil {
			return nil, errors.Errorf("oracle %s is not installed", oracle.Name)
		}

		oracle.URL = oracle.Info.Source
		oracle.Author = oracle.Info.Author

	case 1:
		oracle.URL = "https://github.com/" + identifier
		oracle.Author, _, _ = strings.Cut(identifier, "/")

	default:
		oracle.URL = identifier
		oracle.Author = filepath.Base(filepath.Dir(identifier))
	}

	logrus.WithFields(logrus.Fields{
		"name":   oracle.Name,
		"author": oracle.Author,
		"source": oracle.URL,
	}).Debug("Figured out basic oracle details")

	return &oracle, nil
}
