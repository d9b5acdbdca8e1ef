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
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/tabula/pkg/internal/util"
)

// FetchRepository fetches the given remote repository into the given path. If
// the repository was previously cloned, it tries to get it up to date with the
// remote repository.
func FetchRepository(url, path string) (*git.Repository, error) {
	logrus.Info("Fetching the oracle's source repository...")
	util.StartSpinner()
	defer util.PauseSpinner()

	logrus.Debug("Trying to open an existing repository...")
	if repository, err := git.PlainOpen(path); err == nil {
		if worktree, err := repository.Worktree(); err == nil {
			err = worktree.Pull(&git.PullOptions{
				RemoteURL: url,
			})
			if err == nil || errors.Is(err, git.NoErrAlreadyUpToDate) {
				return repository, nil
			}

			logrus.Debug(err)
		}

		// The existing repository is unusable.
		_ = os.RemoveAll(path)
	}

	logrus.Debug("Trying to clone the oracle to a new repository...")
	repository, err := git.PlainClone(path, false, &git.CloneOptions{
		URL:   url,
		Depth: 1, SingleBranch: true, Tags: git.NoTags,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "clone %s", url)
	}

	return repository, nil
}

// Fetch brings the oracle's local repository up to date.
func (oracle *Oracle) Fetch() error {
	repository, err := FetchRepository(oracle.URL, oracle.Path)
	if err != nil {
		return err
	}

	worktree, err := repository.Worktree()
	if err != nil {
		return errors.Wrap(err, "open worktree")
	}

	oracle.Repository, oracle.Worktree = repository, worktree
	return nil
}

// FetchVersion fetches the objects of a tagged version, which are not part
// of the shallow clone.
func (oracle *Oracle) FetchVersion(version Version) error {
	name := version.Ref.Name()
	if !name.IsTag() {
		return nil
	}

	refspec := config.RefSpec("+" + name.String() + ":" + name.String())
	logrus.WithField("refspec", refspec).Debug("Fetching required tag")

	util.StartSpinner()
	defer util.PauseSpinner()

	err := oracle.Repository.Fetch(&git.FetchOptions{
		Depth:    1,
		RefSpecs: []config.RefSpec{refspec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.Wrapf(err, "fetch %s", name.Short())
	}

	return nil
}
