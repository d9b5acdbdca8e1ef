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
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/tabula/pkg/internal/util"
)

// BuildOutput is the file a build leaves the oracle binary in, relative to
// the directory the build runs in.
const BuildOutput = "oracle-binary"

// Download builds the given version of the oracle and installs it as
// $TABULA_HOME/bin/<name>-<version>, recording it in the lockfile.
func (manager *Manager) Download(oracle *Oracle, version Version) error {
	binary := manager.VersionBinary(oracle.Name, version.Name)

	if err := oracle.Build(version, binary); err != nil {
		return err
	}

	if _, err := os.Stat(binary); err != nil {
		return errors.New("installer \x1b[31mfailed\x1b[0m in building the oracle binary")
	}

	manager.Oracles.AddVersion(oracle, version.Name)
	if err := manager.Save(); err != nil {
		return err
	}

	logrus.Infof("Installed oracle \x1b[92m%s %s\x1b[0m", oracle.Name, version.Name)
	return nil
}

// Build builds the binary of the given version of the oracle and moves it
// to dst.
func (oracle *Oracle) Build(version Version, dst string) error {
	// Reset repository state after building has been done.
	head, err := oracle.Repository.Head()
	if err != nil {
		return errors.Wrap(err, "find HEAD")
	}

	logrus.WithField("target", head.Name().Short()).
		Debug("Repository will be checked back after installation")

	defer func() {
		if err := oracle.Worktree.Checkout(&git.CheckoutOptions{
			Branch: head.Name(),
		}); err != nil {
			logrus.Error(err)
		}
	}()

	if err := oracle.FetchVersion(version); err != nil {
		return err
	}

	if err := oracle.Worktree.Checkout(&git.CheckoutOptions{
		Hash: version.Ref.Hash(),
	}); err != nil {
		return errors.Wrapf(err, "checkout %s", version.Name)
	}

	if oracle.Info != nil && oracle.Info.BuildScript != "" {
		return scriptBuild(oracle.Path, dst, oracle.Info.BuildScript)
	}

	return makefileBuild(oracle.Path, dst)
}

// makefileBuild runs the shallowest Makefile in src, which should build the
// binary at the path given by the EXE variable.
func makefileBuild(src, dst string) error {
	logrus.Info("Trying to build using a \x1b[33mMakefile\x1b[0m...")

	dir := findMakefile(src)
	if dir == "" {
		return errors.New("Makefile \x1b[31mnot found\x1b[0m in oracle's repository")
	}

	logrus.WithField("makefile-directory", dir).Debug("Makefile found in repository")

	err := util.Execute(
		dir,
		"Makefile failed to build the oracle binary",
		"make", "-j", "EXE="+BuildOutput,
	)
	if err != nil {
		return err
	}

	if err := os.Rename(filepath.Join(dir, BuildOutput), dst); err != nil {
		logrus.Debug(err)
		return errors.New("Makefile ignored \x1b[31mEXE\x1b[0m; no binary was built")
	}

	return nil
}

// findMakefile returns the directory of the shallowest Makefile in src.
// Makefile names are case-insensitive.
func findMakefile(src string) string {
	dir, depth := "", -1
	_ = filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if entry.IsDir() && entry.Name() == ".git" {
			return filepath.SkipDir
		}

		if entry.IsDir() || !strings.EqualFold(entry.Name(), "makefile") {
			return nil
		}

		level := strings.Count(path, string(filepath.Separator))
		if depth < 0 || level < depth {
			dir, depth = filepath.Dir(path), level
		}

		return nil
	})

	return dir
}

// scriptBuild pipes a build script recorded in the lockfile into a shell
// running in src. The script has to leave the binary at BuildOutput.
func scriptBuild(src, dst, script string) error {
	logrus.Info("Trying to build using the oracle's \x1b[33mbuild script\x1b[0m...")

	util.StartSpinner()
	defer util.PauseSpinner()

	// TODO: Make this standard Windows compatible.
	shell := exec.Command("sh")
	shell.Dir = src
	shell.Stdin = strings.NewReader(script)

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		shell.Stdout = os.Stdout
		shell.Stderr = os.Stderr
	}

	if err := shell.Run(); err != nil {
		logrus.Debug(err)
		return errors.New("build script failed; check its requirements")
	}

	if err := os.Rename(filepath.Join(src, BuildOutput), dst); err != nil {
		logrus.Debug(err)
		return errors.Errorf("build script did not produce %s", BuildOutput)
	}

	return nil
}
