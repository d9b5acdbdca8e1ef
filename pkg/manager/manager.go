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

// Package manager installs oracle binaries from git repositories and
// keeps track of the installed versions in a lockfile.
package manager

import (
	"os"

	"github.com/pkg/errors"

	"laptudirm.com/x/tabula/pkg/common"
)

// Manager installs oracles into a data directory.
type Manager struct {
	Paths   common.Paths
	Oracles OracleInfoList
}

// Open sets up the data directory at paths and reads its lockfile.
func Open(paths common.Paths) (*Manager, error) {
	if err := paths.Setup(); err != nil {
		return nil, err
	}

	oracles, err := LoadOracles(paths.OraclesFile)
	if err != nil {
		return nil, err
	}

	return &Manager{Paths: paths, Oracles: oracles}, nil
}

// Save writes the lockfile back to the data directory.
func (manager *Manager) Save() error {
	return manager.Oracles.Dump(manager.Paths.OraclesFile)
}

// Binary is the path of the oracle's main binary, which is a copy of the
// binary of its current version.
func (manager *Manager) Binary(name string) string {
	return manager.Paths.Binary(name)
}

// VersionBinary is the path of the binary of the given version.
func (manager *Manager) VersionBinary(name, version string) string {
	return manager.Binary(name) + "-" + version
}

// Downloaded reports whether the binary of the given version exists.
func (manager *Manager) Downloaded(name, version string) bool {
	_, err := os.Stat(manager.VersionBinary(name, version))
	return err == nil
}

// SetMain makes version the oracle's main binary.
func (manager *Manager) SetMain(name, version string) error {
	data, err := os.ReadFile(manager.VersionBinary(name, version))
	if err != nil {
		return errors.Wrapf(err, "version %s of %s is not installed", version, name)
	}

	// Write to a new file so running copies of the old binary are unaffected.
	binary := manager.Binary(name)
	temp := binary + ".new"
	if err := os.WriteFile(temp, data, common.FilePermissions); err != nil {
		return errors.Wrap(err, "copy binary")
	}

	if err := os.Rename(temp, binary); err != nil {
		return errors.Wrap(err, "replace binary")
	}

	manager.Oracles.SetMainVersion(name, version)
	return manager.Save()
}

// Remove uninstalls one version of the oracle, or all of them if version
// is empty. The main binary is removed along with its version.
func (manager *Manager) Remove(name, version string) error {
	info, found := manager.Oracles[name]
	if !found {
		return errors.Errorf("oracle %s is not installed", name)
	}

	versions := info.Versions
	if version != "" {
		versions = []string{version}
	}

	for _, installed := range versions {
		if err := os.Remove(manager.VersionBinary(name, installed)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %s %s", name, installed)
		}

		manager.Oracles.RemoveVersion(name, installed)
	}

	if version == "" || info.Current == version {
		if err := os.Remove(manager.Binary(name)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %s", name)
		}
	}

	if version == "" {
		delete(manager.Oracles, name)
	}

	return manager.Save()
}
