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

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// OracleInfoList is the lockfile, keyed by oracle name.
type OracleInfoList map[string]OracleInfo

type OracleInfo struct {
	Author string `yaml:"author"`
	Source string `yaml:"source"`

	// Installation Stuff
	Current     string   `yaml:"current"`
	Versions    []string `yaml:"versions,omitempty"`
	BuildScript string   `yaml:"build-script,omitempty"`
}

// LoadOracles reads the lockfile at path. A missing lockfile is empty.
func LoadOracles(path string) (OracleInfoList, error) {
	list := OracleInfoList{}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return list, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "read lockfile")
	}

	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, errors.Wrapf(err, "parse lockfile %s", path)
	}

	if list == nil {
		list = OracleInfoList{}
	}

	return list, nil
}

// Dump writes the lockfile to path.
func (list OracleInfoList) Dump(path string) error {
	data, err := yaml.Marshal(list)
	if err != nil {
		return errors.Wrap(err, "encode lockfile")
	}

	return errors.Wrap(os.WriteFile(path, data, 0644), "write lockfile")
}

func (list OracleInfoList) TryAdd(oracle *Oracle) {
	if _, found := list[oracle.Name]; !found {
		list[oracle.Name] = OracleInfo{
			Author: oracle.Author,
			Source: oracle.URL,
		}
	}
}

// AddVersion records an installed version. Versions are recorded once.
func (list OracleInfoList) AddVersion(oracle *Oracle, version string) {
	list.TryAdd(oracle)
	info := list[oracle.Name]
	for _, installed := range info.Versions {
		if installed == version {
			return
		}
	}

	info.Versions = append(info.Versions, version)
	list[oracle.Name] = info
}

func (list OracleInfoList) RemoveVersion(name, version string) {
	info, found := list[name]
	if !found {
		return
	}

	versions := make([]string, 0, len(info.Versions))
	for _, installed := range info.Versions {
		if installed != version {
			versions = append(versions, installed)
		}
	}

	info.Versions = versions
	if info.Current == version {
		info.Current = ""
	}

	list[name] = info
}

func (list OracleInfoList) SetMainVersion(name, version string) {
	info := list[name]
	info.Current = version
	list[name] = info
}
