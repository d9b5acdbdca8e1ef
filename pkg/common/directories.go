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

	"github.com/pkg/errors"
)

const FilePermissions = 0755

// TryMkdir creates dir and its parents if they do not exist.
func TryMkdir(dir string) error {
	if err := os.MkdirAll(dir, FilePermissions); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}

	return nil
}

// TryCreate creates file with the given contents if it does not exist.
func TryCreate(file string, data []byte) error {
	if _, err := os.Stat(file); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "stat %s", file)
	}

	return errors.Wrapf(os.WriteFile(file, data, 0644), "create %s", file)
}

// Setup creates the data directory layout.
func (paths Paths) Setup() error {
	for _, dir := range []string{
		paths.Directory,
		paths.BinaryDirectory,
		paths.SourceDirectory,
		paths.RunsDirectory,
	} {
		if err := TryMkdir(dir); err != nil {
			return err
		}
	}

	return TryCreate(paths.OraclesFile, []byte("{}\n"))
}
