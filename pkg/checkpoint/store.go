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

package checkpoint

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/tabula/pkg/internal/util"
)

const suffix = "-qtable.gob"

var (
	ErrExists       = errors.New("checkpoint: snapshot already exists")
	ErrNoCheckpoint = errors.New("checkpoint: no snapshot found")
)

// Store is a directory of numbered snapshots.
type Store struct {
	Dir string
}

// Open returns the store in dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "checkpoint: open store")
	}

	return &Store{Dir: dir}, nil
}

// Name returns the file name of the snapshot taken at episode.
func Name(episode int) string {
	return strconv.Itoa(episode) + suffix
}

// Path returns the path of the snapshot taken at episode.
func (store *Store) Path(episode int) string {
	return filepath.Join(store.Dir, Name(episode))
}

// Save writes checkpoint as a new snapshot. The file is written under a
// temporary name and renamed once complete, so readers never see a
// partial snapshot. Saving over an existing snapshot fails with ErrExists.
func (store *Store) Save(checkpoint *Checkpoint) (string, error) {
	path := store.Path(checkpoint.Episode)
	if _, err := os.Stat(path); err == nil {
		return "", errors.Wrap(ErrExists, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", errors.Wrap(err, "checkpoint: save")
	}

	util.StartSpinner()
	defer util.PauseSpinner()

	file, err := os.CreateTemp(store.Dir, ".qtable-*.tmp")
	if err != nil {
		return "", errors.Wrap(err, "checkpoint: save")
	}

	// Clean up the temporary file on every failure path.
	committed := false
	defer func() {
		if !committed {
			_ = file.Close()
			_ = os.Remove(file.Name())
		}
	}()

	writer := bufio.NewWriter(file)
	if err := Write(writer, checkpoint); err != nil {
		return "", err
	}

	if err := writer.Flush(); err != nil {
		return "", errors.Wrap(err, "checkpoint: save")
	}

	if err := file.Sync(); err != nil {
		return "", errors.Wrap(err, "checkpoint: save")
	}

	if err := file.Close(); err != nil {
		return "", errors.Wrap(err, "checkpoint: save")
	}

	if err := os.Rename(file.Name(), path); err != nil {
		return "", errors.Wrap(err, "checkpoint: save")
	}

	committed = true

	logrus.WithFields(logrus.Fields{
		"episode": checkpoint.Episode,
		"states":  checkpoint.Table.Len(),
		"path":    path,
	}).Debug("Saved checkpoint")
	return path, nil
}

// Entry describes a snapshot present in a store.
type Entry struct {
	Episode int
	Path    string
	Size    int64
}

// List returns the store's snapshots ordered by episode.
func (store *Store) List() ([]Entry, error) {
	files, err := os.ReadDir(store.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: list")
	}

	var names []string
	for _, file := range files {
		if !file.Type().IsRegular() || !strings.HasSuffix(file.Name(), suffix) {
			continue
		}

		names = append(names, file.Name())
	}

	sort.Slice(names, func(i, j int) bool {
		return util.NaturalLess(names[i], names[j])
	})

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		episode, err := strconv.Atoi(strings.TrimSuffix(name, suffix))
		if err != nil {
			logrus.Debugf("Skipping foreign file %s in checkpoint store", name)
			continue
		}

		path := filepath.Join(store.Dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrap(err, "checkpoint: list")
		}

		entries = append(entries, Entry{
			Episode: episode,
			Path:    path,
			Size:    info.Size(),
		})
	}

	return entries, nil
}

// Latest returns the snapshot with the highest episode number.
func (store *Store) Latest() (Entry, error) {
	entries, err := store.List()
	if err != nil {
		return Entry{}, err
	}

	if len(entries) == 0 {
		return Entry{}, errors.Wrap(ErrNoCheckpoint, store.Dir)
	}

	return entries[len(entries)-1], nil
}

// Resolve finds a snapshot by name. The name may be a path to a file,
// an episode number in the store, or "latest".
func (store *Store) Resolve(name string) (string, error) {
	if name == "latest" {
		entry, err := store.Latest()
		return entry.Path, err
	}

	if episode, err := strconv.Atoi(name); err == nil {
		name = store.Path(episode)
	}

	if _, err := os.Stat(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errors.Wrap(ErrNoCheckpoint, name)
		}
		return "", errors.Wrap(err, "checkpoint: resolve")
	}

	return name, nil
}
