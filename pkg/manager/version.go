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
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/tabula/pkg/internal/util"
)

// peeledSuffix marks the commit an annotated tag points to in a listing.
const peeledSuffix = "^{}"

// Version is an installable version of an oracle.
type Version struct {
	Name string              // Human-readable name of the version
	Ref  *plumbing.Reference // Reference to the version's commit
}

// ResolveVersion resolves a version string for an oracle into a Version.
// The following formats for the version string are supported:
//
// stable: Resolves to the latest tagged commit of the oracle.
// latest: Resolves to the latest commit of the oracle.
// <name>: Resolves to the commit with the given tag.
func (oracle *Oracle) ResolveVersion(v string) (Version, error) {
	var err error
	var version Version
	switch v {
	case "stable":
		version.Ref, err = oracle.FindStable()
	case "latest", "":
		version.Ref, err = oracle.FindLatest()
	default:
		version.Ref, err = oracle.FindTag(v)
	}

	if err != nil || version.Ref == nil {
		logrus.Debug(err)
		return version, errors.Errorf("unable to find version \x1b[31m%s\x1b[0m", v)
	}

	version.Name = version.Ref.Name().Short()
	return version, nil
}

// FindStable finds the latest tagged commit of the oracle, falling back to
// the latest commit if the oracle has no tags.
func (oracle *Oracle) FindStable() (*plumbing.Reference, error) {
	logrus.Debug("Looking for the latest stable release...")

	refs, err := oracle.listRemote()
	if err != nil {
		return nil, err
	}

	if stable := latestTag(refs); stable != nil {
		return stable, nil
	}

	return oracle.FindLatest()
}

// FindLatest finds the latest commit of the oracle.
func (oracle *Oracle) FindLatest() (*plumbing.Reference, error) {
	return oracle.Repository.Head()
}

// FindTag finds the commit tagged with the given name.
func (oracle *Oracle) FindTag(tag string) (*plumbing.Reference, error) {
	refs, err := oracle.listRemote()
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		if ref.Name().IsTag() && ref.Name().Short() == tag {
			return peel(refs, ref), nil
		}
	}

	return nil, errors.Errorf("unable to find version \x1b[31m%s\x1b[0m", tag)
}

func (oracle *Oracle) listRemote() ([]*plumbing.Reference, error) {
	remote, err := oracle.Repository.Remote(git.DefaultRemoteName)
	if err != nil {
		return nil, errors.Wrap(err, "find remote")
	}

	refs, err := remote.List(&git.ListOptions{PeelingOption: git.AppendPeeled})
	if err != nil {
		return nil, errors.Wrap(err, "list remote")
	}

	return refs, nil
}

// latestTag returns the newest tag in refs. Which tag is the latest is
// decided by natural ordering of the tag names, since versioning schemes
// usually number their releases.
func latestTag(refs []*plumbing.Reference) *plumbing.Reference {
	var stable *plumbing.Reference
	for _, ref := range refs {
		name := ref.Name()
		if !name.IsTag() || strings.HasSuffix(name.String(), peeledSuffix) {
			continue
		}

		if stable == nil || util.NaturalLess(stable.Name().Short(), name.Short()) {
			stable = ref
		}
	}

	if stable == nil {
		return nil
	}

	return peel(refs, stable)
}

// peel replaces the hash of an annotated tag with that of its commit.
func peel(refs []*plumbing.Reference, tag *plumbing.Reference) *plumbing.Reference {
	peeled := tag.Name().String() + peeledSuffix
	for _, ref := range refs {
		if ref.Name().String() == peeled {
			return plumbing.NewHashReference(tag.Name(), ref.Hash())
		}
	}

	return tag
}
