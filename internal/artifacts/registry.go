// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package artifacts

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

type Registry struct {
	byName map[string][]*Artifact
	byFQN  map[string]*Artifact
}

func NewRegistry(artifacts ...*Artifact) *Registry {
	r := &Registry{
		byName: make(map[string][]*Artifact),
		byFQN:  make(map[string]*Artifact),
	}
	for _, a := range artifacts {
		r.Add(a)
	}
	return r
}

// Load reads a hardhat artifacts directory, or a single solc/truffle JSON
// file.
func Load(path string) (*Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read artifacts at '%s' - compile the contracts first: %w", path, err)
	}
	var list []*Artifact
	if info.IsDir() {
		list, err = ReadArtifactsDir(path)
	} else {
		list, err = ReadArtifactFile(path)
	}
	if err != nil {
		return nil, err
	}
	return NewRegistry(list...), nil
}

func (r *Registry) Add(a *Artifact) {
	fqn := a.FullyQualifiedName()
	if _, ok := r.byFQN[fqn]; ok {
		// same contract seen twice, keep the first
		return
	}
	r.byFQN[fqn] = a
	r.byName[a.ContractName] = append(r.byName[a.ContractName], a)
}

// Get resolves a bare contract name, or a fully qualified
// "contracts/File.sol:Name" when the bare name is ambiguous.
func (r *Registry) Get(name string) (*Artifact, error) {
	if strings.Contains(name, ":") {
		if a, ok := r.byFQN[name]; ok {
			return a, nil
		}
		return nil, fmt.Errorf("%w: '%s'", ErrArtifactNotFound, name)
	}
	candidates := r.byName[name]
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: '%s'", ErrArtifactNotFound, name)
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.FullyQualifiedName()
		}
		sort.Strings(names)
		return nil, fmt.Errorf("there are multiple artifacts for contract '%s', use one of the fully qualified names: %s", name, strings.Join(names, ", "))
	}
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every artifact ordered by fully qualified name.
func (r *Registry) All() []*Artifact {
	keys := make([]string, 0, len(r.byFQN))
	for k := range r.byFQN {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := make([]*Artifact, len(keys))
	for i, k := range keys {
		result[i] = r.byFQN[k]
	}
	return result
}
