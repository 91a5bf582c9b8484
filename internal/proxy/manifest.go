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

package proxy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/diir-io/diir-cli/internal/constants"
	"github.com/diir-io/diir-cli/internal/deployments"
)

const manifestVersion = "3.2"

type Entry struct {
	Address string `json:"address"`
	TxHash  string `json:"txHash,omitempty"`

	extra extraFields
}

type ProxyEntry struct {
	Address string `json:"address"`
	TxHash  string `json:"txHash,omitempty"`
	Kind    string `json:"kind"`

	extra extraFields
}

// ImplEntry keeps anything else the upgrades plugin stored for the
// implementation, such as its storage layout, and writes it back unchanged.
type ImplEntry struct {
	Address  string `json:"address"`
	TxHash   string `json:"txHash,omitempty"`
	Contract string `json:"contract,omitempty"`

	extra extraFields
}

// Manifest tracks what has been deployed to one chain so admins and
// implementations can be reused. It is compatible with the files the
// OpenZeppelin upgrades plugins keep under .openzeppelin/.
type Manifest struct {
	ManifestVersion string                `json:"manifestVersion"`
	Admin           *Entry                `json:"admin,omitempty"`
	Proxies         []*ProxyEntry         `json:"proxies"`
	Impls           map[string]*ImplEntry `json:"impls"`

	path  string
	extra extraFields
}

func ManifestName(chainID int64) string {
	if name, ok := constants.ChainNames[chainID]; ok {
		return name
	}
	return fmt.Sprintf("unknown-%d", chainID)
}

func ManifestPath(dir string, chainID int64) string {
	return filepath.Join(dir, ManifestName(chainID)+".json")
}

// LoadManifest reads the manifest for a chain, or starts an empty one.
func LoadManifest(dir string, chainID int64) (*Manifest, error) {
	path := ManifestPath(dir, chainID)
	m := &Manifest{
		ManifestVersion: manifestVersion,
		Proxies:         []*ProxyEntry{},
		Impls:           map[string]*ImplEntry{},
		path:            path,
	}
	d, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(d, m); err != nil {
		return nil, fmt.Errorf("invalid manifest '%s': %w", path, err)
	}
	if m.Impls == nil {
		m.Impls = map[string]*ImplEntry{}
	}
	return m, nil
}

func (m *Manifest) Path() string {
	return m.path
}

func (m *Manifest) Save() error {
	if m.path == "" {
		return nil
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return deployments.WriteFileAtomic(m.path, b, 0644)
}

func (m *Manifest) Proxy(address string) *ProxyEntry {
	for _, p := range m.Proxies {
		if strings.EqualFold(p.Address, address) {
			return p
		}
	}
	return nil
}

func (m *Manifest) AddProxy(entry *ProxyEntry) {
	if existing := m.Proxy(entry.Address); existing != nil {
		existing.Kind = entry.Kind
		return
	}
	m.Proxies = append(m.Proxies, entry)
}

// extraFields holds the keys of a manifest object that have no struct field.
type extraFields map[string]json.RawMessage

func collectExtra(data []byte, known ...string) (extraFields, error) {
	var all extraFields
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func (x extraFields) marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil || len(x) == 0 {
		return b, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	for k, raw := range x {
		if _, ok := all[k]; !ok {
			all[k] = raw
		}
	}
	return json.Marshal(all)
}

func (m *Manifest) UnmarshalJSON(data []byte) (err error) {
	type plain Manifest
	if err = json.Unmarshal(data, (*plain)(m)); err != nil {
		return err
	}
	m.extra, err = collectExtra(data, "manifestVersion", "admin", "proxies", "impls")
	return err
}

func (m Manifest) MarshalJSON() ([]byte, error) {
	type plain Manifest
	return m.extra.marshal(plain(m))
}

func (e *Entry) UnmarshalJSON(data []byte) (err error) {
	type plain Entry
	if err = json.Unmarshal(data, (*plain)(e)); err != nil {
		return err
	}
	e.extra, err = collectExtra(data, "address", "txHash")
	return err
}

func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	return e.extra.marshal(plain(e))
}

func (e *ProxyEntry) UnmarshalJSON(data []byte) (err error) {
	type plain ProxyEntry
	if err = json.Unmarshal(data, (*plain)(e)); err != nil {
		return err
	}
	e.extra, err = collectExtra(data, "address", "txHash", "kind")
	return err
}

func (e ProxyEntry) MarshalJSON() ([]byte, error) {
	type plain ProxyEntry
	return e.extra.marshal(plain(e))
}

func (e *ImplEntry) UnmarshalJSON(data []byte) (err error) {
	type plain ImplEntry
	if err = json.Unmarshal(data, (*plain)(e)); err != nil {
		return err
	}
	e.extra, err = collectExtra(data, "address", "txHash", "contract")
	return err
}

func (e ImplEntry) MarshalJSON() ([]byte, error) {
	type plain ImplEntry
	return e.extra.marshal(plain(e))
}
