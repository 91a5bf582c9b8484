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
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is a compiled contract. Hardhat and Truffle artifacts decode
// straight into it, solc combined-json output is converted.
type Artifact struct {
	Format           string          `json:"_format,omitempty"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName,omitempty"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode,omitempty"`

	path string
}

type BuildInfo struct {
	ID              string          `json:"id"`
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
}

type debugFile struct {
	BuildInfo string `json:"buildInfo"`
}

func (a *Artifact) FullyQualifiedName() string {
	if a.SourceName == "" {
		return a.ContractName
	}
	return a.SourceName + ":" + a.ContractName
}

func (a *Artifact) Path() string {
	return a.path
}

func (a *Artifact) ParsedABI() (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("invalid abi for %s: %w", a.ContractName, err)
	}
	return parsed, nil
}

// CompactABI is the abi as a single-line JSON array.
func (a *Artifact) CompactABI() (json.RawMessage, error) {
	buf := &bytes.Buffer{}
	if err := json.Compact(buf, a.ABI); err != nil {
		return nil, fmt.Errorf("invalid abi for %s: %w", a.ContractName, err)
	}
	return buf.Bytes(), nil
}

func (a *Artifact) BytecodeBytes() ([]byte, error) {
	return decodeBytecode(a.ContractName, a.Bytecode)
}

func (a *Artifact) DeployedBytecodeBytes() ([]byte, error) {
	return decodeBytecode(a.ContractName, a.DeployedBytecode)
}

// InitCodeSize is the creation code length in bytes. Unlinked library
// references count as the 20 byte addresses they will be replaced with.
func (a *Artifact) InitCodeSize() (int, error) {
	return codeSize(a.ContractName, a.Bytecode)
}

// DeployedSize is the runtime code length in bytes, counted like
// InitCodeSize.
func (a *Artifact) DeployedSize() (int, error) {
	return codeSize(a.ContractName, a.DeployedBytecode)
}

// IsDeployable is false for interfaces and abstract contracts, which
// compile to an empty bytecode.
func (a *Artifact) IsDeployable() bool {
	b := strings.TrimPrefix(a.Bytecode, "0x")
	return b != ""
}

// BuildInfo follows the hardhat debug file next to the artifact to the
// compiler input it was built from.
func (a *Artifact) BuildInfo() (*BuildInfo, error) {
	if a.path == "" {
		return nil, fmt.Errorf("no build info for %s: artifact was not loaded from a file", a.ContractName)
	}
	dbgPath := strings.TrimSuffix(a.path, ".json") + ".dbg.json"
	d, err := os.ReadFile(dbgPath)
	if err != nil {
		return nil, fmt.Errorf("no build info for %s: %w", a.ContractName, err)
	}
	var dbg *debugFile
	if err := json.Unmarshal(d, &dbg); err != nil {
		return nil, err
	}
	if dbg.BuildInfo == "" {
		return nil, fmt.Errorf("no build info for %s: debug file '%s' has no buildInfo", a.ContractName, dbgPath)
	}
	buildInfoPath := dbg.BuildInfo
	if !filepath.IsAbs(buildInfoPath) {
		buildInfoPath = filepath.Join(filepath.Dir(dbgPath), buildInfoPath)
	}
	b, err := os.ReadFile(buildInfoPath)
	if err != nil {
		return nil, err
	}
	var info *BuildInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// libraryPlaceholder matches both the __$<hash>$__ and the older
// __<path:Name>___ forms, each 40 characters long.
var libraryPlaceholder = regexp.MustCompile(`__.{36}__`)

func codeSize(name, code string) (int, error) {
	code = strings.TrimPrefix(strings.TrimSpace(code), "0x")
	linked := libraryPlaceholder.ReplaceAllString(code, strings.Repeat("0", 40))
	if _, err := hex.DecodeString(linked); err != nil {
		return 0, fmt.Errorf("invalid bytecode for %s: %w", name, err)
	}
	return len(linked) / 2, nil
}

func decodeBytecode(name, code string) ([]byte, error) {
	code = strings.TrimPrefix(strings.TrimSpace(code), "0x")
	if strings.Contains(code, "__") {
		return nil, fmt.Errorf("contract %s has unlinked library references", name)
	}
	b, err := hex.DecodeString(code)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode for %s: %w", name, err)
	}
	return b, nil
}
