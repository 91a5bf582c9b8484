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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type solcCompiledContract struct {
	ABI json.RawMessage `json:"abi"`
	Bin string          `json:"bin"`
	// not present in older solc output
	BinRuntime string `json:"bin-runtime,omitempty"`
}

type solcCompiledContracts struct {
	Contracts map[string]*solcCompiledContract `json:"contracts"`
}

func ReadSolcCompiledContracts(d []byte, filePath string) ([]*Artifact, error) {
	var compiled *solcCompiledContracts
	if err := json.Unmarshal(d, &compiled); err != nil {
		return nil, err
	}
	if compiled == nil {
		return nil, nil
	}
	result := make([]*Artifact, 0, len(compiled.Contracts))
	for key, c := range compiled.Contracts {
		contractABI := c.ABI
		// solc before 0.8 emits the abi as a JSON string
		var abiString string
		if err := json.Unmarshal(c.ABI, &abiString); err == nil {
			contractABI = json.RawMessage(abiString)
		}
		sourceName, contractName := splitQualifiedName(key)
		result = append(result, &Artifact{
			ContractName:     contractName,
			SourceName:       sourceName,
			ABI:              contractABI,
			Bytecode:         c.Bin,
			DeployedBytecode: c.BinRuntime,
			path:             filePath,
		})
	}
	return result, nil
}

func ReadArtifactFile(filePath string) ([]*Artifact, error) {
	d, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	contracts, err := ReadSolcCompiledContracts(d, filePath)
	if err == nil && len(contracts) > 0 {
		return contracts, nil
	}
	var artifact *Artifact
	if err := json.Unmarshal(d, &artifact); err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", filePath, err)
	}
	if artifact == nil || artifact.ContractName == "" || len(artifact.ABI) == 0 {
		return nil, nil
	}
	artifact.path = filePath
	return []*Artifact{artifact}, nil
}

// ReadArtifactsDir walks a hardhat artifacts directory. Debug files and
// build info are skipped, anything that is not a compiled contract is
// ignored.
func ReadArtifactsDir(dir string) ([]*Artifact, error) {
	result := []*Artifact{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".dbg.json") {
			return nil
		}
		contracts, err := ReadArtifactFile(path)
		if err != nil {
			return err
		}
		result = append(result, contracts...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func splitQualifiedName(key string) (sourceName, contractName string) {
	i := strings.LastIndex(key, ":")
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}
