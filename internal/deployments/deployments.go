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

package deployments

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/diir-io/diir-cli/pkg/types"
	"github.com/otiai10/copy"
)

var ErrRecordNotFound = errors.New("deployment record not found")

// Path is where the record for a contract deployed to a network lives,
// e.g. abi/testnet/DiiRTip.json.
func Path(abiDir, networkDir, contract string) string {
	return filepath.Join(abiDir, networkDir, contract+".json")
}

// Write replaces the record at path. The previous content is never merged
// and is left untouched if the write fails.
func Write(path string, record *types.DeploymentRecord) error {
	if record.Address == "" {
		return fmt.Errorf("refusing to write record '%s' with no address", path)
	}
	var abi []json.RawMessage
	if err := json.Unmarshal(record.ABI, &abi); err != nil || abi == nil {
		return fmt.Errorf("refusing to write record '%s' for %s: abi is not a JSON array", path, record.Address)
	}
	b, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write record for %s: %w", record.Address, err)
	}
	return nil
}

// WriteFileAtomic writes to a temporary file next to path and renames it
// into place, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func Read(path string) (*types.DeploymentRecord, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, path)
		}
		return nil, err
	}
	var record *types.DeploymentRecord
	if err := json.Unmarshal(d, &record); err != nil {
		return nil, fmt.Errorf("invalid deployment record '%s': %w", path, err)
	}
	if record == nil {
		return nil, fmt.Errorf("invalid deployment record '%s': empty", path)
	}
	return record, nil
}

// ProxyAddress returns the address key of a record exactly as stored.
func ProxyAddress(path string) (string, error) {
	record, err := Read(path)
	if err != nil {
		return "", err
	}
	if record.Address == "" {
		return "", fmt.Errorf("deployment record '%s' has no address", path)
	}
	return record.Address, nil
}

// Export copies the record tree to dest, for example into a frontend's
// source directory. Temporary files from interrupted writes are skipped.
func Export(abiDir, dest string) error {
	if _, err := os.Stat(abiDir); err != nil {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, abiDir)
	}
	return copy.Copy(abiDir, dest, copy.Options{
		Skip: func(src string) (bool, error) {
			return filepath.Ext(src) == ".tmp", nil
		},
	})
}
