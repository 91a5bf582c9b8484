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

package sizer

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/diir-io/diir-cli/internal/artifacts"
	"github.com/diir-io/diir-cli/internal/constants"
	"github.com/hashicorp/go-multierror"
	"github.com/olekukonko/tablewriter"
)

var ErrContractTooLarge = errors.New("contract code size exceeds limit")

type Options struct {
	AlphaSort         bool
	DisambiguatePaths bool
	// Only restricts the report to these contract names when non-empty.
	Only []string
}

type Entry struct {
	Name         string
	DeployedSize int
	InitCodeSize int
}

func (e *Entry) TooLarge() bool {
	return e.DeployedSize > constants.MaxContractSize || e.InitCodeSize > constants.MaxInitCodeSize
}

// Measure sizes every deployable artifact in the registry.
func Measure(registry *artifacts.Registry, opts *Options) ([]*Entry, error) {
	only := map[string]bool{}
	for _, name := range opts.Only {
		only[name] = true
	}
	entries := []*Entry{}
	for _, a := range registry.All() {
		if !a.IsDeployable() {
			continue
		}
		if len(only) > 0 && !only[a.ContractName] && !only[a.FullyQualifiedName()] {
			continue
		}
		deployed, err := a.DeployedSize()
		if err != nil {
			return nil, err
		}
		initCode, err := a.InitCodeSize()
		if err != nil {
			return nil, err
		}
		name := a.ContractName
		if opts.DisambiguatePaths {
			name = a.FullyQualifiedName()
		}
		entries = append(entries, &Entry{
			Name:         name,
			DeployedSize: deployed,
			InitCodeSize: initCode,
		})
	}
	if opts.AlphaSort {
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToUpper(entries[i].Name) < strings.ToUpper(entries[j].Name)
		})
	} else {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].DeployedSize < entries[j].DeployedSize
		})
	}
	return entries, nil
}

func kib(size int) string {
	return fmt.Sprintf("%.3f", float64(size)/1024)
}

func Render(w io.Writer, entries []*Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Contract Name", "Deployed size (KiB)", "Initcode size (KiB)", ""})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, e := range entries {
		warning := ""
		if e.TooLarge() {
			warning = "too large"
		}
		table.Append([]string{e.Name, kib(e.DeployedSize), kib(e.InitCodeSize), warning})
	}
	table.Render()
}

// Check fails for every contract over the deployed code or initcode limit.
func Check(entries []*Entry) error {
	var result *multierror.Error
	for _, e := range entries {
		if e.DeployedSize > constants.MaxContractSize {
			result = multierror.Append(result, fmt.Errorf("%w: %s is %s KiB, the limit is %s KiB", ErrContractTooLarge, e.Name, kib(e.DeployedSize), kib(constants.MaxContractSize)))
		}
		if e.InitCodeSize > constants.MaxInitCodeSize {
			result = multierror.Append(result, fmt.Errorf("%w: %s initcode is %s KiB, the limit is %s KiB", ErrContractTooLarge, e.Name, kib(e.InitCodeSize), kib(constants.MaxInitCodeSize)))
		}
	}
	return result.ErrorOrNil()
}

// CheckSize enforces limit on one artifact's deployed code. A limit of 0
// means unlimited.
func CheckSize(a *artifacts.Artifact, limit int) error {
	if limit <= 0 {
		return nil
	}
	deployed, err := a.DeployedBytecodeBytes()
	if err != nil {
		return err
	}
	if len(deployed) > limit {
		return fmt.Errorf("%w: %s is %d bytes, the network allows %d", ErrContractTooLarge, a.ContractName, len(deployed), limit)
	}
	return nil
}
