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

package cmd

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List the configured networks",
	Long: `List the configured networks, where their records are written, and anything
that has to be set before deploying to them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Network", "Chain ID", "URL", "Records", "Status"})
		table.SetAutoWrapText(false)
		for _, name := range cfg.NetworkNames() {
			n, err := cfg.Network(name)
			if err != nil {
				return err
			}
			status := "ready"
			if err := n.Validate(); err != nil {
				status = strings.Join(validationProblems(err), "; ")
			}
			if name == cfg.DefaultNetwork {
				name += " (default)"
			}
			url := n.URL
			if n.InProcess {
				url = "in-process"
			}
			table.Append([]string{name, fmt.Sprint(n.ChainID), url, n.RecordDirName(), status})
		}
		table.Render()
		return nil
	},
}

func validationProblems(err error) []string {
	type wrapped interface{ WrappedErrors() []error }
	if w, ok := err.(wrapped); ok {
		problems := []string{}
		for _, e := range w.WrappedErrors() {
			problems = append(problems, e.Error())
		}
		return problems
	}
	return []string{err.Error()}
}

func init() {
	rootCmd.AddCommand(networksCmd)
}
