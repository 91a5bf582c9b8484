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

	"github.com/diir-io/diir-cli/internal/deployments"
	"github.com/spf13/cobra"
)

var abiCmd = &cobra.Command{
	Use:   "abi",
	Short: "Work with deployment records",
	Long:  `Work with the deployment records written to the abi directory`,
}

var abiExportCmd = &cobra.Command{
	Use:   "export <destination>",
	Short: "Copy the deployment records to another directory",
	Long: `Copy every deployment record, keeping the per-network directories, for
example into a frontend's source tree.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := deployments.Export(cfg.Paths.ABI, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", cfg.Paths.ABI, args[0])
		return nil
	},
}

var abiShowCmd = &cobra.Command{
	Use:   "address <record.json>",
	Short: "Print the address stored in a deployment record",
	Long:  `Print the address stored in a deployment record, exactly as stored`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, err := deployments.ProxyAddress(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), address)
		return nil
	},
}

func init() {
	abiCmd.AddCommand(abiExportCmd)
	abiCmd.AddCommand(abiShowCmd)
	rootCmd.AddCommand(abiCmd)
}
