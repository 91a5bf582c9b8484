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
	"github.com/diir-io/diir-cli/internal/artifacts"
	"github.com/diir-io/diir-cli/internal/sizer"
	"github.com/spf13/cobra"
)

var noStrict bool

var sizesCmd = &cobra.Command{
	Use:   "sizes [contract ...]",
	Short: "Report the size of the compiled contracts",
	Long: `Report the deployed and initcode size of every compiled contract. Contracts
over the 24 KiB deployment limit fail the command when the contract sizer is
strict.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry, err := artifacts.Load(cfg.Paths.Artifacts)
		if err != nil {
			return err
		}
		entries, err := sizer.Measure(registry, &sizer.Options{
			AlphaSort:         cfg.ContractSizer.AlphaSort,
			DisambiguatePaths: cfg.ContractSizer.DisambiguatePaths,
			Only:              args,
		})
		if err != nil {
			return err
		}
		sizer.Render(cmd.OutOrStdout(), entries)
		if cfg.ContractSizer.Strict && !noStrict {
			return sizer.Check(entries)
		}
		return nil
	},
}

func init() {
	sizesCmd.Flags().BoolVar(&noStrict, "no-strict", false, "report oversized contracts without failing")
	rootCmd.AddCommand(sizesCmd)
}
