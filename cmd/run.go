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

	"github.com/diir-io/diir-cli/internal/deployer"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a preset deployment script",
	Long: `Run one of the preset deployment scripts. Each script deploys or upgrades
one contract on its own network, unless --network is given, and writes a fixed
record under the abi directory. Run "diir scripts" to list them.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: listScripts,
	PreRunE:           initCommand,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeployer(cmd)
		if err != nil {
			return err
		}
		script, err := deployer.FindScript(args[0])
		if err != nil {
			return err
		}
		network := networkName
		if network == "" {
			network = script.Network
		}
		if err := confirmNetwork(d.Config(), network, assumeYes); err != nil {
			return err
		}
		ctx, done := commandContext(cmd)
		defer done()
		_, err = d.RunScript(ctx, script.Name, network)
		return err
	},
}

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "List the preset deployment scripts",
	Long:  `List the preset deployment scripts`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Script", "Action", "Contract", "Network", "Record", "Description"})
		table.SetAutoWrapText(false)
		for _, s := range deployer.Scripts() {
			table.Append([]string{s.Name, string(s.Action), s.Contract, s.Network, s.Output, s.Description})
		}
		table.Render()
		fmt.Fprintf(cmd.OutOrStdout(), "\nrun one with: %s run <script>\n", ExecutableName)
		return nil
	},
}

// listScripts aids in completion, to provide completion to command for script name.
func listScripts(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return deployer.ScriptNames(), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	runCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation on mainnet or in production")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scriptsCmd)
}
