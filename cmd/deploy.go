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
	"github.com/diir-io/diir-cli/internal/deployer"
	"github.com/diir-io/diir-cli/pkg/types"
	"github.com/spf13/cobra"
)

var deployOptions types.DeployOptions
var deployKind string
var outputPath string
var assumeYes bool

// deployCmd represents the deploy command
var deployCmd = &cobra.Command{
	Use:   "deploy <contract> [initializer_param1 [initializer_param2 ...]]",
	Short: "Deploy a contract behind a new proxy",
	Long: `Deploy a compiled contract behind a new proxy and write its address and ABI
to abi/<network>/<Contract>.json.

Initializer parameters follow the contract name. A parameter of the form
record:<path> is replaced with the address in that deployment record, and
price-feed is replaced with the price feed address for the current NODE_ENV.

Example:

diir deploy DiiRTip record:abi/testnet/DiiRProfile.json price-feed --network goerli
`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: initCommand,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := types.ParseProxyKind(cmd.Context(), deployKind)
		if err != nil {
			return err
		}
		deployOptions.Kind = kind
		d, err := newDeployer(cmd)
		if err != nil {
			return err
		}
		if err := confirmNetwork(d.Config(), networkName, assumeYes); err != nil {
			return err
		}
		ctx, done := commandContext(cmd)
		defer done()
		_, err = d.Deploy(ctx, &deployer.DeployRequest{
			Network:  networkName,
			Contract: args[0],
			Args:     args[1:],
			Output:   outputPath,
			Options:  deployOptions,
		})
		return err
	},
}

func init() {
	deployCmd.Flags().StringVarP(&deployKind, "kind", "k", "transparent", "proxy kind (\"transparent\"|\"uups\")")
	deployCmd.Flags().StringVar(&deployOptions.Initializer, "initializer", "", "initializer function called through the proxy (default \"initialize\")")
	deployCmd.Flags().BoolVar(&deployOptions.NoInit, "no-init", false, "do not call an initializer")
	deployCmd.Flags().BoolVar(&deployOptions.Redeploy, "redeploy", false, "deploy a new implementation even if an identical one exists")
	deployCmd.Flags().StringVarP(&outputPath, "output", "o", "", "record path (default abi/<network>/<Contract>.json)")
	deployCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation on mainnet or in production")
	rootCmd.AddCommand(deployCmd)
}
