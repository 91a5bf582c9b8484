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
	"github.com/diir-io/diir-cli/pkg/types"
	"github.com/spf13/cobra"
)

var upgradeOptions types.UpgradeOptions
var upgradeKind string
var proxyRef string

// upgradeCmd represents the upgrade command
var upgradeCmd = &cobra.Command{
	Use:   "upgrade <contract> [call_param1 [call_param2 ...]]",
	Short: "Upgrade an existing proxy to a new implementation",
	Long: `Deploy a new implementation and point an existing proxy at it. The proxy
address is read from the --proxy record, which defaults to the contract's own
record abi/<network>/<Contract>.json. The address is used exactly as stored.

With --call the named function of the new implementation is called during the
upgrade with the remaining parameters.

Example:

diir upgrade DiiRTipV1 --proxy record:abi/localhost/DiiRTip.json --network localhost
`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: initCommand,
	RunE: func(cmd *cobra.Command, args []string) error {
		if upgradeKind != "" {
			kind, err := types.ParseProxyKind(cmd.Context(), upgradeKind)
			if err != nil {
				return err
			}
			upgradeOptions.Kind = kind
		}
		if len(args) > 1 && upgradeOptions.Call == "" {
			return fmt.Errorf("arguments %v were given without --call", args[1:])
		}
		upgradeOptions.CallArgs = args[1:]
		d, err := newDeployer(cmd)
		if err != nil {
			return err
		}
		if err := confirmNetwork(d.Config(), networkName, assumeYes); err != nil {
			return err
		}
		ctx, done := commandContext(cmd)
		defer done()
		_, err = d.Upgrade(ctx, &deployer.UpgradeRequest{
			Network:  networkName,
			Contract: args[0],
			Proxy:    proxyRef,
			Output:   outputPath,
			Options:  upgradeOptions,
		})
		return err
	},
}

func init() {
	upgradeCmd.Flags().StringVar(&proxyRef, "proxy", "", "proxy address, or record:<path> to read it from a deployment record")
	upgradeCmd.Flags().StringVarP(&upgradeKind, "kind", "k", "", "proxy kind, detected from the proxy when empty (\"transparent\"|\"uups\")")
	upgradeCmd.Flags().StringVar(&upgradeOptions.Call, "call", "", "function of the new implementation to call during the upgrade")
	upgradeCmd.Flags().BoolVar(&upgradeOptions.Redeploy, "redeploy", false, "deploy a new implementation even if an identical one exists")
	upgradeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "record path (default abi/<network>/<Contract>.json)")
	upgradeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation on mainnet or in production")
	rootCmd.AddCommand(upgradeCmd)
}
