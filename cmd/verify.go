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
	"github.com/diir-io/diir-cli/internal/explorer"
	"github.com/spf13/cobra"
)

var verifyContract string

var verifyCmd = &cobra.Command{
	Use:   "verify <record.json>",
	Short: "Verify a deployed contract on the block explorer",
	Long: `Publish the source of the implementation behind a recorded proxy to the
block explorer and link the proxy to it. The contract name defaults to the
record's file name. The API key is read from ETHERSCAN_API_KEY.

Example:

diir verify abi/testnet/DiiRTip.json --network goerli
`,
	Args:    cobra.ExactArgs(1),
	PreRunE: initCommand,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeployer(cmd)
		if err != nil {
			return err
		}
		network, err := d.Config().Network(networkName)
		if err != nil {
			return err
		}
		apiURL := network.ExplorerAPIURL()
		if apiURL == "" {
			return fmt.Errorf("no explorer is known for network '%s', set explorerUrl in the network config", network.Name)
		}
		client := explorer.NewClient(apiURL, d.Config().Etherscan.APIKey)
		if explorerClient != nil {
			client = explorerClient
		}
		ctx, done := commandContext(cmd)
		defer done()
		return d.Verify(ctx, client, &deployer.VerifyRequest{
			Network:  network.Name,
			Record:   args[0],
			Contract: verifyContract,
		})
	},
}

// explorerClient replaces the explorer client when set
var explorerClient *explorer.Client

func init() {
	verifyCmd.Flags().StringVarP(&verifyContract, "contract", "c", "", "contract name of the implementation (default is the record file name)")
	rootCmd.AddCommand(verifyCmd)
}
