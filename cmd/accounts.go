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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/diir-io/diir-cli/internal/constants"
	"github.com/diir-io/diir-cli/internal/deployer"
	"github.com/diir-io/diir-cli/internal/ethereum"
	"github.com/spf13/cobra"
)

type Account struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey,omitempty"`
	Keystore   string `json:"keystore,omitempty"`
}

var keystoreDir string
var keystorePassword string
var keystorePrefix string

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage deployer accounts",
	Long:  `Manage the accounts used to sign deployments`,
}

var accountsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new keystore account",
	Long: `Create a new account and store it as an encrypted keystore v3 file. Point a
network's keystore setting at the file to deploy with it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := keystorePassword
		if password == "" {
			var err error
			password, err = prompt("keystore password: ", func(s string) error {
				if len(s) < 8 {
					return fmt.Errorf("the password must be at least 8 characters")
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		keyPair, filename, err := ethereum.CreateWalletFile(keystoreDir, keystorePrefix, password)
		if err != nil {
			return err
		}
		account := &Account{
			Address:    keyPair.Address.String(),
			PrivateKey: "0x" + hex.EncodeToString(keyPair.PrivateKeyBytes()),
			Keystore:   filename,
		}
		b, err := json.MarshalIndent(account, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var accountsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the keystore accounts",
	Long:    `List the accounts in the keystore directory`,
	Args:    cobra.NoArgs,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := listKeystore(keystoreDir)
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(accounts, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var accountsAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the deployer address for a network",
	Long:  `Print the address that signs deployments on the selected network`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		network, err := cfg.Network(networkName)
		if err != nil {
			return err
		}
		key, err := deployer.LoadKey(network)
		if err != nil {
			return err
		}
		address := ethereum.KeyAddress(key)
		fmt.Fprintln(cmd.OutOrStdout(), address)
		return nil
	},
}

func listKeystore(dir string) ([]*Account, error) {
	accounts := []*Account{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return accounts, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		d, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var wallet struct {
			Address string `json:"address"`
		}
		if err := json.Unmarshal(d, &wallet); err != nil || wallet.Address == "" {
			continue
		}
		address := wallet.Address
		if !strings.HasPrefix(address, "0x") {
			address = "0x" + address
		}
		accounts = append(accounts, &Account{Address: address, Keystore: path})
	}
	return accounts, nil
}

func init() {
	accountsCmd.PersistentFlags().StringVar(&keystoreDir, "dir", constants.KeystoreDir, "keystore directory")
	accountsCreateCmd.Flags().StringVar(&keystorePassword, "password", "", "keystore password (prompted when empty)")
	accountsCreateCmd.Flags().StringVar(&keystorePrefix, "prefix", "", "file name prefix")
	accountsCmd.AddCommand(accountsCreateCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsAddressCmd)
	rootCmd.AddCommand(accountsCmd)
}
