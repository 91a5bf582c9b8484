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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diir-io/diir-cli/internal/config"
)

var stdin io.Reader = os.Stdin

func prompt(promptText string, validate func(string) error) (string, error) {
	reader := bufio.NewReader(stdin)
	for {
		fmt.Print(promptText)
		if str, err := reader.ReadString('\n'); err != nil {
			return "", err
		} else {
			str = strings.TrimSpace(str)
			if err := validate(str); err != nil {
				printError(err)
			} else {
				return str, nil
			}
		}
	}
}

func confirm(promptText string) error {
	reader := bufio.NewReader(stdin)
	fmt.Printf("%s [y/N] ", promptText)
	str, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	str = strings.ToLower(strings.TrimSpace(str))
	if str == "y" || str == "yes" {
		return nil
	}
	return fmt.Errorf("confirmation declined with response: '%s'", str)
}

// confirmNetwork asks before sending transactions to mainnet or with
// NODE_ENV=production, unless --yes was given.
func confirmNetwork(cfg *config.Config, name string, yes bool) error {
	if yes {
		return nil
	}
	network, err := cfg.Network(name)
	if err != nil {
		return err
	}
	if network.ChainID != 1 && cfg.NodeEnv != config.ProductionEnv {
		return nil
	}
	return confirm(fmt.Sprintf("This will send transactions to '%s' (chain %d, NODE_ENV=%s). Continue?", network.Name, network.ChainID, cfg.NodeEnv))
}

func printError(err error) {
	if fancyFeatures {
		fmt.Printf("\u001b[31mError: %s\u001b[0m\n", err.Error())
	} else {
		fmt.Printf("Error: %s\n", err.Error())
	}
}
