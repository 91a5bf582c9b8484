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

package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/diir-io/diir-cli/internal/constants"
	"github.com/diir-io/diir-cli/pkg/types"
)

const ProductionEnv = "production"

type OptimizerSettings struct {
	Enabled bool `yaml:"enabled"`
	Runs    int  `yaml:"runs"`
}

type CompilerSettings struct {
	Optimizer OptimizerSettings `yaml:"optimizer"`
}

type Compiler struct {
	Version  string           `yaml:"version"`
	Settings CompilerSettings `yaml:"settings"`
}

type SolidityConfig struct {
	Compilers []Compiler `yaml:"compilers"`
}

type PathsConfig struct {
	Artifacts string `yaml:"artifacts,omitempty"`
	ABI       string `yaml:"abi,omitempty"`
	Manifest  string `yaml:"manifest,omitempty"`
}

type EtherscanConfig struct {
	APIKey    string `yaml:"apiKey,omitempty"`
	APIKeyEnv string `yaml:"apiKeyEnv,omitempty"`
}

type ContractSizerConfig struct {
	AlphaSort         bool `yaml:"alphaSort"`
	DisambiguatePaths bool `yaml:"disambiguatePaths"`
	RunOnCompile      bool `yaml:"runOnCompile"`
	Strict            bool `yaml:"strict"`
}

type PriceFeedConfig struct {
	Mainnet    types.HexAddress `yaml:"mainnet,omitempty"`
	MainnetEnv string           `yaml:"mainnetEnv,omitempty"`
	Testnet    types.HexAddress `yaml:"testnet,omitempty"`
	TestnetEnv string           `yaml:"testnetEnv,omitempty"`
}

type Config struct {
	Solidity       SolidityConfig      `yaml:"solidity"`
	DefaultNetwork string              `yaml:"defaultNetwork,omitempty"`
	Networks       map[string]*Network `yaml:"networks"`
	Paths          PathsConfig         `yaml:"paths"`
	Etherscan      EtherscanConfig     `yaml:"etherscan"`
	ContractSizer  ContractSizerConfig `yaml:"contractSizer"`
	PriceFeed      PriceFeedConfig     `yaml:"priceFeed"`
	NodeEnv        string              `yaml:"nodeEnv,omitempty"`
}

// Default mirrors the build configuration the contracts were developed
// against. Values that come from the environment are only named here and
// filled in by Resolve.
func Default() *Config {
	return &Config{
		Solidity: SolidityConfig{
			Compilers: []Compiler{
				{
					Version: "0.8.12",
					Settings: CompilerSettings{
						Optimizer: OptimizerSettings{
							Enabled: true,
							Runs:    20,
						},
					},
				},
			},
		},
		DefaultNetwork: "hardhat",
		Networks: map[string]*Network{
			"hardhat": {
				ChainID:   1337,
				InProcess: true,
			},
			"goerli": {
				URLEnv:      "GOERLI_URL",
				AccountsEnv: "PRIVATE_KEY_TESTNET",
				ChainID:     5,
				RecordDir:   "testnet",
			},
			"localhost": {
				URL:                        "http://127.0.0.1:8545",
				AllowUnlimitedContractSize: true,
				ChainID:                    1337,
				AccountsEnv:                "PRIVATE_KEY_LOCAL",
				RecordDir:                  "localhost",
			},
		},
		Paths: PathsConfig{
			Artifacts: constants.ArtifactsDir,
			ABI:       constants.ABIDir,
			Manifest:  constants.ManifestDir,
		},
		Etherscan: EtherscanConfig{
			APIKeyEnv: "ETHERSCAN_API_KEY",
		},
		ContractSizer: ContractSizerConfig{
			AlphaSort:         true,
			DisambiguatePaths: false,
			RunOnCompile:      true,
			Strict:            true,
		},
		PriceFeed: PriceFeedConfig{
			MainnetEnv: "PRICE_FEED_ADDRESS_MAINNET",
			TestnetEnv: "PRICE_FEED_ADDRESS_TESTNET",
		},
	}
}

// Resolve fills every value that is sourced from the environment. Values
// already set explicitly are kept.
func (c *Config) Resolve(lookup func(key string) string) {
	for name, n := range c.Networks {
		n.Name = name
		if n.URL == "" && n.URLEnv != "" {
			n.URL = lookup(n.URLEnv)
		}
		if len(n.Accounts) == 0 && n.AccountsEnv != "" {
			if key := lookup(n.AccountsEnv); key != "" {
				n.Accounts = []string{key}
			}
		}
		if n.KeystorePassword == "" && n.KeystorePasswordEnv != "" {
			n.KeystorePassword = lookup(n.KeystorePasswordEnv)
		}
	}
	if c.Etherscan.APIKey == "" && c.Etherscan.APIKeyEnv != "" {
		c.Etherscan.APIKey = lookup(c.Etherscan.APIKeyEnv)
	}
	if c.PriceFeed.Mainnet.IsZero() && c.PriceFeed.MainnetEnv != "" {
		c.PriceFeed.Mainnet = types.ConvertToHexAddress(lookup(c.PriceFeed.MainnetEnv))
	}
	if c.PriceFeed.Testnet.IsZero() && c.PriceFeed.TestnetEnv != "" {
		c.PriceFeed.Testnet = types.ConvertToHexAddress(lookup(c.PriceFeed.TestnetEnv))
	}
	if c.NodeEnv == "" {
		c.NodeEnv = lookup("NODE_ENV")
	}
}

// PriceFeedAddress picks the mainnet feed only when NODE_ENV is exactly
// "production"; every other value, including unset, gets the testnet feed.
func (c *Config) PriceFeedAddress() types.HexAddress {
	if c.NodeEnv == ProductionEnv {
		return c.PriceFeed.Mainnet
	}
	return c.PriceFeed.Testnet
}

func (c *Config) Network(name string) (*Network, error) {
	if name == "" {
		name = c.DefaultNetwork
	}
	n, ok := c.Networks[name]
	if !ok {
		return nil, fmt.Errorf("network '%s' is not configured. valid options are: %s", name, strings.Join(c.NetworkNames(), ", "))
	}
	n.Name = name
	return n, nil
}

func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) CompilerVersion() string {
	if len(c.Solidity.Compilers) == 0 {
		return ""
	}
	return c.Solidity.Compilers[0].Version
}

// Redacted returns a copy that is safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Networks = make(map[string]*Network, len(c.Networks))
	for name, n := range c.Networks {
		nc := *n
		if len(nc.Accounts) > 0 {
			nc.Accounts = make([]string, len(n.Accounts))
			for i := range nc.Accounts {
				nc.Accounts[i] = "<redacted>"
			}
		}
		if nc.KeystorePassword != "" {
			nc.KeystorePassword = "<redacted>"
		}
		cp.Networks[name] = &nc
	}
	if cp.Etherscan.APIKey != "" {
		cp.Etherscan.APIKey = "<redacted>"
	}
	return &cp
}
