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
	"errors"
	"fmt"
	"net/url"

	"github.com/diir-io/diir-cli/internal/constants"
	"github.com/hashicorp/go-multierror"
)

var ErrNoAccounts = errors.New("no accounts configured")

type Network struct {
	Name                       string   `yaml:"-"`
	URL                        string   `yaml:"url,omitempty"`
	URLEnv                     string   `yaml:"urlEnv,omitempty"`
	ChainID                    int64    `yaml:"chainId,omitempty"`
	Accounts                   []string `yaml:"accounts,omitempty"`
	AccountsEnv                string   `yaml:"accountsEnv,omitempty"`
	Keystore                   string   `yaml:"keystore,omitempty"`
	KeystorePassword           string   `yaml:"keystorePassword,omitempty"`
	KeystorePasswordEnv        string   `yaml:"keystorePasswordEnv,omitempty"`
	AllowUnlimitedContractSize bool     `yaml:"allowUnlimitedContractSize,omitempty"`
	InProcess                  bool     `yaml:"inProcess,omitempty"`
	ExplorerURL                string   `yaml:"explorerUrl,omitempty"`
	RecordDir                  string   `yaml:"recordDir,omitempty"`
}

// Validate reports every problem with the network at once.
func (n *Network) Validate() error {
	var result *multierror.Error
	if n.InProcess {
		result = multierror.Append(result, fmt.Errorf("network '%s' is the in-process network and cannot be dialed, use 'localhost' with a running node", n.Name))
	}
	if !n.InProcess {
		if n.URL == "" {
			if n.URLEnv != "" {
				result = multierror.Append(result, fmt.Errorf("network '%s' has no url, set %s", n.Name, n.URLEnv))
			} else {
				result = multierror.Append(result, fmt.Errorf("network '%s' has no url", n.Name))
			}
		} else if u, err := url.Parse(n.URL); err != nil || u.Scheme == "" || u.Host == "" {
			result = multierror.Append(result, fmt.Errorf("network '%s' has an invalid url '%s'", n.Name, n.URL))
		}
	}
	if len(n.Accounts) == 0 && n.Keystore == "" {
		if n.AccountsEnv != "" {
			result = multierror.Append(result, fmt.Errorf("%w for network '%s', set %s", ErrNoAccounts, n.Name, n.AccountsEnv))
		} else {
			result = multierror.Append(result, fmt.Errorf("%w for network '%s'", ErrNoAccounts, n.Name))
		}
	}
	return result.ErrorOrNil()
}

// RecordDirName is the directory under the abi path that holds records
// deployed to this network.
func (n *Network) RecordDirName() string {
	if n.RecordDir != "" {
		return n.RecordDir
	}
	if n.InProcess {
		return "localhost"
	}
	return n.Name
}

func (n *Network) ExplorerAPIURL() string {
	if n.ExplorerURL != "" {
		return n.ExplorerURL
	}
	return constants.ExplorerAPIURLs[n.ChainID]
}

func (n *Network) MaxContractSize() int {
	if n.AllowUnlimitedContractSize {
		return 0
	}
	return constants.MaxContractSize
}
