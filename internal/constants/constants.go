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

package constants

import (
	"os"
	"path/filepath"
)

var homeDir, _ = os.UserHomeDir()
var KeystoreDir = filepath.Join(homeDir, ".diir", "keystore")

var ArtifactsDir = "artifacts"
var ABIDir = "abi"
var ManifestDir = ".openzeppelin"
var ProjectConfigFile = "diir.yaml"
var EnvFile = ".env"

// EIP-170 limit on deployed bytecode
const MaxContractSize = 24576

// EIP-3860 limit on initcode
const MaxInitCodeSize = 2 * MaxContractSize

var ChainNames = map[int64]string{
	1:        "mainnet",
	5:        "goerli",
	11155111: "sepolia",
}

var ExplorerAPIURLs = map[int64]string{
	1:        "https://api.etherscan.io/api",
	5:        "https://api-goerli.etherscan.io/api",
	11155111: "https://api-sepolia.etherscan.io/api",
}
