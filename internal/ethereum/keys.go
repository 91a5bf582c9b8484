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

package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hyperledger/firefly-signer/pkg/keystorev3"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
)

func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func ReadKeystore(path, password string) (*ecdsa.PrivateKey, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	wallet, err := keystorev3.ReadWalletFile(d, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt keystore '%s': %w", path, err)
	}
	return crypto.ToECDSA(wallet.KeyPair().PrivateKeyBytes())
}

// KeyAddress computes the lowercase account address of a private key.
func KeyAddress(key *ecdsa.PrivateKey) string {
	_, publicKey := btcec.PrivKeyFromBytes(crypto.FromECDSA(key))
	// Remove the "04" prefix byte that marks an uncompressed public key
	publicKeyBytes := publicKey.SerializeUncompressed()[1:]
	// Ethereum addresses only use the lower 20 bytes, so toss the rest away
	return "0x" + hex.EncodeToString(keccak256(publicKeyBytes)[12:32])
}

func CreateWalletFile(outputDirectory, prefix, password string) (*secp256k1.KeyPair, string, error) {
	keyPair, err := secp256k1.GenerateSecp256k1KeyPair()
	if err != nil {
		return nil, "", err
	}
	wallet := keystorev3.NewWalletFileStandard(password, keyPair)

	if err := os.MkdirAll(outputDirectory, 0700); err != nil {
		return nil, "", err
	}

	var filename string
	if prefix != "" {
		filename = filepath.Join(outputDirectory, fmt.Sprintf("%v_%s.json", prefix, keyPair.Address.String()[2:]))
	} else {
		filename = filepath.Join(outputDirectory, keyPair.Address.String()[2:]+".json")
	}
	if err := os.WriteFile(filename, wallet.JSON(), 0600); err != nil {
		return nil, "", err
	}
	return keyPair, filename, nil
}
