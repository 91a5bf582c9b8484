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
	"context"
	"encoding/hex"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ERC-1967 storage slots: keccak256(label) - 1
var (
	ImplementationSlot = erc1967Slot("eip1967.proxy.implementation")
	AdminSlot          = erc1967Slot("eip1967.proxy.admin")
	BeaconSlot         = erc1967Slot("eip1967.proxy.beacon")
)

type StorageReader interface {
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

func keccak256(data ...[]byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hash.Write(d)
	}
	return hash.Sum(nil)
}

func erc1967Slot(label string) common.Hash {
	n := new(big.Int).SetBytes(keccak256([]byte(label)))
	return common.BigToHash(n.Sub(n, big.NewInt(1)))
}

// BytecodeHash identifies an implementation by its creation code.
func BytecodeHash(code []byte) string {
	return "0x" + hex.EncodeToString(keccak256(code))
}

func ReadAddressSlot(ctx context.Context, r StorageReader, account common.Address, slot common.Hash) (common.Address, error) {
	b, err := r.StorageAt(ctx, account, slot, nil)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(b), nil
}

func ImplementationAddress(ctx context.Context, r StorageReader, proxy common.Address) (common.Address, error) {
	return ReadAddressSlot(ctx, r, proxy, ImplementationSlot)
}

func AdminAddress(ctx context.Context, r StorageReader, proxy common.Address) (common.Address, error) {
	return ReadAddressSlot(ctx, r, proxy, AdminSlot)
}
