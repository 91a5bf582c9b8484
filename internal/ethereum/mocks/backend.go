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

package mocks

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var DefaultRuntimeCode = []byte{0x60, 0x80, 0x60, 0x40, 0x52}

// Backend is an in-memory chain. Every transaction is mined as soon as it
// is sent. Contract creations get DefaultRuntimeCode unless RevertCreate
// says otherwise.
type Backend struct {
	mu sync.Mutex

	ChainIDValue *big.Int
	GasPrice     *big.Int
	Nonces       map[common.Address]uint64
	Code         map[common.Address][]byte
	Storage      map[common.Address]map[common.Hash]common.Hash
	Receipts     map[common.Hash]*types.Receipt
	CallResults  map[common.Address][]byte
	Sent         []*types.Transaction

	// SendErr is returned by SendTransaction once FailOnSend transactions
	// have been accepted.
	SendErr    error
	FailOnSend int
	// RevertCreate marks creation transactions as failed when it returns true.
	RevertCreate func(tx *types.Transaction) bool
	// RevertCall marks calls to the address as failed.
	RevertCall map[common.Address]bool
	// OnMined runs after each transaction with the sender and, for
	// creations, the new contract address.
	OnMined func(b *Backend, tx *types.Transaction, from common.Address, created common.Address)
	Closed  bool

	block int64
}

func NewBackend(chainID int64) *Backend {
	return &Backend{
		ChainIDValue: big.NewInt(chainID),
		GasPrice:     big.NewInt(1000000000),
		Nonces:       make(map[common.Address]uint64),
		Code:         make(map[common.Address][]byte),
		Storage:      make(map[common.Address]map[common.Hash]common.Hash),
		Receipts:     make(map[common.Hash]*types.Receipt),
		CallResults:  make(map[common.Address][]byte),
		RevertCall:   make(map[common.Address]bool),
	}
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.ChainIDValue), nil
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Nonces[account], nil
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.GasPrice), nil
}

func (b *Backend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 21000 + uint64(len(msg.Data))*16, nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	if b.SendErr != nil && len(b.Sent) >= b.FailOnSend {
		b.mu.Unlock()
		return b.SendErr
	}
	from, err := types.Sender(types.LatestSignerForChainID(b.ChainIDValue), tx)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	if tx.Nonce() != b.Nonces[from] {
		b.mu.Unlock()
		return errors.New("nonce too low")
	}
	b.Nonces[from]++
	b.block++
	b.Sent = append(b.Sent, tx)

	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas(),
		BlockNumber: big.NewInt(b.block),
	}
	var created common.Address
	if tx.To() == nil {
		created = crypto.CreateAddress(from, tx.Nonce())
		receipt.ContractAddress = created
		if b.RevertCreate != nil && b.RevertCreate(tx) {
			receipt.Status = types.ReceiptStatusFailed
		} else {
			b.Code[created] = DefaultRuntimeCode
		}
	} else if b.RevertCall[*tx.To()] {
		receipt.Status = types.ReceiptStatusFailed
	}
	b.Receipts[tx.Hash()] = receipt
	onMined := b.OnMined
	b.mu.Unlock()

	if onMined != nil && receipt.Status == types.ReceiptStatusSuccessful {
		onMined(b, tx, from, created)
	}
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	receipt, ok := b.Receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (b *Backend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Code[account], nil
}

func (b *Backend) StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Storage[account][key].Bytes(), nil
}

func (b *Backend) SetStorage(account common.Address, key common.Hash, value common.Hash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Storage[account] == nil {
		b.Storage[account] = make(map[common.Hash]common.Hash)
	}
	b.Storage[account][key] = value
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg.To == nil {
		return nil, errors.New("call without target")
	}
	return b.CallResults[*msg.To], nil
}

func (b *Backend) Close() {
	b.Closed = true
}

// SentTo returns the transactions addressed to a contract, in order.
func (b *Backend) SentTo(to common.Address) []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := []*types.Transaction{}
	for _, tx := range b.Sent {
		if tx.To() != nil && *tx.To() == to {
			result = append(result, tx)
		}
	}
	return result
}

// Creations returns the contract creation transactions, in order.
func (b *Backend) Creations() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := []*types.Transaction{}
	for _, tx := range b.Sent {
		if tx.To() == nil {
			result = append(result, tx)
		}
	}
	return result
}
