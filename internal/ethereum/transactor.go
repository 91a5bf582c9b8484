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
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/diir-io/diir-cli/internal/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrChainIDMismatch     = errors.New("chain id mismatch")
	ErrNoCode              = errors.New("no code at address")
)

// Transactor signs with a single key and sends one transaction at a time,
// blocking until each one is mined.
type Transactor struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	signer  types.Signer
}

// NewTransactor checks the node is on the expected chain when
// expectedChainID is non-zero.
func NewTransactor(ctx context.Context, backend Backend, key *ecdsa.PrivateKey, expectedChainID int64) (*Transactor, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to query chain id: %w", err)
	}
	if expectedChainID != 0 && chainID.Cmp(big.NewInt(expectedChainID)) != 0 {
		return nil, fmt.Errorf("%w: network is configured for chain %d but the node reports %s", ErrChainIDMismatch, expectedChainID, chainID)
	}
	return &Transactor{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		signer:  types.LatestSignerForChainID(chainID),
	}, nil
}

func (t *Transactor) From() common.Address {
	return t.from
}

func (t *Transactor) ChainID() *big.Int {
	return new(big.Int).Set(t.chainID)
}

func (t *Transactor) Backend() Backend {
	return t.backend
}

// Deploy sends a contract creation and returns the address once the
// transaction is mined and code is present.
func (t *Transactor) Deploy(ctx context.Context, name string, initCode []byte) (common.Address, *types.Receipt, error) {
	l := log.LoggerFromContext(ctx)
	tx, err := t.send(ctx, nil, initCode)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to deploy %s: %w", name, err)
	}
	l.Info(fmt.Sprintf("deploying %s (tx %s)", name, tx.Hash().Hex()))
	receipt, err := t.wait(ctx, tx)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to deploy %s: %w", name, err)
	}
	if receipt.ContractAddress == (common.Address{}) {
		return common.Address{}, nil, fmt.Errorf("failed to deploy %s: receipt for %s has no contract address", name, tx.Hash().Hex())
	}
	code, err := t.backend.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return common.Address{}, nil, err
	}
	if len(code) == 0 {
		return common.Address{}, nil, fmt.Errorf("failed to deploy %s: %w %s", name, ErrNoCode, receipt.ContractAddress.Hex())
	}
	l.Debug(fmt.Sprintf("%s deployed at %s in block %v", name, receipt.ContractAddress.Hex(), receipt.BlockNumber))
	return receipt.ContractAddress, receipt, nil
}

// Transact sends a call to an existing contract and waits for it.
func (t *Transactor) Transact(ctx context.Context, description string, to common.Address, data []byte) (*types.Receipt, error) {
	l := log.LoggerFromContext(ctx)
	tx, err := t.send(ctx, &to, data)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", description, err)
	}
	l.Info(fmt.Sprintf("%s (tx %s)", description, tx.Hash().Hex()))
	receipt, err := t.wait(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", description, err)
	}
	return receipt, nil
}

func (t *Transactor) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return t.backend.CallContract(ctx, ethereum.CallMsg{
		From: t.from,
		To:   &to,
		Data: data,
	}, nil)
}

func (t *Transactor) send(ctx context.Context, to *common.Address, data []byte) (*types.Transaction, error) {
	nonce, err := t.backend.PendingNonceAt(ctx, t.from)
	if err != nil {
		return nil, err
	}
	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	gas, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: t.from,
		To:   to,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("gas estimation failed: %w", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      addGasBuffer(gas),
		To:       to,
		Value:    new(big.Int),
		Data:     data,
	})
	signed, err := types.SignTx(tx, t.signer, t.key)
	if err != nil {
		return nil, err
	}
	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}
	return signed, nil
}

func (t *Transactor) wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, t.backend, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTransactionReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

func addGasBuffer(gasLimit uint64) uint64 {
	return 6 * gasLimit / 5 // add 20% buffer to gas limit
}
