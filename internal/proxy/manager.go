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

package proxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/diir-io/diir-cli/internal/artifacts"
	"github.com/diir-io/diir-cli/internal/ethereum"
	"github.com/diir-io/diir-cli/internal/log"
	"github.com/diir-io/diir-cli/internal/sizer"
	"github.com/diir-io/diir-cli/pkg/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultInitializer = "initialize"

	ProxyAdminContract       = "ProxyAdmin"
	TransparentProxyContract = "TransparentUpgradeableProxy"
	ERC1967ProxyContract     = "ERC1967Proxy"
)

var ErrNotAProxy = errors.New("address is not a proxy")

type Manager struct {
	transactor      *ethereum.Transactor
	registry        *artifacts.Registry
	manifest        *Manifest
	maxContractSize int
}

// NewManager deploys through transactor using contracts from registry.
// maxContractSize of 0 disables the size check.
func NewManager(transactor *ethereum.Transactor, registry *artifacts.Registry, manifest *Manifest, maxContractSize int) *Manager {
	return &Manager{
		transactor:      transactor,
		registry:        registry,
		manifest:        manifest,
		maxContractSize: maxContractSize,
	}
}

func (m *Manager) Manifest() *Manifest {
	return m.manifest
}

// DeployProxy deploys implName behind a new proxy and calls its
// initializer with args through the proxy constructor.
func (m *Manager) DeployProxy(ctx context.Context, implName string, args []string, opts *types.DeployOptions) (*types.Deployment, error) {
	l := log.LoggerFromContext(ctx)
	if opts == nil {
		opts = &types.DeployOptions{}
	}
	kind := opts.Kind
	if kind == "" {
		kind = types.ProxyKindTransparent
	}

	impl, implABI, err := m.implementation(implName)
	if err != nil {
		return nil, err
	}
	initData, err := encodeInitializer(implABI, opts, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", impl.ContractName, err)
	}
	implAddress, err := m.deployImplementation(ctx, impl, opts.Redeploy)
	if err != nil {
		return nil, err
	}

	deployment := &types.Deployment{
		Name:           impl.ContractName,
		Implementation: implAddress.Hex(),
		Kind:           kind,
	}
	var proxyAddress common.Address
	var txHash common.Hash
	switch kind {
	case types.ProxyKindTransparent:
		ownsAdmin, err := m.proxyOwnsAdmin()
		if err != nil {
			return nil, err
		}
		if ownsAdmin {
			proxyAddress, txHash, err = m.deployContract(ctx, TransparentProxyContract, implAddress, m.transactor.From(), initData)
			if err != nil {
				return nil, err
			}
			admin, err := ethereum.AdminAddress(ctx, m.transactor.Backend(), proxyAddress)
			if err != nil {
				return nil, err
			}
			if admin != (common.Address{}) {
				deployment.Admin = admin.Hex()
			}
			break
		}
		admin, err := m.ensureAdmin(ctx)
		if err != nil {
			return nil, err
		}
		deployment.Admin = admin.Hex()
		proxyAddress, txHash, err = m.deployContract(ctx, TransparentProxyContract, implAddress, admin, initData)
		if err != nil {
			return nil, err
		}
	case types.ProxyKindUUPS:
		proxyAddress, txHash, err = m.deployContract(ctx, ERC1967ProxyContract, implAddress, initData)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported proxy kind '%s'", kind)
	}

	m.manifest.AddProxy(&ProxyEntry{
		Address: proxyAddress.Hex(),
		TxHash:  txHash.Hex(),
		Kind:    string(kind),
	})
	if err := m.manifest.Save(); err != nil {
		return nil, fmt.Errorf("proxy deployed at %s but the manifest could not be saved: %w", proxyAddress.Hex(), err)
	}
	l.Info(fmt.Sprintf("%s proxy for %s deployed at %s", kind, impl.ContractName, proxyAddress.Hex()))

	deployment.Address = proxyAddress.Hex()
	deployment.TxHash = txHash.Hex()
	deployment.ABI, err = impl.CompactABI()
	if err != nil {
		return nil, err
	}
	return deployment, nil
}

// UpgradeProxy points an existing proxy at a new implementation. The
// proxy address is used exactly as given.
func (m *Manager) UpgradeProxy(ctx context.Context, proxyAddress string, implName string, opts *types.UpgradeOptions) (*types.Deployment, error) {
	l := log.LoggerFromContext(ctx)
	if opts == nil {
		opts = &types.UpgradeOptions{}
	}
	if !common.IsHexAddress(proxyAddress) {
		return nil, fmt.Errorf("%w: '%s' is not a hex address", ErrNotAProxy, proxyAddress)
	}
	proxy := common.HexToAddress(proxyAddress)
	backend := m.transactor.Backend()

	code, err := backend.CodeAt(ctx, proxy, nil)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: no code at %s", ErrNotAProxy, proxyAddress)
	}

	kind, err := m.detectKind(ctx, proxy, opts.Kind)
	if err != nil {
		return nil, err
	}

	impl, implABI, err := m.implementation(implName)
	if err != nil {
		return nil, err
	}
	var callData []byte
	if opts.Call != "" {
		callData, err = encodeCall(implABI, opts.Call, opts.CallArgs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", impl.ContractName, err)
		}
	}
	if kind == types.ProxyKindUUPS && !isUUPS(implABI) {
		return nil, fmt.Errorf("%s is not UUPS upgradeable: it has neither upgradeTo nor upgradeToAndCall", impl.ContractName)
	}
	implAddress, err := m.deployImplementation(ctx, impl, opts.Redeploy)
	if err != nil {
		return nil, err
	}

	deployment := &types.Deployment{
		Name:           impl.ContractName,
		Address:        proxyAddress,
		Implementation: implAddress.Hex(),
		Kind:           kind,
	}
	var target common.Address
	var input []byte
	switch kind {
	case types.ProxyKindTransparent:
		target, err = m.adminOf(ctx, proxy)
		if err != nil {
			return nil, err
		}
		deployment.Admin = target.Hex()
		input, err = m.encodeAdminUpgrade(proxy, implAddress, callData)
	case types.ProxyKindUUPS:
		target = proxy
		input, err = encodeUUPSUpgrade(implABI, implAddress, callData)
	default:
		err = fmt.Errorf("unsupported proxy kind '%s'", kind)
	}
	if err != nil {
		return nil, err
	}

	receipt, err := m.transactor.Transact(ctx, fmt.Sprintf("upgrade proxy %s to %s", proxyAddress, impl.ContractName), target, input)
	if err != nil {
		return nil, err
	}
	deployment.TxHash = receipt.TxHash.Hex()

	current, err := ethereum.ImplementationAddress(ctx, backend, proxy)
	if err == nil && current != implAddress {
		l.Warn(fmt.Sprintf("proxy %s reports implementation %s after the upgrade, expected %s", proxyAddress, current.Hex(), implAddress.Hex()))
	}

	m.manifest.AddProxy(&ProxyEntry{Address: proxy.Hex(), Kind: string(kind)})
	if err := m.manifest.Save(); err != nil {
		return nil, fmt.Errorf("proxy %s upgraded but the manifest could not be saved: %w", proxyAddress, err)
	}
	l.Info(fmt.Sprintf("proxy %s upgraded to %s at %s", proxyAddress, impl.ContractName, implAddress.Hex()))

	deployment.ABI, err = impl.CompactABI()
	if err != nil {
		return nil, err
	}
	return deployment, nil
}

func (m *Manager) implementation(name string) (*artifacts.Artifact, *abi.ABI, error) {
	a, err := m.registry.Get(name)
	if err != nil {
		return nil, nil, err
	}
	if !a.IsDeployable() {
		return nil, nil, fmt.Errorf("%s is abstract or an interface and cannot be deployed", a.ContractName)
	}
	if err := sizer.CheckSize(a, m.maxContractSize); err != nil {
		return nil, nil, err
	}
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, nil, err
	}
	if len(parsed.Constructor.Inputs) > 0 {
		return nil, nil, fmt.Errorf("%s has constructor arguments, upgradeable contracts must use an initializer", a.ContractName)
	}
	return a, &parsed, nil
}

// deployImplementation reuses an implementation with identical bytecode
// that is still live on chain, unless redeploy is set.
func (m *Manager) deployImplementation(ctx context.Context, a *artifacts.Artifact, redeploy bool) (common.Address, error) {
	l := log.LoggerFromContext(ctx)
	code, err := a.BytecodeBytes()
	if err != nil {
		return common.Address{}, err
	}
	hash := ethereum.BytecodeHash(code)
	if entry, ok := m.manifest.Impls[hash]; ok && !redeploy {
		if m.hasCode(ctx, entry.Address) {
			l.Info(fmt.Sprintf("reusing %s implementation at %s", a.ContractName, entry.Address))
			return common.HexToAddress(entry.Address), nil
		}
		l.Debug(fmt.Sprintf("%s implementation at %s has no code, deploying again", a.ContractName, entry.Address))
	}
	address, receipt, err := m.transactor.Deploy(ctx, a.ContractName, code)
	if err != nil {
		return common.Address{}, err
	}
	m.manifest.Impls[hash] = &ImplEntry{
		Address:  address.Hex(),
		TxHash:   receipt.TxHash.Hex(),
		Contract: a.FullyQualifiedName(),
	}
	if err := m.manifest.Save(); err != nil {
		return common.Address{}, fmt.Errorf("%s implementation deployed at %s but the manifest could not be saved: %w", a.ContractName, address.Hex(), err)
	}
	return address, nil
}

func (m *Manager) ensureAdmin(ctx context.Context) (common.Address, error) {
	l := log.LoggerFromContext(ctx)
	if m.manifest.Admin != nil && m.hasCode(ctx, m.manifest.Admin.Address) {
		l.Debug(fmt.Sprintf("reusing %s at %s", ProxyAdminContract, m.manifest.Admin.Address))
		return common.HexToAddress(m.manifest.Admin.Address), nil
	}
	address, txHash, err := m.deployContract(ctx, ProxyAdminContract)
	if err != nil {
		return common.Address{}, err
	}
	m.manifest.Admin = &Entry{Address: address.Hex(), TxHash: txHash.Hex()}
	if err := m.manifest.Save(); err != nil {
		return common.Address{}, fmt.Errorf("%s deployed at %s but the manifest could not be saved: %w", ProxyAdminContract, address.Hex(), err)
	}
	return address, nil
}

// proxyOwnsAdmin reports whether the compiled ProxyAdmin takes an initial
// owner, as in OpenZeppelin Contracts 5. Transparent proxies of that
// version create their own ProxyAdmin, owned by the address passed where
// older versions took the admin.
func (m *Manager) proxyOwnsAdmin() (bool, error) {
	a, err := m.registry.Get(ProxyAdminContract)
	if err != nil {
		return false, fmt.Errorf("%w - make sure the OpenZeppelin proxy contracts are compiled", err)
	}
	parsed, err := a.ParsedABI()
	if err != nil {
		return false, err
	}
	inputs := parsed.Constructor.Inputs
	switch {
	case len(inputs) == 0:
		return false, nil
	case len(inputs) == 1 && inputs[0].Type.T == abi.AddressTy:
		return true, nil
	default:
		return false, fmt.Errorf("unsupported %s constructor %s", ProxyAdminContract, parsed.Constructor.Sig)
	}
}

func (m *Manager) deployContract(ctx context.Context, name string, args ...interface{}) (common.Address, common.Hash, error) {
	a, err := m.registry.Get(name)
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("%w - make sure the OpenZeppelin proxy contracts are compiled", err)
	}
	parsed, err := a.ParsedABI()
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	code, err := a.BytecodeBytes()
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	packed, err := parsed.Pack("", args...)
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("invalid constructor arguments for %s: %w", name, err)
	}
	address, receipt, err := m.transactor.Deploy(ctx, name, append(code, packed...))
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	return address, receipt.TxHash, nil
}

func (m *Manager) detectKind(ctx context.Context, proxy common.Address, requested types.ProxyKind) (types.ProxyKind, error) {
	if requested != "" {
		return requested, nil
	}
	if entry := m.manifest.Proxy(proxy.Hex()); entry != nil && entry.Kind != "" {
		return types.ParseProxyKind(ctx, entry.Kind)
	}
	admin, err := ethereum.AdminAddress(ctx, m.transactor.Backend(), proxy)
	if err != nil {
		return "", err
	}
	if admin != (common.Address{}) {
		return types.ProxyKindTransparent, nil
	}
	impl, err := ethereum.ImplementationAddress(ctx, m.transactor.Backend(), proxy)
	if err != nil {
		return "", err
	}
	if impl == (common.Address{}) {
		return "", fmt.Errorf("%w: %s has no ERC-1967 implementation slot", ErrNotAProxy, proxy.Hex())
	}
	return types.ProxyKindUUPS, nil
}

func (m *Manager) adminOf(ctx context.Context, proxy common.Address) (common.Address, error) {
	admin, err := ethereum.AdminAddress(ctx, m.transactor.Backend(), proxy)
	if err != nil {
		return common.Address{}, err
	}
	if admin == (common.Address{}) && m.manifest.Admin != nil {
		admin = common.HexToAddress(m.manifest.Admin.Address)
	}
	if admin == (common.Address{}) {
		return common.Address{}, fmt.Errorf("unable to find the admin of proxy %s", proxy.Hex())
	}
	return admin, nil
}

func (m *Manager) encodeAdminUpgrade(proxy, impl common.Address, callData []byte) ([]byte, error) {
	a, err := m.registry.Get(ProxyAdminContract)
	if err != nil {
		return nil, err
	}
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, err
	}
	if _, ok := parsed.Methods["upgrade"]; ok && callData == nil {
		return parsed.Pack("upgrade", proxy, impl)
	}
	if _, ok := parsed.Methods["upgradeAndCall"]; !ok {
		return nil, fmt.Errorf("%s has neither upgrade nor upgradeAndCall", ProxyAdminContract)
	}
	if callData == nil {
		callData = []byte{}
	}
	return parsed.Pack("upgradeAndCall", proxy, impl, callData)
}

func isUUPS(implABI *abi.ABI) bool {
	_, upgradeTo := implABI.Methods["upgradeTo"]
	_, upgradeToAndCall := implABI.Methods["upgradeToAndCall"]
	return upgradeTo || upgradeToAndCall
}

func encodeUUPSUpgrade(implABI *abi.ABI, impl common.Address, callData []byte) ([]byte, error) {
	if _, ok := implABI.Methods["upgradeTo"]; ok && callData == nil {
		return implABI.Pack("upgradeTo", impl)
	}
	if _, ok := implABI.Methods["upgradeToAndCall"]; !ok {
		return nil, fmt.Errorf("upgradeToAndCall is required to call a function during the upgrade")
	}
	if callData == nil {
		callData = []byte{}
	}
	return implABI.Pack("upgradeToAndCall", impl, callData)
}

func (m *Manager) hasCode(ctx context.Context, address string) bool {
	code, err := m.transactor.Backend().CodeAt(ctx, common.HexToAddress(address), nil)
	return err == nil && len(code) > 0
}

// encodeInitializer builds the proxy constructor data. A contract without
// the default initializer is deployed with empty data as long as no
// arguments were given.
func encodeInitializer(implABI *abi.ABI, opts *types.DeployOptions, args []string) ([]byte, error) {
	if opts.NoInit {
		if len(args) > 0 {
			return nil, fmt.Errorf("%d arguments given but the initializer is disabled", len(args))
		}
		return []byte{}, nil
	}
	name := opts.Initializer
	if name == "" {
		name = DefaultInitializer
	}
	if _, ok := implABI.Methods[name]; !ok {
		if opts.Initializer == "" && len(args) == 0 {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("initializer function '%s' not found", name)
	}
	return encodeCall(implABI, name, args)
}

func encodeCall(implABI *abi.ABI, name string, args []string) ([]byte, error) {
	method, ok := implABI.Methods[name]
	if !ok {
		return nil, fmt.Errorf("function '%s' not found", name)
	}
	values, err := ethereum.ParseArgs(method.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method.Sig, err)
	}
	return implABI.Pack(name, values...)
}
