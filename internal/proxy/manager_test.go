package proxy

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diir-io/diir-cli/internal/artifacts"
	"github.com/diir-io/diir-cli/internal/constants"
	"github.com/diir-io/diir-cli/internal/ethereum"
	"github.com/diir-io/diir-cli/internal/ethereum/mocks"
	"github.com/diir-io/diir-cli/internal/sizer"
	"github.com/diir-io/diir-cli/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	deployer     = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	profileProxy = "0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9"
	priceFeed    = "0xD4a33860578De61DBAbDc8BFdb98FD742fA7028e"
)

var uupsStation = &artifacts.Artifact{
	ContractName: "DiiRStationUUPS",
	SourceName:   "contracts/DiiRStationUUPS.sol",
	ABI: []byte(`[
		{"inputs":[],"name":"initialize","outputs":[],"stateMutability":"nonpayable","type":"function"},
		{"inputs":[{"name":"newImplementation","type":"address"}],"name":"upgradeTo","outputs":[],"stateMutability":"nonpayable","type":"function"},
		{"inputs":[{"name":"newImplementation","type":"address"},{"name":"data","type":"bytes"}],"name":"upgradeToAndCall","outputs":[],"stateMutability":"payable","type":"function"}
	]`),
	Bytecode:         "0x608060405234801561001057600080fd5b50c1c1",
	DeployedBytecode: "0x6080604052600080fdc1c1",
}

var plain = &artifacts.Artifact{
	ContractName:     "Plain",
	SourceName:       "contracts/Plain.sol",
	ABI:              []byte(`[{"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}]`),
	Bytecode:         "0x608060405234801561001057600080fd5b50c2c2",
	DeployedBytecode: "0x6080604052600080fdc2c2",
}

type testEnv struct {
	backend  *mocks.Backend
	registry *artifacts.Registry
	manifest *Manifest
	manager  *Manager
}

func newTestEnv(t *testing.T, maxSize int, extra ...*artifacts.Artifact) *testEnv {
	registry, err := artifacts.Load(filepath.Join("..", "artifacts", "testdata", "hardhat"))
	require.NoError(t, err)
	registry.Add(uupsStation)
	registry.Add(plain)
	for _, a := range extra {
		registry.Add(a)
	}
	return newTestEnvFrom(t, registry, maxSize)
}

func newTestEnvFrom(t *testing.T, registry *artifacts.Registry, maxSize int) *testEnv {
	backend := mocks.NewBackend(1337)
	key, err := ethereum.ParsePrivateKey(testKey)
	require.NoError(t, err)
	tr, err := ethereum.NewTransactor(context.Background(), backend, key, 1337)
	require.NoError(t, err)
	manifest, err := LoadManifest(filepath.Join(t.TempDir(), constants.ManifestDir), 1337)
	require.NoError(t, err)
	return &testEnv{
		backend:  backend,
		registry: registry,
		manifest: manifest,
		manager:  NewManager(tr, registry, manifest, maxSize),
	}
}

func (e *testEnv) constructorArgs(t *testing.T, name string, initCode []byte) []interface{} {
	a, err := e.registry.Get(name)
	require.NoError(t, err)
	code, err := a.BytecodeBytes()
	require.NoError(t, err)
	require.True(t, len(initCode) >= len(code))
	parsed, err := a.ParsedABI()
	require.NoError(t, err)
	values, err := parsed.Constructor.Inputs.Unpack(initCode[len(code):])
	require.NoError(t, err)
	return values
}

func (e *testEnv) selector(t *testing.T, contract, method string) []byte {
	a, err := e.registry.Get(contract)
	require.NoError(t, err)
	parsed, err := a.ParsedABI()
	require.NoError(t, err)
	return parsed.Methods[method].ID
}

func TestDeployTransparentProxy(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)

	deployment, err := e.manager.DeployProxy(context.Background(), "DiiRStation", nil, nil)
	require.NoError(t, err)

	impl := crypto.CreateAddress(deployer, 0)
	admin := crypto.CreateAddress(deployer, 1)
	proxy := crypto.CreateAddress(deployer, 2)
	assert.Equal(t, "DiiRStation", deployment.Name)
	assert.Equal(t, proxy.Hex(), deployment.Address)
	assert.Equal(t, impl.Hex(), deployment.Implementation)
	assert.Equal(t, admin.Hex(), deployment.Admin)
	assert.Equal(t, types.ProxyKindTransparent, deployment.Kind)
	assert.Contains(t, string(deployment.ABI), "createStation")
	assert.True(t, strings.HasPrefix(string(deployment.ABI), "["))

	creations := e.backend.Creations()
	require.Len(t, creations, 3)
	args := e.constructorArgs(t, TransparentProxyContract, creations[2].Data())
	assert.Equal(t, impl, args[0])
	assert.Equal(t, admin, args[1])
	assert.Equal(t, e.selector(t, "DiiRStation", "initialize"), args[2])

	loaded, err := LoadManifest(filepath.Dir(e.manifest.Path()), 1337)
	require.NoError(t, err)
	assert.Equal(t, admin.Hex(), loaded.Admin.Address)
	require.Len(t, loaded.Proxies, 1)
	assert.Equal(t, "transparent", loaded.Proxies[0].Kind)
	assert.Len(t, loaded.Impls, 1)
}

var ownedProxyAdmin = &artifacts.Artifact{
	ContractName: "ProxyAdmin",
	SourceName:   "@openzeppelin/contracts/proxy/transparent/ProxyAdmin.sol",
	ABI: []byte(`[
		{"inputs":[{"name":"initialOwner","type":"address"}],"stateMutability":"nonpayable","type":"constructor"},
		{"inputs":[{"name":"proxy","type":"address"},{"name":"implementation","type":"address"},{"name":"data","type":"bytes"}],"name":"upgradeAndCall","outputs":[],"stateMutability":"payable","type":"function"}
	]`),
	Bytecode:         "0x608060405234801561001057600080fd5b50b5b5",
	DeployedBytecode: "0x6080604052600080fdb5b5",
}

func TestDeployTransparentProxyOwnedAdmin(t *testing.T) {
	loaded, err := artifacts.Load(filepath.Join("..", "artifacts", "testdata", "hardhat"))
	require.NoError(t, err)
	list := []*artifacts.Artifact{ownedProxyAdmin}
	for _, a := range loaded.All() {
		if a.ContractName != ProxyAdminContract {
			list = append(list, a)
		}
	}
	e := newTestEnvFrom(t, artifacts.NewRegistry(list...), constants.MaxContractSize)

	deployment, err := e.manager.DeployProxy(context.Background(), "DiiRStation", nil, nil)
	require.NoError(t, err)

	proxy := crypto.CreateAddress(deployer, 1)
	assert.Equal(t, proxy.Hex(), deployment.Address)
	assert.Empty(t, deployment.Admin)
	assert.Nil(t, e.manifest.Admin)

	creations := e.backend.Creations()
	require.Len(t, creations, 2)
	args := e.constructorArgs(t, TransparentProxyContract, creations[1].Data())
	assert.Equal(t, common.HexToAddress(deployment.Implementation), args[0])
	assert.Equal(t, deployer, args[1])

	// the proxy's own ProxyAdmin is found through the admin slot
	admin := common.HexToAddress("0x5FC8d32690cc91D4c39d9d3abcBD16989F875707")
	e.backend.Code[admin] = mocks.DefaultRuntimeCode
	e.backend.SetStorage(proxy, ethereum.AdminSlot, common.BytesToHash(admin.Bytes()))

	upgraded, err := e.manager.UpgradeProxy(context.Background(), proxy.Hex(), "DiiRStation", nil)
	require.NoError(t, err)
	assert.Equal(t, admin.Hex(), upgraded.Admin)
	calls := e.backend.SentTo(admin)
	require.Len(t, calls, 1)
	assert.Equal(t, e.selector(t, ProxyAdminContract, "upgradeAndCall"), calls[0].Data()[:4])
}

func TestDeployUnsupportedProxyAdmin(t *testing.T) {
	loaded, err := artifacts.Load(filepath.Join("..", "artifacts", "testdata", "hardhat"))
	require.NoError(t, err)
	odd := *ownedProxyAdmin
	odd.ABI = []byte(`[{"inputs":[{"name":"owner","type":"address"},{"name":"delay","type":"uint256"}],"stateMutability":"nonpayable","type":"constructor"}]`)
	list := []*artifacts.Artifact{&odd}
	for _, a := range loaded.All() {
		if a.ContractName != ProxyAdminContract {
			list = append(list, a)
		}
	}
	e := newTestEnvFrom(t, artifacts.NewRegistry(list...), constants.MaxContractSize)

	_, err = e.manager.DeployProxy(context.Background(), "DiiRStation", nil, nil)
	assert.Regexp(t, "unsupported ProxyAdmin constructor", err)
	assert.Empty(t, e.backend.SentTo(crypto.CreateAddress(deployer, 1)))
}

func TestDeployReusesAdminAndImplementation(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)

	first, err := e.manager.DeployProxy(context.Background(), "DiiRStation", nil, nil)
	require.NoError(t, err)
	second, err := e.manager.DeployProxy(context.Background(), "DiiRStation", nil, nil)
	require.NoError(t, err)

	assert.Len(t, e.backend.Creations(), 4)
	assert.Equal(t, first.Implementation, second.Implementation)
	assert.Equal(t, first.Admin, second.Admin)
	assert.NotEqual(t, first.Address, second.Address)

	third, err := e.manager.DeployProxy(context.Background(), "DiiRStation", nil, &types.DeployOptions{Redeploy: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.Implementation, third.Implementation)
	assert.Len(t, e.backend.Creations(), 6)
}

func TestDeployUUPSProxy(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)

	deployment, err := e.manager.DeployProxy(context.Background(), "DiiRStationUUPS", nil, &types.DeployOptions{Kind: types.ProxyKindUUPS})
	require.NoError(t, err)
	assert.Equal(t, types.ProxyKindUUPS, deployment.Kind)
	assert.Empty(t, deployment.Admin)

	creations := e.backend.Creations()
	require.Len(t, creations, 2)
	args := e.constructorArgs(t, ERC1967ProxyContract, creations[1].Data())
	assert.Equal(t, crypto.CreateAddress(deployer, 0), args[0])
	assert.Equal(t, crypto.CreateAddress(deployer, 1).Hex(), deployment.Address)
}

func TestDeployWithInitializerArgs(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)

	_, err := e.manager.DeployProxy(context.Background(), "DiiRTip", []string{profileProxy}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 arguments")
	assert.Empty(t, e.backend.Sent)

	_, err = e.manager.DeployProxy(context.Background(), "DiiRTip", []string{profileProxy, priceFeed}, nil)
	require.NoError(t, err)

	creations := e.backend.Creations()
	require.Len(t, creations, 3)
	args := e.constructorArgs(t, TransparentProxyContract, creations[2].Data())
	a, err := e.registry.Get("DiiRTip")
	require.NoError(t, err)
	parsed, err := a.ParsedABI()
	require.NoError(t, err)
	expected, err := parsed.Pack("initialize", common.HexToAddress(profileProxy), common.HexToAddress(priceFeed))
	require.NoError(t, err)
	assert.Equal(t, expected, args[2])
}

func TestDeployInitializerSelection(t *testing.T) {
	tests := []struct {
		Name    string
		Args    []string
		Options *types.DeployOptions
		Error   string
	}{
		{Name: "no initializer no args", Options: &types.DeployOptions{}},
		{Name: "no initializer with args", Args: []string{"1"}, Options: &types.DeployOptions{}, Error: "initializer function 'initialize' not found"},
		{Name: "explicit initializer missing", Options: &types.DeployOptions{Initializer: "setup"}, Error: "initializer function 'setup' not found"},
		{Name: "no init with args", Args: []string{"1"}, Options: &types.DeployOptions{NoInit: true}, Error: "initializer is disabled"},
		{Name: "no init", Options: &types.DeployOptions{NoInit: true}},
	}
	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			e := newTestEnv(t, constants.MaxContractSize)
			deployment, err := e.manager.DeployProxy(context.Background(), "Plain", tc.Args, tc.Options)
			if tc.Error != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.Error)
				assert.Empty(t, e.backend.Sent)
				return
			}
			require.NoError(t, err)
			args := e.constructorArgs(t, TransparentProxyContract, e.backend.Creations()[2].Data())
			assert.Empty(t, args[2])
			assert.NotEmpty(t, deployment.Address)
		})
	}
}

func TestDeployContractTooLarge(t *testing.T) {
	huge := &artifacts.Artifact{
		ContractName:     "Huge",
		SourceName:       "contracts/Huge.sol",
		ABI:              []byte(`[]`),
		Bytecode:         "0x60",
		DeployedBytecode: "0x" + strings.Repeat("60", constants.MaxContractSize+1),
	}
	e := newTestEnv(t, constants.MaxContractSize, huge)
	_, err := e.manager.DeployProxy(context.Background(), "Huge", nil, nil)
	assert.True(t, errors.Is(err, sizer.ErrContractTooLarge))
	assert.Empty(t, e.backend.Sent)

	e = newTestEnv(t, 0, huge)
	_, err = e.manager.DeployProxy(context.Background(), "Huge", nil, nil)
	assert.NoError(t, err)
}

func TestDeployAbstractContract(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)
	_, err := e.manager.DeployProxy(context.Background(), "IPriceFeed", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be deployed")
}

func TestDeployProxyReverted(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)
	e.backend.SendErr = errors.New("connection refused")
	e.backend.FailOnSend = 2

	_, err := e.manager.DeployProxy(context.Background(), "DiiRStation", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Len(t, e.backend.Sent, 2)
	assert.Empty(t, e.manifest.Proxies)
	assert.NotNil(t, e.manifest.Admin)
}

func TestUpgradeTransparentProxy(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)
	tip, err := e.manager.DeployProxy(context.Background(), "DiiRTip", []string{profileProxy, priceFeed}, nil)
	require.NoError(t, err)

	proxyAddress := strings.ToLower(tip.Address)
	upgraded, err := e.manager.UpgradeProxy(context.Background(), proxyAddress, "DiiRTipV1", nil)
	require.NoError(t, err)

	assert.Equal(t, proxyAddress, upgraded.Address)
	assert.Equal(t, tip.Admin, upgraded.Admin)
	assert.NotEqual(t, tip.Implementation, upgraded.Implementation)
	assert.Contains(t, string(upgraded.ABI), "version")

	admin := common.HexToAddress(tip.Admin)
	calls := e.backend.SentTo(admin)
	require.Len(t, calls, 1)
	a, err := e.registry.Get(ProxyAdminContract)
	require.NoError(t, err)
	parsed, err := a.ParsedABI()
	require.NoError(t, err)
	expected, err := parsed.Pack("upgrade", common.HexToAddress(tip.Address), common.HexToAddress(upgraded.Implementation))
	require.NoError(t, err)
	assert.Equal(t, expected, calls[0].Data())
	assert.Equal(t, upgraded.TxHash, calls[0].Hash().Hex())
}

func TestUpgradeTransparentWithCall(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)
	station, err := e.manager.DeployProxy(context.Background(), "DiiRStation", nil, nil)
	require.NoError(t, err)

	_, err = e.manager.UpgradeProxy(context.Background(), station.Address, "DiiRStation", &types.UpgradeOptions{
		Call:     "createStation",
		CallArgs: []string{"main"},
		Redeploy: true,
	})
	require.NoError(t, err)

	calls := e.backend.SentTo(common.HexToAddress(station.Admin))
	require.Len(t, calls, 1)
	assert.Equal(t, e.selector(t, ProxyAdminContract, "upgradeAndCall"), calls[0].Data()[:4])

	_, err = e.manager.UpgradeProxy(context.Background(), station.Address, "DiiRStation", &types.UpgradeOptions{Call: "destroy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function 'destroy' not found")
}

func TestUpgradeDetectsKindFromSlots(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)
	proxy := common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	admin := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	e.backend.Code[proxy] = mocks.DefaultRuntimeCode
	e.backend.SetStorage(proxy, ethereum.AdminSlot, common.BytesToHash(admin.Bytes()))

	deployment, err := e.manager.UpgradeProxy(context.Background(), proxy.Hex(), "DiiRStation", nil)
	require.NoError(t, err)
	assert.Equal(t, types.ProxyKindTransparent, deployment.Kind)
	assert.Equal(t, admin.Hex(), deployment.Admin)
	assert.Len(t, e.backend.SentTo(admin), 1)

	uups := common.HexToAddress("0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9")
	e.backend.Code[uups] = mocks.DefaultRuntimeCode
	e.backend.SetStorage(uups, ethereum.ImplementationSlot, common.BytesToHash(common.HexToAddress("0x01").Bytes()))

	deployment, err = e.manager.UpgradeProxy(context.Background(), uups.Hex(), "DiiRStationUUPS", nil)
	require.NoError(t, err)
	assert.Equal(t, types.ProxyKindUUPS, deployment.Kind)
	calls := e.backend.SentTo(uups)
	require.Len(t, calls, 1)
	assert.Equal(t, e.selector(t, "DiiRStationUUPS", "upgradeTo"), calls[0].Data()[:4])
	assert.Equal(t, "uups", e.manifest.Proxy(uups.Hex()).Kind)
}

func TestUpgradeUUPSWithoutUpgradeFunction(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)
	deployment, err := e.manager.DeployProxy(context.Background(), "DiiRStationUUPS", nil, &types.DeployOptions{Kind: types.ProxyKindUUPS})
	require.NoError(t, err)

	_, err = e.manager.UpgradeProxy(context.Background(), deployment.Address, "DiiRStation", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not UUPS upgradeable")
	assert.Len(t, e.backend.Sent, 2)
}

func TestUpgradeNotAProxy(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)

	_, err := e.manager.UpgradeProxy(context.Background(), "0x1234", "DiiRStation", nil)
	assert.True(t, errors.Is(err, ErrNotAProxy))

	_, err = e.manager.UpgradeProxy(context.Background(), "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0", "DiiRStation", nil)
	assert.True(t, errors.Is(err, ErrNotAProxy))

	plainContract := common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	e.backend.Code[plainContract] = mocks.DefaultRuntimeCode
	_, err = e.manager.UpgradeProxy(context.Background(), plainContract.Hex(), "DiiRStation", nil)
	assert.True(t, errors.Is(err, ErrNotAProxy))
	assert.Empty(t, e.backend.Sent)
}

func TestUpgradeReverted(t *testing.T) {
	e := newTestEnv(t, constants.MaxContractSize)
	station, err := e.manager.DeployProxy(context.Background(), "DiiRStation", nil, nil)
	require.NoError(t, err)
	e.backend.RevertCall[common.HexToAddress(station.Admin)] = true

	_, err = e.manager.UpgradeProxy(context.Background(), station.Address, "DiiRStation", &types.UpgradeOptions{Redeploy: true})
	assert.True(t, errors.Is(err, ethereum.ErrTransactionReverted))
}
