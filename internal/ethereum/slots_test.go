package ethereum

import (
	"context"
	"testing"

	"github.com/diir-io/diir-cli/internal/ethereum/mocks"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestERC1967Slots(t *testing.T) {
	assert.Equal(t, "0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc", ImplementationSlot.Hex())
	assert.Equal(t, "0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103", AdminSlot.Hex())
	assert.Equal(t, "0xa3f0ad74e5423aebfd80d3ef4346578335a9a72aeaee59ff6cb3582b35133d50", BeaconSlot.Hex())
}

func TestReadProxySlots(t *testing.T) {
	backend := mocks.NewBackend(1337)
	proxy := common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	impl := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	admin := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	backend.SetStorage(proxy, ImplementationSlot, common.BytesToHash(impl.Bytes()))
	backend.SetStorage(proxy, AdminSlot, common.BytesToHash(admin.Bytes()))

	got, err := ImplementationAddress(context.Background(), backend, proxy)
	require.NoError(t, err)
	assert.Equal(t, impl, got)

	got, err = AdminAddress(context.Background(), backend, proxy)
	require.NoError(t, err)
	assert.Equal(t, admin, got)

	got, err = AdminAddress(context.Background(), backend, impl)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, got)
}

func TestBytecodeHash(t *testing.T) {
	// keccak256 of the empty string
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", BytecodeHash(nil))
	assert.NotEqual(t, BytecodeHash([]byte{0x60}), BytecodeHash([]byte{0x61}))
}
