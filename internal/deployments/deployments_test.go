package deployments

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/diir-io/diir-cli/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stationABI = json.RawMessage(`[{"inputs":[],"name":"initialize","outputs":[],"stateMutability":"nonpayable","type":"function"}]`)

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("abi", "testnet", "DiiRTip.json"), Path("abi", "testnet", "DiiRTip"))
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := Path(filepath.Join(dir, "abi"), "localhost", "DiiRStation")

	err := Write(path, &types.DeploymentRecord{Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3", ABI: stationABI})
	require.NoError(t, err)

	d, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(d, &raw))
	assert.Len(t, raw, 2)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", raw["address"])
	assert.IsType(t, []interface{}{}, raw["abi"])

	record, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", record.Address)
	assert.JSONEq(t, string(stationABI), string(record.ABI))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "DiiRTip.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"address":"0x1","abi":[],"extra":true}`), 0644))

	err := Write(path, &types.DeploymentRecord{Address: "0x2", ABI: json.RawMessage(`[]`)})
	require.NoError(t, err)

	d, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"address":"0x2","abi":[]}`, string(d))
}

func TestWriteRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "DiiRTip.json")
	assert.Error(t, Write(path, &types.DeploymentRecord{ABI: json.RawMessage(`[]`)}))
	for _, abi := range []string{`[`, `{}`, `null`, `"x"`, `42`, ``} {
		t.Run(abi, func(t *testing.T) {
			err := Write(path, &types.DeploymentRecord{Address: "0x2", ABI: json.RawMessage(abi)})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "0x2")
			assert.Contains(t, err.Error(), "not a JSON array")
			_, err = os.Stat(path)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestWriteFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	// a file where the network directory should be
	blocker := filepath.Join(dir, "testnet")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := Write(Path(dir, "testnet", "DiiRTip"), &types.DeploymentRecord{Address: "0xabc", ABI: json.RawMessage(`[]`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0xabc")
}

func TestProxyAddressIsVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "DiiRStation.json")
	// mixed case, not checksummed, kept exactly
	require.NoError(t, os.WriteFile(path, []byte(`{"address":"0x5fbdb2315678AFECB367f032d93f642f64180aa3","abi":[]}`), 0644))

	address, err := ProxyAddress(path)
	require.NoError(t, err)
	assert.Equal(t, "0x5fbdb2315678AFECB367f032d93f642f64180aa3", address)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, ErrRecordNotFound))

	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0644))
	_, err = Read(path)
	assert.Error(t, err)

	path = filepath.Join(dir, "noaddress.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"abi":[]}`), 0644))
	_, err = ProxyAddress(path)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	abiDir := filepath.Join(dir, "abi")
	require.NoError(t, Write(Path(abiDir, "testnet", "DiiRTip"), &types.DeploymentRecord{Address: "0x1", ABI: json.RawMessage(`[]`)}))
	require.NoError(t, os.WriteFile(filepath.Join(abiDir, "testnet", ".DiiRTip.json.123.tmp"), []byte("partial"), 0644))

	dest := filepath.Join(dir, "frontend", "src", "abi")
	require.NoError(t, Export(abiDir, dest))

	record, err := Read(Path(dest, "testnet", "DiiRTip"))
	require.NoError(t, err)
	assert.Equal(t, "0x1", record.Address)
	_, err = os.Stat(filepath.Join(dest, "testnet", ".DiiRTip.json.123.tmp"))
	assert.True(t, os.IsNotExist(err))

	assert.True(t, errors.Is(Export(filepath.Join(dir, "nope"), dest), ErrRecordNotFound))
}
