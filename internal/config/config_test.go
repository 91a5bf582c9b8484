package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/diir-io/diir-cli/pkg/types"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

func TestDefaultMatchesBuildConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.8.12", cfg.CompilerVersion())
	assert.True(t, cfg.Solidity.Compilers[0].Settings.Optimizer.Enabled)
	assert.Equal(t, 20, cfg.Solidity.Compilers[0].Settings.Optimizer.Runs)
	assert.Equal(t, []string{"goerli", "hardhat", "localhost"}, cfg.NetworkNames())
	assert.Equal(t, int64(1337), cfg.Networks["localhost"].ChainID)
	assert.True(t, cfg.Networks["localhost"].AllowUnlimitedContractSize)
	assert.True(t, cfg.ContractSizer.Strict)
	assert.Equal(t, "artifacts", cfg.Paths.Artifacts)
}

func TestPriceFeedAddress(t *testing.T) {
	tests := []struct {
		Name     string
		NodeEnv  string
		Expected types.HexAddress
	}{
		{Name: "production", NodeEnv: "production", Expected: "0xmain"},
		{Name: "development", NodeEnv: "development", Expected: "0xtest"},
		{Name: "unset", NodeEnv: "", Expected: "0xtest"},
		{Name: "case sensitive", NodeEnv: "Production", Expected: "0xtest"},
	}
	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			cfg := Default()
			cfg.Resolve(lookupFrom(map[string]string{
				"NODE_ENV":                   tc.NodeEnv,
				"PRICE_FEED_ADDRESS_MAINNET": "0xmain",
				"PRICE_FEED_ADDRESS_TESTNET": "0xtest",
			}))
			assert.Equal(t, tc.Expected, cfg.PriceFeedAddress())
		})
	}
}

func TestResolveAccounts(t *testing.T) {
	cfg := Default()
	cfg.Resolve(lookupFrom(map[string]string{
		"PRIVATE_KEY_TESTNET": "0xabc",
		"GOERLI_URL":          "https://goerli.example.com",
	}))
	goerli, err := cfg.Network("goerli")
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, goerli.Accounts)
	assert.Equal(t, "https://goerli.example.com", goerli.URL)
	assert.NoError(t, goerli.Validate())

	localhost, err := cfg.Network("localhost")
	require.NoError(t, err)
	assert.Empty(t, localhost.Accounts)
	err = localhost.Validate()
	assert.True(t, errors.Is(err, ErrNoAccounts))
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Resolve(lookupFrom(map[string]string{}))
	goerli, err := cfg.Network("goerli")
	require.NoError(t, err)
	err = goerli.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOERLI_URL")
	assert.Contains(t, err.Error(), "PRIVATE_KEY_TESTNET")

	hardhat, err := cfg.Network("")
	require.NoError(t, err)
	assert.Equal(t, "hardhat", hardhat.Name)
	assert.Error(t, hardhat.Validate())
}

func TestUnknownNetwork(t *testing.T) {
	_, err := Default().Network("mainnet")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "goerli, hardhat, localhost")
}

func TestLoadMergesFiles(t *testing.T) {
	t.Setenv("SEPOLIA_URL", "https://sepolia.example.com")
	t.Setenv("PRIVATE_KEY_TESTNET", "0xdef")
	cfg, err := Load(&LoadOptions{
		ProjectFile: filepath.Join("testdata", "diir.yaml"),
		ExtraFile:   filepath.Join("testdata", "extra.yaml"),
		Viper:       viper.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DefaultNetwork)
	sepolia, err := cfg.Network("sepolia")
	require.NoError(t, err)
	assert.Equal(t, "https://sepolia.example.com", sepolia.URL)
	assert.Equal(t, []string{"0xdef"}, sepolia.Accounts)
	assert.Equal(t, "testnet", sepolia.RecordDirName())

	// built-in networks survive
	assert.Contains(t, cfg.NetworkNames(), "goerli")
	assert.False(t, cfg.ContractSizer.Strict)
	assert.True(t, cfg.ContractSizer.AlphaSort)
	assert.Equal(t, "build/abi", cfg.Paths.ABI)
	assert.Equal(t, "artifacts", cfg.Paths.Artifacts)
	assert.Equal(t, types.HexAddress("0x1111111111111111111111111111111111111111"), cfg.PriceFeedAddress())
}

func TestLoadMissingProjectFile(t *testing.T) {
	cfg, err := Load(&LoadOptions{
		ProjectFile: filepath.Join(t.TempDir(), "diir.yaml"),
		Viper:       viper.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, "hardhat", cfg.DefaultNetwork)
}

func TestLoadMissingExtraFile(t *testing.T) {
	_, err := Load(&LoadOptions{
		ExtraFile: filepath.Join(t.TempDir(), "extra.yaml"),
		Viper:     viper.New(),
	})
	assert.Error(t, err)
}

func TestLoadEnvFiles(t *testing.T) {
	t.Setenv("PRIVATE_KEY_LOCAL", "")
	t.Setenv("GOERLI_URL", "https://already.set")
	cfg, err := Load(&LoadOptions{
		EnvFiles: []string{filepath.Join("testdata", "test.env"), filepath.Join("testdata", "missing.env")},
		Viper:    viper.New(),
	})
	require.NoError(t, err)
	// an empty variable that is already defined is not overridden
	assert.Empty(t, cfg.Networks["localhost"].Accounts)
	assert.Equal(t, "https://already.set", cfg.Networks["goerli"].URL)
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Resolve(lookupFrom(map[string]string{
		"PRIVATE_KEY_LOCAL": "0xsecret",
		"ETHERSCAN_API_KEY": "apikey",
	}))
	out, err := cfg.Redacted().YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "0xsecret")
	assert.NotContains(t, string(out), "apikey")
	assert.Equal(t, []string{"0xsecret"}, cfg.Networks["localhost"].Accounts)
}
