package cmd

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/diir-io/diir-cli/internal/deployments"
	"github.com/diir-io/diir-cli/internal/ethereum"
	"github.com/diir-io/diir-cli/internal/explorer"
	"github.com/diir-io/diir-cli/internal/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const localExplorerURL = "https://explorer.example.com/api"

func TestVerifyCmdNeedsExplorer(t *testing.T) {
	p := newTestProject(t)

	_, err := executeCommand(t, "verify", filepath.Join("abi", "localhost", "DiiRStation.json"), "--network", "localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no explorer is known for network 'localhost'")
	assert.Empty(t, p.dialed)
}

func TestVerifyCmd(t *testing.T) {
	p := newTestProject(t)
	utils.WriteFile(t, filepath.Join(p.dir, "diir.yaml"), `
networks:
  localhost:
    url: http://127.0.0.1:8545
    chainId: 1337
    accountsEnv: PRIVATE_KEY_LOCAL
    allowUnlimitedContractSize: true
    explorerUrl: `+localExplorerURL+`
`)
	_, err := executeCommand(t, "deploy", "DiiRStation", "--network", "localhost")
	require.NoError(t, err)
	record := filepath.Join("abi", "localhost", "DiiRStation.json")
	proxy, err := deployments.ProxyAddress(record)
	require.NoError(t, err)
	// the implementation is the deployer's first creation
	impl := crypto.CreateAddress(common.HexToAddress(testAddress), 0)
	p.backend.SetStorage(common.HexToAddress(proxy), ethereum.ImplementationSlot, common.BytesToHash(impl.Bytes()))

	client := explorer.NewClient(localExplorerURL, "ABCDEF").
		WithLimiter(rate.NewLimiter(rate.Inf, 1)).
		WithPolling(time.Millisecond, 2)
	utils.ActivateMock(t, client.HTTPClient())
	explorerClient = client
	t.Cleanup(func() { explorerClient = nil })

	posted := []string{}
	httpmock.RegisterResponder(http.MethodPost, localExplorerURL, func(req *http.Request) (*http.Response, error) {
		require.NoError(t, req.ParseForm())
		posted = append(posted, req.PostForm.Get("action"))
		return httpmock.NewJsonResponse(200, map[string]string{"status": "1", "message": "OK", "result": "guid"})
	})
	httpmock.RegisterResponder(http.MethodGet, localExplorerURL, func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("action") == "getsourcecode" {
			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"status": "1", "message": "OK", "result": []map[string]string{{"SourceCode": ""}},
			})
		}
		return httpmock.NewJsonResponse(200, map[string]string{"status": "1", "message": "OK", "result": "Pass - Verified"})
	})

	out, err := executeCommand(t, "verify", record, "--network", "localhost")
	require.NoError(t, err)
	assert.Equal(t, []string{"verifysourcecode", "verifyproxycontract"}, posted)
	assert.Contains(t, out, "DiiRStation verified at "+proxy)
}
