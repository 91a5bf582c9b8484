package types

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProxyKind(t *testing.T) {
	tests := []struct {
		Name     string
		Input    string
		Expected ProxyKind
		IsErr    bool
	}{
		{Name: "default", Input: "", Expected: ProxyKindTransparent},
		{Name: "transparent", Input: "transparent", Expected: ProxyKindTransparent},
		{Name: "uups", Input: "uups", Expected: ProxyKindUUPS},
		{Name: "beacon", Input: "beacon", IsErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			kind, err := ParseProxyKind(context.Background(), tc.Input)
			if tc.IsErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.Expected, kind)
		})
	}
}

func TestProxyKinds(t *testing.T) {
	assert.ElementsMatch(t, []string{"transparent", "uups"}, ProxyKinds())
}

func TestDeploymentRecordShape(t *testing.T) {
	d := &Deployment{
		Name:           "DiiRStation",
		Address:        "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Implementation: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
		ABI:            json.RawMessage(`[{"type":"function","name":"initialize","inputs":[]}]`),
	}
	b, err := json.Marshal(d.Record())
	assert.NoError(t, err)
	assert.Equal(t, `{"address":"0x5FbDB2315678afecb367f032d93F642f64180aa3","abi":[{"type":"function","name":"initialize","inputs":[]}]}`, string(b))
}
