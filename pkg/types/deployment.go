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

package types

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hyperledger/firefly-common/pkg/fftypes"
)

type ProxyKind = fftypes.FFEnum

var (
	ProxyKindTransparent = fftypes.FFEnumValue("proxykind", "transparent")
	ProxyKindUUPS        = fftypes.FFEnumValue("proxykind", "uups")
)

func ParseProxyKind(ctx context.Context, s string) (ProxyKind, error) {
	if s == "" {
		return ProxyKindTransparent, nil
	}
	return fftypes.FFEnumParseString(ctx, "proxykind", s)
}

func ProxyKinds() []string {
	values := fftypes.FFEnumValues("proxykind")
	kinds := make([]string, 0, len(values))
	for _, v := range values {
		kinds = append(kinds, fmt.Sprint(v))
	}
	return kinds
}

// DeploymentRecord is the file handed to client code. The abi is kept as
// raw JSON so it is written back exactly as it came out of the artifact.
type DeploymentRecord struct {
	Address string          `json:"address"`
	ABI     json.RawMessage `json:"abi"`
}

type Deployment struct {
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	Implementation string          `json:"implementation"`
	Admin          string          `json:"admin,omitempty"`
	Kind           ProxyKind       `json:"kind"`
	TxHash         string          `json:"txHash,omitempty"`
	ABI            json.RawMessage `json:"abi"`
}

func (d *Deployment) Record() *DeploymentRecord {
	return &DeploymentRecord{
		Address: d.Address,
		ABI:     d.ABI,
	}
}
