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

package deployer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/diir-io/diir-cli/internal/deployments"
	"github.com/diir-io/diir-cli/internal/ethereum"
	"github.com/diir-io/diir-cli/internal/explorer"
	"github.com/diir-io/diir-cli/internal/log"
	"github.com/ethereum/go-ethereum/common"
)

type VerifyRequest struct {
	Network string
	Record  string
	// Contract defaults to the record's file name.
	Contract string
}

// Verify publishes the source of the implementation behind a recorded
// proxy and links the proxy to it on the explorer.
func (d *Deployer) Verify(ctx context.Context, client *explorer.Client, req *VerifyRequest) error {
	l := log.LoggerFromContext(ctx)
	network, err := d.config.Network(req.Network)
	if err != nil {
		return err
	}
	if network.URL == "" {
		return fmt.Errorf("network '%s' has no url", network.Name)
	}
	proxyAddress, err := deployments.ProxyAddress(req.Record)
	if err != nil {
		return err
	}
	contract := req.Contract
	if contract == "" {
		contract = strings.TrimSuffix(filepath.Base(req.Record), filepath.Ext(req.Record))
	}
	registry, err := d.Artifacts()
	if err != nil {
		return err
	}
	artifact, err := registry.Get(contract)
	if err != nil {
		return err
	}
	buildInfo, err := artifact.BuildInfo()
	if err != nil {
		return err
	}

	backend, err := d.dial(ctx, network.URL)
	if err != nil {
		return err
	}
	defer backend.Close()
	impl, err := ethereum.ImplementationAddress(ctx, backend, common.HexToAddress(proxyAddress))
	if err != nil {
		return err
	}
	if impl == (common.Address{}) {
		return fmt.Errorf("%s has no implementation, it is not a proxy", proxyAddress)
	}

	verified, err := client.IsVerified(ctx, impl.Hex())
	if err != nil {
		return err
	}
	if verified {
		l.Info(fmt.Sprintf("%s implementation at %s is already verified", artifact.ContractName, impl.Hex()))
	} else {
		l.Info(fmt.Sprintf("verifying %s implementation at %s", artifact.ContractName, impl.Hex()))
		guid, err := client.VerifySource(ctx, &explorer.VerifyRequest{
			Address:         impl.Hex(),
			ContractName:    artifact.FullyQualifiedName(),
			CompilerVersion: "v" + buildInfo.SolcLongVersion,
			SourceCode:      buildInfo.Input,
		})
		if err == nil {
			_, err = client.Wait(ctx, guid, client.CheckStatus)
		}
		if err != nil && !errors.Is(err, explorer.ErrAlreadyVerified) {
			return fmt.Errorf("failed to verify %s: %w", artifact.ContractName, err)
		}
	}

	l.Info(fmt.Sprintf("linking proxy %s to %s", proxyAddress, impl.Hex()))
	guid, err := client.VerifyProxy(ctx, proxyAddress, impl.Hex())
	if err != nil {
		return err
	}
	if _, err := client.Wait(ctx, guid, client.CheckProxyStatus); err != nil {
		return fmt.Errorf("failed to link proxy %s: %w", proxyAddress, err)
	}
	fmt.Fprintf(d.out, "%s verified at %s (implementation %s)\n", artifact.ContractName, proxyAddress, impl.Hex())
	return nil
}
