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
	"crypto/ecdsa"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diir-io/diir-cli/internal/artifacts"
	"github.com/diir-io/diir-cli/internal/config"
	"github.com/diir-io/diir-cli/internal/deployments"
	"github.com/diir-io/diir-cli/internal/ethereum"
	"github.com/diir-io/diir-cli/internal/log"
	"github.com/diir-io/diir-cli/internal/proxy"
	"github.com/diir-io/diir-cli/pkg/types"
)

const (
	RecordRefPrefix = "record:"
	PriceFeedRef    = "price-feed"
)

type DialFunc func(ctx context.Context, url string) (ethereum.Backend, error)

func dialRPC(ctx context.Context, url string) (ethereum.Backend, error) {
	return ethereum.Dial(ctx, url)
}

type DeployRequest struct {
	Network  string
	Contract string
	// Args are initializer arguments. Each may be a literal, a record
	// reference or the price feed reference.
	Args []string
	// Output overrides the record path.
	Output string
	// Label is printed in the success message instead of the contract name.
	Label   string
	Options types.DeployOptions
}

type UpgradeRequest struct {
	Network  string
	Contract string
	// Proxy is an address or a record reference. Empty means the record of
	// the same contract on the network.
	Proxy   string
	Output  string
	Label   string
	Options types.UpgradeOptions
}

type Result struct {
	Deployment *types.Deployment
	RecordPath string
}

// Deployer runs deploy and upgrade requests against the configured
// networks and keeps the records up to date.
type Deployer struct {
	config   *config.Config
	registry *artifacts.Registry
	dial     DialFunc
	out      io.Writer
}

func NewDeployer(cfg *config.Config) *Deployer {
	return &Deployer{
		config: cfg,
		dial:   dialRPC,
		out:    os.Stdout,
	}
}

func (d *Deployer) WithDial(dial DialFunc) *Deployer {
	d.dial = dial
	return d
}

func (d *Deployer) WithOutput(out io.Writer) *Deployer {
	d.out = out
	return d
}

func (d *Deployer) WithRegistry(registry *artifacts.Registry) *Deployer {
	d.registry = registry
	return d
}

func (d *Deployer) Config() *config.Config {
	return d.config
}

// Artifacts loads the compiled contracts on first use.
func (d *Deployer) Artifacts() (*artifacts.Registry, error) {
	if d.registry == nil {
		registry, err := artifacts.Load(d.config.Paths.Artifacts)
		if err != nil {
			return nil, err
		}
		d.registry = registry
	}
	return d.registry, nil
}

func (d *Deployer) Deploy(ctx context.Context, req *DeployRequest) (*Result, error) {
	l := log.LoggerFromContext(ctx)
	network, err := d.network(req.Network)
	if err != nil {
		return nil, err
	}
	args := make([]string, len(req.Args))
	for i, arg := range req.Args {
		if args[i], err = d.ResolveArg(arg); err != nil {
			return nil, err
		}
	}

	var deployment *types.Deployment
	err = d.withManager(ctx, network, func(m *proxy.Manager) error {
		l.Info(fmt.Sprintf("deploying %s to %s", req.Contract, network.Name))
		deployment, err = m.DeployProxy(ctx, req.Contract, args, &req.Options)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d.finish(deployment, network, req.Output, req.Label)
}

func (d *Deployer) Upgrade(ctx context.Context, req *UpgradeRequest) (*Result, error) {
	l := log.LoggerFromContext(ctx)
	network, err := d.network(req.Network)
	if err != nil {
		return nil, err
	}
	proxyRef := req.Proxy
	if proxyRef == "" {
		proxyRef = RecordRefPrefix + deployments.Path(d.config.Paths.ABI, network.RecordDirName(), contractName(req.Contract))
	}
	proxyAddress, err := d.ResolveArg(proxyRef)
	if err != nil {
		return nil, err
	}

	var deployment *types.Deployment
	err = d.withManager(ctx, network, func(m *proxy.Manager) error {
		l.Info(fmt.Sprintf("upgrading %s on %s to %s", proxyAddress, network.Name, req.Contract))
		deployment, err = m.UpgradeProxy(ctx, proxyAddress, req.Contract, &req.Options)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d.finish(deployment, network, req.Output, req.Label)
}

// ResolveArg expands record and price feed references. Record addresses
// are returned exactly as stored.
func (d *Deployer) ResolveArg(arg string) (string, error) {
	switch {
	case strings.HasPrefix(arg, RecordRefPrefix):
		return deployments.ProxyAddress(strings.TrimPrefix(arg, RecordRefPrefix))
	case arg == PriceFeedRef:
		address := d.config.PriceFeedAddress()
		if address.IsZero() {
			envName := d.config.PriceFeed.TestnetEnv
			if d.config.NodeEnv == config.ProductionEnv {
				envName = d.config.PriceFeed.MainnetEnv
			}
			return "", fmt.Errorf("no price feed address configured for NODE_ENV '%s', set %s", d.config.NodeEnv, envName)
		}
		return address.String(), nil
	default:
		return arg, nil
	}
}

func (d *Deployer) network(name string) (*config.Network, error) {
	network, err := d.config.Network(name)
	if err != nil {
		return nil, err
	}
	if err := network.Validate(); err != nil {
		return nil, err
	}
	return network, nil
}

func (d *Deployer) withManager(ctx context.Context, network *config.Network, fn func(m *proxy.Manager) error) error {
	key, err := LoadKey(network)
	if err != nil {
		return err
	}
	registry, err := d.Artifacts()
	if err != nil {
		return err
	}
	backend, err := d.dial(ctx, network.URL)
	if err != nil {
		return err
	}
	defer backend.Close()

	transactor, err := ethereum.NewTransactor(ctx, backend, key, network.ChainID)
	if err != nil {
		return err
	}
	manifest, err := proxy.LoadManifest(d.config.Paths.Manifest, transactor.ChainID().Int64())
	if err != nil {
		return err
	}
	return fn(proxy.NewManager(transactor, registry, manifest, network.MaxContractSize()))
}

func (d *Deployer) finish(deployment *types.Deployment, network *config.Network, output, label string) (*Result, error) {
	if output == "" {
		output = deployments.Path(d.config.Paths.ABI, network.RecordDirName(), deployment.Name)
	}
	if err := deployments.Write(output, deployment.Record()); err != nil {
		return nil, fmt.Errorf("%s deployed to %s but the record was not written: %w", deployment.Name, deployment.Address, err)
	}
	if label == "" {
		label = deployment.Name
	}
	fmt.Fprintf(d.out, "%s deployed to: %s\n", label, deployment.Address)
	return &Result{
		Deployment: deployment,
		RecordPath: output,
	}, nil
}

// LoadKey returns the signing key configured for a network: the first hex
// account, else the keystore.
func LoadKey(network *config.Network) (*ecdsa.PrivateKey, error) {
	if len(network.Accounts) > 0 {
		return ethereum.ParsePrivateKey(network.Accounts[0])
	}
	if network.Keystore != "" {
		return ethereum.ReadKeystore(network.Keystore, network.KeystorePassword)
	}
	return nil, fmt.Errorf("%w for network '%s'", config.ErrNoAccounts, network.Name)
}

func contractName(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}
