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
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

type Action string

const (
	ActionDeploy  Action = "deploy"
	ActionUpgrade Action = "upgrade"
)

// Script is a canned deployment. Record references in Args and Proxy and
// the Output path are relative to the abi directory.
type Script struct {
	Name        string
	Description string
	Action      Action
	Network     string
	Contract    string
	Label       string
	Args        []string
	Proxy       string
	Output      string
}

var scripts = map[string]*Script{
	"localhost/deploy-station": {
		Description: "Deploy DiiRStation behind a new proxy on the local node",
		Action:      ActionDeploy,
		Network:     "localhost",
		Contract:    "DiiRStation",
		Output:      "localhost/DiiRStation.json",
	},
	"localhost/deploy-tip-v1": {
		Description: "Upgrade the local DiiRTip proxy to DiiRTipV1",
		Action:      ActionUpgrade,
		Network:     "localhost",
		Contract:    "DiiRTipV1",
		Proxy:       RecordRefPrefix + "localhost/DiiRTip.json",
		Output:      "localhost/DiiRTipV1.json",
	},
	"testnet/deploy-station-v1": {
		Description: "Upgrade the testnet DiiRStation proxy to the current DiiRStation",
		Action:      ActionUpgrade,
		Network:     "goerli",
		Contract:    "DiiRStation",
		Label:       "DiiRStationV1",
		Proxy:       RecordRefPrefix + "testnet/DiiRStation.json",
		Output:      "testnet/DiiRStation.json",
	},
	"testnet/deploy-tip": {
		Description: "Deploy DiiRTip on testnet, linked to DiiRProfile and the price feed",
		Action:      ActionDeploy,
		Network:     "goerli",
		Contract:    "DiiRTip",
		Args:        []string{RecordRefPrefix + "testnet/DiiRProfile.json", PriceFeedRef},
		Output:      "testnet/DiiRTip.json",
	},
}

func init() {
	for name, s := range scripts {
		s.Name = name
	}
}

func Scripts() []*Script {
	names := ScriptNames()
	result := make([]*Script, len(names))
	for i, name := range names {
		result[i] = scripts[name]
	}
	return result
}

func ScriptNames() []string {
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func FindScript(name string) (*Script, error) {
	s, ok := scripts[strings.TrimSuffix(name, ".ts")]
	if !ok {
		return nil, fmt.Errorf("unknown script '%s'. valid options are: %s", name, strings.Join(ScriptNames(), ", "))
	}
	return s, nil
}

func (d *Deployer) abiRef(ref string) string {
	if strings.HasPrefix(ref, RecordRefPrefix) {
		return RecordRefPrefix + filepath.Join(d.config.Paths.ABI, strings.TrimPrefix(ref, RecordRefPrefix))
	}
	return ref
}

// RunScript runs a canned deployment. An empty network uses the script's
// own network.
func (d *Deployer) RunScript(ctx context.Context, name, network string) (*Result, error) {
	s, err := FindScript(name)
	if err != nil {
		return nil, err
	}
	if network == "" {
		network = s.Network
	}
	output := filepath.Join(d.config.Paths.ABI, s.Output)
	switch s.Action {
	case ActionDeploy:
		args := make([]string, len(s.Args))
		for i, arg := range s.Args {
			args[i] = d.abiRef(arg)
		}
		return d.Deploy(ctx, &DeployRequest{
			Network:  network,
			Contract: s.Contract,
			Args:     args,
			Output:   output,
			Label:    s.Label,
		})
	case ActionUpgrade:
		return d.Upgrade(ctx, &UpgradeRequest{
			Network:  network,
			Contract: s.Contract,
			Proxy:    d.abiRef(s.Proxy),
			Output:   output,
			Label:    s.Label,
		})
	default:
		return nil, fmt.Errorf("script '%s' has unknown action '%s'", name, s.Action)
	}
}
