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

package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var versionShort bool
var versionFormat = "json"

var (
	BuildDate            string
	BuildCommit          string
	BuildVersionOverride string
)

type Info struct {
	Version   string `json:"Version,omitempty" yaml:"Version,omitempty"`
	Commit    string `json:"Commit,omitempty" yaml:"Commit,omitempty"`
	Date      string `json:"Date,omitempty" yaml:"Date,omitempty"`
	GoVersion string `json:"GoVersion,omitempty" yaml:"GoVersion,omitempty"`
	License   string `json:"License,omitempty" yaml:"License,omitempty"`
}

func buildInfo() *Info {
	info := &Info{
		Version:   BuildVersionOverride,
		Date:      BuildDate,
		Commit:    BuildCommit,
		GoVersion: runtime.Version(),
		License:   "Apache-2.0",
	}
	// go install fills in the module version, release builds pass it in with -ldflags
	if info.Version == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			info.Version = bi.Main.Version
		}
	}
	return info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version info",
	Long:  "Prints the version info of the CLI binary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildInfo()
		if versionShort {
			fmt.Fprintln(cmd.OutOrStdout(), info.Version)
			return nil
		}
		var (
			b   []byte
			err error
		)
		switch versionFormat {
		case "json":
			b, err = json.MarshalIndent(info, "", "  ")
		case "yaml":
			b, err = yaml.Marshal(info)
		default:
			return fmt.Errorf("invalid output '%s'", versionFormat)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "print only the version")
	versionCmd.Flags().StringVarP(&versionFormat, "output", "o", "json", "output format (\"yaml\"|\"json\")")
	rootCmd.AddCommand(versionCmd)
}
