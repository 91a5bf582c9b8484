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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/diir-io/diir-cli/internal/config"
	"github.com/diir-io/diir-cli/internal/constants"
	"github.com/diir-io/diir-cli/internal/deployer"
	"github.com/diir-io/diir-cli/internal/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const ExecutableName = "diir"

var (
	cfgFile         string
	projectFile     string
	extraConfigFile string
	envFiles        []string
	networkName     string
	verbose         bool
	timeout         time.Duration

	fancyFeatures = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	logger        log.Logger

	// dialFunc replaces the JSON-RPC client when set
	dialFunc deployer.DialFunc
)

func GetDiirAsciiArt() string {
	s := ""
	s += "\u001b[35m    ____  _ _ ____  \u001b[0m\n"   // magenta
	s += "\u001b[35m   / __ \\(_|_) __ \\ \u001b[0m\n" // magenta
	s += "\u001b[34m  / / / / / / /_/ / \u001b[0m\n"   // blue
	s += "\u001b[34m / /_/ / / / _, _/  \u001b[0m\n"   // blue
	s += "\u001b[36m/_____/_/_/_/ |_|   \u001b[0m\n"   // cyan

	return s
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   ExecutableName,
	Short: "diir deploys and upgrades the DiiR contracts behind proxies",
	Long: GetDiirAsciiArt() + `
diir deploys and upgrades the DiiR contracts behind proxies

Contracts are read from the compiled artifacts directory, deployed behind
a transparent or UUPS proxy, and the proxy address and ABI are written to
abi/<network>/<Contract>.json for the frontend to pick up.

To get started run: diir scripts
	`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). Any error is printed and exits with status 1.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.diir.yaml)")
	rootCmd.PersistentFlags().StringVarP(&projectFile, "project", "p", constants.ProjectConfigFile, "project config file overriding the built-in networks")
	rootCmd.PersistentFlags().StringVar(&extraConfigFile, "extra-config", "", "additional config file merged over the project config")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{constants.EnvFile}, "dotenv files to load before reading the environment")
	rootCmd.PersistentFlags().StringVarP(&networkName, "network", "n", "", "network to use (default is the config's defaultNetwork)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose log output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "how long to wait for the whole operation")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".diir" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".diir")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() log.Logger {
	switch {
	case verbose:
		return log.NewLogrusLogger(os.Stderr, log.Debug)
	case fancyFeatures:
		spin := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		return log.NewSpinnerLogger(spin)
	default:
		return log.NewLogrusLogger(os.Stderr, log.Info)
	}
}

// initCommand is the PreRunE of every command that talks to a network.
func initCommand(cmd *cobra.Command, args []string) error {
	logger = newLogger()
	ctx := log.WithVerbosity(context.Background(), verbose)
	ctx = log.WithLogger(ctx, logger)
	cmd.SetContext(ctx)
	return nil
}

// commandContext applies --timeout and starts the spinner, if any. The
// returned func stops both.
func commandContext(cmd *cobra.Command) (context.Context, func()) {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	spin, _ := log.LoggerFromContext(ctx).(*log.SpinnerLogger)
	if spin != nil {
		spin.Spinner.Start()
	}
	return ctx, func() {
		if spin != nil {
			spin.Spinner.Stop()
		}
		cancel()
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(&config.LoadOptions{
		ProjectFile: projectFile,
		ExtraFile:   extraConfigFile,
		EnvFiles:    envFiles,
		Viper:       viper.GetViper(),
	})
}

func newDeployer(cmd *cobra.Command) (*deployer.Deployer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	d := deployer.NewDeployer(cfg).WithOutput(cmd.OutOrStdout())
	if dialFunc != nil {
		d.WithDial(dialFunc)
	}
	return d, nil
}
