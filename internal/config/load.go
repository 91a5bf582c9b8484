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

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/miracl/conflate"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type LoadOptions struct {
	// ProjectFile is optional, a missing file leaves the defaults in place.
	ProjectFile string
	// ExtraFile is merged over ProjectFile and must exist when set.
	ExtraFile string
	EnvFiles  []string
	Viper     *viper.Viper
}

// LoadEnvFiles reads dotenv files that exist. Variables already present in
// the process environment win.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to read env file '%s': %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration: built-in defaults, then the project file
// and any extra file merged over it, then environment lookups. A network
// declared in a file replaces the built-in network of the same name.
func Load(opts *LoadOptions) (*Config, error) {
	v := opts.Viper
	if v == nil {
		v = viper.GetViper()
	}
	if err := LoadEnvFiles(opts.EnvFiles...); err != nil {
		return nil, err
	}

	cfg := Default()
	files := []string{}
	if opts.ProjectFile != "" {
		if _, err := os.Stat(opts.ProjectFile); err == nil {
			files = append(files, opts.ProjectFile)
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if opts.ExtraFile != "" {
		if _, err := os.Stat(opts.ExtraFile); err != nil {
			return nil, fmt.Errorf("failed to read extra config '%s': %w", opts.ExtraFile, err)
		}
		files = append(files, opts.ExtraFile)
	}
	if len(files) > 0 {
		c, err := conflate.FromFiles(files...)
		if err != nil {
			return nil, fmt.Errorf("failed to merge config files %v: %w", files, err)
		}
		merged, err := c.MarshalYAML()
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(merged, cfg); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	cfg.Resolve(func(key string) string {
		_ = v.BindEnv(key)
		return v.GetString(key)
	})
	return cfg, nil
}

func (c *Config) YAML() ([]byte, error) {
	type plain Config
	return yaml.Marshal((*plain)(c))
}
