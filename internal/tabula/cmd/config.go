// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"laptudirm.com/x/tabula/pkg/common"
	"laptudirm.com/x/tabula/pkg/train"
)

const (
	// OracleEnv names the oracle used when neither --oracle nor the
	// configuration file does.
	OracleEnv = "TABULA_ORACLE"

	DefaultOracle = "santorini"
	DefaultRun    = "default"
)

// addConfigFlags registers the flags shared by commands that talk to the
// oracle.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Training configuration file (yaml)")
	cmd.Flags().StringP("oracle", "o", "", "Oracle binary, or the name of an installed oracle")
	cmd.Flags().Duration("timeout", 0, "Time limit for a single oracle query")
}

// loadConfig reads the configuration file given by --config, if any, and
// applies the oracle flags on top of it.
func loadConfig(cmd *cobra.Command, paths common.Paths) (train.Config, error) {
	config := train.DefaultConfig()

	if file, _ := cmd.Flags().GetString("config"); file != "" {
		var err error
		if config, err = train.LoadConfig(file); err != nil {
			return config, err
		}
	}

	if name, _ := cmd.Flags().GetString("oracle"); name != "" {
		config.Oracle.Cmd = name
	}

	if config.Oracle.Cmd == "" {
		config.Oracle.Cmd = os.Getenv(OracleEnv)
	}

	if config.Oracle.Cmd == "" {
		config.Oracle.Cmd = DefaultOracle
	}

	config.Oracle.Cmd = oracleCommand(paths, config.Oracle.Cmd)

	if cmd.Flags().Changed("timeout") {
		config.Oracle.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}

	return config, nil
}

// oracleCommand resolves the name of an installed oracle to its binary.
// Anything else is left for the pipeline to look up.
func oracleCommand(paths common.Paths, name string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return name
	}

	if _, err := os.Stat(paths.Binary(name)); err == nil {
		return paths.Binary(name)
	}

	return name
}
