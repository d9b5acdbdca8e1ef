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
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/logrusorgru/aurora"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"laptudirm.com/x/tabula/pkg/common"
	"laptudirm.com/x/tabula/pkg/manager"
	"laptudirm.com/x/tabula/pkg/oracle"
)

func Oracle() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Manage the game engines used as oracles",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(installOracle())
	cmd.AddCommand(listOracles())
	cmd.AddCommand(removeOracle())
	cmd.AddCommand(checkOracle())
	return cmd
}

func installOracle() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install { name owner/name git-url }[@version]",
		Short: "Install an oracle from its git repository",
		Args:  cobra.ExactArgs(1),
		Long: heredoc.Doc(`install fetches the oracle's source repository, builds the
			given version, and installs the binary into ~/tabula/bin so
			that it can be used by name with --oracle.

			The formats supported for the oracle are <name>, for oracles
			which have been installed before, <owner>/<name> for oracles
			on github, or a full <url> to a git repository.

			The version can be "stable", the latest tagged version and the
			default, "latest", the latest commit, or the name of a tag.

			The binary is built with the shallowest Makefile in the
			repository, which must put the binary at the path given by
			its EXE variable, or with a build script recorded for the
			oracle in ~/tabula/oracles.yaml.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, tag, _ := strings.Cut(args[0], "@")
			if tag == "" {
				tag = "stable"
			}

			m, err := manager.Open(common.DefaultPaths())
			if err != nil {
				return err
			}

			o, err := m.NewOracle(source)
			if err != nil {
				return err
			}

			if err := o.Fetch(); err != nil {
				return err
			}

			version, err := o.ResolveVersion(tag)
			if err != nil {
				return err
			}

			force, _ := cmd.Flags().GetBool("force")
			if m.Downloaded(o.Name, version.Name) && !force {
				logrus.Infof("Oracle \x1b[32m%s %s\x1b[0m is already installed", o.Name, version.Name)
			} else if err := m.Download(o, version); err != nil {
				return err
			}

			if noMain, _ := cmd.Flags().GetBool("no-main"); noMain {
				return nil
			}

			return m.SetMain(o.Name, version.Name)
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Force a re-installation of the oracle")
	cmd.Flags().BoolP("no-main", "n", false, "Don't replace the oracle with the new version")

	return cmd
}

func listOracles() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the installed oracles and their versions",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager.Open(common.DefaultPaths())
			if err != nil {
				return err
			}

			found := false
			for name, info := range m.Oracles {
				if len(info.Versions) == 0 {
					continue
				}

				if !found {
					found = true
					fmt.Printf("%s:\n\n", aurora.Green("Installed Oracles"))
				}

				// The main version is listed first.
				versions := ""
				for _, version := range info.Versions {
					if version == info.Current {
						versions = aurora.Yellow(version).String() + " " + versions
					} else {
						versions += version + " "
					}
				}

				fmt.Printf("- %-20s %s\n", aurora.Blue(name+":"), versions)
			}

			if !found {
				fmt.Println(aurora.Red("No Oracles Installed."))
			}

			return nil
		},
	}
}

func removeOracle() *cobra.Command {
	return &cobra.Command{
		Use:   "remove name[@version]",
		Short: "Uninstall an oracle or one of its versions",
		Args:  cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name, version, _ := strings.Cut(args[0], "@")

			m, err := manager.Open(common.DefaultPaths())
			if err != nil {
				return err
			}

			if version != "" && !m.Downloaded(name, version) {
				logrus.Infof("Oracle \x1b[32m%s %s\x1b[0m is not installed", name, version)
				return nil
			}

			logrus.Infof("Uninstalling oracle \x1b[32m%s %s\x1b[0m", name, version)
			return m.Remove(name, version)
		},
	}
}

func checkOracle() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the oracle answers queries",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`check generates a start state with the configured oracle
			and queries the legal actions of both players and the status of
			the game in it, printing the answers. Any failure is reported
			the same way a training run would.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd, common.DefaultPaths())
			if err != nil {
				return err
			}

			pipeline, err := oracle.NewPipeline(config.Oracle)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			state, err := pipeline.Generate(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("- %-10s %s\n", aurora.Blue("oracle:"), config.Oracle.Cmd)
			fmt.Printf("- %-10s %s\n", aurora.Blue("state:"), state)

			for _, player := range []oracle.Player{oracle.Agent, oracle.Opponent} {
				actions, err := pipeline.LegalActions(ctx, state, player)
				if err != nil {
					return err
				}

				fmt.Printf("- %-10s %v\n", aurora.Blue(player.String()+":"), actions)
			}

			status, err := pipeline.Status(ctx, state)
			if err != nil {
				return err
			}

			fmt.Printf("- %-10s you %t, them %t\n", aurora.Blue("status:"), status.You, status.Them)
			fmt.Println(aurora.Green("Oracle is working."))
			return nil
		},
	}

	addConfigFlags(cmd)
	return cmd
}
