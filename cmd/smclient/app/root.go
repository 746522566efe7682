/*
Copyright the DRNavigator contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/netcracker/drnavigator/pkg/errlog"
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&errlog.DebugOutput, "debug", "d", false, "Enable debug output (includes stack traces)")
	RootCmd.PersistentFlags().Var(&errlog.LogLevel, "level", "Log level. One of {panic, fatal, error, warn, info, debug, trace}")
}

// RootCmd is the root command that is executed when smclient is run without
// any subcommands.
var RootCmd = &cobra.Command{
	Use:   "smclient",
	Short: "Coordinate disaster-recovery role transitions across two sites",
	Long: "smclient plans and executes cross-site DR procedures (switchover, failover, per-site " +
		"activation and passivation) against the Site Managers of exactly two Kubernetes sites.",
	Run: rootCmd,
}

func rootCmd(cmd *cobra.Command, args []string) {
	// smclient does nothing when not given a subcommand
	cmd.Help()
	os.Exit(0)
}
