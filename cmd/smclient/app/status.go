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
	"github.com/spf13/cobra"

	"github.com/netcracker/drnavigator/pkg/config"
)

func init() {
	RootCmd.AddCommand(NewCmdStatus())
	RootCmd.AddCommand(NewCmdList())
}

// NewCmdStatus reads every managed service's DR state on both sites.
func NewCmdStatus() *cobra.Command {
	var f procedureFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the per-site DR state of every managed service",
		Run:   runProcedure(&f, config.CmdStatus, false),
		Args:  cobra.ExactArgs(0),
	}
	AddProcedureFlags(&f, cmd.Flags())
	return cmd
}

// NewCmdList prints the merged service catalog across reachable sites.
func NewCmdList() *cobra.Command {
	var f procedureFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the services managed on the reachable sites",
		Run:   runProcedure(&f, config.CmdList, false),
		Args:  cobra.ExactArgs(0),
	}
	AddProcedureFlags(&f, cmd.Flags())
	return cmd
}
