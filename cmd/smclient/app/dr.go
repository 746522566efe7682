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
	RootCmd.AddCommand(NewCmdMove())
	RootCmd.AddCommand(NewCmdStop())
}

// NewCmdMove is the planned switchover: roles reverse towards the given
// target site.
func NewCmdMove() *cobra.Command {
	var f procedureFlags
	cmd := &cobra.Command{
		Use:   "move <site>",
		Short: "Switch the active role over to the given site",
		Run:   runProcedure(&f, config.CmdMove, true),
		Args:  cobra.ExactArgs(1),
	}
	AddProcedureFlags(&f, cmd.Flags())
	return cmd
}

// NewCmdStop is the failover: the given site is failing, the surviving site
// takes the active role.
func NewCmdStop() *cobra.Command {
	var f procedureFlags
	cmd := &cobra.Command{
		Use:   "stop <site>",
		Short: "Fail over away from the given (failing) site",
		Run:   runProcedure(&f, config.CmdStop, true),
		Args:  cobra.ExactArgs(1),
	}
	AddProcedureFlags(&f, cmd.Flags())
	return cmd
}
