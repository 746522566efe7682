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
	RootCmd.AddCommand(newSiteCmd(config.CmdActive, "Activate the managed services on a site"))
	RootCmd.AddCommand(newSiteCmd(config.CmdStandby, "Passivate the managed services on a site"))
	RootCmd.AddCommand(newSiteCmd(config.CmdDisable, "Disable the managed services on a site"))
	RootCmd.AddCommand(newSiteCmd(config.CmdReturn, "Return a site from maintenance into standby"))
}

// newSiteCmd builds one of the per-site mode commands; they differ only in
// the requested procedure.
func newSiteCmd(procedure, short string) *cobra.Command {
	var f procedureFlags
	cmd := &cobra.Command{
		Use:   procedure + " <site>",
		Short: short,
		Run:   runProcedure(&f, procedure, true),
		Args:  cobra.ExactArgs(1),
	}
	AddProcedureFlags(&f, cmd.Flags())
	return cmd
}
