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
	"time"

	"github.com/briandowns/spinner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/netcracker/drnavigator/pkg/client"
	"github.com/netcracker/drnavigator/pkg/config"
	"github.com/netcracker/drnavigator/pkg/errlog"
)

// runProcedure wires a subcommand's Run function: it loads the
// configuration, builds the client and executes the procedure, exiting with
// 0 only when nothing failed.
func runProcedure(f *procedureFlags, procedure string, needsSite bool) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		site := ""
		if needsSite {
			site = args[0]
		}

		if f.verbose {
			errlog.DebugOutput = true
			if err := errlog.SetLevel("debug"); err != nil {
				errlog.LogError(err)
				os.Exit(1)
			}
		}
		if f.output != "" {
			errlog.DuplicateToFile(f.output)
		}

		cfg, err := config.Load(f.config, f.insecure)
		if err != nil {
			errlog.LogError(err)
			os.Exit(1)
		}

		smc, err := client.New(cfg, f.clientOptions())
		if err != nil {
			errlog.LogError(errors.Wrap(err, "could not create sm client"))
			os.Exit(1)
		}

		stop := startSpinner(procedure, f)
		err = smc.Run(procedure, site)
		stop()
		if err != nil {
			errlog.LogError(err)
			os.Exit(1)
		}
		if smc.Results().HasFailed() {
			os.Exit(1)
		}
		os.Exit(0)
	}
}

// startSpinner shows progress while a mutating procedure is in flight, but
// only on a terminal and never over verbose output.
func startSpinner(procedure string, f *procedureFlags) func() {
	if f.verbose || f.dryRun || config.IsReadOnly(procedure) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Running " + procedure + " procedure..."
	s.Start()
	return s.Stop
}
