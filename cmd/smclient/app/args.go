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
	"strings"

	"github.com/spf13/pflag"

	"github.com/netcracker/drnavigator/pkg/client"
)

// procedureFlags are the switches every procedure subcommand shares.
type procedureFlags struct {
	config       string
	verbose      bool
	insecure     bool
	runServices  string
	skipServices string
	force        bool
	ignoreRestr  bool
	output       string
	dryRun       bool
}

// AddProcedureFlags registers the shared flag set on a subcommand.
func AddProcedureFlags(f *procedureFlags, flags *pflag.FlagSet) {
	flags.StringVar(&f.config, "config", "config.yaml", "Path to the smclient configuration file")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Verbose (debug) logging")
	flags.BoolVarP(&f.insecure, "insecure", "k", false, "Skip server certificate verification")
	flags.StringVar(&f.runServices, "run-services", "", "Comma separated list of the only services to process")
	flags.StringVar(&f.skipServices, "skip-services", "", "Comma separated list of services to skip")
	flags.BoolVar(&f.force, "force", false, "Ignore service health when judging transitions")
	flags.BoolVar(&f.ignoreRestr, "ignore-restrictions", false, "Skip the final-state restriction check")
	flags.StringVar(&f.output, "output", "", "Duplicate the run log into the given file")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Plan and validate only; issue no mutating requests")
}

// clientOptions converts the flags into the client option set.
func (f *procedureFlags) clientOptions() client.Options {
	return client.Options{
		RunServices:        splitServices(f.runServices),
		SkipServices:       splitServices(f.skipServices),
		Force:              f.force,
		IgnoreRestrictions: f.ignoreRestr,
		DryRun:             f.dryRun,
	}
}

// splitServices accepts both comma and space separated service lists.
func splitServices(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
