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

package main

import (
	"os"

	"github.com/netcracker/drnavigator/cmd/smclient/app"
	"github.com/netcracker/drnavigator/pkg/errlog"
)

// Main entry point of the program. Commands that fail return an error and
// the generic log/exit logic here handles it; validation and execution
// failures inside a procedure set the exit code themselves.
func main() {
	if err := app.RootCmd.Execute(); err != nil {
		errlog.LogError(err)
		os.Exit(1)
	}
}
