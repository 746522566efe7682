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

package scheduler

import (
	"fmt"

	"github.com/netcracker/drnavigator/pkg/cluster"
)

// Results are the four disjoint outcome buckets of a procedure run, plus the
// services excluded up front by the run/skip filters. Only the scheduling
// coordinator mutates them.
type Results struct {
	// Done finished acceptably.
	Done []string
	// Failed broke the procedure and aborts dependents.
	Failed []string
	// Warned failed but the failure was tolerated; never aborts dependents.
	Warned []string
	// SkippedDeps never ran because an ancestor failed or a previous flow
	// step did not finish.
	SkippedDeps []string
	// Ignored was excluded by --run-services/--skip-services.
	Ignored []string
}

// Sortout classifies a terminal service status into the buckets. A service
// already warned or failed never moves back to done; a tolerated failure
// demotes a done service to warned; an intolerable one always wins.
func (r *Results) Sortout(status *cluster.ServiceDRStatus) {
	name := status.Service
	switch {
	case status.ServiceStatus:
		if !in(r.Failed, name) && !in(r.Warned, name) && !in(r.Done, name) {
			r.Done = append(r.Done, name)
		}
	case status.AllowFailure:
		if !in(r.Failed, name) && !in(r.Warned, name) {
			r.Warned = append(r.Warned, name)
		}
		r.Done = remove(r.Done, name)
	default:
		if !in(r.Failed, name) {
			r.Failed = append(r.Failed, name)
		}
		r.Warned = remove(r.Warned, name)
		r.Done = remove(r.Done, name)
	}
}

// MarkSkipped classifies a service as skipped-due-deps, displacing an earlier
// done or warned outcome. Failed services stay failed.
func (r *Results) MarkSkipped(name string) {
	if in(r.Failed, name) {
		return
	}
	r.Done = remove(r.Done, name)
	r.Warned = remove(r.Warned, name)
	if !in(r.SkippedDeps, name) {
		r.SkippedDeps = append(r.SkippedDeps, name)
	}
}

// IsSkipped reports whether the service was classified skipped-due-deps.
func (r *Results) IsSkipped(name string) bool {
	return in(r.SkippedDeps, name)
}

// HasFailed reports whether any service broke the procedure.
func (r *Results) HasFailed() bool {
	return len(r.Failed) > 0
}

// Summary renders the bucket counts for the final report line.
func (r *Results) Summary() string {
	return fmt.Sprintf("done: %d, failed: %d, warned: %d, skipped due to dependencies: %d, ignored: %d",
		len(r.Done), len(r.Failed), len(r.Warned), len(r.SkippedDeps), len(r.Ignored))
}

func in(list []string, name string) bool {
	for _, l := range list {
		if l == name {
			return true
		}
	}
	return false
}

func remove(list []string, name string) []string {
	for i, l := range list {
		if l == name {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
