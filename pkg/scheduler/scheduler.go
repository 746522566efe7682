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

// Package scheduler walks a prepared dependency graph and dispatches ready
// services to concurrent workers, collecting their terminal statuses on a
// completion channel. A failed service marks its successors so they are
// bypassed instead of executed.
package scheduler

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/netcracker/drnavigator/pkg/cluster"
	"github.com/netcracker/drnavigator/pkg/graph"
)

// ProcessFunc runs one service and must publish exactly one terminal status
// on the completions channel. Workers never touch the graph.
type ProcessFunc func(service string, completions chan<- *cluster.ServiceDRStatus)

// Run processes every service in the graph in dependency order with bounded
// lifetime workers (one per ready service). The graph is cloned first so the
// same prepared graph can back several flow phases.
//
// Graph advancement and result classification happen only here, on the
// caller's goroutine; completions arrive in arbitrary order and each one is
// handled before the ready frontier is refreshed.
func Run(g *graph.Graph, results *Results, process ProcessFunc) {
	g = g.Clone()

	completions := make(chan *cluster.ServiceDRStatus, g.Len())
	failedSuccessors := map[string]bool{}
	var wg sync.WaitGroup

	for g.IsActive() {
		for _, service := range g.Ready() {
			if failedSuccessors[service] {
				logrus.Infof("Service %v marked as failed due to dependencies", service)
				results.MarkSkipped(service)
				// The synthetic status advances the graph and cascades to
				// the node's own successors like any other failure.
				completions <- cluster.NewServiceDRStatus(service)
				continue
			}
			wg.Add(1)
			go func(service string) {
				defer wg.Done()
				process(service, completions)
			}(service)
		}

		status := <-completions
		if !status.IsOK() {
			for _, successor := range g.Successors(status.Service) {
				logrus.Debugf("Found successor %v for failed %v", successor, status.Service)
				failedSuccessors[successor] = true
			}
		}
		if err := g.Done(status.Service); err != nil {
			logrus.Warningf("Couldn't advance the graph: %v", err)
			break
		}
		if !results.IsSkipped(status.Service) {
			results.Sortout(status)
		}
	}

	wg.Wait()
}
