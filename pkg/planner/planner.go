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

// Package planner merges the per-site service catalogs of one module into a
// single dependency graph and derives the execution order.
package planner

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/netcracker/drnavigator/pkg/cluster"
	"github.com/netcracker/drnavigator/pkg/graph"
)

// mergedDeps is the cross-site union of a service's declared dependencies.
type mergedDeps struct {
	before []string
	after  []string
}

// MakeOrderedServices builds the processing order for one module. Services
// are collected from every reachable site (or the single requested site),
// filtered down to servicesToProcess when non-empty and cleared of ignored
// ones; their before/after edges are merged across sites.
//
// Dependencies naming unknown services are dropped from the graph and
// reported as a minor issue (ok=false). A dependency cycle is a major
// integrity error: the returned order is empty and the graph nil.
func MakeOrderedServices(state *cluster.State, module, site string, servicesToProcess, ignored []string) (ordered []string, ok bool, g *graph.Graph) {
	merged, names := collectServices(state, module, site, servicesToProcess, ignored)

	g = buildGraph(merged, names)
	ordered, err := g.StaticOrder()
	if err != nil {
		logrus.WithField("site", siteLabel(site)).Errorf("Module %v has integrity issues: %v", module, err)
		return nil, false, nil
	}

	ok = true
	for _, name := range names {
		for _, kind := range []struct {
			label string
			deps  []string
		}{{"after", merged[name].after}, {"before", merged[name].before}} {
			for _, dep := range kind.deps {
				if _, known := merged[dep]; !known {
					logrus.WithField("site", siteLabel(site)).
						Warningf("Service: %v has nonexistent %v dependency: %v", name, kind.label, dep)
					ok = false
				}
			}
		}
	}

	if err := g.Prepare(); err != nil {
		// Unreachable after a successful StaticOrder; kept as a guard.
		return nil, false, nil
	}
	return ordered, ok, g
}

func collectServices(state *cluster.State, module, site string, servicesToProcess, ignored []string) (map[string]*mergedDeps, []string) {
	usedSites := state.AvailableSites()
	if site != "" {
		usedSites = []string{site}
	}

	include := map[string]bool{}
	for _, s := range servicesToProcess {
		include[s] = true
	}
	skip := map[string]bool{}
	for _, s := range ignored {
		skip[s] = true
	}

	merged := map[string]*mergedDeps{}
	var names []string
	for _, siteName := range usedSites {
		siteState := state.Site(siteName)
		if siteState == nil {
			continue
		}
		for _, record := range orderedRecords(siteState) {
			if record.Module != module ||
				(len(include) > 0 && !include[record.Name]) ||
				skip[record.Name] {
				continue
			}
			deps, known := merged[record.Name]
			if !known {
				deps = &mergedDeps{}
				merged[record.Name] = deps
				names = append(names, record.Name)
			}
			deps.before = appendMissing(deps.before, record.Before)
			deps.after = appendMissing(deps.after, record.After)
		}
	}
	return merged, names
}

// buildGraph wires only edges whose both endpoints survived collection;
// unknown endpoints are reported by the caller.
func buildGraph(merged map[string]*mergedDeps, names []string) *graph.Graph {
	g := graph.New()
	for _, name := range names {
		g.AddNode(name)
		for _, dep := range merged[name].after {
			if _, known := merged[dep]; known {
				g.AddDependency(name, dep)
			}
		}
		for _, dep := range merged[name].before {
			if _, known := merged[dep]; known {
				g.AddDependency(dep, name)
			}
		}
	}
	return g
}

// orderedRecords returns the site's records sorted by name so planning stays
// deterministic across runs.
func orderedRecords(site *cluster.SiteState) []*cluster.ServiceRecord {
	names := make([]string, 0, len(site.Services))
	for name := range site.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	records := make([]*cluster.ServiceRecord, len(names))
	for i, name := range names {
		records[i] = site.Services[name]
	}
	return records
}

func appendMissing(dst []string, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

func siteLabel(site string) string {
	if site == "" {
		return "merging"
	}
	return site
}
