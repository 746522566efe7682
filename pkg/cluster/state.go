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

// Package cluster holds the two-site in-memory state the DR procedures work
// on: per-site reachability and service catalogs, the per-module planning
// outputs, and the per-service DR status model.
package cluster

import (
	"github.com/pkg/errors"

	"github.com/netcracker/drnavigator/pkg/config"
	"github.com/netcracker/drnavigator/pkg/graph"
)

// ServiceRecord is one managed service as declared by a Site Manager.
type ServiceRecord struct {
	Name                 string   `json:"-"`
	Module               string   `json:"module"`
	After                []string `json:"after"`
	Before               []string `json:"before"`
	Sequence             []string `json:"sequence"`
	AllowedStandbyStates []string `json:"allowedStandbyStateList"`
	Timeout              int      `json:"timeout"` // seconds; 0 falls back to the global default

	Parameters struct {
		ServiceEndpoint string `json:"serviceEndpoint"`
		HealthzEndpoint string `json:"healthzEndpoint"`
	} `json:"parameters"`
}

// AllowedStandby returns the health states accepted while in standby mode.
func (r *ServiceRecord) AllowedStandby() []string {
	if len(r.AllowedStandbyStates) == 0 {
		return []string{HealthzUp}
	}
	return r.AllowedStandbyStates
}

// SiteState is the discovered state of one site.
type SiteState struct {
	Name       string
	Reachable  bool
	ReturnCode int // last HTTP or SSL code from discovery
	Services   map[string]*ServiceRecord
}

// ModulePlan is the planner output for one module.
type ModulePlan struct {
	Ordered   []string
	Graph     *graph.Graph
	DepsIssue bool // a minor integrity problem (dangling dependency) was seen
}

// State is the cluster state across exactly two sites. Construction fails for
// anything but two; a single-site view is expressed with a filter instead.
type State struct {
	cfg *config.Config

	order []string
	Sites map[string]*SiteState

	// Globals keeps the per-module planning outputs.
	Globals map[string]*ModulePlan
}

// NewState builds the state skeleton for the configured sites. A non-empty
// site filter restricts the state to that single site.
func NewState(cfg *config.Config, siteFilter string) (*State, error) {
	if siteFilter != "" && cfg.Site(siteFilter) == nil {
		return nil, errors.Errorf("unknown site name %v", siteFilter)
	}
	if len(cfg.Sites) != 2 {
		return nil, errors.Errorf("only two sites in clusters are supported, got %d", len(cfg.Sites))
	}
	s := &State{
		cfg:     cfg,
		Sites:   map[string]*SiteState{},
		Globals: map[string]*ModulePlan{},
	}
	for _, name := range cfg.SiteNames() {
		if siteFilter != "" && name != siteFilter {
			continue
		}
		s.order = append(s.order, name)
		s.Sites[name] = &SiteState{Name: name, Services: map[string]*ServiceRecord{}}
	}
	for _, module := range cfg.Modules() {
		s.Globals[module] = &ModulePlan{}
	}
	return s, nil
}

// Config returns the configuration the state was built from.
func (s *State) Config() *config.Config { return s.cfg }

// SiteNames returns the covered site names in configuration order.
func (s *State) SiteNames() []string { return append([]string(nil), s.order...) }

// Site returns the state of the named site, or nil.
func (s *State) Site(name string) *SiteState { return s.Sites[name] }

// AvailableSites returns the names of reachable sites in configuration order.
func (s *State) AvailableSites() []string {
	var out []string
	for _, name := range s.order {
		if s.Sites[name].Reachable {
			out = append(out, name)
		}
	}
	return out
}

// Service returns the record of a service on a site, or nil when the site or
// the service is unknown.
func (s *State) Service(site, service string) *ServiceRecord {
	st := s.Sites[site]
	if st == nil {
		return nil
	}
	return st.Services[service]
}

// ServicesForOKSites returns the union of service names across reachable
// sites. Sites are visited in configuration order; the order of services
// within one site is not defined.
func (s *State) ServicesForOKSites() []string {
	var out []string
	seen := map[string]bool{}
	for _, name := range s.order {
		if !s.Sites[name].Reachable {
			continue
		}
		for serv := range s.Sites[name].Services {
			if !seen[serv] {
				seen[serv] = true
				out = append(out, serv)
			}
		}
	}
	return out
}

// ModuleServices returns the services of a module on one site.
func (s *State) ModuleServices(site, module string) []string {
	st := s.Sites[site]
	if st == nil {
		return nil
	}
	var out []string
	for name, record := range st.Services {
		if record.Module == module {
			out = append(out, name)
		}
	}
	return out
}

// MakeIgnoredServices lists every discovered service that is not part of the
// ordered processing list and not already ignored.
func (s *State) MakeIgnoredServices(processed, alreadyIgnored []string) []string {
	inProcessed := toSet(processed)
	ignored := toSet(alreadyIgnored)
	var out []string
	seen := map[string]bool{}
	for _, name := range s.order {
		for serv := range s.Sites[name].Services {
			if !inProcessed[serv] && !ignored[serv] && !seen[serv] {
				seen[serv] = true
				out = append(out, serv)
			}
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	set := map[string]bool{}
	for _, i := range items {
		set[i] = true
	}
	return set
}
