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

package cluster

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/netcracker/drnavigator/pkg/config"
)

func twoSiteState(t *testing.T) *State {
	t.Helper()
	cfg, err := config.Parse([]byte(`
sites:
  - name: site-1
    site-manager: http://sm-1/sitemanager
  - name: site-2
    site-manager: http://sm-2/sitemanager
`), true)
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}
	state, err := NewState(cfg, "")
	if err != nil {
		t.Fatalf("unexpected state error: %v", err)
	}
	return state
}

func addService(state *State, site, name string, sequence ...string) {
	st := state.Site(site)
	st.Reachable = true
	st.Services[name] = &ServiceRecord{Name: name, Module: config.DefaultModule, Sequence: sequence}
}

func TestDROperationSequence(t *testing.T) {
	tests := []struct {
		name      string
		sequence  []string
		procedure string
		site      string
		want      []Step
	}{
		{
			name:     "move standby first",
			sequence: []string{"standby", "active"},
			procedure: config.CmdMove, site: "site-2",
			want: []Step{{"site-1", ModeStandby}, {"site-2", ModeActive}},
		},
		{
			name:     "move active first",
			sequence: []string{"active", "standby"},
			procedure: config.CmdMove, site: "site-2",
			want: []Step{{"site-2", ModeActive}, {"site-1", ModeStandby}},
		},
		{
			name:     "move empty sequence defaults to standby first",
			sequence: nil,
			procedure: config.CmdMove, site: "site-1",
			want: []Step{{"site-2", ModeStandby}, {"site-1", ModeActive}},
		},
		{
			name:     "stop standby first passivates the failing side",
			sequence: []string{"standby", "active"},
			procedure: config.CmdStop, site: "site-1",
			want: []Step{{"site-1", ModeStandby}, {"site-2", ModeActive}},
		},
		{
			name:     "stop active first activates the surviving side",
			sequence: []string{"active", "standby"},
			procedure: config.CmdStop, site: "site-1",
			want: []Step{{"site-2", ModeActive}, {"site-1", ModeStandby}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			state := twoSiteState(t)
			addService(state, "site-1", "serv1", test.sequence...)
			addService(state, "site-2", "serv1", test.sequence...)

			steps, err := state.DROperationSequence("serv1", test.procedure, test.site)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := pretty.Compare(steps, test.want); diff != "" {
				t.Errorf("unexpected steps:\n%v", diff)
			}
		})
	}
}

func TestDROperationSequenceStopConsultsSurvivingSide(t *testing.T) {
	state := twoSiteState(t)
	// Different hints per site: failover must follow the surviving site.
	addService(state, "site-1", "serv1", "standby", "active")
	addService(state, "site-2", "serv1", "active", "standby")

	steps, err := state.DROperationSequence("serv1", config.CmdStop, "site-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Step{{"site-2", ModeActive}, {"site-1", ModeStandby}}
	if diff := pretty.Compare(steps, want); diff != "" {
		t.Errorf("unexpected steps:\n%v", diff)
	}
}

func TestDROperationSequenceSingleSiteFallback(t *testing.T) {
	state := twoSiteState(t)
	// The service only exists on the failing site; the hint lookup falls
	// back to the record that exists.
	addService(state, "site-1", "serv1", "active", "standby")
	state.Site("site-2").Reachable = true

	steps, err := state.DROperationSequence("serv1", config.CmdStop, "site-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Step{{"site-2", ModeActive}, {"site-1", ModeStandby}}
	if diff := pretty.Compare(steps, want); diff != "" {
		t.Errorf("unexpected steps:\n%v", diff)
	}
}

func TestDROperationSequenceRejectsOtherProcedures(t *testing.T) {
	state := twoSiteState(t)
	addService(state, "site-1", "serv1")
	if _, err := state.DROperationSequence("serv1", config.CmdActive, "site-1"); err == nil {
		t.Error("expected an error for a non-DR procedure")
	}
}
