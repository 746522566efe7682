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

package client

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/kylelemons/godebug/pretty"

	"github.com/netcracker/drnavigator/pkg/config"
	"github.com/netcracker/drnavigator/pkg/smtest"
)

// newTestClient starts two fake Site Managers and builds a client over them.
// extraYAML appends flow/restriction configuration.
func newTestClient(t *testing.T, extraYAML string, site1, site2 map[string]*smtest.ServiceState, opts Options) (*SMClient, *smtest.Server, *smtest.Server) {
	t.Helper()

	sm1 := smtest.NewServer(site1)
	t.Cleanup(sm1.Close)
	sm2 := smtest.NewServer(site2)
	t.Cleanup(sm2.Close)

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
sites:
  - name: site-1
    site-manager: %v
  - name: site-2
    site-manager: %v
%v`, sm1.URL(), sm2.URL(), extraYAML)), true)
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	smc, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	smc.Out = io.Discard
	return smc, sm1, sm2
}

func record(module string, after ...string) map[string]interface{} {
	m := map[string]interface{}{"module": module, "timeout": 5}
	if len(after) > 0 {
		m["after"] = after
	}
	return m
}

func service(mode string, rec map[string]interface{}) *smtest.ServiceState {
	return &smtest.ServiceState{Record: rec, Mode: mode, Status: "done", Healthz: "up"}
}

// site builds one site's catalog with the given initial mode; failures maps
// service name to the target modes that fail there.
func site(mode string, records map[string]map[string]interface{}, failures map[string][]string) map[string]*smtest.ServiceState {
	out := map[string]*smtest.ServiceState{}
	for name, rec := range records {
		s := service(mode, rec)
		if modes := failures[name]; len(modes) > 0 {
			s.FailModes = map[string]bool{}
			for _, m := range modes {
				s.FailModes[m] = true
			}
		}
		out[name] = s
	}
	return out
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestMoveSwitchover(t *testing.T) {
	// S1: B depends on A; switching over to site-2 passivates site-1 first,
	// per service, in dependency order.
	records := map[string]map[string]interface{}{
		"A": record("stateful"),
		"B": record("stateful", "A"),
	}
	smc, sm1, sm2 := newTestClient(t, "",
		site("active", records, nil),
		site("standby", records, nil),
		Options{})

	if err := smc.Run(config.CmdMove, "site-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := smc.Results()
	if diff := pretty.Compare(sorted(r.Done), []string{"A", "B"}); diff != "" {
		t.Errorf("both services must be done:\n%v", diff)
	}
	if len(r.Failed)+len(r.Warned)+len(r.SkippedDeps) != 0 {
		t.Errorf("unexpected non-done results: %+v", r)
	}

	// site-1 passivates, site-2 activates; B never before A on either side.
	for _, tc := range []struct {
		server *smtest.Server
		mode   string
	}{{sm1, "standby"}, {sm2, "active"}} {
		posts := tc.server.Posts()
		if len(posts) != 2 {
			t.Fatalf("expected two %v POSTs, got %v", tc.mode, posts)
		}
		if posts[0].Service != "A" || posts[1].Service != "B" {
			t.Errorf("dependency order violated: %v", posts)
		}
		for _, p := range posts {
			if p.Procedure != tc.mode {
				t.Errorf("unexpected procedure %v, want %v", p.Procedure, tc.mode)
			}
			if p.NoWait {
				t.Errorf("switchover must not use no-wait, got %+v", p)
			}
		}
	}
}

func TestMoveCascadeSkip(t *testing.T) {
	// S2: A fails its activation; B and C are never attempted.
	records := map[string]map[string]interface{}{
		"A": record("stateful"),
		"B": record("stateful", "A"),
		"C": record("stateful", "B"),
	}
	smc, _, sm2 := newTestClient(t, "",
		site("active", records, nil),
		site("standby", records, map[string][]string{"A": {"active"}}),
		Options{})

	if err := smc.Run(config.CmdMove, "site-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := smc.Results()
	if diff := pretty.Compare(r.Failed, []string{"A"}); diff != "" {
		t.Errorf("failed wrong:\n%v", diff)
	}
	if diff := pretty.Compare(sorted(r.SkippedDeps), []string{"B", "C"}); diff != "" {
		t.Errorf("skipped wrong:\n%v", diff)
	}
	if len(r.Done)+len(r.Warned) != 0 {
		t.Errorf("unexpected done/warned: %+v", r)
	}
	if !r.HasFailed() {
		t.Error("the run must be a failure")
	}

	for _, p := range sm2.Posts() {
		if p.Service != "A" {
			t.Errorf("only A may reach site-2, got %v", sm2.Posts())
		}
	}
}

func TestStopWarnsOnFailingPassivation(t *testing.T) {
	// The failing site's passivation is tolerated: the service is warned,
	// not failed, and its dependents keep running.
	records := map[string]map[string]interface{}{
		"A": record("stateful"),
		"B": record("stateful", "A"),
	}
	smc, sm1, _ := newTestClient(t, "",
		site("active", records, map[string][]string{"A": {"standby"}}),
		site("standby", records, nil),
		Options{})

	if err := smc.Run(config.CmdStop, "site-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := smc.Results()
	if diff := pretty.Compare(r.Warned, []string{"A"}); diff != "" {
		t.Errorf("warned wrong:\n%v", diff)
	}
	if diff := pretty.Compare(r.Done, []string{"B"}); diff != "" {
		t.Errorf("dependents must keep running:\n%v", diff)
	}
	if r.HasFailed() {
		t.Errorf("a tolerated failure must not fail the run: %+v", r)
	}

	// The passivation attempt carried force.
	for _, p := range sm1.Posts() {
		if p.Procedure == "standby" && !p.Force {
			t.Errorf("failing-side passivation must be forced, got %+v", p)
		}
	}
}

func TestStopWithUnreachableFailingSite(t *testing.T) {
	// S3: the failing site is gone entirely; its steps are skipped and the
	// surviving activation alone decides the outcome.
	records := map[string]map[string]interface{}{"A": record("stateful")}
	smc, _, _ := newTestClient(t, "",
		nil,
		site("standby", records, nil),
		Options{})
	// Point site-1 at a path its Site Manager does not serve.
	smc.cfg.Sites[0].SiteManager += "/nope"
	rebuilt, err := New(smc.cfg, Options{PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	rebuilt.Out = io.Discard

	if err := rebuilt.Run(config.CmdStop, "site-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := rebuilt.Results()
	if diff := pretty.Compare(r.Done, []string{"A"}); diff != "" {
		t.Errorf("the surviving activation must be done:\n%v", diff)
	}
	if len(r.Failed)+len(r.Warned)+len(r.SkippedDeps) != 0 {
		t.Errorf("unexpected results: %+v", r)
	}
}

const moduleFlow = `
flow:
  - notstateful: [standby]
  - stateful:
  - notstateful: [active]
`

func moduleRecords() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"serv1":    record("stateful"),
		"serv2":    record("stateful", "serv1"),
		"ns-serv1": record("notstateful"),
		"ns-serv2": record("notstateful", "ns-serv1"),
	}
}

func TestMoveFlowPhases(t *testing.T) {
	tests := []struct {
		name                string
		site1Fail, site2Fail map[string][]string
		wantDone, wantFailed, wantWarned, wantSkipped []string
	}{
		{
			name:     "all healthy",
			wantDone: []string{"ns-serv1", "ns-serv2", "serv1", "serv2"},
		},
		{
			name:        "first notstateful fails its passivation phase",
			site2Fail:   map[string][]string{"ns-serv1": {"standby"}},
			wantFailed:  []string{"ns-serv1"},
			wantSkipped: []string{"ns-serv2", "serv1", "serv2"},
		},
		{
			name:        "first stateful fails on the passivating site",
			site2Fail:   map[string][]string{"serv1": {"standby"}},
			wantFailed:  []string{"serv1"},
			wantSkipped: []string{"ns-serv1", "ns-serv2", "serv2"},
		},
		{
			name:        "second stateful fails on the activating site",
			site1Fail:   map[string][]string{"serv2": {"active"}},
			wantDone:    []string{"serv1"},
			wantFailed:  []string{"serv2"},
			wantSkipped: []string{"ns-serv1", "ns-serv2"},
		},
		{
			name:        "first notstateful fails its activation phase",
			site1Fail:   map[string][]string{"ns-serv1": {"active"}},
			wantDone:    []string{"serv1", "serv2"},
			wantFailed:  []string{"ns-serv1"},
			wantSkipped: []string{"ns-serv2"},
		},
		{
			name:     "second notstateful fails its activation phase",
			site1Fail: map[string][]string{"ns-serv2": {"active"}},
			wantDone:   []string{"ns-serv1", "serv1", "serv2"},
			wantFailed: []string{"ns-serv2"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Moving towards site-1: passivation phases run on site-2.
			smc, _, _ := newTestClient(t, moduleFlow,
				site("active", moduleRecords(), test.site1Fail),
				site("standby", moduleRecords(), test.site2Fail),
				Options{})

			if err := smc.Run(config.CmdMove, "site-1"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			r := smc.Results()
			if diff := pretty.Compare(sorted(r.Done), sorted(test.wantDone)); diff != "" {
				t.Errorf("done wrong:\n%v", diff)
			}
			if diff := pretty.Compare(sorted(r.Failed), sorted(test.wantFailed)); diff != "" {
				t.Errorf("failed wrong:\n%v", diff)
			}
			if diff := pretty.Compare(sorted(r.Warned), sorted(test.wantWarned)); diff != "" {
				t.Errorf("warned wrong:\n%v", diff)
			}
			if diff := pretty.Compare(sorted(r.SkippedDeps), sorted(test.wantSkipped)); diff != "" {
				t.Errorf("skipped wrong:\n%v", diff)
			}
		})
	}
}

func TestStopFlowPhases(t *testing.T) {
	tests := []struct {
		name                string
		site1Fail, site2Fail map[string][]string
		wantDone, wantFailed, wantWarned, wantSkipped []string
	}{
		{
			name:       "second notstateful fails on the failing site",
			site2Fail:  map[string][]string{"ns-serv2": {"standby"}},
			wantDone:   []string{"ns-serv1", "serv1", "serv2"},
			wantWarned: []string{"ns-serv2"},
		},
		{
			name:       "all stateful fail on the failing site",
			site2Fail:  map[string][]string{"serv1": {"standby"}, "serv2": {"standby"}},
			wantDone:   []string{"ns-serv1", "ns-serv2"},
			wantWarned: []string{"serv1", "serv2"},
		},
		{
			name:        "stateful fails on the surviving site",
			site1Fail:   map[string][]string{"serv1": {"active"}},
			site2Fail:   map[string][]string{"ns-serv1": {"standby"}},
			wantFailed:  []string{"serv1"},
			wantSkipped: []string{"ns-serv1", "ns-serv2", "serv2"},
		},
		{
			name:       "mixed warned and failed",
			site1Fail:  map[string][]string{"ns-serv2": {"active"}},
			site2Fail:  map[string][]string{"ns-serv1": {"standby"}},
			wantDone:   []string{"serv1", "serv2"},
			wantFailed: []string{"ns-serv2"},
			wantWarned: []string{"ns-serv1"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// site-2 is failing; site-1 survives and takes the active role.
			smc, _, _ := newTestClient(t, moduleFlow,
				site("active", moduleRecords(), test.site1Fail),
				site("standby", moduleRecords(), test.site2Fail),
				Options{})

			if err := smc.Run(config.CmdStop, "site-2"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			r := smc.Results()
			if diff := pretty.Compare(sorted(r.Done), sorted(test.wantDone)); diff != "" {
				t.Errorf("done wrong:\n%v", diff)
			}
			if diff := pretty.Compare(sorted(r.Failed), sorted(test.wantFailed)); diff != "" {
				t.Errorf("failed wrong:\n%v", diff)
			}
			if diff := pretty.Compare(sorted(r.Warned), sorted(test.wantWarned)); diff != "" {
				t.Errorf("warned wrong:\n%v", diff)
			}
			if diff := pretty.Compare(sorted(r.SkippedDeps), sorted(test.wantSkipped)); diff != "" {
				t.Errorf("skipped wrong:\n%v", diff)
			}
		})
	}
}

func TestRestrictionVeto(t *testing.T) {
	// S4: activating site-2 while site-1 is active would produce the
	// forbidden active-active tuple.
	records := map[string]map[string]interface{}{"A": record("stateful")}
	smc, sm1, sm2 := newTestClient(t, `
restrictions:
  "*":
    - active-active
`,
		site("active", records, nil),
		site("standby", records, nil),
		Options{})

	err := smc.Run(config.CmdActive, "site-2")
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if len(sm1.Posts())+len(sm2.Posts()) != 0 {
		t.Errorf("a vetoed run must issue no mutating POSTs, got %v %v", sm1.Posts(), sm2.Posts())
	}
}

func TestRestrictionVetoBypass(t *testing.T) {
	records := map[string]map[string]interface{}{"A": record("stateful")}
	smc, _, _ := newTestClient(t, `
restrictions:
  "*":
    - active-active
`,
		site("active", records, nil),
		site("standby", records, nil),
		Options{IgnoreRestrictions: true})

	if err := smc.Run(config.CmdActive, "site-2"); err != nil {
		t.Fatalf("--ignore-restrictions must bypass the veto: %v", err)
	}
	if diff := pretty.Compare(smc.Results().Done, []string{"A"}); diff != "" {
		t.Errorf("done wrong:\n%v", diff)
	}
}

func TestIdempotentSiteCommand(t *testing.T) {
	// Activating an already-active site classifies everything done.
	records := map[string]map[string]interface{}{
		"A": record("stateful"),
		"B": record("stateful", "A"),
	}
	smc, sm1, _ := newTestClient(t, "",
		site("active", records, nil),
		site("standby", records, nil),
		Options{})

	if err := smc.Run(config.CmdActive, "site-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := smc.Results()
	if diff := pretty.Compare(sorted(r.Done), []string{"A", "B"}); diff != "" {
		t.Errorf("done wrong:\n%v", diff)
	}
	if len(sm1.Posts()) != 2 {
		t.Errorf("expected one confirmation POST per service, got %v", sm1.Posts())
	}
}

func TestReturnMapsToStandby(t *testing.T) {
	records := map[string]map[string]interface{}{"A": record("stateful")}
	smc, sm1, _ := newTestClient(t, "",
		site("active", records, nil),
		site("standby", records, nil),
		Options{})

	if err := smc.Run(config.CmdReturn, "site-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	posts := sm1.Posts()
	if len(posts) != 1 || posts[0].Procedure != "standby" {
		t.Errorf("return must request standby, got %v", posts)
	}
}

func TestRunServicesFilter(t *testing.T) {
	records := map[string]map[string]interface{}{
		"A": record("stateful"),
		"B": record("stateful"),
	}
	smc, sm1, _ := newTestClient(t, "",
		site("active", records, nil),
		site("standby", records, nil),
		Options{RunServices: []string{"A"}})

	if err := smc.Run(config.CmdActive, "site-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := smc.Results()
	if diff := pretty.Compare(r.Done, []string{"A"}); diff != "" {
		t.Errorf("done wrong:\n%v", diff)
	}
	if diff := pretty.Compare(r.Ignored, []string{"B"}); diff != "" {
		t.Errorf("ignored wrong:\n%v", diff)
	}
	if len(sm1.Posts()) != 1 {
		t.Errorf("only A may be posted, got %v", sm1.Posts())
	}
}

func TestDryRunIssuesNoPosts(t *testing.T) {
	records := map[string]map[string]interface{}{
		"A": record("stateful"),
		"B": record("stateful", "A"),
	}
	smc, sm1, sm2 := newTestClient(t, "",
		site("active", records, nil),
		site("standby", records, nil),
		Options{DryRun: true})

	var buf bytes.Buffer
	smc.Out = &buf
	if err := smc.Run(config.CmdMove, "site-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sm1.Posts())+len(sm2.Posts()) != 0 {
		t.Errorf("dry run must not mutate, got %v %v", sm1.Posts(), sm2.Posts())
	}
	if !strings.Contains(buf.String(), "standby@site-1 -> active@site-2") {
		t.Errorf("dry run must describe the DR steps, got:\n%v", buf.String())
	}
}

func TestListAndStatus(t *testing.T) {
	records := map[string]map[string]interface{}{
		"A": record("stateful"),
		"B": record("stateful", "A"),
	}
	smc, _, _ := newTestClient(t, "",
		site("active", records, nil),
		site("standby", records, nil),
		Options{})

	var buf bytes.Buffer
	smc.Out = &buf
	if err := smc.Run(config.CmdList, ""); err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	for _, name := range []string{"A", "B"} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("list output misses %v:\n%v", name, buf.String())
		}
	}

	buf.Reset()
	if err := smc.Run(config.CmdStatus, ""); err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"site-1", "site-2", "active", "standby", "up"} {
		if !strings.Contains(out, want) {
			t.Errorf("status table misses %q:\n%v", want, out)
		}
	}
}
