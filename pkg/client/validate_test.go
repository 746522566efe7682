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
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/netcracker/drnavigator/pkg/config"
)

// brokenSite rebuilds the given client with one site pointed at a path its
// Site Manager does not serve, making it unreachable.
func brokenSite(t *testing.T, smc *SMClient, siteIndex int) *SMClient {
	t.Helper()
	smc.cfg.Sites[siteIndex].SiteManager += "/nope"
	rebuilt, err := New(smc.cfg, Options{PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	rebuilt.Out = io.Discard
	return rebuilt
}

func TestValidateUnreachableTargetSite(t *testing.T) {
	records := map[string]map[string]interface{}{"A": record("stateful")}
	smc, _, _ := newTestClient(t, "",
		site("active", records, nil),
		site("standby", records, nil),
		Options{})
	smc = brokenSite(t, smc, 0)

	if err := smc.Run(config.CmdActive, "site-1"); !errors.Is(err, ErrNotValid) {
		t.Errorf("expected a validation error, got %v", err)
	}
	// The reachable site is still a valid target.
	if err := smc.Run(config.CmdActive, "site-2"); err != nil {
		t.Errorf("unexpected error for the reachable site: %v", err)
	}
}

func TestValidateMoveNeedsBothSites(t *testing.T) {
	records := map[string]map[string]interface{}{"A": record("stateful")}
	smc, _, _ := newTestClient(t, "",
		site("active", records, nil),
		site("standby", records, nil),
		Options{})
	smc = brokenSite(t, smc, 1)

	if err := smc.Run(config.CmdMove, "site-1"); !errors.Is(err, ErrNotValid) {
		t.Errorf("switchover must need both sites, got %v", err)
	}
}

func TestValidateMissingServiceOnTarget(t *testing.T) {
	smc, _, _ := newTestClient(t, "",
		site("active", map[string]map[string]interface{}{
			"A": record("stateful"),
			"B": record("stateful"),
		}, nil),
		site("standby", map[string]map[string]interface{}{
			"A": record("stateful"),
		}, nil),
		Options{})

	// B does not exist on site-2.
	if err := smc.Run(config.CmdActive, "site-2"); !errors.Is(err, ErrNotValid) {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestValidateDanglingDependency(t *testing.T) {
	// S5: a dependency on a nonexistent service is a warning for read-only
	// commands and failover, but fatal for switchover.
	records := map[string]map[string]interface{}{
		"X": record("stateful", "missing"),
	}
	newClient := func(t *testing.T) *SMClient {
		smc, _, _ := newTestClient(t, "",
			site("active", records, nil),
			site("standby", records, nil),
			Options{})
		return smc
	}

	if err := newClient(t).Run(config.CmdStatus, ""); err != nil {
		t.Errorf("status must tolerate a dangling dependency, got %v", err)
	}
	if err := newClient(t).Run(config.CmdStop, "site-1"); err != nil {
		t.Errorf("failover must tolerate a dangling dependency, got %v", err)
	}
	if err := newClient(t).Run(config.CmdMove, "site-2"); !errors.Is(err, ErrNotValid) {
		t.Errorf("switchover must reject a dangling dependency, got %v", err)
	}
}

func TestValidateCycle(t *testing.T) {
	// S6: a dependency cycle is a major integrity error for every command.
	records := map[string]map[string]interface{}{
		"A": record("stateful", "B"),
		"B": record("stateful", "A"),
	}
	for _, tc := range []struct {
		cmd  string
		site string
	}{
		{config.CmdStatus, ""},
		{config.CmdList, ""},
		{config.CmdActive, "site-1"},
		{config.CmdMove, "site-2"},
		{config.CmdStop, "site-1"},
	} {
		t.Run(tc.cmd, func(t *testing.T) {
			smc, sm1, sm2 := newTestClient(t, "",
				site("active", records, nil),
				site("standby", records, nil),
				Options{})
			if err := smc.Run(tc.cmd, tc.site); !errors.Is(err, ErrNotValid) {
				t.Errorf("expected an integrity error, got %v", err)
			}
			if len(sm1.Posts())+len(sm2.Posts()) != 0 {
				t.Errorf("no mutation may happen after an integrity error")
			}
		})
	}
}

func TestValidateCrossSiteConsistency(t *testing.T) {
	// The two sites disagree about A's dependencies.
	smc, _, _ := newTestClient(t, "",
		site("active", map[string]map[string]interface{}{
			"A": record("stateful", "B"),
			"B": record("stateful"),
		}, nil),
		site("standby", map[string]map[string]interface{}{
			"A": record("stateful"),
			"B": record("stateful"),
		}, nil),
		Options{})

	if err := smc.Run(config.CmdStatus, ""); err != nil {
		t.Errorf("a consistency mismatch is only a warning for status, got %v", err)
	}
	if err := smc.Run(config.CmdMove, "site-2"); !errors.Is(err, ErrNotValid) {
		t.Errorf("switchover must reject inconsistent declarations, got %v", err)
	}
}

func TestValidateSequenceConsistency(t *testing.T) {
	site1 := site("active", map[string]map[string]interface{}{"A": record("stateful")}, nil)
	site2 := site("standby", map[string]map[string]interface{}{"A": record("stateful")}, nil)
	site1["A"].Record["sequence"] = []string{"active", "standby"}
	site2["A"].Record["sequence"] = []string{"standby", "active"}

	smc, _, _ := newTestClient(t, "", site1, site2, Options{})
	if err := smc.Run(config.CmdMove, "site-2"); !errors.Is(err, ErrNotValid) {
		t.Errorf("switchover must reject diverging sequence hints, got %v", err)
	}
}
