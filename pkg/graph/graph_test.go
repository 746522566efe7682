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

package graph

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestStaticOrderRespectsDependencies(t *testing.T) {
	g := New()
	g.AddDependency("b", "a")
	g.AddDependency("c", "b")
	g.AddNode("d")

	order, err := g.StaticOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Errorf("order %v violates a -> b -> c", order)
	}
	if len(order) != 4 {
		t.Errorf("expected 4 nodes in order, got %v", order)
	}
}

func TestCycleDetection(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "a")

	if _, err := g.StaticOrder(); err == nil {
		t.Error("expected a cycle error, got nil")
	}
	if err := g.Prepare(); err == nil {
		t.Error("expected Prepare to fail on a cycle")
	}
}

func TestReadyDoneWalk(t *testing.T) {
	g := New()
	g.AddDependency("b", "a")
	g.AddDependency("c", "a")
	g.AddNode("d")
	if err := g.Prepare(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ready := g.Ready()
	if diff := pretty.Compare(ready, []string{"a", "d"}); diff != "" {
		t.Fatalf("unexpected first frontier:\n%v", diff)
	}
	// The frontier is handed out exactly once.
	if next := g.Ready(); next != nil {
		t.Fatalf("expected empty frontier before Done, got %v", next)
	}

	if err := g.Done("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := pretty.Compare(g.Ready(), []string{"b", "c"}); diff != "" {
		t.Fatalf("unexpected second frontier:\n%v", diff)
	}

	for _, n := range []string{"d", "b", "c"} {
		if err := g.Done(n); err != nil {
			t.Fatalf("unexpected error finishing %v: %v", n, err)
		}
	}
	if g.IsActive() {
		t.Error("graph should be inactive after every node is done")
	}
}

func TestDoneErrors(t *testing.T) {
	g := New()
	g.AddNode("a")
	if err := g.Done("missing"); err == nil {
		t.Error("expected an error for an unknown node")
	}
	if err := g.Done("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Done("a"); err == nil {
		t.Error("expected an error for a double Done")
	}
}

func TestSuccessors(t *testing.T) {
	g := New()
	g.AddDependency("b", "a")
	g.AddDependency("c", "a")
	g.AddDependency("d", "c")

	if diff := pretty.Compare(g.Successors("a"), []string{"b", "c"}); diff != "" {
		t.Errorf("unexpected successors of a:\n%v", diff)
	}
	if got := g.Successors("b"); len(got) != 0 {
		t.Errorf("expected no successors for b, got %v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := New()
	g.AddDependency("b", "a")
	if err := g.Prepare(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := g.Clone()
	for _, n := range c.Ready() {
		if err := c.Done(n); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for _, n := range c.Ready() {
		if err := c.Done(n); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if c.IsActive() {
		t.Error("clone should be drained")
	}
	if !g.IsActive() {
		t.Error("original graph must be untouched by walking the clone")
	}
	if diff := pretty.Compare(g.Ready(), []string{"a"}); diff != "" {
		t.Errorf("original frontier damaged:\n%v", diff)
	}
}
