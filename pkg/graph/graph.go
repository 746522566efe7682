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

// Package graph implements the dependency graph the scheduler walks: a DAG
// over service names exposing the ready frontier, completion advancement and
// successor lookup for cascade skips.
package graph

import (
	"github.com/pkg/errors"
)

// ErrCycle is returned by Prepare when the dependencies are not acyclic.
var ErrCycle = errors.New("nodes are in a cycle")

// Graph is a directed acyclic graph over service names. It is not safe for
// concurrent use; the scheduler owns it from a single goroutine.
type Graph struct {
	order []string // insertion order, keeps walks deterministic
	nodes map[string]bool

	succs map[string][]string // dep -> services that must run after it
	preds map[string]int      // remaining unfinished dependencies

	handedOut map[string]bool
	finished  map[string]bool
	prepared  bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:     map[string]bool{},
		succs:     map[string][]string{},
		preds:     map[string]int{},
		handedOut: map[string]bool{},
		finished:  map[string]bool{},
	}
}

// AddNode registers a service with no dependencies (yet).
func (g *Graph) AddNode(name string) {
	if !g.nodes[name] {
		g.nodes[name] = true
		g.order = append(g.order, name)
	}
}

// AddDependency records that name runs only after dep has finished. Both
// endpoints are registered implicitly.
func (g *Graph) AddDependency(name, dep string) {
	g.AddNode(name)
	g.AddNode(dep)
	for _, s := range g.succs[dep] {
		if s == name {
			return
		}
	}
	g.succs[dep] = append(g.succs[dep], name)
	g.preds[name]++
}

// Prepare freezes the graph and verifies it is acyclic.
func (g *Graph) Prepare() error {
	if _, err := g.topoOrder(); err != nil {
		return err
	}
	g.prepared = true
	return nil
}

// StaticOrder returns one valid total order without consuming the graph.
func (g *Graph) StaticOrder() ([]string, error) {
	return g.topoOrder()
}

func (g *Graph) topoOrder() ([]string, error) {
	indegree := map[string]int{}
	for n, d := range g.preds {
		indegree[n] = d
	}
	var frontier []string
	for _, n := range g.order {
		if indegree[n] == 0 {
			frontier = append(frontier, n)
		}
	}
	var out []string
	for len(frontier) > 0 {
		n := frontier[0]
		frontier = frontier[1:]
		out = append(out, n)
		for _, s := range g.succs[n] {
			indegree[s]--
			if indegree[s] == 0 {
				frontier = append(frontier, s)
			}
		}
	}
	if len(out) != len(g.order) {
		return nil, ErrCycle
	}
	return out, nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// IsActive reports whether any node has not been marked done yet.
func (g *Graph) IsActive() bool {
	return len(g.finished) < len(g.nodes)
}

// Ready returns the nodes whose dependencies have all finished and which have
// not been handed out before. Each node is returned exactly once.
func (g *Graph) Ready() []string {
	var ready []string
	for _, n := range g.order {
		if g.preds[n] == 0 && !g.handedOut[n] && !g.finished[n] {
			g.handedOut[n] = true
			ready = append(ready, n)
		}
	}
	return ready
}

// Done marks a node finished and releases its successors.
func (g *Graph) Done(name string) error {
	if !g.nodes[name] {
		return errors.Errorf("node %v was not added to the graph", name)
	}
	if g.finished[name] {
		return errors.Errorf("node %v was already marked done", name)
	}
	g.finished[name] = true
	for _, s := range g.succs[name] {
		g.preds[s]--
	}
	return nil
}

// Successors returns the direct successors of a node.
func (g *Graph) Successors(name string) []string {
	return append([]string(nil), g.succs[name]...)
}

// Clone deep-copies the graph so a prepared graph can be walked once per flow
// phase without phases interfering.
func (g *Graph) Clone() *Graph {
	c := New()
	c.order = append([]string(nil), g.order...)
	for n := range g.nodes {
		c.nodes[n] = true
	}
	for n, s := range g.succs {
		c.succs[n] = append([]string(nil), s...)
	}
	for n, d := range g.preds {
		c.preds[n] = d
	}
	for n := range g.handedOut {
		c.handedOut[n] = true
	}
	for n := range g.finished {
		c.finished[n] = true
	}
	c.prepared = g.prepared
	return c
}
