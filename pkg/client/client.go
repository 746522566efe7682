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

// Package client composes the DR orchestration engine into the user-facing
// procedures: it discovers both sites, plans the per-module execution order,
// validates the requested command against the cluster state and drives the
// dependency scheduler.
package client

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/netcracker/drnavigator/pkg/cluster"
	"github.com/netcracker/drnavigator/pkg/config"
	"github.com/netcracker/drnavigator/pkg/executor"
	"github.com/netcracker/drnavigator/pkg/planner"
	"github.com/netcracker/drnavigator/pkg/scheduler"
	"github.com/netcracker/drnavigator/pkg/transport"
)

// Options are the per-invocation switches a user can pass to any procedure.
type Options struct {
	RunServices  []string
	SkipServices []string

	Force              bool
	IgnoreRestrictions bool
	DryRun             bool

	// PollInterval overrides the executor's status poll delay; zero keeps
	// the default. Not exposed on the CLI, tests tighten it.
	PollInterval time.Duration
}

// SMClient plans and executes DR procedures against both Site Managers.
type SMClient struct {
	cfg   *config.Config
	opts  Options
	state *cluster.State
	exec  *executor.Executor

	results *scheduler.Results

	// Out receives the user-facing tables and summaries.
	Out io.Writer
}

// New wires a client out of the configuration: a per-site transport pool, an
// empty cluster state and the service executor on top of them.
func New(cfg *config.Config, opts Options) (*SMClient, error) {
	pool, err := transport.NewPool(cfg)
	if err != nil {
		return nil, err
	}
	state, err := cluster.NewState(cfg, "")
	if err != nil {
		return nil, err
	}
	if opts.IgnoreRestrictions {
		cfg.Restrictions = nil
	}
	return &SMClient{
		cfg:   cfg,
		opts:  opts,
		state: state,
		exec: &executor.Executor{
			Requester:      pool,
			State:          state,
			DefaultTimeout: time.Duration(cfg.ServiceDefaultTimeout()) * time.Second,
			PollInterval:   opts.PollInterval,
		},
		results: &scheduler.Results{},
		Out:     os.Stdout,
	}, nil
}

// State exposes the discovered cluster state (read-only use).
func (c *SMClient) State() *cluster.State { return c.state }

// Results exposes the outcome buckets of the last run.
func (c *SMClient) Results() *scheduler.Results { return c.results }

// Prepare discovers both sites and plans every module of the flow. Planning
// failures are recorded in the per-module globals; the validators decide
// whether they are fatal for the requested command.
func (c *SMClient) Prepare() error {
	logrus.WithField("run-id", c.cfg.RunID).Info("Discovering managed services")
	c.state.Discover(c.exec.Requester)

	if len(c.state.AvailableSites()) == 0 {
		return errors.New("no Site Manager is available, can not plan any procedure")
	}

	var processed []string
	for _, module := range c.cfg.Modules() {
		ordered, minorOK, g := planner.MakeOrderedServices(c.state, module, "", c.opts.RunServices, c.opts.SkipServices)
		c.state.Globals[module] = &cluster.ModulePlan{
			Ordered:   ordered,
			Graph:     g,
			DepsIssue: !minorOK,
		}
		processed = append(processed, ordered...)
		logrus.WithFields(logrus.Fields{"module": module, "order": ordered}).Debug("Planned module")
	}

	c.results.Ignored = c.state.MakeIgnoredServices(processed, nil)
	return nil
}

// orderedForValidation returns the services validation should consider for a
// module: the explicit --run-services selection filtered down to the module,
// or the planner's order.
func (c *SMClient) orderedForValidation(module string) []string {
	if len(c.opts.RunServices) == 0 {
		return c.state.Globals[module].Ordered
	}
	available := c.state.AvailableSites()
	if len(available) == 0 {
		return nil
	}
	var out []string
	for _, service := range c.opts.RunServices {
		record := c.state.Service(available[0], service)
		serviceModule := config.DefaultModule
		if record != nil {
			serviceModule = record.Module
		}
		if serviceModule == module {
			out = append(out, service)
		}
	}
	return out
}
