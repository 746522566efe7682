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
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/netcracker/drnavigator/pkg/cluster"
	"github.com/netcracker/drnavigator/pkg/config"
	"github.com/netcracker/drnavigator/pkg/scheduler"
)

// Run executes one user command end to end: discovery, planning, validation
// and the module flow. The returned error covers configuration and
// validation failures; execution failures land in the result buckets.
func (c *SMClient) Run(cmd, site string) error {
	if err := c.Prepare(); err != nil {
		return err
	}
	if err := c.Validate(cmd, site); err != nil {
		return err
	}

	if c.opts.DryRun && !config.IsReadOnly(cmd) {
		return c.printPlan(cmd, site)
	}

	switch cmd {
	case config.CmdList:
		return c.printList()
	case config.CmdStatus:
		return c.runStatus()
	case config.CmdActive, config.CmdStandby, config.CmdDisable, config.CmdReturn, config.CmdMove, config.CmdStop:
		c.runFlow(cmd, site)
		return c.printResults()
	}
	return errors.Errorf("unknown command %v", cmd)
}

// runFlow walks the configured module flow. A module leaving failed services
// behind stops real work: every service of the remaining entries is
// classified as skipped because its flow never completed.
func (c *SMClient) runFlow(cmd, site string) {
	for _, entry := range c.cfg.Flow {
		if skip, stop := skipFlowEntry(cmd, entry); stop {
			break
		} else if skip {
			continue
		}

		plan := c.state.Globals[entry.Module]
		if plan == nil || plan.Graph == nil {
			continue
		}

		if c.results.HasFailed() {
			logrus.Warningf("Skipping module %v: a previous flow step failed", entry.Module)
			for _, service := range plan.Ordered {
				c.results.MarkSkipped(service)
			}
			continue
		}

		phaseCmd, phaseSite := phaseTarget(c.cfg, cmd, site, entry)
		logrus.Infof("Processing %v module by cmd: %v on site: %v", entry.Module, phaseCmd, phaseSite)
		scheduler.Run(plan.Graph, c.results, c.processFunc(cmd, phaseCmd, phaseSite))
	}
}

// skipFlowEntry applies the state-phase restrictions of a site command to a
// flow entry: activation ignores passivation-only entries, passivation stops
// at the first activation-only entry.
func skipFlowEntry(cmd string, entry config.FlowEntry) (skip, stop bool) {
	if len(entry.States) == 0 || cmd == config.CmdMove || cmd == config.CmdStop {
		return false, false
	}
	hasActive := false
	for _, s := range entry.States {
		if s == cluster.ModeActive {
			hasActive = true
		}
	}
	switch cmd {
	case config.CmdActive:
		return !hasActive, false
	case config.CmdStandby, config.CmdDisable, config.CmdReturn:
		if len(entry.States) == 1 && hasActive {
			return false, true
		}
	}
	return false, false
}

// phaseTarget derives the command and site one flow entry runs with. During
// switchover the passivation phases run on the opposite (previously active)
// site; during failover the activation phases run on the surviving side.
func phaseTarget(cfg *config.Config, cmd, site string, entry config.FlowEntry) (string, string) {
	phaseCmd := cmd
	if len(entry.States) > 0 {
		if cmd == config.CmdMove || cmd == config.CmdStop {
			phaseCmd = entry.States[0]
		} else {
			phaseCmd = config.DRMode(cmd)
		}
	} else if config.IsSiteCommand(cmd) {
		phaseCmd = config.DRMode(cmd)
	}

	phaseSite := site
	if len(entry.States) > 0 &&
		((phaseCmd == cluster.ModeActive && cmd == config.CmdStop) ||
			(phaseCmd != cluster.ModeActive && cmd == config.CmdMove)) {
		phaseSite = cfg.OppositeSite(site)
	}
	return phaseCmd, phaseSite
}

// processFunc builds the per-service worker for one flow phase.
func (c *SMClient) processFunc(cmd, phaseCmd, phaseSite string) scheduler.ProcessFunc {
	return func(service string, completions chan<- *cluster.ServiceDRStatus) {
		logrus.Infof("Processing %v in worker start", service)
		var status *cluster.ServiceDRStatus
		if phaseCmd == config.CmdMove || phaseCmd == config.CmdStop {
			status = c.runDRSequence(phaseCmd, phaseSite, service)
		} else {
			force, allowFailure := c.opts.Force, false
			if cmd == config.CmdStop && config.DRMode(phaseCmd) == cluster.ModeStandby {
				force, allowFailure = true, true
			}
			status = c.exec.Execute(phaseSite, service, config.DRMode(phaseCmd), true, force, allowFailure)
		}
		completions <- status
		logrus.Infof("Processing %v in worker finished", service)
	}
}

// runDRSequence drives the two-step, two-site transition of one service for
// switchover or failover. The passivation of a failing site is tolerated:
// its failure classifies the service as warned instead of aborting
// dependents. An intolerable step failure always wins over a tolerated one.
func (c *SMClient) runDRSequence(procedure, site, service string) *cluster.ServiceDRStatus {
	final := cluster.NewServiceDRStatus(service)

	steps, err := c.state.DROperationSequence(service, procedure, site)
	if err != nil {
		logrus.Errorf("Service %v: %v", service, err)
		return final
	}

	var warned, failed *cluster.ServiceDRStatus
	for _, step := range steps {
		force, allowFailure := c.opts.Force, false
		if procedure == config.CmdStop && step.Mode == cluster.ModeStandby {
			force, allowFailure = true, true
			logrus.Infof("Force key enabled for procedure 'stop' for service %v on passivated site", service)
		}

		if c.state.Service(step.Site, service) == nil {
			logrus.Warningf("Service %v doesn't exist on site %v, skip it", service, step.Site)
			continue
		}
		if !c.state.Site(step.Site).Reachable {
			continue
		}

		noWait := procedure != config.CmdMove
		status := c.exec.Execute(step.Site, service, step.Mode, noWait, force, allowFailure)
		final = status
		if !status.ServiceStatus {
			if status.AllowFailure {
				warned = status
			} else {
				failed = status
			}
		}
		if procedure == config.CmdMove && !status.IsOK() {
			logrus.Infof("Service %v failed on %v, skipping it on another site", service, step.Site)
			break
		}
	}

	if failed != nil {
		return failed
	}
	if warned != nil {
		return warned
	}
	return final
}

// runStatus fetches every planned service's status on every reachable site
// concurrently and renders the cross-site table.
func (c *SMClient) runStatus() error {
	table := newStatusTable(c.state.AvailableSites())
	var mu sync.Mutex
	var group errgroup.Group

	for _, module := range c.cfg.Modules() {
		module := module
		for _, service := range c.state.Globals[module].Ordered {
			service := service
			for _, site := range c.state.AvailableSites() {
				site := site
				if c.state.Service(site, service) == nil {
					continue
				}
				group.Go(func() error {
					status, _ := c.exec.Status(site, service)
					mu.Lock()
					table.add(module, site, status)
					mu.Unlock()
					return nil
				})
			}
		}
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return table.render(c.Out)
}
