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
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/netcracker/drnavigator/pkg/cluster"
	"github.com/netcracker/drnavigator/pkg/config"
)

const tablePadding = 3

// statusTable accumulates per-(site, service) statuses for the status
// command.
type statusTable struct {
	sites []string

	order []tableKey
	cells map[tableKey]*cluster.ServiceDRStatus
}

type tableKey struct {
	module  string
	service string
	site    string
}

func newStatusTable(sites []string) *statusTable {
	return &statusTable{
		sites: sites,
		cells: map[tableKey]*cluster.ServiceDRStatus{},
	}
}

func (t *statusTable) add(module, site string, status *cluster.ServiceDRStatus) {
	key := tableKey{module: module, service: status.Service, site: site}
	if _, seen := t.cells[key]; !seen {
		t.order = append(t.order, key)
	}
	t.cells[key] = status
}

func (t *statusTable) render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 1, 8, tablePadding, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tSERVICE\tSITE\tMODE\tSTATUS\tHEALTHZ\tMESSAGE")
	for _, key := range t.order {
		status := t.cells[key]
		fmt.Fprintf(tw, "%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
			key.module, key.service, key.site, status.Mode, status.Status, status.Healthz, status.Message)
	}
	return tw.Flush()
}

// printList writes the merged service names across reachable sites.
func (c *SMClient) printList() error {
	for _, service := range c.state.ServicesForOKSites() {
		fmt.Fprintln(c.Out, service)
	}
	return nil
}

// printResults writes the outcome buckets of a finished procedure plus the
// summary counts.
func (c *SMClient) printResults() error {
	tw := tabwriter.NewWriter(c.Out, 1, 8, tablePadding, ' ', 0)
	fmt.Fprintln(tw, "RESULT\tSERVICES")
	for _, bucket := range []struct {
		name     string
		services []string
	}{
		{"done", c.results.Done},
		{"failed", c.results.Failed},
		{"warned", c.results.Warned},
		{"skipped due to deps", c.results.SkippedDeps},
		{"ignored", c.results.Ignored},
	} {
		services := "-"
		if len(bucket.services) > 0 {
			services = strings.Join(bucket.services, ", ")
		}
		fmt.Fprintf(tw, "%v\t%v\n", bucket.name, services)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(c.Out, c.results.Summary())
	return nil
}

// printPlan writes what a procedure would do without doing it (--dry-run).
func (c *SMClient) printPlan(cmd, site string) error {
	fmt.Fprintf(c.Out, "Dry run for %v", cmd)
	if site != "" {
		fmt.Fprintf(c.Out, " on site %v", site)
	}
	fmt.Fprintln(c.Out)

	tw := tabwriter.NewWriter(c.Out, 1, 8, tablePadding, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tSERVICE\tSTEPS")
	for _, entry := range c.cfg.Flow {
		if skip, stop := skipFlowEntry(cmd, entry); stop {
			break
		} else if skip {
			continue
		}
		plan := c.state.Globals[entry.Module]
		if plan == nil {
			continue
		}
		phaseCmd, phaseSite := phaseTarget(c.cfg, cmd, site, entry)
		for _, service := range plan.Ordered {
			fmt.Fprintf(tw, "%v\t%v\t%v\n", entry.Module, service, c.describeSteps(phaseCmd, phaseSite, service))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(c.results.Ignored) > 0 {
		fmt.Fprintf(c.Out, "Ignored services: %v\n", strings.Join(c.results.Ignored, ", "))
	}
	return nil
}

func (c *SMClient) describeSteps(phaseCmd, phaseSite, service string) string {
	if phaseCmd == config.CmdMove || phaseCmd == config.CmdStop {
		steps, err := c.state.DROperationSequence(service, phaseCmd, phaseSite)
		if err != nil {
			return err.Error()
		}
		parts := make([]string, len(steps))
		for i, step := range steps {
			parts[i] = fmt.Sprintf("%v@%v", step.Mode, step.Site)
		}
		return strings.Join(parts, " -> ")
	}
	return fmt.Sprintf("%v@%v", config.DRMode(phaseCmd), phaseSite)
}
