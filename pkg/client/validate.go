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
	"reflect"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/netcracker/drnavigator/pkg/cluster"
	"github.com/netcracker/drnavigator/pkg/config"
	"github.com/netcracker/drnavigator/pkg/transport"
)

// ErrNotValid marks a command that can not be processed on the current
// cluster state. No executor call is made after it.
var ErrNotValid = errors.New("it is not possible to process the command on the current cluster state")

// Validate enforces the command-specific preconditions for every module of
// the flow before any transition is attempted.
func (c *SMClient) Validate(cmd, site string) error {
	for _, module := range c.cfg.Modules() {
		ordered := c.orderedForValidation(module)
		if err := c.validateModule(cmd, site, module, ordered); err != nil {
			return err
		}
	}
	return nil
}

func (c *SMClient) validateModule(cmd, site, module string, ordered []string) error {
	switch cmd {
	case config.CmdStatus, config.CmdList:
		if err := c.checkAnySiteAvailable(); err != nil {
			return err
		}
	case config.CmdActive, config.CmdStandby, config.CmdDisable, config.CmdReturn:
		if !c.checkSiteAvailable(site) {
			return ErrNotValid
		}
		if !c.checkServicesOnSite(ordered, site) {
			return ErrNotValid
		}
	case config.CmdMove:
		available := true
		for _, name := range c.state.SiteNames() {
			available = c.checkSiteAvailable(name) && available
		}
		if !available {
			return ErrNotValid
		}
		for _, name := range c.state.SiteNames() {
			if !c.checkServicesOnSite(ordered, name) {
				return ErrNotValid
			}
		}
	case config.CmdStop:
		if !c.checkSiteAvailable(c.cfg.OppositeSite(site)) {
			return ErrNotValid
		}
		// The failing site may legitimately not know every service anymore.
		c.checkServicesOnSite(ordered, c.cfg.OppositeSite(site))
	default:
		return errors.Errorf("unknown command %v", cmd)
	}

	if err := c.checkDepIssue(cmd, module); err != nil {
		return err
	}
	if err := c.checkConsistency(cmd, ordered); err != nil {
		return err
	}
	if cmd == config.CmdActive || cmd == config.CmdStandby || cmd == config.CmdDisable || cmd == config.CmdReturn {
		if !c.checkStateRestrictions(ordered, site, cmd) {
			return ErrNotValid
		}
	}
	return nil
}

// checkSiteAvailable verifies reachability and hints at -k when the failure
// was an untrusted certificate.
func (c *SMClient) checkSiteAvailable(site string) bool {
	st := c.state.Site(site)
	if st == nil {
		logrus.Errorf("Unknown site name %v", site)
		return false
	}
	if st.Reachable {
		return true
	}
	logrus.Errorf("Site: %v is not available", site)
	if st.ReturnCode == transport.SSLErrorSSL {
		logrus.Errorf("SSL certificate verify failed for site: %v. Please use key -k or --insecure", site)
	}
	return false
}

func (c *SMClient) checkAnySiteAvailable() error {
	for _, name := range c.state.SiteNames() {
		if c.state.Site(name).Reachable {
			return nil
		}
	}
	for _, name := range c.state.SiteNames() {
		c.checkSiteAvailable(name)
	}
	return ErrNotValid
}

func (c *SMClient) checkServicesOnSite(services []string, site string) bool {
	st := c.state.Site(site)
	if st == nil {
		return false
	}
	ok := true
	for _, service := range services {
		if _, exists := st.Services[service]; !exists {
			logrus.Warningf("Service '%v' does not exist on '%v' site", service, site)
			ok = false
		}
	}
	return ok
}

// checkDepIssue fails on a broken module graph. A dangling dependency is a
// warning for everything but switchover, which needs both sites to agree.
func (c *SMClient) checkDepIssue(cmd, module string) error {
	plan := c.state.Globals[module]
	if plan == nil {
		return errors.Errorf("module %v was never planned", module)
	}
	if plan.Graph == nil {
		logrus.Errorf("Module: %v has integrity issues", module)
		return ErrNotValid
	}
	if plan.DepsIssue {
		logrus.Warningf("Module: %v, found dependency issue", module)
		if cmd == config.CmdMove {
			return ErrNotValid
		}
		logrus.Warningf("Ignoring dependency issues for %v command", cmd)
	}
	return nil
}

// checkConsistency compares the before/after/sequence declarations of every
// service across the sites where it exists. Switchover requires agreement;
// everything else only warns.
func (c *SMClient) checkConsistency(cmd string, services []string) error {
	ok := true
	for _, service := range services {
		var reference *cluster.ServiceRecord
		for _, name := range c.state.AvailableSites() {
			record := c.state.Service(name, service)
			if record == nil {
				continue
			}
			if reference == nil {
				reference = record
				continue
			}
			if !sameStringSet(reference.After, record.After) ||
				!sameStringSet(reference.Before, record.Before) ||
				!reflect.DeepEqual(emptyAsNil(reference.Sequence), emptyAsNil(record.Sequence)) {
				logrus.Warningf("Service '%v' is declared differently across sites (before/after/sequence)", service)
				ok = false
			}
		}
	}
	if !ok && cmd == config.CmdMove {
		return ErrNotValid
	}
	return nil
}

// checkStateRestrictions predicts each restricted service's final per-site
// mode tuple and vetoes the run when it is forbidden.
func (c *SMClient) checkStateRestrictions(services []string, site, cmd string) bool {
	toPredict := c.cfg.RestrictedServices(services)
	if len(toPredict) == 0 {
		return true
	}
	logrus.Debugf("Services to predict: %v", toPredict)

	opposite := c.cfg.OppositeSite(site)
	valid := true
	for _, service := range toPredict {
		restricted := c.cfg.RestrictionTuples(service)
		if len(restricted) == 0 {
			continue
		}

		status, ok := c.exec.Status(opposite, service)
		if !ok {
			logrus.Errorf("Can't get service %v on site %v", service, opposite)
			valid = false
			continue
		}
		if status.Mode == cluster.ModeNone {
			logrus.Errorf("Can't recognize current mode for service %v on site %v", service, opposite)
			valid = false
			continue
		}

		predicted := map[string]string{site: config.DRMode(cmd), opposite: status.Mode}
		logrus.Debugf("Predicted state for service %v: %v", service, predicted)
		for _, tuple := range restricted {
			if reflect.DeepEqual(tuple, predicted) {
				logrus.Errorf("Final state %v for service %v is restricted", predicted, service)
				valid = false
			}
		}
	}
	if !valid {
		logrus.Error("State restrictions validation failed. To skip it use the --ignore-restrictions option")
	}
	return valid
}

func sameStringSet(a, b []string) bool {
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	return reflect.DeepEqual(emptyAsNil(as), emptyAsNil(bs))
}

func emptyAsNil(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
