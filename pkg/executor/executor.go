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

// Package executor drives one service on one site through an HTTP state
// transition: it posts the mode change to the Site Manager, then polls the
// service's reported status until the expected state, an error state or the
// per-service timeout is reached.
package executor

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netcracker/drnavigator/pkg/cluster"
	"github.com/netcracker/drnavigator/pkg/config"
)

const defaultPollInterval = 5 * time.Second

// Executor runs transitions against a populated cluster state.
type Executor struct {
	Requester cluster.SiteRequester
	State     *cluster.State

	// DefaultTimeout bounds polling for services without their own timeout.
	DefaultTimeout time.Duration
	// PollInterval is the delay between status fetches; zero means 5s.
	PollInterval time.Duration
}

// Process issues a single request for a service: the read-only status fetch,
// or the mode-change POST. The bool reports HTTP 200.
func (e *Executor) Process(site, service, procedure string, noWait, force bool) (map[string]interface{}, bool, int) {
	var body map[string]interface{}
	switch procedure {
	case config.CmdStatus, config.CmdList:
		if service != "site-manager" {
			body = map[string]interface{}{"procedure": config.CmdStatus, "run-service": service}
		}
	default:
		body = map[string]interface{}{
			"procedure":   config.DRMode(procedure),
			"run-service": service,
			"no-wait":     noWait,
			"force":       force,
		}
	}

	response, code, err := e.Requester.Request(site, body)
	if err != nil {
		logrus.WithFields(logrus.Fields{"site": site, "service": service}).Debugf("Request failed: %v", err)
		return nil, false, code
	}
	return response, code == http.StatusOK, code
}

// Status fetches the current DR status of a service without mutating it.
func (e *Executor) Status(site, service string) (*cluster.ServiceDRStatus, bool) {
	response, ok, _ := e.Process(site, service, config.CmdStatus, true, false)
	if !ok {
		return cluster.NewServiceDRStatus(service), false
	}
	status, err := cluster.ParseServiceDRStatus(response)
	if err != nil {
		return cluster.NewServiceDRStatus(service), false
	}
	return status, true
}

// Execute drives a full transition of one service towards mode and returns
// its terminal status. The returned status always carries the passed
// allowFailure so the scheduler can classify tolerated failures.
func (e *Executor) Execute(site, service, mode string, noWait, force, allowFailure bool) *cluster.ServiceDRStatus {
	_, ok, code := e.Process(site, service, mode, noWait, force)
	if !ok {
		logrus.WithFields(logrus.Fields{"site": site, "service": service, "code": code}).
			Warning("Mode change request was not accepted")
		status := cluster.NewServiceDRStatus(service)
		status.Status = cluster.StatusFailed
		status.AllowFailure = allowFailure
		return status
	}

	status := e.PollRequiredStatus(site, service, mode, force)
	status.AllowFailure = allowFailure
	return status
}

// PollRequiredStatus polls the service's status until the desired mode is
// reached, an error state appears, or the timeout expires. Force mode makes
// a bad health report acceptable, a failed transition never is.
func (e *Executor) PollRequiredStatus(site, service, mode string, force bool) *cluster.ServiceDRStatus {
	allowedStandby := []string{cluster.HealthzUp}
	if record := e.State.Service(site, service); record != nil {
		allowedStandby = record.AllowedStandby()
	}

	expectedHealthz := []string{cluster.HealthzUp}
	if mode == cluster.ModeStandby {
		expectedHealthz = allowedStandby
	}

	status := e.poll(site, service, mode, expectedHealthz)
	status.Evaluate(mode, allowedStandby, force)
	if force {
		logrus.WithFields(logrus.Fields{"site": site, "service": service}).
			Warning("Force mode enabled, service healthz ignored")
	}
	return status
}

func (e *Executor) poll(site, service, mode string, expectedHealthz []string) *cluster.ServiceDRStatus {
	interval := e.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}
	timeout := e.timeoutFor(site, service)
	deadline := time.Now().Add(timeout)

	log := logrus.WithFields(logrus.Fields{"site": site, "service": service})
	for count := 1; !time.Now().After(deadline); count++ {
		log.Infof("Polling for mode %v, iteration %d, %v left until timeout",
			mode, count, time.Until(deadline).Round(time.Second))

		response, ok, _ := e.Process(site, service, config.CmdStatus, true, false)
		if ok {
			status, err := cluster.ParseServiceDRStatus(response)
			if err == nil && status.Service == service {
				switch {
				case status.Status == cluster.StatusDone && status.Mode == mode && contains(expectedHealthz, status.Healthz):
					log.Info("Expected state occurred")
					return status
				case status.Status == cluster.StatusDone &&
					(status.Healthz == cluster.HealthzDown || status.Healthz == cluster.HealthzDegraded):
					log.Info("Error state occurred")
					return status
				case status.Status == cluster.StatusFailed:
					log.Info("Error state occurred")
					return status
				}
			}
		}
		time.Sleep(interval)
	}

	log.Info("Timeout expired")
	// A synthesized unknown health makes the acceptance check fail.
	return cluster.NewServiceDRStatus(service)
}

func (e *Executor) timeoutFor(site, service string) time.Duration {
	if record := e.State.Service(site, service); record != nil && record.Timeout > 0 {
		return time.Duration(record.Timeout) * time.Second
	}
	if e.DefaultTimeout > 0 {
		return e.DefaultTimeout
	}
	return time.Duration(e.State.Config().ServiceDefaultTimeout()) * time.Second
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
