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
	"github.com/pkg/errors"
)

// DR modes a service can be driven into. None is the placeholder for an
// unknown or unreported value.
const (
	ModeActive  = "active"
	ModeStandby = "standby"
	ModeDisable = "disable"
	ModeNone    = "--"
)

// Transition statuses reported by a service.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusQueue   = "queue"
	StatusNone    = "--"
)

// Health states reported by a service's healthz probe.
const (
	HealthzUp       = "up"
	HealthzDown     = "down"
	HealthzDegraded = "degraded"
	HealthzNone     = "--"
)

// ServiceDRStatus is the outcome of a status query or a transition attempt
// for one service. ServiceStatus is the mode-aware success verdict;
// AllowFailure marks a step whose failure is tolerated (failover's
// passivation of the failing site).
type ServiceDRStatus struct {
	Service string
	Mode    string
	Status  string
	Healthz string
	Message string
	NoWait  bool

	ServiceStatus bool
	AllowFailure  bool
}

// NewServiceDRStatus returns an empty (all fields unknown) status for a
// service. An empty status never counts as successful.
func NewServiceDRStatus(service string) *ServiceDRStatus {
	return &ServiceDRStatus{
		Service: service,
		Mode:    ModeNone,
		Status:  StatusNone,
		Healthz: HealthzNone,
	}
}

// ParseServiceDRStatus builds a status from a Site Manager response of the
// form {"services": {name: {...}}}; error responses carrying "wrong-service"
// resolve to an empty status for that name. Unknown field values degrade to
// the "--" placeholder rather than failing.
func ParseServiceDRStatus(data map[string]interface{}) (*ServiceDRStatus, error) {
	var name string
	var fields map[string]interface{}

	if services, ok := data["services"].(map[string]interface{}); ok && len(services) > 0 {
		for n, f := range services {
			name = n
			fields, _ = f.(map[string]interface{})
			break
		}
	} else if wrong, ok := data["wrong-service"].(string); ok && wrong != "" {
		name = wrong
	} else {
		return nil, errors.New("missing service name in response")
	}

	status := NewServiceDRStatus(name)
	if fields == nil {
		return status, nil
	}
	if v, ok := fields["mode"].(string); ok && isOneOf(v, ModeActive, ModeStandby, ModeDisable) {
		status.Mode = v
	}
	if v, ok := fields["status"].(string); ok && isOneOf(v, StatusRunning, StatusDone, StatusFailed, StatusQueue) {
		status.Status = v
	}
	if v, ok := fields["healthz"].(string); ok && isOneOf(v, HealthzUp, HealthzDown, HealthzDegraded) {
		status.Healthz = v
	}
	if v, ok := fields["message"].(string); ok {
		status.Message = v
	}
	if v, ok := fields["nowait"].(bool); ok {
		status.NoWait = v
	}
	return status, nil
}

// Evaluate derives ServiceStatus for a transition towards mode. The failed
// health set is {down, degraded, --} minus the allowed standby states when
// passivating; force tolerates a bad health report but never a failed status.
func (s *ServiceDRStatus) Evaluate(mode string, allowedStandby []string, force bool) {
	failedHealthz := map[string]bool{HealthzDown: true, HealthzDegraded: true, HealthzNone: true}
	if mode == ModeStandby {
		for _, h := range allowedStandby {
			delete(failedHealthz, h)
		}
	}
	s.ServiceStatus = s.Status != StatusFailed && (!failedHealthz[s.Healthz] || force)
}

// IsOK reports whether dependents may still run; false aborts them. A
// tolerated failure is not OK for classification but does not cascade.
func (s *ServiceDRStatus) IsOK() bool {
	return s.ServiceStatus || s.AllowFailure
}

func isOneOf(v string, set ...string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
