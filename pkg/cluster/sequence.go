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

	"github.com/netcracker/drnavigator/pkg/config"
)

// Step is one site-level transition of a DR procedure.
type Step struct {
	Site string
	Mode string
}

// DROperationSequence derives the ordered (site, mode) steps for one service
// under a DR procedure. For switchover (move) the requested site is the
// target; for failover (stop) the requested site is the failing one. The
// service's sequence hint on the consulted site decides which mode runs
// first; an empty hint defaults to standby-first.
func (s *State) DROperationSequence(service, procedure, site string) ([]Step, error) {
	opposite := s.cfg.OppositeSite(site)

	switch procedure {
	case config.CmdMove:
		mode := s.sequenceHint(service, site, opposite)
		if mode == ModeStandby {
			return []Step{{opposite, ModeStandby}, {site, ModeActive}}, nil
		}
		return []Step{{site, ModeActive}, {opposite, ModeStandby}}, nil
	case config.CmdStop:
		// The failing site may not know the service anymore; consult the
		// surviving side first.
		mode := s.sequenceHint(service, opposite, site)
		if mode == ModeStandby {
			return []Step{{site, ModeStandby}, {opposite, ModeActive}}, nil
		}
		return []Step{{opposite, ModeActive}, {site, ModeStandby}}, nil
	}
	return nil, errors.Errorf("wrong command %v for DR operation sequence", procedure)
}

// sequenceHint reads sequence[0] from the service's record on the preferred
// site, falling back to the other site when the service only exists there.
func (s *State) sequenceHint(service, preferred, fallback string) string {
	record := s.Service(preferred, service)
	if record == nil {
		record = s.Service(fallback, service)
	}
	if record != nil && len(record.Sequence) > 0 {
		return record.Sequence[0]
	}
	return ModeStandby
}
