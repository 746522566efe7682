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
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/netcracker/drnavigator/pkg/config"
)

// SiteRequester issues a request to the named site's Site Manager. Satisfied
// by transport.Pool.
type SiteRequester interface {
	Request(site string, body map[string]interface{}) (map[string]interface{}, int, error)
}

// Discover probes every covered site for its service catalog. An unreachable
// site is recorded with its return code and left without services; the
// procedure validators decide whether that is fatal.
func (s *State) Discover(req SiteRequester) {
	for _, name := range s.order {
		site := s.Sites[name]
		response, code, err := req.Request(name, nil)
		site.ReturnCode = code
		if err != nil || code != http.StatusOK {
			logrus.WithFields(logrus.Fields{"site": name, "code": code}).
				Warning("Site Manager is not available")
			site.Reachable = false
			site.Services = map[string]*ServiceRecord{}
			continue
		}
		site.Reachable = true
		site.Services = decodeServiceListing(name, response)
	}
}

// decodeServiceListing converts the raw /sitemanager response into service
// records, applying the catalog defaults.
func decodeServiceListing(site string, response map[string]interface{}) map[string]*ServiceRecord {
	services := map[string]*ServiceRecord{}

	raw, err := json.Marshal(response)
	if err != nil {
		logrus.WithField("site", site).Warningf("Couldn't re-encode service listing: %v", err)
		return services
	}
	var listing struct {
		Services map[string]*ServiceRecord `json:"services"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		logrus.WithField("site", site).Warningf("Couldn't decode service listing: %v", err)
		return services
	}

	for name, record := range listing.Services {
		if record == nil {
			record = &ServiceRecord{}
		}
		record.Name = name
		if record.Module == "" {
			record.Module = config.DefaultModule
		}
		services[name] = record
	}
	logrus.WithFields(logrus.Fields{"site": site, "services": len(services)}).Debug("Discovered service catalog")
	return services
}
