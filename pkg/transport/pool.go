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

package transport

import (
	"time"

	"github.com/pkg/errors"

	"github.com/netcracker/drnavigator/pkg/config"
)

// Pool keys one Client per configured site so callers address requests by
// site name. It is safe for concurrent use.
type Pool struct {
	endpoints map[string]string
	clients   map[string]*Client
}

// NewPool builds per-site clients out of the configuration.
func NewPool(cfg *config.Config) (*Pool, error) {
	p := &Pool{
		endpoints: map[string]string{},
		clients:   map[string]*Client{},
	}
	for _, name := range cfg.SiteNames() {
		site := cfg.Site(name)
		client, err := NewClient(Options{
			Token:       site.BearerToken(),
			UseAuth:     cfg.SMClient.HTTPAuth,
			CACert:      site.CACert,
			Insecure:    cfg.Insecure,
			GetTimeout:  time.Duration(cfg.GetRequestTimeout()) * time.Second,
			PostTimeout: time.Duration(cfg.PostRequestTimeout()) * time.Second,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't build a transport for site %v", name)
		}
		p.endpoints[name] = site.SiteManager
		p.clients[name] = client
	}
	return p, nil
}

// Request sends body to the named site's Site Manager endpoint.
func (p *Pool) Request(site string, body map[string]interface{}) (map[string]interface{}, int, error) {
	client, ok := p.clients[site]
	if !ok {
		return nil, 0, errors.Errorf("unknown site name %v", site)
	}
	return client.Request(p.endpoints[site], body)
}
