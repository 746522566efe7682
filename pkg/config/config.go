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

// Package config loads and validates the smclient configuration file: the two
// managed sites, the sm-client tunables, the module flow and the final-state
// restrictions.
package config

import (
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Commands accepted by the client. Switchover and failover are DR procedures
// spanning both sites; the rest target a single site or are read-only.
const (
	CmdActive  = "active"
	CmdStandby = "standby"
	CmdDisable = "disable"
	CmdReturn  = "return"
	CmdMove    = "move" // switchover
	CmdStop    = "stop" // failover
	CmdStatus  = "status"
	CmdList    = "list"
)

// DefaultModule is assigned to services that declare no module.
const DefaultModule = "stateful"

const defaultServiceTimeout = 200 // seconds

// IsSiteCommand reports whether cmd runs against a single site.
func IsSiteCommand(cmd string) bool {
	switch cmd {
	case CmdActive, CmdStandby, CmdDisable, CmdReturn:
		return true
	}
	return false
}

// IsDRProcedure reports whether cmd is a cross-site DR procedure.
func IsDRProcedure(cmd string) bool {
	switch cmd {
	case CmdMove, CmdStop:
		return true
	}
	return false
}

// IsReadOnly reports whether cmd issues no mutating requests.
func IsReadOnly(cmd string) bool {
	return cmd == CmdStatus || cmd == CmdList
}

// DRMode converts a site command into the DR mode to request from services.
func DRMode(cmd string) string {
	if cmd == CmdReturn {
		return CmdStandby
	}
	return cmd
}

// Token is either a literal bearer token or an environment indirection
// ({from_env: VAR}) resolved at load time.
type Token struct {
	Literal string
	FromEnv string
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (t *Token) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&t.Literal)
	case yaml.MappingNode:
		var aux struct {
			FromEnv string `yaml:"from_env"`
		}
		if err := value.Decode(&aux); err != nil {
			return err
		}
		if aux.FromEnv == "" {
			return errors.New("wrong token configuration: use a string value or specify the from_env parameter")
		}
		t.FromEnv = aux.FromEnv
		return nil
	}
	return errors.New("wrong token configuration: unsupported YAML node")
}

// Site is one of the exactly two Site Manager endpoints.
type Site struct {
	Name        string `yaml:"name"`
	SiteManager string `yaml:"site-manager"`
	Token       Token  `yaml:"token"`
	CACert      string `yaml:"cacert"`

	// resolvedToken is the literal token after from_env resolution.
	resolvedToken string
}

// BearerToken returns the resolved token for the site.
func (s *Site) BearerToken() string { return s.resolvedToken }

// FlowEntry restricts which state phases run for a module during a procedure.
// In YAML a flow is a list of single-key mappings: `- stateful:` or
// `- notstateful: [standby]`.
type FlowEntry struct {
	Module string
	States []string
}

func (f *FlowEntry) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string][]string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return errors.New("each flow entry must name exactly one module")
	}
	for module, states := range raw {
		f.Module = module
		f.States = states
	}
	return nil
}

// Tunables are the optional sm-client settings. Pointers distinguish absent
// values so environment overrides only apply when the file is silent.
type Tunables struct {
	HTTPAuth              bool `yaml:"http_auth"`
	ServiceDefaultTimeout *int `yaml:"service_default_timeout"`
	GetRequestTimeout     *int `yaml:"get_request_timeout"`
	PostRequestTimeout    *int `yaml:"post_request_timeout"`
}

// Config is the parsed configuration file plus run-scoped identity.
type Config struct {
	Sites        []Site              `yaml:"sites"`
	SMClient     Tunables            `yaml:"sm-client"`
	Flow         []FlowEntry         `yaml:"flow"`
	Restrictions map[string][]string `yaml:"restrictions"`

	// RunID uniquely identifies this invocation in logs.
	RunID string `yaml:"-"`

	// Insecure disables server certificate verification for every site.
	Insecure bool `yaml:"-"`
}

// Load reads, resolves and validates the configuration file.
func Load(path string, insecure bool) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read configuration file %v", path)
	}
	return Parse(raw, insecure)
}

// Parse resolves and validates an already-read configuration document.
func Parse(raw []byte, insecure bool) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "can not parse configuration file")
	}
	cfg.RunID = uuid.New().String()
	cfg.Insecure = insecure
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve applies defaults, environment overrides and the validation rules.
func (c *Config) resolve() error {
	if len(c.Sites) != 2 {
		return errors.Errorf("only two sites in clusters are supported, got %d", len(c.Sites))
	}
	seen := map[string]bool{}
	for i := range c.Sites {
		site := &c.Sites[i]
		if site.Name == "" {
			return errors.New("check configuration file: every site needs a name")
		}
		if seen[site.Name] {
			return errors.Errorf("check configuration file: duplicate site %v", site.Name)
		}
		seen[site.Name] = true
		if site.SiteManager == "" {
			return errors.Errorf("check configuration file: site %v does not have the site-manager parameter", site.Name)
		}
		if site.Token.FromEnv != "" {
			token, ok := os.LookupEnv(site.Token.FromEnv)
			if !ok {
				return errors.Errorf("wrong token configuration for site %v: specified env %v doesn't exist",
					site.Name, site.Token.FromEnv)
			}
			site.resolvedToken = token
		} else {
			site.resolvedToken = site.Token.Literal
		}
		if site.CACert != "" && !c.Insecure {
			if _, err := os.Stat(site.CACert); err != nil {
				return errors.Errorf("you should define a correct path to the CA certificate for site %v", site.Name)
			}
		}
	}

	if len(c.Flow) == 0 {
		c.Flow = []FlowEntry{{Module: DefaultModule}}
	}

	env := viper.New()
	env.SetEnvPrefix("SM")
	for _, key := range []string{"get_request_timeout", "post_request_timeout"} {
		if err := env.BindEnv(key); err != nil {
			return errors.Wrap(err, "couldn't bind environment overrides")
		}
	}
	if c.SMClient.GetRequestTimeout == nil && env.IsSet("get_request_timeout") {
		v := env.GetInt("get_request_timeout")
		c.SMClient.GetRequestTimeout = &v
	}
	if c.SMClient.PostRequestTimeout == nil && env.IsSet("post_request_timeout") {
		v := env.GetInt("post_request_timeout")
		c.SMClient.PostRequestTimeout = &v
	}

	for service, tuples := range c.Restrictions {
		for _, tuple := range tuples {
			if len(splitTuple(tuple)) != len(c.Sites) {
				return errors.Errorf("check configuration file: restriction %q for %v doesn't suit the current number of sites",
					tuple, service)
			}
		}
	}
	return nil
}

// ServiceDefaultTimeout returns the fallback per-service timeout in seconds.
func (c *Config) ServiceDefaultTimeout() int {
	if c.SMClient.ServiceDefaultTimeout != nil {
		return *c.SMClient.ServiceDefaultTimeout
	}
	return defaultServiceTimeout
}

// GetRequestTimeout returns the GET timeout in seconds, 0 meaning the
// transport default.
func (c *Config) GetRequestTimeout() int {
	if c.SMClient.GetRequestTimeout != nil {
		return *c.SMClient.GetRequestTimeout
	}
	return 0
}

// PostRequestTimeout returns the POST timeout in seconds, 0 meaning the
// transport default.
func (c *Config) PostRequestTimeout() int {
	if c.SMClient.PostRequestTimeout != nil {
		return *c.SMClient.PostRequestTimeout
	}
	return 0
}

// SiteNames returns the site names in configuration order. The order matters:
// restriction tuples pair modes with sites positionally.
func (c *Config) SiteNames() []string {
	names := make([]string, len(c.Sites))
	for i, s := range c.Sites {
		names[i] = s.Name
	}
	return names
}

// Site returns the configuration of the named site, or nil.
func (c *Config) Site(name string) *Site {
	for i := range c.Sites {
		if c.Sites[i].Name == name {
			return &c.Sites[i]
		}
	}
	return nil
}

// OppositeSite returns the other site's name, or "" if site is unknown.
func (c *Config) OppositeSite(site string) string {
	if c.Site(site) == nil {
		return ""
	}
	for _, s := range c.Sites {
		if s.Name != site {
			return s.Name
		}
	}
	return ""
}

// Modules lists every module named in the flow, in first-appearance order.
func (c *Config) Modules() []string {
	var modules []string
	seen := map[string]bool{}
	for _, entry := range c.Flow {
		if !seen[entry.Module] {
			seen[entry.Module] = true
			modules = append(modules, entry.Module)
		}
	}
	return modules
}

// RestrictionTuples converts the dash-joined restriction strings for service
// (plus the wildcard entry) into site→mode mappings in configuration order.
func (c *Config) RestrictionTuples(service string) []map[string]string {
	var out []map[string]string
	tuples := append(append([]string{}, c.Restrictions[service]...), c.Restrictions["*"]...)
	for _, tuple := range tuples {
		modes := splitTuple(tuple)
		m := map[string]string{}
		for i, name := range c.SiteNames() {
			m[name] = modes[i]
		}
		out = append(out, m)
	}
	return out
}

// RestrictedServices filters services down to those with restrictions; the
// wildcard restricts every service.
func (c *Config) RestrictedServices(services []string) []string {
	if _, ok := c.Restrictions["*"]; ok {
		return services
	}
	var out []string
	for _, s := range services {
		if _, ok := c.Restrictions[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func splitTuple(tuple string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(tuple); i++ {
		if i == len(tuple) || tuple[i] == '-' {
			parts = append(parts, tuple[start:i])
			start = i + 1
		}
	}
	return parts
}
