package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models wikiroute.yml.
type Config struct {
	Features struct {
		NativeTalkPages bool `yaml:"native_talk_pages"`
	} `yaml:"features"`
	Routing struct {
		InAppHosts        []string `yaml:"in_app_hosts"`
		InAppHostSuffixes []string `yaml:"in_app_host_suffixes"`
	} `yaml:"routing"`
	Sites struct {
		Overrides map[string]SiteOverride `yaml:"overrides"`
	} `yaml:"sites"`
}

// SiteOverride adjusts capability flags for a single host. Nil fields keep
// the built-in default for that host.
type SiteOverride struct {
	Language            string `yaml:"language,omitempty"`
	SupportsUserTalk    *bool  `yaml:"supports_user_talk,omitempty"`
	SupportsNativeDiff  *bool  `yaml:"supports_native_diff,omitempty"`
	MainNamespaceNative *bool  `yaml:"main_namespace_native,omitempty"`
	RoutesMetaPaths     *bool  `yaml:"routes_meta_paths,omitempty"`
}

// HostRoutesInApp reports whether the host may be shown in an in-app web
// view. Consulted only by the fallback classifier.
func (c *Config) HostRoutesInApp(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	if host == "" {
		return false
	}
	for _, allowed := range c.Routing.InAppHosts {
		if host == strings.ToLower(allowed) {
			return true
		}
	}
	for _, suffix := range c.Routing.InAppHostSuffixes {
		suffix = strings.ToLower(suffix)
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with wr config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Routing.InAppHosts) == 0 && len(c.Routing.InAppHostSuffixes) == 0 {
		return fmt.Errorf("config.routing requires at least one in_app_hosts or in_app_host_suffixes entry")
	}
	for _, h := range c.Routing.InAppHosts {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("config.routing.in_app_hosts contains an empty host")
		}
	}
	for _, s := range c.Routing.InAppHostSuffixes {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("config.routing.in_app_host_suffixes contains an empty suffix")
		}
		if strings.HasPrefix(s, ".") {
			return fmt.Errorf("suffix %q must not start with a dot", s)
		}
	}
	for host := range c.Sites.Overrides {
		if strings.TrimSpace(host) == "" {
			return fmt.Errorf("config.sites.overrides contains an empty host")
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "wikiroute.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	cfg.Features.NativeTalkPages = true
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `features:
  native_talk_pages: true

routing:
  in_app_hosts: []
  in_app_host_suffixes:
    - wikipedia.org
    - wikimedia.org
    - wiktionary.org
    - wikiquote.org
    - wikibooks.org
    - wikisource.org
    - wikinews.org
    - wikiversity.org
    - wikivoyage.org
    - wikidata.org
    - wikifunctions.org
    - mediawiki.org

sites:
  overrides:
    test.wikipedia.org:
      language: en
      supports_native_diff: false
`
