package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"shiftline/internal/domain"

	"gopkg.in/yaml.v3"
)

// Config models shiftline.yml: the eligibility policy knobs. It is loaded and
// validated once at startup; a bad policy is a startup error, never a per-call
// one.
type Config struct {
	Policy struct {
		ExpiringWindowDays  int `yaml:"expiring_window_days"`
		TopNRecommendations int `yaml:"top_n_recommendations"`
	} `yaml:"policy"`
	Remediation struct {
		// Lead times in days per blocker kind. Kinds without an entry have
		// no known remediation path, so time-to-ready stays unknown.
		LeadTimesDays map[string]int `yaml:"lead_times_days"`
	} `yaml:"remediation"`
	Procedures struct {
		// Procedure code -> specialty considered a match for ranking.
		Specialties map[string]string `yaml:"specialties"`
	} `yaml:"procedures"`
	Scenario struct {
		MaxShiftsPerRun int `yaml:"max_shifts_per_run"`
		Workers         int `yaml:"workers"`
	} `yaml:"scenario"`
	// Webhooks receive audit events (action.create, scenario.run, ...) as
	// they are appended.
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret,omitempty"`
	Events         []string `yaml:"events,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
}

// remediableKinds are the blocker kinds that must carry a lead time.
// STATUS_INACTIVE is deliberately absent: an inactive provider has no
// remediation path the roster team controls.
var remediableKinds = []domain.BlockerKind{
	domain.BlockerLicenseExpired,
	domain.BlockerLicenseExpiring,
	domain.BlockerACLSExpired,
	domain.BlockerACLSExpiring,
	domain.BlockerNoPrivilege,
	domain.BlockerNoPayerEnrollment,
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; generate with sl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the policy is complete enough to evaluate against.
func (c *Config) Validate() error {
	if c.Policy.ExpiringWindowDays <= 0 {
		return fmt.Errorf("config.policy.expiring_window_days must be positive")
	}
	if c.Policy.TopNRecommendations < 1 {
		return fmt.Errorf("config.policy.top_n_recommendations must be at least 1")
	}
	if c.Remediation.LeadTimesDays == nil {
		return fmt.Errorf("config.remediation.lead_times_days is required")
	}
	for _, kind := range remediableKinds {
		days, ok := c.Remediation.LeadTimesDays[string(kind)]
		if !ok {
			return fmt.Errorf("config.remediation.lead_times_days missing %s", kind)
		}
		if days <= 0 {
			return fmt.Errorf("lead time for %s must be positive, got %d", kind, days)
		}
	}
	known := map[string]bool{}
	for _, k := range domain.BlockerKinds() {
		known[string(k)] = true
	}
	for kind := range c.Remediation.LeadTimesDays {
		if kind == string(domain.BlockerStatusInactive) {
			return fmt.Errorf("%s is not remediable and cannot carry a lead time", kind)
		}
		if !known[kind] {
			return fmt.Errorf("config.remediation.lead_times_days has unknown blocker kind %s", kind)
		}
	}
	for code, specialty := range c.Procedures.Specialties {
		if code == "" {
			return fmt.Errorf("config.procedures.specialties has empty procedure code")
		}
		if specialty == "" {
			return fmt.Errorf("procedure %s maps to empty specialty", code)
		}
	}
	if c.Scenario.MaxShiftsPerRun < 1 {
		return fmt.Errorf("config.scenario.max_shifts_per_run must be at least 1")
	}
	if c.Scenario.Workers < 1 {
		return fmt.Errorf("config.scenario.workers must be at least 1")
	}
	return nil
}

// LeadTimeDays returns the remediation lead time for a blocker kind, false
// when the kind has none configured.
func (c *Config) LeadTimeDays(kind domain.BlockerKind) (int, bool) {
	days, ok := c.Remediation.LeadTimesDays[string(kind)]
	return days, ok
}

// SpecialtyFor returns the specialty matching a procedure code, empty when
// the procedure is unmapped.
func (c *Config) SpecialtyFor(procedureCode string) string {
	return c.Procedures.Specialties[procedureCode]
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "shiftline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
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

const defaultTemplate = `policy:
  # A credential within this many days of expiring blocks eligibility.
  expiring_window_days: 30
  top_n_recommendations: 5

remediation:
  # Expected days to clear each blocker. STATUS_INACTIVE has no entry:
  # reactivating a provider is an HR decision, not a credentialing task.
  lead_times_days:
    LICENSE_EXPIRED: 30
    LICENSE_EXPIRING: 30
    ACLS_EXPIRED: 14
    ACLS_EXPIRING: 14
    NO_PRIVILEGE: 14
    NO_PAYER_ENROLLMENT: 45

procedures:
  specialties:
    ED_SHIFT: "Emergency Medicine"
    ICU_SHIFT: "Critical Care"
    HOSPITALIST_SHIFT: "Internal Medicine"
    OB_SHIFT: "Obstetrics"

scenario:
  max_shifts_per_run: 200
  workers: 8

# webhooks:
#   - url: https://hooks.example.com/shiftline
#     events: [action.create, scenario.run]
`
