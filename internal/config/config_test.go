package config

import (
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Policy.ExpiringWindowDays != 30 {
		t.Fatalf("expected 30 day expiring window, got %d", cfg.Policy.ExpiringWindowDays)
	}
	if days, ok := cfg.LeadTimeDays("NO_PAYER_ENROLLMENT"); !ok || days != 45 {
		t.Fatalf("expected 45 day payer lead time, got %d (ok=%v)", days, ok)
	}
	if got := cfg.SpecialtyFor("ED_SHIFT"); got != "Emergency Medicine" {
		t.Fatalf("expected ED_SHIFT to map to Emergency Medicine, got %q", got)
	}
	if got := cfg.SpecialtyFor("UNMAPPED"); got != "" {
		t.Fatalf("unmapped procedure must yield empty specialty, got %q", got)
	}
}

func TestValidateRejectsBadPolicies(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing lead time",
			mutate:  func(c *Config) { delete(c.Remediation.LeadTimesDays, "NO_PRIVILEGE") },
			wantErr: "missing NO_PRIVILEGE",
		},
		{
			name:    "non-positive lead time",
			mutate:  func(c *Config) { c.Remediation.LeadTimesDays["ACLS_EXPIRED"] = 0 },
			wantErr: "must be positive",
		},
		{
			name:    "status inactive is not remediable",
			mutate:  func(c *Config) { c.Remediation.LeadTimesDays["STATUS_INACTIVE"] = 7 },
			wantErr: "not remediable",
		},
		{
			name:    "unknown blocker kind",
			mutate:  func(c *Config) { c.Remediation.LeadTimesDays["DEA_EXPIRED"] = 10 },
			wantErr: "unknown blocker kind",
		},
		{
			name:    "zero expiring window",
			mutate:  func(c *Config) { c.Policy.ExpiringWindowDays = 0 },
			wantErr: "expiring_window_days",
		},
		{
			name:    "zero scenario workers",
			mutate:  func(c *Config) { c.Scenario.Workers = 0 },
			wantErr: "workers",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFromYAMLRejectsGarbage(t *testing.T) {
	if _, err := FromYAML([]byte(":\n  - not yaml")); err == nil {
		t.Fatal("expected a parse error")
	}
	if _, err := FromYAML([]byte("policy:\n  expiring_window_days: 30\n")); err == nil {
		t.Fatal("expected a validation error for an incomplete policy")
	}
}
