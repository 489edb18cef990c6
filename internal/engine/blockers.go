package engine

import (
	"shiftline/internal/config"
	"shiftline/internal/domain"
)

// ruleClass groups blocker kinds by the scenario override that can suppress
// them. A license fix clears both the expired and expiring rule, so they
// share a class.
type ruleClass string

const (
	classStatus    ruleClass = "status"
	classLicense   ruleClass = "license"
	classACLS      ruleClass = "acls"
	classPrivilege ruleClass = "privilege"
	classPayer     ruleClass = "payer"
)

type classSet map[ruleClass]bool

// blockerRule is one row of the eligibility rule table. Rules evaluate in
// declaration order and fire independently; elseIf marks the EXPIRING rules,
// which are skipped when the EXPIRED rule of the same class already fired.
type blockerRule struct {
	Kind         domain.BlockerKind
	Class        ruleClass
	Suppressible bool
	ElseIf       bool
	Fires        func(cfg *config.Config, fs domain.ProviderFactSheet, facilityID string) bool
}

const credStatusExpired = "EXPIRED"

var blockerRules = []blockerRule{
	{
		Kind:  domain.BlockerStatusInactive,
		Class: classStatus,
		Fires: func(cfg *config.Config, fs domain.ProviderFactSheet, _ string) bool {
			return fs.ProviderStatus != "ACTIVE"
		},
	},
	{
		Kind:         domain.BlockerLicenseExpired,
		Class:        classLicense,
		Suppressible: true,
		Fires: func(cfg *config.Config, fs domain.ProviderFactSheet, _ string) bool {
			return credentialExpired(fs.LicenseStatus, fs.LicenseDaysLeft)
		},
	},
	{
		Kind:         domain.BlockerLicenseExpiring,
		Class:        classLicense,
		Suppressible: true,
		ElseIf:       true,
		Fires: func(cfg *config.Config, fs domain.ProviderFactSheet, _ string) bool {
			return credentialExpiring(fs.LicenseDaysLeft, cfg.Policy.ExpiringWindowDays)
		},
	},
	{
		Kind:         domain.BlockerACLSExpired,
		Class:        classACLS,
		Suppressible: true,
		Fires: func(cfg *config.Config, fs domain.ProviderFactSheet, _ string) bool {
			return credentialExpired(fs.ACLSStatus, fs.ACLSDaysLeft)
		},
	},
	{
		Kind:         domain.BlockerACLSExpiring,
		Class:        classACLS,
		Suppressible: true,
		ElseIf:       true,
		Fires: func(cfg *config.Config, fs domain.ProviderFactSheet, _ string) bool {
			return credentialExpiring(fs.ACLSDaysLeft, cfg.Policy.ExpiringWindowDays)
		},
	},
	{
		Kind:         domain.BlockerNoPrivilege,
		Class:        classPrivilege,
		Suppressible: true,
		Fires: func(cfg *config.Config, fs domain.ProviderFactSheet, facilityID string) bool {
			if facilityID != "" {
				return fs.PrivilegeFacilityCounts[facilityID] == 0
			}
			return fs.ActivePrivilegeCount == 0
		},
	},
	{
		Kind:         domain.BlockerNoPayerEnrollment,
		Class:        classPayer,
		Suppressible: true,
		Fires: func(cfg *config.Config, fs domain.ProviderFactSheet, _ string) bool {
			return fs.ActivePayerCount == 0
		},
	},
}

// credentialExpired: an explicit EXPIRED status or zero-or-fewer days left.
// Unknown status with unknown days is not expired.
func credentialExpired(status *string, daysLeft *int) bool {
	if status != nil && *status == credStatusExpired {
		return true
	}
	return daysLeft != nil && *daysLeft <= 0
}

// credentialExpiring: a known days-left inside the policy window. Unknown
// expiration never blocks on its own.
func credentialExpiring(daysLeft *int, windowDays int) bool {
	return daysLeft != nil && *daysLeft <= windowDays
}

// evaluateBlockers walks the rule table against one fact sheet. facilityID,
// when non-empty, scopes the privilege rule to that facility. suppressed
// names the rule classes a scenario override has cleared for this provider;
// the status class ignores suppression entirely.
func evaluateBlockers(cfg *config.Config, fs domain.ProviderFactSheet, facilityID string, suppressed classSet) []domain.BlockerKind {
	var out []domain.BlockerKind
	fired := map[ruleClass]bool{}
	for _, r := range blockerRules {
		if r.ElseIf && fired[r.Class] {
			continue
		}
		if r.Suppressible && suppressed[r.Class] {
			continue
		}
		if r.Fires(cfg, fs, facilityID) {
			fired[r.Class] = true
			out = append(out, r.Kind)
		}
	}
	return out
}
