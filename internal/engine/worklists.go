package engine

import "shiftline/internal/domain"

// Credential risk buckets, widest last. The dashboard's expiring-credentials
// worklist groups by these labels.
func riskBucket(daysLeft int) string {
	switch {
	case daysLeft <= 0:
		return "EXPIRED"
	case daysLeft <= 14:
		return "0-14"
	case daysLeft <= 30:
		return "15-30"
	case daysLeft <= 90:
		return "31-90"
	default:
		return ">90"
	}
}

// ExpiringCredentials lists tracked credentials by risk bucket. bucket
// filters to one label; empty returns everything with a known expiration.
func (e Engine) ExpiringCredentials(snap Snapshot, bucket string) ([]domain.CredentialRisk, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}
	var out []domain.CredentialRisk
	for _, fs := range e.buildFactSheets(snap) {
		for _, cred := range []struct {
			kind     string
			daysLeft *int
		}{
			{credStateLicense, fs.LicenseDaysLeft},
			{credACLS, fs.ACLSDaysLeft},
		} {
			if cred.daysLeft == nil {
				continue
			}
			b := riskBucket(*cred.daysLeft)
			if bucket != "" && b != bucket {
				continue
			}
			out = append(out, domain.CredentialRisk{
				ProviderID:   fs.ProviderID,
				ProviderName: fs.ProviderName,
				CredType:     cred.kind,
				DaysLeft:     cred.daysLeft,
				RiskBucket:   b,
			})
		}
	}
	return out, nil
}

// BlockedProviders lists providers that are currently ineligible with their
// blockers and readiness estimates. kind filters to providers carrying that
// specific blocker.
func (e Engine) BlockedProviders(snap Snapshot, kind domain.BlockerKind) ([]domain.EligibilityResult, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}
	var out []domain.EligibilityResult
	for _, fs := range e.buildFactSheets(snap) {
		blockers := evaluateBlockers(e.Config, fs, "", nil)
		if len(blockers) == 0 {
			continue
		}
		if kind != "" && !hasBlocker(blockers, kind) {
			continue
		}
		out = append(out, e.explain(fs, blockers))
	}
	return out, nil
}

// UncoverableShifts lists shifts with a gap and zero eligible providers, the
// highest-urgency staffing worklist.
func (e Engine) UncoverableShifts(snap Snapshot) ([]domain.StaffingGap, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}
	var out []domain.StaffingGap
	for _, shift := range snap.Shifts {
		elig := e.evaluateShift(shift, snap, nil)
		gap := classifyGap(shift, elig.EligibleProviderCount)
		if gap.GapCount > 0 && gap.EligibleProviderCount == 0 {
			out = append(out, gap)
		}
	}
	return out, nil
}

func hasBlocker(blockers []domain.BlockerKind, kind domain.BlockerKind) bool {
	for _, b := range blockers {
		if b == kind {
			return true
		}
	}
	return false
}
