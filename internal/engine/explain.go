package engine

import (
	"fmt"

	"shiftline/internal/domain"
)

// explain composes blocker evaluation and readiness into one result. WhyNot
// mirrors the blocker tags in evaluation order; WhyEligible names the
// positive facts and always has at least one entry for an eligible provider.
func (e Engine) explain(fs domain.ProviderFactSheet, blockers []domain.BlockerKind) domain.EligibilityResult {
	res := domain.EligibilityResult{
		ProviderID:   fs.ProviderID,
		ProviderName: fs.ProviderName,
		IsEligible:   len(blockers) == 0,
		Blockers:     blockers,
	}
	if res.IsEligible {
		res.WhyEligible = whyEligible(fs)
		return res
	}
	res.WhyNot = make([]string, 0, len(blockers))
	for _, b := range blockers {
		res.WhyNot = append(res.WhyNot, string(b))
	}
	res.TimeToReadyDays = e.timeToReady(blockers)
	return res
}

func whyEligible(fs domain.ProviderFactSheet) []string {
	out := []string{"provider status is ACTIVE"}
	if fs.LicenseDaysLeft != nil {
		out = append(out, fmt.Sprintf("state license valid (%d days left)", *fs.LicenseDaysLeft))
	} else {
		out = append(out, "no state license blocker on record")
	}
	if fs.ACLSDaysLeft != nil {
		out = append(out, fmt.Sprintf("ACLS valid (%d days left)", *fs.ACLSDaysLeft))
	} else {
		out = append(out, "no ACLS blocker on record")
	}
	out = append(out,
		fmt.Sprintf("%d active privilege(s)", fs.ActivePrivilegeCount),
		fmt.Sprintf("%d active payer enrollment(s)", fs.ActivePayerCount),
	)
	return out
}
