package engine

import "shiftline/internal/domain"

// timeToReady estimates days until a blocked provider could become eligible.
// Blockers are remediated in parallel, so the estimate is the maximum lead
// time across current blockers, not the sum. An eligible provider has no
// estimate, and a blocker with no configured lead time (STATUS_INACTIVE)
// makes the whole estimate unknown: no readiness date can be promised for a
// provider whose blockers include an unremediable one.
func (e Engine) timeToReady(blockers []domain.BlockerKind) *int {
	if len(blockers) == 0 {
		return nil
	}
	longest := 0
	for _, b := range blockers {
		days, ok := e.Config.LeadTimeDays(b)
		if !ok {
			return nil
		}
		if days > longest {
			longest = days
		}
	}
	return &longest
}
