package engine

import (
	"sort"

	"shiftline/internal/domain"
)

// rankEligible orders eligible providers for a shift and returns the top-N
// ids. Tie-breaks, in order: privilege at the shift's facility, specialty
// match to the shift's procedure, then provider id ascending so identical
// inputs always rank identically.
func (e Engine) rankEligible(shift domain.Shift, eligible []domain.ProviderFactSheet) []string {
	ranked := make([]domain.ProviderFactSheet, len(eligible))
	copy(ranked, eligible)

	specialty := e.Config.SpecialtyFor(shift.RequiredProcedureCode)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		ap := a.PrivilegeFacilityCounts[shift.FacilityID] > 0
		bp := b.PrivilegeFacilityCounts[shift.FacilityID] > 0
		if ap != bp {
			return ap
		}
		if specialty != "" {
			as := a.Specialty == specialty
			bs := b.Specialty == specialty
			if as != bs {
				return as
			}
		}
		return a.ProviderID < b.ProviderID
	})

	n := e.Config.Policy.TopNRecommendations
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]string, 0, n)
	for _, fs := range ranked[:n] {
		out = append(out, fs.ProviderID)
	}
	return out
}
