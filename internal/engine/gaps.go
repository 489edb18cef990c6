package engine

import "shiftline/internal/domain"

// classifyGap derives the shortfall and its risk tier. The risk signal is
// driven by eligible supply, not raw headcount: the same gap with zero
// eligible providers is HIGH while one with surplus supply is LOW.
func classifyGap(shift domain.Shift, eligibleCount int) domain.StaffingGap {
	gap := shift.RequiredCount - shift.AssignedCount
	if gap < 0 {
		gap = 0
	}
	g := domain.StaffingGap{
		ShiftID:               shift.ShiftID,
		FacilityID:            shift.FacilityID,
		FacilityName:          shift.FacilityName,
		StartTS:               shift.StartTS,
		EndTS:                 shift.EndTS,
		RequiredProcedureCode: shift.RequiredProcedureCode,
		RequiredCount:         shift.RequiredCount,
		AssignedCount:         shift.AssignedCount,
		EligibleProviderCount: eligibleCount,
		GapCount:              gap,
		Coverable:             coverable(shift, eligibleCount),
	}
	switch {
	case gap > 0 && eligibleCount == 0:
		g.RiskLevel, g.RiskReason = "HIGH", "no eligible providers"
	case gap > 0 && eligibleCount < gap:
		g.RiskLevel, g.RiskReason = "MEDIUM", "insufficient eligible supply"
	case gap == 0:
		g.RiskLevel, g.RiskReason = "LOW", "fully staffed"
	default:
		g.RiskLevel, g.RiskReason = "LOW", "eligible supply meets demand"
	}
	return g
}

// coverable: enough assigned plus eligible providers to meet demand.
func coverable(shift domain.Shift, eligibleCount int) bool {
	return shift.AssignedCount+eligibleCount >= shift.RequiredCount
}
