package engine

import (
	"testing"

	"shiftline/internal/config"
	"shiftline/internal/domain"
)

func TestClassifyGap(t *testing.T) {
	cases := []struct {
		name       string
		required   int
		assigned   int
		eligible   int
		wantGap    int
		wantRisk   string
		wantReason string
		coverable  bool
	}{
		{"no eligible supply", 2, 0, 0, 2, "HIGH", "no eligible providers", false},
		{"insufficient supply", 2, 0, 1, 2, "MEDIUM", "insufficient eligible supply", false},
		{"supply meets demand", 2, 0, 2, 2, "LOW", "eligible supply meets demand", true},
		{"surplus supply", 2, 0, 5, 2, "LOW", "eligible supply meets demand", true},
		{"fully staffed", 2, 2, 0, 0, "LOW", "fully staffed", true},
		{"overstaffed never negative", 1, 3, 0, 0, "LOW", "fully staffed", true},
		{"partially assigned", 3, 2, 1, 1, "LOW", "eligible supply meets demand", true},
		{"partially assigned short", 3, 1, 1, 2, "MEDIUM", "insufficient eligible supply", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			shift := domain.Shift{
				ShiftID:       "SH-1",
				FacilityID:    "FAC-1",
				RequiredCount: tc.required,
				AssignedCount: tc.assigned,
			}
			g := classifyGap(shift, tc.eligible)
			if g.GapCount != tc.wantGap {
				t.Fatalf("gap_count = %d, want %d", g.GapCount, tc.wantGap)
			}
			if g.GapCount < 0 {
				t.Fatalf("gap_count negative: %d", g.GapCount)
			}
			if g.RiskLevel != tc.wantRisk {
				t.Fatalf("risk_level = %s, want %s", g.RiskLevel, tc.wantRisk)
			}
			if g.RiskReason != tc.wantReason {
				t.Fatalf("risk_reason = %q, want %q", g.RiskReason, tc.wantReason)
			}
			if g.Coverable != tc.coverable {
				t.Fatalf("coverable = %v, want %v", g.Coverable, tc.coverable)
			}
		})
	}
}

func TestTimeToReady(t *testing.T) {
	eng := New(config.Default())

	if got := eng.timeToReady(nil); got != nil {
		t.Fatalf("eligible provider should have nil time_to_ready, got %d", *got)
	}

	// Parallel remediation: max of the lead times, not the sum.
	got := eng.timeToReady([]domain.BlockerKind{
		domain.BlockerLicenseExpired,    // 30
		domain.BlockerNoPayerEnrollment, // 45
	})
	if got == nil || *got != 45 {
		t.Fatalf("time_to_ready = %v, want 45", got)
	}

	// Any unremediable blocker makes the whole estimate unknown.
	got = eng.timeToReady([]domain.BlockerKind{
		domain.BlockerStatusInactive,
		domain.BlockerACLSExpired,
	})
	if got != nil {
		t.Fatalf("time_to_ready with STATUS_INACTIVE = %d, want nil", *got)
	}
}
