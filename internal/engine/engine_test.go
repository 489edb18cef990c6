package engine_test

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"shiftline/internal/config"
	"shiftline/internal/domain"
	"shiftline/internal/engine"
)

func testEngine() engine.Engine {
	eng := engine.New(config.Default())
	eng.Now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return eng
}

func ts(s string) *string { return &s }

func mustEvaluate(t *testing.T, eng engine.Engine, shift domain.Shift, snap engine.Snapshot, a *domain.ScenarioAssumptions) domain.ShiftEligibility {
	t.Helper()
	elig, err := eng.EvaluateShiftEligibility(shift, snap, a)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return elig
}

// singleProviderSnapshot reproduces the canonical planner case: PROV-1 is the
// only candidate for SH-1 and is blocked solely by an ACLS expiring in 19
// days. SH-2 is already fully staffed.
func singleProviderSnapshot() engine.Snapshot {
	return engine.Snapshot{
		Providers: []domain.Provider{
			{ProviderID: "PROV-1", ProviderName: "Alex Morgan", Specialty: "Emergency Medicine", ProviderStatus: "ACTIVE", HomeFacilityID: "FAC-1"},
		},
		Credentials: []domain.CredentialRecord{
			{EventID: "CR-1", ProviderID: "PROV-1", CredType: "STATE_LICENSE", CredStatus: "ACTIVE", IssuedAt: ts("2024-06-01"), ExpiresAt: ts("2026-06-01")},
			{EventID: "CR-2", ProviderID: "PROV-1", CredType: "ACLS", CredStatus: "ACTIVE", IssuedAt: ts("2023-06-20"), ExpiresAt: ts("2025-06-20")},
		},
		Privileges: []domain.Privilege{
			{ProviderID: "PROV-1", FacilityID: "FAC-1", Active: true},
		},
		Payers: []domain.PayerEnrollment{
			{ProviderID: "PROV-1", PayerID: "PAYER-1", Active: true},
		},
		Shifts: []domain.Shift{
			{ShiftID: "SH-1", FacilityID: "FAC-1", StartTS: "2025-06-10T07:00:00Z", EndTS: "2025-06-10T19:00:00Z", RequiredProcedureCode: "ED_SHIFT", RequiredCount: 1, AssignedCount: 0},
			{ShiftID: "SH-2", FacilityID: "FAC-1", StartTS: "2025-06-11T07:00:00Z", EndTS: "2025-06-11T19:00:00Z", RequiredProcedureCode: "ED_SHIFT", RequiredCount: 1, AssignedCount: 1},
		},
	}
}

func TestEvaluateShiftEligibilityBaselineAndOverride(t *testing.T) {
	eng := testEngine()
	snap := singleProviderSnapshot()
	shift := snap.Shifts[0]

	baseline := mustEvaluate(t, eng, shift, snap, nil)
	if baseline.EligibleProviderCount != 0 {
		t.Fatalf("baseline eligible = %d, want 0", baseline.EligibleProviderCount)
	}
	if len(baseline.Providers) != 1 {
		t.Fatalf("expected 1 per-provider result, got %d", len(baseline.Providers))
	}
	res := baseline.Providers[0]
	if res.IsEligible {
		t.Fatalf("PROV-1 should be blocked")
	}
	if !reflect.DeepEqual(res.Blockers, []domain.BlockerKind{domain.BlockerACLSExpiring}) {
		t.Fatalf("blockers = %v, want [ACLS_EXPIRING]", res.Blockers)
	}
	if res.TimeToReadyDays == nil || *res.TimeToReadyDays != 14 {
		t.Fatalf("time_to_ready = %v, want 14", res.TimeToReadyDays)
	}

	gap, err := eng.ClassifyGap(shift, snap)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if gap.GapCount != 1 || gap.RiskLevel != "HIGH" || gap.Coverable {
		t.Fatalf("baseline gap = %+v, want gap 1 HIGH not coverable", gap)
	}

	fixed := mustEvaluate(t, eng, shift, snap, &domain.ScenarioAssumptions{FixACLS: []string{"PROV-1"}})
	if fixed.EligibleProviderCount != 1 {
		t.Fatalf("scenario eligible = %d, want 1", fixed.EligibleProviderCount)
	}
	if len(fixed.RecommendedProviders) != 1 || fixed.RecommendedProviders[0] != "PROV-1" {
		t.Fatalf("recommended = %v, want [PROV-1]", fixed.RecommendedProviders)
	}
	if !fixed.Providers[0].IsEligible || len(fixed.Providers[0].WhyEligible) == 0 {
		t.Fatalf("expected eligible result with why_eligible, got %+v", fixed.Providers[0])
	}
}

func TestEligibilityIffNoBlockers(t *testing.T) {
	eng := testEngine()
	snap := singleProviderSnapshot()

	for _, elig := range []domain.ShiftEligibility{
		mustEvaluate(t, eng, snap.Shifts[0], snap, nil),
		mustEvaluate(t, eng, snap.Shifts[0], snap, &domain.ScenarioAssumptions{FixACLS: []string{"PROV-1"}}),
	} {
		for _, r := range elig.Providers {
			if r.IsEligible != (len(r.Blockers) == 0) {
				t.Fatalf("is_eligible=%v with blockers %v", r.IsEligible, r.Blockers)
			}
			if r.IsEligible && (len(r.WhyNot) != 0 || r.TimeToReadyDays != nil || len(r.WhyEligible) == 0) {
				t.Fatalf("eligible invariants violated: %+v", r)
			}
			if !r.IsEligible && len(r.WhyNot) == 0 {
				t.Fatalf("blocked provider missing why_not: %+v", r)
			}
		}
	}
}

func TestInactiveProviderNeverEligible(t *testing.T) {
	eng := testEngine()
	snap := singleProviderSnapshot()
	snap.Providers[0].ProviderStatus = "INACTIVE"
	snap.Credentials[1].ExpiresAt = ts("2027-01-01") // clear the ACLS blocker

	all := &domain.ScenarioAssumptions{
		FixLicense:      []string{"PROV-1"},
		FixACLS:         []string{"PROV-1"},
		AssumePrivilege: []string{"PROV-1"},
		AssumePayer:     []string{"PROV-1"},
	}
	elig := mustEvaluate(t, eng, snap.Shifts[0], snap, all)
	res := elig.Providers[0]
	if res.IsEligible {
		t.Fatalf("inactive provider became eligible under overrides")
	}
	if !reflect.DeepEqual(res.WhyNot, []string{"STATUS_INACTIVE"}) {
		t.Fatalf("why_not = %v, want [STATUS_INACTIVE]", res.WhyNot)
	}
	if res.TimeToReadyDays != nil {
		t.Fatalf("time_to_ready = %d, want nil", *res.TimeToReadyDays)
	}
}

func TestExplainProvider(t *testing.T) {
	eng := testEngine()
	snap := singleProviderSnapshot()

	res, ok, err := eng.ExplainProvider("PROV-1", snap)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !ok {
		t.Fatalf("PROV-1 not found")
	}
	if res.IsEligible || len(res.WhyNot) == 0 {
		t.Fatalf("expected blocked explanation, got %+v", res)
	}
	if _, ok, err := eng.ExplainProvider("PROV-404", snap); err != nil || ok {
		t.Fatalf("expected missing provider to report not found, got ok=%v err=%v", ok, err)
	}
}

func TestFactSheetLatestCredentialWins(t *testing.T) {
	eng := testEngine()
	snap := singleProviderSnapshot()
	// Older, long-expired license record alongside the current one.
	snap.Credentials = append(snap.Credentials, domain.CredentialRecord{
		EventID: "CR-0", ProviderID: "PROV-1", CredType: "STATE_LICENSE",
		CredStatus: "EXPIRED", IssuedAt: ts("2020-06-01"), ExpiresAt: ts("2022-06-01"),
	})

	sheets, err := eng.BuildFactSheets(snap)
	if err != nil {
		t.Fatalf("build fact sheets: %v", err)
	}
	if len(sheets) != 1 {
		t.Fatalf("expected 1 fact sheet, got %d", len(sheets))
	}
	fs := sheets[0]
	if fs.LicenseDaysLeft == nil || *fs.LicenseDaysLeft != 365 {
		t.Fatalf("license_days_left = %v, want 365", fs.LicenseDaysLeft)
	}
	if fs.LicenseStatus == nil || *fs.LicenseStatus != "ACTIVE" {
		t.Fatalf("license_status = %v, want ACTIVE", fs.LicenseStatus)
	}
}

func TestRankerTieBreaksAndDeterminism(t *testing.T) {
	eng := testEngine()
	snap := engine.Snapshot{
		Providers: []domain.Provider{
			// Eligible only under a privilege override; no FAC-1 privilege.
			{ProviderID: "PROV-A", ProviderName: "A", Specialty: "Emergency Medicine", ProviderStatus: "ACTIVE"},
			// Privileged at FAC-1, wrong specialty.
			{ProviderID: "PROV-C", ProviderName: "C", Specialty: "Internal Medicine", ProviderStatus: "ACTIVE"},
			// Privileged at FAC-1, matching specialty: should rank first.
			{ProviderID: "PROV-B", ProviderName: "B", Specialty: "Emergency Medicine", ProviderStatus: "ACTIVE"},
			// Identical profile to PROV-C: id ascending decides.
			{ProviderID: "PROV-D", ProviderName: "D", Specialty: "Internal Medicine", ProviderStatus: "ACTIVE"},
		},
		Privileges: []domain.Privilege{
			{ProviderID: "PROV-A", FacilityID: "FAC-2", Active: true},
			{ProviderID: "PROV-B", FacilityID: "FAC-1", Active: true},
			{ProviderID: "PROV-C", FacilityID: "FAC-1", Active: true},
			{ProviderID: "PROV-D", FacilityID: "FAC-1", Active: true},
		},
		Payers: []domain.PayerEnrollment{
			{ProviderID: "PROV-A", PayerID: "PAYER-1", Active: true},
			{ProviderID: "PROV-B", PayerID: "PAYER-1", Active: true},
			{ProviderID: "PROV-C", PayerID: "PAYER-1", Active: true},
			{ProviderID: "PROV-D", PayerID: "PAYER-1", Active: true},
		},
	}
	shift := domain.Shift{ShiftID: "SH-1", FacilityID: "FAC-1", RequiredProcedureCode: "ED_SHIFT", RequiredCount: 2}
	assumptions := &domain.ScenarioAssumptions{AssumePrivilege: []string{"PROV-A"}}

	// Facility privilege outranks specialty, so PROV-A sorts last despite
	// its specialty match; among the privileged, PROV-B wins on specialty
	// and PROV-C beats PROV-D on id.
	want := []string{"PROV-B", "PROV-C", "PROV-D", "PROV-A"}

	first := mustEvaluate(t, eng, shift, snap, assumptions)
	if !reflect.DeepEqual(first.RecommendedProviders, want) {
		t.Fatalf("recommended = %v, want %v", first.RecommendedProviders, want)
	}
	for i := 0; i < 5; i++ {
		again := mustEvaluate(t, eng, shift, snap, assumptions)
		if !reflect.DeepEqual(again.RecommendedProviders, first.RecommendedProviders) {
			t.Fatalf("ranking not deterministic: %v vs %v", again.RecommendedProviders, first.RecommendedProviders)
		}
	}
}

func TestRankerTopNCap(t *testing.T) {
	eng := testEngine()
	snap := engine.Snapshot{}
	for _, id := range []string{"P-01", "P-02", "P-03", "P-04", "P-05", "P-06", "P-07"} {
		snap.Providers = append(snap.Providers, domain.Provider{ProviderID: id, ProviderName: id, ProviderStatus: "ACTIVE"})
		snap.Privileges = append(snap.Privileges, domain.Privilege{ProviderID: id, FacilityID: "FAC-1", Active: true})
		snap.Payers = append(snap.Payers, domain.PayerEnrollment{ProviderID: id, PayerID: "PAYER-1", Active: true})
	}
	shift := domain.Shift{ShiftID: "SH-1", FacilityID: "FAC-1", RequiredCount: 1}

	elig := mustEvaluate(t, eng, shift, snap, nil)
	if elig.EligibleProviderCount != 7 {
		t.Fatalf("eligible = %d, want 7", elig.EligibleProviderCount)
	}
	want := []string{"P-01", "P-02", "P-03", "P-04", "P-05"}
	if !reflect.DeepEqual(elig.RecommendedProviders, want) {
		t.Fatalf("recommended = %v, want %v", elig.RecommendedProviders, want)
	}
}

func TestMalformedSnapshotRejected(t *testing.T) {
	eng := testEngine()

	blank := singleProviderSnapshot()
	blank.Providers[0].ProviderID = ""

	if _, err := eng.BuildFactSheets(blank); err == nil || !strings.Contains(err.Error(), "missing provider_id") {
		t.Fatalf("BuildFactSheets err = %v, want missing provider_id", err)
	}
	if _, err := eng.EvaluateShiftEligibility(blank.Shifts[0], blank, nil); err == nil {
		t.Fatalf("expected evaluation to reject provider with no id")
	}
	if _, err := eng.ClassifyGap(blank.Shifts[0], blank); err == nil {
		t.Fatalf("expected gap classification to reject provider with no id")
	}
	if _, _, err := eng.ExplainProvider("PROV-1", blank); err == nil {
		t.Fatalf("expected explain to reject provider with no id")
	}
	if _, err := eng.Simulate(context.Background(), blank, []string{"SH-1"}, domain.ScenarioAssumptions{}); err == nil {
		t.Fatalf("expected simulate to reject provider with no id")
	}

	noShiftID := singleProviderSnapshot()
	noShiftID.Shifts[0].ShiftID = "  "
	if _, err := eng.EvaluateShiftEligibility(noShiftID.Shifts[0], noShiftID, nil); err == nil {
		t.Fatalf("expected evaluation to reject shift with no id")
	}

	good := singleProviderSnapshot()
	if _, err := eng.Simulate(context.Background(), good, []string{"SH-1", ""}, domain.ScenarioAssumptions{}); err == nil || !strings.Contains(err.Error(), "missing shift_id") {
		t.Fatalf("Simulate err = %v, want missing shift_id for blank request id", err)
	}
	if _, _, err := eng.ExplainProvider("", good); err == nil {
		t.Fatalf("expected explain to reject blank provider id")
	}
}
