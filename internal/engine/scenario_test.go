package engine_test

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"shiftline/internal/domain"
)

func TestSimulateCoverageDelta(t *testing.T) {
	eng := testEngine()
	snap := singleProviderSnapshot()

	cov, err := eng.Simulate(context.Background(), snap, []string{"SH-1"}, domain.ScenarioAssumptions{
		FixACLS: []string{"PROV-1"},
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if cov.ShiftCount != 1 || cov.BaselineCoverableCount != 0 || cov.ScenarioCoverableCount != 1 || cov.DeltaCoverableCount != 1 {
		t.Fatalf("coverage counts = %+v", cov)
	}
	r := cov.Results[0]
	if r.Status != domain.ScenarioShiftOK {
		t.Fatalf("status = %s", r.Status)
	}
	if r.BaselineCoverable || !r.ScenarioCoverable || !r.DeltaCoverable {
		t.Fatalf("coverability = %+v", r)
	}
	if r.ScenarioBestProviderID == nil || *r.ScenarioBestProviderID != "PROV-1" {
		t.Fatalf("scenario_best_provider_id = %v, want PROV-1", r.ScenarioBestProviderID)
	}
	if r.BaselineBestProviderID != nil {
		t.Fatalf("baseline_best_provider_id = %v, want nil", *r.BaselineBestProviderID)
	}
	if len(r.ScenarioChanges) != 1 || !strings.Contains(r.ScenarioChanges[0], "PROV-1 now eligible") {
		t.Fatalf("scenario_changes = %v", r.ScenarioChanges)
	}
}

func TestSimulateUnknownShiftMarkedNotFound(t *testing.T) {
	eng := testEngine()
	snap := singleProviderSnapshot()

	cov, err := eng.Simulate(context.Background(), snap, []string{"SH-1", "SH-404", "SH-2"}, domain.ScenarioAssumptions{})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(cov.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(cov.Results))
	}
	for i, id := range []string{"SH-1", "SH-404", "SH-2"} {
		if cov.Results[i].ShiftID != id {
			t.Fatalf("result %d shift = %s, want %s", i, cov.Results[i].ShiftID, id)
		}
	}
	if cov.Results[1].Status != domain.ScenarioShiftNotFound {
		t.Fatalf("SH-404 status = %s, want NOT_FOUND", cov.Results[1].Status)
	}
	if cov.Results[0].Status != domain.ScenarioShiftOK || cov.Results[2].Status != domain.ScenarioShiftOK {
		t.Fatalf("known shifts should be OK: %+v", cov.Results)
	}
}

func TestSimulateIdempotentAndOrderPreserving(t *testing.T) {
	eng := testEngine()
	snap := singleProviderSnapshot()

	// Enough shifts to keep several workers busy, with unknowns mixed in.
	var ids []string
	for i := 0; i < 40; i++ {
		switch i % 3 {
		case 0:
			ids = append(ids, "SH-1")
		case 1:
			ids = append(ids, "SH-2")
		default:
			ids = append(ids, fmt.Sprintf("SH-missing-%d", i))
		}
	}
	assumptions := domain.ScenarioAssumptions{FixACLS: []string{"PROV-1"}}

	first, err := eng.Simulate(context.Background(), snap, ids, assumptions)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	for i, r := range first.Results {
		if r.ShiftID != ids[i] {
			t.Fatalf("result %d shift = %s, want %s", i, r.ShiftID, ids[i])
		}
	}
	for run := 0; run < 3; run++ {
		again, err := eng.Simulate(context.Background(), snap, ids, assumptions)
		if err != nil {
			t.Fatalf("simulate run %d: %v", run, err)
		}
		if !reflect.DeepEqual(again, first) {
			t.Fatalf("simulate not idempotent on run %d", run)
		}
	}
}

func TestSimulateMonotonicallyFavorable(t *testing.T) {
	eng := testEngine()
	snap := singleProviderSnapshot()
	ids := []string{"SH-1", "SH-2"}

	baselineOnly, err := eng.Simulate(context.Background(), snap, ids, domain.ScenarioAssumptions{})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	withFixes, err := eng.Simulate(context.Background(), snap, ids, domain.ScenarioAssumptions{
		FixACLS:    []string{"PROV-1"},
		FixLicense: []string{"PROV-1"},
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if withFixes.ScenarioCoverableCount < baselineOnly.BaselineCoverableCount {
		t.Fatalf("overrides regressed coverage: %d < %d", withFixes.ScenarioCoverableCount, baselineOnly.BaselineCoverableCount)
	}
	for _, r := range withFixes.Results {
		if r.BaselineCoverable && !r.ScenarioCoverable {
			t.Fatalf("shift %s became uncoverable under overrides", r.ShiftID)
		}
	}
}

func TestSimulateHonorsCancellation(t *testing.T) {
	eng := testEngine()
	snap := singleProviderSnapshot()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = "SH-1"
	}
	if _, err := eng.Simulate(ctx, snap, ids, domain.ScenarioAssumptions{}); err == nil {
		t.Fatalf("expected context error from cancelled simulate")
	}
}
