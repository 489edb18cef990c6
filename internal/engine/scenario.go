package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"shiftline/internal/domain"
)

// Simulate runs baseline and scenario eligibility over a batch of shifts and
// diffs the outcomes. Shifts are independent, so the batch fans out across a
// bounded worker pool; results land in a slice indexed by input position so
// the output order always matches shiftIDs regardless of completion order.
// Cancellation is honored between shifts, never mid-shift. Cost is linear in
// len(shiftIDs) x len(snap.Providers); the caller bounds the batch size.
func (e Engine) Simulate(ctx context.Context, snap Snapshot, shiftIDs []string, assumptions domain.ScenarioAssumptions) (domain.ScenarioCoverage, error) {
	if err := validateSnapshot(snap); err != nil {
		return domain.ScenarioCoverage{}, err
	}
	// An unknown id is a per-shift NOT_FOUND result; an empty one is a
	// malformed request and fails the whole batch.
	for i, id := range shiftIDs {
		if strings.TrimSpace(id) == "" {
			return domain.ScenarioCoverage{}, fmt.Errorf("shift id %d: missing shift_id", i)
		}
	}

	results := make([]domain.ScenarioShiftResult, len(shiftIDs))

	workers := e.Config.Scenario.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(shiftIDs) {
		workers = len(shiftIDs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = e.simulateShift(snap, shiftIDs[idx], assumptions)
			}
		}()
	}

	var cancelErr error
feed:
	for i := range shiftIDs {
		select {
		case <-ctx.Done():
			cancelErr = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	if cancelErr != nil {
		return domain.ScenarioCoverage{}, cancelErr
	}

	cov := domain.ScenarioCoverage{
		ShiftCount: len(results),
		Results:    results,
	}
	for _, r := range results {
		if r.BaselineCoverable {
			cov.BaselineCoverableCount++
		}
		if r.ScenarioCoverable {
			cov.ScenarioCoverableCount++
		}
		if r.DeltaCoverable {
			cov.DeltaCoverableCount++
		}
	}
	return cov, nil
}

func (e Engine) simulateShift(snap Snapshot, shiftID string, assumptions domain.ScenarioAssumptions) domain.ScenarioShiftResult {
	res := domain.ScenarioShiftResult{ShiftID: shiftID, Status: domain.ScenarioShiftOK}
	shift, ok := snap.shiftByID(shiftID)
	if !ok {
		res.Status = domain.ScenarioShiftNotFound
		return res
	}

	baseline := e.evaluateShift(shift, snap, nil)
	scenario := e.evaluateShift(shift, snap, &assumptions)

	res.BaselineEligibleCount = baseline.EligibleProviderCount
	res.ScenarioEligibleCount = scenario.EligibleProviderCount
	res.BaselineCoverable = coverable(shift, baseline.EligibleProviderCount)
	res.ScenarioCoverable = coverable(shift, scenario.EligibleProviderCount)
	res.DeltaCoverable = res.ScenarioCoverable && !res.BaselineCoverable
	res.BaselineBestProviderID = firstOrNil(baseline.RecommendedProviders)
	res.ScenarioBestProviderID = firstOrNil(scenario.RecommendedProviders)
	res.ScenarioChanges = describeChanges(baseline, scenario)
	return res
}

// describeChanges names each provider the overrides unblocked for this shift
// and which blockers were cleared.
func describeChanges(baseline, scenario domain.ShiftEligibility) []string {
	before := map[string]domain.EligibilityResult{}
	for _, r := range baseline.Providers {
		before[r.ProviderID] = r
	}
	var notes []string
	for _, after := range scenario.Providers {
		if !after.IsEligible {
			continue
		}
		b, ok := before[after.ProviderID]
		if !ok || b.IsEligible {
			continue
		}
		cleared := make([]string, 0, len(b.Blockers))
		for _, kind := range b.Blockers {
			cleared = append(cleared, string(kind))
		}
		notes = append(notes, fmt.Sprintf("%s now eligible (cleared %s)", after.ProviderID, strings.Join(cleared, ", ")))
	}
	return notes
}

func firstOrNil(ids []string) *string {
	if len(ids) == 0 {
		return nil
	}
	id := ids[0]
	return &id
}
