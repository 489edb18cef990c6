package engine

import (
	"fmt"
	"strings"
	"time"

	"shiftline/internal/config"
	"shiftline/internal/domain"
)

// Engine evaluates provider eligibility, classifies staffing gaps, and runs
// what-if coverage scenarios over an in-memory snapshot. It holds no storage
// and performs no I/O; callers load the snapshot and persist whatever they
// want of the results.
type Engine struct {
	Config *config.Config
	Now    func() time.Time
}

func New(cfg *config.Config) Engine {
	return Engine{
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Snapshot is the raw warehouse extract an evaluation runs against. Fact
// sheets are derived from it fresh on every evaluation so scenario overrides
// can never leak between calls.
type Snapshot struct {
	Providers   []domain.Provider
	Credentials []domain.CredentialRecord
	Privileges  []domain.Privilege
	Payers      []domain.PayerEnrollment
	Shifts      []domain.Shift
}

func (s Snapshot) shiftByID(id string) (domain.Shift, bool) {
	for _, sh := range s.Shifts {
		if sh.ShiftID == id {
			return sh, true
		}
	}
	return domain.Shift{}, false
}

// validateSnapshot rejects malformed snapshot rows before any evaluation
// runs. A row without an identifier cannot be joined, overridden, or reported
// on, so the whole call fails instead of returning results for a record the
// caller cannot address.
func validateSnapshot(snap Snapshot) error {
	for i, p := range snap.Providers {
		if strings.TrimSpace(p.ProviderID) == "" {
			return fmt.Errorf("provider record %d: missing provider_id", i)
		}
	}
	for i, sh := range snap.Shifts {
		if strings.TrimSpace(sh.ShiftID) == "" {
			return fmt.Errorf("shift record %d: missing shift_id", i)
		}
	}
	return nil
}

// EvaluateShiftEligibility evaluates every provider in the snapshot against
// one shift. A nil assumptions means baseline: nothing suppressed. Malformed
// input (a shift or snapshot row with no identifier) fails the whole call.
func (e Engine) EvaluateShiftEligibility(shift domain.Shift, snap Snapshot, assumptions *domain.ScenarioAssumptions) (domain.ShiftEligibility, error) {
	if strings.TrimSpace(shift.ShiftID) == "" {
		return domain.ShiftEligibility{}, fmt.Errorf("shift: missing shift_id")
	}
	if err := validateSnapshot(snap); err != nil {
		return domain.ShiftEligibility{}, err
	}
	return e.evaluateShift(shift, snap, assumptions), nil
}

// evaluateShift assumes validated input.
func (e Engine) evaluateShift(shift domain.Shift, snap Snapshot, assumptions *domain.ScenarioAssumptions) domain.ShiftEligibility {
	sheets := e.buildFactSheets(snap)
	suppressed := suppressionFor(assumptions)

	out := domain.ShiftEligibility{ShiftID: shift.ShiftID}
	eligibleSheets := make([]domain.ProviderFactSheet, 0, len(sheets))
	for _, fs := range sheets {
		blockers := evaluateBlockers(e.Config, fs, shift.FacilityID, suppressed[fs.ProviderID])
		res := e.explain(fs, blockers)
		if res.IsEligible {
			out.EligibleProviderCount++
			eligibleSheets = append(eligibleSheets, fs)
		}
		out.Providers = append(out.Providers, res)
	}
	out.RecommendedProviders = e.rankEligible(shift, eligibleSheets)
	return out
}

// ExplainProvider evaluates a single provider with no shift context, the view
// credentialing worklists use. The bool reports whether the provider exists
// in the snapshot.
func (e Engine) ExplainProvider(providerID string, snap Snapshot) (domain.EligibilityResult, bool, error) {
	if strings.TrimSpace(providerID) == "" {
		return domain.EligibilityResult{}, false, fmt.Errorf("missing provider_id")
	}
	if err := validateSnapshot(snap); err != nil {
		return domain.EligibilityResult{}, false, err
	}
	for _, fs := range e.buildFactSheets(snap) {
		if fs.ProviderID == providerID {
			blockers := evaluateBlockers(e.Config, fs, "", nil)
			return e.explain(fs, blockers), true, nil
		}
	}
	return domain.EligibilityResult{}, false, nil
}

// ClassifyGap computes the staffing gap and rule-derived risk for one shift.
func (e Engine) ClassifyGap(shift domain.Shift, snap Snapshot) (domain.StaffingGap, error) {
	elig, err := e.EvaluateShiftEligibility(shift, snap, nil)
	if err != nil {
		return domain.StaffingGap{}, err
	}
	return classifyGap(shift, elig.EligibleProviderCount), nil
}

// suppressionFor expands scenario assumptions into per-provider suppressed
// rule classes. The status class never appears here: STATUS_INACTIVE cannot
// be assumed away.
func suppressionFor(a *domain.ScenarioAssumptions) map[string]classSet {
	if a == nil {
		return nil
	}
	out := map[string]classSet{}
	add := func(ids []string, class ruleClass) {
		for _, id := range ids {
			if out[id] == nil {
				out[id] = classSet{}
			}
			out[id][class] = true
		}
	}
	add(a.FixLicense, classLicense)
	add(a.FixACLS, classACLS)
	add(a.AssumePrivilege, classPrivilege)
	add(a.AssumePayer, classPayer)
	return out
}
