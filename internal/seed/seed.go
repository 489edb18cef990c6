// Package seed builds a small deterministic demo snapshot: three facilities,
// five providers in assorted credentialing states, and a week of shifts.
package seed

import (
	"context"
	"fmt"
	"time"

	"shiftline/internal/domain"
	"shiftline/internal/repo"
)

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func tsPtr(t time.Time) *string {
	s := ts(t)
	return &s
}

// Apply inserts the demo snapshot. Dates are relative to now so credential
// windows (expiring in 21 days, expired 5 days ago) stay meaningful whenever
// the seed runs.
func Apply(ctx context.Context, r repo.Repo, now time.Time) error {
	day := 24 * time.Hour

	providers := []domain.Provider{
		{ProviderID: "PROV-001", ProviderName: "Alex Morgan", Specialty: "Emergency Medicine", ProviderStatus: "ACTIVE", HomeFacilityID: "FAC-001", HomeFacilityName: "Manhattan General", HiredAt: "2022-06-15"},
		{ProviderID: "PROV-002", ProviderName: "Jordan Lee", Specialty: "Surgery", ProviderStatus: "ACTIVE", HomeFacilityID: "FAC-002", HomeFacilityName: "Brooklyn Community", HiredAt: "2020-02-01"},
		{ProviderID: "PROV-003", ProviderName: "Taylor Kim", Specialty: "Critical Care", ProviderStatus: "ON_LEAVE", HomeFacilityID: "FAC-003", HomeFacilityName: "Queens Regional", HiredAt: "2019-09-20"},
		{ProviderID: "PROV-004", ProviderName: "Riley Chen", Specialty: "Emergency Medicine", ProviderStatus: "ACTIVE", HomeFacilityID: "FAC-001", HomeFacilityName: "Manhattan General", HiredAt: "2021-03-10"},
		{ProviderID: "PROV-005", ProviderName: "Sam Patel", Specialty: "Internal Medicine", ProviderStatus: "ACTIVE", HomeFacilityID: "FAC-002", HomeFacilityName: "Brooklyn Community", HiredAt: "2023-01-05"},
	}
	for _, p := range providers {
		if err := r.InsertProvider(ctx, p); err != nil {
			return fmt.Errorf("seed provider %s: %w", p.ProviderID, err)
		}
	}

	credentials := []domain.CredentialRecord{
		// PROV-001: license expiring in 21 days, ACLS comfortable.
		{EventID: "CRED-001", ProviderID: "PROV-001", CredType: "STATE_LICENSE", CredStatus: "ACTIVE", IssuedAt: tsPtr(now.Add(-700 * day)), ExpiresAt: tsPtr(now.Add(21 * day)), SourceSystem: "state_board"},
		{EventID: "CRED-002", ProviderID: "PROV-001", CredType: "ACLS", CredStatus: "ACTIVE", IssuedAt: tsPtr(now.Add(-660 * day)), ExpiresAt: tsPtr(now.Add(68 * day)), SourceSystem: "aha"},
		// PROV-002: license fine, ACLS expiring in 10 days.
		{EventID: "CRED-003", ProviderID: "PROV-002", CredType: "STATE_LICENSE", CredStatus: "ACTIVE", IssuedAt: tsPtr(now.Add(-610 * day)), ExpiresAt: tsPtr(now.Add(120 * day)), SourceSystem: "state_board"},
		{EventID: "CRED-004", ProviderID: "PROV-002", CredType: "ACLS", CredStatus: "PENDING_REVIEW", IssuedAt: tsPtr(now.Add(-720 * day)), ExpiresAt: tsPtr(now.Add(10 * day)), SourceSystem: "aha"},
		// PROV-003: license expired 5 days ago.
		{EventID: "CRED-005", ProviderID: "PROV-003", CredType: "STATE_LICENSE", CredStatus: "EXPIRED", IssuedAt: tsPtr(now.Add(-735 * day)), ExpiresAt: tsPtr(now.Add(-5 * day)), SourceSystem: "state_board"},
		{EventID: "CRED-006", ProviderID: "PROV-003", CredType: "ACLS", CredStatus: "ACTIVE", IssuedAt: tsPtr(now.Add(-530 * day)), ExpiresAt: tsPtr(now.Add(200 * day)), SourceSystem: "aha"},
		// PROV-004: everything current.
		{EventID: "CRED-007", ProviderID: "PROV-004", CredType: "STATE_LICENSE", CredStatus: "ACTIVE", IssuedAt: tsPtr(now.Add(-365 * day)), ExpiresAt: tsPtr(now.Add(365 * day)), SourceSystem: "state_board"},
		{EventID: "CRED-008", ProviderID: "PROV-004", CredType: "ACLS", CredStatus: "ACTIVE", IssuedAt: tsPtr(now.Add(-365 * day)), ExpiresAt: tsPtr(now.Add(365 * day)), SourceSystem: "aha"},
		// PROV-005: license current, no ACLS record at all.
		{EventID: "CRED-009", ProviderID: "PROV-005", CredType: "STATE_LICENSE", CredStatus: "ACTIVE", IssuedAt: tsPtr(now.Add(-200 * day)), ExpiresAt: tsPtr(now.Add(400 * day)), SourceSystem: "state_board"},
	}
	for _, c := range credentials {
		if err := r.InsertCredential(ctx, c); err != nil {
			return fmt.Errorf("seed credential %s: %w", c.EventID, err)
		}
	}

	privileges := []domain.Privilege{
		{ProviderID: "PROV-001", FacilityID: "FAC-001", FacilityName: "Manhattan General", PrivilegeType: "EMERGENCY", Active: true, GrantedAt: tsPtr(now.Add(-600 * day))},
		{ProviderID: "PROV-001", FacilityID: "FAC-002", FacilityName: "Brooklyn Community", PrivilegeType: "EMERGENCY", Active: true, GrantedAt: tsPtr(now.Add(-300 * day))},
		{ProviderID: "PROV-002", FacilityID: "FAC-002", FacilityName: "Brooklyn Community", PrivilegeType: "SURGERY", Active: true, GrantedAt: tsPtr(now.Add(-500 * day))},
		{ProviderID: "PROV-004", FacilityID: "FAC-001", FacilityName: "Manhattan General", PrivilegeType: "EMERGENCY", Active: true, GrantedAt: tsPtr(now.Add(-200 * day))},
		{ProviderID: "PROV-005", FacilityID: "FAC-002", FacilityName: "Brooklyn Community", PrivilegeType: "HOSPITALIST", Active: true, GrantedAt: tsPtr(now.Add(-100 * day))},
		// Lapsed privilege: kept in the feed but inactive.
		{ProviderID: "PROV-003", FacilityID: "FAC-003", FacilityName: "Queens Regional", PrivilegeType: "ICU", Active: false, GrantedAt: tsPtr(now.Add(-900 * day))},
	}
	for _, p := range privileges {
		if err := r.InsertPrivilege(ctx, p); err != nil {
			return fmt.Errorf("seed privilege %s/%s: %w", p.ProviderID, p.FacilityID, err)
		}
	}

	payers := []domain.PayerEnrollment{
		{ProviderID: "PROV-001", PayerID: "PAYER-01", PayerName: "Medicare", Active: true, EnrolledAt: tsPtr(now.Add(-500 * day))},
		{ProviderID: "PROV-001", PayerID: "PAYER-02", PayerName: "Aetna", Active: true, EnrolledAt: tsPtr(now.Add(-450 * day))},
		{ProviderID: "PROV-002", PayerID: "PAYER-01", PayerName: "Medicare", Active: true, EnrolledAt: tsPtr(now.Add(-600 * day))},
		{ProviderID: "PROV-003", PayerID: "PAYER-01", PayerName: "Medicare", Active: true, EnrolledAt: tsPtr(now.Add(-800 * day))},
		{ProviderID: "PROV-004", PayerID: "PAYER-02", PayerName: "Aetna", Active: true, EnrolledAt: tsPtr(now.Add(-150 * day))},
		// PROV-005 has no active payer enrollment.
		{ProviderID: "PROV-005", PayerID: "PAYER-01", PayerName: "Medicare", Active: false, EnrolledAt: tsPtr(now.Add(-90 * day))},
	}
	for _, p := range payers {
		if err := r.InsertPayerEnrollment(ctx, p); err != nil {
			return fmt.Errorf("seed payer %s/%s: %w", p.ProviderID, p.PayerID, err)
		}
	}

	shifts := []domain.Shift{
		{ShiftID: "SH-1001", FacilityID: "FAC-001", FacilityName: "Manhattan General", StartTS: ts(now.Add(1 * day)), EndTS: ts(now.Add(1*day + 12*time.Hour)), RequiredProcedureCode: "ED_SHIFT", ProcedureName: "Emergency Department", RequiredCount: 2, AssignedCount: 1},
		{ShiftID: "SH-1002", FacilityID: "FAC-001", FacilityName: "Manhattan General", StartTS: ts(now.Add(2 * day)), EndTS: ts(now.Add(2*day + 12*time.Hour)), RequiredProcedureCode: "ED_SHIFT", ProcedureName: "Emergency Department", RequiredCount: 1, AssignedCount: 1},
		{ShiftID: "SH-1003", FacilityID: "FAC-002", FacilityName: "Brooklyn Community", StartTS: ts(now.Add(2 * day)), EndTS: ts(now.Add(2*day + 12*time.Hour)), RequiredProcedureCode: "HOSPITALIST_SHIFT", ProcedureName: "Hospitalist", RequiredCount: 1, AssignedCount: 0},
		{ShiftID: "SH-1004", FacilityID: "FAC-003", FacilityName: "Queens Regional", StartTS: ts(now.Add(3 * day)), EndTS: ts(now.Add(3*day + 12*time.Hour)), RequiredProcedureCode: "ICU_SHIFT", ProcedureName: "Intensive Care", RequiredCount: 2, AssignedCount: 0},
		{ShiftID: "SH-1005", FacilityID: "FAC-002", FacilityName: "Brooklyn Community", StartTS: ts(now.Add(4 * day)), EndTS: ts(now.Add(4*day + 12*time.Hour)), RequiredProcedureCode: "OB_SHIFT", ProcedureName: "Obstetrics", RequiredCount: 1, AssignedCount: 0},
	}
	for _, s := range shifts {
		if err := r.InsertShift(ctx, s); err != nil {
			return fmt.Errorf("seed shift %s: %w", s.ShiftID, err)
		}
	}

	predictions := []domain.ShiftPrediction{
		{ShiftID: "SH-1001", PredictedGapProb: 0.34, PredictedIsGap: false, ScoredAt: ts(now.Add(-6 * time.Hour))},
		{ShiftID: "SH-1003", PredictedGapProb: 0.71, PredictedIsGap: true, ScoredAt: ts(now.Add(-6 * time.Hour))},
		{ShiftID: "SH-1004", PredictedGapProb: 0.92, PredictedIsGap: true, ScoredAt: ts(now.Add(-6 * time.Hour))},
	}
	for _, p := range predictions {
		if err := r.UpsertShiftPrediction(ctx, p); err != nil {
			return fmt.Errorf("seed prediction %s: %w", p.ShiftID, err)
		}
	}
	return nil
}
