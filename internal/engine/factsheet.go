package engine

import (
	"time"

	"shiftline/internal/domain"
)

// Credential types the evaluator resolves. Other types in the feed (DEA,
// board certs) pass through the snapshot untouched.
const (
	credStateLicense = "STATE_LICENSE"
	credACLS         = "ACLS"
)

// BuildFactSheets resolves the raw snapshot into one fact sheet per provider:
// the latest record per tracked credential type, days until expiration as of
// the engine clock, and active privilege/payer counts. Providers appear in
// snapshot order. It fails only on malformed input: a record without an
// identifier cannot be addressed by any downstream join or override.
func (e Engine) BuildFactSheets(snap Snapshot) ([]domain.ProviderFactSheet, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}
	return e.buildFactSheets(snap), nil
}

// buildFactSheets assumes a validated snapshot.
func (e Engine) buildFactSheets(snap Snapshot) []domain.ProviderFactSheet {
	today := dateOnly(e.now().UTC())

	latest := map[string]map[string]domain.CredentialRecord{}
	for _, rec := range snap.Credentials {
		if rec.CredType != credStateLicense && rec.CredType != credACLS {
			continue
		}
		byType := latest[rec.ProviderID]
		if byType == nil {
			byType = map[string]domain.CredentialRecord{}
			latest[rec.ProviderID] = byType
		}
		cur, ok := byType[rec.CredType]
		if !ok || newerCredential(rec, cur) {
			byType[rec.CredType] = rec
		}
	}

	privTotals := map[string]int{}
	privByFacility := map[string]map[string]int{}
	for _, p := range snap.Privileges {
		if !p.Active {
			continue
		}
		privTotals[p.ProviderID]++
		if privByFacility[p.ProviderID] == nil {
			privByFacility[p.ProviderID] = map[string]int{}
		}
		privByFacility[p.ProviderID][p.FacilityID]++
	}

	payerTotals := map[string]int{}
	for _, p := range snap.Payers {
		if p.Active {
			payerTotals[p.ProviderID]++
		}
	}

	out := make([]domain.ProviderFactSheet, 0, len(snap.Providers))
	for _, prov := range snap.Providers {
		fs := domain.ProviderFactSheet{
			ProviderID:              prov.ProviderID,
			ProviderName:            prov.ProviderName,
			Specialty:               prov.Specialty,
			ProviderStatus:          prov.ProviderStatus,
			HomeFacilityID:          prov.HomeFacilityID,
			ActivePrivilegeCount:    privTotals[prov.ProviderID],
			ActivePayerCount:        payerTotals[prov.ProviderID],
			PrivilegeFacilityCounts: privByFacility[prov.ProviderID],
		}
		if rec, ok := latest[prov.ProviderID][credStateLicense]; ok {
			fs.LicenseStatus = optionalCredStatus(rec)
			fs.LicenseDaysLeft = daysLeft(today, rec.ExpiresAt)
		}
		if rec, ok := latest[prov.ProviderID][credACLS]; ok {
			fs.ACLSStatus = optionalCredStatus(rec)
			fs.ACLSDaysLeft = daysLeft(today, rec.ExpiresAt)
		}
		out = append(out, fs)
	}
	return out
}

// newerCredential reports whether a should replace b as the latest record:
// later issued_at wins, then later expires_at, then event id for a stable
// outcome on duplicate feeds.
func newerCredential(a, b domain.CredentialRecord) bool {
	at, aok := parseTS(a.IssuedAt)
	bt, bok := parseTS(b.IssuedAt)
	switch {
	case aok && bok && !at.Equal(bt):
		return at.After(bt)
	case aok != bok:
		return aok
	}
	at, aok = parseTS(a.ExpiresAt)
	bt, bok = parseTS(b.ExpiresAt)
	switch {
	case aok && bok && !at.Equal(bt):
		return at.After(bt)
	case aok != bok:
		return aok
	}
	return a.EventID > b.EventID
}

func optionalCredStatus(rec domain.CredentialRecord) *string {
	if rec.CredStatus == "" {
		return nil
	}
	s := rec.CredStatus
	return &s
}

// daysLeft returns calendar days from today until expiration, negative when
// already expired, nil when the expiration is unknown.
func daysLeft(today time.Time, expiresAt *string) *int {
	exp, ok := parseTS(expiresAt)
	if !ok {
		return nil
	}
	d := int(dateOnly(exp.UTC()).Sub(today).Hours() / 24)
	return &d
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseTS accepts RFC3339 or bare dates, the two formats the feed emits.
func parseTS(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", *s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
