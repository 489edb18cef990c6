package server

import (
	"shiftline/internal/domain"
)

// ProviderRow is the list/detail view of a provider: the reference entity
// joined with its resolved credentialing posture.
type ProviderRow struct {
	ProviderID           string  `json:"provider_id"`
	ProviderName         string  `json:"provider_name"`
	Specialty            string  `json:"specialty,omitempty"`
	ProviderStatus       string  `json:"provider_status"`
	HomeFacilityID       string  `json:"home_facility_id,omitempty"`
	HomeFacilityName     string  `json:"home_facility_name,omitempty"`
	HiredAt              string  `json:"hired_at,omitempty"`
	StateLicenseStatus   *string `json:"state_license_status,omitempty"`
	StateLicenseDaysLeft *int    `json:"state_license_days_left,omitempty"`
	ACLSStatus           *string `json:"acls_status,omitempty"`
	ACLSDaysLeft         *int    `json:"acls_days_left,omitempty"`
	ActivePrivilegeCount int     `json:"active_privilege_count"`
	ActivePayerCount     int     `json:"active_payer_count"`
}

func providerRow(p domain.Provider, fs *domain.ProviderFactSheet) ProviderRow {
	row := ProviderRow{
		ProviderID:       p.ProviderID,
		ProviderName:     p.ProviderName,
		Specialty:        p.Specialty,
		ProviderStatus:   p.ProviderStatus,
		HomeFacilityID:   p.HomeFacilityID,
		HomeFacilityName: p.HomeFacilityName,
		HiredAt:          p.HiredAt,
	}
	if fs != nil {
		row.StateLicenseStatus = fs.LicenseStatus
		row.StateLicenseDaysLeft = fs.LicenseDaysLeft
		row.ACLSStatus = fs.ACLSStatus
		row.ACLSDaysLeft = fs.ACLSDaysLeft
		row.ActivePrivilegeCount = fs.ActivePrivilegeCount
		row.ActivePayerCount = fs.ActivePayerCount
	}
	return row
}

type ProvidersPageResponse struct {
	Items    []ProviderRow `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type ProviderDetailResponse struct {
	Provider    ProviderRow               `json:"provider"`
	Credentials []domain.CredentialRecord `json:"credentials"`
	Eligibility domain.EligibilityResult  `json:"eligibility"`
}

type StaffingGapsPageResponse struct {
	Items    []domain.StaffingGap `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

type ScenarioCoverageRequest struct {
	ShiftIDs    []string                   `json:"shift_ids" minItems:"1"`
	Assumptions domain.ScenarioAssumptions `json:"assumptions"`
}

// ScenarioCoverageResponse stamps the audited run id onto the simulation
// result. The coverage itself is deterministic; the id is not.
type ScenarioCoverageResponse struct {
	RunID string `json:"run_id" format:"uuid"`
	domain.ScenarioCoverage
}

type RecommendationsResponse struct {
	ShiftID               string   `json:"shift_id"`
	EligibleProviderCount int      `json:"eligible_provider_count"`
	RecommendedProviders  []string `json:"recommended_providers"`
}

type CreateActionRequest struct {
	ActionType string  `json:"action_type" enum:"OUTREACH,CREDENTIAL_EXPEDITE,PRIVILEGE_REQUEST,PAYER_ENROLLMENT_FOLLOWUP"`
	ShiftID    *string `json:"shift_id,omitempty"`
	ProviderID *string `json:"provider_id,omitempty"`
	Note       string  `json:"note,omitempty"`
}

type UpdateActionRequest struct {
	Status *string `json:"status,omitempty" enum:"OPEN,IN_PROGRESS,RESOLVED"`
	Note   *string `json:"note,omitempty"`
}

type ActionsPageResponse struct {
	Items    []domain.RiskAction `json:"items"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

type UncoverableShiftsResponse struct {
	Items []domain.StaffingGap `json:"items"`
}

type ExpiringCredentialsResponse struct {
	Items []domain.CredentialRisk `json:"items"`
}

type BlockedProvidersResponse struct {
	Items []domain.EligibilityResult `json:"items"`
}

var validActionTypes = map[string]bool{
	"OUTREACH":                  true,
	"CREDENTIAL_EXPEDITE":       true,
	"PRIVILEGE_REQUEST":         true,
	"PAYER_ENROLLMENT_FOLLOWUP": true,
}

var validActionStatuses = map[string]bool{
	"OPEN":        true,
	"IN_PROGRESS": true,
	"RESOLVED":    true,
}
