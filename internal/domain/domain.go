package domain

// Blocker kinds, in evaluation order. STATUS_INACTIVE can never be suppressed
// by a scenario override and carries no remediation lead time.
type BlockerKind string

const (
	BlockerStatusInactive    BlockerKind = "STATUS_INACTIVE"
	BlockerLicenseExpired    BlockerKind = "LICENSE_EXPIRED"
	BlockerLicenseExpiring   BlockerKind = "LICENSE_EXPIRING"
	BlockerACLSExpired       BlockerKind = "ACLS_EXPIRED"
	BlockerACLSExpiring      BlockerKind = "ACLS_EXPIRING"
	BlockerNoPrivilege       BlockerKind = "NO_PRIVILEGE"
	BlockerNoPayerEnrollment BlockerKind = "NO_PAYER_ENROLLMENT"
)

// BlockerKinds lists every kind in declaration order.
func BlockerKinds() []BlockerKind {
	return []BlockerKind{
		BlockerStatusInactive,
		BlockerLicenseExpired,
		BlockerLicenseExpiring,
		BlockerACLSExpired,
		BlockerACLSExpiring,
		BlockerNoPrivilege,
		BlockerNoPayerEnrollment,
	}
}

type Provider struct {
	ProviderID       string `json:"provider_id"`
	ProviderName     string `json:"provider_name"`
	Specialty        string `json:"specialty,omitempty"`
	ProviderStatus   string `json:"provider_status" enum:"ACTIVE,INACTIVE,ON_LEAVE"`
	HomeFacilityID   string `json:"home_facility_id,omitempty"`
	HomeFacilityName string `json:"home_facility_name,omitempty"`
	HiredAt          string `json:"hired_at,omitempty" format:"date-time"`
}

type CredentialRecord struct {
	EventID      string  `json:"event_id"`
	ProviderID   string  `json:"provider_id"`
	CredType     string  `json:"cred_type" enum:"STATE_LICENSE,ACLS,DEA,BOARD_CERT"`
	CredStatus   string  `json:"cred_status,omitempty"`
	IssuedAt     *string `json:"issued_at,omitempty" format:"date-time"`
	ExpiresAt    *string `json:"expires_at,omitempty" format:"date-time"`
	VerifiedAt   *string `json:"verified_at,omitempty" format:"date-time"`
	SourceSystem string  `json:"source_system,omitempty"`
}

type Privilege struct {
	ProviderID    string  `json:"provider_id"`
	FacilityID    string  `json:"facility_id"`
	FacilityName  string  `json:"facility_name,omitempty"`
	PrivilegeType string  `json:"privilege_type,omitempty"`
	Active        bool    `json:"active"`
	GrantedAt     *string `json:"granted_at,omitempty" format:"date-time"`
	ExpiresAt     *string `json:"expires_at,omitempty" format:"date-time"`
}

type PayerEnrollment struct {
	ProviderID string  `json:"provider_id"`
	PayerID    string  `json:"payer_id"`
	PayerName  string  `json:"payer_name,omitempty"`
	Active     bool    `json:"active"`
	EnrolledAt *string `json:"enrolled_at,omitempty" format:"date-time"`
}

type Shift struct {
	ShiftID               string `json:"shift_id"`
	FacilityID            string `json:"facility_id"`
	FacilityName          string `json:"facility_name,omitempty"`
	StartTS               string `json:"start_ts" format:"date-time"`
	EndTS                 string `json:"end_ts" format:"date-time"`
	RequiredProcedureCode string `json:"required_procedure_code,omitempty"`
	ProcedureName         string `json:"procedure_name,omitempty"`
	RequiredCount         int    `json:"required_count"`
	AssignedCount         int    `json:"assigned_count"`
}

// ShiftPrediction is the upstream model's gap estimate for a shift. It is a
// read-only signal surfaced next to the rule-derived risk, never blended in.
type ShiftPrediction struct {
	ShiftID          string  `json:"shift_id"`
	PredictedGapProb float64 `json:"predicted_gap_prob"`
	PredictedIsGap   bool    `json:"predicted_is_gap"`
	ScoredAt         string  `json:"scored_at" format:"date-time"`
}

// ProviderFactSheet is the resolved per-provider view the evaluator consumes:
// latest credential state, active privilege and payer counts, as of a single
// evaluation instant. Days-left pointers are nil when the underlying
// expiration is unknown.
type ProviderFactSheet struct {
	ProviderID              string         `json:"provider_id"`
	ProviderName            string         `json:"provider_name"`
	Specialty               string         `json:"specialty,omitempty"`
	ProviderStatus          string         `json:"provider_status"`
	HomeFacilityID          string         `json:"home_facility_id,omitempty"`
	LicenseStatus           *string        `json:"state_license_status,omitempty"`
	LicenseDaysLeft         *int           `json:"state_license_days_left,omitempty"`
	ACLSStatus              *string        `json:"acls_status,omitempty"`
	ACLSDaysLeft            *int           `json:"acls_days_left,omitempty"`
	ActivePrivilegeCount    int            `json:"active_privilege_count"`
	ActivePayerCount        int            `json:"active_payer_count"`
	PrivilegeFacilityCounts map[string]int `json:"-"`
}

// EligibilityResult explains one provider against one shift. Blockers and
// WhyNot carry the same tags in the same stable order (WhyNot as plain
// strings for UI truncation); WhyEligible holds the positive facts and is
// never empty for an eligible provider.
type EligibilityResult struct {
	ProviderID      string        `json:"provider_id"`
	ProviderName    string        `json:"provider_name,omitempty"`
	IsEligible      bool          `json:"is_eligible"`
	Blockers        []BlockerKind `json:"blockers"`
	WhyEligible     []string      `json:"why_eligible,omitempty"`
	WhyNot          []string      `json:"why_not,omitempty"`
	TimeToReadyDays *int          `json:"time_to_ready_days,omitempty"`
}

type ShiftEligibility struct {
	ShiftID               string              `json:"shift_id"`
	EligibleProviderCount int                 `json:"eligible_provider_count"`
	RecommendedProviders  []string            `json:"recommended_providers"`
	Providers             []EligibilityResult `json:"providers"`
}

type StaffingGap struct {
	ShiftID               string           `json:"shift_id"`
	FacilityID            string           `json:"facility_id"`
	FacilityName          string           `json:"facility_name,omitempty"`
	StartTS               string           `json:"start_ts" format:"date-time"`
	EndTS                 string           `json:"end_ts" format:"date-time"`
	RequiredProcedureCode string           `json:"required_procedure_code,omitempty"`
	RequiredCount         int              `json:"required_count"`
	AssignedCount         int              `json:"assigned_count"`
	EligibleProviderCount int              `json:"eligible_provider_count"`
	GapCount              int              `json:"gap_count"`
	RiskLevel             string           `json:"risk_level" enum:"HIGH,MEDIUM,LOW"`
	RiskReason            string           `json:"risk_reason"`
	Coverable             bool             `json:"coverable"`
	Prediction            *ShiftPrediction `json:"prediction,omitempty"`
}

// ScenarioAssumptions name providers whose blockers a what-if run suppresses,
// one set per suppressible rule class.
type ScenarioAssumptions struct {
	FixLicense      []string `json:"fix_license,omitempty"`
	FixACLS         []string `json:"fix_acls,omitempty"`
	AssumePrivilege []string `json:"assume_privilege,omitempty"`
	AssumePayer     []string `json:"assume_payer,omitempty"`
}

const (
	ScenarioShiftOK       = "OK"
	ScenarioShiftNotFound = "NOT_FOUND"
)

type ScenarioShiftResult struct {
	ShiftID                string   `json:"shift_id"`
	Status                 string   `json:"status" enum:"OK,NOT_FOUND"`
	BaselineCoverable      bool     `json:"baseline_coverable"`
	ScenarioCoverable      bool     `json:"scenario_coverable"`
	DeltaCoverable         bool     `json:"delta_coverable"`
	BaselineEligibleCount  int      `json:"baseline_eligible_count"`
	ScenarioEligibleCount  int      `json:"scenario_eligible_count"`
	BaselineBestProviderID *string  `json:"baseline_best_provider_id,omitempty"`
	ScenarioBestProviderID *string  `json:"scenario_best_provider_id,omitempty"`
	ScenarioChanges        []string `json:"scenario_changes,omitempty"`
}

// ScenarioCoverage is a pure function of the snapshot and assumptions;
// re-running with identical input yields an identical value.
type ScenarioCoverage struct {
	ShiftCount             int                   `json:"shift_count"`
	BaselineCoverableCount int                   `json:"baseline_coverable_count"`
	ScenarioCoverableCount int                   `json:"scenario_coverable_count"`
	DeltaCoverableCount    int                   `json:"delta_coverable_count"`
	Results                []ScenarioShiftResult `json:"results"`
}

// CredentialRisk is a worklist row: one tracked credential and how close it
// is to expiring. RiskBucket is one of EXPIRED, 0-14, 15-30, 31-90, >90.
type CredentialRisk struct {
	ProviderID   string `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	CredType     string `json:"cred_type"`
	DaysLeft     *int   `json:"days_left,omitempty"`
	RiskBucket   string `json:"risk_bucket" enum:"EXPIRED,0-14,15-30,31-90,>90"`
}

type RiskAction struct {
	ActionID   string  `json:"action_id"`
	ActionType string  `json:"action_type" enum:"OUTREACH,CREDENTIAL_EXPEDITE,PRIVILEGE_REQUEST,PAYER_ENROLLMENT_FOLLOWUP"`
	Status     string  `json:"status" enum:"OPEN,IN_PROGRESS,RESOLVED"`
	ShiftID    *string `json:"shift_id,omitempty"`
	ProviderID *string `json:"provider_id,omitempty"`
	Note       string  `json:"note,omitempty"`
	CreatedBy  string  `json:"created_by"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	UpdatedAt  string  `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
