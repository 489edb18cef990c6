package shiftlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Shiftline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Provider is the API provider listing model (partial).
type Provider struct {
	ProviderID           string  `json:"provider_id"`
	ProviderName         string  `json:"provider_name"`
	Specialty            string  `json:"specialty"`
	ProviderStatus       string  `json:"provider_status"`
	StateLicenseDaysLeft *int    `json:"state_license_days_left,omitempty"`
	ACLSDaysLeft         *int    `json:"acls_days_left,omitempty"`
	ActivePrivilegeCount int     `json:"active_privilege_count"`
	ActivePayerCount     int     `json:"active_payer_count"`
	HomeFacilityID       string  `json:"home_facility_id,omitempty"`
	StateLicenseStatus   *string `json:"state_license_status,omitempty"`
}

// StaffingGap is one shift's gap and rule-derived risk.
type StaffingGap struct {
	ShiftID               string `json:"shift_id"`
	FacilityID            string `json:"facility_id"`
	StartTS               string `json:"start_ts"`
	RequiredCount         int    `json:"required_count"`
	AssignedCount         int    `json:"assigned_count"`
	EligibleProviderCount int    `json:"eligible_provider_count"`
	GapCount              int    `json:"gap_count"`
	RiskLevel             string `json:"risk_level"`
	RiskReason            string `json:"risk_reason"`
	Coverable             bool   `json:"coverable"`
}

// EligibilityResult explains one provider against a shift.
type EligibilityResult struct {
	ProviderID      string   `json:"provider_id"`
	ProviderName    string   `json:"provider_name,omitempty"`
	IsEligible      bool     `json:"is_eligible"`
	Blockers        []string `json:"blockers"`
	WhyEligible     []string `json:"why_eligible,omitempty"`
	WhyNot          []string `json:"why_not,omitempty"`
	TimeToReadyDays *int     `json:"time_to_ready_days,omitempty"`
}

// ShiftEligibility is the full per-shift explanation.
type ShiftEligibility struct {
	ShiftID               string              `json:"shift_id"`
	EligibleProviderCount int                 `json:"eligible_provider_count"`
	RecommendedProviders  []string            `json:"recommended_providers"`
	Providers             []EligibilityResult `json:"providers"`
}

// ScenarioAssumptions name the providers whose blockers a what-if run clears.
type ScenarioAssumptions struct {
	FixLicense      []string `json:"fix_license,omitempty"`
	FixACLS         []string `json:"fix_acls,omitempty"`
	AssumePrivilege []string `json:"assume_privilege,omitempty"`
	AssumePayer     []string `json:"assume_payer,omitempty"`
}

// ScenarioShiftResult compares one shift's baseline and scenario coverage.
type ScenarioShiftResult struct {
	ShiftID           string   `json:"shift_id"`
	Status            string   `json:"status"`
	BaselineCoverable bool     `json:"baseline_coverable"`
	ScenarioCoverable bool     `json:"scenario_coverable"`
	DeltaCoverable    bool     `json:"delta_coverable"`
	ScenarioChanges   []string `json:"scenario_changes,omitempty"`
}

// ScenarioCoverage is the simulation response.
type ScenarioCoverage struct {
	RunID                  string                `json:"run_id"`
	ShiftCount             int                   `json:"shift_count"`
	BaselineCoverableCount int                   `json:"baseline_coverable_count"`
	ScenarioCoverableCount int                   `json:"scenario_coverable_count"`
	DeltaCoverableCount    int                   `json:"delta_coverable_count"`
	Results                []ScenarioShiftResult `json:"results"`
}

// RiskAction is one mitigation ledger entry.
type RiskAction struct {
	ActionID   string  `json:"action_id"`
	ActionType string  `json:"action_type"`
	Status     string  `json:"status"`
	ShiftID    *string `json:"shift_id,omitempty"`
	ProviderID *string `json:"provider_id,omitempty"`
	Note       string  `json:"note,omitempty"`
	CreatedBy  string  `json:"created_by"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Health checks the API.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "v1/health", nil, nil)
}

// ListProviders returns providers with resolved credential posture.
func (c *Client) ListProviders(ctx context.Context, query string) ([]Provider, error) {
	endpoint := "v1/providers"
	if query != "" {
		endpoint += "?q=" + url.QueryEscape(query)
	}
	var resp page[Provider]
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// StaffingGaps returns gaps, optionally filtered to one risk level.
func (c *Client) StaffingGaps(ctx context.Context, riskLevel string) ([]StaffingGap, error) {
	endpoint := "v1/staffing_gaps"
	if riskLevel != "" {
		endpoint += "?risk_level=" + url.QueryEscape(riskLevel)
	}
	var resp page[StaffingGap]
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// ExplainShift returns the per-provider eligibility breakdown for a shift.
func (c *Client) ExplainShift(ctx context.Context, shiftID string) (ShiftEligibility, error) {
	var resp ShiftEligibility
	endpoint := fmt.Sprintf("v1/shifts/%s/eligibility_explain", url.PathEscape(shiftID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Recommendations returns the ranked provider ids for a shift.
func (c *Client) Recommendations(ctx context.Context, shiftID string) ([]string, error) {
	var resp struct {
		RecommendedProviders []string `json:"recommended_providers"`
	}
	endpoint := fmt.Sprintf("v1/shifts/%s/recommendations", url.PathEscape(shiftID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.RecommendedProviders, err
}

// SimulateCoverage runs a what-if coverage scenario.
func (c *Client) SimulateCoverage(ctx context.Context, shiftIDs []string, assumptions ScenarioAssumptions) (ScenarioCoverage, error) {
	body := map[string]any{
		"shift_ids":   shiftIDs,
		"assumptions": assumptions,
	}
	var resp ScenarioCoverage
	err := c.do(ctx, http.MethodPost, "v1/scenario/coverage", body, &resp)
	return resp, err
}

// CreateAction logs a mitigation action.
func (c *Client) CreateAction(ctx context.Context, actionType, shiftID, providerID, note string) (RiskAction, error) {
	body := map[string]any{
		"action_type": actionType,
		"note":        note,
	}
	if shiftID != "" {
		body["shift_id"] = shiftID
	}
	if providerID != "" {
		body["provider_id"] = providerID
	}
	var resp RiskAction
	err := c.do(ctx, http.MethodPost, "v1/actions", body, &resp)
	return resp, err
}

// UpdateAction updates an action's status or note.
func (c *Client) UpdateAction(ctx context.Context, actionID, status, note string) (RiskAction, error) {
	body := map[string]any{}
	if status != "" {
		body["status"] = status
	}
	if note != "" {
		body["note"] = note
	}
	var resp RiskAction
	endpoint := fmt.Sprintf("v1/actions/%s", url.PathEscape(actionID))
	err := c.do(ctx, http.MethodPatch, endpoint, body, &resp)
	return resp, err
}

// ListActions returns mitigation actions, optionally filtered by status.
func (c *Client) ListActions(ctx context.Context, status string) ([]RiskAction, error) {
	endpoint := "v1/actions"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp page[RiskAction]
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
