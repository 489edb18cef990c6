package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"shiftline/internal/config"
	"shiftline/internal/db"
	"shiftline/internal/domain"
	"shiftline/internal/engine"
	"shiftline/internal/events"
	"shiftline/internal/migrate"
	"shiftline/internal/repo"
	"shiftline/internal/seed"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn}
	if err := seed.Apply(context.Background(), r, time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	handler, err := New(Config{
		Engine:   engine.New(config.Default()),
		Repo:     r,
		Events:   events.Writer{DB: conn},
		BasePath: "/v1",
		Auth:     AuthConfig{AllowLegacyActorHeader: true},
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func actorHeaders() map[string]string {
	return map[string]string{"X-Actor-Id": "tester"}
}

func TestHealthRequiresNoAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/providers", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("expected code unauthorized, got %q", envelope.Error.Code)
	}
}

func TestListProviders(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/providers", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list providers status %d: %s", res.StatusCode, string(data))
	}
	var page ProvidersPageResponse
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("expected 5 providers, got %d", page.Total)
	}
	var alex *ProviderRow
	for i := range page.Items {
		if page.Items[i].ProviderID == "PROV-001" {
			alex = &page.Items[i]
		}
	}
	if alex == nil {
		t.Fatal("PROV-001 missing from listing")
	}
	if alex.StateLicenseDaysLeft == nil {
		t.Fatal("expected resolved license days for PROV-001")
	}
	if got := *alex.StateLicenseDaysLeft; got < 20 || got > 21 {
		t.Fatalf("expected ~21 license days left, got %d", got)
	}
	if alex.ActivePrivilegeCount != 2 {
		t.Fatalf("expected 2 active privileges, got %d", alex.ActivePrivilegeCount)
	}
}

func TestProviderDetailExplainsIneligibility(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/providers/PROV-003", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("provider detail status %d: %s", res.StatusCode, string(data))
	}
	var detail ProviderDetailResponse
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if detail.Eligibility.IsEligible {
		t.Fatal("PROV-003 is on leave with an expired license, must be ineligible")
	}
	found := false
	for _, tag := range detail.Eligibility.WhyNot {
		if tag == "STATUS_INACTIVE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected STATUS_INACTIVE in why_not, got %v", detail.Eligibility.WhyNot)
	}
	if detail.Eligibility.TimeToReadyDays != nil {
		t.Fatalf("status blocker has no remediation path, got time_to_ready %d", *detail.Eligibility.TimeToReadyDays)
	}
	if len(detail.Credentials) != 2 {
		t.Fatalf("expected 2 credential records, got %d", len(detail.Credentials))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/providers/PROV-404", nil, actorHeaders())
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown provider, got %d: %s", res.StatusCode, string(data))
	}
}

func TestStaffingGapsRiskFilter(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/staffing_gaps?risk_level=HIGH", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("staffing gaps status %d: %s", res.StatusCode, string(data))
	}
	var page StaffingGapsPageResponse
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal gaps: %v", err)
	}
	byShift := map[string]domain.StaffingGap{}
	for _, g := range page.Items {
		if g.RiskLevel != "HIGH" {
			t.Fatalf("risk filter leaked %s with level %s", g.ShiftID, g.RiskLevel)
		}
		byShift[g.ShiftID] = g
	}
	gap, ok := byShift["SH-1003"]
	if !ok {
		t.Fatalf("SH-1003 has no eligible providers and must be HIGH, got shifts %v", page.Items)
	}
	if gap.Coverable {
		t.Fatal("SH-1003 must not be coverable at baseline")
	}
	if gap.Prediction == nil || !gap.Prediction.PredictedIsGap {
		t.Fatal("expected the upstream gap prediction attached to SH-1003")
	}
}

func TestShiftRecommendations(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/shifts/SH-1001/recommendations", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("recommendations status %d: %s", res.StatusCode, string(data))
	}
	var rec RecommendationsResponse
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal recommendations: %v", err)
	}
	// Only PROV-004 is clean: PROV-001 has an expiring license, the rest
	// are blocked or unprivileged at FAC-001.
	if rec.EligibleProviderCount != 1 {
		t.Fatalf("expected 1 eligible provider, got %d", rec.EligibleProviderCount)
	}
	if len(rec.RecommendedProviders) != 1 || rec.RecommendedProviders[0] != "PROV-004" {
		t.Fatalf("expected [PROV-004], got %v", rec.RecommendedProviders)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/shifts/SH-9999/recommendations", nil, actorHeaders())
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown shift, got %d: %s", res.StatusCode, string(data))
	}
}

func TestScenarioCoverage(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	body := map[string]any{
		"shift_ids": []string{"SH-1003"},
		"assumptions": map[string]any{
			"fix_license": []string{"PROV-001"},
		},
	}
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/scenario/coverage", body, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("scenario status %d: %s", res.StatusCode, string(data))
	}
	var cov ScenarioCoverageResponse
	if err := json.Unmarshal(data, &cov); err != nil {
		t.Fatalf("unmarshal coverage: %v", err)
	}
	if cov.RunID == "" {
		t.Fatal("expected a run id")
	}
	if cov.BaselineCoverableCount != 0 || cov.ScenarioCoverableCount != 1 || cov.DeltaCoverableCount != 1 {
		t.Fatalf("expected 0/1/1 coverable counts, got %d/%d/%d",
			cov.BaselineCoverableCount, cov.ScenarioCoverableCount, cov.DeltaCoverableCount)
	}
	if len(cov.Results) != 1 || !cov.Results[0].DeltaCoverable {
		t.Fatalf("expected a single delta-coverable result, got %v", cov.Results)
	}

	// Re-running the same request yields the same coverage; only the run
	// id differs.
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/scenario/coverage", body, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("scenario rerun status %d: %s", res.StatusCode, string(data))
	}
	var rerun ScenarioCoverageResponse
	if err := json.Unmarshal(data, &rerun); err != nil {
		t.Fatalf("unmarshal rerun: %v", err)
	}
	if rerun.DeltaCoverableCount != cov.DeltaCoverableCount || len(rerun.Results) != len(cov.Results) {
		t.Fatal("rerun diverged from the first run")
	}
}

func TestScenarioCoverageShiftLimit(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	ids := make([]string, 201)
	for i := range ids {
		ids[i] = "SH-1001"
	}
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/scenario/coverage", map[string]any{
		"shift_ids": ids,
	}, actorHeaders())
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 over the shift limit, got %d: %s", res.StatusCode, string(data))
	}

	// A blank shift id is malformed input and fails the whole batch.
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/scenario/coverage", map[string]any{
		"shift_ids": []string{"SH-1001", ""},
	}, actorHeaders())
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a blank shift id, got %d: %s", res.StatusCode, string(data))
	}
}

func TestActionsLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/actions", map[string]any{
		"action_type": "CREDENTIAL_EXPEDITE",
		"provider_id": "PROV-001",
		"note":        "expedite license renewal before the ED shift",
	}, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create action status %d: %s", res.StatusCode, string(data))
	}
	var created domain.RiskAction
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal action: %v", err)
	}
	if created.Status != "OPEN" || created.CreatedBy != "tester" {
		t.Fatalf("unexpected created action: %+v", created)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/actions/"+created.ActionID, map[string]any{
		"status": "RESOLVED",
	}, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update action status %d: %s", res.StatusCode, string(data))
	}
	var updated domain.RiskAction
	if err := json.Unmarshal(data, &updated); err != nil {
		t.Fatalf("unmarshal updated action: %v", err)
	}
	if updated.Status != "RESOLVED" {
		t.Fatalf("expected RESOLVED, got %s", updated.Status)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/actions?status=RESOLVED", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list actions status %d: %s", res.StatusCode, string(data))
	}
	var page ActionsPageResponse
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal actions page: %v", err)
	}
	if page.Total != 1 || page.Items[0].ActionID != created.ActionID {
		t.Fatalf("expected the resolved action in the listing, got %+v", page)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/actions", map[string]any{
		"action_type": "NOT_A_TYPE",
	}, actorHeaders())
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad action type, got %d: %s", res.StatusCode, string(data))
	}
}

func TestWorklists(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/worklists/uncoverable_shifts", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("uncoverable shifts status %d: %s", res.StatusCode, string(data))
	}
	var uncov UncoverableShiftsResponse
	if err := json.Unmarshal(data, &uncov); err != nil {
		t.Fatalf("unmarshal uncoverable: %v", err)
	}
	found := false
	for _, g := range uncov.Items {
		if g.ShiftID == "SH-1003" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected SH-1003 in the uncoverable worklist, got %v", uncov.Items)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/worklists/expiring_credentials?bucket=0-14", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expiring credentials status %d: %s", res.StatusCode, string(data))
	}
	var exp ExpiringCredentialsResponse
	if err := json.Unmarshal(data, &exp); err != nil {
		t.Fatalf("unmarshal expiring: %v", err)
	}
	// PROV-002's ACLS expires in 10 days.
	if len(exp.Items) != 1 || exp.Items[0].ProviderID != "PROV-002" || exp.Items[0].CredType != "ACLS" {
		t.Fatalf("expected PROV-002 ACLS in the 0-14 bucket, got %v", exp.Items)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/worklists/blocked_providers?blocker=NO_PAYER_ENROLLMENT", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("blocked providers status %d: %s", res.StatusCode, string(data))
	}
	var blocked BlockedProvidersResponse
	if err := json.Unmarshal(data, &blocked); err != nil {
		t.Fatalf("unmarshal blocked: %v", err)
	}
	if len(blocked.Items) != 1 || blocked.Items[0].ProviderID != "PROV-005" {
		t.Fatalf("expected only PROV-005 blocked on payer enrollment, got %v", blocked.Items)
	}
}
