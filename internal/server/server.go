package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shiftline/internal/domain"
	"shiftline/internal/engine"
	"shiftline/internal/events"
	"shiftline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	Repo     repo.Repo
	Events   events.Writer
	BasePath string
	Auth     AuthConfig
	Metrics  *Metrics
	Logger   zerolog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"shift not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Shiftline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(requestLogger(cfg.Logger))
	router.Use(cfg.Metrics.middleware)
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Repo))
	hcfg := huma.DefaultConfig("Shiftline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	router.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	registerHealth(group)
	registerProviders(group, cfg)
	registerStaffing(group, cfg)
	registerScenario(group, cfg)
	registerWorklists(group, cfg)
	registerActions(group, cfg)
	registerOpenAPI(router, api, basePath)

	startWebhookDispatcher(cfg)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newAPIError(http.StatusRequestTimeout, "request_cancelled", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func bodyBytes(ctx context.Context) []byte {
	if b, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return b
	}
	return nil
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Shiftline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerProviders(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-providers",
		Method:      http.MethodGet,
		Path:        "/providers",
		Summary:     "List providers with resolved credential posture",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Query     string `query:"q"`
		Specialty string `query:"specialty"`
		Status    string `query:"status"`
		Sort      string `query:"sort" example:"-provider_name"`
		Page      int    `query:"page" minimum:"1"`
		PageSize  int    `query:"page_size" minimum:"1" maximum:"200"`
	}) (*struct {
		Body ProvidersPageResponse `json:"body"`
	}, error) {
		filter := repo.ProviderFilter{
			Query:     input.Query,
			Specialty: input.Specialty,
			Status:    input.Status,
			Sort:      input.Sort,
			Page:      repo.Page{Page: input.Page, PageSize: input.PageSize},
		}
		providers, total, err := cfg.Repo.ListProviders(ctx, filter)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := cfg.Repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		factSheets, err := cfg.Engine.BuildFactSheets(snap)
		if err != nil {
			return nil, handleError(err)
		}
		sheets := map[string]domain.ProviderFactSheet{}
		for _, fs := range factSheets {
			sheets[fs.ProviderID] = fs
		}
		items := make([]ProviderRow, 0, len(providers))
		for _, p := range providers {
			var fsp *domain.ProviderFactSheet
			if fs, ok := sheets[p.ProviderID]; ok {
				fsp = &fs
			}
			items = append(items, providerRow(p, fsp))
		}
		return &struct {
			Body ProvidersPageResponse `json:"body"`
		}{Body: ProvidersPageResponse{
			Items:    items,
			Total:    total,
			Page:     maxInt(input.Page, 1),
			PageSize: pageSizeOrDefault(input.PageSize),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-provider",
		Method:      http.MethodGet,
		Path:        "/providers/{provider_id}",
		Summary:     "Provider detail with credentials and eligibility",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProviderID string `path:"provider_id"`
	}) (*struct {
		Body ProviderDetailResponse `json:"body"`
	}, error) {
		p, err := cfg.Repo.GetProvider(ctx, input.ProviderID)
		if err != nil {
			return nil, handleError(err)
		}
		creds, err := cfg.Repo.ListProviderCredentials(ctx, input.ProviderID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := cfg.Repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		factSheets, err := cfg.Engine.BuildFactSheets(snap)
		if err != nil {
			return nil, handleError(err)
		}
		var fsp *domain.ProviderFactSheet
		for _, fs := range factSheets {
			if fs.ProviderID == input.ProviderID {
				fs := fs
				fsp = &fs
				break
			}
		}
		elig, _, err := cfg.Engine.ExplainProvider(input.ProviderID, snap)
		if err != nil {
			return nil, handleError(err)
		}
		cfg.Metrics.EvaluationsTotal.WithLabelValues("provider_detail").Inc()
		return &struct {
			Body ProviderDetailResponse `json:"body"`
		}{Body: ProviderDetailResponse{
			Provider:    providerRow(p, fsp),
			Credentials: creds,
			Eligibility: elig,
		}}, nil
	})
}

func registerStaffing(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-staffing-gaps",
		Method:      http.MethodGet,
		Path:        "/staffing_gaps",
		Summary:     "Staffing gaps with rule-derived risk",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		FacilityID    string `query:"facility_id"`
		ProcedureCode string `query:"procedure_code"`
		StartAfter    string `query:"start_after" example:"2025-06-01T00:00:00Z"`
		StartBefore   string `query:"start_before"`
		RiskLevel     string `query:"risk_level" enum:"HIGH,MEDIUM,LOW,"`
		Page          int    `query:"page" minimum:"1"`
		PageSize      int    `query:"page_size" minimum:"1" maximum:"200"`
	}) (*struct {
		Body StaffingGapsPageResponse `json:"body"`
	}, error) {
		// Risk is computed, not stored, so filtering and paging happen after
		// classification.
		shifts, _, err := cfg.Repo.ListShifts(ctx, repo.ShiftFilter{
			FacilityID:    input.FacilityID,
			ProcedureCode: input.ProcedureCode,
			StartAfter:    input.StartAfter,
			StartBefore:   input.StartBefore,
			Page:          repo.Page{Page: 1, PageSize: 10000},
		})
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := cfg.Repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		var gaps []domain.StaffingGap
		for _, shift := range shifts {
			g, err := cfg.Engine.ClassifyGap(shift, snap)
			if err != nil {
				return nil, handleError(err)
			}
			if input.RiskLevel != "" && g.RiskLevel != input.RiskLevel {
				continue
			}
			if pred, err := cfg.Repo.GetShiftPrediction(ctx, shift.ShiftID); err == nil {
				p := pred
				g.Prediction = &p
			} else if !errors.Is(err, repo.ErrNotFound) {
				return nil, handleError(err)
			}
			gaps = append(gaps, g)
		}
		cfg.Metrics.EvaluationsTotal.WithLabelValues("staffing_gaps").Add(float64(len(shifts)))

		total := len(gaps)
		page := maxInt(input.Page, 1)
		size := pageSizeOrDefault(input.PageSize)
		start := (page - 1) * size
		if start > total {
			start = total
		}
		end := start + size
		if end > total {
			end = total
		}
		return &struct {
			Body StaffingGapsPageResponse `json:"body"`
		}{Body: StaffingGapsPageResponse{
			Items:    gaps[start:end],
			Total:    total,
			Page:     page,
			PageSize: size,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "shift-recommendations",
		Method:      http.MethodGet,
		Path:        "/shifts/{shift_id}/recommendations",
		Summary:     "Ranked provider recommendations for a shift",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ShiftID string `path:"shift_id"`
	}) (*struct {
		Body RecommendationsResponse `json:"body"`
	}, error) {
		shift, err := cfg.Repo.GetShift(ctx, input.ShiftID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := cfg.Repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		elig, err := cfg.Engine.EvaluateShiftEligibility(shift, snap, nil)
		if err != nil {
			return nil, handleError(err)
		}
		cfg.Metrics.EvaluationsTotal.WithLabelValues("recommendations").Inc()
		return &struct {
			Body RecommendationsResponse `json:"body"`
		}{Body: RecommendationsResponse{
			ShiftID:               shift.ShiftID,
			EligibleProviderCount: elig.EligibleProviderCount,
			RecommendedProviders:  elig.RecommendedProviders,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "shift-eligibility-explain",
		Method:      http.MethodGet,
		Path:        "/shifts/{shift_id}/eligibility_explain",
		Summary:     "Per-provider eligibility explanation for a shift",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ShiftID string `path:"shift_id"`
	}) (*struct {
		Body domain.ShiftEligibility `json:"body"`
	}, error) {
		shift, err := cfg.Repo.GetShift(ctx, input.ShiftID)
		if err != nil {
			return nil, handleError(err)
		}
		snap, err := cfg.Repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		elig, err := cfg.Engine.EvaluateShiftEligibility(shift, snap, nil)
		if err != nil {
			return nil, handleError(err)
		}
		cfg.Metrics.EvaluationsTotal.WithLabelValues("explain").Inc()
		return &struct {
			Body domain.ShiftEligibility `json:"body"`
		}{Body: elig}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "shift-prediction",
		Method:      http.MethodGet,
		Path:        "/shifts/{shift_id}/prediction",
		Summary:     "Upstream model gap prediction for a shift",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ShiftID string `path:"shift_id"`
	}) (*struct {
		Body domain.ShiftPrediction `json:"body"`
	}, error) {
		if _, err := cfg.Repo.GetShift(ctx, input.ShiftID); err != nil {
			return nil, handleError(err)
		}
		pred, err := cfg.Repo.GetShiftPrediction(ctx, input.ShiftID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ShiftPrediction `json:"body"`
		}{Body: pred}, nil
	})
}

func registerScenario(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "scenario-coverage",
		Method:      http.MethodPost,
		Path:        "/scenario/coverage",
		Summary:     "Simulate coverage under credentialing fix assumptions",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusRequestTimeout,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body ScenarioCoverageRequest `json:"body"`
	}) (*struct {
		Body ScenarioCoverageResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		maxShifts := cfg.Engine.Config.Scenario.MaxShiftsPerRun
		if len(input.Body.ShiftIDs) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "shift_ids is required", nil)
		}
		if len(input.Body.ShiftIDs) > maxShifts {
			return nil, newAPIError(http.StatusBadRequest, "bad_request",
				fmt.Sprintf("shift_ids exceeds the %d shift limit", maxShifts), nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		snap, err := cfg.Repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		cov, err := cfg.Engine.Simulate(ctx, snap, input.Body.ShiftIDs, input.Body.Assumptions)
		if err != nil {
			return nil, handleError(err)
		}
		cfg.Metrics.ScenarioRuns.Inc()
		cfg.Metrics.ScenarioShifts.Observe(float64(cov.ShiftCount))

		runID := uuid.NewString()
		tx, err := cfg.Repo.DB.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if err := cfg.Events.Append(ctx, tx, "scenario.run", "scenario", runID, actorID, events.EventPayload{
			"shift_count":           cov.ShiftCount,
			"delta_coverable_count": cov.DeltaCoverableCount,
		}); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		cfg.Logger.Info().
			Str("run_id", runID).
			Int("shift_count", cov.ShiftCount).
			Int("delta_coverable", cov.DeltaCoverableCount).
			Msg("scenario run")
		return &struct {
			Body ScenarioCoverageResponse `json:"body"`
		}{Body: ScenarioCoverageResponse{RunID: runID, ScenarioCoverage: cov}}, nil
	})
}

func registerWorklists(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "worklist-uncoverable-shifts",
		Method:      http.MethodGet,
		Path:        "/worklists/uncoverable_shifts",
		Summary:     "Shifts with a gap and no eligible providers",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body UncoverableShiftsResponse `json:"body"`
	}, error) {
		snap, err := cfg.Repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		items, err := cfg.Engine.UncoverableShifts(snap)
		if err != nil {
			return nil, handleError(err)
		}
		cfg.Metrics.EvaluationsTotal.WithLabelValues("worklist").Add(float64(len(snap.Shifts)))
		return &struct {
			Body UncoverableShiftsResponse `json:"body"`
		}{Body: UncoverableShiftsResponse{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "worklist-expiring-credentials",
		Method:      http.MethodGet,
		Path:        "/worklists/expiring_credentials",
		Summary:     "Credentials grouped by expiration risk bucket",
	}, func(ctx context.Context, input *struct {
		Bucket string `query:"bucket" enum:"EXPIRED,0-14,15-30,31-90,>90,"`
	}) (*struct {
		Body ExpiringCredentialsResponse `json:"body"`
	}, error) {
		snap, err := cfg.Repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		items, err := cfg.Engine.ExpiringCredentials(snap, input.Bucket)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExpiringCredentialsResponse `json:"body"`
		}{Body: ExpiringCredentialsResponse{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "worklist-blocked-providers",
		Method:      http.MethodGet,
		Path:        "/worklists/blocked_providers",
		Summary:     "Ineligible providers with blockers and readiness",
	}, func(ctx context.Context, input *struct {
		Blocker string `query:"blocker" enum:"STATUS_INACTIVE,LICENSE_EXPIRED,LICENSE_EXPIRING,ACLS_EXPIRED,ACLS_EXPIRING,NO_PRIVILEGE,NO_PAYER_ENROLLMENT,"`
	}) (*struct {
		Body BlockedProvidersResponse `json:"body"`
	}, error) {
		snap, err := cfg.Repo.LoadSnapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		items, err := cfg.Engine.BlockedProviders(snap, domain.BlockerKind(input.Blocker))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BlockedProvidersResponse `json:"body"`
		}{Body: BlockedProvidersResponse{Items: items}}, nil
	})
}

func registerActions(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-action",
		Method:        http.MethodPost,
		Path:          "/actions",
		Summary:       "Log a mitigation action",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateActionRequest `json:"body"`
	}) (*struct {
		Body domain.RiskAction `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if !validActionTypes[input.Body.ActionType] {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid action_type", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		now := time.Now().UTC().Format(time.RFC3339)
		action := domain.RiskAction{
			ActionID:   uuid.NewString(),
			ActionType: input.Body.ActionType,
			Status:     "OPEN",
			ShiftID:    input.Body.ShiftID,
			ProviderID: input.Body.ProviderID,
			Note:       input.Body.Note,
			CreatedBy:  actorID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		tx, err := cfg.Repo.DB.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if err := cfg.Repo.InsertRiskActionTx(ctx, tx, action); err != nil {
			return nil, handleError(err)
		}
		if err := cfg.Events.Append(ctx, tx, "action.create", "action", action.ActionID, actorID, events.EventPayload{
			"action_type": action.ActionType,
			"shift_id":    action.ShiftID,
			"provider_id": action.ProviderID,
		}); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.RiskAction `json:"body"`
		}{Body: action}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-actions",
		Method:      http.MethodGet,
		Path:        "/actions",
		Summary:     "List mitigation actions",
	}, func(ctx context.Context, input *struct {
		Status     string `query:"status" enum:"OPEN,IN_PROGRESS,RESOLVED,"`
		ActionType string `query:"action_type"`
		ShiftID    string `query:"shift_id"`
		ProviderID string `query:"provider_id"`
		Page       int    `query:"page" minimum:"1"`
		PageSize   int    `query:"page_size" minimum:"1" maximum:"200"`
	}) (*struct {
		Body ActionsPageResponse `json:"body"`
	}, error) {
		items, total, err := cfg.Repo.ListRiskActions(ctx, repo.ActionFilter{
			Status:     input.Status,
			ActionType: input.ActionType,
			ShiftID:    input.ShiftID,
			ProviderID: input.ProviderID,
			Page:       repo.Page{Page: input.Page, PageSize: input.PageSize},
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActionsPageResponse `json:"body"`
		}{Body: ActionsPageResponse{
			Items:    items,
			Total:    total,
			Page:     maxInt(input.Page, 1),
			PageSize: pageSizeOrDefault(input.PageSize),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-action",
		Method:      http.MethodGet,
		Path:        "/actions/{action_id}",
		Summary:     "Get a mitigation action",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActionID string `path:"action_id"`
	}) (*struct {
		Body domain.RiskAction `json:"body"`
	}, error) {
		a, err := cfg.Repo.GetRiskAction(ctx, input.ActionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.RiskAction `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-action",
		Method:      http.MethodPatch,
		Path:        "/actions/{action_id}",
		Summary:     "Update a mitigation action",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ActionID string              `path:"action_id"`
		Body     UpdateActionRequest `json:"body"`
	}) (*struct {
		Body domain.RiskAction `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Status != nil && !validActionStatuses[*input.Body.Status] {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid status", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		now := time.Now().UTC().Format(time.RFC3339)
		tx, err := cfg.Repo.DB.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if err := cfg.Repo.UpdateRiskActionTx(ctx, tx, input.ActionID, input.Body.Status, input.Body.Note, now); err != nil {
			return nil, handleError(err)
		}
		if err := cfg.Events.Append(ctx, tx, "action.update", "action", input.ActionID, actorID, events.EventPayload{
			"status": input.Body.Status,
		}); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		a, err := cfg.Repo.GetRiskAction(ctx, input.ActionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.RiskAction `json:"body"`
		}{Body: a}, nil
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func pageSizeOrDefault(size int) int {
	if size < 1 {
		return 50
	}
	return size
}
