package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shiftline/internal/domain"
	"shiftline/internal/engine"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullablePtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func optionalString(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}

// Sort allow-lists: anything not listed falls back to the default order so a
// caller can never inject an ORDER BY expression.
var providerSortColumns = map[string]string{
	"provider_id":     "provider_id",
	"provider_name":   "provider_name",
	"specialty":       "specialty",
	"provider_status": "provider_status",
}

var shiftSortColumns = map[string]string{
	"shift_id":       "shift_id",
	"facility_id":    "facility_id",
	"start_ts":       "start_ts",
	"required_count": "required_count",
}

// orderBy resolves a "column" or "-column" sort key against an allow-list.
func orderBy(allowed map[string]string, sort, fallback string) string {
	dir := "ASC"
	key := sort
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		key = sort[1:]
	}
	col, ok := allowed[key]
	if !ok {
		return fallback
	}
	return col + " " + dir
}

type Page struct {
	Page     int
	PageSize int
}

func (p Page) limitOffset() (int, int) {
	size := p.PageSize
	if size < 1 {
		size = 50
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return size, (page - 1) * size
}

type ProviderFilter struct {
	Query     string
	Specialty string
	Status    string
	Sort      string
	Page
}

func (r Repo) ListProviders(ctx context.Context, f ProviderFilter) ([]domain.Provider, int, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Query != "" {
		clauses = append(clauses, "(provider_name LIKE ? OR provider_id LIKE ?)")
		like := "%" + f.Query + "%"
		args = append(args, like, like)
	}
	if f.Specialty != "" {
		clauses = append(clauses, "specialty=?")
		args = append(args, f.Specialty)
	}
	if f.Status != "" {
		clauses = append(clauses, "provider_status=?")
		args = append(args, f.Status)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM providers `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := f.limitOffset()
	query := `SELECT provider_id,provider_name,COALESCE(specialty,''),provider_status,COALESCE(home_facility_id,''),COALESCE(home_facility_name,''),COALESCE(hired_at,'') FROM providers ` +
		where + ` ORDER BY ` + orderBy(providerSortColumns, f.Sort, "provider_id ASC") + ` LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []domain.Provider
	for rows.Next() {
		var p domain.Provider
		if err := rows.Scan(&p.ProviderID, &p.ProviderName, &p.Specialty, &p.ProviderStatus, &p.HomeFacilityID, &p.HomeFacilityName, &p.HiredAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r Repo) GetProvider(ctx context.Context, id string) (domain.Provider, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT provider_id,provider_name,COALESCE(specialty,''),provider_status,COALESCE(home_facility_id,''),COALESCE(home_facility_name,''),COALESCE(hired_at,'') FROM providers WHERE provider_id=?`, id)
	var p domain.Provider
	err := row.Scan(&p.ProviderID, &p.ProviderName, &p.Specialty, &p.ProviderStatus, &p.HomeFacilityID, &p.HomeFacilityName, &p.HiredAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) ListProviderCredentials(ctx context.Context, providerID string) ([]domain.CredentialRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT event_id,provider_id,cred_type,COALESCE(cred_status,''),issued_at,expires_at,verified_at,COALESCE(source_system,'') FROM credentials WHERE provider_id=? ORDER BY cred_type, issued_at DESC`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CredentialRecord
	for rows.Next() {
		rec, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanCredential(rows *sql.Rows) (domain.CredentialRecord, error) {
	var rec domain.CredentialRecord
	var issued, expires, verified sql.NullString
	if err := rows.Scan(&rec.EventID, &rec.ProviderID, &rec.CredType, &rec.CredStatus, &issued, &expires, &verified, &rec.SourceSystem); err != nil {
		return rec, err
	}
	rec.IssuedAt = optionalString(issued)
	rec.ExpiresAt = optionalString(expires)
	rec.VerifiedAt = optionalString(verified)
	return rec, nil
}

type ShiftFilter struct {
	FacilityID    string
	ProcedureCode string
	StartAfter    string
	StartBefore   string
	Sort          string
	Page
}

func (f ShiftFilter) whereClause() (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if f.FacilityID != "" {
		clauses = append(clauses, "facility_id=?")
		args = append(args, f.FacilityID)
	}
	if f.ProcedureCode != "" {
		clauses = append(clauses, "required_procedure_code=?")
		args = append(args, f.ProcedureCode)
	}
	if f.StartAfter != "" {
		clauses = append(clauses, "start_ts >= ?")
		args = append(args, f.StartAfter)
	}
	if f.StartBefore != "" {
		clauses = append(clauses, "start_ts <= ?")
		args = append(args, f.StartBefore)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (r Repo) ListShifts(ctx context.Context, f ShiftFilter) ([]domain.Shift, int, error) {
	where, args := f.whereClause()

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM shifts `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := f.limitOffset()
	query := `SELECT shift_id,facility_id,COALESCE(facility_name,''),start_ts,end_ts,COALESCE(required_procedure_code,''),COALESCE(procedure_name,''),required_count,assigned_count FROM shifts ` +
		where + ` ORDER BY ` + orderBy(shiftSortColumns, f.Sort, "start_ts ASC, shift_id ASC") + ` LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []domain.Shift
	for rows.Next() {
		var s domain.Shift
		if err := rows.Scan(&s.ShiftID, &s.FacilityID, &s.FacilityName, &s.StartTS, &s.EndTS, &s.RequiredProcedureCode, &s.ProcedureName, &s.RequiredCount, &s.AssignedCount); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r Repo) GetShift(ctx context.Context, id string) (domain.Shift, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT shift_id,facility_id,COALESCE(facility_name,''),start_ts,end_ts,COALESCE(required_procedure_code,''),COALESCE(procedure_name,''),required_count,assigned_count FROM shifts WHERE shift_id=?`, id)
	var s domain.Shift
	err := row.Scan(&s.ShiftID, &s.FacilityID, &s.FacilityName, &s.StartTS, &s.EndTS, &s.RequiredProcedureCode, &s.ProcedureName, &s.RequiredCount, &s.AssignedCount)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) GetShiftPrediction(ctx context.Context, shiftID string) (domain.ShiftPrediction, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT shift_id,predicted_gap_prob,predicted_is_gap,scored_at FROM shift_predictions WHERE shift_id=?`, shiftID)
	var p domain.ShiftPrediction
	var isGap int
	err := row.Scan(&p.ShiftID, &p.PredictedGapProb, &isGap, &p.ScoredAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	p.PredictedIsGap = isGap != 0
	return p, err
}

// LoadSnapshot materializes the full evaluation input in one pass. The engine
// works on plain slices, so a single load serves any number of evaluations.
func (r Repo) LoadSnapshot(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot

	provRows, err := r.DB.QueryContext(ctx, `SELECT provider_id,provider_name,COALESCE(specialty,''),provider_status,COALESCE(home_facility_id,''),COALESCE(home_facility_name,''),COALESCE(hired_at,'') FROM providers ORDER BY provider_id`)
	if err != nil {
		return snap, fmt.Errorf("load providers: %w", err)
	}
	defer provRows.Close()
	for provRows.Next() {
		var p domain.Provider
		if err := provRows.Scan(&p.ProviderID, &p.ProviderName, &p.Specialty, &p.ProviderStatus, &p.HomeFacilityID, &p.HomeFacilityName, &p.HiredAt); err != nil {
			return snap, err
		}
		snap.Providers = append(snap.Providers, p)
	}
	if err := provRows.Err(); err != nil {
		return snap, err
	}

	credRows, err := r.DB.QueryContext(ctx, `SELECT event_id,provider_id,cred_type,COALESCE(cred_status,''),issued_at,expires_at,verified_at,COALESCE(source_system,'') FROM credentials`)
	if err != nil {
		return snap, fmt.Errorf("load credentials: %w", err)
	}
	defer credRows.Close()
	for credRows.Next() {
		rec, err := scanCredential(credRows)
		if err != nil {
			return snap, err
		}
		snap.Credentials = append(snap.Credentials, rec)
	}
	if err := credRows.Err(); err != nil {
		return snap, err
	}

	privRows, err := r.DB.QueryContext(ctx, `SELECT provider_id,facility_id,COALESCE(facility_name,''),COALESCE(privilege_type,''),active,granted_at,expires_at FROM privileges`)
	if err != nil {
		return snap, fmt.Errorf("load privileges: %w", err)
	}
	defer privRows.Close()
	for privRows.Next() {
		var pv domain.Privilege
		var active int
		var granted, expires sql.NullString
		if err := privRows.Scan(&pv.ProviderID, &pv.FacilityID, &pv.FacilityName, &pv.PrivilegeType, &active, &granted, &expires); err != nil {
			return snap, err
		}
		pv.Active = active != 0
		pv.GrantedAt = optionalString(granted)
		pv.ExpiresAt = optionalString(expires)
		snap.Privileges = append(snap.Privileges, pv)
	}
	if err := privRows.Err(); err != nil {
		return snap, err
	}

	payerRows, err := r.DB.QueryContext(ctx, `SELECT provider_id,payer_id,COALESCE(payer_name,''),active,enrolled_at FROM payer_enrollments`)
	if err != nil {
		return snap, fmt.Errorf("load payer enrollments: %w", err)
	}
	defer payerRows.Close()
	for payerRows.Next() {
		var pe domain.PayerEnrollment
		var active int
		var enrolled sql.NullString
		if err := payerRows.Scan(&pe.ProviderID, &pe.PayerID, &pe.PayerName, &active, &enrolled); err != nil {
			return snap, err
		}
		pe.Active = active != 0
		pe.EnrolledAt = optionalString(enrolled)
		snap.Payers = append(snap.Payers, pe)
	}
	if err := payerRows.Err(); err != nil {
		return snap, err
	}

	shiftRows, err := r.DB.QueryContext(ctx, `SELECT shift_id,facility_id,COALESCE(facility_name,''),start_ts,end_ts,COALESCE(required_procedure_code,''),COALESCE(procedure_name,''),required_count,assigned_count FROM shifts ORDER BY start_ts, shift_id`)
	if err != nil {
		return snap, fmt.Errorf("load shifts: %w", err)
	}
	defer shiftRows.Close()
	for shiftRows.Next() {
		var s domain.Shift
		if err := shiftRows.Scan(&s.ShiftID, &s.FacilityID, &s.FacilityName, &s.StartTS, &s.EndTS, &s.RequiredProcedureCode, &s.ProcedureName, &s.RequiredCount, &s.AssignedCount); err != nil {
			return snap, err
		}
		snap.Shifts = append(snap.Shifts, s)
	}
	return snap, shiftRows.Err()
}

// Seed-side inserts. The ETL normally owns these tables; the CLI seed command
// and tests use these to build a snapshot.

func (r Repo) InsertProvider(ctx context.Context, p domain.Provider) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO providers(provider_id,provider_name,specialty,provider_status,home_facility_id,home_facility_name,hired_at) VALUES (?,?,?,?,?,?,?)`,
		p.ProviderID, p.ProviderName, nullable(p.Specialty), p.ProviderStatus, nullable(p.HomeFacilityID), nullable(p.HomeFacilityName), nullable(p.HiredAt))
	return err
}

func (r Repo) InsertCredential(ctx context.Context, c domain.CredentialRecord) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO credentials(event_id,provider_id,cred_type,cred_status,issued_at,expires_at,verified_at,source_system) VALUES (?,?,?,?,?,?,?,?)`,
		c.EventID, c.ProviderID, c.CredType, nullable(c.CredStatus), nullablePtr(c.IssuedAt), nullablePtr(c.ExpiresAt), nullablePtr(c.VerifiedAt), nullable(c.SourceSystem))
	return err
}

func (r Repo) InsertPrivilege(ctx context.Context, p domain.Privilege) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO privileges(provider_id,facility_id,facility_name,privilege_type,active,granted_at,expires_at) VALUES (?,?,?,?,?,?,?)`,
		p.ProviderID, p.FacilityID, nullable(p.FacilityName), nullable(p.PrivilegeType), boolInt(p.Active), nullablePtr(p.GrantedAt), nullablePtr(p.ExpiresAt))
	return err
}

func (r Repo) InsertPayerEnrollment(ctx context.Context, p domain.PayerEnrollment) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO payer_enrollments(provider_id,payer_id,payer_name,active,enrolled_at) VALUES (?,?,?,?,?)`,
		p.ProviderID, p.PayerID, nullable(p.PayerName), boolInt(p.Active), nullablePtr(p.EnrolledAt))
	return err
}

func (r Repo) InsertShift(ctx context.Context, s domain.Shift) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO shifts(shift_id,facility_id,facility_name,start_ts,end_ts,required_procedure_code,procedure_name,required_count,assigned_count) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ShiftID, s.FacilityID, nullable(s.FacilityName), s.StartTS, s.EndTS, nullable(s.RequiredProcedureCode), nullable(s.ProcedureName), s.RequiredCount, s.AssignedCount)
	return err
}

func (r Repo) UpsertShiftPrediction(ctx context.Context, p domain.ShiftPrediction) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO shift_predictions(shift_id,predicted_gap_prob,predicted_is_gap,scored_at) VALUES (?,?,?,?)
ON CONFLICT(shift_id) DO UPDATE SET predicted_gap_prob=excluded.predicted_gap_prob, predicted_is_gap=excluded.predicted_is_gap, scored_at=excluded.scored_at`,
		p.ShiftID, p.PredictedGapProb, boolInt(p.PredictedIsGap), p.ScoredAt)
	return err
}

// EventsAfter returns audit events with ids greater than afterID, oldest
// first. The webhook dispatcher uses it as a cursor walk.
func (r Repo) EventsAfter(ctx context.Context, limit int, afterID int64) ([]domain.Event, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id, ts, type, entity_kind, COALESCE(entity_id,''), actor_id, payload_json FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestEventID returns the current tail of the audit log, 0 when empty.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

// LatestEvents tails the audit log, newest first.
func (r Repo) LatestEvents(ctx context.Context, n int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if n < 1 {
		n = 20
	}
	clauses := []string{}
	args := []any{}
	if evtType != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind = ?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id = ?")
		args = append(args, entityID)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, n)
	rows, err := r.DB.QueryContext(ctx, `SELECT id, ts, type, entity_kind, COALESCE(entity_id,''), actor_id, payload_json FROM events`+where+` ORDER BY id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
