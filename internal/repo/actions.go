package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shiftline/internal/domain"
)

type ActionFilter struct {
	Status     string
	ActionType string
	ShiftID    string
	ProviderID string
	Page
}

func scanAction(row interface{ Scan(...any) error }) (domain.RiskAction, error) {
	var a domain.RiskAction
	var shiftID, providerID, note sql.NullString
	err := row.Scan(&a.ActionID, &a.ActionType, &a.Status, &shiftID, &providerID, &note, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.ShiftID = optionalString(shiftID)
	a.ProviderID = optionalString(providerID)
	if note.Valid {
		a.Note = note.String
	}
	return a, nil
}

const actionColumns = `action_id,action_type,status,shift_id,provider_id,note,created_by,created_at,updated_at`

func (r Repo) InsertRiskActionTx(ctx context.Context, tx *sql.Tx, a domain.RiskAction) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO risk_actions(`+actionColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ActionID, a.ActionType, a.Status, nullablePtr(a.ShiftID), nullablePtr(a.ProviderID), nullable(a.Note), a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) GetRiskAction(ctx context.Context, id string) (domain.RiskAction, error) {
	return scanAction(r.DB.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM risk_actions WHERE action_id=?`, id))
}

func (r Repo) UpdateRiskActionTx(ctx context.Context, tx *sql.Tx, id string, status, note *string, updatedAt string) error {
	var (
		fields []string
		args   []any
	)
	if status != nil {
		fields = append(fields, "status=?")
		args = append(args, *status)
	}
	if note != nil {
		fields = append(fields, "note=?")
		args = append(args, nullable(*note))
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, updatedAt, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE risk_actions SET %s WHERE action_id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListRiskActions(ctx context.Context, f ActionFilter) ([]domain.RiskAction, int, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.ActionType != "" {
		clauses = append(clauses, "action_type=?")
		args = append(args, f.ActionType)
	}
	if f.ShiftID != "" {
		clauses = append(clauses, "shift_id=?")
		args = append(args, f.ShiftID)
	}
	if f.ProviderID != "" {
		clauses = append(clauses, "provider_id=?")
		args = append(args, f.ProviderID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM risk_actions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := f.limitOffset()
	rows, err := r.DB.QueryContext(ctx, `SELECT `+actionColumns+` FROM risk_actions `+where+` ORDER BY created_at DESC, action_id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []domain.RiskAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
