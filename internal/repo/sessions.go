package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"huntline/internal/domain"
)

const startedHuntCols = `id,access_code,status,end_date,snapshot_json,submission_ids_json,version,created_at`

func (r Repo) InsertStartedHunt(ctx context.Context, s domain.StartedHunt, createdAt string) error {
	snapshot, ids, err := marshalStartedHuntDoc(s)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO started_hunts(id,access_code,status,end_date,snapshot_json,submission_ids_json,version,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, s.AccessCode, s.Status, nullableStringPtr(s.EndDate), snapshot, ids, s.Version, createdAt)
	return err
}

func (r Repo) GetStartedHunt(ctx context.Context, id string) (domain.StartedHunt, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+startedHuntCols+` FROM started_hunts WHERE id=?`, id)
	return scanStartedHunt(row)
}

// FindStartedHuntByAccessCode returns the first session carrying the code,
// joinable or not; the caller decides what an ended match means.
func (r Repo) FindStartedHuntByAccessCode(ctx context.Context, code string) (domain.StartedHunt, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+startedHuntCols+` FROM started_hunts WHERE access_code=?`, code)
	return scanStartedHunt(row)
}

// ActiveAccessCodeExists reports whether any joinable session already holds
// the code, excluding exceptID (empty to consider all sessions).
func (r Repo) ActiveAccessCodeExists(ctx context.Context, code, exceptID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM started_hunts WHERE access_code=? AND status=1 AND id<>?`, code, exceptID).Scan(&n)
	return n > 0, err
}

func (r Repo) ListEndedHunts(ctx context.Context) ([]domain.StartedHunt, error) {
	return r.listStartedHunts(ctx, `SELECT `+startedHuntCols+` FROM started_hunts WHERE status=0 ORDER BY created_at DESC`)
}

// ListStartedHuntsByHost filters on the host id embedded in the snapshot
// document, the session itself carries no host column.
func (r Repo) ListStartedHuntsByHost(ctx context.Context, hostID string) ([]domain.StartedHunt, error) {
	return r.listStartedHunts(ctx, `SELECT `+startedHuntCols+` FROM started_hunts WHERE json_extract(snapshot_json,'$.hunt.hostId')=? ORDER BY created_at DESC`, hostID)
}

// EndStartedHunt flips the session to ended in a single statement: status
// off, end date stamped and the access code overwritten with the revocation
// sentinel so it can never match a join lookup again.
func (r Repo) EndStartedHunt(ctx context.Context, id, endDate, sentinel string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE started_hunts SET status=0, end_date=?, access_code=?, version=version+1 WHERE id=?`,
		endDate, sentinel, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStartedHuntDoc persists a mutated snapshot/submission-id document,
// guarded by the version the caller read. Zero rows means either the row is
// gone or another writer won the race.
func (r Repo) UpdateStartedHuntDoc(ctx context.Context, s domain.StartedHunt) error {
	snapshot, ids, err := marshalStartedHuntDoc(s)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE started_hunts SET snapshot_json=?, submission_ids_json=?, version=version+1 WHERE id=? AND version=?`,
		snapshot, ids, s.ID, s.Version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetStartedHunt(ctx, s.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	return nil
}

func (r Repo) DeleteStartedHunt(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM started_hunts WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) listStartedHunts(ctx context.Context, query string, args ...any) ([]domain.StartedHunt, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StartedHunt
	for rows.Next() {
		s, err := scanStartedHuntRows(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func marshalStartedHuntDoc(s domain.StartedHunt) (snapshot, ids string, err error) {
	b, err := json.Marshal(s.CompleteHunt)
	if err != nil {
		return "", "", fmt.Errorf("marshal snapshot: %w", err)
	}
	subIDs := s.SubmissionIDs
	if subIDs == nil {
		subIDs = []string{}
	}
	i, err := json.Marshal(subIDs)
	if err != nil {
		return "", "", fmt.Errorf("marshal submission ids: %w", err)
	}
	return string(b), string(i), nil
}

func scanStartedHunt(row *sql.Row) (domain.StartedHunt, error) {
	var s domain.StartedHunt
	var endDate sql.NullString
	var snapshot, ids, createdAt string
	err := row.Scan(&s.ID, &s.AccessCode, &s.Status, &endDate, &snapshot, &ids, &s.Version, &createdAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	return unmarshalStartedHunt(s, endDate, snapshot, ids)
}

func scanStartedHuntRows(rows *sql.Rows) (domain.StartedHunt, error) {
	var s domain.StartedHunt
	var endDate sql.NullString
	var snapshot, ids, createdAt string
	if err := rows.Scan(&s.ID, &s.AccessCode, &s.Status, &endDate, &snapshot, &ids, &s.Version, &createdAt); err != nil {
		return s, err
	}
	return unmarshalStartedHunt(s, endDate, snapshot, ids)
}

func unmarshalStartedHunt(s domain.StartedHunt, endDate sql.NullString, snapshot, ids string) (domain.StartedHunt, error) {
	if endDate.Valid {
		s.EndDate = &endDate.String
	}
	if err := json.Unmarshal([]byte(snapshot), &s.CompleteHunt); err != nil {
		return s, fmt.Errorf("started hunt %s snapshot: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(ids), &s.SubmissionIDs); err != nil {
		return s, fmt.Errorf("started hunt %s submission ids: %w", s.ID, err)
	}
	return s, nil
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}
