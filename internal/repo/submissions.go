package repo

import (
	"context"
	"database/sql"
	"strings"

	"huntline/internal/domain"
)

const submissionCols = `id,task_id,team_id,photo_path,submit_time`

func (r Repo) InsertSubmission(ctx context.Context, s domain.Submission) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO submissions(id,task_id,team_id,photo_path,submit_time) VALUES (?,?,?,?,?)`,
		s.ID, s.TaskID, s.TeamID, s.PhotoPath, s.SubmitTime)
	return err
}

func (r Repo) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM submissions WHERE id=?`, id)
	return scanSubmission(row)
}

func (r Repo) GetSubmissionByTeamAndTask(ctx context.Context, teamID, taskID string) (domain.Submission, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+submissionCols+` FROM submissions WHERE team_id=? AND task_id=?`, teamID, taskID)
	return scanSubmission(row)
}

func (r Repo) ListSubmissionsByTeam(ctx context.Context, teamID string) ([]domain.Submission, error) {
	return r.listSubmissions(ctx, `SELECT `+submissionCols+` FROM submissions WHERE team_id=? ORDER BY submit_time ASC`, teamID)
}

func (r Repo) ListSubmissionsByTask(ctx context.Context, taskID string) ([]domain.Submission, error) {
	return r.listSubmissions(ctx, `SELECT `+submissionCols+` FROM submissions WHERE task_id=? ORDER BY submit_time ASC`, taskID)
}

func (r Repo) ListSubmissionsByIDs(ctx context.Context, ids []string) ([]domain.Submission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return r.listSubmissions(ctx, `SELECT `+submissionCols+` FROM submissions WHERE id IN (`+strings.Join(placeholders, ",")+`) ORDER BY submit_time ASC`, args...)
}

// UpdateSubmissionPhoto swaps the photo reference and submit time in place;
// the submission keeps its id.
func (r Repo) UpdateSubmissionPhoto(ctx context.Context, id, photoPath, submitTime string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE submissions SET photo_path=?, submit_time=? WHERE id=?`, photoPath, submitTime, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteSubmission(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM submissions WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSubmissionsBulk removes all matching records in one statement.
// It does not touch blobs; the cascading session delete removes those
// before discarding the records.
func (r Repo) DeleteSubmissionsBulk(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	_, err := r.DB.ExecContext(ctx, `DELETE FROM submissions WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	return err
}

func (r Repo) listSubmissions(ctx context.Context, query string, args ...any) ([]domain.Submission, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Submission
	for rows.Next() {
		var s domain.Submission
		if err := rows.Scan(&s.ID, &s.TaskID, &s.TeamID, &s.PhotoPath, &s.SubmitTime); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func scanSubmission(row *sql.Row) (domain.Submission, error) {
	var s domain.Submission
	err := row.Scan(&s.ID, &s.TaskID, &s.TeamID, &s.PhotoPath, &s.SubmitTime)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}
