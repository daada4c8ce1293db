package repo

import (
	"context"
	"database/sql"
	"strings"

	"huntline/internal/domain"
)

func (r Repo) InsertTeam(ctx context.Context, t domain.Team) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO teams(id,team_name,started_hunt_id) VALUES (?,?,?)`,
		t.ID, t.TeamName, t.StartedHuntID)
	return err
}

// InsertTeams inserts the whole batch with one statement so a failure
// commits none of it.
func (r Repo) InsertTeams(ctx context.Context, teams []domain.Team) error {
	if len(teams) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(teams))
	args := make([]any, 0, len(teams)*3)
	for _, t := range teams {
		placeholders = append(placeholders, "(?,?,?)")
		args = append(args, t.ID, t.TeamName, t.StartedHuntID)
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO teams(id,team_name,started_hunt_id) VALUES `+strings.Join(placeholders, ","), args...)
	return err
}

func (r Repo) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	var t domain.Team
	err := r.DB.QueryRowContext(ctx, `SELECT id,team_name,started_hunt_id FROM teams WHERE id=?`, id).
		Scan(&t.ID, &t.TeamName, &t.StartedHuntID)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) ListTeams(ctx context.Context) ([]domain.Team, error) {
	return r.listTeams(ctx, `SELECT id,team_name,started_hunt_id FROM teams ORDER BY team_name ASC`)
}

func (r Repo) ListTeamsByStartedHunt(ctx context.Context, startedHuntID string) ([]domain.Team, error) {
	return r.listTeams(ctx, `SELECT id,team_name,started_hunt_id FROM teams WHERE started_hunt_id=? ORDER BY team_name ASC`, startedHuntID)
}

func (r Repo) DeleteTeam(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM teams WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTeamsByStartedHunt is a no-op, not an error, when the session has
// no teams.
func (r Repo) DeleteTeamsByStartedHunt(ctx context.Context, startedHuntID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM teams WHERE started_hunt_id=?`, startedHuntID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r Repo) listTeams(ctx context.Context, query string, args ...any) ([]domain.Team, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.TeamName, &t.StartedHuntID); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
