package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"huntline/internal/domain"
)

func (r Repo) InsertHost(ctx context.Context, h domain.Host) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO hosts(id,name) VALUES (?,?)`, h.ID, nullable(h.Name))
	return err
}

func (r Repo) GetHost(ctx context.Context, id string) (domain.Host, error) {
	var h domain.Host
	var name sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name FROM hosts WHERE id=?`, id).Scan(&h.ID, &name)
	if err == sql.ErrNoRows {
		return h, ErrNotFound
	}
	if name.Valid {
		h.Name = name.String
	}
	return h, err
}

func (r Repo) InsertHunt(ctx context.Context, h domain.Hunt) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO hunts(id,host_id,name,description,est,number_of_tasks,created_at) VALUES (?,?,?,?,?,?,?)`,
		h.ID, h.HostID, h.Name, nullable(h.Description), h.Est, h.NumberOfTasks, h.CreatedAt)
	return err
}

func (r Repo) GetHunt(ctx context.Context, id string) (domain.Hunt, error) {
	var h domain.Hunt
	err := r.DB.QueryRowContext(ctx, `SELECT id,host_id,name,COALESCE(description,''),est,number_of_tasks,created_at FROM hunts WHERE id=?`, id).
		Scan(&h.ID, &h.HostID, &h.Name, &h.Description, &h.Est, &h.NumberOfTasks, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return h, ErrNotFound
	}
	return h, err
}

func (r Repo) ListHuntsByHost(ctx context.Context, hostID string) ([]domain.Hunt, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,host_id,name,COALESCE(description,''),est,number_of_tasks,created_at FROM hunts WHERE host_id=? ORDER BY created_at DESC`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Hunt
	for rows.Next() {
		var h domain.Hunt
		if err := rows.Scan(&h.ID, &h.HostID, &h.Name, &h.Description, &h.Est, &h.NumberOfTasks, &h.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

func (r Repo) DeleteHunt(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM hunts WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustTaskCount bumps a hunt's denormalized task counter by delta.
func (r Repo) AdjustTaskCount(ctx context.Context, huntID string, delta int) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE hunts SET number_of_tasks=number_of_tasks+? WHERE id=?`, delta, huntID)
	return err
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) error {
	photos, err := marshalPhotos(t.Photos)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO tasks(id,hunt_id,name,status,photos_json) VALUES (?,?,?,?,?)`,
		t.ID, t.HuntID, t.Name, t.Status, photos)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,hunt_id,name,status,photos_json FROM tasks WHERE id=?`, id)
	return scanTask(row)
}

// ListTasksByHunt returns a hunt's tasks ordered by sortBy ascending,
// id as a stable tie-break. Unknown sort keys fall back to name.
func (r Repo) ListTasksByHunt(ctx context.Context, huntID, sortBy string) ([]domain.Task, error) {
	order := "name"
	switch sortBy {
	case "", "name":
		order = "name"
	case "status":
		order = "status"
	case "id":
		order = "id"
	}
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT id,hunt_id,name,status,photos_json FROM tasks WHERE hunt_id=? ORDER BY %s ASC, rowid ASC`, order), huntID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		var t domain.Task
		var photos string
		if err := rows.Scan(&t.ID, &t.HuntID, &t.Name, &t.Status, &photos); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(photos), &t.Photos); err != nil {
			return nil, fmt.Errorf("task %s photos: %w", t.ID, err)
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTasksByHunt(ctx context.Context, huntID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE hunt_id=?`, huntID)
	return err
}

func scanTask(row *sql.Row) (domain.Task, error) {
	var t domain.Task
	var photos string
	err := row.Scan(&t.ID, &t.HuntID, &t.Name, &t.Status, &photos)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(photos), &t.Photos); err != nil {
		return t, fmt.Errorf("task %s photos: %w", t.ID, err)
	}
	return t, nil
}

func marshalPhotos(photos []string) (string, error) {
	if photos == nil {
		photos = []string{}
	}
	b, err := json.Marshal(photos)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
