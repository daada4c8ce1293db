package engine

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"huntline/internal/domain"
	"huntline/internal/events"
)

const (
	maxHuntNameLength        = 50
	maxHuntDescriptionLength = 200
	maxTaskNameLength        = 150
)

func (e Engine) CreateHost(ctx context.Context, name string) (domain.Host, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Host{}, ValidationError{Msg: "host name must be non-empty"}
	}
	host := domain.Host{ID: uuid.NewString(), Name: name}
	if err := e.Repo.InsertHost(ctx, host); err != nil {
		return domain.Host{}, err
	}
	return host, nil
}

func (e Engine) GetHost(ctx context.Context, id string) (domain.Host, error) {
	if err := requireID(id, "host"); err != nil {
		return domain.Host{}, err
	}
	return e.Repo.GetHost(ctx, id)
}

func (e Engine) CreateHunt(ctx context.Context, hostID, name, description string, est int) (domain.Hunt, error) {
	if err := requireID(hostID, "host"); err != nil {
		return domain.Hunt{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxHuntNameLength {
		return domain.Hunt{}, ValidationError{Msg: "hunt name must be between 1 and 50 characters"}
	}
	if len(description) > maxHuntDescriptionLength {
		return domain.Hunt{}, ValidationError{Msg: "hunt description cannot exceed 200 characters"}
	}
	hunt := domain.Hunt{
		ID:          uuid.NewString(),
		HostID:      hostID,
		Name:        name,
		Description: description,
		Est:         est,
		CreatedAt:   e.timestamp(),
	}
	if err := e.Repo.InsertHunt(ctx, hunt); err != nil {
		return domain.Hunt{}, err
	}
	e.logEvent(ctx, "hunt.created", "hunt", hunt.ID, events.EventPayload{
		"hostId": hostID,
	})
	return hunt, nil
}

// GetCompleteHunt returns the authored hunt with its tasks, the shape
// a session snapshots at start time.
func (e Engine) GetCompleteHunt(ctx context.Context, id string) (domain.CompleteHunt, error) {
	if err := requireID(id, "hunt"); err != nil {
		return domain.CompleteHunt{}, err
	}
	hunt, err := e.Repo.GetHunt(ctx, id)
	if err != nil {
		return domain.CompleteHunt{}, err
	}
	tasks, err := e.Repo.ListTasksByHunt(ctx, id, "name")
	if err != nil {
		return domain.CompleteHunt{}, err
	}
	return domain.CompleteHunt{Hunt: hunt, Tasks: tasks}, nil
}

func (e Engine) ListHuntsByHost(ctx context.Context, hostID string) ([]domain.Hunt, error) {
	if err := requireID(hostID, "host"); err != nil {
		return nil, err
	}
	return e.Repo.ListHuntsByHost(ctx, hostID)
}

// DeleteHunt removes an authored hunt and its tasks. Running sessions
// carry their own snapshot and are unaffected.
func (e Engine) DeleteHunt(ctx context.Context, id string) error {
	if err := requireID(id, "hunt"); err != nil {
		return err
	}
	if err := e.Repo.DeleteHunt(ctx, id); err != nil {
		return err
	}
	if err := e.Repo.DeleteTasksByHunt(ctx, id); err != nil {
		log.Printf("tasks of deleted hunt %s not removed: %v", id, err)
	}
	e.logEvent(ctx, "hunt.deleted", "hunt", id, nil)
	return nil
}

func (e Engine) AddTask(ctx context.Context, huntID, name string) (domain.Task, error) {
	if err := requireID(huntID, "hunt"); err != nil {
		return domain.Task{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxTaskNameLength {
		return domain.Task{}, ValidationError{Msg: "task name must be between 1 and 150 characters"}
	}
	if _, err := e.Repo.GetHunt(ctx, huntID); err != nil {
		return domain.Task{}, err
	}
	task := domain.Task{
		ID:     uuid.NewString(),
		HuntID: huntID,
		Name:   name,
		Photos: []string{},
	}
	if err := e.Repo.InsertTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.AdjustTaskCount(ctx, huntID, 1); err != nil {
		log.Printf("task count of hunt %s not incremented: %v", huntID, err)
	}
	return task, nil
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	if err := requireID(id, "task"); err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, id)
}

func (e Engine) ListTasksByHunt(ctx context.Context, huntID, sortBy string) ([]domain.Task, error) {
	if err := requireID(huntID, "hunt"); err != nil {
		return nil, err
	}
	return e.Repo.ListTasksByHunt(ctx, huntID, sortBy)
}

func (e Engine) DeleteTask(ctx context.Context, id string) error {
	if err := requireID(id, "task"); err != nil {
		return err
	}
	task, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	if err := e.Repo.AdjustTaskCount(ctx, task.HuntID, -1); err != nil {
		log.Printf("task count of hunt %s not decremented: %v", task.HuntID, err)
	}
	return nil
}
