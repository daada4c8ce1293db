// Package engine implements the scavenger-hunt session lifecycle:
// starting hunts, joining by access code, photo submissions, teams,
// ending sessions, and the cascading delete across records and blobs.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"huntline/internal/blob"
	"huntline/internal/domain"
	"huntline/internal/events"
	"huntline/internal/repo"
)

const (
	accessCodeMin    = 100000
	accessCodeSpan   = 900000
	accessCodeLength = 6

	// endedAccessCode is the sentinel an ended session's code is
	// reassigned to, freeing the real code for reuse immediately.
	endedAccessCode = "1"

	maxCodeAttempts = 5
	maxDocRetries   = 5
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Blobs  *blob.Store
	Events events.Writer

	// MaxTeams caps a bulk team create; zero means the default of 10.
	MaxTeams int

	// Now and Rand are injectable for deterministic tests.
	Now  func() time.Time
	Rand func(n int) int
}

func New(db *sql.DB, blobs *blob.Store) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Blobs:  blobs,
		Events: events.Writer{DB: db},
		Now:    time.Now,
		Rand:   rand.Intn,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) intn(n int) int {
	if e.Rand != nil {
		return e.Rand(n)
	}
	return rand.Intn(n)
}

func requireID(id, what string) error {
	if id == "" {
		return ValidationError{Msg: "the requested " + what + " id is not a legal id"}
	}
	if _, err := uuid.Parse(id); err != nil {
		return ValidationError{Msg: "the requested " + what + " id is not a legal id"}
	}
	return nil
}

// updateStartedHuntDoc re-reads the session, applies mutate and writes
// the document back, retrying on version conflicts with concurrent
// writers. mutate sees a fresh copy on every attempt.
func (e Engine) updateStartedHuntDoc(ctx context.Context, id string, mutate func(*domain.StartedHunt) error) (domain.StartedHunt, error) {
	var s domain.StartedHunt
	for attempt := 0; attempt < maxDocRetries; attempt++ {
		var err error
		s, err = e.Repo.GetStartedHunt(ctx, id)
		if err != nil {
			return domain.StartedHunt{}, err
		}
		if err := mutate(&s); err != nil {
			return domain.StartedHunt{}, err
		}
		err = e.Repo.UpdateStartedHuntDoc(ctx, s)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, repo.ErrVersionConflict) {
			return domain.StartedHunt{}, err
		}
	}
	return domain.StartedHunt{}, ConflictError{Msg: "started hunt is being modified concurrently, retry"}
}
