package engine

import (
	"context"
	"log"
	"strconv"

	"github.com/google/uuid"

	"huntline/internal/domain"
	"huntline/internal/events"
)

// StartHunt snapshots the hunt and its tasks into a new session,
// assigns a fresh six-digit access code, and returns the session.
// The snapshot is frozen at start time: later edits to the authored
// hunt do not reach running sessions.
func (e Engine) StartHunt(ctx context.Context, huntID string) (domain.StartedHunt, error) {
	if err := requireID(huntID, "hunt"); err != nil {
		return domain.StartedHunt{}, err
	}
	hunt, err := e.Repo.GetHunt(ctx, huntID)
	if err != nil {
		return domain.StartedHunt{}, err
	}
	tasks, err := e.Repo.ListTasksByHunt(ctx, huntID, "name")
	if err != nil {
		return domain.StartedHunt{}, err
	}
	for i := range tasks {
		tasks[i].Status = false
		tasks[i].Photos = []string{}
	}

	code, err := e.newAccessCode(ctx)
	if err != nil {
		return domain.StartedHunt{}, err
	}

	s := domain.StartedHunt{
		ID:         uuid.NewString(),
		AccessCode: code,
		CompleteHunt: domain.CompleteHunt{
			Hunt:  hunt,
			Tasks: tasks,
		},
		Status:        true,
		SubmissionIDs: []string{},
	}
	if err := e.Repo.InsertStartedHunt(ctx, s, e.timestamp()); err != nil {
		return domain.StartedHunt{}, err
	}
	e.logEvent(ctx, "session.started", "started_hunt", s.ID, events.EventPayload{
		"huntId":     huntID,
		"accessCode": code,
	})
	return s, nil
}

// newAccessCode draws random codes until one is free among currently
// active sessions. Ended sessions hold the sentinel code, so their old
// codes never collide here.
func (e Engine) newAccessCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := strconv.Itoa(accessCodeMin + e.intn(accessCodeSpan))
		taken, err := e.Repo.ActiveAccessCodeExists(ctx, code, "")
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ConflictError{Msg: "could not allocate an unused access code"}
}

// JoinByAccessCode resolves the session a player is joining. Malformed
// codes fail before any lookup; codes belonging to ended sessions are
// rejected as no longer joinable.
func (e Engine) JoinByAccessCode(ctx context.Context, accessCode string) (domain.StartedHunt, error) {
	if len(accessCode) != accessCodeLength {
		return domain.StartedHunt{}, ValidationError{Msg: "the requested access code is not a valid access code"}
	}
	for _, r := range accessCode {
		if r < '0' || r > '9' {
			return domain.StartedHunt{}, ValidationError{Msg: "the requested access code is not a valid access code"}
		}
	}
	s, err := e.Repo.FindStartedHuntByAccessCode(ctx, accessCode)
	if err != nil {
		return domain.StartedHunt{}, err
	}
	if !s.Status {
		return domain.StartedHunt{}, ValidationError{Msg: "the requested started hunt is no longer joinable"}
	}
	return s, nil
}

func (e Engine) GetStartedHunt(ctx context.Context, id string) (domain.StartedHunt, error) {
	if err := requireID(id, "started hunt"); err != nil {
		return domain.StartedHunt{}, err
	}
	return e.Repo.GetStartedHunt(ctx, id)
}

// EndStartedHunt flips the session to ended, records the end date and
// reassigns the access code to the sentinel value so the real code is
// immediately reusable by new sessions.
func (e Engine) EndStartedHunt(ctx context.Context, id string) error {
	if err := requireID(id, "started hunt"); err != nil {
		return err
	}
	endDate := e.timestamp()
	if err := e.Repo.EndStartedHunt(ctx, id, endDate, endedAccessCode); err != nil {
		return err
	}
	e.logEvent(ctx, "session.ended", "started_hunt", id, events.EventPayload{
		"endDate": endDate,
	})
	return nil
}

func (e Engine) ListEndedHunts(ctx context.Context) ([]domain.StartedHunt, error) {
	return e.Repo.ListEndedHunts(ctx)
}

func (e Engine) ListStartedHuntsByHost(ctx context.Context, hostID string) ([]domain.StartedHunt, error) {
	if err := requireID(hostID, "host"); err != nil {
		return nil, err
	}
	return e.Repo.ListStartedHuntsByHost(ctx, hostID)
}

// logEvent appends to the event log, never failing the caller.
func (e Engine) logEvent(ctx context.Context, evtType, entityKind, entityID string, payload events.EventPayload) {
	if err := e.Events.Append(ctx, evtType, entityKind, entityID, payload); err != nil {
		log.Printf("event %s for %s %s not recorded: %v", evtType, entityKind, entityID, err)
	}
}
