package engine

import (
	"context"
	"errors"
	"log"

	"huntline/internal/blob"
	"huntline/internal/events"
	"huntline/internal/repo"
)

// Cascade step outcomes. AlreadyAbsent counts as success: the cascade
// is re-runnable after a partial failure without tripping over work a
// previous run already did.
const (
	StepDeleted       = "deleted"
	StepAlreadyAbsent = "already_absent"
	StepFailed        = "failed"
)

type CascadeStep struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// CascadeReport records every sub-step of a session delete. A failed
// step never aborts the cascade; it is tagged here and the remaining
// steps still run.
type CascadeReport struct {
	StartedHuntID string        `json:"startedHuntId"`
	Steps         []CascadeStep `json:"steps"`
	Failures      int           `json:"failures"`
}

func (r *CascadeReport) add(kind, id, outcome string, err error) {
	step := CascadeStep{Kind: kind, ID: id, Outcome: outcome}
	if err != nil {
		step.Detail = err.Error()
	}
	if outcome == StepFailed {
		r.Failures++
	}
	r.Steps = append(r.Steps, step)
}

// DeleteStartedHunt removes a session and everything hanging off it:
// every tracked submission with its photo blob, the session's teams,
// the snapshot task photo blobs, and finally the session record. Only
// a missing session record fails the call; sub-step failures are
// tagged in the report and logged.
func (e Engine) DeleteStartedHunt(ctx context.Context, id string) (CascadeReport, error) {
	report := CascadeReport{StartedHuntID: id}
	if err := requireID(id, "started hunt"); err != nil {
		return report, err
	}
	s, err := e.Repo.GetStartedHunt(ctx, id)
	if err != nil {
		return report, err
	}

	// blobs go first, one step per submission; the surviving records
	// are then removed with a single bulk statement
	var subRecords []string
	for _, subID := range s.SubmissionIDs {
		if e.cascadeSubmissionBlob(ctx, subID, &report) {
			subRecords = append(subRecords, subID)
		}
	}
	if len(subRecords) > 0 {
		berr := e.Repo.DeleteSubmissionsBulk(ctx, subRecords)
		for _, subID := range subRecords {
			if berr != nil {
				report.add("submission", subID, StepFailed, berr)
			} else {
				report.add("submission", subID, StepDeleted, nil)
			}
		}
	}

	n, err := e.Repo.DeleteTeamsByStartedHunt(ctx, id)
	switch {
	case err != nil:
		report.add("teams", id, StepFailed, err)
	case n == 0:
		report.add("teams", id, StepAlreadyAbsent, nil)
	default:
		report.add("teams", id, StepDeleted, nil)
	}

	for _, task := range s.CompleteHunt.Tasks {
		for _, photoID := range task.Photos {
			e.cascadeBlob(ctx, "task_photo", photoID, &report)
		}
	}

	err = e.Repo.DeleteStartedHunt(ctx, id)
	switch {
	case err == nil:
		report.add("started_hunt", id, StepDeleted, nil)
	case errors.Is(err, repo.ErrNotFound):
		// deleted out from under us, the cascade still succeeded
		report.add("started_hunt", id, StepAlreadyAbsent, nil)
	default:
		report.add("started_hunt", id, StepFailed, err)
		return report, err
	}

	if report.Failures > 0 {
		log.Printf("delete started hunt %s: %d of %d cascade steps failed", id, report.Failures, len(report.Steps))
	}
	e.logEvent(ctx, "session.deleted", "started_hunt", id, events.EventPayload{
		"steps":    len(report.Steps),
		"failures": report.Failures,
	})
	return report, nil
}

// cascadeSubmissionBlob resolves one tracked submission and removes its
// blob. It reports true when the record still exists and should go into
// the bulk record delete; an id the session tracks but the ledger no
// longer holds is tolerated as already absent.
func (e Engine) cascadeSubmissionBlob(ctx context.Context, subID string, report *CascadeReport) bool {
	sub, err := e.Repo.GetSubmission(ctx, subID)
	if errors.Is(err, repo.ErrNotFound) {
		report.add("submission", subID, StepAlreadyAbsent, nil)
		return false
	}
	if err != nil {
		report.add("submission", subID, StepFailed, err)
		return false
	}
	if sub.PhotoPath != "" {
		e.cascadeBlob(ctx, "submission_photo", sub.PhotoPath, report)
	}
	return true
}

func (e Engine) cascadeBlob(_ context.Context, kind, photoID string, report *CascadeReport) {
	err := e.Blobs.Delete(photoID)
	switch {
	case err == nil:
		report.add(kind, photoID, StepDeleted, nil)
	case errors.Is(err, blob.ErrNotFound):
		report.add(kind, photoID, StepAlreadyAbsent, nil)
	default:
		report.add(kind, photoID, StepFailed, err)
		log.Printf("delete blob %s: %v", photoID, err)
	}
}
