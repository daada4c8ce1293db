package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log"

	"github.com/google/uuid"

	"huntline/internal/blob"
	"huntline/internal/domain"
	"huntline/internal/events"
	"huntline/internal/repo"
)

// AddTaskPhoto stores the uploaded photo and appends its id to the
// snapshot task's photo list. The blob is written first; if the
// document update then fails, the orphaned blob is removed again.
func (e Engine) AddTaskPhoto(ctx context.Context, startedHuntID, taskID string, photo io.Reader, filename string) (string, error) {
	if err := requireID(startedHuntID, "started hunt"); err != nil {
		return "", err
	}
	if err := requireID(taskID, "task"); err != nil {
		return "", err
	}
	s, err := e.Repo.GetStartedHunt(ctx, startedHuntID)
	if err != nil {
		return "", err
	}
	if findSnapshotTask(&s, taskID) == nil {
		return "", repo.ErrNotFound
	}

	photoID, err := e.Blobs.Put(photo, filename)
	if err != nil {
		return "", StorageError{Op: "write", Err: err}
	}
	_, err = e.updateStartedHuntDoc(ctx, startedHuntID, func(s *domain.StartedHunt) error {
		task := findSnapshotTask(s, taskID)
		if task == nil {
			return repo.ErrNotFound
		}
		task.Status = true
		task.Photos = append(task.Photos, photoID)
		return nil
	})
	if err != nil {
		e.discardBlob(photoID)
		return "", err
	}
	e.logEvent(ctx, "task.photo.added", "started_hunt", startedHuntID, events.EventPayload{
		"taskId":  taskID,
		"photoId": photoID,
	})
	return photoID, nil
}

// ReplaceTaskPhoto uploads the new photo, swaps it into the snapshot
// task's photo list in place of photoID, and only then deletes the old
// blob. A crash between the swap and the delete leaves an orphaned
// blob rather than a dangling reference.
func (e Engine) ReplaceTaskPhoto(ctx context.Context, startedHuntID, taskID, photoID string, photo io.Reader, filename string) (string, error) {
	if err := requireID(startedHuntID, "started hunt"); err != nil {
		return "", err
	}
	if err := requireID(taskID, "task"); err != nil {
		return "", err
	}
	s, err := e.Repo.GetStartedHunt(ctx, startedHuntID)
	if err != nil {
		return "", err
	}
	task := findSnapshotTask(&s, taskID)
	if task == nil || !containsString(task.Photos, photoID) {
		return "", repo.ErrNotFound
	}

	newID, err := e.Blobs.Put(photo, filename)
	if err != nil {
		return "", StorageError{Op: "write", Err: err}
	}
	_, err = e.updateStartedHuntDoc(ctx, startedHuntID, func(s *domain.StartedHunt) error {
		task := findSnapshotTask(s, taskID)
		if task == nil {
			return repo.ErrNotFound
		}
		for i, p := range task.Photos {
			if p == photoID {
				task.Photos[i] = newID
				return nil
			}
		}
		return repo.ErrNotFound
	})
	if err != nil {
		e.discardBlob(newID)
		return "", err
	}
	e.discardBlob(photoID)
	e.logEvent(ctx, "task.photo.replaced", "started_hunt", startedHuntID, events.EventPayload{
		"taskId":     taskID,
		"oldPhotoId": photoID,
		"photoId":    newID,
	})
	return newID, nil
}

// UpsertSubmissionPhoto stores the uploaded photo and creates the
// team's submission for the task, or replaces the photo on the
// existing one. A team holds at most one submission per task; the
// session's submission id list grows only on create.
func (e Engine) UpsertSubmissionPhoto(ctx context.Context, startedHuntID, teamID, taskID string, photo io.Reader, filename string) (domain.Submission, error) {
	if err := requireID(startedHuntID, "started hunt"); err != nil {
		return domain.Submission{}, err
	}
	if err := requireID(teamID, "team"); err != nil {
		return domain.Submission{}, err
	}
	if err := requireID(taskID, "task"); err != nil {
		return domain.Submission{}, err
	}
	if _, err := e.Repo.GetStartedHunt(ctx, startedHuntID); err != nil {
		return domain.Submission{}, err
	}

	photoID, err := e.Blobs.Put(photo, filename)
	if err != nil {
		return domain.Submission{}, StorageError{Op: "write", Err: err}
	}

	existing, err := e.Repo.GetSubmissionByTeamAndTask(ctx, teamID, taskID)
	switch {
	case err == nil:
		return e.swapSubmissionPhoto(ctx, existing, photoID)
	case errors.Is(err, repo.ErrNotFound):
		// fall through to create
	default:
		e.discardBlob(photoID)
		return domain.Submission{}, err
	}

	sub := domain.Submission{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		TeamID:     teamID,
		PhotoPath:  photoID,
		SubmitTime: e.timestamp(),
	}
	if err := e.Repo.InsertSubmission(ctx, sub); err != nil {
		// a concurrent create for the same (team, task) pair wins the
		// unique index; treat ours as a replace of the winner's photo
		if existing, gerr := e.Repo.GetSubmissionByTeamAndTask(ctx, teamID, taskID); gerr == nil {
			return e.swapSubmissionPhoto(ctx, existing, photoID)
		}
		e.discardBlob(photoID)
		return domain.Submission{}, err
	}
	_, err = e.updateStartedHuntDoc(ctx, startedHuntID, func(s *domain.StartedHunt) error {
		s.SubmissionIDs = append(s.SubmissionIDs, sub.ID)
		return nil
	})
	if err != nil {
		// the session never learned about the submission; undo the
		// create rather than leave a record the cascade cannot reach
		if derr := e.Repo.DeleteSubmission(ctx, sub.ID); derr != nil && !errors.Is(derr, repo.ErrNotFound) {
			log.Printf("untracked submission %s not removed: %v", sub.ID, derr)
		}
		e.discardBlob(photoID)
		return domain.Submission{}, err
	}
	e.logEvent(ctx, "submission.created", "submission", sub.ID, events.EventPayload{
		"startedHuntId": startedHuntID,
		"teamId":        teamID,
		"taskId":        taskID,
	})
	return sub, nil
}

// ReplaceSubmissionPhoto swaps the photo on a team's existing
// submission for a task. Unlike the upsert, a missing submission is an
// error here.
func (e Engine) ReplaceSubmissionPhoto(ctx context.Context, teamID, taskID string, photo io.Reader, filename string) (domain.Submission, error) {
	if err := requireID(teamID, "team"); err != nil {
		return domain.Submission{}, err
	}
	if err := requireID(taskID, "task"); err != nil {
		return domain.Submission{}, err
	}
	existing, err := e.Repo.GetSubmissionByTeamAndTask(ctx, teamID, taskID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Submission{}, ValidationError{Msg: "no submission found for the given team and task"}
	}
	if err != nil {
		return domain.Submission{}, err
	}
	photoID, err := e.Blobs.Put(photo, filename)
	if err != nil {
		return domain.Submission{}, StorageError{Op: "write", Err: err}
	}
	return e.swapSubmissionPhoto(ctx, existing, photoID)
}

// swapSubmissionPhoto points the submission at newPhotoID and removes
// the previous blob once the record update has stuck.
func (e Engine) swapSubmissionPhoto(ctx context.Context, sub domain.Submission, newPhotoID string) (domain.Submission, error) {
	oldPhoto := sub.PhotoPath
	sub.PhotoPath = newPhotoID
	sub.SubmitTime = e.timestamp()
	if err := e.Repo.UpdateSubmissionPhoto(ctx, sub.ID, sub.PhotoPath, sub.SubmitTime); err != nil {
		e.discardBlob(newPhotoID)
		return domain.Submission{}, err
	}
	if oldPhoto != "" && oldPhoto != newPhotoID {
		e.discardBlob(oldPhoto)
	}
	e.logEvent(ctx, "submission.updated", "submission", sub.ID, events.EventPayload{
		"teamId": sub.TeamID,
		"taskId": sub.TaskID,
	})
	return sub, nil
}

// SubmissionPhoto returns the submission's photo as a base64 string,
// the shape clients render into data URIs.
func (e Engine) SubmissionPhoto(ctx context.Context, submissionID string) (string, error) {
	if err := requireID(submissionID, "submission"); err != nil {
		return "", err
	}
	sub, err := e.Repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return "", err
	}
	if sub.PhotoPath == "" {
		return "", repo.ErrNotFound
	}
	data, err := e.Blobs.Read(sub.PhotoPath)
	if errors.Is(err, blob.ErrNotFound) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", StorageError{Op: "read", Err: err}
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DeleteSubmission removes the submission's blob and record. An
// already-missing blob is tolerated; a live blob that cannot be
// removed fails the delete so the record keeps pointing at it.
func (e Engine) DeleteSubmission(ctx context.Context, submissionID string) error {
	if err := requireID(submissionID, "submission"); err != nil {
		return err
	}
	sub, err := e.Repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.PhotoPath != "" {
		if err := e.Blobs.Remove(sub.PhotoPath); err != nil {
			return StorageError{Op: "delete", Err: err}
		}
	}
	if err := e.Repo.DeleteSubmission(ctx, submissionID); err != nil {
		return err
	}
	e.logEvent(ctx, "submission.deleted", "submission", submissionID, events.EventPayload{
		"teamId": sub.TeamID,
		"taskId": sub.TaskID,
	})
	return nil
}

func (e Engine) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	if err := requireID(id, "submission"); err != nil {
		return domain.Submission{}, err
	}
	return e.Repo.GetSubmission(ctx, id)
}

func (e Engine) GetSubmissionByTeamAndTask(ctx context.Context, teamID, taskID string) (domain.Submission, error) {
	if err := requireID(teamID, "team"); err != nil {
		return domain.Submission{}, err
	}
	if err := requireID(taskID, "task"); err != nil {
		return domain.Submission{}, err
	}
	return e.Repo.GetSubmissionByTeamAndTask(ctx, teamID, taskID)
}

func (e Engine) ListSubmissionsByTeam(ctx context.Context, teamID string) ([]domain.Submission, error) {
	if err := requireID(teamID, "team"); err != nil {
		return nil, err
	}
	return e.Repo.ListSubmissionsByTeam(ctx, teamID)
}

func (e Engine) ListSubmissionsByTask(ctx context.Context, taskID string) ([]domain.Submission, error) {
	if err := requireID(taskID, "task"); err != nil {
		return nil, err
	}
	return e.Repo.ListSubmissionsByTask(ctx, taskID)
}

// ListSubmissionsByStartedHunt resolves the submissions tracked on the
// session document. Ids pointing at records a previous partial delete
// already removed are simply skipped by the lookup.
func (e Engine) ListSubmissionsByStartedHunt(ctx context.Context, startedHuntID string) ([]domain.Submission, error) {
	if err := requireID(startedHuntID, "started hunt"); err != nil {
		return nil, err
	}
	s, err := e.Repo.GetStartedHunt(ctx, startedHuntID)
	if err != nil {
		return nil, err
	}
	return e.Repo.ListSubmissionsByIDs(ctx, s.SubmissionIDs)
}

// discardBlob is best-effort cleanup for blobs that lost their
// reference.
func (e Engine) discardBlob(photoID string) {
	if err := e.Blobs.Remove(photoID); err != nil {
		log.Printf("orphaned blob %s not removed: %v", photoID, err)
	}
}

func findSnapshotTask(s *domain.StartedHunt, taskID string) *domain.Task {
	for i := range s.CompleteHunt.Tasks {
		if s.CompleteHunt.Tasks[i].ID == taskID {
			return &s.CompleteHunt.Tasks[i]
		}
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
