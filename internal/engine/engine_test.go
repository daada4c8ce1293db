package engine_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"huntline/internal/blob"
	"huntline/internal/db"
	"huntline/internal/domain"
	"huntline/internal/engine"
	"huntline/internal/migrate"
	"huntline/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Blobs  *blob.Store
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	blobs := blob.NewStore(filepath.Join(dir, "photos"))
	eng := engine.New(conn, blobs)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	eng.Rand = func(n int) int { return 0 }
	return testEnv{Engine: eng, Blobs: blobs, Ctx: context.Background()}
}

// seqRand returns 0, 1, 2, ... on successive draws.
func seqRand() func(int) int {
	i := -1
	return func(n int) int {
		i++
		return i % n
	}
}

// seedHunt creates a host, a hunt and three tasks, and returns the hunt.
func seedHunt(t *testing.T, env testEnv) domain.Hunt {
	t.Helper()
	host, err := env.Engine.CreateHost(env.Ctx, "KK")
	if err != nil {
		t.Fatalf("create host: %v", err)
	}
	hunt, err := env.Engine.CreateHunt(env.Ctx, host.ID, "Campus hunt", "Find things around campus", 45)
	if err != nil {
		t.Fatalf("create hunt: %v", err)
	}
	for _, name := range []string{"Take a photo of the statue", "Find the oldest building", "Group selfie at the gate"} {
		if _, err := env.Engine.AddTask(env.Ctx, hunt.ID, name); err != nil {
			t.Fatalf("add task: %v", err)
		}
	}
	return hunt
}

func startSession(t *testing.T, env testEnv, huntID string) domain.StartedHunt {
	t.Helper()
	s, err := env.Engine.StartHunt(env.Ctx, huntID)
	if err != nil {
		t.Fatalf("start hunt: %v", err)
	}
	return s
}

func TestStartHuntSnapshotsAndAssignsCode(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	if s.AccessCode != "100000" {
		t.Fatalf("access code = %q, want 100000 with zero rand", s.AccessCode)
	}
	if !s.Status {
		t.Fatalf("new session should be active")
	}
	if len(s.CompleteHunt.Tasks) != 3 {
		t.Fatalf("snapshot tasks = %d, want 3", len(s.CompleteHunt.Tasks))
	}
	for _, task := range s.CompleteHunt.Tasks {
		if len(task.Photos) != 0 || task.Status {
			t.Fatalf("snapshot task %s should start unfinished with no photos", task.ID)
		}
	}
	joined, err := env.Engine.JoinByAccessCode(env.Ctx, s.AccessCode)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.ID != s.ID {
		t.Fatalf("join resolved %s, want %s", joined.ID, s.ID)
	}
}

func TestStartHuntRerollsTakenCode(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	env.Engine.Rand = seqRand()
	first := startSession(t, env, hunt.ID)
	if first.AccessCode != "100000" {
		t.Fatalf("first code = %q", first.AccessCode)
	}
	env.Engine.Rand = seqRand() // draws 100000 again, then 100001
	second := startSession(t, env, hunt.ID)
	if second.AccessCode != "100001" {
		t.Fatalf("second code = %q, want re-rolled 100001", second.AccessCode)
	}
	// every draw collides once codes can never be free
	env.Engine.Rand = func(n int) int { return 0 }
	_, err := env.Engine.StartHunt(env.Ctx, hunt.ID)
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("exhausted re-rolls should conflict, got %v", err)
	}
}

func TestJoinValidatesCodeBeforeLookup(t *testing.T) {
	env := newTestEnv(t)
	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef", " 23456"} {
		_, err := env.Engine.JoinByAccessCode(env.Ctx, code)
		var ve engine.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("code %q: expected validation error, got %v", code, err)
		}
	}
	// well-formed but unknown
	_, err := env.Engine.JoinByAccessCode(env.Ctx, "654321")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown code: expected not found, got %v", err)
	}
}

func TestEndHuntRevokesAccessCode(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	if err := env.Engine.EndStartedHunt(env.Ctx, s.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	ended, err := env.Engine.GetStartedHunt(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ended.Status {
		t.Fatalf("ended session should not be active")
	}
	if ended.AccessCode != "1" {
		t.Fatalf("access code = %q, want sentinel 1", ended.AccessCode)
	}
	if ended.EndDate == nil || *ended.EndDate == "" {
		t.Fatalf("end date not stamped")
	}
	// the old code no longer resolves
	if _, err := env.Engine.JoinByAccessCode(env.Ctx, s.AccessCode); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("old code should be gone, got %v", err)
	}
	// the freed code is immediately reusable
	fresh := startSession(t, env, hunt.ID)
	if fresh.AccessCode != s.AccessCode {
		t.Fatalf("freed code not reused: %q vs %q", fresh.AccessCode, s.AccessCode)
	}
	// ended sessions appear in the ended list
	endedList, err := env.Engine.ListEndedHunts(env.Ctx)
	if err != nil || len(endedList) != 1 || endedList[0].ID != s.ID {
		t.Fatalf("ended list = %v, %v", endedList, err)
	}
	// ending an already ended session is harmless
	if err := env.Engine.EndStartedHunt(env.Ctx, s.ID); err != nil {
		t.Fatalf("double end: %v", err)
	}
}

func TestCreateTeamsBounds(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	var ve engine.ValidationError
	if _, err := env.Engine.CreateTeams(env.Ctx, s.ID, 0); !errors.As(err, &ve) {
		t.Fatalf("0 teams: %v", err)
	}
	if _, err := env.Engine.CreateTeams(env.Ctx, s.ID, 11); !errors.As(err, &ve) {
		t.Fatalf("11 teams: %v", err)
	}
	teams, err := env.Engine.CreateTeams(env.Ctx, s.ID, 3)
	if err != nil {
		t.Fatalf("3 teams: %v", err)
	}
	if len(teams) != 3 {
		t.Fatalf("teams = %d", len(teams))
	}
	for i, team := range teams {
		want := "Team " + string(rune('0'+i))
		if team.TeamName != want {
			t.Fatalf("team %d named %q, want %q", i, team.TeamName, want)
		}
	}
	listed, err := env.Engine.ListTeamsByStartedHunt(env.Ctx, s.ID)
	if err != nil || len(listed) != 3 {
		t.Fatalf("listed teams = %v, %v", listed, err)
	}
	// the cap itself is inside the accepted range
	ten, err := env.Engine.CreateTeams(env.Ctx, s.ID, 10)
	if err != nil {
		t.Fatalf("10 teams: %v", err)
	}
	if len(ten) != 10 {
		t.Fatalf("teams = %d, want 10", len(ten))
	}
	listed, err = env.Engine.ListTeamsByStartedHunt(env.Ctx, s.ID)
	if err != nil || len(listed) != 13 {
		t.Fatalf("listed teams after cap-sized create = %d, %v", len(listed), err)
	}
}

func TestUpsertSubmissionPhoto(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	teams, err := env.Engine.CreateTeams(env.Ctx, s.ID, 1)
	if err != nil {
		t.Fatalf("teams: %v", err)
	}
	team := teams[0]
	taskID := s.CompleteHunt.Tasks[0].ID

	sub, err := env.Engine.UpsertSubmissionPhoto(env.Ctx, s.ID, team.ID, taskID, strings.NewReader("first"), "one.jpg")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !env.Blobs.Exists(sub.PhotoPath) {
		t.Fatalf("photo blob missing")
	}
	after, err := env.Engine.GetStartedHunt(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(after.SubmissionIDs) != 1 || after.SubmissionIDs[0] != sub.ID {
		t.Fatalf("submission ids = %v", after.SubmissionIDs)
	}

	// same team and task again: same submission, new photo, old blob gone
	oldPhoto := sub.PhotoPath
	again, err := env.Engine.UpsertSubmissionPhoto(env.Ctx, s.ID, team.ID, taskID, strings.NewReader("second"), "two.jpg")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if again.ID != sub.ID {
		t.Fatalf("upsert created a second submission")
	}
	if again.PhotoPath == oldPhoto {
		t.Fatalf("photo not replaced")
	}
	if env.Blobs.Exists(oldPhoto) {
		t.Fatalf("old blob should be removed")
	}
	if !env.Blobs.Exists(again.PhotoPath) {
		t.Fatalf("new blob missing")
	}
	after, _ = env.Engine.GetStartedHunt(env.Ctx, s.ID)
	if len(after.SubmissionIDs) != 1 {
		t.Fatalf("submission ids grew on upsert: %v", after.SubmissionIDs)
	}
}

func TestUpsertRollsBackWhenSessionVanishes(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	teams, err := env.Engine.CreateTeams(env.Ctx, s.ID, 1)
	if err != nil {
		t.Fatalf("teams: %v", err)
	}
	taskID := s.CompleteHunt.Tasks[0].ID

	// delete the session while the upload is still streaming in: the
	// blob id hook fires between the existence check and the record
	// writes, the narrowest spot a concurrent delete can land
	var photoID string
	env.Blobs.NewID = func() string {
		if _, derr := env.Engine.DeleteStartedHunt(env.Ctx, s.ID); derr != nil {
			t.Fatalf("concurrent delete: %v", derr)
		}
		id := uuid.NewString()
		photoID = id + ".jpg"
		return id
	}

	_, err = env.Engine.UpsertSubmissionPhoto(env.Ctx, s.ID, teams[0].ID, taskID, strings.NewReader("late"), "late.jpg")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("upsert against a vanished session: %v", err)
	}
	// the created record and blob must not outlive the failed linkage
	if _, gerr := env.Engine.GetSubmissionByTeamAndTask(env.Ctx, teams[0].ID, taskID); !errors.Is(gerr, repo.ErrNotFound) {
		t.Fatalf("orphaned submission survived: %v", gerr)
	}
	if env.Blobs.Exists(photoID) {
		t.Fatalf("orphaned blob %s survived", photoID)
	}
}

func TestReplaceSubmissionPhotoRequiresExisting(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.ReplaceSubmissionPhoto(env.Ctx, uuid.NewString(), uuid.NewString(), strings.NewReader("x"), "x.jpg")
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTaskPhotoAddAndReplace(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	taskID := s.CompleteHunt.Tasks[1].ID

	photoID, err := env.Engine.AddTaskPhoto(env.Ctx, s.ID, taskID, strings.NewReader("snap"), "snap.png")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !env.Blobs.Exists(photoID) {
		t.Fatalf("blob missing")
	}
	after, _ := env.Engine.GetStartedHunt(env.Ctx, s.ID)
	var task *domain.Task
	for i := range after.CompleteHunt.Tasks {
		if after.CompleteHunt.Tasks[i].ID == taskID {
			task = &after.CompleteHunt.Tasks[i]
		}
	}
	if task == nil || len(task.Photos) != 1 || task.Photos[0] != photoID {
		t.Fatalf("snapshot task photos not updated: %+v", task)
	}
	if !task.Status {
		t.Fatalf("task with a photo should be marked done")
	}

	newID, err := env.Engine.ReplaceTaskPhoto(env.Ctx, s.ID, taskID, photoID, strings.NewReader("snap2"), "snap2.png")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if env.Blobs.Exists(photoID) {
		t.Fatalf("old blob should be removed after swap")
	}
	after, _ = env.Engine.GetStartedHunt(env.Ctx, s.ID)
	for _, tk := range after.CompleteHunt.Tasks {
		if tk.ID == taskID {
			if len(tk.Photos) != 1 || tk.Photos[0] != newID {
				t.Fatalf("photos after replace = %v", tk.Photos)
			}
		}
	}

	// replacing an unknown photo id fails
	if _, err := env.Engine.ReplaceTaskPhoto(env.Ctx, s.ID, taskID, uuid.NewString(), strings.NewReader("x"), "x.png"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown photo: %v", err)
	}

	// adding to a task outside the snapshot fails
	if _, err := env.Engine.AddTaskPhoto(env.Ctx, s.ID, uuid.NewString(), strings.NewReader("x"), "x.png"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown task: %v", err)
	}
}

func TestDeleteSubmission(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	teams, _ := env.Engine.CreateTeams(env.Ctx, s.ID, 1)
	sub, err := env.Engine.UpsertSubmissionPhoto(env.Ctx, s.ID, teams[0].ID, s.CompleteHunt.Tasks[0].ID, strings.NewReader("pic"), "pic.jpg")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := env.Engine.DeleteSubmission(env.Ctx, sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if env.Blobs.Exists(sub.PhotoPath) {
		t.Fatalf("blob should be gone")
	}
	if _, err := env.Engine.GetSubmission(env.Ctx, sub.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("record should be gone, got %v", err)
	}
	// the session still lists the stale id; resolution skips it
	list, err := env.Engine.ListSubmissionsByStartedHunt(env.Ctx, s.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("stale id should resolve to nothing: %v, %v", list, err)
	}
}

func TestDeleteStartedHuntCascade(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	teams, _ := env.Engine.CreateTeams(env.Ctx, s.ID, 2)
	sub1, err := env.Engine.UpsertSubmissionPhoto(env.Ctx, s.ID, teams[0].ID, s.CompleteHunt.Tasks[0].ID, strings.NewReader("a"), "a.jpg")
	if err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	sub2, err := env.Engine.UpsertSubmissionPhoto(env.Ctx, s.ID, teams[1].ID, s.CompleteHunt.Tasks[1].ID, strings.NewReader("b"), "b.jpg")
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	taskPhoto, err := env.Engine.AddTaskPhoto(env.Ctx, s.ID, s.CompleteHunt.Tasks[2].ID, strings.NewReader("c"), "c.jpg")
	if err != nil {
		t.Fatalf("task photo: %v", err)
	}

	report, err := env.Engine.DeleteStartedHunt(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if report.Failures != 0 {
		t.Fatalf("cascade failures: %+v", report.Steps)
	}

	for _, sub := range []domain.Submission{sub1, sub2} {
		if _, err := env.Engine.GetSubmission(env.Ctx, sub.ID); !errors.Is(err, repo.ErrNotFound) {
			t.Fatalf("submission %s survived: %v", sub.ID, err)
		}
		if env.Blobs.Exists(sub.PhotoPath) {
			t.Fatalf("submission blob %s survived", sub.PhotoPath)
		}
	}
	if env.Blobs.Exists(taskPhoto) {
		t.Fatalf("task photo blob survived")
	}
	remaining, err := env.Engine.ListTeamsByStartedHunt(env.Ctx, s.ID)
	if err != nil || len(remaining) != 0 {
		t.Fatalf("teams survived: %v, %v", remaining, err)
	}
	if _, err := env.Engine.GetStartedHunt(env.Ctx, s.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("session survived: %v", err)
	}
	// re-running the cascade on a gone session is a plain not found
	if _, err := env.Engine.DeleteStartedHunt(env.Ctx, s.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestDeleteCascadeToleratesAbsentPieces(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	teams, _ := env.Engine.CreateTeams(env.Ctx, s.ID, 1)
	sub, err := env.Engine.UpsertSubmissionPhoto(env.Ctx, s.ID, teams[0].ID, s.CompleteHunt.Tasks[0].ID, strings.NewReader("a"), "a.jpg")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// remove the record out of band; the session still tracks its id
	if err := env.Engine.Repo.DeleteSubmission(env.Ctx, sub.ID); err != nil {
		t.Fatalf("out of band delete: %v", err)
	}
	report, err := env.Engine.DeleteStartedHunt(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if report.Failures != 0 {
		t.Fatalf("absent pieces should not count as failures: %+v", report.Steps)
	}
	absent := false
	for _, step := range report.Steps {
		if step.Kind == "submission" && step.Outcome == engine.StepAlreadyAbsent {
			absent = true
		}
	}
	if !absent {
		t.Fatalf("missing already_absent step: %+v", report.Steps)
	}
}

func TestDeleteEndedSession(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	if err := env.Engine.EndStartedHunt(env.Ctx, s.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := env.Engine.DeleteStartedHunt(env.Ctx, s.ID); err != nil {
		t.Fatalf("ended sessions must stay deletable: %v", err)
	}
}

func TestTaskCountTracksTasks(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	got, err := env.Engine.GetCompleteHunt(env.Ctx, hunt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Hunt.NumberOfTasks != 3 {
		t.Fatalf("task count = %d, want 3", got.Hunt.NumberOfTasks)
	}
	if err := env.Engine.DeleteTask(env.Ctx, got.Tasks[0].ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	got, _ = env.Engine.GetCompleteHunt(env.Ctx, hunt.ID)
	if got.Hunt.NumberOfTasks != 2 || len(got.Tasks) != 2 {
		t.Fatalf("after delete: count=%d tasks=%d", got.Hunt.NumberOfTasks, len(got.Tasks))
	}
}

func TestSnapshotFrozenAtStart(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	// edit the authored hunt after the session began
	if _, err := env.Engine.AddTask(env.Ctx, hunt.ID, "Added later"); err != nil {
		t.Fatalf("add task: %v", err)
	}
	if err := env.Engine.DeleteHunt(env.Ctx, hunt.ID); err != nil {
		t.Fatalf("delete hunt: %v", err)
	}
	after, err := env.Engine.GetStartedHunt(env.Ctx, s.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(after.CompleteHunt.Tasks) != 3 {
		t.Fatalf("snapshot changed after authoring edits: %d tasks", len(after.CompleteHunt.Tasks))
	}
}

func TestEventsAppendedOnLifecycle(t *testing.T) {
	env := newTestEnv(t)
	hunt := seedHunt(t, env)
	s := startSession(t, env, hunt.ID)
	if err := env.Engine.EndStartedHunt(env.Ctx, s.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 50, "", "started_hunt", s.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	var started, ended bool
	for _, evt := range events {
		switch evt.Type {
		case "session.started":
			started = true
		case "session.ended":
			ended = true
		}
	}
	if !started || !ended {
		t.Fatalf("missing lifecycle events: %+v", events)
	}
}
