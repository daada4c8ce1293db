package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"huntline/internal/blob"
	"huntline/internal/db"
	"huntline/internal/domain"
	"huntline/internal/engine"
	"huntline/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, blob.NewStore(filepath.Join(workspace, "photos")))
	e.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	e.Rand = func(n int) int { return 0 }
	handler, err := New(Config{Engine: e, BasePath: "/api"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func doPhoto(t *testing.T, client *http.Client, method, url, filename string, content []byte) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", string(data), err)
	}
}

// seedSession creates a host, hunt and tasks through the engine and
// starts a session over HTTP.
func seedSession(t *testing.T, srv *testServer) (domain.StartedHunt, string) {
	t.Helper()
	ctx := context.Background()
	host, err := srv.Engine.CreateHost(ctx, "KK")
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	hunt, err := srv.Engine.CreateHunt(ctx, host.ID, "Campus hunt", "", 30)
	if err != nil {
		t.Fatalf("hunt: %v", err)
	}
	for _, name := range []string{"statue", "oldest building"} {
		if _, err := srv.Engine.AddTask(ctx, hunt.ID, name); err != nil {
			t.Fatalf("task: %v", err)
		}
	}
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/startHunt/"+hunt.ID, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("start: %d %s", res.StatusCode, data)
	}
	var code string
	decode(t, data, &code)

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/startedHunts/"+code, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("join: %d %s", res.StatusCode, data)
	}
	var s domain.StartedHunt
	decode(t, data, &s)
	return s, code
}

func TestStartAndJoinFlow(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	s, code := seedSession(t, srv)
	if code != "100000" {
		t.Fatalf("code = %q", code)
	}
	if !s.Status || len(s.CompleteHunt.Tasks) != 2 {
		t.Fatalf("joined session: %+v", s)
	}

	// malformed codes are rejected before lookup
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/startedHunts/12345", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("short code: %d %s", res.StatusCode, data)
	}
	// well-formed but unknown
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/startedHunts/999999", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown code: %d", res.StatusCode)
	}
}

func TestEndHuntOverHTTP(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	s, code := seedSession(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodPut, srv.URL+"/api/endHunt/"+s.ID, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("end: %d %s", res.StatusCode, data)
	}
	var ended domain.StartedHunt
	decode(t, data, &ended)
	if ended.Status || ended.AccessCode != "1" || ended.EndDate == nil {
		t.Fatalf("ended session: %+v", ended)
	}

	// the revoked code no longer joins
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/startedHunts/"+code, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("revoked code: %d", res.StatusCode)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/endedHunts", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("ended list: %d", res.StatusCode)
	}
	var list []domain.StartedHunt
	decode(t, data, &list)
	if len(list) != 1 || list[0].ID != s.ID {
		t.Fatalf("ended list: %+v", list)
	}
}

func TestSubmissionLifecycleOverHTTP(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	s, _ := seedSession(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/teams/addTeams/"+s.ID+"/2", nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("teams: %d %s", res.StatusCode, data)
	}
	var teams []domain.Team
	decode(t, data, &teams)
	if len(teams) != 2 || teams[0].TeamName != "Team 0" {
		t.Fatalf("teams: %+v", teams)
	}

	taskID := s.CompleteHunt.Tasks[0].ID
	res, data = doPhoto(t, srv.Client(), http.MethodPost,
		srv.URL+"/api/submissions/startedHunt/"+s.ID+"/team/"+teams[0].ID+"/task/"+taskID,
		"proof.jpg", []byte("jpeg-bytes"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit: %d %s", res.StatusCode, data)
	}
	var created IDResponse
	decode(t, data, &created)

	// a second post for the same pair replaces, not duplicates
	res, data = doPhoto(t, srv.Client(), http.MethodPost,
		srv.URL+"/api/submissions/startedHunt/"+s.ID+"/team/"+teams[0].ID+"/task/"+taskID,
		"proof2.jpg", []byte("jpeg-bytes-2"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("resubmit: %d %s", res.StatusCode, data)
	}
	var again IDResponse
	decode(t, data, &again)
	if again.ID != created.ID {
		t.Fatalf("resubmit created new submission %s vs %s", again.ID, created.ID)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/submissions/startedHunt/"+s.ID, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", res.StatusCode, data)
	}
	var subs []domain.Submission
	decode(t, data, &subs)
	if len(subs) != 1 {
		t.Fatalf("session submissions: %+v", subs)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/submissions/"+created.ID+"/photo", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("photo: %d %s", res.StatusCode, data)
	}
	var photo PhotoResponse
	decode(t, data, &photo)
	if photo.Photo == "" {
		t.Fatalf("empty photo payload")
	}

	res, _ = doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/api/submissions/"+created.ID, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete submission: %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/submissions/"+created.ID, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted submission still readable: %d", res.StatusCode)
	}
}

func TestTeamBoundsOverHTTP(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	s, _ := seedSession(t, srv)
	for _, n := range []string{"0", "11"} {
		res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/teams/addTeams/"+s.ID+"/"+n, nil)
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("n=%s: %d %s", n, res.StatusCode, data)
		}
	}
}

func TestDeleteStartedHuntOverHTTP(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	s, _ := seedSession(t, srv)
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/teams/addTeams/"+s.ID+"/1", nil)
	var teams []domain.Team
	decode(t, data, &teams)
	res, data = doPhoto(t, srv.Client(), http.MethodPost,
		srv.URL+"/api/submissions/startedHunt/"+s.ID+"/team/"+teams[0].ID+"/task/"+s.CompleteHunt.Tasks[0].ID,
		"a.jpg", []byte("a"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit: %d %s", res.StatusCode, data)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/api/startedHunts/"+s.ID, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/startHunt/"+s.ID, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("session survived: %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/api/startedHunts/"+s.ID, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: %d", res.StatusCode)
	}
}

func TestTaskPhotoOverHTTP(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	s, _ := seedSession(t, srv)
	taskID := s.CompleteHunt.Tasks[1].ID

	res, data := doPhoto(t, srv.Client(), http.MethodPost,
		srv.URL+"/api/startedHunt/"+s.ID+"/tasks/"+taskID+"/photo", "t.png", []byte("png"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add: %d %s", res.StatusCode, data)
	}
	var added IDResponse
	decode(t, data, &added)

	res, data = doPhoto(t, srv.Client(), http.MethodPut,
		srv.URL+"/api/startedHunt/"+s.ID+"/tasks/"+taskID+"/photo/"+added.ID, "t2.png", []byte("png2"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("replace: %d %s", res.StatusCode, data)
	}
	var replaced IDResponse
	decode(t, data, &replaced)
	if replaced.ID == added.ID {
		t.Fatalf("replace kept the old id")
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/startHunt/"+s.ID, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get session: %d", res.StatusCode)
	}
	var after domain.StartedHunt
	decode(t, data, &after)
	for _, task := range after.CompleteHunt.Tasks {
		if task.ID == taskID {
			if len(task.Photos) != 1 || task.Photos[0] != replaced.ID {
				t.Fatalf("snapshot photos: %v", task.Photos)
			}
		}
	}
}

func TestHealthAndDocs(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: %d %s", res.StatusCode, data)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/docs", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("docs: %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/openapi.json", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi: %d", res.StatusCode)
	}
}
