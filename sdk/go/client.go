package huntlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Huntline HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "api",
		Timeout:  10 * time.Second,
	}
}

// StartedHunt represents the API session model (partial).
type StartedHunt struct {
	ID           string `json:"id"`
	AccessCode   string `json:"accessCode"`
	Status       bool   `json:"status"`
	EndDate      string `json:"endDate,omitempty"`
	CompleteHunt struct {
		Hunt struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"hunt"`
		Tasks []SessionTask `json:"tasks"`
	} `json:"completeHunt"`
	SubmissionIDs []string `json:"submissionIds"`
}

// SessionTask is a task inside a session snapshot.
type SessionTask struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Status bool     `json:"status"`
	Photos []string `json:"photos"`
}

// Team represents a group of players inside a session.
type Team struct {
	ID            string `json:"id"`
	TeamName      string `json:"teamName"`
	StartedHuntID string `json:"startedHuntId"`
}

// Submission is a team's photo answer to a task.
type Submission struct {
	ID         string `json:"id"`
	TaskID     string `json:"taskId"`
	TeamID     string `json:"teamId"`
	PhotoPath  string `json:"photoPath"`
	SubmitTime string `json:"submitTime"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// StartHunt starts a session of a hunt and returns its access code.
func (c *Client) StartHunt(ctx context.Context, huntID string) (string, error) {
	var code string
	err := c.do(ctx, http.MethodPost, "startHunt/"+url.PathEscape(huntID), nil, &code)
	return code, err
}

// Join resolves the session behind a six-digit access code.
func (c *Client) Join(ctx context.Context, accessCode string) (StartedHunt, error) {
	var resp StartedHunt
	err := c.do(ctx, http.MethodGet, "startedHunts/"+url.PathEscape(accessCode), nil, &resp)
	return resp, err
}

// StartedHunt fetches a session by id.
func (c *Client) StartedHunt(ctx context.Context, id string) (StartedHunt, error) {
	var resp StartedHunt
	err := c.do(ctx, http.MethodGet, "startHunt/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// EndHunt ends a session and returns its final state.
func (c *Client) EndHunt(ctx context.Context, id string) (StartedHunt, error) {
	var resp StartedHunt
	err := c.do(ctx, http.MethodPut, "endHunt/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// DeleteStartedHunt removes a session and everything attached to it.
func (c *Client) DeleteStartedHunt(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "startedHunts/"+url.PathEscape(id), nil, nil)
}

// AddTeams bulk-creates teams for a session.
func (c *Client) AddTeams(ctx context.Context, startedHuntID string, numTeams int) ([]Team, error) {
	var resp []Team
	endpoint := fmt.Sprintf("teams/addTeams/%s/%d", url.PathEscape(startedHuntID), numTeams)
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Teams lists a session's teams.
func (c *Client) Teams(ctx context.Context, startedHuntID string) ([]Team, error) {
	var resp []Team
	err := c.do(ctx, http.MethodGet, "teams/startedHunt/"+url.PathEscape(startedHuntID), nil, &resp)
	return resp, err
}

// Submit uploads a team's photo answer for a task, creating or
// replacing the submission.
func (c *Client) Submit(ctx context.Context, startedHuntID, teamID, taskID, filename string, photo io.Reader) (string, error) {
	endpoint := fmt.Sprintf("submissions/startedHunt/%s/team/%s/task/%s",
		url.PathEscape(startedHuntID), url.PathEscape(teamID), url.PathEscape(taskID))
	var resp struct {
		ID string `json:"id"`
	}
	err := c.doMultipart(ctx, http.MethodPost, endpoint, filename, photo, &resp)
	return resp.ID, err
}

// Submissions lists a session's submissions.
func (c *Client) Submissions(ctx context.Context, startedHuntID string) ([]Submission, error) {
	var resp []Submission
	err := c.do(ctx, http.MethodGet, "submissions/startedHunt/"+url.PathEscape(startedHuntID), nil, &resp)
	return resp, err
}

// SubmissionPhoto fetches a submission's photo as a base64 string.
func (c *Client) SubmissionPhoto(ctx context.Context, submissionID string) (string, error) {
	var resp struct {
		Photo string `json:"photo"`
	}
	err := c.do(ctx, http.MethodGet, "submissions/"+url.PathEscape(submissionID)+"/photo", nil, &resp)
	return resp.Photo, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpointURL(endpoint), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) doMultipart(ctx context.Context, method, endpoint, filename string, photo io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, photo); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpointURL(endpoint), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) endpointURL(endpoint string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	path := strings.Trim(c.BasePath, "/")
	return base + "/" + path + "/" + strings.TrimLeft(endpoint, "/")
}
