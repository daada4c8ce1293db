package domain

type Host struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Hunt struct {
	ID            string `json:"id"`
	HostID        string `json:"hostId"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Est           int    `json:"est"`
	NumberOfTasks int    `json:"numberOfTasks"`
	CreatedAt     string `json:"created_at" format:"date-time"`
}

type Task struct {
	ID     string   `json:"id"`
	HuntID string   `json:"huntId"`
	Name   string   `json:"name"`
	Status bool     `json:"status"`
	Photos []string `json:"photos"`
}

// CompleteHunt is the immutable hunt+tasks snapshot embedded into a
// StartedHunt when it begins. Tasks inside the snapshot accumulate photo
// ids as players submit; the authored tasks are never touched.
type CompleteHunt struct {
	Hunt  Hunt   `json:"hunt"`
	Tasks []Task `json:"tasks"`
}

// StartedHunt is a live (or ended) play session of a hunt.
// Status true means joinable; ending a session flips status, stamps
// EndDate and revokes the access code.
type StartedHunt struct {
	ID            string       `json:"id"`
	AccessCode    string       `json:"accessCode"`
	CompleteHunt  CompleteHunt `json:"completeHunt"`
	Status        bool         `json:"status"`
	EndDate       *string      `json:"endDate,omitempty" format:"date-time"`
	SubmissionIDs []string     `json:"submissionIds"`
	Version       int64        `json:"-"`
}

type Team struct {
	ID            string `json:"id"`
	TeamName      string `json:"teamName"`
	StartedHuntID string `json:"startedHuntId"`
}

type Submission struct {
	ID         string `json:"id"`
	TaskID     string `json:"taskId"`
	TeamID     string `json:"teamId"`
	PhotoPath  string `json:"photoPath"`
	SubmitTime string `json:"submitTime" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
