package server

// Request payloads

type CreateHuntRequest struct {
	HostID      string `json:"hostId"`
	Name        string `json:"name" maxLength:"50"`
	Description string `json:"description,omitempty" maxLength:"200"`
	Est         int    `json:"est,omitempty"`
}

type CreateTaskRequest struct {
	HuntID string `json:"huntId"`
	Name   string `json:"name" maxLength:"150"`
}

type CreateTeamRequest struct {
	TeamName      string `json:"teamName"`
	StartedHuntID string `json:"startedHuntId"`
}

type CreateHostRequest struct {
	Name string `json:"name"`
}

// Response payloads

type IDResponse struct {
	ID string `json:"id"`
}

type PhotoResponse struct {
	// Photo is the blob content, base64 encoded for direct use in a
	// data URI.
	Photo string `json:"photo"`
}
