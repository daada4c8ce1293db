package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"huntline/internal/domain"
	"huntline/internal/engine"
)

func registerSessions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-hunt",
		Method:        http.MethodPost,
		Path:          "/startHunt/{id}",
		Summary:       "Start a hunt",
		Description:   "Snapshots the hunt identified by the path id into a new session and returns its access code.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		HuntID string `path:"id"`
	}) (*struct {
		Body string `json:"body"`
	}, error) {
		s, err := e.StartHunt(ctx, input.HuntID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body string `json:"body"`
		}{Body: s.AccessCode}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-started-hunt",
		Method:      http.MethodGet,
		Path:        "/startHunt/{id}",
		Summary:     "Get a session by id",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.StartedHunt `json:"body"`
	}, error) {
		s, err := e.GetStartedHunt(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StartedHunt `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "join-by-access-code",
		Method:      http.MethodGet,
		Path:        "/startedHunts/{id}",
		Summary:     "Join a session by access code",
		Description: "The path id is the six-digit access code players type in, not a session id.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AccessCode string `path:"id"`
	}) (*struct {
		Body domain.StartedHunt `json:"body"`
	}, error) {
		s, err := e.JoinByAccessCode(ctx, input.AccessCode)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StartedHunt `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-started-hunts-by-host",
		Method:      http.MethodGet,
		Path:        "/startedHunts/host/{hostId}",
		Summary:     "List a host's sessions",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		HostID string `path:"hostId"`
	}) (*struct {
		Body []domain.StartedHunt `json:"body"`
	}, error) {
		list, err := e.ListStartedHuntsByHost(ctx, input.HostID)
		if err != nil {
			return nil, handleError(err)
		}
		if list == nil {
			list = []domain.StartedHunt{}
		}
		return &struct {
			Body []domain.StartedHunt `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "end-hunt",
		Method:      http.MethodPut,
		Path:        "/endHunt/{id}",
		Summary:     "End a session",
		Description: "Flips the session to ended and revokes its access code.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.StartedHunt `json:"body"`
	}, error) {
		if err := e.EndStartedHunt(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		s, err := e.GetStartedHunt(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StartedHunt `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-ended-hunts",
		Method:      http.MethodGet,
		Path:        "/endedHunts",
		Summary:     "List ended sessions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.StartedHunt `json:"body"`
	}, error) {
		list, err := e.ListEndedHunts(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if list == nil {
			list = []domain.StartedHunt{}
		}
		return &struct {
			Body []domain.StartedHunt `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-started-hunt",
		Method:        http.MethodDelete,
		Path:          "/startedHunts/{id}",
		Summary:       "Delete a session",
		Description:   "Removes the session, its submissions with their photos, its teams and its snapshot photos.",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if _, err := e.DeleteStartedHunt(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}
