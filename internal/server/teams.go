package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"huntline/internal/domain"
	"huntline/internal/engine"
)

func registerTeams(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-team",
		Method:        http.MethodPost,
		Path:          "/teams",
		Summary:       "Create a team",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateTeamRequest
	}) (*struct {
		Body domain.Team `json:"body"`
	}, error) {
		team, err := e.CreateTeam(ctx, input.Body.TeamName, input.Body.StartedHuntID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Team `json:"body"`
		}{Body: team}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-teams",
		Method:        http.MethodPost,
		Path:          "/teams/addTeams/{startedHuntId}/{numTeams}",
		Summary:       "Bulk-create teams for a session",
		Description:   "Creates numTeams teams named Team 0 through Team N-1. Between 1 and 10 per call.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		StartedHuntID string `path:"startedHuntId"`
		NumTeams      int    `path:"numTeams"`
	}) (*struct {
		Body []domain.Team `json:"body"`
	}, error) {
		teams, err := e.CreateTeams(ctx, input.StartedHuntID, input.NumTeams)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Team `json:"body"`
		}{Body: teams}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-team",
		Method:      http.MethodGet,
		Path:        "/teams/{id}",
		Summary:     "Get a team",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Team `json:"body"`
	}, error) {
		team, err := e.GetTeam(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Team `json:"body"`
		}{Body: team}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-teams",
		Method:      http.MethodGet,
		Path:        "/teams",
		Summary:     "List all teams",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Team `json:"body"`
	}, error) {
		list, err := e.ListTeams(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return teamList(list), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-teams-by-started-hunt",
		Method:      http.MethodGet,
		Path:        "/teams/startedHunt/{startedHuntId}",
		Summary:     "List a session's teams",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		StartedHuntID string `path:"startedHuntId"`
	}) (*struct {
		Body []domain.Team `json:"body"`
	}, error) {
		list, err := e.ListTeamsByStartedHunt(ctx, input.StartedHuntID)
		if err != nil {
			return nil, handleError(err)
		}
		return teamList(list), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-team",
		Method:        http.MethodDelete,
		Path:          "/teams/{id}",
		Summary:       "Delete a team",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteTeam(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func teamList(list []domain.Team) *struct {
	Body []domain.Team `json:"body"`
} {
	if list == nil {
		list = []domain.Team{}
	}
	return &struct {
		Body []domain.Team `json:"body"`
	}{Body: list}
}
