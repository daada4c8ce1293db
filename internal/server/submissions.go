package server

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"huntline/internal/domain"
	"huntline/internal/engine"
)

func registerSubmissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "upsert-submission",
		Method:        http.MethodPost,
		Path:          "/submissions/startedHunt/{startedHuntId}/team/{teamId}/task/{taskId}",
		Summary:       "Submit a photo for a task",
		Description:   "Creates the team's submission for the task, or replaces the photo on the existing one.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		StartedHuntID string `path:"startedHuntId"`
		TeamID        string `path:"teamId"`
		TaskID        string `path:"taskId"`
		RawBody       multipart.Form
	}) (*struct {
		Body IDResponse `json:"body"`
	}, error) {
		photo, filename, err := photoFromForm(input.RawBody)
		if err != nil {
			return nil, err
		}
		defer photo.Close()
		sub, err := e.UpsertSubmissionPhoto(ctx, input.StartedHuntID, input.TeamID, input.TaskID, photo, filename)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDResponse `json:"body"`
		}{Body: IDResponse{ID: sub.ID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-submission-photo",
		Method:      http.MethodPut,
		Path:        "/submissions/team/{teamId}/task/{taskId}",
		Summary:     "Replace the photo on an existing submission",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TeamID  string `path:"teamId"`
		TaskID  string `path:"taskId"`
		RawBody multipart.Form
	}) (*struct {
		Body IDResponse `json:"body"`
	}, error) {
		photo, filename, err := photoFromForm(input.RawBody)
		if err != nil {
			return nil, err
		}
		defer photo.Close()
		sub, err := e.ReplaceSubmissionPhoto(ctx, input.TeamID, input.TaskID, photo, filename)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDResponse `json:"body"`
		}{Body: IDResponse{ID: sub.ID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-submission",
		Method:      http.MethodGet,
		Path:        "/submissions/{id}",
		Summary:     "Get a submission",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		sub, err := e.GetSubmission(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: sub}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-submission-photo",
		Method:      http.MethodGet,
		Path:        "/submissions/{id}/photo",
		Summary:     "Get a submission's photo",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body PhotoResponse `json:"body"`
	}, error) {
		encoded, err := e.SubmissionPhoto(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PhotoResponse `json:"body"`
		}{Body: PhotoResponse{Photo: encoded}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-submissions-by-team",
		Method:      http.MethodGet,
		Path:        "/submissions/team/{teamId}",
		Summary:     "List a team's submissions",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"teamId"`
	}) (*struct {
		Body []domain.Submission `json:"body"`
	}, error) {
		list, err := e.ListSubmissionsByTeam(ctx, input.TeamID)
		if err != nil {
			return nil, handleError(err)
		}
		return submissionList(list), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-submissions-by-task",
		Method:      http.MethodGet,
		Path:        "/submissions/task/{taskId}",
		Summary:     "List a task's submissions",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"taskId"`
	}) (*struct {
		Body []domain.Submission `json:"body"`
	}, error) {
		list, err := e.ListSubmissionsByTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return submissionList(list), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-submission-by-team-and-task",
		Method:      http.MethodGet,
		Path:        "/submissions/team/{teamId}/task/{taskId}",
		Summary:     "Get a team's submission for a task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"teamId"`
		TaskID string `path:"taskId"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		sub, err := e.GetSubmissionByTeamAndTask(ctx, input.TeamID, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: sub}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-submissions-by-started-hunt",
		Method:      http.MethodGet,
		Path:        "/submissions/startedHunt/{startedHuntId}",
		Summary:     "List a session's submissions",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		StartedHuntID string `path:"startedHuntId"`
	}) (*struct {
		Body []domain.Submission `json:"body"`
	}, error) {
		list, err := e.ListSubmissionsByStartedHunt(ctx, input.StartedHuntID)
		if err != nil {
			return nil, handleError(err)
		}
		return submissionList(list), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-submission",
		Method:        http.MethodDelete,
		Path:          "/submissions/{id}",
		Summary:       "Delete a submission and its photo",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteSubmission(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func submissionList(list []domain.Submission) *struct {
	Body []domain.Submission `json:"body"`
} {
	if list == nil {
		list = []domain.Submission{}
	}
	return &struct {
		Body []domain.Submission `json:"body"`
	}{Body: list}
}
