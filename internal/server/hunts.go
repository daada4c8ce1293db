package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"huntline/internal/domain"
	"huntline/internal/engine"
)

func registerHosts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-host",
		Method:        http.MethodPost,
		Path:          "/hosts",
		Summary:       "Create a host",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateHostRequest
	}) (*struct {
		Body domain.Host `json:"body"`
	}, error) {
		host, err := e.CreateHost(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Host `json:"body"`
		}{Body: host}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-host",
		Method:      http.MethodGet,
		Path:        "/hosts/{id}",
		Summary:     "Get a host",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Host `json:"body"`
	}, error) {
		host, err := e.GetHost(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Host `json:"body"`
		}{Body: host}, nil
	})
}

func registerHunts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-hunt",
		Method:        http.MethodPost,
		Path:          "/hunts",
		Summary:       "Create a hunt",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateHuntRequest
	}) (*struct {
		Body domain.Hunt `json:"body"`
	}, error) {
		hunt, err := e.CreateHunt(ctx, input.Body.HostID, input.Body.Name, input.Body.Description, input.Body.Est)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Hunt `json:"body"`
		}{Body: hunt}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-complete-hunt",
		Method:      http.MethodGet,
		Path:        "/hunts/{id}",
		Summary:     "Get a hunt with its tasks",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.CompleteHunt `json:"body"`
	}, error) {
		ch, err := e.GetCompleteHunt(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CompleteHunt `json:"body"`
		}{Body: ch}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-hunts-by-host",
		Method:      http.MethodGet,
		Path:        "/hunts/host/{hostId}",
		Summary:     "List a host's hunts",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		HostID string `path:"hostId"`
	}) (*struct {
		Body []domain.Hunt `json:"body"`
	}, error) {
		list, err := e.ListHuntsByHost(ctx, input.HostID)
		if err != nil {
			return nil, handleError(err)
		}
		if list == nil {
			list = []domain.Hunt{}
		}
		return &struct {
			Body []domain.Hunt `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-hunt",
		Method:        http.MethodDelete,
		Path:          "/hunts/{id}",
		Summary:       "Delete a hunt and its tasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteHunt(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks-by-hunt",
		Method:      http.MethodGet,
		Path:        "/hunts/{id}/tasks",
		Summary:     "List a hunt's tasks",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		SortBy string `query:"sortBy" enum:"name,status,id" required:"false"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		list, err := e.ListTasksByHunt(ctx, input.ID, input.SortBy)
		if err != nil {
			return nil, handleError(err)
		}
		if list == nil {
			list = []domain.Task{}
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Add a task to a hunt",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		task, err := e.AddTask(ctx, input.Body.HuntID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete a task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}
