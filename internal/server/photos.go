package server

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"huntline/internal/engine"
)

// photoFromForm pulls the uploaded "photo" part out of a multipart
// form. The caller owns closing the returned reader.
func photoFromForm(form multipart.Form) (io.ReadCloser, string, error) {
	files := form.File["photo"]
	if len(files) == 0 {
		return nil, "", newAPIError(http.StatusBadRequest, "bad_request", "no photo file part in the request", nil)
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, "", newAPIError(http.StatusBadRequest, "bad_request", "unreadable photo file part", nil)
	}
	return f, files[0].Filename, nil
}

func registerTaskPhotos(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-task-photo",
		Method:        http.MethodPost,
		Path:          "/startedHunt/{id}/tasks/{taskId}/photo",
		Summary:       "Attach a photo to a snapshot task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID      string `path:"id"`
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
		photoID, err := e.AddTaskPhoto(ctx, input.ID, input.TaskID, photo, filename)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDResponse `json:"body"`
		}{Body: IDResponse{ID: photoID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-task-photo",
		Method:      http.MethodPut,
		Path:        "/startedHunt/{id}/tasks/{taskId}/photo/{photoId}",
		Summary:     "Replace a snapshot task photo",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID      string `path:"id"`
		TaskID  string `path:"taskId"`
		PhotoID string `path:"photoId"`
		RawBody multipart.Form
	}) (*struct {
		Body IDResponse `json:"body"`
	}, error) {
		photo, filename, err := photoFromForm(input.RawBody)
		if err != nil {
			return nil, err
		}
		defer photo.Close()
		newID, err := e.ReplaceTaskPhoto(ctx, input.ID, input.TaskID, input.PhotoID, photo, filename)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDResponse `json:"body"`
		}{Body: IDResponse{ID: newID}}, nil
	})
}
