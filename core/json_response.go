package core

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response renders itself to an http.ResponseWriter. Handlers return a
// Response instead of writing to the writer directly so the rendering
// and error mapping stay in one place.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// ErrorBody is the JSON error envelope. Details is only populated for
// validation failures.
type ErrorBody struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSON creates a 200 response with the given body.
func JSON(body any) Response {
	return JSONStatus(http.StatusOK, body)
}

// JSONStatus creates a response with an explicit status code.
func JSONStatus(status int, body any) Response {
	return jsonResponse{status: status, body: body}
}

// JSONError maps an error to its JSON error envelope. ValidationError
// renders as 400 with per-field details, HTTPError uses its own status
// code and message, anything else is an opaque 500.
func JSONError(err error) Response {
	status := http.StatusInternalServerError
	body := ErrorBody{
		Status:  "error",
		Message: "Internal server error",
	}

	var valErr ValidationError
	var httpErr HTTPError
	switch {
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
		body.Message = valErr.Error()
		if len(valErr) > 0 {
			body.Details = map[string][]string(valErr)
		}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		body.Message = httpErr.Message
	}

	return jsonResponse{status: status, body: body}
}
