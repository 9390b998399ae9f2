package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/CrowderSoup/project-tracker/logging"
	"github.com/CrowderSoup/project-tracker/services"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Logger.WithError(err).Warn("Failed to encode response")
	}
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// errorWriter maps domain errors onto status codes. Unexpected errors are
// logged and reported as 500 with the detail shown only in development.
type errorWriter struct {
	development bool
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		forbidden  *services.AuthorizationError
		unauth     *services.AuthenticationError
	)
	switch {
	case errors.As(err, &validation):
		fail(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		fail(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &forbidden):
		fail(w, http.StatusForbidden, forbidden.Error())
	case errors.As(err, &unauth):
		fail(w, http.StatusUnauthorized, unauth.Error())
	default:
		logging.Logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		body := envelope{Success: false, Message: "Internal server error"}
		if e.development {
			body.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &services.ValidationError{Message: "Invalid request format"}
	}
	return nil
}

// pathID reads the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, &services.ValidationError{Message: "Invalid id"}
	}
	return id, nil
}

// queryID parses an optional integer query parameter.
func queryID(r *http.Request, names ...string) (*int64, error) {
	for _, name := range names {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &services.ValidationError{Message: "Invalid " + name}
		}
		return &id, nil
	}
	return nil, nil
}
