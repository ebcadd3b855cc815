package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/terrasense/agriops/internal/catalog"
	"github.com/terrasense/agriops/internal/ngsi"
	"github.com/terrasense/agriops/internal/relationship"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// entityID extracts the entity id path parameter.
func entityID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "entity id is required")
		return "", false
	}
	return id, true
}

// csvParam splits a comma-separated query parameter into a set. Empty
// segments are dropped so "a,,b" and "a,b" read the same.
func csvParam(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// boolParam parses a tri-state query parameter: absent means nil.
func boolParam(r *http.Request, name string) *bool {
	switch r.URL.Query().Get(name) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	default:
		return nil
	}
}

// repoErrorToHTTP maps repository and planning errors to HTTP responses.
func repoErrorToHTTP(w http.ResponseWriter, err error) {
	var be *ngsi.BrokerError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, relationship.ErrUnknownParent):
		writeError(w, http.StatusBadRequest, "UNKNOWN_PARENT", err.Error())
	case errors.As(err, &be) && be.StatusCode == http.StatusNotFound:
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.As(err, &be):
		writeError(w, http.StatusBadGateway, "BROKER_ERROR", err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
