package handler

import (
	"net/http"
	"strconv"

	"github.com/terrasense/agriops/internal/activity"
)

// ActivityHandler serves the per-entity audit trail.
type ActivityHandler struct {
	store activity.Store
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(store activity.Store) *ActivityHandler {
	return &ActivityHandler{store: store}
}

// GetEntityActivity returns recent audit entries for one entity.
func (h *ActivityHandler) GetEntityActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	opts := activity.QueryOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	entries, err := h.store.QueryByEntity(r.Context(), id, opts)
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
