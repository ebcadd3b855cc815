// Package handler implements the console HTTP API: filtered listings,
// the hierarchy tree, reparenting, and gated deletion.
package handler

import (
	"context"
	"net/http"

	"github.com/terrasense/agriops/internal/catalog"
	"github.com/terrasense/agriops/internal/deletion"
	"github.com/terrasense/agriops/internal/dependency"
	"github.com/terrasense/agriops/internal/event"
	"github.com/terrasense/agriops/internal/hierarchy"
	"github.com/terrasense/agriops/internal/relationship"
	"github.com/terrasense/agriops/internal/types"
	"github.com/terrasense/agriops/internal/view"
)

// Publisher sends console events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt event.DomainEvent)
}

// EntityHandler serves the entity endpoints.
type EntityHandler struct {
	repo    catalog.Repository
	checker *dependency.Checker
	bus     Publisher
}

// NewEntityHandler creates an EntityHandler.
func NewEntityHandler(repo catalog.Repository, checker *dependency.Checker, bus Publisher) *EntityHandler {
	return &EntityHandler{repo: repo, checker: checker, bus: bus}
}

// viewStateFromRequest assembles the filter/sort selections from query
// parameters.
func viewStateFromRequest(r *http.Request) view.ViewState {
	q := r.URL.Query()
	return view.ViewState{
		Filters: view.Filters{
			Categories:   csvParam(r, "categories"),
			Types:        csvParam(r, "types"),
			Statuses:     csvParam(r, "statuses"),
			Municipality: q.Get("municipality"),
			HasLocation:  boolParam(r, "has_location"),
			Search:       q.Get("q"),
		},
		Sort: view.Sort{
			Field:     q.Get("sort"),
			Ascending: q.Get("dir") != "desc",
		},
	}
}

type listResponse struct {
	Entities []types.Entity `json:"entities"`
	Counts   view.Counts    `json:"counts"`
}

// ListEntities returns the filtered, sorted catalog together with
// counts derived from the unfiltered snapshot.
func (h *EntityHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	vs := viewStateFromRequest(r)
	all, err := h.repo.ListEntities(r.Context(), types.ListFilter{})
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	filtered := view.ApplyFilters(all, vs.Filters)
	sorted := view.ApplySort(filtered, vs.Sort)
	if sorted == nil {
		sorted = []types.Entity{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Entities: sorted,
		Counts:   view.DeriveCounts(all),
	})
}

// GetCounts returns the navigation totals only.
func (h *EntityHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.ListEntities(r.Context(), types.ListFilter{})
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.DeriveCounts(all))
}

type treeResponse struct {
	Roots       []*hierarchy.Node `json:"roots"`
	OrphanCount int               `json:"orphan_count"`
}

// GetTree returns the hierarchy forest over the filtered catalog.
func (h *EntityHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	vs := viewStateFromRequest(r)
	all, err := h.repo.ListEntities(r.Context(), types.ListFilter{})
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	filtered := view.ApplyFilters(all, vs.Filters)
	roots := hierarchy.BuildForest(filtered)
	if roots == nil {
		roots = []*hierarchy.Node{}
	}
	writeJSON(w, http.StatusOK, treeResponse{
		Roots:       roots,
		OrphanCount: hierarchy.CountOrphans(roots),
	})
}

type reparentRequest struct {
	ParentID string `json:"parent_id"`
}

type reparentResponse struct {
	NoOp      bool   `json:"no_op"`
	Attribute string `json:"attribute,omitempty"`
}

// Reparent moves an entity under a new parent (or detaches it when
// parent_id is empty). A request matching the current parent is a no-op
// and generates no broker traffic.
func (h *EntityHandler) Reparent(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}
	var req reparentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	ctx := r.Context()
	child, err := h.repo.GetEntity(ctx, id)
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	all, err := h.repo.ListEntities(ctx, types.ListFilter{})
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	snapshot := make(map[string]types.Entity, len(all))
	for _, e := range all {
		snapshot[e.ID] = e
	}

	plan, err := relationship.PlanChange(child, req.ParentID, snapshot)
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	if plan.NoOp {
		writeJSON(w, http.StatusOK, reparentResponse{NoOp: true})
		return
	}
	if err := h.repo.PatchAttributes(ctx, child.Type, child.ID, plan.Fragment); err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	h.bus.Publish(ctx, event.NewRelationshipChanged(child.ID, plan.Attribute, req.ParentID))
	writeJSON(w, http.StatusOK, reparentResponse{Attribute: plan.Attribute})
}

type checkDeletionRequest struct {
	IDs []string `json:"ids"`
}

type checkDeletionResponse struct {
	Blocked      bool               `json:"blocked"`
	Dependencies []types.Dependency `json:"dependencies"`
	Confirmation string             `json:"confirmation,omitempty"`
}

// resolveCandidates loads the candidate entities for a deletion request.
func (h *EntityHandler) resolveCandidates(ctx context.Context, ids []string) ([]types.Entity, error) {
	out := make([]types.Entity, 0, len(ids))
	for _, id := range ids {
		e, err := h.repo.GetEntity(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// CheckDeletion runs the batched dependency check for a candidate set.
// Blocked responses carry the full entity/type/count triples so the UI
// can show what to resolve first, never a generic refusal.
func (h *EntityHandler) CheckDeletion(w http.ResponseWriter, r *http.Request) {
	var req checkDeletionRequest
	if err := decodeJSON(r, &req); err != nil || len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "ids is required")
		return
	}
	ctx := r.Context()
	candidates, err := h.resolveCandidates(ctx, req.IDs)
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	deps, err := h.checker.Check(ctx, candidates)
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	blocked := dependency.ShouldBlockDeletion(deps)
	if blocked {
		h.bus.Publish(ctx, event.NewDeletionBlocked(req.IDs, deps))
	}
	if deps == nil {
		deps = []types.Dependency{}
	}
	resp := checkDeletionResponse{Blocked: blocked, Dependencies: deps}
	if !blocked {
		resp.Confirmation = deletion.ConfirmationPhrase
	}
	writeJSON(w, http.StatusOK, resp)
}

type deleteRequest struct {
	IDs          []string `json:"ids"`
	Confirmation string   `json:"confirmation"`
}

type deleteResponse struct {
	DeletedIDs []string `json:"deleted_ids"`
}

// Delete removes the candidate set after re-running the dependency check
// and verifying the confirmation phrase. The check-then-delete sequence
// is not atomic against concurrent external mutation; the broker is the
// single writer of record.
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(r, &req); err != nil || len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "ids is required")
		return
	}
	if req.Confirmation != deletion.ConfirmationPhrase {
		writeError(w, http.StatusBadRequest, "CONFIRMATION_MISMATCH",
			"confirmation phrase does not match")
		return
	}

	ctx := r.Context()
	candidates, err := h.resolveCandidates(ctx, req.IDs)
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	deps, err := h.checker.Check(ctx, candidates)
	if err != nil {
		repoErrorToHTTP(w, err)
		return
	}
	if dependency.ShouldBlockDeletion(deps) {
		h.bus.Publish(ctx, event.NewDeletionBlocked(req.IDs, deps))
		writeJSON(w, http.StatusConflict, checkDeletionResponse{
			Blocked:      true,
			Dependencies: deps,
		})
		return
	}

	deleted := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if err := h.repo.DeleteEntity(ctx, c.Type, c.ID); err != nil {
			// Partial failure: report what did go through so the
			// caller can retry the remainder.
			if len(deleted) > 0 {
				h.bus.Publish(ctx, event.NewDeletionCompleted(deleted))
			}
			repoErrorToHTTP(w, err)
			return
		}
		deleted = append(deleted, c.ID)
	}
	h.bus.Publish(ctx, event.NewDeletionCompleted(deleted))
	writeJSON(w, http.StatusOK, deleteResponse{DeletedIDs: deleted})
}
