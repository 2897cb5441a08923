package api

import (
	"errors"
	"net/http"

	service "github.com/okian/footsteps/internal/app"
	"github.com/okian/footsteps/internal/domain/model"
)

type decalsResponse struct {
	Count  int           `json:"count"`
	Decals []model.Decal `json:"decals"`
}

// DecalsHandler lists footprint decals.
type DecalsHandler struct {
	deps DecalLister
}

// NewDecalsHandler creates a new decals handler.
func NewDecalsHandler(deps DecalLister) *DecalsHandler {
	return &DecalsHandler{deps: deps}
}

// HandleGetDecals handles GET /decals requests. An optional token query
// parameter restricts the list to one owner.
func (h *DecalsHandler) HandleGetDecals(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_decals"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	decals, err := h.deps.Decals(r.Context())
	switch {
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	if token := r.URL.Query().Get("token"); token != "" {
		owned := make([]model.Decal, 0, len(decals))
		for _, d := range decals {
			if d.Flags.OwnerTokenID == token {
				owned = append(owned, d)
			}
		}
		decals = owned
	}
	if decals == nil {
		decals = []model.Decal{}
	}

	writeJSON(w, http.StatusOK, decalsResponse{Count: len(decals), Decals: decals})
}
