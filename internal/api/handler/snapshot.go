package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/agrimind/agrimind/internal/api/models"
	"github.com/agrimind/agrimind/internal/api/response"
	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/snapshot"
)

// MaxSnapshotLimit caps the limit query parameter.
const MaxSnapshotLimit = 500

// SnapshotHandler handles market snapshot endpoints.
type SnapshotHandler struct {
	repo   snapshot.Repository
	logger zerolog.Logger
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(repo snapshot.Repository, logger zerolog.Logger) *SnapshotHandler {
	return &SnapshotHandler{repo: repo, logger: logger}
}

// ListSnapshots handles GET /v1/market/snapshots - latest snapshot per crop
// and region, newest first.
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query(), "limit", false, snapshot.DefaultLimit)
	if err != nil {
		fail(h.logger, w, r, err, "invalid snapshot request")
		return
	}
	if limit <= 0 || limit > MaxSnapshotLimit {
		fail(h.logger, w, r, apperr.InvalidInput("limit", "must be between 1 and 500"), "invalid snapshot request")
		return
	}

	snaps, err := h.repo.Latest(r.Context(), limit)
	if err != nil {
		fail(h.logger, w, r, err, "failed to list snapshots")
		return
	}
	if snaps == nil {
		snaps = []*snapshot.Snapshot{}
	}

	response.JSON(w, r, http.StatusOK, models.SnapshotList{
		Items: snaps,
		Meta:  models.PagedResponseMeta{Limit: limit, Count: len(snaps)},
	})
}
