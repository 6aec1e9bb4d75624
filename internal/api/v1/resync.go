package v1

import (
	"net/http"

	"github.com/ehving/noticesystem-sub000/internal/api/common"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync"
)

// ResyncRequest starts a full resync of one entity type, or of every
// business type when EntityType is empty.
type ResyncRequest struct {
	EntityType  string `json:"entityType,omitempty"`
	SourceStore string `json:"sourceStore" validate:"required"`
}

// ResyncResult is one entity type's sweep in a ResyncResponse.
type ResyncResult struct {
	sync.FullSyncResult
	DurationMs int64 `json:"durationMs"`
}

// ResyncResponse lists the completed sweeps.
type ResyncResponse struct {
	Results []ResyncResult `json:"results"`
}

// resync handles POST /api/v1/resync. It runs synchronously and answers
// 409 when a sweep for the same pair is already running.
func (rr *Routes) resync(w http.ResponseWriter, r *http.Request) {
	var req ResyncRequest
	if err := common.DecodeBody(r, &req, false); err != nil {
		badRequest(w, err)
		return
	}
	source, err := store.Parse(req.SourceStore)
	if err != nil {
		badRequest(w, err)
		return
	}

	var results []sync.FullSyncResult
	if req.EntityType == "" {
		results, err = rr.resyncer.FullSyncAll(r.Context(), source)
	} else {
		t, parseErr := entity.ParseType(req.EntityType)
		if parseErr != nil {
			badRequest(w, parseErr)
			return
		}
		var one sync.FullSyncResult
		one, err = rr.resyncer.FullSyncEntity(r.Context(), t, source)
		results = []sync.FullSyncResult{one}
	}
	if err != nil {
		writeError(w, r, "Failed to run full resync", err)
		return
	}

	resp := ResyncResponse{Results: make([]ResyncResult, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, ResyncResult{FullSyncResult: res, DurationMs: res.Duration.Milliseconds()})
	}
	common.WriteJSONResponse(w, resp, http.StatusOK)
}
