package v1

import (
	"errors"
	"net/http"

	"github.com/ehving/noticesystem-sub000/internal/api/common"
	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

// ResolveRequest designates the authoritative store of a ticket.
type ResolveRequest struct {
	SourceStore string `json:"sourceStore" validate:"required"`
	Note        string `json:"note,omitempty" validate:"max=2000"`
}

// NoteRequest carries the operator note of ignore and reopen.
type NoteRequest struct {
	Note string `json:"note,omitempty" validate:"max=2000"`
}

// ResolveFailure is returned with 409 when the repair did not converge.
type ResolveFailure struct {
	Error  string                 `json:"error"`
	Ticket *entity.ConflictTicket `json:"ticket"`
}

func conflictFilter(r *http.Request) (conflict.Filter, error) {
	var (
		f   conflict.Filter
		err error
	)
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		if f.Status, err = entity.ParseTicketStatus(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("entityType"); v != "" {
		if f.EntityType, err = entity.ParseType(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("conflictType"); v != "" {
		if f.ConflictType, err = entity.ParseConflictType(v); err != nil {
			return f, err
		}
	}

	if f.OpenOnly, err = common.QueryBool(r, "openOnly"); err != nil {
		return f, err
	}
	if f.From, err = common.QueryTime(r, "from", false); err != nil {
		return f, err
	}
	if f.To, err = common.QueryTime(r, "to", true); err != nil {
		return f, err
	}
	if f.Limit, err = common.QueryInt(r, "limit", defaultPageSize, 1, maxPageSize); err != nil {
		return f, err
	}
	if f.Offset, err = common.QueryInt(r, "offset", 0, 0, 1<<30); err != nil {
		return f, err
	}
	return f, nil
}

// listConflicts handles GET /api/v1/conflicts
func (rr *Routes) listConflicts(w http.ResponseWriter, r *http.Request) {
	f, err := conflictFilter(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	page, err := rr.conflicts.List(r.Context(), f)
	if err != nil {
		writeError(w, r, "Failed to list conflicts", err)
		return
	}
	common.WriteJSONResponse(w, page, http.StatusOK)
}

// getConflict handles GET /api/v1/conflicts/{id}
func (rr *Routes) getConflict(w http.ResponseWriter, r *http.Request) {
	id, err := common.PathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	detail, err := rr.conflicts.Detail(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get conflict", err)
		return
	}
	common.WriteJSONResponse(w, detail, http.StatusOK)
}

// resolveConflict handles POST /api/v1/conflicts/{id}/resolve
func (rr *Routes) resolveConflict(w http.ResponseWriter, r *http.Request) {
	id, err := common.PathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req ResolveRequest
	if err := common.DecodeBody(r, &req, false); err != nil {
		badRequest(w, err)
		return
	}
	source, err := store.Parse(req.SourceStore)
	if err != nil {
		badRequest(w, err)
		return
	}

	ticket, err := rr.conflicts.Resolve(r.Context(), id, source, req.Note)
	if errors.Is(err, conflict.ErrRepairIncomplete) && ticket != nil {
		common.WriteJSONResponse(w, ResolveFailure{Error: err.Error(), Ticket: ticket}, http.StatusConflict)
		return
	}
	if err != nil {
		writeError(w, r, "Failed to resolve conflict", err)
		return
	}
	common.WriteJSONResponse(w, ticket, http.StatusOK)
}

type noteAction func(r *http.Request, id, note string) (*entity.ConflictTicket, error)

func (rr *Routes) withNote(w http.ResponseWriter, r *http.Request, msg string, action noteAction) {
	id, err := common.PathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req NoteRequest
	if err := common.DecodeBody(r, &req, true); err != nil {
		badRequest(w, err)
		return
	}
	ticket, err := action(r, id, req.Note)
	if err != nil {
		writeError(w, r, msg, err)
		return
	}
	common.WriteJSONResponse(w, ticket, http.StatusOK)
}

// ignoreConflict handles POST /api/v1/conflicts/{id}/ignore
func (rr *Routes) ignoreConflict(w http.ResponseWriter, r *http.Request) {
	rr.withNote(w, r, "Failed to ignore conflict", func(r *http.Request, id, note string) (*entity.ConflictTicket, error) {
		return rr.conflicts.Ignore(r.Context(), id, note)
	})
}

// reopenConflict handles POST /api/v1/conflicts/{id}/reopen
func (rr *Routes) reopenConflict(w http.ResponseWriter, r *http.Request) {
	rr.withNote(w, r, "Failed to reopen conflict", func(r *http.Request, id, note string) (*entity.ConflictTicket, error) {
		return rr.conflicts.Reopen(r.Context(), id, note)
	})
}

// recheckConflict handles POST /api/v1/conflicts/{id}/recheck
func (rr *Routes) recheckConflict(w http.ResponseWriter, r *http.Request) {
	id, err := common.PathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	ticket, err := rr.conflicts.Recheck(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to recheck conflict", err)
		return
	}
	common.WriteJSONResponse(w, ticket, http.StatusOK)
}

// recheckOpen handles POST /api/v1/conflicts/recheck-open
func (rr *Routes) recheckOpen(w http.ResponseWriter, r *http.Request) {
	limit, err := common.QueryInt(r, "limit", conflict.DefaultRecheckLimit, 1, maxSweepLimit)
	if err != nil {
		badRequest(w, err)
		return
	}
	stats, err := rr.conflicts.RecheckOpen(r.Context(), limit)
	if err != nil {
		writeError(w, r, "Failed to recheck open conflicts", err)
		return
	}
	common.WriteJSONResponse(w, stats, http.StatusOK)
}

// notifyPending handles POST /api/v1/conflicts/notify-pending
func (rr *Routes) notifyPending(w http.ResponseWriter, r *http.Request) {
	limit, err := common.QueryInt(r, "limit", conflict.DefaultNotifyLimit, 1, maxSweepLimit)
	if err != nil {
		badRequest(w, err)
		return
	}
	stats, err := rr.conflicts.NotifyPending(r.Context(), limit)
	if err != nil {
		writeError(w, r, "Failed to notify pending conflicts", err)
		return
	}
	common.WriteJSONResponse(w, stats, http.StatusOK)
}

// detect handles POST /api/v1/conflicts/detect
func (rr *Routes) detect(w http.ResponseWriter, r *http.Request) {
	if rr.detector == nil {
		writeError(w, r, "Batch detection is not configured", conflict.ErrNoAttemptSource)
		return
	}
	stats, err := rr.detector.Run(r.Context())
	if err != nil {
		writeError(w, r, "Failed to run batch detection", err)
		return
	}
	common.WriteJSONResponse(w, stats, http.StatusOK)
}
