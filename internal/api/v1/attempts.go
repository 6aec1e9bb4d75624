package v1

import (
	"net/http"
	"time"

	"github.com/ehving/noticesystem-sub000/internal/api/common"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
)

const (
	defaultStatsDays = 7
	defaultRetryCap  = 100
)

// CleanRequest overrides the retention of one cleanup run. Zero values
// use the log defaults.
type CleanRequest struct {
	RetainDays int `json:"retainDays,omitempty" validate:"min=0,max=3650"`
	MaxRows    int `json:"maxRows,omitempty" validate:"min=0"`
}

// CleanResponse reports how many attempt rows were removed.
type CleanResponse struct {
	Deleted int `json:"deleted"`
}

// StatsResponse wraps the daily attempt statistics.
type StatsResponse struct {
	From  time.Time           `json:"from"`
	To    time.Time           `json:"to"`
	Stats []attempt.DailyStat `json:"stats"`
}

func attemptFilter(r *http.Request) (attempt.Filter, error) {
	var (
		f   attempt.Filter
		err error
	)
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		if f.Status, err = entity.ParseAttemptStatus(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("entityType"); v != "" {
		if f.EntityType, err = entity.ParseType(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("action"); v != "" {
		if f.Action, err = entity.ParseAction(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("sourceStore"); v != "" {
		if f.Source, err = store.Parse(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("targetStore"); v != "" {
		if f.Target, err = store.Parse(v); err != nil {
			return f, err
		}
	}
	f.EntityID = q.Get("entityId")

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

// listAttempts handles GET /api/v1/attempts
func (rr *Routes) listAttempts(w http.ResponseWriter, r *http.Request) {
	f, err := attemptFilter(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	page, err := rr.attempts.List(r.Context(), f)
	if err != nil {
		writeError(w, r, "Failed to list attempts", err)
		return
	}
	common.WriteJSONResponse(w, page, http.StatusOK)
}

// getAttempt handles GET /api/v1/attempts/{id}
func (rr *Routes) getAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := common.PathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	a, err := rr.attempts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get attempt", err)
		return
	}
	common.WriteJSONResponse(w, a, http.StatusOK)
}

// retryAttempt handles POST /api/v1/attempts/{id}/retry
func (rr *Routes) retryAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := common.PathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	a, err := rr.attempts.Retry(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to retry attempt", err)
		return
	}
	common.WriteJSONResponse(w, a, http.StatusOK)
}

// retryFailed handles POST /api/v1/attempts/retry-failed
func (rr *Routes) retryFailed(w http.ResponseWriter, r *http.Request) {
	limit, err := common.QueryInt(r, "limit", defaultRetryCap, 1, maxSweepLimit)
	if err != nil {
		badRequest(w, err)
		return
	}
	stats, err := rr.attempts.RetryFailed(r.Context(), limit)
	if err != nil {
		writeError(w, r, "Failed to retry attempts", err)
		return
	}
	common.WriteJSONResponse(w, stats, http.StatusOK)
}

// cleanAttempts handles POST /api/v1/attempts/clean
func (rr *Routes) cleanAttempts(w http.ResponseWriter, r *http.Request) {
	var req CleanRequest
	if err := common.DecodeBody(r, &req, true); err != nil {
		badRequest(w, err)
		return
	}
	deleted, err := rr.attempts.Clean(r.Context(), req.RetainDays, req.MaxRows)
	if err != nil {
		writeError(w, r, "Failed to clean attempts", err)
		return
	}
	common.WriteJSONResponse(w, CleanResponse{Deleted: deleted}, http.StatusOK)
}

// dailyStats handles GET /api/v1/attempts/stats/daily. The window
// defaults to the last seven days, both ends as whole UTC days.
func (rr *Routes) dailyStats(w http.ResponseWriter, r *http.Request) {
	from, err := common.QueryTime(r, "from", false)
	if err != nil {
		badRequest(w, err)
		return
	}
	to, err := common.QueryTime(r, "to", true)
	if err != nil {
		badRequest(w, err)
		return
	}

	end := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -defaultStatsDays)
	if from != nil {
		start = *from
	}
	if !start.Before(end) {
		common.WriteErrorResponse(w, "from must be before to", http.StatusBadRequest)
		return
	}

	stats, err := rr.attempts.DailyStats(r.Context(), start, end)
	if err != nil {
		writeError(w, r, "Failed to compute attempt statistics", err)
		return
	}
	if stats == nil {
		stats = []attempt.DailyStat{}
	}
	common.WriteJSONResponse(w, StatsResponse{From: start, To: end, Stats: stats}, http.StatusOK)
}
