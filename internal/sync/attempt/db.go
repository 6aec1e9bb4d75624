package attempt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

const attemptColumns = `id, entity_type, entity_id, action, source_store, target_store,
	status, error_msg, retry_count, create_time, update_time`

type dbRepository struct {
	pool *pgxpool.Pool
}

// NewDBRepository creates a Postgres-backed repository over the sync_log table.
func NewDBRepository(pool *pgxpool.Pool) Repository {
	return &dbRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*entity.SyncAttempt, error) {
	var (
		a                          entity.SyncAttempt
		entityType, action, status string
		createTime, updateTime     *time.Time
	)
	err := row.Scan(
		&a.ID, &entityType, &a.EntityID, &action, &a.SourceStore, &a.TargetStore,
		&status, &a.ErrorMsg, &a.RetryCount, &createTime, &updateTime,
	)
	if err != nil {
		return nil, err
	}
	a.EntityType = entity.Type(entityType)
	a.Action = entity.Action(action)
	a.Status = entity.AttemptStatus(status)
	a.CreateTime = createTime
	a.UpdateTime = updateTime
	return &a, nil
}

func collectAttempts(rows pgx.Rows) ([]*entity.SyncAttempt, error) {
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (*entity.SyncAttempt, error) {
		return scanAttempt(r)
	})
}

func (d *dbRepository) Insert(ctx context.Context, a *entity.SyncAttempt) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO sync_log (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, string(a.EntityType), a.EntityID, string(a.Action), a.SourceStore, a.TargetStore,
		string(a.Status), a.ErrorMsg, a.RetryCount, a.CreateTime, a.UpdateTime,
	)
	return err
}

func (d *dbRepository) Get(ctx context.Context, id string) (*entity.SyncAttempt, error) {
	a, err := scanAttempt(d.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM sync_log WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	return a, err
}

func (d *dbRepository) Update(ctx context.Context, a *entity.SyncAttempt) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE sync_log
		SET status = $2, error_msg = $3, retry_count = $4, update_time = $5
		WHERE id = $1`,
		a.ID, string(a.Status), a.ErrorMsg, a.RetryCount, a.UpdateTime,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (d *dbRepository) ListRetryable(ctx context.Context, maxRetries, limit int) ([]*entity.SyncAttempt, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+attemptColumns+` FROM sync_log
		WHERE status = $1 AND retry_count < $2
		ORDER BY update_time ASC, id ASC
		LIMIT $3`,
		string(entity.AttemptFailed), maxRetries, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

func (d *dbRepository) ListSucceeded(
	ctx context.Context, target store.Store, from, to time.Time, limit int,
) ([]*entity.SyncAttempt, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+attemptColumns+` FROM sync_log
		WHERE status = $1 AND target_store = $2 AND update_time > $3 AND update_time <= $4
		ORDER BY update_time DESC, id DESC
		LIMIT $5`,
		string(entity.AttemptSuccess), string(target), from, to, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

// where renders f as a WHERE clause with positional arguments.
func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.EntityType != "" {
		add("entity_type = $%d", string(f.EntityType))
	}
	if f.EntityID != "" {
		add("entity_id = $%d", f.EntityID)
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if f.Source != "" {
		add("source_store = $%d", string(f.Source))
	}
	if f.Target != "" {
		add("target_store = $%d", string(f.Target))
	}
	if f.From != nil {
		add("create_time >= $%d", *f.From)
	}
	if f.To != nil {
		add("create_time <= $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (d *dbRepository) List(ctx context.Context, f Filter) (Page, error) {
	where, args := f.where()

	var page Page
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sync_log`+where, args...).Scan(&page.Total); err != nil {
		return page, err
	}

	query := `SELECT ` + attemptColumns + ` FROM sync_log` + where + ` ORDER BY create_time DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return page, err
	}
	page.Items, err = collectAttempts(rows)
	if page.Items == nil {
		page.Items = []*entity.SyncAttempt{}
	}
	return page, err
}

func (d *dbRepository) deleteReturning(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (d *dbRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	return d.deleteReturning(ctx, `DELETE FROM sync_log WHERE create_time < $1 RETURNING id`, cutoff)
}

func (d *dbRepository) DeleteBeyond(ctx context.Context, keep int) ([]string, error) {
	return d.deleteReturning(ctx, `
		DELETE FROM sync_log WHERE id IN (
			SELECT id FROM sync_log ORDER BY create_time DESC, id DESC OFFSET $1
		) RETURNING id`, keep)
}

func (d *dbRepository) DailyStats(ctx context.Context, from, to time.Time) ([]DailyStat, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT to_char(date_trunc('day', create_time AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day,
		       source_store, target_store,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'SUCCESS'),
		       COUNT(*) FILTER (WHERE status IN ('FAILED', 'ERROR'))
		FROM sync_log
		WHERE create_time >= $1 AND create_time < $2
		GROUP BY 1, 2, 3
		ORDER BY 1, 2, 3`, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (DailyStat, error) {
		var s DailyStat
		err := r.Scan(&s.Day, &s.Source, &s.Target, &s.Total, &s.Success, &s.Failed)
		return s, err
	})
}
