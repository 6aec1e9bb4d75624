package conflict

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/sqlerr"
)

const ticketColumns = `id, entity_type, entity_id, status, conflict_type,
	first_seen_at, last_seen_at, last_checked_at, last_notified_at, notify_count,
	resolution_source_store, resolution_note, resolved_at, create_time, update_time`

const itemColumns = `id, conflict_id, store_id, exists_flag, row_hash,
	fingerprint_version, last_checked_at, create_time, update_time`

type dbRepository struct {
	pool *pgxpool.Pool
}

// NewDBRepository creates a Postgres-backed repository over the
// sync_conflict and sync_conflict_item tables.
func NewDBRepository(pool *pgxpool.Pool) Repository {
	return &dbRepository{pool: pool}
}

func scanTicket(row pgx.Row) (*entity.ConflictTicket, error) {
	var (
		t                      entity.ConflictTicket
		entityType, status     string
		conflictType           *string
		createTime, updateTime *time.Time
	)
	err := row.Scan(
		&t.ID, &entityType, &t.EntityID, &status, &conflictType,
		&t.FirstSeenAt, &t.LastSeenAt, &t.LastCheckedAt, &t.LastNotifiedAt, &t.NotifyCount,
		&t.ResolutionSourceStore, &t.ResolutionNote, &t.ResolvedAt, &createTime, &updateTime,
	)
	if err != nil {
		return nil, err
	}
	t.EntityType = entity.Type(entityType)
	t.Status = entity.TicketStatus(status)
	if conflictType != nil {
		ct := entity.ConflictType(*conflictType)
		t.ConflictType = &ct
	}
	t.CreateTime = createTime
	t.UpdateTime = updateTime
	return &t, nil
}

func collectTickets(rows pgx.Rows) ([]*entity.ConflictTicket, error) {
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (*entity.ConflictTicket, error) {
		return scanTicket(r)
	})
}

func conflictTypeArg(t *entity.ConflictTicket) any {
	if t.ConflictType == nil {
		return nil
	}
	return string(*t.ConflictType)
}

func (d *dbRepository) Get(ctx context.Context, id string) (*entity.ConflictTicket, error) {
	t, err := scanTicket(d.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM sync_conflict WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	return t, err
}

func (d *dbRepository) GetByEntity(ctx context.Context, typ entity.Type, entityID string) (*entity.ConflictTicket, error) {
	t, err := scanTicket(d.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM sync_conflict WHERE entity_type = $1 AND entity_id = $2`,
		string(typ), entityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	return t, err
}

func (d *dbRepository) Insert(ctx context.Context, t *entity.ConflictTicket) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO sync_conflict (`+ticketColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, string(t.EntityType), t.EntityID, string(t.Status), conflictTypeArg(t),
		t.FirstSeenAt, t.LastSeenAt, t.LastCheckedAt, t.LastNotifiedAt, t.NotifyCount,
		t.ResolutionSourceStore, t.ResolutionNote, t.ResolvedAt, t.CreateTime, t.UpdateTime,
	)
	if sqlerr.IsDuplicateKey(err) {
		return ErrDuplicateTicket
	}
	return err
}

func (d *dbRepository) Update(ctx context.Context, t *entity.ConflictTicket) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE sync_conflict
		SET status = $2, conflict_type = $3, first_seen_at = $4, last_seen_at = $5,
		    last_checked_at = $6, last_notified_at = $7, notify_count = $8,
		    resolution_source_store = $9, resolution_note = $10, resolved_at = $11, update_time = $12
		WHERE id = $1`,
		t.ID, string(t.Status), conflictTypeArg(t), t.FirstSeenAt, t.LastSeenAt,
		t.LastCheckedAt, t.LastNotifiedAt, t.NotifyCount,
		t.ResolutionSourceStore, t.ResolutionNote, t.ResolvedAt, t.UpdateTime,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (d *dbRepository) Items(ctx context.Context, ticketID string) ([]*entity.SnapshotItem, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM sync_conflict_item WHERE conflict_id = $1 ORDER BY store_id`, ticketID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (*entity.SnapshotItem, error) {
		var it entity.SnapshotItem
		err := r.Scan(&it.ID, &it.ConflictID, &it.StoreID, &it.ExistsFlag, &it.RowHash,
			&it.FingerprintVersion, &it.LastCheckedAt, &it.CreateTime, &it.UpdateTime)
		return &it, err
	})
}

func (d *dbRepository) ReplaceItems(ctx context.Context, ticketID string, items []*entity.SnapshotItem) ([]string, error) {
	var removed []string
	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `DELETE FROM sync_conflict_item WHERE conflict_id = $1 RETURNING id`, ticketID)
		if err != nil {
			return err
		}
		removed, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, it := range items {
			batch.Queue(`
				INSERT INTO sync_conflict_item (`+itemColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				it.ID, it.ConflictID, it.StoreID, it.ExistsFlag, it.RowHash,
				it.FingerprintVersion, it.LastCheckedAt, it.CreateTime, it.UpdateTime,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace snapshot items of %s: %w", ticketID, err)
	}
	return removed, nil
}

func (d *dbRepository) ListOpen(ctx context.Context, limit int) ([]*entity.ConflictTicket, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM sync_conflict
		WHERE status = $1
		ORDER BY last_checked_at ASC NULLS FIRST, id ASC
		LIMIT $2`,
		string(entity.TicketOpen), limit,
	)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

func (d *dbRepository) ListNotifiable(ctx context.Context, cutoff time.Time, limit int) ([]*entity.ConflictTicket, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM sync_conflict
		WHERE status = $1 AND (last_notified_at IS NULL OR last_notified_at <= $2)
		ORDER BY last_notified_at ASC NULLS FIRST, id ASC
		LIMIT $3`,
		string(entity.TicketOpen), cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
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
	if s := f.status(); s != "" {
		add("status = $%d", string(s))
	}
	if f.EntityType != "" {
		add("entity_type = $%d", string(f.EntityType))
	}
	if f.ConflictType != "" {
		add("conflict_type = $%d", string(f.ConflictType))
	}
	if f.From != nil {
		add("last_seen_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("last_seen_at <= $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (d *dbRepository) List(ctx context.Context, f Filter) (Page, error) {
	where, args := f.where()

	page := Page{Aggregations: newAggregations()}
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sync_conflict`+where, args...).Scan(&page.Total); err != nil {
		return page, err
	}

	for column, into := range map[string]map[string]int64{
		"status":        page.Aggregations.ByStatus,
		"conflict_type": page.Aggregations.ByConflictType,
		"entity_type":   page.Aggregations.ByEntityType,
	} {
		if err := d.countBy(ctx, column, where, args, into); err != nil {
			return page, fmt.Errorf("failed to aggregate by %s: %w", column, err)
		}
	}

	query := `SELECT ` + ticketColumns + ` FROM sync_conflict` + where +
		` ORDER BY last_seen_at DESC NULLS LAST, id DESC`
	pageArgs := append([]any(nil), args...)
	if f.Limit > 0 {
		pageArgs = append(pageArgs, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(pageArgs))
	}
	if f.Offset > 0 {
		pageArgs = append(pageArgs, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(pageArgs))
	}
	rows, err := d.pool.Query(ctx, query, pageArgs...)
	if err != nil {
		return page, err
	}
	page.Items, err = collectTickets(rows)
	if page.Items == nil {
		page.Items = []*entity.ConflictTicket{}
	}
	return page, err
}

func (d *dbRepository) countBy(ctx context.Context, column, where string, args []any, into map[string]int64) error {
	rows, err := d.pool.Query(ctx,
		`SELECT `+column+`, COUNT(*) FROM sync_conflict`+where+` GROUP BY `+column, args...)
	if err != nil {
		return err
	}
	var (
		key   *string
		count int64
	)
	_, err = pgx.ForEachRow(rows, []any{&key, &count}, func() error {
		if key != nil {
			into[*key] = count
		}
		return nil
	})
	return err
}
