package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// postgresStore implements Store on top of a pgx connection pool. Every
// conditional write is a single statement so that the check and the write
// happen atomically.
type postgresStore struct {
	spans
	pool *pgxpool.Pool
}

var _ Store = (*postgresStore)(nil)

// NewPostgresStore creates a PostgreSQL backed store. WithConnectionPool is required.
func NewPostgresStore(opts ...Option) (Store, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if o.pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}

	return &postgresStore{
		spans: spans{tracer: o.tracer, system: dbSystemPostgres},
		pool:  o.pool,
	}, nil
}

func pgBind(n int) string {
	return "$" + strconv.Itoa(n)
}

func (s *postgresStore) Get(ctx context.Context, table, scope, key string) (*Item, error) {
	ctx, span := s.startSpan(ctx, "kv.Get", AttrTable.String(table), AttrScope.String(scope), AttrKey.String(key))
	defer span.End()

	row := s.pool.QueryRow(ctx,
		"SELECT "+itemColumns+" FROM kv_items WHERE table_name = $1 AND scope = $2 AND item_key = $3",
		table, scope, key)
	item, err := scanPgItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *postgresStore) Put(ctx context.Context, item Item, cond Condition) (*Item, error) {
	ctx, span := s.startSpan(ctx, "kv.Put",
		AttrTable.String(item.Table), AttrScope.String(item.Scope), AttrKey.String(item.Key))
	defer span.End()

	now := time.Now().UTC()
	st := buildPut(pgBind, item, cond, item.ExpiresAt, now)
	slog.DebugContext(ctx, "Putting item", "table", item.Table, "key", item.Key, "version", item.Version)

	stored, err := scanPgItem(s.pool.QueryRow(ctx, st.String(), st.args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to put item: %w", err)
	}
	return stored, nil
}

func (s *postgresStore) Delete(ctx context.Context, table, scope, key string, cond Condition) error {
	ctx, span := s.startSpan(ctx, "kv.Delete", AttrTable.String(table), AttrScope.String(scope), AttrKey.String(key))
	defer span.End()

	st := buildDelete(pgBind, table, scope, key, cond)
	tag, err := s.pool.Exec(ctx, st.String(), st.args...)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if cond.requiresExisting() {
			return ErrConditionFailed
		}
		return ErrNotFound
	}
	return nil
}

func (s *postgresStore) WriteBatch(ctx context.Context, writes []Write) error {
	ctx, span := s.startSpan(ctx, "kv.WriteBatch", attribute.Int("kv.batch_size", len(writes)))
	defer span.End()

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, w := range writes {
		var st *statement
		if w.Delete {
			st = buildDelete(pgBind, w.Item.Table, w.Item.Scope, w.Item.Key, Condition{})
		} else {
			st = buildPut(pgBind, w.Item, Condition{}, w.Item.ExpiresAt, now)
		}
		batch.Queue(st.String(), st.args...)
	}

	// A batch runs in an implicit transaction, so it either applies fully or not at all.
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to write batch: %w", err)
	}
	return nil
}

func (s *postgresStore) List(ctx context.Context, q Query) (*Page, error) {
	ctx, span := s.startSpan(ctx, "kv.List",
		AttrTable.String(q.Table), AttrScope.String(q.Scope),
		AttrPageSize.Int(q.Limit), AttrHasCursor.Bool(q.Cursor != ""))
	defer span.End()

	after, err := DecodeCursor(q.Table, q.Cursor)
	if err != nil {
		return nil, err
	}

	st := buildList(pgBind, q, after)
	rows, err := s.pool.Query(ctx, st.String(), st.args...)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var seqs []int64
	page := &Page{Items: make([]Item, 0)}
	for rows.Next() {
		var seq int64
		item, err := scanPgItem(rows, &seq)
		if err != nil {
			recordError(span, err)
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		seqs = append(seqs, seq)
		page.Items = append(page.Items, *item)
	}
	if err := rows.Err(); err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	trimPage(page, seqs, q)
	span.SetAttributes(AttrResultCount.Int(len(page.Items)))
	return page, nil
}

func (s *postgresStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	ctx, span := s.startSpan(ctx, "kv.Sweep")
	defer span.End()

	tag, err := s.pool.Exec(ctx, "DELETE FROM kv_items WHERE expires_at IS NOT NULL AND expires_at <= $1", now)
	if err != nil {
		recordError(span, err)
		return 0, fmt.Errorf("failed to sweep expired items: %w", err)
	}
	span.SetAttributes(attribute.Int64("kv.swept", tag.RowsAffected()))
	return int(tag.RowsAffected()), nil
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

// scanPgItem scans a row selected with itemColumns, optionally preceded by
// the sequence column.
func scanPgItem(row pgx.Row, seq ...*int64) (*Item, error) {
	var item Item
	dest := make([]any, 0, 11)
	for _, s := range seq {
		dest = append(dest, s)
	}
	dest = append(dest, &item.Table, &item.Scope, &item.Key, &item.Owner, &item.Status,
		&item.Version, &item.Data, &item.ExpiresAt, &item.CreatedAt, &item.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

// trimPage drops the lookahead row fetched by buildList and sets the cursor
// when more rows are available.
func trimPage(page *Page, seqs []int64, q Query) {
	if q.Limit <= 0 || len(page.Items) <= q.Limit {
		return
	}
	page.Items = page.Items[:q.Limit]
	page.Cursor = EncodeCursor(q.Table, seqs[q.Limit-1])
}
