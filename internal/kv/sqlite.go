package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// sqliteStore implements Store on a local SQLite database file. Timestamps
// are stored as Unix nanoseconds.
type sqliteStore struct {
	spans
	db *sql.DB
}

var _ Store = (*sqliteStore)(nil)

// NewSQLiteStore creates a SQLite backed store. WithDB is required and the
// handle must come from the modernc.org/sqlite driver.
func NewSQLiteStore(opts ...Option) (Store, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if o.db == nil {
		return nil, fmt.Errorf("database handle is required")
	}

	return &sqliteStore{
		spans: spans{tracer: o.tracer, system: dbSystemSQLite},
		db:    o.db,
	}, nil
}

func sqliteBind(n int) string {
	return "?" + strconv.Itoa(n)
}

func (s *sqliteStore) Get(ctx context.Context, table, scope, key string) (*Item, error) {
	ctx, span := s.startSpan(ctx, "kv.Get", AttrTable.String(table), AttrScope.String(scope), AttrKey.String(key))
	defer span.End()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM kv_items WHERE table_name = ?1 AND scope = ?2 AND item_key = ?3",
		table, scope, key)
	item, err := scanSQLiteItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *sqliteStore) Put(ctx context.Context, item Item, cond Condition) (*Item, error) {
	ctx, span := s.startSpan(ctx, "kv.Put",
		AttrTable.String(item.Table), AttrScope.String(item.Scope), AttrKey.String(item.Key))
	defer span.End()

	var expires sql.NullInt64
	if item.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: item.ExpiresAt.UnixNano(), Valid: true}
	}
	st := buildPut(sqliteBind, item, cond, expires, time.Now().UnixNano())

	stored, err := scanSQLiteItem(s.db.QueryRowContext(ctx, st.String(), st.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to put item: %w", err)
	}
	return stored, nil
}

func (s *sqliteStore) Delete(ctx context.Context, table, scope, key string, cond Condition) error {
	ctx, span := s.startSpan(ctx, "kv.Delete", AttrTable.String(table), AttrScope.String(scope), AttrKey.String(key))
	defer span.End()

	st := buildDelete(sqliteBind, table, scope, key, cond)
	res, err := s.db.ExecContext(ctx, st.String(), st.args...)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		if cond.requiresExisting() {
			return ErrConditionFailed
		}
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) WriteBatch(ctx context.Context, writes []Write) (err error) {
	ctx, span := s.startSpan(ctx, "kv.WriteBatch")
	defer func() {
		recordError(span, err)
		span.End()
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UnixNano()
	for _, w := range writes {
		var st *statement
		if w.Delete {
			st = buildDelete(sqliteBind, w.Item.Table, w.Item.Scope, w.Item.Key, Condition{})
		} else {
			var expires sql.NullInt64
			if w.Item.ExpiresAt != nil {
				expires = sql.NullInt64{Int64: w.Item.ExpiresAt.UnixNano(), Valid: true}
			}
			st = buildPut(sqliteBind, w.Item, Condition{}, expires, now)
		}
		if _, err := tx.ExecContext(ctx, st.String(), st.args...); err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (s *sqliteStore) List(ctx context.Context, q Query) (*Page, error) {
	ctx, span := s.startSpan(ctx, "kv.List",
		AttrTable.String(q.Table), AttrScope.String(q.Scope),
		AttrPageSize.Int(q.Limit), AttrHasCursor.Bool(q.Cursor != ""))
	defer span.End()

	after, err := DecodeCursor(q.Table, q.Cursor)
	if err != nil {
		return nil, err
	}

	st := buildList(sqliteBind, q, after)
	rows, err := s.db.QueryContext(ctx, st.String(), st.args...)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var seqs []int64
	page := &Page{Items: make([]Item, 0)}
	for rows.Next() {
		var seq int64
		item, err := scanSQLiteItem(rows, &seq)
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

func (s *sqliteStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	ctx, span := s.startSpan(ctx, "kv.Sweep")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM kv_items WHERE expires_at IS NOT NULL AND expires_at <= ?1", now.UnixNano())
	if err != nil {
		recordError(span, err)
		return 0, fmt.Errorf("failed to sweep expired items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteItem(row sqlScanner, seq ...*int64) (*Item, error) {
	var (
		item             Item
		expires          sql.NullInt64
		created, updated int64
	)
	dest := make([]any, 0, 11)
	for _, s := range seq {
		dest = append(dest, s)
	}
	dest = append(dest, &item.Table, &item.Scope, &item.Key, &item.Owner, &item.Status,
		&item.Version, &item.Data, &expires, &created, &updated)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := time.Unix(0, expires.Int64).UTC()
		item.ExpiresAt = &t
	}
	item.CreatedAt = time.Unix(0, created).UTC()
	item.UpdatedAt = time.Unix(0, updated).UTC()
	return &item, nil
}
