package kv

import (
	"fmt"
	"strings"
)

const itemColumns = "table_name, scope, item_key, owner, status, version, data, expires_at, created_at, updated_at"

// statement accumulates query text and positional arguments for one of the
// SQL backends. bind renders the n-th placeholder in the backend's syntax.
type statement struct {
	bind func(n int) string
	sb   strings.Builder
	args []any
}

func (s *statement) arg(v any) string {
	s.args = append(s.args, v)
	return s.bind(len(s.args))
}

func (s *statement) write(format string, a ...any) *statement {
	fmt.Fprintf(&s.sb, format, a...)
	return s
}

func (s *statement) String() string {
	return s.sb.String()
}

// buildPut renders the single conditional statement that implements Put.
// The statement returns the stored row, or no row when cond does not hold.
func buildPut(bind func(int) string, item Item, cond Condition, expires, now any) *statement {
	st := &statement{bind: bind}

	switch {
	case cond.MustNotExist:
		st.write("INSERT INTO kv_items (%s) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s) "+
			"ON CONFLICT (table_name, scope, item_key) DO NOTHING",
			itemColumns,
			st.arg(item.Table), st.arg(item.Scope), st.arg(item.Key), st.arg(item.Owner), st.arg(item.Status),
			st.arg(item.Version), st.arg(item.Data), st.arg(expires), st.arg(now), st.arg(now))
	case cond.requiresExisting():
		st.write("UPDATE kv_items SET owner = %s, status = %s, version = %s, data = %s, expires_at = %s, updated_at = %s",
			st.arg(item.Owner), st.arg(item.Status), st.arg(item.Version), st.arg(item.Data), st.arg(expires), st.arg(now))
		st.write(" WHERE table_name = %s AND scope = %s AND item_key = %s",
			st.arg(item.Table), st.arg(item.Scope), st.arg(item.Key))
		writeConditions(st, cond)
	default:
		st.write("INSERT INTO kv_items (%s) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s) "+
			"ON CONFLICT (table_name, scope, item_key) DO UPDATE SET owner = excluded.owner, status = excluded.status, "+
			"version = excluded.version, data = excluded.data, expires_at = excluded.expires_at, updated_at = excluded.updated_at",
			itemColumns,
			st.arg(item.Table), st.arg(item.Scope), st.arg(item.Key), st.arg(item.Owner), st.arg(item.Status),
			st.arg(item.Version), st.arg(item.Data), st.arg(expires), st.arg(now), st.arg(now))
	}
	st.write(" RETURNING %s", itemColumns)
	return st
}

func buildDelete(bind func(int) string, table, scope, key string, cond Condition) *statement {
	st := &statement{bind: bind}
	st.write("DELETE FROM kv_items WHERE table_name = %s AND scope = %s AND item_key = %s",
		st.arg(table), st.arg(scope), st.arg(key))
	writeConditions(st, cond)
	return st
}

func writeConditions(st *statement, cond Condition) {
	if cond.Version != 0 {
		st.write(" AND version = %s", st.arg(cond.Version))
	}
	if cond.StatusNot != "" {
		st.write(" AND status <> %s", st.arg(cond.StatusNot))
	}
}

// buildList selects one page plus a single lookahead row.
func buildList(bind func(int) string, q Query, after int64) *statement {
	st := &statement{bind: bind}
	st.write("SELECT seq, %s FROM kv_items WHERE table_name = %s AND seq > %s", itemColumns, st.arg(q.Table), st.arg(after))
	if q.Scope != "" {
		st.write(" AND scope = %s", st.arg(q.Scope))
	}
	if q.Owner != "" {
		st.write(" AND owner = %s", st.arg(q.Owner))
	}
	st.write(" ORDER BY seq")
	if q.Limit > 0 {
		st.write(" LIMIT %s", st.arg(q.Limit+1))
	}
	return st
}

// requiresExisting reports whether a failed delete means the condition did
// not hold rather than the item being absent.
func (c Condition) requiresExisting() bool {
	return c.MustExist || c.Version != 0 || c.StatusNot != ""
}
