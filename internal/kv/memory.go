package kv

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// memoryStore keeps items in process memory. It backs the "memory" storage
// type and the unit tests.
type memoryStore struct {
	mu    sync.RWMutex
	items map[string]*memoryEntry
	seq   int64
}

type memoryEntry struct {
	seq  int64
	item Item
}

var _ Store = (*memoryStore)(nil)

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{items: make(map[string]*memoryEntry)}
}

func memoryKey(table, scope, key string) string {
	return table + "\x00" + scope + "\x00" + key
}

func (m *memoryStore) Get(_ context.Context, table, scope, key string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.items[memoryKey(table, scope, key)]
	if !ok {
		return nil, ErrNotFound
	}
	item := cloneItem(entry.item)
	return &item, nil
}

func (m *memoryStore) Put(_ context.Context, item Item, cond Condition) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey(item.Table, item.Scope, item.Key)
	entry := m.items[k]
	var current *Item
	if entry != nil {
		current = &entry.item
	}
	if err := cond.check(current); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item = cloneItem(item)
	item.UpdatedAt = now
	if entry == nil {
		m.seq++
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		entry = &memoryEntry{seq: m.seq}
		m.items[k] = entry
	} else {
		item.CreatedAt = entry.item.CreatedAt
	}
	entry.item = item

	stored := cloneItem(item)
	return &stored, nil
}

func (m *memoryStore) Delete(_ context.Context, table, scope, key string, cond Condition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey(table, scope, key)
	entry := m.items[k]
	var current *Item
	if entry != nil {
		current = &entry.item
	}
	if err := cond.check(current); err != nil {
		return err
	}
	if entry == nil {
		return ErrNotFound
	}
	delete(m.items, k)
	return nil
}

func (m *memoryStore) WriteBatch(ctx context.Context, writes []Write) error {
	for _, w := range writes {
		var err error
		if w.Delete {
			err = m.Delete(ctx, w.Item.Table, w.Item.Scope, w.Item.Key, Condition{})
			if errors.Is(err, ErrNotFound) {
				err = nil
			}
		} else {
			_, err = m.Put(ctx, w.Item, Condition{})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryStore) List(_ context.Context, q Query) (*Page, error) {
	after, err := DecodeCursor(q.Table, q.Cursor)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	matches := make([]memoryEntry, 0)
	for _, entry := range m.items {
		it := &entry.item
		if it.Table != q.Table || entry.seq <= after {
			continue
		}
		if q.Scope != "" && it.Scope != q.Scope {
			continue
		}
		if q.Owner != "" && it.Owner != q.Owner {
			continue
		}
		// entries are overwritten in place by Put, so copy while locked
		matches = append(matches, memoryEntry{seq: entry.seq, item: cloneItem(entry.item)})
	}
	m.mu.RUnlock()

	slices.SortFunc(matches, func(a, b memoryEntry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	page := &Page{Items: make([]Item, 0, min(len(matches), max(q.Limit, 0)))}
	for i, entry := range matches {
		if q.Limit > 0 && i == q.Limit {
			page.Cursor = EncodeCursor(q.Table, matches[i-1].seq)
			break
		}
		page.Items = append(page.Items, entry.item)
	}
	return page, nil
}

func (m *memoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, entry := range m.items {
		if entry.item.Expired(now) {
			delete(m.items, k)
			removed++
		}
	}
	return removed, nil
}

func (*memoryStore) Ping(context.Context) error {
	return nil
}

func (*memoryStore) Close() error {
	return nil
}

func cloneItem(item Item) Item {
	item.Data = slices.Clone(item.Data)
	if item.ExpiresAt != nil {
		t := *item.ExpiresAt
		item.ExpiresAt = &t
	}
	return item
}
