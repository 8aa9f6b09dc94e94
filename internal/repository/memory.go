package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
)

type row = map[string]interface{}

// MemoryStore is an in-process Store for tests and demos. Rows are kept in
// their JSON form so every backend sees the same value shapes.
type MemoryStore struct {
	mu       sync.RWMutex
	tables   map[string][]row
	requests int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]row)}
}

// Requests returns how many calls reached the store.
func (m *MemoryStore) Requests() int64 {
	return atomic.LoadInt64(&m.requests)
}

// Seed inserts records (structs or maps) as-is.
func (m *MemoryStore) Seed(table string, records ...interface{}) error {
	if err := validateTable(table); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		r, err := normalizeRow(rec)
		if err != nil {
			return err
		}
		if id, _ := r["id"].(string); id == "" {
			return fmt.Errorf("seed %s: record without id", table)
		}
		m.tables[table] = append(m.tables[table], r)
	}
	return nil
}

func (m *MemoryStore) Select(ctx context.Context, table string, q Query, dest interface{}) error {
	atomic.AddInt64(&m.requests, 1)
	if err := validateQuery(table, q); err != nil {
		return err
	}
	filters, err := normalizeFilters(q.Filters)
	if err != nil {
		return err
	}

	m.mu.RLock()
	matched := make([]row, 0)
	for _, r := range m.tables[table] {
		if matches(r, filters) {
			matched = append(matched, r)
		}
	}
	m.mu.RUnlock()

	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareValues(matched[i][q.OrderBy], matched[j][q.OrderBy])
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	return decodeInto(matched, dest)
}

func (m *MemoryStore) Get(ctx context.Context, table, id string, dest interface{}) error {
	atomic.AddInt64(&m.requests, 1)
	if err := validateTable(table); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.indexOf(table, id); i >= 0 {
		return decodeInto(m.tables[table][i], dest)
	}
	return errors.ErrNotFound
}

func (m *MemoryStore) Insert(ctx context.Context, table string, values Values, dest interface{}) error {
	atomic.AddInt64(&m.requests, 1)
	if err := validateValues(table, values); err != nil {
		return err
	}
	r, err := normalizeRow(map[string]interface{}(withID(values)))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(table, r["id"].(string)) >= 0 {
		return fmt.Errorf("insert %s: duplicate id %v", table, r["id"])
	}
	m.tables[table] = append(m.tables[table], r)

	if dest == nil {
		return nil
	}
	return decodeInto(r, dest)
}

func (m *MemoryStore) Update(ctx context.Context, table, id string, values Values, dest interface{}) error {
	atomic.AddInt64(&m.requests, 1)
	if err := validateValues(table, values); err != nil {
		return err
	}
	changes, err := normalizeRow(map[string]interface{}(values))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(table, id)
	if i < 0 {
		return errors.ErrNotFound
	}

	updated := make(row, len(m.tables[table][i]))
	for k, v := range m.tables[table][i] {
		updated[k] = v
	}
	for k, v := range changes {
		if k == "id" {
			continue
		}
		updated[k] = v
	}
	m.tables[table][i] = updated

	if dest == nil {
		return nil
	}
	return decodeInto(updated, dest)
}

func (m *MemoryStore) Delete(ctx context.Context, table string, q Query) error {
	atomic.AddInt64(&m.requests, 1)
	if _, _, err := buildDelete(table, q); err != nil {
		return err
	}
	filters, err := normalizeFilters(q.Filters)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tables[table][:0:0]
	for _, r := range m.tables[table] {
		if !matches(r, filters) {
			kept = append(kept, r)
		}
	}
	m.tables[table] = kept
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) indexOf(table, id string) int {
	for i, r := range m.tables[table] {
		if r["id"] == id {
			return i
		}
	}
	return -1
}

func normalizeRow(v interface{}) (row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r row
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func normalizeValue(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeFilters(filters []Filter) ([]Filter, error) {
	out := make([]Filter, len(filters))
	for i, f := range filters {
		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, err
		}
		out[i] = Filter{Column: f.Column, Op: f.Op, Value: v}
	}
	return out, nil
}

func matches(r row, filters []Filter) bool {
	for _, f := range filters {
		got := r[f.Column]
		switch f.Op {
		case OpIn:
			candidates, _ := f.Value.([]interface{})
			found := false
			for _, c := range candidates {
				if reflect.DeepEqual(got, c) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if !reflect.DeepEqual(got, f.Value) {
				return false
			}
		}
	}
	return true
}

// compareValues orders numbers, timestamps, strings and booleans; nil sorts first.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return compareOrdered(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			ta, errA := time.Parse(time.RFC3339Nano, av)
			tb, errB := time.Parse(time.RFC3339Nano, bv)
			if errA == nil && errB == nil {
				return ta.Compare(tb)
			}
			return compareOrdered(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok && av != bv {
			if av {
				return 1
			}
			return -1
		}
		return 0
	}
	return compareOrdered(fmt.Sprint(a), fmt.Sprint(b))
}

func compareOrdered[T float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func decodeInto(v interface{}, dest interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
