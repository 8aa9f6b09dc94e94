package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Tables exposed by the data backend.
const (
	TableRestaurants = "restaurants"
	TableCategories  = "categories"
	TableMenuItems   = "menu_items"
	TableCarts       = "carts"
	TableCartItems   = "cart_items"
	TableOrders      = "orders"
	TableOrderItems  = "order_items"
	TableProfiles    = "profiles"
)

var knownTables = map[string]bool{
	TableRestaurants: true,
	TableCategories:  true,
	TableMenuItems:   true,
	TableCarts:       true,
	TableCartItems:   true,
	TableOrders:      true,
	TableOrderItems:  true,
	TableProfiles:    true,
}

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Values is a column/value set for inserts and updates.
type Values map[string]interface{}

// Store is the table-oriented data backend. Every call is a single request;
// nothing is retried or cached at this level.
type Store interface {
	// Select fills dest, a pointer to a slice, with the rows matching q.
	Select(ctx context.Context, table string, q Query, dest interface{}) error
	// Get fills dest with the row whose id matches, or returns errors.ErrNotFound.
	Get(ctx context.Context, table, id string, dest interface{}) error
	// Insert creates a row and, when dest is not nil, reads it back into dest.
	// A missing "id" is generated.
	Insert(ctx context.Context, table string, values Values, dest interface{}) error
	// Update changes the row with id and, when dest is not nil, reads it back.
	Update(ctx context.Context, table, id string, values Values, dest interface{}) error
	// Delete removes every row matching q. q must carry at least one filter.
	Delete(ctx context.Context, table string, q Query) error
	Ping(ctx context.Context) error
	Close() error
}

// Op is a filter comparison.
type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
)

type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

// Eq matches rows whose column equals value.
func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// In matches rows whose column is one of values.
func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Where starts a query with the given filters.
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

// Order sorts the result by column.
func (q Query) Order(column string, descending bool) Query {
	q.OrderBy = column
	q.Descending = descending
	return q
}

// Take limits the number of returned rows.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

func validateTable(table string) error {
	if !knownTables[table] {
		return fmt.Errorf("unknown table %q", table)
	}
	return nil
}

func validateQuery(table string, q Query) error {
	if err := validateTable(table); err != nil {
		return err
	}
	for _, f := range q.Filters {
		if !columnPattern.MatchString(f.Column) {
			return fmt.Errorf("invalid column %q", f.Column)
		}
		switch f.Op {
		case OpEq:
		case OpIn:
			if _, ok := f.Value.([]string); !ok {
				return fmt.Errorf("filter on %q: IN expects []string, got %T", f.Column, f.Value)
			}
		default:
			return fmt.Errorf("filter on %q: unsupported operator %q", f.Column, f.Op)
		}
	}
	if q.OrderBy != "" && !columnPattern.MatchString(q.OrderBy) {
		return fmt.Errorf("invalid order column %q", q.OrderBy)
	}
	if q.Limit < 0 {
		return fmt.Errorf("invalid limit %d", q.Limit)
	}
	return nil
}

func validateValues(table string, values Values) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("no values for %s", table)
	}
	for col := range values {
		if !columnPattern.MatchString(col) {
			return fmt.Errorf("invalid column %q", col)
		}
	}
	return nil
}

// withID copies values and assigns a fresh id when none is set.
func withID(values Values) Values {
	out := make(Values, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	if id, ok := out["id"].(string); !ok || id == "" {
		out["id"] = uuid.NewString()
	}
	return out
}
