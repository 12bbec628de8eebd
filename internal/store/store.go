// Package store persists the platform records in PostgreSQL through the ent
// SQL builder. Each record type has a small typed store; rows that violate
// the record invariants are rejected with ErrMalformedRecord.
package store

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/lib/pq"

	"github.com/Alijeyrad/mindcare_backend/pkg/crypto"
	"github.com/Alijeyrad/mindcare_backend/pkg/database"
)

var (
	ErrNotFound        = errors.New("store: record not found")
	ErrConflict        = errors.New("store: record already exists")
	ErrStaleState      = errors.New("store: record is not in an expected state")
	ErrMalformedRecord = errors.New("store: malformed record")
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page is limit/offset pagination.
type Page struct {
	Limit  int
	Offset int
}

// NewPage converts 1-based page numbering into limit/offset.
func NewPage(page, perPage int) Page {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > MaxLimit {
		perPage = DefaultLimit
	}
	return Page{Limit: perPage, Offset: (page - 1) * perPage}
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Client groups the record stores over one driver.
type Client struct {
	drv dialect.Driver

	Users         *UserStore
	Sessions      *SessionStore
	Profiles      *ProfileStore
	Reports       *ReportStore
	Notifications *NotificationStore
	ActionLogs    *ActionLogStore
}

// NewClient builds the stores. cipher encrypts profile notes; nil disables
// encryption.
func NewClient(drv dialect.Driver, cipher *crypto.FieldCipher) *Client {
	if cipher == nil {
		cipher = &crypto.FieldCipher{}
	}
	return &Client{
		drv:           drv,
		Users:         &UserStore{drv: drv},
		Sessions:      &SessionStore{drv: drv},
		Profiles:      &ProfileStore{drv: drv, cipher: cipher},
		Reports:       &ReportStore{drv: drv},
		Notifications: &NotificationStore{drv: drv},
		ActionLogs:    &ActionLogStore{drv: drv},
	}
}

// Migrate creates or updates all tables.
func (c *Client) Migrate(ctx context.Context, safe bool) error {
	return database.Migrate(ctx, c.drv, safe, Tables...)
}

// Ping runs a trivial query.
func (c *Client) Ping(ctx context.Context) error {
	var rows entsql.Rows
	if err := c.drv.Query(ctx, "SELECT 1", []any{}, &rows); err != nil {
		return err
	}
	return rows.Close()
}

func (c *Client) Close() error { return c.drv.Close() }

func builder() *entsql.DialectBuilder { return entsql.Dialect(dialect.Postgres) }

type scanner interface {
	Scan(dest ...any) error
}

func queryAll[T any](ctx context.Context, drv dialect.Driver, sel *entsql.Selector, scan func(scanner) (*T, error)) ([]*T, error) {
	q, args := sel.Query()
	var rows entsql.Rows
	if err := drv.Query(ctx, q, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryOne[T any](ctx context.Context, drv dialect.Driver, sel *entsql.Selector, scan func(scanner) (*T, error)) (*T, error) {
	items, err := queryAll(ctx, drv, sel.Limit(1), scan)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

func count(ctx context.Context, drv dialect.Driver, table string, pred *entsql.Predicate) (int, error) {
	b := builder()
	sel := b.Select(entsql.Count("*")).From(b.Table(table))
	if pred != nil {
		sel.Where(pred)
	}
	q, args := sel.Query()

	var rows entsql.Rows
	if err := drv.Query(ctx, q, args, &rows); err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

type querier interface {
	Query() (string, []any)
}

// exec runs a statement and returns the affected row count.
func exec(ctx context.Context, drv dialect.Driver, stmt querier) (int64, error) {
	q, args := stmt.Query()
	var res stdsql.Result
	if err := drv.Exec(ctx, q, args, &res); err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// translate maps driver errors onto store sentinels.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case "23503":
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Constraint)
		}
	}
	return err
}

func and(preds []*entsql.Predicate) *entsql.Predicate {
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return entsql.And(preds...)
	}
}

func malformed(table, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedRecord, table, reason)
}
