package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"caderneta/internal/core"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries bundles all SQL statements against a database or transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns the same query set bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// monthRange returns the [start, end) due-date bounds of a calendar month
// in the stored date format.
func monthRange(year, month int) (string, string) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start.Format(dateLayout), start.AddDate(0, 1, 0).Format(dateLayout)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

func nullID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return t, nil
}

func parseDateTime(s string) time.Time {
	if t, err := time.Parse(dateTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// fundingColumns maps the funding union onto the two nullable FK columns.
func fundingColumns(f core.Funding) (conta, cartao sql.NullInt64) {
	if id, ok := f.AccountID(); ok {
		conta = sql.NullInt64{Int64: id, Valid: true}
	}
	if id, ok := f.CardID(); ok {
		cartao = sql.NullInt64{Int64: id, Valid: true}
	}
	return conta, cartao
}

// fundingFromColumns rebuilds the union from the stored columns. The schema
// CHECK guarantees exactly one of them is set.
func fundingFromColumns(conta, cartao sql.NullInt64) core.Funding {
	if conta.Valid {
		return core.AccountFunding(conta.Int64)
	}
	if cartao.Valid {
		return core.CardFunding(cartao.Int64)
	}
	return core.Funding{}
}
