package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caderneta/internal/core"
)

const entrySelect = `
	SELECT id, descricao, valor_cents, tipo, data_vencimento, data_pagamento,
	       status, data_criacao, conta_id, cartao_credito_id, recorrencia_id,
	       transferencia_grupo_id, subcategoria_id
	FROM lancamentos`

func (q *Queries) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	conta, cartao := fundingColumns(e.Funding)
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO lancamentos (descricao, valor_cents, tipo, data_vencimento,
			data_pagamento, status, conta_id, cartao_credito_id, recorrencia_id,
			transferencia_grupo_id, subcategoria_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Description, e.Amount.Cents, string(e.Kind), formatDate(e.DueDate),
		nullDate(e.PaidDate), string(e.Status), conta, cartao,
		nullID(e.SeriesID), nullString(e.TransferGroupID), nullID(e.SubcategoryID))
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry id: %w", err)
	}
	return e, nil
}

func (q *Queries) GetEntry(ctx context.Context, id int64) (core.Entry, error) {
	row := q.db.QueryRowContext(ctx, entrySelect+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (q *Queries) UpdateEntry(ctx context.Context, e core.Entry) error {
	conta, cartao := fundingColumns(e.Funding)
	res, err := q.db.ExecContext(ctx, `
		UPDATE lancamentos
		SET descricao = ?, valor_cents = ?, tipo = ?, data_vencimento = ?,
		    data_pagamento = ?, status = ?, conta_id = ?, cartao_credito_id = ?,
		    subcategoria_id = ?
		WHERE id = ?`,
		e.Description, e.Amount.Cents, string(e.Kind), formatDate(e.DueDate),
		nullDate(e.PaidDate), string(e.Status), conta, cartao,
		nullID(e.SubcategoryID), e.ID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireAffected(res)
}

// UpdateEntryStatus sets the status and payment date. A zero paid time
// clears the stored payment date.
func (q *Queries) UpdateEntryStatus(ctx context.Context, id int64, status core.EntryStatus, paid time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE lancamentos SET status = ?, data_pagamento = ? WHERE id = ?`,
		string(status), nullDate(paid), id)
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	return requireAffected(res)
}

func (q *Queries) DeleteEntry(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM lancamentos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireAffected(res)
}

// ListMonthEntries returns the entries of the given kind due inside the
// year/month window, ordered by due date.
func (q *Queries) ListMonthEntries(ctx context.Context, kind core.EntryKind, year, month int) ([]core.Entry, error) {
	start, end := monthRange(year, month)
	return q.queryEntries(ctx, entrySelect+`
		WHERE tipo = ? AND data_vencimento >= ? AND data_vencimento < ?
		ORDER BY data_vencimento, id`, string(kind), start, end)
}

// ListCardMonthEntries returns a card's purchases for the month. Statement
// payment entries ("Fatura ..." on the linked account) never count as
// purchases, so they are filtered out by description prefix.
func (q *Queries) ListCardMonthEntries(ctx context.Context, cardID int64, year, month int) ([]core.Entry, error) {
	start, end := monthRange(year, month)
	return q.queryEntries(ctx, entrySelect+`
		WHERE cartao_credito_id = ? AND data_vencimento >= ? AND data_vencimento < ?
		  AND descricao NOT LIKE 'Fatura %'
		ORDER BY data_vencimento, id`, cardID, start, end)
}

// SumCardMonthEntries totals a card's month as expenses minus refunds,
// in cents.
func (q *Queries) SumCardMonthEntries(ctx context.Context, cardID int64, year, month int) (int64, error) {
	start, end := monthRange(year, month)
	var total int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN tipo = 'Despesa' THEN valor_cents ELSE -valor_cents END), 0)
		FROM lancamentos
		WHERE cartao_credito_id = ? AND data_vencimento >= ? AND data_vencimento < ?
		  AND descricao NOT LIKE 'Fatura %'`,
		cardID, start, end).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum card month: %w", err)
	}
	return total, nil
}

// GetStatementEntry finds the persisted statement payment entry on the
// card's payment account by its exact description.
func (q *Queries) GetStatementEntry(ctx context.Context, accountID int64, desc string) (core.Entry, error) {
	row := q.db.QueryRowContext(ctx, entrySelect+`
		WHERE conta_id = ? AND descricao = ?
		ORDER BY id LIMIT 1`, accountID, desc)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get statement entry: %w", err)
	}
	return e, nil
}

// ListStandaloneEntries returns entries outside any series, newest first.
func (q *Queries) ListStandaloneEntries(ctx context.Context) ([]core.Entry, error) {
	return q.queryEntries(ctx, entrySelect+`
		WHERE recorrencia_id IS NULL
		ORDER BY id DESC`)
}

func (q *Queries) CreateTransferGroup(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `
		INSERT INTO transferencias_grupos (id) VALUES (?)`, id); err != nil {
		return fmt.Errorf("create transfer group: %w", err)
	}
	return nil
}

func (q *Queries) ListTransferEntries(ctx context.Context, groupID string) ([]core.Entry, error) {
	return q.queryEntries(ctx, entrySelect+`
		WHERE transferencia_grupo_id = ?
		ORDER BY tipo, id`, groupID)
}

func (q *Queries) DeleteTransferEntries(ctx context.Context, groupID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM lancamentos WHERE transferencia_grupo_id = ?`, groupID)
	if err != nil {
		return 0, fmt.Errorf("delete transfer entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete transfer entries affected: %w", err)
	}
	return n, nil
}

func (q *Queries) DeleteTransferGroup(ctx context.Context, groupID string) error {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM transferencias_grupos WHERE id = ?`, groupID)
	if err != nil {
		return fmt.Errorf("delete transfer group: %w", err)
	}
	return requireAffected(res)
}

// ResetSeriesCreatedAt rewrites every series' creation timestamp to the
// given moment. Part of the one-off data repair for rows imported without
// reliable timestamps.
func (q *Queries) ResetSeriesCreatedAt(ctx context.Context, when time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE recorrencias SET data_criacao = ?`, when.Format(dateTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("reset series created: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) ResetTransferGroupsCreatedAt(ctx context.Context, when time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE transferencias_grupos SET data_criacao = ?`, when.Format(dateTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("reset transfer groups created: %w", err)
	}
	return res.RowsAffected()
}

// ResetStandaloneEntriesCreatedAt touches only entries outside any series or
// transfer group; series and transfer members follow their parent record.
func (q *Queries) ResetStandaloneEntriesCreatedAt(ctx context.Context, when time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE lancamentos SET data_criacao = ?
		WHERE recorrencia_id IS NULL AND transferencia_grupo_id IS NULL`,
		when.Format(dateTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("reset standalone entries created: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) queryEntries(ctx context.Context, query string, args ...any) ([]core.Entry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var (
		e        core.Entry
		due      string
		paid     sql.NullString
		created  string
		conta    sql.NullInt64
		cartao   sql.NullInt64
		series   sql.NullInt64
		transfer sql.NullString
		subcat   sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.Description, &e.Amount.Cents, &e.Kind, &due, &paid,
		&e.Status, &created, &conta, &cartao, &series, &transfer, &subcat)
	if err != nil {
		return core.Entry{}, err
	}
	if e.DueDate, err = parseDate(due); err != nil {
		return core.Entry{}, err
	}
	if paid.Valid {
		if e.PaidDate, err = parseDate(paid.String); err != nil {
			return core.Entry{}, err
		}
	}
	e.CreatedAt = parseDateTime(created)
	e.Funding = fundingFromColumns(conta, cartao)
	e.SeriesID = series.Int64
	e.TransferGroupID = transfer.String
	e.SubcategoryID = subcat.Int64
	return e, nil
}
