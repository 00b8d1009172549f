package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"caderneta/internal/core"
)

func (q *Queries) CreateSeries(ctx context.Context, s core.Series) (core.Series, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO recorrencias (descricao_base, tipo, total_parcelas, frequencia)
		VALUES (?, ?, ?, ?)`,
		s.BaseDescription, string(s.Kind), s.TotalCount, string(s.Frequency))
	if err != nil {
		return core.Series{}, fmt.Errorf("create series: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.Series{}, fmt.Errorf("series id: %w", err)
	}
	return s, nil
}

func (q *Queries) GetSeries(ctx context.Context, id int64) (core.Series, error) {
	var (
		s       core.Series
		created string
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT id, descricao_base, tipo, total_parcelas, frequencia, data_criacao
		FROM recorrencias WHERE id = ?`, id).
		Scan(&s.ID, &s.BaseDescription, &s.Kind, &s.TotalCount, &s.Frequency, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Series{}, ErrNotFound
	}
	if err != nil {
		return core.Series{}, fmt.Errorf("get series: %w", err)
	}
	s.CreatedAt = parseDateTime(created)
	return s, nil
}

// ListSeries returns every series, newest first.
func (q *Queries) ListSeries(ctx context.Context) ([]core.Series, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, descricao_base, tipo, total_parcelas, frequencia, data_criacao
		FROM recorrencias ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var all []core.Series
	for rows.Next() {
		var (
			s       core.Series
			created string
		)
		if err := rows.Scan(&s.ID, &s.BaseDescription, &s.Kind, &s.TotalCount, &s.Frequency, &created); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		s.CreatedAt = parseDateTime(created)
		all = append(all, s)
	}
	return all, rows.Err()
}

func (q *Queries) UpdateSeriesDescription(ctx context.Context, id int64, desc string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE recorrencias SET descricao_base = ? WHERE id = ?`, desc, id)
	if err != nil {
		return fmt.Errorf("update series description: %w", err)
	}
	return requireAffected(res)
}

// DeleteSeries cascades to every entry still attached to the series.
func (q *Queries) DeleteSeries(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM recorrencias WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	return requireAffected(res)
}

func (q *Queries) CountSeriesEntries(ctx context.Context, seriesID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM lancamentos WHERE recorrencia_id = ?`, seriesID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count series entries: %w", err)
	}
	return n, nil
}

// ListSeriesEntries returns the series' entries ordered by due date, with the
// id as a tiebreaker so installment ordinals stay stable.
func (q *Queries) ListSeriesEntries(ctx context.Context, seriesID int64) ([]core.Entry, error) {
	return q.queryEntries(ctx, entrySelect+`
		WHERE recorrencia_id = ?
		ORDER BY data_vencimento, id`, seriesID)
}

func (q *Queries) ListSeriesEntriesFrom(ctx context.Context, seriesID int64, from string) ([]core.Entry, error) {
	return q.queryEntries(ctx, entrySelect+`
		WHERE recorrencia_id = ? AND data_vencimento >= ?
		ORDER BY data_vencimento, id`, seriesID, from)
}

func (q *Queries) DeleteSeriesEntriesFrom(ctx context.Context, seriesID int64, from string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM lancamentos WHERE recorrencia_id = ? AND data_vencimento >= ?`,
		seriesID, from)
	if err != nil {
		return 0, fmt.Errorf("delete series entries from %s: %w", from, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete series entries affected: %w", err)
	}
	return n, nil
}
