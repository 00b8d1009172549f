package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"caderneta/internal/core"
)

func (q *Queries) CreateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO cartoes_credito (nome, dia_vencimento, conta_pagamento_id, logo_imagem, ativo)
		VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.StatementDay, nullID(c.PaymentAccountID), nullString(c.LogoImage), c.Active)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("create card: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("card id: %w", err)
	}
	return c, nil
}

func (q *Queries) GetCard(ctx context.Context, id int64) (core.CreditCard, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, nome, dia_vencimento, conta_pagamento_id, logo_imagem, ativo
		FROM cartoes_credito WHERE id = ?`, id)
	return scanCard(row)
}

func (q *Queries) ListActiveCards(ctx context.Context) ([]core.CreditCard, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, nome, dia_vencimento, conta_pagamento_id, logo_imagem, ativo
		FROM cartoes_credito WHERE ativo = 1 ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("list active cards: %w", err)
	}
	defer rows.Close()

	var cards []core.CreditCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (q *Queries) UpdateCard(ctx context.Context, c core.CreditCard) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE cartoes_credito SET nome = ?, dia_vencimento = ?, conta_pagamento_id = ?, logo_imagem = ?
		WHERE id = ?`,
		c.Name, c.StatementDay, nullID(c.PaymentAccountID), nullString(c.LogoImage), c.ID)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return requireAffected(res)
}

// DeactivateCard soft-deletes a card. Cards with entries are never removed.
func (q *Queries) DeactivateCard(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `UPDATE cartoes_credito SET ativo = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate card: %w", err)
	}
	return requireAffected(res)
}

func scanCard(row rowScanner) (core.CreditCard, error) {
	var (
		c       core.CreditCard
		payment sql.NullInt64
		logo    sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &c.StatementDay, &payment, &logo, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CreditCard{}, ErrNotFound
	}
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("scan card: %w", err)
	}
	c.PaymentAccountID = payment.Int64
	c.LogoImage = logo.String
	return c, nil
}
