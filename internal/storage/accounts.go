package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"caderneta/internal/core"
)

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO contas (nome, tipo_conta, tipo_investimento, saldo_inicial_cents, logo_imagem)
		VALUES (?, ?, ?, ?, ?)`,
		a.Name, string(a.Kind), nullString(a.InvestmentType), a.OpeningBalance.Cents, nullString(a.LogoImage))
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account id: %w", err)
	}
	return a, nil
}

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, nome, tipo_conta, tipo_investimento, saldo_inicial_cents, logo_imagem
		FROM contas WHERE id = ?`, id)
	return scanAccount(row)
}

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, nome, tipo_conta, tipo_investimento, saldo_inicial_cents, logo_imagem
		FROM contas ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE contas SET nome = ?, tipo_conta = ?, tipo_investimento = ?, saldo_inicial_cents = ?, logo_imagem = ?
		WHERE id = ?`,
		a.Name, string(a.Kind), nullString(a.InvestmentType), a.OpeningBalance.Cents, nullString(a.LogoImage), a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireAffected(res)
}

// DeleteAccount fails with a constraint error while entries still reference
// the account.
func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM contas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireAffected(res)
}

// SumAccountPaid returns the signed sum of paid entries on an account:
// incomes count positive, expenses negative. Pending entries are excluded,
// so the derived balance always reflects the latest paid status.
func (q *Queries) SumAccountPaid(ctx context.Context, accountID int64) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN tipo = 'Receita' THEN valor_cents ELSE -valor_cents END), 0)
		FROM lancamentos
		WHERE conta_id = ? AND status = 'Pago'`, accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum paid entries for account %d: %w", accountID, err)
	}
	return sum, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a          core.Account
		kind       string
		investment sql.NullString
		logo       sql.NullString
	)
	err := row.Scan(&a.ID, &a.Name, &kind, &investment, &a.OpeningBalance.Cents, &logo)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Kind = core.AccountKind(kind)
	a.InvestmentType = investment.String
	a.LogoImage = logo.String
	return a, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
