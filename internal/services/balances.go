package services

import (
	"context"

	"caderneta/internal/core"
)

// AccountBalance pairs an account with its current balance: the opening
// balance plus every paid income minus every paid expense. Pending entries
// never move the balance.
type AccountBalance struct {
	Account core.Account
	Balance core.Money
}

func (l *Ledger) AccountBalance(ctx context.Context, accountID int64) (AccountBalance, error) {
	q := l.repo.Queries()
	acc, err := q.GetAccount(ctx, accountID)
	if err != nil {
		return AccountBalance{}, err
	}
	paid, err := q.SumAccountPaid(ctx, accountID)
	if err != nil {
		return AccountBalance{}, err
	}
	return AccountBalance{
		Account: acc,
		Balance: core.Money{Cents: acc.OpeningBalance.Cents + paid},
	}, nil
}

func (l *Ledger) AccountBalances(ctx context.Context) ([]AccountBalance, error) {
	q := l.repo.Queries()
	accounts, err := q.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	balances := make([]AccountBalance, 0, len(accounts))
	for _, acc := range accounts {
		paid, err := q.SumAccountPaid(ctx, acc.ID)
		if err != nil {
			return nil, err
		}
		balances = append(balances, AccountBalance{
			Account: acc,
			Balance: core.Money{Cents: acc.OpeningBalance.Cents + paid},
		})
	}
	return balances, nil
}

// MonthSummary is the dashboard read model for one month.
type MonthSummary struct {
	Incomes      []core.Entry
	Expenses     []core.Entry
	IncomeTotal  core.Money
	ExpenseTotal core.Money
	PendingCount int
}

func (l *Ledger) MonthSummary(ctx context.Context, year, month int) (MonthSummary, error) {
	q := l.repo.Queries()
	incomes, err := q.ListMonthEntries(ctx, core.Receita, year, month)
	if err != nil {
		return MonthSummary{}, err
	}
	expenses, err := q.ListMonthEntries(ctx, core.Despesa, year, month)
	if err != nil {
		return MonthSummary{}, err
	}

	sum := MonthSummary{Incomes: incomes, Expenses: expenses}
	for _, e := range incomes {
		sum.IncomeTotal.Cents += e.Amount.Cents
		if !e.Paid() {
			sum.PendingCount++
		}
	}
	for _, e := range expenses {
		sum.ExpenseTotal.Cents += e.Amount.Cents
		if !e.Paid() {
			sum.PendingCount++
		}
	}
	return sum, nil
}
