package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"caderneta/internal/core"
	"caderneta/internal/storage"
)

// StatementPrefix marks the payment entries a statement toggle writes onto
// the card's payment account. Entries carrying it never count as purchases.
const StatementPrefix = "Fatura "

var (
	ErrNoPaymentAccount = errors.New("card has no linked payment account")
	ErrEmptyStatement   = errors.New("statement has no balance to pay")
)

// StatementDescription is the stable key a card's statement payment entry is
// stored and found under, unique per card and period.
func StatementDescription(cardName string, year, month int) string {
	return fmt.Sprintf("%s%s %02d/%d", StatementPrefix, cardName, month, year)
}

// Statement is the read model of a card's month: its purchases, the total
// owed and the state of the payment entry on the linked account.
type Statement struct {
	Card    core.CreditCard
	Year    int
	Month   int
	Entries []core.Entry
	Total   core.Money
	DueDate time.Time
	Paid    bool
}

// Statements aggregates credit card months and drives the paid toggle.
type Statements struct {
	repo *storage.Repository
}

func NewStatements(repo *storage.Repository) *Statements {
	return &Statements{repo: repo}
}

// CardStatement builds the statement view for a card and period.
func (s *Statements) CardStatement(ctx context.Context, cardID int64, year, month int) (Statement, error) {
	q := s.repo.Queries()
	card, err := q.GetCard(ctx, cardID)
	if err != nil {
		return Statement{}, err
	}
	entries, err := q.ListCardMonthEntries(ctx, cardID, year, month)
	if err != nil {
		return Statement{}, err
	}
	total, err := q.SumCardMonthEntries(ctx, cardID, year, month)
	if err != nil {
		return Statement{}, err
	}

	st := Statement{
		Card:    card,
		Year:    year,
		Month:   month,
		Entries: entries,
		Total:   core.Money{Cents: total},
		DueDate: core.ClampDay(year, month, card.StatementDay),
	}
	if card.PaymentAccountID != 0 {
		desc := StatementDescription(card.Name, year, month)
		payment, err := q.GetStatementEntry(ctx, card.PaymentAccountID, desc)
		switch {
		case err == nil:
			st.Paid = payment.Paid()
		case errors.Is(err, storage.ErrNotFound):
			// never paid yet
		default:
			return Statement{}, err
		}
	}
	return st, nil
}

// ToggleStatementPaid flips the payment entry for a card's month. The first
// toggle synthesizes a paid expense on the linked payment account for the
// statement total; later toggles flip that same entry between paid and
// pending.
func (s *Statements) ToggleStatementPaid(ctx context.Context, cardID int64, year, month int, when time.Time) error {
	return s.repo.WithTx(ctx, func(q *storage.Queries) error {
		card, err := q.GetCard(ctx, cardID)
		if err != nil {
			return err
		}
		if card.PaymentAccountID == 0 {
			return ErrNoPaymentAccount
		}

		desc := StatementDescription(card.Name, year, month)
		payment, err := q.GetStatementEntry(ctx, card.PaymentAccountID, desc)
		if err == nil {
			status := core.Pago
			paid := when
			if payment.Paid() {
				status = core.Pendente
				paid = time.Time{}
			}
			return q.UpdateEntryStatus(ctx, payment.ID, status, paid)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		total, err := q.SumCardMonthEntries(ctx, cardID, year, month)
		if err != nil {
			return err
		}
		if total <= 0 {
			return ErrEmptyStatement
		}

		entry := core.Entry{
			Description: desc,
			Amount:      core.Money{Cents: total},
			Kind:        core.Despesa,
			DueDate:     core.ClampDay(year, month, card.StatementDay),
			PaidDate:    when,
			Status:      core.Pago,
			Funding:     core.AccountFunding(card.PaymentAccountID),
		}
		if err := entry.Validate(); err != nil {
			return err
		}
		if _, err := q.CreateEntry(ctx, entry); err != nil {
			return err
		}
		slog.InfoContext(ctx, "statement paid",
			"card", card.Name, "period", fmt.Sprintf("%02d/%d", month, year), "cents", total)
		return nil
	})
}
