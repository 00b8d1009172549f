package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"caderneta/internal/core"
)

func TestStatementDescription(t *testing.T) {
	got := StatementDescription("Visa", 2025, 3)
	want := "Fatura Visa 03/2025"
	if got != want {
		t.Errorf("StatementDescription() = %q, want %q", got, want)
	}
}

func TestCardStatementAndToggle(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	statements := NewStatements(repo)
	ctx := context.Background()

	acc := newTestAccount(t, repo, "Pagadora", 200000)
	card, err := repo.Queries().CreateCard(ctx, core.CreditCard{
		Name: "Visa", StatementDay: 31, PaymentAccountID: acc.ID, Active: true,
	})
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}

	purchases := []core.Entry{
		{Description: "Restaurante", Amount: core.Money{Cents: 12000}, Kind: core.Despesa},
		{Description: "Streaming", Amount: core.Money{Cents: 4000}, Kind: core.Despesa},
		{Description: "Estorno", Amount: core.Money{Cents: 1000}, Kind: core.Receita},
	}
	for _, p := range purchases {
		p.DueDate = date(2025, time.February, 10)
		p.Funding = core.CardFunding(card.ID)
		if _, err := ledger.CreateSingle(ctx, p); err != nil {
			t.Fatalf("CreateSingle(%q) error = %v", p.Description, err)
		}
	}

	st, err := statements.CardStatement(ctx, card.ID, 2025, 2)
	if err != nil {
		t.Fatalf("CardStatement() error = %v", err)
	}
	if st.Total.Cents != 15000 {
		t.Errorf("statement total = %d, want 15000", st.Total.Cents)
	}
	if len(st.Entries) != 3 {
		t.Errorf("statement entries = %d, want 3", len(st.Entries))
	}
	// Day 31 clamps to February's last day.
	if !st.DueDate.Equal(date(2025, time.February, 28)) {
		t.Errorf("statement due = %v, want 2025-02-28", st.DueDate)
	}
	if st.Paid {
		t.Error("statement paid before any toggle")
	}

	when := date(2025, time.February, 28)
	if err := statements.ToggleStatementPaid(ctx, card.ID, 2025, 2, when); err != nil {
		t.Fatalf("ToggleStatementPaid() error = %v", err)
	}

	st, err = statements.CardStatement(ctx, card.ID, 2025, 2)
	if err != nil {
		t.Fatalf("CardStatement() after toggle error = %v", err)
	}
	if !st.Paid {
		t.Error("statement not paid after toggle")
	}
	// The synthesized payment entry reduces the linked account's balance but
	// never shows up as a card purchase.
	if st.Total.Cents != 15000 {
		t.Errorf("statement total after toggle = %d, want 15000", st.Total.Cents)
	}
	bal, err := ledger.AccountBalance(ctx, acc.ID)
	if err != nil {
		t.Fatalf("AccountBalance() error = %v", err)
	}
	if bal.Balance.Cents != 185000 {
		t.Errorf("payment account balance = %d, want 185000", bal.Balance.Cents)
	}

	// Second toggle flips the same entry back to pending.
	if err := statements.ToggleStatementPaid(ctx, card.ID, 2025, 2, when); err != nil {
		t.Fatalf("ToggleStatementPaid() second error = %v", err)
	}
	st, _ = statements.CardStatement(ctx, card.ID, 2025, 2)
	if st.Paid {
		t.Error("statement still paid after second toggle")
	}
	bal, _ = ledger.AccountBalance(ctx, acc.ID)
	if bal.Balance.Cents != 200000 {
		t.Errorf("balance after unpay = %d, want 200000", bal.Balance.Cents)
	}
}

func TestToggleStatementPaidWithoutAccount(t *testing.T) {
	repo := openTestRepo(t)
	statements := NewStatements(repo)
	ctx := context.Background()

	card, err := repo.Queries().CreateCard(ctx, core.CreditCard{
		Name: "Avulso", StatementDay: 10, Active: true,
	})
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}

	err = statements.ToggleStatementPaid(ctx, card.ID, 2025, 2, date(2025, time.February, 10))
	if !errors.Is(err, ErrNoPaymentAccount) {
		t.Errorf("ToggleStatementPaid() error = %v, want ErrNoPaymentAccount", err)
	}
}

func TestToggleEmptyStatement(t *testing.T) {
	repo := openTestRepo(t)
	statements := NewStatements(repo)
	ctx := context.Background()

	acc := newTestAccount(t, repo, "Pagadora", 0)
	card, err := repo.Queries().CreateCard(ctx, core.CreditCard{
		Name: "Vazio", StatementDay: 5, PaymentAccountID: acc.ID, Active: true,
	})
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}

	err = statements.ToggleStatementPaid(ctx, card.ID, 2025, 4, date(2025, time.April, 5))
	if !errors.Is(err, ErrEmptyStatement) {
		t.Errorf("ToggleStatementPaid(empty) error = %v, want ErrEmptyStatement", err)
	}
}
