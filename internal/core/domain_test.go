package core

import (
	"errors"
	"testing"
	"time"
)

func validEntry() Entry {
	return Entry{
		Description: "Mercado",
		Amount:      Money{Cents: 4250},
		Kind:        Despesa,
		DueDate:     time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:      Pendente,
		Funding:     AccountFunding(1),
	}
}

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Entry)
		wantErr error
	}{
		{"valid account entry", func(e *Entry) {}, nil},
		{"valid card entry", func(e *Entry) { e.Funding = CardFunding(2) }, nil},
		{"empty description", func(e *Entry) { e.Description = "  " }, ErrEmptyDescription},
		{"zero amount", func(e *Entry) { e.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(e *Entry) { e.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"unknown kind", func(e *Entry) { e.Kind = "Outro" }, ErrInvalidKind},
		{"zero due date", func(e *Entry) { e.DueDate = time.Time{} }, ErrInvalidDueDate},
		{"no funding", func(e *Entry) { e.Funding = Funding{} }, ErrNoFunding},
		{
			"transfer leg on card",
			func(e *Entry) {
				e.TransferGroupID = "g1"
				e.Funding = CardFunding(2)
			},
			ErrTransferFunding,
		},
		{
			"transfer leg on account",
			func(e *Entry) {
				e.TransferGroupID = "g1"
				e.Funding = AccountFunding(3)
			},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)
			err := e.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFundingUnion(t *testing.T) {
	f := AccountFunding(7)
	if id, ok := f.AccountID(); !ok || id != 7 {
		t.Errorf("AccountID() = %d, %v; want 7, true", id, ok)
	}
	if _, ok := f.CardID(); ok {
		t.Error("CardID() reported a card for account funding")
	}

	f = CardFunding(9)
	if id, ok := f.CardID(); !ok || id != 9 {
		t.Errorf("CardID() = %d, %v; want 9, true", id, ok)
	}
	if _, ok := f.AccountID(); ok {
		t.Error("AccountID() reported an account for card funding")
	}

	var zero Funding
	if !zero.IsZero() {
		t.Error("zero Funding should report IsZero")
	}
}

func TestCreditCardValidate(t *testing.T) {
	tests := []struct {
		name    string
		card    CreditCard
		wantErr bool
	}{
		{"valid", CreditCard{Name: "Nubank", StatementDay: 10}, false},
		{"day 31", CreditCard{Name: "Visa", StatementDay: 31}, false},
		{"day zero", CreditCard{Name: "Visa", StatementDay: 0}, true},
		{"day 32", CreditCard{Name: "Visa", StatementDay: 32}, true},
		{"empty name", CreditCard{Name: " ", StatementDay: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.card.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
