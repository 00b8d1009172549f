package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Receita EntryKind = "Receita"
	Despesa EntryKind = "Despesa"

	Pendente EntryStatus = "Pendente"
	Pago     EntryStatus = "Pago"

	Corrente     AccountKind = "Corrente"
	Investimento AccountKind = "Investimento"

	Parcelada SeriesKind = "Parcelada"
	Fixa      SeriesKind = "Fixa"

	Semanal   Frequency = "Semanal"
	Quinzenal Frequency = "Quinzenal"
	Mensal    Frequency = "Mensal"
	Anual     Frequency = "Anual"
)

type (
	EntryKind   string
	EntryStatus string
	AccountKind string
	SeriesKind  string
	Frequency   string

	// Account is a checking or investment account holding entries.
	Account struct {
		ID             int64
		Name           string
		Kind           AccountKind
		InvestmentType string // only for Investimento accounts
		OpeningBalance Money  // may be zero or negative, unlike entry amounts
		LogoImage      string
	}

	// CreditCard is a funding source with a monthly statement. Cards are
	// never hard-deleted once they have entries; they are deactivated.
	CreditCard struct {
		ID               int64
		Name             string
		StatementDay     int   // day of month the statement is due, 1-31
		PaymentAccountID int64 // 0 = no linked payment account
		LogoImage        string
		Active           bool
	}

	Category struct {
		ID    int64
		Name  string
		Color string
		Icon  string
	}

	Subcategory struct {
		ID         int64
		Name       string
		CategoryID int64
	}

	// Series is a recurrence template owning a generated sequence of entries.
	Series struct {
		ID              int64
		BaseDescription string
		Kind            SeriesKind
		TotalCount      int
		Frequency       Frequency
		CreatedAt       time.Time
	}

	// Entry is a single dated financial transaction: an income, an expense
	// or one leg of a transfer between accounts.
	Entry struct {
		ID          int64
		Description string
		Amount      Money
		Kind        EntryKind
		DueDate     time.Time
		PaidDate    time.Time // zero when unpaid
		Status      EntryStatus
		CreatedAt   time.Time

		Funding         Funding
		SeriesID        int64  // 0 = standalone entry
		TransferGroupID string // "" = not a transfer leg
		SubcategoryID   int64  // 0 = uncategorized
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidKind         = errors.New("invalid entry kind")
	ErrInvalidDueDate      = errors.New("invalid due date")
	ErrNoFunding           = errors.New("entry requires an account or a credit card")
	ErrTransferFunding     = errors.New("transfer legs must be funded by an account")
	ErrInvalidCount        = errors.New("installment count must be at least 1")
	ErrInvalidStatementDay = errors.New("statement day must be between 1 and 31")
)

// fundingKind discriminates the Funding union.
type fundingKind int

const (
	fundingNone fundingKind = iota
	fundingAccount
	fundingCard
)

// Funding is the single source of money for an entry: either an account or a
// credit card, never both. The zero value means "no funding" and fails
// validation, so an Entry cannot reach storage without exactly one source.
type Funding struct {
	kind fundingKind
	id   int64
}

// AccountFunding builds a funding source backed by an account.
func AccountFunding(accountID int64) Funding {
	return Funding{kind: fundingAccount, id: accountID}
}

// CardFunding builds a funding source backed by a credit card.
func CardFunding(cardID int64) Funding {
	return Funding{kind: fundingCard, id: cardID}
}

// AccountID returns the account id and true when the funding is an account.
func (f Funding) AccountID() (int64, bool) {
	if f.kind == fundingAccount {
		return f.id, true
	}
	return 0, false
}

// CardID returns the card id and true when the funding is a credit card.
func (f Funding) CardID() (int64, bool) {
	if f.kind == fundingCard {
		return f.id, true
	}
	return 0, false
}

// IsZero reports whether no funding source was set.
func (f Funding) IsZero() bool {
	return f.kind == fundingNone
}

func (k EntryKind) Valid() bool {
	return k == Receita || k == Despesa
}

func (s EntryStatus) Valid() bool {
	return s == Pendente || s == Pago
}

// Validate checks the entry construction invariants before it reaches
// storage: positive amount, known kind, due date present, and exactly one
// funding source (an account for transfer legs).
func (e Entry) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 100 {
		return errors.New("description too long (max 100 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if e.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	if e.Funding.IsZero() {
		return ErrNoFunding
	}
	if e.TransferGroupID != "" {
		if _, ok := e.Funding.AccountID(); !ok {
			return ErrTransferFunding
		}
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if a.Kind != Corrente && a.Kind != Investimento {
		return errors.New("invalid account kind")
	}
	return nil
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.StatementDay < 1 || c.StatementDay > 31 {
		return ErrInvalidStatementDay
	}
	return nil
}

// Paid reports whether the entry was settled.
func (e Entry) Paid() bool {
	return e.Status == Pago
}
