package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"caderneta/internal/core"
	"caderneta/internal/storage"
)

func openTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestAccount(t *testing.T, repo *storage.Repository, name string, opening int64) core.Account {
	t.Helper()
	acc, err := repo.Queries().CreateAccount(context.Background(), core.Account{
		Name:           name,
		Kind:           core.Corrente,
		OpeningBalance: core.Money{Cents: opening},
	})
	if err != nil {
		t.Fatalf("CreateAccount(%q) error = %v", name, err)
	}
	return acc
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAccountBalanceIgnoresPending(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	ctx := context.Background()

	acc := newTestAccount(t, repo, "Corrente", 100000)
	entries := []core.Entry{
		{Description: "Salário", Amount: core.Money{Cents: 20000}, Kind: core.Receita,
			DueDate: date(2025, time.March, 5), PaidDate: date(2025, time.March, 5), Status: core.Pago},
		{Description: "Luz", Amount: core.Money{Cents: 15000}, Kind: core.Despesa,
			DueDate: date(2025, time.March, 10), PaidDate: date(2025, time.March, 10), Status: core.Pago},
		{Description: "Internet", Amount: core.Money{Cents: 50000}, Kind: core.Despesa,
			DueDate: date(2025, time.March, 20), Status: core.Pendente},
	}
	for _, e := range entries {
		e.Funding = core.AccountFunding(acc.ID)
		if _, err := ledger.CreateSingle(ctx, e); err != nil {
			t.Fatalf("CreateSingle(%q) error = %v", e.Description, err)
		}
	}

	got, err := ledger.AccountBalance(ctx, acc.ID)
	if err != nil {
		t.Fatalf("AccountBalance() error = %v", err)
	}
	if got.Balance.Cents != 105000 {
		t.Errorf("AccountBalance() = %d cents, want 105000", got.Balance.Cents)
	}
}

func TestCreateSeriesInstallments(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	ctx := context.Background()

	acc := newTestAccount(t, repo, "Corrente", 0)
	series, err := ledger.CreateSeries(ctx, core.SeriesTemplate{
		Description: "Notebook",
		Total:       core.Money{Cents: 100000},
		Kind:        core.Despesa,
		Start:       date(2025, time.January, 31),
		SeriesKind:  core.Parcelada,
		Frequency:   core.Mensal,
		Count:       3,
		Funding:     core.AccountFunding(acc.ID),
	})
	if err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}

	got, err := repo.Queries().ListSeriesEntries(ctx, series.ID)
	if err != nil {
		t.Fatalf("ListSeriesEntries() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListSeriesEntries() = %d entries, want 3", len(got))
	}

	wantCents := []int64{33333, 33333, 33334}
	wantDesc := []string{"Notebook (1/3)", "Notebook (2/3)", "Notebook (3/3)"}
	wantDue := []time.Time{
		date(2025, time.January, 31),
		date(2025, time.February, 28), // clamped, 2025 is not a leap year
		date(2025, time.March, 31),
	}
	for i, e := range got {
		if e.Amount.Cents != wantCents[i] {
			t.Errorf("entry %d cents = %d, want %d", i, e.Amount.Cents, wantCents[i])
		}
		if e.Description != wantDesc[i] {
			t.Errorf("entry %d description = %q, want %q", i, e.Description, wantDesc[i])
		}
		if !e.DueDate.Equal(wantDue[i]) {
			t.Errorf("entry %d due = %v, want %v", i, e.DueDate, wantDue[i])
		}
		if e.Paid() {
			t.Errorf("entry %d created paid", i)
		}
	}
}

func TestEditFuturosDiverges(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	ctx := context.Background()

	acc := newTestAccount(t, repo, "Corrente", 0)
	series, err := ledger.CreateSeries(ctx, core.SeriesTemplate{
		Description: "Academia",
		Total:       core.Money{Cents: 9900},
		Kind:        core.Despesa,
		Start:       date(2025, time.January, 5),
		SeriesKind:  core.Fixa,
		Frequency:   core.Mensal,
		Funding:     core.AccountFunding(acc.ID),
	})
	if err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}

	all, err := repo.Queries().ListSeriesEntries(ctx, series.ID)
	if err != nil {
		t.Fatalf("ListSeriesEntries() error = %v", err)
	}
	if len(all) != core.FixedMonths {
		t.Fatalf("fixed series = %d entries, want %d", len(all), core.FixedMonths)
	}

	// Edit the third occurrence onward.
	target := all[2]
	err = ledger.EditScoped(ctx, EditRequest{
		EntryID:     target.ID,
		Scope:       EditFuturos,
		Description: "Academia Nova",
		Amount:      core.Money{Cents: 12900},
		Kind:        core.Despesa,
		Funding:     core.AccountFunding(acc.ID),
	})
	if err != nil {
		t.Fatalf("EditScoped(futuros) error = %v", err)
	}

	after, err := repo.Queries().ListSeriesEntries(ctx, series.ID)
	if err != nil {
		t.Fatalf("ListSeriesEntries() after edit error = %v", err)
	}
	if after[0].Amount.Cents != 9900 || after[1].Amount.Cents != 9900 {
		t.Errorf("past entries changed: %d, %d", after[0].Amount.Cents, after[1].Amount.Cents)
	}
	if after[0].Description != "Academia" {
		t.Errorf("past description changed: %q", after[0].Description)
	}
	for i := 2; i < len(after); i++ {
		if after[i].Amount.Cents != 12900 || after[i].Description != "Academia Nova" {
			t.Fatalf("entry %d = %q %d cents, want updated", i, after[i].Description, after[i].Amount.Cents)
		}
	}

	got, err := repo.Queries().GetSeries(ctx, series.ID)
	if err != nil {
		t.Fatalf("GetSeries() error = %v", err)
	}
	if got.BaseDescription != "Academia Nova" {
		t.Errorf("series description = %q, want %q", got.BaseDescription, "Academia Nova")
	}
}

func TestEditTodosRestampsInstallments(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	ctx := context.Background()

	acc := newTestAccount(t, repo, "Corrente", 0)
	series, err := ledger.CreateSeries(ctx, core.SeriesTemplate{
		Description: "Sofá",
		Total:       core.Money{Cents: 120000},
		Kind:        core.Despesa,
		Start:       date(2025, time.April, 10),
		SeriesKind:  core.Parcelada,
		Frequency:   core.Mensal,
		Count:       4,
		Funding:     core.AccountFunding(acc.ID),
	})
	if err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}

	all, _ := repo.Queries().ListSeriesEntries(ctx, series.ID)
	err = ledger.EditScoped(ctx, EditRequest{
		EntryID:     all[0].ID,
		Scope:       EditTodos,
		Description: "Sofá da sala",
		Amount:      core.Money{Cents: 30000},
		Kind:        core.Despesa,
		Funding:     core.AccountFunding(acc.ID),
	})
	if err != nil {
		t.Fatalf("EditScoped(todos) error = %v", err)
	}

	after, _ := repo.Queries().ListSeriesEntries(ctx, series.ID)
	want := []string{"Sofá da sala (1/4)", "Sofá da sala (2/4)", "Sofá da sala (3/4)", "Sofá da sala (4/4)"}
	for i, e := range after {
		if e.Description != want[i] {
			t.Errorf("entry %d description = %q, want %q", i, e.Description, want[i])
		}
		if e.Amount.Cents != 30000 {
			t.Errorf("entry %d cents = %d, want 30000", i, e.Amount.Cents)
		}
	}
}

func TestEditKeepsTotalAfterPartialDelete(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	ctx := context.Background()

	acc := newTestAccount(t, repo, "Corrente", 0)
	series, err := ledger.CreateSeries(ctx, core.SeriesTemplate{
		Description: "Sofá",
		Total:       core.Money{Cents: 120000},
		Kind:        core.Despesa,
		Start:       date(2025, time.April, 10),
		SeriesKind:  core.Parcelada,
		Frequency:   core.Mensal,
		Count:       4,
		Funding:     core.AccountFunding(acc.ID),
	})
	if err != nil {
		t.Fatalf("CreateSeries() error = %v", err)
	}

	all, _ := repo.Queries().ListSeriesEntries(ctx, series.ID)
	if err := ledger.DeleteScoped(ctx, all[3].ID, DeleteUnico); err != nil {
		t.Fatalf("DeleteScoped(unico) error = %v", err)
	}

	err = ledger.EditScoped(ctx, EditRequest{
		EntryID:     all[0].ID,
		Scope:       EditTodos,
		Description: "Sofá novo",
		Amount:      core.Money{Cents: 30000},
		Kind:        core.Despesa,
		Funding:     core.AccountFunding(acc.ID),
	})
	if err != nil {
		t.Fatalf("EditScoped(todos) error = %v", err)
	}

	// Labels keep the series' stored total of 4 even though only 3
	// installments remain.
	after, _ := repo.Queries().ListSeriesEntries(ctx, series.ID)
	want := []string{"Sofá novo (1/4)", "Sofá novo (2/4)", "Sofá novo (3/4)"}
	if len(after) != len(want) {
		t.Fatalf("len(entries) = %d, want %d", len(after), len(want))
	}
	for i, e := range after {
		if e.Description != want[i] {
			t.Errorf("entry %d description = %q, want %q", i, e.Description, want[i])
		}
	}
}

func TestDeleteScopedCascades(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	ctx := context.Background()
	acc := newTestAccount(t, repo, "Corrente", 0)

	newSeries := func(t *testing.T, desc string) (core.Series, []core.Entry) {
		t.Helper()
		series, err := ledger.CreateSeries(ctx, core.SeriesTemplate{
			Description: desc,
			Total:       core.Money{Cents: 40000},
			Kind:        core.Despesa,
			Start:       date(2025, time.January, 10),
			SeriesKind:  core.Parcelada,
			Frequency:   core.Mensal,
			Count:       4,
			Funding:     core.AccountFunding(acc.ID),
		})
		if err != nil {
			t.Fatalf("CreateSeries() error = %v", err)
		}
		entries, err := repo.Queries().ListSeriesEntries(ctx, series.ID)
		if err != nil {
			t.Fatalf("ListSeriesEntries() error = %v", err)
		}
		return series, entries
	}

	t.Run("todos removes series and entries", func(t *testing.T) {
		series, entries := newSeries(t, "Geladeira")
		if err := ledger.DeleteScoped(ctx, entries[1].ID, DeleteTodos); err != nil {
			t.Fatalf("DeleteScoped(todos) error = %v", err)
		}
		if _, err := repo.Queries().GetSeries(ctx, series.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetSeries() after todos error = %v, want ErrNotFound", err)
		}
		if n, _ := repo.Queries().CountSeriesEntries(ctx, series.ID); n != 0 {
			t.Errorf("entries left after todos = %d", n)
		}
	})

	t.Run("futuros keeps the past, drops the tail", func(t *testing.T) {
		series, entries := newSeries(t, "Fogão")
		if err := ledger.DeleteScoped(ctx, entries[2].ID, DeleteFuturos); err != nil {
			t.Fatalf("DeleteScoped(futuros) error = %v", err)
		}
		left, err := repo.Queries().ListSeriesEntries(ctx, series.ID)
		if err != nil {
			t.Fatalf("ListSeriesEntries() error = %v", err)
		}
		if len(left) != 2 {
			t.Fatalf("entries left = %d, want 2", len(left))
		}
		if _, err := repo.Queries().GetSeries(ctx, series.ID); err != nil {
			t.Errorf("series removed although entries remain: %v", err)
		}
	})

	t.Run("deleting the last entry drops the series", func(t *testing.T) {
		series, entries := newSeries(t, "Micro-ondas")
		for _, e := range entries {
			if err := ledger.DeleteScoped(ctx, e.ID, DeleteUnico); err != nil {
				t.Fatalf("DeleteScoped(unico) error = %v", err)
			}
		}
		if _, err := repo.Queries().GetSeries(ctx, series.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetSeries() after last delete error = %v, want ErrNotFound", err)
		}
	})
}

func TestTransferRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	ctx := context.Background()

	from := newTestAccount(t, repo, "Origem", 100000)
	to := newTestAccount(t, repo, "Destino", 0)

	groupID, err := ledger.CreateTransfer(ctx, from.ID, to.ID, core.Money{Cents: 30000},
		date(2025, time.June, 1), "")
	if err != nil {
		t.Fatalf("CreateTransfer() error = %v", err)
	}

	legs, err := repo.Queries().ListTransferEntries(ctx, groupID)
	if err != nil {
		t.Fatalf("ListTransferEntries() error = %v", err)
	}
	if len(legs) != 2 {
		t.Fatalf("transfer legs = %d, want 2", len(legs))
	}
	if legs[0].Description != "Transferência para Destino" {
		t.Errorf("out leg description = %q", legs[0].Description)
	}
	if legs[1].Description != "Transferência de Origem" {
		t.Errorf("in leg description = %q", legs[1].Description)
	}
	for _, leg := range legs {
		if !leg.Paid() {
			t.Errorf("leg %q not paid", leg.Description)
		}
	}

	fromBal, _ := ledger.AccountBalance(ctx, from.ID)
	toBal, _ := ledger.AccountBalance(ctx, to.ID)
	if fromBal.Balance.Cents != 70000 || toBal.Balance.Cents != 30000 {
		t.Errorf("balances after transfer = %d, %d; want 70000, 30000",
			fromBal.Balance.Cents, toBal.Balance.Cents)
	}

	// Deleting one leg removes the whole group.
	if err := ledger.DeleteScoped(ctx, legs[0].ID, DeleteUnico); err != nil {
		t.Fatalf("DeleteScoped(transfer leg) error = %v", err)
	}
	fromBal, _ = ledger.AccountBalance(ctx, from.ID)
	toBal, _ = ledger.AccountBalance(ctx, to.ID)
	if fromBal.Balance.Cents != 100000 || toBal.Balance.Cents != 0 {
		t.Errorf("balances after delete = %d, %d; want 100000, 0",
			fromBal.Balance.Cents, toBal.Balance.Cents)
	}
}

func TestCreateTransferSameAccount(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	acc := newTestAccount(t, repo, "Única", 0)

	_, err := ledger.CreateTransfer(context.Background(), acc.ID, acc.ID,
		core.Money{Cents: 1000}, date(2025, time.June, 1), "")
	if !errors.Is(err, ErrSameAccount) {
		t.Errorf("CreateTransfer(same account) error = %v, want ErrSameAccount", err)
	}
}

func TestEditTransferLegRejected(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	ctx := context.Background()

	from := newTestAccount(t, repo, "Origem", 0)
	to := newTestAccount(t, repo, "Destino", 0)
	groupID, err := ledger.CreateTransfer(ctx, from.ID, to.ID, core.Money{Cents: 5000},
		date(2025, time.June, 1), "")
	if err != nil {
		t.Fatalf("CreateTransfer() error = %v", err)
	}
	legs, _ := repo.Queries().ListTransferEntries(ctx, groupID)

	err = ledger.EditScoped(ctx, EditRequest{
		EntryID:     legs[0].ID,
		Scope:       EditUnico,
		Description: "qualquer",
		Amount:      core.Money{Cents: 100},
		Kind:        core.Despesa,
		DueDate:     date(2025, time.June, 2),
		Funding:     core.AccountFunding(from.ID),
	})
	if !errors.Is(err, ErrTransferLeg) {
		t.Errorf("EditScoped(transfer leg) error = %v, want ErrTransferLeg", err)
	}
}

func TestTogglePaid(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	ctx := context.Background()

	acc := newTestAccount(t, repo, "Corrente", 0)
	e, err := ledger.CreateSingle(ctx, core.Entry{
		Description: "Água",
		Amount:      core.Money{Cents: 8000},
		Kind:        core.Despesa,
		DueDate:     date(2025, time.July, 10),
		Funding:     core.AccountFunding(acc.ID),
	})
	if err != nil {
		t.Fatalf("CreateSingle() error = %v", err)
	}

	when := date(2025, time.July, 12)
	got, err := ledger.TogglePaid(ctx, e.ID, when)
	if err != nil {
		t.Fatalf("TogglePaid() error = %v", err)
	}
	if !got.Paid() || !got.PaidDate.Equal(when) {
		t.Errorf("after first toggle paid = %v, date = %v", got.Paid(), got.PaidDate)
	}

	got, err = ledger.TogglePaid(ctx, e.ID, when)
	if err != nil {
		t.Fatalf("TogglePaid() second error = %v", err)
	}
	if got.Paid() || !got.PaidDate.IsZero() {
		t.Errorf("after second toggle paid = %v, date = %v", got.Paid(), got.PaidDate)
	}
}

func TestMonthSummaryTotals(t *testing.T) {
	repo := openTestRepo(t)
	ledger := NewLedger(repo)
	ctx := context.Background()

	acc := newTestAccount(t, repo, "Corrente", 0)
	entries := []core.Entry{
		{Description: "Salário", Amount: core.Money{Cents: 500000}, Kind: core.Receita,
			DueDate: date(2025, time.August, 1), PaidDate: date(2025, time.August, 1), Status: core.Pago},
		{Description: "Mercado", Amount: core.Money{Cents: 60000}, Kind: core.Despesa,
			DueDate: date(2025, time.August, 8), Status: core.Pendente},
		{Description: "Fora do mês", Amount: core.Money{Cents: 9999}, Kind: core.Despesa,
			DueDate: date(2025, time.September, 1), Status: core.Pendente},
	}
	for _, e := range entries {
		e.Funding = core.AccountFunding(acc.ID)
		if _, err := ledger.CreateSingle(ctx, e); err != nil {
			t.Fatalf("CreateSingle(%q) error = %v", e.Description, err)
		}
	}

	sum, err := ledger.MonthSummary(ctx, 2025, 8)
	if err != nil {
		t.Fatalf("MonthSummary() error = %v", err)
	}
	if sum.IncomeTotal.Cents != 500000 {
		t.Errorf("income total = %d, want 500000", sum.IncomeTotal.Cents)
	}
	if sum.ExpenseTotal.Cents != 60000 {
		t.Errorf("expense total = %d, want 60000", sum.ExpenseTotal.Cents)
	}
	if sum.PendingCount != 1 {
		t.Errorf("pending count = %d, want 1", sum.PendingCount)
	}
}
