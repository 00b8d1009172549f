package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"caderneta/internal/core"
	"caderneta/internal/services"
	"caderneta/internal/storage"
)

type dashboardData struct {
	Flash         *Flash
	Incomes       []core.Entry
	Expenses      []core.Entry
	IncomeTotal   core.Money
	ExpenseTotal  core.Money
	PendingCount  int
	Accounts      []services.AccountBalance
	Years         []int
	Months        []MonthOption
	SelectedYear  int
	SelectedMonth int
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	summary, err := s.ledger.MonthSummary(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month summary failed", "error", err, "year", year, "month", month)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}

	// Only checking accounts appear on the dashboard.
	balances, err := s.ledger.AccountBalances(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Account balances failed", "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	checking := balances[:0]
	for _, b := range balances {
		if b.Account.Kind == core.Corrente {
			checking = append(checking, b)
		}
	}

	s.render(w, r, "dashboard.html", dashboardData{
		Flash:         s.popFlash(w, r),
		Incomes:       summary.Incomes,
		Expenses:      summary.Expenses,
		IncomeTotal:   summary.IncomeTotal,
		ExpenseTotal:  summary.ExpenseTotal,
		PendingCount:  summary.PendingCount,
		Accounts:      checking,
		Years:         yearOptions(5, 1),
		Months:        monthOptions(),
		SelectedYear:  year,
		SelectedMonth: month,
	})
}

func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	entry, err := s.ledger.TogglePaid(r.Context(), id, time.Now().UTC().Truncate(24*time.Hour))
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Toggle paid failed", "error", err, "id", id)
		http.Error(w, "failed to update entry", http.StatusInternalServerError)
		return
	}

	if entry.Paid() {
		s.setFlash(w, "success", fmt.Sprintf("Lançamento %q marcado como Realizado!", entry.Description))
	} else {
		s.setFlash(w, "warning", fmt.Sprintf("Lançamento %q marcado como Pendente.", entry.Description))
	}
	target := fmt.Sprintf("/dashboard?ano=%d&mes=%d", entry.DueDate.Year(), int(entry.DueDate.Month()))
	http.Redirect(w, r, target, http.StatusSeeOther)
}
