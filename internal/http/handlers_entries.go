package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"caderneta/internal/core"
	"caderneta/internal/services"
	"caderneta/internal/storage"
)

type entriesPageData struct {
	Flash      *Flash
	Accounts   []core.Account
	Cards      []core.CreditCard
	Categories []core.Category
	Singles    []core.Entry
	Series     []seriesView
}

type seriesView struct {
	Series core.Series
	Count  int64
	First  core.Entry
}

func (s *Server) handleEntriesPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := s.repo.Queries()

	accounts, err := q.ListAccounts(ctx)
	if err != nil {
		s.internalError(w, r, "list accounts", err)
		return
	}
	cards, err := q.ListActiveCards(ctx)
	if err != nil {
		s.internalError(w, r, "list cards", err)
		return
	}
	categories, err := q.ListCategories(ctx)
	if err != nil {
		s.internalError(w, r, "list categories", err)
		return
	}
	singles, err := q.ListStandaloneEntries(ctx)
	if err != nil {
		s.internalError(w, r, "list standalone entries", err)
		return
	}
	allSeries, err := q.ListSeries(ctx)
	if err != nil {
		s.internalError(w, r, "list series", err)
		return
	}

	views := make([]seriesView, 0, len(allSeries))
	for _, sr := range allSeries {
		entries, err := q.ListSeriesEntries(ctx, sr.ID)
		if err != nil {
			s.internalError(w, r, "list series entries", err)
			return
		}
		v := seriesView{Series: sr, Count: int64(len(entries))}
		if len(entries) > 0 {
			v.First = entries[0]
		}
		views = append(views, v)
	}

	s.render(w, r, "lancamentos.html", entriesPageData{
		Flash:      s.popFlash(w, r),
		Accounts:   accounts,
		Cards:      cards,
		Categories: categories,
		Singles:    singles,
		Series:     views,
	})
}

// handleCreateEntry creates a single entry or expands an installment/fixed
// series, depending on the recorrencia_tipo form field.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	kind := core.EntryKind(sanitizeInput(r.FormValue("tipo_lancamento")))
	desc := sanitizeInput(r.FormValue("descricao"))
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.FormValue("valor")))
	if err != nil {
		s.setFlash(w, "danger", "Valor inválido.")
		http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
		return
	}
	due, err := parseFormDate(r, "data_vencimento")
	if err != nil {
		s.setFlash(w, "danger", "Data de vencimento inválida.")
		http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
		return
	}

	funding, ok := parseFunding(r)
	if !ok {
		s.setFlash(w, "danger", "Selecione uma conta ou um cartão.")
		http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
		return
	}
	subcategoryID := formID(r, "subcategoria_id")

	switch r.FormValue("recorrencia_tipo") {
	case "parcelada":
		count, _ := strconv.Atoi(r.FormValue("num_parcelas"))
		freq := core.NormalizeFrequency(r.FormValue("frequencia"))
		_, err := s.ledger.CreateSeries(r.Context(), core.SeriesTemplate{
			Description:   desc,
			Total:         core.Money{Cents: cents},
			Kind:          kind,
			Start:         due,
			SeriesKind:    core.Parcelada,
			Frequency:     freq,
			Count:         count,
			Funding:       funding,
			SubcategoryID: subcategoryID,
		})
		if err != nil {
			s.flashEntryError(w, err)
			http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
			return
		}
		s.setFlash(w, "success", fmt.Sprintf("Parcelada (%s) adicionada com sucesso!", freq))

	case "fixa":
		freq := core.NormalizeFrequency(r.FormValue("frequencia"))
		_, err := s.ledger.CreateSeries(r.Context(), core.SeriesTemplate{
			Description:   desc,
			Total:         core.Money{Cents: cents},
			Kind:          kind,
			Start:         due,
			SeriesKind:    core.Fixa,
			Frequency:     freq,
			Funding:       funding,
			SubcategoryID: subcategoryID,
		})
		if err != nil {
			s.flashEntryError(w, err)
			http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
			return
		}
		s.setFlash(w, "success", fmt.Sprintf("Lançamento fixo criado para as próximas %d ocorrências!", core.FixedHorizon(freq)))

	default: // unica
		_, err := s.ledger.CreateSingle(r.Context(), core.Entry{
			Description:   desc,
			Amount:        core.Money{Cents: cents},
			Kind:          kind,
			DueDate:       due,
			Status:        core.Pendente,
			Funding:       funding,
			SubcategoryID: subcategoryID,
		})
		if err != nil {
			s.flashEntryError(w, err)
			http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
			return
		}
		s.setFlash(w, "success", "Lançamento único adicionado com sucesso!")
	}

	http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	scope := services.DeleteScope(r.FormValue("tipo_exclusao"))
	entryID := formID(r, "lancamento_id")

	// Whole-series deletion is keyed by the series, not one of its entries.
	if scope == services.DeleteTodos && entryID == 0 {
		if seriesID := formID(r, "recorrencia_id"); seriesID != 0 {
			entries, err := s.repo.Queries().ListSeriesEntries(r.Context(), seriesID)
			if err == nil && len(entries) > 0 {
				entryID = entries[0].ID
			}
		}
	}

	err := s.ledger.DeleteScoped(r.Context(), entryID, scope)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, services.ErrUnknownScope):
		http.Error(w, "unknown scope", http.StatusBadRequest)
		return
	case err != nil:
		s.internalError(w, r, "delete entry", err)
		return
	}

	switch scope {
	case services.DeleteTodos:
		s.setFlash(w, "info", "Toda a recorrência foi deletada com sucesso.")
	case services.DeleteFuturos:
		s.setFlash(w, "info", "Este e todos os futuros lançamentos da recorrência foram deletados.")
	default:
		s.setFlash(w, "info", "Lançamento deletado com sucesso.")
	}
	http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	fromID := formID(r, "conta_origem_id")
	toID := formID(r, "conta_destino_id")
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.FormValue("valor")))
	if err != nil {
		s.setFlash(w, "danger", "Valor inválido.")
		http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
		return
	}
	when, err := parseFormDate(r, "data")
	if err != nil {
		s.setFlash(w, "danger", "Data inválida.")
		http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
		return
	}

	_, err = s.ledger.CreateTransfer(r.Context(), fromID, toID,
		core.Money{Cents: cents}, when, sanitizeInput(r.FormValue("descricao")))
	switch {
	case errors.Is(err, services.ErrSameAccount):
		s.setFlash(w, "danger", "A conta de origem e destino devem ser diferentes.")
	case errors.Is(err, storage.ErrNotFound):
		s.setFlash(w, "danger", "Conta não encontrada.")
	case err != nil:
		s.internalError(w, r, "create transfer", err)
		return
	default:
		s.setFlash(w, "success", "Transferência realizada com sucesso!")
	}
	http.Redirect(w, r, "/lancamentos", http.StatusSeeOther)
}

func (s *Server) handleSubcategoriesJSON(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "categoriaID")
	if err != nil {
		http.Error(w, "invalid category id", http.StatusBadRequest)
		return
	}

	cacheKey := strconv.FormatInt(categoryID, 10)
	subs, ok := s.subcats.Get(cacheKey)
	if !ok {
		subs, err = s.repo.Queries().ListSubcategoriesByCategory(r.Context(), categoryID)
		if err != nil {
			s.internalError(w, r, "list subcategories", err)
			return
		}
		s.subcats.Set(cacheKey, subs)
	}

	type subJSON struct {
		ID   int64  `json:"id"`
		Nome string `json:"nome"`
	}
	out := make([]subJSON, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subJSON{ID: sub.ID, Nome: sub.Name})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// parseFunding reads the conta_id/cartao_id pair from the form. Exactly one
// must be set.
func parseFunding(r *http.Request) (core.Funding, bool) {
	accountID := formID(r, "conta_id")
	cardID := formID(r, "cartao_id")
	switch {
	case accountID != 0 && cardID == 0:
		return core.AccountFunding(accountID), true
	case cardID != 0 && accountID == 0:
		return core.CardFunding(cardID), true
	default:
		return core.Funding{}, false
	}
}

func (s *Server) flashEntryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyDescription):
		s.setFlash(w, "danger", "A descrição não pode ficar vazia.")
	case errors.Is(err, core.ErrInvalidAmount):
		s.setFlash(w, "danger", "Valor inválido.")
	case errors.Is(err, core.ErrInvalidCount):
		s.setFlash(w, "danger", "Número de parcelas inválido.")
	default:
		s.setFlash(w, "danger", "Não foi possível salvar o lançamento.")
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.ErrorContext(r.Context(), "Request failed", "operation", op, "error", err, "url", r.URL.Path)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
