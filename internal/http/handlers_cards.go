package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"caderneta/internal/core"
	"caderneta/internal/services"
	"caderneta/internal/storage"
)

type cardsPageData struct {
	Flash    *Flash
	Cards    []core.CreditCard
	Accounts []core.Account
}

func (s *Server) handleCardsPage(w http.ResponseWriter, r *http.Request) {
	cards, err := s.repo.Queries().ListActiveCards(r.Context())
	if err != nil {
		s.internalError(w, r, "list cards", err)
		return
	}
	accounts, err := s.repo.Queries().ListAccounts(r.Context())
	if err != nil {
		s.internalError(w, r, "list accounts", err)
		return
	}
	s.render(w, r, "cartoes.html", cardsPageData{
		Flash:    s.popFlash(w, r),
		Cards:    cards,
		Accounts: accounts,
	})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.cardFromForm(r, core.CreditCard{Active: true})
	if err != nil {
		if errors.Is(err, core.ErrInvalidStatementDay) {
			s.setFlash(w, "danger", "O dia de vencimento deve estar entre 1 e 31.")
		} else {
			s.setFlash(w, "danger", "Dados do cartão inválidos.")
		}
		http.Redirect(w, r, "/cartoes", http.StatusSeeOther)
		return
	}

	if _, err := s.repo.Queries().CreateCard(r.Context(), card); err != nil {
		if storage.IsConstraintErr(err) {
			s.setFlash(w, "danger", "Já existe um cartão com este nome. Por favor, escolha outro.")
			http.Redirect(w, r, "/cartoes", http.StatusSeeOther)
			return
		}
		s.internalError(w, r, "create card", err)
		return
	}
	s.setFlash(w, "success", "Cartão de crédito adicionado com sucesso!")
	http.Redirect(w, r, "/cartoes", http.StatusSeeOther)
}

type editCardData struct {
	Flash    *Flash
	Card     core.CreditCard
	Accounts []core.Account
}

func (s *Server) handleEditCardPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	card, err := s.repo.Queries().GetCard(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get card", err)
		return
	}
	accounts, err := s.repo.Queries().ListAccounts(r.Context())
	if err != nil {
		s.internalError(w, r, "list accounts", err)
		return
	}
	s.render(w, r, "editar_cartao.html", editCardData{
		Flash:    s.popFlash(w, r),
		Card:     card,
		Accounts: accounts,
	})
}

func (s *Server) handleEditCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	current, err := s.repo.Queries().GetCard(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get card", err)
		return
	}

	card, err := s.cardFromForm(r, current)
	if err != nil {
		if errors.Is(err, core.ErrInvalidStatementDay) {
			s.setFlash(w, "danger", "O dia de vencimento deve estar entre 1 e 31.")
		} else {
			s.setFlash(w, "danger", "Dados do cartão inválidos.")
		}
		http.Redirect(w, r, "/cartoes/editar/"+r.PathValue("id"), http.StatusSeeOther)
		return
	}
	card.ID = id

	if err := s.repo.Queries().UpdateCard(r.Context(), card); err != nil {
		if storage.IsConstraintErr(err) {
			s.setFlash(w, "danger", "Já existe um cartão com este nome. Por favor, escolha outro.")
			http.Redirect(w, r, "/cartoes/editar/"+r.PathValue("id"), http.StatusSeeOther)
			return
		}
		s.internalError(w, r, "update card", err)
		return
	}
	s.setFlash(w, "success", "Cartão de crédito atualizado com sucesso!")
	http.Redirect(w, r, "/cartoes", http.StatusSeeOther)
}

func (s *Server) handleDeactivateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	card, err := s.repo.Queries().GetCard(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get card", err)
		return
	}
	if err := s.repo.Queries().DeactivateCard(r.Context(), id); err != nil {
		s.internalError(w, r, "deactivate card", err)
		return
	}
	s.setFlash(w, "info", fmt.Sprintf("Cartão %q foi inativado com sucesso.", card.Name))
	http.Redirect(w, r, "/cartoes", http.StatusSeeOther)
}

type statementPageData struct {
	Flash         *Flash
	Cards         []core.CreditCard
	Selected      *services.Statement
	Categories    []core.Category
	Years         []int
	Months        []MonthOption
	SelectedYear  int
	SelectedMonth int
}

func (s *Server) handleCardStatement(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	cardID, _ := strconv.ParseInt(r.URL.Query().Get("cartao_id"), 10, 64)

	cards, err := s.repo.Queries().ListActiveCards(r.Context())
	if err != nil {
		s.internalError(w, r, "list cards", err)
		return
	}
	categories, err := s.repo.Queries().ListCategories(r.Context())
	if err != nil {
		s.internalError(w, r, "list categories", err)
		return
	}

	data := statementPageData{
		Flash:         s.popFlash(w, r),
		Cards:         cards,
		Categories:    categories,
		Years:         yearOptions(2, 1),
		Months:        monthOptions(),
		SelectedYear:  year,
		SelectedMonth: month,
	}
	if cardID != 0 {
		st, err := s.statements.CardStatement(r.Context(), cardID, year, month)
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			s.internalError(w, r, "card statement", err)
			return
		}
		data.Selected = &st
	}

	s.render(w, r, "extrato_cartao.html", data)
}

// handleEditCardEntry applies a scoped edit submitted from the statement view.
func (s *Server) handleEditCardEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	entryID := formID(r, "lancamento_id")
	entry, err := s.repo.Queries().GetEntry(r.Context(), entryID)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get entry", err)
		return
	}

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.FormValue("valor")))
	if err != nil {
		s.setFlash(w, "danger", "Valor inválido.")
		http.Redirect(w, r, statementURL(entry), http.StatusSeeOther)
		return
	}

	cardID := formID(r, "cartao_id")
	if cardID == 0 {
		s.setFlash(w, "danger", "Selecione um cartão.")
		http.Redirect(w, r, statementURL(entry), http.StatusSeeOther)
		return
	}

	req := services.EditRequest{
		EntryID:       entryID,
		Scope:         services.EditScope(r.FormValue("tipo_edicao")),
		Description:   sanitizeInput(r.FormValue("descricao")),
		Amount:        core.Money{Cents: cents},
		Kind:          entry.Kind,
		DueDate:       entry.DueDate,
		Funding:       core.CardFunding(cardID),
		SubcategoryID: formID(r, "subcategoria_id"),
	}
	// A single edit may move the due date; scoped series edits keep the
	// generated schedule.
	if req.Scope == services.EditUnico {
		if due, err := parseFormDate(r, "data_vencimento"); err == nil {
			req.DueDate = due
		}
	}

	err = s.ledger.EditScoped(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrUnknownScope):
		http.Error(w, "unknown scope", http.StatusBadRequest)
		return
	case errors.Is(err, services.ErrTransferLeg):
		s.setFlash(w, "danger", "Transferências não podem ser editadas.")
	case err != nil:
		s.internalError(w, r, "edit card entry", err)
		return
	default:
		if req.Scope == services.EditUnico || req.Scope == services.EditApenasMes {
			s.setFlash(w, "success", "Lançamento atualizado com sucesso!")
		} else {
			s.setFlash(w, "success", "Recorrência atualizada a partir desta data!")
		}
	}
	http.Redirect(w, r, statementURL(entry), http.StatusSeeOther)
}

func (s *Server) handleDeleteCardEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	entryID := formID(r, "lancamento_id")
	entry, err := s.repo.Queries().GetEntry(r.Context(), entryID)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get entry", err)
		return
	}

	// The statement form uses its own scope names; apenas_mes and unico both
	// remove exactly one occurrence, futuros drops the tail of the series.
	var scope services.DeleteScope
	switch r.FormValue("tipo_exclusao") {
	case "futuros":
		scope = services.DeleteFuturos
	default:
		scope = services.DeleteUnico
	}

	if err := s.ledger.DeleteScoped(r.Context(), entryID, scope); err != nil {
		s.internalError(w, r, "delete card entry", err)
		return
	}
	if scope == services.DeleteFuturos {
		s.setFlash(w, "info", "Lançamentos futuros da recorrência foram excluídos!")
	} else {
		s.setFlash(w, "info", "Lançamento excluído com sucesso!")
	}
	http.Redirect(w, r, statementURL(entry), http.StatusSeeOther)
}

func (s *Server) handleToggleStatementPaid(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "cartao")
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	year, err := strconv.Atoi(r.PathValue("ano"))
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(r.PathValue("mes"))
	if err != nil || month < 1 || month > 12 {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}

	err = s.statements.ToggleStatementPaid(r.Context(), cardID, year, month, time.Now().UTC().Truncate(24*time.Hour))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, services.ErrNoPaymentAccount):
		s.setFlash(w, "danger", "O cartão não possui conta de pagamento vinculada.")
	case errors.Is(err, services.ErrEmptyStatement):
		s.setFlash(w, "warning", "A fatura deste mês não possui lançamentos.")
	case err != nil:
		s.internalError(w, r, "toggle statement", err)
		return
	default:
		s.setFlash(w, "success", fmt.Sprintf("Fatura de %s/%d atualizada!", monthName(month), year))
	}

	target := fmt.Sprintf("/cartoes/extrato?cartao_id=%d&ano=%d&mes=%d", cardID, year, month)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func statementURL(e core.Entry) string {
	cardID, _ := e.Funding.CardID()
	return fmt.Sprintf("/cartoes/extrato?cartao_id=%d&ano=%d&mes=%d",
		cardID, e.DueDate.Year(), int(e.DueDate.Month()))
}

// cardFromForm builds a card from the multipart form, keeping the current
// logo when no new file is uploaded.
func (s *Server) cardFromForm(r *http.Request, current core.CreditCard) (core.CreditCard, error) {
	if err := r.ParseMultipartForm(s.uploads.maxSize); err != nil {
		if err := r.ParseForm(); err != nil {
			return core.CreditCard{}, err
		}
	}

	day, err := strconv.Atoi(strings.TrimSpace(r.FormValue("dia_vencimento")))
	if err != nil {
		return core.CreditCard{}, core.ErrInvalidStatementDay
	}
	card := core.CreditCard{
		Name:             sanitizeInput(r.FormValue("nome")),
		StatementDay:     day,
		PaymentAccountID: formID(r, "conta_pagamento_id"),
		LogoImage:        current.LogoImage,
		Active:           current.Active,
	}

	if name, err := s.uploads.SaveLogo(r, "logo_imagem"); err == nil {
		if current.LogoImage != "" {
			s.uploads.Remove(current.LogoImage)
		}
		card.LogoImage = name
	} else if !errors.Is(err, errNoUpload) {
		return core.CreditCard{}, err
	}

	if err := card.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	return card, nil
}
