package http

import (
	"errors"
	"net/http"
	"strings"

	"caderneta/internal/core"
	"caderneta/internal/services"
	"caderneta/internal/storage"
)

type accountsPageData struct {
	Flash           *Flash
	Checking        []services.AccountBalance
	Investments     []services.AccountBalance
	CheckingTotal   core.Money
	InvestmentTotal core.Money
	GrandTotal      core.Money
}

func (s *Server) handleAccountsPage(w http.ResponseWriter, r *http.Request) {
	balances, err := s.ledger.AccountBalances(r.Context())
	if err != nil {
		s.internalError(w, r, "account balances", err)
		return
	}

	data := accountsPageData{Flash: s.popFlash(w, r)}
	for _, b := range balances {
		if b.Account.Kind == core.Investimento {
			data.Investments = append(data.Investments, b)
			data.InvestmentTotal.Cents += b.Balance.Cents
		} else {
			data.Checking = append(data.Checking, b)
			data.CheckingTotal.Cents += b.Balance.Cents
		}
	}
	data.GrandTotal.Cents = data.CheckingTotal.Cents + data.InvestmentTotal.Cents

	s.render(w, r, "contas.html", data)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.accountFromForm(r, core.Account{})
	if err != nil {
		s.setFlash(w, "danger", "Dados da conta inválidos.")
		http.Redirect(w, r, "/contas", http.StatusSeeOther)
		return
	}

	if _, err := s.repo.Queries().CreateAccount(r.Context(), acc); err != nil {
		if storage.IsConstraintErr(err) {
			s.setFlash(w, "danger", "O nome da conta já existe. Por favor, escolha outro.")
			http.Redirect(w, r, "/contas", http.StatusSeeOther)
			return
		}
		s.internalError(w, r, "create account", err)
		return
	}
	s.setFlash(w, "success", "Conta adicionada com sucesso!")
	http.Redirect(w, r, "/contas", http.StatusSeeOther)
}

type editAccountData struct {
	Flash   *Flash
	Account core.Account
}

func (s *Server) handleEditAccountPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	acc, err := s.repo.Queries().GetAccount(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get account", err)
		return
	}
	s.render(w, r, "editar_conta.html", editAccountData{Flash: s.popFlash(w, r), Account: acc})
}

func (s *Server) handleEditAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	current, err := s.repo.Queries().GetAccount(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get account", err)
		return
	}

	acc, err := s.accountFromForm(r, current)
	if err != nil {
		s.setFlash(w, "danger", "Dados da conta inválidos.")
		http.Redirect(w, r, "/contas/editar/"+r.PathValue("id"), http.StatusSeeOther)
		return
	}
	acc.ID = id

	if err := s.repo.Queries().UpdateAccount(r.Context(), acc); err != nil {
		if storage.IsConstraintErr(err) {
			s.setFlash(w, "danger", "Já existe uma conta com este nome. Por favor, escolha outro.")
			http.Redirect(w, r, "/contas/editar/"+r.PathValue("id"), http.StatusSeeOther)
			return
		}
		s.internalError(w, r, "update account", err)
		return
	}
	s.setFlash(w, "success", "Conta atualizada com sucesso!")
	http.Redirect(w, r, "/contas", http.StatusSeeOther)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	err = s.repo.Queries().DeleteAccount(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
		return
	case storage.IsConstraintErr(err):
		s.setFlash(w, "danger", "Não é possível excluir: a conta possui lançamentos.")
	case err != nil:
		s.internalError(w, r, "delete account", err)
		return
	default:
		s.setFlash(w, "info", "Conta excluída com sucesso.")
	}
	http.Redirect(w, r, "/contas", http.StatusSeeOther)
}

// accountFromForm builds an account from the multipart form, keeping the
// current logo when no new file is uploaded.
func (s *Server) accountFromForm(r *http.Request, current core.Account) (core.Account, error) {
	if err := r.ParseMultipartForm(s.uploads.maxSize); err != nil {
		if err := r.ParseForm(); err != nil {
			return core.Account{}, err
		}
	}

	acc := core.Account{
		Name:      sanitizeInput(r.FormValue("nome")),
		Kind:      core.AccountKind(r.FormValue("tipo_conta")),
		LogoImage: current.LogoImage,
	}
	if acc.Kind == core.Investimento {
		acc.InvestmentType = sanitizeInput(r.FormValue("tipo_investimento"))
	}

	cents, err := core.ParseSignedDecimalToCents(strings.TrimSpace(r.FormValue("saldo_inicial")))
	if err != nil {
		return core.Account{}, err
	}
	acc.OpeningBalance = core.Money{Cents: cents}

	if name, err := s.uploads.SaveLogo(r, "logo_imagem"); err == nil {
		if current.LogoImage != "" {
			s.uploads.Remove(current.LogoImage)
		}
		acc.LogoImage = name
	} else if !errors.Is(err, errNoUpload) {
		return core.Account{}, err
	}

	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}
	return acc, nil
}
