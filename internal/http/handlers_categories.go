package http

import (
	"errors"
	"net/http"
	"strconv"

	"caderneta/internal/core"
	"caderneta/internal/storage"
)

// invalidateSubcats drops the cached subcategory list for a category after a
// write, so the JSON endpoint never serves stale options.
func (s *Server) invalidateSubcats(categoryID int64) {
	s.subcats.Delete(strconv.FormatInt(categoryID, 10))
}

type categoryView struct {
	Category      core.Category
	Subcategories []core.Subcategory
}

type categoriesPageData struct {
	Flash      *Flash
	Categories []categoryView
}

func (s *Server) handleCategoriesPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categories, err := s.repo.Queries().ListCategories(ctx)
	if err != nil {
		s.internalError(w, r, "list categories", err)
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, cat := range categories {
		subs, err := s.repo.Queries().ListSubcategoriesByCategory(ctx, cat.ID)
		if err != nil {
			s.internalError(w, r, "list subcategories", err)
			return
		}
		views = append(views, categoryView{Category: cat, Subcategories: subs})
	}

	s.render(w, r, "categorias.html", categoriesPageData{
		Flash:      s.popFlash(w, r),
		Categories: views,
	})
}

// handleCreateCategory creates a category or a subcategory depending on the
// form_type field, mirroring the single management page both forms live on.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	switch r.FormValue("form_type") {
	case "subcategoria":
		sub := core.Subcategory{
			Name:       sanitizeInput(r.FormValue("nome")),
			CategoryID: formID(r, "categoria_id"),
		}
		if sub.Name == "" || sub.CategoryID == 0 {
			s.setFlash(w, "danger", "Dados da subcategoria inválidos.")
			break
		}
		if _, err := s.repo.Queries().CreateSubcategory(r.Context(), sub); err != nil {
			if storage.IsConstraintErr(err) {
				s.setFlash(w, "danger", "Ocorreu um erro: o nome já pode existir.")
				break
			}
			s.internalError(w, r, "create subcategory", err)
			return
		}
		s.invalidateSubcats(sub.CategoryID)
		s.setFlash(w, "success", "Subcategoria adicionada com sucesso!")

	default: // categoria
		cat := core.Category{
			Name:  sanitizeInput(r.FormValue("nome")),
			Color: sanitizeInput(r.FormValue("cor")),
			Icon:  sanitizeInput(r.FormValue("icone")),
		}
		if cat.Name == "" {
			s.setFlash(w, "danger", "O nome da categoria não pode ficar vazio.")
			break
		}
		if _, err := s.repo.Queries().CreateCategory(r.Context(), cat); err != nil {
			if storage.IsConstraintErr(err) {
				s.setFlash(w, "danger", "Ocorreu um erro: o nome já pode existir.")
				break
			}
			s.internalError(w, r, "create category", err)
			return
		}
		s.setFlash(w, "success", "Categoria adicionada com sucesso!")
	}

	http.Redirect(w, r, "/categorias", http.StatusSeeOther)
}

type editCategoryData struct {
	Flash    *Flash
	Category core.Category
}

func (s *Server) handleEditCategoryPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	cat, err := s.repo.Queries().GetCategory(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get category", err)
		return
	}
	s.render(w, r, "editar_categoria.html", editCategoryData{Flash: s.popFlash(w, r), Category: cat})
}

func (s *Server) handleEditCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	cat := core.Category{
		ID:    id,
		Name:  sanitizeInput(r.FormValue("nome")),
		Color: sanitizeInput(r.FormValue("cor")),
		Icon:  sanitizeInput(r.FormValue("icone")),
	}
	err = s.repo.Queries().UpdateCategory(r.Context(), cat)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
		return
	case storage.IsConstraintErr(err):
		s.setFlash(w, "danger", "O nome da categoria já existe.")
		http.Redirect(w, r, "/categorias/editar/"+r.PathValue("id"), http.StatusSeeOther)
		return
	case err != nil:
		s.internalError(w, r, "update category", err)
		return
	}
	s.setFlash(w, "success", "Categoria atualizada com sucesso!")
	http.Redirect(w, r, "/categorias", http.StatusSeeOther)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	err = s.repo.Queries().DeleteCategory(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
		return
	case storage.IsConstraintErr(err):
		s.setFlash(w, "danger", "Não é possível excluir: há lançamentos usando esta categoria.")
	case err != nil:
		s.internalError(w, r, "delete category", err)
		return
	default:
		s.invalidateSubcats(id)
		s.setFlash(w, "info", "Categoria e suas subcategorias foram deletadas.")
	}
	http.Redirect(w, r, "/categorias", http.StatusSeeOther)
}

type editSubcategoryData struct {
	Flash       *Flash
	Subcategory core.Subcategory
}

func (s *Server) handleEditSubcategoryPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	sub, err := s.repo.Queries().GetSubcategory(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get subcategory", err)
		return
	}
	s.render(w, r, "editar_subcategoria.html", editSubcategoryData{Flash: s.popFlash(w, r), Subcategory: sub})
}

func (s *Server) handleEditSubcategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := sanitizeInput(r.FormValue("nome"))
	if name == "" {
		s.setFlash(w, "danger", "O nome da subcategoria não pode ficar vazio.")
		http.Redirect(w, r, "/subcategorias/editar/"+r.PathValue("id"), http.StatusSeeOther)
		return
	}
	sub, err := s.repo.Queries().GetSubcategory(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get subcategory", err)
		return
	}
	if err := s.repo.Queries().UpdateSubcategoryName(r.Context(), id, name); err != nil {
		s.internalError(w, r, "update subcategory", err)
		return
	}
	s.invalidateSubcats(sub.CategoryID)
	s.setFlash(w, "success", "Subcategoria atualizada com sucesso!")
	http.Redirect(w, r, "/categorias", http.StatusSeeOther)
}

func (s *Server) handleDeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	sub, err := s.repo.Queries().GetSubcategory(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, "get subcategory", err)
		return
	}

	err = s.repo.Queries().DeleteSubcategory(r.Context(), id)
	switch {
	case storage.IsConstraintErr(err):
		s.setFlash(w, "danger", "Não é possível excluir: há lançamentos usando esta subcategoria.")
	case err != nil:
		s.internalError(w, r, "delete subcategory", err)
		return
	default:
		s.invalidateSubcats(sub.CategoryID)
		s.setFlash(w, "info", "Subcategoria deletada com sucesso.")
	}
	http.Redirect(w, r, "/categorias", http.StatusSeeOther)
}
