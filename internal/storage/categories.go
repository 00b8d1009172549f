package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"caderneta/internal/core"
)

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO categorias (nome, cor, icone) VALUES (?, ?, ?)`,
		c.Name, c.Color, c.Icon)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	return c, nil
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx, `
		SELECT id, nome, cor, icone FROM categorias WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Color, &c.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, nome, cor, icone FROM categorias ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE categorias SET nome = ?, cor = ?, icone = ? WHERE id = ?`,
		c.Name, c.Color, c.Icon, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res)
}

// DeleteCategory cascades to the category's subcategories.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM categorias WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res)
}

func (q *Queries) CreateSubcategory(ctx context.Context, s core.Subcategory) (core.Subcategory, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO subcategorias (nome, categoria_id) VALUES (?, ?)`,
		s.Name, s.CategoryID)
	if err != nil {
		return core.Subcategory{}, fmt.Errorf("create subcategory: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.Subcategory{}, fmt.Errorf("subcategory id: %w", err)
	}
	return s, nil
}

func (q *Queries) GetSubcategory(ctx context.Context, id int64) (core.Subcategory, error) {
	var s core.Subcategory
	err := q.db.QueryRowContext(ctx, `
		SELECT id, nome, categoria_id FROM subcategorias WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.CategoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subcategory{}, ErrNotFound
	}
	if err != nil {
		return core.Subcategory{}, fmt.Errorf("get subcategory: %w", err)
	}
	return s, nil
}

func (q *Queries) ListSubcategories(ctx context.Context) ([]core.Subcategory, error) {
	return q.querySubcategories(ctx, `
		SELECT id, nome, categoria_id FROM subcategorias ORDER BY nome`)
}

func (q *Queries) ListSubcategoriesByCategory(ctx context.Context, categoryID int64) ([]core.Subcategory, error) {
	return q.querySubcategories(ctx, `
		SELECT id, nome, categoria_id FROM subcategorias WHERE categoria_id = ? ORDER BY nome`, categoryID)
}

func (q *Queries) querySubcategories(ctx context.Context, query string, args ...any) ([]core.Subcategory, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	var subs []core.Subcategory
	for rows.Next() {
		var s core.Subcategory
		if err := rows.Scan(&s.ID, &s.Name, &s.CategoryID); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (q *Queries) UpdateSubcategoryName(ctx context.Context, id int64, name string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE subcategorias SET nome = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("update subcategory: %w", err)
	}
	return requireAffected(res)
}

// DeleteSubcategory fails with a constraint error while entries still
// reference the subcategory.
func (q *Queries) DeleteSubcategory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM subcategorias WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	return requireAffected(res)
}
