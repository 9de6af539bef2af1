package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/linknote/internal/model"
	appErr "github.com/xxxsen/linknote/internal/pkg/errors"
)

type CategoryRepo struct {
	db *sqlx.DB
}

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

var categoryColumns = []string{"id", "name", "color", "ctime", "mtime"}

func (r *CategoryRepo) Create(ctx context.Context, category *model.Category) error {
	data := map[string]interface{}{
		"id":    category.ID,
		"name":  category.Name,
		"color": category.Color,
		"ctime": category.Ctime,
		"mtime": category.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("categories", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *CategoryRepo) GetByID(ctx context.Context, categoryID string) (*model.Category, error) {
	return r.getOne(ctx, map[string]interface{}{"id": categoryID})
}

func (r *CategoryRepo) GetByName(ctx context.Context, name string) (*model.Category, error) {
	return r.getOne(ctx, map[string]interface{}{"name": name})
}

func (r *CategoryRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Category, error) {
	sqlStr, args, err := builder.BuildSelect("categories", where, categoryColumns)
	if err != nil {
		return nil, err
	}
	var category model.Category
	if err := r.db.GetContext(ctx, &category, sqlStr, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	where := map[string]interface{}{"_orderby": "name asc"}
	sqlStr, args, err := builder.BuildSelect("categories", where, categoryColumns)
	if err != nil {
		return nil, err
	}
	categories := make([]*model.Category, 0)
	if err := r.db.SelectContext(ctx, &categories, sqlStr, args...); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepo) Update(ctx context.Context, category *model.Category) error {
	return r.update(ctx, r.db, category)
}

// UpdateTx applies a category edit inside an ongoing transaction, so a rename
// commits together with the note rewrite it implies.
func (r *CategoryRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, category *model.Category) error {
	return r.update(ctx, tx, category)
}

func (r *CategoryRepo) update(ctx context.Context, execer sqlx.ExecerContext, category *model.Category) error {
	where := map[string]interface{}{"id": category.ID}
	update := map[string]interface{}{
		"name":  category.Name,
		"color": category.Color,
		"mtime": category.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("categories", where, update)
	if err != nil {
		return err
	}
	result, err := execer.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepo) Delete(ctx context.Context, categoryID string) error {
	where := map[string]interface{}{"id": categoryID}
	sqlStr, args, err := builder.BuildDelete("categories", where)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrCategoryNotFound
	}
	return nil
}

// DeleteByNameTx removes a category inside an ongoing merge transaction.
func (r *CategoryRepo) DeleteByNameTx(ctx context.Context, tx *sqlx.Tx, name string) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE name = ?", name)
	return err
}
