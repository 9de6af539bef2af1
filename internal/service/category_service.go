package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xxxsen/linknote/internal/model"
	appErr "github.com/xxxsen/linknote/internal/pkg/errors"
	"github.com/xxxsen/linknote/internal/pkg/timeutil"
	"github.com/xxxsen/linknote/internal/repo"
)

type CategoryService struct {
	db         *sqlx.DB
	categories *repo.CategoryRepo
	notes      *repo.NoteRepo
}

func NewCategoryService(db *sqlx.DB, categories *repo.CategoryRepo, notes *repo.NoteRepo) *CategoryService {
	return &CategoryService{db: db, categories: categories, notes: notes}
}

func isUniqueViolation(err error) bool {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

func normalizeCategoryName(name string) string {
	return strings.TrimSpace(name)
}

func (s *CategoryService) Create(ctx context.Context, name, color string) (*model.Category, error) {
	name = normalizeCategoryName(name)
	if name == "" {
		return nil, appErr.ErrInvalid
	}
	now := timeutil.NowUnix()
	category := &model.Category{
		ID:    newID(),
		Name:  name,
		Color: color,
		Ctime: now,
		Mtime: now,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if isUniqueViolation(err) {
			return nil, appErr.ErrConflict
		}
		return nil, err
	}
	return category, nil
}

// EnsureByName returns the category with the given name, creating it when
// absent. Auto-categorized ingestion goes through here so every category name
// on a note has a matching registry row.
func (s *CategoryService) EnsureByName(ctx context.Context, name string) (*model.Category, error) {
	name = normalizeCategoryName(name)
	if name == "" {
		return nil, appErr.ErrInvalid
	}
	category, err := s.categories.GetByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, appErr.ErrCategoryNotFound) {
		return nil, err
	}
	created, err := s.Create(ctx, name, "")
	if err == nil {
		return created, nil
	}
	if errors.Is(err, appErr.ErrConflict) {
		// Lost a create race; the row exists now.
		return s.categories.GetByName(ctx, name)
	}
	return nil, err
}

// CategoryWithCount pairs a category with how many notes currently carry it.
type CategoryWithCount struct {
	*model.Category
	NoteCount int `json:"note_count"`
}

func (s *CategoryService) List(ctx context.Context) ([]*CategoryWithCount, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*CategoryWithCount, 0, len(categories))
	for _, category := range categories {
		count, err := s.notes.Count(ctx, repo.NoteFilter{Category: category.Name})
		if err != nil {
			return nil, err
		}
		out = append(out, &CategoryWithCount{Category: category, NoteCount: count})
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, categoryID string) (*model.Category, error) {
	return s.categories.GetByID(ctx, categoryID)
}

// Update changes a category's name and/or color. A rename rewrites every
// note that carried the old name in the same transaction as the row edit;
// renaming onto an existing name folds this category into it instead of
// duplicating the name.
func (s *CategoryService) Update(ctx context.Context, categoryID, newName, color string) (*model.Category, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	newName = normalizeCategoryName(newName)
	now := timeutil.NowUnix()

	if newName == "" || newName == category.Name {
		if color != "" {
			category.Color = color
		}
		category.Mtime = now
		if err := s.categories.Update(ctx, category); err != nil {
			return nil, err
		}
		return category, nil
	}

	oldName := category.Name
	existing, err := s.categories.GetByName(ctx, newName)
	if err == nil {
		return existing, s.foldInto(ctx, oldName, existing.Name, now)
	}
	if !errors.Is(err, appErr.ErrCategoryNotFound) {
		return nil, err
	}

	category.Name = newName
	if color != "" {
		category.Color = color
	}
	category.Mtime = now
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	if err := s.categories.UpdateTx(ctx, tx, category); err != nil {
		if isUniqueViolation(err) {
			// Lost a rename race against a concurrent create of newName.
			return nil, appErr.ErrConflict
		}
		return nil, err
	}
	if _, err := s.notes.RewriteCategory(ctx, tx, oldName, newName, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return category, nil
}

// foldInto moves the notes of one category name under another and removes the
// source row, all in one transaction.
func (s *CategoryService) foldInto(ctx context.Context, fromName, toName string, now int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := s.notes.RewriteCategory(ctx, tx, fromName, toName, now); err != nil {
		return err
	}
	if err := s.categories.DeleteByNameTx(ctx, tx, fromName); err != nil {
		return err
	}
	return tx.Commit()
}

// Merge moves every note of the source category into the target category and
// removes the source. Target is created on demand.
func (s *CategoryService) Merge(ctx context.Context, fromID, toName string) (*model.Category, error) {
	toName = normalizeCategoryName(toName)
	if toName == "" {
		return nil, appErr.ErrInvalid
	}
	source, err := s.categories.GetByID(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if source.Name == toName {
		return nil, appErr.ErrInvalid
	}
	target, err := s.EnsureByName(ctx, toName)
	if err != nil {
		return nil, err
	}
	if err := s.foldInto(ctx, source.Name, target.Name, timeutil.NowUnix()); err != nil {
		return nil, err
	}
	return target, nil
}

// Delete removes a category; its notes fall back to uncategorized (empty).
func (s *CategoryService) Delete(ctx context.Context, categoryID string) error {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return err
	}
	now := timeutil.NowUnix()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := s.notes.RewriteCategory(ctx, tx, category.Name, "", now); err != nil {
		return err
	}
	if err := s.categories.DeleteByNameTx(ctx, tx, category.Name); err != nil {
		return err
	}
	return tx.Commit()
}
