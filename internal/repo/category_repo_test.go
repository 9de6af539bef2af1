package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/linknote/internal/model"
	appErr "github.com/xxxsen/linknote/internal/pkg/errors"
)

func TestCategoryRepoCreateGetList(t *testing.T) {
	conn := newTestDB(t)
	repo := NewCategoryRepo(conn)
	ctx := context.Background()

	dev := &model.Category{ID: "c1", Name: "dev", Color: "#ff0000", Ctime: 1000, Mtime: 1000}
	news := &model.Category{ID: "c2", Name: "news", Ctime: 1001, Mtime: 1001}
	require.NoError(t, repo.Create(ctx, dev))
	require.NoError(t, repo.Create(ctx, news))

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, dev, got)

	got, err = repo.GetByName(ctx, "news")
	require.NoError(t, err)
	require.Equal(t, "c2", got.ID)

	_, err = repo.GetByName(ctx, "absent")
	require.ErrorIs(t, err, appErr.ErrCategoryNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "dev", list[0].Name)
	require.Equal(t, "news", list[1].Name)
}

func TestCategoryRepoUniqueName(t *testing.T) {
	conn := newTestDB(t)
	repo := NewCategoryRepo(conn)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Category{ID: "c1", Name: "dev", Ctime: 1, Mtime: 1}))
	require.Error(t, repo.Create(ctx, &model.Category{ID: "c2", Name: "dev", Ctime: 2, Mtime: 2}))
}

func TestCategoryRepoUpdateDelete(t *testing.T) {
	conn := newTestDB(t)
	repo := NewCategoryRepo(conn)
	ctx := context.Background()

	category := &model.Category{ID: "c1", Name: "dev", Ctime: 1000, Mtime: 1000}
	require.NoError(t, repo.Create(ctx, category))

	category.Name = "engineering"
	category.Color = "#00ff00"
	category.Mtime = 2000
	require.NoError(t, repo.Update(ctx, category))

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "engineering", got.Name)
	require.Equal(t, "#00ff00", got.Color)

	require.NoError(t, repo.Delete(ctx, "c1"))
	require.ErrorIs(t, repo.Delete(ctx, "c1"), appErr.ErrCategoryNotFound)
	require.ErrorIs(t, repo.Update(ctx, category), appErr.ErrCategoryNotFound)
}
