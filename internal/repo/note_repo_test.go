package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/linknote/internal/model"
	appErr "github.com/xxxsen/linknote/internal/pkg/errors"
)

func testNote(id string) *model.Note {
	return &model.Note{
		ID:           id,
		SourceURL:    "https://example.com/" + id,
		Title:        "title " + id,
		SummaryShort: "short " + id,
		SummaryLong:  "long " + id,
		ContentFull:  "content " + id,
		Category:     "dev",
		Tags:         []string{"go", "sqlite"},
		Hashtags:     []string{"#go"},
		Status:       model.NoteStatusDone,
		PrimaryKind:  "other_link",
		Kinds:        []string{"other_link"},
		Ctime:        1000,
		Mtime:        1000,
	}
}

func TestNoteRepoCreateGet(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()

	note := testNote("n1")
	require.NoError(t, repo.Create(ctx, note))

	got, err := repo.GetByID(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, note, got)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNoteNotFound)
}

func TestNoteRepoUpdate(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()

	note := testNote("n1")
	require.NoError(t, repo.Create(ctx, note))

	note.Title = "renamed"
	note.Tags = []string{"new"}
	note.Mtime = 2000
	require.NoError(t, repo.Update(ctx, note))

	got, err := repo.GetByID(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Title)
	require.Equal(t, []string{"new"}, got.Tags)
	require.Equal(t, int64(2000), got.Mtime)
	require.Equal(t, int64(1000), got.Ctime)

	missing := testNote("missing")
	require.ErrorIs(t, repo.Update(ctx, missing), appErr.ErrNoteNotFound)
}

func TestNoteRepoUpdateKindsKeepsMtime(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()

	note := testNote("n1")
	note.PrimaryKind = ""
	note.Kinds = []string{}
	require.NoError(t, repo.Create(ctx, note))

	require.NoError(t, repo.UpdateKinds(ctx, "n1", "youtube", []string{"youtube", "other_link"}))

	got, err := repo.GetByID(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, "youtube", got.PrimaryKind)
	require.Equal(t, []string{"youtube", "other_link"}, got.Kinds)
	require.Equal(t, int64(1000), got.Mtime)
}

func TestNoteRepoGetBySourceURLPicksNewest(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()

	older := testNote("n1")
	older.SourceURL = "https://example.com/dup"
	older.Ctime = 1000
	newer := testNote("n2")
	newer.SourceURL = "https://example.com/dup"
	newer.Ctime = 2000
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	got, err := repo.GetBySourceURL(ctx, "https://example.com/dup")
	require.NoError(t, err)
	require.Equal(t, "n2", got.ID)

	_, err = repo.GetBySourceURL(ctx, "https://example.com/absent")
	require.ErrorIs(t, err, appErr.ErrNoteNotFound)
}

func seedNotes(t *testing.T, repo *NoteRepo) {
	t.Helper()
	ctx := context.Background()
	for idx, spec := range []struct {
		category string
		status   string
		kinds    []string
		tags     []string
	}{
		{"dev", model.NoteStatusDone, []string{"other_link"}, []string{"go"}},
		{"dev", model.NoteStatusPartialDone, []string{"youtube", "other_link"}, []string{"video"}},
		{"news", model.NoteStatusDone, []string{"youtube"}, []string{"politics"}},
		{"news", model.NoteStatusDone, []string{"instagram_post"}, []string{"photo", "go"}},
	} {
		note := testNote(fmt.Sprintf("n%d", idx+1))
		note.SourceURL = fmt.Sprintf("https://example.com/%d", idx+1)
		note.Category = spec.category
		note.Status = spec.status
		note.Kinds = spec.kinds
		note.PrimaryKind = spec.kinds[0]
		note.Tags = spec.tags
		note.Hashtags = []string{}
		note.Ctime = int64(1000 + idx)
		note.Mtime = note.Ctime
		require.NoError(t, repo.Create(ctx, note))
	}
}

func TestNoteRepoListFilters(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()
	seedNotes(t, repo)

	notes, err := repo.List(ctx, NoteFilter{Category: "dev"}, 0, 0, "")
	require.NoError(t, err)
	require.Len(t, notes, 2)

	notes, err = repo.List(ctx, NoteFilter{Status: model.NoteStatusPartialDone}, 0, 0, "")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "n2", notes[0].ID)

	notes, err = repo.List(ctx, NoteFilter{Kind: "youtube"}, 0, 0, "")
	require.NoError(t, err)
	require.Len(t, notes, 2)

	notes, err = repo.List(ctx, NoteFilter{TagLike: "go"}, 0, 0, "")
	require.NoError(t, err)
	require.Len(t, notes, 2)

	notes, err = repo.List(ctx, NoteFilter{FromCtime: 1001, ToCtime: 1002}, 0, 0, "")
	require.NoError(t, err)
	require.Len(t, notes, 2)

	notes, err = repo.List(ctx, NoteFilter{Category: "news", Kind: "youtube"}, 0, 0, "")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "n3", notes[0].ID)
}

func TestNoteRepoListRestrictedIDs(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()
	seedNotes(t, repo)

	notes, err := repo.List(ctx, NoteFilter{Restricted: true, IDs: []string{"n1", "n3"}}, 0, 0, "")
	require.NoError(t, err)
	require.Len(t, notes, 2)

	// An empty resolved id set must return nothing, not everything.
	notes, err = repo.List(ctx, NoteFilter{Restricted: true}, 0, 0, "")
	require.NoError(t, err)
	require.Empty(t, notes)
}

func TestNoteRepoListOrderAndPaging(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()
	seedNotes(t, repo)

	notes, err := repo.List(ctx, NoteFilter{}, 2, 0, "ctime desc")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, "n4", notes[0].ID)
	require.Equal(t, "n3", notes[1].ID)

	notes, err = repo.List(ctx, NoteFilter{}, 2, 2, "ctime desc")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, "n2", notes[0].ID)

	notes, err = repo.List(ctx, NoteFilter{}, 1, 0, "ctime asc")
	require.NoError(t, err)
	require.Equal(t, "n1", notes[0].ID)
}

func TestNoteRepoCount(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()
	seedNotes(t, repo)

	count, err := repo.Count(ctx, NoteFilter{})
	require.NoError(t, err)
	require.Equal(t, 4, count)

	count, err = repo.Count(ctx, NoteFilter{Category: "news"})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestNoteRepoCountByKind(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()
	seedNotes(t, repo)

	counts, total, err := repo.CountByKind(ctx, NoteFilter{})
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Equal(t, 2, counts["youtube"])
	require.Equal(t, 2, counts["other_link"])
	require.Equal(t, 1, counts["instagram_post"])
}

func TestNoteRepoListMissingKinds(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()

	classified := testNote("n1")
	require.NoError(t, repo.Create(ctx, classified))
	missing := testNote("n2")
	missing.SourceURL = "https://example.com/2"
	missing.PrimaryKind = ""
	missing.Kinds = []string{}
	require.NoError(t, repo.Create(ctx, missing))

	notes, err := repo.ListMissingKinds(ctx, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "n2", notes[0].ID)
}

func TestNoteRepoDelete(t *testing.T) {
	conn := newTestDB(t)
	repo := NewNoteRepo(conn)
	ctx := context.Background()
	seedNotes(t, repo)

	require.NoError(t, repo.Delete(ctx, "n1"))
	require.ErrorIs(t, repo.Delete(ctx, "n1"), appErr.ErrNoteNotFound)

	removed, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), removed)
}
