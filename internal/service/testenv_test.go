package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/linknote/internal/analyze"
	"github.com/xxxsen/linknote/internal/db"
	"github.com/xxxsen/linknote/internal/repo"
)

type fakeFetcher struct {
	pages   map[string]string
	onFetch func()
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("connection refused")
	}
	return page, nil
}

type recordingEnqueuer struct {
	jobIDs []string
}

func (e *recordingEnqueuer) Enqueue(jobID string) bool {
	e.jobIDs = append(e.jobIDs, jobID)
	return true
}

type testEnv struct {
	db         *sqlx.DB
	notes      *NoteService
	categories *CategoryService
	ingest     *IngestService
	imports    *ImportService
	enqueuer   *recordingEnqueuer
	fetcher    *fakeFetcher
	jobRepo    *repo.IngestJobRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	t.Cleanup(func() { _ = conn.Close() })

	noteRepo := repo.NewNoteRepo(conn)
	ftsRepo := repo.NewFTSRepo(conn)
	categoryRepo := repo.NewCategoryRepo(conn)
	jobRepo := repo.NewIngestJobRepo(conn)

	categories := NewCategoryService(conn, categoryRepo, noteRepo)
	notes, err := NewNoteService(noteRepo, ftsRepo, categories)
	require.NoError(t, err)

	fetcher := &fakeFetcher{pages: map[string]string{}}
	analyzer, err := analyze.NewAnalyzer("heuristic", map[string]interface{}{})
	require.NoError(t, err)
	engine := analyze.NewEngine(fetcher, analyzer, "uncategorized")

	enqueuer := &recordingEnqueuer{}
	ingest := NewIngestService(jobRepo, notes, engine, enqueuer)
	imports := NewImportService(notes, ingest)

	return &testEnv{
		db:         conn,
		notes:      notes,
		categories: categories,
		ingest:     ingest,
		imports:    imports,
		enqueuer:   enqueuer,
		fetcher:    fetcher,
		jobRepo:    jobRepo,
	}
}

func articleHTML(topic string) string {
	body := ""
	for i := 0; i < 30; i++ {
		body += "The " + topic + " article explains the server code and database design in detail. "
	}
	return "<html><body><article>" + body + "</article></body></html>"
}
