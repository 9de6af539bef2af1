package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/linknote/internal/chatexport"
	"github.com/xxxsen/linknote/internal/model"
	appErr "github.com/xxxsen/linknote/internal/pkg/errors"
	"github.com/xxxsen/linknote/internal/pkg/timeutil"
)

const defaultChatCategory = "chat-export"

type ImportService struct {
	notes  *NoteService
	ingest *IngestService
}

func NewImportService(notes *NoteService, ingest *IngestService) *ImportService {
	return &ImportService{notes: notes, ingest: ingest}
}

// URLImportReport summarizes a URL-list import: how many links the file
// held, how many were queued and how many skipped as duplicates.
type URLImportReport struct {
	JobID          string `json:"job_id,omitempty"`
	RequestedCount int    `json:"requested_count"`
	QueuedCount    int    `json:"queued_count"`
	Skipped        int    `json:"skipped"`
}

// ImportURLs reads a CSV of links and submits the new ones as one ingest
// job. With skipDuplicates set, links that already have a note are dropped.
func (s *ImportService) ImportURLs(ctx context.Context, r io.Reader, skipDuplicates bool, opts model.IngestOptions) (*URLImportReport, error) {
	urls, err := chatexport.ParseURLs(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	report := &URLImportReport{RequestedCount: len(urls)}
	queued := make([]string, 0, len(urls))
	for _, link := range urls {
		if skipDuplicates {
			if _, err := s.notes.FindBySourceURL(ctx, link); err == nil {
				report.Skipped++
				continue
			} else if !errors.Is(err, appErr.ErrNoteNotFound) {
				return nil, err
			}
		}
		queued = append(queued, link)
	}
	if len(queued) == 0 {
		return report, nil
	}
	job, err := s.ingest.Submit(ctx, queued, opts)
	if err != nil {
		return nil, err
	}
	report.JobID = job.ID
	report.QueuedCount = job.RequestedCount
	return report, nil
}

// ChatImportReport summarizes a transcript import.
type ChatImportReport struct {
	RowCount int `json:"row_count"`
	Created  int `json:"created"`
	Skipped  int `json:"skipped"`
}

// ImportChat stores each transcript message as a ready-made note. The
// synthetic source URL makes re-importing the same export idempotent.
func (s *ImportService) ImportChat(ctx context.Context, r io.Reader, category string) (*ChatImportReport, error) {
	rows, err := chatexport.ParseRows(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	if category == "" {
		category = defaultChatCategory
	}
	report := &ChatImportReport{RowCount: len(rows)}
	for index, row := range rows {
		sourceURL := chatexport.SourceURL(row.Date, index)
		if _, err := s.notes.FindBySourceURL(ctx, sourceURL); err == nil {
			report.Skipped++
			continue
		} else if !errors.Is(err, appErr.ErrNoteNotFound) {
			return nil, err
		}
		ctime := timeutil.NowUnix()
		if !row.Date.IsZero() {
			ctime = row.Date.Unix()
		}
		if _, err := s.notes.CreateMessageNote(ctx, sourceURL, chatexport.NoteTitle(row.Message), row.Message, category, ctime); err != nil {
			logutil.GetLogger(ctx).Warn("import message note failed",
				zap.String("source_url", sourceURL), zap.Error(err))
			continue
		}
		report.Created++
	}
	return report, nil
}
