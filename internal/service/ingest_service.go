package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/linknote/internal/analyze"
	"github.com/xxxsen/linknote/internal/kinds"
	"github.com/xxxsen/linknote/internal/model"
	appErr "github.com/xxxsen/linknote/internal/pkg/errors"
	"github.com/xxxsen/linknote/internal/pkg/timeutil"
	"github.com/xxxsen/linknote/internal/repo"
)

const maxURLsPerJob = 50

// Enqueuer hands a job id to the background worker pool.
type Enqueuer interface {
	Enqueue(jobID string) bool
}

type IngestService struct {
	jobs     *repo.IngestJobRepo
	notes    *NoteService
	engine   *analyze.Engine
	enqueuer Enqueuer
}

func NewIngestService(jobs *repo.IngestJobRepo, notes *NoteService, engine *analyze.Engine, enqueuer Enqueuer) *IngestService {
	return &IngestService{jobs: jobs, notes: notes, engine: engine, enqueuer: enqueuer}
}

func normalizeSubmission(urls []string) ([]string, error) {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, fmt.Errorf("%w: bad url %q", appErr.ErrInvalid, raw)
		}
		canonical := analyze.CanonicalURL(raw)
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no urls to ingest", appErr.ErrInvalid)
	}
	if len(out) > maxURLsPerJob {
		return nil, fmt.Errorf("%w: at most %d urls per job", appErr.ErrInvalid, maxURLsPerJob)
	}
	return out, nil
}

func validateOptions(opts *model.IngestOptions) error {
	if opts.SummaryLength == "" {
		opts.SummaryLength = model.SummaryLengthStandard
	}
	if opts.SummaryLength != model.SummaryLengthShort && opts.SummaryLength != model.SummaryLengthStandard {
		return fmt.Errorf("%w: bad summary_length %q", appErr.ErrInvalid, opts.SummaryLength)
	}
	return nil
}

// Submit registers a job for a batch of URLs and queues it for processing.
// Duplicate URLs inside one submission collapse after canonicalization.
func (s *IngestService) Submit(ctx context.Context, urls []string, opts model.IngestOptions) (*model.IngestJob, error) {
	canonical, err := normalizeSubmission(urls)
	if err != nil {
		return nil, err
	}
	if err := validateOptions(&opts); err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	job := &model.IngestJob{
		ID:             newID(),
		RequestedCount: len(canonical),
		Counts:         model.JobCounts{Queued: len(canonical)},
		Options:        opts,
		Ctime:          now,
		Mtime:          now,
	}
	items := make([]*model.IngestJobItem, 0, len(canonical))
	for position, sourceURL := range canonical {
		items = append(items, &model.IngestJobItem{
			ID:        newID(),
			JobID:     job.ID,
			Position:  position,
			SourceURL: sourceURL,
			Status:    model.ItemStatusQueued,
			Ctime:     now,
			Mtime:     now,
		})
	}
	if err := s.jobs.CreateWithItems(ctx, job, items); err != nil {
		return nil, err
	}
	if !s.enqueuer.Enqueue(job.ID) {
		// The job row and queued items survive; a retry call picks them up.
		logutil.GetLogger(ctx).Warn("dispatch queue refused job", zap.String("job_id", job.ID))
	}
	return job, nil
}

// SubmitText extracts URLs from free-form text and submits them as one job.
func (s *IngestService) SubmitText(ctx context.Context, text string, opts model.IngestOptions) (*model.IngestJob, error) {
	urls := kinds.ExtractURLs(text)
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no urls found in text", appErr.ErrInvalid)
	}
	return s.Submit(ctx, urls, opts)
}

func (s *IngestService) Get(ctx context.Context, jobID string) (*model.IngestJob, []*model.IngestJobItem, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.jobs.ListItems(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	return job, items, nil
}

func (s *IngestService) List(ctx context.Context, limit, offset uint) ([]*model.IngestJob, error) {
	if limit == 0 {
		limit = 20
	}
	return s.jobs.List(ctx, limit, offset)
}

// Retry re-queues the failed items of a job and schedules another processing
// round. Done items are left alone; with nothing failed the call is a no-op
// that reports zero retried items.
func (s *IngestService) Retry(ctx context.Context, jobID string) (*model.IngestJob, int, error) {
	if _, err := s.jobs.Get(ctx, jobID); err != nil {
		return nil, 0, err
	}
	now := timeutil.NowUnix()
	requeued, err := s.jobs.ResetFailedItems(ctx, jobID, now)
	if err != nil {
		return nil, 0, err
	}
	if len(requeued) == 0 {
		job, err := s.jobs.Get(ctx, jobID)
		return job, 0, err
	}
	if _, err := s.jobs.RecalcCounts(ctx, jobID, now); err != nil {
		return nil, 0, err
	}
	if !s.enqueuer.Enqueue(jobID) {
		logutil.GetLogger(ctx).Warn("dispatch queue refused retry", zap.String("job_id", jobID))
	}
	job, err := s.jobs.Get(ctx, jobID)
	return job, len(requeued), err
}

// ProcessJob is the worker entry point. It walks the job's queued items,
// claims each one, runs the URL pipeline and records the outcome. Counts are
// recomputed after every transition so concurrent status reads stay honest.
func (s *IngestService) ProcessJob(ctx context.Context, jobID string) {
	logger := logutil.GetLogger(ctx).With(zap.String("job_id", jobID))
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		logger.Error("load job failed", zap.Error(err))
		return
	}
	items, err := s.jobs.ListItems(ctx, jobID)
	if err != nil {
		logger.Error("load job items failed", zap.Error(err))
		return
	}
	for _, item := range items {
		if ctx.Err() != nil {
			logger.Warn("job interrupted", zap.Error(ctx.Err()))
			return
		}
		if item.Status != model.ItemStatusQueued {
			continue
		}
		s.processItem(ctx, job, item)
	}
	logger.Info("job processed")
}

func (s *IngestService) processItem(ctx context.Context, job *model.IngestJob, item *model.IngestJobItem) {
	logger := logutil.GetLogger(ctx).With(
		zap.String("job_id", job.ID),
		zap.String("item_id", item.ID),
		zap.String("url", item.SourceURL))

	claimed, err := s.jobs.ClaimItem(ctx, item.ID, timeutil.NowUnix())
	if err != nil {
		logger.Error("claim item failed", zap.Error(err))
		return
	}
	if !claimed {
		return
	}
	// A claimed item must always reach done or failed. Completion writes run
	// on a detached context so a shutdown cancel cannot strand the item in
	// processing.
	writeCtx := context.WithoutCancel(ctx)
	s.recalc(writeCtx, job.ID, logger)

	result := s.engine.Process(ctx, item.SourceURL, job.Options)
	status := model.ItemStatusDone
	noteID := ""
	switch result.Outcome {
	case analyze.OutcomeFetchFailed, analyze.OutcomeExtractFailed:
		status = model.ItemStatusFailed
	default:
		note, err := s.notes.UpsertFromResult(writeCtx, result)
		if err != nil {
			logger.Error("persist note failed", zap.Error(err))
			status = model.ItemStatusFailed
			result.ErrorCode = "store_failed"
			result.ErrorMessage = err.Error()
		} else {
			noteID = note.ID
		}
	}
	if err := s.jobs.FinishItem(writeCtx, item.ID, status, noteID, result.ErrorCode, result.ErrorMessage, timeutil.NowUnix()); err != nil {
		logger.Error("finish item failed", zap.Error(err))
	}
	s.recalc(writeCtx, job.ID, logger)
}

func (s *IngestService) recalc(ctx context.Context, jobID string, logger *zap.Logger) {
	if _, err := s.jobs.RecalcCounts(ctx, jobID, timeutil.NowUnix()); err != nil {
		logger.Error("recalc counts failed", zap.Error(err))
	}
}
