package analyze

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/linknote/internal/model"
)

// Outcome is the terminal state of processing a single URL.
type Outcome string

const (
	OutcomeFetchFailed   Outcome = "fetch_failed"
	OutcomeExtractFailed Outcome = "extract_failed"
	OutcomePartialDone   Outcome = "partial_done"
	OutcomeDone          Outcome = "done"
)

const (
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeExtractFailed = "extract_failed"
	ErrCodeAnalyzeFailed = "analyze_failed"
)

// Result is what one URL produced. On fetch_failed / extract_failed the
// content fields are empty and no note should be created; on partial_done
// the content is retained even though the analysis fields may be empty.
type Result struct {
	Outcome      Outcome
	SourceURL    string
	Title        string
	SummaryShort string
	SummaryLong  string
	ContentFull  string
	Tags         []string
	Hashtags     []string
	Category     string
	Confidence   float64
	ErrorCode    string
	ErrorMessage string
}

func (r *Result) NoteStatus() string {
	if r.Outcome == OutcomeDone {
		return model.NoteStatusDone
	}
	return model.NoteStatusPartialDone
}

// Engine drives the single-URL pipeline: normalize, fetch, extract, analyze,
// finalize. Each call is synchronous and bounded by the fetcher's and
// analyzer's own timeouts.
type Engine struct {
	fetcher         Fetcher
	analyzer        Analyzer
	defaultCategory string
}

func NewEngine(fetcher Fetcher, analyzer Analyzer, defaultCategory string) *Engine {
	if defaultCategory == "" {
		defaultCategory = "uncategorized"
	}
	return &Engine{fetcher: fetcher, analyzer: analyzer, defaultCategory: defaultCategory}
}

func (e *Engine) Process(ctx context.Context, rawURL string, opts model.IngestOptions) *Result {
	logger := logutil.GetLogger(ctx).With(zap.String("url", rawURL))
	canonical := CanonicalURL(rawURL)
	start := time.Now()

	html, err := e.fetcher.Fetch(ctx, canonical)
	if err != nil {
		logger.Info("fetch failed", zap.Error(err))
		return &Result{
			Outcome:      OutcomeFetchFailed,
			SourceURL:    canonical,
			ErrorCode:    ErrCodeFetchFailed,
			ErrorMessage: err.Error(),
		}
	}

	content := ExtractMainContent(html)
	if content == "" {
		logger.Info("extract failed: no usable text")
		return &Result{
			Outcome:      OutcomeExtractFailed,
			SourceURL:    canonical,
			ErrorCode:    ErrCodeExtractFailed,
			ErrorMessage: "no usable text found",
		}
	}

	analysis, err := e.analyzer.Analyze(ctx, AnalyzeRequest{
		Content:       content,
		SummaryLength: opts.SummaryLength,
		AutoCategory:  opts.AutoCategory,
	})
	if err != nil {
		// Degrade, don't drop: the text was already retrieved at cost.
		logger.Warn("analyze failed, keeping content", zap.Error(err))
		result := &Result{
			Outcome:      OutcomePartialDone,
			SourceURL:    canonical,
			ContentFull:  content,
			Tags:         []string{},
			Hashtags:     []string{},
			Category:     e.defaultCategory,
			ErrorCode:    ErrCodeAnalyzeFailed,
			ErrorMessage: err.Error(),
		}
		if !opts.StoreFullContent {
			result.ContentFull = ""
		}
		return result
	}

	outcome := OutcomeDone
	if analysis.LowContent {
		outcome = OutcomePartialDone
	}
	category := analysis.Category
	if category == "" {
		category = e.defaultCategory
	}
	result := &Result{
		Outcome:      outcome,
		SourceURL:    canonical,
		Title:        analysis.Title,
		SummaryShort: analysis.SummaryShort,
		SummaryLong:  analysis.SummaryLong,
		ContentFull:  content,
		Tags:         analysis.Tags,
		Hashtags:     analysis.Hashtags,
		Category:     category,
		Confidence:   analysis.Confidence,
	}
	if !opts.StoreFullContent {
		result.ContentFull = ""
	}
	logger.Debug("url processed",
		zap.String("outcome", string(outcome)),
		zap.Duration("elapsed", time.Since(start)))
	return result
}
