package service

import (
	"context"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/linknote/internal/analyze"
	"github.com/xxxsen/linknote/internal/kinds"
	"github.com/xxxsen/linknote/internal/model"
	appErr "github.com/xxxsen/linknote/internal/pkg/errors"
	"github.com/xxxsen/linknote/internal/pkg/timeutil"
	"github.com/xxxsen/linknote/internal/repo"
)

// ftsSearchLimit caps how many ids a free-text match may feed into the list
// filter.
const ftsSearchLimit = 500

const dedupCacheSize = 4096

type NoteService struct {
	notes      *repo.NoteRepo
	fts        *repo.FTSRepo
	categories *CategoryService
	dedup      *lru.Cache[string, string]
}

func NewNoteService(notes *repo.NoteRepo, fts *repo.FTSRepo, categories *CategoryService) (*NoteService, error) {
	dedup, err := lru.New[string, string](dedupCacheSize)
	if err != nil {
		return nil, err
	}
	return &NoteService{notes: notes, fts: fts, categories: categories, dedup: dedup}, nil
}

func applyKinds(note *model.Note) {
	result := kinds.Compute(kinds.Input{
		SourceURL:    note.SourceURL,
		ContentFull:  note.ContentFull,
		SummaryShort: note.SummaryShort,
		SummaryLong:  note.SummaryLong,
	})
	note.PrimaryKind = string(result.PrimaryKind)
	note.Kinds = make([]string, 0, len(result.Kinds))
	for _, kind := range result.Kinds {
		note.Kinds = append(note.Kinds, string(kind))
	}
}

func (s *NoteService) syncFTS(ctx context.Context, note *model.Note) {
	tags := strings.Join(append(append([]string{}, note.Tags...), note.Hashtags...), " ")
	if err := s.fts.Upsert(ctx, note.ID, note.Title, note.SummaryShort, note.SummaryLong, tags, note.ContentFull); err != nil {
		// The note row is authoritative; a stale index entry only degrades
		// search until the next write.
		logutil.GetLogger(ctx).Warn("fts upsert failed",
			zap.String("note_id", note.ID), zap.Error(err))
	}
}

func (s *NoteService) ensureCategory(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if _, err := s.categories.EnsureByName(ctx, name); err != nil {
		logutil.GetLogger(ctx).Warn("ensure category failed",
			zap.String("category", name), zap.Error(err))
	}
}

// FindBySourceURL is the ingestion dedup lookup, cached because job batches
// tend to repeat the same links.
func (s *NoteService) FindBySourceURL(ctx context.Context, sourceURL string) (*model.Note, error) {
	if noteID, ok := s.dedup.Get(sourceURL); ok {
		note, err := s.notes.GetByID(ctx, noteID)
		if err == nil {
			return note, nil
		}
		s.dedup.Remove(sourceURL)
	}
	note, err := s.notes.GetBySourceURL(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	s.dedup.Add(sourceURL, note.ID)
	return note, nil
}

// UpsertFromResult persists the outcome of one processed URL. Reprocessing a
// URL that already has a note refreshes that note instead of stacking a
// duplicate.
func (s *NoteService) UpsertFromResult(ctx context.Context, result *analyze.Result) (*model.Note, error) {
	now := timeutil.NowUnix()
	existing, err := s.FindBySourceURL(ctx, result.SourceURL)
	if err != nil && err != appErr.ErrNoteNotFound {
		return nil, err
	}

	note := existing
	if note == nil {
		note = &model.Note{
			ID:        newID(),
			SourceURL: result.SourceURL,
			Ctime:     now,
		}
	}
	note.Title = result.Title
	note.SummaryShort = result.SummaryShort
	note.SummaryLong = result.SummaryLong
	note.ContentFull = result.ContentFull
	note.Category = result.Category
	note.Tags = emptyIfNil(result.Tags)
	note.Hashtags = emptyIfNil(result.Hashtags)
	note.Status = result.NoteStatus()
	note.ErrorMessage = result.ErrorMessage
	note.Mtime = now
	applyKinds(note)

	if existing == nil {
		if err := s.notes.Create(ctx, note); err != nil {
			return nil, err
		}
	} else {
		if err := s.notes.Update(ctx, note); err != nil {
			return nil, err
		}
	}
	s.dedup.Add(note.SourceURL, note.ID)
	s.ensureCategory(ctx, note.Category)
	s.syncFTS(ctx, note)
	return note, nil
}

// CreateMessageNote stores an already-written text as a finished note, used
// by transcript imports where there is nothing to fetch or analyze.
func (s *NoteService) CreateMessageNote(ctx context.Context, sourceURL, title, content, category string, ctime int64) (*model.Note, error) {
	note := &model.Note{
		ID:          newID(),
		SourceURL:   sourceURL,
		Title:       title,
		ContentFull: content,
		Category:    category,
		Tags:        []string{},
		Hashtags:    []string{},
		Status:      model.NoteStatusDone,
		Ctime:       ctime,
		Mtime:       ctime,
	}
	applyKinds(note)
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	s.dedup.Add(note.SourceURL, note.ID)
	s.ensureCategory(ctx, note.Category)
	s.syncFTS(ctx, note)
	return note, nil
}

func (s *NoteService) Get(ctx context.Context, noteID string) (*model.Note, error) {
	return s.notes.GetByID(ctx, noteID)
}

// UpdateNoteParams is a sparse patch; nil fields are left untouched.
type UpdateNoteParams struct {
	Title        *string
	SummaryShort *string
	SummaryLong  *string
	ContentFull  *string
	Category     *string
	Tags         *[]string
	Hashtags     *[]string
}

func (s *NoteService) Update(ctx context.Context, noteID string, params UpdateNoteParams) (*model.Note, error) {
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	setIfPresent(&note.Title, params.Title)
	setIfPresent(&note.SummaryShort, params.SummaryShort)
	setIfPresent(&note.SummaryLong, params.SummaryLong)
	setIfPresent(&note.ContentFull, params.ContentFull)
	setIfPresent(&note.Category, params.Category)
	if params.Tags != nil {
		note.Tags = emptyIfNil(*params.Tags)
	}
	if params.Hashtags != nil {
		note.Hashtags = emptyIfNil(*params.Hashtags)
	}
	note.Mtime = timeutil.NowUnix()
	applyKinds(note)
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, err
	}
	s.ensureCategory(ctx, note.Category)
	s.syncFTS(ctx, note)
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, noteID string) error {
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return err
	}
	if err := s.notes.Delete(ctx, noteID); err != nil {
		return err
	}
	s.dedup.Remove(note.SourceURL)
	_ = s.fts.Delete(ctx, noteID)
	return nil
}

func (s *NoteService) DeleteAll(ctx context.Context) (int64, error) {
	removed, err := s.notes.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.dedup.Purge()
	_ = s.fts.DeleteAll(ctx)
	return removed, nil
}

// ListNotesParams is the combinable query surface of the note list.
type ListNotesParams struct {
	Query     string
	Scope     string
	Category  string
	Kind      string
	Status    string
	Tag       string
	FromCtime int64
	ToCtime   int64
	Sort      string
	Limit     uint
	Offset    uint
}

var sortOrders = map[string]string{
	"":             "ctime desc",
	"created_desc": "ctime desc",
	"created_asc":  "ctime asc",
	"updated_desc": "mtime desc",
	"updated_asc":  "mtime asc",
}

func (s *NoteService) buildFilter(ctx context.Context, params ListNotesParams) (repo.NoteFilter, error) {
	filter := repo.NoteFilter{
		Category:  params.Category,
		Status:    params.Status,
		Kind:      params.Kind,
		TagLike:   params.Tag,
		FromCtime: params.FromCtime,
		ToCtime:   params.ToCtime,
	}
	if params.Kind != "" && !kinds.Valid(params.Kind) {
		return filter, appErr.ErrInvalidKind
	}
	if params.Query != "" {
		scope := repo.SearchScope(params.Scope)
		if params.Scope == "" {
			scope = repo.ScopeAll
		} else if !repo.ValidScope(params.Scope) {
			return filter, appErr.ErrInvalid
		}
		ids, err := s.fts.SearchNoteIDs(ctx, params.Query, scope, ftsSearchLimit)
		if err != nil {
			return filter, err
		}
		filter.Restricted = true
		filter.IDs = ids
	}
	return filter, nil
}

func (s *NoteService) List(ctx context.Context, params ListNotesParams) ([]*model.Note, int, error) {
	filter, err := s.buildFilter(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	orderBy, ok := sortOrders[params.Sort]
	if !ok {
		return nil, 0, appErr.ErrInvalid
	}
	if params.Limit == 0 {
		params.Limit = 20
	}
	notes, err := s.notes.List(ctx, filter, params.Limit, params.Offset, orderBy)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.notes.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

// SearchHit is one search result with a highlighted excerpt.
type SearchHit struct {
	Note    *model.Note `json:"note"`
	Excerpt string      `json:"excerpt"`
}

func (s *NoteService) Search(ctx context.Context, query, scope string, limit uint) ([]*SearchHit, error) {
	if scope == "" {
		scope = string(repo.ScopeAll)
	}
	if !repo.ValidScope(scope) {
		return nil, appErr.ErrInvalid
	}
	if limit == 0 || limit > ftsSearchLimit {
		limit = 20
	}
	snippets, err := s.fts.SearchSnippets(ctx, query, repo.SearchScope(scope), limit)
	if err != nil {
		return nil, err
	}
	hits := make([]*SearchHit, 0, len(snippets))
	for _, snippet := range snippets {
		note, err := s.notes.GetByID(ctx, snippet.NoteID)
		if err != nil {
			// The index can briefly lag a delete.
			continue
		}
		hits = append(hits, &SearchHit{Note: note, Excerpt: snippet.Excerpt})
	}
	return hits, nil
}

// BatchPatchParams applies the same metadata change to a set of notes.
type BatchPatchParams struct {
	Category   *string
	AddTags    []string
	RemoveTags []string
}

// BatchPatchResult reports which ids took the patch and which ids did not
// resolve to a note.
type BatchPatchResult struct {
	Updated     int      `json:"updated"`
	NoteIDs     []string `json:"note_ids"`
	NotFoundIDs []string `json:"not_found_ids"`
}

func (s *NoteService) BatchPatch(ctx context.Context, noteIDs []string, params BatchPatchParams) (*BatchPatchResult, error) {
	if len(noteIDs) == 0 {
		return nil, appErr.ErrInvalid
	}
	result := &BatchPatchResult{
		NoteIDs:     make([]string, 0, len(noteIDs)),
		NotFoundIDs: make([]string, 0),
	}
	for _, noteID := range noteIDs {
		note, err := s.notes.GetByID(ctx, noteID)
		if err != nil {
			if err == appErr.ErrNoteNotFound {
				result.NotFoundIDs = append(result.NotFoundIDs, noteID)
				continue
			}
			return result, err
		}
		if params.Category != nil {
			note.Category = *params.Category
		}
		note.Tags = mergeTags(note.Tags, params.AddTags, params.RemoveTags)
		note.Mtime = timeutil.NowUnix()
		if err := s.notes.Update(ctx, note); err != nil {
			return result, err
		}
		s.ensureCategory(ctx, note.Category)
		result.Updated++
		result.NoteIDs = append(result.NoteIDs, note.ID)
	}
	return result, nil
}

// KindCount is one row of the kind distribution summary.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// KindCounts reports the kind distribution in taxonomy order. Multi-kind
// notes count once per kind, so the sum can exceed the note total.
func (s *NoteService) KindCounts(ctx context.Context) ([]KindCount, int, error) {
	counts, total, err := s.notes.CountByKind(ctx, repo.NoteFilter{})
	if err != nil {
		return nil, 0, err
	}
	out := make([]KindCount, 0, len(kinds.Order))
	for _, kind := range kinds.Order {
		out = append(out, KindCount{Kind: string(kind), Count: counts[string(kind)]})
	}
	return out, total, nil
}

// TagCount is one row of the tag frequency summary.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func (s *NoteService) TagFrequency(ctx context.Context, limit int) ([]TagCount, error) {
	notes, err := s.notes.List(ctx, repo.NoteFilter{}, 0, 0, "ctime desc")
	if err != nil {
		return nil, err
	}
	freq := make(map[string]int)
	for _, note := range notes {
		for _, tag := range note.Tags {
			freq[tag]++
		}
		for _, tag := range note.Hashtags {
			freq[tag]++
		}
	}
	out := make([]TagCount, 0, len(freq))
	for tag, count := range freq {
		out = append(out, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BackfillKinds classifies notes written before kind derivation existed,
// draining unclassified rows in batches until none remain or maxRows have
// been scanned (maxRows 0 means unbounded). The write path leaves mtime alone
// so backfill runs are invisible to users.
func (s *NoteService) BackfillKinds(ctx context.Context, batchSize, maxRows uint) (scanned, updated int, err error) {
	if batchSize == 0 {
		batchSize = 200
	}
	for {
		if err := ctx.Err(); err != nil {
			return scanned, updated, err
		}
		limit := batchSize
		if maxRows > 0 {
			remaining := maxRows - uint(scanned)
			if remaining == 0 {
				return scanned, updated, nil
			}
			if remaining < limit {
				limit = remaining
			}
		}
		notes, err := s.notes.ListMissingKinds(ctx, limit)
		if err != nil {
			return scanned, updated, err
		}
		scanned += len(notes)
		for _, note := range notes {
			applyKinds(note)
			if err := s.notes.UpdateKinds(ctx, note.ID, note.PrimaryKind, note.Kinds); err != nil {
				return scanned, updated, err
			}
			updated++
		}
		if uint(len(notes)) < limit {
			return scanned, updated, nil
		}
	}
}

func setIfPresent(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func mergeTags(current, add, remove []string) []string {
	seen := make(map[string]struct{}, len(current)+len(add))
	out := make([]string, 0, len(current)+len(add))
	removed := make(map[string]struct{}, len(remove))
	for _, tag := range remove {
		removed[tag] = struct{}{}
	}
	for _, tag := range current {
		if _, drop := removed[tag]; drop {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	for _, tag := range add {
		if _, drop := removed[tag]; drop {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
