package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/linknote/internal/model"
	appErr "github.com/xxxsen/linknote/internal/pkg/errors"
)

type NoteRepo struct {
	db *sqlx.DB
}

func NewNoteRepo(db *sqlx.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

type noteRow struct {
	ID           string `db:"id"`
	SourceURL    string `db:"source_url"`
	Title        string `db:"title"`
	SummaryShort string `db:"summary_short"`
	SummaryLong  string `db:"summary_long"`
	ContentFull  string `db:"content_full"`
	Category     string `db:"category"`
	TagsJSON     string `db:"tags_json"`
	HashtagsJSON string `db:"hashtags_json"`
	Status       string `db:"status"`
	ErrorMessage string `db:"error_message"`
	PrimaryKind  string `db:"primary_kind"`
	KindsJSON    string `db:"kinds_json"`
	Ctime        int64  `db:"ctime"`
	Mtime        int64  `db:"mtime"`
}

var noteColumns = []string{
	"id", "source_url", "title", "summary_short", "summary_long", "content_full",
	"category", "tags_json", "hashtags_json", "status", "error_message",
	"primary_kind", "kinds_json", "ctime", "mtime",
}

func (r *noteRow) toModel() (*model.Note, error) {
	note := &model.Note{
		ID:           r.ID,
		SourceURL:    r.SourceURL,
		Title:        r.Title,
		SummaryShort: r.SummaryShort,
		SummaryLong:  r.SummaryLong,
		ContentFull:  r.ContentFull,
		Category:     r.Category,
		Status:       r.Status,
		ErrorMessage: r.ErrorMessage,
		PrimaryKind:  r.PrimaryKind,
		Ctime:        r.Ctime,
		Mtime:        r.Mtime,
	}
	for _, pair := range []struct {
		raw string
		dst *[]string
	}{
		{r.TagsJSON, &note.Tags},
		{r.HashtagsJSON, &note.Hashtags},
		{r.KindsJSON, &note.Kinds},
	} {
		*pair.dst = []string{}
		if pair.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(pair.raw), pair.dst); err != nil {
			return nil, fmt.Errorf("decode note %s: %w", r.ID, err)
		}
	}
	return note, nil
}

func toNoteRow(note *model.Note) (map[string]interface{}, error) {
	tagsJSON, err := json.Marshal(note.Tags)
	if err != nil {
		return nil, err
	}
	hashtagsJSON, err := json.Marshal(note.Hashtags)
	if err != nil {
		return nil, err
	}
	kindsJSON, err := json.Marshal(note.Kinds)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"id":            note.ID,
		"source_url":    note.SourceURL,
		"title":         note.Title,
		"summary_short": note.SummaryShort,
		"summary_long":  note.SummaryLong,
		"content_full":  note.ContentFull,
		"category":      note.Category,
		"tags_json":     string(tagsJSON),
		"hashtags_json": string(hashtagsJSON),
		"status":        note.Status,
		"error_message": note.ErrorMessage,
		"primary_kind":  note.PrimaryKind,
		"kinds_json":    string(kindsJSON),
		"ctime":         note.Ctime,
		"mtime":         note.Mtime,
	}, nil
}

func (r *NoteRepo) Create(ctx context.Context, note *model.Note) error {
	data, err := toNoteRow(note)
	if err != nil {
		return err
	}
	sqlStr, args, err := builder.BuildInsert("notes", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *NoteRepo) Update(ctx context.Context, note *model.Note) error {
	data, err := toNoteRow(note)
	if err != nil {
		return err
	}
	delete(data, "id")
	delete(data, "ctime")
	where := map[string]interface{}{"id": note.ID}
	sqlStr, args, err := builder.BuildUpdate("notes", where, data)
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
		return appErr.ErrNoteNotFound
	}
	return nil
}

// UpdateKinds writes back derived kind data without touching mtime, so a
// backfill never appears as a content edit.
func (r *NoteRepo) UpdateKinds(ctx context.Context, noteID, primaryKind string, kinds []string) error {
	kindsJSON, err := json.Marshal(kinds)
	if err != nil {
		return err
	}
	const query = `UPDATE notes SET primary_kind = ?, kinds_json = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, primaryKind, string(kindsJSON), noteID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNoteNotFound
	}
	return nil
}

func (r *NoteRepo) GetByID(ctx context.Context, noteID string) (*model.Note, error) {
	where := map[string]interface{}{"id": noteID}
	sqlStr, args, err := builder.BuildSelect("notes", where, noteColumns)
	if err != nil {
		return nil, err
	}
	var row noteRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNoteNotFound
		}
		return nil, err
	}
	return row.toModel()
}

// GetBySourceURL is the dedup lookup: exact match on the canonical source
// URL, newest row when the caller ingested the same URL more than once.
func (r *NoteRepo) GetBySourceURL(ctx context.Context, sourceURL string) (*model.Note, error) {
	where := map[string]interface{}{
		"source_url": sourceURL,
		"_orderby":   "ctime desc",
		"_limit":     []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("notes", where, noteColumns)
	if err != nil {
		return nil, err
	}
	var row noteRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNoteNotFound
		}
		return nil, err
	}
	return row.toModel()
}

// NoteFilter is the combinable filter set of the list surface. Zero values
// mean "not filtered". IDs restricts to an already-resolved id set (the FTS
// path); Restricted tells an empty IDs slice apart from "no id filter".
type NoteFilter struct {
	IDs        []string
	Restricted bool
	Category   string
	Status     string
	Kind       string
	TagLike    string
	FromCtime  int64
	ToCtime    int64
}

func (f NoteFilter) whereClause() map[string]interface{} {
	where := map[string]interface{}{}
	if f.Restricted {
		ids := f.IDs
		if len(ids) == 0 {
			ids = []string{""}
		}
		where["id in"] = ids
	}
	if f.Category != "" {
		where["category"] = f.Category
	}
	if f.Status != "" {
		where["status"] = f.Status
	}
	if f.Kind != "" {
		// SQLite has no array-membership predicate for JSON text columns in
		// this build; substring match against the encoded array is the slow
		// but correct fallback.
		where["kinds_json like"] = `%"` + f.Kind + `"%`
	}
	if f.TagLike != "" {
		like := "%" + f.TagLike + "%"
		where["_or"] = []map[string]interface{}{
			{"tags_json like": like},
			{"hashtags_json like": like},
		}
	}
	if f.FromCtime > 0 {
		where["ctime >="] = f.FromCtime
	}
	if f.ToCtime > 0 {
		where["ctime <="] = f.ToCtime
	}
	return where
}

func (r *NoteRepo) List(ctx context.Context, filter NoteFilter, limit, offset uint, orderBy string) ([]*model.Note, error) {
	where := filter.whereClause()
	if orderBy == "" {
		orderBy = "ctime desc"
	}
	where["_orderby"] = orderBy
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("notes", where, noteColumns)
	if err != nil {
		return nil, err
	}
	var rows []noteRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	notes := make([]*model.Note, 0, len(rows))
	for i := range rows {
		note, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func (r *NoteRepo) Count(ctx context.Context, filter NoteFilter) (int, error) {
	sqlStr, args, err := builder.BuildSelect("notes", filter.whereClause(), []string{"count(1)"})
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.GetContext(ctx, &count, sqlStr, args...); err != nil {
		return 0, err
	}
	return count, nil
}

// CountByKind aggregates the derived kind sets of the filtered notes. A note
// carrying several kinds counts once per kind.
func (r *NoteRepo) CountByKind(ctx context.Context, filter NoteFilter) (map[string]int, int, error) {
	where := filter.whereClause()
	sqlStr, args, err := builder.BuildSelect("notes", where, []string{"kinds_json"})
	if err != nil {
		return nil, 0, err
	}
	var rows []string
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, 0, err
	}
	counts := make(map[string]int)
	for _, raw := range rows {
		var noteKinds []string
		if raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), &noteKinds); err != nil {
			continue
		}
		for _, kind := range noteKinds {
			counts[kind]++
		}
	}
	return counts, len(rows), nil
}

// ListMissingKinds returns notes whose derived kind data was never computed,
// for backfill.
func (r *NoteRepo) ListMissingKinds(ctx context.Context, limit uint) ([]*model.Note, error) {
	where := map[string]interface{}{
		"_or": []map[string]interface{}{
			{"primary_kind": ""},
			{"kinds_json": "[]"},
			{"kinds_json": ""},
		},
		"_orderby": "ctime asc",
		"_limit":   []uint{0, limit},
	}
	sqlStr, args, err := builder.BuildSelect("notes", where, noteColumns)
	if err != nil {
		return nil, err
	}
	var rows []noteRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	notes := make([]*model.Note, 0, len(rows))
	for i := range rows {
		note, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func (r *NoteRepo) ListByIDs(ctx context.Context, noteIDs []string) ([]*model.Note, error) {
	if len(noteIDs) == 0 {
		return []*model.Note{}, nil
	}
	query, args, err := sqlx.In("SELECT "+joinColumns(noteColumns)+" FROM notes WHERE id IN (?) ORDER BY ctime DESC", noteIDs)
	if err != nil {
		return nil, err
	}
	var rows []noteRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	notes := make([]*model.Note, 0, len(rows))
	for i := range rows {
		note, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// RewriteCategory moves every note of fromCategory to toCategory and returns
// the number of rewritten notes.
func (r *NoteRepo) RewriteCategory(ctx context.Context, tx *sqlx.Tx, fromCategory, toCategory string, mtime int64) (int64, error) {
	const query = `UPDATE notes SET category = ?, mtime = ? WHERE category = ?`
	result, err := tx.ExecContext(ctx, query, toCategory, mtime, fromCategory)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *NoteRepo) Delete(ctx context.Context, noteID string) error {
	where := map[string]interface{}{"id": noteID}
	sqlStr, args, err := builder.BuildDelete("notes", where)
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
		return appErr.ErrNoteNotFound
	}
	return nil
}

func (r *NoteRepo) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notes")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func joinColumns(columns []string) string {
	out := ""
	for idx, column := range columns {
		if idx > 0 {
			out += ", "
		}
		out += column
	}
	return out
}
