package repo

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
)

// SearchScope selects which indexed columns a free-text query runs against.
type SearchScope string

const (
	ScopeAll          SearchScope = "all"
	ScopeTitleSummary SearchScope = "title_summary"
	ScopeTags         SearchScope = "tags"
	ScopeFullContent  SearchScope = "full_content"
)

func ValidScope(scope string) bool {
	switch SearchScope(scope) {
	case ScopeAll, ScopeTitleSummary, ScopeTags, ScopeFullContent:
		return true
	}
	return false
}

type FTSRepo struct {
	db *sqlx.DB
}

func NewFTSRepo(db *sqlx.DB) *FTSRepo {
	return &FTSRepo{db: db}
}

// Upsert replaces the indexed text of a note. The virtual table has no
// unique constraint on note_id, so delete-then-insert keeps one row per note.
func (r *FTSRepo) Upsert(ctx context.Context, noteID, title, summaryShort, summaryLong, tags, content string) error {
	_ = r.Delete(ctx, noteID)
	data := map[string]interface{}{
		"note_id":       noteID,
		"title":         title,
		"summary_short": summaryShort,
		"summary_long":  summaryLong,
		"tags":          tags,
		"content":       content,
	}
	sqlStr, args, err := builder.BuildInsert("notes_fts", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *FTSRepo) Delete(ctx context.Context, noteID string) error {
	where := map[string]interface{}{"note_id": noteID}
	sqlStr, args, err := builder.BuildDelete("notes_fts", where)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *FTSRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM notes_fts")
	return err
}

func (r *FTSRepo) SearchNoteIDs(ctx context.Context, query string, scope SearchScope, limit uint) ([]string, error) {
	match := buildMatchExpr(query, scope)
	if match == "" {
		return []string{}, nil
	}
	where := map[string]interface{}{
		"_custom_match": builder.Custom("notes_fts MATCH ?", match),
		"_orderby":      "rank",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("notes_fts", where, []string{"note_id"})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, sqlStr, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

// Snippet is a match excerpt for one note, taken from the best matching
// indexed column.
type Snippet struct {
	NoteID  string `db:"note_id"`
	Excerpt string `db:"excerpt"`
}

const snippetTokens = 12

func (r *FTSRepo) SearchSnippets(ctx context.Context, query string, scope SearchScope, limit uint) ([]Snippet, error) {
	match := buildMatchExpr(query, scope)
	if match == "" {
		return []Snippet{}, nil
	}
	sqlStr := fmt.Sprintf(
		"SELECT note_id, snippet(notes_fts, -1, '[', ']', '…', %d) AS excerpt FROM notes_fts WHERE notes_fts MATCH ? ORDER BY rank LIMIT ?",
		snippetTokens,
	)
	snippets := make([]Snippet, 0)
	if err := r.db.SelectContext(ctx, &snippets, sqlStr, match, limit); err != nil {
		return nil, err
	}
	return snippets, nil
}

func buildMatchExpr(query string, scope SearchScope) string {
	cleaned := sanitizeFTSQuery(query)
	if cleaned == "" {
		return ""
	}
	switch scope {
	case ScopeTitleSummary:
		return "{title summary_short summary_long} : (" + cleaned + ")"
	case ScopeTags:
		return "{tags} : (" + cleaned + ")"
	case ScopeFullContent:
		return "{content} : (" + cleaned + ")"
	default:
		return cleaned
	}
}

// sanitizeFTSQuery reduces free text to quoted phrase tokens. Quoting keeps
// bare operator words like NOT or OR literal instead of MATCH syntax.
func sanitizeFTSQuery(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	var sb strings.Builder
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(' ')
	}
	tokens := strings.Fields(sb.String())
	for idx, token := range tokens {
		tokens[idx] = `"` + token + `"`
	}
	return strings.Join(tokens, " ")
}
