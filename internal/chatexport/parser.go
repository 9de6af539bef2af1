// Package chatexport parses messenger "export chat" CSV files, both the
// Date/User/Message transcript layout and plain URL list exports.
package chatexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xxxsen/linknote/internal/kinds"
)

// Row is one transcript message. Rows with an empty message are dropped
// during parsing.
type Row struct {
	Date    time.Time
	User    string
	Message string
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func stripBOM(value string) string {
	return strings.TrimPrefix(value, "\uFEFF")
}

// ParseRows reads a Date/User/Message transcript export. Header matching is
// case-insensitive and tolerates a UTF-8 BOM and padded column names.
func ParseRows(r io.Reader) ([]Row, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		name = strings.ToLower(strings.TrimSpace(stripBOM(name)))
		columns[name] = idx
	}
	messageIdx, ok := columns["message"]
	if !ok {
		return nil, fmt.Errorf("csv has no message column")
	}
	dateIdx, hasDate := columns["date"]
	userIdx, hasUser := columns["user"]

	rows := make([]Row, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if messageIdx >= len(record) {
			continue
		}
		message := strings.TrimSpace(record[messageIdx])
		if message == "" {
			continue
		}
		row := Row{Message: message}
		if hasUser && userIdx < len(record) {
			row.User = strings.TrimSpace(record[userIdx])
		}
		if hasDate && dateIdx < len(record) {
			if ts, ok := parseDate(record[dateIdx]); ok {
				row.Date = ts
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseURLs reads any CSV and collects the http(s) links found in its cells,
// deduplicated in first-seen order. Transcript exports work too because URL
// extraction runs over the message text.
func ParseURLs(r io.Reader) ([]string, error) {
	reader := newReader(r)
	seen := make(map[string]struct{})
	urls := make([]string, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		for _, cell := range record {
			for _, link := range kinds.ExtractURLs(stripBOM(cell)) {
				if _, dup := seen[link]; dup {
					continue
				}
				seen[link] = struct{}{}
				urls = append(urls, link)
			}
		}
	}
	return urls, nil
}

const (
	maxTitleRunes = 50
	defaultTitle  = "(memo)"
)

// NoteTitle derives a title from the first line of a message, truncated to
// 50 runes.
func NoteTitle(message string) string {
	firstLine := strings.TrimSpace(strings.SplitN(message, "\n", 2)[0])
	if firstLine == "" {
		return defaultTitle
	}
	runes := []rune(firstLine)
	if len(runes) > maxTitleRunes {
		return string(runes[:maxTitleRunes]) + "…"
	}
	return firstLine
}

// SourceURL builds a synthetic, stable source URL for a transcript message so
// re-importing the same export skips rows already stored. The row index keeps
// messages sent within the same second apart.
func SourceURL(date time.Time, index int) string {
	stamp := ""
	if !date.IsZero() {
		stamp = date.Format("2006-01-02T15:04:05")
	}
	return fmt.Sprintf("chat://me/%s_%d", stamp, index)
}
