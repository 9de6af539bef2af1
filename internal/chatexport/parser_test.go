package chatexport

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRows(t *testing.T) {
	input := "\uFEFFDate,User,Message\n" +
		"2025-07-06 14:39:55,me,first note\n" +
		"2025-07-06 14:39,me,second note\n" +
		"2025-07-06,me,third note\n" +
		"2025-07-06 14:40:00,me,\n" +
		"bad-date,me,no timestamp\n"
	rows, err := ParseRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "first note", rows[0].Message)
	require.Equal(t, "me", rows[0].User)
	require.Equal(t, time.Date(2025, 7, 6, 14, 39, 55, 0, time.Local), rows[0].Date)
	require.Equal(t, time.Date(2025, 7, 6, 14, 39, 0, 0, time.Local), rows[1].Date)
	require.Equal(t, time.Date(2025, 7, 6, 0, 0, 0, 0, time.Local), rows[2].Date)
	require.True(t, rows[3].Date.IsZero())
}

func TestParseRowsHeaderCaseInsensitive(t *testing.T) {
	input := " DATE , user , MESSAGE \n2025-01-01,me,hello\n"
	rows, err := ParseRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "hello", rows[0].Message)
}

func TestParseRowsMissingMessageColumn(t *testing.T) {
	_, err := ParseRows(strings.NewReader("Date,User\n2025-01-01,me\n"))
	require.Error(t, err)
}

func TestParseURLs(t *testing.T) {
	input := "Date,User,Message\n" +
		"2025-07-06,me,check https://example.com/a and https://example.com/b.\n" +
		"2025-07-07,me,again https://example.com/a\n" +
		"2025-07-08,me,no link here\n"
	urls, err := ParseURLs(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestParseURLsPlainList(t *testing.T) {
	input := "url\nhttps://example.com/1\nhttps://example.com/2\n"
	urls, err := ParseURLs(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, urls, 2)
}

func TestNoteTitle(t *testing.T) {
	require.Equal(t, "(memo)", NoteTitle("   "))
	require.Equal(t, "hello", NoteTitle("hello\nworld"))
	long := strings.Repeat("가", 60)
	title := NoteTitle(long)
	require.Equal(t, strings.Repeat("가", 50)+"…", title)
}

func TestSourceURLStable(t *testing.T) {
	ts := time.Date(2025, 7, 6, 14, 39, 55, 0, time.Local)
	require.Equal(t, "chat://me/2025-07-06T14:39:55_3", SourceURL(ts, 3))
	require.Equal(t, SourceURL(ts, 3), SourceURL(ts, 3))
	require.NotEqual(t, SourceURL(ts, 3), SourceURL(ts, 4))
}
