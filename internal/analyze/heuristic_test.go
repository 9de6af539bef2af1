package analyze

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHeuristic(t *testing.T) Analyzer {
	t.Helper()
	analyzer, err := newHeuristicAnalyzer(map[string]interface{}{"default_category": "uncategorized"})
	require.NoError(t, err)
	return analyzer
}

func TestHeuristicAnalyzeLongContent(t *testing.T) {
	analyzer := newTestHeuristic(t)
	content := strings.Repeat("The programming language compiles code quickly. ", 20) +
		"Developers like the api server and database tooling. #golang"
	result, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		Content:       content,
		SummaryLength: "standard",
		AutoCategory:  true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Title)
	require.NotEmpty(t, result.SummaryShort)
	require.NotEmpty(t, result.SummaryLong)
	require.NotEmpty(t, result.Tags)
	require.Equal(t, []string{"#golang"}, result.Hashtags)
	require.Equal(t, "dev", result.Category)
	require.False(t, result.LowContent)
	require.GreaterOrEqual(t, result.Confidence, 0.1)
	require.LessOrEqual(t, result.Confidence, 0.95)
}

func TestHeuristicLowContentFlag(t *testing.T) {
	analyzer := newTestHeuristic(t)
	result, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		Content:       "Too short to mean much.",
		SummaryLength: "standard",
	})
	require.NoError(t, err)
	require.True(t, result.LowContent)
}

func TestHeuristicAutoCategoryDisabled(t *testing.T) {
	analyzer := newTestHeuristic(t)
	result, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		Content:      "programming code api server database",
		AutoCategory: false,
	})
	require.NoError(t, err)
	require.Equal(t, "uncategorized", result.Category)
}

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	sentences := []string{
		"alpha beta gamma",
		"noise",
		"alpha beta delta epsilon",
		"alpha alpha beta beta gamma gamma",
	}
	freqs := termFrequencies(strings.Join(sentences, ". "))
	summary := summarize(sentences, freqs, 2)
	parts := strings.Split(summary, ". ")
	require.Len(t, parts, 2)
	first := indexOf(sentences, parts[0])
	second := indexOf(sentences, parts[1])
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	require.Less(t, first, second)
}

func indexOf(list []string, value string) int {
	for idx, item := range list {
		if item == value {
			return idx
		}
	}
	return -1
}

func TestParseAnalysisPayloadStrict(t *testing.T) {
	valid := `{"title":"t","summary_short":"s","summary_long":"l","tags":["a"],"hashtags":[],"category":"dev","confidence":0.8,"low_content":false}`
	payload, err := parseAnalysisPayload(valid, AnalyzeRequest{AutoCategory: true})
	require.NoError(t, err)
	require.Equal(t, "t", payload.Title)
	require.Equal(t, "dev", payload.Category)

	_, err = parseAnalysisPayload("not json at all", AnalyzeRequest{})
	require.Error(t, err)

	_, err = parseAnalysisPayload(`{"title":"t","confidence":2.5}`, AnalyzeRequest{})
	require.Error(t, err)

	_, err = parseAnalysisPayload(`{"title":"t","unexpected_field":1}`, AnalyzeRequest{})
	require.Error(t, err)
}

func TestNewAnalyzerUnknownProviderIsError(t *testing.T) {
	_, err := NewAnalyzer("definitely-not-registered", nil)
	require.Error(t, err)
}
