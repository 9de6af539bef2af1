package analyze

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// heuristicAnalyzer is the local, no-network default: sentences are scored
// by term frequency with a log length penalty, the summary is the top
// sentences re-ordered by original position, tags are the most frequent
// significant tokens and the category comes from keyword-set membership.
type heuristicAnalyzer struct {
	defaultCategory string
}

type heuristicConfig struct {
	DefaultCategory string `json:"default_category"`
}

const (
	lowContentRunes = 500
	maxTitleRunes   = 80
	maxTagCount     = 5
	maxHashtags     = 10
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "you": {}, "your": {}, "we": {}, "our": {},
	"not": {}, "can": {}, "they": {}, "their": {}, "there": {},
}

// categoryKeywords maps category names to the keyword sets that vote for
// them. First category whose keyword set intersects the text wins; iteration
// follows categoryOrder so the result is deterministic.
var categoryKeywords = map[string][]string{
	"dev":      {"code", "programming", "developer", "api", "server", "database", "golang", "python", "javascript", "github"},
	"news":     {"news", "report", "breaking", "announced", "government", "election", "police"},
	"video":    {"video", "watch", "youtube", "episode", "stream", "channel"},
	"shopping": {"price", "sale", "discount", "shipping", "product", "review", "buy"},
	"travel":   {"travel", "trip", "hotel", "flight", "tour", "destination"},
	"food":     {"recipe", "restaurant", "food", "cooking", "menu", "delicious"},
	"finance":  {"stock", "invest", "market", "fund", "interest", "economy", "crypto"},
}

var categoryOrder = []string{"dev", "news", "video", "shopping", "travel", "food", "finance"}

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

func newHeuristicAnalyzer(args interface{}) (Analyzer, error) {
	cfg := &heuristicConfig{}
	if args != nil {
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = "uncategorized"
	}
	return &heuristicAnalyzer{defaultCategory: cfg.DefaultCategory}, nil
}

func (a *heuristicAnalyzer) Name() string {
	return "heuristic"
}

func (a *heuristicAnalyzer) Analyze(_ context.Context, req AnalyzeRequest) (*Analysis, error) {
	content := strings.TrimSpace(req.Content)
	sentences := splitSentences(content)
	freqs := termFrequencies(content)

	shortN, longN := summarySentenceCounts(req.SummaryLength)
	result := &Analysis{
		Title:        deriveTitle(sentences),
		SummaryShort: summarize(sentences, freqs, shortN),
		SummaryLong:  summarize(sentences, freqs, longN),
		Tags:         topTokens(freqs, maxTagCount),
		Hashtags:     extractHashtags(content),
		Category:     a.defaultCategory,
		Confidence:   lexicalDiversity(content),
		LowContent:   utf8.RuneCountInString(content) < lowContentRunes,
	}
	if req.AutoCategory {
		if category := matchCategory(freqs); category != "" {
			result.Category = category
		}
	}
	return result, nil
}

func summarySentenceCounts(length string) (short int, long int) {
	if length == "short" {
		return 1, 3
	}
	return 2, 5
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isSignificant(token string) bool {
	if utf8.RuneCountInString(token) < 2 {
		return false
	}
	_, stop := stopwords[token]
	return !stop
}

func termFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	for _, token := range tokenize(text) {
		if isSignificant(token) {
			freqs[token]++
		}
	}
	return freqs
}

// summarize picks the count highest-scoring sentences and joins them back in
// original order so the summary reads in document order.
func summarize(sentences []string, freqs map[string]int, count int) string {
	if len(sentences) == 0 || count <= 0 {
		return ""
	}
	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, 0, len(sentences))
	for idx, sentence := range sentences {
		tokens := tokenize(sentence)
		sum := 0
		for _, token := range tokens {
			if isSignificant(token) {
				sum += freqs[token]
			}
		}
		penalty := 1 + math.Log(float64(len(tokens))+1)
		ranked = append(ranked, scored{index: idx, score: float64(sum) / penalty})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if count > len(ranked) {
		count = len(ranked)
	}
	selected := ranked[:count]
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].index < selected[j].index
	})
	picked := make([]string, 0, len(selected))
	for _, item := range selected {
		picked = append(picked, sentences[item.index])
	}
	return strings.Join(picked, ". ")
}

func topTokens(freqs map[string]int, limit int) []string {
	tokens := make([]string, 0, len(freqs))
	for token := range freqs {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if freqs[tokens[i]] != freqs[tokens[j]] {
			return freqs[tokens[i]] > freqs[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if limit > len(tokens) {
		limit = len(tokens)
	}
	return tokens[:limit]
}

func extractHashtags(text string) []string {
	seen := make(map[string]struct{})
	hashtags := make([]string, 0)
	for _, match := range hashtagPattern.FindAllString(text, -1) {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		hashtags = append(hashtags, match)
		if len(hashtags) >= maxHashtags {
			break
		}
	}
	return hashtags
}

func matchCategory(freqs map[string]int) string {
	for _, category := range categoryOrder {
		for _, keyword := range categoryKeywords[category] {
			if freqs[keyword] > 0 {
				return category
			}
		}
	}
	return ""
}

func deriveTitle(sentences []string) string {
	if len(sentences) == 0 {
		return ""
	}
	title := sentences[0]
	if utf8.RuneCountInString(title) > maxTitleRunes {
		runes := []rune(title)
		title = string(runes[:maxTitleRunes]) + "…"
	}
	return title
}

// lexicalDiversity is the unique/total token ratio clamped to [0.1, 0.95];
// richer vocabularies read as higher analysis confidence.
func lexicalDiversity(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0.1
	}
	unique := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		unique[token] = struct{}{}
	}
	ratio := float64(len(unique)) / float64(len(tokens))
	if ratio < 0.1 {
		return 0.1
	}
	if ratio > 0.95 {
		return 0.95
	}
	return ratio
}

func init() {
	Register("heuristic", newHeuristicAnalyzer)
}
