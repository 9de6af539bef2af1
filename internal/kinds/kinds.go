// Package kinds classifies note content into a multi-label kind set based on
// the note's own source URL and any http(s) URLs embedded in its text. The
// classifier is pure: no I/O, deterministic for identical input.
package kinds

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

type Kind string

const (
	KindPlainText     Kind = "plain_text"
	KindYoutube       Kind = "youtube"
	KindInstagramPost Kind = "instagram_post"
	KindInstagramReel Kind = "instagram_reel"
	KindThreads       Kind = "threads"
	KindOtherLink     Kind = "other_link"
)

// Order is the fixed taxonomy order. Kind sets are always returned in this
// order, regardless of discovery order in the scanned text.
var Order = []Kind{
	KindPlainText,
	KindYoutube,
	KindInstagramPost,
	KindInstagramReel,
	KindThreads,
	KindOtherLink,
}

var kindRank = func() map[Kind]int {
	ranks := make(map[Kind]int, len(Order))
	for idx, kind := range Order {
		ranks[kind] = idx
	}
	return ranks
}()

const (
	maxScanChars = 50000
	maxURLs      = 50
)

const trailingPunctuation = ").,!?]}"

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>]+`)

var youtubeHosts = map[string]struct{}{
	"youtube.com":     {},
	"www.youtube.com": {},
	"m.youtube.com":   {},
	"youtu.be":        {},
}

// Valid reports whether name is a recognized kind label.
func Valid(name string) bool {
	_, ok := kindRank[Kind(name)]
	return ok
}

// Input holds the note fields the classifier scans. All fields are optional.
type Input struct {
	SourceURL    string
	ContentFull  string
	SummaryShort string
	SummaryLong  string
}

// Result carries the primary kind and the ordered, deduplicated kind set.
// The kind set always contains the primary kind.
type Result struct {
	PrimaryKind Kind
	Kinds       []Kind
}

// ExtractURLs returns http(s) URLs embedded in text, trailing punctuation
// stripped. The scan is capped at maxScanChars and maxURLs to bound cost.
func ExtractURLs(text string) []string {
	scanned := text
	if len(scanned) > maxScanChars {
		scanned = scanned[:maxScanChars]
	}
	urls := make([]string, 0)
	for _, match := range urlPattern.FindAllString(scanned, -1) {
		candidate := strings.TrimRight(match, trailingPunctuation)
		if candidate == "" {
			continue
		}
		urls = append(urls, candidate)
		if len(urls) >= maxURLs {
			break
		}
	}
	return urls
}

// ClassifyURL maps a single URL to its kind. Non-http(s) schemes (including
// unparseable input) classify as plain_text.
func ClassifyURL(raw string) Kind {
	parsed, err := url.Parse(raw)
	if err != nil {
		return KindPlainText
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return KindPlainText
	}
	host := strings.ToLower(parsed.Hostname())
	path := strings.ToLower(parsed.Path)

	if _, ok := youtubeHosts[host]; ok {
		return KindYoutube
	}
	if isInstagramHost(host) && (strings.Contains(path, "/reel/") || strings.Contains(path, "/reels/")) {
		return KindInstagramReel
	}
	if isInstagramHost(host) && (strings.Contains(path, "/p/") || strings.Contains(path, "/tv/")) {
		return KindInstagramPost
	}
	if strings.HasSuffix(host, "threads.net") && strings.Contains(path, "/post/") {
		return KindThreads
	}
	return KindOtherLink
}

// Compute derives the primary kind from the source URL and unions in the
// kinds of every URL embedded in the note's text fields.
func Compute(in Input) Result {
	primary := KindPlainText
	if parsed, err := url.Parse(in.SourceURL); err == nil {
		scheme := strings.ToLower(parsed.Scheme)
		if scheme == "http" || scheme == "https" {
			primary = ClassifyURL(in.SourceURL)
		}
	}

	text := strings.Join([]string{in.SourceURL, in.ContentFull, in.SummaryShort, in.SummaryLong}, "\n")
	set := map[Kind]struct{}{primary: {}}
	for _, embedded := range ExtractURLs(text) {
		set[ClassifyURL(embedded)] = struct{}{}
	}

	ordered := make([]Kind, 0, len(set))
	for kind := range set {
		ordered = append(ordered, kind)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return kindRank[ordered[i]] < kindRank[ordered[j]]
	})
	return Result{PrimaryKind: primary, Kinds: ordered}
}

func isInstagramHost(host string) bool {
	return strings.HasSuffix(host, "instagram.com") || host == "instagr.am"
}
