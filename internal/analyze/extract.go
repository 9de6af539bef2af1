package analyze

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// containerSelectors are tried most-specific first; the whole document body
// is the final fallback.
var containerSelectors = []string{
	"article",
	"main",
	`[role="main"]`,
	"body",
}

// ExtractMainContent locates the most specific content container in html,
// strips script/style noise and returns the flattened text. An empty result
// means no usable text was found after all fallbacks.
func ExtractMainContent(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, template, iframe").Remove()

	for _, selector := range containerSelectors {
		var best string
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := flattenText(sel.Text())
			if len(text) > len(best) {
				best = text
			}
		})
		if best != "" {
			return best
		}
	}
	return flattenText(doc.Text())
}

func flattenText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
