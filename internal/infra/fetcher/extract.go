package fetcher

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// articleSelectors are tried in order against the parsed page. The first
// selection with a substantial amount of text wins.
var articleSelectors = []string{
	"article",
	"main",
	"[role=main]",
	".article-body",
	".article-content",
	".post-content",
	".entry-content",
	".story-body",
	"#content",
}

// boilerplateSelectors match elements removed before any text extraction.
var boilerplateSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer", "aside", "form",
	".ad", ".ads", ".advertisement", ".social-share",
	".related-articles", ".newsletter-signup", ".comments",
}

// minExtractedRunes is the smallest selector-extracted text considered a
// real article body rather than a teaser fragment.
const minExtractedRunes = 200

// extractBySelectors pulls main-article text from raw HTML using selector
// heuristics, falling back to the largest text block when no known
// container matches. Returns "" when nothing substantial is found.
func extractBySelectors(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}

	for _, sel := range boilerplateSelectors {
		doc.Find(sel).Remove()
	}

	for _, sel := range articleSelectors {
		text := collapseText(doc.Find(sel).First().Text())
		if len([]rune(text)) >= minExtractedRunes {
			return text
		}
	}

	return largestTextBlock(doc)
}

// largestTextBlock returns the text of the densest block-level element.
// Blocks are measured by their own text length, so a wrapper div does not
// beat the paragraph cluster inside it: paragraph text is attributed to the
// nearest paragraph container.
func largestTextBlock(doc *goquery.Document) string {
	var best string
	doc.Find("div, section, td").Each(func(_ int, s *goquery.Selection) {
		// Measure only paragraph children to avoid counting nested
		// wrappers twice.
		var sb strings.Builder
		s.ChildrenFiltered("p").Each(func(_ int, p *goquery.Selection) {
			sb.WriteString(p.Text())
			sb.WriteString(" ")
		})
		text := collapseText(sb.String())
		if len(text) > len(best) {
			best = text
		}
	})

	if len([]rune(best)) < minExtractedRunes {
		return ""
	}
	return best
}

func collapseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
