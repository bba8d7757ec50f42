package brave

import (
	"html"
	"regexp"
	"strings"
)

var (
	articleTag     = regexp.MustCompile(`(?is)<article(?:\s[^>]*)?>(.*?)</article>`)
	mainTag        = regexp.MustCompile(`(?is)<main(?:\s[^>]*)?>(.*?)</main>`)
	droppedTags    = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg|nav|footer|form)(\s[^>]*)?>.*?</(script|style|noscript|head|svg|nav|footer|form)>`)
	comments       = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockBoundary  = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|br|hr)(\s[^>]*)?/?>`)
	anyTag         = regexp.MustCompile(`<[^>]+>`)
	horizontalRuns = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// extractText turns an HTML page into readable text. When the page has an
// <article> or <main> element only that part is kept.
func extractText(page string) string {
	if m := articleTag.FindStringSubmatch(page); m != nil {
		page = m[1]
	} else if m := mainTag.FindStringSubmatch(page); m != nil {
		page = m[1]
	}

	page = droppedTags.ReplaceAllString(page, "")
	page = comments.ReplaceAllString(page, "")
	page = blockBoundary.ReplaceAllString(page, "\n")
	page = anyTag.ReplaceAllString(page, "")
	page = html.UnescapeString(page)
	page = horizontalRuns.ReplaceAllString(page, " ")

	lines := strings.Split(page, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
