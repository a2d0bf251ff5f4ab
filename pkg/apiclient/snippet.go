package apiclient

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxSnippetBytes  = 512
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
)

// condenseBody reduces a response body to something fit for an error
// message. HTML error pages (CDN and anti-bot interstitials mostly) collapse
// to their title; everything else is trimmed and truncated.
func condenseBody(body []byte) string {
	if title := htmlTitle(body); title != "" {
		return title
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippetBytes {
		return s[:maxSnippetBytes] + "..."
	}
	return s
}

// htmlTitle extracts a title from an HTML document, preferring og:title over
// the title element. Non-HTML bodies return "".
func htmlTitle(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return ""
	}
	if len(trimmed) > maxHTMLBodyBytes {
		trimmed = trimmed[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
	if err != nil {
		return ""
	}

	if node := doc.Find(`meta[property="og:title"]`).First(); node.Length() > 0 {
		if val, ok := node.Attr("content"); ok {
			if title := strings.TrimSpace(val); title != "" {
				return title
			}
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
