package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// maxConsecutiveBRs caps runs of <br> elements.
const maxConsecutiveBRs = 2

var (
	// nbspPattern matches both the HTML entity &nbsp; (case insensitive) and
	// the unicode non-breaking space character (U+00A0).
	nbspPattern = regexp.MustCompile("(?i)&nbsp;|\xc2\xa0")

	codeLanguageClass = regexp.MustCompile(`^language-[\w+-]+$`)
	checkboxType      = regexp.MustCompile(`^checkbox$`)

	emptyInlineSelector = strings.Join([]string{
		"a", "abbr", "b", "cite", "code", "del", "em", "i", "mark", "q",
		"s", "small", "span", "strong", "sub", "sup", "u",
	}, ", ")
)

// ExtractHTMLBody extracts the body content from a full HTML document. If no
// body tag exists, the input is returned unchanged.
func ExtractHTMLBody() TransformerFunc {
	return func(input []byte) ([]byte, error) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML document: %w", err)
		}
		body := doc.Find("body")
		if body.Length() == 0 {
			return input, nil
		}
		inner, err := body.Html()
		if err != nil {
			return nil, fmt.Errorf("failed to extract HTML body: %w", err)
		}
		return []byte(inner), nil
	}
}

// NormalizeNBSP replaces non-breaking space entities and characters with
// regular spaces. Operates on raw input before HTML parsing.
func NormalizeNBSP() TransformerFunc {
	return func(input []byte) ([]byte, error) {
		return nbspPattern.ReplaceAll(input, []byte{' '}), nil
	}
}

// SanitizeHTML strips unsupported tags and attributes from HTML input.
func SanitizeHTML() TransformerFunc {
	policy := notesPolicy()
	return func(input []byte) ([]byte, error) {
		return policy.SanitizeBytes(input), nil
	}
}

// notesPolicy is a narrowed [bluemonday.UGCPolicy]. Differences:
//
//   - links open in a new tab without a referrer
//   - no images, to avoid hot-linking from the dashboard
//   - read-only task list checkboxes rendered from GFM
//   - language classes on code blocks
func notesPolicy() *bluemonday.Policy {
	policy := bluemonday.NewPolicy()

	policy.AllowStandardAttributes()

	policy.AllowStandardURLs()
	policy.RequireNoReferrerOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	policy.AllowElements(
		"abbr",
		"b",
		"blockquote",
		"br",
		"code",
		"del",
		"details",
		"div",
		"em",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"hr",
		"i",
		"ins",
		"kbd",
		"mark",
		"p",
		"pre",
		"s",
		"small",
		"strong",
		"sub",
		"summary",
		"sup",
		"u",
	)

	policy.AllowAttrs("href").
		OnElements("a")
	policy.AllowAttrs("class").
		Matching(codeLanguageClass).
		OnElements("code")
	policy.AllowAttrs("type").
		Matching(checkboxType).
		OnElements("input")
	policy.AllowAttrs("checked", "disabled").
		OnElements("input")

	policy.AllowLists()
	policy.AllowTables()

	return policy
}

// ScrubHTML removes empty inline elements and collapses long runs of <br>
// elements. It should be applied after sanitization.
func ScrubHTML() TransformerFunc {
	return func(input []byte) ([]byte, error) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML: %w", err)
		}
		body := doc.Find("body")
		if body.Length() == 0 {
			body = doc.Selection
		}
		removeEmptyInlineElements(body)
		collapseExcessiveBRs(body)
		out, err := body.Html()
		if err != nil {
			return nil, fmt.Errorf("failed to render scrubbed HTML: %w", err)
		}
		return []byte(out), nil
	}
}

// removeEmptyInlineElements repeats until no more are found, since removing an
// element may leave its parent empty.
func removeEmptyInlineElements(sel *goquery.Selection) {
	for {
		removed := false
		sel.Find(emptyInlineSelector).Each(func(_ int, el *goquery.Selection) {
			if strings.TrimSpace(el.Text()) == "" && el.Children().Length() == 0 {
				el.Remove()
				removed = true
			}
		})
		if !removed {
			return
		}
	}
}

func collapseExcessiveBRs(sel *goquery.Selection) {
	sel.Find("br").Each(func(_ int, br *goquery.Selection) {
		node := br.Get(0)
		if node.Parent == nil {
			return // removed as part of an earlier run
		}
		count := 1
		for sib := node.NextSibling; sib != nil; {
			next := sib.NextSibling
			switch {
			case sib.Type == html.TextNode && strings.TrimSpace(sib.Data) == "":
			case sib.Type == html.ElementNode && sib.Data == "br":
				if count++; count > maxConsecutiveBRs {
					sib.Parent.RemoveChild(sib)
				}
			default:
				return
			}
			sib = next
		}
	})
}
