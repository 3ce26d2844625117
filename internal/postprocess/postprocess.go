// Package postprocess turns raw generative output into WhatsApp-safe
// plain text and harvests the reusable state (offered course and its
// registration link) for later follow-ups.
//
// The pipeline is an ordered sequence of named total text transforms.
// Order matters: link and title extraction run first, before the
// rewrites destroy the markup they match.
package postprocess

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/puntodigital/cursosbot/internal/memory"
	"github.com/puntodigital/cursosbot/internal/metrics"
)

var (
	markdownLink = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^\s)]+)\)`)
	bareLink     = regexp.MustCompile(`https?://[^\s<>"')]+`)
	boldTitle    = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	starTitle    = regexp.MustCompile(`\*([^*\n]+)\*`)

	// Date-like substrings inside double emphasis: "5 de enero",
	// "5 de enero de 2026", "05/01", "5/1/2026".
	boldDate = regexp.MustCompile(`\*\*\s*(\d{1,2}(?:/\d{1,2}(?:/\d{2,4})?|\s+de\s+\p{L}+(?:\s+de\s+\d{4})?))\s*\*\*`)

	doubleEmphasis = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	anchorTag      = regexp.MustCompile(`(?is)<a\s+[^>]*href\s*=\s*["']?(https?://[^\s"'>]+)["']?[^>]*>(.*?)</a>`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	blankLines     = regexp.MustCompile(`\n{3,}`)
)

// ExtractedLink is a registration link pulled from a reply, with the
// course title when one was emphasized nearby.
type ExtractedLink struct {
	Title string
	URL   string
}

// ExtractLink finds the first registration-style link in raw backend
// output, checking markdown links, anchor tags and bare URLs in that
// order. The title comes from the first emphasized span, if any.
func ExtractLink(raw string) (ExtractedLink, bool) {
	link := ExtractedLink{Title: extractTitle(raw)}

	if m := markdownLink.FindStringSubmatch(raw); m != nil {
		link.URL = m[2]
		if link.Title == "" {
			link.Title = strings.TrimSpace(m[1])
		}
		return link, true
	}

	if url, text, ok := extractAnchor(raw); ok {
		link.URL = url
		if link.Title == "" {
			link.Title = text
		}
		return link, true
	}

	if url := bareLink.FindString(raw); url != "" {
		link.URL = strings.TrimRight(url, ".,;")
		return link, true
	}

	return ExtractedLink{}, false
}

// extractAnchor parses anchor tags with goquery, tolerating the
// malformed attribute quoting models occasionally emit.
func extractAnchor(raw string) (url, text string, ok bool) {
	if !strings.Contains(raw, "<a") {
		return "", "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err == nil {
		anchor := doc.Find("a[href]").First()
		if href, exists := anchor.Attr("href"); exists && strings.HasPrefix(href, "http") {
			return href, strings.TrimSpace(anchor.Text()), true
		}
	}

	if m := anchorTag.FindStringSubmatch(raw); m != nil {
		return m[1], strings.TrimSpace(htmlTag.ReplaceAllString(m[2], "")), true
	}
	return "", "", false
}

func extractTitle(raw string) string {
	if m := boldTitle.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := starTitle.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// DeEmphasizeDates removes double emphasis around date-like substrings.
func DeEmphasizeDates(text string) string {
	return boldDate.ReplaceAllString(text, "$1")
}

// ReEmphasize rewrites the remaining double-emphasis markers to the
// single asterisk WhatsApp uses for bold.
func ReEmphasize(text string) string {
	return doubleEmphasis.ReplaceAllString(text, "*$1*")
}

// Delink rewrites markdown links and anchor tags to plain "text: url".
func Delink(text string) string {
	text = markdownLink.ReplaceAllStringFunc(text, func(m string) string {
		parts := markdownLink.FindStringSubmatch(m)
		label := strings.TrimSpace(parts[1])
		if label == "" {
			return parts[2]
		}
		return label + ": " + parts[2]
	})
	return anchorTag.ReplaceAllStringFunc(text, func(m string) string {
		parts := anchorTag.FindStringSubmatch(m)
		label := strings.TrimSpace(htmlTag.ReplaceAllString(parts[2], ""))
		if label == "" {
			return parts[1]
		}
		return label + ": " + parts[1]
	})
}

// StripTags removes any remaining markup tags.
func StripTags(text string) string {
	return htmlTag.ReplaceAllString(text, "")
}

// transforms is the fixed rewrite order applied after extraction.
var transforms = []struct {
	name string
	fn   func(string) string
}{
	{"de_emphasize_dates", DeEmphasizeDates},
	{"re_emphasize", ReEmphasize},
	{"delink", Delink},
	{"strip_tags", StripTags},
}

// Clean applies the rewrite chain to raw backend output, returning
// WhatsApp-safe plain text.
func Clean(raw string) string {
	text := raw
	for _, t := range transforms {
		text = t.fn(text)
	}
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Processor runs the full post-processing step: transform the reply
// and write the conversation state back to memory.
type Processor struct {
	memory        *memory.Store
	metrics       *metrics.Metrics
	messageMaxLen int
}

// NewProcessor creates a post-processor.
func NewProcessor(mem *memory.Store, m *metrics.Metrics, messageMaxLen int) *Processor {
	return &Processor{memory: mem, metrics: m, messageMaxLen: messageMaxLen}
}

// Process cleans a generated reply, records the offered course when a
// registration link is present, and appends both turns to the chat
// history. Returns the text to deliver.
func (p *Processor) Process(chatID, userMessage, raw string) string {
	if link, ok := ExtractLink(raw); ok {
		p.memory.SetLastSuggested(chatID, memory.SuggestedCourse{
			Titulo:     link.Title,
			Formulario: link.URL,
		})
		p.metrics.RecordLinkExtraction()
	}

	final := Clean(raw)

	p.memory.AppendTurn(chatID, memory.RoleUser, memory.ClampText(userMessage, p.messageMaxLen))
	p.memory.AppendTurn(chatID, memory.RoleAssistant, memory.ClampText(final, p.messageMaxLen))

	return final
}
