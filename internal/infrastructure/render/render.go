package render

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"ListingFlow/internal/dispatch"
	"ListingFlow/internal/domain"
)

// DefaultExcerptLength is the rune budget of a message excerpt.
const DefaultExcerptLength = 280

const blockSelector = "p, div, li, br, h1, h2, h3, h4, h5, h6, tr, blockquote"

// Compose turns a fired trigger into an outbound message. Explicit payload
// keys (text, image) win over values derived from the summary markup.
func Compose(event domain.DispatchEvent, limit int) dispatch.Message {
	payload := event.Payload
	msg := dispatch.Message{
		Channel:    event.Channel,
		ContentID:  event.ContentID,
		ScheduleID: event.ScheduleID,
		Title:      strings.TrimSpace(payload["title"]),
		URL:        strings.TrimSpace(payload["url"]),
		Text:       strings.TrimSpace(payload["text"]),
		ImageURL:   strings.TrimSpace(payload["image"]),
		Payload:    payload.Clone(),
	}

	summary := payload["summary"]
	if summary == "" {
		return msg
	}
	doc, err := parseFragment(summary)
	if err != nil {
		if msg.Text == "" {
			msg.Text = Truncate(collapse(summary), limit)
		}
		return msg
	}
	if msg.Text == "" {
		msg.Text = Truncate(plainText(doc), limit)
	}
	if msg.ImageURL == "" {
		msg.ImageURL = firstImage(doc)
	}
	return msg
}

// Truncate cuts text to at most limit runes, preferring a word boundary, and
// marks the cut with an ellipsis. A non-positive limit uses the default.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		limit = DefaultExcerptLength
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:limit-1])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)*4/5 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.-") + "…"
}

func parseFragment(fragment string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(fragment))
}

func plainText(doc *goquery.Document) string {
	doc.Find("script, style").Remove()
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})
	return collapse(doc.Text())
}

func firstImage(doc *goquery.Document) string {
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
