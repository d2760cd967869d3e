package render

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "ListingFlow/1.0 (+preview)"

// Preview is the link card metadata of a public listing page.
type Preview struct {
	Title       string
	Description string
	Image       string
}

// PreviewFetcher reads Open Graph tags from listing pages.
type PreviewFetcher struct {
	client *http.Client
}

// NewPreviewFetcher builds a fetcher with its own timeout.
func NewPreviewFetcher(timeout time.Duration) *PreviewFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PreviewFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads pageURL and extracts its preview metadata.
func (f *PreviewFetcher) Fetch(ctx context.Context, pageURL string) (Preview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Preview{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Preview{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Preview{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Preview{}, fmt.Errorf("parse html: %w", err)
	}

	p := Preview{
		Title:       meta(doc, `meta[property="og:title"]`),
		Description: meta(doc, `meta[property="og:description"]`),
		Image:       meta(doc, `meta[property="og:image"]`),
	}
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if p.Description == "" {
		p.Description = meta(doc, `meta[name="description"]`)
	}
	return p, nil
}

func meta(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}
