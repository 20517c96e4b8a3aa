package ingest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"BriefCast/internal/normalize"
)

// FullText downloads an article page and reduces it to plain text for the
// enrichment stage. Scripts, styles, and navigation chrome are discarded.
func (f *Fetcher) FullText(ctx context.Context, pageURL string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", "BriefCast/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if isDeadline(err) {
			return "", &TimeoutError{Source: pageURL, Err: err}
		}
		return "", fmt.Errorf("request %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page %s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page %s: %w", pageURL, err)
	}

	doc.Find("script, style, nav, header, footer, aside").Remove()

	container := doc.Find("article").First()
	if container.Length() == 0 {
		container = doc.Find("body").First()
	}
	return normalize.Text(container.Text()), nil
}
