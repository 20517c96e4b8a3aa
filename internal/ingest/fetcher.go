// Package ingest fetches candidate items from configured feeds with
// bounded concurrency, per-request deadlines, and retry on transient
// failures. A failing source yields partial batch results, not an abort.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"BriefCast/internal/domain"
	"BriefCast/internal/normalize"
)

// Options bound the fetch batch.
type Options struct {
	MaxItemsPerSource int
	Timeout           time.Duration
	Concurrency       int
	Attempts          int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxItemsPerSource <= 0 {
		o.MaxItemsPerSource = 10
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Second
	}
	return o
}

// Fetcher pulls stories from RSS/Atom sources.
type Fetcher struct {
	client *http.Client
	opts   Options
	logger *slog.Logger
}

// NewFetcher wires an HTTP client; a nil client gets a default with the
// configured per-request timeout.
func NewFetcher(client *http.Client, opts Options, logger *slog.Logger) *Fetcher {
	opts = opts.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{client: client, opts: opts, logger: logger}
}

// Fetch retrieves stories from all enabled sources. At most
// Options.Concurrency fetches are in flight at once; each source is retried
// on transient failures and surfaced in the returned error slice when it
// ultimately fails. Results carry no cross-source ordering guarantee.
func (f *Fetcher) Fetch(ctx context.Context, sources []domain.Source) ([]domain.Story, []*SourceError) {
	var (
		mu       sync.Mutex
		stories  []domain.Story
		failures []*SourceError
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.opts.Concurrency)

	for _, source := range sources {
		if !source.Enabled {
			continue
		}
		source := source
		group.Go(func() error {
			items, err := f.fetchSource(groupCtx, source)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.debug("source failed", "source", source.Name, "error", err.Error())
				failures = append(failures, &SourceError{Source: source.Name, Err: err})
				return nil
			}
			f.debug("source fetched", "source", source.Name, "count", fmt.Sprint(len(items)))
			stories = append(stories, items...)
			return nil
		})
	}

	// Workers never return errors; per-source failures are collected above.
	_ = group.Wait()
	return stories, failures
}

// fetchSource retrieves one feed with retry/backoff applied to transient
// failure classes only.
func (f *Fetcher) fetchSource(ctx context.Context, source domain.Source) ([]domain.Story, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.opts.InitialBackoff
	policy.MaxInterval = f.opts.MaxBackoff

	var body []byte
	operation := func() error {
		data, err := f.download(ctx, source)
		if err != nil {
			return err
		}
		body = data
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(f.opts.Attempts-1)), ctx))
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source.URL, err)
	}

	items := parsed.Items
	if len(items) > f.opts.MaxItemsPerSource {
		items = items[:f.opts.MaxItemsPerSource]
	}

	stories := make([]domain.Story, 0, len(items))
	for _, item := range items {
		story, ok := f.toStory(source, item)
		if !ok {
			continue
		}
		stories = append(stories, story)
	}
	return stories, nil
}

// download performs one HTTP attempt under the per-request deadline.
// Timeouts and 5xx responses are retryable; everything else is permanent.
func (f *Fetcher) download(ctx context.Context, source domain.Source) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request for %s: %w", source.URL, err))
	}
	req.Header.Set("User-Agent", "BriefCast/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if isDeadline(err) {
			return nil, &TimeoutError{Source: source.Name, Err: err}
		}
		return nil, fmt.Errorf("request %s: %w", source.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("feed %s returned %s", source.URL, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("feed %s returned %s", source.URL, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isDeadline(err) {
			return nil, &TimeoutError{Source: source.Name, Err: err}
		}
		return nil, fmt.Errorf("read feed %s: %w", source.URL, err)
	}
	return body, nil
}

// toStory converts a feed entry, dropping partial entries without a title
// or link. Partial entries are expected feed noise, not a failure.
func (f *Fetcher) toStory(source domain.Source, item *gofeed.Item) (domain.Story, bool) {
	title := normalize.Text(item.Title)
	if title == "" || item.Link == "" {
		return domain.Story{}, false
	}

	link := normalize.CanonicalURL(item.Link)
	var published time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC()
	}

	story := domain.Story{
		Source:       source,
		Title:        title,
		URL:          link,
		Summary:      normalize.Text(item.Description),
		PublishedAt:  published,
		SourceDomain: normalize.Domain(link),
		Extras: map[string]string{
			domain.FingerprintKey: normalize.Fingerprint(link, title),
		},
	}
	return story, true
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
