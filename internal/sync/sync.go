// Package sync fetches remote RSS and Atom documents.
package sync

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

const defaultUserAgent = "QuantumWatch/1.0 (+https://github.com/jdholdren/quantumwatch)"

// Fetcher downloads feed documents over HTTP and parses them with gofeed.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

var _ quantumwatch.FeedFetcher = Fetcher{}

// NewFetcher builds a fetcher whose requests give up after timeout.
func NewFetcher(timeout time.Duration, userAgent string) Fetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch gets the document at feedURL and parses it. Anything but a 200 is an error.
func (f Fetcher) Fetch(ctx context.Context, feedURL string) (quantumwatch.ParsedFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return quantumwatch.ParsedFeed{}, fmt.Errorf("error creating feed request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return quantumwatch.ParsedFeed{}, fmt.Errorf("error getting feed url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return quantumwatch.ParsedFeed{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return Parse(resp.Body)
}

// Parse reads an RSS or Atom document.
func Parse(r io.Reader) (quantumwatch.ParsedFeed, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return quantumwatch.ParsedFeed{}, fmt.Errorf("error parsing feed: %w", err)
	}

	parsed := quantumwatch.ParsedFeed{
		Title:       sanitize(feed.Title),
		Description: sanitize(feed.Description),
		Language:    feed.Language,
		Entries:     make([]quantumwatch.ParsedEntry, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		parsed.Entries = append(parsed.Entries, entry(item))
	}

	return parsed, nil
}

func entry(item *gofeed.Item) quantumwatch.ParsedEntry {
	e := quantumwatch.ParsedEntry{
		GUID:        strings.TrimSpace(item.GUID),
		Title:       sanitize(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Description: item.Description,
		Content:     item.Content,
		Author:      author(item),
		Categories:  item.Categories,
	}
	if e.Link == "" && len(item.Links) > 0 {
		e.Link = strings.TrimSpace(item.Links[0])
	}

	switch {
	case item.PublishedParsed != nil:
		e.Published = item.PublishedParsed
	case item.UpdatedParsed != nil:
		e.Published = item.UpdatedParsed
	}

	return e
}

func author(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	if item.DublinCoreExt != nil {
		for _, creator := range item.DublinCoreExt.Creator {
			if creator != "" {
				return creator
			}
		}
	}

	return ""
}

const maxTextLen = 2048

var stripPolicy = bluemonday.StrictPolicy()

// Removes all html tags from the string, usually a title.
//
// Also limits the length of the string so there's not a massive chunk of text being output.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	if len(s) > maxTextLen {
		s = s[:maxTextLen]
		// Back off a rune split by the cut
		for len(s) > 0 {
			if r, size := utf8.DecodeLastRuneInString(s); r != utf8.RuneError || size > 1 {
				break
			}
			s = s[:len(s)-1]
		}
	}

	return strings.TrimSpace(s)
}
