// Package extract pulls readable article bodies out of web pages.
package extract

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sym01/htmlsanitizer"
)

// Article is the reader view of a page.
type Article struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline"`
	SiteName string `json:"site_name"`
	// Sanitized html, safe to render
	HTML string `json:"html"`
	// Markdown rendition of the body
	Text string `json:"text"`
}

// Reader fetches pages and keeps the extracted articles in an LRU keyed by url.
type Reader struct {
	client    *http.Client
	userAgent string
	cache     *lru.Cache[string, Article]
	converter *md.Converter
}

func NewReader(timeout time.Duration, userAgent string) *Reader {
	cache, _ := lru.New[string, Article](1024)

	return &Reader{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		cache:     cache,
		converter: md.NewConverter("", true, nil),
	}
}

// Read returns the article at link, from cache when it's been read before.
func (r *Reader) Read(ctx context.Context, link string) (Article, error) {
	if a, ok := r.cache.Get(link); ok {
		return a, nil
	}

	u, err := url.Parse(link)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Article{}, fmt.Errorf("invalid article url %q", link)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Article{}, fmt.Errorf("error creating article request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Article{}, fmt.Errorf("error fetching article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Article{}, fmt.Errorf("unexpected status code fetching article: %d", resp.StatusCode)
	}

	// Strip it for readability and sanitize
	parser := readability.NewParser()
	parsed, err := parser.Parse(resp.Body, u)
	if err != nil {
		return Article{}, fmt.Errorf("error parsing article: %s", err)
	}

	sanitizer := htmlsanitizer.NewHTMLSanitizer()
	contents, err := sanitizer.SanitizeString(parsed.Content)
	if err != nil {
		return Article{}, fmt.Errorf("error sanitizing article: %s", err)
	}

	text, err := r.converter.ConvertString(contents)
	if err != nil {
		return Article{}, fmt.Errorf("error converting article to markdown: %s", err)
	}

	a := Article{
		URL:      link,
		Title:    parsed.Title,
		Byline:   parsed.Byline,
		SiteName: parsed.SiteName,
		HTML:     contents,
		Text:     strings.TrimSpace(text),
	}
	// Add to the cache for next time
	r.cache.Add(link, a)

	return a, nil
}

var (
	stripPolicy = bluemonday.StrictPolicy()
	blankLines  = regexp.MustCompile(`\n\s*\n+`)
	blockTags   = regexp.MustCompile(`(?i)</?(p|div|br|li|h[1-6]|blockquote|section|article)[^>]*>`)
)

// PlainText strips every tag out of s, keeping paragraph breaks.
func PlainText(s string) string {
	s = blockTags.ReplaceAllString(s, "\n")
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	s = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	return strings.TrimSpace(s)
}
