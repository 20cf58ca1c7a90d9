package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Test RSS Feed</title>
    <description>A test RSS feed</description>
    <link>https://example.com</link>
    <language>fr</language>
    <item>
      <title>RSS Post One &amp; More</title>
      <link>https://example.com/post-1</link>
      <guid>rss-guid-1</guid>
      <description>First RSS post description</description>
      <content:encoded><![CDATA[<p>Full body of the first post</p>]]></content:encoded>
      <dc:creator>Ada Lovelace</dc:creator>
      <category>physics</category>
      <category>quantum</category>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>RSS Post Two</title>
      <link>https://example.com/post-2</link>
      <description>Second RSS post description</description>
    </item>
  </channel>
</rss>`

const testAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <subtitle>A test Atom feed</subtitle>
  <link href="https://example.com" rel="alternate"/>
  <entry>
    <title>Atom Post One</title>
    <id>atom-id-1</id>
    <link href="https://example.com/atom-1" rel="alternate"/>
    <summary>First Atom post summary</summary>
    <author><name>Grace Hopper</name></author>
    <updated>2024-01-01T12:00:00Z</updated>
  </entry>
  <entry>
    <title>Atom Post Two</title>
    <id>atom-id-2</id>
    <link href="https://example.com/atom-2" rel="alternate"/>
    <content>Second Atom post content body</content>
    <published>2024-01-02T12:00:00Z</published>
  </entry>
</feed>`

func serve(t *testing.T, contentType, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "quantumwatch-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_RSS(t *testing.T) {
	srv := serve(t, "application/rss+xml", testRSSFeed)

	feed, err := NewFetcher(time.Second, "quantumwatch-test").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Test RSS Feed", feed.Title)
	assert.Equal(t, "A test RSS feed", feed.Description)
	assert.Equal(t, "fr", feed.Language)

	require.Len(t, feed.Entries, 2)

	first := feed.Entries[0]
	assert.Equal(t, "RSS Post One & More", first.Title)
	assert.Equal(t, "rss-guid-1", first.GUID)
	assert.Equal(t, "https://example.com/post-1", first.Link)
	assert.Equal(t, "First RSS post description", first.Description)
	assert.Contains(t, first.Content, "Full body of the first post")
	assert.Equal(t, "Ada Lovelace", first.Author)
	assert.Equal(t, []string{"physics", "quantum"}, first.Categories)
	require.NotNil(t, first.Published)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), first.Published.UTC())

	// No guid and no date: left for ingestion to default
	second := feed.Entries[1]
	assert.Empty(t, second.GUID)
	assert.Equal(t, "https://example.com/post-2", second.Link)
	assert.Nil(t, second.Published)
}

func TestFetch_Atom(t *testing.T) {
	srv := serve(t, "application/atom+xml", testAtomFeed)

	feed, err := NewFetcher(time.Second, "quantumwatch-test").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Test Atom Feed", feed.Title)
	assert.Equal(t, "A test Atom feed", feed.Description)
	require.Len(t, feed.Entries, 2)

	assert.Equal(t, "atom-id-1", feed.Entries[0].GUID)
	assert.Equal(t, "https://example.com/atom-1", feed.Entries[0].Link)
	assert.Equal(t, "First Atom post summary", feed.Entries[0].Description)
	assert.Equal(t, "Grace Hopper", feed.Entries[0].Author)
	require.NotNil(t, feed.Entries[0].Published, "falls back to updated")

	assert.Equal(t, "Second Atom post content body", feed.Entries[1].Content)
	require.NotNil(t, feed.Entries[1].Published)
	assert.Equal(t, 2, feed.Entries[1].Published.Day())
}

func TestFetch_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	_, err := NewFetcher(time.Second, "").Fetch(context.Background(), notFound.URL)
	assert.ErrorContains(t, err, "unexpected status code: 404")

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer garbage.Close()

	_, err = NewFetcher(time.Second, "").Fetch(context.Background(), garbage.URL)
	assert.ErrorContains(t, err, "error parsing feed")
}

func TestSanitize_LongText(t *testing.T) {
	for _, tail := range []string{"é", "量子", "🚀"} {
		in := strings.Repeat("a", maxTextLen-1) + strings.Repeat(tail, 10)
		out := sanitize(in)
		assert.True(t, utf8.ValidString(out), "tail %q", tail)
		assert.LessOrEqual(t, len(out), maxTextLen)
		assert.Equal(t, strings.Repeat("a", maxTextLen-1), out)
	}

	exact := strings.Repeat("量", maxTextLen/3) + "ab"
	assert.Equal(t, exact[:maxTextLen], sanitize(exact))
}
