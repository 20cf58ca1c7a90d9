package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jdholdren/quantumwatch/internal/extract"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

const (
	// Content shorter than this is treated as a teaser rather than the article
	previewThreshold = 1000

	previewPrompt = `The following is a preview/excerpt of an article. Based on this limited information,
provide a brief summary of what the article seems to be about. Be clear that this is based only on the preview,
and note any key topics or themes that appear to be discussed.

TITLE: %s

PREVIEW CONTENT:
%s`

	fullPrompt = `Please summarize the following article in 3-5 concise paragraphs. Focus on the key points and main takeaways.

TITLE: %s

CONTENT:
%s`
)

var previewMarkers = []string{"Continue reading", "Read more"}

// ArticleReader fetches the full article behind a link.
type ArticleReader interface {
	Read(ctx context.Context, link string) (extract.Article, error)
}

// Summarize asks the summarizer for a summary of items that lack one.
type Summarize struct {
	repo       quantumwatch.Repository
	summarizer quantumwatch.Summarizer
	// Optional; when set, previews are expanded from the article page
	reader ArticleReader
}

var _ Stage[quantumwatch.Item, string] = Summarize{}

func (Summarize) Name() string                   { return StageSummarize }
func (Summarize) Kind() string                   { return StageSummarize }
func (Summarize) Key(i quantumwatch.Item) string { return i.ID }

func (s Summarize) Pending(ctx context.Context, limit int) ([]quantumwatch.Item, error) {
	return s.repo.ItemsWithoutSummary(ctx, limit)
}

func (s Summarize) Settled(ctx context.Context, i quantumwatch.Item) (bool, error) {
	_, err := s.repo.SummaryByItem(ctx, i.ID)
	return exists(err)
}

func (s Summarize) Process(ctx context.Context, i quantumwatch.Item) (string, error) {
	if s.summarizer == nil {
		return "", quantumwatch.ErrUnconfigured
	}

	prompt, err := s.prompt(ctx, i)
	if err != nil {
		return "", err
	}

	text, err := s.summarizer.Summarize(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("error summarizing: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: summarizer returned an empty response", quantumwatch.ErrUpstream)
	}

	return text, nil
}

func (s Summarize) Persist(ctx context.Context, i quantumwatch.Item, text string) (int, error) {
	_, inserted, err := s.repo.InsertSummary(ctx, quantumwatch.Summary{
		ItemID:      i.ID,
		SummaryText: text,
		Language:    quantumwatch.DetectLanguage(text),
	})
	if err != nil {
		return 0, err
	}
	if !inserted {
		return 0, nil
	}

	return 1, nil
}

// prompt picks the input text and the prompt variant for the item.
func (s Summarize) prompt(ctx context.Context, i quantumwatch.Item) (string, error) {
	input := i.Content
	if strings.TrimSpace(input) == "" {
		input = i.Description
	}
	input = extract.PlainText(input)
	title := strings.TrimSpace(i.Title)
	if input == "" && (title == "" || title == quantumwatch.PlaceholderTitle) {
		return "", quantumwatch.ErrNoContent
	}

	if !isPreview(input) {
		return fmt.Sprintf(fullPrompt, title, input), nil
	}

	if s.reader != nil && i.Link != "" {
		article, err := s.reader.Read(ctx, i.Link)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.WarnContext(ctx, "couldn't expand preview, summarizing the excerpt", "link", i.Link, "error", err)
		}
		if err == nil && len(article.Text) > len(input) {
			return fmt.Sprintf(fullPrompt, title, article.Text), nil
		}
	}

	return fmt.Sprintf(previewPrompt, title, input), nil
}

func isPreview(content string) bool {
	if len(content) < previewThreshold {
		return true
	}
	for _, m := range previewMarkers {
		if strings.Contains(content, m) {
			return true
		}
	}

	return false
}

// exists turns a lookup error into whether the row is there.
func exists(err error) (bool, error) {
	if errors.Is(err, quantumwatch.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
