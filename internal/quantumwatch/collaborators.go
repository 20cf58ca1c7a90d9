package quantumwatch

import (
	"context"
	"io"
	"time"
)

type (
	// FeedFetcher downloads and parses a remote feed document.
	FeedFetcher interface {
		Fetch(ctx context.Context, url string) (ParsedFeed, error)
	}

	ParsedFeed struct {
		Title       string
		Description string
		Language    string
		Entries     []ParsedEntry
	}

	// ParsedEntry is a feed entry as it came off the wire, before normalization.
	ParsedEntry struct {
		GUID        string
		Title       string
		Link        string
		Description string
		Content     string
		Author      string
		Published   *time.Time
		Categories  []string
	}

	// Summarizer turns a prompt into generated text.
	Summarizer interface {
		Summarize(ctx context.Context, prompt string) (string, error)
	}

	// Speaker synthesizes speech. The caller closes the returned stream.
	Speaker interface {
		Speak(ctx context.Context, text, voiceID string) (io.ReadCloser, error)
	}

	// Messenger forwards content to the messaging channel.
	Messenger interface {
		SendMessage(ctx context.Context, text string) error
		SendAudio(ctx context.Context, audio io.Reader, filename, caption string) error
	}
)
