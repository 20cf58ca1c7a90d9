// Package telegram forwards messages and audio to a chat through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

const defaultBaseURL = "https://api.telegram.org"

type Config struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Timeout  time.Duration
}

// Bot implements [quantumwatch.Messenger].
type Bot struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

var _ quantumwatch.Messenger = (*Bot)(nil)

func New(cfg Config) *Bot {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Bot{
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether both the token and the destination chat are set.
func (b *Bot) Configured() bool {
	return b != nil && b.token != "" && b.chatID != ""
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// The envelope every Bot API method answers with
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts Markdown text to the chat with link previews off.
func (b *Bot) SendMessage(ctx context.Context, text string) error {
	if !b.Configured() {
		return quantumwatch.ErrUnconfigured
	}

	byts, err := json.Marshal(sendMessageRequest{
		ChatID:                b.chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("error marshaling message: %s", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint("sendMessage"), bytes.NewReader(byts))
	if err != nil {
		return fmt.Errorf("error creating message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return b.do(req)
}

// SendAudio uploads audio to the chat with a Markdown caption.
func (b *Bot) SendAudio(ctx context.Context, audio io.Reader, filename, caption string) error {
	if !b.Configured() {
		return quantumwatch.ErrUnconfigured
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for field, value := range map[string]string{
		"chat_id":    b.chatID,
		"caption":    caption,
		"parse_mode": "Markdown",
	} {
		if err := mw.WriteField(field, value); err != nil {
			return fmt.Errorf("error writing %s field: %s", field, err)
		}
	}
	part, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return fmt.Errorf("error creating audio part: %s", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return fmt.Errorf("error copying audio: %s", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("error closing multipart body: %s", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint("sendAudio"), body)
	if err != nil {
		return fmt.Errorf("error creating audio request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return b.do(req)
}

func (b *Bot) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
}

func (b *Bot) do(req *http.Request) error {
	resp, err := b.client.Do(req)
	if err != nil {
		// The url holds the token, keep it out of the logs
		return fmt.Errorf("%w: error calling telegram: %s", quantumwatch.ErrUpstream, strings.ReplaceAll(err.Error(), b.token, "<token>"))
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&apiResp); err != nil {
		return fmt.Errorf("%w: telegram returned %d with an unreadable body: %s", quantumwatch.ErrUpstream, resp.StatusCode, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("%w: telegram error: %s", quantumwatch.ErrUpstream, apiResp.Description)
	}

	return nil
}
