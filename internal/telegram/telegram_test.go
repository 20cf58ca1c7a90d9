package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottok/sendMessage", r.URL.Path)

		var body sendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, sendMessageRequest{
			ChatID:                "@quantum",
			Text:                  "📰 *hi*",
			ParseMode:             "Markdown",
			DisableWebPagePreview: true,
		}, body)

		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	b := New(Config{BotToken: "tok", ChatID: "@quantum", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, b.SendMessage(context.Background(), "📰 *hi*"))
}

func TestSendMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	b := New(Config{BotToken: "tok", ChatID: "@nowhere", BaseURL: srv.URL, Timeout: time.Second})
	err := b.SendMessage(context.Background(), "hi")
	assert.ErrorIs(t, err, quantumwatch.ErrUpstream)
	assert.ErrorContains(t, err, "chat not found")
}

func TestSendAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottok/sendAudio", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "@quantum", r.FormValue("chat_id"))
		assert.Equal(t, "🎙️ *caption*", r.FormValue("caption"))
		assert.Equal(t, "Markdown", r.FormValue("parse_mode"))

		f, hdr, err := r.FormFile("audio")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "episode.mp3", hdr.Filename)
		byts, _ := io.ReadAll(f)
		assert.Equal(t, "mp3 bytes", string(byts))

		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	b := New(Config{BotToken: "tok", ChatID: "@quantum", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, b.SendAudio(context.Background(), strings.NewReader("mp3 bytes"), "episode.mp3", "🎙️ *caption*"))
}

func TestUnconfigured(t *testing.T) {
	b := New(Config{BotToken: "tok"})
	assert.False(t, b.Configured())
	assert.ErrorIs(t, b.SendMessage(context.Background(), "hi"), quantumwatch.ErrUnconfigured)
	assert.ErrorIs(t, b.SendAudio(context.Background(), strings.NewReader(""), "a.mp3", ""), quantumwatch.ErrUnconfigured)
}
