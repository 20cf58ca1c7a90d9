package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxAttrsLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	l, err := New(buf, "json", "info")
	require.NoError(t, err)

	ctx := Ctx(context.Background(), slog.String("stage", "summarize"))
	ctx = Ctx(ctx, slog.String("item_id", "abc-item"))
	l.InfoContext(ctx, "processed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "processed", line["msg"])
	assert.Equal(t, "summarize", line["stage"])
	assert.Equal(t, "abc-item", line["item_id"])
}

func TestCtxSiblingsIndependent(t *testing.T) {
	base := Ctx(context.Background(), slog.String("stage", "ingest"))
	a := Ctx(base, slog.String("feed_id", "a"))
	b := Ctx(base, slog.String("feed_id", "b"))

	aAttrs := a.Value(attrKey).([]slog.Attr)
	bAttrs := b.Value(attrKey).([]slog.Attr)
	assert.Equal(t, "a", aAttrs[1].Value.String())
	assert.Equal(t, "b", bAttrs[1].Value.String())
}

func TestNewRejectsUnknown(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", "info")
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "text", "loud")
	assert.Error(t, err)
}

func TestLevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	l, err := New(buf, "text", "warn")
	require.NoError(t, err)

	l.Info("quiet")
	assert.Empty(t, buf.String())
	l.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}
