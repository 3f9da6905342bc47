package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, format logFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: w,
		format: format,
	})
	return slog.New(h), func() string {
		require.NoError(t, w.Close())
		return strings.TrimSpace(buf.String())
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", CompSubmission), slog.LevelInfo, "submission.created",
		slog.String("status", "ok"),
		slog.Int64("submission_id", 5),
		slog.Int64("channel_id", 1),
	)

	tokens := strings.Split(read(), " ")
	expected := []string{
		"ts=", "level=INFO", "component=intake.submission", "event=submission.created",
		"status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9",
		"channel_id=1", "submission_id=5",
	}
	require.GreaterOrEqual(t, len(tokens), len(expected))
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	log, read := newTestLogger(t, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	LogEvent(ctx, log.With("component", "service.test"), slog.LevelError, "dispatch.failed",
		slog.String("status", "error"),
		slog.Any("err", errors.New("boom")),
		slog.String("err_code", "DISPATCH_FAILURE"),
	)

	line := read()
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.test"`, `"event":"dispatch.failed"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, p := range prefixes {
		idx := strings.Index(line, p)
		require.Greater(t, idx, pos, "%s out of order in %s", p, line)
		pos = idx
	}

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.Equal(t, "boom", decoded["err"])
	assert.Contains(t, decoded, "ts_unix_nano")
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	raw := "123:456:789"

	kv, readKV := newTestLogger(t, formatKV)
	LogEvent(WithRID(context.Background(), raw), kv, slog.LevelInfo, "rid.test")
	line := readKV()
	assert.Contains(t, line, "rid="+CompactRID(raw))
	assert.NotContains(t, line, "rid_full=")

	js, readJSON := newTestLogger(t, formatJSON)
	LogEvent(WithRID(context.Background(), raw), js, slog.LevelInfo, "rid.test")
	line = readJSON()
	assert.Contains(t, line, `"rid":"`+CompactRID(raw)+`"`)
	assert.Contains(t, line, `"rid_full":"`+raw+`"`)
}

func TestStructuredHandlerDurationsAndGroups(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	log.WithGroup("fanout").Info("fanout.done",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Int("delivered", 2),
	)
	line := read()
	assert.Contains(t, line, "fanout.duration_ms=2")
	assert.Contains(t, line, "fanout.delivered=2")
	assert.Contains(t, line, "event=fanout.done")
	assert.Contains(t, line, "component=app")
}

func TestStructuredHandlerDropsUnknownOutcome(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	log.Info("x", slog.String("outcome", "weird"), slog.String("payload", "  "))
	line := read()
	assert.NotContains(t, line, "outcome=")
	assert.NotContains(t, line, "payload=")
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "z.10.-1", CompactRID("35:36:-1"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1:x:2", CompactRID("1:x:2"))
}

func TestRatioSampler(t *testing.T) {
	var s ratioSampler
	s.Set(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	num, den := parseRatio("2/5")
	assert.Equal(t, 2, num)
	assert.Equal(t, 5, den)
	num, den = parseRatio("10")
	assert.Equal(t, 1, num)
	assert.Equal(t, 10, den)
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	assert.Equal(t, "héll", SanitizeLimit("héllo", 4))
	assert.Equal(t, "", SanitizeLimit("x", 0))
}
