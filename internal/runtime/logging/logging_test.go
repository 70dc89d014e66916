package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogServiceLoggerWritesLevels(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: LevelTrace}))
	logger := NewSlogServiceLogger(base).With(LogFields{"component": "emitter"})

	logger.Warn("replica missing", LogFields{"product_id": int64(42)})
	logger.Error("delivery failed", errors.New("broker down"), nil)
	logger.Trace("tick", nil)

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"product_id":42`)
	assert.Contains(t, out, `"component":"emitter"`)
	assert.Contains(t, out, `"error":"broker down"`)
	assert.Contains(t, out, `"msg":"tick"`)
}

func TestSlogServiceLoggerWithEmptyFieldsReturnsSame(t *testing.T) {
	logger := NewSlogServiceLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	assert.Same(t, logger, logger.With(nil))
}

func TestConstructorsPanicOnNil(t *testing.T) {
	assert.Panics(t, func() { NewSlogServiceLogger(nil) })
	assert.Panics(t, func() { NewWatermillServiceLogger(nil) })
	assert.Panics(t, func() { NewWatermillAdapter(nil) })
}

func TestWatermillServiceLoggerMapsWarnToInfo(t *testing.T) {
	base := &recordingWatermillLogger{}
	logger := NewWatermillServiceLogger(base)

	boom := errors.New("boom")
	logger.Warn("unknown kind", LogFields{"event_kind": "FOO"})
	logger.Error("apply failed", boom, nil)

	require.Len(t, base.entries, 2)
	assert.Equal(t, "info", base.entries[0].level)
	assert.Equal(t, watermill.LogFields{"level": "warn", "event_kind": "FOO"}, base.entries[0].fields)
	assert.Equal(t, "error", base.entries[1].level)
	assert.Same(t, boom, base.entries[1].err)
}

func TestWatermillAdapterRoutesToServiceLogger(t *testing.T) {
	capture := NewCaptureLogger()
	adapter := NewWatermillAdapter(capture)

	adapter.Info("router started", watermill.LogFields{"handlers": 1})
	adapter.With(watermill.LogFields{"topic": "product-sync"}).Debug("subscribed", nil)
	adapter.Error("handler failed", errors.New("boom"), nil)
	adapter.Trace("ack", nil)

	entries := capture.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, LevelNameInfo, entries[0].Level)
	assert.Equal(t, 1, entries[0].Fields["handlers"])
	assert.Equal(t, "product-sync", entries[1].Fields["topic"])
	assert.EqualError(t, entries[2].Err, "boom")
	assert.Equal(t, LevelNameTrace, entries[3].Level)
}

func TestCaptureLoggerSharesBufferWithChildren(t *testing.T) {
	capture := NewCaptureLogger()
	child := capture.With(LogFields{"key": "42"})
	child.Warn("skip", LogFields{"event_kind": "PRODUCT_UPDATED"})

	warns := capture.Filter(LevelNameWarn)
	require.Len(t, warns, 1)
	assert.Equal(t, LogFields{"key": "42", "event_kind": "PRODUCT_UPDATED"}, warns[0].Fields)
	assert.True(t, capture.Has(LevelNameWarn, "skip"))
	assert.False(t, capture.Has(LevelNameError, "skip"))
}

func TestWatermillFieldConversions(t *testing.T) {
	assert.Nil(t, toWatermillFields(nil))
	assert.Nil(t, fromWatermillFields(nil))
	assert.Equal(t, LogFields{"a": 1}, fromWatermillFields(toWatermillFields(LogFields{"a": 1})))
}

type watermillEntry struct {
	level  string
	msg    string
	fields watermill.LogFields
	err    error
}

type recordingWatermillLogger struct {
	entries []watermillEntry
}

func (r *recordingWatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	r.entries = append(r.entries, watermillEntry{level: "error", msg: msg, fields: fields, err: err})
}

func (r *recordingWatermillLogger) Info(msg string, fields watermill.LogFields) {
	r.entries = append(r.entries, watermillEntry{level: "info", msg: msg, fields: fields})
}

func (r *recordingWatermillLogger) Debug(msg string, fields watermill.LogFields) {
	r.entries = append(r.entries, watermillEntry{level: "debug", msg: msg, fields: fields})
}

func (r *recordingWatermillLogger) Trace(msg string, fields watermill.LogFields) {
	r.entries = append(r.entries, watermillEntry{level: "trace", msg: msg, fields: fields})
}

func (r *recordingWatermillLogger) With(watermill.LogFields) watermill.LoggerAdapter {
	return r
}
