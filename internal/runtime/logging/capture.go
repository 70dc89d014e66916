package logging

import "sync"

// Level names recorded by CaptureLogger.
const (
	LevelNameTrace = "trace"
	LevelNameDebug = "debug"
	LevelNameInfo  = "info"
	LevelNameWarn  = "warn"
	LevelNameError = "error"
)

// Entry is one captured log line.
type Entry struct {
	Level  string
	Msg    string
	Fields LogFields
	Err    error
}

// CaptureLogger records entries in memory. Children created with With share
// the parent's buffer. Safe for concurrent use.
type CaptureLogger struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  LogFields
}

// NewCaptureLogger returns an empty CaptureLogger.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (c *CaptureLogger) With(fields LogFields) ServiceLogger {
	return &CaptureLogger{mu: c.mu, entries: c.entries, fields: merge(c.fields, fields)}
}

func (c *CaptureLogger) Debug(msg string, fields LogFields) {
	c.record(LevelNameDebug, msg, nil, fields)
}

func (c *CaptureLogger) Info(msg string, fields LogFields) {
	c.record(LevelNameInfo, msg, nil, fields)
}

func (c *CaptureLogger) Warn(msg string, fields LogFields) {
	c.record(LevelNameWarn, msg, nil, fields)
}

func (c *CaptureLogger) Error(msg string, err error, fields LogFields) {
	c.record(LevelNameError, msg, err, fields)
}

func (c *CaptureLogger) Trace(msg string, fields LogFields) {
	c.record(LevelNameTrace, msg, nil, fields)
}

// Entries returns a copy of everything captured so far.
func (c *CaptureLogger) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(*c.entries))
	copy(out, *c.entries)
	return out
}

// Filter returns the captured entries at the given level.
func (c *CaptureLogger) Filter(level string) []Entry {
	var out []Entry
	for _, e := range c.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether an entry with the given level and message was captured.
func (c *CaptureLogger) Has(level, msg string) bool {
	for _, e := range c.Filter(level) {
		if e.Msg == msg {
			return true
		}
	}
	return false
}

func (c *CaptureLogger) record(level, msg string, err error, fields LogFields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.entries = append(*c.entries, Entry{Level: level, Msg: msg, Fields: merge(c.fields, fields), Err: err})
}

func merge(base, extra LogFields) LogFields {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(LogFields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
