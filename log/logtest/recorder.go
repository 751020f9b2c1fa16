/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-bucketgrid/log"
)

// RecordedEntry is a logged message kept by Recorder.
type RecordedEntry struct {
	Level  log.Level
	Time   time.Time
	Text   string
	Fields []log.Field
}

// FindField returns the field of the entry with the given key.
func (e RecordedEntry) FindField(key string) (log.Field, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return log.Field{}, false
}

// BucketKey returns the value of the log.BucketKey field or an empty string if the entry has no such field.
func (e RecordedEntry) BucketKey() string {
	if f, ok := e.FindField("bucket_key"); ok {
		return string(f.Bytes)
	}
	return ""
}

// Recorder is a debug level log.FieldLogger that keeps all logged entries in memory.
// Loggers derived by With share the entries with their parent.
type Recorder struct {
	log.FieldLogger
	store *entryStore
}

// NewRecorder creates a new Recorder.
func NewRecorder() *Recorder {
	s := &entryStore{}
	return &Recorder{FieldLogger: log.FromLogf(logf.NewLogger(logf.LevelDebug, s)), store: s}
}

// With implements log.FieldLogger interface.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{FieldLogger: r.FieldLogger.With(fs...), store: r.store}
}

// Entries returns a copy of all recorded entries in the order they were logged.
func (r *Recorder) Entries() []RecordedEntry {
	return r.FindEntries(func(RecordedEntry) bool { return true })
}

// FindEntry returns the first entry with the given message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	found := r.FindEntries(func(e RecordedEntry) bool { return e.Text == msg })
	if len(found) == 0 {
		return RecordedEntry{}, false
	}
	return found[0], true
}

// FindEntries returns all entries matching the filter.
func (r *Recorder) FindEntries(filter func(e RecordedEntry) bool) []RecordedEntry {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var res []RecordedEntry
	for _, e := range r.store.entries {
		if filter(e) {
			res = append(res, e)
		}
	}
	return res
}

// EntriesForBucket returns all entries logged with log.BucketKey(key).
func (r *Recorder) EntriesForBucket(key string) []RecordedEntry {
	return r.FindEntries(func(e RecordedEntry) bool { return e.BucketKey() == key })
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	r.store.entries = nil
	r.store.mu.Unlock()
}

type entryStore struct {
	mu      sync.Mutex
	entries []RecordedEntry
}

//nolint:gocritic
func (s *entryStore) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.DerivedFields)+len(e.Fields))
	fields = append(fields, e.DerivedFields...)
	fields = append(fields, e.Fields...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, RecordedEntry{Level: levelOf(e.Level), Time: e.Time, Text: e.Text, Fields: fields})
}

func levelOf(l logf.Level) log.Level {
	switch l {
	case logf.LevelDebug:
		return log.LevelDebug
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelError:
		return log.LevelError
	default:
		return log.LevelInfo
	}
}
