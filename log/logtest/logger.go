/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"bytes"
	"sync"
	"testing"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-bucketgrid/log"
)

// NewLogger returns a debug level logger writing JSON entries to the log of t.
// Entries are shown only for failed tests or with "go test -v".
// Entries logged after the test is finished (e.g. by a lingering goroutine) are dropped.
func NewLogger(t testing.TB) log.FieldLogger {
	w := &testEntryWriter{
		t: t,
		encoder: logf.NewJSONEncoder(logf.JSONEncoderConfig{
			FieldKeyTime: "time",
			EncodeTime:   logf.RFC3339NanoTimeEncoder,
		}),
	}
	t.Cleanup(w.finish)
	return log.FromLogf(logf.NewLogger(logf.LevelDebug, w))
}

type testEntryWriter struct {
	t       testing.TB
	encoder logf.Encoder

	mu       sync.Mutex
	finished bool
}

//nolint:gocritic
func (w *testEntryWriter) WriteEntry(e logf.Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return
	}
	var buf logf.Buffer
	if err := w.encoder.Encode(&buf, e); err != nil {
		w.t.Logf("failed to encode log entry %q: %v", e.Text, err)
		return
	}
	w.t.Log(string(bytes.TrimSuffix(buf.Data, []byte("\n"))))
}

func (w *testEntryWriter) finish() {
	w.mu.Lock()
	w.finished = true
	w.mu.Unlock()
}
