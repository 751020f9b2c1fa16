/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-bucketgrid/log"
)

func TestRecorder(t *testing.T) {
	recorder := NewRecorder()
	recorder.Warn("clock regression detected", log.BucketKey("tenant:1"), log.Int64("regression_ms", 250))
	recorder.With(log.BucketKey("tenant:2")).Debug("requests are combined into a batch", log.Int("size", 3))
	recorder.Info("bucketgrid is listening")

	require.Len(t, recorder.Entries(), 3)

	_, found := recorder.FindEntry("unknown message")
	require.False(t, found)

	entry, found := recorder.FindEntry("clock regression detected")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)
	require.Equal(t, "tenant:1", entry.BucketKey())
	regression, found := entry.FindField("regression_ms")
	require.True(t, found)
	require.EqualValues(t, 250, regression.Int)
	_, found = entry.FindField("size")
	require.False(t, found)

	batchEntries := recorder.EntriesForBucket("tenant:2")
	require.Len(t, batchEntries, 1)
	require.Equal(t, log.LevelDebug, batchEntries[0].Level)
	size, found := batchEntries[0].FindField("size")
	require.True(t, found)
	require.EqualValues(t, 3, size.Int)

	listening, found := recorder.FindEntry("bucketgrid is listening")
	require.True(t, found)
	require.Empty(t, listening.BucketKey())

	warnings := recorder.FindEntries(func(e RecordedEntry) bool { return e.Level == log.LevelWarn })
	require.Len(t, warnings, 1)

	recorder.Reset()
	require.Empty(t, recorder.Entries())
}
