/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// HistogramSampleCount returns the number of observations summed over all histograms the collector exports.
// The collector may be a single histogram or a (curried) vector.
func HistogramSampleCount(c prometheus.Collector) (uint64, error) {
	metrics := make(chan prometheus.Metric)
	go func() {
		c.Collect(metrics)
		close(metrics)
	}()

	var total uint64
	var writeErr error
	for m := range metrics {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			writeErr = err
			continue
		}
		total += pb.GetHistogram().GetSampleCount()
	}
	return total, writeErr
}

// RequireHistogramSampleCount asserts that the histograms of the collector have wantCount observations in total.
func RequireHistogramSampleCount(t require.TestingT, c prometheus.Collector, wantCount uint64, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	gotCount, err := HistogramSampleCount(c)
	require.NoError(t, err, msgAndArgs...)
	require.Equal(t, wantCount, gotCount, msgAndArgs...)
}
