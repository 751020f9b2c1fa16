/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"fmt"

	"github.com/acronis/go-bucketgrid/log"
)

func ExampleRecorder() {
	consume := func(logger log.FieldLogger, key string, tokens int64) {
		logger.Info("tokens consumed", log.BucketKey(key), log.Int64("tokens", tokens))
	}

	recorder := NewRecorder()
	consume(recorder, "tenant:42", 5)

	for _, entry := range recorder.EntriesForBucket("tenant:42") {
		tokens, _ := entry.FindField("tokens")
		fmt.Printf("[%s] %s: %d\n", entry.Level, entry.Text, tokens.Int)
	}

	// Output:
	// [info] tokens consumed: 5
}
