/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"time"

	"github.com/ssgreg/logf"
)

// Field is a key-value pair attached to a logged message.
type Field = logf.Field

// Field constructors.
var (
	Error    = logf.Error
	String   = logf.String
	Int      = logf.Int
	Int64    = logf.Int64
	Bool     = logf.Bool
	Duration = logf.Duration
	Any      = logf.Any
)

// BucketKey returns a Field with the key of a bucket in the store.
func BucketKey(key string) Field {
	return String("bucket_key", key)
}

// Instance returns a Field with the identifier of the process sharing buckets with other processes.
func Instance(id string) Field {
	return String("instance", id)
}

// DurationIn returns the "duration" Field with val measured in units (e.g. milliseconds).
func DurationIn(val, unit time.Duration) Field {
	return Int64("duration", int64(val/unit))
}
