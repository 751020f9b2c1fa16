/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"time"

	"github.com/acronis/go-bucketgrid/bucket"
	"github.com/acronis/go-bucketgrid/command"
)

// entry is the command.MutableEntry of a single attempt.
type entry struct {
	state            *bucket.GridState
	ttl              time.Duration
	onClockRegressed func(err error) error
}

var _ command.MutableEntry = (*entry)(nil)
var _ command.ClockRegressionHandler = (*entry)(nil)

func (e *entry) Exists() bool {
	return e.state != nil
}

func (e *entry) Get() bucket.GridState {
	return e.state.Copy()
}

func (e *entry) Set(state bucket.GridState) {
	st := state.Copy()
	e.state = &st
}

func (e *entry) ExpireAfter(ttl time.Duration) {
	e.ttl = ttl
}

func (e *entry) HandleClockRegression(err error) error {
	return e.onClockRegressed(err)
}
