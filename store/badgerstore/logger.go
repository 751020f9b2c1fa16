/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package badgerstore

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v3"

	"github.com/acronis/go-bucketgrid/log"
)

// badgerLogger adapts log.FieldLogger to badger.Logger.
type badgerLogger struct {
	logger log.FieldLogger
}

func newBadgerLogger(logger log.FieldLogger) badger.Logger {
	if logger == nil {
		return nil
	}
	return badgerLogger{logger: log.NewPrefixedLogger(logger, "badger: ")}
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(badgerMessage(format, args))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(badgerMessage(format, args))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(badgerMessage(format, args))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(badgerMessage(format, args))
}

// badgerMessage formats a badger message without the trailing newline badger puts into most formats.
func badgerMessage(format string, args []interface{}) string {
	return strings.TrimSuffix(fmt.Sprintf(format, args...), "\n")
}
