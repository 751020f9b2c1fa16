/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package command

import (
	"errors"
	"fmt"
)

// ErrNestedMulti is returned when Multi contains another Multi.
var ErrNestedMulti = errors.New("nested multi command")

// Multi executes commands one by one against the same entry at the same moment.
// Result value is []Result in the order of Commands.
// Each command observes the state left by the previous one,
// so results are the same as if the commands were executed sequentially.
type Multi struct {
	Commands []Command
}

// TypeID implements Command.
func (c Multi) TypeID() TypeID { return TypeMulti }

// Validate implements Command.
func (c Multi) Validate() error {
	if len(c.Commands) == 0 {
		return fmt.Errorf("%w: multi command is empty", ErrInvalidArgument)
	}
	for i, sub := range c.Commands {
		if sub == nil {
			return fmt.Errorf("%w: command #%d is nil", ErrInvalidArgument, i)
		}
		if sub.TypeID() == TypeMulti {
			return fmt.Errorf("%w: command #%d: %w", ErrInvalidArgument, i, ErrNestedMulti)
		}
		if err := sub.Validate(); err != nil {
			return fmt.Errorf("command #%d: %w", i, err)
		}
	}
	return nil
}

// Execute implements Command.
func (c Multi) Execute(entry MutableEntry, nowNanos int64) (Result, error) {
	results := make([]Result, 0, len(c.Commands))
	var modified bool
	for i, sub := range c.Commands {
		res, err := sub.Execute(entry, nowNanos)
		if err != nil {
			return Result{}, fmt.Errorf("execute %s command #%d: %w", sub.TypeID(), i, err)
		}
		modified = modified || res.StateModified
		results = append(results, res)
	}
	return Result{Value: results, StateModified: modified}, nil
}
