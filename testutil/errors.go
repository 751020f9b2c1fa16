/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stretchr/testify/require"
)

// RequireNoErrorInChannel asserts that the buffered channel holds no error.
// It does not wait: an empty channel passes the assertion.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	select {
	case err := <-c:
		require.NoError(t, err, msgAndArgs...)
	default:
	}
}

// RequireErrorIsAny asserts that errors.Is(err, target) is true for at least one of targets.
// It is used when an error may come from different layers (e.g. a store error or a context error).
func RequireErrorIsAny(t require.TestingT, err error, targets []error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	wanted := make([]string, 0, len(targets))
	for _, target := range targets {
		if errors.Is(err, target) {
			return
		}
		wanted = append(wanted, fmt.Sprintf("%q", target))
	}
	require.FailNow(t, fmt.Sprintf("None of target errors is in the chain:\n"+
		"targets: [%s]\n"+
		"chain:   [%s]", strings.Join(wanted, ", "), strings.Join(errorChain(err), ", ")), msgAndArgs...)
}

// errorChain returns quoted texts of err and the errors it wraps, depth-first.
func errorChain(err error) []string {
	if err == nil {
		return nil
	}
	chain := []string{fmt.Sprintf("%q", err)}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			chain = append(chain, errorChain(e)...)
		}
	case interface{ Unwrap() error }:
		chain = append(chain, errorChain(x.Unwrap())...)
	}
	return chain
}
