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

// RequireNoErrorInChannel asserts that a buffered error channel (e.g. the fatal errors channel of a unit) is empty
// or holds nil.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var err error
	select {
	case err = <-c:
	default:
	}
	require.NoError(t, err, msgAndArgs...)
}

// RequireErrorIsAny asserts that at least one of targets is in err's chain (see errors.Is).
func RequireErrorIsAny(t require.TestingT, err error, targets []error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return
		}
	}
	wantTexts := make([]string, 0, len(targets))
	for _, target := range targets {
		wantTexts = append(wantTexts, fmt.Sprintf("%q", target.Error()))
	}
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%q", e.Error()))
	}
	require.FailNow(t, fmt.Sprintf("None of the target errors is in the chain:\nexpected one of: [%s]\nchain: [%s]",
		strings.Join(wantTexts, "; "), strings.Join(chain, " -> ")), msgAndArgs...)
}
