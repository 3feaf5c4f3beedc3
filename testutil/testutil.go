/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains assertions shared by tests of the INSPECTA packages:
// error envelopes of the REST API, listening servers, Prometheus samples and error channels.
package testutil

type tHelper interface {
	Helper()
}

// MockT records failures of assertions, so the assertions themselves can be tested.
type MockT struct {
	Failed bool
	Format string
	Args   []interface{}
}

// FailNow marks the test as failed.
func (t *MockT) FailNow() {
	t.Failed = true
}

// Errorf saves the failure message.
func (t *MockT) Errorf(format string, args ...interface{}) {
	t.Failed = true
	t.Format, t.Args = format, args
}
