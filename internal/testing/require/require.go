// Package require is a minimal assertion helper in the style used
// throughout wazero's own test suite (internal/testing/require), kept small
// and dependency-free so the majority of this module's tests do not need to
// pull in testify. A minority of tests (save/restore, CLI) use
// github.com/stretchr/testify/require directly where table-driven
// comparisons read better with its richer diffing.
package require

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// Equal fails the test if expected != actual (via reflect.DeepEqual). Any
// msgAndArgs are appended to the failure message.
func Equal(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %#v, got %#v %s", expected, actual, fmt.Sprint(msgAndArgs...))
	}
}

// NotEqual fails the test if expected == actual.
func NotEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected values to differ, both were %#v", expected)
	}
}

// True fails the test if v is false.
func True(t *testing.T, v bool, msgAndArgs ...any) {
	t.Helper()
	if !v {
		t.Fatalf("expected true: %s", fmt.Sprint(msgAndArgs...))
	}
}

// False fails the test if v is true.
func False(t *testing.T, v bool, msgAndArgs ...any) {
	t.Helper()
	if v {
		t.Fatalf("expected false: %s", fmt.Sprint(msgAndArgs...))
	}
}

// NoError fails the test if err != nil.
func NoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

// Error fails the test if err == nil.
func Error(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error, got nil")
	}
}

// ErrorIs fails the test unless errors.Is(err, target).
func ErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v to wrap %v", err, target)
	}
}

// Zero fails the test unless v is the zero value for its type.
func Zero(t *testing.T, v any) {
	t.Helper()
	rv := reflect.ValueOf(v)
	if rv.IsValid() && !rv.IsZero() {
		t.Fatalf("expected zero value, got %#v", v)
	}
}
