// Package archive defines the remote camera archive interface and the
// failure classification that drives backfill stop/continue/abort
// decisions.
package archive

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Class is the failure class of a frame export attempt
type Class string

const (
	// ClassFatal aborts the current camera's backfill entirely:
	// authentication/authorization failures and unreachable networks
	ClassFatal Class = "fatal"
	// ClassNotFound means the archive explicitly has no recording for
	// that instant; three in a row marks the edge of retention
	ClassNotFound Class = "not_found"
	// ClassNoData is the ambiguous transient/exhaustion signal:
	// timeouts, throttling, generic "no data"
	ClassNoData Class = "no_data"
	// ClassUnclassified is any other non-fatal failure
	ClassUnclassified Class = "unclassified"
)

// ExportError is a classified frame export failure. The archive client
// classifies at the source so consumers never pattern-match message text.
type ExportError struct {
	Class    Class
	CameraID string
	At       time.Time
	Message  string
	Err      error
}

func (e *ExportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("export %s@%s: %s (%s)", e.CameraID, e.At.Format("2006-01-02 15:04"), msg, e.Class)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ClassOf extracts the failure class from an error. Typed export errors
// carry their class; anything else falls back to message classification.
func ClassOf(err error) Class {
	if err == nil {
		return ""
	}
	var ee *ExportError
	if errors.As(err, &ee) {
		return ee.Class
	}
	return Classify(err.Error())
}

// Classify maps an error message to a failure class by substring. This is
// the single place message matching lives; the pinned strings are covered
// by tests. Prefer clients that return typed *ExportError instead.
func Classify(msg string) Class {
	m := strings.ToLower(msg)

	for _, s := range []string{
		"unauthorized",
		"authentication",
		"forbidden",
		"invalid credentials",
		"invalid token",
		"connection refused",
		"no route to host",
		"network is unreachable",
	} {
		if strings.Contains(m, s) {
			return ClassFatal
		}
	}

	for _, s := range []string{
		"not found",
		"no recording",
	} {
		if strings.Contains(m, s) {
			return ClassNotFound
		}
	}

	for _, s := range []string{
		"timeout",
		"timed out",
		"deadline exceeded",
		"rate limit",
		"too many requests",
		"no data",
	} {
		if strings.Contains(m, s) {
			return ClassNoData
		}
	}

	return ClassUnclassified
}
