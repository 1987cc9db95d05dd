// Copyright (c) 2021-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"fmt"

	errs "github.com/pkg/errors"
)

// stackTracer represents the stack trace functionality for an error from
// pkg/errors.
type stackTracer interface {
	StackTrace() errs.StackTrace
}

// StackTrace returns the stack trace for a pkg/errors error. The returned bool
// indicates whether a stack trace was found. The error chain is walked so
// that a stdlib error wrapping a pkg/errors error still yields its trace.
func StackTrace(err error) (string, bool) {
	for err != nil {
		if e, ok := err.(stackTracer); ok {
			return fmt.Sprintf("%+v\n", e.StackTrace()), true
		}
		err = errs.Unwrap(err)
	}
	return "", false
}
