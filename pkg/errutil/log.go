// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil provides helpers for logging and inspecting oops errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code, and context.
// For standard errors, it logs the error string. Extra attrs are appended
// to the record either way.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	if oopsErr, ok := oops.AsOops(err); ok {
		fields := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			fields = append(fields, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			fields = append(fields, "context", ctx)
		}
		logger.Error(msg, append(fields, attrs...)...)
	} else {
		logger.Error(msg, append([]any{"error", err}, attrs...)...)
	}
}

// Code returns the oops error code carried by err, or "" if there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}
