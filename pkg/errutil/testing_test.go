// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/holomush/hotswap/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("ENTRYPOINT_MISSING").Errorf("symbol not found")
	errutil.AssertErrorCode(t, err, "ENTRYPOINT_MISSING")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("symbol", "NewFixer").Errorf("symbol not found")
	errutil.AssertErrorContext(t, err, "symbol", "NewFixer")
}

func TestAssertErrorHint_MentionsSubstring(t *testing.T) {
	err := oops.Code("CONFIG_MISSING").
		Hint("set library in the config file").
		Errorf("plugin library is not configured")
	errutil.AssertErrorHint(t, err, "library")
}
