// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package fixup

// EntrySymbol is the exported constructor every plugin must provide.
const EntrySymbol = "NewFixer"

// APIVersionSymbol is the optional exported string naming the contract
// version the plugin was built against.
const APIVersionSymbol = "FixupAPIVersion"

// APIVersion is the version of this contract.
const APIVersion = "1.0.0"

// APIConstraint is the range of plugin contract versions the host accepts.
const APIConstraint = "^1.0.0"

// Fixer computes fix-up edits for a region of source text.
type Fixer interface {
	// Fix returns the edit that fixes up r within source. An empty edit
	// means there is nothing to do.
	Fix(source string, r TextRange) (TextEdit, error)
}

// Constructor manufactures a Fixer. It is the Go shape of EntrySymbol.
type Constructor func() (Fixer, error)
