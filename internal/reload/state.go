// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reload

// State is the orchestrator lifecycle state.
type State int

// Orchestrator states.
const (
	StateUninitialized State = iota
	StateLive
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLive:
		return "live"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one MaybeReload call.
type Outcome int

// Reload outcomes.
const (
	// OutcomeUnchanged means the library on disk matches the live plugin.
	OutcomeUnchanged Outcome = iota
	// OutcomeSwapped means a new plugin replaced the live one.
	OutcomeSwapped
	// OutcomeFailed means the candidate could not be built; the live plugin
	// is untouched.
	OutcomeFailed
	// OutcomeBusy means another reload was in progress.
	OutcomeBusy
)

// String returns the outcome name. It doubles as the metrics label.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeSwapped:
		return "swapped"
	case OutcomeFailed:
		return "failed"
	case OutcomeBusy:
		return "busy"
	default:
		return "unknown"
	}
}
