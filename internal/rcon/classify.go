package rcon

import "strings"

// Operation is the intent behind a whitelist command, passed to the
// classifier because server wording differs between add and remove.
type Operation string

const (
	OpAdd    Operation = "add"
	OpRemove Operation = "remove"
)

// Outcome is the classifier's verdict on a raw response.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeFailure       Outcome = "failure"
	OutcomeEmptyAccepted Outcome = "empty-accepted"
	OutcomeUnknown       Outcome = "unknown"
)

// Success reports whether the outcome counts as a confirmed mutation.
func (o Outcome) Success() bool {
	return o == OutcomeSuccess || o == OutcomeEmptyAccepted
}

// Keyword sets scanned case-insensitively, in precedence order. Failure
// keywords win over success keywords so that a response like "Failed to
// add player" is never misread off its confirmation verb.
var (
	failureKeywords = []string{
		"unknown command",
		"incorrect argument",
		"unexpected error",
		"unable to",
		"failed",
		"error",
		"usage:",
		"permission",
	}

	addSuccessKeywords = []string{
		"added to the whitelist",
		"already whitelisted",
		"added",
	}

	removeSuccessKeywords = []string{
		"removed from the whitelist",
		"removed",
	}

	notFoundKeywords = []string{
		"not whitelisted",
		"not on the whitelist",
		"no player was found",
		"player does not exist",
		"could not be found",
		"not found",
	}
)

// Classify maps a raw command response to an outcome.
//
// The rule set is ordered and deliberately asymmetric: add leans lenient
// because server implementations confirm with wildly varying wording,
// while remove leans conservative because an unrecognized response must
// never be silently treated as a completed removal.
//
//  1. Empty response: success only when the server is configured to
//     reply with nothing on success, otherwise unknown.
//  2. Failure keywords (highest precedence for non-empty text).
//  3. Per-operation success keywords.
//  4. Remove only: "not found" wording while the player is not locally
//     recorded as a member means the entry is already absent, which an
//     idempotent remove counts as success.
//  5. Default: success for add, unknown for remove.
func Classify(response string, op Operation, acceptEmpty bool, currentlyMember bool) Outcome {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		if acceptEmpty {
			return OutcomeEmptyAccepted
		}
		return OutcomeUnknown
	}

	lower := strings.ToLower(trimmed)

	if containsAny(lower, failureKeywords) {
		return OutcomeFailure
	}

	success := addSuccessKeywords
	if op == OpRemove {
		success = removeSuccessKeywords
	}
	if containsAny(lower, success) {
		return OutcomeSuccess
	}

	if op == OpRemove {
		if containsAny(lower, notFoundKeywords) && !currentlyMember {
			return OutcomeSuccess
		}
		return OutcomeUnknown
	}
	return OutcomeSuccess
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
