// CLAUDE:SUMMARY Sentinel errors for the capture orchestrator failure taxonomy.
package capture

import "errors"

// Failure taxonomy. Each sentinel maps to a distinct response code in the
// transport layer: invalid input and element-not-found require changing the
// request; timeout and navigation failures are retryable as-is.

// ErrInvalidInput is returned for a malformed URL or empty selector.
var ErrInvalidInput = errors.New("capture: invalid input")

// ErrNavigation is returned when the page is unreachable or fails to load.
var ErrNavigation = errors.New("capture: navigation failed")

// ErrTimeout is returned when a stage exceeds its time budget.
var ErrTimeout = errors.New("capture: timeout exceeded")

// ErrElementNotFound is returned when the selector never became visible
// within the wait budget.
var ErrElementNotFound = errors.New("capture: element not found")
