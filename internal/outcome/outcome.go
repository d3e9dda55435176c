// Package outcome models the result of a best-effort step: either a value or
// an explicit reason the step was skipped.
package outcome

// Outcome holds the result of a step that is allowed to degrade.
// The zero value is a skip with no reason.
type Outcome[T any] struct {
	value  T
	ok     bool
	reason string
}

// OK wraps a successful result.
func OK[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, ok: true}
}

// Skipped records that the step produced nothing, and why.
func Skipped[T any](reason string) Outcome[T] {
	return Outcome[T]{reason: reason}
}

// Value returns the wrapped value and whether the step succeeded.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.ok
}

// Skipped reports whether the step was skipped.
func (o Outcome[T]) Skipped() bool {
	return !o.ok
}

// Reason returns the skip reason, or "" for a successful outcome.
func (o Outcome[T]) Reason() string {
	if o.ok {
		return ""
	}
	return o.reason
}
