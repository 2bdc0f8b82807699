package idgen

import "github.com/google/uuid"

// New returns a new globally unique identifier as string. It is implemented
// as a thin wrapper so tests can stub it.

var NewFunc = func() string { return uuid.New().String() }

func New() string { return NewFunc() }

// Prefixed returns a new identifier with a short type prefix, e.g. "dec_…".
// Suggestion producers use it so that queue ids remain self-describing in
// logs and audit records.
func Prefixed(prefix string) string {
	if prefix == "" {
		return New()
	}
	return prefix + "_" + New()
}
