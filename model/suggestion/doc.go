// Package suggestion defines the two reviewable record types – decisions and
// action-item tasks – together with their pure lifecycle transition
// functions. Transitions never check the current state; the workflow service
// owns precondition enforcement so that the state machine stays a set of
// plain value operations.
package suggestion
