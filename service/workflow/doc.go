// Package workflow implements the human-in-the-loop review workflow on top
// of the approval queue. It is the single enforcement point for suggestion
// state transitions:
//
//	Suggested --modify--> Modified --approve--> Approved (terminal)
//	Suggested --approve--> Approved (terminal)
//	Suggested --reject--> Rejected (terminal)
//	Modified  --reject--> Rejected (terminal)
//
// The queue's UpdateStatus primitive performs no precondition check; only this
// package verifies that an item is still Pending before transitioning it.
package workflow
