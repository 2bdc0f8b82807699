// Package queue defines the review-item envelope and the approval queue
// store contract, with in-memory and filesystem-backed implementations in
// sub-packages. The queue is pure storage and filtered retrieval – the
// workflow service layered on top owns every business invariant.
package queue
