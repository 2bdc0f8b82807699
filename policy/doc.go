// Package policy provides optional declarative intake rules applied before
// suggestions enter the review queue – for example to drop low-confidence
// extractions or to admit only meeting-sourced suggestions.
package policy
