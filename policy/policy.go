// Package policy provides a simple, optional intake filter that can be
// attached to suggestion processing via context. It is deliberately decoupled
// from the rest of the module so that using it is entirely opt-in – callers
// that do not embed the Policy in their context keep the original
// "enqueue everything" behaviour. A policy only gates what ENTERS the review
// queue; it never approves or rejects enqueued items on its own.

package policy

import (
	"context"

	"github.com/reviewq/reviewq/model/suggestion"
)

// Policy represents the intake settings for a suggestion-processing run.
//
//   - MinConfidence drops suggestions scoring below the threshold.
//   - AllowSources, BlockSources allow coarse filtering by source kind.
//
// A nil *Policy means "admit every suggestion" and is therefore the zero-cost
// default.
type Policy struct {
	MinConfidence int                     `json:"minConfidence,omitempty" yaml:"minConfidence,omitempty"`
	AllowSources  []suggestion.SourceKind `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockSources  []suggestion.SourceKind `json:"block,omitempty" yaml:"block,omitempty"`
}

// Clone returns a copy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	return &Policy{
		MinConfidence: p.MinConfidence,
		AllowSources:  append([]suggestion.SourceKind(nil), p.AllowSources...),
		BlockSources:  append([]suggestion.SourceKind(nil), p.BlockSources...),
	}
}

// Admits evaluates the confidence threshold and the source lists.
// BlockSources has priority; an empty AllowSources admits every kind.
func (p *Policy) Admits(confidence int, source suggestion.SourceKind) bool {
	if p == nil {
		return true
	}
	if confidence < p.MinConfidence {
		return false
	}
	for _, blocked := range p.BlockSources {
		if source == blocked {
			return false
		}
	}
	if len(p.AllowSources) == 0 {
		return true
	}
	for _, allowed := range p.AllowSources {
		if source == allowed {
			return true
		}
	}
	return false
}

// AdmitsDecision applies the policy to a decision suggestion.
func (p *Policy) AdmitsDecision(d *suggestion.Decision) bool {
	if d == nil {
		return false
	}
	return p.Admits(d.ConfidenceScore, d.SourceReference.Kind)
}

// AdmitsTask applies the policy to a task suggestion.
func (p *Policy) AdmitsTask(t *suggestion.Task) bool {
	if t == nil {
		return false
	}
	return p.Admits(t.ConfidenceScore, t.SourceReference.Kind)
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy, or nil when none is embedded.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
