// Package clock centralises time acquisition so that staleness checks and
// audit timestamps can be pinned in tests.
package clock

import "time"

// NowFunc returns the current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }
