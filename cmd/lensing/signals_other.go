//go:build !unix

package main

import (
	"context"

	"github.com/gogpu/lensing"
)

// handleSignals waits for the render to end. Save and restart signals are
// Unix only.
func handleSignals(ctx context.Context, done <-chan struct{}, _ *lensing.Driver) {
	select {
	case <-ctx.Done():
	case <-done:
	}
}
