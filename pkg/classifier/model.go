// Package classifier runs the plant disease network and turns its output
// into a labelled prediction.
package classifier

import (
	"context"

	"github.com/menta2k/plant-predict/pkg/types"
)

// Model is a loaded classification network
type Model interface {
	// Predict runs one forward pass. The returned tensor holds per-class
	// scores, either batch-wrapped (1, N) or bare (N).
	Predict(ctx context.Context, input *types.Tensor) (*types.Tensor, error)
	Close() error
}
