package device

import (
	"context"

	"golang.org/x/time/rate"
)

// IOBinding is returned by BusDevice.BindIO for a given block id
// (spec.md §4.9). I/O operations are throttled by a token-bucket
// limiter so a misbehaving driver cannot starve the simulated bus.
type IOBinding struct {
	BlockID uint64
	limiter *rate.Limiter
}

// NewIOBinding creates a binding admitting opsPerSecond operations on
// average, with burst allowed to spike above that rate.
func NewIOBinding(blockID uint64, opsPerSecond float64, burst int) *IOBinding {
	return &IOBinding{BlockID: blockID, limiter: rate.NewLimiter(rate.Limit(opsPerSecond), burst)}
}

// Wait blocks until the binding's rate limiter admits one more I/O
// operation, or ctx is cancelled.
func (b *IOBinding) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}
