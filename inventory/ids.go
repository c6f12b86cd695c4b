package inventory

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces unique identifiers with a short kind prefix ("prod", "wh", "mov"...).
type IDGenerator interface {
	NewID(prefix string) string
}

// UUIDGenerator is the default generator: prefix-<uuid v4>.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// SequenceGenerator hands out prefix-1, prefix-2, ... from one shared counter.
// Deterministic, so tests can assert exact ids.
type SequenceGenerator struct {
	n atomic.Uint64
}

func (g *SequenceGenerator) NewID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, g.n.Add(1))
}
