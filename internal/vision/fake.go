package vision

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// FakeService answers randomly. It stands in for a real classifier during
// development; the threshold is ignored.
type FakeService struct {
	// rnd produces the answers.
	rnd *rand.Rand
	// mu protects rnd.
	mu sync.Mutex
}

// NewFakeService creates a FakeService seeded from the clock.
func NewFakeService() *FakeService {
	seed := uint64(time.Now().UnixNano())

	return NewSeededFakeService(seed)
}

// NewSeededFakeService creates a FakeService with a deterministic sequence.
func NewSeededFakeService(seed uint64) *FakeService {
	return &FakeService{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // Not used for security.
	}
}

// ImageContainsCat returns a random answer.
func (f *FakeService) ImageContainsCat(context.Context, []byte, float32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.rnd.IntN(2) == 1, nil
}
