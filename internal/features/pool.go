package features

import (
	"sync"

	"github.com/gobaduk/engine/internal/rules"
)

// Pool is an arena of reusable Inputs buffers. Buffers grow monotonically
// to the largest batch ever needed and are never shrunk.
// Since every Inputs already carries the full 22-channel spatial buffer
// regardless of area-feature use (area planes are simply left zero when
// unused), the two pools differ only in which callers draw from them,
// keeping the "with area" pool's buffers warm for the Chinese-rules case
// and the "without area" pool lean for Japanese/Korean batches.
type Pool struct {
	mu sync.Mutex
	free []*Inputs
	count int
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Get returns a zeroed Inputs buffer, reusing one from the pool if
// available.
func (p *Pool) Get() *Inputs {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		in := p.free[n-1]
		p.free = p.free[:n-1]
		in.Clear()
		return in
	}
	p.count++
	return NewInputs()
}

// Put returns a buffer to the pool for reuse.
func (p *Pool) Put(in *Inputs) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, in)
}

// Pools bundles the with/without-area-feature pool split described above.
type Pools struct {
	WithArea *Pool
	WithoutArea *Pool
}

// NewPools constructs both arenas.
func NewPools() *Pools {
	return &Pools{WithArea: NewPool(), WithoutArea: NewPool()}
}

// For returns the pool matching whether Chinese area features are needed.
func (ps *Pools) For(scoring rules.Scoring) *Pool {
	if scoring.IsChineseArea() {
		return ps.WithArea
	}
	return ps.WithoutArea
}
