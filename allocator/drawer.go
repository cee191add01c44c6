package allocator

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/xraph/medquote/provider"
)

// Drawer decides whether a provider answers a request and how fast.
// Implementations must be safe for concurrent use.
type Drawer interface {
	Responds(p *provider.Provider) bool
	ETAHours(p *provider.Provider, minHours, maxHours int) int
}

// RandomDrawer draws from a seeded PCG source. A provider responds with
// probability ResponseRate30d/100.
type RandomDrawer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDrawer creates a RandomDrawer. Seed 0 seeds from the clock.
func NewRandomDrawer(seed uint64) *RandomDrawer {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomDrawer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Responds implements Drawer.
func (d *RandomDrawer) Responds(p *provider.Provider) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64()*100 < p.ResponseRate30d
}

// ETAHours implements Drawer.
func (d *RandomDrawer) ETAHours(_ *provider.Provider, minHours, maxHours int) int {
	if maxHours <= minHours {
		return minHours
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return minHours + d.rng.IntN(maxHours-minHours+1)
}

// FixedDrawer is a deterministic Drawer: every provider responds unless
// its ID is listed in Silent, and every ETA is ETA (or the minimum).
type FixedDrawer struct {
	Silent map[string]bool
	ETA    int
}

// AlwaysResponds returns a FixedDrawer under which every provider answers.
func AlwaysResponds() FixedDrawer { return FixedDrawer{} }

// Responds implements Drawer.
func (d FixedDrawer) Responds(p *provider.Provider) bool { return !d.Silent[p.ID.String()] }

// ETAHours implements Drawer.
func (d FixedDrawer) ETAHours(_ *provider.Provider, minHours, _ int) int {
	if d.ETA > 0 {
		return d.ETA
	}
	return minHours
}
