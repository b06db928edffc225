package generation

import "sync/atomic"

// Publisher holds the currently-published generation. Publish swaps the
// pointer atomically; in-flight readers keep the snapshot they loaded, so a
// swap never tears an operation.
type Publisher struct {
	current atomic.Pointer[Generation]
}

// NewPublisher returns a publisher with no generation yet
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Current returns the published generation, or nil before the first Publish
func (p *Publisher) Current() *Generation {
	return p.current.Load()
}

// Publish makes gen the current generation
func (p *Publisher) Publish(gen *Generation) {
	p.current.Store(gen)
}
