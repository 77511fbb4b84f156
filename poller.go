package studyhall

import (
	"sync"
	"time"
)

// Poller drives pull-based refreshes for feeds without push support, such as
// chat message lists in degraded mode. Each feed runs at most one ticker:
// starting a feed that is already running is a no-op, and stopping takes
// effect immediately without waiting for any network acknowledgment.
type Poller struct {
	mu    sync.Mutex
	feeds map[string]chan struct{}
}

// NewPoller creates an empty poller.
func NewPoller() *Poller {
	return &Poller{feeds: make(map[string]chan struct{})}
}

// Start begins invoking fn every interval for the named feed. Re-entrant:
// starting twice equals starting once.
func (p *Poller) Start(feed string, interval time.Duration, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.feeds[feed]; ok {
		return
	}
	stop := make(chan struct{})
	p.feeds[feed] = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// Stop halts the named feed. Stopping a feed that is not running is a no-op.
func (p *Poller) Stop(feed string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stop, ok := p.feeds[feed]; ok {
		close(stop)
		delete(p.feeds, feed)
	}
}

// StopAll halts every running feed.
func (p *Poller) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for feed, stop := range p.feeds {
		close(stop)
		delete(p.feeds, feed)
	}
}

// Running reports whether the named feed is active.
func (p *Poller) Running(feed string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.feeds[feed]
	return ok
}

// Active returns the number of running feeds.
func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.feeds)
}
