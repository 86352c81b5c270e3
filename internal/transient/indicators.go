// Package transient holds the short-lived UI state the storefront keeps on
// the server: "copied" indicators that clear themselves and the promotional
// countdown.
package transient

import (
	"strings"
	"sync"
	"time"
)

// Windows after which a "copied" indicator reverts.
const (
	PaymentCodeWindow = 2 * time.Second
	TicketLinkWindow  = 2 * time.Second
	ShareLinkWindow   = 3 * time.Second
)

// Indicators is a set of keyed flags that clear themselves after a window.
// Every pending timer is owned here so teardown can stop it.
type Indicators struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewIndicators() *Indicators {
	return &Indicators{timers: make(map[string]*time.Timer)}
}

// Mark sets key for window. Marking an active key restarts its window.
func (i *Indicators) Mark(key string, window time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return
	}
	if t, ok := i.timers[key]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(window, func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		// Only clear if this timer was not replaced by a later Mark.
		if i.timers[key] == t {
			delete(i.timers, key)
		}
	})
	i.timers[key] = t
}

func (i *Indicators) Active(key string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.timers[key]
	return ok
}

// Cancel clears key immediately and stops its timer.
func (i *Indicators) Cancel(key string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if t, ok := i.timers[key]; ok {
		t.Stop()
		delete(i.timers, key)
	}
}

// CancelPrefix clears every key starting with prefix.
func (i *Indicators) CancelPrefix(prefix string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for key, t := range i.timers {
		if strings.HasPrefix(key, prefix) {
			t.Stop()
			delete(i.timers, key)
		}
	}
}

// Close stops every pending timer. Later Marks are ignored.
func (i *Indicators) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	for key, t := range i.timers {
		t.Stop()
		delete(i.timers, key)
	}
	i.closed = true
}

// Pending reports how many indicators are currently set.
func (i *Indicators) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.timers)
}
