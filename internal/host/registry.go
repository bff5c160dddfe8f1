package host

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coldchain/fridgewatch/internal/controller"
)

// Subscriber is one attached renderer stream.
type Subscriber struct {
	ID          string
	Ch          chan controller.Update
	ConnectedAt time.Time
}

// Registry tracks attached renderer streams and fans updates out to
// them. It also keeps the latest update for snapshot requests. Render
// never blocks the cycle loop: a subscriber that cannot keep up loses
// its oldest pending update, never stalls the others.
type Registry struct {
	subs    map[string]*Subscriber
	mu      sync.RWMutex
	maxSubs int
	last    *controller.Update
}

// NewRegistry creates a registry allowing up to maxSubscribers streams.
func NewRegistry(maxSubscribers int) *Registry {
	return &Registry{
		subs:    make(map[string]*Subscriber),
		maxSubs: maxSubscribers,
	}
}

// Subscribe registers a new stream and returns it.
func (r *Registry) Subscribe() (*Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.subs) >= r.maxSubs {
		return nil, ErrMaxSubscribers
	}

	sub := &Subscriber{
		ID:          uuid.New().String(),
		Ch:          make(chan controller.Update, 4),
		ConnectedAt: time.Now(),
	}
	r.subs[sub.ID] = sub

	// A late joiner starts from the current tuple rather than waiting
	// for the next cycle.
	if r.last != nil {
		sub.Ch <- *r.last
	}

	return sub, nil
}

// Unsubscribe removes a stream and closes its channel.
func (r *Registry) Unsubscribe(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return fmt.Errorf("subscriber %s not found", id)
	}
	delete(r.subs, id)
	close(sub.Ch)
	return nil
}

// Latest returns the most recent update, if any cycle has emitted yet.
func (r *Registry) Latest() (controller.Update, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.last == nil {
		return controller.Update{}, false
	}
	return *r.last, true
}

// Render implements controller.Renderer.
func (r *Registry) Render(u controller.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = &u
	for _, sub := range r.subs {
		for {
			select {
			case sub.Ch <- u:
			default:
				// Full: drop the oldest pending update and retry.
				select {
				case <-sub.Ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Count returns the number of attached streams.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Stats returns registry statistics.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RegistryStats{
		Subscribers:    len(r.subs),
		MaxSubscribers: r.maxSubs,
	}
}

// RegistryStats contains statistics about the registry.
type RegistryStats struct {
	Subscribers    int
	MaxSubscribers int
}

// ErrMaxSubscribers is returned when the stream limit is reached.
var ErrMaxSubscribers = fmt.Errorf("maximum subscribers reached")
