package micstatus

import (
	"sync"

	"github.com/breeze-rmm/micwatch/pkg/models"
)

// Subscription is a channel-backed event feed. A full channel blocks
// dispatch until the subscriber reads, closes the subscription, or the
// session stops.
type Subscription struct {
	ch      chan models.MonitorEvent
	done    chan struct{}
	once    sync.Once
	emitter *Emitter
}

// Subscribe returns a subscription with the given channel buffer.
func (e *Emitter) Subscribe(buffer int) *Subscription {
	if buffer < 0 {
		buffer = 0
	}
	s := &Subscription{
		ch:      make(chan models.MonitorEvent, buffer),
		done:    make(chan struct{}),
		emitter: e,
	}
	e.subMu.Lock()
	e.subs = append(e.subs, s)
	e.subMu.Unlock()
	return s
}

// C returns the event channel. It is never closed; select on Done as well.
func (s *Subscription) C() <-chan models.MonitorEvent { return s.ch }

// Done is closed once the subscription is closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.emitter.removeSubscription(s)
	})
}

func (s *Subscription) send(ev models.MonitorEvent, quit <-chan struct{}) {
	select {
	case s.ch <- ev:
	case <-s.done:
	case <-quit:
	}
}
