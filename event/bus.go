package event

// Event is any value published on a Bus.
type Event interface{}

// Listener receives events from a Bus.
type Listener interface {
	HandleEvent(ev Event)
}

// ListenerFunc adapts a function to the Listener interface. Function values
// are not comparable, so register them through Bus.Subscribe.
type ListenerFunc func(ev Event)

// Subscription is the handle returned by Bus.Subscribe.
type Subscription struct {
	bus *Bus
	fn  ListenerFunc
}

// HandleEvent calls the subscribed function.
func (s *Subscription) HandleEvent(ev Event) { s.fn(ev) }

// Cancel unregisters the subscription. Calling it twice is harmless.
func (s *Subscription) Cancel() {
	if s.bus != nil {
		s.bus.Unregister(s)
		s.bus = nil
	}
}

// Bus is a synchronous broadcaster.
type Bus struct {
	listeners []Listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Register adds a listener. Registering the same listener twice is a no-op.
func (b *Bus) Register(l Listener) {
	if l == nil {
		panic("event: nil listener")
	}
	for _, existing := range b.listeners {
		if existing == l {
			return
		}
	}
	b.listeners = append(b.listeners, l)
}

// Unregister removes a listener; unknown listeners are ignored.
func (b *Bus) Unregister(l Listener) {
	for i, existing := range b.listeners {
		if existing == l {
			next := make([]Listener, 0, len(b.listeners)-1)
			next = append(next, b.listeners[:i]...)
			next = append(next, b.listeners[i+1:]...)
			b.listeners = next
			return
		}
	}
}

// Subscribe registers fn and returns its handle.
func (b *Bus) Subscribe(fn ListenerFunc) *Subscription {
	s := &Subscription{bus: b, fn: fn}
	b.Register(s)
	return s
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	return len(b.listeners)
}

// Post delivers ev to the listeners registered when Post was called.
func (b *Bus) Post(ev Event) {
	// Register/Unregister replace the slice, so ranging over the current one
	// is stable against changes made by listeners.
	for _, l := range b.listeners {
		l.HandleEvent(ev)
	}
}

// Forwarder re-posts every event it receives on its target bus.
type Forwarder struct {
	target *Bus
}

// Forward returns a Forwarder to target.
func Forward(target *Bus) *Forwarder {
	return &Forwarder{target: target}
}

// HandleEvent re-posts ev.
func (f *Forwarder) HandleEvent(ev Event) {
	f.target.Post(ev)
}
