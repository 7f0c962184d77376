package eventbus

import (
	"sync"

	"github.com/cskr/pubsub/v2"
)

// EventID describes an event identifier.
type EventID interface {
	Value() uint
	String() string
}

// SubscriberID holds the channel of a subscription.
type SubscriberID struct {
	C <-chan any

	active bool
	unsub  func()
	once   *sync.Once
}

// IsActive reports whether the subscription can receive events.
func (s SubscriberID) IsActive() bool {
	return s.active
}

// Unsubscribe stops the subscription. The channel is closed asynchronously.
func (s SubscriberID) Unsubscribe() {
	if !s.active || s.unsub == nil {
		return
	}

	s.once.Do(s.unsub)
}

// nilEventHandler represents a disabled event handler.
type nilEventHandler struct{}

// defaultEventHandler represents an internal event handler.
type defaultEventHandler struct {
	*pubsub.PubSub[uint, any]
}

// EventPublisher represents an interface that provides an event publisher.
type EventPublisher interface {
	// Publish publishes an event to the event stream.
	Publish(id uint, name string, data any)
}

// EventSubscriber represents an interface that provides an event subscriber.
type EventSubscriber interface {
	// Subscribe subscribes to one or more events from the event stream.
	Subscribe(ids ...uint) SubscriberID
}

// EventHandler represents an interface that provides an event publisher and subscriber.
type EventHandler interface {
	EventPublisher
	EventSubscriber
}

// Emitter represents the main event handler of a bridge.
type Emitter struct {
	p EventPublisher
	s EventSubscriber

	closers []func()
	closed  bool

	mu sync.RWMutex
}

// New returns an emitter using the default event handler.
// capacity is the buffer size of every subscription channel.
func New(capacity int) *Emitter {
	e := &Emitter{}
	e.RegisterEventHandler(DefaultHandler(capacity))

	return e
}

// RegisterEventHandler registers the event handler interface.
func (e *Emitter) RegisterEventHandler(eh EventHandler) {
	if eh == nil {
		return
	}

	e.RegisterEventHandlers(eh, eh)
}

// RegisterEventHandlers registers the event publisher and subscriber interfaces separately.
// To disable an EventPublisher or EventSubscriber, pass 'nil' as the parameter.
// For example: `RegisterEventHandlers(&eventPublisher{}, nil)` can be called to only register
// an event publisher.
func (e *Emitter) RegisterEventHandlers(p EventPublisher, s EventSubscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p == nil {
		p = &nilEventHandler{}
	}
	if s == nil {
		s = &nilEventHandler{}
	}

	e.p = p
	e.s = s

	handlers := []any{p}
	if any(s) != any(p) {
		handlers = append(handlers, s)
	}

	for _, h := range handlers {
		if sh, ok := h.(interface{ Shutdown() }); ok {
			e.closers = append(e.closers, sh.Shutdown)
		}
	}
}

// DisableEvents unregisters the event handler.
func (e *Emitter) DisableEvents() {
	e.RegisterEventHandler(&nilEventHandler{})
}

// Publish calls the registered publisher handler.
func (e *Emitter) Publish(id EventID, data any) {
	if id == nil {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return
	}

	e.p.Publish(id.Value(), id.String(), data)
}

// Subscribe calls the registered subscriber handler.
func (e *Emitter) Subscribe(ids ...EventID) SubscriberID {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(ids) == 0 || e.closed {
		return (&nilEventHandler{}).Subscribe()
	}

	values := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			values = append(values, id.Value())
		}
	}

	return e.s.Subscribe(values...)
}

// Close shuts down every registered handler. All subscription channels
// of the default handler are closed and further events are discarded.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	e.closed = true
	for _, closer := range e.closers {
		closer()
	}
	e.closers = nil
}

// DefaultHandler returns the default event handler.
func DefaultHandler(capacity int) *defaultEventHandler {
	if capacity <= 0 {
		capacity = 10
	}

	return &defaultEventHandler{PubSub: pubsub.New[uint, any](capacity)}
}

// NilHandler returns a disabled event handler.
func NilHandler() *nilEventHandler {
	return &nilEventHandler{}
}

// Publish publishes an event to the event stream.
// The event is dropped for subscribers whose channel is full.
func (d *defaultEventHandler) Publish(id uint, name string, data any) {
	d.TryPub(data, id)
}

// Subscribe subscribes to events from the event stream.
func (d *defaultEventHandler) Subscribe(ids ...uint) SubscriberID {
	ch := d.Sub(ids...)
	return SubscriberID{
		C:      ch,
		active: true,
		once:   &sync.Once{},
		unsub: func() {
			go d.Unsub(ch, ids...)
		},
	}
}

// Publish does not do anything.
func (n *nilEventHandler) Publish(uint, string, any) {
}

// Subscribe does not do anything.
func (n *nilEventHandler) Subscribe(...uint) SubscriberID {
	ch := make(chan any)
	close(ch)
	return SubscriberID{C: ch}
}
