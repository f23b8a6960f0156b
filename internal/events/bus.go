package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chorus/internal/logger"
)

// EventBus distributes events to subscribers. Publishing is asynchronous;
// handlers run on the bus processor goroutine.
type EventBus interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Publish(ctx context.Context, event Event) error
	PublishAsync(event Event)
	Subscribe(handler EventHandler, types ...EventType) string
	Unsubscribe(subscriptionID string)
	GetRecent(limit int) []Event
}

type subscription struct {
	id      string
	types   map[EventType]struct{} // empty means all types
	handler EventHandler
}

type eventBus struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	eventChannel  chan Event
	running       bool
	stopCh        chan struct{}
	wg            sync.WaitGroup

	// Recent events kept in memory for the status surface
	recentEvents []Event
	maxRecent    int
}

// NewEventBus creates a new event bus with the given channel buffer size
func NewEventBus(bufferSize int) EventBus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &eventBus{
		subscriptions: make(map[string]*subscription),
		eventChannel:  make(chan Event, bufferSize),
		recentEvents:  make([]Event, 0, 100),
		maxRecent:     100,
		stopCh:        make(chan struct{}),
	}
}

// Start starts the event processor
func (eb *eventBus) Start(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.running {
		return fmt.Errorf("event bus is already running")
	}

	eb.running = true
	eb.stopCh = make(chan struct{})

	eb.wg.Add(1)
	go eb.processEvents()

	logger.Info("Event bus started")
	return nil
}

// Stop stops the event bus gracefully
func (eb *eventBus) Stop(ctx context.Context) error {
	eb.mu.Lock()
	if !eb.running {
		eb.mu.Unlock()
		return nil
	}
	eb.running = false
	eb.mu.Unlock()

	close(eb.stopCh)

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Event bus stop timed out")
		return ctx.Err()
	}
}

// Publish publishes an event, blocking until it is accepted or ctx is done
func (eb *eventBus) Publish(ctx context.Context, event Event) error {
	eb.mu.RLock()
	running := eb.running
	eb.mu.RUnlock()
	if !running {
		return fmt.Errorf("event bus is not running")
	}

	eb.stamp(&event)

	select {
	case eb.eventChannel <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAsync publishes an event without blocking; events are dropped when
// the buffer is full rather than stalling the publisher.
func (eb *eventBus) PublishAsync(event Event) {
	eb.mu.RLock()
	running := eb.running
	eb.mu.RUnlock()
	if !running {
		return
	}

	eb.stamp(&event)

	select {
	case eb.eventChannel <- event:
	default:
		logger.Warn("Event bus buffer full, dropping event type=%s", event.Type)
	}
}

// Subscribe registers a handler for the given event types. No types means
// every event. Returns the subscription id for Unsubscribe.
func (eb *eventBus) Subscribe(handler EventHandler, types ...EventType) string {
	sub := &subscription{
		id:      uuid.NewString(),
		types:   make(map[EventType]struct{}, len(types)),
		handler: handler,
	}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}

	eb.mu.Lock()
	eb.subscriptions[sub.id] = sub
	eb.mu.Unlock()

	return sub.id
}

// Unsubscribe removes a subscription
func (eb *eventBus) Unsubscribe(subscriptionID string) {
	eb.mu.Lock()
	delete(eb.subscriptions, subscriptionID)
	eb.mu.Unlock()
}

// GetRecent returns up to limit most recent events, newest first
func (eb *eventBus) GetRecent(limit int) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if limit <= 0 || limit > len(eb.recentEvents) {
		limit = len(eb.recentEvents)
	}

	out := make([]Event, 0, limit)
	for i := len(eb.recentEvents) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, eb.recentEvents[i])
	}
	return out
}

func (eb *eventBus) stamp(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
}

func (eb *eventBus) processEvents() {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.eventChannel:
			eb.dispatch(event)
		case <-eb.stopCh:
			// Drain whatever is already buffered before exiting
			for {
				select {
				case event := <-eb.eventChannel:
					eb.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (eb *eventBus) dispatch(event Event) {
	eb.mu.Lock()
	eb.recentEvents = append(eb.recentEvents, event)
	if len(eb.recentEvents) > eb.maxRecent {
		eb.recentEvents = eb.recentEvents[len(eb.recentEvents)-eb.maxRecent:]
	}
	subs := make([]*subscription, 0, len(eb.subscriptions))
	for _, sub := range eb.subscriptions {
		subs = append(subs, sub)
	}
	eb.mu.Unlock()

	for _, sub := range subs {
		if len(sub.types) > 0 {
			if _, ok := sub.types[event.Type]; !ok {
				continue
			}
		}
		sub.handler(event)
	}
}
