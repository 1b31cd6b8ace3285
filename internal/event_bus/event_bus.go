package event_bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// NotificationType identifies a kind of notification on the bus.
type NotificationType string

// Notification is the generic envelope carried by the bus. Data is any so
// different payload types can share one bus.
type Notification struct {
	ctx       context.Context
	Type      NotificationType
	Timestamp time.Time
	Data      any
}

// NewNotification builds a notification stamped with the current time.
func NewNotification(ctx context.Context, t NotificationType, data any) Notification {
	return Notification{ctx: ctx, Type: t, Timestamp: time.Now(), Data: data}
}

// Context returns the context the notification was published under.
func (n Notification) Context() context.Context {
	if n.ctx == nil {
		return context.Background()
	}
	return n.ctx
}

type handler func(Notification) error

// Bus is a concurrency-safe synchronous dispatcher: Publish runs every
// subscribed handler before returning.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[NotificationType]map[uint64]handler
	nextID      uint64
}

func New() *Bus {
	return &Bus{subscribers: make(map[NotificationType]map[uint64]handler)}
}

// Subscribe registers h for the given type and returns an unsubscribe func.
func (b *Bus) Subscribe(t NotificationType, h func(Notification) error) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subscribers[t] == nil {
		b.subscribers[t] = make(map[uint64]handler)
	}
	b.subscribers[t][id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if handlers := b.subscribers[t]; handlers != nil {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(b.subscribers, t)
			}
		}
	}
}

// SubscribeTyped registers a handler for a specific payload type T. It is a
// free function because methods cannot carry their own type parameters. A
// notification whose payload is not a T is skipped.
func SubscribeTyped[T any](b *Bus, t NotificationType, h func(context.Context, T) error) (unsubscribe func()) {
	return b.Subscribe(t, func(n Notification) error {
		payload, ok := n.Data.(T)
		if !ok {
			log.Debugf("bus: payload type mismatch for %s: got %T", t, n.Data)
			return nil
		}
		return h(n.Context(), payload)
	})
}

// Publish delivers n to all handlers of its type, synchronously. Handler
// errors and recovered panics are collected; publishing continues past
// failures. A cancelled context stops delivery of the remaining handlers.
func (b *Bus) Publish(n Notification) error {
	if err := n.Context().Err(); err != nil {
		return fmt.Errorf("notification %s: context cancelled before publish: %w", n.Type, err)
	}

	b.mu.RLock()
	handlers := make([]handler, 0, len(b.subscribers[n.Type]))
	for _, h := range b.subscribers[n.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := n.Context().Err(); err != nil {
			errs = append(errs, fmt.Errorf("context cancelled during delivery: %w", err))
			break
		}
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("handler panic for %s: %v", n.Type, r)
					log.Error(err)
				}
			}()
			return h(n)
		}()
		if err != nil {
			log.Errorf("bus: handler error for %s: %v", n.Type, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
