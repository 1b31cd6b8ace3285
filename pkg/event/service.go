package event

import (
	"context"
	"fmt"
	"time"

	"github.com/prodige/prodige/internal/event_bus"
	"github.com/prodige/prodige/pkg/user"
	log "github.com/sirupsen/logrus"
)

// Service enforces ownership and visibility rules on top of a Store and
// publishes change notifications on the bus. The caller identity comes from
// the request context (set by the auth middleware).
type Service struct {
	store Store
	bus   *event_bus.Bus
}

func NewService(store Store, bus *event_bus.Bus) *Service {
	return &Service{store: store, bus: bus}
}

// visibleTo mirrors the range-query visibility rule for single-event reads.
func visibleTo(e Event, u user.User) bool {
	return e.IsShared || e.CreatedBy == u.ID || e.AssignedTo == u.ID
}

// canModify allows the creator and admins to update or delete an event.
func canModify(e Event, u user.User) bool {
	return e.CreatedBy == u.ID || u.IsAdmin()
}

// Create stamps the caller as creator and persists the event.
func (s *Service) Create(ctx context.Context, draft Event) (Event, error) {
	caller, err := user.Current(ctx)
	if err != nil {
		return Event{}, err
	}
	draft.CreatedBy = caller.ID

	created, err := s.store.Create(ctx, draft)
	if err != nil {
		return Event{}, err
	}
	s.notify(ctx, event_bus.CalendarEventCreated, created, caller)
	return created, nil
}

// Get returns the event when the caller may see it, ErrForbidden otherwise.
func (s *Service) Get(ctx context.Context, id string) (Event, error) {
	caller, err := user.Current(ctx)
	if err != nil {
		return Event{}, err
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if !visibleTo(e, caller) {
		return Event{}, ErrForbidden
	}
	return e, nil
}

// List returns all events visible to the caller, ordered by start. When
// year and month are given it narrows to events intersecting that calendar
// month window.
func (s *Service) List(ctx context.Context, year int, month time.Month) ([]Event, error) {
	caller, err := user.Current(ctx)
	if err != nil {
		return nil, err
	}
	filter := Filter{Viewer: caller.ID}
	if year != 0 && month != 0 {
		filter.From, filter.To = MonthWindow(year, month)
	}
	return s.store.Find(ctx, filter)
}

// Update applies a partial update when the caller is the creator or an admin.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Event, error) {
	caller, err := user.Current(ctx)
	if err != nil {
		return Event{}, err
	}
	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if !canModify(stored, caller) {
		return Event{}, ErrForbidden
	}

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return Event{}, err
	}
	s.notify(ctx, event_bus.CalendarEventUpdated, updated, caller)
	return updated, nil
}

// Delete removes the event permanently, with the same permission rule as
// Update. Deleting a missing id surfaces ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	caller, err := user.Current(ctx)
	if err != nil {
		return err
	}
	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(stored, caller) {
		return ErrForbidden
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, event_bus.CalendarEventDeleted, stored, caller)
	return nil
}

// Conflicts returns every other visible event whose interval overlaps the
// given event's, boundaries included.
func (s *Service) Conflicts(ctx context.Context, id string) ([]Event, error) {
	target, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	caller, err := user.Current(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.Find(ctx, Filter{From: target.Start, To: target.End, Viewer: caller.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up overlapping events: %w", err)
	}

	conflicts := make([]Event, 0, len(candidates))
	for _, c := range candidates {
		if c.ID != target.ID && Overlaps(target, c) {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts, nil
}

func (s *Service) notify(ctx context.Context, t event_bus.NotificationType, e Event, actor user.User) {
	if s.bus == nil {
		return
	}
	change := event_bus.CalendarEventChange{
		ID:     e.ID,
		Title:  e.Title,
		Start:  e.Start,
		End:    e.End,
		Status: string(e.Status),
		Actor:  actor.ID,
	}
	if err := s.bus.Publish(event_bus.NewNotification(ctx, t, change)); err != nil {
		log.Warnf("failed to publish %s notification: %v", t, err)
	}
}
