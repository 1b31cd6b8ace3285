package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no event exists with the requested id.
var ErrNotFound = errors.New("event not found")

// ErrForbidden is returned when the caller is not allowed to see or modify
// the requested event.
var ErrForbidden = errors.New("not authorized to access this event")

// Filter narrows a Find call. A zero From/To means no time restriction; both
// must be set for the interval-overlap filter to apply. An empty Viewer
// disables visibility filtering (every event matches).
type Filter struct {
	From   time.Time
	To     time.Time
	Viewer string
}

func (f Filter) hasWindow() bool {
	return !f.From.IsZero() && !f.To.IsZero()
}

// matches reports whether e satisfies the filter. Both backends answer Find
// with exactly this predicate; the SQL store expresses it in its query.
func (f Filter) matches(e Event) bool {
	if f.hasWindow() {
		// Interval overlap, not containment: an event matches when it
		// intersects the window at all.
		if e.Start.After(f.To) || e.End.Before(f.From) {
			return false
		}
	}
	if f.Viewer != "" {
		if e.CreatedBy != f.Viewer && e.AssignedTo != f.Viewer && !e.IsShared {
			return false
		}
	}
	return true
}

// Store is the backend-agnostic event storage contract. The database and
// file implementations must be behaviorally indistinguishable: same
// validation, same defaults, same ordering, same errors.
type Store interface {
	// Create assigns a fresh id and timestamps, applies the default status
	// when omitted, validates and persists the event. Returns the stored
	// record or a *ValidationError listing every violated field.
	Create(ctx context.Context, e Event) (Event, error)
	// Get returns the event with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (Event, error)
	// Find returns events matching the filter, ordered by start ascending.
	Find(ctx context.Context, filter Filter) ([]Event, error)
	// Update merges the patch onto the stored record, re-validates the
	// result and bumps UpdatedAt. Returns ErrNotFound or *ValidationError.
	Update(ctx context.Context, id string, patch Patch) (Event, error)
	// Delete removes the event permanently. Deleting a missing id returns
	// ErrNotFound, never a silent success.
	Delete(ctx context.Context, id string) error
}

// prepareCreate applies the shared create semantics: server-assigned id,
// default status, created/updated timestamps, full validation. Both backends
// funnel through it so creation behaves identically everywhere.
func prepareCreate(e Event, now time.Time) (Event, error) {
	e.ID = uuid.New().String()
	if e.Status == "" {
		e.Status = DefaultStatus
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// prepareUpdate merges the patch onto stored and re-validates the resulting
// record, so cross-field invariants are checked against the stored values
// (patching only start still re-checks end > start).
func prepareUpdate(stored Event, patch Patch, now time.Time) (Event, error) {
	merged := patch.Apply(stored)
	merged.UpdatedAt = now
	if err := merged.Validate(); err != nil {
		return Event{}, err
	}
	return merged, nil
}
