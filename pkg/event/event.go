package event

import (
	"fmt"
	"strings"
	"time"
)

// Status describes where an event is in its scheduling lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// DefaultStatus is applied when a new event is created without a status.
const DefaultStatus = StatusPending

const maxTitleLength = 100

var allStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusScheduled,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Event is a scheduled interval of work tied to a client.
// ID, CreatedAt and UpdatedAt are assigned by the store, never by callers.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Client      string    `json:"client"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	AssignedTo  string    `json:"assignedTo,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	IsShared    bool      `json:"isShared"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FieldError is a single violated constraint on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every violated field of an event. The store
// collects all violations before returning, it never fails on the first one.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "event validation failed: " + strings.Join(msgs, "; ")
}

// Validate checks every invariant and returns a *ValidationError listing all
// violations, or nil when the event is well formed.
func (e Event) Validate() error {
	var fields []FieldError

	if strings.TrimSpace(e.Title) == "" {
		fields = append(fields, FieldError{Field: "title", Message: "title is required"})
	} else if len(e.Title) > maxTitleLength {
		fields = append(fields, FieldError{Field: "title", Message: fmt.Sprintf("title cannot exceed %d characters", maxTitleLength)})
	}
	if strings.TrimSpace(e.Client) == "" {
		fields = append(fields, FieldError{Field: "client", Message: "client name is required"})
	}
	if e.Start.IsZero() {
		fields = append(fields, FieldError{Field: "start", Message: "start date is required"})
	}
	if e.End.IsZero() {
		fields = append(fields, FieldError{Field: "end", Message: "end date is required"})
	}
	if !e.Start.IsZero() && !e.End.IsZero() && !e.End.After(e.Start) {
		fields = append(fields, FieldError{Field: "end", Message: "end date must be after start date"})
	}
	if !e.Status.IsValid() {
		fields = append(fields, FieldError{Field: "status", Message: fmt.Sprintf("status %q is not valid", e.Status)})
	}
	if strings.TrimSpace(e.CreatedBy) == "" {
		fields = append(fields, FieldError{Field: "createdBy", Message: "creator is required"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Overlaps reports whether the two events' intervals intersect. Boundaries
// are inclusive on both ends: two events touching at a single instant
// overlap. The predicate is symmetric.
func Overlaps(a, b Event) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// MonthWindow returns the calendar-month query window for the given year and
// month: [first of month 00:00:00, last of month 23:59:59.999]. An event
// belongs to the month when its interval intersects this window, so an event
// spanning a month boundary shows up in both months.
func MonthWindow(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Millisecond)
	return from, to
}

// Patch holds a partial update. Nil fields leave the stored value untouched;
// the merged record is re-validated as a whole before persisting.
type Patch struct {
	Title       *string    `json:"title"`
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
	Client      *string    `json:"client"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status"`
	AssignedTo  *string    `json:"assignedTo"`
	IsShared    *bool      `json:"isShared"`
}

// Apply merges the patch onto e and returns the result. Identity and
// timestamp fields are never patched.
func (p Patch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.Client != nil {
		e.Client = *p.Client
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.AssignedTo != nil {
		e.AssignedTo = *p.AssignedTo
	}
	if p.IsShared != nil {
		e.IsShared = *p.IsShared
	}
	return e
}
