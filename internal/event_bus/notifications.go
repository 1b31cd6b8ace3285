package event_bus

import "time"

const (
	CalendarEventCreated NotificationType = "calendar.event.created"
	CalendarEventUpdated NotificationType = "calendar.event.updated"
	CalendarEventDeleted NotificationType = "calendar.event.deleted"
)

// CalendarEventChange is published after every successful event mutation.
// Actor is the id of the user who performed the change.
type CalendarEventChange struct {
	ID     string
	Title  string
	Start  time.Time
	End    time.Time
	Status string
	Actor  string
}
