package notify

import (
	"fmt"
	"time"

	"github.com/calloway/dispatchline/internal/models"
)

// Semantic event types attached to operator notifications.
const (
	EventSameDayBooking  = "same_day_booking"
	EventFutureBooking   = "future_booking"
	EventBookingConflict = "booking_conflict"
	EventAbandonedCall   = "abandoned_call"
	EventNewLead         = "new_lead"
)

// DetermineEventType maps scheduling context to a semantic event. Pure and
// timezone-aware: "same day" means the same calendar day in loc.
func DetermineEventType(scheduledAt time.Time, loc *time.Location, hasConflict bool, now time.Time) string {
	if hasConflict {
		return EventBookingConflict
	}
	y1, m1, d1 := scheduledAt.In(loc).Date()
	y2, m2, d2 := now.In(loc).Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return EventSameDayBooking
	}
	return EventFutureBooking
}

// EventForCase picks the event type for a freshly created case.
func EventForCase(c *models.Case, loc *time.Location, hasConflict bool, now time.Time) string {
	if c.Kind == models.KindJob && c.ScheduledAt != nil {
		return DetermineEventType(*c.ScheduledAt, loc, hasConflict, now)
	}
	if c.Status == models.LeadAbandoned {
		return EventAbandonedCall
	}
	return EventNewLead
}

// Correlatable reports whether replies to an event's alert should be
// attributed back to the case via the alert context store. Booking events
// are confirmed by recency (the OK command), not by correlation.
func Correlatable(eventType string) bool {
	switch eventType {
	case EventAbandonedCall, EventNewLead:
		return true
	}
	return false
}

// BuildBody renders the outbound alert text for a case event.
func BuildBody(c *models.Case, eventType string) string {
	name := c.CustomerName
	if name == "" {
		name = c.CustomerPhone
	}
	switch eventType {
	case EventSameDayBooking:
		return fmt.Sprintf("New booking TODAY: %s, %s at %s. Reply OK to confirm.",
			name, c.ServiceType, c.ScheduledAt.Format("3:04 PM"))
	case EventFutureBooking:
		return fmt.Sprintf("New booking: %s, %s on %s. Reply OK to confirm.",
			name, c.ServiceType, c.ScheduledAt.Format("Mon Jan 2 3:04 PM"))
	case EventBookingConflict:
		return fmt.Sprintf("Booking CONFLICT: %s, %s at %s overlaps an existing job.",
			name, c.ServiceType, c.ScheduledAt.Format("Mon Jan 2 3:04 PM"))
	case EventAbandonedCall:
		return fmt.Sprintf("Missed caller: %s (%s) hung up before booking. Reply 1 contacted, 2 left voicemail, 3 <note>, 4 won, 5 lost.",
			name, c.CustomerPhone)
	default:
		return fmt.Sprintf("New lead: %s (%s), %s. Reply 1 contacted, 2 left voicemail, 3 <note>, 4 won, 5 lost.",
			name, c.CustomerPhone, c.ServiceType)
	}
}
