package models

import "time"

// Notification queue entry statuses. "sending" is the in-flight claim state
// taken by a drain run before it talks to the gateway, so overlapping drains
// never double-send the same entry.
const (
	QueueStatusQueued  = "queued"
	QueueStatusSending = "sending"
	QueueStatusSent    = "sent"
	QueueStatusFailed  = "failed"
)

// NotificationQueueEntry is an operator alert deferred by quiet hours,
// waiting for the drain worker to deliver it.
type NotificationQueueEntry struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	OperatorID uint      `gorm:"not null;index"`
	CaseID     uint      `gorm:"not null;index"`
	EventType  string    `gorm:"size:32;not null"`
	Body       string    `gorm:"type:text"`
	SendAt     time.Time `gorm:"not null;index"`
	Status     string    `gorm:"size:8;default:queued;index"`
	Attempts   int       `gorm:"default:0"`
	LastError  string    `gorm:"size:256"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
