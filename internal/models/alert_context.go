package models

import "time"

// Alert context statuses.
const (
	ContextPending = "pending"
	ContextReplied = "replied"
)

// AlertContextRecord links an operator's phone to their most recent
// unreplied case alert, so a terse SMS reply can be attributed to the right
// case without naming it. At most one pending record per operator is treated
// as current; ties break by most-recent CreatedAt.
type AlertContextRecord struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	OperatorPhone string    `gorm:"size:32;not null;index"`
	CaseID        uint      `gorm:"not null;index"`
	CustomerName  string    `gorm:"size:128"`
	Status        string    `gorm:"size:8;default:pending;index"`
	RepliedAt     *time.Time
	ReplyCode     string    `gorm:"size:16"`
	CreatedAt     time.Time
}
