package models

import "time"

// OperatorProfile holds per-operator alerting settings. Quiet hours are
// local wall-clock times in the operator's timezone, "HH:MM".
type OperatorProfile struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Name       string    `gorm:"size:128"`
	Phone      string    `gorm:"size:32;uniqueIndex"`
	Timezone   string    `gorm:"size:48;default:America/Chicago"`
	QuietStart string    `gorm:"size:5;default:21:00"`
	QuietEnd   string    `gorm:"size:5;default:08:00"`
	SmsOptIn   bool      `gorm:"default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
