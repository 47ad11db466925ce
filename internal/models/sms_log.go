package models

import "time"

// SMS directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// SmsLog is an append-only audit row for every message in or out of the
// gateway. Delivery status is updated in place by the provider's status
// callback; nothing else mutates a logged row.
type SmsLog struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	Direction      string    `gorm:"size:8;not null;index"`
	Phone          string    `gorm:"size:32;index"`
	Body           string    `gorm:"type:text"`
	ProviderSID    string    `gorm:"size:64;index"`
	DeliveryStatus string    `gorm:"size:16"`
	ErrorCode      string    `gorm:"size:16"`
	CaseID         *uint     `gorm:"index"`
	CreatedAt      time.Time
}
