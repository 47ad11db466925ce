package models

import "time"

// Case kinds. A Case is either a Lead (unbooked caller) or a Job (booking).
const (
	KindLead = "lead"
	KindJob  = "job"
)

// Lead statuses.
const (
	LeadCallbackRequested = "callback_requested"
	LeadThinking          = "thinking"
	LeadVoicemailLeft     = "voicemail_left"
	LeadInfoOnly          = "info_only"
	LeadDeferred          = "deferred"
	LeadAbandoned         = "abandoned"
	LeadSalesOpportunity  = "sales_opportunity"
	LeadConverted         = "converted"
	LeadLost              = "lost"
)

// Job statuses.
const (
	JobNew       = "new"
	JobConfirmed = "confirmed"
	JobEnRoute   = "en_route"
	JobOnSite    = "on_site"
	JobComplete  = "complete"
	JobCancelled = "cancelled"
)

// Priority colors assigned by the voice agent.
const (
	PriorityRed   = "red"
	PriorityGreen = "green"
	PriorityBlue  = "blue"
	PriorityGray  = "gray"
)

// Case is the core record tracked by the engine: a Lead or a Job,
// discriminated by Kind. Kind-specific fields are nullable.
type Case struct {
	ID              uint    `gorm:"primaryKey;autoIncrement"`
	Kind            string  `gorm:"size:8;not null;index"`
	ExternalCallID  string  `gorm:"size:64;uniqueIndex"`
	OperatorID      uint    `gorm:"index"`
	CustomerName    string  `gorm:"size:128"`
	CustomerPhone   string  `gorm:"size:32;index"`
	CustomerAddress string  `gorm:"size:256"`
	Status          string  `gorm:"size:24;not null;index"`
	PriorityColor   string  `gorm:"size:8;default:blue"`

	// Classification signals, read by the triage classifier. Archetype is
	// derived on read and never stored.
	Urgency             string   `gorm:"size:16"`
	RevenueTier         string   `gorm:"size:24"`
	EstimatedValue      *float64
	SentimentScore      *float64
	IsCallbackComplaint bool     `gorm:"default:false"`
	PropertyType        string   `gorm:"size:24"`

	ServiceType string     `gorm:"size:64"`
	ScheduledAt *time.Time // jobs only
	RemindAt    *time.Time // snooze: hides a lead from active triage until then

	CreatedAt time.Time
	UpdatedAt time.Time

	Notes []CaseNote `gorm:"foreignKey:CaseID"`
}

// CaseNote is one entry in a case's ordered note trail.
type CaseNote struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CaseID    uint      `gorm:"not null;index"`
	Text      string    `gorm:"type:text"`
	Source    string    `gorm:"size:24"` // "intake", "sms", "dashboard"
	Author    string    `gorm:"size:64"`
	CreatedAt time.Time
}
