// Package intake turns voice-agent call-outcome events into Lead or Job
// cases, deduping on the external call id.
package intake

import (
	"errors"
	"fmt"
	"time"

	"github.com/calloway/dispatchline/internal/cases"
	"github.com/calloway/dispatchline/internal/config"
	"github.com/calloway/dispatchline/internal/models"
	"gorm.io/gorm"
)

// End-of-call reason codes reported by the voice agent.
const (
	ReasonBooked            = "booked"
	ReasonCallbackRequested = "callback_requested"
	ReasonCustomerHangup    = "customer_hangup"
	ReasonVoicemail         = "voicemail"
	ReasonThinking          = "thinking"
	ReasonInfoOnly          = "info_only"
	ReasonSpam              = "spam"
)

// Event is a call-outcome event from the voice agent.
type Event struct {
	ExternalCallID  string     `json:"external_call_id"`
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   string     `json:"customer_phone"`
	CustomerAddress string     `json:"customer_address"`
	ServiceType     string     `json:"service_type"`
	Urgency         string     `json:"urgency"`
	EndCallReason   string     `json:"end_call_reason"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	HasConflict     bool       `json:"has_conflict"`
	RevenueTier     string     `json:"revenue_tier"`
	EstimatedValue  *float64   `json:"estimated_value"`
	SentimentScore  *float64   `json:"sentiment_score"`
	IsCallback      bool       `json:"is_callback_complaint"`
	PropertyType    string     `json:"property_type"`
	Summary         string     `json:"summary"`
}

// ValidationError reports a malformed intake event. Nothing is written when
// one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("intake: invalid event: %s %s", e.Field, e.Reason)
}

// Result describes the outcome of processing one intake event.
type Result struct {
	Case     *models.Case
	Operator *models.OperatorProfile
	Created  bool // false when the event deduped onto an existing case
}

// Process validates, dedupes, and persists one intake event. A second
// delivery with the same external call id updates the existing case instead
// of creating a duplicate. A missing operator profile is auto-provisioned
// from config defaults so intake never loses a case.
func Process(db *gorm.DB, cfg *config.Config, ev *Event) (*Result, error) {
	if err := validate(ev); err != nil {
		return nil, err
	}

	op, err := ensureOperator(db, cfg)
	if err != nil {
		return nil, err
	}

	existing, err := cases.FindByExternalCallID(db, ev.ExternalCallID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := applyUpdate(db, existing, ev); err != nil {
			return nil, err
		}
		return &Result{Case: existing, Operator: op, Created: false}, nil
	}

	c := normalize(ev)
	c.OperatorID = op.ID
	if err := db.Create(c).Error; err != nil {
		// A concurrent delivery may have won the race; fall back to the
		// lookup so both deliveries collapse to one case.
		if dup, lookupErr := cases.FindByExternalCallID(db, ev.ExternalCallID); lookupErr == nil && dup != nil {
			if err := applyUpdate(db, dup, ev); err != nil {
				return nil, err
			}
			return &Result{Case: dup, Operator: op, Created: false}, nil
		}
		return nil, fmt.Errorf("intake: create case: %w", err)
	}

	if ev.Summary != "" {
		if err := cases.AddNote(db, c.ID, ev.Summary, "intake", "voice-agent"); err != nil {
			return nil, err
		}
	}
	return &Result{Case: c, Operator: op, Created: true}, nil
}

// validate checks the event for required fields.
func validate(ev *Event) error {
	if ev.ExternalCallID == "" {
		return &ValidationError{Field: "external_call_id", Reason: "is required"}
	}
	if ev.CustomerPhone == "" && ev.CustomerName == "" {
		return &ValidationError{Field: "customer", Reason: "needs a name or phone"}
	}
	if ev.ScheduledAt == nil && ev.EndCallReason == "" {
		return &ValidationError{Field: "end_call_reason", Reason: "is required for unbooked calls"}
	}
	return nil
}

// normalize maps an event to a new case with its initial status. A call
// with a scheduling hint becomes a Job; everything else is a Lead whose
// initial status follows the end-of-call reason.
func normalize(ev *Event) *models.Case {
	c := &models.Case{
		ExternalCallID:      ev.ExternalCallID,
		CustomerName:        ev.CustomerName,
		CustomerPhone:       ev.CustomerPhone,
		CustomerAddress:     ev.CustomerAddress,
		ServiceType:         ev.ServiceType,
		Urgency:             ev.Urgency,
		RevenueTier:         ev.RevenueTier,
		EstimatedValue:      ev.EstimatedValue,
		SentimentScore:      ev.SentimentScore,
		IsCallbackComplaint: ev.IsCallback,
		PropertyType:        ev.PropertyType,
		PriorityColor:       models.PriorityBlue,
	}

	if ev.ScheduledAt != nil || ev.EndCallReason == ReasonBooked {
		c.Kind = models.KindJob
		c.Status = models.JobNew
		c.ScheduledAt = ev.ScheduledAt
		return c
	}

	c.Kind = models.KindLead
	switch ev.EndCallReason {
	case ReasonCustomerHangup:
		// An abandoned call is a hot lead: the caller wanted a human.
		c.Status = models.LeadAbandoned
		c.PriorityColor = models.PriorityRed
	case ReasonCallbackRequested:
		c.Status = models.LeadCallbackRequested
	case ReasonVoicemail:
		c.Status = models.LeadVoicemailLeft
	case ReasonInfoOnly:
		c.Status = models.LeadInfoOnly
	case ReasonSpam:
		c.Status = models.LeadLost
		c.PriorityColor = models.PriorityGray
	case ReasonThinking:
		c.Status = models.LeadThinking
	default:
		c.Status = models.LeadSalesOpportunity
	}
	return c
}

// applyUpdate refreshes an existing case from a duplicate delivery. Signals
// are updated; a terminal status is left alone.
func applyUpdate(db *gorm.DB, c *models.Case, ev *Event) error {
	updates := map[string]interface{}{
		"customer_name":         ev.CustomerName,
		"customer_phone":        ev.CustomerPhone,
		"customer_address":      ev.CustomerAddress,
		"service_type":          ev.ServiceType,
		"urgency":               ev.Urgency,
		"revenue_tier":          ev.RevenueTier,
		"estimated_value":       ev.EstimatedValue,
		"sentiment_score":       ev.SentimentScore,
		"is_callback_complaint": ev.IsCallback,
		"property_type":         ev.PropertyType,
	}
	if ev.ScheduledAt != nil && c.Kind == models.KindJob {
		updates["scheduled_at"] = ev.ScheduledAt
	}
	if err := db.Model(&models.Case{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("intake: update case %d: %w", c.ID, err)
	}
	if err := db.First(c, c.ID).Error; err != nil {
		return fmt.Errorf("intake: reload case %d: %w", c.ID, err)
	}
	return nil
}

// ensureOperator returns the configured operator profile, provisioning a
// minimal one from config defaults when none exists yet.
func ensureOperator(db *gorm.DB, cfg *config.Config) (*models.OperatorProfile, error) {
	var op models.OperatorProfile
	err := db.Order("id ASC").First(&op).Error
	if err == nil {
		return &op, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("intake: load operator: %w", err)
	}

	op = models.OperatorProfile{
		Name:       cfg.Operator.Name,
		Phone:      cfg.Operator.Phone,
		Timezone:   cfg.Operator.Timezone,
		QuietStart: cfg.Operator.QuietStart,
		QuietEnd:   cfg.Operator.QuietEnd,
		SmsOptIn:   true,
	}
	if err := db.Create(&op).Error; err != nil {
		return nil, fmt.Errorf("intake: provision operator: %w", err)
	}
	return &op, nil
}
