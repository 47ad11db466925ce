// Package cases provides case lifecycle operations shared by intake,
// notification, and the SMS reply interpreter.
package cases

import (
	"errors"
	"fmt"
	"time"

	"github.com/calloway/dispatchline/internal/models"
	"gorm.io/gorm"
)

// ErrTerminalStatus is returned when a transition targets a case that has
// already reached a terminal status.
var ErrTerminalStatus = errors.New("cases: case is in a terminal status")

// leadStatuses and jobStatuses are the full status sets per kind.
var leadStatuses = map[string]bool{
	models.LeadCallbackRequested: true,
	models.LeadThinking:          true,
	models.LeadVoicemailLeft:     true,
	models.LeadInfoOnly:          true,
	models.LeadDeferred:          true,
	models.LeadAbandoned:         true,
	models.LeadSalesOpportunity:  true,
	models.LeadConverted:         true,
	models.LeadLost:              true,
}

var jobStatuses = map[string]bool{
	models.JobNew:       true,
	models.JobConfirmed: true,
	models.JobEnRoute:   true,
	models.JobOnSite:    true,
	models.JobComplete:  true,
	models.JobCancelled: true,
}

// terminalStatuses are never re-mutated once reached.
var terminalStatuses = map[string]bool{
	models.LeadConverted: true,
	models.LeadLost:      true,
	models.JobComplete:   true,
	models.JobCancelled:  true,
}

// IsTerminal reports whether a status is terminal for any kind.
func IsTerminal(status string) bool {
	return terminalStatuses[status]
}

// ValidStatus reports whether status belongs to the given case kind.
func ValidStatus(kind, status string) bool {
	switch kind {
	case models.KindLead:
		return leadStatuses[status]
	case models.KindJob:
		return jobStatuses[status]
	}
	return false
}

// Transition moves a case to a new status. Terminal cases are never
// re-mutated; statuses from the wrong kind are rejected. The passed case is
// updated in place on success.
func Transition(db *gorm.DB, c *models.Case, newStatus string) error {
	if !ValidStatus(c.Kind, newStatus) {
		return fmt.Errorf("cases: status %q is not valid for kind %q", newStatus, c.Kind)
	}
	if IsTerminal(c.Status) {
		return fmt.Errorf("cases: transition %s from %q to %q: %w", ref(c), c.Status, newStatus, ErrTerminalStatus)
	}

	if err := db.Model(&models.Case{}).Where("id = ?", c.ID).
		Update("status", newStatus).Error; err != nil {
		return fmt.Errorf("cases: update status of %s: %w", ref(c), err)
	}
	c.Status = newStatus
	return nil
}

// AddNote appends a note to a case's trail.
func AddNote(db *gorm.DB, caseID uint, text, source, author string) error {
	note := models.CaseNote{
		CaseID:    caseID,
		Text:      text,
		Source:    source,
		Author:    author,
		CreatedAt: time.Now(),
	}
	if err := db.Create(&note).Error; err != nil {
		return fmt.Errorf("cases: add note to case %d: %w", caseID, err)
	}
	return nil
}

// Get retrieves a case by ID, preloading its notes.
func Get(db *gorm.DB, id uint) (*models.Case, error) {
	var c models.Case
	if err := db.Preload("Notes").Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cases: not found: %d", id)
		}
		return nil, fmt.Errorf("cases: get %d: %w", id, err)
	}
	return &c, nil
}

// FindByExternalCallID looks up a case by the voice agent's call id, the
// intake dedup key. Returns (nil, nil) when no case matches.
func FindByExternalCallID(db *gorm.DB, callID string) (*models.Case, error) {
	var c models.Case
	err := db.Where("external_call_id = ?", callID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cases: find by call id %s: %w", callID, err)
	}
	return &c, nil
}

// FindOpenLeadByPhone returns the most recent non-terminal lead whose
// customer phone matches, or (nil, nil). Used as the correlation fallback
// when an inbound reply has no alert context.
func FindOpenLeadByPhone(db *gorm.DB, phone string) (*models.Case, error) {
	var c models.Case
	err := db.Where("kind = ? AND customer_phone = ? AND status NOT IN ?",
		models.KindLead, phone, terminalList()).
		Order("created_at DESC").First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cases: find open lead by phone: %w", err)
	}
	return &c, nil
}

// MostRecentUnconfirmedJob returns the operator's newest job still awaiting
// confirmation, or (nil, nil).
func MostRecentUnconfirmedJob(db *gorm.DB, operatorID uint) (*models.Case, error) {
	var c models.Case
	err := db.Where("kind = ? AND operator_id = ? AND status = ?",
		models.KindJob, operatorID, models.JobNew).
		Order("created_at DESC").First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cases: most recent unconfirmed job: %w", err)
	}
	return &c, nil
}

// MostRecentActive returns the operator's newest non-terminal case, or
// (nil, nil). Used by the read-only CALL command and by COMPLETE.
func MostRecentActive(db *gorm.DB, operatorID uint) (*models.Case, error) {
	var c models.Case
	err := db.Where("operator_id = ? AND status NOT IN ?", operatorID, terminalList()).
		Order("created_at DESC").First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cases: most recent active: %w", err)
	}
	return &c, nil
}

// terminalList returns terminal statuses as a slice for SQL IN clauses.
func terminalList() []string {
	out := make([]string, 0, len(terminalStatuses))
	for s := range terminalStatuses {
		out = append(out, s)
	}
	return out
}

// ref formats a case for error messages.
func ref(c *models.Case) string {
	return fmt.Sprintf("%s/%d", c.Kind, c.ID)
}
