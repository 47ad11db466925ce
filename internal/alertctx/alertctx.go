// Package alertctx stores and correlates alert context records, letting an
// operator's terse SMS reply be attributed to the right case without naming
// it.
package alertctx

import (
	"errors"
	"fmt"
	"time"

	"github.com/calloway/dispatchline/internal/models"
	"gorm.io/gorm"
)

// DefaultWindow is the correlation window when none is configured: a reply
// only matches an alert created within the last hour.
const DefaultWindow = time.Hour

// Store reads and writes alert context records.
type Store struct {
	db     *gorm.DB
	window time.Duration
}

// StoreOpts holds parameters for creating a Store.
type StoreOpts struct {
	DB     *gorm.DB
	Window time.Duration // defaults to DefaultWindow
}

// NewStore creates a Store.
func NewStore(opts StoreOpts) (*Store, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("alertctx: db is required")
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{db: opts.DB, window: window}, nil
}

// Record writes a pending context record for a just-sent alert.
func (s *Store) Record(operatorPhone string, caseID uint, customerName string, now time.Time) (*models.AlertContextRecord, error) {
	if operatorPhone == "" {
		return nil, fmt.Errorf("alertctx: operator phone is required")
	}
	rec := models.AlertContextRecord{
		OperatorPhone: operatorPhone,
		CaseID:        caseID,
		CustomerName:  customerName,
		Status:        models.ContextPending,
		CreatedAt:     now,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("alertctx: record: %w", err)
	}
	return &rec, nil
}

// Current returns the operator's most recent pending record created within
// the correlation window, or (nil, nil) when none matches. With multiple
// alerts in flight the newest pending one wins; replied records are never
// returned.
func (s *Store) Current(operatorPhone string, now time.Time) (*models.AlertContextRecord, error) {
	var rec models.AlertContextRecord
	err := s.db.Where("operator_phone = ? AND status = ? AND created_at > ?",
		operatorPhone, models.ContextPending, now.Add(-s.window)).
		Order("created_at DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("alertctx: current for %s: %w", operatorPhone, err)
	}
	return &rec, nil
}

// Consume marks a record replied with the interpreted reply code, retiring
// it from future matching. An already-replied record is never re-attributed.
func (s *Store) Consume(rec *models.AlertContextRecord, replyCode string, now time.Time) error {
	result := s.db.Model(&models.AlertContextRecord{}).
		Where("id = ? AND status = ?", rec.ID, models.ContextPending).
		Updates(map[string]interface{}{
			"status":     models.ContextReplied,
			"replied_at": now,
			"reply_code": replyCode,
		})
	if result.Error != nil {
		return fmt.Errorf("alertctx: consume %d: %w", rec.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("alertctx: record %d already replied", rec.ID)
	}
	rec.Status = models.ContextReplied
	rec.RepliedAt = &now
	rec.ReplyCode = replyCode
	return nil
}
