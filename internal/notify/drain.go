package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/calloway/dispatchline/internal/models"
	"gorm.io/gorm"
)

// DefaultDrainBatch bounds how many queued entries one drain run handles.
const DefaultDrainBatch = 50

// DrainResult summarizes one drain run.
type DrainResult struct {
	Sent     int
	Requeued int
	Failed   int
	Skipped  int // claimed by a concurrent run
}

// DrainDue processes queued entries whose send_at has passed. Each entry is
// claimed with a conditional status update before sending, so duplicate or
// overlapping drain invocations never double-send. Entries still inside
// quiet hours (conditions may have changed since enqueue) are requeued with
// a fresh send_at rather than failed.
func (s *Scheduler) DrainDue(ctx context.Context, now time.Time, batch int) (*DrainResult, error) {
	if batch <= 0 {
		batch = DefaultDrainBatch
	}

	var entries []models.NotificationQueueEntry
	if err := s.db.Where("status = ? AND send_at <= ?", models.QueueStatusQueued, now).
		Order("send_at ASC").Limit(batch).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("notify: select due entries: %w", err)
	}

	res := &DrainResult{}
	for i := range entries {
		entry := &entries[i]

		claim := s.db.Model(&models.NotificationQueueEntry{}).
			Where("id = ? AND status = ?", entry.ID, models.QueueStatusQueued).
			Update("status", models.QueueStatusSending)
		if claim.Error != nil {
			return res, fmt.Errorf("notify: claim entry %d: %w", entry.ID, claim.Error)
		}
		if claim.RowsAffected == 0 {
			res.Skipped++
			continue
		}

		if err := s.drainOne(ctx, entry, now); err != nil {
			log.Printf("notify: drain entry %d: %v", entry.ID, err)
			res.Failed++
			continue
		}
		switch entry.Status {
		case models.QueueStatusSent:
			res.Sent++
		case models.QueueStatusQueued:
			res.Requeued++
		case models.QueueStatusFailed:
			res.Failed++
		}
	}
	return res, nil
}

// drainOne handles a single claimed entry: quiet-hours recheck, send, and
// final status. The entry is updated in place.
func (s *Scheduler) drainOne(ctx context.Context, entry *models.NotificationQueueEntry, now time.Time) error {
	var op models.OperatorProfile
	if err := s.db.First(&op, entry.OperatorID).Error; err != nil {
		s.finishEntry(entry, models.QueueStatusFailed, "operator not found")
		return fmt.Errorf("load operator %d: %w", entry.OperatorID, err)
	}

	if !op.SmsOptIn {
		s.finishEntry(entry, models.QueueStatusFailed, "operator opted out")
		return nil
	}

	windowEnd, inQuiet, err := QuietHoursEnd(&op, now)
	if err != nil {
		s.finishEntry(entry, models.QueueStatusFailed, err.Error())
		return err
	}
	if inQuiet {
		if uerr := s.db.Model(&models.NotificationQueueEntry{}).Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"status":  models.QueueStatusQueued,
				"send_at": windowEnd,
			}).Error; uerr != nil {
			return fmt.Errorf("requeue entry %d: %w", entry.ID, uerr)
		}
		entry.Status = models.QueueStatusQueued
		entry.SendAt = windowEnd
		return nil
	}

	var c models.Case
	if err := s.db.First(&c, entry.CaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.finishEntry(entry, models.QueueStatusFailed, "case not found")
			return nil
		}
		s.finishEntry(entry, models.QueueStatusFailed, err.Error())
		return fmt.Errorf("load case %d: %w", entry.CaseID, err)
	}

	if err := s.deliver(ctx, &op, &c, entry.EventType, entry.Body, now); err != nil {
		s.finishEntry(entry, models.QueueStatusFailed, err.Error())
		return nil
	}
	s.finishEntry(entry, models.QueueStatusSent, "")
	return nil
}

// finishEntry records an entry's terminal status and bumps its attempt count.
func (s *Scheduler) finishEntry(entry *models.NotificationQueueEntry, status, lastError string) {
	if len(lastError) > 256 {
		lastError = lastError[:256]
	}
	if err := s.db.Model(&models.NotificationQueueEntry{}).Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"status":     status,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		}).Error; err != nil {
		log.Printf("notify: finish entry %d: %v", entry.ID, err)
	}
	entry.Status = status
	entry.Attempts++
	entry.LastError = lastError
}
