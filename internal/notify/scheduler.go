// Package notify decides when and how the operator is alerted about a case:
// immediate SMS, or a queued entry drained after quiet hours end.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/calloway/dispatchline/internal/alertctx"
	"github.com/calloway/dispatchline/internal/gateway"
	"github.com/calloway/dispatchline/internal/gateway/mirror"
	"github.com/calloway/dispatchline/internal/models"
	"gorm.io/gorm"
)

// Result reports what SendOperatorNotification did. Reason is set whenever
// nothing was sent.
type Result struct {
	Sent   bool
	Queued bool
	Reason string
}

// Reasons for a notification not being sent immediately.
const (
	ReasonQuietHours   = "quiet_hours"
	ReasonOptedOut     = "opted_out"
	ReasonNoPhone      = "no_phone"
	ReasonCooldown     = "cooldown"
	ReasonGatewayError = "gateway_error"
)

// Scheduler routes operator notifications through the quiet-hours policy.
type Scheduler struct {
	db       *gorm.DB
	gateway  gateway.Sender
	contexts *alertctx.Store
	mirror   *mirror.Mirror
	cooldown time.Duration
}

// SchedulerOpts holds parameters for creating a Scheduler.
type SchedulerOpts struct {
	DB       *gorm.DB
	Gateway  gateway.Sender
	Contexts *alertctx.Store
	Mirror   *mirror.Mirror // optional
	Cooldown time.Duration  // optional; per-case alert suppression window
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("notify: db is required")
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("notify: gateway is required")
	}
	if opts.Contexts == nil {
		return nil, fmt.Errorf("notify: context store is required")
	}
	return &Scheduler{
		db:       opts.DB,
		gateway:  opts.Gateway,
		contexts: opts.Contexts,
		mirror:   opts.Mirror,
		cooldown: opts.Cooldown,
	}, nil
}

// SendOperatorNotification alerts the operator about a case event. Outside
// quiet hours it sends immediately; inside, it queues an entry with send_at
// at the window end and sends nothing. A gateway failure is non-fatal: the
// triggering case write has already succeeded and is never rolled back.
func (s *Scheduler) SendOperatorNotification(ctx context.Context, op *models.OperatorProfile, c *models.Case, eventType string, now time.Time) (*Result, error) {
	if !op.SmsOptIn {
		return &Result{Reason: ReasonOptedOut}, nil
	}
	if op.Phone == "" {
		return &Result{Reason: ReasonNoPhone}, nil
	}

	if s.cooldown > 0 {
		recent, err := s.recentlyAlerted(c.ID, now)
		if err != nil {
			return nil, err
		}
		if recent {
			return &Result{Reason: ReasonCooldown}, nil
		}
	}

	body := BuildBody(c, eventType)

	windowEnd, inQuiet, err := QuietHoursEnd(op, now)
	if err != nil {
		return nil, err
	}
	if inQuiet {
		entry := models.NotificationQueueEntry{
			OperatorID: op.ID,
			CaseID:     c.ID,
			EventType:  eventType,
			Body:       body,
			SendAt:     windowEnd,
			Status:     models.QueueStatusQueued,
		}
		if err := s.db.Create(&entry).Error; err != nil {
			return nil, fmt.Errorf("notify: queue entry for case %d: %w", c.ID, err)
		}
		return &Result{Queued: true, Reason: ReasonQuietHours}, nil
	}

	if err := s.deliver(ctx, op, c, eventType, body, now); err != nil {
		log.Printf("notify: gateway send for case %d: %v", c.ID, err)
		return &Result{Reason: ReasonGatewayError}, nil
	}
	return &Result{Sent: true}, nil
}

// deliver performs the actual gateway send plus its bookkeeping: audit log,
// alert context for correlatable events, and the best-effort chat mirror.
func (s *Scheduler) deliver(ctx context.Context, op *models.OperatorProfile, c *models.Case, eventType, body string, now time.Time) error {
	sid, sendErr := s.gateway.Send(ctx, op.Phone, body)

	logEntry := models.SmsLog{
		Direction:      models.DirectionOutbound,
		Phone:          op.Phone,
		Body:           body,
		ProviderSID:    sid,
		DeliveryStatus: "queued",
		CaseID:         &c.ID,
		CreatedAt:      now,
	}
	if sendErr != nil {
		logEntry.DeliveryStatus = "failed"
	}
	if err := s.db.Create(&logEntry).Error; err != nil {
		log.Printf("notify: audit log for case %d: %v", c.ID, err)
	}

	if sendErr != nil {
		return sendErr
	}

	if Correlatable(eventType) {
		if _, err := s.contexts.Record(op.Phone, c.ID, c.CustomerName, now); err != nil {
			log.Printf("notify: alert context for case %d: %v", c.ID, err)
		}
	}
	s.mirror.Post(ctx, body)
	return nil
}

// recentlyAlerted reports whether an outbound alert for the case exists
// within the cooldown window.
func (s *Scheduler) recentlyAlerted(caseID uint, now time.Time) (bool, error) {
	var count int64
	err := s.db.Model(&models.SmsLog{}).
		Where("case_id = ? AND direction = ? AND created_at > ?",
			caseID, models.DirectionOutbound, now.Add(-s.cooldown)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("notify: cooldown check for case %d: %w", caseID, err)
	}
	if count > 0 {
		return true, nil
	}
	// Queued entries count too, or a quiet-hours re-trigger would stack
	// duplicate alerts for the morning drain.
	err = s.db.Model(&models.NotificationQueueEntry{}).
		Where("case_id = ? AND status IN ? AND created_at > ?",
			caseID, []string{models.QueueStatusQueued, models.QueueStatusSending}, now.Add(-s.cooldown)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("notify: cooldown queue check for case %d: %w", caseID, err)
	}
	return count > 0, nil
}
