package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/calloway/dispatchline/internal/cases"
	"github.com/calloway/dispatchline/internal/intake"
	"github.com/calloway/dispatchline/internal/models"
	"github.com/calloway/dispatchline/internal/notify"
	"github.com/calloway/dispatchline/internal/triage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// registerRoutes sets up the webhook routes on the gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/healthz", handleHealth())
	router.GET("/api/cases", handleCaseList(opts))
	router.POST("/webhook/intake", handleIntake(opts))
	router.POST("/webhook/sms", handleInboundSMS(opts))
	router.POST("/webhook/sms/status", handleSMSStatus(opts.DB))
	router.POST("/cron/drain", handleDrain(opts))
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// handleCaseList returns cases with their archetype derived at read time.
// By default only action-visible cases are included; ?all=1 lifts the
// filter.
func handleCaseList(opts StartOpts) gin.HandlerFunc {
	type caseView struct {
		ID            uint    `json:"id"`
		Kind          string  `json:"kind"`
		Status        string  `json:"status"`
		Archetype     string  `json:"archetype"`
		PriorityColor string  `json:"priority_color"`
		CustomerName  string  `json:"customer_name"`
		CustomerPhone string  `json:"customer_phone"`
		ServiceType   string  `json:"service_type"`
		ScheduledAt   *string `json:"scheduled_at,omitempty"`
	}

	return func(c *gin.Context) {
		var all []models.Case
		err := opts.DB.Order("created_at DESC").Find(&all).Error
		if err != nil {
			log.Printf("server: list cases: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
			return
		}

		now := time.Now()
		includeAll := c.Query("all") == "1"
		views := make([]caseView, 0, len(all))
		for i := range all {
			cs := &all[i]
			if !includeAll && !triage.ActionVisible(cs, now) {
				continue
			}
			v := caseView{
				ID:            cs.ID,
				Kind:          cs.Kind,
				Status:        cs.Status,
				Archetype:     string(triage.Classify(cs, opts.Config.Triage.RevenueThreshold)),
				PriorityColor: cs.PriorityColor,
				CustomerName:  cs.CustomerName,
				CustomerPhone: cs.CustomerPhone,
				ServiceType:   cs.ServiceType,
			}
			if cs.ScheduledAt != nil {
				s := cs.ScheduledAt.Format(time.RFC3339)
				v.ScheduledAt = &s
			}
			views = append(views, v)
		}
		c.JSON(http.StatusOK, gin.H{"cases": views})
	}
}

// handleIntake accepts a call-outcome event from the voice agent, creates or
// updates the case, and fires the operator alert. The alert is best-effort:
// a gateway problem never fails the webhook, the case is already saved.
func handleIntake(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ev intake.Event
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}

		res, err := intake.Process(opts.DB, opts.Config, &ev)
		if err != nil {
			var verr *intake.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
				return
			}
			log.Printf("server: intake: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "intake failed"})
			return
		}

		if res.Created && !cases.IsTerminal(res.Case.Status) {
			notifyOperator(c.Request.Context(), opts, res, ev.HasConflict)
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"case_id":      res.Case.ID,
			"kind":         res.Case.Kind,
			"status":       res.Case.Status,
			"archetype":    string(triage.Classify(res.Case, opts.Config.Triage.RevenueThreshold)),
			"deduplicated": !res.Created,
		})
	}
}

// notifyOperator sends the new-case alert through the scheduler.
func notifyOperator(ctx context.Context, opts StartOpts, res *intake.Result, hasConflict bool) {
	loc, err := time.LoadLocation(res.Operator.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now()
	eventType := notify.EventForCase(res.Case, loc, hasConflict, now)
	if _, err := opts.Scheduler.SendOperatorNotification(ctx, res.Operator, res.Case, eventType, now); err != nil {
		log.Printf("server: notify operator %d for case %d: %v", res.Operator.ID, res.Case.ID, err)
	}
}

// handleInboundSMS receives the provider's form-encoded inbound message
// callback and runs it through the reply interpreter. Always 204: the
// provider retries non-2xx responses and the interpreter audits everything
// itself.
func handleInboundSMS(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		from := c.PostForm("From")
		body := c.PostForm("Body")
		if from == "" {
			c.Status(http.StatusNoContent)
			return
		}
		if _, err := opts.Interpreter.Handle(c.Request.Context(), from, body, time.Now()); err != nil {
			log.Printf("server: inbound sms from %s: %v", from, err)
		}
		c.Status(http.StatusNoContent)
	}
}

// handleSMSStatus records delivery status callbacks against the audit trail.
// Always 200, even for unknown message ids: the provider retries otherwise.
func handleSMSStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.PostForm("MessageSid")
		status := c.PostForm("MessageStatus")
		if sid == "" || status == "" {
			c.Status(http.StatusOK)
			return
		}
		updates := map[string]any{"delivery_status": status}
		if code := c.PostForm("ErrorCode"); code != "" {
			updates["error_code"] = code
		}
		err := db.Model(&models.SmsLog{}).
			Where("provider_s_id = ? AND direction = ?", sid, models.DirectionOutbound).
			Updates(updates).Error
		if err != nil {
			log.Printf("server: sms status %s: %v", sid, err)
		}
		c.Status(http.StatusOK)
	}
}

// handleDrain triggers one bounded drain pass over the notification queue.
// Guarded by the shared drain secret when one is configured.
func handleDrain(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret := opts.Config.Server.DrainSecret; secret != "" {
			given := c.GetHeader("X-Drain-Secret")
			if subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
		}

		res, err := opts.Scheduler.DrainDue(c.Request.Context(), time.Now(), opts.Config.Drain.BatchSize)
		if err != nil {
			log.Printf("server: drain: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "drain failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sent":     res.Sent,
			"requeued": res.Requeued,
			"failed":   res.Failed,
			"skipped":  res.Skipped,
		})
	}
}
