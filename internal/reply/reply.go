// Package reply interprets the operator's short SMS replies and applies
// them to the correct case via the alert context correlator.
package reply

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/calloway/dispatchline/internal/alertctx"
	"github.com/calloway/dispatchline/internal/cases"
	"github.com/calloway/dispatchline/internal/gateway"
	"github.com/calloway/dispatchline/internal/models"
	"gorm.io/gorm"
)

// missReply is sent when a mutation command arrives with nothing to act on.
const missReply = "Nothing to update right now."

// Interpreter dispatches inbound message bodies over an ordered command
// grammar. At most one command fires per message; every message is written
// to the audit trail regardless of match outcome.
type Interpreter struct {
	db       *gorm.DB
	contexts *alertctx.Store
	gateway  gateway.Sender
}

// InterpreterOpts holds parameters for creating an Interpreter.
type InterpreterOpts struct {
	DB       *gorm.DB
	Contexts *alertctx.Store
	Gateway  gateway.Sender
}

// NewInterpreter creates an Interpreter.
func NewInterpreter(opts InterpreterOpts) (*Interpreter, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("reply: db is required")
	}
	if opts.Contexts == nil {
		return nil, fmt.Errorf("reply: context store is required")
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("reply: gateway is required")
	}
	return &Interpreter{db: opts.DB, contexts: opts.Contexts, gateway: opts.Gateway}, nil
}

// Outcome describes what one inbound message did.
type Outcome struct {
	Command string // matched command name, empty when nothing matched
	Reply   string // confirmation text sent back, empty for silence
	CaseID  uint   // case acted on, zero when none
}

// inbound carries a message through the command pass.
type inbound struct {
	phone string
	raw   string // trimmed, original case (free-text arguments keep it)
	norm  string // trimmed, lower-cased for matching
	now   time.Time
}

// command is one row of the grammar: a predicate and its handler, evaluated
// in order with first match winning.
type command struct {
	name  string
	match func(m *inbound) bool
	run   func(ctx context.Context, it *Interpreter, m *inbound, out *Outcome) error
}

// grammar is the ordered command table. The numeric-with-argument form must
// precede the bare-digit row: "3" alone and "3 <text>" are different
// commands.
var grammar = []command{
	{name: "stop", match: matchWord("stop", "unsubscribe", "cancel", "end", "quit"), run: runStop},
	{name: "start", match: matchWord("start", "unstop", "subscribe"), run: runStart},
	{name: "note_with_text", match: matchNoteWithText, run: runNoteWithText},
	{name: "code", match: matchWord("1", "2", "3", "4", "5"), run: runCode},
	{name: "confirm", match: matchWord("ok", "y", "yes", "confirm"), run: runConfirm},
	{name: "call", match: matchWord("call", "phone", "number"), run: runCall},
	{name: "complete", match: matchWord("complete", "done", "finished"), run: runComplete},
	{name: "free_text", match: matchFreeText, run: runFreeText},
}

// Handle interprets one inbound message. The audit write happens before any
// matching, so even no-match paths leave a trail. The confirmation reply,
// if any, is sent through the gateway best-effort.
func (it *Interpreter) Handle(ctx context.Context, fromPhone, body string, now time.Time) (*Outcome, error) {
	m := &inbound{
		phone: fromPhone,
		raw:   strings.TrimSpace(body),
		now:   now,
	}
	m.norm = strings.ToLower(m.raw)

	if err := it.logMessage(models.DirectionInbound, fromPhone, m.raw, "", "received", nil, now); err != nil {
		return nil, err
	}

	out := &Outcome{}
	for _, cmd := range grammar {
		if !cmd.match(m) {
			continue
		}
		out.Command = cmd.name
		if err := cmd.run(ctx, it, m, out); err != nil {
			return nil, err
		}
		break
	}

	if out.Reply != "" {
		it.sendReply(ctx, m, out)
	}
	return out, nil
}

// sendReply delivers the confirmation and audits it. Failures are logged,
// never returned: the mutation has already happened.
func (it *Interpreter) sendReply(ctx context.Context, m *inbound, out *Outcome) {
	sid, err := it.gateway.Send(ctx, m.phone, out.Reply)
	status := "queued"
	if err != nil {
		log.Printf("reply: send confirmation to %s: %v", m.phone, err)
		status = "failed"
	}
	var caseID *uint
	if out.CaseID != 0 {
		caseID = &out.CaseID
	}
	if err := it.logMessage(models.DirectionOutbound, m.phone, out.Reply, sid, status, caseID, m.now); err != nil {
		log.Printf("reply: audit confirmation: %v", err)
	}
}

// logMessage appends one row to the SMS audit trail.
func (it *Interpreter) logMessage(direction, phone, body, sid, status string, caseID *uint, now time.Time) error {
	entry := models.SmsLog{
		Direction:      direction,
		Phone:          phone,
		Body:           body,
		ProviderSID:    sid,
		DeliveryStatus: status,
		CaseID:         caseID,
		CreatedAt:      now,
	}
	if err := it.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("reply: audit %s message: %w", direction, err)
	}
	return nil
}

// correlate resolves the case an inbound message refers to: the sender's
// current alert context, or, failing that, an open lead whose customer
// phone matches the sender directly. The returned record is nil on the
// fallback path.
func (it *Interpreter) correlate(m *inbound) (*models.Case, *models.AlertContextRecord, error) {
	rec, err := it.contexts.Current(m.phone, m.now)
	if err != nil {
		return nil, nil, err
	}
	if rec != nil {
		c, err := cases.Get(it.db, rec.CaseID)
		if err != nil {
			return nil, nil, err
		}
		return c, rec, nil
	}
	c, err := cases.FindOpenLeadByPhone(it.db, m.phone)
	if err != nil {
		return nil, nil, err
	}
	return c, nil, nil
}

// consume retires an alert context after a successful interpretation.
func (it *Interpreter) consume(rec *models.AlertContextRecord, code string, now time.Time) {
	if rec == nil {
		return
	}
	if err := it.contexts.Consume(rec, code, now); err != nil {
		log.Printf("reply: consume context %d: %v", rec.ID, err)
	}
}

// operatorByPhone finds the operator profile for a sender, or nil.
func (it *Interpreter) operatorByPhone(phone string) (*models.OperatorProfile, error) {
	var op models.OperatorProfile
	err := it.db.Where("phone = ?", phone).First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reply: operator lookup: %w", err)
	}
	return &op, nil
}

// displayName returns the customer name for confirmations, falling back to
// the phone number.
func displayName(c *models.Case) string {
	if c.CustomerName != "" {
		return c.CustomerName
	}
	return c.CustomerPhone
}
