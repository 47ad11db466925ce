package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/calloway/dispatchline/internal/cases"
	"github.com/calloway/dispatchline/internal/models"
)

// codeAction maps a bare digit reply to its lead transition and auto-note.
type codeAction struct {
	status string
	note   string
	label  string
}

var codeActions = map[string]codeAction{
	"1": {models.LeadCallbackRequested, "Contacted via phone", "contacted"},
	"2": {models.LeadVoicemailLeft, "Left voicemail", "voicemail left"},
	"4": {models.LeadConverted, "Marked won via SMS", "converted"},
	"5": {models.LeadLost, "Marked lost via SMS", "lost"},
}

// matchWord builds a predicate matching the whole normalized body against
// any of the given tokens.
func matchWord(words ...string) func(m *inbound) bool {
	return func(m *inbound) bool {
		for _, w := range words {
			if m.norm == w {
				return true
			}
		}
		return false
	}
}

// matchNoteWithText matches "3 <text>" and "3: <text>". Checked before the
// bare-digit row.
func matchNoteWithText(m *inbound) bool {
	return noteText(m.raw) != ""
}

// noteText extracts the note argument from a "3 ..." body, preserving the
// original case. Returns "" when the body is not a note-with-text command.
func noteText(raw string) string {
	if len(raw) < 2 || raw[0] != '3' {
		return ""
	}
	rest := raw[1:]
	if rest[0] == ':' {
		rest = rest[1:]
	} else if rest[0] != ' ' {
		return ""
	}
	return strings.TrimSpace(rest)
}

// matchFreeText matches anything longer than three characters; the handler
// still requires a correlator hit before treating it as a note.
func matchFreeText(m *inbound) bool {
	return len(m.norm) > 3
}

func runStop(ctx context.Context, it *Interpreter, m *inbound, out *Outcome) error {
	op, err := it.operatorByPhone(m.phone)
	if err != nil {
		return err
	}
	if op == nil {
		return nil
	}
	if err := it.db.Model(&models.OperatorProfile{}).Where("id = ?", op.ID).
		Update("sms_opt_in", false).Error; err != nil {
		return fmt.Errorf("reply: clear opt-in: %w", err)
	}
	// Carrier rules: no reply to STOP.
	return nil
}

func runStart(ctx context.Context, it *Interpreter, m *inbound, out *Outcome) error {
	op, err := it.operatorByPhone(m.phone)
	if err != nil {
		return err
	}
	if op == nil {
		return nil
	}
	if err := it.db.Model(&models.OperatorProfile{}).Where("id = ?", op.ID).
		Update("sms_opt_in", true).Error; err != nil {
		return fmt.Errorf("reply: set opt-in: %w", err)
	}
	return nil
}

func runNoteWithText(ctx context.Context, it *Interpreter, m *inbound, out *Outcome) error {
	c, rec, err := it.correlate(m)
	if err != nil {
		return err
	}
	if c == nil {
		out.Reply = missReply
		return nil
	}
	if err := cases.AddNote(it.db, c.ID, noteText(m.raw), "sms", "operator"); err != nil {
		return err
	}
	it.consume(rec, "3", m.now)
	out.CaseID = c.ID
	out.Reply = fmt.Sprintf("✓ Note added for %s", displayName(c))
	return nil
}

func runCode(ctx context.Context, it *Interpreter, m *inbound, out *Outcome) error {
	if m.norm == "3" {
		// Bare 3 carries no note text.
		out.Reply = "Reply 3 followed by your note."
		return nil
	}

	c, rec, err := it.correlate(m)
	if err != nil {
		return err
	}
	if c == nil {
		out.Reply = missReply
		return nil
	}

	action := codeActions[m.norm]
	if c.Kind == models.KindLead {
		if err := cases.Transition(it.db, c, action.status); err != nil {
			out.Reply = missReply
			return nil
		}
	}
	if err := cases.AddNote(it.db, c.ID, action.note, "sms", "operator"); err != nil {
		return err
	}
	it.consume(rec, m.norm, m.now)
	out.CaseID = c.ID
	out.Reply = fmt.Sprintf("✓ %s marked %s", displayName(c), action.label)
	return nil
}

// runConfirm confirms the sender's most recent unconfirmed job. Looked up
// by recency, not via the correlator.
func runConfirm(ctx context.Context, it *Interpreter, m *inbound, out *Outcome) error {
	op, err := it.operatorByPhone(m.phone)
	if err != nil {
		return err
	}
	if op == nil {
		out.Reply = missReply
		return nil
	}
	c, err := cases.MostRecentUnconfirmedJob(it.db, op.ID)
	if err != nil {
		return err
	}
	if c == nil {
		out.Reply = missReply
		return nil
	}
	if err := cases.Transition(it.db, c, models.JobConfirmed); err != nil {
		return err
	}
	if err := cases.AddNote(it.db, c.ID, "Confirmed via SMS", "sms", "operator"); err != nil {
		return err
	}
	out.CaseID = c.ID
	out.Reply = fmt.Sprintf("✓ %s marked confirmed", displayName(c))
	return nil
}

// runCall is read-only: it answers with the most recent active case's
// customer phone.
func runCall(ctx context.Context, it *Interpreter, m *inbound, out *Outcome) error {
	op, err := it.operatorByPhone(m.phone)
	if err != nil {
		return err
	}
	if op == nil {
		out.Reply = missReply
		return nil
	}
	c, err := cases.MostRecentActive(it.db, op.ID)
	if err != nil {
		return err
	}
	if c == nil || c.CustomerPhone == "" {
		out.Reply = missReply
		return nil
	}
	out.CaseID = c.ID
	out.Reply = fmt.Sprintf("%s: %s", displayName(c), c.CustomerPhone)
	return nil
}

func runComplete(ctx context.Context, it *Interpreter, m *inbound, out *Outcome) error {
	op, err := it.operatorByPhone(m.phone)
	if err != nil {
		return err
	}
	if op == nil {
		out.Reply = missReply
		return nil
	}
	c, err := cases.MostRecentActive(it.db, op.ID)
	if err != nil {
		return err
	}
	if c == nil {
		out.Reply = missReply
		return nil
	}

	// Jobs finish as complete; a lead "completed" by the operator was won.
	target := models.JobComplete
	label := "complete"
	if c.Kind == models.KindLead {
		target = models.LeadConverted
		label = "converted"
	}
	if err := cases.Transition(it.db, c, target); err != nil {
		return err
	}
	if err := cases.AddNote(it.db, c.ID, "Marked "+label+" via SMS", "sms", "operator"); err != nil {
		return err
	}
	out.CaseID = c.ID
	out.Reply = fmt.Sprintf("✓ %s marked %s", displayName(c), label)
	return nil
}

// runFreeText records longer unmatched text as a note when the correlator
// finds a case; otherwise the message stays log-only.
func runFreeText(ctx context.Context, it *Interpreter, m *inbound, out *Outcome) error {
	c, rec, err := it.correlate(m)
	if err != nil {
		return err
	}
	if c == nil {
		out.Command = ""
		return nil
	}
	if err := cases.AddNote(it.db, c.ID, m.raw, "sms", "operator"); err != nil {
		return err
	}
	it.consume(rec, "note", m.now)
	out.CaseID = c.ID
	out.Reply = fmt.Sprintf("✓ Note added for %s", displayName(c))
	return nil
}
