package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calloway/dispatchline/internal/models"
	"gorm.io/gorm"
)

func seedQueueEntry(t *testing.T, db *gorm.DB, op *models.OperatorProfile, c *models.Case, sendAt time.Time) *models.NotificationQueueEntry {
	t.Helper()
	entry := models.NotificationQueueEntry{
		OperatorID: op.ID,
		CaseID:     c.ID,
		EventType:  EventAbandonedCall,
		Body:       "Missed caller: Pat Doyle",
		SendAt:     sendAt,
		Status:     models.QueueStatusQueued,
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("create queue entry: %v", err)
	}
	return &entry
}

func TestDrainDue_RequeuesInsideQuietHours(t *testing.T) {
	db := openNotifyTestDB(t)
	gw := &fakeGateway{}
	s := newTestScheduler(t, db, gw, 0)
	op := seedOperator(t, db)
	c := seedLead(t, db, op)

	loc := chicago(t)
	// Entry became due while the operator is still inside quiet hours.
	seedQueueEntry(t, db, op, c, time.Date(2026, 3, 11, 6, 0, 0, 0, loc))

	sevenAM := time.Date(2026, 3, 11, 7, 0, 0, 0, loc)
	res, err := s.DrainDue(context.Background(), sevenAM, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Requeued != 1 || res.Sent != 0 {
		t.Fatalf("result = %+v, want one requeue", res)
	}
	if len(gw.sends) != 0 {
		t.Fatal("gateway must not be called while still in quiet hours")
	}

	var entry models.NotificationQueueEntry
	db.First(&entry)
	if entry.Status != models.QueueStatusQueued {
		t.Errorf("status = %q, want requeued as queued", entry.Status)
	}
	wantSendAt := time.Date(2026, 3, 11, 8, 0, 0, 0, loc)
	if !entry.SendAt.Equal(wantSendAt) {
		t.Errorf("send_at = %v, want %v", entry.SendAt, wantSendAt)
	}

	// At 09:00 the window has passed: the entry sends and is marked sent.
	nineAM := time.Date(2026, 3, 11, 9, 0, 0, 0, loc)
	res, err = s.DrainDue(context.Background(), nineAM, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 {
		t.Fatalf("result = %+v, want one send", res)
	}
	if len(gw.sends) != 1 {
		t.Fatalf("gateway sends = %d, want 1", len(gw.sends))
	}

	db.First(&entry)
	if entry.Status != models.QueueStatusSent {
		t.Errorf("status = %q, want sent", entry.Status)
	}
}

func TestDrainDue_AlreadySentNeverResent(t *testing.T) {
	db := openNotifyTestDB(t)
	gw := &fakeGateway{}
	s := newTestScheduler(t, db, gw, 0)
	op := seedOperator(t, db)
	c := seedLead(t, db, op)

	loc := chicago(t)
	seedQueueEntry(t, db, op, c, time.Date(2026, 3, 11, 8, 0, 0, 0, loc))

	nineAM := time.Date(2026, 3, 11, 9, 0, 0, 0, loc)
	if _, err := s.DrainDue(context.Background(), nineAM, 0); err != nil {
		t.Fatalf("first drain: %v", err)
	}
	if _, err := s.DrainDue(context.Background(), nineAM.Add(time.Minute), 0); err != nil {
		t.Fatalf("second drain: %v", err)
	}

	if len(gw.sends) != 1 {
		t.Errorf("gateway sends = %d, want exactly 1 across two drains", len(gw.sends))
	}
	var logs int64
	db.Model(&models.SmsLog{}).Count(&logs)
	if logs != 1 {
		t.Errorf("audit rows = %d, want exactly 1", logs)
	}
}

func TestDrainDue_ClaimedEntrySkipped(t *testing.T) {
	db := openNotifyTestDB(t)
	gw := &fakeGateway{}
	s := newTestScheduler(t, db, gw, 0)
	op := seedOperator(t, db)
	c := seedLead(t, db, op)

	loc := chicago(t)
	entry := seedQueueEntry(t, db, op, c, time.Date(2026, 3, 11, 8, 0, 0, 0, loc))

	// An overlapping drain already claimed the entry.
	db.Model(&models.NotificationQueueEntry{}).Where("id = ?", entry.ID).
		Update("status", models.QueueStatusSending)

	res, err := s.DrainDue(context.Background(), time.Date(2026, 3, 11, 9, 0, 0, 0, loc), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 0 || len(gw.sends) != 0 {
		t.Errorf("result = %+v sends = %d, in-flight entry must not send again", res, len(gw.sends))
	}
}

func TestDrainDue_NotDueLeftAlone(t *testing.T) {
	db := openNotifyTestDB(t)
	gw := &fakeGateway{}
	s := newTestScheduler(t, db, gw, 0)
	op := seedOperator(t, db)
	c := seedLead(t, db, op)

	loc := chicago(t)
	seedQueueEntry(t, db, op, c, time.Date(2026, 3, 11, 8, 0, 0, 0, loc))

	res, err := s.DrainDue(context.Background(), time.Date(2026, 3, 11, 7, 0, 0, 0, loc), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent+res.Requeued+res.Failed+res.Skipped != 0 {
		t.Errorf("result = %+v, want untouched entry before send_at", res)
	}
}

func TestDrainDue_GatewayFailureMarksFailed(t *testing.T) {
	db := openNotifyTestDB(t)
	gw := &fakeGateway{err: errors.New("provider down")}
	s := newTestScheduler(t, db, gw, 0)
	op := seedOperator(t, db)
	c := seedLead(t, db, op)

	loc := chicago(t)
	seedQueueEntry(t, db, op, c, time.Date(2026, 3, 11, 8, 0, 0, 0, loc))

	res, err := s.DrainDue(context.Background(), time.Date(2026, 3, 11, 9, 0, 0, 0, loc), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("result = %+v, want one failure", res)
	}

	var entry models.NotificationQueueEntry
	db.First(&entry)
	if entry.Status != models.QueueStatusFailed {
		t.Errorf("status = %q, want failed", entry.Status)
	}
	if entry.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", entry.Attempts)
	}
	if entry.LastError == "" {
		t.Error("last_error empty, want provider error recorded")
	}
}

func TestDrainDue_BatchBound(t *testing.T) {
	db := openNotifyTestDB(t)
	gw := &fakeGateway{}
	s := newTestScheduler(t, db, gw, 0)
	op := seedOperator(t, db)
	c := seedLead(t, db, op)

	loc := chicago(t)
	for i := 0; i < 5; i++ {
		seedQueueEntry(t, db, op, c, time.Date(2026, 3, 11, 8, i, 0, 0, loc))
	}

	res, err := s.DrainDue(context.Background(), time.Date(2026, 3, 11, 9, 0, 0, 0, loc), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 2 {
		t.Errorf("sent = %d, want batch bound of 2", res.Sent)
	}
}

func TestDrainDue_SendWritesAlertContext(t *testing.T) {
	db := openNotifyTestDB(t)
	gw := &fakeGateway{}
	s := newTestScheduler(t, db, gw, 0)
	op := seedOperator(t, db)
	c := seedLead(t, db, op)

	loc := chicago(t)
	seedQueueEntry(t, db, op, c, time.Date(2026, 3, 11, 8, 0, 0, 0, loc))

	if _, err := s.DrainDue(context.Background(), time.Date(2026, 3, 11, 9, 0, 0, 0, loc), 0); err != nil {
		t.Fatalf("drain: %v", err)
	}

	var recs []models.AlertContextRecord
	db.Find(&recs)
	if len(recs) != 1 || recs[0].CaseID != c.ID {
		t.Errorf("alert contexts = %+v, want one for the drained case", recs)
	}
}
