package cases

import (
	"errors"
	"testing"
	"time"

	"github.com/calloway/dispatchline/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Case{}, &models.CaseNote{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func mkCase(t *testing.T, db *gorm.DB, c models.Case) *models.Case {
	t.Helper()
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create case: %v", err)
	}
	return &c
}

func TestValidStatus(t *testing.T) {
	tests := []struct {
		kind   string
		status string
		want   bool
	}{
		{models.KindLead, models.LeadAbandoned, true},
		{models.KindLead, models.LeadConverted, true},
		{models.KindLead, models.JobEnRoute, false},
		{models.KindJob, models.JobConfirmed, true},
		{models.KindJob, models.JobComplete, true},
		{models.KindJob, models.LeadThinking, false},
		{"", models.LeadThinking, false},
	}
	for _, tt := range tests {
		if got := ValidStatus(tt.kind, tt.status); got != tt.want {
			t.Errorf("ValidStatus(%q, %q) = %v, want %v", tt.kind, tt.status, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{models.LeadConverted, models.LeadLost, models.JobComplete, models.JobCancelled} {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%q) = false, want true", s)
		}
	}
	for _, s := range []string{models.LeadAbandoned, models.JobNew, models.JobOnSite} {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%q) = true, want false", s)
		}
	}
}

func TestTransition(t *testing.T) {
	db := openTestDB(t)
	c := mkCase(t, db, models.Case{Kind: models.KindLead, Status: models.LeadAbandoned, CustomerName: "Pat"})

	if err := Transition(db, c, models.LeadCallbackRequested); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != models.LeadCallbackRequested {
		t.Errorf("in-memory status = %q, want %q", c.Status, models.LeadCallbackRequested)
	}

	var reloaded models.Case
	if err := db.First(&reloaded, c.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.LeadCallbackRequested {
		t.Errorf("stored status = %q, want %q", reloaded.Status, models.LeadCallbackRequested)
	}
}

func TestTransition_WrongKindStatus(t *testing.T) {
	db := openTestDB(t)
	c := mkCase(t, db, models.Case{Kind: models.KindLead, Status: models.LeadThinking})

	if err := Transition(db, c, models.JobConfirmed); err == nil {
		t.Fatal("expected error for job status on a lead")
	}
}

func TestTransition_TerminalNeverRemutated(t *testing.T) {
	db := openTestDB(t)
	c := mkCase(t, db, models.Case{Kind: models.KindJob, Status: models.JobComplete})

	err := Transition(db, c, models.JobCancelled)
	if !errors.Is(err, ErrTerminalStatus) {
		t.Fatalf("error = %v, want ErrTerminalStatus", err)
	}

	var reloaded models.Case
	db.First(&reloaded, c.ID)
	if reloaded.Status != models.JobComplete {
		t.Errorf("stored status = %q, terminal case was mutated", reloaded.Status)
	}
}

func TestAddNote(t *testing.T) {
	db := openTestDB(t)
	c := mkCase(t, db, models.Case{Kind: models.KindLead, Status: models.LeadThinking})

	if err := AddNote(db, c.ID, "Contacted via phone", "sms", "operator"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := Get(db, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Notes) != 1 {
		t.Fatalf("len(Notes) = %d, want 1", len(got.Notes))
	}
	if got.Notes[0].Text != "Contacted via phone" {
		t.Errorf("note text = %q, want %q", got.Notes[0].Text, "Contacted via phone")
	}
	if got.Notes[0].Source != "sms" {
		t.Errorf("note source = %q, want %q", got.Notes[0].Source, "sms")
	}
}

func TestFindByExternalCallID(t *testing.T) {
	db := openTestDB(t)
	mkCase(t, db, models.Case{Kind: models.KindLead, Status: models.LeadThinking, ExternalCallID: "call-abc"})

	got, err := FindByExternalCallID(db, "call-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a case")
	}

	missing, err := FindByExternalCallID(db, "call-zzz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown call id, got case %d", missing.ID)
	}
}

func TestFindOpenLeadByPhone(t *testing.T) {
	db := openTestDB(t)
	old := time.Now().Add(-2 * time.Hour)
	mkCase(t, db, models.Case{Kind: models.KindLead, Status: models.LeadLost, CustomerPhone: "+15551234", CreatedAt: time.Now()})
	mkCase(t, db, models.Case{Kind: models.KindLead, Status: models.LeadThinking, CustomerPhone: "+15551234", CreatedAt: old})
	want := mkCase(t, db, models.Case{Kind: models.KindLead, Status: models.LeadVoicemailLeft, CustomerPhone: "+15551234", CreatedAt: time.Now().Add(-time.Hour)})

	got, err := FindOpenLeadByPhone(db, "+15551234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("got %+v, want case %d (most recent open lead, terminal excluded)", got, want.ID)
	}

	none, err := FindOpenLeadByPhone(db, "+15550000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if none != nil {
		t.Errorf("expected nil for unknown phone")
	}
}

func TestMostRecentUnconfirmedJob(t *testing.T) {
	db := openTestDB(t)
	mkCase(t, db, models.Case{Kind: models.KindJob, OperatorID: 1, Status: models.JobConfirmed, CreatedAt: time.Now()})
	want := mkCase(t, db, models.Case{Kind: models.KindJob, OperatorID: 1, Status: models.JobNew, CreatedAt: time.Now().Add(-time.Minute)})
	mkCase(t, db, models.Case{Kind: models.KindJob, OperatorID: 1, Status: models.JobNew, CreatedAt: time.Now().Add(-time.Hour)})
	mkCase(t, db, models.Case{Kind: models.KindJob, OperatorID: 2, Status: models.JobNew, CreatedAt: time.Now()})

	got, err := MostRecentUnconfirmedJob(db, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("got %+v, want case %d", got, want.ID)
	}
}

func TestMostRecentActive(t *testing.T) {
	db := openTestDB(t)
	mkCase(t, db, models.Case{Kind: models.KindJob, OperatorID: 1, Status: models.JobComplete, CreatedAt: time.Now()})
	want := mkCase(t, db, models.Case{Kind: models.KindLead, OperatorID: 1, Status: models.LeadThinking, CustomerPhone: "+15559876", CreatedAt: time.Now().Add(-time.Minute)})

	got, err := MostRecentActive(db, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("got %+v, want case %d (terminal excluded)", got, want.ID)
	}
}
