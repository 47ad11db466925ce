package notify

import (
	"testing"
	"time"

	"github.com/calloway/dispatchline/internal/models"
)

func testOperator() *models.OperatorProfile {
	return &models.OperatorProfile{
		Phone:      "+15557770000",
		Timezone:   "America/Chicago",
		QuietStart: "21:00",
		QuietEnd:   "08:00",
		SmsOptIn:   true,
	}
}

func TestQuietHoursEnd_WrappingWindow(t *testing.T) {
	loc := chicago(t)
	op := testOperator()

	tests := []struct {
		name    string
		now     time.Time
		wantIn  bool
		wantEnd time.Time
	}{
		{
			name:    "23:00 is inside, ends 08:00 next day",
			now:     time.Date(2026, 3, 10, 23, 0, 0, 0, loc),
			wantIn:  true,
			wantEnd: time.Date(2026, 3, 11, 8, 0, 0, 0, loc),
		},
		{
			name:    "02:30 is inside, ends 08:00 same day",
			now:     time.Date(2026, 3, 11, 2, 30, 0, 0, loc),
			wantIn:  true,
			wantEnd: time.Date(2026, 3, 11, 8, 0, 0, 0, loc),
		},
		{
			name:    "exactly 21:00 is inside",
			now:     time.Date(2026, 3, 10, 21, 0, 0, 0, loc),
			wantIn:  true,
			wantEnd: time.Date(2026, 3, 11, 8, 0, 0, 0, loc),
		},
		{
			name:   "exactly 08:00 is outside",
			now:    time.Date(2026, 3, 11, 8, 0, 0, 0, loc),
			wantIn: false,
		},
		{
			name:   "noon is outside",
			now:    time.Date(2026, 3, 10, 12, 0, 0, 0, loc),
			wantIn: false,
		},
		{
			name:   "20:59 is outside",
			now:    time.Date(2026, 3, 10, 20, 59, 0, 0, loc),
			wantIn: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, in, err := QuietHoursEnd(op, tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if in != tt.wantIn {
				t.Fatalf("inside = %v, want %v", in, tt.wantIn)
			}
			if in && !end.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", end, tt.wantEnd)
			}
		})
	}
}

func TestQuietHoursEnd_SameDayWindow(t *testing.T) {
	loc := chicago(t)
	op := testOperator()
	op.QuietStart = "13:00"
	op.QuietEnd = "15:00"

	end, in, err := QuietHoursEnd(op, time.Date(2026, 3, 10, 14, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !in {
		t.Fatal("14:00 should be inside a 13:00-15:00 window")
	}
	if want := time.Date(2026, 3, 10, 15, 0, 0, 0, loc); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}

	_, in, err = QuietHoursEnd(op, time.Date(2026, 3, 10, 16, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in {
		t.Error("16:00 should be outside a 13:00-15:00 window")
	}
}

func TestQuietHoursEnd_DegenerateWindowDisabled(t *testing.T) {
	op := testOperator()
	op.QuietStart = "00:00"
	op.QuietEnd = "00:00"

	_, in, err := QuietHoursEnd(op, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in {
		t.Error("equal start and end should disable quiet hours")
	}
}

func TestQuietHoursEnd_EvaluatesOperatorZone(t *testing.T) {
	op := testOperator()
	op.Timezone = "America/New_York"

	// 03:00 UTC = 22:00 previous day in New York: inside quiet hours.
	now := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
	_, in, err := QuietHoursEnd(op, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !in {
		t.Error("22:00 New York local should be inside quiet hours")
	}
}

func TestQuietHoursEnd_BadZone(t *testing.T) {
	op := testOperator()
	op.Timezone = "Not/AZone"
	if _, _, err := QuietHoursEnd(op, time.Now()); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}
