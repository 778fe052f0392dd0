package store

import (
	"testing"
	"time"
)

func TestBoardColumnLookups(t *testing.T) {
	board := Board{
		Columns: []BoardColumn{
			{ID: "c1", Name: "To Do", Position: 0},
			{ID: "c2", Name: "Done", Position: 1},
		},
	}

	if !board.HasColumn("c1") || !board.HasColumn("c2") {
		t.Error("expected both columns to be found")
	}
	if board.HasColumn("c3") {
		t.Error("unexpected column c3")
	}
	if name := board.ColumnName("c2"); name != "Done" {
		t.Errorf("expected Done, got %q", name)
	}
	if name := board.ColumnName("gone"); name != "Unknown" {
		t.Errorf("expected Unknown fallback, got %q", name)
	}
}

func TestInvitationExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	invitation := Invitation{ExpiresAt: now.Add(time.Hour)}

	if invitation.IsExpired(now) {
		t.Error("invitation should still be live")
	}
	if !invitation.IsExpired(now.Add(2 * time.Hour)) {
		t.Error("invitation should be expired")
	}
	if invitation.IsAccepted() {
		t.Error("invitation should not be accepted yet")
	}
	invitation.AcceptedAt = &now
	if !invitation.IsAccepted() {
		t.Error("invitation should be accepted")
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-3, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 0, 0},
		{3, 0, -1, 0}, // empty range collapses to lo
	}
	for _, tc := range cases {
		if got := clamp(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Errorf("clamp(%d, %d, %d) = %d, want %d", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}
