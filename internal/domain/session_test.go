package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewSessionImmediate(t *testing.T) {
	s := NewSession(SessionConfig{
		Topic:           "late night support",
		HostID:          uuid.New(),
		HostAlias:       "river",
		MaxParticipants: 5,
	})

	if s.Status != SessionStatusActive {
		t.Fatalf("status = %q, want active", s.Status)
	}
	if len(s.Participants) != 1 || !s.Participants[0].IsHost {
		t.Fatalf("expected host auto-joined, roster = %d", len(s.Participants))
	}
	if s.StartedAt.IsZero() {
		t.Error("immediate session has no start time")
	}

	wantExpiry := s.CreatedAt.Add(24 * time.Hour)
	if !s.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expiresAt = %v, want %v", s.ExpiresAt, wantExpiry)
	}
}

func TestNewSessionScheduled(t *testing.T) {
	start := time.Now().UTC().Add(2 * time.Hour)
	s := NewSession(SessionConfig{
		Topic:             "grief circle",
		HostID:            uuid.New(),
		HostAlias:         "wren",
		ScheduledAt:       &start,
		EstimatedDuration: 45 * time.Minute,
		MaxParticipants:   10,
	})

	if s.Status != SessionStatusScheduled {
		t.Fatalf("status = %q, want scheduled", s.Status)
	}

	wantExpiry := start.Add(45*time.Minute + 120*time.Minute)
	if !s.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expiresAt = %v, want %v", s.ExpiresAt, wantExpiry)
	}
	if !s.StartedAt.IsZero() {
		t.Error("scheduled session must not be started yet")
	}
}

func TestSessionTransitionsAreMonotonic(t *testing.T) {
	tests := []struct {
		from SessionStatus
		to   SessionStatus
		ok   bool
	}{
		{SessionStatusScheduled, SessionStatusActive, true},
		{SessionStatusScheduled, SessionStatusEnded, true},
		{SessionStatusWaiting, SessionStatusActive, true},
		{SessionStatusActive, SessionStatusEnded, true},
		{SessionStatusActive, SessionStatusScheduled, false},
		{SessionStatusEnded, SessionStatusActive, false},
		{SessionStatusEnded, SessionStatusScheduled, false},
		{SessionStatusActive, SessionStatusActive, false},
	}

	for _, tt := range tests {
		s := &Session{Status: tt.from}
		if got := s.CanTransition(tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestAdmitEnforcesCapacity(t *testing.T) {
	s := NewSession(SessionConfig{
		Topic:           "small circle",
		HostID:          uuid.New(),
		HostAlias:       "ash",
		MaxParticipants: 2,
	})

	now := time.Now().UTC()

	if err := s.Admit(NewParticipant(uuid.New(), "b"), now); err != nil {
		t.Fatalf("second admit: %v", err)
	}
	if err := s.Admit(NewParticipant(uuid.New(), "c"), now); err != ErrSessionFull {
		t.Fatalf("third admit err = %v, want ErrSessionFull", err)
	}
	if len(s.Participants) != 2 {
		t.Errorf("roster = %d after rejected join, want 2", len(s.Participants))
	}
}

func TestAdmitFlipsScheduledToActive(t *testing.T) {
	start := time.Now().UTC().Add(10 * time.Minute)
	s := NewSession(SessionConfig{
		Topic:           "check-in",
		HostID:          uuid.New(),
		HostAlias:       "kai",
		ScheduledAt:     &start,
		MaxParticipants: 4,
	})

	now := time.Now().UTC()
	if err := s.Admit(NewParticipant(uuid.New(), "first"), now); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if s.Status != SessionStatusActive {
		t.Errorf("status = %q after first admission, want active", s.Status)
	}
	if !s.StartedAt.Equal(now) {
		t.Errorf("startedAt = %v, want %v", s.StartedAt, now)
	}
}

func TestEndIsTerminal(t *testing.T) {
	s := NewSession(SessionConfig{Topic: "t", HostID: uuid.New(), HostAlias: "h", MaxParticipants: 3})

	now := time.Now().UTC()
	if err := s.End(now); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := s.End(now); err != ErrSessionEnded {
		t.Errorf("second end err = %v, want ErrSessionEnded", err)
	}
	if err := s.Admit(NewParticipant(uuid.New(), "late"), now); err != ErrSessionEnded {
		t.Errorf("admit after end err = %v, want ErrSessionEnded", err)
	}
}

func TestRemoveKeepsSessionAlive(t *testing.T) {
	s := NewSession(SessionConfig{Topic: "t", HostID: uuid.New(), HostAlias: "h", MaxParticipants: 3})
	p := NewParticipant(uuid.New(), "guest")
	if err := s.Admit(p, time.Now().UTC()); err != nil {
		t.Fatalf("admit: %v", err)
	}

	removed := s.Remove(p.ID)
	if removed == nil || removed.ID != p.ID {
		t.Fatal("participant not removed")
	}
	if s.Status != SessionStatusActive {
		t.Errorf("status = %q after last guest left, want active", s.Status)
	}
}

func TestInJoinWindow(t *testing.T) {
	now := time.Now().UTC()
	start := now.Add(30 * time.Minute)
	s := NewSession(SessionConfig{Topic: "t", HostID: uuid.New(), HostAlias: "h", ScheduledAt: &start, MaxParticipants: 3})

	if s.InJoinWindow(now.Add(10 * time.Minute)) {
		t.Error("20 minutes early should be outside the join window")
	}
	if !s.InJoinWindow(now.Add(16 * time.Minute)) {
		t.Error("14 minutes early should be inside the join window")
	}

	got := s.TimeUntilStart(now.Add(10 * time.Minute))
	if got != 20*time.Minute {
		t.Errorf("TimeUntilStart = %v, want 20m", got)
	}
}
