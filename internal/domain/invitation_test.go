package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestInvitationCanRedeem(t *testing.T) {
	sessionID := uuid.New()
	creator := uuid.New()
	blocked := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*Invitation)
		userID  uuid.UUID
		anon    bool
		wantErr error
	}{
		{name: "fresh invitation", userID: uuid.New()},
		{
			name:    "inactive",
			mutate:  func(i *Invitation) { i.IsActive = false },
			userID:  uuid.New(),
			wantErr: ErrInvitationInactive,
		},
		{
			name:    "expired",
			mutate:  func(i *Invitation) { i.ExpiresAt = time.Now().UTC().Add(-time.Hour) },
			userID:  uuid.New(),
			wantErr: ErrInvitationInactive,
		},
		{
			name:    "max uses reached",
			mutate:  func(i *Invitation) { i.MaxUses = 2; i.CurrentUses = 2 },
			userID:  uuid.New(),
			wantErr: ErrInvitationExhausted,
		},
		{
			name:    "one time use consumed",
			mutate:  func(i *Invitation) { i.Restrictions.OneTimeUse = true; i.CurrentUses = 1 },
			userID:  uuid.New(),
			wantErr: ErrInvitationExhausted,
		},
		{
			name:    "blocked user",
			mutate:  func(i *Invitation) { i.Restrictions.BlockedUsers = []uuid.UUID{blocked} },
			userID:  blocked,
			wantErr: ErrUserBlocked,
		},
		{
			name:    "anonymous against auth requirement",
			mutate:  func(i *Invitation) { i.Restrictions.RequireAuthentication = true },
			anon:    true,
			wantErr: ErrAuthRequired,
		},
		{
			name:   "unlimited uses never exhaust",
			mutate: func(i *Invitation) { i.MaxUses = UnlimitedUses; i.CurrentUses = 10000 },
			userID: uuid.New(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := NewInvitation(sessionID, creator, 5, time.Hour, InvitationRestrictions{}, InvitationSettings{})
			if tt.mutate != nil {
				tt.mutate(inv)
			}
			if err := inv.CanRedeem(tt.userID, tt.anon); err != tt.wantErr {
				t.Errorf("CanRedeem() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvitationRecordUse(t *testing.T) {
	inv := NewInvitation(uuid.New(), uuid.New(), 1, time.Hour, InvitationRestrictions{}, InvitationSettings{})

	user := uuid.New()
	inv.RecordUse(UsageEntry{UserID: user, IP: "10.0.0.1", UserAgent: "test", Acknowledged: true})

	if inv.CurrentUses != 1 {
		t.Fatalf("currentUses = %d, want 1", inv.CurrentUses)
	}
	if len(inv.UsageLog) != 1 || inv.UsageLog[0].UserID != user {
		t.Fatal("usage log entry missing")
	}
	if inv.UsageLog[0].Timestamp.IsZero() {
		t.Error("usage entry missing timestamp")
	}

	if err := inv.CanRedeem(uuid.New(), false); err != ErrInvitationExhausted {
		t.Errorf("redeem after cap = %v, want ErrInvitationExhausted", err)
	}
}
