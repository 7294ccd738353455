package domain

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const inviteCodeLength = 12

// UnlimitedUses disables the redemption cap on an invitation.
const UnlimitedUses = -1

var (
	ErrInvitationExhausted = errors.New("invitation has no uses left")
	ErrInvitationInactive  = errors.New("invitation is inactive")
	ErrUserBlocked         = errors.New("user is blocked from this invitation")
	ErrAuthRequired        = errors.New("invitation requires an authenticated user")
)

// InvitationRestrictions limit who may redeem an invitation.
type InvitationRestrictions struct {
	RequireAuthentication bool        `json:"require_authentication"`
	BlockedUsers          []uuid.UUID `json:"blocked_users,omitempty"`
	OneTimeUse            bool        `json:"one_time_use"`
}

// InvitationSettings shape the join experience for redeemers.
type InvitationSettings struct {
	RequireAcknowledgment bool   `json:"require_acknowledgment"`
	AutoJoin              bool   `json:"auto_join"`
	WelcomeMessage        string `json:"welcome_message,omitempty"`
}

// UsageEntry records one consumed redemption. The log is append-only.
type UsageEntry struct {
	UserID       uuid.UUID `json:"user_id"`
	IP           string    `json:"ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

// Invitation is a shareable, usage-limited code granting entry to a
// session. The mutex serializes redemption: the eligibility check and
// the use consumption must be one critical section or concurrent
// redemptions race past maxUses.
type Invitation struct {
	Mutex        sync.Mutex
	ID           uuid.UUID
	SessionID    uuid.UUID
	Code         string
	CreatedBy    uuid.UUID
	MaxUses      int // UnlimitedUses means no cap
	CurrentUses  int
	UsageLog     []UsageEntry
	Restrictions InvitationRestrictions
	Settings     InvitationSettings
	IsActive     bool
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func NewInvitation(sessionID, createdBy uuid.UUID, maxUses int, lifetime time.Duration, restrictions InvitationRestrictions, settings InvitationSettings) *Invitation {
	now := time.Now().UTC()
	inv := &Invitation{
		ID:           uuid.New(),
		SessionID:    sessionID,
		Code:         generateInviteCode(),
		CreatedBy:    createdBy,
		MaxUses:      maxUses,
		Restrictions: restrictions,
		Settings:     settings,
		IsActive:     true,
		CreatedAt:    now,
	}
	if lifetime > 0 {
		inv.ExpiresAt = now.Add(lifetime)
	}
	return inv
}

// IsExpired reports whether the invitation is past its lifetime.
func (i *Invitation) IsExpired() bool {
	if i == nil {
		return true
	}
	if i.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(i.ExpiresAt)
}

// CanRedeem validates eligibility for a redemption attempt. It does not
// consume a use; RecordUse does. Callers must hold the mutex.
func (i *Invitation) CanRedeem(userID uuid.UUID, anonymous bool) error {
	if !i.IsActive || i.IsExpired() {
		return ErrInvitationInactive
	}
	if i.MaxUses >= 0 && i.CurrentUses >= i.MaxUses {
		return ErrInvitationExhausted
	}
	if i.Restrictions.OneTimeUse && i.CurrentUses > 0 {
		return ErrInvitationExhausted
	}
	if i.Restrictions.RequireAuthentication && anonymous {
		return ErrAuthRequired
	}
	for _, blocked := range i.Restrictions.BlockedUsers {
		if blocked == userID {
			return ErrUserBlocked
		}
	}
	return nil
}

// RecordUse consumes one redemption and appends to the usage log.
// Callers must hold the mutex.
func (i *Invitation) RecordUse(entry UsageEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	i.CurrentUses++
	i.UsageLog = append(i.UsageLog, entry)
}

func generateInviteCode() string {
	code := strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(code) <= inviteCodeLength {
		return code
	}
	return code[:inviteCodeLength]
}
