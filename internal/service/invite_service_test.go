package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/havenward/sanctum/internal/domain"
	"github.com/havenward/sanctum/internal/external"
	"github.com/havenward/sanctum/internal/repository"
)

func newInviteEnv(t *testing.T) (*InviteService, *testEnv, *repository.InMemoryInvitationRepository) {
	t.Helper()

	env := newTestEnv(t)
	invitations := repository.NewInMemoryInvitationRepository()
	svc := NewInviteService(invitations, env.acks, env.svc, nil, discardLogger())
	return svc, env, invitations
}

func TestCreateInvitationHostOnly(t *testing.T) {
	svc, env, _ := newInviteEnv(t)
	ctx := context.Background()

	session := env.createSession(t, nil)

	_, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID: session.ID,
		CreatedBy: uuid.New(),
	})
	require.ErrorIs(t, err, ErrNotAuthorized)

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID: session.ID,
		CreatedBy: session.HostID,
	})
	require.NoError(t, err)
	require.Len(t, invitation.Code, 12)
	require.Equal(t, domain.UnlimitedUses, invitation.MaxUses)
	require.True(t, invitation.IsActive)
}

func TestRedeemUnknownCode(t *testing.T) {
	svc, _, _ := newInviteEnv(t)

	_, err := svc.Redeem(context.Background(), "nosuchcode", RedeemRequest{Alias: "river"})
	require.ErrorIs(t, err, repository.ErrInvitationNotFound)
}

func TestRedeemScheduledOutcome(t *testing.T) {
	svc, env, _ := newInviteEnv(t)
	ctx := context.Background()

	at := time.Now().UTC().Add(30 * time.Minute)
	session := env.createSession(t, func(p *CreateSessionParams) {
		p.ScheduledAt = &at
	})

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID: session.ID,
		CreatedBy: session.HostID,
		MaxUses:   1,
	})
	require.NoError(t, err)

	result, err := svc.Redeem(ctx, invitation.Code, RedeemRequest{UserID: uuid.New(), Alias: "river"})
	require.NoError(t, err)
	require.Equal(t, OutcomeScheduled, result.Outcome)
	require.InDelta(t, 30*time.Minute, result.TimeUntilStart, float64(time.Minute))

	// Too-early redemption attempts never consume a use.
	require.Equal(t, 0, invitation.CurrentUses)
}

func TestRedeemRequiresAcknowledgment(t *testing.T) {
	svc, env, _ := newInviteEnv(t)
	ctx := context.Background()

	session := env.createSession(t, func(p *CreateSessionParams) {
		p.IsRecorded = true
		p.AIMonitoring = true
	})

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID: session.ID,
		CreatedBy: session.HostID,
		Settings:  domain.InvitationSettings{RequireAcknowledgment: true, WelcomeMessage: "welcome in"},
	})
	require.NoError(t, err)

	userID := uuid.New()
	result, err := svc.Redeem(ctx, invitation.Code, RedeemRequest{UserID: userID, Alias: "river"})
	require.NoError(t, err)
	require.Equal(t, OutcomeRequiresAcknowledgment, result.Outcome)
	require.Equal(t, "welcome in", result.WelcomeMessage)
	require.NotNil(t, result.ConsentRequired)
	require.True(t, result.ConsentRequired.Participation)
	require.True(t, result.ConsentRequired.Recording)
	require.True(t, result.ConsentRequired.AIModeration)
	require.False(t, result.ConsentRequired.EmergencyProtocol)

	// The consent prompt does not consume a use.
	require.Equal(t, 0, invitation.CurrentUses)

	// Coming back acknowledged completes the redemption.
	result, err = svc.Redeem(ctx, invitation.Code, RedeemRequest{
		UserID:       userID,
		Alias:        "river",
		Acknowledged: true,
		Consents:     domain.ConsentFlags{Participation: true, Recording: true, AIModeration: true},
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeAcknowledged, result.Outcome)
	require.NotNil(t, result.Acknowledgment)
	require.Equal(t, 1, invitation.CurrentUses)
	require.Equal(t, external.PlaceholderToken, result.ChannelToken)
}

func TestRedeemSingleUse(t *testing.T) {
	svc, env, _ := newInviteEnv(t)
	ctx := context.Background()

	session := env.createSession(t, nil)

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID: session.ID,
		CreatedBy: session.HostID,
		MaxUses:   1,
	})
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, invitation.Code, RedeemRequest{UserID: uuid.New(), Alias: "river", Acknowledged: true})
	require.NoError(t, err)

	// The second attempt sees an exhausted code as a missing one.
	_, err = svc.Redeem(ctx, invitation.Code, RedeemRequest{UserID: uuid.New(), Alias: "willow", Acknowledged: true})
	require.ErrorIs(t, err, repository.ErrInvitationNotFound)
}

func TestRedeemConcurrentSingleUse(t *testing.T) {
	svc, env, _ := newInviteEnv(t)
	ctx := context.Background()

	session := env.createSession(t, nil)

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID: session.ID,
		CreatedBy: session.HostID,
		MaxUses:   1,
	})
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Redeem(ctx, invitation.Code, RedeemRequest{
				UserID:       uuid.New(),
				Alias:        "river",
				Acknowledged: true,
			})
			if err == nil && result.Outcome == OutcomeAcknowledged {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), succeeded.Load())
	require.Equal(t, 1, invitation.CurrentUses)
	require.Len(t, invitation.UsageLog, 1)
}

func TestRedeemBlockedUser(t *testing.T) {
	svc, env, _ := newInviteEnv(t)
	ctx := context.Background()

	session := env.createSession(t, nil)
	blocked := uuid.New()

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID:    session.ID,
		CreatedBy:    session.HostID,
		Restrictions: domain.InvitationRestrictions{BlockedUsers: []uuid.UUID{blocked}},
	})
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, invitation.Code, RedeemRequest{UserID: blocked, Alias: "river"})
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRedeemAuthRequired(t *testing.T) {
	svc, env, _ := newInviteEnv(t)
	ctx := context.Background()

	session := env.createSession(t, nil)

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID:    session.ID,
		CreatedBy:    session.HostID,
		Restrictions: domain.InvitationRestrictions{RequireAuthentication: true},
	})
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, invitation.Code, RedeemRequest{Alias: "ghost"})
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRedeemRecordsUsage(t *testing.T) {
	svc, env, invitations := newInviteEnv(t)
	ctx := context.Background()

	session := env.createSession(t, nil)

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID: session.ID,
		CreatedBy: session.HostID,
	})
	require.NoError(t, err)

	userID := uuid.New()
	_, err = svc.Redeem(ctx, invitation.Code, RedeemRequest{
		UserID:       userID,
		Alias:        "river",
		Acknowledged: true,
		IP:           "203.0.113.7",
		UserAgent:    "sanctum-web/1.0",
	})
	require.NoError(t, err)

	stored, err := invitations.GetByCode(ctx, invitation.Code)
	require.NoError(t, err)
	require.Len(t, stored.UsageLog, 1)
	require.Equal(t, userID, stored.UsageLog[0].UserID)
	require.Equal(t, "203.0.113.7", stored.UsageLog[0].IP)
	require.True(t, stored.UsageLog[0].Acknowledged)
}

func TestPreviewDoesNotConsume(t *testing.T) {
	svc, env, _ := newInviteEnv(t)
	ctx := context.Background()

	session := env.createSession(t, nil)

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID: session.ID,
		CreatedBy: session.HostID,
		MaxUses:   1,
		Settings:  domain.InvitationSettings{RequireAcknowledgment: true, WelcomeMessage: "come on in"},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		preview, err := svc.Preview(ctx, invitation.Code)
		require.NoError(t, err)
		require.Equal(t, session.ID, preview.Session.ID)
		require.Equal(t, "come on in", preview.WelcomeMessage)
		require.NotNil(t, preview.ConsentRequired)
	}
	require.Equal(t, 0, invitation.CurrentUses)

	_, err = svc.Preview(ctx, "nosuchcode")
	require.ErrorIs(t, err, repository.ErrInvitationNotFound)
}

func TestRedeemAnonymous(t *testing.T) {
	svc, env, _ := newInviteEnv(t)
	ctx := context.Background()

	session := env.createSession(t, nil)

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID: session.ID,
		CreatedBy: session.HostID,
	})
	require.NoError(t, err)

	result, err := svc.Redeem(ctx, invitation.Code, RedeemRequest{Alias: "ghost", Acknowledged: true})
	require.NoError(t, err)
	require.Equal(t, OutcomeAcknowledged, result.Outcome)
	// No identity means no acknowledgment record, but the use counts.
	require.Nil(t, result.Acknowledgment)
	require.Equal(t, 1, invitation.CurrentUses)
}

func TestRedeemEndedSession(t *testing.T) {
	svc, env, _ := newInviteEnv(t)
	ctx := context.Background()

	session := env.createSession(t, nil)

	invitation, err := svc.CreateInvitation(ctx, CreateInvitationParams{
		SessionID: session.ID,
		CreatedBy: session.HostID,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.End(ctx, session.ID, session.HostID))

	_, err = svc.Redeem(ctx, invitation.Code, RedeemRequest{UserID: uuid.New(), Alias: "river"})
	require.ErrorIs(t, err, repository.ErrInvitationNotFound)
}
