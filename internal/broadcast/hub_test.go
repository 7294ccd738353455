package broadcast

import (
	"testing"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestPublishOrderMatchesCommitOrder(t *testing.T) {
	hub := NewHub(nil)
	sessionID := uuid.New()

	sub := hub.Subscribe(sessionID, "client-1")
	defer sub.Close()

	for i := 0; i < 5; i++ {
		hub.Publish(sessionID, domain.NewEvent(sessionID, domain.EventChatMessage, map[string]any{"n": i}))
	}

	for want := uint64(1); want <= 5; want++ {
		event := <-sub.C
		require.Equal(t, want, event.Seq)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	hub := NewHub(nil)
	a := uuid.New()
	b := uuid.New()

	subA := hub.Subscribe(a, "a1")
	subB := hub.Subscribe(b, "b1")
	defer subA.Close()
	defer subB.Close()

	hub.Publish(a, domain.NewEvent(a, domain.EventParticipantJoined, nil))
	hub.Publish(b, domain.NewEvent(b, domain.EventParticipantJoined, nil))
	hub.Publish(b, domain.NewEvent(b, domain.EventParticipantLeft, nil))

	eventA := <-subA.C
	require.Equal(t, uint64(1), eventA.Seq)

	eventB1 := <-subB.C
	eventB2 := <-subB.C
	require.Equal(t, uint64(1), eventB1.Seq)
	require.Equal(t, uint64(2), eventB2.Seq)

	select {
	case <-subA.C:
		t.Fatal("session A received session B's event")
	default:
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil)
	sessionID := uuid.New()

	sub := hub.Subscribe(sessionID, "slow")
	defer sub.Close()

	// Overflow the buffer without draining. Publish must not block and
	// the overflow events are simply lost for this subscriber.
	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(sessionID, domain.NewEvent(sessionID, domain.EventChatMessage, nil))
	}

	received := 0
	for {
		select {
		case <-sub.C:
			received++
			continue
		default:
		}
		break
	}
	require.Equal(t, subscriberBuffer, received)

	// Sequence numbers kept advancing while the subscriber was behind.
	seq := hub.Publish(sessionID, domain.NewEvent(sessionID, domain.EventChatMessage, nil))
	require.Equal(t, uint64(subscriberBuffer+11), seq)
}

func TestSubscriberCloseIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	sessionID := uuid.New()

	sub := hub.Subscribe(sessionID, "c1")
	sub.Close()
	sub.Close()

	_, open := <-sub.C
	require.False(t, open)
	require.Zero(t, hub.Subscribers(sessionID))
}

func TestCloseSessionClosesAllSubscribers(t *testing.T) {
	hub := NewHub(nil)
	sessionID := uuid.New()

	subs := []*Subscriber{
		hub.Subscribe(sessionID, "c1"),
		hub.Subscribe(sessionID, "c2"),
	}

	hub.CloseSession(sessionID)

	for _, sub := range subs {
		_, open := <-sub.C
		require.False(t, open)
	}
	require.Zero(t, hub.Subscribers(sessionID))
}
