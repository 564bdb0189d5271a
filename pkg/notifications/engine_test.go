package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDeliverer counts deliveries and can be scripted to fail.
type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []Notification
	err       error
}

func (d *recordingDeliverer) Deliver(ctx context.Context, notif Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, notif)
	return nil
}

func (d *recordingDeliverer) DeliverBatch(ctx context.Context, notifs []Notification) error {
	for _, n := range notifs {
		if err := d.Deliver(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

type engineFixture struct {
	engine  *Engine
	storage *MemoryStorage
	prefs   *MemoryPreferenceStore
	tokens  *MemoryTokenRegistry
	gateway *stubGateway
}

func newEngineFixture(t *testing.T, opts ...EngineOption) *engineFixture {
	t.Helper()

	f := &engineFixture{
		storage: NewMemoryStorage(),
		prefs:   NewMemoryPreferenceStore(),
		tokens:  NewMemoryTokenRegistry(),
		gateway: newStubGateway(),
	}
	f.engine = NewEngine(
		f.storage,
		NewMemoryPolicyStore(),
		f.prefs,
		f.tokens,
		NewDispatcher(f.gateway),
		opts...,
	)
	return f
}

func TestEngineSendToUser(t *testing.T) {
	ctx := context.Background()

	t.Run("persists an in-app record", func(t *testing.T) {
		f := newEngineFixture(t)

		record, err := f.engine.SendToUser(ctx, SendRequest{
			UserID:   "user1",
			EventKey: "order.shipped",
			Type:     TypeOrder,
			Title:    "Order shipped",
			Body:     "Your order is on its way",
		})
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.NotEmpty(t, record.ID)
		assert.NotNil(t, record.SentAt)
		assert.False(t, record.Read)

		stored, err := f.storage.Get(ctx, "user1", record.ID)
		require.NoError(t, err)
		assert.Equal(t, "Order shipped", stored.Title)
	})

	t.Run("missing user ID rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.engine.SendToUser(ctx, SendRequest{Title: "x"})
		assert.ErrorIs(t, err, ErrUserIDRequired)
	})

	t.Run("suppressed in-app channel returns nil record without error", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.prefs.Upsert(ctx, Preference{
			UserID: "user1", Type: TypeOrder, Channel: ChannelInApp,
			Enabled: false, Frequency: FrequencyImmediate,
		}))

		record, err := f.engine.SendToUser(ctx, SendRequest{
			UserID: "user1", EventKey: "order.shipped", Type: TypeOrder, Title: "hi",
		})
		require.NoError(t, err)
		assert.Nil(t, record)

		count, err := f.storage.CountUnread(ctx, "user1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("push fans out to registered tokens", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.tokens.Register(ctx, DeviceToken{UserID: "user1", Token: "tok1"}))
		require.NoError(t, f.tokens.Register(ctx, DeviceToken{UserID: "user1", Token: "tok2"}))

		_, err := f.engine.SendToUser(ctx, SendRequest{
			UserID: "user1", EventKey: "order.shipped", Type: TypeOrder,
			Title: "hi", SendPush: true,
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"tok1", "tok2"}, f.gateway.sentTokens())
	})

	t.Run("explicit tokens take precedence over the registry", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.tokens.Register(ctx, DeviceToken{UserID: "user1", Token: "registered"}))

		_, err := f.engine.SendToUser(ctx, SendRequest{
			UserID: "user1", Type: TypeOrder, Title: "hi",
			SendPush: true, Tokens: []string{"explicit"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"explicit"}, f.gateway.sentTokens())
	})

	t.Run("push not requested means no gateway calls", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.tokens.Register(ctx, DeviceToken{UserID: "user1", Token: "tok1"}))

		_, err := f.engine.SendToUser(ctx, SendRequest{
			UserID: "user1", Type: TypeOrder, Title: "hi",
		})
		require.NoError(t, err)
		assert.Empty(t, f.gateway.sentTokens())
	})

	t.Run("permanently failing tokens are pruned", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.tokens.Register(ctx, DeviceToken{UserID: "user1", Token: "dead"}))
		require.NoError(t, f.tokens.Register(ctx, DeviceToken{UserID: "user1", Token: "alive"}))
		f.gateway.failWith("dead", NewGatewayError(ErrCodeTokenNotRegistered, errors.New("gone")))

		_, err := f.engine.SendToUser(ctx, SendRequest{
			UserID: "user1", Type: TypeOrder, Title: "hi", SendPush: true,
		})
		require.NoError(t, err)

		remaining, err := f.tokens.TokensFor(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, []string{"alive"}, remaining)
	})

	t.Run("transient push failures keep the token registered", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.tokens.Register(ctx, DeviceToken{UserID: "user1", Token: "flaky"}))
		f.gateway.failWith("flaky", NewGatewayError(ErrCodeUnavailable, errors.New("outage")))

		_, err := f.engine.SendToUser(ctx, SendRequest{
			UserID: "user1", Type: TypeOrder, Title: "hi", SendPush: true,
		})
		require.NoError(t, err)

		remaining, err := f.tokens.TokensFor(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, []string{"flaky"}, remaining)
	})

	t.Run("email delivery failure never fails the send", func(t *testing.T) {
		sink := &recordingDeliverer{err: errors.New("smtp down")}
		f := newEngineFixture(t, WithEmailDeliverer(sink))

		record, err := f.engine.SendToUser(ctx, SendRequest{
			UserID: "user1", Type: TypeOrder, Title: "hi",
		})
		require.NoError(t, err)
		assert.NotNil(t, record, "in-app record persists despite the email failure")
	})

	t.Run("email sink receives the notification when allowed", func(t *testing.T) {
		sink := &recordingDeliverer{}
		f := newEngineFixture(t, WithEmailDeliverer(sink))

		_, err := f.engine.SendToUser(ctx, SendRequest{
			UserID: "user1", EventKey: "order.shipped", Type: TypeOrder, Title: "hi",
		})
		require.NoError(t, err)
		require.Len(t, sink.delivered, 1)
		assert.Equal(t, "user1", sink.delivered[0].UserID)
	})

	t.Run("cancelled context skips push dispatch", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.tokens.Register(ctx, DeviceToken{UserID: "user1", Token: "tok1"}))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		// Storage and resolution already happened against the memory stores;
		// only the push fanout observes the cancellation.
		_, _ = f.engine.SendToUser(cancelled, SendRequest{
			UserID: "user1", Type: TypeOrder, Title: "hi", SendPush: true,
		})
		assert.Empty(t, f.gateway.sentTokens())
	})

	t.Run("quiet hours suppress push but not in-app", func(t *testing.T) {
		fixed := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
		f := newEngineFixture(t, WithClock(func() time.Time { return fixed }))
		require.NoError(t, f.tokens.Register(ctx, DeviceToken{UserID: "user1", Token: "tok1"}))
		require.NoError(t, f.prefs.Upsert(ctx, Preference{
			UserID: "user1", Type: TypeOrder, Channel: ChannelPush,
			Enabled: true, Frequency: FrequencyImmediate,
			QuietHoursStart: "22:00", QuietHoursEnd: "06:00",
		}))

		record, err := f.engine.SendToUser(ctx, SendRequest{
			UserID: "user1", Type: TypeOrder, Title: "hi", SendPush: true,
		})
		require.NoError(t, err)
		assert.NotNil(t, record)
		assert.Empty(t, f.gateway.sentTokens())
	})
}

func TestEngineSendBulk(t *testing.T) {
	ctx := context.Background()

	t.Run("creates records only for eligible users", func(t *testing.T) {
		f := newEngineFixture(t)
		require.NoError(t, f.prefs.Upsert(ctx, Preference{
			UserID: "optout", Type: TypeProduct, Channel: ChannelInApp,
			Enabled: false, Frequency: FrequencyImmediate,
		}))

		records, err := f.engine.SendBulk(ctx, []string{"user1", "optout", "user2"}, SendRequest{
			EventKey: "product.launch", Type: TypeProduct, Title: "New feature",
		})
		require.NoError(t, err)
		require.Len(t, records, 2)

		users := []string{records[0].UserID, records[1].UserID}
		assert.ElementsMatch(t, []string{"user1", "user2"}, users)

		count, err := f.storage.CountUnread(ctx, "optout")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("each record gets its own ID", func(t *testing.T) {
		f := newEngineFixture(t)

		records, err := f.engine.SendBulk(ctx, []string{"a", "b", "c"}, SendRequest{
			Type: TypeInfo, Title: "hello",
		})
		require.NoError(t, err)
		require.Len(t, records, 3)

		seen := make(map[string]bool)
		for _, r := range records {
			assert.False(t, seen[r.ID], "duplicate notification ID")
			seen[r.ID] = true
		}
	})

	t.Run("empty user list", func(t *testing.T) {
		f := newEngineFixture(t)
		records, err := f.engine.SendBulk(ctx, nil, SendRequest{Type: TypeInfo, Title: "hello"})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("cancelled context returns the partial result with the cause", func(t *testing.T) {
		f := newEngineFixture(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		records, err := f.engine.SendBulk(cancelled, []string{"a", "b"}, SendRequest{
			Type: TypeInfo, Title: "hello",
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, records)
	})
}

func TestEngineTopics(t *testing.T) {
	ctx := context.Background()

	t.Run("send to topic goes straight to the gateway", func(t *testing.T) {
		f := newEngineFixture(t)

		msgID, err := f.engine.SendToTopic(ctx, "releases", PushPayload{Title: "v2 is out"})
		require.NoError(t, err)
		assert.Equal(t, "topic-msg-releases", msgID)
		assert.Equal(t, []string{"releases"}, f.gateway.topicCalls)
	})

	t.Run("empty topic rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.engine.SendToTopic(ctx, "", PushPayload{Title: "x"})
		assert.Error(t, err)
	})

	t.Run("subscribe and unsubscribe round-trip", func(t *testing.T) {
		f := newEngineFixture(t)

		require.NoError(t, f.engine.SubscribeToTopic(ctx, []string{"t1", "t2"}, "releases"))
		assert.ElementsMatch(t, []string{"t1", "t2"}, f.gateway.subscribed["releases"])

		require.NoError(t, f.engine.UnsubscribeFromTopic(ctx, []string{"t1"}, "releases"))
		assert.Equal(t, []string{"t2"}, f.gateway.subscribed["releases"])
	})
}

func TestEngineReadTracking(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *engineFixture, n int) []Notification {
		t.Helper()
		var records []Notification
		for i := 0; i < n; i++ {
			record, err := f.engine.SendToUser(ctx, SendRequest{
				UserID: "user1", Type: TypeInfo, Title: "hi",
			})
			require.NoError(t, err)
			records = append(records, *record)
		}
		return records
	}

	t.Run("mark read", func(t *testing.T) {
		f := newEngineFixture(t)
		records := seed(t, f, 2)

		require.NoError(t, f.engine.MarkRead(ctx, "user1", records[0].ID))

		count, err := f.engine.GetUnreadCount(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("mark all read", func(t *testing.T) {
		f := newEngineFixture(t)
		seed(t, f, 3)

		require.NoError(t, f.engine.MarkAllRead(ctx, "user1"))

		count, err := f.engine.GetUnreadCount(ctx, "user1")
		require.NoError(t, err)
		assert.Zero(t, count)

		// Idempotent on an all-read inbox.
		require.NoError(t, f.engine.MarkAllRead(ctx, "user1"))
	})

	t.Run("list notifications", func(t *testing.T) {
		f := newEngineFixture(t)
		seed(t, f, 2)

		list, err := f.engine.GetUserNotifications(ctx, "user1", ListOptions{})
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("delete", func(t *testing.T) {
		f := newEngineFixture(t)
		records := seed(t, f, 2)

		require.NoError(t, f.engine.Delete(ctx, "user1", records[0].ID))

		list, err := f.engine.GetUserNotifications(ctx, "user1", ListOptions{})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("user ID required", func(t *testing.T) {
		f := newEngineFixture(t)
		assert.ErrorIs(t, f.engine.MarkRead(ctx, "", "n1"), ErrUserIDRequired)
		assert.ErrorIs(t, f.engine.MarkAllRead(ctx, ""), ErrUserIDRequired)
		_, err := f.engine.GetUserNotifications(ctx, "", ListOptions{})
		assert.ErrorIs(t, err, ErrUserIDRequired)
		_, err = f.engine.GetUnreadCount(ctx, "")
		assert.ErrorIs(t, err, ErrUserIDRequired)
	})
}

func TestEngineTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	require.NoError(t, f.engine.RegisterToken(ctx, DeviceToken{
		UserID: "user1", Token: "tok1", Platform: "ios",
	}))

	tokens, err := f.tokens.TokensFor(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok1"}, tokens)

	require.NoError(t, f.engine.UnregisterToken(ctx, "user1", "tok1"))

	tokens, err = f.tokens.TokensFor(ctx, "user1")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
