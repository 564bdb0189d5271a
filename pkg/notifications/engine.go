package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// SendRequest describes one notification send. Channels are evaluated
// independently: a suppressed in-app record does not stop an allowed push,
// and vice versa.
type SendRequest struct {
	UserID    string
	EventKey  string
	Type      Type
	Title     string
	Body      string
	ActionURL string
	IconURL   string
	ImageURL  string
	Data      map[string]any

	// SendPush requests push fanout when the push channel is allowed.
	SendPush bool

	// Tokens, when non-empty, takes precedence over the registry lookup.
	Tokens []string

	// Timezone overrides the engine default for quiet-hour evaluation.
	Timezone string
}

// Engine is the orchestrator and the only entry point transport layers talk
// to. It resolves channels, persists the in-app record, fans out push
// delivery and prunes tokens the gateway reports dead.
type Engine struct {
	storage    Storage
	resolver   *Resolver
	tokens     TokenRegistry
	dispatcher *Dispatcher
	emailSink  Deliverer

	timezone    string
	bulkWorkers int
	now         func() time.Time
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger for the Engine.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}

// WithDefaultTimezone sets the quiet-hours fallback timezone (IANA name).
func WithDefaultTimezone(tz string) EngineOption {
	return func(e *Engine) {
		if tz != "" {
			e.timezone = tz
		}
	}
}

// WithBulkWorkers caps concurrent per-user work in SendBulk. Values below 1
// are ignored.
func WithBulkWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.bulkWorkers = n
		}
	}
}

// WithEmailDeliverer attaches an email channel sink. Without one the email
// channel resolves but delivers nowhere.
func WithEmailDeliverer(d Deliverer) EngineOption {
	return func(e *Engine) {
		e.emailSink = d
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates the notification engine.
func NewEngine(storage Storage, policies PolicyStore, prefs PreferenceStore, tokens TokenRegistry, dispatcher *Dispatcher, opts ...EngineOption) *Engine {
	e := &Engine{
		storage:     storage,
		resolver:    NewResolver(policies, prefs),
		tokens:      tokens,
		dispatcher:  dispatcher,
		timezone:    "UTC",
		bulkWorkers: 4,
		now:         time.Now,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Resolver exposes the engine's channel resolver for callers that need a
// dry-run eligibility check.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// SendToUser resolves channels for one recipient and delivers accordingly.
//
// The returned record is nil when the in-app channel is suppressed; that is a
// valid outcome, not an error. Failing to persist an allowed in-app record is
// fatal to the call since the record is the durable source of truth. Push and
// email outcomes are side effects observed through logs.
func (e *Engine) SendToUser(ctx context.Context, req SendRequest) (*Notification, error) {
	if req.UserID == "" {
		return nil, ErrUserIDRequired
	}

	tz := req.Timezone
	if tz == "" {
		tz = e.timezone
	}

	channels, err := e.resolver.Resolve(ctx, req.UserID, req.EventKey, req.Type, e.now(), tz)
	if err != nil {
		return nil, fmt.Errorf("resolve channels: %w", err)
	}

	allowed := make(map[Channel]bool, len(channels))
	for _, ch := range channels {
		allowed[ch] = true
	}

	notif := e.buildNotification(req)

	var record *Notification
	if allowed[ChannelInApp] {
		if err := e.storage.Create(ctx, notif); err != nil {
			return nil, fmt.Errorf("store notification: %w", err)
		}
		rec := notif
		record = &rec
	} else {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "in-app record suppressed",
			logger.UserID(req.UserID),
			logger.EventKey(req.EventKey),
		)
	}

	if allowed[ChannelEmail] && e.emailSink != nil {
		// Best effort: the email sink never fails the send.
		if err := e.emailSink.Deliver(ctx, notif); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelWarn, "email delivery failed",
				logger.UserID(req.UserID),
				logger.EventKey(req.EventKey),
				logger.Error(err),
			)
		}
	}

	if allowed[ChannelPush] && req.SendPush {
		e.dispatchPush(ctx, req, notif)
	}

	return record, nil
}

// dispatchPush gathers tokens, fans out and prunes what the gateway reported
// dead. Nothing here escalates: push is best effort on top of the persisted
// record.
func (e *Engine) dispatchPush(ctx context.Context, req SendRequest, notif Notification) {
	// A cancelled caller means no dispatch at all, not a partial one.
	if err := ctx.Err(); err != nil {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "push dispatch skipped, context done",
			logger.UserID(req.UserID),
			logger.Error(err),
		)
		return
	}

	tokens := req.Tokens
	if len(tokens) == 0 {
		var err error
		tokens, err = e.tokens.TokensFor(ctx, req.UserID)
		if err != nil {
			e.logger.LogAttrs(ctx, slog.LevelWarn, "token lookup failed, push skipped",
				logger.UserID(req.UserID),
				logger.Error(err),
			)
			return
		}
	}
	if len(tokens) == 0 {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "no registered tokens, push skipped",
			logger.UserID(req.UserID),
		)
		return
	}

	outcome := e.dispatcher.SendAll(ctx, tokens, e.pushPayload(req, notif))

	e.logger.LogAttrs(ctx, slog.LevelInfo, "push dispatched",
		logger.UserID(req.UserID),
		logger.EventKey(req.EventKey),
		logger.TokenCount(len(tokens)),
		logger.SuccessCount(outcome.SuccessCount),
		logger.FailureCount(outcome.FailureCount),
	)

	if len(outcome.TokensToPrune) > 0 {
		if err := e.tokens.PruneInvalid(ctx, outcome.TokensToPrune); err != nil {
			// Pruning is advisory cleanup; the dead tokens fail again next
			// send and get another chance to be removed.
			e.logger.LogAttrs(ctx, slog.LevelWarn, "failed to prune invalid tokens",
				logger.UserID(req.UserID),
				logger.PruneCount(len(outcome.TokensToPrune)),
				logger.Error(err),
			)
		}
	}
}

func (e *Engine) buildNotification(req SendRequest) Notification {
	now := e.now()
	return Notification{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Body:      req.Body,
		ActionURL: req.ActionURL,
		IconURL:   req.IconURL,
		ImageURL:  req.ImageURL,
		Data:      req.Data,
		EventKey:  req.EventKey,
		SentAt:    &now,
		CreatedAt: now,
	}
}

func (e *Engine) pushPayload(req SendRequest, notif Notification) PushPayload {
	data := make(map[string]string, len(req.Data)+2)
	for k, v := range req.Data {
		data[k] = fmt.Sprint(v)
	}
	if req.EventKey != "" {
		data["event_key"] = req.EventKey
	}
	if notif.ID != "" {
		data["notification_id"] = notif.ID
	}

	return PushPayload{
		Title:       req.Title,
		Body:        req.Body,
		Icon:        req.IconURL,
		Image:       req.ImageURL,
		ClickAction: req.ActionURL,
		Data:        data,
	}
}

// SendBulk creates in-app records for every eligible user in the list.
// Users whose preferences or the event policy suppress the in-app channel are
// silently excluded, and one user's storage failure never aborts the batch.
// The user list is processed with bounded concurrency so a large broadcast
// does not overwhelm the preference store.
func (e *Engine) SendBulk(ctx context.Context, userIDs []string, req SendRequest) ([]Notification, error) {
	tz := req.Timezone
	if tz == "" {
		tz = e.timezone
	}
	now := e.now()

	results := make([]*Notification, len(userIDs))
	sem := make(chan struct{}, e.bulkWorkers)
	var wg sync.WaitGroup

	for i, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			defer func() { <-sem }()

			eligible, err := e.resolver.ResolveChannel(ctx, userID, req.EventKey, req.Type, ChannelInApp, now, tz)
			if err != nil {
				e.logger.LogAttrs(ctx, slog.LevelWarn, "bulk send: eligibility check failed, user skipped",
					logger.UserID(userID),
					logger.EventKey(req.EventKey),
					logger.Error(err),
				)
				return
			}
			if !eligible {
				return
			}

			userReq := req
			userReq.UserID = userID
			notif := e.buildNotification(userReq)

			if err := e.storage.Create(ctx, notif); err != nil {
				e.logger.LogAttrs(ctx, slog.LevelWarn, "bulk send: failed to store notification, user skipped",
					logger.UserID(userID),
					logger.EventKey(req.EventKey),
					logger.Error(err),
				)
				return
			}

			results[i] = &notif
		}(i, userID)
	}

	wg.Wait()

	records := make([]Notification, 0, len(userIDs))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}

	if err := ctx.Err(); err != nil {
		return records, err
	}
	return records, nil
}

// SendToTopic delivers straight to the gateway's topic primitive. Topic
// subscriptions are opt-in at registration time, so per-user preference
// resolution does not apply and no in-app records are written.
func (e *Engine) SendToTopic(ctx context.Context, topic string, payload PushPayload) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}

	messageID, err := e.dispatcher.gateway.SendToTopic(ctx, topic, payload)
	if err != nil {
		return "", fmt.Errorf("send to topic %s: %w", topic, err)
	}

	e.logger.LogAttrs(ctx, slog.LevelInfo, "topic message sent",
		logger.Topic(topic),
		logger.MessageID(messageID),
	)

	return messageID, nil
}

// SubscribeToTopic subscribes the tokens to a topic via the gateway.
func (e *Engine) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	return e.dispatcher.gateway.SubscribeToTopic(ctx, tokens, topic)
}

// UnsubscribeFromTopic unsubscribes the tokens from a topic via the gateway.
func (e *Engine) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error {
	return e.dispatcher.gateway.UnsubscribeFromTopic(ctx, tokens, topic)
}

// MarkRead marks the given records as read. Already-read records keep their
// original read timestamp.
func (e *Engine) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	return e.storage.MarkRead(ctx, userID, notifIDs...)
}

// MarkAllRead marks every unread record for the user as read.
func (e *Engine) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	unread, err := e.storage.List(ctx, userID, ListOptions{OnlyUnread: true})
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		return nil
	}

	ids := make([]string, len(unread))
	for i, n := range unread {
		ids[i] = n.ID
	}
	return e.storage.MarkRead(ctx, userID, ids...)
}

// GetUserNotifications returns the user's records, newest first.
func (e *Engine) GetUserNotifications(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	return e.storage.List(ctx, userID, opts)
}

// GetUnreadCount returns the number of unread, unexpired records for the user.
func (e *Engine) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrUserIDRequired
	}
	return e.storage.CountUnread(ctx, userID)
}

// Delete removes the given records for the user.
func (e *Engine) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	return e.storage.Delete(ctx, userID, notifIDs...)
}

// RegisterToken registers or refreshes a device token for push delivery.
func (e *Engine) RegisterToken(ctx context.Context, token DeviceToken) error {
	return e.tokens.Register(ctx, token)
}

// UnregisterToken removes a device token previously registered by the user.
func (e *Engine) UnregisterToken(ctx context.Context, userID, token string) error {
	return e.tokens.RemoveByUserAndToken(ctx, userID, token)
}
