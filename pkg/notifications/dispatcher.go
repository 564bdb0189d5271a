package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Outcome is the result of one per-token send attempt.
type Outcome struct {
	Token     string
	MessageID string
	Success   bool
	ErrorCode string // empty on success
	Err       error  // nil on success
}

// BatchOutcome aggregates a full fanout.
type BatchOutcome struct {
	SuccessCount  int
	FailureCount  int
	TokensToPrune []string // tokens that failed permanently
	Outcomes      []Outcome
}

// Dispatcher fans one push payload out to many device tokens with bounded
// concurrency. One token's failure never affects the other tokens in the
// batch; the call blocks until every attempt resolves or times out.
type Dispatcher struct {
	gateway     Gateway
	workers     int
	sendTimeout time.Duration
	logger      *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.logger = log
		}
	}
}

// WithWorkers caps how many per-token sends run concurrently. Values below 1
// are ignored.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithSendTimeout bounds each per-token gateway call. A hung provider call
// must not block the whole batch. Non-positive values are ignored.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// NewDispatcher creates a push dispatcher over the given gateway.
func NewDispatcher(gateway Gateway, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		gateway:     gateway,
		workers:     8,
		sendTimeout: 10 * time.Second,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// SendAll dispatches the payload to every token and aggregates the per-token
// outcomes. An empty token list is a successful no-op; the gateway is never
// touched. Timeouts count as transient failures, so the affected tokens are
// not scheduled for pruning.
func (d *Dispatcher) SendAll(ctx context.Context, tokens []string, payload PushPayload) BatchOutcome {
	if len(tokens) == 0 {
		return BatchOutcome{}
	}

	outcomes := make([]Outcome, len(tokens))
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup

	for i, token := range tokens {
		// Once the caller cancels, stop launching attempts and record the
		// remaining tokens as transient failures.
		if err := ctx.Err(); err != nil {
			outcomes[i] = Outcome{Token: token, ErrorCode: ErrCodeTimeout, Err: err}
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes[i] = d.sendOne(ctx, token, payload)
		}(i, token)
	}

	wg.Wait()

	batch := BatchOutcome{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Success {
			batch.SuccessCount++
			continue
		}
		batch.FailureCount++
		if IsPermanentTokenError(o.Err) {
			batch.TokensToPrune = append(batch.TokensToPrune, o.Token)
		}
	}

	d.logger.LogAttrs(ctx, slog.LevelDebug, "push fanout completed",
		logger.TokenCount(len(tokens)),
		logger.SuccessCount(batch.SuccessCount),
		logger.FailureCount(batch.FailureCount),
		logger.PruneCount(len(batch.TokensToPrune)),
	)

	return batch
}

func (d *Dispatcher) sendOne(ctx context.Context, token string, payload PushPayload) Outcome {
	attemptCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	messageID, err := d.gateway.Send(attemptCtx, token, payload)
	if err != nil {
		code := ErrorCode(err)
		d.logger.LogAttrs(ctx, slog.LevelWarn, "push send failed",
			slog.String("error_code", code),
			logger.Error(err),
		)
		return Outcome{Token: token, ErrorCode: code, Err: err}
	}

	return Outcome{Token: token, MessageID: messageID, Success: true}
}
