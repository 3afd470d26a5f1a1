package oracle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"twentyq/internal/game"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, retries, logging, timeouts).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// Retry retries Consult up to maxAttempts with exponential backoff
// starting at baseDelay. If the context is canceled, it stops
// immediately. The caller sees a single failure only after every
// attempt is exhausted.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) Consult(ctx context.Context, t game.Transcript, instructions string) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Consult(ctx, t, instructions)
		if err == nil {
			return out, nil
		}
		last = err
		// Only the caller's context ends the attempt loop. A per-attempt
		// timeout (from the Timeout middleware or the backend) is a
		// transient failure like any other and stays retryable.
		if ctx.Err() != nil {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.base * time.Duration(1<<i)):
		}
	}
	return "", last
}

// Timeout bounds each consultation. The oracle call is the core's only
// blocking operation and must never be treated as infinite.
func Timeout(d time.Duration) Middleware {
	return func(next Client) Client {
		return &timed{next: next, d: d}
	}
}

type timed struct {
	next Client
	d    time.Duration
}

func (t *timed) Name() string { return t.next.Name() }
func (t *timed) Close() error { return t.next.Close() }

func (t *timed) Consult(ctx context.Context, tr game.Transcript, instructions string) (string, error) {
	if t.d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.d)
		defer cancel()
	}
	out, err := t.next.Consult(ctx, tr, instructions)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return "", errors.Join(ErrUnavailable, err)
	}
	return out, err
}

// Logging records each consultation's duration and outcome.
func Logging(log *zap.Logger) Middleware {
	return func(next Client) Client {
		return &logged{next: next, log: log}
	}
}

type logged struct {
	next Client
	log  *zap.Logger
}

func (l *logged) Name() string { return l.next.Name() }
func (l *logged) Close() error { return l.next.Close() }

func (l *logged) Consult(ctx context.Context, t game.Transcript, instructions string) (string, error) {
	start := time.Now()
	out, err := l.next.Consult(ctx, t, instructions)
	fields := []zap.Field{
		zap.String("oracle", l.next.Name()),
		zap.Int("exchanges", len(t)),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		l.log.Warn("oracle consult failed", append(fields, zap.Error(err))...)
		return out, err
	}
	l.log.Debug("oracle consult", append(fields, zap.Int("bytes", len(out)))...)
	return out, nil
}
