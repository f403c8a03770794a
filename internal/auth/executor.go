package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Refresher obtains a fresh bearer token without user interaction. It must
// fail, not prompt, when a silent refresh is impossible (consent revoked,
// no refresh token, network down).
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context) (string, error)

// Refresh implements Refresher.
func (f RefresherFunc) Refresh(ctx context.Context) (string, error) {
	return f(ctx)
}

// Operation is a unit of remote work that presents token as its bearer
// credential. Failures caused by a rejected credential must classify as
// KindAuthorization (see Classify).
type Operation[T any] func(ctx context.Context, token string) (T, error)

// refreshKey is the single singleflight key: there is one credential, so
// there is at most one refresh in flight.
const refreshKey = "refresh"

// Executor runs Operations with one silent refresh-and-retry on
// authorization failure. Safe for concurrent use; concurrent invocations
// that hit an authorization failure share a single in-flight refresh.
type Executor struct {
	store     Store
	refresher Refresher
	logger    *slog.Logger
	flight    singleflight.Group
}

// NewExecutor creates an Executor over the given store and refresher.
func NewExecutor(store Store, refresher Refresher, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		store:     store,
		refresher: refresher,
		logger:    logger,
	}
}

// Store returns the credential store the Executor reads and writes.
func (e *Executor) Store() Store {
	return e.store
}

// Execute runs op with the current credential. On an authorization failure
// it refreshes the credential once and runs op once more.
//
// Outcomes:
//   - no credential: ErrNotAuthenticated, op never runs
//   - op succeeds: its result, store untouched
//   - op fails with a non-authorization error: that error, unchanged
//   - refresh fails: ErrSessionExpired, store cleared
//   - otherwise: whatever the second attempt returns, unchanged
func Execute[T any](ctx context.Context, e *Executor, op Operation[T]) (T, error) {
	var zero T

	cred, ok := e.store.Current()
	if !ok {
		return zero, ErrNotAuthenticated
	}

	e.logger.Debug("running authenticated operation", slog.String("subject", cred.Subject))

	result, err := op(ctx, cred.BearerToken)
	if err == nil {
		return result, nil
	}

	if Classify(err) != KindAuthorization {
		return zero, err
	}

	e.logger.Warn("credential rejected, attempting silent refresh",
		slog.String("subject", cred.Subject),
		slog.String("error", err.Error()),
	)

	token, err := e.renew(ctx, cred)
	if err != nil {
		return zero, err
	}

	return op(ctx, token)
}

// Run is Execute for operations with no result.
func (e *Executor) Run(ctx context.Context, op func(ctx context.Context, token string) error) error {
	_, err := Execute(ctx, e, func(ctx context.Context, token string) (struct{}, error) {
		return struct{}{}, op(ctx, token)
	})

	return err
}

// renew returns a token to retry with after rejected was refused. The
// refresh runs detached from the caller's cancellation because other
// invocations may be waiting on the same flight; a cancelled caller stops
// waiting and gets ctx.Err().
func (e *Executor) renew(ctx context.Context, rejected Credential) (string, error) {
	ch := e.flight.DoChan(refreshKey, func() (any, error) {
		return e.refresh(context.WithoutCancel(ctx), rejected)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("auth: waiting for refresh: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}

		token, _ := res.Val.(string)

		return token, nil
	}
}

// refresh is the body of the shared flight. The store write (replace or
// clear) happens here exactly once per flight.
func (e *Executor) refresh(ctx context.Context, rejected Credential) (string, error) {
	current, ok := e.store.Current()
	if !ok {
		// Another invocation's refresh failed, or the user signed out.
		return "", ErrSessionExpired
	}

	if current.BearerToken != rejected.BearerToken {
		e.logger.Debug("credential already refreshed by a concurrent operation",
			slog.String("subject", current.Subject),
		)

		return current.BearerToken, nil
	}

	token, err := e.refresher.Refresh(ctx)
	if err != nil {
		e.logger.Warn("silent refresh failed, signing out",
			slog.String("subject", rejected.Subject),
			slog.String("error", err.Error()),
		)

		e.store.Clear()

		return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	e.store.Replace(Credential{Subject: current.Subject, BearerToken: token})

	e.logger.Info("credential refreshed", slog.String("subject", current.Subject))

	return token, nil
}
