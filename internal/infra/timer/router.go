package timer

import (
	"context"
	"errors"
	"fmt"
)

// Router sends exact registrations to one backend and inexact ones to
// another. After a successful registration the key is cancelled on the other
// backend, so a key is armed at most once across both.
type Router struct {
	exact   Service
	inexact Service
}

func NewRouter(exact, inexact Service) *Router {
	return &Router{
		exact:   exact,
		inexact: inexact,
	}
}

func (r *Router) Register(ctx context.Context, reg Registration) error {
	target, other := r.exact, r.inexact
	if reg.Mode == ModeInexact {
		target, other = r.inexact, r.exact
	}

	if err := target.Register(ctx, reg); err != nil {
		return err
	}

	if r.shared() {
		return nil
	}
	if err := other.Cancel(ctx, reg.Key); err != nil {
		return fmt.Errorf("failed to clear %s on the other backend: %w", reg.Key, err)
	}
	return nil
}

func (r *Router) Cancel(ctx context.Context, key string) error {
	if r.shared() {
		return r.exact.Cancel(ctx, key)
	}
	return errors.Join(
		r.exact.Cancel(ctx, key),
		r.inexact.Cancel(ctx, key),
	)
}

func (r *Router) shared() bool {
	return r.exact == r.inexact
}
