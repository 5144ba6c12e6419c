// Package scheduler runs the daily subscription renewal pass: it picks
// auto-renewing subscriptions about to expire, drives the token charge for
// card-funded ones, and disables auto-renewal on anything that cannot renew.
// A failed renewal never stops the pass.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tolempay/billing/pkg/config"
	"github.com/tolempay/billing/pkg/domain"
	"github.com/tolempay/billing/pkg/engine"
	"github.com/tolempay/billing/pkg/notifier"
	"github.com/tolempay/billing/pkg/repository"
)

// Renewer charges a subscription for its next period. Satisfied by
// *engine.Engine.
type Renewer interface {
	RenewSubscription(ctx context.Context, sub *domain.Subscription) (*engine.Outcome, error)
}

// Scheduler owns the renewal loop.
type Scheduler struct {
	renewer Renewer
	uow     repository.UnitOfWork
	events  notifier.Notifier
	cfg     *config.Scheduler
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New creates a Scheduler.
func New(renewer Renewer, uow repository.UnitOfWork, events notifier.Notifier, cfg *config.Scheduler, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		renewer: renewer,
		uow:     uow,
		events:  events,
		cfg:     cfg,
		logger:  logger.With("component", "scheduler"),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// Start launches the loop: one pass immediately, the next at local midnight,
// then every 24 hours. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop prevents future passes and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.RunOnce(ctx)

	// Anchor subsequent passes to local midnight so the pass lands in the
	// quiet hours regardless of when the process started.
	timer := time.NewTimer(untilNextMidnight(s.now()))
	defer timer.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(24 * time.Hour)
		}
	}
}

// RunOnce executes a single renewal pass followed by the retention sweep.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.now()
	subs, err := s.uow.Subscriptions()
	if err != nil {
		s.logger.Error("renewal pass aborted", "error", err)
		return
	}
	due, err := subs.ExpiringWithin(ctx, now, now.Add(s.cfg.RenewalWindow))
	if err != nil {
		s.logger.Error("renewal candidate query failed", "error", err)
		return
	}

	var renewed, failed int
	for i, sub := range due {
		select {
		case <-s.stop:
			s.logger.Info("renewal pass interrupted", "processed", i, "total", len(due))
			return
		case <-ctx.Done():
			return
		default:
		}

		if s.renew(ctx, subs, sub) {
			renewed++
		} else {
			failed++
		}

		if s.cfg.Throttle > 0 && i < len(due)-1 {
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.Throttle):
			}
		}
	}

	purged, err := subs.DeleteExpiredBefore(ctx, now.Add(-s.cfg.Retention))
	if err != nil {
		s.logger.Error("retention sweep failed", "error", err)
	}

	s.logger.Info("renewal pass finished",
		"candidates", len(due),
		"renewed", renewed,
		"failed", failed,
		"purged", purged,
	)
}

// renew attempts one subscription and reports success. Any failure disables
// auto-renewal so the same subscription does not fail every night.
func (s *Scheduler) renew(ctx context.Context, subs repository.SubscriptionRepository, sub *domain.Subscription) bool {
	if sub.PaymentMethod != domain.SourceCard || sub.CardMasked == "" {
		// Wallet-funded periods carry no token to charge; renewal needs the
		// user to come back and pay.
		s.logger.Warn("subscription not renewable without a stored card",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"payment_method", sub.PaymentMethod,
		)
		s.disable(ctx, subs, sub, "no stored card for renewal")
		return false
	}

	if _, err := s.renewer.RenewSubscription(ctx, sub); err != nil {
		s.logger.Error("subscription renewal failed",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"error", err,
		)
		s.disable(ctx, subs, sub, err.Error())
		return false
	}
	return true
}

func (s *Scheduler) disable(ctx context.Context, subs repository.SubscriptionRepository, sub *domain.Subscription, reason string) {
	if err := subs.DisableAutoRenewal(ctx, sub.ID); err != nil {
		s.logger.Error("failed to disable auto-renewal",
			"subscription_id", sub.ID,
			"error", err,
		)
	}
	subID := sub.ID
	s.events.Notify(ctx, notifier.Event{
		Kind:           notifier.KindRenewalFailed,
		UserID:         sub.UserID,
		SubscriptionID: &subID,
		Message:        reason,
		At:             s.now(),
	})
}

func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
	return next.Sub(now)
}
