package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
	"github.com/flowingduskpro/shuangxiangapp/internal/hub"
	"github.com/flowingduskpro/shuangxiangapp/internal/repository"
	"github.com/flowingduskpro/shuangxiangapp/internal/store"
	"github.com/flowingduskpro/shuangxiangapp/pkg/log"
)

// Reconciler repairs counter drift: it recomputes a session's counters from
// the event log plus live membership and overwrites the counter store.
// Idempotent; safe to run while connections are active.
type Reconciler struct {
	hub       *hub.Hub
	eventLog  repository.EventLog
	counters  store.CounterStore
	opTimeout time.Duration
}

// NewReconciler creates a reconciler over the given log, store, and hub.
func NewReconciler(h *hub.Hub, eventLog repository.EventLog, counters store.CounterStore, opTimeout time.Duration) *Reconciler {
	return &Reconciler{
		hub:       h,
		eventLog:  eventLog,
		counters:  counters,
		opTimeout: opTimeout,
	}
}

// Reconcile recomputes and overwrites one session's counters, returning the
// reconciled values.
func (r *Reconciler) Reconcile(ctx context.Context, classSessionID string) (domain.Counts, error) {
	opCtx := ctx
	if r.opTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, r.opTimeout)
		defer cancel()
	}

	enterCount, err := r.eventLog.CountBySessionAndType(opCtx, classSessionID, domain.EventTypeClassEnter)
	if err != nil {
		return domain.Counts{}, err
	}

	counts := domain.Counts{
		Joined:      int64(r.hub.SessionClientCount(classSessionID)),
		EnterEvents: enterCount,
	}

	if err := r.counters.SetCounts(opCtx, classSessionID, counts); err != nil {
		return domain.Counts{}, err
	}

	log.Ctx(ctx).Info().
		Str(log.FieldClassSessionID, classSessionID).
		Int64("joined_count", counts.Joined).
		Int64("enter_event_count", counts.EnterEvents).
		Msg("counters reconciled")
	return counts, nil
}

// ReconcileAll reconciles every session with live members.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range r.hub.ActiveSessions() {
		id := id
		g.Go(func() error {
			_, err := r.Reconcile(gctx, id)
			return err
		})
	}
	return g.Wait()
}
