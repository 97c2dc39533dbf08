package service

import (
	"context"
	"errors"
	"time"

	"github.com/flowingduskpro/shuangxiangapp/internal/auth"
	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
	"github.com/flowingduskpro/shuangxiangapp/internal/hub"
	"github.com/flowingduskpro/shuangxiangapp/internal/repository"
	"github.com/flowingduskpro/shuangxiangapp/internal/store"
	"github.com/flowingduskpro/shuangxiangapp/pkg/log"
)

type gatewayService struct {
	hub       *hub.Hub
	verifier  auth.Verifier
	eventLog  repository.EventLog
	sessions  repository.ClassSessionRepository
	counters  store.CounterStore
	opTimeout time.Duration
}

// NewGatewayService creates the protocol engine.
func NewGatewayService(
	h *hub.Hub,
	verifier auth.Verifier,
	eventLog repository.EventLog,
	sessions repository.ClassSessionRepository,
	counters store.CounterStore,
	opTimeout time.Duration,
) GatewayService {
	return &gatewayService{
		hub:       h,
		verifier:  verifier,
		eventLog:  eventLog,
		sessions:  sessions,
		counters:  counters,
		opTimeout: opTimeout,
	}
}

// HandleAuth verifies the credential and installs claims on the connection.
// Failure leaves the connection open and unauthenticated. Re-auth from any
// state replaces claims without touching membership.
func (s *gatewayService) HandleAuth(ctx context.Context, c *hub.Client, msg *domain.AuthMessage) error {
	claims, err := s.verifier.Verify(ctx, msg.Token)
	if err != nil {
		code := domain.ErrCodeInvalidCredential
		switch {
		case errors.Is(err, auth.ErrMissingClaim):
			code = domain.ErrCodeMissingClaim
		case errors.Is(err, auth.ErrInvalidRole):
			code = domain.ErrCodeInvalidRole
		}
		log.Ctx(ctx).Warn().Err(err).
			Str(log.FieldClientID, c.ID).
			Str(log.FieldCorrelationID, msg.CorrelationID).
			Msg("auth rejected")
		return c.SendMessage(domain.NewNack(domain.MsgTypeAuth, msg.CorrelationID, code))
	}

	c.State.Authenticate(claims)

	log.Ctx(ctx).Info().
		Str(log.FieldClientID, c.ID).
		Str(log.FieldUserID, claims.Subject).
		Str(log.FieldRole, string(claims.Role)).
		Str(log.FieldCorrelationID, msg.CorrelationID).
		Msg("client authenticated")

	return c.SendMessage(domain.NewAck(domain.MsgTypeAuth, msg.CorrelationID))
}

// HandleJoin binds the connection to a class session. Re-joining the bound
// session is an acknowledged no-op that never re-increments the counter.
// Joining a different session while joined is reassignment: the old session
// is decremented and left before the new join, and the ack is sent only after
// both settle.
func (s *gatewayService) HandleJoin(ctx context.Context, c *hub.Client, msg *domain.JoinMessage) error {
	l := log.Ctx(ctx)

	if !c.State.IsAuthenticated() {
		return c.SendMessage(domain.NewNack(domain.MsgTypeJoin, msg.CorrelationID, domain.ErrCodeUnauthorized))
	}

	current := c.State.JoinedSession()
	if current != "" && current == msg.ClassSessionID {
		// Idempotent re-join: no counter mutation, no broadcast.
		return c.SendMessage(domain.NewAck(domain.MsgTypeJoin, msg.CorrelationID))
	}

	if _, err := s.lookupSession(ctx, msg.ClassSessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.SendMessage(domain.NewNack(domain.MsgTypeJoin, msg.CorrelationID, domain.ErrCodeSessionNotFound))
		}
		l.Error().Err(err).Str(log.FieldClassSessionID, msg.ClassSessionID).Msg("session lookup failed")
		return c.SendMessage(domain.NewNack(domain.MsgTypeJoin, msg.CorrelationID, domain.ErrCodeInternalError))
	}

	if current != "" {
		// Reassignment: settle the old session before joining the new one.
		if err := s.leaveSession(ctx, c, current); err != nil {
			l.Error().Err(err).
				Str(log.FieldClassSessionID, current).
				Msg("failed to settle previous session during reassignment")
			return c.SendMessage(domain.NewNack(domain.MsgTypeJoin, msg.CorrelationID, domain.ErrCodeCounterMutationFailure))
		}
	}

	c.State.Join(msg.ClassSessionID)
	s.hub.JoinSession(c, msg.ClassSessionID)

	opCtx, cancel := s.bound(ctx)
	_, err := s.counters.IncrJoined(opCtx, msg.ClassSessionID)
	cancel()
	if err != nil {
		// Unwind so membership never runs ahead of the counter.
		s.hub.LeaveSession(c, msg.ClassSessionID)
		c.State.Leave()
		l.Error().Err(err).Str(log.FieldClassSessionID, msg.ClassSessionID).Msg("joined counter increment failed")
		return c.SendMessage(domain.NewNack(domain.MsgTypeJoin, msg.CorrelationID, domain.ErrCodeCounterMutationFailure))
	}

	if err := c.SendMessage(domain.NewAck(domain.MsgTypeJoin, msg.CorrelationID)); err != nil {
		return err
	}

	s.broadcastAggregate(ctx, msg.ClassSessionID, msg.CorrelationID)
	return nil
}

// HandleEvent records one event: durable write, then counter mutation, then
// ack, then broadcast. A failed write skips the counter and broadcast
// entirely; a failed counter mutation after a successful write is the one
// documented inconsistency window, repaired by reconciliation.
func (s *gatewayService) HandleEvent(ctx context.Context, c *hub.Client, msg *domain.EventMessage) error {
	l := log.Ctx(ctx)

	if !c.State.IsAuthenticated() {
		return c.SendMessage(domain.NewNack(domain.MsgTypeEvent, msg.CorrelationID, domain.ErrCodeUnauthorized))
	}

	if msg.EventType != domain.EventTypeClassEnter {
		return c.SendMessage(domain.NewNack(domain.MsgTypeEvent, msg.CorrelationID, domain.ErrCodeUnknownEventType))
	}

	if c.State.JoinedSession() != msg.ClassSessionID || msg.ClassSessionID == "" {
		return c.SendMessage(domain.NewNack(domain.MsgTypeEvent, msg.CorrelationID, domain.ErrCodeNotJoined))
	}

	claims := c.State.Claims()
	record := &domain.EventRecord{
		ClassSessionID: msg.ClassSessionID,
		Subject:        claims.Subject,
		Role:           claims.Role,
		ClassID:        claims.ClassID,
		EventType:      msg.EventType,
		CorrelationID:  msg.CorrelationID,
	}

	opCtx, cancel := s.bound(ctx)
	err := s.eventLog.Append(opCtx, record)
	cancel()
	if err != nil {
		l.Error().Err(err).
			Str(log.FieldClassSessionID, msg.ClassSessionID).
			Str(log.FieldCorrelationID, msg.CorrelationID).
			Msg("durable event write failed")
		return c.SendMessage(domain.NewNack(domain.MsgTypeEvent, msg.CorrelationID, domain.ErrCodeDurableWriteFailure))
	}

	opCtx, cancel = s.bound(ctx)
	_, err = s.counters.IncrEnterEvents(opCtx, msg.ClassSessionID)
	cancel()
	if err != nil {
		// The event is durably recorded but the counter is stale; this is
		// the documented window reconciliation recovers from.
		l.Error().Err(err).
			Str(log.FieldClassSessionID, msg.ClassSessionID).
			Str(log.FieldCorrelationID, msg.CorrelationID).
			Msg("enter counter increment failed after durable write")
		return c.SendMessage(domain.NewNack(domain.MsgTypeEvent, msg.CorrelationID, domain.ErrCodeCounterMutationFailure))
	}

	if err := c.SendMessage(domain.NewAck(domain.MsgTypeEvent, msg.CorrelationID)); err != nil {
		return err
	}

	l.Info().
		Str(log.FieldClassSessionID, msg.ClassSessionID).
		Str(log.FieldEventType, msg.EventType).
		Str(log.FieldCorrelationID, msg.CorrelationID).
		Msg("event recorded")

	s.broadcastAggregate(ctx, msg.ClassSessionID, msg.CorrelationID)
	return nil
}

// HandleDisconnect settles a joined connection on transport closure:
// decrement with floor, drop membership, log the resulting count with the
// connection's last correlation id. No ack is sent.
func (s *gatewayService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	classSessionID := c.State.JoinedSession()
	if classSessionID == "" {
		return nil
	}

	opCtx, cancel := s.bound(ctx)
	remaining, err := s.counters.DecrJoined(opCtx, classSessionID)
	cancel()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str(log.FieldClientID, c.ID).
			Str(log.FieldClassSessionID, classSessionID).
			Msg("joined counter decrement failed on disconnect")
	}

	s.hub.LeaveSession(c, classSessionID)
	c.State.Leave()

	evt := log.Ctx(ctx).Info().
		Str(log.FieldClientID, c.ID).
		Str(log.FieldClassSessionID, classSessionID).
		Str(log.FieldCorrelationID, c.State.Correlation())
	if err == nil {
		evt = evt.Int64("joined_count", remaining)
	}
	evt.Msg("client disconnected")
	return nil
}

// broadcastAggregate reads the current snapshot and fans it out to the
// session's membership set. Failures are logged, never surfaced to the
// triggering connection, and never roll back the counter mutation.
func (s *gatewayService) broadcastAggregate(ctx context.Context, classSessionID, correlationID string) {
	opCtx, cancel := s.bound(ctx)
	counts, err := s.counters.GetCounts(opCtx, classSessionID)
	cancel()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str(log.FieldClassSessionID, classSessionID).
			Msg("aggregate snapshot read failed, skipping broadcast")
		return
	}

	agg := domain.NewAggregate(classSessionID, correlationID, counts)
	if err := s.hub.BroadcastToSession(classSessionID, agg); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str(log.FieldClassSessionID, classSessionID).
			Msg("aggregate broadcast failed")
	}
}

func (s *gatewayService) leaveSession(ctx context.Context, c *hub.Client, classSessionID string) error {
	opCtx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.counters.DecrJoined(opCtx, classSessionID); err != nil {
		return err
	}
	s.hub.LeaveSession(c, classSessionID)
	c.State.Leave()
	return nil
}

func (s *gatewayService) lookupSession(ctx context.Context, id string) (*domain.ClassSession, error) {
	opCtx, cancel := s.bound(ctx)
	defer cancel()
	return s.sessions.GetByID(opCtx, id)
}

func (s *gatewayService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}
