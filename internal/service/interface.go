package service

import (
	"context"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
	"github.com/flowingduskpro/shuangxiangapp/internal/hub"
)

// GatewayService is the session protocol engine: it interprets inbound
// messages against the connection's state and orchestrates the event log,
// counter store, and broadcast fan-out in a fixed order.
type GatewayService interface {
	HandleAuth(ctx context.Context, client *hub.Client, msg *domain.AuthMessage) error
	HandleJoin(ctx context.Context, client *hub.Client, msg *domain.JoinMessage) error
	HandleEvent(ctx context.Context, client *hub.Client, msg *domain.EventMessage) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
}
