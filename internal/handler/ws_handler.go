package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/flowingduskpro/shuangxiangapp/internal/config"
	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
	"github.com/flowingduskpro/shuangxiangapp/internal/hub"
	"github.com/flowingduskpro/shuangxiangapp/internal/service"
	"github.com/flowingduskpro/shuangxiangapp/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades connections and dispatches inbound messages to the
// protocol engine.
type WSHandler struct {
	hub     *hub.Hub
	service service.GatewayService
	wsCfg   config.WebSocketConfig
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc service.GatewayService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the request and starts the connection's pumps.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleMessage, h.handleDisconnect)
}

// handleMessage decodes one inbound frame and routes it by msg_type. Every
// message gets a correlation id, assigned here when the client omits one.
func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		// The frame is unattributable, so the nack carries no ack_type.
		client.SendMessage(domain.NewNack("", uuid.New().String(), domain.ErrCodeBadRequest))
		return
	}

	if base.CorrelationID == "" {
		base.CorrelationID = uuid.New().String()
	}
	client.State.SetCorrelation(base.CorrelationID)

	ctx := log.WithLogger(context.Background(), log.L().With().
		Str(log.FieldClientID, client.ID).
		Str(log.FieldCorrelationID, base.CorrelationID).
		Logger())

	switch base.MsgType {
	case domain.MsgTypeAuth:
		var msg domain.AuthMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewNack(domain.MsgTypeAuth, base.CorrelationID, domain.ErrCodeBadRequest))
			return
		}
		msg.CorrelationID = base.CorrelationID
		if err := h.service.HandleAuth(ctx, client, &msg); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("auth handling failed")
		}

	case domain.MsgTypeJoin:
		var msg domain.JoinMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewNack(domain.MsgTypeJoin, base.CorrelationID, domain.ErrCodeBadRequest))
			return
		}
		msg.CorrelationID = base.CorrelationID
		if err := h.service.HandleJoin(ctx, client, &msg); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("join handling failed")
		}

	case domain.MsgTypeEvent:
		var msg domain.EventMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewNack(domain.MsgTypeEvent, base.CorrelationID, domain.ErrCodeBadRequest))
			return
		}
		msg.CorrelationID = base.CorrelationID
		if err := h.service.HandleEvent(ctx, client, &msg); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("event handling failed")
		}

	default:
		// The nack names the unknown type so clients can see what was dropped.
		client.SendMessage(domain.NewNack(base.MsgType, base.CorrelationID, domain.ErrCodeUnknownMessageType))
	}
}

// handleDisconnect runs exactly once per connection, on transport closure.
func (h *WSHandler) handleDisconnect(client *hub.Client) {
	if err := h.service.HandleDisconnect(context.Background(), client); err != nil {
		log.L().Error().Err(err).Str(log.FieldClientID, client.ID).Msg("disconnect handling failed")
	}
}
