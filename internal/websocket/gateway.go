// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package websocket

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/config"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/metrics"
)

// DefaultTypingTimeout is how long after the last typing frame a user is
// reported as having stopped.
const DefaultTypingTimeout = 3 * time.Second

// ChatService is the part of the chat service the gateway drives.
type ChatService interface {
	GetOrJoinChat(ctx context.Context, eventID, userID string) (*chat.JoinResult, error)
	RecentMessages(ctx context.Context, chatID string) (*chat.MessagePage, error)
	SendMessage(ctx context.Context, eventID, userID string, in chat.SendInput) (*chat.MessageView, error)
	Heartbeat(ctx context.Context, eventID, userID string) error
}

// Gateway dispatches inbound frames to the chat service and fans results
// out through the hub.
type Gateway struct {
	hub           *Hub
	chat          ChatService
	clientOpts    ClientOptions
	typingTimeout time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTypingTimeout overrides DefaultTypingTimeout.
func WithTypingTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.typingTimeout = d }
}

// NewGateway creates a gateway over hub and svc.
func NewGateway(hub *Hub, svc ChatService, cfg config.ChatConfig, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		hub:  hub,
		chat: svc,
		clientOpts: ClientOptions{
			SendBuffer:   cfg.SendBuffer,
			InboundRate:  cfg.InboundRate,
			InboundBurst: cfg.InboundBurst,
		},
		typingTimeout: DefaultTypingTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Hub returns the gateway's hub.
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// Serve runs an upgraded connection for an authenticated user until it
// disconnects. Frames are handled sequentially on the calling goroutine.
func (g *Gateway) Serve(ctx context.Context, conn *websocket.Conn, userID string) {
	c := NewClient(conn, userID, g.clientOpts)
	ctx = logging.ContextWithUserID(ctx, userID)

	g.hub.Register(c)
	go c.writePump()

	c.readPump(func(c *Client, f Frame) {
		g.dispatch(ctx, c, f)
	})

	g.disconnect(c)
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, f Frame) {
	switch f.Event {
	case EventJoin:
		g.handleJoin(ctx, c, f)
	case EventLeave:
		g.handleLeave(c, f)
	case EventMessage:
		g.handleMessage(ctx, c, f)
	case EventTyping:
		g.handleTyping(c, f)
	case EventRead:
		g.handleRead(ctx, c, f)
	case EventPing:
		c.sendFrame(EventPong, nil)
	default:
		g.sendError(ctx, c, f.Event, chat.NewError(chat.CodeValidation, "unknown event"))
	}
}

func (g *Gateway) sendError(ctx context.Context, c *Client, event string, err error) {
	p := errorPayload(event, err)
	metrics.WSErrors.WithLabelValues(string(p.Code)).Inc()
	if p.Code == chat.CodeInternal {
		logging.Ctx(ctx).Error().Err(err).Str("event", event).Msg("websocket operation failed")
	}
	c.sendFrame(EventError, p)
}

func decode(f Frame, v interface{}) error {
	if len(f.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return chat.NewError(chat.CodeValidation, "malformed "+f.Event+" payload")
	}
	return nil
}

func (g *Gateway) handleJoin(ctx context.Context, c *Client, f Frame) {
	var p RoomPayload
	if err := decode(f, &p); err != nil {
		g.sendError(ctx, c, f.Event, err)
		return
	}
	if p.EventID == "" {
		g.sendError(ctx, c, f.Event, chat.NewError(chat.CodeValidation, "eventId is required"))
		return
	}

	res, err := g.chat.GetOrJoinChat(ctx, p.EventID, c.userID)
	if err != nil {
		g.sendError(ctx, c, f.Event, err)
		return
	}
	if !res.CanJoin {
		g.sendError(ctx, c, f.Event, chat.NewError(res.Reason, joinRefusal(res.Reason)))
		return
	}

	cur, inRoom := g.hub.RoomOf(c)
	rejoined := inRoom && cur == p.EventID
	if inRoom && !rejoined {
		g.leaveRoom(c)
	}
	// Join before reading the snapshot so that a message sent in between
	// reaches this connection live. Clients drop duplicates by message id.
	g.hub.Join(p.EventID, c)

	page, err := g.chat.RecentMessages(ctx, res.Chat.ID)
	if err != nil {
		if !rejoined {
			g.hub.Leave(c)
		}
		g.sendError(ctx, c, f.Event, err)
		return
	}

	c.sendFrame(EventJoined, JoinedPayload{Chat: res.Chat, Messages: page.Messages})
	if !rejoined {
		g.hub.BroadcastToRoomExcept(p.EventID, EventMemberJoined, MemberPayload{EventID: p.EventID, UserID: c.userID}, c)
	}
}

func joinRefusal(code chat.Code) string {
	switch code {
	case chat.CodeNoTicket:
		return "a confirmed ticket is required to join this chat"
	case chat.CodeChatDisabled:
		return "chat is disabled for this event"
	}
	return "cannot join this chat"
}

func (g *Gateway) handleLeave(c *Client, f Frame) {
	var p RoomPayload
	if err := decode(f, &p); err != nil {
		g.sendError(context.Background(), c, f.Event, err)
		return
	}
	room, ok := g.hub.RoomOf(c)
	if !ok || (p.EventID != "" && p.EventID != room) {
		g.sendError(context.Background(), c, f.Event, chat.NewError(chat.CodeNotJoined, "not in this chat"))
		return
	}
	g.leaveRoom(c)
}

// leaveRoom removes c from its room, announcing typing:stop and member:left
// as needed.
func (g *Gateway) leaveRoom(c *Client) {
	wasTyping := c.stopTyping()
	room, last := g.hub.Leave(c)
	g.announceDeparture(c, room, last, wasTyping)
}

func (g *Gateway) announceDeparture(c *Client, room string, last, wasTyping bool) {
	if room == "" {
		return
	}
	member := MemberPayload{EventID: room, UserID: c.userID}
	if wasTyping {
		g.hub.BroadcastToRoom(room, EventTypingStop, member)
	}
	if last {
		g.hub.BroadcastToRoom(room, EventMemberLeft, member)
	}
}

func (g *Gateway) currentRoom(ctx context.Context, c *Client, event string) (string, bool) {
	room, ok := g.hub.RoomOf(c)
	if !ok {
		g.sendError(ctx, c, event, chat.NewError(chat.CodeNotJoined, "join a chat first"))
	}
	return room, ok
}

func (g *Gateway) handleMessage(ctx context.Context, c *Client, f Frame) {
	room, ok := g.currentRoom(ctx, c, f.Event)
	if !ok {
		return
	}
	var in chat.SendInput
	if err := decode(f, &in); err != nil {
		g.sendError(ctx, c, f.Event, err)
		return
	}

	msg, err := g.chat.SendMessage(ctx, room, c.userID, in)
	if err != nil {
		g.sendError(ctx, c, f.Event, err)
		return
	}

	if c.stopTyping() {
		g.hub.BroadcastToRoomExcept(room, EventTypingStop, MemberPayload{EventID: room, UserID: c.userID}, c)
	}
	g.hub.BroadcastToRoom(room, EventMessage, msg)
}

func (g *Gateway) handleTyping(c *Client, f Frame) {
	room, ok := g.currentRoom(context.Background(), c, f.Event)
	if !ok {
		return
	}
	member := MemberPayload{EventID: room, UserID: c.userID}
	c.startTyping(g.typingTimeout, func() {
		g.hub.BroadcastToRoomExcept(room, EventTypingStop, member, c)
	})
	g.hub.BroadcastToRoomExcept(room, EventTyping, member, c)
}

func (g *Gateway) handleRead(ctx context.Context, c *Client, f Frame) {
	room, ok := g.currentRoom(ctx, c, f.Event)
	if !ok {
		return
	}
	if err := g.chat.Heartbeat(ctx, room, c.userID); err != nil {
		g.sendError(ctx, c, f.Event, err)
	}
}

// BroadcastMessage fans out a message that was sent outside the realtime
// path, such as over REST, to every connection in the event's room.
func (g *Gateway) BroadcastMessage(eventID string, msg *chat.MessageView) {
	g.hub.BroadcastToRoom(eventID, EventMessage, msg)
}

// disconnect is the implicit leave run when a connection ends.
func (g *Gateway) disconnect(c *Client) {
	wasTyping := c.stopTyping()
	room, last := g.hub.Unregister(c)
	g.announceDeparture(c, room, last, wasTyping)
}
