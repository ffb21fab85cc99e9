package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkovacev/chatter/internal/metrics"
	"github.com/dkovacev/chatter/internal/repository"
)

const presenceWriteTimeout = 5 * time.Second

// Publisher is the hub's publish surface. A bare Hub publishes locally; the
// Redis bridge wraps it to reach other instances.
type Publisher interface {
	// Publish delivers data to the conversation's room and to the global
	// channel. A nil conversationID publishes globally only.
	Publish(conversationID *uuid.UUID, data []byte)
}

// Hub owns the live-connection registry: which connections exist, which
// conversation rooms each has joined, and per-account connection counts for
// presence. Room membership has an explicit join/leave lifecycle tied to the
// connection; nothing here is keyed by a process-global user map.
type Hub struct {
	// run-loop-owned state
	clients     map[*Client]struct{}
	rooms       map[uuid.UUID]map[*Client]struct{}
	memberships map[*Client]map[uuid.UUID]struct{}

	// byPhone counts live connections per account; read from other
	// goroutines via IsOnline.
	mu      sync.RWMutex
	byPhone map[string]int

	register   chan *Client
	unregister chan *Client
	joinCh     chan roomReq
	leaveCh    chan roomReq
	outbound   chan *outboundMsg

	accounts repository.AccountRepository
	logger   zerolog.Logger
}

type roomReq struct {
	client         *Client
	conversationID uuid.UUID
}

type outboundMsg struct {
	room    *uuid.UUID // deliver to this room's members
	global  bool       // also deliver to every connection
	exclude *Client    // optional: skip this connection (typing)
	data    []byte
}

func NewHub(accounts repository.AccountRepository, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]struct{}),
		rooms:       make(map[uuid.UUID]map[*Client]struct{}),
		memberships: make(map[*Client]map[uuid.UUID]struct{}),
		byPhone:     make(map[string]int),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		joinCh:      make(chan roomReq),
		leaveCh:     make(chan roomReq),
		outbound:    make(chan *outboundMsg, 256),
		accounts:    accounts,
		logger:      logger,
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.memberships[client] = make(map[uuid.UUID]struct{})
			metrics.LiveConnections.Inc()
			h.logger.Info().Str("phone_id", client.phoneID).Int("total", len(h.clients)).Msg("ws client connected")

			if h.addConnection(client.phoneID) {
				h.setPresence(client.phoneID, true)
				h.broadcastPresence(client, "online")
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
				h.logger.Info().Str("phone_id", client.phoneID).Int("total", len(h.clients)).Msg("ws client disconnected")
			}

		case req := <-h.joinCh:
			if _, ok := h.clients[req.client]; !ok {
				continue
			}
			room := h.rooms[req.conversationID]
			if room == nil {
				room = make(map[*Client]struct{})
				h.rooms[req.conversationID] = room
			}
			room[req.client] = struct{}{}
			h.memberships[req.client][req.conversationID] = struct{}{}

		case req := <-h.leaveCh:
			h.removeFromRoom(req.client, req.conversationID)

		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

// Publish implements Publisher for the single-instance case.
func (h *Hub) Publish(conversationID *uuid.UUID, data []byte) {
	h.outbound <- &outboundMsg{room: conversationID, global: true, data: data}
}

// Join subscribes a connection to a conversation's room.
func (h *Hub) Join(c *Client, conversationID uuid.UUID) {
	h.joinCh <- roomReq{client: c, conversationID: conversationID}
}

// Leave removes a connection from a conversation's room.
func (h *Hub) Leave(c *Client, conversationID uuid.UUID) {
	h.leaveCh <- roomReq{client: c, conversationID: conversationID}
}

// IsOnline reports whether the account has at least one live connection.
func (h *Hub) IsOnline(phoneID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byPhone[phoneID] > 0
}

// broadcastTyping relays a typing event to the conversation's room, skipping
// the sender. Typing is never persisted and never goes global.
func (h *Hub) broadcastTyping(sender *Client, conversationID uuid.UUID) {
	evt, err := NewEvent(EventTypeTyping, &conversationID, TypingPayload{
		PhoneID: sender.phoneID,
		Name:    sender.name,
	})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	h.outbound <- &outboundMsg{room: &conversationID, exclude: sender, data: data}
}

// deliver pushes one payload to its room members and, when global, to every
// connection. A client in the room that also listens globally receives both
// copies; consumers de-duplicate by id.
func (h *Hub) deliver(msg *outboundMsg) {
	if msg.room != nil {
		for client := range h.rooms[*msg.room] {
			if client == msg.exclude {
				continue
			}
			h.send(client, msg.data)
		}
	}
	if msg.global {
		for client := range h.clients {
			if client == msg.exclude {
				continue
			}
			h.send(client, msg.data)
		}
	}
}

func (h *Hub) send(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		// Client buffer full - disconnect
		h.dropClient(client)
	}
}

func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	for conversationID := range h.memberships[client] {
		h.removeFromRoom(client, conversationID)
	}
	delete(h.memberships, client)
	delete(h.clients, client)
	close(client.send)
	close(client.done)
	metrics.LiveConnections.Dec()

	if h.removeConnection(client.phoneID) {
		h.setPresence(client.phoneID, false)
		h.broadcastPresence(client, "offline")
	}
}

func (h *Hub) removeFromRoom(client *Client, conversationID uuid.UUID) {
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	if m, ok := h.memberships[client]; ok {
		delete(m, conversationID)
	}
}

// addConnection returns true when this is the account's first connection.
func (h *Hub) addConnection(phoneID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byPhone[phoneID]++
	return h.byPhone[phoneID] == 1
}

// removeConnection returns true when this was the account's last connection.
func (h *Hub) removeConnection(phoneID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byPhone[phoneID]--
	if h.byPhone[phoneID] <= 0 {
		delete(h.byPhone, phoneID)
		return true
	}
	return false
}

func (h *Hub) setPresence(phoneID string, online bool) {
	if h.accounts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceWriteTimeout)
	defer cancel()
	if err := h.accounts.SetPresence(ctx, phoneID, online, time.Now()); err != nil {
		h.logger.Warn().Err(err).Str("phone_id", phoneID).Msg("persisting presence")
	}
}

func (h *Hub) broadcastPresence(origin *Client, status string) {
	evt, err := NewEvent(EventTypePresence, nil, PresencePayload{
		PhoneID: origin.phoneID,
		Status:  status,
	})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	h.deliver(&outboundMsg{global: true, exclude: origin, data: data})
}
