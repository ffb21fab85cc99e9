package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
)

// Client represents a single WebSocket connection. Room membership lives in
// the Hub; the client only carries its identity and its send queue.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	accountID uuid.UUID
	phoneID   string
	name      string

	send chan []byte
	done chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, accountID uuid.UUID, phoneID, name string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		accountID: accountID,
		phoneID:   phoneID,
		name:      name,
		send:      make(chan []byte, sendBufSize),
		done:      make(chan struct{}),
	}
}

// ReadPump reads messages from the WebSocket and routes them to the Hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.hub.logger.Debug().Str("phone_id", c.phoneID).Msg("ws client closed connection")
			} else {
				c.hub.logger.Debug().Err(err).Str("phone_id", c.phoneID).Msg("ws read error")
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.hub.logger.Debug().Err(err).Str("phone_id", c.phoneID).Msg("ws write error")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeJoin:
		var p ConversationRef
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid join payload")
			return
		}
		c.hub.Join(c, p.ConversationID)

	case EventTypeLeave:
		var p ConversationRef
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid leave payload")
			return
		}
		c.hub.Leave(c, p.ConversationID)

	case EventTypeTypingStart:
		if event.ConversationID == nil {
			c.sendError("INVALID_PAYLOAD", "conversation_id required for typing events")
			return
		}
		c.hub.broadcastTyping(c, *event.ConversationID)

	case EventTypeTypingStop:
		// Not relayed; clients clear the indicator on their own timeout.

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, nil, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
