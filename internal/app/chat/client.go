/*
Package chat contains the core of the global chat.

This file defines the Client, the WebSocket side of a live subscriber. ReadPump decodes
inbound frames and WritePump drains the subscriber queue, keeping the connection alive
with pings.
*/
package chat

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ryachat/internal/pkg/errs"
	"ryachat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 4096
)

// Inbound frame types.
const (
	FrameAuthenticate = "authenticate"
	FrameTyping       = "typing"
)

// AuthenticatePayload is the body of an authenticate frame.
type AuthenticatePayload struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Client ties one WebSocket connection to its hub subscriber.
type Client struct {
	manager *Manager
	sub     *Subscriber
	conn    *websocket.Conn

	logger zerolog.Logger
}

// NewClient constructs a Client for an already registered subscriber.
func NewClient(manager *Manager, sub *Subscriber, wsConn *websocket.Conn) *Client {
	return &Client{
		manager: manager,
		sub:     sub,
		conn:    wsConn,
		logger:  logx.Component("Client").With().Str("subscriber_id", sub.ID).Logger(),
	}
}

// ReadPump reads frames until the connection fails, then disconnects the subscriber.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frame)
	}
}

// cleanupOnDisconnect runs once ReadPump stops. Unregistering closes the queue, which ends WritePump.
func (c *Client) cleanupOnDisconnect() {
	c.manager.Disconnect(c.sub)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundFrame(frame []byte) {
	var inbound struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(frame, &inbound); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		c.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch inbound.Type {
	case FrameAuthenticate:
		c.handleAuthenticate(inbound.Payload)

	case FrameTyping:
		c.manager.Typing(c.sub)

	default:
		c.logger.Warn().Str("frame_type", inbound.Type).Msg("Client sent unsupported frame type")
	}
}

func (c *Client) handleAuthenticate(raw json.RawMessage) {
	var payload AuthenticatePayload
	if len(raw) == 0 || json.Unmarshal(raw, &payload) != nil {
		c.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if err := c.manager.Associate(c.sub, payload.UserID, payload.Token); err != nil {
		c.logger.Warn().Str("user_id", payload.UserID).Msg("Live authenticate rejected.")
		c.sendError(err)
	}
}

func (c *Client) sendError(err *errs.CustomError) {
	c.manager.Hub().SendTo(c.sub, Event{
		Type:    EventError,
		Payload: ErrorPayload{Code: err.Code, Message: err.Message},
	})
}

// WritePump writes queued events to the connection and pings it periodically.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.sub.Send():
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage reports whether WritePump should keep running.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
