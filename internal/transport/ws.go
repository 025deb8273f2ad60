package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chasqui-chat/chasqui/internal/errs"
)

// envelope is the wire frame: an event name plus its raw payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const sendQueueSize = 64

// WebsocketDialer dials the relay over websocket.
//
// Inbound frames are expected to be envelope JSON; frames that are not
// envelopes are delivered under RawEvent with the frame bytes as payload (the
// relay may broadcast bare strings into the room).
type WebsocketDialer struct {
	// RawEvent names the event used for non-envelope inbound frames.
	RawEvent string
	Log      *zap.Logger
}

// Dial connects to rawURL+path and starts the read and write pumps. OnConnect
// fires before Dial returns; OnDisconnect fires exactly once when the
// connection ends, whether by Close or by the peer.
func (d *WebsocketDialer) Dial(ctx context.Context, rawURL, path string, ev Events) (Conn, error) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("relay url: %w", err)
	}
	if path != "" {
		u.Path = path
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	id, _ := uuid.NewV4()
	c := &wsConn{
		ws:       ws,
		ev:       ev,
		rawEvent: d.RawEvent,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
		log:      log.With(zap.String("conn_id", id.String())),
	}

	c.log.Info("relay connected", zap.String("url", u.String()))
	if ev.OnConnect != nil {
		ev.OnConnect()
	}

	go c.writePump()
	go c.readPump()
	return c, nil
}

type wsConn struct {
	ws       *websocket.Conn
	ev       Events
	rawEvent string
	log      *zap.Logger

	send chan []byte // consumed by the single writer goroutine
	done chan struct{}

	closeOnce sync.Once
	discOnce  sync.Once
}

func (c *wsConn) Emit(event string, payload []byte) error {
	frame, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	select {
	case <-c.done:
		return errs.ErrClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errs.ErrClosed
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
	return nil
}

// readPump delivers inbound frames in arrival order, then signals disconnect.
func (c *wsConn) readPump() {
	defer c.disconnect()
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closedLocally() && !isExpectedClose(err) {
				c.log.Warn("relay read failed", zap.Error(err))
			}
			_ = c.Close()
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			// not an envelope: hand the raw frame to the room
			c.dispatch(c.rawEvent, data)
			continue
		}
		c.dispatch(env.Event, env.Data)
	}
}

// writePump is the only goroutine that writes to the socket.
func (c *wsConn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Warn("relay write failed", zap.Error(err))
				_ = c.Close()
				return
			}
		}
	}
}

func (c *wsConn) dispatch(event string, payload []byte) {
	if c.ev.OnEvent != nil {
		c.ev.OnEvent(event, payload)
	}
}

func (c *wsConn) disconnect() {
	c.discOnce.Do(func() {
		c.log.Info("relay disconnected")
		if c.ev.OnDisconnect != nil {
			c.ev.OnDisconnect()
		}
	})
}

func (c *wsConn) closedLocally() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
