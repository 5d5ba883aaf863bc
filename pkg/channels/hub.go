package channels

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tabletalk-io/tabletalk/pkg/bus"
	"github.com/tabletalk-io/tabletalk/pkg/logger"
)

const (
	hubChannelName  = "hub"
	hubSendBuffer   = 32
	hubWriteTimeout = 10 * time.Second

	leaveNoticeSender = "System"
	leaveNoticeText   = "A user has left the chat"
)

// wsFrame is the wire format spoken to websocket clients, matching the
// transcript record shape.
type wsFrame struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type hubConn struct {
	id      string
	ws      *websocket.Conn
	send    chan wsFrame
	closing sync.Once
}

func (hc *hubConn) close() {
	hc.closing.Do(func() {
		close(hc.send)
		hc.ws.Close()
	})
}

// HubChannel is the websocket relay endpoint: every connected client is a
// chat participant, and every frame a client sends is fanned out to the
// other clients and onto the inbound bus.
type HubChannel struct {
	*BaseChannel
	upgrader websocket.Upgrader
	conns    map[string]*hubConn
	mu       sync.RWMutex
	seq      atomic.Uint64
}

func NewHubChannel(messageBus *bus.MessageBus) *HubChannel {
	return &HubChannel{
		BaseChannel: NewBaseChannel(hubChannelName, messageBus, nil),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The relay binds to a trusted interface; clients are not browsers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*hubConn),
	}
}

func (c *HubChannel) Start(ctx context.Context) error {
	c.setRunning(true)
	logger.InfoC("hub", "Websocket hub ready")
	return nil
}

func (c *HubChannel) Stop(ctx context.Context) error {
	c.setRunning(false)

	c.mu.Lock()
	conns := make([]*hubConn, 0, len(c.conns))
	for _, conn := range c.conns {
		conns = append(conns, conn)
	}
	c.conns = make(map[string]*hubConn)
	c.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
	logger.InfoC("hub", "Websocket hub stopped")
	return nil
}

// Handler returns the HTTP handler that upgrades connections into chat
// participants. Mount it on the relay server's /ws route.
func (c *HubChannel) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.IsRunning() {
			http.Error(w, "relay not running", http.StatusServiceUnavailable)
			return
		}

		ws, err := c.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WarnCF("hub", "Websocket upgrade failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		conn := &hubConn{
			id:   "conn-" + strconv.FormatUint(c.seq.Add(1), 10),
			ws:   ws,
			send: make(chan wsFrame, hubSendBuffer),
		}
		c.register(conn)

		go c.writeLoop(conn)
		go c.readLoop(conn)
	})
}

func (c *HubChannel) register(conn *hubConn) {
	c.mu.Lock()
	c.conns[conn.id] = conn
	count := len(c.conns)
	c.mu.Unlock()

	logger.InfoCF("hub", "Client connected", map[string]interface{}{
		"conn_id": conn.id,
		"clients": count,
	})
}

func (c *HubChannel) unregister(conn *hubConn) {
	c.mu.Lock()
	_, present := c.conns[conn.id]
	delete(c.conns, conn.id)
	count := len(c.conns)
	c.mu.Unlock()

	conn.close()
	if !present {
		return
	}

	logger.InfoCF("hub", "Client disconnected", map[string]interface{}{
		"conn_id": conn.id,
		"clients": count,
	})
	c.broadcast(wsFrame{Sender: leaveNoticeSender, Message: leaveNoticeText}, conn.id)
}

func (c *HubChannel) readLoop(conn *hubConn) {
	defer c.unregister(conn)

	for {
		var frame wsFrame
		if err := conn.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.DebugCF("hub", "Read failed", map[string]interface{}{
					"conn_id": conn.id,
					"error":   err.Error(),
				})
			}
			return
		}
		if frame.Sender == "" || frame.Message == "" {
			continue
		}
		c.HandleMessage(conn.id, frame.Sender, frame.Message, nil)
	}
}

func (c *HubChannel) writeLoop(conn *hubConn) {
	for frame := range conn.send {
		conn.ws.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := conn.ws.WriteJSON(frame); err != nil {
			logger.DebugCF("hub", "Write failed", map[string]interface{}{
				"conn_id": conn.id,
				"error":   err.Error(),
			})
			c.unregister(conn)
			return
		}
	}
}

// Send relays a message to every connected client, skipping the
// originating connection when the message came from this channel.
func (c *HubChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("hub not running")
	}

	exclude := ""
	if msg.Channel == hubChannelName {
		exclude = msg.OriginID
	}
	c.broadcast(wsFrame{Sender: msg.Sender, Message: msg.Content}, exclude)
	return nil
}

func (c *HubChannel) broadcast(frame wsFrame, excludeID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, conn := range c.conns {
		if id == excludeID {
			continue
		}
		select {
		case conn.send <- frame:
		default:
			logger.WarnCF("hub", "Dropping frame for slow client", map[string]interface{}{
				"conn_id": id,
			})
		}
	}
}

// ClientCount reports the number of connected websocket clients.
func (c *HubChannel) ClientCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}
