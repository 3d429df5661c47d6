package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vegarwe/skistart-lockedup/internal/broadcast"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	outboxSize     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// browsers on any origin may watch the rack
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSubscriber queues messages in a bounded outbox drained by writePump.
type wsSubscriber struct {
	id   string
	conn *websocket.Conn
	out  chan broadcast.Message

	done      chan struct{}
	closeOnce sync.Once
}

func newWSSubscriber(conn *websocket.Conn) *wsSubscriber {
	return &wsSubscriber{
		id:   uuid.NewString(),
		conn: conn,
		out:  make(chan broadcast.Message, outboxSize),
		done: make(chan struct{}),
	}
}

func (s *wsSubscriber) ID() string { return s.id }

func (s *wsSubscriber) Send(msg broadcast.Message) error {
	select {
	case <-s.done:
		return broadcast.ErrSubscriberClosed
	default:
	}
	select {
	case s.out <- msg:
		return nil
	default:
		return broadcast.ErrSlowSubscriber
	}
}

func (s *wsSubscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *wsSubscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// ServeWS upgrades the connection and streams status and log notifications.
// The first message is always the current status.
func (a *API) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger().Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := newWSSubscriber(conn)
	log := a.logger().With("subscriber", sub.id)
	log.Info("connection opened", "remote", r.RemoteAddr)

	a.Rack.Subscribe(sub)
	go sub.writePump()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		log.Debug("message received", "message", string(msg))
	}

	a.Rack.Unsubscribe(sub)
	sub.Close()
	log.Info("connection closed")
}
