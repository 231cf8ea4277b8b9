package ws

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"guessthesong/internal/apperr"
	"guessthesong/internal/clock"
	"guessthesong/internal/metrics"
)

const sendBuffer = 256

var (
	ErrNotConnected = apperr.Unavailable("user has no live connection")
	ErrSendBlocked  = apperr.Unavailable("connection buffer full")
	ErrHubClosed    = apperr.Unavailable("server shutting down")
)

// DefaultGrace is how long a dropped user may take to reconnect before eviction.
const DefaultGrace = 3 * time.Second

// Connection is one live push channel. Send is never closed; Close signals the
// pumps through Done instead so a late Push can never panic.
type Connection struct {
	UserID   string
	RoomCode string
	Send     chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewConnection(userID, roomCode string) *Connection {
	return &Connection{
		UserID:   userID,
		RoomCode: roomCode,
		Send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

type graceTimer struct {
	timer clock.Timer
	seq   uint64
}

// Hub tracks the single live connection of each user and the disconnect grace
// timers. It is created once per process and shared by every component that
// pushes to clients.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*Connection
	grace map[string]graceTimer
	seq   uint64
	// closing is set by CloseAll. Sockets torn down for shutdown must not
	// evict their players, who reconnect to the next process.
	closing bool

	clock   clock.Clock
	delay   time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewHub(clk clock.Clock, grace time.Duration, m *metrics.Metrics, log *zap.Logger) *Hub {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Hub{
		conns:   make(map[string]*Connection),
		grace:   make(map[string]graceTimer),
		clock:   clk,
		delay:   grace,
		metrics: m,
		log:     log.Named("hub"),
	}
}

// Register makes conn the user's live connection. A previous connection is
// replaced without being closed, and a pending grace timer is cancelled.
// After CloseAll it refuses the connection with ErrHubClosed.
func (h *Hub) Register(conn *Connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return ErrHubClosed
	}

	if _, ok := h.conns[conn.UserID]; ok {
		h.log.Debug("connection replaced", zap.String("user", conn.UserID))
	}
	h.conns[conn.UserID] = conn
	h.cancelGraceLocked(conn.UserID)
	h.metrics.ActiveConnections.Set(float64(len(h.conns)))
	return nil
}

// Unregister removes conn if it is still the user's current connection and
// reports whether it was.
func (h *Hub) Unregister(conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn *Connection) bool {
	existing, ok := h.conns[conn.UserID]
	if !ok || existing != conn {
		return false
	}
	delete(h.conns, conn.UserID)
	h.metrics.ActiveConnections.Set(float64(len(h.conns)))
	return true
}

func (h *Hub) HasConnection(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[userID]
	return ok
}

// Push hands data to the user's writer without blocking. A connection that is
// closed or cannot keep up is dropped from the hub and closed.
func (h *Hub) Push(userID string, data []byte) error {
	h.mu.Lock()
	conn, ok := h.conns[userID]
	h.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}

	select {
	case <-conn.Done():
	default:
		select {
		case conn.Send <- data:
			return nil
		default:
		}
	}

	h.mu.Lock()
	h.removeLocked(conn)
	h.mu.Unlock()
	conn.Close()
	h.metrics.PushDrops.Inc()
	h.log.Warn("dropping unresponsive connection", zap.String("user", userID), zap.String("room", conn.RoomCode))
	return ErrSendBlocked
}

// StartGrace arms the eviction timer for a disconnected user, replacing any
// timer already pending for them. onExpire runs only if the user still has no
// connection when the timer fires. Nothing is armed once CloseAll has run.
func (h *Hub) StartGrace(userID string, onExpire func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return
	}

	h.cancelGraceLocked(userID)
	h.seq++
	seq := h.seq
	t := h.clock.AfterFunc(h.delay, func() {
		h.mu.Lock()
		cur, ok := h.grace[userID]
		if !ok || cur.seq != seq {
			h.mu.Unlock()
			return
		}
		delete(h.grace, userID)
		_, online := h.conns[userID]
		h.mu.Unlock()

		if online {
			return
		}
		onExpire()
	})
	h.grace[userID] = graceTimer{timer: t, seq: seq}
}

// CancelGrace stops a pending eviction and reports whether one was pending.
func (h *Hub) CancelGrace(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelGraceLocked(userID)
}

func (h *Hub) cancelGraceLocked(userID string) bool {
	g, ok := h.grace[userID]
	if !ok {
		return false
	}
	g.timer.Stop()
	delete(h.grace, userID)
	return true
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll closes every connection on shutdown. From then on no grace timer
// is armed and no connection is registered, so shutting down never removes
// players from the persisted rooms.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closing = true
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	for id, g := range h.grace {
		g.timer.Stop()
		delete(h.grace, id)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
