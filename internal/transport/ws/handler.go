package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"guessthesong/internal/apperr"
	"guessthesong/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Authenticator resolves an identity token.
type Authenticator interface {
	ValidateToken(token string) (*model.Identity, error)
}

// Rooms is the slice of the room lifecycle the socket layer needs.
type Rooms interface {
	IsMember(ctx context.Context, code, userID string) (bool, error)
	RemoveOnDisconnectTimeout(ctx context.Context, code, userID string) (bool, error)
}

// StateSender delivers the full current state to one user.
type StateSender interface {
	SendState(ctx context.Context, code, userID string) error
}

// Handler upgrades room members to a push connection.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	rooms    Rooms
	states   StateSender
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, auth Authenticator, rooms Rooms, states StateSender, allowedOrigins []string, log *zap.Logger) *Handler {
	return &Handler{
		hub:    hub,
		auth:   auth,
		rooms:  rooms,
		states: states,
		log:    log.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func tokenFrom(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// RoomWS handles GET /v1/ws/rooms/{code}
func (h *Handler) RoomWS(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	token := tokenFrom(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	user, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	member, err := h.rooms.IsMember(r.Context(), code, user.ID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		h.log.Error("membership check", zap.String("room", code), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !member {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	conn := NewConnection(user.ID, code)
	if err := h.hub.Register(conn); err != nil {
		wsConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseServiceRestart, "server restarting"),
			time.Now().Add(writeWait))
		wsConn.Close()
		return
	}
	h.log.Debug("connected", zap.String("room", code), zap.String("user", user.ID))

	go h.writePump(wsConn, conn)

	// a fresh connection always starts from the full current state
	if err := h.states.SendState(r.Context(), code, user.ID); err != nil {
		h.log.Warn("initial state", zap.String("room", code), zap.String("user", user.ID), zap.Error(err))
	}

	go h.readPump(wsConn, conn)
}

// disconnected starts the grace period for a member whose last connection went away.
func (h *Handler) disconnected(conn *Connection) {
	if h.hub.HasConnection(conn.UserID) {
		return
	}
	ctx := context.Background()
	member, err := h.rooms.IsMember(ctx, conn.RoomCode, conn.UserID)
	if err != nil || !member {
		return
	}

	code, userID := conn.RoomCode, conn.UserID
	h.hub.StartGrace(userID, func() {
		if _, err := h.rooms.RemoveOnDisconnectTimeout(context.Background(), code, userID); err != nil {
			h.log.Error("grace eviction", zap.String("room", code), zap.String("user", userID), zap.Error(err))
		}
	})
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
		wsConn.Close()
		h.disconnected(conn)
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("read error", zap.String("user", conn.UserID), zap.Error(err))
			}
			break
		}
		// Actions go through REST; inbound frames only keep the connection alive.
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case <-conn.Done():
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			wsConn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				conn.Close()
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				conn.Close()
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
