package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guessthesong/internal/cache"
	"guessthesong/internal/clock"
	"guessthesong/internal/metrics"
	"guessthesong/internal/model"
	"guessthesong/internal/repository"
	"guessthesong/internal/service"
)

var (
	host  = model.Identity{ID: "host", DisplayName: "Hosty"}
	alice = model.Identity{ID: "alice", DisplayName: "Alice"}
)

type env struct {
	ctx      context.Context
	clock    clock.Clock
	hub      *Hub
	messages repository.MessageRepo
	store    cache.StateStore
	rooms    *service.RoomService
	auth     *service.AuthService
	handler  *Handler
	code     string
	roomID   string
}

func newEnv(t *testing.T, clk clock.Clock) *env {
	t.Helper()
	log := zap.NewNop()
	m := metrics.New()
	e := &env{
		ctx:      context.Background(),
		clock:    clk,
		hub:      NewHub(clk, 3*time.Second, m, log),
		messages: repository.NewMemoryMessageRepo(),
		store:    cache.NewMemoryStore(),
		auth:     service.NewAuthService("secret", "", time.Hour),
	}
	bc := service.NewBroadcastService(e.store, e.messages, e.hub, clk, m, log, 50)
	e.rooms = service.NewRoomService(repository.NewMemoryRoomRepo(), e.store, e.messages,
		cache.NewMemoryLeaderboard(), bc, e.hub, clk, m, log,
		model.RoomSettings{SongsPerPlayer: 2, TimePerSong: 10, RevealPercentage: 20})
	e.handler = NewHandler(e.hub, e.auth, e.rooms, bc, []string{"*"}, log)

	st, err := e.rooms.CreateRoom(e.ctx, host, nil)
	require.NoError(t, err)
	_, err = e.rooms.Join(e.ctx, st.Room.Code, alice)
	require.NoError(t, err)
	e.code, e.roomID = st.Room.Code, st.Room.ID
	return e
}

func drain(c *Connection) int {
	n := 0
	for {
		select {
		case <-c.Send:
			n++
		default:
			return n
		}
	}
}

func (e *env) messageCount(t *testing.T) int {
	msgs, err := e.messages.Recent(e.ctx, e.roomID, 100)
	require.NoError(t, err)
	return len(msgs)
}

func TestGrace_ReconnectWithinWindowKeepsPlayer(t *testing.T) {
	clk := clock.NewFake(epoch)
	e := newEnv(t, clk)
	hostConn := NewConnection(host.ID, e.code)
	e.hub.Register(hostConn)
	aliceConn := NewConnection(alice.ID, e.code)
	e.hub.Register(aliceConn)
	msgsBefore := e.messageCount(t)

	e.hub.Unregister(aliceConn)
	e.handler.disconnected(aliceConn)

	clk.Advance(2 * time.Second)
	e.hub.Register(NewConnection(alice.ID, e.code))
	clk.Advance(5 * time.Second)

	st, err := e.store.Get(e.ctx, e.code)
	require.NoError(t, err)
	assert.True(t, st.IsMember(alice.ID))
	assert.Zero(t, st.Players[st.PlayerIndex(alice.ID)].Score)
	assert.Equal(t, msgsBefore, e.messageCount(t))
	assert.Zero(t, drain(hostConn))
}

func TestGrace_EvictsAfterWindowWithOneBroadcast(t *testing.T) {
	clk := clock.NewFake(epoch)
	e := newEnv(t, clk)
	hostConn := NewConnection(host.ID, e.code)
	e.hub.Register(hostConn)
	aliceConn := NewConnection(alice.ID, e.code)
	e.hub.Register(aliceConn)

	e.hub.Unregister(aliceConn)
	e.handler.disconnected(aliceConn)
	clk.Advance(3 * time.Second)

	st, err := e.store.Get(e.ctx, e.code)
	require.NoError(t, err)
	assert.False(t, st.IsMember(alice.ID))

	require.Equal(t, 1, len(hostConn.Send))
	var frame struct {
		Type    string `json:"type"`
		Payload struct {
			GameState model.GameState `json:"gameState"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-hostConn.Send, &frame))
	assert.Equal(t, "gameState", frame.Type)
	assert.Len(t, frame.Payload.GameState.Players, 1)

	clk.Advance(10 * time.Second)
	assert.Zero(t, drain(hostConn))
}

func TestGrace_ReplacedConnectionDoesNotStartTimer(t *testing.T) {
	clk := clock.NewFake(epoch)
	e := newEnv(t, clk)
	old := NewConnection(alice.ID, e.code)
	e.hub.Register(old)
	e.hub.Register(NewConnection(alice.ID, e.code))

	e.hub.Unregister(old)
	e.handler.disconnected(old)
	assert.Zero(t, clk.Pending())
}

func dial(t *testing.T, srv *httptest.Server, code, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/rooms/" + code + "?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestRoomWS_SendsStateOnConnect(t *testing.T) {
	e := newEnv(t, clock.New())
	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/rooms/{code}", e.handler.RoomWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	token := signFor(t, e, alice)
	conn, _, err := dial(t, srv, e.code, token)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame struct {
		Type    string `json:"type"`
		Payload struct {
			GameState model.GameState `json:"gameState"`
			Timestamp string          `json:"timestamp"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "gameState", frame.Type)
	assert.Equal(t, e.code, frame.Payload.GameState.RoomCode)
	assert.NotEmpty(t, frame.Payload.Timestamp)
	assert.True(t, e.hub.HasConnection(alice.ID))
}

func TestRoomWS_Rejections(t *testing.T) {
	e := newEnv(t, clock.New())
	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/rooms/{code}", e.handler.RoomWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, resp, err := dial(t, srv, e.code, "garbage")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	stranger := signFor(t, e, model.Identity{ID: "stranger", DisplayName: "S"})
	_, resp, err = dial(t, srv, e.code, stranger)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = dial(t, srv, "ZZZZ", stranger)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func signFor(t *testing.T, e *env, user model.Identity) string {
	t.Helper()
	token, err := e.auth.Sign(user, time.Hour)
	require.NoError(t, err)
	return token
}

func TestRoomWS_ShutdownKeepsPlayers(t *testing.T) {
	clk := clock.NewFake(epoch)
	e := newEnv(t, clk)
	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/rooms/{code}", e.handler.RoomWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := dial(t, srv, e.code, signFor(t, e, alice))
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return e.hub.HasConnection(alice.ID) }, 2*time.Second, 10*time.Millisecond)

	e.hub.CloseAll()
	require.Eventually(t, func() bool { return !e.hub.HasConnection(alice.ID) }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return clk.Pending() > 0 }, 200*time.Millisecond, 10*time.Millisecond)

	clk.Advance(3 * time.Second)
	member, err := e.rooms.IsMember(e.ctx, e.code, alice.ID)
	require.NoError(t, err)
	assert.True(t, member)

	// a client reconnecting to the draining process is turned away
	again, _, err := dial(t, srv, e.code, signFor(t, e, alice))
	require.NoError(t, err)
	defer again.Close()
	again.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = again.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseServiceRestart))
}
