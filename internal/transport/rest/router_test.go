package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guessthesong/internal/cache"
	"guessthesong/internal/clock"
	"guessthesong/internal/metrics"
	"guessthesong/internal/model"
	"guessthesong/internal/repository"
	"guessthesong/internal/service"
	"guessthesong/internal/transport/ws"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zap.NewNop()
	clk := clock.New()
	m := metrics.New()
	store := cache.NewMemoryStore()
	messages := repository.NewMemoryMessageRepo()
	lb := cache.NewMemoryLeaderboard()
	hub := ws.NewHub(clk, 3*time.Second, m, log)

	auth := service.NewAuthService("secret", "test", time.Hour)
	bc := service.NewBroadcastService(store, messages, hub, clk, m, log, 50)
	rooms := service.NewRoomService(repository.NewMemoryRoomRepo(), store, messages, lb, bc, hub, clk, m, log,
		model.RoomSettings{SongsPerPlayer: 2, TimePerSong: 30, RevealPercentage: 20})
	sched := service.NewScheduler(store, bc, clk, m, log, service.SchedulerOptions{})
	t.Cleanup(sched.Stop)

	srv := httptest.NewServer(NewRouter(&Container{
		AuthService:      auth,
		RoomService:      rooms,
		SongService:      service.NewSongService(store, bc, log),
		GuessService:     service.NewGuessService(store, messages, lb, bc, clk, m, log),
		Scheduler:        sched,
		BroadcastService: bc,
		Catalog:          service.NewCatalogClient("http://127.0.0.1:1", time.Second, 5, log),
		WSHub:            hub,
		Metrics:          m,
		AllowedOrigins:   []string{"*"},
		GuessRate:        100,
		GuessBurst:       100,
		WSHandler:        ws.NewHandler(hub, auth, rooms, bc, []string{"*"}, log),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func guest(t *testing.T, srv *httptest.Server, name string) model.GuestResponse {
	t.Helper()
	var resp model.GuestResponse
	status := call(t, srv, http.MethodPost, "/v1/auth/guest", "", model.GuestRequest{DisplayName: name}, &resp)
	require.Equal(t, http.StatusOK, status)
	return resp
}

func TestRoomFlow(t *testing.T) {
	srv := newTestServer(t)
	hostUser := guest(t, srv, "Host")
	player := guest(t, srv, "Player")

	var gs model.GameState
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/v1/rooms", hostUser.Token, nil, &gs))
	code := gs.RoomCode
	assert.Len(t, code, 4)
	assert.Equal(t, hostUser.User.ID, gs.HostID)
	assert.Equal(t, 30, gs.TimePerSong)

	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/join", player.Token, nil, &gs))
	assert.Len(t, gs.Players, 2)
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/join", player.Token, nil, nil))

	song := model.AddSongRequest{Title: "Bohemian Rhapsody", Artist: "Queen", SourceID: "3135556", SourceType: "deezer"}
	assert.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/songs", player.Token, song, nil))
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/songs", hostUser.Token, song, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/songs", hostUser.Token, model.AddSongRequest{Title: "no source"}, nil))

	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/guesses", player.Token, model.GuessRequest{Guess: "queen"}, nil))
	assert.Equal(t, http.StatusForbidden, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/start", player.Token, nil, nil))
	assert.Equal(t, http.StatusForbidden, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/players/"+hostUser.User.ID+"/kick", player.Token, nil, nil))

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/start", hostUser.Token, nil, &gs))
	assert.True(t, gs.CountDown)
	require.NotNil(t, gs.NextRound)
	assert.Equal(t, 1, gs.NextRound.RoundNumber)
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/start", hostUser.Token, nil, nil))

	var msg model.Message
	assert.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/messages", player.Token, model.MessageRequest{Content: "gl"}, &msg))
	assert.Equal(t, model.MessageChat, msg.Type)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/v1/rooms/"+code, player.Token, nil, &gs))
	assert.NotEmpty(t, gs.Messages)

	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/leave", player.Token, nil, nil))
	assert.Equal(t, http.StatusForbidden, call(t, srv, http.MethodPost, "/v1/rooms/"+code+"/leave", player.Token, nil, nil))
}

func TestAuthAndErrors(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/v1/rooms", "", nil, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/v1/auth/guest", "", model.GuestRequest{}, nil))

	user := guest(t, srv, "Solo")
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/v1/rooms/ZZZZ", user.Token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/v1/rooms", user.Token,
		model.CreateRoomRequest{Settings: &model.RoomSettings{SongsPerPlayer: 0, TimePerSong: 30}}, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodGet, "/v1/catalog/search?q=", user.Token, nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, call(t, srv, http.MethodGet, "/v1/catalog/search?q=queen", user.Token, nil, nil))
}

func TestOpsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var health map[string]string
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/health", "", nil, &health))
	assert.Equal(t, "ok", health["status"])

	var doc map[string]interface{}
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/swagger/doc.json", "", nil, &doc))
	assert.Equal(t, "2.0", doc["swagger"])

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
