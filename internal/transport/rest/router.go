package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"guessthesong/internal/docs"
	"guessthesong/internal/metrics"
	"guessthesong/internal/service"
	"guessthesong/internal/transport/rest/handler"
	"guessthesong/internal/transport/rest/middleware"
	"guessthesong/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService      *service.AuthService
	RoomService      *service.RoomService
	SongService      *service.SongService
	GuessService     *service.GuessService
	Scheduler        *service.Scheduler
	BroadcastService *service.BroadcastService
	Catalog          *service.CatalogClient
	WSHub            *ws.Hub
	Metrics          *metrics.Metrics
	AllowedOrigins   []string
	GuessRate        float64
	GuessBurst       int
	WSHandler        *ws.Handler
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.AuthService)
	roomHandler := handler.NewRoomHandler(c.RoomService, c.BroadcastService)
	gameHandler := handler.NewGameHandler(c.Scheduler, c.GuessService, c.BroadcastService)
	songHandler := handler.NewSongHandler(c.SongService, c.Catalog)

	authMW := middleware.NewAuthMiddleware(c.AuthService)
	actionLimiter := middleware.NewRateLimiter(c.GuessRate, c.GuessBurst)

	r.Use(corsMiddleware(c.AllowedOrigins))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")
	r.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := docs.Doc()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/guest", authHandler.Guest).Methods("POST", "OPTIONS")

	// WebSocket route (token in query param)
	if c.WSHandler != nil {
		v1.HandleFunc("/ws/rooms/{code}", c.WSHandler.RoomWS).Methods("GET")
	}

	// Routes that need a verified identity
	authed := v1.NewRoute().Subrouter()
	authed.Use(authMW.RequireIdentity)

	authed.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	authed.HandleFunc("/rooms/{code}", roomHandler.Get).Methods("GET", "OPTIONS")
	authed.HandleFunc("/rooms/{code}/settings", roomHandler.UpdateSettings).Methods("PUT", "OPTIONS")
	authed.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods("POST", "OPTIONS")
	authed.HandleFunc("/rooms/{code}/leave", roomHandler.Leave).Methods("POST", "OPTIONS")
	authed.HandleFunc("/rooms/{code}/players/{userId}/kick", roomHandler.Kick).Methods("POST", "OPTIONS")
	authed.HandleFunc("/rooms/{code}/end", roomHandler.End).Methods("POST", "OPTIONS")
	authed.HandleFunc("/rooms/{code}/leaderboard", roomHandler.Leaderboard).Methods("GET", "OPTIONS")
	authed.HandleFunc("/rooms/{code}/start", gameHandler.Start).Methods("POST", "OPTIONS")
	authed.HandleFunc("/rooms/{code}/songs", songHandler.Add).Methods("POST", "OPTIONS")
	authed.HandleFunc("/rooms/{code}/songs/{songId}", songHandler.Remove).Methods("DELETE", "OPTIONS")
	authed.HandleFunc("/catalog/search", songHandler.Search).Methods("GET", "OPTIONS")

	// Guesses and chat share a per-user token bucket
	limited := authed.NewRoute().Subrouter()
	limited.Use(actionLimiter.Limit)
	limited.HandleFunc("/rooms/{code}/guesses", gameHandler.Guess).Methods("POST", "OPTIONS")
	limited.HandleFunc("/rooms/{code}/messages", gameHandler.SendMessage).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	origins := strings.Join(allowedOrigins, ", ")
	if origins == "" {
		origins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
