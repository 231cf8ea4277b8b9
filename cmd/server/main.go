package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"guessthesong/internal/app"
	"guessthesong/internal/clock"
	"guessthesong/internal/config"
	"guessthesong/internal/logger"
	"guessthesong/internal/metrics"
	"guessthesong/internal/model"
	"guessthesong/internal/service"
	"guessthesong/internal/transport/rest"
	"guessthesong/internal/transport/ws"
)

// @title Guess The Song API
// @version 1.0
// @description Real-time multiplayer guess-the-song rooms
// @host localhost:8080
// @BasePath /v1
func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:           "guessthesong",
		Short:         "Run the guess-the-song game server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "path to a config file")
	flags.IntP("port", "p", 8080, "HTTP listen port")
	flags.String("store", config.StoreRedis, "state backend: redis or memory")
	flags.BoolP("verbose", "v", false, "development logging")
	flags.String("log-level", "info", "log level")
	bindFlags(v, flags, map[string]string{
		"port":      "server.port",
		"store":     "store.driver",
		"verbose":   "app.verbose",
		"log-level": "app.logLevel",
	})
	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.Verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	clk := clock.New()
	m := metrics.New()
	origins := splitOrigins(cfg.Server.AllowedOrigins)

	hub := ws.NewHub(clk, cfg.Game.DisconnectGrace, m, log)
	authSvc := service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.GuestTTL)
	broadcastSvc := service.NewBroadcastService(b.StateStore, b.MessageRepo, hub, clk, m, log, cfg.Game.MessageHistory)
	roomSvc := service.NewRoomService(b.RoomRepo, b.StateStore, b.MessageRepo, b.Leaderboard, broadcastSvc, hub, clk, m, log,
		model.RoomSettings{
			SongsPerPlayer:   cfg.Game.DefaultSongsPerPlayer,
			TimePerSong:      cfg.Game.DefaultTimePerSong,
			RevealPercentage: cfg.Game.RevealPercentage,
		})
	sched := service.NewScheduler(b.StateStore, broadcastSvc, clk, m, log, service.SchedulerOptions{PreRoll: cfg.Game.PreRoll})
	defer sched.Stop()

	container := &rest.Container{
		AuthService:      authSvc,
		RoomService:      roomSvc,
		SongService:      service.NewSongService(b.StateStore, broadcastSvc, log),
		GuessService:     service.NewGuessService(b.StateStore, b.MessageRepo, b.Leaderboard, broadcastSvc, clk, m, log),
		Scheduler:        sched,
		BroadcastService: broadcastSvc,
		Catalog:          service.NewCatalogClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, cfg.Catalog.Limit, log),
		WSHub:            hub,
		Metrics:          m,
		AllowedOrigins:   origins,
		GuessRate:        cfg.Game.GuessRate,
		GuessBurst:       cfg.Game.GuessBurst,
		WSHandler:        ws.NewHandler(hub, authSvc, roomSvc, broadcastSvc, origins, log),
	}

	// Games that were mid-round when the process stopped pick up from their
	// persisted deadlines.
	resumed, err := sched.ResumeAll(ctx)
	if err != nil {
		log.Warn("resume games", zap.Error(err))
	}
	if resumed > 0 {
		log.Info("resumed games", zap.Int("count", resumed))
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           rest.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.Duration("preRoll", cfg.Game.PreRoll),
			zap.Duration("disconnectGrace", cfg.Game.DisconnectGrace))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWait)
	defer cancel()
	sched.Stop()
	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}
