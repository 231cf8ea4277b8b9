package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"guessthesong/internal/app"
	"guessthesong/internal/clock"
	"guessthesong/internal/config"
	"guessthesong/internal/logger"
	"guessthesong/internal/metrics"
	"guessthesong/internal/model"
	"guessthesong/internal/service"
	"guessthesong/internal/transport/ws"
)

var demoTracks = []model.CatalogTrack{
	{Title: "Yellow Submarine", Artist: "The Beatles", SourceID: "116348128", SourceType: "deezer"},
	{Title: "Bohemian Rhapsody", Artist: "Queen", SourceID: "9997018", SourceType: "deezer"},
	{Title: "Billie Jean", Artist: "Michael Jackson", SourceID: "14444218", SourceType: "deezer"},
	{Title: "Smells Like Teen Spirit", Artist: "Nirvana", SourceID: "13791930", SourceType: "deezer"},
	{Title: "Hotel California", Artist: "Eagles", SourceID: "426703682", SourceType: "deezer"},
	{Title: "Wonderwall", Artist: "Oasis", SourceID: "1122216", SourceType: "deezer"},
}

func main() {
	v := viper.New()
	var (
		configFile string
		names      []string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Create a demo lobby with guest players and songs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return seed(cmd.Context(), cfg, names, ttl)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to a config file")
	cmd.Flags().StringSliceVar(&names, "players", []string{"host", "alice", "bob"}, "display names, the first one hosts")
	cmd.Flags().DurationVar(&ttl, "token-ttl", 24*time.Hour, "lifetime of the printed tokens")
	cmd.Flags().String("store", config.StoreRedis, "state backend: redis or memory")
	if err := v.BindPFlag("store.driver", cmd.Flags().Lookup("store")); err != nil {
		panic(err)
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg *config.Config, names []string, ttl time.Duration) error {
	if len(names) == 0 {
		return fmt.Errorf("at least one player is required")
	}
	log, err := logger.New(cfg.App.LogLevel, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	b, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	clk := clock.New()
	m := metrics.New()
	hub := ws.NewHub(clk, cfg.Game.DisconnectGrace, m, log)
	authSvc := service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.GuestTTL)
	bc := service.NewBroadcastService(b.StateStore, b.MessageRepo, hub, clk, m, log, cfg.Game.MessageHistory)
	rooms := service.NewRoomService(b.RoomRepo, b.StateStore, b.MessageRepo, b.Leaderboard, bc, hub, clk, m, log,
		model.RoomSettings{
			SongsPerPlayer:   cfg.Game.DefaultSongsPerPlayer,
			TimePerSong:      cfg.Game.DefaultTimePerSong,
			RevealPercentage: cfg.Game.RevealPercentage,
		})
	songs := service.NewSongService(b.StateStore, bc, log)

	users := make([]model.Identity, len(names))
	for i, name := range names {
		users[i] = model.Identity{ID: fmt.Sprintf("seed_%d_%s", clk.Now().Unix(), name), DisplayName: name}
	}

	state, err := rooms.CreateRoom(ctx, users[0], nil)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	code := state.Room.Code
	for _, u := range users[1:] {
		if _, err := rooms.Join(ctx, code, u); err != nil {
			return fmt.Errorf("join %s: %w", u.DisplayName, err)
		}
	}

	for i, track := range demoTracks {
		u := users[i%len(users)]
		if _, err := songs.AddSong(ctx, code, u, track); err != nil {
			log.Warn("skip song", zap.String("title", track.Title), zap.String("user", u.DisplayName), zap.Error(err))
		}
	}

	fmt.Printf("room %s\n", code)
	for _, u := range users {
		token, err := authSvc.Sign(u, ttl)
		if err != nil {
			return err
		}
		fmt.Printf("%-10s %s\n", u.DisplayName, token)
	}
	return nil
}
