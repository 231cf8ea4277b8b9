package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("GTS_AUTH_JWTSECRET", "test-secret")
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Game.PreRoll)
	assert.Equal(t, 3*time.Second, cfg.Game.DisconnectGrace)
	assert.Equal(t, 20, cfg.Game.RevealPercentage)
	assert.Equal(t, StoreRedis, cfg.Store.Driver)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	body := "server:\n  port: 9090\nauth:\n  jwtSecret: abc\nstore:\n  driver: memory\ngame:\n  revealPercentage: 35\n"
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 35, cfg.Game.RevealPercentage)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
}

func TestValidate(t *testing.T) {
	t.Setenv("GTS_AUTH_JWTSECRET", "")
	t.Chdir(t.TempDir())

	_, err := Load(viper.New(), "")
	assert.ErrorContains(t, err, "jwtSecret")

	cfg := &Config{
		Server: ServerConfig{Port: 70000},
		Store:  StoreConfig{Driver: StoreRedis},
		Auth:   AuthConfig{JWTSecret: "x"},
		Game:   GameConfig{PreRoll: time.Second, DisconnectGrace: time.Second},
	}
	assert.ErrorContains(t, cfg.Validate(), "invalid port")

	cfg.Server.Port = 80
	cfg.Store.Driver = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "unknown store driver")
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Driver: StoreMemory},
		Auth:   AuthConfig{JWTSecret: "x"},
		Game: GameConfig{
			PreRoll:               3 * time.Second,
			DisconnectGrace:       3 * time.Second,
			RevealPercentage:      20,
			DefaultTimePerSong:    30,
			DefaultSongsPerPlayer: 3,
			MessageHistory:        50,
			GuessRate:             2,
			GuessBurst:            5,
		},
	}
}

func TestValidateGameDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(g *GameConfig)
		wantErr string
	}{
		{"time per song too short", func(g *GameConfig) { g.DefaultTimePerSong = 4 }, "TimePerSong"},
		{"time per song too long", func(g *GameConfig) { g.DefaultTimePerSong = 121 }, "TimePerSong"},
		{"no songs per player", func(g *GameConfig) { g.DefaultSongsPerPlayer = 0 }, "SongsPerPlayer"},
		{"too many songs per player", func(g *GameConfig) { g.DefaultSongsPerPlayer = 11 }, "SongsPerPlayer"},
		{"negative history", func(g *GameConfig) { g.MessageHistory = -1 }, "messageHistory"},
		{"zero guess rate", func(g *GameConfig) { g.GuessRate = 0 }, "guessRate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.Game)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}

	edges := validConfig()
	edges.Game.DefaultTimePerSong = 5
	edges.Game.DefaultSongsPerPlayer = 10
	assert.NoError(t, edges.Validate())
}

func TestLoadRejectsOutOfRangeDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	body := "auth:\n  jwtSecret: abc\ngame:\n  defaultTimePerSong: 600\n"
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))

	_, err := Load(viper.New(), file)
	assert.ErrorContains(t, err, "TimePerSong")
}
