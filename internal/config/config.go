package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"guessthesong/internal/model"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Game    GameConfig    `mapstructure:"game"`
	Store   StoreConfig   `mapstructure:"store"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"logLevel"`
	Verbose  bool   `mapstructure:"verbose"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ShutdownWait   time.Duration `mapstructure:"shutdownWait"`
	AllowedOrigins string        `mapstructure:"allowedOrigins"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	StateTTL time.Duration `mapstructure:"stateTTL"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtSecret"`
	Issuer    string        `mapstructure:"issuer"`
	GuestTTL  time.Duration `mapstructure:"guestTTL"`
}

type CatalogConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout"`
	Limit   int           `mapstructure:"limit"`
}

type GameConfig struct {
	PreRoll               time.Duration `mapstructure:"preRoll"`
	DisconnectGrace       time.Duration `mapstructure:"disconnectGrace"`
	RevealPercentage      int           `mapstructure:"revealPercentage"`
	DefaultTimePerSong    int           `mapstructure:"defaultTimePerSong"`
	DefaultSongsPerPlayer int           `mapstructure:"defaultSongsPerPlayer"`
	MessageHistory        int           `mapstructure:"messageHistory"`
	GuessRate             float64       `mapstructure:"guessRate"`
	GuessBurst            int           `mapstructure:"guessBurst"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// SetDefaults installs every default on v. Flags bound later take precedence.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "guessthesong")
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.verbose", false)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdownWait", 30*time.Second)
	v.SetDefault("server.allowedOrigins", "*")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "guessthesong")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stateTTL", 24*time.Hour)

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.issuer", "guessthesong")
	v.SetDefault("auth.guestTTL", 24*time.Hour)

	v.SetDefault("catalog.baseURL", "https://api.deezer.com")
	v.SetDefault("catalog.timeout", 5*time.Second)
	v.SetDefault("catalog.limit", 10)

	v.SetDefault("game.preRoll", 3*time.Second)
	v.SetDefault("game.disconnectGrace", 3*time.Second)
	v.SetDefault("game.revealPercentage", 20)
	v.SetDefault("game.defaultTimePerSong", 30)
	v.SetDefault("game.defaultSongsPerPlayer", 3)
	v.SetDefault("game.messageHistory", 50)
	v.SetDefault("game.guessRate", 2.0)
	v.SetDefault("game.guessBurst", 5)

	v.SetDefault("store.driver", StoreRedis)
}

// Load reads config.yaml when present, applies GTS_* environment overrides and validates the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("GTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/guessthesong")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || file != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Store.Driver != StoreRedis && c.Store.Driver != StoreMemory {
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret must be set (env: GTS_AUTH_JWTSECRET)")
	}
	if c.Game.PreRoll <= 0 || c.Game.DisconnectGrace <= 0 {
		return errors.New("game.preRoll and game.disconnectGrace must be positive")
	}
	if c.Game.RevealPercentage < 0 || c.Game.RevealPercentage > 100 {
		return fmt.Errorf("game.revealPercentage out of range: %d", c.Game.RevealPercentage)
	}
	// Defaults go through the same rules as settings a host submits.
	defaults := model.RoomSettings{
		SongsPerPlayer:   c.Game.DefaultSongsPerPlayer,
		TimePerSong:      c.Game.DefaultTimePerSong,
		RevealPercentage: c.Game.RevealPercentage,
	}
	if err := validator.New().Struct(defaults); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			f := verrs[0]
			return fmt.Errorf("game default %s out of range (%s=%s): %v", f.Field(), f.Tag(), f.Param(), f.Value())
		}
		return err
	}
	if c.Game.MessageHistory < 0 {
		return fmt.Errorf("game.messageHistory must not be negative: %d", c.Game.MessageHistory)
	}
	if c.Game.GuessRate <= 0 || c.Game.GuessBurst < 1 {
		return errors.New("game.guessRate and game.guessBurst must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
