package enginekit

import (
	"log/slog"
	"strings"

	"github.com/dmitrymomot/enginekit/core/config"
	"github.com/dmitrymomot/enginekit/core/engine"
	"github.com/dmitrymomot/enginekit/core/engine/httpengine"
	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/session"
)

// Config aggregates application settings loaded from the environment.
type Config struct {
	Name      string `env:"APP_NAME" envDefault:"enginekit"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	Session session.Config
	HTTP    httpengine.Config
	// WebSocket holds the limits used by routes registered without their own.
	WebSocket engine.WebSocketConfig
}

// DefaultConfig returns the configuration used when nothing is loaded.
func DefaultConfig() Config {
	return Config{
		Name:      "enginekit",
		LogLevel:  "info",
		LogFormat: "text",
		Session:   session.DefaultConfig(),
		HTTP:      httpengine.DefaultConfig(),
	}
}

// LoadConfig reads Config from the environment and an optional .env file.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger builds the application logger described by cfg. Records emitted
// with an active request context carry its request id.
func (c Config) NewLogger() *slog.Logger {
	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(c.LogLevel)),
		logger.WithContextExtractors(reqctx.LogExtractor),
	}
	if strings.EqualFold(c.LogFormat, "json") {
		opts = append(opts, logger.WithJSONFormatter())
	}
	if c.Name != "" {
		opts = append(opts, logger.WithAttr(slog.String("service", c.Name)))
	}
	return logger.New(opts...)
}
