package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/enginekit/core/cookie"
)

// DefaultCookieName is the cookie that carries the session.
const DefaultCookieName = "session"

// Config holds cookie session configuration. An empty SecretKey disables sessions.
type Config struct {
	// SecretKey is a comma-separated list of signing secrets; the first one signs.
	SecretKey  string        `env:"SESSION_SECRET_KEY" envDefault:""`
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"session"`
	Domain     string        `env:"SESSION_COOKIE_DOMAIN" envDefault:""`
	Path       string        `env:"SESSION_COOKIE_PATH" envDefault:"/"`
	Secure     bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	HTTPOnly   bool          `env:"SESSION_COOKIE_HTTP_ONLY" envDefault:"true"`
	SameSite   string        `env:"SESSION_COOKIE_SAME_SITE" envDefault:"lax"`
	// MaxAge bounds both the cookie lifetime and the accepted signature age.
	// Zero means a browser-session cookie without age check.
	MaxAge time.Duration `env:"SESSION_COOKIE_MAX_AGE" envDefault:"0s"`
}

// DefaultConfig returns a Config with secure defaults and no secret.
func DefaultConfig() Config {
	return Config{
		CookieName: DefaultCookieName,
		Path:       "/",
		HTTPOnly:   true,
		SameSite:   "lax",
	}
}

// Enabled reports whether a signing key is configured.
func (c Config) Enabled() bool {
	return len(cookie.ParseSecrets(c.SecretKey)) > 0
}

func (c Config) validate() error {
	if parseSameSite(c.SameSite) == http.SameSiteNoneMode && !c.Secure {
		return ErrInsecureSameSite
	}
	return nil
}

func (c Config) cookieOptions() cookie.Options {
	opts := cookie.DefaultOptions()
	if c.Path != "" {
		opts.Path = c.Path
	}
	opts.Domain = c.Domain
	opts.Secure = c.Secure
	opts.HttpOnly = c.HTTPOnly
	opts.SameSite = parseSameSite(c.SameSite)
	if c.MaxAge > 0 {
		opts.MaxAge = int(c.MaxAge / time.Second)
	}
	return opts
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default", "":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}
