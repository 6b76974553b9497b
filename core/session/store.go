package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/enginekit/core/cookie"
	"github.com/dmitrymomot/enginekit/core/logger"
)

// CookieReader is the request side of the store: anything that can look up a cookie.
type CookieReader interface {
	Cookie(name string) (*http.Cookie, error)
}

// CookieWriter is the response side of the store.
type CookieWriter interface {
	SetCookie(c *http.Cookie)
}

// CookieStore keeps the whole session in a signed cookie. A nil *CookieStore means
// sessions are disabled: Open returns nil and Save is a no-op.
type CookieStore struct {
	cfg        Config
	opts       cookie.Options
	signer     *cookie.Signer
	signerOpts []cookie.SignerOption
	logger     *slog.Logger
}

// StoreOption configures a CookieStore.
type StoreOption func(*CookieStore)

// WithLogger sets the logger used for rejected cookies.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *CookieStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSignerOptions passes options to the underlying cookie signer.
func WithSignerOptions(opts ...cookie.SignerOption) StoreOption {
	return func(s *CookieStore) {
		s.signerOpts = append(s.signerOpts, opts...)
	}
}

// NewCookieStore builds a store from cfg. It returns ErrNoSecretKey when cfg has no
// signing key; callers check cfg.Enabled first when sessions are optional.
// SameSite=None without Secure fails with ErrInsecureSameSite.
func NewCookieStore(cfg Config, opts ...StoreOption) (*CookieStore, error) {
	secrets := cookie.ParseSecrets(cfg.SecretKey)
	if len(secrets) == 0 {
		return nil, ErrNoSecretKey
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	s := &CookieStore{
		cfg:    cfg,
		opts:   cfg.cookieOptions(),
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	signer, err := cookie.NewSigner(secrets, s.signerOpts...)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s.signer = signer

	return s, nil
}

// CookieName returns the name of the session cookie.
func (s *CookieStore) CookieName() string {
	if s == nil {
		return ""
	}
	return s.cfg.CookieName
}

// Open loads the session from r. A missing, tampered, malformed or expired cookie
// yields a fresh empty session. Open returns nil only on a nil store.
func (s *CookieStore) Open(r CookieReader) *Session {
	if s == nil {
		return nil
	}

	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil || c.Value == "" {
		return New()
	}

	data, err := s.decode(c.Value)
	if err != nil {
		s.logger.Debug("session cookie rejected",
			logger.Component("session"),
			logger.Error(err),
		)
		return New()
	}

	return FromMap(data)
}

// Save writes the session cookie to w when sess is modified. A modified empty session
// expires the cookie; an unmodified session writes nothing.
func (s *CookieStore) Save(sess *Session, w CookieWriter) error {
	if s == nil || sess == nil || !sess.IsModified() {
		return nil
	}

	if sess.Len() == 0 {
		w.SetCookie(cookie.Expired(s.cfg.CookieName, s.opts))
		return nil
	}

	payload, err := json.Marshal(sess.Values())
	if err != nil {
		return errors.Join(ErrSaveSession, err)
	}

	c, err := cookie.New(s.cfg.CookieName, s.signer.Sign(payload), s.opts)
	if err != nil {
		return errors.Join(ErrSaveSession, err)
	}

	w.SetCookie(c)
	return nil
}

func (s *CookieStore) decode(value string) (map[string]any, error) {
	raw, err := s.signer.VerifyMaxAge(value, s.cfg.MaxAge)
	if err != nil {
		return nil, err
	}

	return decodeValues(raw)
}
