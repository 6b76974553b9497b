package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxCookieSize is the maximum size for a cookie (4KB).
	MaxCookieSize = 4096
	// minSecretLength is the minimum accepted signing secret length.
	minSecretLength = 32
	// separator joins the encoded value, timestamp and signature.
	separator = "|"
)

// Signer signs and verifies cookie values with HMAC-SHA256.
// The first secret signs; every secret is tried on verification, which allows key rotation.
type Signer struct {
	secrets [][]byte
	now     func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithClock replaces time.Now for timestamping. Tests use it to simulate expiry.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner creates a Signer. Empty secrets are ignored; at least one secret of
// minSecretLength characters is required.
func NewSigner(secrets []string, opts ...SignerOption) (*Signer, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	keys := make([][]byte, 0, len(secrets))
	for i, secret := range secrets {
		if len(secret) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d",
				ErrSecretTooShort, i, len(secret), minSecretLength)
		}
		keys = append(keys, []byte(secret))
	}

	s := &Signer{secrets: keys, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ParseSecrets splits a comma-separated secret list, trimming blanks.
func ParseSecrets(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	secrets := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

// Sign encodes value, stamps it with the current time and appends the signature.
func (s *Signer) Sign(value []byte) string {
	payload := base64.RawURLEncoding.EncodeToString(value) +
		separator + strconv.FormatInt(s.now().Unix(), 10)
	return payload + separator + s.mac(s.secrets[0], payload)
}

// Verify checks the signature and returns the original value with its signing time.
func (s *Signer) Verify(signed string) ([]byte, time.Time, error) {
	idx := strings.LastIndex(signed, separator)
	if idx < 0 {
		return nil, time.Time{}, ErrInvalidFormat
	}
	payload, signature := signed[:idx], signed[idx+1:]

	encoded, stamp, ok := strings.Cut(payload, separator)
	if !ok {
		return nil, time.Time{}, ErrInvalidFormat
	}

	valid := slices.ContainsFunc(s.secrets, func(secret []byte) bool {
		return subtle.ConstantTimeCompare([]byte(signature), []byte(s.mac(secret, payload))) == 1
	})
	if !valid {
		return nil, time.Time{}, ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return nil, time.Time{}, ErrInvalidFormat
	}
	value, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, time.Time{}, ErrInvalidFormat
	}

	return value, time.Unix(unix, 0), nil
}

// VerifyMaxAge is Verify that also rejects values signed more than maxAge ago.
// A non-positive maxAge disables the age check.
func (s *Signer) VerifyMaxAge(signed string, maxAge time.Duration) ([]byte, error) {
	value, signedAt, err := s.Verify(signed)
	if err != nil {
		return nil, err
	}
	if maxAge > 0 && s.now().Sub(signedAt) > maxAge {
		return nil, ErrExpired
	}
	return value, nil
}

func (s *Signer) mac(secret []byte, payload string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// New builds a cookie with the given attributes. It fails when the serialized
// Set-Cookie header would exceed MaxCookieSize.
func New(name, value string, opts Options) (*http.Cookie, error) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: opts.HttpOnly,
		SameSite: opts.SameSite,
	}

	if size := len(c.String()); size > MaxCookieSize {
		return nil, ErrCookieTooLarge{Name: name, Size: size, Max: MaxCookieSize}
	}
	return c, nil
}

// Expired builds a cookie that instructs the client to delete name.
func Expired(name string, opts Options) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   opts.Secure,
		HttpOnly: opts.HttpOnly,
		SameSite: opts.SameSite,
	}
}
