package session

import "errors"

var (
	// ErrNoSecretKey is returned when building a store without a signing key.
	ErrNoSecretKey = errors.New("session: no secret key configured")
	// ErrInvalidPayload is returned when a verified cookie does not hold a JSON object.
	ErrInvalidPayload = errors.New("session: invalid payload")
	// ErrInsecureSameSite is returned when SameSite=None is configured without Secure.
	// Browsers drop such cookies.
	ErrInsecureSameSite = errors.New("session: SameSite=None requires Secure")
	// ErrSaveSession is returned when saving a session fails.
	ErrSaveSession = errors.New("session: failed to save session")
)
