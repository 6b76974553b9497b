package cookie

import (
	"errors"
	"fmt"
)

var (
	ErrNoSecret       = errors.New("cookie: no signing secret")
	ErrSecretTooShort = errors.New("cookie: signing secret too short")
	// ErrInvalidSignature means no configured secret produced the signature:
	// the value was tampered with or signed by a retired secret.
	ErrInvalidSignature = errors.New("cookie: invalid signature")
	ErrInvalidFormat    = errors.New("cookie: malformed signed value")
	// ErrExpired means the signature is older than the signer's max age.
	ErrExpired = errors.New("cookie: signed value expired")
)

// ErrCookieTooLarge is returned by New when the serialized cookie exceeds Max bytes.
type ErrCookieTooLarge struct {
	Name string
	Size int
	Max  int
}

func (e ErrCookieTooLarge) Error() string {
	return fmt.Sprintf("cookie %q size %d exceeds maximum %d bytes", e.Name, e.Size, e.Max)
}
