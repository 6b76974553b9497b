package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrEmptyPassword = errors.New("password: empty password")
	ErrInvalidHash   = errors.New("password: invalid hash format")
	ErrIncompatible  = errors.New("password: incompatible argon2 version")
	ErrInvalidParams = errors.New("password: invalid argon2 parameters")
)

// Params are the Argon2id cost parameters. Memory is in KiB.
type Params struct {
	Memory  uint32 `env:"PASSWORD_MEMORY" envDefault:"65536"`
	Time    uint32 `env:"PASSWORD_TIME" envDefault:"3"`
	Threads uint8  `env:"PASSWORD_THREADS" envDefault:"4"`
	SaltLen uint32 `env:"PASSWORD_SALT_LENGTH" envDefault:"16"`
	KeyLen  uint32 `env:"PASSWORD_KEY_LENGTH" envDefault:"32"`
}

// DefaultParams follows the second recommended option of RFC 9106.
func DefaultParams() Params {
	return Params{Memory: 64 * 1024, Time: 3, Threads: 4, SaltLen: 16, KeyLen: 32}
}

func (p Params) validate() error {
	if p.Memory < 8*uint32(p.Threads) || p.Time < 1 || p.Threads < 1 || p.SaltLen < 8 || p.KeyLen < 16 {
		return ErrInvalidParams
	}
	return nil
}

// Hasher hashes passwords with fixed parameters. It is safe for concurrent use.
type Hasher struct {
	params Params
}

// NewHasher returns a Hasher, or ErrInvalidParams for parameters Argon2id rejects
// or that are too weak to be useful.
func NewHasher(p Params) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: p}, nil
}

var defaultHasher = &Hasher{params: DefaultParams()}

// Hash hashes password with DefaultParams.
func Hash(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// Verify reports whether password matches encoded.
func Verify(password, encoded string) (bool, error) {
	return defaultHasher.Verify(password, encoded)
}

// Hash returns the PHC-encoded Argon2id hash of password with a random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. The parameters are read from
// encoded, not from the hasher. A malformed hash is an error, a mismatch is not.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	other := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

// NeedsRehash reports whether encoded was made with weaker or different
// parameters than the hasher's.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	p, _, _, err := decode(encoded)
	if err != nil {
		return false, err
	}
	return p.Memory < h.params.Memory ||
		p.Time < h.params.Time ||
		p.Threads < h.params.Threads ||
		p.KeyLen != h.params.KeyLen, nil
}

func decode(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return Params{}, nil, nil, ErrIncompatible
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))

	if err := p.validate(); err != nil {
		return Params{}, nil, nil, err
	}
	return p, salt, key, nil
}
