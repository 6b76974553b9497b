package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/enginekit/pkg/password"
)

func cheap() password.Params {
	return password.Params{Memory: 8 * 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}
}

func newHasher(t *testing.T, p password.Params) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(p)
	require.NoError(t, err)
	return h
}

func TestHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := newHasher(t, cheap())
	encoded, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"), encoded)

	again, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again, "salt must differ per hash")

	ok, err := h.Verify("s3cret-pass", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-pass", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	// Parameters come from the hash, so any hasher verifies it.
	ok, err = password.Verify("s3cret-pass", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_EmptyPassword(t *testing.T) {
	t.Parallel()

	_, err := newHasher(t, cheap()).Hash("")
	assert.ErrorIs(t, err, password.ErrEmptyPassword)
}

func TestNewHasher_InvalidParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*password.Params)
	}{
		{name: "zero_time", mutate: func(p *password.Params) { p.Time = 0 }},
		{name: "zero_threads", mutate: func(p *password.Params) { p.Threads = 0 }},
		{name: "short_key", mutate: func(p *password.Params) { p.KeyLen = 8 }},
		{name: "short_salt", mutate: func(p *password.Params) { p.SaltLen = 4 }},
		{name: "memory_below_threads", mutate: func(p *password.Params) { p.Memory = 8; p.Threads = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := cheap()
			tt.mutate(&p)
			_, err := password.NewHasher(p)
			assert.ErrorIs(t, err, password.ErrInvalidParams)
		})
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	t.Parallel()

	h := newHasher(t, cheap())
	valid, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	parts := strings.Split(valid, "$")

	tests := []struct {
		name    string
		encoded string
		want    error
	}{
		{name: "empty", encoded: "", want: password.ErrInvalidHash},
		{name: "bcrypt", encoded: "$2a$10$abcdefghijklmnopqrstuv", want: password.ErrInvalidHash},
		{name: "argon2i", encoded: strings.Replace(valid, "argon2id", "argon2i", 1), want: password.ErrInvalidHash},
		{name: "old_version", encoded: strings.Replace(valid, "v=19", "v=16", 1), want: password.ErrIncompatible},
		{name: "bad_params", encoded: strings.Join([]string{"", parts[1], parts[2], "m=x,t=1,p=1", parts[4], parts[5]}, "$"), want: password.ErrInvalidHash},
		{name: "bad_salt", encoded: strings.Join([]string{"", parts[1], parts[2], parts[3], "!!", parts[5]}, "$"), want: password.ErrInvalidHash},
		{name: "zero_threads", encoded: strings.Join([]string{"", parts[1], parts[2], "m=8192,t=1,p=0", parts[4], parts[5]}, "$"), want: password.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := h.Verify("s3cret-pass", tt.encoded)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, ok)
		})
	}
}

func TestHasher_NeedsRehash(t *testing.T) {
	t.Parallel()

	weak := newHasher(t, cheap())
	encoded, err := weak.Hash("s3cret-pass")
	require.NoError(t, err)

	need, err := weak.NeedsRehash(encoded)
	require.NoError(t, err)
	assert.False(t, need)

	stronger := cheap()
	stronger.Time = 2
	need, err = newHasher(t, stronger).NeedsRehash(encoded)
	require.NoError(t, err)
	assert.True(t, need)
}
