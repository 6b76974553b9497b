package session_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/enginekit/core/cookie"
	"github.com/dmitrymomot/enginekit/core/session"
)

const testSecret = "test-secret-key-32-characters!!!"

type cookieJar struct {
	in  []*http.Cookie
	out []*http.Cookie
}

func (j *cookieJar) Cookie(name string) (*http.Cookie, error) {
	for _, c := range j.in {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, http.ErrNoCookie
}

func (j *cookieJar) SetCookie(c *http.Cookie) { j.out = append(j.out, c) }

func newStore(t *testing.T, mutate ...func(*session.Config)) *session.CookieStore {
	t.Helper()

	cfg := session.DefaultConfig()
	cfg.SecretKey = testSecret
	for _, m := range mutate {
		m(&cfg)
	}
	store, err := session.NewCookieStore(cfg)
	require.NoError(t, err)
	return store
}

func TestNewCookieStore_RequiresKey(t *testing.T) {
	t.Parallel()

	cfg := session.DefaultConfig()
	assert.False(t, cfg.Enabled())

	store, err := session.NewCookieStore(cfg)
	assert.ErrorIs(t, err, session.ErrNoSecretKey)
	assert.Nil(t, store)

	cfg.SecretKey = "short"
	_, err = session.NewCookieStore(cfg)
	assert.ErrorIs(t, err, cookie.ErrSecretTooShort)
}

func TestCookieStore_NilIsDisabled(t *testing.T) {
	t.Parallel()

	var store *session.CookieStore
	jar := &cookieJar{}

	assert.Nil(t, store.Open(jar))
	s := session.New()
	s.Set("k", "v")
	assert.NoError(t, store.Save(s, jar))
	assert.Empty(t, jar.out)
}

func TestCookieStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	first := &cookieJar{}
	sess := store.Open(first)
	require.NotNil(t, sess)
	assert.Zero(t, sess.Len())

	sess.Set("user", "ann")
	sess.Set("roles", []any{"admin", "dev"})
	sess.Set("prefs", map[string]any{"theme": "dark", "size": 12})
	sess.Set("count", 42)
	sess.Set("big", int64(9007199254740993))
	sess.Set("ratio", 0.25)
	require.NoError(t, store.Save(sess, first))
	require.Len(t, first.out, 1)

	c := first.out[0]
	assert.Equal(t, session.DefaultCookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	second := &cookieJar{in: []*http.Cookie{c}}
	reopened := store.Open(second)
	assert.Equal(t, sess.Values(), reopened.Values())
	assert.False(t, reopened.IsModified())

	big, ok := reopened.GetInt("big")
	assert.True(t, ok)
	assert.Equal(t, int64(9007199254740993), big)
	count, ok := reopened.GetInt("count")
	assert.True(t, ok)
	assert.Equal(t, int64(42), count)
	ratio, _ := reopened.Get("ratio")
	assert.Equal(t, 0.25, ratio)
}

func TestCookieStore_UnmodifiedNeverSetsCookie(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	seed := &cookieJar{}
	s := store.Open(seed)
	s.Set("k", "v")
	require.NoError(t, store.Save(s, seed))

	jar := &cookieJar{in: seed.out}
	reopened := store.Open(jar)
	_, _ = reopened.Get("k")
	require.NoError(t, store.Save(reopened, jar))
	assert.Empty(t, jar.out)

	fresh := &cookieJar{}
	require.NoError(t, store.Save(store.Open(fresh), fresh))
	assert.Empty(t, fresh.out)
}

func TestCookieStore_ClearedSessionExpiresCookie(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	seed := &cookieJar{}
	s := store.Open(seed)
	s.Set("k", "v")
	require.NoError(t, store.Save(s, seed))

	jar := &cookieJar{in: seed.out}
	reopened := store.Open(jar)
	reopened.Clear()
	require.NoError(t, store.Save(reopened, jar))

	require.Len(t, jar.out, 1)
	assert.Equal(t, -1, jar.out[0].MaxAge)
	assert.Empty(t, jar.out[0].Value)
}

func TestCookieStore_BadCookieYieldsEmptySession(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	other, err := cookie.NewSigner([]string{"another-secret-key-32-chars!!!!!"})
	require.NoError(t, err)
	own, err := cookie.NewSigner([]string{testSecret})
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
	}{
		{name: "garbage", value: "not-a-session"},
		{name: "wrong_key", value: other.Sign([]byte(`{"k":"v"}`))},
		{name: "not_json", value: own.Sign([]byte(`oops`))},
		{name: "json_array", value: own.Sign([]byte(`[1,2]`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			jar := &cookieJar{in: []*http.Cookie{{Name: session.DefaultCookieName, Value: tt.value}}}
			s := store.Open(jar)
			require.NotNil(t, s)
			assert.Zero(t, s.Len())
			assert.False(t, s.IsModified())
		})
	}
}

func TestCookieStore_ExpiredSignature(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-2 * time.Hour)
	oldStore, err := session.NewCookieStore(session.Config{SecretKey: testSecret, MaxAge: time.Hour},
		session.WithSignerOptions(cookie.WithClock(func() time.Time { return past })))
	require.NoError(t, err)

	seed := &cookieJar{}
	s := oldStore.Open(seed)
	s.Set("k", "v")
	require.NoError(t, oldStore.Save(s, seed))
	require.Len(t, seed.out, 1)
	assert.Equal(t, 3600, seed.out[0].MaxAge)

	store := newStore(t, func(c *session.Config) { c.MaxAge = time.Hour })
	reopened := store.Open(&cookieJar{in: seed.out})
	assert.Zero(t, reopened.Len())
}

func TestCookieStore_CookieAttributes(t *testing.T) {
	t.Parallel()

	store := newStore(t, func(c *session.Config) {
		c.CookieName = "sid"
		c.Domain = "example.com"
		c.Path = "/app"
		c.Secure = true
		c.SameSite = "strict"
	})
	assert.Equal(t, "sid", store.CookieName())

	jar := &cookieJar{}
	s := store.Open(jar)
	s.Set("k", "v")
	require.NoError(t, store.Save(s, jar))

	require.Len(t, jar.out, 1)
	c := jar.out[0]
	assert.Equal(t, "sid", c.Name)
	assert.Equal(t, "example.com", c.Domain)
	assert.Equal(t, "/app", c.Path)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}

func TestNewCookieStore_SameSiteNone(t *testing.T) {
	t.Parallel()

	cfg := session.DefaultConfig()
	cfg.SecretKey = testSecret
	cfg.SameSite = "none"

	_, err := session.NewCookieStore(cfg)
	assert.ErrorIs(t, err, session.ErrInsecureSameSite)

	cfg.Secure = true
	store, err := session.NewCookieStore(cfg)
	require.NoError(t, err)

	jar := &cookieJar{}
	s := store.Open(jar)
	s.Set("k", "v")
	require.NoError(t, store.Save(s, jar))
	require.Len(t, jar.out, 1)
	assert.Equal(t, http.SameSiteNoneMode, jar.out[0].SameSite)
	assert.True(t, jar.out[0].Secure)
}
