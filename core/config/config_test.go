package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/enginekit/core/config"
)

type cachedConfig struct {
	Name string `env:"ENGINEKIT_TEST_CACHED_NAME" envDefault:"default"`
}

type parsedConfig struct {
	Port    int           `env:"ENGINEKIT_TEST_PORT" envDefault:"8080"`
	Timeout time.Duration `env:"ENGINEKIT_TEST_TIMEOUT" envDefault:"5s"`
	Secret  string        `env:"ENGINEKIT_TEST_SECRET,required,notEmpty"`
}

func TestLoad_CachesPerType(t *testing.T) {
	t.Setenv("ENGINEKIT_TEST_CACHED_NAME", "first")

	var a cachedConfig
	require.NoError(t, config.Load(&a))
	assert.Equal(t, "first", a.Name)

	t.Setenv("ENGINEKIT_TEST_CACHED_NAME", "second")

	var b cachedConfig
	require.NoError(t, config.Load(&b))
	assert.Equal(t, "first", b.Name)
}

func TestParse(t *testing.T) {
	t.Run("defaults_and_required", func(t *testing.T) {
		t.Setenv("ENGINEKIT_TEST_SECRET", "s3cr3t")

		var cfg parsedConfig
		require.NoError(t, config.Parse(&cfg))
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		assert.Equal(t, "s3cr3t", cfg.Secret)
	})

	t.Run("missing_required", func(t *testing.T) {
		t.Setenv("ENGINEKIT_TEST_SECRET", "")

		var cfg parsedConfig
		assert.Error(t, config.Parse(&cfg))
	})

	t.Run("nil_target", func(t *testing.T) {
		assert.ErrorIs(t, config.Parse[parsedConfig](nil), config.ErrNilTarget)
	})
}
