package health_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/enginekit/core/health"
	"github.com/dmitrymomot/enginekit/core/response"
)

func TestLiveness(t *testing.T) {
	t.Parallel()

	got, err := health.Liveness(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ALIVE", got)

	got, err = health.NoContent(context.Background(), nil, nil)
	require.NoError(t, err)
	resp, err := response.Normalize(got)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Empty(t, resp.Body)
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("db down") }

	tests := []struct {
		name    string
		checks  []func(context.Context) error
		wantErr error
	}{
		{name: "no_checks"},
		{name: "all_pass", checks: []func(context.Context) error{ok, ok}},
		{name: "one_fails", checks: []func(context.Context) error{ok, down}, wantErr: response.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := health.Readiness(nil, tt.checks...)(context.Background(), nil, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, http.StatusServiceUnavailable, response.StatusOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "READY", got)
		})
	}
}
