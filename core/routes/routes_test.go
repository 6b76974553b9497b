package routes_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/routes"
)

func noop(context.Context, *reqctx.Request, routes.Params) (any, error) { return "ok", nil }

func TestParsePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		params  []routes.ParamSpec
		wantErr bool
	}{
		{name: "static", pattern: "/health"},
		{name: "root", pattern: "/"},
		{name: "default_str", pattern: "/greet/<name>", params: []routes.ParamSpec{{Name: "name", Type: routes.TypeStr}}},
		{name: "typed", pattern: "/u/<int:id>/p/<float:x>", params: []routes.ParamSpec{
			{Name: "id", Type: routes.TypeInt}, {Name: "x", Type: routes.TypeFloat},
		}},
		{name: "path_last", pattern: "/files/<path:rest>", params: []routes.ParamSpec{{Name: "rest", Type: routes.TypePath}}},
		{name: "uuid", pattern: "/items/<uuid:id>", params: []routes.ParamSpec{{Name: "id", Type: routes.TypeUUID}}},
		{name: "no_leading_slash", pattern: "users", wantErr: true},
		{name: "unknown_converter", pattern: "/u/<bigint:id>", wantErr: true},
		{name: "empty_name", pattern: "/u/<int:>", wantErr: true},
		{name: "duplicate_name", pattern: "/u/<id>/<id>", wantErr: true},
		{name: "path_not_last", pattern: "/f/<path:p>/x", wantErr: true},
		{name: "partial_segment", pattern: "/u/id-<id>", wantErr: true},
		{name: "unterminated", pattern: "/u/<id", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := routes.ParsePattern(tt.pattern)
			if tt.wantErr {
				assert.ErrorIs(t, err, routes.ErrInvalidPattern)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pattern, p.String())
			assert.Equal(t, len(tt.params) == 0, p.Static())
			if len(tt.params) > 0 {
				assert.Equal(t, tt.params, p.Params())
			}
		})
	}
}

func TestPattern_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    map[string]string
		ok      bool
	}{
		{pattern: "/", path: "/", want: map[string]string{}, ok: true},
		{pattern: "/users", path: "/users/", want: map[string]string{}, ok: true},
		{pattern: "/users/<id>", path: "/users/42", want: map[string]string{"id": "42"}, ok: true},
		{pattern: "/users/<id>", path: "/users", ok: false},
		{pattern: "/users/<id>", path: "/users/42/extra", ok: false},
		{pattern: "/users/<id>", path: "/posts/42", ok: false},
		{pattern: "/files/<path:p>", path: "/files/a/b/c.txt", want: map[string]string{"p": "a/b/c.txt"}, ok: true},
		{pattern: "/files/<path:p>", path: "/files", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.path, func(t *testing.T) {
			t.Parallel()

			p, err := routes.ParsePattern(tt.pattern)
			require.NoError(t, err)
			got, ok := p.Match(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBinding_Extract(t *testing.T) {
	t.Parallel()

	b := routes.NewBuilder()
	binding, err := b.Add(routes.Route{
		Pattern: "/user/<int:id>",
		Handler: noop,
	})
	require.NoError(t, err)

	params, err := binding.Extract("/user/42", nil)
	require.NoError(t, err)
	assert.Equal(t, 42, params["id"], "int converter yields int")
	assert.Equal(t, 42, params.Int("id"))

	_, err = binding.Extract("/user/abc", nil)
	var verr *routes.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Param)
	assert.Equal(t, http.StatusBadRequest, verr.StatusCode())

	_, err = binding.Extract("/other/1", nil)
	assert.ErrorIs(t, err, routes.ErrNoMatch)
}

func TestBinding_Converters(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	b := routes.NewBuilder()
	binding, err := b.Add(routes.Route{
		Pattern: "/x/<float:price>/<uuid:id>/<str:name>/<path:rest>",
		Handler: noop,
	})
	require.NoError(t, err)

	params, err := binding.Extract("/x/9.5/"+id.String()+"/ann/a/b", nil)
	require.NoError(t, err)
	assert.InDelta(t, 9.5, params.Float("price"), 1e-9)
	assert.Equal(t, id, params.UUID("id"))
	assert.Equal(t, "ann", params.String("name"))
	assert.Equal(t, "a/b", params.String("rest"))

	_, err = binding.Extract("/x/NaN/"+id.String()+"/ann/a", nil)
	assert.Error(t, err)
	_, err = binding.Extract("/x/1/not-a-uuid/ann/a", nil)
	assert.Error(t, err)
}

func TestBinding_Rules(t *testing.T) {
	t.Parallel()

	b := routes.NewBuilder()
	binding, err := b.Add(routes.Route{
		Pattern: "/u/<int:id>/<slug>",
		Handler: noop,
		Rules: map[string][]routes.Rule{
			"id":   {routes.Min(1), routes.Max(1000)},
			"slug": {routes.MinLength(2), routes.MaxLength(5), routes.Matches(`^[a-z]+$`)},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		message string
	}{
		{name: "ok", path: "/u/10/abc"},
		{name: "below_min", path: "/u/0/abc", message: "must be greater than or equal to 1, got 0"},
		{name: "above_max", path: "/u/1001/abc", message: "must be less than or equal to 1000, got 1001"},
		{name: "too_short", path: "/u/5/a", message: "must be at least 2 characters, got 1"},
		{name: "too_long", path: "/u/5/abcdef", message: "must be at most 5 characters, got 6"},
		{name: "regexp", path: "/u/5/AB", message: "must match pattern ^[a-z]+$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := binding.Extract(tt.path, nil)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			var verr *routes.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}

func TestBinding_StrictBounds(t *testing.T) {
	t.Parallel()

	b := routes.NewBuilder()
	binding, err := b.Add(routes.Route{
		Pattern: "/r/<float:x>",
		Handler: noop,
		Rules:   map[string][]routes.Rule{"x": {routes.GreaterThan(0), routes.LessThan(1)}},
	})
	require.NoError(t, err)

	_, err = binding.Extract("/r/0.5", nil)
	assert.NoError(t, err)
	_, err = binding.Extract("/r/0", nil)
	assert.ErrorContains(t, err, "must be greater than 0")
	_, err = binding.Extract("/r/1", nil)
	assert.ErrorContains(t, err, "must be less than 1")
}

func TestBinding_Query(t *testing.T) {
	t.Parallel()

	b := routes.NewBuilder()
	binding, err := b.Add(routes.Route{
		Pattern: "/search",
		Handler: noop,
		Query: []routes.QueryParam{
			{Name: "q", Type: routes.TypeStr, Required: true, Rules: []routes.Rule{routes.MinLength(1)}},
			{Name: "page", Type: routes.TypeInt, Default: 1, Rules: []routes.Rule{routes.Min(1)}},
			{Name: "exact", Type: routes.TypeBool},
		},
	})
	require.NoError(t, err)

	params, err := binding.Extract("/search", url.Values{"q": {"go"}})
	require.NoError(t, err)
	assert.Equal(t, "go", params.String("q"))
	assert.Equal(t, 1, params.Int("page"))
	_, present := params.Get("exact")
	assert.False(t, present)

	params, err = binding.Extract("/search", url.Values{"q": {"go"}, "page": {"3"}, "exact": {"yes"}})
	require.NoError(t, err)
	assert.Equal(t, 3, params.Int("page"))
	assert.True(t, params.Bool("exact"))

	_, err = binding.Extract("/search", url.Values{})
	assert.ErrorContains(t, err, "field required")

	_, err = binding.Extract("/search", url.Values{"q": {"go"}, "page": {"0"}})
	assert.ErrorContains(t, err, "greater than or equal to 1")

	_, err = binding.Extract("/search", url.Values{"q": {"go"}, "page": {"x"}})
	assert.ErrorContains(t, err, "expected int")
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	t.Run("defaults_and_lookup", func(t *testing.T) {
		t.Parallel()

		b := routes.NewBuilder()
		binding, err := b.Add(routes.Route{Pattern: "/a", Handler: noop, Methods: []string{"post", "POST", " get "}})
		require.NoError(t, err)
		assert.Equal(t, []string{"POST", "GET"}, binding.Methods())
		assert.Equal(t, routes.Blocking, binding.Mode())

		def, err := b.Add(routes.Route{Pattern: "/b/<int:id>", Handler: noop, Mode: routes.Cooperative})
		require.NoError(t, err)
		assert.Equal(t, []string{http.MethodGet}, def.Methods())
		assert.Equal(t, "cooperative", def.Mode().String())

		table := b.Build()
		assert.Equal(t, 2, table.Len())

		got, ok := table.Lookup(http.MethodGet, "/b/7")
		require.True(t, ok)
		assert.Same(t, def, got)

		_, ok = table.Lookup(http.MethodDelete, "/a")
		assert.False(t, ok)
	})

	t.Run("frozen_after_build", func(t *testing.T) {
		t.Parallel()

		b := routes.NewBuilder()
		_, err := b.Add(routes.Route{Pattern: "/a", Handler: noop})
		require.NoError(t, err)

		table := b.Build()
		assert.True(t, b.Frozen())

		_, err = b.Add(routes.Route{Pattern: "/late", Handler: noop})
		assert.ErrorIs(t, err, routes.ErrFrozen)
		assert.Equal(t, 1, table.Len())
	})

	t.Run("validation_errors", func(t *testing.T) {
		t.Parallel()

		b := routes.NewBuilder()
		_, err := b.Add(routes.Route{Pattern: "/a"})
		assert.ErrorIs(t, err, routes.ErrNilHandler)

		_, err = b.Add(routes.Route{Pattern: "/a", Handler: noop})
		require.NoError(t, err)
		_, err = b.Add(routes.Route{Pattern: "/a", Handler: noop})
		assert.ErrorIs(t, err, routes.ErrDuplicateRoute)

		_, err = b.Add(routes.Route{Pattern: "/b/<id>", Handler: noop, Rules: map[string][]routes.Rule{"nope": {routes.Min(1)}}})
		assert.ErrorIs(t, err, routes.ErrInvalidPattern)
	})
}
