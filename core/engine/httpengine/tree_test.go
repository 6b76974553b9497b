package httpengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"/users", "/users"},
		{"/user/<int:id>", "/user/{id}"},
		{"/user/<name>", "/user/{name}"},
		{"/a/<uuid:u>/b/<float:f>", "/a/{u}/b/{f}"},
		{"/files/<path:rest>", "/files/*"},
		{"/p/<path>", "/p/{path}"},
	}
	for _, tt := range tests {
		got, err := treePattern(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := treePattern("/bad/<int:id")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestTree_Find(t *testing.T) {
	t.Parallel()

	root := &node{}
	patterns := []string{
		"/",
		"/users",
		"/users/{id}",
		"/users/{id}/posts",
		"/users/me",
		"/user",
		"/files/*",
		"/a/{x}/c",
		"/a/b/d",
	}
	for _, p := range patterns {
		require.NoError(t, root.insert("GET", p, &route{pattern: p}), p)
	}
	require.NoError(t, root.insert("POST", "/users", &route{pattern: "/users"}))

	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/users", "/users"},
		{"/users/42", "/users/{id}"},
		{"/users/me", "/users/me"},
		{"/users/42/posts", "/users/{id}/posts"},
		{"/user", "/user"},
		{"/files/a/b/c.txt", "/files/*"},
		{"/a/b/c", "/a/{x}/c"},
		{"/a/b/d", "/a/b/d"},
		{"/a/z/c", "/a/{x}/c"},
		{"/missing", ""},
		{"/users/42/other", ""},
		{"/users//posts", ""},
	}
	for _, tt := range tests {
		leaf := root.find("GET", tt.path)
		if tt.want == "" {
			assert.Nil(t, leaf, tt.path)
			continue
		}
		require.NotNil(t, leaf, tt.path)
		require.Contains(t, leaf.endpoints, "GET", tt.path)
		assert.Equal(t, tt.want, leaf.endpoints["GET"].pattern, tt.path)
	}

	leaf := root.find("DELETE", "/users")
	require.NotNil(t, leaf)
	assert.Equal(t, []string{"GET", "POST"}, leaf.allowed())
}

func TestTree_Errors(t *testing.T) {
	t.Parallel()

	root := &node{}
	require.NoError(t, root.insert("GET", "/x", &route{pattern: "/x"}))
	assert.ErrorIs(t, root.insert("GET", "/x", &route{pattern: "/x"}), ErrDuplicateRoute)
	assert.ErrorIs(t, root.insert("GET", "/y/*/z", &route{}), ErrWildcardPosition)
	assert.ErrorIs(t, root.insert("GET", "/y/{id", &route{}), ErrParamDelimiter)
}
