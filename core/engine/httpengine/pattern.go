package httpengine

import (
	"fmt"
	"strings"

	"github.com/dmitrymomot/enginekit/core/routes"
)

// treePattern rewrites an application pattern such as "/user/<int:id>/<path:rest>"
// into tree syntax ("/user/{id}/*"). Converters are not enforced here; the binding
// rejects values that do not convert.
func treePattern(pattern string) (string, error) {
	if _, err := routes.ParsePattern(pattern); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	parts := strings.Split(pattern, "/")
	for i, part := range parts {
		if !strings.HasPrefix(part, "<") {
			continue
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(part, "<"), ">")
		typ, name, found := strings.Cut(inner, ":")
		if !found {
			typ, name = "", inner
		}
		if typ == "path" {
			parts[i] = "*"
			continue
		}
		parts[i] = "{" + name + "}"
	}
	return strings.Join(parts, "/"), nil
}
