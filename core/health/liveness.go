package health

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
	"github.com/dmitrymomot/enginekit/core/routes"
)

// Liveness always answers "ALIVE" with 200 OK.
func Liveness(context.Context, *reqctx.Request, routes.Params) (any, error) {
	return "ALIVE", nil
}

// NoContent answers 204 without body.
func NoContent(context.Context, *reqctx.Request, routes.Params) (any, error) {
	return response.New(http.StatusNoContent, nil), nil
}
