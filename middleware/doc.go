// Package middleware provides reusable chain.Middleware implementations.
//
// Request-phase middleware may short-circuit by returning a response (BodyLimit,
// CORS preflight, RateLimit). Response-phase middleware decorates the outgoing
// response and runs for every request, short-circuited or not.
//
//	app.Use(
//		middleware.RequestID(),
//		middleware.Logging(middleware.LoggingConfig{Logger: log}),
//		middleware.BodyLimit(1<<20),
//		middleware.SecurityHeaders(middleware.BalancedSecurity),
//	)
package middleware

import (
	"net/http"

	"github.com/dmitrymomot/enginekit/core/response"
)

// plain builds a text response with the standard status text as body.
func plain(status int) *response.Response {
	resp := response.New(status, []byte(http.StatusText(status)))
	resp.Header.Set("Content-Type", response.ContentTypeText)
	return resp
}
