// Package response normalizes handler results into the (body, status, headers)
// triple handed back to the engine.
//
// Handlers return any value. Normalize interprets it:
//
//	return "hello", nil                                   // 200 text/plain
//	return map[string]any{"id": 42}, nil                  // 200 application/json
//	return response.Status(user, http.StatusCreated), nil // 201 application/json
//	return response.With("ok", 202, http.Header{"X-Job": {"7"}}), nil
//	return response.Redirect("/login"), nil               // 302 with Location
//
// A bare nil result is a handler bug and maps to ErrNilResponse (500).
//
// Errors that implement StatusCode() int carry their own status. HTTPError is the
// stock implementation:
//
//	return nil, response.ErrNotFound.WithMessage("user not found")
package response
