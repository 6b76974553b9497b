// Package routes turns route registrations into an immutable table of bindings.
//
// Patterns use whole-segment parameters with optional converters:
//
//	/users/<id>             str (default)
//	/users/<int:id>         int
//	/prices/<float:amount>  float
//	/items/<uuid:id>        uuid.UUID
//	/files/<path:rest>      the rest of the path, slashes included
//
// Parameters may carry rules (Min, Max, GreaterThan, LessThan, MinLength, MaxLength,
// Matches), and routes may declare typed query parameters with defaults. A value that
// fails conversion or a rule yields a *ValidationError, which reports status 400.
//
//	b := routes.NewBuilder()
//	_, err := b.Add(routes.Route{
//		Pattern: "/users/<int:id>",
//		Methods: []string{http.MethodGet},
//		Handler: getUser,
//		Rules:   map[string][]routes.Rule{"id": {routes.Min(1)}},
//		Query:   []routes.QueryParam{{Name: "page", Type: routes.TypeInt, Default: 1}},
//	})
//	table := b.Build() // later Add calls return ErrFrozen
package routes
