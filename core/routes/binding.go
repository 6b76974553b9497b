package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/dmitrymomot/enginekit/core/reqctx"
)

// Handler is application code bound to a route.
type Handler func(ctx context.Context, req *reqctx.Request, p Params) (any, error)

// Mode selects how the dispatcher runs a handler.
type Mode int

const (
	// Blocking runs the handler on the engine's delivering goroutine.
	Blocking Mode = iota
	// Cooperative runs the handler as a task on a scheduler loop and reports
	// completion through a callback.
	Cooperative
)

func (m Mode) String() string {
	if m == Cooperative {
		return "cooperative"
	}
	return "blocking"
}

// QueryParam declares a typed query string parameter.
type QueryParam struct {
	Name     string
	Type     ParamType
	Default  any
	Required bool
	Rules    []Rule
}

// Route is the registration input for one route.
type Route struct {
	Pattern string
	// Methods defaults to GET.
	Methods []string
	Handler Handler
	Mode    Mode
	// Rules constrains path parameters by name.
	Rules map[string][]Rule
	Query []QueryParam
}

type queryBinding struct {
	QueryParam
	check *constraint
}

// Binding is the immutable, startup-computed form of a Route.
type Binding struct {
	pattern *Pattern
	methods []string
	handler Handler
	mode    Mode
	rules   map[string]*constraint
	query   []queryBinding
}

func newBinding(r Route) (*Binding, error) {
	if r.Handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilHandler, r.Pattern)
	}

	p, err := ParsePattern(r.Pattern)
	if err != nil {
		return nil, err
	}

	methods := make([]string, 0, len(r.Methods))
	for _, m := range r.Methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" && !slices.Contains(methods, m) {
			methods = append(methods, m)
		}
	}
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}

	b := &Binding{
		pattern: p,
		methods: methods,
		handler: r.Handler,
		mode:    r.Mode,
		rules:   make(map[string]*constraint, len(r.Rules)),
	}

	for name, rules := range r.Rules {
		if !slices.ContainsFunc(p.params, func(s ParamSpec) bool { return s.Name == name }) {
			return nil, fmt.Errorf("%w: %q: rules for unknown parameter %q", ErrInvalidPattern, r.Pattern, name)
		}
		b.rules[name] = compileRules(rules)
	}

	for _, q := range r.Query {
		if q.Name == "" {
			return nil, fmt.Errorf("%w: %q: unnamed query parameter", ErrInvalidPattern, r.Pattern)
		}
		b.query = append(b.query, queryBinding{QueryParam: q, check: compileRules(q.Rules)})
	}

	return b, nil
}

// Pattern returns the route pattern as registered.
func (b *Binding) Pattern() string { return b.pattern.String() }

// Methods returns the HTTP methods served by the route.
func (b *Binding) Methods() []string { return slices.Clone(b.methods) }

// Mode returns the dispatch mode.
func (b *Binding) Mode() Mode { return b.mode }

// Handler returns the bound handler.
func (b *Binding) Handler() Handler { return b.handler }

// Params returns the typed path parameters.
func (b *Binding) Params() []ParamSpec { return b.pattern.Params() }

// Extract converts the path and query parameters of a matched request.
// Conversion and constraint failures are *ValidationError.
func (b *Binding) Extract(path string, query url.Values) (Params, error) {
	raw, ok := b.pattern.Match(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not fit %s", ErrNoMatch, path, b.pattern)
	}

	params := make(Params, len(raw)+len(b.query))
	for _, spec := range b.pattern.params {
		v, err := convert(spec.Name, raw[spec.Name], spec.Type)
		if err != nil {
			return nil, err
		}
		if err := b.rules[spec.Name].check(spec.Name, v); err != nil {
			return nil, err
		}
		params[spec.Name] = v
	}

	for _, q := range b.query {
		values, present := query[q.Name]
		if !present || len(values) == 0 {
			if q.Required {
				return nil, invalid(q.Name, "field required")
			}
			if q.Default != nil {
				params[q.Name] = q.Default
			}
			continue
		}

		v, err := convert(q.Name, values[0], q.Type)
		if err != nil {
			return nil, err
		}
		if err := q.check.check(q.Name, v); err != nil {
			return nil, err
		}
		params[q.Name] = v
	}

	return params, nil
}
