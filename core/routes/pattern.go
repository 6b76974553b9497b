package routes

import (
	"fmt"
	"strings"
)

// ParamType is the converter applied to a path or query parameter.
type ParamType int

const (
	TypeStr ParamType = iota
	TypeInt
	TypeFloat
	TypePath
	TypeUUID
	TypeBool
)

func (t ParamType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypePath:
		return "path"
	case TypeUUID:
		return "uuid"
	case TypeBool:
		return "bool"
	default:
		return "str"
	}
}

// pathTypes are the converters accepted inside <type:name>.
var pathTypes = map[string]ParamType{
	"":      TypeStr,
	"str":   TypeStr,
	"int":   TypeInt,
	"float": TypeFloat,
	"path":  TypePath,
	"uuid":  TypeUUID,
}

// ParamSpec describes one typed path parameter.
type ParamSpec struct {
	Name string
	Type ParamType
}

type segment struct {
	literal string
	param   int // index into Pattern.params, -1 for literals
}

// Pattern is a parsed route pattern such as "/users/<int:id>/files/<path:rest>".
// Parameters occupy whole segments; a path parameter must be the last segment.
type Pattern struct {
	raw      string
	segments []segment
	params   []ParamSpec
}

// ParsePattern parses raw.
func ParsePattern(raw string) (*Pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return nil, fmt.Errorf("%w: %q must start with '/'", ErrInvalidPattern, raw)
	}

	p := &Pattern{raw: raw}
	seen := make(map[string]bool)

	parts := splitPath(raw)
	for i, part := range parts {
		if !strings.HasPrefix(part, "<") {
			if strings.ContainsAny(part, "<>") {
				return nil, fmt.Errorf("%w: %q: parameters must span a whole segment", ErrInvalidPattern, raw)
			}
			p.segments = append(p.segments, segment{literal: part, param: -1})
			continue
		}
		if !strings.HasSuffix(part, ">") {
			return nil, fmt.Errorf("%w: %q: unterminated parameter %q", ErrInvalidPattern, raw, part)
		}

		inner := part[1 : len(part)-1]
		typ, name, found := strings.Cut(inner, ":")
		if !found {
			typ, name = "", inner
		}
		if name == "" {
			return nil, fmt.Errorf("%w: %q: empty parameter name", ErrInvalidPattern, raw)
		}
		pt, ok := pathTypes[typ]
		if !ok {
			return nil, fmt.Errorf("%w: %q: unknown converter %q", ErrInvalidPattern, raw, typ)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q: duplicate parameter %q", ErrInvalidPattern, raw, name)
		}
		if pt == TypePath && i != len(parts)-1 {
			return nil, fmt.Errorf("%w: %q: path parameter must be last", ErrInvalidPattern, raw)
		}
		seen[name] = true

		p.segments = append(p.segments, segment{param: len(p.params)})
		p.params = append(p.params, ParamSpec{Name: name, Type: pt})
	}

	return p, nil
}

// String returns the pattern as registered.
func (p *Pattern) String() string { return p.raw }

// Params returns the path parameters in pattern order.
func (p *Pattern) Params() []ParamSpec {
	return append([]ParamSpec(nil), p.params...)
}

// Static reports whether the pattern has no parameters.
func (p *Pattern) Static() bool { return len(p.params) == 0 }

// Match splits path along the pattern and returns raw parameter values.
// Values are not converted.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	parts := splitPath(path)
	values := make(map[string]string, len(p.params))

	for i, seg := range p.segments {
		if seg.param < 0 {
			if i >= len(parts) || parts[i] != seg.literal {
				return nil, false
			}
			continue
		}

		spec := p.params[seg.param]
		if spec.Type == TypePath {
			if i >= len(parts) {
				return nil, false
			}
			values[spec.Name] = strings.Join(parts[i:], "/")
			return values, true
		}
		if i >= len(parts) || parts[i] == "" {
			return nil, false
		}
		values[spec.Name] = parts[i]
	}

	if len(parts) != len(p.segments) {
		return nil, false
	}
	return values, true
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
