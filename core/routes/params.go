package routes

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Params holds converted path and query parameters by name.
type Params map[string]any

// Get returns the raw converted value.
func (p Params) Get(name string) (any, bool) {
	v, ok := p[name]
	return v, ok
}

// String returns a string parameter, or "" when absent or of another type.
func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Int returns an int parameter, or 0.
func (p Params) Int(name string) int {
	n, _ := p[name].(int)
	return n
}

// Float returns a float parameter, or 0.
func (p Params) Float(name string) float64 {
	f, _ := p[name].(float64)
	return f
}

// Bool returns a bool parameter, or false.
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// UUID returns a uuid parameter, or uuid.Nil.
func (p Params) UUID(name string) uuid.UUID {
	u, _ := p[name].(uuid.UUID)
	return u
}

// Rule adds a constraint to a parameter.
type Rule func(*constraint)

type constraint struct {
	ge, le, gt, lt       *float64
	minLength, maxLength *int
	pattern              *regexp.Regexp
}

// Min requires value >= n.
func Min(n float64) Rule { return func(c *constraint) { c.ge = &n } }

// Max requires value <= n.
func Max(n float64) Rule { return func(c *constraint) { c.le = &n } }

// GreaterThan requires value > n.
func GreaterThan(n float64) Rule { return func(c *constraint) { c.gt = &n } }

// LessThan requires value < n.
func LessThan(n float64) Rule { return func(c *constraint) { c.lt = &n } }

// MinLength requires at least n characters.
func MinLength(n int) Rule { return func(c *constraint) { c.minLength = &n } }

// MaxLength requires at most n characters.
func MaxLength(n int) Rule { return func(c *constraint) { c.maxLength = &n } }

// Matches requires the string to match expr. It panics on an invalid expression,
// like regexp.MustCompile, since rules are built at startup.
func Matches(expr string) Rule {
	re := regexp.MustCompile(expr)
	return func(c *constraint) { c.pattern = re }
}

func compileRules(rules []Rule) *constraint {
	if len(rules) == 0 {
		return nil
	}
	c := &constraint{}
	for _, r := range rules {
		if r != nil {
			r(c)
		}
	}
	return c
}

func (c *constraint) check(name string, v any) error {
	if c == nil {
		return nil
	}

	var num float64
	isNum := true
	switch n := v.(type) {
	case int:
		num = float64(n)
	case float64:
		num = n
	default:
		isNum = false
	}

	if isNum {
		shown := formatNumber(v)
		if c.ge != nil && num < *c.ge {
			return invalid(name, "must be greater than or equal to %s, got %s", formatFloat(*c.ge), shown)
		}
		if c.le != nil && num > *c.le {
			return invalid(name, "must be less than or equal to %s, got %s", formatFloat(*c.le), shown)
		}
		if c.gt != nil && num <= *c.gt {
			return invalid(name, "must be greater than %s, got %s", formatFloat(*c.gt), shown)
		}
		if c.lt != nil && num >= *c.lt {
			return invalid(name, "must be less than %s, got %s", formatFloat(*c.lt), shown)
		}
	}

	if s, ok := v.(string); ok {
		n := utf8.RuneCountInString(s)
		if c.minLength != nil && n < *c.minLength {
			return invalid(name, "must be at least %d characters, got %d", *c.minLength, n)
		}
		if c.maxLength != nil && n > *c.maxLength {
			return invalid(name, "must be at most %d characters, got %d", *c.maxLength, n)
		}
		if c.pattern != nil && !c.pattern.MatchString(s) {
			return invalid(name, "must match pattern %s", c.pattern.String())
		}
	}

	return nil
}

// convert applies a converter to a raw string value.
func convert(name, raw string, t ParamType) (any, error) {
	switch t {
	case TypeInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invalid(name, "expected int, got '%s'", raw)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalid(name, "expected float, got '%s'", raw)
		}
		return f, nil
	case TypeUUID:
		u, err := uuid.Parse(raw)
		if err != nil {
			return nil, invalid(name, "expected uuid, got '%s'", raw)
		}
		return u, nil
	case TypeBool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off", "":
			return false, nil
		}
		return nil, invalid(name, "expected bool, got '%s'", raw)
	default:
		return raw, nil
	}
}

func formatNumber(v any) string {
	if f, ok := v.(float64); ok {
		return formatFloat(f)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
