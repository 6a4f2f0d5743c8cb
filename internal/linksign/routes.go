package linksign

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var ErrNoReverseMatch = errors.New("no reverse match")

// Routes maps view names to chi-style patterns such as
// /organizations/{org}/issues/{id}/.
type Routes struct {
	patterns map[string]string
}

func NewRoutes(patterns map[string]string) (*Routes, error) {
	r := &Routes{patterns: make(map[string]string, len(patterns))}
	for name, pattern := range patterns {
		if !strings.HasPrefix(pattern, "/") {
			return nil, fmt.Errorf("route %s: pattern %q must start with /", name, pattern)
		}
		if _, err := params(pattern); err != nil {
			return nil, fmt.Errorf("route %s: %w", name, err)
		}
		r.patterns[name] = pattern
	}
	return r, nil
}

// Names returns the route names in sorted order.
func (r *Routes) Names() []string {
	names := make([]string, 0, len(r.patterns))
	for name := range r.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Routes) Pattern(name string) (string, bool) {
	p, ok := r.patterns[name]
	return p, ok
}

// Reverse builds the path of the named route. Parameters are filled from
// args in order or from kwargs by name, never both.
func (r *Routes) Reverse(name string, args []any, kwargs map[string]any) (string, error) {
	pattern, ok := r.patterns[name]
	if !ok {
		return "", fmt.Errorf("%w: %q is not a registered route", ErrNoReverseMatch, name)
	}
	if len(args) > 0 && len(kwargs) > 0 {
		return "", fmt.Errorf("%w: %q: cannot mix positional and named arguments", ErrNoReverseMatch, name)
	}

	names, _ := params(pattern)
	values := make([]string, len(names))
	switch {
	case len(kwargs) > 0:
		if len(kwargs) != len(names) {
			return "", fmt.Errorf("%w: %q takes %d arguments, got %d", ErrNoReverseMatch, name, len(names), len(kwargs))
		}
		for i, n := range names {
			v, ok := kwargs[n]
			if !ok {
				return "", fmt.Errorf("%w: %q: missing argument %q", ErrNoReverseMatch, name, n)
			}
			values[i] = fmt.Sprint(v)
		}
	default:
		if len(args) != len(names) {
			return "", fmt.Errorf("%w: %q takes %d arguments, got %d", ErrNoReverseMatch, name, len(names), len(args))
		}
		for i, v := range args {
			values[i] = fmt.Sprint(v)
		}
	}

	var b strings.Builder
	rest := pattern
	for _, v := range values {
		start := strings.IndexByte(rest, '{')
		end := strings.IndexByte(rest[start:], '}') + start
		b.WriteString(rest[:start])
		b.WriteString(url.PathEscape(v))
		rest = rest[end+1:]
	}
	b.WriteString(rest)
	return b.String(), nil
}

// params lists the {name} or {name:regexp} placeholders of pattern.
func params(pattern string) ([]string, error) {
	var names []string
	rest := pattern
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return nil, fmt.Errorf("unbalanced braces in %q", pattern)
			}
			return names, nil
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return nil, fmt.Errorf("unbalanced braces in %q", pattern)
		}
		end += start
		name, _, _ := strings.Cut(rest[start+1:end], ":")
		if name == "" {
			return nil, fmt.Errorf("empty parameter name in %q", pattern)
		}
		names = append(names, name)
		rest = rest[end+1:]
	}
}
