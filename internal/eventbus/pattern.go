package eventbus

import (
	"fmt"
	"strings"
)

// pattern is the compiled form of a subscription pattern. The grammar is
// closed: "*", "Type.*", "*.name", "Type.name". This is not a glob
// language.
type pattern struct {
	anyType bool
	anyName bool
	typ     string
	name    string
}

func compilePattern(raw string) (pattern, error) {
	if raw == "*" {
		return pattern{anyType: true, anyName: true}, nil
	}

	typ, name, ok := strings.Cut(raw, ".")
	if !ok || typ == "" || name == "" {
		return pattern{}, fmt.Errorf("invalid subscription pattern %q", raw)
	}
	if strings.Contains(name, ".") {
		return pattern{}, fmt.Errorf("invalid subscription pattern %q", raw)
	}

	p := pattern{typ: typ, name: name}
	if typ == "*" {
		p.anyType = true
	}
	if name == "*" {
		p.anyName = true
	}
	return p, nil
}

func (p pattern) matches(qualifiedType string) bool {
	typ, name, ok := strings.Cut(qualifiedType, ".")
	if !ok {
		return false
	}
	if !p.anyType && p.typ != typ {
		return false
	}
	if !p.anyName && p.name != name {
		return false
	}
	return true
}
