package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"hostscope/internal/filter"
)

// ErrInvalidPattern is returned when a /.../ literal is not a valid regex.
var ErrInvalidPattern = errors.New("invalid pattern")

// Endpoint is the inventory collection a query targets.
type Endpoint int

const (
	Nodes Endpoint = iota
	Resources
)

// String returns the path segment of the endpoint.
func (e Endpoint) String() string {
	switch e {
	case Nodes:
		return "nodes"
	case Resources:
		return "resources"
	}
	return fmt.Sprintf("endpoint(%d)", int(e))
}

// Combinator returns the tag used to join multiple criteria against e:
// facts on nodes must all hold, classes on resources are fetched with or.
func (e Endpoint) Combinator() string {
	if e == Resources {
		return Or
	}
	return And
}

// environmentField is the flat field that replaces ["fact", "environment"]
// on API version 4.
const environmentField = "facts-environment"

// IsRegex reports whether value is a /.../ literal.
func IsRegex(value string) bool {
	return len(value) >= 2 && value[0] == '/' && value[len(value)-1] == '/'
}

// TranslateValue maps a criterion value and operator onto the grammar's
// comparison operators. A /.../ value is stripped and forced to "~";
// "==" and "!=" both become "=" (negation lives in a not combinator).
// Any other operator is passed through; an empty one means "=".
func TranslateValue(value, op string) (string, string) {
	if IsRegex(value) {
		return "~", value[1 : len(value)-1]
	}
	switch op {
	case "==", "!=", "":
		return "=", value
	}
	return op, value
}

// CompileRegex compiles the body of a /.../ literal.
func CompileRegex(literal string) (*regexp.Regexp, error) {
	_, body := TranslateValue(literal, "=")
	re, err := regexp.Compile(body)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, literal, err)
	}
	return re, nil
}

// CanonicalClass capitalizes every ::-separated segment, so "foo::bar"
// becomes "Foo::Bar". Regex literals are returned unchanged.
func CanonicalClass(name string) string {
	if IsRegex(name) {
		return name
	}
	segments := strings.Split(name, "::")
	for i, seg := range segments {
		segments[i] = capitalize(seg)
	}
	return strings.Join(segments, "::")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// CanonicalClasses canonicalizes and de-duplicates names, keeping the
// first occurrence order.
func CanonicalClasses(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		c := CanonicalClass(n)
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Builder turns filter groups into query ASTs for one API generation.
type Builder struct {
	// APIVersion is the inventory API generation, e.g. "3" or "4".
	APIVersion string
}

// FactQuery builds the node query for facts; every criterion must hold.
func (b Builder) FactQuery(criteria []filter.FactCriterion) Node {
	nodes := make([]Node, 0, len(criteria))
	for _, c := range criteria {
		op, value := TranslateValue(c.Value, c.Operator)

		field := FactField(c.Name)
		if c.Name == "environment" && b.APIVersion == "4" {
			field = FlatField(environmentField)
		}

		var n Node = Leaf{Op: op, Field: field, Value: value}
		if c.Operator == "!=" {
			n = Combinator{Tag: Not, Children: []Node{n}}
		}
		nodes = append(nodes, n)
	}
	return Combine(Nodes.Combinator(), nodes)
}

// ClassQuery builds the resource query for classes. The query matches a
// host having any of the classes; conjunction is restored by regrouping
// the rows per class.
func (b Builder) ClassQuery(classes []string) Node {
	canonical := CanonicalClasses(classes)
	nodes := make([]Node, 0, len(canonical))
	for _, class := range canonical {
		op, value := TranslateValue(class, "=")
		nodes = append(nodes, Combinator{Tag: And, Children: []Node{
			Leaf{Op: "=", Field: FlatField("type"), Value: "Class"},
			Leaf{Op: op, Field: FlatField("title"), Value: value},
		}})
	}
	return Combine(Resources.Combinator(), nodes)
}

// BuildFactQuery is FactQuery for the default API generation.
func BuildFactQuery(criteria []filter.FactCriterion) Node {
	return Builder{}.FactQuery(criteria)
}

// BuildClassQuery is ClassQuery for the default API generation.
func BuildClassQuery(classes []string) Node {
	return Builder{}.ClassQuery(classes)
}
