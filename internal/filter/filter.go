// Package filter holds the three-group host filter consumed by discovery.
//
// A Filter is a conjunction: a host must satisfy every non-empty group.
// Within the class group every class must match; within the identity group
// any identity may match; fact criteria must all hold.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidExpression is returned when a fact expression cannot be parsed.
var ErrInvalidExpression = errors.New("invalid fact expression")

// FactCriterion selects hosts by a single fact comparison.
// Value may be a regex literal written as /.../.
type FactCriterion struct {
	Name     string `json:"fact"`
	Value    string `json:"value"`
	Operator string `json:"operator"`
}

// Filter is the caller-supplied discovery filter.
type Filter struct {
	Facts      []FactCriterion `json:"facts,omitempty"`
	Classes    []string        `json:"classes,omitempty"`
	Identities []string        `json:"identities,omitempty"`
}

// Empty reports whether no group carries any criterion.
func (f Filter) Empty() bool {
	return len(f.Facts) == 0 && len(f.Classes) == 0 && len(f.Identities) == 0
}

// operators is ordered so that two-character operators win over their
// one-character prefixes.
var operators = []string{"==", "!=", ">=", "<=", "=~", ">", "<", "="}

// ParseFact parses expressions such as "osfamily=Debian",
// "memorysize_mb>=2048", "hostname!=db1", "fqdn=/^web/" or "fqdn=~^web".
// A bare "=" is read as "==". "=~" turns the value into a regex literal.
func ParseFact(expr string) (FactCriterion, error) {
	expr = strings.TrimSpace(expr)
	idx, op := -1, ""
	for i := 0; i < len(expr) && idx < 0; i++ {
		for _, candidate := range operators {
			if strings.HasPrefix(expr[i:], candidate) {
				idx, op = i, candidate
				break
			}
		}
	}
	if idx <= 0 {
		return FactCriterion{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}

	name := strings.TrimSpace(expr[:idx])
	value := strings.TrimSpace(expr[idx+len(op):])
	if value == "" {
		return FactCriterion{}, fmt.Errorf("%w: %q has no value", ErrInvalidExpression, expr)
	}

	switch op {
	case "=":
		op = "=="
	case "=~":
		op = "=="
		value = "/" + value + "/"
	}
	return FactCriterion{Name: name, Value: value, Operator: op}, nil
}

// ParseFacts parses every expression, stopping at the first failure.
func ParseFacts(exprs []string) ([]FactCriterion, error) {
	facts := make([]FactCriterion, 0, len(exprs))
	for _, e := range exprs {
		fc, err := ParseFact(e)
		if err != nil {
			return nil, err
		}
		facts = append(facts, fc)
	}
	return facts, nil
}
