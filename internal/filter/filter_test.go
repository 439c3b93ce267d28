package filter

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFact(t *testing.T) {
	tests := []struct {
		expr string
		want FactCriterion
	}{
		{"osfamily=Debian", FactCriterion{Name: "osfamily", Value: "Debian", Operator: "=="}},
		{"osfamily==Debian", FactCriterion{Name: "osfamily", Value: "Debian", Operator: "=="}},
		{"hostname!=db1", FactCriterion{Name: "hostname", Value: "db1", Operator: "!="}},
		{"memorysize_mb>=2048", FactCriterion{Name: "memorysize_mb", Value: "2048", Operator: ">="}},
		{"processorcount<4", FactCriterion{Name: "processorcount", Value: "4", Operator: "<"}},
		{"fqdn=/^web/", FactCriterion{Name: "fqdn", Value: "/^web/", Operator: "=="}},
		{"fqdn=~^web", FactCriterion{Name: "fqdn", Value: "/^web/", Operator: "=="}},
		{" role = app ", FactCriterion{Name: "role", Value: "app", Operator: "=="}},
	}

	for _, tt := range tests {
		got, err := ParseFact(tt.expr)
		if err != nil {
			t.Errorf("ParseFact(%q): %v", tt.expr, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseFact(%q) mismatch (-want +got):\n%s", tt.expr, diff)
		}
	}
}

func TestParseFact_Invalid(t *testing.T) {
	for _, expr := range []string{"", "osfamily", "=Debian", "osfamily="} {
		if _, err := ParseFact(expr); !errors.Is(err, ErrInvalidExpression) {
			t.Errorf("ParseFact(%q) = %v, want ErrInvalidExpression", expr, err)
		}
	}
}

func TestParseFacts_StopsAtFirstError(t *testing.T) {
	_, err := ParseFacts([]string{"a=b", "broken"})
	if !errors.Is(err, ErrInvalidExpression) {
		t.Fatalf("expected ErrInvalidExpression, got %v", err)
	}
}

func TestFilter_Empty(t *testing.T) {
	if !(Filter{}).Empty() {
		t.Error("zero filter should be empty")
	}
	if (Filter{Classes: []string{"apache"}}).Empty() {
		t.Error("filter with a class should not be empty")
	}
}
