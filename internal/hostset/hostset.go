// Package hostset combines per-criterion host results.
//
// Results inside the identity group are unioned; results inside the class
// group are regrouped per class and intersected; results across groups are
// intersected, skipping groups that were not requested.
package hostset

import (
	"fmt"
	"regexp"
	"slices"

	"hostscope/internal/query"
)

// Set is an unordered, de-duplicated collection of host identifiers.
type Set map[string]struct{}

// New returns a set holding hosts.
func New(hosts ...string) Set {
	s := make(Set, len(hosts))
	for _, h := range hosts {
		s.Add(h)
	}
	return s
}

// Add inserts host.
func (s Set) Add(host string) { s[host] = struct{}{} }

// Has reports whether host is present.
func (s Set) Has(host string) bool {
	_, ok := s[host]
	return ok
}

// Sorted returns the hosts in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// Union returns a new set holding every host of a and b.
func Union(a, b Set) Set {
	out := make(Set, len(a)+len(b))
	for h := range a {
		out.Add(h)
	}
	for h := range b {
		out.Add(h)
	}
	return out
}

// Intersect returns a new set holding the hosts present in both a and b.
func Intersect(a, b Set) Set {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(Set, len(a))
	for h := range a {
		if b.Has(h) {
			out.Add(h)
		}
	}
	return out
}

// IntersectAll folds sets left to right with Intersect. A nil entry is a
// group that was not requested and is skipped; a non-nil empty set is a
// group that matched nothing. With no requested groups the result is nil.
func IntersectAll(sets ...Set) Set {
	var acc Set
	for _, s := range sets {
		if s == nil {
			continue
		}
		if acc == nil {
			acc = Union(s, nil)
			continue
		}
		acc = Intersect(acc, s)
	}
	return acc
}

// ClassRow is one (host, class) pair returned by the resources endpoint.
type ClassRow struct {
	Certname string
	Title    string
}

// GroupByClass regroups rows under every requested class they satisfy and
// returns the hosts that satisfy all of them. Plain class names compare
// against the canonical title; /.../ names match as regular expressions.
func GroupByClass(rows []ClassRow, classes []string) (Set, error) {
	classes = query.CanonicalClasses(classes)
	if len(classes) == 0 {
		return nil, nil
	}

	matchers := make([]func(string) bool, len(classes))
	for i, class := range classes {
		if query.IsRegex(class) {
			re, err := query.CompileRegex(class)
			if err != nil {
				return nil, err
			}
			matchers[i] = re.MatchString
			continue
		}
		want := class
		matchers[i] = func(title string) bool { return query.CanonicalClass(title) == want }
	}

	groups := make([]Set, len(classes))
	for i := range groups {
		groups[i] = Set{}
	}
	for _, row := range rows {
		for i, match := range matchers {
			if match(row.Title) {
				groups[i].Add(row.Certname)
			}
		}
	}
	return IntersectAll(groups...), nil
}

// MatchIdentities resolves identities against the full node list. A plain
// identity is kept if it is a known node; a /.../ identity selects every
// node it matches. The per-identity results are unioned.
func MatchIdentities(all []string, identities []string) (Set, error) {
	known := New(all...)
	out := Set{}
	for _, id := range identities {
		if !query.IsRegex(id) {
			if known.Has(id) {
				out.Add(id)
			}
			continue
		}
		re, err := query.CompileRegex(id)
		if err != nil {
			return nil, fmt.Errorf("identity: %w", err)
		}
		addMatching(out, all, re)
	}
	return out, nil
}

func addMatching(dst Set, hosts []string, re *regexp.Regexp) {
	for _, h := range hosts {
		if re.MatchString(h) {
			dst.Add(h)
		}
	}
}
