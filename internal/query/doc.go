// Package query builds inventory queries from filter criteria.
//
// The inventory grammar is a JSON array-of-arrays: a comparison is
// [op, field, value] and a combinator is [tag, child...]. The AST here is a
// tagged union (Leaf, Combinator) that only becomes arrays in MarshalJSON.
//
// Fact names, values and class titles go into the tree without any URL
// encoding; the inventory transport percent-encodes the serialized query
// exactly once when it builds the request URL.
//
// Usage:
//
//	b := query.Builder{APIVersion: "4"}
//	n := b.FactQuery([]filter.FactCriterion{{Name: "osfamily", Value: "Debian", Operator: "=="}})
//	data, err := query.Marshal(n) // ["=",["fact","osfamily"],"Debian"]
package query
