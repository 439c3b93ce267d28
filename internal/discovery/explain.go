package discovery

import (
	"hostscope/internal/filter"
	"hostscope/internal/query"
)

// Plan is one request a discovery call would make.
type Plan struct {
	Group    string     `json:"group"`
	Endpoint string     `json:"endpoint"`
	Query    query.Node `json:"query"`
}

// Explain returns the requests Discover would issue for f, without sending
// any of them. A nil Query means the full node list.
func (d *Discoverer) Explain(f filter.Filter) []Plan {
	if f.Empty() {
		return []Plan{{Group: "all", Endpoint: query.Nodes.String()}}
	}

	var plans []Plan
	if len(f.Facts) > 0 {
		plans = append(plans, Plan{Group: "facts", Endpoint: query.Nodes.String(), Query: d.builder.FactQuery(f.Facts)})
	}
	if len(f.Classes) > 0 {
		plans = append(plans, Plan{Group: "classes", Endpoint: query.Resources.String(), Query: d.builder.ClassQuery(f.Classes)})
	}
	if len(f.Identities) > 0 {
		plans = append(plans, Plan{Group: "identities", Endpoint: query.Nodes.String()})
	}
	return plans
}
