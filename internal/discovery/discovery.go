// Package discovery resolves a filter into the set of matching hosts.
//
// Each non-empty filter group becomes one inventory request: facts go to the
// nodes endpoint as a single and-query, classes go to the resources endpoint
// as a single or-query that is regrouped per class, and identities are
// matched against the full node list. The group results are intersected.
// A filter with no criteria returns every node.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"hostscope/internal/filter"
	"hostscope/internal/hostset"
	"hostscope/internal/inventory"
	"hostscope/internal/logging"
	"hostscope/internal/metrics"
	"hostscope/internal/query"
)

// maxGroups is the number of filter groups, and so the most requests one
// discovery call can have in flight.
const maxGroups = 3

// Inventory is the part of *inventory.Client the discoverer needs.
type Inventory interface {
	Query(ctx context.Context, endpoint query.Endpoint, n query.Node) ([]inventory.Record, error)
	APIVersion() string
}

// Discoverer runs discovery calls. It holds no per-call state and is safe
// for concurrent use.
type Discoverer struct {
	inv      Inventory
	builder  query.Builder
	parallel int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(d *Discoverer) { d.logger = l }
}

// WithMetrics records discovery counts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Discoverer) { d.metrics = m }
}

// WithSequential issues the group requests one after another instead of
// concurrently.
func WithSequential() Option {
	return func(d *Discoverer) { d.parallel = 1 }
}

// New returns a Discoverer backed by inv.
func New(inv Inventory, opts ...Option) *Discoverer {
	d := &Discoverer{
		inv:      inv,
		builder:  query.Builder{APIVersion: inv.APIVersion()},
		parallel: maxGroups,
		logger:   logging.New("discovery"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns the hosts matching f, sorted. Any failing request aborts
// the whole call; partial results are never returned.
func (d *Discoverer) Discover(ctx context.Context, f filter.Filter) ([]string, error) {
	start := time.Now()
	hosts, err := d.discover(ctx, f)
	d.metrics.RecordDiscovery(len(hosts), err, time.Since(start))
	if err != nil {
		d.logger.WarnContext(ctx, "discovery failed", "error", err)
		return nil, err
	}
	d.logger.InfoContext(ctx, "discovery complete", "hosts", len(hosts), "elapsed", time.Since(start))
	return hosts, nil
}

func (d *Discoverer) discover(ctx context.Context, f filter.Filter) ([]string, error) {
	if f.Empty() {
		d.logger.DebugContext(ctx, "no criteria, fetching all nodes")
		all, err := d.allNodes(ctx)
		if err != nil {
			return nil, err
		}
		return hostset.New(all...).Sorted(), nil
	}

	d.logger.DebugContext(ctx, "searching",
		"facts", len(f.Facts), "classes", len(f.Classes), "identities", len(f.Identities))

	// Slots stay nil for groups that were not requested.
	var results [maxGroups]hostset.Set

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallel)
	if len(f.Facts) > 0 {
		g.Go(func() error {
			s, err := d.factSearch(gctx, f.Facts)
			if err != nil {
				return fmt.Errorf("fact search: %w", err)
			}
			results[0] = s
			return nil
		})
	}
	if len(f.Classes) > 0 {
		g.Go(func() error {
			s, err := d.classSearch(gctx, f.Classes)
			if err != nil {
				return fmt.Errorf("class search: %w", err)
			}
			results[1] = s
			return nil
		})
	}
	if len(f.Identities) > 0 {
		g.Go(func() error {
			s, err := d.identitySearch(gctx, f.Identities)
			if err != nil {
				return fmt.Errorf("identity search: %w", err)
			}
			results[2] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return hostset.IntersectAll(results[:]...).Sorted(), nil
}

// factSearch combines every fact criterion into one nodes query.
func (d *Discoverer) factSearch(ctx context.Context, facts []filter.FactCriterion) (hostset.Set, error) {
	records, err := d.inv.Query(ctx, query.Nodes, d.builder.FactQuery(facts))
	if err != nil {
		return nil, err
	}
	hosts, err := inventory.HostNames(records)
	if err != nil {
		return nil, err
	}
	return hostset.New(hosts...), nil
}

// classSearch fetches rows for any requested class and keeps the hosts
// that have all of them.
func (d *Discoverer) classSearch(ctx context.Context, classes []string) (hostset.Set, error) {
	records, err := d.inv.Query(ctx, query.Resources, d.builder.ClassQuery(classes))
	if err != nil {
		return nil, err
	}
	rows := make([]hostset.ClassRow, 0, len(records))
	for i, rec := range records {
		certname := rec.Str("certname")
		if certname == "" {
			return nil, &inventory.Error{
				Kind: inventory.KindMalformedResponse,
				Op:   "read class rows",
				Err:  fmt.Errorf("resource %d has no certname", i),
			}
		}
		rows = append(rows, hostset.ClassRow{Certname: certname, Title: rec.Title()})
	}
	return hostset.GroupByClass(rows, classes)
}

// identitySearch matches identities against the full node list.
func (d *Discoverer) identitySearch(ctx context.Context, identities []string) (hostset.Set, error) {
	all, err := d.allNodes(ctx)
	if err != nil {
		return nil, err
	}
	return hostset.MatchIdentities(all, identities)
}

func (d *Discoverer) allNodes(ctx context.Context) ([]string, error) {
	records, err := d.inv.Query(ctx, query.Nodes, nil)
	if err != nil {
		return nil, err
	}
	return inventory.HostNames(records)
}
