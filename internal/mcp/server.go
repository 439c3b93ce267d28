package mcp

import (
	"context"
	"fmt"

	"hostscope/internal/discovery"
	"hostscope/internal/filter"
	"hostscope/internal/logging"
	"hostscope/internal/query"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Discoverer is what the server needs from *discovery.Discoverer.
type Discoverer interface {
	Discover(ctx context.Context, f filter.Filter) ([]string, error)
	Explain(f filter.Filter) []discovery.Plan
}

// Server wraps the MCP SDK server and exposes host discovery as tools.
type Server struct {
	MCPServer *sdkmcp.Server

	discoverer Discoverer
}

// NewServer creates an MCP server backed by d.
func NewServer(d Discoverer, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{discoverer: d}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "hostscope", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves the tools over stdio until ctx is canceled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "discover",
		Description: "Find hosts matching fact, class and identity filters. Groups are intersected; an empty filter returns every node.",
	}, s.handleDiscover)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "explain_query",
		Description: "Show the inventory queries a discover call would send, without contacting the service.",
	}, s.handleExplain)
}

// --- Tool input/output types ---

type filterInput struct {
	Facts      []string `json:"facts,omitempty" jsonschema:"fact expressions such as osfamily=Debian or memorysize_mb>=1024"`
	Classes    []string `json:"classes,omitempty" jsonschema:"class names; /regex/ matches class titles"`
	Identities []string `json:"identities,omitempty" jsonschema:"host identifiers; /regex/ matches node names"`
}

type discoverOutput struct {
	Hosts []string `json:"hosts"`
	Count int      `json:"count"`
}

type planOutput struct {
	Group    string `json:"group"`
	Endpoint string `json:"endpoint"`
	Query    string `json:"query,omitempty"`
}

type explainOutput struct {
	Plans []planOutput `json:"plans"`
}

// --- Tool handlers ---

func (s *Server) handleDiscover(ctx context.Context, _ *sdkmcp.CallToolRequest, input filterInput) (*sdkmcp.CallToolResult, discoverOutput, error) {
	f, err := input.filter()
	if err != nil {
		return nil, discoverOutput{}, err
	}
	hosts, err := s.discoverer.Discover(ctx, f)
	if err != nil {
		return nil, discoverOutput{}, fmt.Errorf("discover: %w", err)
	}
	logging.New("mcp").Info("discover", "hosts", len(hosts))
	return nil, discoverOutput{Hosts: hosts, Count: len(hosts)}, nil
}

func (s *Server) handleExplain(_ context.Context, _ *sdkmcp.CallToolRequest, input filterInput) (*sdkmcp.CallToolResult, explainOutput, error) {
	f, err := input.filter()
	if err != nil {
		return nil, explainOutput{}, err
	}
	plans := s.discoverer.Explain(f)
	out := explainOutput{Plans: make([]planOutput, 0, len(plans))}
	for _, p := range plans {
		q, err := query.Marshal(p.Query)
		if err != nil {
			return nil, explainOutput{}, fmt.Errorf("explain_query: %w", err)
		}
		out.Plans = append(out.Plans, planOutput{Group: p.Group, Endpoint: p.Endpoint, Query: string(q)})
	}
	return nil, out, nil
}

func (in filterInput) filter() (filter.Filter, error) {
	facts, err := filter.ParseFacts(in.Facts)
	if err != nil {
		return filter.Filter{}, err
	}
	return filter.Filter{Facts: facts, Classes: in.Classes, Identities: in.Identities}, nil
}
