// Package inventory is the client for the inventory service's JSON query API.
//
// Usage:
//
//	client, err := inventory.New(cfg, inventory.WithLogger(logger))
//	records, err := client.Query(ctx, query.Resources, query.BuildClassQuery([]string{"apache"}))
//	hosts, err := client.Nodes(ctx)
//
// Requests go to /v{api_version}/{nodes|resources} with the serialized query
// AST in the "query" parameter. The transport (plain HTTP, TLS with client
// certificates, or Kerberos SPNEGO) is chosen once by NewTransport; every
// failure comes back as an *Error whose Kind tells configuration, request,
// transport, decoding and timeout failures apart.
package inventory
