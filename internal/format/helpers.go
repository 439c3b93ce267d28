package format

import (
	"encoding/json"
	"fmt"
	"io"

	"hostscope/internal/discovery"
	"hostscope/internal/query"
)

// maxQueryWidth wraps long queries in table output.
const maxQueryWidth = 80

// WriteHosts writes hosts in mode m.
func WriteHosts(w io.Writer, hosts []string, m Mode) error {
	switch m {
	case JSON:
		return writeJSON(w, hosts)
	case ASCII, Markdown:
		tb := NewTable(m)
		tb.Header("#", "Host")
		for i, h := range hosts {
			tb.Row(i+1, h)
		}
		tb.Footer("", fmt.Sprintf("%d hosts", len(hosts)))
		tb.Columns(ColumnConfig{Number: 1, Align: AlignRight})
		_, err := fmt.Fprintln(w, tb.String())
		return err
	}
	for _, h := range hosts {
		if _, err := fmt.Fprintln(w, h); err != nil {
			return err
		}
	}
	return nil
}

type planRow struct {
	Group    string          `json:"group"`
	Endpoint string          `json:"endpoint"`
	Query    json.RawMessage `json:"query,omitempty"`
}

// WritePlans writes the requests a discovery would make. A plan without a
// query fetches the full node list.
func WritePlans(w io.Writer, plans []discovery.Plan, m Mode) error {
	rows := make([]planRow, 0, len(plans))
	for _, p := range plans {
		q, err := query.Marshal(p.Query)
		if err != nil {
			return fmt.Errorf("plan %s: %w", p.Group, err)
		}
		rows = append(rows, planRow{Group: p.Group, Endpoint: p.Endpoint, Query: q})
	}

	switch m {
	case JSON:
		return writeJSON(w, rows)
	case ASCII, Markdown:
		tb := NewTable(m)
		tb.Header("Group", "Endpoint", "Query")
		for _, r := range rows {
			tb.Row(r.Group, r.Endpoint, queryText(r.Query))
		}
		tb.Columns(ColumnConfig{Number: 3, MaxWidth: maxQueryWidth})
		_, err := fmt.Fprintln(w, tb.String())
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-10s %-9s %s\n", r.Group, r.Endpoint, queryText(r.Query)); err != nil {
			return err
		}
	}
	return nil
}

func queryText(q []byte) string {
	if len(q) == 0 {
		return "(all nodes)"
	}
	return string(q)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
