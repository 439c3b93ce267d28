package inventory

import (
	"fmt"
)

// Record is one object of an inventory response. Node records carry the
// host in "name" on older API generations and in "certname" on newer ones;
// resource records carry "certname" and "title".
type Record map[string]any

// Str returns the string value of key, or "" when absent or not a string.
func (r Record) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// HostName returns "name" when present, otherwise "certname".
func (r Record) HostName() string {
	if name := r.Str("name"); name != "" {
		return name
	}
	return r.Str("certname")
}

// Title returns the resource title.
func (r Record) Title() string { return r.Str("title") }

// HostNames extracts the host identifier of every record. A record with
// neither "name" nor "certname" is a malformed response.
func HostNames(records []Record) ([]string, error) {
	out := make([]string, 0, len(records))
	for i, rec := range records {
		h := rec.HostName()
		if h == "" {
			return nil, newError(KindMalformedResponse, "read host names",
				fmt.Errorf("record %d has neither name nor certname", i))
		}
		out = append(out, h)
	}
	return out, nil
}
