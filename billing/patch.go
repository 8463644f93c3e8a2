package billing

import (
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
)

// Patch is the store-write payload produced by Apply. Field names are the
// client document's JSON field names.
//
// Set replaces whole fields (a nil value clears the field to null).
// Append adds elements to the end of array fields.
type Patch struct {
	Set    map[string]any   `json:"set,omitempty"`
	Append map[string][]any `json:"append,omitempty"`
}

func (p *Patch) set(field string, v any) {
	if p.Set == nil {
		p.Set = make(map[string]any)
	}
	p.Set[field] = v
}

func (p *Patch) append(field string, v any) {
	if p.Append == nil {
		p.Append = make(map[string][]any)
	}
	p.Append[field] = append(p.Append[field], v)
}

// IsEmpty reports whether the patch writes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Set) == 0 && len(p.Append) == 0
}

// Fields lists every field the patch touches, sorted.
func (p Patch) Fields() []string {
	seen := make(map[string]bool, len(p.Set)+len(p.Append))
	for f := range p.Set {
		seen[f] = true
	}
	for f := range p.Append {
		seen[f] = true
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// DOCUMENT MERGE - Used by stores that keep the client as one JSON document
// =============================================================================

// EncodeClient serializes a client document.
func EncodeClient(c Client) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeClient parses a client document.
func DecodeClient(doc []byte) (Client, error) {
	var c Client
	if err := json.Unmarshal(doc, &c); err != nil {
		return Client{}, fmt.Errorf("decode client: %w", err)
	}
	return c, nil
}

// MergePatch applies p to a serialized client document and returns the new
// document. Set fields are written before appends.
func MergePatch(doc []byte, p Patch) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &fields); err != nil {
			return nil, fmt.Errorf("merge patch: decode document: %w", err)
		}
	}

	for field, v := range p.Set {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("merge patch: encode %s: %w", field, err)
		}
		fields[field] = raw
	}

	for field, items := range p.Append {
		var existing []json.RawMessage
		if raw, ok := fields[field]; ok && len(raw) > 0 {
			if err := json.Unmarshal(raw, &existing); err != nil {
				return nil, fmt.Errorf("merge patch: %s is not an array: %w", field, err)
			}
		}
		for _, item := range items {
			raw, err := json.Marshal(item)
			if err != nil {
				return nil, fmt.Errorf("merge patch: encode %s element: %w", field, err)
			}
			existing = append(existing, raw)
		}
		raw, err := json.Marshal(existing)
		if err != nil {
			return nil, fmt.Errorf("merge patch: encode %s: %w", field, err)
		}
		fields[field] = raw
	}

	return json.Marshal(fields)
}
