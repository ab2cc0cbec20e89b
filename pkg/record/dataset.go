package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Dataset is the read-only record set the rendering side embeds once per
// page, keyed by identity. It serves as the authoritative counterpart to
// the DOM scrape: either side may be the primary source.
type Dataset map[string]Product

// Product is one dataset entry in the embedded JSON shape. The producer
// is loose with types (numeric ids, stringified prices), so decoding
// tolerates both.
type Product struct {
	ID           flexString  `json:"id"`
	Title        string      `json:"title"`
	Price        flexFloat   `json:"price"`
	RegularPrice flexFloat   `json:"regular_price"`
	SalePrice    flexFloat   `json:"sale_price"`
	OnSale       bool        `json:"on_sale"`
	MinPrice     flexFloat   `json:"min_price"`
	MaxPrice     flexFloat   `json:"max_price"`
	Categories   flexStrings `json:"categories"`
	Tags         flexStrings `json:"tags"`

	// Attributes maps taxonomy names (pa_color) to value slug lists.
	Attributes map[string]flexStrings `json:"attributes"`
}

func ParseDataset(raw []byte) (Dataset, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Dataset{}, nil
	}
	var ds Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("parse product dataset: %w", err)
	}
	return ds, nil
}

func (d Dataset) Has(identity string) bool {
	_, ok := d[identity]
	return ok
}

// EachTitle implements identity.TitleSource for the slug fallback.
func (d Dataset) EachTitle(fn func(identity, title string) bool) {
	for id, p := range d {
		if !fn(id, p.Title) {
			return
		}
	}
}

// Record normalizes one dataset entry into a ProductRecord, applying the
// same lowercasing and price precedence as the DOM path.
func (d Dataset) Record(identity string) *ProductRecord {
	p, ok := d[identity]
	if !ok {
		return nil
	}
	rec := New(identity)
	rec.Title = strings.ToLower(strings.TrimSpace(p.Title))
	rec.Price = EffectivePrice(
		float64(p.Price), float64(p.SalePrice), float64(p.RegularPrice), float64(p.MinPrice),
	)
	rec.Categories = append(rec.Categories, p.Categories...)
	rec.Tags = append(rec.Tags, p.Tags...)
	for name, values := range p.Attributes {
		set := make([]string, 0, len(values))
		for _, v := range values {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" {
				set = append(set, v)
			}
		}
		if len(set) > 0 {
			rec.Attributes[name] = set
		}
	}
	return rec
}

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// flexFloat decodes a JSON number or numeric string; anything else is
// zero, matching the "malformed numeric defaults to zero" policy.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexStrings decodes an array of strings and/or numbers into strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s flexString
		if err := s.UnmarshalJSON(item); err != nil {
			return err
		}
		if s != "" {
			out = append(out, string(s))
		}
	}
	*f = out
	return nil
}
