package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// LoadJSON decodes a scrip master JSON array (the venue's published format)
// and normalizes it into a Catalog.
func LoadJSON(r io.Reader) (*Catalog, error) {
	var rows []RawRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode scrip master: %w", err)
	}
	return Load(rows)
}

// csvColumns maps header names to RawRow field setters. Header matching is
// case-insensitive; unknown columns are ignored.
var csvColumns = map[string]func(*RawRow, string){
	"token":          func(r *RawRow, v string) { r.Token = v },
	"symbol":         func(r *RawRow, v string) { r.Symbol = v },
	"name":           func(r *RawRow, v string) { r.Name = v },
	"expiry":         func(r *RawRow, v string) { r.Expiry = v },
	"strike":         func(r *RawRow, v string) { r.Strike = v },
	"lotsize":        func(r *RawRow, v string) { r.LotSize = v },
	"instrumenttype": func(r *RawRow, v string) { r.InstrumentType = v },
	"exch_seg":       func(r *RawRow, v string) { r.ExchSeg = v },
	"tick_size":      func(r *RawRow, v string) { r.TickSize = v },
}

// LoadCSV decodes an instruments.csv export with a header row and normalizes
// it into a Catalog. Required columns missing from the header fail the load.
func LoadCSV(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	setters := make([]func(*RawRow, string), len(header))
	seen := make(map[string]bool)
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		setters[i] = csvColumns[name]
		if setters[i] != nil {
			seen[name] = true
		}
	}
	for _, required := range []string{"token", "symbol", "name", "exch_seg"} {
		if !seen[required] {
			return nil, &MalformedCatalogError{Row: 0, Field: required, Reason: "column missing from header"}
		}
	}

	var rows []RawRow
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+1, err)
		}
		var raw RawRow
		for i, v := range fields {
			if i < len(setters) && setters[i] != nil {
				setters[i](&raw, v)
			}
		}
		rows = append(rows, raw)
	}
	return Load(rows)
}
