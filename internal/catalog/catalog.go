// Package catalog holds the compatibility dataset: an immutable table
// mapping canonical feature identifiers (css.properties.float,
// api.Clipboard.writeText, html.elements.dialog, ...) to Baseline records.
// The bundled dataset is loaded at most once per process; all queries run
// against the in-memory table.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

//go:embed data/features.json
var rawDataset []byte

// Catalog is an immutable feature table. Safe for concurrent reads.
type Catalog struct {
	version string
	records map[string]*Record
}

// dataset is the on-disk shape of the bundled data.
type dataset struct {
	Version  string   `json:"version"`
	Features []Record `json:"features"`
}

// Parse builds a Catalog from dataset JSON. Duplicate ids and records
// without an id are load errors: the dataset is a build artifact, so a
// malformed one should fail loudly rather than resolve quietly wrong.
func Parse(data []byte) (*Catalog, error) {
	var ds dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("catalog: parse dataset: %w", err)
	}

	records := make(map[string]*Record, len(ds.Features))
	for i := range ds.Features {
		rec := &ds.Features[i]
		if rec.ID == "" {
			return nil, fmt.Errorf("catalog: record %d has no id", i)
		}
		if _, dup := records[rec.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %q", rec.ID)
		}
		records[rec.ID] = rec
	}
	return &Catalog{version: ds.Version, records: records}, nil
}

var (
	loadGroup singleflight.Group
	loaded    atomic.Pointer[Catalog]
)

// Load returns the process-wide catalog parsed from the bundled dataset.
// Concurrent first calls share a single in-flight parse; later calls
// return the cached table. The result is immutable, so sharing it across
// every Analyzer in the process is safe.
func Load() (*Catalog, error) {
	if c := loaded.Load(); c != nil {
		return c, nil
	}
	v, err, _ := loadGroup.Do("bundled", func() (any, error) {
		c, err := Parse(rawDataset)
		if err != nil {
			return nil, err
		}
		loaded.Store(c)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

// Get returns the record for a feature id.
func (c *Catalog) Get(id string) (*Record, bool) {
	rec, ok := c.records[id]
	return rec, ok
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Version returns the dataset version string.
func (c *Catalog) Version() string {
	return c.version
}

// IDs returns all feature ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
