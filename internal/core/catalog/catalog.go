// Package catalog holds the place list of one discovery session and the
// coordinator that owns its selection. Neither type is safe for concurrent
// use; a session drives both from a single goroutine.
package catalog

import (
	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/pkg/geospatial"
)

// Catalog is the ordered set of places produced by the latest search.
type Catalog struct {
	records    []domain.PlaceRecord
	index      map[string]int
	generation uint64
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Replace discards every record and installs one per well-formed payload, in
// provider order. Duplicate candidates each get their own record. It returns
// the number of payloads dropped as malformed.
func (c *Catalog) Replace(raw []domain.RawPlace) (dropped int) {
	return c.ReplaceAt(c.generation+1, raw)
}

// ReplaceAt is Replace with the new generation chosen by the caller, so a
// search tag and the catalog it installs carry the same number. A gen not
// above the current one is raised to current+1.
func (c *Catalog) ReplaceAt(gen uint64, raw []domain.RawPlace) (dropped int) {
	records := make([]domain.PlaceRecord, 0, len(raw))
	index := make(map[string]int, len(raw))

	for _, r := range raw {
		rec, err := domain.NewPlaceRecord(r)
		if err != nil {
			dropped++
			continue
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}

	if gen <= c.generation {
		gen = c.generation + 1
	}
	c.records = records
	c.index = index
	c.generation = gen
	return dropped
}

// Generation identifies the installed record set. It only grows.
func (c *Catalog) Generation() uint64 {
	return c.generation
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Records returns a copy of the records in provider order.
func (c *Catalog) Records() []domain.PlaceRecord {
	out := make([]domain.PlaceRecord, len(c.records))
	copy(out, c.records)
	return out
}

// RecordsOrderedWithSelectionFirst returns a copy of the records with the
// selected one, if any, moved to the front. The rest keep provider order.
func (c *Catalog) RecordsOrderedWithSelectionFirst() []domain.PlaceRecord {
	out := make([]domain.PlaceRecord, 0, len(c.records))
	sel := c.selectedIndex()
	if sel >= 0 {
		out = append(out, c.records[sel])
	}
	for i, r := range c.records {
		if i != sel {
			out = append(out, r)
		}
	}
	return out
}

// Get looks a record up by id.
func (c *Catalog) Get(id string) (domain.PlaceRecord, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.PlaceRecord{}, false
	}
	return c.records[i], true
}

// DistanceFrom returns the great-circle distance in meters from origin to rec.
func (c *Catalog) DistanceFrom(origin domain.GeoPoint, rec domain.PlaceRecord) float64 {
	return geospatial.Distance(origin, rec.Location)
}

func (c *Catalog) selectedIndex() int {
	for i, r := range c.records {
		if r.Selected {
			return i
		}
	}
	return -1
}

// clearSelected unsets the flag on every record.
func (c *Catalog) clearSelected() {
	for i := range c.records {
		c.records[i].Selected = false
	}
}

// markSelected flags the record with the given id and reports whether it exists.
func (c *Catalog) markSelected(id string) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.records[i].Selected = true
	return true
}
