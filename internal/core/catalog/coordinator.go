package catalog

import (
	"github.com/samirrijal/nearme/internal/core/domain"
	"github.com/samirrijal/nearme/internal/core/ports"
)

// Coordinator is the only writer of selection state. Every change is pushed
// to the registered projections before the mutating call returns.
type Coordinator struct {
	catalog     *Catalog
	selectedID  string
	projections []ports.Projection
}

// NewCoordinator creates a coordinator over c.
func NewCoordinator(c *Catalog, projections ...ports.Projection) *Coordinator {
	return &Coordinator{catalog: c, projections: projections}
}

// Register adds a projection.
func (s *Coordinator) Register(p ports.Projection) {
	s.projections = append(s.projections, p)
}

// Unregister removes a projection added earlier. Unknown projections are
// ignored.
func (s *Coordinator) Unregister(p ports.Projection) {
	for i, q := range s.projections {
		if q == p {
			s.projections = append(s.projections[:i:i], s.projections[i+1:]...)
			return
		}
	}
}

// Catalog exposes the coordinated catalog for reads.
func (s *Coordinator) Catalog() *Catalog {
	return s.catalog
}

// ReplaceCatalog installs a new catalog generation. Selection does not
// survive a replace.
func (s *Coordinator) ReplaceCatalog(raw []domain.RawPlace) (dropped int) {
	return s.ReplaceCatalogAt(s.catalog.Generation()+1, raw)
}

// ReplaceCatalogAt is ReplaceCatalog installing generation gen.
func (s *Coordinator) ReplaceCatalogAt(gen uint64, raw []domain.RawPlace) (dropped int) {
	hadSelection := s.selectedID != ""
	dropped = s.catalog.ReplaceAt(gen, raw)
	s.selectedID = ""

	records := s.catalog.Records()
	for _, p := range s.projections {
		p.OnCatalogReplaced(records)
	}
	if hadSelection {
		s.notify()
	}
	return dropped
}

// Select makes id the selected place. An id that is not in the current
// catalog leaves nothing selected.
func (s *Coordinator) Select(id string) {
	s.catalog.clearSelected()
	s.selectedID = ""
	if id != "" && s.catalog.markSelected(id) {
		s.selectedID = id
	}
	s.notify()
}

// ClearSelection unselects whatever is selected.
func (s *Coordinator) ClearSelection() {
	s.catalog.clearSelected()
	s.selectedID = ""
	s.notify()
}

// CurrentSelectionID returns the selected place id, if any.
func (s *Coordinator) CurrentSelectionID() (string, bool) {
	return s.selectedID, s.selectedID != ""
}

func (s *Coordinator) notify() {
	for _, p := range s.projections {
		p.OnSelectionChanged(s.selectedID, s.selectedID != "")
	}
}
