package shelf

import (
	"fmt"

	"github.com/aisleview/shelfwatch/internal/detect"
)

// Region is a static rectangular zone of shelf space. Regions are configured
// once at construction and never change during a session.
type Region struct {
	ID  string     `json:"id"`
	Box detect.Box `json:"box"`
}

// validateRegions rejects configurations that would make membership
// undefined: no regions at all, duplicate identifiers, or degenerate boxes.
func validateRegions(regions []Region) error {
	if len(regions) == 0 {
		return fmt.Errorf("shelf: at least one shelf region is required")
	}
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		if r.ID == "" {
			return fmt.Errorf("shelf: region with empty identifier")
		}
		if seen[r.ID] {
			return fmt.Errorf("shelf: duplicate region identifier %q", r.ID)
		}
		seen[r.ID] = true
		if !r.Box.Valid() {
			return fmt.Errorf("shelf: region %q has degenerate box %+v", r.ID, r.Box)
		}
	}
	return nil
}

// shelfFor returns the identifier of the first configured region containing
// the point (bounds inclusive), or "" when the point is off all shelves.
// Regions are tested in configuration order, so when regions overlap the
// first match wins.
func shelfFor(regions []Region, p detect.Point) string {
	for _, r := range regions {
		if r.Box.Contains(p) {
			return r.ID
		}
	}
	return ""
}
