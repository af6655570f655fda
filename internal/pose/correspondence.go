package pose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ironsheep/marker-pose/internal/detection"
)

// Role identifies one of the four reference corners of the marker board.
// The numeric value is the index into Correspondence and the reference
// corner list.
type Role int

const (
	TopLeft Role = iota
	BottomLeft
	TopRight
	BottomRight
)

// Roles lists every role in index order.
var Roles = [4]Role{TopLeft, BottomLeft, TopRight, BottomRight}

func (r Role) String() string {
	switch r {
	case TopLeft:
		return "top-left"
	case BottomLeft:
		return "bottom-left"
	case TopRight:
		return "top-right"
	case BottomRight:
		return "bottom-right"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Correspondence holds one image point per role, indexed by Role.
type Correspondence [4]detection.Point2

// Ordering decides which region plays which role.
type Ordering int

const (
	// OrderSpatial sorts the regions by centroid: the two with the smallest X
	// form the left column, and each column is ordered top to bottom.
	OrderSpatial Ordering = iota

	// OrderDiscovery gives region i role i, in extractor discovery order.
	// Correct only when the markers happen to be discovered in role order.
	OrderDiscovery
)

func (o Ordering) String() string {
	switch o {
	case OrderSpatial:
		return "spatial"
	case OrderDiscovery:
		return "discovery"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// MarshalText encodes the ordering by name.
func (o Ordering) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ParseOrdering maps "spatial" (the default for an empty string) or
// "discovery" to an Ordering.
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spatial", "":
		return OrderSpatial, nil
	case "discovery":
		return OrderDiscovery, nil
	default:
		return OrderSpatial, fmt.Errorf("unknown correspondence ordering %q (want spatial or discovery)", s)
	}
}

// BuildCorrespondence assigns the four regions to roles and takes each
// region's anchor corner for its role.
//
// Returns false unless there are exactly four regions. The regions slice is
// not modified.
//
// # Anchors
//
// Each role uses the corner of its region that points away from the board
// centre: the top-left marker contributes its top-left corner, the
// bottom-right marker its bottom-right corner, and so on. See
// detection.Region.Corners for how corners are measured per variant.
func BuildCorrespondence(regions []detection.Region, ordering Ordering) (Correspondence, bool) {
	if len(regions) != 4 {
		return Correspondence{}, false
	}

	assigned := [4]detection.Region{regions[0], regions[1], regions[2], regions[3]}
	if ordering == OrderSpatial {
		assigned = spatialOrder(assigned)
	}

	var c Correspondence
	for _, role := range Roles {
		tl, bl, tr, br := assigned[role].Corners()
		switch role {
		case TopLeft:
			c[role] = tl
		case BottomLeft:
			c[role] = bl
		case TopRight:
			c[role] = tr
		case BottomRight:
			c[role] = br
		}
	}
	return c, true
}

func spatialOrder(regions [4]detection.Region) [4]detection.Region {
	sorted := regions[:]
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Centroid().X < sorted[j].Centroid().X
	})

	byY := func(a, b detection.Region) (detection.Region, detection.Region) {
		if b.Centroid().Y < a.Centroid().Y {
			return b, a
		}
		return a, b
	}

	var out [4]detection.Region
	out[TopLeft], out[BottomLeft] = byY(sorted[0], sorted[1])
	out[TopRight], out[BottomRight] = byY(sorted[2], sorted[3])
	return out
}
