// Package detection extracts candidate marker regions from a binary mask.
//
// The package takes the foreground mask produced by the segmenter and turns
// it into a list of bounded regions, one per blob of marker material.
//
// # Algorithm Overview
//
//  1. Contour Finding: Label 8-connected foreground components and follow the
//     outer border of every component that is not nested inside a hole of
//     another component
//  2. Measurement: Compute the enclosed area of each border polygon and its
//     bounding shape (axis-aligned box or minimum-area rotated rectangle)
//  3. Filtering: Drop specks below the minimum area and slivers below the
//     minimum width or height
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Contour points are pixel centres, so a filled w×h block has a border
//     polygon of (w-1)×(h-1) and an axis-aligned box of w×h
//
// # Ordering
//
// Regions are returned in discovery order: the raster-scan order (top to
// bottom, then left to right) of the first pixel of each component. The order
// is deterministic but carries no geometric meaning beyond that.
//
// # Area Semantics
//
// Region area is the shoelace area of the traced border polygon, not the
// pixel count. Thin one-pixel lines and isolated pixels have zero area.
package detection
