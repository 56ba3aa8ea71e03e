package model

import (
	"fmt"
	"math"
)

// AbsolutePoint is a coordinate relative to a view's root. Distinct from
// ParentRelativePoint so the two spaces can never be mixed by accident;
// conversion happens only through Resolve/RelativeTo below.
type AbsolutePoint struct {
	X, Y float64
}

// ParentRelativePoint is a coordinate relative to a parent Visual Object's
// origin, used for nested visuals.
type ParentRelativePoint struct {
	X, Y float64
}

// NewAbsolutePoint validates and constructs an AbsolutePoint; geometry must
// be finite per spec.md §3's Visual Object invariant.
func NewAbsolutePoint(x, y float64) (AbsolutePoint, error) {
	if !finite(x) || !finite(y) {
		return AbsolutePoint{}, fmt.Errorf("point coordinates must be finite, got (%v, %v)", x, y)
	}
	return AbsolutePoint{X: x, Y: y}, nil
}

// NewParentRelativePoint validates and constructs a ParentRelativePoint.
func NewParentRelativePoint(x, y float64) (ParentRelativePoint, error) {
	if !finite(x) || !finite(y) {
		return ParentRelativePoint{}, fmt.Errorf("point coordinates must be finite, got (%v, %v)", x, y)
	}
	return ParentRelativePoint{X: x, Y: y}, nil
}

// Resolve converts a parent-relative point into an absolute point given the
// absolute position of its parent.
func (p ParentRelativePoint) Resolve(parent AbsolutePoint) AbsolutePoint {
	return AbsolutePoint{X: parent.X + p.X, Y: parent.Y + p.Y}
}

// RelativeTo converts an absolute point into one relative to parent.
func (p AbsolutePoint) RelativeTo(parent AbsolutePoint) ParentRelativePoint {
	return ParentRelativePoint{X: p.X - parent.X, Y: p.Y - parent.Y}
}

// Add returns the sum of two absolute points, useful for applying a layout
// delta.
func (p AbsolutePoint) Add(dx, dy float64) AbsolutePoint {
	return AbsolutePoint{X: p.X + dx, Y: p.Y + dy}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
