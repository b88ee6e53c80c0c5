package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
)

// LineSegment is a 2d segment between two points.
type LineSegment struct {
	Start r2.Point
	End   r2.Point
}

// NewLineSegment creates a segment from start to end.
func NewLineSegment(start, end r2.Point) LineSegment {
	return LineSegment{Start: start, End: end}
}

// Length returns the euclidean length of the segment.
func (l LineSegment) Length() float64 {
	return math.Hypot(l.End.X-l.Start.X, l.End.Y-l.Start.Y)
}
