package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
)

// Box2d is an oriented rectangle defined by its center, heading, and dimensions.
// Length extends along the heading axis, width perpendicular to it.
type Box2d struct {
	center  r2.Point
	heading float64
	length  float64
	width   float64

	cosHeading float64
	sinHeading float64
	halfLength float64
	halfWidth  float64
}

// NewBox2d creates an oriented box.
func NewBox2d(center r2.Point, heading, length, width float64) Box2d {
	return Box2d{
		center:     center,
		heading:    heading,
		length:     length,
		width:      width,
		cosHeading: math.Cos(heading),
		sinHeading: math.Sin(heading),
		halfLength: length / 2,
		halfWidth:  width / 2,
	}
}

// Center returns the center point of the box.
func (b Box2d) Center() r2.Point { return b.center }

// Heading returns the heading of the length axis.
func (b Box2d) Heading() float64 { return b.heading }

// Length returns the extent along the heading axis.
func (b Box2d) Length() float64 { return b.length }

// Width returns the extent perpendicular to the heading axis.
func (b Box2d) Width() float64 { return b.width }

// Corners returns the four corners in counterclockwise order.
func (b Box2d) Corners() [4]r2.Point {
	dxL := b.cosHeading * b.halfLength
	dyL := b.sinHeading * b.halfLength
	dxW := -b.sinHeading * b.halfWidth
	dyW := b.cosHeading * b.halfWidth
	return [4]r2.Point{
		{X: b.center.X + dxL + dxW, Y: b.center.Y + dyL + dyW},
		{X: b.center.X - dxL + dxW, Y: b.center.Y - dyL + dyW},
		{X: b.center.X - dxL - dxW, Y: b.center.Y - dyL - dyW},
		{X: b.center.X + dxL - dxW, Y: b.center.Y + dyL - dyW},
	}
}

// Contains reports whether the point lies inside or on the boundary of the box.
func (b Box2d) Contains(p r2.Point) bool {
	dx := p.X - b.center.X
	dy := p.Y - b.center.Y
	along := dx*b.cosHeading + dy*b.sinHeading
	across := -dx*b.sinHeading + dy*b.cosHeading
	return math.Abs(along) <= b.halfLength && math.Abs(across) <= b.halfWidth
}

// HasOverlap reports whether the segment touches or crosses the box. The test
// is a separating-axis check over the two box axes and the segment normal;
// touching boundaries count as overlap.
func (b Box2d) HasOverlap(l LineSegment) bool {
	ux, uy := b.cosHeading, b.sinHeading
	vx, vy := -b.sinHeading, b.cosHeading

	d1x := l.Start.X - b.center.X
	d1y := l.Start.Y - b.center.Y
	d2x := l.End.X - b.center.X
	d2y := l.End.Y - b.center.Y

	s1 := d1x*ux + d1y*uy
	s2 := d2x*ux + d2y*uy
	if math.Max(s1, s2) < -b.halfLength || math.Min(s1, s2) > b.halfLength {
		return false
	}

	t1 := d1x*vx + d1y*vy
	t2 := d2x*vx + d2y*vy
	if math.Max(t1, t2) < -b.halfWidth || math.Min(t1, t2) > b.halfWidth {
		return false
	}

	// segment normal axis
	ex := l.End.X - l.Start.X
	ey := l.End.Y - l.Start.Y
	nx, ny := -ey, ex
	if nx == 0 && ny == 0 {
		return true
	}
	boxRadius := b.halfLength*math.Abs(ux*nx+uy*ny) + b.halfWidth*math.Abs(vx*nx+vy*ny)
	segProj := d1x*nx + d1y*ny
	return math.Abs(segProj) <= boxRadius
}
