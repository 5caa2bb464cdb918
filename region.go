// Package main - region.go
//
// This file implements the quadrilateral screen region model used by the
// perception and click layers. Regions come from percentage calibrations of
// the game layout and are not necessarily axis-aligned rectangles.
package main

import (
	"math"
	"math/rand"
	"sort"
)

// containsTolerance absorbs float error in the triangle area comparison.
const containsTolerance = 1e-10

// Point is a screen position in pixels.
type Point struct {
	X float64
	Y float64
}

// Region is a convex quadrilateral given by its four corners.
type Region struct {
	TopLeft     Point
	TopRight    Point
	BottomLeft  Point
	BottomRight Point
}

// Rect builds an axis-aligned region from two corner coordinates.
func Rect(x1, y1, x2, y2 float64) Region {
	return Region{
		TopLeft:     Point{x1, y1},
		TopRight:    Point{x2, y1},
		BottomLeft:  Point{x1, y2},
		BottomRight: Point{x2, y2},
	}
}

func (r Region) corners() [4]Point {
	return [4]Point{r.TopLeft, r.TopRight, r.BottomRight, r.BottomLeft}
}

// Bounds returns the axis-aligned bounding box of the region.
func (r Region) Bounds() (minX, minY, maxX, maxY float64) {
	c := r.corners()
	minX, maxX = c[0].X, c[0].X
	minY, maxY = c[0].Y, c[0].Y
	for _, p := range c[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// Center returns the arithmetic mean of the four corners.
func (r Region) Center() Point {
	c := r.corners()
	return Point{
		X: (c[0].X + c[1].X + c[2].X + c[3].X) / 4,
		Y: (c[0].Y + c[1].Y + c[2].Y + c[3].Y) / 4,
	}
}

func triangleArea(a, b, c Point) float64 {
	return math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
}

// Contains reports whether p lies inside the quadrilateral. The point is
// inside when the four triangles it forms with adjacent corner pairs sum to
// the area of the quadrilateral itself.
func (r Region) Contains(p Point) bool {
	c := r.corners()
	quad := triangleArea(c[0], c[1], c[2]) + triangleArea(c[0], c[2], c[3])
	var sum float64
	for i := 0; i < 4; i++ {
		sum += triangleArea(p, c[i], c[(i+1)%4])
	}
	return math.Abs(sum-quad) < containsTolerance
}

// Expand grows the region by percent of its own width and height on every
// side and clamps the result to the viewport. percent 0.5 doubles each
// dimension.
func (r Region) Expand(percent float64, vp Viewport) Region {
	minX, minY, maxX, maxY := r.Bounds()
	dx := (maxX - minX) * percent
	dy := (maxY - minY) * percent
	minX = math.Max(0, minX-dx)
	minY = math.Max(0, minY-dy)
	maxX = math.Min(float64(vp.Width), maxX+dx)
	maxY = math.Min(float64(vp.Height), maxY+dy)
	return Rect(minX, minY, maxX, maxY)
}

// axisBounds picks a sampling interval along one axis from the four corner
// coordinates. The interval hugs the closest pair of distinct coordinates so
// sampled points stay near the quadrilateral's narrow side instead of
// drifting outside a slanted edge. When that pair sits at the top of the
// axis the interval collapses to the maximum.
func axisBounds(coords [4]float64) (float64, float64) {
	vals := append([]float64(nil), coords[:]...)
	sort.Float64s(vals)
	uniq := vals[:1]
	for _, v := range vals[1:] {
		if v != uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) <= 2 {
		return uniq[0], uniq[len(uniq)-1]
	}
	low, high := uniq[0], uniq[len(uniq)-1]
	gap := math.Inf(1)
	for i := 1; i < len(uniq); i++ {
		if d := uniq[i] - uniq[i-1]; d < gap {
			gap = d
			low = uniq[i]
		}
	}
	return low, high
}

// RandomPoint returns a uniformly sampled point biased to the interior of
// the region. Sampling may fail for strongly degenerate corner sets; the
// fallback is a fixed point derived from the viewport (its quarter point),
// or (0.5, 0.5) when no viewport is known.
func (r Region) RandomPoint(rng *rand.Rand, vp *Viewport) Point {
	c := r.corners()
	xs := [4]float64{c[0].X, c[1].X, c[2].X, c[3].X}
	ys := [4]float64{c[0].Y, c[1].Y, c[2].Y, c[3].Y}
	x1, x2 := axisBounds(xs)
	y1, y2 := axisBounds(ys)
	if x2 < x1 || y2 < y1 || math.IsNaN(x1) || math.IsNaN(y1) {
		if vp != nil {
			return Point{float64(vp.Width) / 4, float64(vp.Height) / 4}
		}
		return Point{0.5, 0.5}
	}
	return Point{
		X: x1 + rng.Float64()*(x2-x1),
		Y: y1 + rng.Float64()*(y2-y1),
	}
}
