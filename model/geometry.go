package model

import (
	"fmt"
	"math"
)

// Point represents a 2D point in PDF user space
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle given by its lower-left (Min) and
// upper-right (Max) corners.
type Rect struct {
	Min Point
	Max Point
}

// NewRect creates a rectangle from two opposite corners in any order
func NewRect(p1, p2 Point) Rect {
	return Rect{
		Min: Point{X: math.Min(p1.X, p2.X), Y: math.Min(p1.Y, p2.Y)},
		Max: Point{X: math.Max(p1.X, p2.X), Y: math.Max(p1.Y, p2.Y)},
	}
}

// RectFromArray builds a rectangle from a PDF box array [llx lly urx ury]
func RectFromArray(box []float64) (Rect, error) {
	if len(box) != 4 {
		return Rect{}, fmt.Errorf("rectangle needs 4 numbers, got %d", len(box))
	}
	return NewRect(Point{box[0], box[1]}, Point{box[2], box[3]}), nil
}

// Array returns the rectangle as [llx lly urx ury]
func (r Rect) Array() [4]float64 {
	return [4]float64{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
}

// Width returns the horizontal extent
func (r Rect) Width() float64 {
	return r.Max.X - r.Min.X
}

// Height returns the vertical extent
func (r Rect) Height() float64 {
	return r.Max.Y - r.Min.Y
}

// IsEmpty returns true if the rectangle has zero area
func (r Rect) IsEmpty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// String formats the rectangle as "llx lly urx ury"
func (r Rect) String() string {
	return fmt.Sprintf("%g %g %g %g", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// rectPtrEqual compares optional rectangles; two nils are equal.
func rectPtrEqual(a, b *Rect) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
