/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom provides the pure 2D geometry kernel for the storyboard editor:
// bounding boxes, polygon centroid and containment tests, and the mapping
// between screen space and document space. All functions are side-effect free
// and never return errors; degenerate inputs resolve to safe fallbacks so an
// in-progress gesture is never interrupted.
package geom

import "math"

// Values use float64 in document units (page points at 72dpi by convention).

// Pt is a 2D point.
type Pt struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt     { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt     { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Pt  { return Pt{r.X + r.W/2, r.Y + r.H/2} }
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Normalized flips negative extents so W and H are non-negative. Drag gestures
// may sweep up/left of the down point; shapes always store normalized boxes.
func (r Rect) Normalized() Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// PointsBounds returns the tight bounding box over pts. Zero points yield a
// zero-size box at the origin; callers with an anchor should pass it through
// PointsBoundsAt instead.
func PointsBounds(pts []Pt) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// PointsBoundsAt is PointsBounds with a fallback anchor for the degenerate
// zero-point case: the result is a zero-size box at anchor.
func PointsBoundsAt(pts []Pt, anchor Pt) Rect {
	if len(pts) == 0 {
		return Rect{X: anchor.X, Y: anchor.Y}
	}
	return PointsBounds(pts)
}

// centroidEpsilon guards the signed-area centroid against numerically
// degenerate (collinear or near-zero-area) polygons.
const centroidEpsilon = 1e-9

// PolygonCentroid computes the signed-area weighted centroid of a polygon.
// Fewer than 3 vertices, or a numerically degenerate area, fall back to the
// bounding-box center so the result is always a usable label position.
func PolygonCentroid(pts []Pt) Pt {
	if len(pts) < 3 {
		return PointsBounds(pts).Center()
	}
	var area, cx, cy float64
	for i := range pts {
		j := (i + 1) % len(pts)
		cross := pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
		area += cross
		cx += (pts[i].X + pts[j].X) * cross
		cy += (pts[i].Y + pts[j].Y) * cross
	}
	area /= 2
	if math.Abs(area) < centroidEpsilon {
		return PointsBounds(pts).Center()
	}
	return Pt{X: cx / (6 * area), Y: cy / (6 * area)}
}

// PointInPolygon reports whether p lies inside the polygon using the even-odd
// ray casting rule. Polygons with fewer than 3 vertices contain nothing.
func PointInPolygon(p Pt, poly []Pt) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			x := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Transform maps document space to screen space:
//
//	screen = document*Scale + T
//
// It is the only coordinate mapping in the editor; event handlers must go
// through ToDocument/ToScreen instead of inlining the math.
type Transform struct {
	Scale float64 `json:"scale"`
	TX    float64 `json:"tx"`
	TY    float64 `json:"ty"`
}

// IdentityTransform is the neutral mapping (scale 1, no translation).
var IdentityTransform = Transform{Scale: 1}

// ToScreen maps a document-space point to screen space.
func (t Transform) ToScreen(doc Pt) Pt {
	return Pt{X: doc.X*t.Scale + t.TX, Y: doc.Y*t.Scale + t.TY}
}

// ToDocument maps a screen-space point back to document space. A zero scale
// (never produced by the view component, which clamps) maps to the translate
// origin rather than dividing by zero.
func (t Transform) ToDocument(screen Pt) Pt {
	if t.Scale == 0 {
		return Pt{}
	}
	return Pt{X: (screen.X - t.TX) / t.Scale, Y: (screen.Y - t.TY) / t.Scale}
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Pt) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }

// Lerp returns a + t*(b-a) component-wise.
func Lerp(a, b Pt, t float64) Pt {
	return Pt{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Pt) Pt { return Pt{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2} }
