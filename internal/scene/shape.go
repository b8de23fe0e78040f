/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene defines the storyboard data model: the ordered shape list that
// makes up one page (the scene graph), the pose rig records attached to
// character cutouts, and the snapshot-based undo history. Shapes are a closed
// kind-discriminated union; every consumer (compositor, hit-testing, resize)
// switches exhaustively over Kind.
package scene

import (
	"reflect"

	"github.com/google/uuid"

	"gostoryboard/internal/geom"
)

// Kind discriminates the shape union. The list order of a page's shapes is the
// render/z-order (later shapes draw on top).
type Kind string

const (
	KindPanel   Kind = "panel"
	KindText    Kind = "text"
	KindBubble  Kind = "bubble"
	KindDrawing Kind = "drawing"
	KindCutout  Kind = "cutout"
	KindArrow   Kind = "arrow"
)

// BubbleKind selects the speech-bubble silhouette.
type BubbleKind string

const (
	BubbleRounded BubbleKind = "rounded"
	BubbleOval    BubbleKind = "oval"
	BubbleRect    BubbleKind = "rect"
)

// Color is an 8-bit RGBA color, serialized inline with the shape.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

var (
	Black = Color{0, 0, 0, 255}
	White = Color{255, 255, 255, 255}
)

// Stroke is one freehand polyline in document space (or, inside a freehand
// pose overlay, normalized to the owning cutout's box).
type Stroke struct {
	Points []geom.Pt `json:"points"`
}

// Shape is one visual element on the canvas. Fields beyond the common block
// are meaningful only for the kinds that use them and are omitted from JSON
// otherwise.
type Shape struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// Document-space anchor and optional extent.
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width,omitempty"`
	H float64 `json:"height,omitempty"`

	// Panel: explicit closed polygon (>=3 vertices). The bounding box is the
	// tight box of these points, never the stored W/H.
	Points []geom.Pt `json:"points,omitempty"`

	// Text and Bubble content. FontSize applies to Text shapes only.
	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`

	// Bubble silhouette and optional free-floating tail target point.
	Bubble BubbleKind `json:"bubble,omitempty"`
	Tail   *geom.Pt   `json:"tail,omitempty"`

	// Drawing strokes; Color and Width also style Arrow shapes.
	Strokes []Stroke `json:"strokes,omitempty"`
	Color   Color    `json:"color,omitempty"`
	Width   float64  `json:"strokeWidth,omitempty"`

	// Cutout bookkeeping. PanelIndex records which panel the cutout was
	// dropped into; it is informational, not enforced.
	ImageRef    string `json:"imageRef,omitempty"`
	CharacterID string `json:"characterId,omitempty"`
	PanelIndex  int    `json:"panelIndex,omitempty"`
	Pose        *Pose  `json:"pose,omitempty"`
}

// NewID returns a fresh shape identifier.
func NewID() string { return uuid.NewString() }

// Bounds returns the shape's document-space bounding box. Point-backed kinds
// (Panel, Arrow, Drawing) derive it from their points; everything else uses
// the stored box. Degenerate point sets collapse to a zero-size box at the
// anchor.
func (s *Shape) Bounds() geom.Rect {
	switch s.Kind {
	case KindPanel, KindArrow:
		return geom.PointsBoundsAt(s.Points, geom.Pt{X: s.X, Y: s.Y})
	case KindDrawing:
		var all []geom.Pt
		for _, st := range s.Strokes {
			all = append(all, st.Points...)
		}
		return geom.PointsBoundsAt(all, geom.Pt{X: s.X, Y: s.Y})
	default:
		return geom.R(s.X, s.Y, s.W, s.H)
	}
}

// Hit reports whether p falls on the shape's body. Panels test their actual
// polygon; all other kinds use the bounding box, which matches how selection
// behaves in the editor.
func (s *Shape) Hit(p geom.Pt) bool {
	if s.Kind == KindPanel {
		return geom.PointInPolygon(p, s.Points)
	}
	return s.Bounds().Contains(p)
}

// Resizable reports whether the shape exposes corner resize handles. Panels
// are reshaped per-vertex and arrows per-endpoint instead.
func (s *Shape) Resizable() bool {
	switch s.Kind {
	case KindCutout, KindBubble, KindText:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of the shape.
func (s *Shape) Clone() *Shape {
	c := *s
	if s.Points != nil {
		c.Points = append([]geom.Pt(nil), s.Points...)
	}
	if s.Strokes != nil {
		c.Strokes = cloneStrokes(s.Strokes)
	}
	if s.Tail != nil {
		t := *s.Tail
		c.Tail = &t
	}
	if s.Pose != nil {
		c.Pose = s.Pose.Clone()
	}
	return &c
}

func cloneStrokes(in []Stroke) []Stroke {
	out := make([]Stroke, len(in))
	for i, st := range in {
		out[i] = Stroke{Points: append([]geom.Pt(nil), st.Points...)}
	}
	return out
}

// CloneShapes deep-copies a whole shape list, preserving order.
func CloneShapes(in []*Shape) []*Shape {
	if in == nil {
		return nil
	}
	out := make([]*Shape, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// ShapesEqual reports whether two shape lists describe the same scene,
// comparing every shape field deeply and the z-order.
func ShapesEqual(a, b []*Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// CountPanels returns the number of Panel shapes in the list.
func CountPanels(shapes []*Shape) int {
	n := 0
	for _, s := range shapes {
		if s.Kind == KindPanel {
			n++
		}
	}
	return n
}

// PanelOrdinal returns the 1-based ordinal of the shape among Panel shapes in
// list order, or 0 if the shape is not a panel in the list.
func PanelOrdinal(shapes []*Shape, id string) int {
	n := 0
	for _, s := range shapes {
		if s.Kind != KindPanel {
			continue
		}
		n++
		if s.ID == id {
			return n
		}
	}
	return 0
}

// PanelAt returns the topmost (last in z-order) panel containing p, or nil.
// Used to resolve which panel a dropped character cutout lands in.
func PanelAt(shapes []*Shape, p geom.Pt) *Shape {
	for i := len(shapes) - 1; i >= 0; i-- {
		s := shapes[i]
		if s.Kind == KindPanel && geom.PointInPolygon(p, s.Points) {
			return s
		}
	}
	return nil
}

// FindShape returns the shape with the given id, or nil.
func FindShape(shapes []*Shape, id string) *Shape {
	for _, s := range shapes {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// TopmostAt returns the topmost shape whose body contains p, or nil.
func TopmostAt(shapes []*Shape, p geom.Pt) *Shape {
	for i := len(shapes) - 1; i >= 0; i-- {
		if shapes[i].Hit(p) {
			return shapes[i]
		}
	}
	return nil
}

// RectPolygon builds the 4 corner points of r in clockwise order, the implied
// polygon of a panel created by a rectangular drag.
func RectPolygon(r geom.Rect) []geom.Pt {
	r = r.Normalized()
	return []geom.Pt{
		{X: r.X, Y: r.Y},
		{X: r.X + r.W, Y: r.Y},
		{X: r.X + r.W, Y: r.Y + r.H},
		{X: r.X, Y: r.Y + r.H},
	}
}
