/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interact turns raw pointer and keyboard events into edits on a
// page's shape list. One Controller owns the selection, the active tool and
// the single in-progress action; all mutation goes through the page history
// so gestures stay undoable.
//
// Every move handler derives geometry from the pointer-down snapshot and the
// latest absolute pointer position. Hosts may drop or coalesce intermediate
// move events and the final geometry still matches the last position exactly.
package interact

import (
	"fmt"

	"gostoryboard/internal/geom"
	"gostoryboard/internal/pose"
	"gostoryboard/internal/scene"
	"gostoryboard/internal/script"
	"gostoryboard/internal/view"
)

// Tool is the palette selection driving pointer-down dispatch.
type Tool int

const (
	ToolSelect Tool = iota
	ToolPan
	ToolPanel
	ToolText
	ToolBubble
	ToolDraw
	ToolArrow
)

// Action is the single current interaction. Exactly one is active at a time;
// mutually exclusive by construction.
type Action int

const (
	ActionNone Action = iota
	ActionPan
	ActionCreate
	ActionDraw
	ActionDrag
	ActionResize
	ActionTailDrag
	ActionVertexEdit
	ActionArrowEnd
)

// Corner identifies a resize handle.
type Corner int

const (
	CornerNW Corner = iota
	CornerNE
	CornerSW
	CornerSE
)

// KeyCommand is a global editor shortcut, already resolved from the host
// toolkit's key event (Ctrl/Cmd handling stays in the UI layer).
type KeyCommand int

const (
	KeyUndo KeyCommand = iota
	KeyRedo
	KeyDelete
	KeyEscape
)

// Modifiers are the keyboard modifiers relevant to pointer dispatch.
type Modifiers struct {
	Space bool // space-pan override
}

// Settings are interaction tunables. The minimum commit size and default
// sizes are presentation choices, configurable rather than fixed.
type Settings struct {
	MinShapeSize    float64 // bubbles and panels smaller than this on either axis are discarded at release
	HandlePx        float64 // handle hit radius in screen pixels
	DefaultFontSize float64
	FontStep        float64 // per-step font size increment
	View            view.Settings
}

// DefaultSettings returns the stock interaction behavior.
func DefaultSettings() Settings {
	return Settings{
		MinShapeSize:    10,
		HandlePx:        8,
		DefaultFontSize: 16,
		FontStep:        2,
		View:            view.DefaultSettings(),
	}
}

// Controller owns all interaction state for one open page.
type Controller struct {
	st       Settings
	page     *scene.Page
	pageSize geom.Size
	hist     *scene.History

	shapes   []*scene.Shape
	viewT    geom.Transform
	viewport geom.Size

	tool       Tool
	bubbleKind scene.BubbleKind
	action     Action
	selected   string

	// Gesture bookkeeping, captured at pointer-down. All absolute so that a
	// coalesced event stream lands on identical final geometry.
	downDoc      geom.Pt
	downScreen   geom.Pt
	startView    geom.Transform
	startShapes  []*scene.Shape
	gestureStart *scene.Shape
	createID     string
	dragOffset   geom.Pt
	resizeAnchor geom.Pt
	vertexIdx    int
	arrowEnd     int
	guide        *geom.Rect

	editingText string // shape ID with an open inline editor, "" if none
	poseEditing bool

	// OnBeginTextEdit is called when a gesture opens inline text editing.
	OnBeginTextEdit func(shapeID string)
}

// NewController attaches a controller to a page. The page's script sections
// are kept aligned with its panel count on every commit.
func NewController(page *scene.Page, pageSize geom.Size, st Settings) *Controller {
	c := &Controller{
		st:         st,
		page:       page,
		pageSize:   pageSize,
		hist:       scene.NewHistory(page.Shapes),
		shapes:     scene.CloneShapes(page.Shapes),
		viewT:      geom.IdentityTransform,
		bubbleKind: scene.BubbleRounded,
		selected:   "",
	}
	c.hist.OnPanelCountChange(func(oldCount, newCount int) {
		page.Script = script.Resection(page.Script, newCount)
	})
	return c
}

// Shapes returns the live shape list. Callers must treat it as read-only.
func (c *Controller) Shapes() []*scene.Shape { return c.shapes }

func (c *Controller) Action() Action        { return c.action }
func (c *Controller) Tool() Tool            { return c.tool }
func (c *Controller) SetTool(t Tool)        { c.tool = t }
func (c *Controller) SelectedID() string    { return c.selected }
func (c *Controller) CanUndo() bool         { return c.hist.CanUndo() }
func (c *Controller) CanRedo() bool         { return c.hist.CanRedo() }
func (c *Controller) EditingText() string   { return c.editingText }
func (c *Controller) View() geom.Transform  { return c.viewT }
func (c *Controller) PageSize() geom.Size   { return c.pageSize }
func (c *Controller) GuideRect() *geom.Rect { return c.guide }

// SetBubbleKind selects the silhouette used by the bubble tool.
func (c *Controller) SetBubbleKind(k scene.BubbleKind) { c.bubbleKind = k }

// SetViewport records the on-screen viewport size used by fit-to-view.
func (c *Controller) SetViewport(s geom.Size) { c.viewport = s }

// SetView replaces the view transform directly.
func (c *Controller) SetView(t geom.Transform) { c.viewT = t }

// FitAndCenter reframes the page in the current viewport.
func (c *Controller) FitAndCenter() {
	c.viewT = view.FitAndCenter(c.pageSize, c.viewport, c.st.View)
}

// ZoomIn steps the zoom about the given screen point with the button factor.
func (c *Controller) ZoomIn(cursor geom.Pt) {
	c.viewT = view.ZoomAt(c.viewT, cursor, view.ZoomIn, c.st.View.ButtonFactor, c.st.View)
}

// ZoomOut steps the zoom about the given screen point with the button factor.
func (c *Controller) ZoomOut(cursor geom.Pt) {
	c.viewT = view.ZoomAt(c.viewT, cursor, view.ZoomOut, c.st.View.ButtonFactor, c.st.View)
}

// Wheel applies one wheel zoom step about the cursor.
func (c *Controller) Wheel(cursor geom.Pt, dir view.Direction) {
	c.viewT = view.ZoomAt(c.viewT, cursor, dir, c.st.View.WheelFactor, c.st.View)
}

// PointerDown dispatches on the active tool and what was hit, entering the
// matching action state.
func (c *Controller) PointerDown(screen geom.Pt, mods Modifiers) {
	doc := c.viewT.ToDocument(screen)
	c.downDoc = doc
	c.downScreen = screen
	c.startShapes = scene.CloneShapes(c.shapes)
	c.editingText = ""

	if mods.Space || c.tool == ToolPan {
		c.beginPan()
		return
	}

	switch c.tool {
	case ToolText:
		// Text has no drag phase: create, commit, open the inline editor.
		s := &scene.Shape{
			ID:       scene.NewID(),
			Kind:     scene.KindText,
			X:        doc.X,
			Y:        doc.Y,
			W:        160,
			H:        40,
			FontSize: c.st.DefaultFontSize,
			Color:    scene.Black,
		}
		c.shapes = append(c.shapes, s)
		c.commit()
		c.selected = s.ID
		c.editingText = s.ID
		if c.OnBeginTextEdit != nil {
			c.OnBeginTextEdit(s.ID)
		}
		return
	case ToolPanel:
		r := geom.R(doc.X, doc.Y, 0, 0)
		s := &scene.Shape{
			ID:     scene.NewID(),
			Kind:   scene.KindPanel,
			X:      doc.X,
			Y:      doc.Y,
			Points: scene.RectPolygon(r),
			Color:  scene.Black,
			Width:  2,
		}
		c.beginCreate(s)
		c.guide = &r
		return
	case ToolBubble:
		s := &scene.Shape{
			ID:     scene.NewID(),
			Kind:   scene.KindBubble,
			X:      doc.X,
			Y:      doc.Y,
			Bubble: c.bubbleKind,
			Color:  scene.Black,
			Width:  2,
		}
		c.beginCreate(s)
		return
	case ToolArrow:
		s := &scene.Shape{
			ID:     scene.NewID(),
			Kind:   scene.KindArrow,
			X:      doc.X,
			Y:      doc.Y,
			Points: []geom.Pt{doc, doc},
			Color:  scene.Black,
			Width:  2,
		}
		c.beginCreate(s)
		return
	case ToolDraw:
		s := &scene.Shape{
			ID:      scene.NewID(),
			Kind:    scene.KindDrawing,
			X:       doc.X,
			Y:       doc.Y,
			Strokes: []scene.Stroke{{Points: []geom.Pt{doc}}},
			Color:   scene.Black,
			Width:   2,
		}
		c.shapes = append(c.shapes, s)
		c.createID = s.ID
		c.selected = s.ID
		c.action = ActionDraw
		c.pushLive()
		return
	}

	// Select tool: handles on the current selection win over body hits.
	tol := c.handleTolerance()
	if sel := scene.FindShape(c.shapes, c.selected); sel != nil {
		if sel.Kind == scene.KindBubble && sel.Tail != nil && geom.Dist(*sel.Tail, doc) <= tol {
			c.action = ActionTailDrag
			c.gestureStart = sel.Clone()
			return
		}
		if sel.Kind == scene.KindArrow {
			for i, p := range sel.Points {
				if geom.Dist(p, doc) <= tol {
					c.action = ActionArrowEnd
					c.arrowEnd = i
					c.gestureStart = sel.Clone()
					return
				}
			}
		}
		if sel.Kind == scene.KindPanel && len(sel.Points) >= 3 {
			for i, p := range sel.Points {
				if geom.Dist(p, doc) <= tol {
					c.action = ActionVertexEdit
					c.vertexIdx = i
					c.gestureStart = sel.Clone()
					return
				}
			}
			// Edge midpoint markers insert a vertex and keep dragging it in
			// the same gesture.
			for i := range sel.Points {
				mid := geom.Midpoint(sel.Points[i], sel.Points[(i+1)%len(sel.Points)])
				if geom.Dist(mid, doc) <= tol {
					pts := make([]geom.Pt, 0, len(sel.Points)+1)
					pts = append(pts, sel.Points[:i+1]...)
					pts = append(pts, mid)
					pts = append(pts, sel.Points[i+1:]...)
					sel.Points = pts
					c.action = ActionVertexEdit
					c.vertexIdx = i + 1
					c.gestureStart = sel.Clone()
					c.pushLive()
					return
				}
			}
		}
		if sel.Resizable() {
			if corner, ok := cornerAt(sel.Bounds(), doc, tol); ok {
				c.action = ActionResize
				c.resizeAnchor = oppositeCorner(sel.Bounds(), corner)
				c.gestureStart = sel.Clone()
				return
			}
		}
	}

	if hit := scene.TopmostAt(c.shapes, doc); hit != nil {
		c.selected = hit.ID
		c.action = ActionDrag
		c.gestureStart = hit.Clone()
		b := hit.Bounds()
		c.dragOffset = geom.Pt{X: doc.X - b.X, Y: doc.Y - b.Y}
		return
	}

	// Empty canvas background pans.
	c.selected = ""
	c.beginPan()
}

// PointerMove applies the geometric update for the current action. Geometry
// is recomputed from the pointer-down snapshot so skipped samples never
// accumulate error.
func (c *Controller) PointerMove(screen geom.Pt) {
	doc := c.viewT.ToDocument(screen)
	switch c.action {
	case ActionNone:
		return
	case ActionPan:
		c.viewT = view.Pan(c.startView, screen.X-c.downScreen.X, screen.Y-c.downScreen.Y)
		return
	case ActionCreate:
		s := scene.FindShape(c.shapes, c.createID)
		if s == nil {
			return
		}
		r := rectBetween(c.downDoc, doc)
		switch s.Kind {
		case scene.KindPanel:
			s.X, s.Y = r.X, r.Y
			s.Points = scene.RectPolygon(r)
			c.guide = &r
		case scene.KindBubble:
			s.X, s.Y, s.W, s.H = r.X, r.Y, r.W, r.H
		case scene.KindArrow:
			s.Points[1] = doc
		}
	case ActionDraw:
		s := scene.FindShape(c.shapes, c.createID)
		if s == nil || len(s.Strokes) == 0 {
			return
		}
		last := &s.Strokes[len(s.Strokes)-1]
		last.Points = append(last.Points, doc)
	case ActionDrag:
		s := scene.FindShape(c.shapes, c.selected)
		if s == nil || c.gestureStart == nil {
			return
		}
		b := c.gestureStart.Bounds()
		translateFrom(s, c.gestureStart, doc.X-c.dragOffset.X-b.X, doc.Y-c.dragOffset.Y-b.Y)
	case ActionResize:
		s := scene.FindShape(c.shapes, c.selected)
		if s == nil || c.gestureStart == nil {
			return
		}
		r := rectBetween(c.resizeAnchor, doc)
		s.X, s.Y, s.W, s.H = r.X, r.Y, r.W, r.H
		if c.gestureStart.Pose != nil {
			// Rescale against the pre-resize box snapshot. Scaling frame by
			// frame instead would compound rounding error and drift the rig.
			s.Pose = c.gestureStart.Pose.Clone()
			pose.Rescale(s.Pose, c.gestureStart.Bounds(), r)
		}
	case ActionTailDrag:
		s := scene.FindShape(c.shapes, c.selected)
		if s == nil {
			return
		}
		t := doc
		s.Tail = &t
	case ActionVertexEdit:
		s := scene.FindShape(c.shapes, c.selected)
		if s == nil || c.vertexIdx < 0 || c.vertexIdx >= len(s.Points) {
			return
		}
		s.Points[c.vertexIdx] = doc
		b := s.Bounds()
		s.X, s.Y = b.X, b.Y
	case ActionArrowEnd:
		s := scene.FindShape(c.shapes, c.selected)
		if s == nil || c.arrowEnd < 0 || c.arrowEnd >= len(s.Points) {
			return
		}
		s.Points[c.arrowEnd] = doc
	}
	c.pushLive()
}

// PointerUp resolves the gesture: creation and edit actions commit, panning
// does not, and a fresh bubble or panel below the minimum size is discarded
// outright rather than committed.
func (c *Controller) PointerUp(screen geom.Pt) {
	if c.action == ActionNone {
		return
	}
	// Land on the final pointer position even if every intermediate move was
	// coalesced away.
	c.PointerMove(screen)

	switch c.action {
	case ActionPan:
		// View-only, nothing to record.
	case ActionCreate:
		s := scene.FindShape(c.shapes, c.createID)
		if s != nil && (s.Kind == scene.KindPanel || s.Kind == scene.KindBubble) {
			b := s.Bounds()
			if b.W < c.st.MinShapeSize || b.H < c.st.MinShapeSize {
				// Accidental near-zero drag: treat as no-op, not as a
				// degenerate shape.
				c.discardGesture()
				break
			}
		}
		c.commit()
	default:
		if scene.ShapesEqual(c.shapes, c.startShapes) {
			// A click that moved nothing. At most the selection changed,
			// and selection is not part of the history.
			c.hist.Rollback()
			c.page.Shapes = c.shapes
		} else {
			c.commit()
		}
	}

	c.action = ActionNone
	c.gestureStart = nil
	c.createID = ""
	c.guide = nil
	c.startShapes = nil
}

// FocusLost abandons an in-progress gesture without resolving it. The
// uncommitted in-place state stays at the last seen geometry; this is a
// known quirk, not a rollback.
func (c *Controller) FocusLost() {
	c.action = ActionNone
	c.gestureStart = nil
	c.createID = ""
	c.guide = nil
	c.startShapes = nil
}

// HandleKey runs a global shortcut. All but Escape are suppressed while an
// inline text edit is open.
func (c *Controller) HandleKey(cmd KeyCommand) {
	if c.editingText != "" && cmd != KeyEscape {
		return
	}
	switch cmd {
	case KeyUndo:
		c.Undo()
	case KeyRedo:
		c.Redo()
	case KeyDelete:
		c.DeleteSelected()
	case KeyEscape:
		c.editingText = ""
		c.poseEditing = false
	}
}

// ApplyShapes replaces the whole shape list, recording a history entry when
// asked. Used by programmatic layout application.
func (c *Controller) ApplyShapes(shapes []*scene.Shape, recordHistory bool) ([]*scene.Shape, bool, bool) {
	c.shapes = scene.CloneShapes(shapes)
	if recordHistory {
		c.commit()
	} else {
		c.pushLive()
	}
	return c.shapes, c.hist.CanUndo(), c.hist.CanRedo()
}

// Undo steps back one snapshot. No-op at the oldest entry.
func (c *Controller) Undo() ([]*scene.Shape, bool, bool) {
	if shapes, ok := c.hist.Undo(); ok {
		c.shapes = shapes
		c.page.Shapes = c.shapes
		c.page.Script = script.Resection(c.page.Script, scene.CountPanels(c.shapes))
	}
	return c.shapes, c.hist.CanUndo(), c.hist.CanRedo()
}

// Redo steps forward one snapshot. No-op at the newest entry.
func (c *Controller) Redo() ([]*scene.Shape, bool, bool) {
	if shapes, ok := c.hist.Redo(); ok {
		c.shapes = shapes
		c.page.Shapes = c.shapes
		c.page.Script = script.Resection(c.page.Script, scene.CountPanels(c.shapes))
	}
	return c.shapes, c.hist.CanUndo(), c.hist.CanRedo()
}

// DeleteSelected removes the selected shape and commits.
func (c *Controller) DeleteSelected() {
	if c.selected == "" {
		return
	}
	out := c.shapes[:0]
	removed := false
	for _, s := range c.shapes {
		if s.ID == c.selected {
			removed = true
			continue
		}
		out = append(out, s)
	}
	if !removed {
		return
	}
	c.shapes = out
	c.selected = ""
	c.commit()
}

// PlaceCharacter drops a character cutout at the given box. The hosting
// panel, if any, is resolved topmost-first for bookkeeping, and the cutout
// starts with the default skeleton pose.
func (c *Controller) PlaceCharacter(ch scene.Character, box geom.Rect) *scene.Shape {
	box = box.Normalized()
	s := &scene.Shape{
		ID:          scene.NewID(),
		Kind:        scene.KindCutout,
		X:           box.X,
		Y:           box.Y,
		W:           box.W,
		H:           box.H,
		ImageRef:    ch.ImageRef,
		CharacterID: ch.ID,
	}
	if p := scene.PanelAt(c.shapes, box.Center()); p != nil {
		s.PanelIndex = scene.PanelOrdinal(c.shapes, p.ID)
	}
	s.Pose = pose.NewSkeleton(box)
	c.shapes = append(c.shapes, s)
	c.selected = s.ID
	c.commit()
	return s
}

// AddTail gives a bubble its tail control point, placed just below the body
// so it is immediately grabbable.
func (c *Controller) AddTail(shapeID string) error {
	s := scene.FindShape(c.shapes, shapeID)
	if s == nil || s.Kind != scene.KindBubble {
		return fmt.Errorf("interact: no bubble with id %q", shapeID)
	}
	b := s.Bounds()
	t := geom.Pt{X: b.X + b.W/2, Y: b.Y + b.H + b.H/2}
	s.Tail = &t
	c.commit()
	return nil
}

// SetText replaces a text or bubble shape's content, typically on closing
// the inline editor.
func (c *Controller) SetText(shapeID, text string) error {
	s := scene.FindShape(c.shapes, shapeID)
	if s == nil || (s.Kind != scene.KindText && s.Kind != scene.KindBubble) {
		return fmt.Errorf("interact: no text-bearing shape with id %q", shapeID)
	}
	s.Text = text
	if c.editingText == shapeID {
		c.editingText = ""
	}
	c.commit()
	return nil
}

// BumpFontSize adjusts the selected text shape's font size in fixed steps.
func (c *Controller) BumpFontSize(steps int) {
	s := scene.FindShape(c.shapes, c.selected)
	if s == nil || s.Kind != scene.KindText {
		return
	}
	s.FontSize += float64(steps) * c.st.FontStep
	if s.FontSize < 4 {
		s.FontSize = 4
	}
	c.commit()
}

// SavePose stores a pose authored in the canonical editor frame onto a
// cutout, mapped into the cutout's document-space box.
func (c *Controller) SavePose(shapeID string, p *scene.Pose) error {
	s := scene.FindShape(c.shapes, shapeID)
	if s == nil || s.Kind != scene.KindCutout {
		return fmt.Errorf("interact: no cutout with id %q", shapeID)
	}
	s.Pose = pose.FromCanonical(p, s.Bounds())
	c.poseEditing = false
	c.commit()
	return nil
}

func (c *Controller) beginPan() {
	c.action = ActionPan
	c.startView = c.viewT
}

func (c *Controller) beginCreate(s *scene.Shape) {
	c.shapes = append(c.shapes, s)
	c.createID = s.ID
	c.selected = s.ID
	c.action = ActionCreate
	c.pushLive()
}

// discardGesture restores the pointer-down shape list, dropping everything
// the gesture produced including its working history snapshot.
func (c *Controller) discardGesture() {
	c.shapes = c.startShapes
	c.selected = ""
	c.hist.Rollback()
	c.page.Shapes = c.shapes
}

func (c *Controller) commit() {
	c.hist.Commit(c.shapes)
	c.page.Shapes = c.shapes
}

func (c *Controller) pushLive() {
	c.hist.UpdateInPlace(c.shapes)
	c.page.Shapes = c.shapes
}

// handleTolerance converts the screen-pixel handle radius into document
// units at the current zoom.
func (c *Controller) handleTolerance() float64 {
	if c.viewT.Scale <= 0 {
		return c.st.HandlePx
	}
	return c.st.HandlePx / c.viewT.Scale
}

func rectBetween(a, b geom.Pt) geom.Rect {
	return geom.R(a.X, a.Y, b.X-a.X, b.Y-a.Y).Normalized()
}

func cornerAt(b geom.Rect, p geom.Pt, tol float64) (Corner, bool) {
	corners := [4]geom.Pt{
		{X: b.X, Y: b.Y},
		{X: b.X + b.W, Y: b.Y},
		{X: b.X, Y: b.Y + b.H},
		{X: b.X + b.W, Y: b.Y + b.H},
	}
	for i, pt := range corners {
		if geom.Dist(pt, p) <= tol {
			return Corner(i), true
		}
	}
	return CornerNW, false
}

func oppositeCorner(b geom.Rect, c Corner) geom.Pt {
	switch c {
	case CornerNW:
		return geom.Pt{X: b.X + b.W, Y: b.Y + b.H}
	case CornerNE:
		return geom.Pt{X: b.X, Y: b.Y + b.H}
	case CornerSW:
		return geom.Pt{X: b.X + b.W, Y: b.Y}
	default:
		return geom.Pt{X: b.X, Y: b.Y}
	}
}

// translateFrom moves s to the start snapshot's geometry shifted by (dx,dy).
// Point lists, strokes, tails and skeleton joints all move by the same
// delta; normalized freehand overlays need no adjustment.
func translateFrom(s, start *scene.Shape, dx, dy float64) {
	s.X = start.X + dx
	s.Y = start.Y + dy
	if len(start.Points) > 0 {
		pts := make([]geom.Pt, len(start.Points))
		for i, p := range start.Points {
			pts[i] = geom.Pt{X: p.X + dx, Y: p.Y + dy}
		}
		s.Points = pts
	}
	if len(start.Strokes) > 0 {
		strokes := make([]scene.Stroke, len(start.Strokes))
		for i, st := range start.Strokes {
			pts := make([]geom.Pt, len(st.Points))
			for j, p := range st.Points {
				pts[j] = geom.Pt{X: p.X + dx, Y: p.Y + dy}
			}
			strokes[i] = scene.Stroke{Points: pts}
		}
		s.Strokes = strokes
	}
	if start.Tail != nil {
		t := geom.Pt{X: start.Tail.X + dx, Y: start.Tail.Y + dy}
		s.Tail = &t
	}
	if start.Pose != nil {
		s.Pose = start.Pose.Clone()
		pose.Translate(s.Pose, dx, dy)
	}
}
