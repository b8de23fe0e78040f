/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interact

import (
	"math"
	"testing"

	"gostoryboard/internal/geom"
	"gostoryboard/internal/pose"
	"gostoryboard/internal/scene"
)

// newTestController builds a controller over a fresh page with an identity
// view transform so screen and document coordinates coincide.
func newTestController(shapes ...*scene.Shape) (*Controller, *scene.Page) {
	pg := scene.NewPage(1)
	pg.Shapes = shapes
	c := NewController(&pg, geom.Size{W: 1024, H: 1024}, DefaultSettings())
	c.SetViewport(geom.Size{W: 800, H: 600})
	return c, &pg
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCreatePanelByDrag(t *testing.T) {
	c, _ := newTestController()
	c.SetTool(ToolPanel)
	c.PointerDown(geom.Pt{X: 50, Y: 50}, Modifiers{})
	if c.Action() != ActionCreate {
		t.Fatalf("expected creating action, got %v", c.Action())
	}
	if c.GuideRect() == nil {
		t.Fatalf("panel creation must show a guide rectangle")
	}
	c.PointerMove(geom.Pt{X: 140, Y: 110})
	c.PointerUp(geom.Pt{X: 250, Y: 200})

	shapes := c.Shapes()
	if len(shapes) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(shapes))
	}
	s := shapes[0]
	if s.Kind != scene.KindPanel || len(s.Points) != 4 {
		t.Fatalf("expected 4-point panel, got %s with %d points", s.Kind, len(s.Points))
	}
	b := s.Bounds()
	if !approx(b.X, 50) || !approx(b.Y, 50) || !approx(b.W, 200) || !approx(b.H, 150) {
		t.Fatalf("bounds = %+v", b)
	}
	if c.GuideRect() != nil {
		t.Fatalf("guide must be discarded on release")
	}
	if !c.CanUndo() {
		t.Fatalf("panel creation must be undoable")
	}
}

func TestPanelCreationResectionsScript(t *testing.T) {
	c, pg := newTestController()
	pg.Script = nil
	c.SetTool(ToolPanel)
	c.PointerDown(geom.Pt{X: 0, Y: 0}, Modifiers{})
	c.PointerUp(geom.Pt{X: 100, Y: 100})
	if len(pg.Script) != 1 {
		t.Fatalf("expected one script section per panel, got %d", len(pg.Script))
	}
}

func TestMinimumSizeDiscard(t *testing.T) {
	for _, tool := range []Tool{ToolPanel, ToolBubble} {
		c, _ := newTestController()
		c.SetTool(tool)
		c.PointerDown(geom.Pt{X: 100, Y: 100}, Modifiers{})
		c.PointerMove(geom.Pt{X: 104, Y: 160})
		c.PointerUp(geom.Pt{X: 105, Y: 160}) // width 5, below threshold
		if n := len(c.Shapes()); n != 0 {
			t.Fatalf("tool %v: undersized shape must be discarded, have %d shapes", tool, n)
		}
		if c.CanUndo() {
			t.Fatalf("tool %v: discarded gesture must leave no history entry", tool)
		}
	}
}

func TestArrowSurvivesSmallDrag(t *testing.T) {
	c, _ := newTestController()
	c.SetTool(ToolArrow)
	c.PointerDown(geom.Pt{X: 10, Y: 10}, Modifiers{})
	c.PointerUp(geom.Pt{X: 12, Y: 12})
	if len(c.Shapes()) != 1 {
		t.Fatalf("arrows have no minimum size")
	}
}

func TestTextCreatesImmediately(t *testing.T) {
	c, _ := newTestController()
	var edited string
	c.OnBeginTextEdit = func(id string) { edited = id }
	c.SetTool(ToolText)
	c.PointerDown(geom.Pt{X: 40, Y: 60}, Modifiers{})
	if c.Action() != ActionNone {
		t.Fatalf("text has no drag phase")
	}
	shapes := c.Shapes()
	if len(shapes) != 1 || shapes[0].Kind != scene.KindText {
		t.Fatalf("expected one text shape")
	}
	if edited != shapes[0].ID || c.EditingText() != shapes[0].ID {
		t.Fatalf("inline edit must open on the new shape")
	}
	// Shortcuts other than escape are inert while editing.
	c.HandleKey(KeyUndo)
	if len(c.Shapes()) != 1 {
		t.Fatalf("undo must be suppressed during inline edit")
	}
	c.HandleKey(KeyEscape)
	c.HandleKey(KeyUndo)
	if len(c.Shapes()) != 0 {
		t.Fatalf("undo after escape must remove the text shape")
	}
}

func TestDragFollowsWithoutJump(t *testing.T) {
	bubble := &scene.Shape{ID: "b1", Kind: scene.KindBubble, Bubble: scene.BubbleOval, X: 10, Y: 10, W: 50, H: 40}
	c, _ := newTestController(bubble)
	c.PointerDown(geom.Pt{X: 30, Y: 30}, Modifiers{})
	if c.Action() != ActionDrag || c.SelectedID() != "b1" {
		t.Fatalf("expected drag of b1, got %v/%q", c.Action(), c.SelectedID())
	}
	c.PointerUp(geom.Pt{X: 100, Y: 100})
	s := scene.FindShape(c.Shapes(), "b1")
	if !approx(s.X, 80) || !approx(s.Y, 80) {
		t.Fatalf("shape must keep its grab offset, at (%v,%v)", s.X, s.Y)
	}
}

func TestDragToleratesCoalescedMoves(t *testing.T) {
	mk := func() *scene.Shape {
		return &scene.Shape{ID: "b1", Kind: scene.KindBubble, Bubble: scene.BubbleRect, X: 0, Y: 0, W: 20, H: 20}
	}
	// Full sample stream.
	c1, _ := newTestController(mk())
	c1.PointerDown(geom.Pt{X: 10, Y: 10}, Modifiers{})
	for i := 1; i <= 40; i++ {
		c1.PointerMove(geom.Pt{X: 10 + float64(i)*2, Y: 10 + float64(i)})
	}
	c1.PointerUp(geom.Pt{X: 90, Y: 50})
	// Every intermediate sample dropped.
	c2, _ := newTestController(mk())
	c2.PointerDown(geom.Pt{X: 10, Y: 10}, Modifiers{})
	c2.PointerUp(geom.Pt{X: 90, Y: 50})

	s1 := scene.FindShape(c1.Shapes(), "b1")
	s2 := scene.FindShape(c2.Shapes(), "b1")
	if !approx(s1.X, s2.X) || !approx(s1.Y, s2.Y) {
		t.Fatalf("final geometry differs: (%v,%v) vs (%v,%v)", s1.X, s1.Y, s2.X, s2.Y)
	}
}

func TestDragTranslatesSkeleton(t *testing.T) {
	box := geom.R(100, 100, 300, 500)
	cut := &scene.Shape{ID: "c1", Kind: scene.KindCutout, X: box.X, Y: box.Y, W: box.W, H: box.H}
	cut.Pose = pose.NewSkeleton(box)
	head0 := cut.Pose.Joints[pose.JointHead]
	c, _ := newTestController(cut)
	c.PointerDown(geom.Pt{X: 150, Y: 150}, Modifiers{})
	c.PointerMove(geom.Pt{X: 170, Y: 180})
	c.PointerUp(geom.Pt{X: 175, Y: 190})
	s := scene.FindShape(c.Shapes(), "c1")
	head := s.Pose.Joints[pose.JointHead]
	if !approx(head.X, head0.X+25) || !approx(head.Y, head0.Y+40) {
		t.Fatalf("head must move with the shape: %+v vs %+v", head, head0)
	}
}

func TestResizeRescalesSkeletonFromSnapshot(t *testing.T) {
	box := geom.R(0, 0, 100, 200)
	cut := &scene.Shape{ID: "c1", Kind: scene.KindCutout, X: 0, Y: 0, W: 100, H: 200}
	cut.Pose = pose.NewSkeleton(box)
	c, _ := newTestController(cut)
	// Select, then grab the SE handle.
	c.PointerDown(geom.Pt{X: 50, Y: 100}, Modifiers{})
	c.PointerUp(geom.Pt{X: 50, Y: 100})
	c.PointerDown(geom.Pt{X: 100, Y: 200}, Modifiers{})
	if c.Action() != ActionResize {
		t.Fatalf("expected resize, got %v", c.Action())
	}
	// Several intermediate frames must not compound; only the final box
	// matters.
	c.PointerMove(geom.Pt{X: 130, Y: 260})
	c.PointerMove(geom.Pt{X: 180, Y: 350})
	c.PointerUp(geom.Pt{X: 200, Y: 400})
	s := scene.FindShape(c.Shapes(), "c1")
	if !approx(s.W, 200) || !approx(s.H, 400) {
		t.Fatalf("box = %v x %v", s.W, s.H)
	}
	head := s.Pose.Joints[pose.JointHead]
	if !approx(head.X, 100) || !approx(head.Y, 60) {
		t.Fatalf("head must rescale proportionally, got %+v", head)
	}
}

func TestBubbleTailDrag(t *testing.T) {
	bubble := &scene.Shape{ID: "b1", Kind: scene.KindBubble, Bubble: scene.BubbleRounded, X: 30, Y: 40, W: 40, H: 20}
	c, _ := newTestController(bubble)
	c.PointerDown(geom.Pt{X: 50, Y: 50}, Modifiers{})
	c.PointerUp(geom.Pt{X: 50, Y: 50}) // select
	if err := c.AddTail("b1"); err != nil {
		t.Fatalf("AddTail: %v", err)
	}
	s := scene.FindShape(c.Shapes(), "b1")
	start := *s.Tail
	c.PointerDown(start, Modifiers{})
	if c.Action() != ActionTailDrag {
		t.Fatalf("expected tail drag, got %v", c.Action())
	}
	c.PointerUp(geom.Pt{X: 100, Y: 100})
	s = scene.FindShape(c.Shapes(), "b1")
	if !approx(s.Tail.X, 100) || !approx(s.Tail.Y, 100) {
		t.Fatalf("tail at %+v", *s.Tail)
	}
}

func TestPanelVertexAndMidpointEditing(t *testing.T) {
	panel := &scene.Shape{
		ID: "p1", Kind: scene.KindPanel, X: 0, Y: 0,
		Points: scene.RectPolygon(geom.R(0, 0, 100, 100)),
	}
	c, _ := newTestController(panel)
	c.PointerDown(geom.Pt{X: 50, Y: 50}, Modifiers{})
	c.PointerUp(geom.Pt{X: 50, Y: 50}) // select

	// Drag an existing vertex.
	c.PointerDown(geom.Pt{X: 0, Y: 0}, Modifiers{})
	if c.Action() != ActionVertexEdit {
		t.Fatalf("expected vertex edit, got %v", c.Action())
	}
	c.PointerUp(geom.Pt{X: -20, Y: -10})
	s := scene.FindShape(c.Shapes(), "p1")
	if !approx(s.Points[0].X, -20) || !approx(s.Points[0].Y, -10) {
		t.Fatalf("vertex 0 at %+v", s.Points[0])
	}
	b := s.Bounds()
	if !approx(b.X, -20) || !approx(b.Y, -10) {
		t.Fatalf("panel bounds must track vertices, got %+v", b)
	}

	// Grabbing an edge midpoint inserts a vertex and drags it in the same
	// gesture.
	mid := geom.Midpoint(s.Points[1], s.Points[2])
	before := len(s.Points)
	c.PointerDown(mid, Modifiers{})
	if c.Action() != ActionVertexEdit {
		t.Fatalf("expected vertex edit from midpoint, got %v", c.Action())
	}
	c.PointerUp(geom.Pt{X: 140, Y: 50})
	s = scene.FindShape(c.Shapes(), "p1")
	if len(s.Points) != before+1 {
		t.Fatalf("expected inserted vertex, have %d points", len(s.Points))
	}
	if !approx(s.Points[2].X, 140) || !approx(s.Points[2].Y, 50) {
		t.Fatalf("inserted vertex at %+v", s.Points[2])
	}
}

func TestArrowEndpointDrag(t *testing.T) {
	arrow := &scene.Shape{ID: "a1", Kind: scene.KindArrow, Points: []geom.Pt{{X: 10, Y: 10}, {X: 60, Y: 60}}, Width: 2}
	c, _ := newTestController(arrow)
	c.PointerDown(geom.Pt{X: 30, Y: 30}, Modifiers{})
	c.PointerUp(geom.Pt{X: 30, Y: 30}) // select (hit via bbox)
	c.PointerDown(geom.Pt{X: 60, Y: 60}, Modifiers{})
	if c.Action() != ActionArrowEnd {
		t.Fatalf("expected arrow endpoint drag, got %v", c.Action())
	}
	c.PointerUp(geom.Pt{X: 90, Y: 20})
	s := scene.FindShape(c.Shapes(), "a1")
	if !approx(s.Points[1].X, 90) || !approx(s.Points[1].Y, 20) {
		t.Fatalf("head at %+v", s.Points[1])
	}
}

func TestBackgroundAndSpacePan(t *testing.T) {
	c, _ := newTestController()
	c.PointerDown(geom.Pt{X: 400, Y: 300}, Modifiers{})
	if c.Action() != ActionPan {
		t.Fatalf("empty background must pan, got %v", c.Action())
	}
	c.PointerMove(geom.Pt{X: 410, Y: 330})
	c.PointerUp(geom.Pt{X: 420, Y: 340})
	v := c.View()
	if !approx(v.TX, 20) || !approx(v.TY, 40) {
		t.Fatalf("pan delta = (%v,%v)", v.TX, v.TY)
	}
	if c.CanUndo() {
		t.Fatalf("panning must not touch history")
	}

	// Space overrides a creation tool.
	c.SetTool(ToolPanel)
	c.PointerDown(geom.Pt{X: 0, Y: 0}, Modifiers{Space: true})
	if c.Action() != ActionPan {
		t.Fatalf("space must force panning")
	}
	c.PointerUp(geom.Pt{X: 0, Y: 0})
}

func TestDrawStroke(t *testing.T) {
	c, _ := newTestController()
	c.SetTool(ToolDraw)
	c.PointerDown(geom.Pt{X: 5, Y: 5}, Modifiers{})
	c.PointerMove(geom.Pt{X: 10, Y: 10})
	c.PointerMove(geom.Pt{X: 20, Y: 15})
	c.PointerUp(geom.Pt{X: 30, Y: 20})
	shapes := c.Shapes()
	if len(shapes) != 1 || shapes[0].Kind != scene.KindDrawing {
		t.Fatalf("expected one drawing")
	}
	pts := shapes[0].Strokes[0].Points
	if len(pts) < 2 {
		t.Fatalf("stroke too short: %d points", len(pts))
	}
	last := pts[len(pts)-1]
	if !approx(last.X, 30) || !approx(last.Y, 20) {
		t.Fatalf("stroke must end at the release point, got %+v", last)
	}
}

func TestDeleteSelectedCommits(t *testing.T) {
	b := &scene.Shape{ID: "b1", Kind: scene.KindBubble, Bubble: scene.BubbleRect, X: 0, Y: 0, W: 40, H: 40}
	c, _ := newTestController(b)
	c.PointerDown(geom.Pt{X: 20, Y: 20}, Modifiers{})
	c.PointerUp(geom.Pt{X: 20, Y: 20})
	c.HandleKey(KeyDelete)
	if len(c.Shapes()) != 0 {
		t.Fatalf("delete must remove the selection")
	}
	shapes, _, canRedo := c.Undo()
	if len(shapes) != 1 || !canRedo {
		t.Fatalf("undo must restore the deleted shape")
	}
	if scene.FindShape(shapes, "b1") == nil {
		t.Fatalf("restored list must contain b1")
	}
}

func TestApplyShapesHistoryFlag(t *testing.T) {
	c, _ := newTestController()
	next := []*scene.Shape{{ID: "t1", Kind: scene.KindText, X: 1, Y: 2, Text: "hi", FontSize: 16}}
	_, canUndo, canRedo := c.ApplyShapes(next, false)
	if canUndo || canRedo {
		t.Fatalf("recordHistory=false must not add an entry")
	}
	_, canUndo, _ = c.ApplyShapes(next, true)
	if !canUndo {
		t.Fatalf("recordHistory=true must add an entry")
	}
}

func TestDragCoalescesIntoOneHistoryEntry(t *testing.T) {
	b := &scene.Shape{ID: "b1", Kind: scene.KindBubble, Bubble: scene.BubbleRect, X: 0, Y: 0, W: 40, H: 40}
	c, _ := newTestController(b)
	c.PointerDown(geom.Pt{X: 20, Y: 20}, Modifiers{})
	base := c.hist.Len()
	for i := 0; i < 25; i++ {
		c.PointerMove(geom.Pt{X: 20 + float64(i), Y: 20})
	}
	c.PointerUp(geom.Pt{X: 60, Y: 20})
	if got := c.hist.Len(); got != base+1 {
		t.Fatalf("drag must add exactly one entry, went %d -> %d", base, got)
	}
}

func TestUndoAfterCreateRestoresPriorScene(t *testing.T) {
	c, pg := newTestController()
	c.SetTool(ToolPanel)
	c.PointerDown(geom.Pt{X: 10, Y: 10}, Modifiers{})
	c.PointerMove(geom.Pt{X: 60, Y: 40})
	c.PointerMove(geom.Pt{X: 90, Y: 80})
	c.PointerUp(geom.Pt{X: 120, Y: 90})
	if len(c.Shapes()) != 1 {
		t.Fatalf("expected the created panel, got %d shapes", len(c.Shapes()))
	}
	shapes, canUndo, canRedo := c.Undo()
	if len(shapes) != 0 || len(pg.Shapes) != 0 {
		t.Fatalf("one undo must remove the created panel, have %d shape(s)", len(shapes))
	}
	if canUndo {
		t.Fatalf("nothing older than the initial state")
	}
	if !canRedo {
		t.Fatalf("the creation must be redoable")
	}
}

func TestUndoAfterDragRestoresStartPosition(t *testing.T) {
	b := &scene.Shape{ID: "b1", Kind: scene.KindBubble, Bubble: scene.BubbleOval, X: 0, Y: 0, W: 40, H: 40}
	c, _ := newTestController(b)
	c.PointerDown(geom.Pt{X: 20, Y: 20}, Modifiers{})
	for i := 1; i <= 10; i++ {
		c.PointerMove(geom.Pt{X: 20 + float64(i)*8, Y: 20})
	}
	c.PointerUp(geom.Pt{X: 100, Y: 20})
	s := scene.FindShape(c.Shapes(), "b1")
	if !approx(s.X, 80) {
		t.Fatalf("drag must land at 80, got %v", s.X)
	}
	shapes, _, canRedo := c.Undo()
	s = scene.FindShape(shapes, "b1")
	if !approx(s.X, 0) || !approx(s.Y, 0) {
		t.Fatalf("one undo must land on the pre-drag position (0,0), got (%v,%v)", s.X, s.Y)
	}
	if !canRedo {
		t.Fatalf("the drag must be redoable")
	}
	shapes, _, _ = c.Redo()
	s = scene.FindShape(shapes, "b1")
	if !approx(s.X, 80) {
		t.Fatalf("redo must land back at 80, got %v", s.X)
	}
}

func TestSelectionClickAddsNoHistoryEntry(t *testing.T) {
	b := &scene.Shape{ID: "b1", Kind: scene.KindBubble, Bubble: scene.BubbleRect, X: 0, Y: 0, W: 40, H: 40}
	c, _ := newTestController(b)
	base := c.hist.Len()
	for i := 0; i < 3; i++ {
		c.PointerDown(geom.Pt{X: 20, Y: 20}, Modifiers{})
		c.PointerUp(geom.Pt{X: 20, Y: 20})
	}
	if c.SelectedID() != "b1" {
		t.Fatalf("click must still select, got %q", c.SelectedID())
	}
	if c.CanUndo() {
		t.Fatalf("a click that moved nothing must not be undoable")
	}
	if got := c.hist.Len(); got != base {
		t.Fatalf("selection clicks added history entries: %d -> %d", base, got)
	}
}

func TestSavePoseMapsFromCanonicalFrame(t *testing.T) {
	cut := &scene.Shape{ID: "c1", Kind: scene.KindCutout, X: 100, Y: 200, W: 300, H: 500}
	c, _ := newTestController(cut)
	p := pose.NewSkeleton(pose.CanonicalFrame)
	if err := c.SavePose("c1", p); err != nil {
		t.Fatalf("SavePose: %v", err)
	}
	s := scene.FindShape(c.Shapes(), "c1")
	head := s.Pose.Joints[pose.JointHead]
	if !approx(head.X, 100+150) || !approx(head.Y, 200+75) {
		t.Fatalf("head at %+v", head)
	}
	if err := c.SavePose("missing", p); err == nil {
		t.Fatalf("unknown shape must error")
	}
}

func TestPlaceCharacterResolvesPanel(t *testing.T) {
	back := &scene.Shape{ID: "p1", Kind: scene.KindPanel, Points: scene.RectPolygon(geom.R(0, 0, 400, 400))}
	front := &scene.Shape{ID: "p2", Kind: scene.KindPanel, Points: scene.RectPolygon(geom.R(100, 100, 400, 400))}
	c, _ := newTestController(back, front)
	ch := scene.Character{ID: "ch1", Name: "Mina", ImageRef: "mina.png"}
	s := c.PlaceCharacter(ch, geom.R(150, 150, 100, 200))
	// Overlap region resolves to the topmost panel.
	if s.PanelIndex != 2 {
		t.Fatalf("expected panel ordinal 2, got %d", s.PanelIndex)
	}
	if s.Pose == nil || s.Pose.Kind != scene.PoseSkeleton {
		t.Fatalf("placed cutout must carry a default skeleton")
	}
	head := s.Pose.Joints[pose.JointHead]
	if !approx(head.X, 150+50) || !approx(head.Y, 150+30) {
		t.Fatalf("head at %+v", head)
	}
}

func TestZoomKeepsCursorStable(t *testing.T) {
	c, _ := newTestController()
	c.FitAndCenter()
	cursor := geom.Pt{X: 320, Y: 240}
	before := c.View().ToDocument(cursor)
	c.ZoomIn(cursor)
	after := c.View().ToDocument(cursor)
	if math.Abs(before.X-after.X) > 1e-9 || math.Abs(before.Y-after.Y) > 1e-9 {
		t.Fatalf("cursor document point moved: %+v vs %+v", before, after)
	}
}
