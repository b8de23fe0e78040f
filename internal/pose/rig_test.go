/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pose

import (
	"math"
	"testing"

	"gostoryboard/internal/geom"
	"gostoryboard/internal/scene"
)

func almostEq(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

func TestNewSkeletonCanonicalProportions(t *testing.T) {
	// 300x500 cutout at (40,60): head sits at 0.5*w, 0.15*h
	box := geom.R(40, 60, 300, 500)
	p := NewSkeleton(box)
	head := p.Joints[JointHead]
	if !almostEq(head.X, 40+150) || !almostEq(head.Y, 60+75) {
		t.Fatalf("unexpected head joint: %+v", head)
	}
	if len(p.Joints) != 18 {
		t.Fatalf("expected 18 joints, got %d", len(p.Joints))
	}
	if p.Preset != scene.PresetFullBody {
		t.Fatalf("fresh skeleton must use the full-body preset")
	}
}

func TestTranslateMovesEveryJointExactly(t *testing.T) {
	box := geom.R(0, 0, 100, 200)
	p := NewSkeleton(box)
	before := p.Clone()
	Translate(p, 13.5, -7.25)
	for name, pt := range p.Joints {
		old := before.Joints[name]
		if !almostEq(pt.X, old.X+13.5) || !almostEq(pt.Y, old.Y-7.25) {
			t.Fatalf("joint %s drifted: %+v -> %+v", name, old, pt)
		}
	}
}

func TestRescaleIsProportionalToPreResizeBox(t *testing.T) {
	orig := geom.R(10, 20, 100, 200)
	p := NewSkeleton(orig)
	before := p.Clone()
	next := geom.R(10, 20, 250, 100) // sx=2.5, sy=0.5 about the origin
	Rescale(p, orig, next)
	for name, pt := range p.Joints {
		old := before.Joints[name]
		wantX := next.X + (old.X-orig.X)*2.5
		wantY := next.Y + (old.Y-orig.Y)*0.5
		if !almostEq(pt.X, wantX) || !almostEq(pt.Y, wantY) {
			t.Fatalf("joint %s: got %+v want (%v,%v)", name, pt, wantX, wantY)
		}
	}
}

func TestRescaleZeroSizeSourceIsNoOpScale(t *testing.T) {
	orig := geom.R(10, 10, 0, 0)
	p := &scene.Pose{Kind: scene.PoseSkeleton, Joints: map[string]geom.Pt{JointHead: {X: 15, Y: 18}}, Preset: scene.PresetFullBody}
	Rescale(p, orig, geom.R(50, 60, 100, 100))
	got := p.Joints[JointHead]
	if math.IsNaN(got.X) || math.IsInf(got.X, 0) || math.IsNaN(got.Y) {
		t.Fatalf("zero-size source produced NaN/Inf: %+v", got)
	}
	// scale treated as 1: only the origin delta applies
	if !almostEq(got.X, 50+5) || !almostEq(got.Y, 60+8) {
		t.Fatalf("unexpected guarded rescale: %+v", got)
	}
}

func TestPresetsFilterJointsAndBones(t *testing.T) {
	p := NewSkeleton(geom.R(0, 0, 100, 100))
	p.Preset = scene.PresetFaceOnly
	joints := VisibleJoints(p)
	if len(joints) != 5 {
		t.Fatalf("face preset should expose 5 joints, got %d", len(joints))
	}
	for _, b := range VisibleBones(p) {
		found := func(n string) bool {
			for _, j := range joints {
				if j == n {
					return true
				}
			}
			return false
		}
		if !found(b.A) || !found(b.B) {
			t.Fatalf("bone %v references hidden joint", b)
		}
	}
	// data is retained while hidden
	if _, ok := p.Joints[JointFootL]; !ok {
		t.Fatalf("switching preset must not delete joint data")
	}
	p.Preset = scene.PresetFullBody
	if len(VisibleJoints(p)) != 18 {
		t.Fatalf("full preset should expose all joints again")
	}
}

func TestFromCanonicalSkeleton(t *testing.T) {
	p := NewSkeleton(CanonicalFrame)
	box := geom.R(100, 200, 256, 128) // half/quarter of the 512 frame
	mapped := FromCanonical(p, box)
	head := mapped.Joints[JointHead]
	if !almostEq(head.X, 100+0.5*256) || !almostEq(head.Y, 200+0.15*128) {
		t.Fatalf("unexpected mapped head: %+v", head)
	}
	// source pose untouched
	if !almostEq(p.Joints[JointHead].X, 256) {
		t.Fatalf("FromCanonical mutated its input")
	}
}

func TestFreehandNormalizeRoundTrip(t *testing.T) {
	p := &scene.Pose{Kind: scene.PoseFreehand, Strokes: []scene.Stroke{
		{Points: []geom.Pt{{X: 0, Y: 0}, {X: 256, Y: 256}, {X: 512, Y: 512}}},
	}}
	norm := FromCanonical(p, geom.Rect{}) // target box irrelevant for freehand
	want := []geom.Pt{{X: 0, Y: 0}, {X: 0.5, Y: 0.5}, {X: 1, Y: 1}}
	for i, pt := range norm.Strokes[0].Points {
		if !almostEq(pt.X, want[i].X) || !almostEq(pt.Y, want[i].Y) {
			t.Fatalf("point %d: got %+v", i, pt)
		}
	}
	box := geom.R(10, 20, 100, 50)
	back := DenormalizeStrokes(norm, box)
	wantBack := []geom.Pt{{X: 10, Y: 20}, {X: 60, Y: 45}, {X: 110, Y: 70}}
	for i, pt := range back[0].Points {
		if !almostEq(pt.X, wantBack[i].X) || !almostEq(pt.Y, wantBack[i].Y) {
			t.Fatalf("denormalized point %d: got %+v", i, pt)
		}
	}
}
