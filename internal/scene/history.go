/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import "sync"

// History is the undo/redo stack over one page's scene graph: an ordered
// sequence of whole-scene snapshots plus a current index. Discrete edits go
// through Commit; every intermediate frame of a continuous gesture goes
// through UpdateInPlace. The first frame of a gesture opens a working
// snapshot above the last committed one and later frames overwrite it, so
// the pre-gesture state stays reachable and releasing the pointer leaves
// exactly one undoable step.
//
// Full snapshots are acceptable at this scale (pages hold at most dozens of
// shapes); see DESIGN.md for the structural-sharing alternative.
type History struct {
	mu    sync.Mutex
	snaps [][]*Shape
	idx   int

	// live marks the snapshot at idx as the working copy of an unfinished
	// gesture. It is sealed by Commit and dropped by Rollback.
	live bool

	// panelCount is the Panel count as of the last Commit, Undo or Redo.
	// Kept separately because gesture frames mutate the working snapshot
	// before the gesture's closing Commit runs.
	panelCount int

	// onPanelCountChange fires after a Commit whose Panel count differs from
	// the last committed count, so the page script can be resectioned.
	onPanelCountChange func(oldCount, newCount int)
}

// NewHistory creates a history whose first snapshot is a deep copy of initial.
func NewHistory(initial []*Shape) *History {
	return &History{
		snaps:      [][]*Shape{CloneShapes(initial)},
		panelCount: CountPanels(initial),
	}
}

// OnPanelCountChange registers the script resectioning hook. Passing nil
// clears it.
func (h *History) OnPanelCountChange(fn func(oldCount, newCount int)) {
	h.mu.Lock()
	h.onPanelCountChange = fn
	h.mu.Unlock()
}

// Commit records shapes as the new committed state. A live working snapshot
// is sealed in place; otherwise any redo entries beyond the current index are
// truncated and a deep copy of shapes is appended.
func (h *History) Commit(shapes []*Shape) {
	h.mu.Lock()
	oldCount := h.panelCount
	newCount := CountPanels(shapes)
	if h.live {
		h.snaps[h.idx] = CloneShapes(shapes)
		h.live = false
	} else {
		h.snaps = append(h.snaps[:h.idx+1], CloneShapes(shapes))
		h.idx = len(h.snaps) - 1
	}
	h.panelCount = newCount
	hook := h.onPanelCountChange
	h.mu.Unlock()
	if hook != nil && oldCount != newCount {
		hook(oldCount, newCount)
	}
}

// UpdateInPlace streams one intermediate gesture frame. The gesture's first
// frame truncates any redo entries and appends a working snapshot; later
// frames overwrite that snapshot. The committed state underneath is never
// touched, so an undo after the closing Commit restores it exactly.
func (h *History) UpdateInPlace(shapes []*Shape) {
	h.mu.Lock()
	if h.live {
		h.snaps[h.idx] = CloneShapes(shapes)
	} else {
		h.snaps = append(h.snaps[:h.idx+1], CloneShapes(shapes))
		h.idx = len(h.snaps) - 1
		h.live = true
	}
	h.mu.Unlock()
}

// Rollback drops the working snapshot of an abandoned gesture and returns
// the last committed state. Without a working snapshot it is a no-op and
// returns the current snapshot with ok=false.
func (h *History) Rollback() (shapes []*Shape, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.live {
		return CloneShapes(h.snaps[h.idx]), false
	}
	h.snaps = h.snaps[:h.idx]
	h.idx--
	h.live = false
	h.panelCount = CountPanels(h.snaps[h.idx])
	return CloneShapes(h.snaps[h.idx]), true
}

// Undo moves back one committed snapshot and returns it. A live working
// snapshot is discarded first; it was never committed, so it is not an
// undoable step of its own. At the oldest committed state Undo is a no-op
// and returns the current snapshot with ok=false.
func (h *History) Undo() (shapes []*Shape, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.live {
		h.snaps = h.snaps[:h.idx]
		h.idx--
		h.live = false
	}
	if h.idx == 0 {
		return CloneShapes(h.snaps[h.idx]), false
	}
	h.idx--
	h.panelCount = CountPanels(h.snaps[h.idx])
	return CloneShapes(h.snaps[h.idx]), true
}

// Redo moves the index forward one snapshot and returns it. At the last index
// it is a no-op and returns the current snapshot with ok=false.
func (h *History) Redo() (shapes []*Shape, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.idx >= len(h.snaps)-1 {
		return CloneShapes(h.snaps[h.idx]), false
	}
	h.idx++
	h.panelCount = CountPanels(h.snaps[h.idx])
	return CloneShapes(h.snaps[h.idx]), true
}

// Current returns a deep copy of the live snapshot.
func (h *History) Current() []*Shape {
	h.mu.Lock()
	defer h.mu.Unlock()
	return CloneShapes(h.snaps[h.idx])
}

// CanUndo reports whether Undo would reach an older committed snapshot. A
// live working snapshot does not count; it is discarded by Undo, not stepped
// onto.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.live {
		return h.idx > 1
	}
	return h.idx > 0
}

// CanRedo reports whether Redo would move the index.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.idx < len(h.snaps)-1
}

// Len returns the number of snapshots currently held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.snaps)
}
