/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"fmt"
	"sort"
	"strings"

	"gostoryboard/internal/scene"
)

// EnsurePage returns a pointer to a page with the given number, creating it if it does not exist yet.
// New pages are appended with an empty scene graph.
func EnsurePage(bh *BoardHandle, pageNumber int) (*scene.Page, error) {
	if bh == nil {
		return nil, fmt.Errorf("board handle is nil")
	}
	if pageNumber <= 0 {
		return nil, fmt.Errorf("pageNumber must be >= 1")
	}
	for i := range bh.Board.Pages {
		if bh.Board.Pages[i].Number == pageNumber {
			return &bh.Board.Pages[i], nil
		}
	}
	bh.Board.Pages = append(bh.Board.Pages, scene.NewPage(pageNumber))
	sort.Slice(bh.Board.Pages, func(i, j int) bool { return bh.Board.Pages[i].Number < bh.Board.Pages[j].Number })
	for i := range bh.Board.Pages {
		if bh.Board.Pages[i].Number == pageNumber {
			return &bh.Board.Pages[i], nil
		}
	}
	return nil, fmt.Errorf("failed to create page %d", pageNumber)
}

// NextPageNumber returns the first page number after the current maximum.
func NextPageNumber(bh *BoardHandle) int {
	if bh == nil {
		return 1
	}
	maxN := 0
	for _, p := range bh.Board.Pages {
		if p.Number > maxN {
			maxN = p.Number
		}
	}
	return maxN + 1
}

// AddPage appends a fresh page after the last one and returns it.
func AddPage(bh *BoardHandle) (*scene.Page, error) {
	if bh == nil {
		return nil, fmt.Errorf("board handle is nil")
	}
	return EnsurePage(bh, NextPageNumber(bh))
}

// RemovePage deletes the page with the given number and renumbers the
// remaining pages to keep a dense 1..n sequence.
func RemovePage(bh *BoardHandle, pageNumber int) error {
	if bh == nil {
		return fmt.Errorf("board handle is nil")
	}
	idx := -1
	for i := range bh.Board.Pages {
		if bh.Board.Pages[i].Number == pageNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("page %d not found", pageNumber)
	}
	bh.Board.Pages = append(bh.Board.Pages[:idx], bh.Board.Pages[idx+1:]...)
	renumberPages(bh)
	return nil
}

// MovePage shifts the page up or down in reading order by delta
// (+1 moves later, -1 moves earlier), then renumbers to 1..n.
func MovePage(bh *BoardHandle, pageNumber int, delta int) error {
	if bh == nil {
		return fmt.Errorf("board handle is nil")
	}
	idx := -1
	for i := range bh.Board.Pages {
		if bh.Board.Pages[i].Number == pageNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("page %d not found", pageNumber)
	}
	newIdx := idx + delta
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx >= len(bh.Board.Pages) {
		newIdx = len(bh.Board.Pages) - 1
	}
	if newIdx == idx {
		return nil
	}
	pg := bh.Board.Pages[idx]
	pages := append(bh.Board.Pages[:idx], bh.Board.Pages[idx+1:]...)
	pages = append(pages, scene.Page{})
	copy(pages[newIdx+1:], pages[newIdx:])
	pages[newIdx] = pg
	bh.Board.Pages = pages
	renumberPages(bh)
	return nil
}

func renumberPages(bh *BoardHandle) {
	for i := range bh.Board.Pages {
		bh.Board.Pages[i].Number = i + 1
	}
}

// AddCharacter adds a character to the roster. If c.ID is empty, a fresh one is
// generated. Names must be unique (case-insensitive).
func AddCharacter(bh *BoardHandle, c scene.Character) (scene.Character, error) {
	if bh == nil {
		return scene.Character{}, fmt.Errorf("board handle is nil")
	}
	if strings.TrimSpace(c.Name) == "" {
		return scene.Character{}, fmt.Errorf("character name is required")
	}
	for _, ex := range bh.Board.Characters {
		if strings.EqualFold(ex.Name, c.Name) {
			return scene.Character{}, fmt.Errorf("character %q already exists", c.Name)
		}
		if c.ID != "" && ex.ID == c.ID {
			return scene.Character{}, fmt.Errorf("character id %s already exists", c.ID)
		}
	}
	if c.ID == "" {
		c.ID = scene.NewID()
	}
	bh.Board.Characters = append(bh.Board.Characters, c)
	return c, nil
}

// FindCharacter resolves a roster entry by ID.
func FindCharacter(bh *BoardHandle, id string) (scene.Character, bool) {
	if bh == nil {
		return scene.Character{}, false
	}
	for _, c := range bh.Board.Characters {
		if c.ID == id {
			return c, true
		}
	}
	return scene.Character{}, false
}
