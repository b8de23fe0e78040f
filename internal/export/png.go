/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"gostoryboard/internal/compose"
	"gostoryboard/internal/scene"
	"gostoryboard/internal/storage"
)

// Options controls board export behavior, shared across formats.
// - Pages: zero-based page indexes; empty exports all
// - IncludeCharacters: draw cutouts with pose overlays and name labels
// - Workers: concurrent page renders; <= 0 uses the CPU count
type Options struct {
	IncludeCharacters bool
	Pages             []int
	Workers           int
}

const underlayOpacity = 0.4

// ExportPNGPages renders each selected page to page-<number>.png under outDir.
// Relative outDir is placed below the board's exports folder. Pages render in
// parallel; the first error cancels the remaining work.
func ExportPNGPages(bh *storage.BoardHandle, outDir string, opt Options) error {
	if bh == nil {
		return fmt.Errorf("board handle is nil")
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(bh.Root, "exports", outDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}

	pageSize := scene.AspectByName(bh.Board.AspectName).Size
	var g errgroup.Group
	g.SetLimit(workerCount(opt.Workers))
	for _, pidx := range pageIndexes(len(bh.Board.Pages), opt.Pages) {
		if pidx < 0 || pidx >= len(bh.Board.Pages) {
			continue
		}
		pg := bh.Board.Pages[pidx]
		g.Go(func() error {
			name := filepath.Join(outDir, fmt.Sprintf("page-%d.png", pg.Number))
			f, err := os.Create(name)
			if err != nil {
				return fmt.Errorf("create png: %w", err)
			}
			if err := compose.RenderPNG(f, pg.Shapes, pageSize, composeOptions(bh, pg, opt)); err != nil {
				_ = f.Close()
				return fmt.Errorf("render page %d: %w", pg.Number, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close png: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// renderPagePNG renders one page into PNG bytes for embedding exporters.
func renderPagePNG(bh *storage.BoardHandle, pg scene.Page, opt Options) ([]byte, error) {
	pageSize := scene.AspectByName(bh.Board.AspectName).Size
	var buf bytes.Buffer
	if err := compose.RenderPNG(&buf, pg.Shapes, pageSize, composeOptions(bh, pg, opt)); err != nil {
		return nil, fmt.Errorf("render page %d: %w", pg.Number, err)
	}
	return buf.Bytes(), nil
}

func composeOptions(bh *storage.BoardHandle, pg scene.Page, opt Options) compose.Options {
	chars := make(map[string]scene.Character, len(bh.Board.Characters))
	for _, ch := range bh.Board.Characters {
		chars[ch.ID] = ch
	}
	return compose.Options{
		IncludeCharacters: opt.IncludeCharacters,
		Characters:        chars,
		Assets:            storage.AssetsFor(bh),
		Underlay:          pg.Proposal,
		UnderlayOpacity:   underlayOpacity,
	}
}

func workerCount(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func pageIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return specific
}
