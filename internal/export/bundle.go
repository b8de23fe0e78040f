/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gostoryboard/internal/storage"
)

// ExportBundle packages the rendered pages and the board manifest into a
// single ZIP archive, for handing a board to reviewers without the app.
// Page images are named with zero-padded ordinals so archive viewers keep
// the reading order.
func ExportBundle(bh *storage.BoardHandle, outPath string, opt Options) error {
	if bh == nil {
		return fmt.Errorf("board handle is nil")
	}
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(bh.Root, "exports", outPath)
	}
	if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
		outPath = outPath + ".zip"
	}

	zw, f, err := createZip(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	pages := pageIndexes(len(bh.Board.Pages), opt.Pages)
	pad := 1
	for n := len(pages); n >= 10; n /= 10 {
		pad++
	}

	for i, pidx := range pages {
		if pidx < 0 || pidx >= len(bh.Board.Pages) {
			continue
		}
		pg := bh.Board.Pages[pidx]
		png, err := renderPagePNG(bh, pg, opt)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%0*d.png", pad, i+1)
		if err := addZipFile(zw, name, png); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
	}

	manifest, err := json.MarshalIndent(bh.Board, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := addZipFile(zw, storage.ManifestFileName, append(manifest, '\n')); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func createZip(outPath string) (*zip.Writer, *os.File, error) {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create zip: %w", err)
	}
	return zip.NewWriter(f), f, nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
