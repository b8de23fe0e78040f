/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

// Assets resolves bitmap references (cutout images, reference pose overlays,
// layout-proposal underlays) against the board's assets directory. A ref is a
// path relative to assets/, stored verbatim in the manifest.
type Assets struct {
	root string
}

// AssetsFor returns the asset resolver for a board.
func AssetsFor(bh *BoardHandle) Assets {
	return Assets{root: filepath.Join(bh.Root, "assets")}
}

// Path resolves a ref to an absolute path, rejecting escapes from the assets dir.
func (a Assets) Path(ref string) (string, error) {
	ref = filepath.Clean(strings.TrimSpace(ref))
	if ref == "" || ref == "." || strings.HasPrefix(ref, "..") || filepath.IsAbs(ref) {
		return "", fmt.Errorf("invalid asset ref %q", ref)
	}
	return filepath.Join(a.root, ref), nil
}

// Image loads and decodes the referenced bitmap (PNG or JPEG).
func (a Assets) Image(ref string) (image.Image, error) {
	p, err := a.Path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode asset %q: %w", ref, err)
	}
	return img, nil
}

// Put stores raw bytes under the given ref and returns the ref unchanged.
func (a Assets) Put(ref string, data []byte) (string, error) {
	p, err := a.Path(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("ensure asset dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write asset: %w", err)
	}
	return ref, nil
}

// Exists reports whether the referenced asset is present on disk.
func (a Assets) Exists(ref string) bool {
	p, err := a.Path(ref)
	if err != nil {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
