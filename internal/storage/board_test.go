/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gostoryboard/internal/scene"
)

func minimalBoard() scene.Board {
	return scene.Board{
		Name:       "Test Board",
		AspectName: "square",
		Pages:      []scene.Page{scene.NewPage(1)},
	}
}

func TestInitBoardScaffoldsAndWritesManifest(t *testing.T) {
	root := filepath.Join(t.TempDir(), "board")
	bh, err := InitBoard(root, minimalBoard())
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	if _, err := os.Stat(bh.ManifestPath); err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	for _, d := range []string{"assets", "exports", BackupsDirName} {
		if st, err := os.Stat(filepath.Join(root, d)); err != nil || !st.IsDir() {
			t.Fatalf("expected subdir %s", d)
		}
	}
}

func TestOpenRoundTripsBoard(t *testing.T) {
	root := t.TempDir()
	b := minimalBoard()
	b.Pages[0].Script = []string{"Panel 1: establishing shot"}
	b.Pages[0].Shapes = []*scene.Shape{
		{ID: scene.NewID(), Kind: scene.KindPanel, X: 10, Y: 10, W: 200, H: 100},
		{ID: scene.NewID(), Kind: scene.KindBubble, X: 40, Y: 30, W: 80, H: 40, Text: "hello", Bubble: scene.BubbleRounded},
	}
	if _, err := InitBoard(root, b); err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	bh, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if bh.Board.Name != "Test Board" || len(bh.Board.Pages) != 1 {
		t.Fatalf("unexpected board: %+v", bh.Board)
	}
	if len(bh.Board.Pages[0].Shapes) != 2 {
		t.Fatalf("shapes not round-tripped: %d", len(bh.Board.Pages[0].Shapes))
	}
	if bh.Board.Pages[0].Shapes[1].Text != "hello" {
		t.Fatalf("bubble text lost")
	}
}

func TestSaveCreatesTimestampedBackup(t *testing.T) {
	root := t.TempDir()
	bh, err := InitBoard(root, minimalBoard())
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	bh.Board.Name = "Renamed"
	if err := Save(bh); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups: %v", err)
	}
	var found bool
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), ManifestFileName+".") && strings.HasSuffix(e.Name(), ".bak") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a .bak backup of the previous manifest")
	}
}

func TestOpenFallsBackToBackupOnCorruptManifest(t *testing.T) {
	root := t.TempDir()
	bh, err := InitBoard(root, minimalBoard())
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	// Create a backup by saving once more, then corrupt the manifest.
	if err := Save(bh); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := os.WriteFile(bh.ManifestPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}
	got, err := Open(root)
	if err != nil {
		t.Fatalf("Open should recover from backup, got error: %v", err)
	}
	if got.Board.Name != "Test Board" {
		t.Fatalf("recovered board mismatch: %q", got.Board.Name)
	}
}

func TestManifestConformsToSchema(t *testing.T) {
	root := t.TempDir()
	b := minimalBoard()
	b.Characters = []scene.Character{{ID: "c1", Name: "Hero", ImageRef: "assets/hero.png"}}
	bh, err := InitBoard(root, b)
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	data, err := os.ReadFile(bh.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := ValidateManifest(data); err != nil {
		t.Fatalf("manifest does not conform to schema: %v", err)
	}
}

func TestValidateManifestRejectsBadKind(t *testing.T) {
	doc := `{"name":"x","pages":[{"id":"p","number":1,"shapes":[{"id":"s","kind":"blob","x":0,"y":0}]}]}`
	if err := ValidateManifest([]byte(doc)); err == nil {
		t.Fatalf("expected schema violation for unknown shape kind")
	}
}

func TestAutosaveCrashSnapshotWritesFile(t *testing.T) {
	root := t.TempDir()
	bh, err := InitBoard(root, minimalBoard())
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	path, err := AutosaveCrashSnapshot(bh)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot error: %v", err)
	}
	if !strings.Contains(path, filepath.Join(root, BackupsDirName)) {
		t.Fatalf("autosave should land in backups dir, got %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("autosave file missing: %v", err)
	}
}

func TestPageAndCharacterHelpers(t *testing.T) {
	root := t.TempDir()
	bh, err := InitBoard(root, minimalBoard())
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	if _, err := AddPage(bh); err != nil {
		t.Fatalf("AddPage error: %v", err)
	}
	if _, err := AddPage(bh); err != nil {
		t.Fatalf("AddPage error: %v", err)
	}
	if n := len(bh.Board.Pages); n != 3 {
		t.Fatalf("expected 3 pages, got %d", n)
	}
	if err := MovePage(bh, 3, -2); err != nil {
		t.Fatalf("MovePage error: %v", err)
	}
	if bh.Board.Pages[0].Number != 1 || bh.Board.Pages[2].Number != 3 {
		t.Fatalf("pages not renumbered densely: %+v", bh.Board.Pages)
	}
	if err := RemovePage(bh, 2); err != nil {
		t.Fatalf("RemovePage error: %v", err)
	}
	if n := len(bh.Board.Pages); n != 2 {
		t.Fatalf("expected 2 pages after removal, got %d", n)
	}
	if bh.Board.Pages[1].Number != 2 {
		t.Fatalf("renumber after removal failed: %+v", bh.Board.Pages)
	}

	c, err := AddCharacter(bh, scene.Character{Name: "Hero", ImageRef: "assets/hero.png"})
	if err != nil {
		t.Fatalf("AddCharacter error: %v", err)
	}
	if c.ID == "" {
		t.Fatalf("expected generated character id")
	}
	if _, err := AddCharacter(bh, scene.Character{Name: "hero"}); err == nil {
		t.Fatalf("duplicate character name should be rejected")
	}
	if got, ok := FindCharacter(bh, c.ID); !ok || got.Name != "Hero" {
		t.Fatalf("FindCharacter failed: %+v ok=%v", got, ok)
	}
}
