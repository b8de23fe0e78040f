/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"testing"

	"gostoryboard/internal/scene"
)

func indexedBoard() scene.Board {
	pg := scene.NewPage(1)
	pg.Script = []string{"Panel 1: the hero enters the warehouse", "Panel 2: close-up on the crate"}
	pg.Shapes = []*scene.Shape{
		{ID: "sh-panel", Kind: scene.KindPanel, X: 0, Y: 0, W: 400, H: 300},
		{ID: "sh-bubble", Kind: scene.KindBubble, X: 50, Y: 40, W: 120, H: 60, Text: "what is in the crate?", Bubble: scene.BubbleOval},
		{ID: "sh-label", Kind: scene.KindText, X: 10, Y: 320, Text: "INT. WAREHOUSE", FontSize: 16},
		{ID: "sh-cutout", Kind: scene.KindCutout, X: 80, Y: 120, W: 60, H: 140, CharacterID: "c1",
			Pose: &scene.Pose{Kind: scene.PoseReference, Note: "leaning forward"}},
	}
	return scene.Board{
		Name:       "Warehouse",
		Pages:      []scene.Page{pg},
		Characters: []scene.Character{{ID: "c1", Name: "Hero", ImageRef: "assets/hero.png"}},
	}
}

func TestInitOrOpenIndexCreatesDatabase(t *testing.T) {
	root := t.TempDir()
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex error: %v", err)
	}
	defer db.Close()
	if _, err := os.Stat(IndexPath(root)); err != nil {
		t.Fatalf("index file missing: %v", err)
	}
	var schema int
	if err := db.QueryRow(`SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}
}

func TestBuildIndexIfEmptyPopulatesDocuments(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := BuildIndexIfEmpty(ctx, root, indexedBoard()); err != nil {
		t.Fatalf("BuildIndexIfEmpty error: %v", err)
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex error: %v", err)
	}
	defer db.Close()
	counts := map[string]int{}
	rows, err := db.Query(`SELECT type, COUNT(*) FROM documents GROUP BY type`)
	if err != nil {
		t.Fatalf("query documents: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			t.Fatalf("scan: %v", err)
		}
		counts[typ] = n
	}
	if counts["script"] != 2 {
		t.Fatalf("expected 2 script rows, got %d", counts["script"])
	}
	for _, typ := range []string{"board_name", "character", "bubble", "text", "pose_note", "placement"} {
		if counts[typ] != 1 {
			t.Fatalf("expected 1 %s row, got %d (all: %v)", typ, counts[typ], counts)
		}
	}
}

func TestUpdateIndexReplacesDocuments(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	b := indexedBoard()
	if err := BuildIndexIfEmpty(ctx, root, b); err != nil {
		t.Fatalf("BuildIndexIfEmpty error: %v", err)
	}
	b.Pages[0].Shapes[1].Text = "open it carefully"
	if err := UpdateIndex(ctx, root, b); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}
	res, err := Search(ctx, root, SearchQuery{Text: "carefully"})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 1 || res[0].Type != "bubble" {
		t.Fatalf("expected the updated bubble to match, got %+v", res)
	}
	res, err = Search(ctx, root, SearchQuery{Text: "crate"})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	for _, r := range res {
		if r.Type == "bubble" {
			t.Fatalf("stale bubble row still indexed: %+v", r)
		}
	}
}

func TestDetectAndRebuildIndexRecoversFromCorruption(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	b := indexedBoard()
	if err := BuildIndexIfEmpty(ctx, root, b); err != nil {
		t.Fatalf("BuildIndexIfEmpty error: %v", err)
	}
	// Clobber the database file
	if err := os.WriteFile(IndexPath(root), []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatalf("corrupt index: %v", err)
	}
	rebuilt, err := DetectAndRebuildIndex(ctx, root, b)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex error: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected a rebuild to be performed")
	}
	res, err := Search(ctx, root, SearchQuery{Text: "warehouse"})
	if err != nil {
		t.Fatalf("Search after rebuild: %v", err)
	}
	if len(res) == 0 {
		t.Fatalf("rebuilt index should contain script rows")
	}
}
