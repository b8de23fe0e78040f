/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"testing"

	"gostoryboard/internal/scene"
)

func searchableBoard() scene.Board {
	pg1 := scene.NewPage(1)
	pg1.Script = []string{"Panel 1: hero walks through the rain"}
	pg1.Shapes = []*scene.Shape{
		{ID: "b1", Kind: scene.KindBubble, X: 10, Y: 10, W: 100, H: 40, Text: "it never stops raining"},
		{ID: "k1", Kind: scene.KindCutout, X: 40, Y: 60, W: 50, H: 120, CharacterID: "c1"},
	}
	pg2 := scene.NewPage(2)
	pg2.Script = []string{"Panel 1: sunrise over the harbor"}
	pg2.Shapes = []*scene.Shape{
		{ID: "t2", Kind: scene.KindText, X: 5, Y: 5, Text: "MORNING"},
		{ID: "k2", Kind: scene.KindCutout, X: 70, Y: 50, W: 50, H: 120, CharacterID: "c1"},
	}
	return scene.Board{
		Name:       "Rainy",
		Pages:      []scene.Page{pg1, pg2},
		Characters: []scene.Character{{ID: "c1", Name: "Hero"}},
	}
}

func TestSearchFullTextAndSnippet(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := UpdateIndex(ctx, root, searchableBoard()); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}
	res, err := Search(ctx, root, SearchQuery{Text: "raining"})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(res), res)
	}
	if res[0].Type != "bubble" || res[0].PageID != 1 {
		t.Fatalf("unexpected match: %+v", res[0])
	}
	if res[0].Snippet == "" {
		t.Fatalf("expected a highlighted snippet")
	}
}

func TestSearchTypeAndPageFilters(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := UpdateIndex(ctx, root, searchableBoard()); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}
	// Non-FTS scan filtered to scripts on page 2
	res, err := Search(ctx, root, SearchQuery{Types: []string{"script"}, PageFrom: 2, PageTo: 2})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 1 || res[0].PageID != 2 || res[0].Type != "script" {
		t.Fatalf("filter mismatch: %+v", res)
	}
}

func TestSearchCharacterFilter(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := UpdateIndex(ctx, root, searchableBoard()); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}
	res, err := Search(ctx, root, SearchQuery{Character: "c1", Types: []string{"placement"}})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 placements for c1, got %d: %+v", len(res), res)
	}
}

func TestPlacementsForCharacterOrderedByPage(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := UpdateIndex(ctx, root, searchableBoard()); err != nil {
		t.Fatalf("UpdateIndex error: %v", err)
	}
	res, err := PlacementsForCharacter(ctx, root, "c1", 0, 0)
	if err != nil {
		t.Fatalf("PlacementsForCharacter error: %v", err)
	}
	if len(res) != 2 || res[0].PageID != 1 || res[1].PageID != 2 {
		t.Fatalf("unexpected placements: %+v", res)
	}
}
