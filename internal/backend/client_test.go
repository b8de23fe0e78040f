/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gostoryboard/internal/config"
	"gostoryboard/internal/scene"
)

func TestClientGeneratePostsMultipart(t *testing.T) {
	want := []byte("fake-png-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("auth header = %q", got)
		}
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("prompt"); got != "two figures by a window" {
			t.Errorf("prompt = %q", got)
		}
		files := r.MultipartForm.File["image"]
		if len(files) != 2 {
			t.Fatalf("expected 2 images, got %d", len(files))
		}
		f, err := files[0].Open()
		if err != nil {
			t.Fatalf("open part: %v", err)
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if !bytes.Equal(b, []byte("ref-a")) {
			t.Errorf("first image payload = %q", b)
		}
		_, _ = w.Write(want)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-1")
	got, err := c.Generate(context.Background(), "two figures by a window", [][]byte{[]byte("ref-a"), []byte("ref-b")})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("response = %q, want %q", got, want)
	}
}

func TestClientGenerateRequiresPrompt(t *testing.T) {
	c := NewClient("http://localhost:0", "")
	if _, err := c.Generate(context.Background(), "   ", nil); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestClientGenerateRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// One request per minute with burst 1: the second call must block
	// until the context gives up.
	c := NewFromConfig(config.BackendConfig{BaseURL: srv.URL, TimeoutMs: 5000, RatePerMinute: 1}, "")
	if _, err := c.Generate(context.Background(), "first", nil); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Generate(ctx, "second", nil); err == nil {
		t.Fatal("expected second call to fail under rate cap")
	} else if errors.Is(err, context.DeadlineExceeded) {
		// limiter surfaces the context error directly
	} else if ctx.Err() == nil {
		t.Fatalf("unexpected error before deadline: %v", err)
	}
}

func TestClientListBoardsAndSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/boards":
			_ = json.NewEncoder(w).Encode([]BoardRef{
				{ID: 7, StableID: "b-7", Name: "Harbor", Version: 3},
			})
		case "/api/boards/7/index":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"board_id": 7, "version": 3, "created_at": "2025-11-02T10:00:00Z",
				"snapshot": map[string]any{"name": "Harbor"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	list, err := c.ListBoards(context.Background())
	if err != nil {
		t.Fatalf("ListBoards: %v", err)
	}
	if len(list) != 1 || list[0].ID != 7 || list[0].Name != "Harbor" {
		t.Fatalf("unexpected list %+v", list)
	}
	env, err := c.GetIndexSnapshot(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetIndexSnapshot: %v", err)
	}
	if env.BoardID != 7 || env.Version != 3 {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestClientPublishBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/boards" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var b scene.Board
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			t.Fatalf("decode board: %v", err)
		}
		if b.Name != "Harbor" || len(b.Pages) != 1 {
			t.Errorf("unexpected board %+v", b)
		}
		_ = json.NewEncoder(w).Encode(PublishResult{BoardID: 7, Version: 1, Documents: 2})
	}))
	defer srv.Close()

	board := scene.Board{Name: "Harbor", AspectName: "square", Pages: []scene.Page{scene.NewPage(1)}}
	c := NewClient(srv.URL, "tok")
	res, err := c.PublishBoard(context.Background(), board)
	if err != nil {
		t.Fatalf("PublishBoard: %v", err)
	}
	if res.BoardID != 7 || res.Documents != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.ListBoards(context.Background()); err == nil {
		t.Fatal("expected error on 500")
	}
	if _, err := c.Generate(context.Background(), "p", nil); err == nil {
		t.Fatal("expected error on 500")
	}
}
