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
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"gostoryboard/internal/config"
	"gostoryboard/internal/scene"
)

// Client talks to the generation backend and the shared board library.
// Generation requests are rate limited; library reads are not.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a backend client with default timeout and no rate cap.
// baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

// NewFromConfig creates a client honoring the configured timeout, TLS mode
// and generation rate cap.
func NewFromConfig(cfg config.BackendConfig, token string) *Client {
	cli := &http.Client{Timeout: cfg.EffectiveTimeout()}
	if cfg.TLSInsecure {
		cli.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		Token:   token,
		client:  cli,
		limiter: lim,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, dest any) error {
	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// Generate sends a prompt and reference images to the generation endpoint and
// returns the raw image bytes of the response. The call honors the configured
// per-minute rate cap; callers cancel via ctx.
func (c *Client) Generate(ctx context.Context, prompt string, images [][]byte) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("prompt", prompt); err != nil {
		return nil, err
	}
	for i, img := range images {
		fw, err := mw.CreateFormFile("image", fmt.Sprintf("image-%d.png", i))
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(img); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/generate", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// BoardRef is a minimal projection for listing library boards.
type BoardRef struct {
	ID        int64     `json:"id"`
	StableID  string    `json:"stable_id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// ListBoards returns the boards published to the library (read-only).
func (c *Client) ListBoards(ctx context.Context) ([]BoardRef, error) {
	var list []BoardRef
	if err := c.doJSON(ctx, http.MethodGet, "/api/boards", nil, "", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// PublishResult reports the outcome of publishing a board to the library.
type PublishResult struct {
	BoardID   int64 `json:"board_id"`
	Version   int64 `json:"version"`
	Documents int64 `json:"documents"`
}

// PublishBoard uploads a board manifest to the library where it becomes
// searchable server-side.
func (c *Client) PublishBoard(ctx context.Context, b scene.Board) (*PublishResult, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	var res PublishResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/boards", bytes.NewReader(body), "application/json", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// IndexSnapshotEnvelope matches the server response for the latest index snapshot of a board.
type IndexSnapshotEnvelope struct {
	BoardID   int64       `json:"board_id"`
	Version   int64       `json:"version"`
	CreatedAt string      `json:"created_at"`
	Snapshot  interface{} `json:"snapshot"`
}

// GetIndexSnapshot fetches the latest index snapshot for a board.
func (c *Client) GetIndexSnapshot(ctx context.Context, boardID int64) (*IndexSnapshotEnvelope, error) {
	var env IndexSnapshotEnvelope
	path := fmt.Sprintf("/api/boards/%d/index", boardID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &env); err != nil {
		return nil, err
	}
	return &env, nil
}
