/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Page thumbnails rendered by the compositor are cached twice: hot entries in
// an in-process TTL cache, everything in the previews table of the embedded
// index with LRU eviction against a byte budget.

// memPreviews fronts the sqlite previews table for repeated lookups within one
// editing session.
var memPreviews = gocache.New(5*time.Minute, 10*time.Minute)

func previewKey(boardRoot string, pageID, w, h int) string {
	return fmt.Sprintf("%s|%d|%dx%d", boardRoot, pageID, w, h)
}

// GetPreview returns the PNG bytes for a page thumbnail of the given size and
// updates last_access, or nil when not cached yet.
func GetPreview(ctx context.Context, boardRoot string, pageID, w, h int) ([]byte, error) {
	key := previewKey(boardRoot, pageID, w, h)
	if v, ok := memPreviews.Get(key); ok {
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	}
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var blob []byte
	err = db.QueryRowContext(ctx, `SELECT png_blob FROM previews WHERE page_id=? AND w=? AND h=?`, pageID, w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, _ = db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE page_id=? AND w=? AND h=?`, now, pageID, w, h)
	memPreviews.SetDefault(key, blob)
	return blob, nil
}

// PutPreview upserts a thumbnail blob and enforces the cache size cap via LRU eviction.
func PutPreview(ctx context.Context, boardRoot string, pageID, w, h int, blob []byte) error {
	if len(blob) == 0 {
		return errors.New("empty preview blob")
	}
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = db.ExecContext(ctx, `INSERT INTO previews(page_id,w,h,png_blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(page_id,w,h) DO UPDATE SET png_blob=excluded.png_blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		pageID, w, h, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	memPreviews.SetDefault(previewKey(boardRoot, pageID, w, h), blob)
	capBytes := MaxPreviewsBytesFromEnv()
	if capBytes > 0 {
		if err := EvictPreviewsToFit(ctx, db, capBytes); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreatePreview fetches a thumbnail or generates and stores it using the provided generator.
func GetOrCreatePreview(ctx context.Context, boardRoot string, pageID, w, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := GetPreview(ctx, boardRoot, pageID, w, h); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if err := PutPreview(ctx, boardRoot, pageID, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// InvalidatePagePreviews drops all cached thumbnails for a page, typically
// after an edit commit changed its scene graph.
func InvalidatePagePreviews(ctx context.Context, boardRoot string, pageID int) error {
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT w, h FROM previews WHERE page_id=?`, pageID)
	if err != nil {
		return fmt.Errorf("list previews: %w", err)
	}
	type wh struct{ w, h int }
	var sizes []wh
	for rows.Next() {
		var s wh
		if err := rows.Scan(&s.w, &s.h); err != nil {
			_ = rows.Close()
			return err
		}
		sizes = append(sizes, s)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, s := range sizes {
		memPreviews.Delete(previewKey(boardRoot, pageID, s.w, s.h))
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM previews WHERE page_id=?`, pageID); err != nil {
		return fmt.Errorf("delete previews: %w", err)
	}
	return nil
}

// EvictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func EvictPreviewsToFit(ctx context.Context, db *sql.DB, capBytes int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("sum previews size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	// Victims ordered by last_access asc (oldest first), NULLs first
	rows, err := db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	toDelete := make([]int64, 0, 32)
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Important: close the rows cursor before attempting to write
	if err := rows.Close(); err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	sqlBase := `DELETE FROM previews WHERE id IN (`
	for i := range toDelete {
		if i > 0 {
			sqlBase += ","
		}
		sqlBase += "?"
	}
	sqlBase += ")"
	args := make([]any, len(toDelete))
	for i, v := range toDelete {
		args[i] = v
	}
	if _, err := db.ExecContext(ctx, sqlBase, args...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalPreviewBytes returns total bytes tracked by previews.size
func TotalPreviewBytes(ctx context.Context, boardRoot string) (int64, error) {
	db, err := InitOrOpenIndex(boardRoot)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// MaxPreviewsBytesFromEnv reads GSB_PREVIEWS_MAX_BYTES, defaulting to 256MB if unset.
func MaxPreviewsBytesFromEnv() int64 {
	v := os.Getenv("GSB_PREVIEWS_MAX_BYTES")
	if v == "" {
		return 256 * 1024 * 1024 // 256MB
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 256 * 1024 * 1024
	}
	return n
}
