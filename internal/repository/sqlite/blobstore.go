package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/msomdec/pyq-archive/internal/domain"
)

// BlobStore implements domain.BlobStore using SQLite BLOBs. Objects are
// served back by the application under publicBase.
type BlobStore struct {
	db         *sql.DB
	publicBase string
}

// NewBlobStore creates a BLOB-table backed store.
func NewBlobStore(db *DB, publicBase string) *BlobStore {
	return &BlobStore{db: db.SqlDB, publicBase: strings.TrimRight(publicBase, "/")}
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO file_blobs (storage_key, content_type, data, created_at) VALUES (?, ?, ?, ?)",
		key, contentType, data, formatTime(time.Now()),
	)
	if err != nil {
		return "", blobError("save file blob", err)
	}
	return s.URL(key), nil
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT data, content_type FROM file_blobs WHERE storage_key = ?", key,
	).Scan(&data, &contentType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", blobError("get file blob", err)
	}
	return data, contentType, nil
}

// Delete removes the object. Deleting a missing key reports ErrNotFound.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM file_blobs WHERE storage_key = ?", key)
	if err != nil {
		return blobError("delete file blob", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return blobError("rows affected", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *BlobStore) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT storage_key, length(data), created_at FROM file_blobs
		 WHERE substr(storage_key, 1, length(?)) = ? ORDER BY storage_key`,
		prefix, prefix,
	)
	if err != nil {
		return nil, blobError("list file blobs", err)
	}
	defer rows.Close()

	var blobs []domain.BlobInfo
	for rows.Next() {
		var (
			b         domain.BlobInfo
			createdAt string
		)
		if err := rows.Scan(&b.Key, &b.Size, &createdAt); err != nil {
			return nil, blobError("scan file blob", err)
		}
		if b.LastModified, err = parseTime(createdAt); err != nil {
			return nil, blobError("parse blob created_at", err)
		}
		blobs = append(blobs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, blobError("iterate file blobs", err)
	}
	return blobs, nil
}

// URL returns the retrieval URL for key, escaping each path segment.
func (s *BlobStore) URL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBase + "/" + strings.Join(segments, "/")
}

func blobError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrBlobStore, op, err)
}
