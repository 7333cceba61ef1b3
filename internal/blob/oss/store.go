// Package oss stores PYQ files in an Alibaba Cloud OSS bucket.
package oss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	alioss "github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/msomdec/pyq-archive/internal/domain"
)

const listPageSize = 1000

// Config holds the bucket coordinates and credentials.
type Config struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	// PublicBase overrides the https://<bucket>.<endpoint> retrieval base,
	// e.g. for a CDN domain.
	PublicBase string
}

// Store implements domain.BlobStore on an OSS bucket.
type Store struct {
	bucket     *alioss.Bucket
	endpoint   string
	bucketName string
	publicBase string
}

// New creates a Store. It does not contact the service.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" {
		return nil, fmt.Errorf("%w: oss endpoint, bucket and credentials are required", domain.ErrInvalidInput)
	}

	client, err := alioss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss client: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss bucket: %w", err)
	}

	return &Store{
		bucket:     bucket,
		endpoint:   cfg.Endpoint,
		bucketName: cfg.Bucket,
		publicBase: strings.TrimRight(strings.TrimSpace(cfg.PublicBase), "/"),
	}, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", domain.ErrInvalidInput)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err := s.bucket.PutObject(key, bytes.NewReader(data),
		alioss.WithContext(ctx),
		alioss.ContentType(contentType),
		alioss.ContentDisposition("inline"),
	)
	if err != nil {
		return "", blobError("put object", err)
	}
	return s.URL(key), nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	meta, err := s.bucket.GetObjectDetailedMeta(key, alioss.WithContext(ctx))
	if err != nil {
		return nil, "", blobError("head object", err)
	}

	body, err := s.bucket.GetObject(key, alioss.WithContext(ctx))
	if err != nil {
		return nil, "", blobError("get object", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", blobError("read object", err)
	}
	return data, meta.Get("Content-Type"), nil
}

// Delete removes the object. OSS reports success for keys that do not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, alioss.WithContext(ctx)); err != nil {
		return blobError("delete object", err)
	}
	return nil
}

// List pages through every object under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	var blobs []domain.BlobInfo
	marker := alioss.Marker("")

	for {
		res, err := s.bucket.ListObjects(alioss.Prefix(prefix), marker, alioss.MaxKeys(listPageSize), alioss.WithContext(ctx))
		if err != nil {
			return nil, blobError("list objects", err)
		}
		for _, obj := range res.Objects {
			if obj.Key == "" {
				continue
			}
			blobs = append(blobs, domain.BlobInfo{
				Key:          obj.Key,
				Size:         obj.Size,
				LastModified: obj.LastModified,
			})
		}
		if !res.IsTruncated {
			break
		}
		marker = alioss.Marker(res.NextMarker)
	}

	return blobs, nil
}

// URL returns the public retrieval URL of key.
func (s *Store) URL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	path := strings.Join(segments, "/")

	if s.publicBase != "" {
		return s.publicBase + "/" + path
	}
	end := strings.TrimPrefix(s.endpoint, "https://")
	end = strings.TrimPrefix(end, "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, strings.TrimRight(end, "/"), path)
}

func blobError(op string, err error) error {
	var se alioss.ServiceError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrBlobStore, op, err)
}
