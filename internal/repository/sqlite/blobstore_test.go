package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/repository/sqlite"
)

func TestBlobStore_PutGetDelete(t *testing.T) {
	db := newTestDB(t)
	store := sqlite.NewBlobStore(db, "/files/")
	ctx := context.Background()

	url, err := store.Put(ctx, "pyqs/Data Structures_2024_1st_1.pdf", []byte("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "/files/pyqs/Data%20Structures_2024_1st_1.pdf" {
		t.Fatalf("unexpected url %q", url)
	}

	data, ct, err := store.Get(ctx, "pyqs/Data Structures_2024_1st_1.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "%PDF-1.4" || ct != "application/pdf" {
		t.Fatalf("unexpected blob %q (%s)", data, ct)
	}

	if err := store.Delete(ctx, "pyqs/Data Structures_2024_1st_1.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := store.Get(ctx, "pyqs/Data Structures_2024_1st_1.pdf"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "pyqs/Data Structures_2024_1st_1.pdf"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting a missing key, got %v", err)
	}
}

func TestBlobStore_DuplicateKey(t *testing.T) {
	db := newTestDB(t)
	store := sqlite.NewBlobStore(db, "/files")
	ctx := context.Background()

	if _, err := store.Put(ctx, "pyqs/a.pdf", []byte("a"), "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, err := store.Put(ctx, "pyqs/a.pdf", []byte("b"), "application/pdf")
	if !errors.Is(err, domain.ErrBlobStore) {
		t.Fatalf("expected ErrBlobStore, got %v", err)
	}
}

func TestBlobStore_ListByPrefix(t *testing.T) {
	db := newTestDB(t)
	store := sqlite.NewBlobStore(db, "/files")
	ctx := context.Background()

	for _, key := range []string{"pyqs/a.pdf", "pyqs/b.pdf", "other/c.pdf"} {
		if _, err := store.Put(ctx, key, []byte("x"), "application/pdf"); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	blobs, err := store.List(ctx, "pyqs/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(blobs) != 2 {
		t.Fatalf("expected 2 blobs under pyqs/, got %d", len(blobs))
	}
	if blobs[0].Key != "pyqs/a.pdf" || blobs[0].Size != 1 || blobs[0].LastModified.IsZero() {
		t.Fatalf("unexpected blob info %+v", blobs[0])
	}
}
