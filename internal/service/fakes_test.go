package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/msomdec/pyq-archive/internal/domain"
)

// fakeBlobStore is an in-memory blob store that counts calls and can be told
// to fail.
type fakeBlobStore struct {
	mu        sync.Mutex
	objects   map[string]fakeObject
	putErr    error
	deleteErr error
	puts      int
	deletes   int
}

type fakeObject struct {
	data     []byte
	ct       string
	modified time.Time
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string]fakeObject)}
}

func (f *fakeBlobStore) Put(_ context.Context, key string, data []byte, ct string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = fakeObject{data: data, ct: ct, modified: time.Now()}
	return "https://blobs.example.com/" + key, nil
}

func (f *fakeBlobStore) Get(_ context.Context, key string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return obj.data, obj.ct, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.objects[key]; !ok {
		return domain.ErrNotFound
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobStore) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BlobInfo
	for key, obj := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, domain.BlobInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
	}
	return out, nil
}

func (f *fakeBlobStore) calls() (puts, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts, f.deletes
}

func (f *fakeBlobStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// age backdates every stored object.
func (f *fakeBlobStore) age(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, obj := range f.objects {
		obj.modified = obj.modified.Add(-d)
		f.objects[k] = obj
	}
}

// fakePyqRepository wraps a real repository and can fail selected calls.
type fakePyqRepository struct {
	domain.PyqRepository
	createErr    error
	deleteErr    error
	listErr      error
	incrementErr error
	calls        int
}

func (r *fakePyqRepository) Create(ctx context.Context, p *domain.PyqRecord) error {
	r.calls++
	if r.createErr != nil {
		return r.createErr
	}
	return r.PyqRepository.Create(ctx, p)
}

func (r *fakePyqRepository) Delete(ctx context.Context, id string) error {
	r.calls++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.PyqRepository.Delete(ctx, id)
}

func (r *fakePyqRepository) List(ctx context.Context) ([]domain.PyqRecord, error) {
	r.calls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.PyqRepository.List(ctx)
}

func (r *fakePyqRepository) IncrementDownloads(ctx context.Context, id string) error {
	r.calls++
	if r.incrementErr != nil {
		return r.incrementErr
	}
	return r.PyqRepository.IncrementDownloads(ctx, id)
}

var errStoreDown = fmt.Errorf("%w: connection refused", domain.ErrRecordStore)
