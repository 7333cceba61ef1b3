package service

import (
	"context"
	"slices"
	"sync"

	"github.com/msomdec/pyq-archive/internal/domain"
)

// ListState is the load state of a PYQ list.
type ListState int

const (
	ListIdle ListState = iota
	ListLoading
	ListLoaded
	ListLoadError
)

func (s ListState) String() string {
	switch s {
	case ListIdle:
		return "idle"
	case ListLoading:
		return "loading"
	case ListLoaded:
		return "loaded"
	case ListLoadError:
		return "load-error"
	default:
		return "unknown"
	}
}

// ListView is the PYQ list held for one viewer. A failed load keeps the
// previous records. Downloads and deletes mutate the loaded list in place.
type ListView struct {
	mu      sync.Mutex
	state   ListState
	records []domain.PyqRecord
	err     error
	gen     uint64
}

// NewListView returns an idle, empty list.
func NewListView() *ListView {
	return &ListView{}
}

// Load moves the list to Loading and runs fetch. When several loads overlap,
// only the most recently started one updates the list.
func (l *ListView) Load(ctx context.Context, fetch func(context.Context) ([]domain.PyqRecord, error)) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.state = ListLoading
	l.mu.Unlock()

	records, err := fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return err
	}
	if err != nil {
		l.state = ListLoadError
		l.err = err
		return err
	}
	l.state = ListLoaded
	l.records = records
	l.err = nil
	return nil
}

// State returns the current load state.
func (l *ListView) State() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error of the last failed load.
func (l *ListView) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Records returns a copy of the held records.
func (l *ListView) Records() []domain.PyqRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Find returns a copy of the record with id.
func (l *ListView) Find(id string) (domain.PyqRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(id)
	if i < 0 {
		return domain.PyqRecord{}, false
	}
	return l.records[i], true
}

// IncrementDownloads mirrors a stored download increment and returns the
// updated record.
func (l *ListView) IncrementDownloads(id string) (domain.PyqRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(id)
	if i < 0 {
		return domain.PyqRecord{}, false
	}
	l.records[i].DownloadCount++
	return l.records[i], true
}

// Remove drops the record with id.
func (l *ListView) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.records = slices.Delete(l.records, i, i+1)
	return true
}

func (l *ListView) index(id string) int {
	return slices.IndexFunc(l.records, func(p domain.PyqRecord) bool { return p.ID == id })
}
