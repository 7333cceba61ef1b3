package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pyq_downloads_total",
	Help: "Counted PYQ downloads by result.",
}, []string{"result"})

// Catalog is the student view over every PYQ record.
type Catalog struct {
	pyqs domain.PyqRepository
}

// NewCatalog creates a new Catalog.
func NewCatalog(pyqs domain.PyqRepository) *Catalog {
	return &Catalog{pyqs: pyqs}
}

// LoadAll fetches every record, newest first, into list. On failure the
// error is logged and the previous records stay in place.
func (c *Catalog) LoadAll(ctx context.Context, list *ListView) error {
	if err := list.Load(ctx, c.pyqs.List); err != nil {
		slog.Error("load pyqs", "view", CatalogViewName, "error", err)
		return err
	}
	return nil
}

// Filter applies f to the loaded records.
func (c *Catalog) Filter(list *ListView, f Filter) []domain.PyqRecord {
	return f.Apply(list.Records())
}

// Download counts one download of the record and mirrors it into list. The
// returned record carries the retrieval URL to open. Nothing is returned
// when the stored increment fails.
func (c *Catalog) Download(ctx context.Context, list *ListView, id string) (*domain.PyqRecord, error) {
	if err := c.pyqs.IncrementDownloads(ctx, id); err != nil {
		downloadsTotal.WithLabelValues("error").Inc()
		slog.Error("increment download count", "id", id, "error", err)
		return nil, fmt.Errorf("increment download count: %w", err)
	}
	downloadsTotal.WithLabelValues("ok").Inc()

	if p, ok := list.IncrementDownloads(id); ok {
		return &p, nil
	}

	// Not in the loaded list; read the stored copy for its URL.
	p, err := c.pyqs.GetByID(ctx, id)
	if err != nil {
		slog.Error("get pyq after download", "id", id, "error", err)
		return nil, fmt.Errorf("get pyq: %w", err)
	}
	return p, nil
}
