package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// PDFContentType is the only accepted upload type.
	PDFContentType = "application/pdf"
	// BlobPrefix is the key prefix of every uploaded paper.
	BlobPrefix = "pyqs/"

	recentWindow = 7 * 24 * time.Hour
	maxPDFSize   = 20 << 20 // 20MB
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyq_uploads_total",
		Help: "PYQ uploads by result.",
	}, []string{"result"})
	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyq_deletes_total",
		Help: "PYQ deletions by result.",
	}, []string{"result"})
	blobRollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyq_blob_rollbacks_total",
		Help: "Blob removals after a failed record write, by result.",
	}, []string{"result"})
)

// Stats are the admin dashboard counters.
type Stats struct {
	Total      int
	RecentWeek int
}

// UploadForm holds the metadata fields of an upload.
type UploadForm struct {
	Subject     string `validate:"required,max=200"`
	Year        string `validate:"required,numeric"`
	Semester    string `validate:"required,oneof=1st 2nd 3rd 4th 5th 6th 7th 8th"`
	ExamType    string `validate:"required,oneof=Mid-term End-term Quiz Assignment"`
	Description string `validate:"max=2000"`
}

// UploadFile is the selected PDF. ContentType is the sniffed type of Data.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Console is the admin view: stats, uploads and deletions.
type Console struct {
	pyqs     domain.PyqRepository
	blobs    domain.BlobStore
	validate *validator.Validate
	now      func() time.Time
}

// NewConsole creates a new Console.
func NewConsole(pyqs domain.PyqRepository, blobs domain.BlobStore) *Console {
	return &Console{
		pyqs:     pyqs,
		blobs:    blobs,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// LoadStats counts every record and those uploaded in the last seven days.
func (c *Console) LoadStats(ctx context.Context) (Stats, error) {
	all, err := c.pyqs.List(ctx)
	if err != nil {
		slog.Error("load stats", "error", err)
		return Stats{}, fmt.Errorf("list pyqs: %w", err)
	}
	recent, err := c.pyqs.ListSince(ctx, c.now().Add(-recentWindow))
	if err != nil {
		slog.Error("load recent stats", "error", err)
		return Stats{}, fmt.Errorf("list recent pyqs: %w", err)
	}
	return Stats{Total: len(all), RecentWeek: len(recent)}, nil
}

// LoadRecent returns the n most recently uploaded records.
func (c *Console) LoadRecent(ctx context.Context, n int) ([]domain.PyqRecord, error) {
	all, err := c.pyqs.List(ctx)
	if err != nil {
		slog.Error("load recent uploads", "error", err)
		return nil, fmt.Errorf("list pyqs: %w", err)
	}
	slices.SortStableFunc(all, func(a, b domain.PyqRecord) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})
	return all[:min(n, len(all))], nil
}

// LoadAll fetches every record into the manage list.
func (c *Console) LoadAll(ctx context.Context, list *ListView) error {
	if err := list.Load(ctx, c.pyqs.List); err != nil {
		slog.Error("load pyqs", "view", ManageViewName, "error", err)
		return err
	}
	return nil
}

// Filter applies f to the loaded records.
func (c *Console) Filter(list *ListView, f Filter) []domain.PyqRecord {
	return f.Apply(list.Records())
}

// Create stores the PDF and then its metadata record. Validation happens
// before either store is called. If the record write fails the blob is
// removed again.
func (c *Console) Create(ctx context.Context, uploader *domain.Principal, form UploadForm, file *UploadFile) (*domain.PyqRecord, error) {
	if uploader == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := validateFile(file); err != nil {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	form.Subject = strings.TrimSpace(form.Subject)
	form.Year = strings.TrimSpace(form.Year)
	form.Description = strings.TrimSpace(form.Description)
	if err := c.validate.Struct(form); err != nil {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, validationMessage(err))
	}
	year, err := strconv.Atoi(form.Year)
	if err != nil {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: year must be a whole number", domain.ErrInvalidInput)
	}

	now := c.now()
	key := BlobKey(form.Subject, year, form.Semester, now)

	url, err := c.blobs.Put(ctx, key, file.Data, PDFContentType)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		slog.Error("upload pyq file", "key", key, "error", err)
		return nil, fmt.Errorf("upload file: %w", err)
	}

	pyq := &domain.PyqRecord{
		Subject:      form.Subject,
		Year:         year,
		Semester:     form.Semester,
		ExamType:     form.ExamType,
		Description:  form.Description,
		BlobKey:      key,
		FileURL:      url,
		UploadedBy:   uploader.ID,
		UploaderName: uploader.Name(),
		UploadedAt:   now,
	}
	if err := c.pyqs.Create(ctx, pyq); err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		slog.Error("create pyq record", "key", key, "error", err)
		c.rollbackBlob(ctx, key)
		return nil, fmt.Errorf("create pyq record: %w", err)
	}

	uploadsTotal.WithLabelValues("ok").Inc()
	slog.Info("pyq uploaded", "id", pyq.ID, "key", key, "uploader", uploader.ID)
	return pyq, nil
}

// Delete removes the record's blob, then the record, then the list entry.
// It stops at the first failure. A blob that is already gone does not block
// the record removal.
func (c *Console) Delete(ctx context.Context, list *ListView, id string, confirmed bool) error {
	if !confirmed {
		return domain.ErrConfirmationRequired
	}

	pyq, ok := list.Find(id)
	if !ok {
		stored, err := c.pyqs.GetByID(ctx, id)
		if err != nil {
			deletesTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("get pyq: %w", err)
		}
		pyq = *stored
	}

	if err := c.blobs.Delete(ctx, pyq.BlobKey); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			deletesTotal.WithLabelValues("error").Inc()
			slog.Error("delete pyq file", "id", id, "key", pyq.BlobKey, "error", err)
			return fmt.Errorf("delete file: %w", err)
		}
		slog.Warn("pyq file already absent", "id", id, "key", pyq.BlobKey)
	}

	if err := c.pyqs.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		deletesTotal.WithLabelValues("error").Inc()
		slog.Error("pyq record left without its file", "id", id, "key", pyq.BlobKey, "error", err)
		return fmt.Errorf("delete pyq record: %w", err)
	}

	list.Remove(id)
	deletesTotal.WithLabelValues("ok").Inc()
	slog.Info("pyq deleted", "id", id, "key", pyq.BlobKey)
	return nil
}

func (c *Console) rollbackBlob(ctx context.Context, key string) {
	// The request may already be cancelled; the rollback must still run.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := c.blobs.Delete(ctx, key); err != nil {
		blobRollbacksTotal.WithLabelValues("error").Inc()
		slog.Error("orphan pyq file after failed record write", "key", key, "error", err)
		return
	}
	blobRollbacksTotal.WithLabelValues("ok").Inc()
}

// BlobKey builds the storage key of an upload. The millisecond timestamp
// keeps concurrent uploads of the same paper apart.
func BlobKey(subject string, year int, semester string, at time.Time) string {
	subject = strings.NewReplacer("/", "-", "\\", "-").Replace(strings.TrimSpace(subject))
	return fmt.Sprintf("%s%s_%d_%s_%d.pdf", BlobPrefix, subject, year, semester, at.UnixMilli())
}

// YearOptions returns the selectable upload years: the current year and the
// nine before it.
func YearOptions(now time.Time) []int {
	years := make([]int, 10)
	for i := range years {
		years[i] = now.Year() - i
	}
	return years
}

func validateFile(file *UploadFile) error {
	if file == nil || len(file.Data) == 0 {
		return fmt.Errorf("%w: please select a PDF file", domain.ErrInvalidInput)
	}
	if file.ContentType != PDFContentType {
		return fmt.Errorf("%w: only PDF files are accepted", domain.ErrInvalidInput)
	}
	if len(file.Data) > maxPDFSize {
		return fmt.Errorf("%w: file exceeds the 20MB limit", domain.ErrInvalidInput)
	}
	return nil
}

// validationMessage turns the first failed field into a form message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Field() == "ExamType" {
		field = "exam type"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "numeric":
		return field + " must be a number"
	case "oneof":
		return field + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " is invalid"
	}
}
