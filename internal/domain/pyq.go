package domain

import (
	"context"
	"time"
)

// Semesters are the eight ordinal labels a paper can be filed under.
var Semesters = []string{"1st", "2nd", "3rd", "4th", "5th", "6th", "7th", "8th"}

// ExamTypes are the accepted exam type labels.
var ExamTypes = []string{"Mid-term", "End-term", "Quiz", "Assignment"}

// PyqRecord is the metadata of one uploaded question paper.
type PyqRecord struct {
	ID            string
	Subject       string
	Year          int
	Semester      string
	ExamType      string
	Description   string
	BlobKey       string // Unique key of the PDF in the blob store
	FileURL       string // Retrieval URL returned by the blob store
	UploadedBy    string // Principal id of the uploader
	UploaderName  string // Snapshot of the uploader's display name
	UploadedAt    time.Time
	DownloadCount int64
}

// PyqRepository is the "pyqs" collection of the record store.
type PyqRepository interface {
	Create(ctx context.Context, pyq *PyqRecord) error
	GetByID(ctx context.Context, id string) (*PyqRecord, error)
	// List returns every record ordered by upload time, newest first.
	List(ctx context.Context) ([]PyqRecord, error)
	// ListSince returns records uploaded at or after since, newest first.
	ListSince(ctx context.Context, since time.Time) ([]PyqRecord, error)
	// IncrementDownloads atomically adds one to the download count.
	IncrementDownloads(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ExistsByBlobKey(ctx context.Context, key string) (bool, error)
}
