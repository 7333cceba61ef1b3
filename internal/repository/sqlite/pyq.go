package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/pyq-archive/internal/domain"
)

const pyqColumns = `id, subject, year, semester, exam_type, description, file_name, file_url,
	uploaded_by, uploader_name, uploaded_at, download_count`

// PyqRepository implements domain.PyqRepository using SQLite.
type PyqRepository struct {
	db *sql.DB
}

// NewPyqRepository creates a new SQLite-backed PyqRepository.
func NewPyqRepository(db *DB) *PyqRepository {
	return &PyqRepository{db: db.SqlDB}
}

// Create inserts the record and assigns its id.
func (r *PyqRepository) Create(ctx context.Context, p *domain.PyqRecord) error {
	id := uuid.NewString()
	if p.UploadedAt.IsZero() {
		p.UploadedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pyqs (`+pyqColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Subject, p.Year, p.Semester, p.ExamType, p.Description, p.BlobKey, p.FileURL,
		p.UploadedBy, p.UploaderName, formatTime(p.UploadedAt), p.DownloadCount,
	)
	if err != nil {
		return storeError("insert pyq", err)
	}

	p.ID = id
	return nil
}

func (r *PyqRepository) GetByID(ctx context.Context, id string) (*domain.PyqRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pyqColumns+` FROM pyqs WHERE id = ?`, id)
	p, err := scanPyq(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeError("query pyq by id", err)
	}
	return p, nil
}

func (r *PyqRepository) List(ctx context.Context) ([]domain.PyqRecord, error) {
	return r.query(ctx, `SELECT `+pyqColumns+` FROM pyqs ORDER BY uploaded_at DESC, id`)
}

func (r *PyqRepository) ListSince(ctx context.Context, since time.Time) ([]domain.PyqRecord, error) {
	return r.query(ctx,
		`SELECT `+pyqColumns+` FROM pyqs WHERE uploaded_at >= ? ORDER BY uploaded_at DESC, id`,
		formatTime(since),
	)
}

// IncrementDownloads bumps the counter in a single UPDATE so concurrent
// downloads never lose an increment.
func (r *PyqRepository) IncrementDownloads(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pyqs SET download_count = download_count + 1 WHERE id = ?`, id,
	)
	if err != nil {
		return storeError("increment download count", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storeError("rows affected", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PyqRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pyqs WHERE id = ?`, id)
	if err != nil {
		return storeError("delete pyq", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storeError("rows affected", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PyqRepository) ExistsByBlobKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pyqs WHERE file_name = ?)`, key,
	).Scan(&exists)
	if err != nil {
		return false, storeError("check blob key", err)
	}
	return exists, nil
}

func (r *PyqRepository) query(ctx context.Context, q string, args ...any) ([]domain.PyqRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeError("list pyqs", err)
	}
	defer rows.Close()

	var pyqs []domain.PyqRecord
	for rows.Next() {
		p, err := scanPyq(rows)
		if err != nil {
			return nil, storeError("scan pyq", err)
		}
		pyqs = append(pyqs, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate pyqs", err)
	}
	return pyqs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPyq(row rowScanner) (*domain.PyqRecord, error) {
	var (
		p          domain.PyqRecord
		uploadedAt string
	)
	err := row.Scan(&p.ID, &p.Subject, &p.Year, &p.Semester, &p.ExamType, &p.Description,
		&p.BlobKey, &p.FileURL, &p.UploadedBy, &p.UploaderName, &uploadedAt, &p.DownloadCount)
	if err != nil {
		return nil, err
	}
	if p.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
