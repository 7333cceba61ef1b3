package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/pyq-archive/internal/handler"
	"github.com/msomdec/pyq-archive/internal/identity"
	"github.com/msomdec/pyq-archive/internal/repository/sqlite"
	"github.com/msomdec/pyq-archive/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestDeps(t *testing.T, db *sqlite.DB) handler.Deps {
	t.Helper()
	blobs := db.Blobs("/files")
	return handler.Deps{
		Gateway:       identity.NewGateway(db.Accounts(), db.AuthSessions(), testJWTSecret, 4),
		Users:         db.Users(),
		Catalog:       service.NewCatalog(db.Pyqs()),
		Console:       service.NewConsole(db.Pyqs(), blobs),
		Views:         service.NewViewCache(64, time.Minute),
		Health:        db,
		Files:         blobs,
		CookieSecure:  false,
		ToastDuration: 10 * time.Millisecond,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.DB) {
	t.Helper()
	db := newTestDB(t)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, newTestDeps(t, db))

	srv := httptest.NewServer(handler.Metrics(handler.SecurityHeaders(mux)))
	t.Cleanup(srv.Close)
	return srv, db
}

// newClient returns a client with its own cookie jar that does not follow
// redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func register(t *testing.T, client *http.Client, base, name, email, role string) *http.Response {
	t.Helper()
	resp, err := client.PostForm(base+"/register", url.Values{
		"name":             {name},
		"email":            {email},
		"password":         {"password123"},
		"confirm_password": {"password123"},
		"role":             {role},
	})
	if err != nil {
		t.Fatalf("POST /register: %v", err)
	}
	resp.Body.Close()
	return resp
}

func uploadPDF(t *testing.T, client *http.Client, base string, fields map[string]string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if data != nil {
		fw, err := mw.CreateFormFile("file", "paper.pdf")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(data)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, base+"/admin/upload", &body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST /admin/upload: %v", err)
	}
	return resp
}

func datastarGet(t *testing.T, client *http.Client, rawURL string, signals string) *http.Response {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	q.Set("datastar", signals)
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Datastar-Request", "true")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	return resp
}
