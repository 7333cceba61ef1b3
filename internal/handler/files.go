package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/msomdec/pyq-archive/internal/domain"
)

// FileHandler serves blobs kept in the database blob store.
type FileHandler struct {
	blobs domain.BlobStore
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(blobs domain.BlobStore) *FileHandler {
	return &FileHandler{blobs: blobs}
}

// HandleFile writes the blob stored under the path key.
// GET /files/{key...}
func (h *FileHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	data, contentType, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("get blob", "key", key, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
