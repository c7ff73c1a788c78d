package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/contactsvc"
	"github.com/starford/othala/internal/media"
	"github.com/starford/othala/internal/photo"
)

const maxUploadBytes = 20 << 20 // 20 MB for photo uploads

// PhotoHandler accepts photo uploads and serves stored media files.
type PhotoHandler struct {
	svc   *contactsvc.Service
	store media.Store
}

// NewPhotoHandler creates a handler backed by the media store.
func NewPhotoHandler(svc *contactsvc.Service, store media.Store) *PhotoHandler {
	return &PhotoHandler{svc: svc, store: store}
}

// cropRect reads the optional crop rectangle from multipart form fields
// x, y, w, h. When all four are absent the zero Rect is returned and the
// photo is stored uncropped.
func cropRect(r *http.Request) (photo.Rect, bool, error) {
	fields := [4]string{"x", "y", "w", "h"}
	var vals [4]int
	present := false
	for i, name := range fields {
		s := r.FormValue(name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return photo.Rect{}, false, err
		}
		vals[i] = n
		present = true
	}
	if !present {
		return photo.Rect{}, false, nil
	}
	return photo.Rect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, true, nil
}

// Upload handles POST /contacts/{id}/photo (multipart/form-data, field
// "file", optional crop fields x/y/w/h).
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	rect, hasRect, err := cropRect(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("crop fields must be integers"))
		return
	}
	if !hasRect {
		// Full-image crop; SetPhoto clamps to the decoded bounds.
		rect = photo.Rect{X: 0, Y: 0, W: 1 << 30, H: 1 << 30}
	}

	path, err := h.svc.SetPhoto(r.Context(), id, data, rect)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, photo.ErrBadImage):
			writeJSON(w, http.StatusBadRequest, errorBody("unsupported or corrupt image"))
		default:
			slog.Error("photo upload failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, PhotoUploadResponse{
		PhotoPath: path,
		URL:       "/media/" + path,
	})
}

// ServeFile handles GET /media/*: stored photos are served straight from
// the media root. The store rejects paths that escape it.
func (h *PhotoHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	abs, err := h.store.Abs(rel)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid media path"))
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
