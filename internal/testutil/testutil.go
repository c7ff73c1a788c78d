// Package testutil provides shared test helpers for setting up repositories
// and media stores.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/starford/othala/internal/book"
	"github.com/starford/othala/internal/media"
)

// TestBook creates a temporary SQLite-backed repository that is
// automatically cleaned up.
func TestBook(t *testing.T) *book.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "othala-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := book.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestMedia creates a temporary media directory with a media.Store.
func TestMedia(t *testing.T) (string, media.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := media.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestPNG renders a small opaque PNG of the given size for photo tests.
func TestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 12), G: uint8(y * 12), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
