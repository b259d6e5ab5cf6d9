// Package files stores uploaded receipt images for the emulator and serves
// them back under the URLs recorded on bills.
package files

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MaxDimension is the longest side a stored receipt keeps. Larger images are
// scaled down on upload.
const MaxDimension = 1600

// ErrNotImage is returned when the uploaded bytes are not an image.
var ErrNotImage = errors.New("file is not an image")

// Stored describes a saved receipt.
type Stored struct {
	Name        string // name on disk, unique
	FileName    string // name given by the employee
	ContentType string
	URL         string
}

// Storage saves receipts under dir and builds their public URLs from baseURL.
type Storage struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

// NewStorage creates the upload directory if needed.
func NewStorage(dir, baseURL string, logger *slog.Logger) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}, nil
}

// Save sniffs r, rejects anything that is not an image and writes it to disk.
// Images larger than MaxDimension are resized, keeping their aspect ratio.
func (s *Storage) Save(fileName string, r io.Reader) (*Stored, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotImage
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	if resized, ok := s.shrink(data, name); ok {
		err := imaging.Save(resized, path)
		if err == nil {
			return s.stored(name, fileName, contentType), nil
		}
		s.logger.Warn("Failed to save resized receipt, keeping original", "name", name, "error", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	return s.stored(name, fileName, contentType), nil
}

// shrink decodes data and returns a resized copy when it exceeds MaxDimension.
func (s *Storage) shrink(data []byte, name string) (image.Image, bool) {
	switch filepath.Ext(name) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
	default:
		// imaging.Save picks the encoder from the extension.
		return nil, false
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		s.logger.Debug("Receipt not decodable, stored as is", "name", name, "error", err)
		return nil, false
	}

	bounds := img.Bounds()
	if bounds.Dx() <= MaxDimension && bounds.Dy() <= MaxDimension {
		return nil, false
	}

	s.logger.Info("Resizing receipt", "name", name, "width", bounds.Dx(), "height", bounds.Dy())
	return imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos), true
}

func (s *Storage) stored(name, fileName, contentType string) *Stored {
	return &Stored{
		Name:        name,
		FileName:    fileName,
		ContentType: contentType,
		URL:         s.baseURL + "/files/" + name,
	}
}

// Serve handles GET /files/{name}.
func (s *Storage) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filepath.Join(s.dir, name))
}
