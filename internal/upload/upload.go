// Package upload stores event images on local disk after sniffing their
// content type.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageSize caps an uploaded image.
const MaxImageSize = 5 << 20

// ErrUnsupportedType is returned for content that is not an allowed image.
var ErrUnsupportedType = errors.New("unsupported image type")

// ErrTooLarge is returned when an image exceeds MaxImageSize.
var ErrTooLarge = errors.New("image too large")

// allowed maps sniffed MIME types to the extension files are saved with.
var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Images saves uploaded images into a directory.
type Images struct {
	dir string
}

// NewImages constructs an Images store rooted at dir.
func NewImages(dir string) *Images {
	return &Images{dir: dir}
}

// Dir returns the directory images are written to.
func (i *Images) Dir() string {
	return i.dir
}

// Save sniffs r, and if it is an allowed image writes it under a random name.
// It returns the stored file name.
func (i *Images) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return "", ErrTooLarge
	}

	mt := mimetype.Detect(data)
	ext, ok := allowed[mt.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	name := uuid.NewString() + ext
	f, err := os.OpenFile(filepath.Join(i.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close image: %w", err)
	}
	return name, nil
}

// Remove deletes a previously saved image. Missing files are ignored.
func (i *Images) Remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return nil
	}
	err := os.Remove(filepath.Join(i.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
