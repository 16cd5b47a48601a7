package separation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidImageRef is returned for references that are not a plain file
// name inside the image directory.
var ErrInvalidImageRef = errors.New("invalid image reference")

// ImageStore keeps the photographed original of each scan item. References
// are derived from the item id and the image's content type.
type ImageStore interface {
	SaveImage(itemID, contentType string, data []byte) (string, error)
	LoadImage(ref string) ([]byte, error)
	RemoveImage(ref string) error
}

// DiskImageStore writes images into a single directory
type DiskImageStore struct {
	dir string
}

// NewDiskImageStore creates the directory if needed
func NewDiskImageStore(dir string) (*DiskImageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &DiskImageStore{dir: dir}, nil
}

// imageRef names an item's image, e.g. "0192f1c2-....jpg"
func imageRef(itemID, contentType string) string {
	return filepath.Base(itemID) + extensionFor(contentType)
}

func (d *DiskImageStore) resolve(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	return filepath.Join(d.dir, ref), nil
}

// SaveImage writes to a temporary file and renames it into place, so a
// reader never sees a partial image.
func (d *DiskImageStore) SaveImage(itemID, contentType string, data []byte) (string, error) {
	ref := imageRef(itemID, contentType)
	path, err := d.resolve(ref)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return ref, nil
}

func (d *DiskImageStore) LoadImage(ref string) ([]byte, error) {
	path, err := d.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return data, nil
}

func (d *DiskImageStore) RemoveImage(ref string) error {
	path, err := d.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing image: %w", err)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/heic", "image/heif":
		return ".heic"
	case "application/pdf":
		return ".pdf"
	}
	return ".bin"
}
