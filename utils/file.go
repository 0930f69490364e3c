package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage persists uploaded files (mission proofs, reward and event images).
type Storage interface {
	Put(ctx context.Context, key string, fh *multipart.FileHeader) (url string, err error)
	Delete(ctx context.Context, key string) error
}

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileTypeInvalid = errors.New("file type not allowed")
)

// ImageExtensions are accepted for reward and event artwork.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".gif"}

// ProofExtensions are accepted as mission proof.
var ProofExtensions = append([]string{".pdf", ".mp4", ".mov"}, ImageExtensions...)

// CheckUpload rejects files over maxBytes or whose extension is not listed.
func CheckUpload(fh *multipart.FileHeader, maxBytes int64, allowed []string) error {
	if fh.Size > maxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, fh.Size, maxBytes)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrFileTypeInvalid, ext)
}

// ObjectKey builds a collision-free key such as "proofs/<uuid>.png".
func ObjectKey(prefix, filename string) string {
	return path.Join(prefix, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// DiskStore keeps uploads under a local directory served at BaseURL.
type DiskStore struct {
	Dir     string
	BaseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return &DiskStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *DiskStore) Put(_ context.Context, key string, fh *multipart.FileHeader) (string, error) {
	dest, err := d.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return "", err
	}

	file, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return d.BaseURL + "/" + key, nil
}

func (d *DiskStore) Delete(_ context.Context, key string) error {
	p, err := d.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// pathFor resolves key inside Dir, refusing keys that escape it.
func (d *DiskStore) pathFor(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(d.Dir, clean), nil
}
