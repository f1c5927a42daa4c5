package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrInvalidKey       = errors.New("invalid storage key")
)

var allowedExtensions = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".gif":  ".gif",
	".webp": ".webp",
}

// Storage persists media files addressed by a slash separated key.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Key names a media file after the record owning it: <kind>/<id>.<ext>.
// A random name is used while the record has no id yet.
func Key(kind string, id uint64, filename string) (string, error) {
	ext, err := Extension(filename)
	if err != nil {
		return "", err
	}

	name := uuid.NewString()
	if id != 0 {
		name = strconv.FormatUint(id, 10)
	}
	return path.Join(kind, name+ext), nil
}

// Extension returns the normalized image extension of filename.
func Extension(filename string) (string, error) {
	ext, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", ErrUnsupportedMedia
	}
	return ext, nil
}

// LocalStorage keeps media files under a directory served at urlPrefix.
type LocalStorage struct {
	root      string
	urlPrefix string
}

func NewLocalStorage(root, urlPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStorage{
		root:      root,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}, nil
}

func (s *LocalStorage) fullPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean[1:] != key {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Save writes the file through a temp file and renames it into place
func (s *LocalStorage) Save(ctx context.Context, key string, r io.Reader) error {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

// Delete removes the file; a missing file is not an error
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// URL returns the path the file is served under
func (s *LocalStorage) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.urlPrefix + "/" + key
}
