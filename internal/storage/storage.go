// Package storage keeps registered reference face images on disk.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	filePrefix         = "registered_face_"
	DefaultMaxFileSize = 10 * 1024 * 1024
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

var extensions = map[string]string{
	"jpeg": ".jpg",
	"jpg":  ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
	"bmp":  ".bmp",
}

type Result struct {
	Path     string
	Filename string
	Size     int64
}

type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsExists reports whether err means a reference image is already present.
func IsExists(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == "EXISTS"
}

func IsStorageError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// IsNotFound reports whether err means the image does not exist.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == "NOT_FOUND"
}

type FaceStore struct {
	dir     string
	maxSize int64
}

func NewFaceStore(dir string) *FaceStore {
	return &FaceStore{dir: dir, maxSize: DefaultMaxFileSize}
}

func (s *FaceStore) Dir() string { return s.dir }

// Filename returns the reference image name for username and image format.
func Filename(username, format string) (string, error) {
	ext, ok := extensions[strings.ToLower(format)]
	if !ok {
		return "", &Error{Code: "INVALID_TYPE", Message: fmt.Sprintf("unsupported image format: %s", format)}
	}
	if username == "" {
		return "", &Error{Code: "INVALID_NAME", Message: "username is required"}
	}
	return filePrefix + unsafeChars.ReplaceAllString(username, "_") + ext, nil
}

// SaveReference writes data as the reference image of username. The file
// is written under a temporary name and linked into place.
func (s *FaceStore) SaveReference(username, format string, data []byte) (*Result, error) {
	if int64(len(data)) > s.maxSize {
		return nil, &Error{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("image exceeds the %dMB limit", s.maxSize/1024/1024),
		}
	}

	filename, err := Filename(username, format)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, &Error{Code: "DIRECTORY_ERROR", Message: "failed to create face directory", Err: err}
	}

	dstPath := filepath.Join(s.dir, filename)
	tmpPath := filepath.Join(s.dir, "."+filename+"."+uuid.New().String()[:8]+".tmp")

	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		os.Remove(tmpPath)
		return nil, &Error{Code: "WRITE_ERROR", Message: "failed to save image", Err: err}
	}
	defer os.Remove(tmpPath)

	// Link falha se o destino existir: nunca sobrescreve a referência de outra conta.
	if err := os.Link(tmpPath, dstPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, &Error{Code: "EXISTS", Message: "reference image already registered", Err: err}
		}
		return nil, &Error{Code: "WRITE_ERROR", Message: "failed to save image", Err: err}
	}

	return &Result{
		Path:     dstPath,
		Filename: filename,
		Size:     int64(len(data)),
	}, nil
}

// Read loads an image by the path recorded at registration. Paths that
// resolve outside the store directory are rejected.
func (s *FaceStore) Read(path string) ([]byte, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Code: "NOT_FOUND", Message: "image not found", Err: err}
		}
		return nil, &Error{Code: "READ_ERROR", Message: "failed to read image", Err: err}
	}
	return data, nil
}

// Path maps a bare filename, as used in URLs, to its location in the store.
func (s *FaceStore) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", &Error{Code: "INVALID_PATH", Message: "invalid filename"}
	}
	return s.resolve(filepath.Join(s.dir, filename))
}

func (s *FaceStore) Delete(path string) error {
	resolved, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Code: "DELETE_ERROR", Message: "failed to delete image", Err: err}
	}
	return nil
}

func (s *FaceStore) Exists(path string) bool {
	resolved, err := s.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(resolved)
	return err == nil && info.Mode().IsRegular()
}

func (s *FaceStore) resolve(path string) (string, error) {
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return "", &Error{Code: "INVALID_PATH", Message: "invalid store directory", Err: err}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &Error{Code: "INVALID_PATH", Message: "invalid path", Err: err}
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &Error{Code: "INVALID_PATH", Message: "path outside face directory"}
	}
	return abs, nil
}
