package graph

import (
	"fmt"
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

const defaultMimeType = "application/octet-stream"

// File is an upload attachment backed by a path on a filesystem. The
// content is read when the request carrying it is sent, so the file must
// stay in place until then.
type File struct {
	fs   afero.Fs
	path string
}

// NewFile wraps a file on the OS filesystem.
func NewFile(path string) (*File, error) {
	return NewFileFromFs(afero.NewOsFs(), path)
}

// NewFileFromFs wraps a file on the given filesystem.
func NewFileFromFs(fs afero.Fs, path string) (*File, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return &File{fs: fs, path: path}, nil
}

// Path returns the path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// Name returns the base name of the file.
func (f *File) Name() string {
	return filepath.Base(f.path)
}

// Bytes reads the whole file.
func (f *File) Bytes() ([]byte, error) {
	b, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return b, nil
}

// MimeType guesses the media type from the extension, falling back to
// sniffing the content. Parameters such as charset are dropped.
func (f *File) MimeType() string {
	if t := mime.TypeByExtension(filepath.Ext(f.path)); t != "" {
		return stripMediaParams(t)
	}
	b, err := f.Bytes()
	if err != nil {
		return defaultMimeType
	}
	return stripMediaParams(mimetype.Detect(b).String())
}

func stripMediaParams(t string) string {
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil || mediaType == "" {
		return defaultMimeType
	}
	return mediaType
}
