package graph

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFile(t *testing.T, fs afero.Fs, path, content string) *File {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	f, err := NewFileFromFs(fs, path)
	require.NoError(t, err)
	return f
}

func TestNewFileMissing(t *testing.T) {
	_, err := NewFileFromFs(afero.NewMemMapFs(), "/nope.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := memFile(t, fs, "/tmp/foo.txt", "This is a text file used for testing.")

	assert.Equal(t, "/tmp/foo.txt", f.Path())
	assert.Equal(t, "foo.txt", f.Name())
	assert.Equal(t, "text/plain", f.MimeType())

	b, err := f.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "This is a text file used for testing.", string(b))
}

func TestFileMimeTypeSniffed(t *testing.T) {
	fs := afero.NewMemMapFs()

	png := memFile(t, fs, "/upload", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, "image/png", png.MimeType())

	unknown := memFile(t, fs, "/blob", "\x00\x01\x02\x03")
	assert.Equal(t, "application/octet-stream", unknown.MimeType())
}
