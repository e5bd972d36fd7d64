package boxfs

import (
	"io/fs"
	"time"
)

// FileInfo implements fs.FileInfo for a file or directory reached through an Adapter.
type FileInfo struct {
	name  string
	attrs Attributes
}

// Verify interface implementation at compile time.
var _ fs.FileInfo = (*FileInfo)(nil)

// NewFileInfo wraps attrs. The root directory is named ".".
func NewFileInfo(attrs Attributes) *FileInfo {
	name := attrs.Name()
	if name == "" {
		name = "."
	}
	return &FileInfo{name: name, attrs: attrs}
}

// Name returns the base name of the file.
func (fi *FileInfo) Name() string {
	return fi.name
}

// Size returns the size of the file in bytes. Directories report zero.
func (fi *FileInfo) Size() int64 {
	if fi.IsDir() {
		return 0
	}
	return fi.attrs.Size
}

// Mode returns the file mode bits.
func (fi *FileInfo) Mode() fs.FileMode {
	if fi.IsDir() {
		return fs.ModeDir | 0555
	}
	return 0444
}

// ModTime returns the modification time.
func (fi *FileInfo) ModTime() time.Time {
	return fi.attrs.LastModified
}

// IsDir reports whether the file is a directory.
func (fi *FileInfo) IsDir() bool {
	return fi.attrs.IsDir()
}

// Sys returns the underlying Attributes.
func (fi *FileInfo) Sys() any {
	return fi.attrs
}

// Attributes returns the adapter attributes the info was built from.
func (fi *FileInfo) Attributes() Attributes {
	return fi.attrs
}
