package boxfs

import (
	"bytes"
	"io"
	"io/fs"
)

// File implements fs.File for a remote file. The content is downloaded when the file is opened.
type File struct {
	info    *FileInfo
	content *bytes.Reader
}

// Verify interface implementations at compile time.
var (
	_ fs.File     = (*File)(nil)
	_ io.Seeker   = (*File)(nil)
	_ io.ReaderAt = (*File)(nil)
)

// Stat returns the file info.
func (f *File) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

// Read reads from the file.
func (f *File) Read(b []byte) (int, error) {
	return f.content.Read(b)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.content.Seek(offset, whence)
}

func (f *File) ReadAt(b []byte, off int64) (int, error) {
	return f.content.ReadAt(b, off)
}

// Close closes the file.
func (f *File) Close() error {
	return nil
}
