package boxfs

import (
	"io"
	"io/fs"
	"sync"
)

// Dir implements fs.File and fs.ReadDirFile for a remote folder.
// Dir's ReadDir method is protected by a mutex for concurrent use.
type Dir struct {
	path    string
	info    *FileInfo
	entries []fs.DirEntry
	offset  int
	mu      sync.Mutex
}

// Verify interface implementations at compile time.
var _ fs.ReadDirFile = (*Dir)(nil)

// Stat returns the directory info.
func (d *Dir) Stat() (fs.FileInfo, error) {
	return d.info, nil
}

// Read returns an error because directories cannot be read.
func (d *Dir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.path, Err: fs.ErrInvalid}
}

// Close closes the directory.
func (d *Dir) Close() error {
	return nil
}

// ReadDir reads the directory entries in name order.
func (d *Dir) ReadDir(n int) ([]fs.DirEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n <= 0 {
		entries := d.entries[d.offset:]
		d.offset = len(d.entries)
		return entries, nil
	}

	if d.offset >= len(d.entries) {
		return nil, io.EOF
	}

	end := min(d.offset+n, len(d.entries))
	entries := d.entries[d.offset:end]
	d.offset = end

	if d.offset >= len(d.entries) {
		return entries, io.EOF
	}
	return entries, nil
}
