package boxfs

import (
	"io/fs"
)

// DirEntry implements fs.DirEntry for an item of a listed directory.
type DirEntry struct {
	info *FileInfo
}

// Verify interface implementation at compile time.
var _ fs.DirEntry = (*DirEntry)(nil)

func (e *DirEntry) Name() string {
	return e.info.Name()
}

func (e *DirEntry) IsDir() bool {
	return e.info.IsDir()
}

// Type returns the type bits of the entry's mode.
func (e *DirEntry) Type() fs.FileMode {
	return e.info.Mode().Type()
}

// Info returns the file info captured by the listing. No remote call is made.
func (e *DirEntry) Info() (fs.FileInfo, error) {
	return e.info, nil
}
