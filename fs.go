package boxfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	pathpkg "path"
	"slices"
	"strings"

	boxerrors "github.com/feuerwagen/go-boxfs/errors"
)

// FS exposes an Adapter as a read-only fs.FS. Names are slash-separated paths relative to
// the adapter's prefix, with "." naming the root. Every remote call uses the context the FS
// was created with.
type FS struct {
	ctx     context.Context
	adapter *Adapter
}

// Verify interface implementations at compile time.
var (
	_ fs.FS         = (*FS)(nil)
	_ fs.StatFS     = (*FS)(nil)
	_ fs.ReadDirFS  = (*FS)(nil)
	_ fs.ReadFileFS = (*FS)(nil)
)

// FS returns a read-only fs.FS view bound to ctx.
func (a *Adapter) FS(ctx context.Context) *FS {
	return &FS{ctx: ctx, adapter: a}
}

// Open opens the named file or directory. Directories are listed and files are downloaded
// before Open returns.
func (f *FS) Open(name string) (fs.File, error) {
	info, err := f.stat("open", name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		entries, err := f.readDir("open", name)
		if err != nil {
			return nil, err
		}
		return &Dir{path: name, info: info, entries: entries}, nil
	}
	data, err := f.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &File{info: info, content: bytes.NewReader(data)}, nil
}

// Stat returns the file info of the named file or directory.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	return f.stat("stat", name)
}

// ReadDir lists the named directory sorted by file name. Items that are neither files nor
// directories are left out because they cannot be opened.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return f.readDir("readdir", name)
}

// ReadFile downloads the named file.
func (f *FS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	rc, err := f.adapter.ReadStream(f.ctx, adapterPath(name))
	if err != nil {
		return nil, toPathError("readfile", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

func (f *FS) stat(op, name string) (*FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	attrs, err := f.adapter.Metadata(f.ctx, adapterPath(name))
	if err != nil {
		return nil, toPathError(op, name, err)
	}
	info := NewFileInfo(attrs)
	info.name = pathpkg.Base(name)
	return info, nil
}

func (f *FS) readDir(op, name string) ([]fs.DirEntry, error) {
	list, err := f.adapter.ListContents(f.ctx, adapterPath(name), false)
	if err != nil {
		return nil, toPathError(op, name, err)
	}
	entries := make([]fs.DirEntry, 0, len(list))
	for _, attrs := range list {
		if attrs.Type == TypeOther {
			continue
		}
		entries = append(entries, &DirEntry{info: NewFileInfo(attrs)})
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries, nil
}

// adapterPath converts an fs.FS name into an adapter path.
func adapterPath(name string) string {
	if name == "." {
		return ""
	}
	return name
}

// toPathError maps adapter errors to the io/fs vocabulary. A remote not-found also covers
// folders that were deleted after the index was built.
func toPathError(op, name string, err error) error {
	if errors.Is(err, ErrDirectoryDoesNotExist) || errors.Is(err, ErrFileDoesNotExist) || errors.Is(err, boxerrors.ErrNotFound) {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	if errors.Is(err, ErrInvalidPath) {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	return &fs.PathError{Op: op, Path: name, Err: err}
}
