// Package webdav serves a boxfs.Adapter over WebDAV.
package webdav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/webdav"

	boxfs "github.com/feuerwagen/go-boxfs"
	boxerrors "github.com/feuerwagen/go-boxfs/errors"
	"github.com/feuerwagen/go-boxfs/internal/logging"
)

var (
	errIsDirectory = errors.New("is a directory")
	errReadOnly    = errors.New("file is not open for writing")
	errWriteOnly   = errors.New("file is not open for reading")

	// errDeletedFolder reports a folder removed through this server. The adapter's folder
	// index still lists it, so it cannot be recreated before the server restarts.
	errDeletedFolder = errors.New("folder was deleted and cannot be recreated before restart")
)

// FileSystem implements webdav.FileSystem over an Adapter.
// Uploads are buffered in memory and sent when the file is closed.
type FileSystem struct {
	adapter *boxfs.Adapter
	logger  *zap.Logger
}

var _ webdav.FileSystem = (*FileSystem)(nil)

func NewFileSystem(adapter *boxfs.Adapter, logger *zap.Logger) *FileSystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystem{adapter: adapter, logger: logger}
}

// NewHandler returns a WebDAV handler backed by adapter with in-memory locks.
func NewHandler(adapter *boxfs.Adapter, logger *zap.Logger) http.Handler {
	fsys := NewFileSystem(adapter, logger)
	return &webdav.Handler{
		FileSystem: fsys,
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				logging.WithContext(r.Context()).Debug("webdav request failed",
					logging.Method(r.Method), logging.Path(r.URL.Path), zap.Error(err))
			}
		},
	}
}

// cleanName converts a WebDAV name into an fs.FS name.
func cleanName(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		return "."
	}
	return name
}

// Mkdir creates one directory. The parent must exist.
func (f *FileSystem) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	name = cleanName(name)
	if name == "." || f.adapter.Has(ctx, name) {
		return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrExist}
	}
	if f.adapter.DirectoryExists(ctx, name) {
		return &os.PathError{Op: "mkdir", Path: name, Err: errDeletedFolder}
	}
	if err := f.checkParent(ctx, "mkdir", name); err != nil {
		return err
	}
	if err := f.adapter.CreateDirectory(ctx, name); err != nil {
		return toPathError("mkdir", name, err)
	}
	f.logger.Debug("webdav directory created", logging.Path(name))
	return nil
}

// OpenFile opens name for reading, or returns a buffered upload when flag asks for writing.
func (f *FileSystem) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	name = cleanName(name)
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return f.openWriter(ctx, name, flag)
	}
	fsys := f.adapter.FS(ctx)
	info, err := fsys.Stat(name)
	if err != nil {
		return nil, err
	}
	return &readFile{fsys: fsys, name: name, info: info}, nil
}

func (f *FileSystem) openWriter(ctx context.Context, name string, flag int) (webdav.File, error) {
	if name == "." {
		return nil, &os.PathError{Op: "open", Path: name, Err: errIsDirectory}
	}
	attrs, err := f.adapter.Metadata(ctx, name)
	exists := err == nil
	switch {
	case exists && attrs.IsDir():
		return nil, &os.PathError{Op: "open", Path: name, Err: errIsDirectory}
	case exists && flag&os.O_EXCL != 0:
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrExist}
	case !exists && !isNotExist(err):
		return nil, toPathError("open", name, err)
	case !exists && flag&os.O_CREATE == 0:
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	if err := f.checkParent(ctx, "open", name); err != nil {
		return nil, err
	}

	w := &writeFile{fsys: f, ctx: ctx, name: name, exists: exists}
	if exists && flag&os.O_TRUNC == 0 {
		data, err := f.adapter.Read(ctx, name)
		if err != nil {
			return nil, toPathError("open", name, err)
		}
		w.buf.Write(data)
	}
	return w, nil
}

// checkParent fails with os.ErrNotExist unless the parent of name is an existing folder.
// A parent that is still indexed but gone remotely is logged with errDeletedFolder.
func (f *FileSystem) checkParent(ctx context.Context, op, name string) error {
	parent := path.Dir(name)
	if parent == "." {
		return nil
	}
	if !f.adapter.DirectoryExists(ctx, parent) {
		return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
	}
	if !f.adapter.Has(ctx, parent) {
		// The handler only maps a bare ErrNotExist to 409 Conflict.
		f.logger.Warn("webdav parent folder unavailable", logging.Path(name), zap.Error(errDeletedFolder))
		return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
	}
	return nil
}

// RemoveAll removes a file or a directory with everything inside it.
// Removing a missing name succeeds.
func (f *FileSystem) RemoveAll(ctx context.Context, name string) error {
	name = cleanName(name)
	if name == "." {
		return &os.PathError{Op: "removeall", Path: name, Err: os.ErrPermission}
	}
	attrs, err := f.adapter.Metadata(ctx, name)
	if isNotExist(err) {
		return nil
	}
	if err != nil {
		return toPathError("removeall", name, err)
	}
	if attrs.IsDir() {
		err = f.adapter.DeleteDirectory(ctx, name)
	} else {
		err = f.adapter.Delete(ctx, name)
	}
	if err != nil {
		return toPathError("removeall", name, err)
	}
	f.logger.Debug("webdav entry removed", logging.Path(name))
	return nil
}

// Rename is not supported by the remote store.
func (f *FileSystem) Rename(ctx context.Context, oldName, newName string) error {
	return &os.LinkError{Op: "rename", Old: cleanName(oldName), New: cleanName(newName), Err: os.ErrPermission}
}

func (f *FileSystem) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	name = cleanName(name)
	info, err := f.adapter.FS(ctx).Stat(name)
	if err != nil {
		return nil, err
	}
	return fileInfo{info}, nil
}

// readFile serves a file or directory. The content is fetched on the first Read, Seek or
// Readdir, so stat-only opens make no download.
type readFile struct {
	fsys *boxfs.FS
	name string
	info fs.FileInfo
	file fs.File
}

var _ webdav.File = (*readFile)(nil)

func (r *readFile) open() (fs.File, error) {
	if r.file == nil {
		file, err := r.fsys.Open(r.name)
		if err != nil {
			return nil, err
		}
		r.file = file
	}
	return r.file, nil
}

func (r *readFile) Read(p []byte) (int, error) {
	if r.info.IsDir() {
		return 0, &os.PathError{Op: "read", Path: r.name, Err: errIsDirectory}
	}
	file, err := r.open()
	if err != nil {
		return 0, err
	}
	return file.Read(p)
}

func (r *readFile) Readdir(count int) ([]os.FileInfo, error) {
	if !r.info.IsDir() {
		return nil, &os.PathError{Op: "readdir", Path: r.name, Err: errors.New("not a directory")}
	}
	file, err := r.open()
	if err != nil {
		return nil, err
	}
	dir, ok := file.(fs.ReadDirFile)
	if !ok {
		return nil, &os.PathError{Op: "readdir", Path: r.name, Err: errors.New("not a directory")}
	}
	entries, err := dir.ReadDir(count)
	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, infoErr := entry.Info()
		if infoErr != nil {
			return infos, infoErr
		}
		infos = append(infos, fileInfo{info})
	}
	return infos, err
}

func (r *readFile) Seek(offset int64, whence int) (int64, error) {
	if r.info.IsDir() {
		return 0, &os.PathError{Op: "seek", Path: r.name, Err: errIsDirectory}
	}
	file, err := r.open()
	if err != nil {
		return 0, err
	}
	s, ok := file.(io.Seeker)
	if !ok {
		return 0, &os.PathError{Op: "seek", Path: r.name, Err: errors.ErrUnsupported}
	}
	return s.Seek(offset, whence)
}

func (r *readFile) Write([]byte) (int, error) {
	return 0, &os.PathError{Op: "write", Path: r.name, Err: errReadOnly}
}

func (r *readFile) Stat() (os.FileInfo, error) {
	return fileInfo{r.info}, nil
}

func (r *readFile) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// writeFile buffers an upload until Close.
type writeFile struct {
	fsys   *FileSystem
	ctx    context.Context
	name   string
	exists bool
	buf    bytes.Buffer
	closed bool
}

var _ webdav.File = (*writeFile)(nil)

func (w *writeFile) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *writeFile) Read([]byte) (int, error) {
	return 0, &os.PathError{Op: "read", Path: w.name, Err: errWriteOnly}
}

func (w *writeFile) Seek(offset int64, whence int) (int64, error) {
	return 0, &os.PathError{Op: "seek", Path: w.name, Err: errWriteOnly}
}

func (w *writeFile) Readdir(int) ([]os.FileInfo, error) {
	return nil, &os.PathError{Op: "readdir", Path: w.name, Err: errors.New("not a directory")}
}

func (w *writeFile) Stat() (os.FileInfo, error) {
	return uploadInfo{name: path.Base(w.name), size: int64(w.buf.Len()), modTime: time.Now()}, nil
}

// Close uploads the buffered content, replacing an existing file.
func (w *writeFile) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	if w.exists {
		if err := w.fsys.adapter.Delete(w.ctx, w.name); err != nil && !isNotExist(err) {
			return toPathError("close", w.name, err)
		}
	}
	size := w.buf.Len()
	if err := w.fsys.adapter.Write(w.ctx, w.name, w.buf.Bytes()); err != nil {
		return toPathError("close", w.name, err)
	}
	w.fsys.logger.Debug("webdav file written", logging.Path(w.name), zap.Int("size", size), zap.Bool("replaced", w.exists))
	return nil
}

// fileInfo adds WebDAV properties derived from boxfs attributes without extra remote calls.
type fileInfo struct {
	fs.FileInfo
}

var (
	_ webdav.ContentTyper = fileInfo{}
	_ webdav.ETager       = fileInfo{}
)

func (fi fileInfo) attributes() (boxfs.Attributes, bool) {
	attrs, ok := fi.Sys().(boxfs.Attributes)
	return attrs, ok
}

func (fi fileInfo) ContentType(ctx context.Context) (string, error) {
	attrs, ok := fi.attributes()
	if !ok {
		return "", webdav.ErrNotImplemented
	}
	if attrs.MimeType == "" {
		return "application/octet-stream", nil
	}
	return attrs.MimeType, nil
}

func (fi fileInfo) ETag(ctx context.Context) (string, error) {
	attrs, ok := fi.attributes()
	if !ok || attrs.ID == "" {
		return "", webdav.ErrNotImplemented
	}
	return fmt.Sprintf(`"%s-%x"`, attrs.ID, attrs.LastModified.UnixNano()), nil
}

type uploadInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (u uploadInfo) Name() string       { return u.name }
func (u uploadInfo) Size() int64        { return u.size }
func (u uploadInfo) Mode() os.FileMode  { return 0644 }
func (u uploadInfo) ModTime() time.Time { return u.modTime }
func (u uploadInfo) IsDir() bool        { return false }
func (u uploadInfo) Sys() any           { return nil }

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, boxfs.ErrDirectoryDoesNotExist) ||
		errors.Is(err, boxfs.ErrFileDoesNotExist) ||
		errors.Is(err, boxerrors.ErrNotFound)
}

// toPathError maps adapter errors to the os errors the WebDAV handler understands.
func toPathError(op, name string, err error) error {
	switch {
	case isNotExist(err):
		return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
	case errors.Is(err, boxfs.ErrDirectoryExists), errors.Is(err, boxerrors.ErrAlreadyExists):
		return &os.PathError{Op: op, Path: name, Err: os.ErrExist}
	case errors.Is(err, boxfs.ErrInvalidPath):
		return &os.PathError{Op: op, Path: name, Err: os.ErrInvalid}
	}
	return &os.PathError{Op: op, Path: name, Err: err}
}
