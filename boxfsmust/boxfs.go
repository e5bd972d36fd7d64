// Package boxfsmust wraps the boxfs package with panic-based error handling.
//
// It provides the same path-based operations as the root-level boxfs package,
// but instead of returning errors, all exported methods panic on failure.
// It suits scripts and tests where any remote failure is fatal.
package boxfsmust

import (
	"context"
	"io"
	"time"

	"github.com/feuerwagen/go-boxfs"
	"github.com/feuerwagen/go-boxfs/remote"
)

// Adapter provides path-based operations over a remote folder store.
//
// All methods of Adapter panic on error instead of returning an error value.
// The boolean checks never fail and are passed through unchanged.
type Adapter struct {
	adapter *boxfs.Adapter
}

// New creates an Adapter for the given client.
//
// It panics if the options are invalid, for example a path prefix containing "..".
func New(client remote.Client, opts ...boxfs.Option) *Adapter {
	return &Adapter{adapter: must1(boxfs.New(client, opts...))}
}

// Wrap returns a panicking view of an existing adapter.
func Wrap(adapter *boxfs.Adapter) *Adapter {
	return &Adapter{adapter: adapter}
}

// Unwrap returns the underlying error-returning adapter.
func (a *Adapter) Unwrap() *boxfs.Adapter {
	return a.adapter
}

// BuildIndex traverses the remote folder tree unless that already happened.
//
// It panics if any folder cannot be listed.
func (a *Adapter) BuildIndex(ctx context.Context) {
	must0(a.adapter.BuildIndex(ctx))
}

// Resolve returns the remote identity of path.
//
// It panics if path does not exist or the remote fails.
func (a *Adapter) Resolve(ctx context.Context, path string) boxfs.ResolvedItem {
	return must1(a.adapter.Resolve(ctx, path))
}

func (a *Adapter) FileExists(ctx context.Context, path string) bool {
	return a.adapter.FileExists(ctx, path)
}

func (a *Adapter) DirectoryExists(ctx context.Context, path string) bool {
	return a.adapter.DirectoryExists(ctx, path)
}

func (a *Adapter) Has(ctx context.Context, path string) bool {
	return a.adapter.Has(ctx, path)
}

// ListContents returns the entries directly inside the directory at path.
//
// It panics if path is not a known directory.
func (a *Adapter) ListContents(ctx context.Context, path string, deep bool) []boxfs.Attributes {
	return must1(a.adapter.ListContents(ctx, path, deep))
}

// Read downloads the file at path.
//
// It panics if path is not a file or the download fails.
func (a *Adapter) Read(ctx context.Context, path string) []byte {
	return must1(a.adapter.Read(ctx, path))
}

// ReadStream opens the file at path for reading. The caller must close the stream.
//
// It panics if path is not a file or the download cannot start.
func (a *Adapter) ReadStream(ctx context.Context, path string) io.ReadCloser {
	return must1(a.adapter.ReadStream(ctx, path))
}

// Write uploads contents as a new file at path, creating missing parent directories.
//
// It panics if the upload fails, including when a file with the same name already exists.
func (a *Adapter) Write(ctx context.Context, path string, contents []byte) {
	must0(a.adapter.Write(ctx, path, contents))
}

// WriteStream is Write for a stream.
func (a *Adapter) WriteStream(ctx context.Context, path string, contents io.Reader) {
	must0(a.adapter.WriteStream(ctx, path, contents))
}

// Delete removes the file at path.
//
// It panics if path is not a file.
func (a *Adapter) Delete(ctx context.Context, path string) {
	must0(a.adapter.Delete(ctx, path))
}

// DeleteDirectory removes the directory at path and everything inside it.
func (a *Adapter) DeleteDirectory(ctx context.Context, path string) {
	must0(a.adapter.DeleteDirectory(ctx, path))
}

// CreateDirectory creates the first missing directory along path.
//
// It panics if every directory along path already exists.
func (a *Adapter) CreateDirectory(ctx context.Context, path string) {
	must0(a.adapter.CreateDirectory(ctx, path))
}

// MimeType derives the MIME type of path from its name.
//
// It panics if the name has no known MIME type.
func (a *Adapter) MimeType(ctx context.Context, path string) string {
	return must1(a.adapter.MimeType(ctx, path))
}

func (a *Adapter) LastModified(ctx context.Context, path string) time.Time {
	return must1(a.adapter.LastModified(ctx, path))
}

// FileSize returns the size of the file at path in bytes.
//
// It panics if path is a directory.
func (a *Adapter) FileSize(ctx context.Context, path string) int64 {
	return must1(a.adapter.FileSize(ctx, path))
}

func (a *Adapter) Metadata(ctx context.Context, path string) boxfs.Attributes {
	return must1(a.adapter.Metadata(ctx, path))
}
