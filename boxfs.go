// Package boxfs presents an ID-addressed remote folder store as a path-addressed filesystem.
//
// The adapter keeps an index from folder paths to remote folder IDs. The index is built by one
// traversal of the remote tree on first use and grows when the adapter creates folders. Files
// are never indexed: each file lookup lists its parent folder.
package boxfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	pathpkg "path"
	"time"

	"go.uber.org/zap"

	"github.com/feuerwagen/go-boxfs/remote"
)

// DefaultRootFolderID is the ID of the top-level folder in Box.
const DefaultRootFolderID = "0"

// MimeDetector returns the MIME type for a file name, or "" when unknown.
type MimeDetector func(name string) string

// DetectMimeByExtension looks the file name's extension up in the system MIME table.
func DetectMimeByExtension(name string) string {
	return mime.TypeByExtension(pathpkg.Ext(name))
}

type options struct {
	prefix     string
	rootID     string
	detectMime MimeDetector
	logger     *zap.Logger
	observer   Observer
}

type Option func(*options)

// WithPathPrefix mounts the root folder at prefix. Every caller path is prefixed before lookup.
func WithPathPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRootFolderID selects the remote folder the adapter treats as its root.
func WithRootFolderID(id string) Option {
	return func(o *options) { o.rootID = id }
}

func WithMimeDetector(detect MimeDetector) Option {
	return func(o *options) { o.detectMime = detect }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithObserver(observer Observer) Option {
	return func(o *options) { o.observer = observer }
}

// Adapter implements path-based filesystem operations over a remote.Client.
// An Adapter may be shared between goroutines.
type Adapter struct {
	client     remote.Client
	prefixer   prefixer
	index      *folderIndex
	detectMime MimeDetector
	logger     *zap.Logger
	observer   Observer
}

// New creates an Adapter for the given client. No remote call is made until the first operation.
func New(client remote.Client, opts ...Option) (*Adapter, error) {
	o := options{
		rootID:     DefaultRootFolderID,
		detectMime: DetectMimeByExtension,
		logger:     zap.NewNop(),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	p, err := newPrefixer(o.prefix)
	if err != nil {
		return nil, fmt.Errorf("invalid path prefix: %w", err)
	}
	return &Adapter{
		client:     client,
		prefixer:   p,
		index:      newFolderIndex(client, o.rootID, p.root(), o.logger, o.observer),
		detectMime: o.detectMime,
		logger:     o.logger,
		observer:   o.observer,
	}, nil
}

// BuildIndex traverses the remote folder tree unless that already happened.
func (a *Adapter) BuildIndex(ctx context.Context) error {
	return a.index.ensureBuilt(ctx)
}

// IndexedFolders returns how many folders the index knows, including the root.
func (a *Adapter) IndexedFolders() int {
	return a.index.size()
}

// Resolve returns the remote identity of path.
// A missing path fails with ErrDirectoryDoesNotExist or ErrFileDoesNotExist.
func (a *Adapter) Resolve(ctx context.Context, path string) (ResolvedItem, error) {
	p, err := a.prefixer.prefixPath(path)
	if err != nil {
		return ResolvedItem{}, err
	}
	item, status, err := a.resolve(ctx, p)
	if err != nil {
		return ResolvedItem{}, err
	}
	if status != resolved {
		return ResolvedItem{}, status.missingError(p)
	}
	return item, nil
}

// FileExists reports whether path is an existing file. It never fails.
func (a *Adapter) FileExists(ctx context.Context, path string) bool {
	attrs, err := a.Metadata(ctx, path)
	if err != nil {
		a.logger.Debug("file existence check failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return attrs.IsFile()
}

// DirectoryExists reports whether path is a folder known to the index, building it if needed.
func (a *Adapter) DirectoryExists(ctx context.Context, path string) bool {
	p, err := a.prefixer.prefixPath(path)
	if err != nil {
		return false
	}
	_, found, err := a.index.lookup(ctx, p)
	if err != nil {
		a.logger.Debug("directory existence check failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return found
}

// Has reports whether path is an existing file or directory.
func (a *Adapter) Has(ctx context.Context, path string) bool {
	_, err := a.Metadata(ctx, path)
	return err == nil
}

// ListContents returns the entries directly inside the directory at path.
// deep is accepted for compatibility; listings are always one level. Items that are neither
// files nor folders are reported with TypeOther.
func (a *Adapter) ListContents(ctx context.Context, path string, deep bool) ([]Attributes, error) {
	p, err := a.prefixer.prefixPath(path)
	if err != nil {
		return nil, newAdapterError(ErrUnableToListContents, path, err)
	}
	folder, found, err := a.index.lookup(ctx, p)
	if err != nil {
		return nil, newAdapterError(ErrUnableToListContents, p, err)
	}
	if !found {
		return nil, newAdapterError(ErrUnableToListContents, p, newDirectoryDoesNotExist(p))
	}
	items, err := a.client.ListItemsInFolder(ctx, folder.ID)
	if err != nil {
		return nil, newAdapterError(ErrUnableToListContents, p, err)
	}
	entries := make([]Attributes, 0, len(items))
	for _, item := range items {
		entries = append(entries, a.itemAttributes(childPath(p, item.Name), item))
	}
	return entries, nil
}

func (a *Adapter) Read(ctx context.Context, path string) (data []byte, err error) {
	rc, err := a.ReadStream(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = newAdapterError(ErrUnableToReadFile, path, closeErr)
		}
	}()
	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, newAdapterError(ErrUnableToReadFile, path, err)
	}
	return data, nil
}

// ReadStream opens the file at path for reading. The caller must close the stream.
func (a *Adapter) ReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	p, id, err := a.resolveFile(ctx, path)
	if err != nil {
		return nil, newAdapterError(ErrUnableToReadFile, p, err)
	}
	rc, err := a.client.Download(ctx, id)
	if err != nil {
		return nil, newAdapterError(ErrUnableToReadFile, p, err)
	}
	return rc, nil
}

func (a *Adapter) Write(ctx context.Context, path string, contents []byte) error {
	return a.WriteStream(ctx, path, bytes.NewReader(contents))
}

// WriteStream uploads contents as a new file at path.
// Missing parent directories are created first, one level at a time.
func (a *Adapter) WriteStream(ctx context.Context, path string, contents io.Reader) error {
	p, err := a.prefixer.prefixPath(path)
	if err != nil {
		return newAdapterError(ErrUnableToWriteFile, path, err)
	}
	if p == a.prefixer.root() {
		return newAdapterError(ErrUnableToWriteFile, p, newFileDoesNotExist(p))
	}
	parentPath, leaf := parentAndLeaf(p)
	parent, err := a.materializeParent(ctx, parentPath)
	if err != nil {
		return newAdapterError(ErrUnableToWriteFile, p, err)
	}
	id, err := a.client.Upload(ctx, leaf, parent.ID, contents)
	if err != nil {
		return newAdapterError(ErrUnableToWriteFile, p, err)
	}
	a.logger.Debug("file uploaded", zap.String("path", p), zap.String("id", id))
	return nil
}

// materializeParent returns the folder at path, creating missing ancestors until it exists.
func (a *Adapter) materializeParent(ctx context.Context, path string) (FolderMapEntry, error) {
	parent, found, err := a.index.lookup(ctx, path)
	if err != nil {
		return FolderMapEntry{}, err
	}
	parts, err := splitPath(path)
	if err != nil {
		return FolderMapEntry{}, err
	}
	for attempt := 0; !found; attempt++ {
		if attempt > len(parts) {
			return FolderMapEntry{}, newDirectoryDoesNotExist(path)
		}
		if _, err := a.ensureDirectory(ctx, path); err != nil {
			return FolderMapEntry{}, err
		}
		parent, found, err = a.index.lookup(ctx, path)
		if err != nil {
			return FolderMapEntry{}, err
		}
	}
	return parent, nil
}

func (a *Adapter) Delete(ctx context.Context, path string) error {
	p, id, err := a.resolveFile(ctx, path)
	if err != nil {
		return newAdapterError(ErrUnableToDeleteFile, p, err)
	}
	if err := a.client.Delete(ctx, id); err != nil {
		return newAdapterError(ErrUnableToDeleteFile, p, err)
	}
	return nil
}

// DeleteDirectory removes the directory at path and everything inside it.
// The folder index keeps its entries for the removed folders. Until the Adapter is recreated,
// DirectoryExists keeps reporting them, CreateDirectory fails with ErrDirectoryExists, and
// writes below them fail with the remote's not-found error.
func (a *Adapter) DeleteDirectory(ctx context.Context, path string) error {
	p, err := a.prefixer.prefixPath(path)
	if err != nil {
		return newAdapterError(ErrUnableToDeleteDirectory, path, err)
	}
	if p == a.prefixer.root() {
		return newAdapterError(ErrUnableToDeleteDirectory, p, fmt.Errorf("the root folder cannot be deleted"))
	}
	folder, found, err := a.index.lookup(ctx, p)
	if err != nil {
		return newAdapterError(ErrUnableToDeleteDirectory, p, err)
	}
	if !found {
		return newAdapterError(ErrUnableToDeleteDirectory, p, newDirectoryDoesNotExist(p))
	}
	if err := a.client.DeleteFolder(ctx, folder.ID); err != nil {
		return newAdapterError(ErrUnableToDeleteDirectory, p, err)
	}
	return nil
}

// CreateDirectory creates the first missing directory along path.
// Creating "x/y" when neither exists creates only "x"; call again to create "y".
// It fails with ErrDirectoryExists when the whole path already exists.
func (a *Adapter) CreateDirectory(ctx context.Context, path string) error {
	p, err := a.prefixer.prefixPath(path)
	if err != nil {
		return newAdapterError(ErrUnableToCreateDirectory, path, err)
	}
	if _, err := a.ensureDirectory(ctx, p); err != nil {
		return newAdapterError(ErrUnableToCreateDirectory, p, err)
	}
	return nil
}

func (a *Adapter) SetVisibility(ctx context.Context, path, visibility string) error {
	return newUnsupportedError("setting visibility", path)
}

func (a *Adapter) Visibility(ctx context.Context, path string) (string, error) {
	return "", newUnsupportedError("retrieving visibility", path)
}

func (a *Adapter) Move(ctx context.Context, source, destination string) error {
	return newUnsupportedError("moving to "+destination, source)
}

func (a *Adapter) Copy(ctx context.Context, source, destination string) error {
	return newUnsupportedError("copying to "+destination, source)
}

// MimeType derives the MIME type from the file name alone. No remote call is made.
func (a *Adapter) MimeType(ctx context.Context, path string) (string, error) {
	p, err := a.prefixer.prefixPath(path)
	if err != nil {
		return "", newAdapterError(ErrUnableToRetrieveMetadata, path, err)
	}
	mimeType := a.detectMime(p)
	if mimeType == "" {
		return "", newAdapterError(ErrUnableToRetrieveMetadata, p, fmt.Errorf("unknown mime type for '%s'", basename(p)))
	}
	return mimeType, nil
}

func (a *Adapter) LastModified(ctx context.Context, path string) (time.Time, error) {
	attrs, err := a.Metadata(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	return attrs.LastModified, nil
}

func (a *Adapter) FileSize(ctx context.Context, path string) (int64, error) {
	attrs, err := a.Metadata(ctx, path)
	if err != nil {
		return 0, err
	}
	if attrs.IsDir() {
		return 0, newAdapterError(ErrUnableToRetrieveMetadata, path, fmt.Errorf("directories have no file size"))
	}
	return attrs.Size, nil
}

// Metadata fetches the attributes of the file or directory at path.
func (a *Adapter) Metadata(ctx context.Context, path string) (Attributes, error) {
	p, err := a.prefixer.prefixPath(path)
	if err != nil {
		return Attributes{}, newAdapterError(ErrUnableToRetrieveMetadata, path, err)
	}
	item, status, err := a.resolve(ctx, p)
	if err != nil {
		return Attributes{}, newAdapterError(ErrUnableToRetrieveMetadata, p, err)
	}
	if status != resolved {
		return Attributes{}, newAdapterError(ErrUnableToRetrieveMetadata, p, status.missingError(p))
	}

	if item.Kind == KindFolder {
		info, err := a.client.GetFolderInformation(ctx, item.ID)
		if err != nil {
			return Attributes{}, newAdapterError(ErrUnableToRetrieveMetadata, p, err)
		}
		return a.itemAttributes(p, remote.Item{
			ID:         item.ID,
			Name:       basename(p),
			Type:       remote.ItemTypeFolder,
			ModifiedAt: info.ModifiedAt,
		}), nil
	}
	info, err := a.client.GetFileInformation(ctx, item.ID)
	if err != nil {
		return Attributes{}, newAdapterError(ErrUnableToRetrieveMetadata, p, err)
	}
	return a.itemAttributes(p, remote.Item{
		ID:         item.ID,
		Name:       basename(p),
		Type:       remote.ItemTypeFile,
		Size:       info.Size,
		ModifiedAt: info.ModifiedAt,
	}), nil
}

// resolveFile resolves path and requires it to be a file. The returned path is prefixed when
// prefixing succeeded so errors can name it.
func (a *Adapter) resolveFile(ctx context.Context, path string) (string, string, error) {
	p, err := a.prefixer.prefixPath(path)
	if err != nil {
		return path, "", err
	}
	item, status, err := a.resolve(ctx, p)
	if err != nil {
		return p, "", err
	}
	if status != resolved {
		return p, "", status.missingError(p)
	}
	if item.Kind != KindFile {
		return p, "", newFileDoesNotExist(p)
	}
	return p, item.ID, nil
}
