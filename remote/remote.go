// Package remote defines the ID-addressed store the adapter talks to.
//
// Items are addressed by opaque identifiers, never by path. Implementations live in
// the box, gdrive and memory subpackages.
package remote

import (
	"context"
	"io"
	"time"
)

// ItemType is the kind of an item reported by a folder listing.
type ItemType string

const (
	ItemTypeFile   ItemType = "file"
	ItemTypeFolder ItemType = "folder"
)

// Item is one entry of a folder listing.
type Item struct {
	ID         string
	Name       string
	Type       ItemType
	Size       int64
	ModifiedAt time.Time
}

func (i Item) IsFolder() bool {
	return i.Type == ItemTypeFolder
}

func (i Item) IsFile() bool {
	return i.Type == ItemTypeFile
}

type FileInformation struct {
	Size       int64
	Type       ItemType
	ModifiedAt time.Time
}

type FolderInformation struct {
	Type       ItemType
	ModifiedAt time.Time
}

// Client is the set of remote calls the adapter needs. All calls are synchronous.
// Missing items should be reported with an error matching errors.ErrNotFound.
type Client interface {
	// ListItemsInFolder returns the items directly inside the folder.
	ListItemsInFolder(ctx context.Context, folderID string) ([]Item, error)
	// CreateFolder creates a single folder and returns its ID.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	Delete(ctx context.Context, id string) error
	// DeleteFolder removes the folder together with everything inside it.
	DeleteFolder(ctx context.Context, id string) error
	// Upload stores content as a new file and returns its ID.
	Upload(ctx context.Context, name, parentID string, content io.Reader) (string, error)
	Download(ctx context.Context, id string) (io.ReadCloser, error)
	GetFileInformation(ctx context.Context, id string) (FileInformation, error)
	GetFolderInformation(ctx context.Context, id string) (FolderInformation, error)
}
