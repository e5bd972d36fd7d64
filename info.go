package boxfs

import (
	"time"

	"github.com/feuerwagen/go-boxfs/remote"
)

type EntryType string

const (
	TypeFile      EntryType = "file"
	TypeDirectory EntryType = "dir"
	// TypeOther marks listed items that are neither files nor folders, such as Box web links.
	// They cannot be read, stat'ed or deleted through the adapter.
	TypeOther EntryType = "other"
)

// Attributes describes a file or directory. Path is relative to the adapter's prefix.
type Attributes struct {
	Path         string
	ID           string
	Type         EntryType
	Size         int64
	LastModified time.Time
	MimeType     string
}

func (i Attributes) IsDir() bool {
	return i.Type == TypeDirectory
}

func (i Attributes) IsFile() bool {
	return i.Type == TypeFile
}

// Name returns the last path segment.
func (i Attributes) Name() string {
	return basename(i.Path)
}

func (a *Adapter) itemAttributes(path string, item remote.Item) Attributes {
	if item.IsFolder() {
		return Attributes{
			Path:         a.prefixer.stripPrefix(path),
			ID:           item.ID,
			Type:         TypeDirectory,
			LastModified: item.ModifiedAt,
		}
	}
	if !item.IsFile() {
		return Attributes{
			Path:         a.prefixer.stripPrefix(path),
			ID:           item.ID,
			Type:         TypeOther,
			Size:         item.Size,
			LastModified: item.ModifiedAt,
		}
	}
	return Attributes{
		Path:         a.prefixer.stripPrefix(path),
		ID:           item.ID,
		Type:         TypeFile,
		Size:         item.Size,
		LastModified: item.ModifiedAt,
		MimeType:     a.detectMime(path),
	}
}
