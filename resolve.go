package boxfs

import (
	"context"
	"fmt"
)

// Kind tells whether a resolved path is a folder or a file.
type Kind int

const (
	KindFolder Kind = iota + 1
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindFile:
		return "file"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ResolvedItem is the remote identity of a path. It is never cached.
type ResolvedItem struct {
	Kind Kind
	ID   string
}

// resolveStatus distinguishes the two ways a path can be missing.
type resolveStatus int

const (
	resolved resolveStatus = iota
	// parentMissing means the parent folder is not in the index.
	parentMissing
	// fileMissing means the parent folder exists but holds no file of that name.
	fileMissing
)

// missingError converts a non-resolved status into the matching adapter error.
func (s resolveStatus) missingError(path string) error {
	switch s {
	case parentMissing:
		return newDirectoryDoesNotExist(path)
	case fileMissing:
		return newFileDoesNotExist(path)
	}
	return nil
}

// resolve classifies a normalized path. The returned error is reserved for remote failures;
// a missing path is reported through the status.
func (a *Adapter) resolve(ctx context.Context, path string) (ResolvedItem, resolveStatus, error) {
	if path == "" {
		path = separator
	}
	folder, found, err := a.index.lookup(ctx, path)
	if err != nil {
		return ResolvedItem{}, 0, err
	}
	if found {
		return ResolvedItem{Kind: KindFolder, ID: folder.ID}, resolved, nil
	}

	parentPath, leaf := parentAndLeaf(path)
	parent, found, err := a.index.lookup(ctx, parentPath)
	if err != nil {
		return ResolvedItem{}, 0, err
	}
	if !found {
		return ResolvedItem{}, parentMissing, nil
	}

	id, found, err := a.findFileIn(ctx, parent.ID, leaf)
	if err != nil {
		return ResolvedItem{}, 0, err
	}
	if !found {
		return ResolvedItem{}, fileMissing, nil
	}
	return ResolvedItem{Kind: KindFile, ID: id}, resolved, nil
}

// findFileIn scans a fresh listing of the folder for a file named exactly name.
func (a *Adapter) findFileIn(ctx context.Context, folderID, name string) (id string, found bool, err error) {
	items, err := a.client.ListItemsInFolder(ctx, folderID)
	if err != nil {
		return "", false, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}
	for _, item := range items {
		if item.IsFile() && item.Name == name {
			return item.ID, true, nil
		}
	}
	return "", false, nil
}
