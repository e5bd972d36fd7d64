package boxfs

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ensureDirectory creates the first folder along path that is missing from the index and
// returns it. Only one level is created per call because the remote cannot create nested
// folders at once. When every segment already exists it fails with ErrDirectoryExists.
//
// path must be normalized and prefixed.
func (a *Adapter) ensureDirectory(ctx context.Context, path string) (FolderMapEntry, error) {
	parts, err := splitPath(a.prefixer.stripPrefix(path))
	if err != nil {
		return FolderMapEntry{}, err
	}

	current := a.prefixer.root()
	parent, _, err := a.index.lookup(ctx, current)
	if err != nil {
		return FolderMapEntry{}, err
	}
	for _, name := range parts {
		current = childPath(current, name)
		entry, known, err := a.index.lookup(ctx, current)
		if err != nil {
			return FolderMapEntry{}, err
		}
		if known {
			parent = entry
			continue
		}

		id, err := a.client.CreateFolder(ctx, name, parent.ID)
		if err != nil {
			return FolderMapEntry{}, fmt.Errorf("failed to create folder '%s' in '%s': %w", name, parent.FullPath, err)
		}
		created := FolderMapEntry{ID: id, Name: name, FullPath: current}
		a.index.insert(created)
		a.logger.Info("folder created", zap.String("path", current), zap.String("id", id))
		a.observer.FolderCreated(current)
		return created, nil
	}
	return FolderMapEntry{}, newAdapterError(ErrDirectoryExists, path, nil)
}
