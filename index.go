package boxfs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feuerwagen/go-boxfs/remote"
)

// FolderMapEntry is one known remote folder.
type FolderMapEntry struct {
	ID       string
	Name     string
	FullPath string
}

// Observer receives folder index lifecycle notifications.
type Observer interface {
	IndexBuilt(folders int, took time.Duration)
	FolderCreated(path string)
}

type nopObserver struct{}

func (nopObserver) IndexBuilt(int, time.Duration) {}
func (nopObserver) FolderCreated(string)          {}

// folderIndex maps normalized paths to every folder reachable from the root.
//
// It is built by a single traversal on first use and afterwards only grows through insert.
// Folders created or removed by other clients are not noticed.
type folderIndex struct {
	client   remote.Client
	root     FolderMapEntry
	logger   *zap.Logger
	observer Observer

	mu      sync.Mutex
	built   bool
	folders map[string]FolderMapEntry
}

func newFolderIndex(client remote.Client, rootID, rootPath string, logger *zap.Logger, observer Observer) *folderIndex {
	return &folderIndex{
		client:   client,
		root:     FolderMapEntry{ID: rootID, Name: basename(rootPath), FullPath: rootPath},
		logger:   logger,
		observer: observer,
	}
}

// ensureBuilt traverses the remote tree once. A failed traversal leaves the index unbuilt.
func (x *folderIndex) ensureBuilt(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ensureBuiltLocked(ctx)
}

func (x *folderIndex) ensureBuiltLocked(ctx context.Context) error {
	if x.built {
		return nil
	}
	start := time.Now()
	folders, err := x.traverse(ctx)
	if err != nil {
		x.logger.Warn("folder index build failed", zap.String("root_id", x.root.ID), zap.Error(err))
		return err
	}
	x.folders = folders
	x.built = true

	took := time.Since(start)
	x.logger.Debug("folder index built",
		zap.String("root_id", x.root.ID),
		zap.Int("folders", len(folders)),
		zap.Duration("duration", took))
	x.observer.IndexBuilt(len(folders), took)
	return nil
}

// traverse lists every folder depth-first with an explicit stack. Files are ignored.
func (x *folderIndex) traverse(ctx context.Context) (map[string]FolderMapEntry, error) {
	folders := map[string]FolderMapEntry{x.root.FullPath: x.root}
	stack := []FolderMapEntry{x.root}
	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		items, err := x.client.ListItemsInFolder(ctx, parent.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list folder '%s' (%s): %w", parent.FullPath, parent.ID, err)
		}
		for _, item := range items {
			if !item.IsFolder() {
				continue
			}
			entry := FolderMapEntry{
				ID:       item.ID,
				Name:     item.Name,
				FullPath: childPath(parent.FullPath, item.Name),
			}
			folders[entry.FullPath] = entry
			stack = append(stack, entry)
		}
	}
	return folders, nil
}

func (x *folderIndex) lookup(ctx context.Context, path string) (entry FolderMapEntry, found bool, err error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.ensureBuiltLocked(ctx); err != nil {
		return FolderMapEntry{}, false, err
	}
	entry, found = x.folders[path]
	return entry, found, nil
}

// insert records a folder that was just created remotely.
func (x *folderIndex) insert(entry FolderMapEntry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.built {
		// The next build lists the new folder anyway.
		return
	}
	x.folders[entry.FullPath] = entry
}

func (x *folderIndex) size() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.folders)
}

func childPath(parent, name string) string {
	if parent == separator {
		return separator + name
	}
	return parent + separator + name
}
