// Package memory provides an in-memory remote.Client.
//
// It behaves like a Box-style store: items have generated IDs, names are unique within
// a folder, and deleting a folder removes its whole subtree. Every call is counted so
// tests can assert how many remote round trips an operation made.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feuerwagen/go-boxfs/errors"
	"github.com/feuerwagen/go-boxfs/remote"
)

// DefaultRootID is the ID of the top-level folder unless WithRootID is given.
const DefaultRootID = "0"

// Operation names used by Calls and FailOn.
const (
	OpList         = "list_items_in_folder"
	OpCreateFolder = "create_folder"
	OpDelete       = "delete"
	OpDeleteFolder = "delete_folder"
	OpUpload       = "upload"
	OpDownload     = "download"
	OpFileInfo     = "get_file_information"
	OpFolderInfo   = "get_folder_information"
)

type node struct {
	id       string
	name     string
	itemType remote.ItemType
	parentID string
	content  []byte
	modTime  time.Time
	children []string
}

// Store is a thread-safe in-memory folder tree.
type Store struct {
	mu       sync.Mutex
	rootID   string
	nodes    map[string]*node
	calls    map[string]int
	failures map[string]error
	now      func() time.Time
}

var _ remote.Client = (*Store)(nil)

type Option func(*Store)

func WithRootID(id string) Option {
	return func(s *Store) { s.rootID = id }
}

// WithClock overrides the time source used for modification times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		rootID:   DefaultRootID,
		nodes:    map[string]*node{},
		calls:    map[string]int{},
		failures: map[string]error{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nodes[s.rootID] = &node{id: s.rootID, itemType: remote.ItemTypeFolder, modTime: s.now()}
	return s
}

// RootID returns the ID of the top-level folder.
func (s *Store) RootID() string {
	return s.rootID
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// ResetCalls zeroes every call counter.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = map[string]int{}
}

// FailOn makes every subsequent call of op return err. A nil err clears the failure.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// AddFolder creates a folder without counting it as a remote call.
func (s *Store) AddFolder(parentID, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.addNode(parentID, name, remote.ItemTypeFolder, nil)
	if err != nil {
		return "", err
	}
	return n.id, nil
}

// AddFile creates a file without counting it as a remote call.
func (s *Store) AddFile(parentID, name string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.addNode(parentID, name, remote.ItemTypeFile, content)
	if err != nil {
		return "", err
	}
	return n.id, nil
}

// AddItem inserts an item of an arbitrary type, such as a web link.
func (s *Store) AddItem(parentID, name string, itemType remote.ItemType) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.addNode(parentID, name, itemType, nil)
	if err != nil {
		return "", err
	}
	return n.id, nil
}

func (s *Store) ListItemsInFolder(ctx context.Context, folderID string) ([]remote.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpList); err != nil {
		return nil, err
	}
	folder, err := s.folder(folderID)
	if err != nil {
		return nil, err
	}
	items := make([]remote.Item, 0, len(folder.children))
	for _, id := range folder.children {
		child := s.nodes[id]
		items = append(items, remote.Item{
			ID:         child.id,
			Name:       child.name,
			Type:       child.itemType,
			Size:       int64(len(child.content)),
			ModifiedAt: child.modTime,
		})
	}
	return items, nil
}

func (s *Store) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpCreateFolder); err != nil {
		return "", err
	}
	n, err := s.addNode(parentID, name, remote.ItemTypeFolder, nil)
	if err != nil {
		return "", err
	}
	return n.id, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDelete); err != nil {
		return err
	}
	n, ok := s.nodes[id]
	if !ok || n.itemType != remote.ItemTypeFile {
		return errors.Wrap(errors.ErrNotFound, fmt.Sprintf("file %q", id), nil)
	}
	s.removeNode(n)
	return nil
}

func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDeleteFolder); err != nil {
		return err
	}
	n, err := s.folder(id)
	if err != nil {
		return err
	}
	if n.id == s.rootID {
		return errors.NewAPIError("failed to delete folder", fmt.Errorf("root folder %q cannot be deleted", id))
	}
	s.removeNode(n)
	return nil
}

func (s *Store) Upload(ctx context.Context, name, parentID string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", errors.NewIOError("failed to read upload content", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpUpload); err != nil {
		return "", err
	}
	n, err := s.addNode(parentID, name, remote.ItemTypeFile, data)
	if err != nil {
		return "", err
	}
	return n.id, nil
}

func (s *Store) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDownload); err != nil {
		return nil, err
	}
	n, err := s.file(id)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(n.content))), nil
}

func (s *Store) GetFileInformation(ctx context.Context, id string) (remote.FileInformation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpFileInfo); err != nil {
		return remote.FileInformation{}, err
	}
	n, err := s.file(id)
	if err != nil {
		return remote.FileInformation{}, err
	}
	return remote.FileInformation{
		Size:       int64(len(n.content)),
		Type:       n.itemType,
		ModifiedAt: n.modTime,
	}, nil
}

func (s *Store) GetFolderInformation(ctx context.Context, id string) (remote.FolderInformation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpFolderInfo); err != nil {
		return remote.FolderInformation{}, err
	}
	n, err := s.folder(id)
	if err != nil {
		return remote.FolderInformation{}, err
	}
	return remote.FolderInformation{
		Type:       n.itemType,
		ModifiedAt: n.modTime,
	}, nil
}

// begin counts the call and reports injected failures. s.mu must be held.
func (s *Store) begin(ctx context.Context, op string) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := s.failures[op]; ok {
		return errors.NewAPIError(op+" failed", err)
	}
	return nil
}

func (s *Store) folder(id string) (*node, error) {
	n, ok := s.nodes[id]
	if !ok || n.itemType != remote.ItemTypeFolder {
		return nil, errors.Wrap(errors.ErrNotFound, fmt.Sprintf("folder %q", id), nil)
	}
	return n, nil
}

func (s *Store) file(id string) (*node, error) {
	n, ok := s.nodes[id]
	if !ok || n.itemType != remote.ItemTypeFile {
		return nil, errors.Wrap(errors.ErrNotFound, fmt.Sprintf("file %q", id), nil)
	}
	return n, nil
}

func (s *Store) addNode(parentID, name string, itemType remote.ItemType, content []byte) (*node, error) {
	parent, err := s.folder(parentID)
	if err != nil {
		return nil, err
	}
	for _, id := range parent.children {
		if s.nodes[id].name == name {
			return nil, errors.Wrap(errors.ErrAlreadyExists, fmt.Sprintf("item %q in folder %q", name, parentID), nil)
		}
	}
	n := &node{
		id:       uuid.NewString(),
		name:     name,
		itemType: itemType,
		parentID: parentID,
		content:  bytes.Clone(content),
		modTime:  s.now(),
	}
	s.nodes[n.id] = n
	parent.children = append(parent.children, n.id)
	parent.modTime = n.modTime
	return n, nil
}

func (s *Store) removeNode(n *node) {
	if parent, ok := s.nodes[n.parentID]; ok {
		for i, id := range parent.children {
			if id == n.id {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
	}
	stack := []*node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, id := range cur.children {
			stack = append(stack, s.nodes[id])
		}
		delete(s.nodes, cur.id)
	}
}
