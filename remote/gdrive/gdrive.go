// Package gdrive implements remote.Client on Google Drive.
//
// Drive allows several items with the same name in one folder. Upload refuses to add a
// second item with an existing name so the adapter sees the same uniqueness as on Box.
package gdrive

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/feuerwagen/go-boxfs/errors"
	"github.com/feuerwagen/go-boxfs/remote"
)

// RootFolderID is Drive's alias for the user's My Drive folder.
const RootFolderID = "root"

const (
	mimeTypeGoogleAppFolder   = "application/vnd.google-apps.folder"
	mimeTypeGoogleAppShortcut = "application/vnd.google-apps.shortcut"
	mimeTypePrefixGoogleApp   = "application/vnd.google-apps."

	// ItemTypeShortcut is reported for Drive shortcuts, which are neither files nor folders.
	ItemTypeShortcut remote.ItemType = "shortcut"
)

const (
	driveFileFields  = "id,name,mimeType,size,modifiedTime"
	driveFilesFields = "nextPageToken,files(id,name,mimeType,size,modifiedTime)"
)

// Client provides remote.Client operations over a drive.Service.
type Client struct {
	service *drive.Service
}

var _ remote.Client = (*Client)(nil)

// New creates a Client. The service should be properly authenticated before being passed to this function.
func New(service *drive.Service) *Client {
	return &Client{service: service}
}

func (c *Client) ListItemsInFolder(ctx context.Context, folderID string) ([]remote.Item, error) {
	files, err := findAllIn(ctx, c.service, folderID)
	if err != nil {
		return nil, err
	}
	items := make([]remote.Item, 0, len(files))
	for _, f := range files {
		items = append(items, toItem(f))
	}
	return items, nil
}

func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	file, err := createDirIn(ctx, c.service, parentID, name)
	if err != nil {
		return "", err
	}
	return file.Id, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return deleteFile(ctx, c.service, id)
}

// DeleteFolder deletes the folder. Drive removes its descendants with it.
func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return deleteFile(ctx, c.service, id)
}

func (c *Client) Upload(ctx context.Context, name, parentID string, content io.Reader) (string, error) {
	existing, err := findAllByNameIn(ctx, c.service, parentID, name)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return "", errors.Wrap(errors.ErrAlreadyExists, fmt.Sprintf("'%s' in folder %s", name, parentID), nil)
	}
	file, err := c.service.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{parentID},
	}).
		SupportsAllDrives(true).
		Fields(driveFileFields).
		Media(content).
		Context(ctx).
		Do()
	if err != nil {
		return "", newDriveError("failed to upload file", err)
	}
	return file.Id, nil
}

// Download streams the file content. Google Docs, Sheets, and other app files cannot be
// downloaded and fail with ErrNotReadable.
func (c *Client) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	file, found, err := findByID(ctx, c.service, id)
	if err != nil {
		return nil, err
	}
	if !found || file.MimeType == mimeTypeGoogleAppFolder {
		return nil, errors.Wrap(errors.ErrNotFound, fmt.Sprintf("file %s", id), nil)
	}
	if strings.HasPrefix(file.MimeType, mimeTypePrefixGoogleApp) {
		return nil, fmt.Errorf("cannot download google-apps file: %w", errors.ErrNotReadable)
	}

	resp, err := c.service.Files.Get(id).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, newDriveError("failed to download file", err)
	}
	return resp.Body, nil
}

func (c *Client) GetFileInformation(ctx context.Context, id string) (remote.FileInformation, error) {
	file, found, err := findByID(ctx, c.service, id)
	if err != nil {
		return remote.FileInformation{}, err
	}
	if !found || file.MimeType == mimeTypeGoogleAppFolder {
		return remote.FileInformation{}, errors.Wrap(errors.ErrNotFound, fmt.Sprintf("file %s", id), nil)
	}
	item := toItem(file)
	return remote.FileInformation{Size: item.Size, Type: item.Type, ModifiedAt: item.ModifiedAt}, nil
}

func (c *Client) GetFolderInformation(ctx context.Context, id string) (remote.FolderInformation, error) {
	file, found, err := findByID(ctx, c.service, id)
	if err != nil {
		return remote.FolderInformation{}, err
	}
	if !found || file.MimeType != mimeTypeGoogleAppFolder {
		return remote.FolderInformation{}, errors.Wrap(errors.ErrNotFound, fmt.Sprintf("folder %s", id), nil)
	}
	item := toItem(file)
	return remote.FolderInformation{Type: item.Type, ModifiedAt: item.ModifiedAt}, nil
}

func toItem(f *drive.File) remote.Item {
	modTime, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	itemType := remote.ItemTypeFile
	switch f.MimeType {
	case mimeTypeGoogleAppFolder:
		itemType = remote.ItemTypeFolder
	case mimeTypeGoogleAppShortcut:
		itemType = ItemTypeShortcut
	}
	return remote.Item{
		ID:         f.Id,
		Name:       f.Name,
		Type:       itemType,
		Size:       f.Size,
		ModifiedAt: modTime,
	}
}

// newDriveError wraps a Drive API failure. A 404 response also matches ErrNotFound.
func newDriveError(msg string, cause error) error {
	err := errors.NewAPIError(msg, cause)
	var gErr *googleapi.Error
	if stderrors.As(cause, &gErr) && gErr.Code == http.StatusNotFound {
		return errors.Wrap(errors.ErrNotFound, msg, err)
	}
	return err
}

func queryFileInfo(ctx context.Context, s *drive.Service, query string) (results []*drive.File, err error) {
	err = s.Files.List().
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Q(query).
		Fields(driveFilesFields).
		Pages(ctx, func(list *drive.FileList) error {
			results = append(results, list.Files...)
			return nil
		})
	if err != nil {
		return nil, newDriveError("failed to query files", err)
	}
	return results, nil
}

func findAllIn(ctx context.Context, s *drive.Service, parentID string) ([]*drive.File, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(parentID))
	return queryFileInfo(ctx, s, q)
}

func findAllByNameIn(ctx context.Context, s *drive.Service, parentID, name string) ([]*drive.File, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQuery(name), escapeQuery(parentID))
	return queryFileInfo(ctx, s, q)
}

func findByID(ctx context.Context, s *drive.Service, fileID string) (file *drive.File, found bool, err error) {
	file, err = s.Files.Get(fileID).
		SupportsAllDrives(true).
		Fields(driveFileFields).
		Context(ctx).
		Do()
	if err != nil {
		var gErr *googleapi.Error
		if stderrors.As(err, &gErr) && gErr.Code == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, newDriveError("failed to get file", err)
	}
	return file, true, nil
}

func createDirIn(ctx context.Context, s *drive.Service, parentID, name string) (*drive.File, error) {
	file, err := s.Files.Create(&drive.File{
		Name:     name,
		MimeType: mimeTypeGoogleAppFolder,
		Parents:  []string{parentID},
	}).
		SupportsAllDrives(true).
		Fields(driveFileFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, newDriveError("failed to create directory", err)
	}
	return file, nil
}

func deleteFile(ctx context.Context, s *drive.Service, fileID string) error {
	err := s.Files.Delete(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return newDriveError("failed to delete file", err)
	}
	return nil
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	return s
}
