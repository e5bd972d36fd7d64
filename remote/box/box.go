// Package box implements remote.Client against the Box Content API v2.
//
// Requests are authenticated by the *http.Client, normally built from an oauth2.TokenSource.
// Idempotent requests that fail with 429 or a 5xx status are retried with backoff.
package box

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/feuerwagen/go-boxfs/errors"
	"github.com/feuerwagen/go-boxfs/internal/retry"
	"github.com/feuerwagen/go-boxfs/remote"
)

const (
	DefaultAPIURL    = "https://api.box.com/2.0"
	DefaultUploadURL = "https://upload.box.com/api/2.0"

	// RootFolderID is the ID Box gives every user's top-level folder.
	RootFolderID = "0"

	DefaultListLimit = 1000
)

const itemFields = "id,type,name,size,modified_at"

// Client talks to one Box account.
type Client struct {
	http      *http.Client
	apiURL    string
	uploadURL string
	listLimit int
	retry     retry.Config
	logger    *zap.Logger
}

var _ remote.Client = (*Client)(nil)

type Option func(*Client)

func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = u }
}

func WithUploadURL(u string) Option {
	return func(c *Client) { c.uploadURL = u }
}

// WithListLimit sets the page size of folder listings. Only the first page is read.
func WithListLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.listLimit = limit
		}
	}
}

func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client that sends requests through httpClient.
func New(httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		http:      httpClient,
		apiURL:    DefaultAPIURL,
		uploadURL: DefaultUploadURL,
		listLimit: DefaultListLimit,
		retry:     retry.DefaultConfig(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithTokenSource creates a Client authenticated by ts.
func NewWithTokenSource(ctx context.Context, ts oauth2.TokenSource, opts ...Option) *Client {
	return New(oauth2.NewClient(ctx, ts), opts...)
}

// NewWithToken creates a Client authenticated by a fixed access token, such as a developer token.
func NewWithToken(ctx context.Context, accessToken string, opts ...Option) *Client {
	return NewWithTokenSource(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}), opts...)
}

type item struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

func (i item) toRemote() remote.Item {
	return remote.Item{
		ID:         i.ID,
		Name:       i.Name,
		Type:       remote.ItemType(i.Type),
		Size:       i.Size,
		ModifiedAt: i.ModifiedAt,
	}
}

type itemCollection struct {
	TotalCount int    `json:"total_count"`
	Entries    []item `json:"entries"`
}

type parentRef struct {
	ID string `json:"id"`
}

type createAttributes struct {
	Name   string    `json:"name"`
	Parent parentRef `json:"parent"`
}

func (c *Client) ListItemsInFolder(ctx context.Context, folderID string) ([]remote.Item, error) {
	q := url.Values{}
	q.Set("fields", itemFields)
	q.Set("limit", strconv.Itoa(c.listLimit))
	q.Set("offset", "0")
	u := c.apiURL + "/folders/" + url.PathEscape(folderID) + "/items?" + q.Encode()

	var list itemCollection
	if err := c.getJSON(ctx, "list folder "+folderID, u, &list); err != nil {
		return nil, err
	}
	if list.TotalCount > len(list.Entries) {
		c.logger.Warn("folder listing truncated",
			zap.String("folder_id", folderID),
			zap.Int("total", list.TotalCount),
			zap.Int("returned", len(list.Entries)))
	}
	items := make([]remote.Item, 0, len(list.Entries))
	for _, e := range list.Entries {
		items = append(items, e.toRemote())
	}
	return items, nil
}

func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	body, err := json.Marshal(createAttributes{Name: name, Parent: parentRef{ID: parentID}})
	if err != nil {
		return "", errors.NewIOError("failed to encode folder attributes", err)
	}
	op := fmt.Sprintf("create folder '%s' in %s", name, parentID)
	resp, err := c.send(ctx, op, false, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/folders?fields=id", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	var created item
	if err := decodeJSON(resp, &created); err != nil {
		return "", errors.NewAPIError(op, err)
	}
	return created.ID, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.delete(ctx, "delete file "+id, c.apiURL+"/files/"+url.PathEscape(id))
}

// DeleteFolder removes the folder and its contents.
func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return c.delete(ctx, "delete folder "+id, c.apiURL+"/folders/"+url.PathEscape(id)+"?recursive=true")
}

func (c *Client) delete(ctx context.Context, op, u string) error {
	resp, err := c.send(ctx, op, true, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	})
	if err != nil {
		return err
	}
	return drain(resp)
}

// Upload streams content as a multipart upload. Uploads are never retried because the
// content can only be read once.
func (c *Client) Upload(ctx context.Context, name, parentID string, content io.Reader) (string, error) {
	attrs, err := json.Marshal(createAttributes{Name: name, Parent: parentRef{ID: parentID}})
	if err != nil {
		return "", errors.NewIOError("failed to encode file attributes", err)
	}
	op := fmt.Sprintf("upload '%s' to %s", name, parentID)
	resp, err := c.send(ctx, op, false, func() (*http.Request, error) {
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			pw.CloseWithError(writeUploadBody(mw, attrs, name, content))
		}()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/files/content?fields=id", pr)
		if err != nil {
			pr.Close()
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return "", err
	}
	var uploaded itemCollection
	if err := decodeJSON(resp, &uploaded); err != nil {
		return "", errors.NewAPIError(op, err)
	}
	if len(uploaded.Entries) == 0 {
		return "", errors.NewAPIError(op, fmt.Errorf("upload response has no entries"))
	}
	return uploaded.Entries[0].ID, nil
}

// writeUploadBody writes the attributes part before the file part, as Box requires.
func writeUploadBody(mw *multipart.Writer, attrs []byte, name string, content io.Reader) error {
	if err := mw.WriteField("attributes", string(attrs)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return errors.NewIOError("failed to read upload content", err)
	}
	return mw.Close()
}

// Download returns the file content. Box answers with a redirect that the HTTP client follows.
func (c *Client) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	u := c.apiURL + "/files/" + url.PathEscape(id) + "/content"
	resp, err := c.send(ctx, "download file "+id, true, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) GetFileInformation(ctx context.Context, id string) (remote.FileInformation, error) {
	u := c.apiURL + "/files/" + url.PathEscape(id) + "?fields=" + url.QueryEscape(itemFields)
	var f item
	if err := c.getJSON(ctx, "get file "+id, u, &f); err != nil {
		return remote.FileInformation{}, err
	}
	return remote.FileInformation{Size: f.Size, Type: remote.ItemType(f.Type), ModifiedAt: f.ModifiedAt}, nil
}

func (c *Client) GetFolderInformation(ctx context.Context, id string) (remote.FolderInformation, error) {
	u := c.apiURL + "/folders/" + url.PathEscape(id) + "?fields=" + url.QueryEscape(itemFields)
	var f item
	if err := c.getJSON(ctx, "get folder "+id, u, &f); err != nil {
		return remote.FolderInformation{}, err
	}
	return remote.FolderInformation{Type: remote.ItemType(f.Type), ModifiedAt: f.ModifiedAt}, nil
}

func (c *Client) getJSON(ctx context.Context, op, u string, v any) error {
	resp, err := c.send(ctx, op, true, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, v); err != nil {
		return errors.NewAPIError(op, err)
	}
	return nil
}

// send performs the request built by newRequest and returns the response when the status is
// below 400. The caller closes the body. Idempotent requests are retried on transient failures.
func (c *Client) send(ctx context.Context, op string, idempotent bool, newRequest func() (*http.Request, error)) (*http.Response, error) {
	cfg := c.retry
	if !idempotent {
		cfg.MaxAttempts = 1
	}
	attempt := 0
	return retry.DoWithResult(ctx, cfg, func() (*http.Response, error) {
		attempt++
		req, err := newRequest()
		if err != nil {
			return nil, errors.NewAPIError(op, err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.NewAPIError(op, ctx.Err())
			}
			c.logger.Debug("box request failed", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
			return nil, retry.Retryable(errors.NewAPIError(op, err))
		}
		if resp.StatusCode < http.StatusBadRequest {
			return resp, nil
		}

		apiErr := readError(resp)
		err = classify(op, apiErr)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			c.logger.Debug("box request throttled or failed",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode))
			return nil, retry.RetryableAfter(err, retryAfter(resp))
		}
		return nil, err
	})
}

// Error is a failure response from the Box API.
type Error struct {
	StatusCode int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("box returned %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

func readError(resp *http.Response) *Error {
	defer resp.Body.Close()
	apiErr := &Error{}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, apiErr)
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

// classify maps a Box error to the shared error vocabulary.
func classify(op string, apiErr *Error) error {
	err := errors.NewAPIError(op, apiErr)
	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return errors.Wrap(errors.ErrNotFound, op, err)
	case http.StatusConflict:
		return errors.Wrap(errors.ErrAlreadyExists, op, err)
	}
	return err
}

func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) error {
	defer resp.Body.Close()
	_, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return errors.NewIOError("failed to read response body", err)
	}
	return nil
}
