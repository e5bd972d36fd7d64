package box_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feuerwagen/go-boxfs/internal/retry"
	"github.com/feuerwagen/go-boxfs/remote"
	"github.com/feuerwagen/go-boxfs/remote/box"

	boxerrors "github.com/feuerwagen/go-boxfs/errors"
)

func newClient(t *testing.T, handler http.Handler, opts ...box.Option) *box.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]box.Option{
		box.WithAPIURL(srv.URL + "/2.0"),
		box.WithUploadURL(srv.URL + "/api/2.0"),
		box.WithRetry(retry.Config{MaxAttempts: 3, InitialWait: time.Millisecond, Multiplier: 1}),
	}, opts...)
	return box.NewWithToken(context.Background(), "test-token", opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func boxError(status int, code, message string) map[string]any {
	return map[string]any{"type": "error", "status": status, "code": code, "message": message, "request_id": "req-1"}
}

func TestClient_ListItemsInFolder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /2.0/folders/0/items", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-token")
		}
		if got := r.URL.Query().Get("limit"); got != "250" {
			t.Errorf("limit = %q, want 250", got)
		}
		if got := r.URL.Query().Get("fields"); !strings.Contains(got, "modified_at") {
			t.Errorf("fields = %q, want modified_at requested", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_count": 3,
			"entries": []map[string]any{
				{"type": "folder", "id": "11", "name": "docs", "modified_at": "2024-01-15T10:30:00-08:00"},
				{"type": "file", "id": "12", "name": "a.txt", "size": 42, "modified_at": "2024-01-16T00:00:00Z"},
				{"type": "web_link", "id": "13", "name": "link"},
			},
		})
	})
	c := newClient(t, mux, box.WithListLimit(250))

	items, err := c.ListItemsInFolder(context.Background(), box.RootFolderID)
	if err != nil {
		t.Fatalf("ListItemsInFolder() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("ListItemsInFolder() returned %d items, want 3", len(items))
	}
	if !items[0].IsFolder() || items[0].ID != "11" || items[0].Name != "docs" {
		t.Fatalf("items[0] = %+v, want folder docs", items[0])
	}
	wantMod := time.Date(2024, 1, 15, 18, 30, 0, 0, time.UTC)
	if !items[0].ModifiedAt.Equal(wantMod) {
		t.Fatalf("items[0].ModifiedAt = %v, want %v", items[0].ModifiedAt, wantMod)
	}
	if !items[1].IsFile() || items[1].Size != 42 {
		t.Fatalf("items[1] = %+v, want 42 byte file", items[1])
	}
	if items[2].IsFile() || items[2].IsFolder() || items[2].Type != remote.ItemType("web_link") {
		t.Fatalf("items[2] = %+v, want web_link", items[2])
	}
}

func TestClient_CreateFolder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /2.0/folders", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name   string `json:"name"`
			Parent struct {
				ID string `json:"id"`
			} `json:"parent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if body.Name != "reports" || body.Parent.ID != "11" {
			t.Errorf("body = %+v, want reports in 11", body)
		}
		writeJSON(w, http.StatusCreated, map[string]any{"type": "folder", "id": "99"})
	})
	c := newClient(t, mux)

	id, err := c.CreateFolder(context.Background(), "reports", "11")
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}
	if id != "99" {
		t.Fatalf("CreateFolder() = %q, want 99", id)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /2.0/folders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, boxError(409, "item_name_in_use", "Item with the same name already exists"))
	})
	mux.HandleFunc("GET /2.0/files/404", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, boxError(404, "not_found", "Not Found"))
	})
	mux.HandleFunc("GET /2.0/folders/403", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, boxError(403, "access_denied_insufficient_permissions", "Access denied"))
	})
	c := newClient(t, mux)
	ctx := context.Background()

	_, err := c.CreateFolder(ctx, "dup", "0")
	if !errors.Is(err, boxerrors.ErrAlreadyExists) || !errors.Is(err, boxerrors.ErrAPIError) {
		t.Fatalf("CreateFolder() error = %v, want ErrAlreadyExists and ErrAPIError", err)
	}
	var apiErr *box.Error
	if !errors.As(err, &apiErr) || apiErr.Code != "item_name_in_use" || apiErr.StatusCode != 409 {
		t.Fatalf("errors.As(*box.Error) = %+v, want item_name_in_use", apiErr)
	}

	_, err = c.GetFileInformation(ctx, "404")
	if !errors.Is(err, boxerrors.ErrNotFound) {
		t.Fatalf("GetFileInformation() error = %v, want ErrNotFound", err)
	}

	_, err = c.GetFolderInformation(ctx, "403")
	if !errors.Is(err, boxerrors.ErrAPIError) || errors.Is(err, boxerrors.ErrNotFound) {
		t.Fatalf("GetFolderInformation() error = %v, want plain ErrAPIError", err)
	}
	if !strings.Contains(err.Error(), "access_denied_insufficient_permissions") {
		t.Fatalf("Error() = %q, want the Box error code", err.Error())
	}
}

func TestClient_RetriesIdempotentRequests(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /2.0/folders/0/items", func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			writeJSON(w, http.StatusTooManyRequests, boxError(429, "rate_limit_exceeded", "slow down"))
		case 2:
			writeJSON(w, http.StatusServiceUnavailable, boxError(503, "unavailable", "try again"))
		default:
			writeJSON(w, http.StatusOK, map[string]any{"total_count": 0, "entries": []any{}})
		}
	})
	c := newClient(t, mux)

	items, err := c.ListItemsInFolder(context.Background(), "0")
	if err != nil {
		t.Fatalf("ListItemsInFolder() error = %v", err)
	}
	if len(items) != 0 || calls.Load() != 3 {
		t.Fatalf("ListItemsInFolder() = %d items after %d calls, want 0 after 3", len(items), calls.Load())
	}
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /2.0/files/7", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadGateway, boxError(502, "bad_gateway", "upstream"))
	})
	c := newClient(t, mux)

	err := c.Delete(context.Background(), "7")
	if !errors.Is(err, boxerrors.ErrAPIError) {
		t.Fatalf("Delete() error = %v, want ErrAPIError", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_DoesNotRetryCreation(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /2.0/folders", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, boxError(500, "internal_server_error", "oops"))
	})
	c := newClient(t, mux)

	if _, err := c.CreateFolder(context.Background(), "x", "0"); err == nil {
		t.Fatalf("CreateFolder() error = nil, want failure")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_Upload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/2.0/files/content", func(w http.ResponseWriter, r *http.Request) {
		mr, err := r.MultipartReader()
		if err != nil {
			t.Errorf("MultipartReader() error = %v", err)
			return
		}
		attrs, err := mr.NextPart()
		if err != nil || attrs.FormName() != "attributes" {
			t.Errorf("first part = %v (%v), want attributes", attrs, err)
			return
		}
		data, _ := io.ReadAll(attrs)
		if !strings.Contains(string(data), `"name":"c.txt"`) || !strings.Contains(string(data), `"id":"22"`) {
			t.Errorf("attributes = %s, want c.txt in 22", data)
		}
		file, err := mr.NextPart()
		if err != nil || file.FormName() != "file" || file.FileName() != "c.txt" {
			t.Errorf("second part = %v (%v), want file c.txt", file, err)
			return
		}
		content, _ := io.ReadAll(file)
		if string(content) != "payload" {
			t.Errorf("content = %q, want payload", content)
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"total_count": 1,
			"entries":     []map[string]any{{"type": "file", "id": "555"}},
		})
	})
	c := newClient(t, mux)

	id, err := c.Upload(context.Background(), "c.txt", "22", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if id != "555" {
		t.Fatalf("Upload() = %q, want 555", id)
	}
}

func TestClient_Download(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /2.0/files/555/content", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dl/555", http.StatusFound)
	})
	mux.HandleFunc("GET /dl/555", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "payload")
	})
	c := newClient(t, mux)

	rc, err := c.Download(context.Background(), "555")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil || string(data) != "payload" {
		t.Fatalf("Download() content = (%q, %v), want payload", data, err)
	}
}

func TestClient_DeleteFolderIsRecursive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /2.0/folders/11", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("recursive"); got != "true" {
			t.Errorf("recursive = %q, want true", got)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c := newClient(t, mux)

	if err := c.DeleteFolder(context.Background(), "11"); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}
}

func TestClient_Information(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /2.0/files/12", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"type": "file", "id": "12", "size": 2048, "modified_at": "2024-03-01T12:00:00Z"})
	})
	mux.HandleFunc("GET /2.0/folders/11", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"type": "folder", "id": "11", "modified_at": "2024-03-02T12:00:00Z"})
	})
	c := newClient(t, mux)
	ctx := context.Background()

	file, err := c.GetFileInformation(ctx, "12")
	if err != nil {
		t.Fatalf("GetFileInformation() error = %v", err)
	}
	if file.Size != 2048 || file.Type != remote.ItemTypeFile || file.ModifiedAt.Day() != 1 {
		t.Fatalf("GetFileInformation() = %+v", file)
	}
	folder, err := c.GetFolderInformation(ctx, "11")
	if err != nil {
		t.Fatalf("GetFolderInformation() error = %v", err)
	}
	if folder.Type != remote.ItemTypeFolder || folder.ModifiedAt.Day() != 2 {
		t.Fatalf("GetFolderInformation() = %+v", folder)
	}
}
