// Package metrics provides Prometheus metrics for boxfs remote calls, the folder index,
// and the WebDAV server.
package metrics

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feuerwagen/go-boxfs"
	"github.com/feuerwagen/go-boxfs/remote"
)

// Remote operation label values.
const (
	OpListItems     = "list_items_in_folder"
	OpCreateFolder  = "create_folder"
	OpDelete        = "delete"
	OpDeleteFolder  = "delete_folder"
	OpUpload        = "upload"
	OpDownload      = "download"
	OpFileInfo      = "get_file_information"
	OpFolderInfo    = "get_folder_information"
	statusSuccess   = "success"
	statusError     = "error"
	metricNamespace = "boxfs"
)

var (
	remoteOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "remote_operations_total",
			Help:      "Total remote store calls",
		},
		[]string{"operation", "status"},
	)

	remoteOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "remote_operation_duration_seconds",
			Help:      "Remote store call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	contentBytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "content_bytes_downloaded_total",
			Help:      "Total file bytes read from the remote store",
		},
	)

	contentBytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "content_bytes_uploaded_total",
			Help:      "Total file bytes sent to the remote store",
		},
	)

	folderIndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "folder_index_size",
			Help:      "Number of folders in the most recently built folder index",
		},
	)

	folderIndexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "folder_index_build_duration_seconds",
			Help:      "Time to traverse the remote folder tree",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	folderIndexCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "folder_index_created_total",
			Help:      "Folders created by the adapter and added to the index",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRemoteOperation records one remote store call.
func RecordRemoteOperation(operation string, duration time.Duration, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	remoteOperationsTotal.WithLabelValues(operation, status).Inc()
	remoteOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Observer records folder index events. It satisfies boxfs.Observer.
type Observer struct{}

var _ boxfs.Observer = Observer{}

func (Observer) IndexBuilt(folders int, took time.Duration) {
	folderIndexSize.Set(float64(folders))
	folderIndexBuildDuration.Observe(took.Seconds())
}

func (Observer) FolderCreated(string) {
	folderIndexSize.Inc()
	folderIndexCreatedTotal.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records a request counter and latency per HTTP method.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, rw.status, time.Since(start))
	})
}

// InstrumentClient decorates c so that every call is counted and timed.
func InstrumentClient(c remote.Client) remote.Client {
	return &instrumentedClient{next: c}
}

type instrumentedClient struct {
	next remote.Client
}

func (c *instrumentedClient) ListItemsInFolder(ctx context.Context, folderID string) ([]remote.Item, error) {
	start := time.Now()
	items, err := c.next.ListItemsInFolder(ctx, folderID)
	RecordRemoteOperation(OpListItems, time.Since(start), err)
	return items, err
}

func (c *instrumentedClient) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	start := time.Now()
	id, err := c.next.CreateFolder(ctx, name, parentID)
	RecordRemoteOperation(OpCreateFolder, time.Since(start), err)
	return id, err
}

func (c *instrumentedClient) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := c.next.Delete(ctx, id)
	RecordRemoteOperation(OpDelete, time.Since(start), err)
	return err
}

func (c *instrumentedClient) DeleteFolder(ctx context.Context, id string) error {
	start := time.Now()
	err := c.next.DeleteFolder(ctx, id)
	RecordRemoteOperation(OpDeleteFolder, time.Since(start), err)
	return err
}

func (c *instrumentedClient) Upload(ctx context.Context, name, parentID string, content io.Reader) (string, error) {
	start := time.Now()
	counted := &countingReader{r: content}
	id, err := c.next.Upload(ctx, name, parentID, counted)
	RecordRemoteOperation(OpUpload, time.Since(start), err)
	if err == nil {
		contentBytesUploaded.Add(float64(counted.n))
	}
	return id, err
}

// Download records the call when the stream is opened and the bytes as they are read.
func (c *instrumentedClient) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := c.next.Download(ctx, id)
	RecordRemoteOperation(OpDownload, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &countingReadCloser{ReadCloser: rc}, nil
}

func (c *instrumentedClient) GetFileInformation(ctx context.Context, id string) (remote.FileInformation, error) {
	start := time.Now()
	info, err := c.next.GetFileInformation(ctx, id)
	RecordRemoteOperation(OpFileInfo, time.Since(start), err)
	return info, err
}

func (c *instrumentedClient) GetFolderInformation(ctx context.Context, id string) (remote.FolderInformation, error) {
	start := time.Now()
	info, err := c.next.GetFolderInformation(ctx, id)
	RecordRemoteOperation(OpFolderInfo, time.Since(start), err)
	return info, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.n += int64(n)
	return n, err
}

type countingReadCloser struct {
	io.ReadCloser
}

func (r *countingReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	contentBytesDownloaded.Add(float64(n))
	return n, err
}
