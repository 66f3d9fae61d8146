package convertapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"

	"wordxl/internal/config"
	"wordxl/internal/fileutil"
	"wordxl/internal/logging"
	"wordxl/internal/services"
	"wordxl/internal/textutil"
)

const (
	msgUploadFailed   = "upload failed"
	msgStartFailed    = "failed to start conversion"
	msgProgressFailed = "progress check failed"
	msgResultNotReady = "result not ready"
	msgCSVNotReady    = "CSV not ready"
	msgResetFailed    = "reset failed"

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 512
)

// HTTPDoer describes the HTTP client used by the conversion client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Endpoints holds the per-operation paths appended to the base URL.
type Endpoints struct {
	Upload   string
	Convert  string
	Progress string
	Result   string
	Reset    string
}

// Client talks to the conversion service.
type Client struct {
	baseURL   string
	endpoints Endpoints
	format    string
	outputDir string
	client    HTTPDoer
	logger    *slog.Logger
	requestID func() string
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOutputDir sets where FetchResult writes downloaded files.
func WithOutputDir(dir string) Option {
	return func(c *Client) {
		c.outputDir = dir
	}
}

// WithResultFormat selects xlsx (default) or csv for FetchResult.
func WithResultFormat(format string) Option {
	return func(c *Client) {
		c.format = strings.ToLower(strings.TrimSpace(format))
	}
}

// WithRequestIDFunc overrides request ID generation (useful for tests).
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// NewClient constructs a client for baseURL.
func NewClient(baseURL string, endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		endpoints: endpoints,
		format:    "xlsx",
		client:    http.DefaultClient,
		logger:    logging.NewNop(),
		requestID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.format == "" {
		c.format = "xlsx"
	}
	return c
}

// NewFromConfig builds a client from the [service] and [paths] sections.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	endpoints := Endpoints{
		Upload:   cfg.Service.UploadPath,
		Convert:  cfg.Service.ConvertPath,
		Progress: cfg.Service.ProgressPath,
		Result:   cfg.Service.ResultPath,
		Reset:    cfg.Service.ResetPath,
	}
	base := []Option{
		WithOutputDir(cfg.Paths.OutputDir),
		WithResultFormat(cfg.Service.ResultFormat),
	}
	if timeout := cfg.RequestTimeout(); timeout > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	return NewClient(cfg.Service.BaseURL, endpoints, append(base, opts...)...)
}

// BaseURL returns the service root this client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Upload sends every file in one multipart request under the repeated
// "files" field and returns the issued job ID.
func (c *Client) Upload(ctx context.Context, files []File) (UploadResponse, error) {
	if len(files) == 0 {
		return UploadResponse{}, services.Wrap(services.ErrValidation, "convertapi", "upload", "no files to upload", nil)
	}
	for _, f := range files {
		if _, err := os.Stat(f.Path); err != nil {
			return UploadResponse{}, services.Wrap(services.ErrValidation, "convertapi", "upload", msgUploadFailed, err)
		}
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeParts(writer, files))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.Upload, nil, pr)
	if err != nil {
		_ = pr.Close()
		return UploadResponse{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out UploadResponse
	if err := c.doJSON(req, "upload", msgUploadFailed, &out); err != nil {
		_ = pr.Close()
		return UploadResponse{}, err
	}
	if strings.TrimSpace(out.JobID) == "" {
		return UploadResponse{}, services.Wrap(services.ErrRemote, "convertapi", "upload", msgUploadFailed+": response missing jobId", nil)
	}
	return out, nil
}

func writeParts(writer *multipart.Writer, files []File) error {
	for _, f := range files {
		if err := copyPart(writer, f); err != nil {
			return err
		}
	}
	return writer.Close()
}

func copyPart(writer *multipart.Writer, f File) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer src.Close()
	part, err := writer.CreateFormFile("files", f.Name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

// Start asks the service to begin converting jobID.
func (c *Client) Start(ctx context.Context, jobID string) (StartResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.Convert, jobQuery(jobID), nil)
	if err != nil {
		return StartResponse{}, err
	}
	var out StartResponse
	if err := c.doJSON(req, "start", msgStartFailed, &out); err != nil {
		return StartResponse{}, err
	}
	return out, nil
}

// Poll reads the job's progress. Business failures come back in
// Progress.Error with a nil error.
func (c *Client) Poll(ctx context.Context, jobID string) (Progress, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoints.Progress, jobQuery(jobID), nil)
	if err != nil {
		return Progress{}, err
	}
	var payload progressPayload
	if err := c.doJSON(req, "poll", msgProgressFailed, &payload); err != nil {
		return Progress{}, err
	}
	out := Progress{Done: payload.Done}
	if !math.IsNaN(payload.Progress) {
		// Clamp before converting; out-of-range floats have no defined int value.
		out.Progress = int(math.Floor(math.Max(0, math.Min(100, payload.Progress))))
	}
	if payload.Error != nil {
		out.Error = strings.TrimSpace(*payload.Error)
	}
	return out, nil
}

// FetchResult downloads the finished workbook into the output directory.
func (c *Client) FetchResult(ctx context.Context, jobID string) (Result, error) {
	query := jobQuery(jobID)
	if c.format != "xlsx" {
		query.Set("format", c.format)
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoints.Result, query, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := c.do(req, "result", msgResultNotReady)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	name := resultFileName(resp.Header.Get("Content-Disposition"), jobID, c.format)
	dir := c.outputDir
	if dir == "" {
		dir = "."
	}
	target := fileutil.UniquePath(dir, name)
	size, err := fileutil.WriteStream(target, resp.Body, 0o644)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransport, "convertapi", "result", "download result", err)
	}
	c.logger.Info("result downloaded",
		logging.String(logging.FieldJobID, jobID),
		logging.String("path", target),
		logging.Int64("bytes", size),
	)
	return Result{
		JobID:       jobID,
		Path:        target,
		Name:        name,
		Format:      c.format,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        size,
	}, nil
}

// FetchCSV returns the CSV rendition of the result as text.
func (c *Client) FetchCSV(ctx context.Context, jobID string) (string, error) {
	query := jobQuery(jobID)
	query.Set("format", "csv")
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoints.Result, query, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(req, "csv", msgCSVNotReady)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "convertapi", "csv", "read body", err)
	}
	return strings.TrimPrefix(string(body), "\ufeff"), nil
}

// ResetJob asks the service to discard jobID.
func (c *Client) ResetJob(ctx context.Context, jobID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.Reset, jobQuery(jobID), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req, "reset", msgResetFailed)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func jobQuery(jobID string) url.Values {
	q := url.Values{}
	q.Set("jobId", jobID)
	return q
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "convertapi", "build request", target, err)
	}
	rid, ok := services.RequestIDFromContext(ctx)
	if !ok {
		rid = c.requestID()
	}
	req.Header.Set(requestIDHeader, rid)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, operation, failure string) (*http.Response, error) {
	logger := logging.WithContext(req.Context(), c.logger)
	logger.Debug("conversion request",
		logging.String("operation", operation),
		logging.String("method", req.Method),
		logging.String("url", req.URL.Redacted()),
		logging.String(logging.FieldCorrelationID, req.Header.Get(requestIDHeader)),
	)
	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransport, "convertapi", operation, failure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		logger.Debug("conversion request rejected",
			logging.String("operation", operation),
			logging.Int("status", resp.StatusCode),
			logging.String("body", strings.TrimSpace(string(snippet))),
		)
		return nil, &StatusError{Op: operation, Message: failure, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) doJSON(req *http.Request, operation, failure string, out any) error {
	resp, err := c.do(req, operation, failure)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrRemote, "convertapi", operation, failure, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// resultFileName prefers the server-supplied attachment name and falls back
// to result-<jobID>.<format>.
func resultFileName(disposition, jobID, format string) string {
	ext := "." + format
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := textutil.SanitizeFileName(params["filename"]); name != "" {
				return name
			}
		}
	}
	return textutil.EnsureExtension("result-"+textutil.SanitizeToken(jobID), ext)
}
