package fakebackend

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"wordxl/internal/logging"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	resultFileName  = "result.xlsx"
)

// Step is one scripted progress response.
type Step struct {
	Progress float64
	Done     bool
	Error    string
}

// Upload records one received document.
type Upload struct {
	Name string
	Size int64
}

type job struct {
	id      string
	files   []Upload
	started time.Time
	polls   int
	done    bool
}

type progressBody struct {
	Progress float64 `json:"progress"`
	Done     bool    `json:"done"`
	Error    *string `json:"error"`
}

// Uploads returns the documents received for jobID.
func (s *Server) Uploads(jobID string) []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	return append([]Upload(nil), j.files...)
}

// Jobs returns the number of jobs the server still tracks.
func (s *Server) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Server) handleUpload(c echo.Context) error {
	s.mu.Lock()
	fail := s.failUpload
	s.mu.Unlock()
	if fail {
		return errorJSON(c, http.StatusInternalServerError, "upload rejected")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "expected multipart form")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return errorJSON(c, http.StatusBadRequest, "no files")
	}
	files := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		size, err := partSize(fh)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "unreadable part")
		}
		files = append(files, Upload{Name: fh.Filename, Size: size})
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.jobs[id] = &job{id: id, files: files}
	s.mu.Unlock()
	s.logger.Info("upload received",
		logging.String(logging.FieldJobID, id),
		logging.Int("files", len(files)),
	)
	return c.JSON(http.StatusOK, map[string]string{"jobId": id})
}

func partSize(fh *multipart.FileHeader) (int64, error) {
	f, err := fh.Open()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(io.Discard, f)
}

func (s *Server) handleStart(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failStart {
		return errorJSON(c, http.StatusInternalServerError, "converter unavailable")
	}
	j, ok := s.jobs[c.QueryParam("jobId")]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "unknown job")
	}
	if j.started.IsZero() {
		j.started = s.now()
	}
	return c.JSON(http.StatusOK, map[string]bool{"started": true})
}

func (s *Server) handleProgress(c echo.Context) error {
	jobID := c.QueryParam("jobId")
	if jobID == "" {
		return errorJSON(c, http.StatusBadRequest, "jobId is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "unknown job")
	}
	if j.started.IsZero() {
		return c.JSON(http.StatusOK, progressBody{})
	}
	step := s.nextStep(j)
	if step.Done && step.Error == "" {
		j.done = true
	}
	body := progressBody{Progress: step.Progress, Done: step.Done}
	if step.Error != "" {
		msg := step.Error
		body.Error = &msg
	}
	return c.JSON(http.StatusOK, body)
}

// nextStep must be called with s.mu held.
func (s *Server) nextStep(j *job) Step {
	defer func() { j.polls++ }()
	if len(s.script) > 0 {
		idx := j.polls
		if idx >= len(s.script) {
			idx = len(s.script) - 1
		}
		return s.script[idx]
	}
	ticks := int(s.now().Sub(j.started) / s.tick)
	return timedStep(ticks, s.step)
}

// timedStep is 5 at start, rises by step per tick, holds at 85, and reports
// 100 with done one tick after reaching 85.
func timedStep(ticks, step int) Step {
	progress := 5 + ticks*step
	if progress < 85 {
		return Step{Progress: float64(progress)}
	}
	reached := (80 + step - 1) / step
	if ticks > reached {
		return Step{Progress: 100, Done: true}
	}
	return Step{Progress: 85}
}

func (s *Server) handleResult(c echo.Context) error {
	s.mu.Lock()
	j, ok := s.jobs[c.QueryParam("jobId")]
	var files []Upload
	done := false
	if ok {
		files = append(files, j.files...)
		done = j.done
	}
	s.mu.Unlock()

	if !ok {
		return errorJSON(c, http.StatusNotFound, "unknown job")
	}
	if !done {
		return errorJSON(c, http.StatusConflict, "conversion not finished")
	}
	switch strings.ToLower(c.QueryParam("format")) {
	case "", "xlsx":
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", resultFileName))
		return c.Blob(http.StatusOK, xlsxContentType, workbookPayload(files))
	case "csv":
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte("\ufeff"+csvPayload(files)))
	default:
		return errorJSON(c, http.StatusBadRequest, "unsupported format")
	}
}

// csvPayload lists one row per uploaded document.
func csvPayload(files []Upload) string {
	var sb strings.Builder
	sb.WriteString("file,document,bytes\n")
	for _, f := range files {
		base := path.Base(f.Name)
		fmt.Fprintf(&sb, "%s,%s,%d\n", csvField(f.Name), csvField(strings.TrimSuffix(base, path.Ext(base))), f.Size)
	}
	return sb.String()
}

func csvField(v string) string {
	if strings.ContainsAny(v, ",\"\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}

// workbookPayload is a placeholder body labelled as a workbook; clients only
// store it.
func workbookPayload(files []Upload) []byte {
	return []byte("PK\x03\x04wordxl-dev-workbook\n" + csvPayload(files))
}

func (s *Server) handleReset(c echo.Context) error {
	jobID := c.QueryParam("jobId")
	s.mu.Lock()
	_, ok := s.jobs[jobID]
	delete(s.jobs, jobID)
	s.mu.Unlock()
	if !ok {
		return errorJSON(c, http.StatusNotFound, "unknown job")
	}
	return c.JSON(http.StatusOK, map[string]bool{"reset": true})
}
