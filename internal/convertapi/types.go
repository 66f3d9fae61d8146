package convertapi

// File is one document to upload. Name becomes the multipart filename and
// may contain forward slashes for folder selections.
type File struct {
	Path string
	Name string
}

// UploadResponse carries the job identifier issued by the service.
type UploadResponse struct {
	JobID string `json:"jobId"`
}

// StartResponse acknowledges a conversion start.
type StartResponse struct {
	Started bool `json:"started"`
}

// Progress is one poll response. A non-empty Error is a business failure
// reported by the service even though the HTTP call succeeded.
type Progress struct {
	Progress int
	Done     bool
	Error    string
}

type progressPayload struct {
	Progress float64 `json:"progress"`
	Done     bool    `json:"done"`
	Error    *string `json:"error"`
}

// Result describes a downloaded result file.
type Result struct {
	JobID       string `json:"job_id"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	Format      string `json:"format"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// DownloadPath is where the result was written.
func (r Result) DownloadPath() string { return r.Path }

// OpenPath is the path handed to the platform opener; it is the same file.
func (r Result) OpenPath() string { return r.Path }
