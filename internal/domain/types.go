package domain

import "time"

// RequestStatus tracks each processing stage for a single diagnostic request.
type RequestStatus string

const (
	RequestStatusPending          RequestStatus = "pending"
	RequestStatusUploading        RequestStatus = "uploading"
	RequestStatusProcessing       RequestStatus = "processing"
	RequestStatusAnalyzing        RequestStatus = "analyzing"
	RequestStatusGeneratingReport RequestStatus = "generating_report"
	RequestStatusCompleted        RequestStatus = "completed"
	RequestStatusFailed           RequestStatus = "failed"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	BackendURL    string `json:"backendUrl"`
	APIToken      string `json:"apiToken"`
	ModelEndpoint string `json:"modelEndpoint"`
	ReportsDir    string `json:"reportsDir"`
	RetentionDays int    `json:"retentionDays"`
	MockSeed      uint64 `json:"mockSeed"`
}

// DiagnosticRequest stores identity, upload metadata, and lifecycle state
// for one submitted analysis. Created on submission and mutated in place as
// processing advances; the store is a passive persistence sink.
type DiagnosticRequest struct {
	ID              string        `json:"id"`
	Timestamp       time.Time     `json:"timestamp"`
	Status          RequestStatus `json:"status"`
	Filename        string        `json:"filename"`
	FileSizeBytes   int64         `json:"fileSizeBytes"`
	MimeType        string        `json:"mimeType"`
	Note            string        `json:"note"`
	ProgressPercent int           `json:"progressPercent"`
	Report          string        `json:"report,omitempty"`
	ReportPDFPath   string        `json:"reportPdfPath,omitempty"`
	HasRealReport   bool          `json:"hasRealReport"`
	ErrorMessage    string        `json:"errorMessage,omitempty"`
}

// HasReport reports whether a completed request carries report content,
// either inline markdown or a cached PDF on disk.
func (r DiagnosticRequest) HasReport() bool {
	return r.Report != "" || r.ReportPDFPath != ""
}
