package domain

// ResultKind distinguishes real backend reports from synthetic fallbacks.
type ResultKind string

const (
	ResultKindReport ResultKind = "report"
	ResultKindMock   ResultKind = "mockReport"
)

// ReportFormat identifies the payload encoding of a real report.
type ReportFormat string

const (
	ReportFormatPDF      ReportFormat = "pdf"
	ReportFormatMarkdown ReportFormat = "markdown"
)

// ReportMetadata carries server-provided attributes of a real report,
// extracted from response headers at the HTTP boundary.
type ReportMetadata struct {
	RequestID   string `json:"requestId"`
	Filename    string `json:"filename"`
	Model       string `json:"model"`
	GeneratedIn string `json:"generatedIn"`
}

// AnalysisResult is the tagged outcome of one analysis call. The kind is
// decided once at the HTTP boundary and never re-inspected downstream:
// ResultKindReport carries Format/Payload/Metadata, ResultKindMock carries
// Markdown and the human-readable Reason for falling back.
type AnalysisResult struct {
	Kind     ResultKind     `json:"kind"`
	Format   ReportFormat   `json:"format,omitempty"`
	Payload  []byte         `json:"-"`
	Metadata ReportMetadata `json:"metadata,omitempty"`
	Markdown string         `json:"markdown,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// IsMock reports whether the result was produced by the mock generator.
func (r AnalysisResult) IsMock() bool {
	return r.Kind == ResultKindMock
}
