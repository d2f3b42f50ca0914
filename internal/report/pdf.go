package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFInfo summarizes a validated PDF payload.
type PDFInfo struct {
	Pages int   `json:"pages"`
	Bytes int64 `json:"bytes"`
}

// InspectPDF validates a PDF payload received from the backend and returns
// its page count. Servers occasionally mislabel error bodies as
// application/pdf; validating here keeps broken payloads out of the cache.
func InspectPDF(payload []byte) (PDFInfo, error) {
	if len(payload) == 0 {
		return PDFInfo{}, fmt.Errorf("empty pdf payload")
	}

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(payload), conf)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("validate pdf: %w", err)
	}

	return PDFInfo{Pages: ctx.PageCount, Bytes: int64(len(payload))}, nil
}

// CachePDF validates the payload and writes it to dir keyed by request id.
// Returns the cached file's path.
func CachePDF(dir, requestID string, payload []byte) (string, error) {
	if _, err := InspectPDF(payload); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}

	path := filepath.Join(dir, requestID+".pdf")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("cache report pdf: %w", err)
	}
	return path, nil
}
