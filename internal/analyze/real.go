package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"densiview/internal/domain"
	"densiview/internal/probe"
)

// SubmitTimeout bounds one full real-backend analysis, report generation
// included.
const SubmitTimeout = 10 * time.Minute

// maxReportSize caps the accepted PDF payload (64 MB).
const maxReportSize = 64 * 1024 * 1024

// submitStrategy describes one header profile for the multipart POST. The
// original demo degraded from authenticated to header-free requests to dodge
// CORS preflight; stripping the Authorization header cannot rescue a request
// a server rejects for authentication reasons, so the later profiles are of
// questionable practical value. The sequence is preserved as observed
// behavior, not as a recommended design.
type submitStrategy struct {
	name    string
	headers func(token string) http.Header
}

var submitStrategies = []submitStrategy{
	{
		name: "full",
		headers: func(token string) http.Header {
			h := http.Header{}
			if token != "" {
				h.Set("Authorization", "Bearer "+token)
			}
			h.Set("Accept", "application/pdf, application/json")
			return h
		},
	},
	{
		name: "minimal",
		headers: func(string) http.Header {
			h := http.Header{}
			h.Set("Accept", "application/pdf, application/json")
			return h
		},
	},
	{
		name:    "bare",
		headers: func(string) http.Header { return http.Header{} },
	},
}

// submitReal POSTs the upload to {base}/predict/{model} and decides the
// result kind once, at the HTTP boundary. Strategies run strictly
// sequentially; the next one is attempted only after a transport failure
// (never after an HTTP response, which would mean double-submitting a file
// the server already accepted).
func (c *Client) submitReal(ctx context.Context, settings domain.Settings, upload Upload, requestID, note string) (domain.AnalysisResult, error) {
	endpoint := strings.TrimRight(settings.BackendURL, "/") + "/predict/" + settings.ModelEndpoint

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
	defer cancel()

	var lastErr error
	for _, strategy := range submitStrategies {
		resp, err := c.post(ctx, endpoint, strategy, settings.APIToken, upload, requestID, note)
		if err != nil {
			lastErr = err
			c.logger.Warn("submission strategy failed",
				"strategy", strategy.name, "request_id", requestID, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		result, err := c.decodeResponse(resp, requestID)
		if err != nil {
			return domain.AnalysisResult{}, err
		}
		c.logger.Info("real report received",
			"strategy", strategy.name, "request_id", requestID,
			"format", string(result.Format), "bytes", len(result.Payload))
		return result, nil
	}

	return domain.AnalysisResult{}, &ConnectivityError{Class: probe.Classify(lastErr), Err: lastErr}
}

// post performs one multipart submission attempt. The body is rebuilt per
// attempt since the reader is consumed by the transport.
func (c *Client) post(ctx context.Context, endpoint string, strategy submitStrategy, token string, upload Upload, requestID, note string) (*http.Response, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", upload.Filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := fw.Write(upload.Data); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	fields := map[string]string{
		"format":    "pdf",
		"report_id": requestID,
		"note":      note,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = strategy.headers(token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.cfg.HTTPClient.Do(req)
}

// decodeResponse turns an HTTP response into the tagged result. PDF bodies
// succeed, JSON bodies are soft failures carrying the server's message, and
// error statuses are hard server failures.
func (c *Client) decodeResponse(resp *http.Response, requestID string) (domain.AnalysisResult, error) {
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.AnalysisResult{}, &ServerError{
			Status:  resp.StatusCode,
			Message: readServerMessage(resp.Body, contentType),
		}
	}

	switch {
	case strings.HasPrefix(contentType, "application/pdf"):
		payload, err := io.ReadAll(io.LimitReader(resp.Body, maxReportSize))
		if err != nil {
			return domain.AnalysisResult{}, &ConnectivityError{
				Class: domain.FailureClassNetwork,
				Err:   fmt.Errorf("read report payload: %w", err),
			}
		}
		return domain.AnalysisResult{
			Kind:    domain.ResultKindReport,
			Format:  domain.ReportFormatPDF,
			Payload: payload,
			Metadata: domain.ReportMetadata{
				RequestID:   headerOr(resp.Header, "X-Request-Id", requestID),
				Filename:    resp.Header.Get("X-Filename"),
				Model:       resp.Header.Get("X-Model-Name"),
				GeneratedIn: resp.Header.Get("X-Generation-Time"),
			},
		}, nil

	case strings.HasPrefix(contentType, "application/json"):
		// A JSON body on a 2xx means the backend produced no PDF.
		return domain.AnalysisResult{}, &ServerError{
			Message: readServerMessage(resp.Body, contentType),
		}

	default:
		return domain.AnalysisResult{}, &ServerError{
			Message: fmt.Sprintf("unexpected response content type %q", contentType),
		}
	}
}

// readServerMessage extracts a human-readable message from a JSON or plain
// text error body.
func readServerMessage(body io.Reader, contentType string) string {
	raw, err := io.ReadAll(io.LimitReader(body, 16*1024))
	if err != nil || len(raw) == 0 {
		return "no details provided"
	}

	if strings.HasPrefix(contentType, "application/json") {
		var parsed struct {
			Message string `json:"message"`
			Error   string `json:"error"`
			Detail  string `json:"detail"`
		}
		if json.Unmarshal(raw, &parsed) == nil {
			for _, msg := range []string{parsed.Message, parsed.Error, parsed.Detail} {
				if msg != "" {
					return msg
				}
			}
		}
	}
	return strings.TrimSpace(string(raw))
}

func headerOr(h http.Header, key, fallback string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return fallback
}
