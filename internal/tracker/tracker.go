// Package tracker maintains the lifecycle of in-flight diagnostic requests.
// Multiple requests can be interleaved; each is tracked independently so
// concurrent analyses never cross-contaminate state.
package tracker

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"densiview/internal/domain"
)

// ErrRequestNotFound is returned for operations on unknown request ids.
var ErrRequestNotFound = errors.New("request not found")

// ErrDuplicateRequest is returned when adding an id that is already tracked.
var ErrDuplicateRequest = errors.New("request already tracked")

// Tracker is the single writer for request state transitions.
type Tracker struct {
	mu       sync.RWMutex
	requests map[string]*domain.DiagnosticRequest
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{requests: make(map[string]*domain.DiagnosticRequest)}
}

// Add registers a new request in pending state.
func (t *Tracker) Add(req domain.DiagnosticRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if req.ID == "" {
		return fmt.Errorf("request has no id")
	}
	if _, exists := t.requests[req.ID]; exists {
		return fmt.Errorf("%s: %w", req.ID, ErrDuplicateRequest)
	}

	req.Status = domain.RequestStatusPending
	req.ProgressPercent = 0
	t.requests[req.ID] = &req
	return nil
}

// Transition validates and applies a status change for one request.
func (t *Tracker) Transition(id string, status domain.RequestStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.requests[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrRequestNotFound)
	}
	if req.Status == status {
		return nil
	}
	if !isValidTransition(req.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", req.Status, status)
	}

	req.Status = status
	return nil
}

// SetProgress updates the progress percentage, clamped to [0,100].
func (t *Tracker) SetProgress(id string, percent int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.requests[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrRequestNotFound)
	}

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	req.ProgressPercent = percent
	return nil
}

// Complete marks a request completed. A completed request must carry report
// content, either inline markdown or a cached PDF path.
func (t *Tracker) Complete(id, markdown, pdfPath string, hasRealReport bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.requests[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrRequestNotFound)
	}
	if markdown == "" && pdfPath == "" {
		return fmt.Errorf("completing %s without report content", id)
	}
	if !isValidTransition(req.Status, domain.RequestStatusCompleted) {
		return fmt.Errorf("invalid transition: %s -> completed", req.Status)
	}

	req.Status = domain.RequestStatusCompleted
	req.ProgressPercent = 100
	req.Report = markdown
	req.ReportPDFPath = pdfPath
	req.HasRealReport = hasRealReport
	req.ErrorMessage = ""
	return nil
}

// Fail marks a request failed. A failed request must carry an error message.
func (t *Tracker) Fail(id, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.requests[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrRequestNotFound)
	}
	if message == "" {
		return fmt.Errorf("failing %s without an error message", id)
	}
	if !isValidTransition(req.Status, domain.RequestStatusFailed) {
		return fmt.Errorf("invalid transition: %s -> failed", req.Status)
	}

	req.Status = domain.RequestStatusFailed
	req.ErrorMessage = message
	return nil
}

// Get returns a snapshot of one request.
func (t *Tracker) Get(id string) (domain.DiagnosticRequest, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	req, ok := t.requests[id]
	if !ok {
		return domain.DiagnosticRequest{}, false
	}
	return *req, true
}

// List returns snapshots of all tracked requests, newest first.
func (t *Tracker) List() []domain.DiagnosticRequest {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.DiagnosticRequest, 0, len(t.requests))
	for _, req := range t.requests {
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Remove forgets one request.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.requests, id)
}

// ActiveCount reports how many requests are in a non-terminal status.
func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, req := range t.requests {
		if isActive(req.Status) {
			count++
		}
	}
	return count
}

// isActive checks if a status represents in-flight processing.
func isActive(status domain.RequestStatus) bool {
	switch status {
	case domain.RequestStatusCompleted, domain.RequestStatusFailed:
		return false
	default:
		return true
	}
}

// isValidTransition enforces the request state machine: the processing
// stages advance strictly in order, any active stage may fail, terminal
// states never change.
func isValidTransition(from, to domain.RequestStatus) bool {
	if to == domain.RequestStatusFailed {
		return isActive(from)
	}

	switch from {
	case domain.RequestStatusPending:
		return to == domain.RequestStatusUploading
	case domain.RequestStatusUploading:
		return to == domain.RequestStatusProcessing
	case domain.RequestStatusProcessing:
		return to == domain.RequestStatusAnalyzing
	case domain.RequestStatusAnalyzing:
		return to == domain.RequestStatusGeneratingReport
	case domain.RequestStatusGeneratingReport:
		return to == domain.RequestStatusCompleted
	default:
		return false
	}
}
