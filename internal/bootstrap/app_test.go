package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"densiview/internal/analyze"
	"densiview/internal/domain"
	"densiview/internal/store"
	"densiview/internal/tracker"
)

// fakeSettingsStore returns deterministic settings for App tests.
type fakeSettingsStore struct {
	settings domain.Settings
	saved    *domain.Settings
}

// Load returns preconfigured settings.
func (s *fakeSettingsStore) Load() (domain.Settings, error) {
	return s.settings, nil
}

// Save records the last saved settings.
func (s *fakeSettingsStore) Save(settings domain.Settings) error {
	s.saved = &settings
	return nil
}

// fakeAnalysisClient allows injecting custom analysis behavior per test.
type fakeAnalysisClient struct {
	analyze func(ctx context.Context, settings domain.Settings, upload analyze.Upload, requestID, note string) (domain.AnalysisResult, error)
	calls   int
}

func (c *fakeAnalysisClient) Initialize(context.Context, domain.Settings) bool { return true }
func (c *fakeAnalysisClient) Refresh(context.Context, domain.Settings) bool    { return true }
func (c *fakeAnalysisClient) Connectivity() domain.ConnectivityResult {
	return domain.ConnectivityResult{Reachable: true, Classification: domain.FailureClassOK}
}

// Analyze delegates to the injected function.
func (c *fakeAnalysisClient) Analyze(ctx context.Context, settings domain.Settings, upload analyze.Upload, requestID, note string) (domain.AnalysisResult, error) {
	c.calls++
	if c.analyze == nil {
		return domain.AnalysisResult{}, nil
	}
	return c.analyze(ctx, settings, upload, requestID, note)
}

// newTestApp assembles an App with fakes and a temp-dir request store.
func newTestApp(t *testing.T, client analysisClient) *App {
	t.Helper()

	root := t.TempDir()
	requests, err := store.Open(filepath.Join(root, "densiview.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = requests.Close() })

	return &App{
		Store: &fakeSettingsStore{
			settings: domain.Settings{
				BackendURL:    "https://backend.test",
				ModelEndpoint: "breast_density",
				ReportsDir:    filepath.Join(root, "reports"),
				RetentionDays: 30,
			},
		},
		Requests: requests,
		Tracker:  tracker.New(),
		Client:   client,
		logger:   slog.Default(),
		cancels:  make(map[string]context.CancelFunc),
		events:   tracker.NewEventBus(100),
	}
}

// writeTestImage writes a minimal JPEG file and returns its path.
func writeTestImage(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "scan.jpg")
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("image data")...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

// TestSubmitAnalysisCompletesWithRealReport checks the happy path end to end.
func TestSubmitAnalysisCompletesWithRealReport(t *testing.T) {
	client := &fakeAnalysisClient{
		analyze: func(ctx context.Context, settings domain.Settings, upload analyze.Upload, requestID, note string) (domain.AnalysisResult, error) {
			return domain.AnalysisResult{
				Kind:    domain.ResultKindReport,
				Format:  domain.ReportFormatMarkdown,
				Payload: []byte("# Breast Density Analysis Report\n\nCategory B."),
			}, nil
		},
	}
	app := newTestApp(t, client)

	req, err := app.SubmitAnalysis(writeTestImage(t, t.TempDir()), "left CC view")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != domain.RequestStatusPending {
		t.Fatalf("initial status = %s, want %s", req.Status, domain.RequestStatusPending)
	}

	waitForStatus(t, app, req.ID, domain.RequestStatusCompleted)

	final, ok := app.Tracker.Get(req.ID)
	if !ok {
		t.Fatal("request missing from tracker")
	}
	if !final.HasRealReport {
		t.Fatal("expected real report flag")
	}
	if !strings.Contains(final.Report, "Breast Density Analysis Report") {
		t.Fatalf("report content = %q", final.Report)
	}
	if final.ProgressPercent != 100 {
		t.Fatalf("progress = %d, want 100", final.ProgressPercent)
	}

	persisted, err := app.Requests.LoadRequest(req.ID)
	if err != nil {
		t.Fatalf("load persisted request: %v", err)
	}
	if persisted.Status != domain.RequestStatusCompleted {
		t.Fatalf("persisted status = %s", persisted.Status)
	}

	events := app.RequestEvents(0)
	assertEventTypeExists(t, events, tracker.EventTypeStatus)
	assertEventTypeExists(t, events, tracker.EventTypeProgress)
	assertEventTypeExists(t, events, tracker.EventTypeResult)
}

// TestSubmitAnalysisMockFallbackPublishesMockResult checks degraded-mode flow.
func TestSubmitAnalysisMockFallbackPublishesMockResult(t *testing.T) {
	client := &fakeAnalysisClient{
		analyze: func(ctx context.Context, settings domain.Settings, upload analyze.Upload, requestID, note string) (domain.AnalysisResult, error) {
			return domain.AnalysisResult{
				Kind:     domain.ResultKindMock,
				Format:   domain.ReportFormatMarkdown,
				Markdown: "# Breast Density Analysis Report\n\nDemo result.",
				Reason:   "networkError: backend unreachable",
			}, nil
		},
	}
	app := newTestApp(t, client)

	req, err := app.SubmitAnalysis(writeTestImage(t, t.TempDir()), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForStatus(t, app, req.ID, domain.RequestStatusCompleted)

	final, _ := app.Tracker.Get(req.ID)
	if final.HasRealReport {
		t.Fatal("mock result must not be flagged as real")
	}
	if final.Report == "" {
		t.Fatal("expected mock report content")
	}

	var mockEvent *tracker.Event
	for _, event := range app.RequestEvents(0) {
		if event.Type == tracker.EventTypeResult {
			mockEvent = &event
			break
		}
	}
	if mockEvent == nil {
		t.Fatal("result event not published")
	}
	if !mockEvent.Mock {
		t.Fatal("result event not marked as mock")
	}
	if !strings.Contains(mockEvent.Reason, "network") {
		t.Fatalf("reason = %q, want network classification", mockEvent.Reason)
	}
}

// TestSubmitAnalysisRejectsUnsupportedFile checks validation happens before analysis.
func TestSubmitAnalysisRejectsUnsupportedFile(t *testing.T) {
	client := &fakeAnalysisClient{}
	app := newTestApp(t, client)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("just text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := app.SubmitAnalysis(path, ""); !errors.Is(err, analyze.ErrUnsupportedType) {
		t.Fatalf("submit error = %v, want %v", err, analyze.ErrUnsupportedType)
	}
	if client.calls != 0 {
		t.Fatalf("client called %d times for rejected input", client.calls)
	}
	requests, err := app.RequestList()
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(requests) != 0 {
		t.Fatalf("rejected submission created %d requests", len(requests))
	}
}

// TestSubmitAnalysisFailurePublishesErrorEvent checks the failure path.
func TestSubmitAnalysisFailurePublishesErrorEvent(t *testing.T) {
	client := &fakeAnalysisClient{
		analyze: func(ctx context.Context, settings domain.Settings, upload analyze.Upload, requestID, note string) (domain.AnalysisResult, error) {
			return domain.AnalysisResult{}, errors.New("analysis engine crashed")
		},
	}
	app := newTestApp(t, client)

	req, err := app.SubmitAnalysis(writeTestImage(t, t.TempDir()), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForStatus(t, app, req.ID, domain.RequestStatusFailed)

	final, _ := app.Tracker.Get(req.ID)
	if final.ErrorMessage == "" {
		t.Fatal("failed request has no error message")
	}
	assertEventTypeExists(t, app.RequestEvents(0), tracker.EventTypeError)
}

// TestCancelAnalysisFailsRequest checks cancellation maps to failed state.
func TestCancelAnalysisFailsRequest(t *testing.T) {
	started := make(chan struct{})
	client := &fakeAnalysisClient{
		analyze: func(ctx context.Context, settings domain.Settings, upload analyze.Upload, requestID, note string) (domain.AnalysisResult, error) {
			close(started)
			<-ctx.Done()
			return domain.AnalysisResult{}, ctx.Err()
		},
	}
	app := newTestApp(t, client)

	req, err := app.SubmitAnalysis(writeTestImage(t, t.TempDir()), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started

	if err := app.CancelAnalysis(req.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitForStatus(t, app, req.ID, domain.RequestStatusFailed)

	final, _ := app.Tracker.Get(req.ID)
	if !strings.Contains(final.ErrorMessage, "cancelled") {
		t.Fatalf("error message = %q", final.ErrorMessage)
	}
}

// TestDeleteRequestRemovesPersistedState checks delete clears both layers.
func TestDeleteRequestRemovesPersistedState(t *testing.T) {
	client := &fakeAnalysisClient{
		analyze: func(ctx context.Context, settings domain.Settings, upload analyze.Upload, requestID, note string) (domain.AnalysisResult, error) {
			return domain.AnalysisResult{
				Kind:    domain.ResultKindReport,
				Format:  domain.ReportFormatMarkdown,
				Payload: []byte("# Report"),
			}, nil
		},
	}
	app := newTestApp(t, client)

	req, err := app.SubmitAnalysis(writeTestImage(t, t.TempDir()), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForStatus(t, app, req.ID, domain.RequestStatusCompleted)

	if err := app.DeleteRequest(req.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := app.Tracker.Get(req.ID); ok {
		t.Fatal("request still tracked after delete")
	}
	if _, err := app.Requests.LoadRequest(req.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("load after delete = %v, want %v", err, store.ErrNotFound)
	}
}

// TestCleanupOldRequestsAppliesRetention checks age-based retention.
func TestCleanupOldRequestsAppliesRetention(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	requests, err := store.OpenForTests(filepath.Join(root, "densiview.db"), func() time.Time { return now })
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = requests.Close() })

	app := &App{
		Store: &fakeSettingsStore{
			settings: domain.Settings{RetentionDays: 7},
		},
		Requests: requests,
		Tracker:  tracker.New(),
		Client:   &fakeAnalysisClient{},
		logger:   slog.Default(),
		cancels:  make(map[string]context.CancelFunc),
		events:   tracker.NewEventBus(100),
	}

	old := domain.DiagnosticRequest{
		ID:        "old-request",
		Timestamp: now.Add(-10 * 24 * time.Hour),
		Status:    domain.RequestStatusCompleted,
		Filename:  "old.jpg",
		Report:    "# Report",
	}
	fresh := domain.DiagnosticRequest{
		ID:        "fresh-request",
		Timestamp: now.Add(-time.Hour),
		Status:    domain.RequestStatusCompleted,
		Filename:  "fresh.jpg",
		Report:    "# Report",
	}
	if err := requests.SaveRequest(old); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := requests.SaveRequest(fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	removed, err := app.CleanupOldRequests()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	remaining, err := app.RequestList()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "fresh-request" {
		t.Fatalf("remaining = %+v", remaining)
	}
}

// TestSaveSettingsNormalizesInput checks trimming and defaulting.
func TestSaveSettingsNormalizesInput(t *testing.T) {
	app := newTestApp(t, &fakeAnalysisClient{})

	saved, err := app.SaveSettings(domain.Settings{
		BackendURL: "  https://backend.test/  ",
		APIToken:   " token ",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.BackendURL != "https://backend.test" {
		t.Fatalf("backend url = %q", saved.BackendURL)
	}
	if saved.APIToken != "token" {
		t.Fatalf("api token = %q", saved.APIToken)
	}
	if saved.ModelEndpoint == "" || saved.RetentionDays <= 0 {
		t.Fatalf("defaults not applied: %+v", saved)
	}
}

// TestSelectModelUpdatesEndpoint checks catalog selection persists.
func TestSelectModelUpdatesEndpoint(t *testing.T) {
	app := newTestApp(t, &fakeAnalysisClient{})

	settings, err := app.SelectModel("birads_classifier")
	if err != nil {
		t.Fatalf("select model: %v", err)
	}
	if settings.ModelEndpoint != "birads_classifier" {
		t.Fatalf("endpoint = %q", settings.ModelEndpoint)
	}

	if _, err := app.SelectModel("no-such-model"); err == nil {
		t.Fatal("expected error for unknown model id")
	}
}

// TestReportHTMLRendersMarkdown checks the viewer path.
func TestReportHTMLRendersMarkdown(t *testing.T) {
	client := &fakeAnalysisClient{
		analyze: func(ctx context.Context, settings domain.Settings, upload analyze.Upload, requestID, note string) (domain.AnalysisResult, error) {
			return domain.AnalysisResult{
				Kind:    domain.ResultKindReport,
				Format:  domain.ReportFormatMarkdown,
				Payload: []byte("# Density Assessment\n\n| Benign | 0.9321 |\n|---|---|\n"),
			}, nil
		},
	}
	app := newTestApp(t, client)

	req, err := app.SubmitAnalysis(writeTestImage(t, t.TempDir()), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForStatus(t, app, req.ID, domain.RequestStatusCompleted)

	html, err := app.ReportHTML(req.ID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "<h1") {
		t.Fatalf("html = %q", html)
	}
}

// waitForStatus polls until a request reaches the wanted status or times out.
func waitForStatus(t *testing.T, app *App, id string, want domain.RequestStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if req, ok := app.Tracker.Get(id); ok && req.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	req, _ := app.Tracker.Get(id)
	t.Fatalf("status = %s, want %s", req.Status, want)
}

// assertEventTypeExists verifies at least one event of the given type exists.
func assertEventTypeExists(t *testing.T, events []tracker.Event, want tracker.EventType) {
	t.Helper()
	for _, event := range events {
		if event.Type == want {
			return
		}
	}
	t.Fatalf("event type %s not found", want)
}
