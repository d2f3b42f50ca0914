// Package bootstrap wires configuration, storage, the hybrid analysis
// client, and the request tracker into the desktop application and binds
// backend operations to the embedded frontend.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"densiview/internal/analyze"
	"densiview/internal/config"
	"densiview/internal/domain"
	"densiview/internal/mockreport"
	"densiview/internal/probe"
	"densiview/internal/report"
	"densiview/internal/store"
	"densiview/internal/tracker"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var imageDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Medical images",
		Pattern:     "*.jpg;*.jpeg;*.png;*.gif;*.bmp;*.tif;*.tiff;*.dcm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// analysisClient isolates the hybrid client behind an interface.
type analysisClient interface {
	Initialize(ctx context.Context, settings domain.Settings) bool
	Refresh(ctx context.Context, settings domain.Settings) bool
	Connectivity() domain.ConnectivityResult
	Analyze(ctx context.Context, settings domain.Settings, upload analyze.Upload, requestID, note string) (domain.AnalysisResult, error)
}

// App wires settings, storage, analysis, and UI runtime callbacks.
type App struct {
	Settings domain.Settings
	Store    config.Store
	Requests *store.Store
	Tracker  *tracker.Tracker
	Client   analysisClient

	assets fs.FS
	logger *slog.Logger

	mu         sync.Mutex
	cancels    map[string]context.CancelFunc
	events     *tracker.EventBus
	runtimeCtx context.Context
}

// New builds the application with persisted settings and storage.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	config.LoadDotEnv()

	dataDir := config.DataDir()
	settingsStore := config.NewJSONStore(filepath.Join(dataDir, "settings.json"))
	settings, err := settingsStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	requests, err := store.Open(filepath.Join(dataDir, "densiview.db"))
	if err != nil {
		return nil, fmt.Errorf("open request store: %w", err)
	}

	app := &App{
		Settings: settings,
		Store:    settingsStore,
		Requests: requests,
		Tracker:  tracker.New(),
		assets:   assets,
		logger:   slog.Default(),
		cancels:  make(map[string]context.CancelFunc),
		events:   tracker.NewEventBus(1000),
	}

	prober := probe.New(probe.Config{Logger: app.logger})
	app.Client = analyze.New(analyze.Config{
		Prober:      prober,
		Generator:   mockreport.New(settings.MockSeed),
		HTTPClient:  &http.Client{},
		OnSSLNotice: app.publishSSLNotice,
		Logger:      app.logger,
	})

	return app, nil
}

// Run starts the desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "DensiView",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			a.runtimeCtx = nil
			a.mu.Unlock()
			_ = a.Requests.Close()
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the runtime context for push events and dialogs.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	a.mu.Unlock()

	return normalized, nil
}

// GetConnectivity returns the current backend decision, probing on first use.
func (a *App) GetConnectivity() domain.ConnectivityResult {
	settings := a.currentSettings()
	a.Client.Initialize(context.Background(), settings)
	return a.Client.Connectivity()
}

// RefreshConnectivity discards the session decision and probes again.
func (a *App) RefreshConnectivity() domain.ConnectivityResult {
	settings := a.currentSettings()
	a.Client.Refresh(context.Background(), settings)
	return a.Client.Connectivity()
}

// PickInputFile opens a native file dialog for image selection.
func (a *App) PickInputFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select image",
		Filters: imageDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// SubmitAnalysis validates the selected file, registers a new diagnostic
// request, and runs the analysis asynchronously. Validation failures reject
// the submission before any network activity.
func (a *App) SubmitAnalysis(inputPath, note string) (domain.DiagnosticRequest, error) {
	inputPath = strings.TrimSpace(inputPath)
	if inputPath == "" {
		return domain.DiagnosticRequest{}, analyze.ErrNoFile
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return domain.DiagnosticRequest{}, fmt.Errorf("read input file: %w", err)
	}

	upload := analyze.Upload{Filename: filepath.Base(inputPath), Data: data}
	mimeType, err := analyze.ValidateUpload(upload)
	if err != nil {
		return domain.DiagnosticRequest{}, err
	}

	settings, err := a.GetSettings()
	if err != nil {
		return domain.DiagnosticRequest{}, err
	}

	req := domain.DiagnosticRequest{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Status:        domain.RequestStatusPending,
		Filename:      upload.Filename,
		FileSizeBytes: int64(len(data)),
		MimeType:      mimeType,
		Note:          strings.TrimSpace(note),
	}
	if err := a.Tracker.Add(req); err != nil {
		return domain.DiagnosticRequest{}, err
	}
	a.persist(req.ID)
	a.publishStatus(req.ID, domain.RequestStatusPending, "Request created")

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancels[req.ID] = cancel
	a.mu.Unlock()

	go a.runAnalysis(ctx, req.ID, settings, upload)

	created, _ := a.Tracker.Get(req.ID)
	return created, nil
}

// CancelAnalysis aborts one in-flight request.
func (a *App) CancelAnalysis(id string) error {
	a.mu.Lock()
	cancel, ok := a.cancels[id]
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", id, tracker.ErrRequestNotFound)
	}
	cancel()
	return nil
}

// RequestList returns all requests for the dashboard, newest first. The
// tracker's live state wins over persisted snapshots.
func (a *App) RequestList() ([]domain.DiagnosticRequest, error) {
	persisted, err := a.Requests.LoadRequests()
	if err != nil {
		return nil, fmt.Errorf("load requests: %w", err)
	}

	for i, req := range persisted {
		if live, ok := a.Tracker.Get(req.ID); ok {
			persisted[i] = live
		}
	}
	return persisted, nil
}

// DeleteRequest removes one request and its cached report.
func (a *App) DeleteRequest(id string) error {
	if _, ok := a.Tracker.Get(id); ok {
		if cancel := a.takeCancel(id); cancel != nil {
			cancel()
		}
		a.Tracker.Remove(id)
	}

	req, err := a.Requests.LoadRequest(id)
	if err == nil && req.ReportPDFPath != "" {
		_ = os.Remove(req.ReportPDFPath)
	}
	return a.Requests.DeleteRequest(id)
}

// CleanupOldRequests applies the age-based retention policy and returns how
// many requests were removed.
func (a *App) CleanupOldRequests() (int, error) {
	settings := a.currentSettings()
	days := settings.RetentionDays
	if days <= 0 {
		days = config.DefaultRetentionDays
	}
	return a.Requests.DeleteOlderThan(time.Duration(days) * 24 * time.Hour)
}

// StorageStats reports request store occupancy.
func (a *App) StorageStats() (store.Stats, error) {
	return a.Requests.Stats()
}

// RequestEvents returns all events with sequence greater than sinceSeq.
func (a *App) RequestEvents(sinceSeq int64) []tracker.Event {
	return a.events.Since(sinceSeq)
}

// ReportHTML renders a request's markdown report for the report viewer.
func (a *App) ReportHTML(id string) (string, error) {
	req, ok := a.Tracker.Get(id)
	if !ok {
		var err error
		req, err = a.Requests.LoadRequest(id)
		if err != nil {
			return "", err
		}
	}

	if req.Report == "" {
		if req.ReportPDFPath != "" {
			return "", fmt.Errorf("report %s is a PDF document", id)
		}
		return "", fmt.Errorf("request %s has no report", id)
	}
	return report.RenderHTML(req.Report)
}

// OpenReportFile opens a cached PDF report in the platform's file manager.
func (a *App) OpenReportFile(id string) error {
	req, err := a.Requests.LoadRequest(id)
	if err != nil {
		return err
	}
	if req.ReportPDFPath == "" {
		return fmt.Errorf("request %s has no cached report file", id)
	}
	if _, err := os.Stat(req.ReportPDFPath); err != nil {
		return fmt.Errorf("resolve report file: %w", err)
	}
	return openInFileManager(filepath.Dir(req.ReportPDFPath))
}

// runAnalysis drives one request through the processing stages and maps the
// analysis outcome to tracker state and UI events.
func (a *App) runAnalysis(ctx context.Context, id string, settings domain.Settings, upload analyze.Upload) {
	defer a.clearCancel(id)

	a.stage(id, domain.RequestStatusUploading, 10, "Preparing upload")
	a.stage(id, domain.RequestStatusProcessing, 35, "Submitting image")
	a.stage(id, domain.RequestStatusAnalyzing, 60, "Analyzing image")

	result, err := a.Client.Analyze(ctx, settings, upload, id, a.requestNote(id))
	if errors.Is(ctx.Err(), context.Canceled) {
		a.fail(id, "analysis cancelled")
		return
	}
	if err != nil {
		a.fail(id, err.Error())
		return
	}

	a.stage(id, domain.RequestStatusGeneratingReport, 85, "Preparing report")

	switch {
	case result.Kind == domain.ResultKindReport && result.Format == domain.ReportFormatPDF:
		pdfPath, err := report.CachePDF(settings.ReportsDir, id, result.Payload)
		if err != nil {
			a.fail(id, fmt.Sprintf("report payload failed validation: %v", err))
			return
		}
		a.complete(id, "", pdfPath, true, "")

	case result.Kind == domain.ResultKindReport:
		a.complete(id, string(result.Payload), "", true, "")

	default:
		a.complete(id, result.Markdown, "", false, result.Reason)
	}
}

// stage applies one pipeline transition and publishes status and progress.
func (a *App) stage(id string, status domain.RequestStatus, progress int, message string) {
	if err := a.Tracker.Transition(id, status); err != nil {
		a.logger.Warn("stage transition rejected", "request_id", id, "status", string(status), "error", err)
		return
	}
	_ = a.Tracker.SetProgress(id, progress)
	a.persist(id)
	a.publishStatus(id, status, message)
	a.publishEvent(tracker.Event{
		RequestID: id,
		Type:      tracker.EventTypeProgress,
		Progress:  progress,
	})
}

// complete finalizes a successful request and announces the result.
func (a *App) complete(id, markdown, pdfPath string, hasReal bool, mockReason string) {
	if err := a.Tracker.Complete(id, markdown, pdfPath, hasReal); err != nil {
		a.logger.Error("complete rejected", "request_id", id, "error", err)
		a.fail(id, "internal error finalizing report")
		return
	}
	a.persist(id)

	message := "Report ready"
	if mockReason != "" {
		message = "Demonstration report ready"
	}
	a.publishStatus(id, domain.RequestStatusCompleted, message)
	a.publishEvent(tracker.Event{
		RequestID: id,
		Type:      tracker.EventTypeResult,
		Status:    domain.RequestStatusCompleted,
		Message:   message,
		Reason:    mockReason,
		Mock:      mockReason != "",
	})
}

// fail finalizes a failed request.
func (a *App) fail(id, message string) {
	if err := a.Tracker.Fail(id, message); err != nil {
		a.logger.Error("fail rejected", "request_id", id, "error", err)
		return
	}
	a.persist(id)
	a.publishStatus(id, domain.RequestStatusFailed, message)
	a.publishEvent(tracker.Event{
		RequestID: id,
		Type:      tracker.EventTypeError,
		Status:    domain.RequestStatusFailed,
		Message:   message,
	})
}

// persist snapshots the tracker's view of one request into the store.
func (a *App) persist(id string) {
	req, ok := a.Tracker.Get(id)
	if !ok {
		return
	}
	if err := a.Requests.SaveRequest(req); err != nil {
		a.logger.Error("persist request", "request_id", id, "error", err)
	}
}

// publishSSLNotice surfaces the one-time certificate notice to the UI.
func (a *App) publishSSLNotice(detail string) {
	settings := a.currentSettings()
	a.publishEvent(tracker.Event{
		Type: tracker.EventTypeNotice,
		Message: fmt.Sprintf(
			"The backend's TLS certificate is not trusted. Open %s in your browser, accept the certificate, then refresh connectivity. (%s)",
			settings.BackendURL, detail),
	})
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(id string, status domain.RequestStatus, message string) {
	a.publishEvent(tracker.Event{
		RequestID: id,
		Type:      tracker.EventTypeStatus,
		Status:    status,
		Message:   message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event tracker.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "request:event", published)
	}
}

// requestNote returns the stored note for one request.
func (a *App) requestNote(id string) string {
	req, ok := a.Tracker.Get(id)
	if !ok {
		return ""
	}
	return req.Note
}

func (a *App) currentSettings() domain.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Settings
}

func (a *App) takeCancel(id string) context.CancelFunc {
	a.mu.Lock()
	defer a.mu.Unlock()
	cancel := a.cancels[id]
	delete(a.cancels, id)
	return cancel
}

func (a *App) clearCancel(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.cancels, id)
}

// runtimeContext returns the runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies defaults for empty fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.BackendURL = strings.TrimRight(strings.TrimSpace(settings.BackendURL), "/")
	settings.APIToken = strings.TrimSpace(settings.APIToken)
	settings.ModelEndpoint = strings.TrimSpace(settings.ModelEndpoint)
	settings.ReportsDir = strings.TrimSpace(settings.ReportsDir)

	if settings.BackendURL == "" {
		settings.BackendURL = config.DefaultBackendURL
	}
	if settings.ModelEndpoint == "" {
		settings.ModelEndpoint = config.DefaultModelEndpoint
	}
	if settings.ReportsDir == "" {
		settings.ReportsDir = filepath.Join(config.DataDir(), "reports")
	}
	if settings.RetentionDays <= 0 {
		settings.RetentionDays = config.DefaultRetentionDays
	}
	return settings
}

// openInFileManager launches the platform file explorer for the given path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
