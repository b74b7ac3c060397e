// CLAUDE:SUMMARY Facade over capture+store+retention: capture-and-persist, pass-through store ops, event logging, HTTP error mapping.
// Package service ties the capture orchestrator, the artifact store and the
// retention scheduler into one surface consumed by the HTTP routes and the
// MCP tools.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/snapkeep/capture"
	"github.com/hazyhaar/snapkeep/observability"
	"github.com/hazyhaar/snapkeep/retention"
	"github.com/hazyhaar/snapkeep/store"
)

// Capturer is the slice of capture.Orchestrator the service consumes.
type Capturer interface {
	CaptureElement(ctx context.Context, pageURL, selector string, opts capture.Options) ([]byte, error)
	CaptureFullPage(ctx context.Context, pageURL string, opts capture.Options) ([]byte, error)
	PageInfo(ctx context.Context, pageURL string) (*capture.PageInfo, error)
	CheckURL(ctx context.Context, pageURL string) *capture.URLCheck
}

// Service is the application facade.
type Service struct {
	cap    Capturer
	st     *store.Manager
	sched  *retention.Scheduler
	events *observability.EventLogger
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEventLogger wires the SQLite event log. Retention results are fed to
// it through the scheduler's OnResult hook.
func WithEventLogger(ev *observability.EventLogger) Option {
	return func(s *Service) { s.events = ev }
}

// New creates the facade. The scheduler's OnResult hook is claimed here when
// an event logger is configured.
func New(capt Capturer, st *store.Manager, sched *retention.Scheduler, opts ...Option) *Service {
	s := &Service{
		cap:    capt,
		st:     st,
		sched:  sched,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events != nil && sched != nil {
		sched.OnResult = func(job string, res retention.Result) {
			s.events.LogRetention(context.Background(), observability.RetentionEvent{
				Job:          job,
				DeletedCount: res.DeletedCount,
				DeletedBytes: res.DeletedBytes,
			})
		}
	}
	return s
}

// CaptureRequest is one capture order. An empty Selector means full page.
type CaptureRequest struct {
	URL               string `json:"url"`
	Selector          string `json:"selector,omitempty"`
	Name              string `json:"name,omitempty"`
	WaitForAnimations bool   `json:"wait_for_animations,omitempty"`
}

// CaptureResult is the persisted artifact plus the capture mode used.
type CaptureResult struct {
	*store.Artifact
	Mode string `json:"mode"`
}

// Capture renders the page, persists the raster and records the outcome in
// the event log. The event is written for failures too, with the error kind.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	start := s.now()
	mode := "element"
	if req.Selector == "" {
		mode = "fullpage"
	}
	opts := capture.Options{WaitForAnimations: req.WaitForAnimations}

	var data []byte
	var err error
	if mode == "element" {
		data, err = s.cap.CaptureElement(ctx, req.URL, req.Selector, opts)
	} else {
		data, err = s.cap.CaptureFullPage(ctx, req.URL, opts)
	}
	if err != nil {
		s.logEvent(ctx, req, mode, start, nil, err)
		return nil, err
	}

	art, err := s.st.Save(data, req.Name)
	if err != nil {
		err = fmt.Errorf("service: persist capture: %w", err)
		s.logEvent(ctx, req, mode, start, nil, err)
		return nil, err
	}

	s.logEvent(ctx, req, mode, start, art, nil)
	s.logger.Info("service: capture done",
		"url", req.URL, "mode", mode, "name", art.Name, "bytes", art.Size)
	return &CaptureResult{Artifact: art, Mode: mode}, nil
}

func (s *Service) logEvent(ctx context.Context, req CaptureRequest, mode string, start time.Time, art *store.Artifact, err error) {
	if s.events == nil {
		return
	}
	ev := observability.CaptureEvent{
		URL:      req.URL,
		Selector: req.Selector,
		Mode:     mode,
		Duration: s.now().Sub(start),
	}
	if err != nil {
		ev.ErrorKind = errorKind(err)
	} else {
		ev.Success = true
		ev.ArtifactName = art.Name
		ev.Bytes = art.Size
	}
	s.events.LogCapture(ctx, ev)
}

// --- store pass-throughs ---

// List returns every stored artifact, name-sorted.
func (s *Service) List() ([]*store.Artifact, error) { return s.st.List() }

// Info returns metadata for one artifact.
func (s *Service) Info(name string) (*store.Artifact, error) { return s.st.Info(name) }

// Path resolves an artifact name to its path for file serving.
func (s *Service) Path(name string) (string, error) { return s.st.Path(name) }

// Delete removes one artifact. Deleting a missing artifact is not an error.
func (s *Service) Delete(name string) (bool, error) { return s.st.Delete(name) }

// Validate checks an artifact's name, size and PNG signature.
func (s *Service) Validate(name string) (*store.Validation, error) { return s.st.Validate(name) }

// Stats reports store totals, optionally with the per-artifact list.
func (s *Service) Stats(includeDetails bool) (*store.Stats, error) {
	return s.st.Stats(includeDetails)
}

// --- capture pass-throughs ---

// CheckURL probes a URL over plain HTTP without opening a browser session.
func (s *Service) CheckURL(ctx context.Context, url string) *capture.URLCheck {
	return s.cap.CheckURL(ctx, url)
}

// PageInfo navigates to the URL and reports title and dimensions.
func (s *Service) PageInfo(ctx context.Context, url string) (*capture.PageInfo, error) {
	return s.cap.PageInfo(ctx, url)
}

// --- retention pass-throughs ---

// CleanupNow runs age eviction immediately. maxAge <= 0 uses the configured
// policy.
func (s *Service) CleanupNow(ctx context.Context, maxAge time.Duration) retention.Result {
	return s.sched.RunCleanupNow(ctx, maxAge)
}

// TrimNow runs count eviction immediately. maxFiles <= 0 uses the configured
// policy.
func (s *Service) TrimNow(ctx context.Context, maxFiles int) retention.Result {
	return s.sched.EvictByCount(ctx, maxFiles)
}

// SchedulerStatus reports the retention scheduler snapshot.
func (s *Service) SchedulerStatus() *retention.Status { return s.sched.Status() }

// StartScheduler arms the retention jobs.
func (s *Service) StartScheduler() error { return s.sched.Start() }

// StopScheduler disarms the retention jobs and waits for in-flight runs.
func (s *Service) StopScheduler() { s.sched.Stop() }

// errorKind buckets an error for the event log.
func errorKind(err error) string {
	switch {
	case errors.Is(err, capture.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, capture.ErrTimeout):
		return "timeout"
	case errors.Is(err, capture.ErrElementNotFound):
		return "element_not_found"
	case errors.Is(err, capture.ErrNavigation):
		return "navigation"
	case errors.Is(err, store.ErrInvalidName):
		return "invalid_name"
	default:
		return "internal"
	}
}

// HTTPStatus maps service errors to HTTP status codes for the route layer.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, capture.ErrInvalidInput), errors.Is(err, store.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, capture.ErrElementNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, capture.ErrNavigation):
		return http.StatusBadGateway
	case errors.Is(err, capture.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
