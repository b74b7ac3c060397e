package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/snapkeep/capture"
	"github.com/hazyhaar/snapkeep/dbopen"
	"github.com/hazyhaar/snapkeep/observability"
	"github.com/hazyhaar/snapkeep/retention"
	"github.com/hazyhaar/snapkeep/store"
)

// fakeCapturer returns canned rasters without a browser.
type fakeCapturer struct {
	data        []byte
	err         error
	elementSeen string
	fullpage    bool
}

func (f *fakeCapturer) CaptureElement(_ context.Context, _ string, selector string, _ capture.Options) ([]byte, error) {
	f.elementSeen = selector
	return f.data, f.err
}

func (f *fakeCapturer) CaptureFullPage(_ context.Context, _ string, _ capture.Options) ([]byte, error) {
	f.fullpage = true
	return f.data, f.err
}

func (f *fakeCapturer) PageInfo(_ context.Context, url string) (*capture.PageInfo, error) {
	return &capture.PageInfo{URL: url, Title: "t"}, f.err
}

func (f *fakeCapturer) CheckURL(_ context.Context, url string) *capture.URLCheck {
	return &capture.URLCheck{Accessible: true, Status: 200, FinalURL: url}
}

func pngBytes(extra int) []byte {
	return append(store.PNGMagic(), make([]byte, extra)...)
}

type fixture struct {
	svc    *Service
	cap    *fakeCapturer
	st     *store.Manager
	events *observability.EventLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := store.NewManager(store.Config{Dir: t.TempDir(), Logger: logger})
	sched := retention.New(st, retention.Config{Logger: logger})

	ev := observability.NewEventLogger(dbopen.OpenMemory(t))
	if err := ev.Init(); err != nil {
		t.Fatal(err)
	}

	fc := &fakeCapturer{data: pngBytes(100)}
	svc := New(fc, st, sched, WithLogger(logger), WithEventLogger(ev))
	return &fixture{svc: svc, cap: fc, st: st, events: ev}
}

func captureEventCount(t *testing.T, f *fixture, where string) int {
	t.Helper()
	var n int
	q := `SELECT COUNT(*) FROM capture_events`
	if where != "" {
		q += " WHERE " + where
	}
	if err := f.events.DB().QueryRow(q).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCapture_ElementPersistsAndLogs(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Capture(context.Background(), CaptureRequest{
		URL:      "https://example.com",
		Selector: "#main",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != "element" {
		t.Errorf("mode: %q", res.Mode)
	}
	if f.cap.elementSeen != "#main" {
		t.Errorf("selector passed: %q", f.cap.elementSeen)
	}
	if res.Size != 108 {
		t.Errorf("size: %d", res.Size)
	}

	// Persisted on disk under the generated name.
	if _, err := f.st.Info(res.Name); err != nil {
		t.Fatalf("artifact not stored: %v", err)
	}

	if n := captureEventCount(t, f, "success = 1 AND mode = 'element'"); n != 1 {
		t.Errorf("success events: %d", n)
	}
}

func TestCapture_EmptySelectorMeansFullPage(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Capture(context.Background(), CaptureRequest{URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != "fullpage" || !f.cap.fullpage {
		t.Fatalf("mode=%q fullpage=%v", res.Mode, f.cap.fullpage)
	}
}

func TestCapture_ExplicitNameKept(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Capture(context.Background(), CaptureRequest{
		URL:      "https://example.com",
		Selector: "#x",
		Name:     "my-shot.png",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "my-shot.png" {
		t.Fatalf("name: %q", res.Name)
	}
}

func TestCapture_FailureLogsErrorKind(t *testing.T) {
	f := newFixture(t)
	f.cap.err = capture.ErrTimeout

	_, err := f.svc.Capture(context.Background(), CaptureRequest{
		URL:      "https://example.com/slow",
		Selector: "#x",
	})
	if !errors.Is(err, capture.ErrTimeout) {
		t.Fatalf("error: %v", err)
	}

	// Nothing persisted.
	list, _ := f.st.List()
	if len(list) != 0 {
		t.Fatalf("artifacts stored on failure: %d", len(list))
	}

	if n := captureEventCount(t, f, "success = 0 AND error_kind = 'timeout'"); n != 1 {
		t.Errorf("failure events: %d", n)
	}
}

func TestCapture_PersistFailureLogged(t *testing.T) {
	f := newFixture(t)

	// Traversal name is rejected by the store after a successful render.
	_, err := f.svc.Capture(context.Background(), CaptureRequest{
		URL:      "https://example.com",
		Selector: "#x",
		Name:     "../escape.png",
	})
	if !errors.Is(err, store.ErrInvalidName) {
		t.Fatalf("error: %v", err)
	}
	if n := captureEventCount(t, f, "error_kind = 'invalid_name'"); n != 1 {
		t.Errorf("invalid_name events: %d", n)
	}
}

func TestCleanupNow_FeedsEventLog(t *testing.T) {
	f := newFixture(t)

	// Seed one artifact old enough to evict.
	name := "screenshot-old-1" + store.Ext
	if _, err := f.st.Save(pngBytes(10), name); err != nil {
		t.Fatal(err)
	}
	ts := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filepath.Join(f.st.Dir(), name), ts, ts); err != nil {
		t.Fatal(err)
	}

	res := f.svc.CleanupNow(context.Background(), time.Hour)
	if res.DeletedCount != 1 {
		t.Fatalf("deleted: %d", res.DeletedCount)
	}

	var n int
	if err := f.events.DB().QueryRow(
		`SELECT COUNT(*) FROM retention_events WHERE job = 'cleanup' AND deleted_count = 1`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("retention events: %d", n)
	}
}

func TestHTTPStatus_Mapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{capture.ErrInvalidInput, http.StatusBadRequest},
		{store.ErrInvalidName, http.StatusBadRequest},
		{store.ErrNotFound, http.StatusNotFound},
		{capture.ErrElementNotFound, http.StatusUnprocessableEntity},
		{capture.ErrNavigation, http.StatusBadGateway},
		{capture.ErrTimeout, http.StatusGatewayTimeout},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v): got %d, want %d", tc.err, got, tc.want)
		}
	}
}
