package retention

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/snapkeep/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedStore creates a manager with artifacts whose mtimes are offset from
// now by the given ages, oldest first.
func seedStore(t *testing.T, ages ...time.Duration) (*store.Manager, []string) {
	t.Helper()
	m := store.NewManager(store.Config{Dir: t.TempDir(), Logger: discardLogger()})

	names := make([]string, 0, len(ages))
	for i, age := range ages {
		name := fmt.Sprintf("screenshot-seed%02d-1%s", i, store.Ext)
		if _, err := m.Save(append(store.PNGMagic(), make([]byte, 92)...), name); err != nil {
			t.Fatal(err)
		}
		ts := time.Now().Add(-age)
		if err := os.Chtimes(filepath.Join(m.Dir(), name), ts, ts); err != nil {
			t.Fatal(err)
		}
		names = append(names, name)
	}
	return m, names
}

func testScheduler(st ArtifactStore, cfg Config) *Scheduler {
	cfg.Logger = discardLogger()
	return New(st, cfg)
}

func TestEvictByAge_Scenario(t *testing.T) {
	// WHAT: artifacts aged 3h/2h/1h with maxAge=90min → 2 deleted, the
	// most recent survives.
	m, names := seedStore(t, 3*time.Hour, 2*time.Hour, 1*time.Hour)
	s := testScheduler(m, Config{})

	res := s.EvictByAge(context.Background(), 90*time.Minute)
	if res.DeletedCount != 2 {
		t.Fatalf("deleted: %d, want 2", res.DeletedCount)
	}
	if res.DeletedBytes != 200 {
		t.Errorf("bytes: %d, want 200", res.DeletedBytes)
	}

	list, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != names[2] {
		t.Fatalf("survivors: %+v, want only %s", list, names[2])
	}
}

func TestEvictByAge_ExactCutoffSet(t *testing.T) {
	// Only artifacts strictly older than the cutoff go; ones at or inside
	// the boundary stay.
	m, _ := seedStore(t, 10*time.Minute, 5*time.Minute, time.Minute)
	s := testScheduler(m, Config{})

	res := s.EvictByAge(context.Background(), 7*time.Minute)
	if res.DeletedCount != 1 {
		t.Fatalf("deleted: %d, want 1", res.DeletedCount)
	}
}

func TestEvictByAge_DefaultPolicy(t *testing.T) {
	m, _ := seedStore(t, 48*time.Hour, time.Hour)
	s := testScheduler(m, Config{MaxAge: 24 * time.Hour})

	// maxAge <= 0 falls back to the configured policy, same as the
	// scheduled job.
	res := s.RunCleanupNow(context.Background(), 0)
	if res.DeletedCount != 1 {
		t.Fatalf("deleted: %d, want 1", res.DeletedCount)
	}
}

func TestEvictByCount_Scenario(t *testing.T) {
	// WHAT: 5 artifacts, maxFiles=2 → the 3 oldest go, the 2 newest stay.
	m, names := seedStore(t, 5*time.Hour, 4*time.Hour, 3*time.Hour, 2*time.Hour, time.Hour)
	s := testScheduler(m, Config{})

	res := s.EvictByCount(context.Background(), 2)
	if res.DeletedCount != 3 {
		t.Fatalf("deleted: %d, want 3", res.DeletedCount)
	}

	list, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("remaining: %d, want 2", len(list))
	}
	if list[0].Name != names[3] || list[1].Name != names[4] {
		t.Errorf("survivors: %s, %s; want %s, %s", list[0].Name, list[1].Name, names[3], names[4])
	}
}

func TestEvictByCount_UnderLimitNoop(t *testing.T) {
	m, _ := seedStore(t, time.Hour, time.Minute)
	s := testScheduler(m, Config{})

	res := s.EvictByCount(context.Background(), 5)
	if res.DeletedCount != 0 {
		t.Fatalf("deleted: %d, want 0", res.DeletedCount)
	}
}

// failingStore wraps a real store and fails deletes for one name.
type failingStore struct {
	*store.Manager
	failName string
}

func (f *failingStore) Delete(name string) (bool, error) {
	if name == f.failName {
		return false, errors.New("disk on fire")
	}
	return f.Manager.Delete(name)
}

func TestEvictByAge_BestEffortPerItem(t *testing.T) {
	// WHAT: one failing delete is logged and skipped; the rest of the
	// batch still goes through.
	m, names := seedStore(t, 3*time.Hour, 2*time.Hour, 90*time.Minute)
	fs := &failingStore{Manager: m, failName: names[0]}
	s := testScheduler(fs, Config{})

	res := s.EvictByAge(context.Background(), time.Hour)
	if res.DeletedCount != 2 {
		t.Fatalf("deleted: %d, want 2 despite one failure", res.DeletedCount)
	}

	list, _ := m.List()
	if len(list) != 1 || list[0].Name != names[0] {
		t.Fatalf("survivors: %+v", list)
	}
}

func TestStartStopStart_Idempotent(t *testing.T) {
	m, _ := seedStore(t)
	s := testScheduler(m, Config{})

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	first := s.Status()
	if !first.IsRunning {
		t.Fatal("not running after start")
	}

	// Second start while running: warning no-op.
	if err := s.Start(); err != nil {
		t.Fatalf("double start: %v", err)
	}

	s.Stop()
	s.Stop() // idempotent
	if s.Status().IsRunning {
		t.Fatal("running after stop")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer s.Stop()

	second := s.Status()
	if !second.IsRunning {
		t.Fatal("not running after restart")
	}
	if second.JobCount != first.JobCount {
		t.Fatalf("job count drifted: %d → %d", first.JobCount, second.JobCount)
	}
}

func TestStatus_JobInventory(t *testing.T) {
	m, _ := seedStore(t)
	s := testScheduler(m, Config{})

	st := s.Status()
	if st.JobCount != 3 {
		t.Fatalf("job count: %d", st.JobCount)
	}
	for _, name := range []string{"cleanup", "trim", "monitor"} {
		js, ok := st.Jobs[name]
		if !ok {
			t.Errorf("job %q missing from status", name)
			continue
		}
		if js.Running {
			t.Errorf("job %q running before start", name)
		}
	}
}

func TestMonitor_WarnsOverCeiling(t *testing.T) {
	m, _ := seedStore(t, time.Hour, time.Hour, time.Hour)

	var buf bytes.Buffer
	cfg := Config{MaxTotalBytes: 100, MaxFiles: 2}
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	s := New(m, cfg)

	s.Monitor(context.Background())

	out := buf.String()
	if !strings.Contains(out, "total size over ceiling") {
		t.Errorf("missing size warning: %s", out)
	}
	if !strings.Contains(out, "file count over ceiling") {
		t.Errorf("missing count warning: %s", out)
	}

	// Monitoring never deletes.
	list, _ := m.List()
	if len(list) != 3 {
		t.Fatalf("monitor deleted artifacts: %d remain", len(list))
	}
}

func TestMonitor_QuietUnderCeiling(t *testing.T) {
	m, _ := seedStore(t, time.Hour)

	var buf bytes.Buffer
	cfg := Config{MaxTotalBytes: 1 << 30, MaxFiles: 100}
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	s := New(m, cfg)

	s.Monitor(context.Background())
	if strings.Contains(buf.String(), "over ceiling") {
		t.Errorf("warned under ceiling: %s", buf.String())
	}
}

func TestOnResult_Callback(t *testing.T) {
	m, _ := seedStore(t, 2*time.Hour)
	s := testScheduler(m, Config{})

	var gotJob string
	var gotRes Result
	s.OnResult = func(job string, res Result) {
		gotJob, gotRes = job, res
	}

	s.RunCleanupNow(context.Background(), time.Hour)
	if gotJob != "cleanup" || gotRes.DeletedCount != 1 {
		t.Fatalf("callback: job=%q res=%+v", gotJob, gotRes)
	}
}
