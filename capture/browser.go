package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/snapkeep/capture/internal/browser"
)

// BrowserConfig controls the shared Chrome lifecycle.
type BrowserConfig struct {
	// RemoteURL connects to an external Chrome instead of launching one.
	RemoteURL string

	// MemoryLimit in bytes; Chrome is recycled when exceeded. Default: 1GB.
	MemoryLimit int64

	// RecycleInterval is the maximum Chrome process lifetime. Default: 4h.
	RecycleInterval time.Duration

	Logger *slog.Logger
}

// Browser is the public handle over the managed Chrome process. One Browser
// serves all concurrent capture sessions.
type Browser struct {
	mgr *browser.Manager
}

// NewBrowser creates the handle without launching anything; Start does.
func NewBrowser(cfg BrowserConfig) *Browser {
	return &Browser{mgr: browser.NewManager(browser.Config{
		RemoteURL:       cfg.RemoteURL,
		MemoryLimit:     cfg.MemoryLimit,
		RecycleInterval: cfg.RecycleInterval,
		Logger:          cfg.Logger,
	})}
}

// Start launches (or connects to) Chrome and begins health monitoring.
func (b *Browser) Start(ctx context.Context) error {
	_, err := b.mgr.Start(ctx)
	return err
}

// Close terminates Chrome and the monitor.
func (b *Browser) Close() error {
	return b.mgr.Close()
}
