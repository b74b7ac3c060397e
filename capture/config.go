package capture

import (
	"log/slog"
	"time"
)

// Config configures an Orchestrator. All durations are per-capture budgets;
// exceeding one aborts only that capture, never its neighbours.
type Config struct {
	// NavTimeout bounds the navigation stage. Default: 30s.
	NavTimeout time.Duration

	// SelectorTimeout is the total selector-wait budget across all wait
	// stages. Default: 15s.
	SelectorTimeout time.Duration

	// ProbeTimeout bounds the quick first visibility probe. Default: 3s.
	ProbeTimeout time.Duration

	// SettleTimeout bounds the network-settle wait that runs between the
	// probe and the final retry. Default: 10s.
	SettleTimeout time.Duration

	// AnimationDelay is the fixed settle delay applied before rasterizing
	// when the caller requests animation settling. Default: 500ms.
	AnimationDelay time.Duration

	// ViewportWidth/ViewportHeight size each session's viewport.
	// Default: 1280x800.
	ViewportWidth  int
	ViewportHeight int

	// MaxConcurrent caps in-flight captures against engine capacity.
	// Zero disables the cap.
	MaxConcurrent int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.SelectorTimeout <= 0 {
		c.SelectorTimeout = 15 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 3 * time.Second
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = 10 * time.Second
	}
	if c.AnimationDelay <= 0 {
		c.AnimationDelay = 500 * time.Millisecond
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1280
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 800
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Options are per-capture flags.
type Options struct {
	// WaitForAnimations adds the fixed AnimationDelay before the raster call.
	WaitForAnimations bool
}
