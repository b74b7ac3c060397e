// CLAUDE:SUMMARY Capture orchestrator: per-request session, staged selector wait, raster, guaranteed teardown.
// Package capture turns a (URL, CSS selector) pair into PNG bytes by driving
// a single remote-rendering session through navigation, element-visibility
// waiting and raster extraction under strict time budgets.
//
// Many captures run concurrently; each owns an isolated Session spawned from
// the shared browser handle. There is no cross-request mutable state besides
// that read-mostly handle, and every acquired session is released on every
// exit path — success, typed error or unexpected failure.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// PageInfo is the read-only result of a page-info probe.
type PageInfo struct {
	Title          string `json:"title"`
	URL            string `json:"url"`
	ViewportWidth  int    `json:"viewport_width"`
	ViewportHeight int    `json:"viewport_height"`
}

// Orchestrator drives capture sessions against a shared rendering engine.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger

	// newSession is the injection point for tests; the default spawns a
	// stealth Rod page from the browser manager.
	newSession func(ctx context.Context) (Session, error)
	now        func() time.Time
	sem        chan struct{}
}

// New creates an Orchestrator over an already started Browser.
func New(b *Browser, cfg Config) *Orchestrator {
	cfg.defaults()
	o := &Orchestrator{
		cfg:    cfg,
		logger: cfg.Logger,
		newSession: func(_ context.Context) (Session, error) {
			return newRodSession(b.mgr, cfg.ViewportWidth, cfg.ViewportHeight)
		},
		now: time.Now,
	}
	if cfg.MaxConcurrent > 0 {
		o.sem = make(chan struct{}, cfg.MaxConcurrent)
	}
	return o
}

// CaptureElement navigates to pageURL, waits for selector to become visible
// and returns the element rasterized as PNG bytes.
func (o *Orchestrator) CaptureElement(ctx context.Context, pageURL, selector string, opts Options) ([]byte, error) {
	if err := validateURL(pageURL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(selector) == "" {
		return nil, fmt.Errorf("%w: empty selector", ErrInvalidInput)
	}

	release, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := o.newSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: session: %w", err)
	}
	defer o.teardown(sess, pageURL)

	if err := o.navigate(ctx, sess, pageURL, false); err != nil {
		return nil, err
	}

	if err := o.waitForSelector(ctx, sess, selector); err != nil {
		return nil, err
	}

	if opts.WaitForAnimations {
		if err := sleepCtx(ctx, o.cfg.AnimationDelay); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
	}

	data, err := sess.ShotElement(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("capture: screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("capture: screenshot produced no data for %q", selector)
	}
	return data, nil
}

// CaptureFullPage navigates to pageURL waiting for the network to settle
// and rasterizes the full page.
func (o *Orchestrator) CaptureFullPage(ctx context.Context, pageURL string, opts Options) ([]byte, error) {
	if err := validateURL(pageURL); err != nil {
		return nil, err
	}

	release, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := o.newSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: session: %w", err)
	}
	defer o.teardown(sess, pageURL)

	if err := o.navigate(ctx, sess, pageURL, true); err != nil {
		return nil, err
	}

	if opts.WaitForAnimations {
		if err := sleepCtx(ctx, o.cfg.AnimationDelay); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
	}

	data, err := sess.ShotPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("capture: screenshot produced no data for %s", pageURL)
	}
	return data, nil
}

// PageInfo performs a short controlled navigation and reads title, final
// URL and viewport from the live page.
func (o *Orchestrator) PageInfo(ctx context.Context, pageURL string) (*PageInfo, error) {
	if err := validateURL(pageURL); err != nil {
		return nil, err
	}

	sess, err := o.newSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: session: %w", err)
	}
	defer o.teardown(sess, pageURL)

	if err := o.navigate(ctx, sess, pageURL, false); err != nil {
		return nil, err
	}
	return sess.Info(ctx)
}

// navigate runs the navigation stage under NavTimeout and classifies the
// failure: budget exceeded → ErrTimeout, anything else → ErrNavigation.
func (o *Orchestrator) navigate(ctx context.Context, sess Session, pageURL string, settle bool) error {
	navCtx, cancel := context.WithTimeout(ctx, o.cfg.NavTimeout)
	defer cancel()

	if err := sess.Navigate(navCtx, pageURL, settle); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: navigation to %s exceeded %s", ErrTimeout, pageURL, o.cfg.NavTimeout)
		}
		return fmt.Errorf("%w: %s: %v", ErrNavigation, pageURL, err)
	}
	return nil
}

// waitForSelector runs the two-stage visibility wait: a quick probe, then a
// network-settle pause, then a final retry on the remaining budget.
func (o *Orchestrator) waitForSelector(ctx context.Context, sess Session, selector string) error {
	plan := newWaitPlan(o.cfg.SelectorTimeout, o.cfg.ProbeTimeout, o.cfg.SettleTimeout, o.now)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}

		switch plan.Stage() {
		case stageProbe, stageFinal:
			err := sess.WaitVisible(ctx, selector, plan.StageTimeout())
			if err != nil {
				o.logger.Debug("capture: selector wait miss",
					"selector", selector, "stage", plan.Stage().String(), "error", err)
			}
			plan.Advance(err == nil)

		case stageSettle:
			sess.WaitSettle(ctx, plan.StageTimeout())
			plan.Advance(true)

		case stageDone:
			return nil

		case stageTimedOut:
			return fmt.Errorf("%w: selector %q wait budget (%s) exhausted",
				ErrTimeout, selector, o.cfg.SelectorTimeout)

		case stageNotFound:
			return fmt.Errorf("%w: %q never became visible", ErrElementNotFound, selector)
		}
	}
}

// teardown releases the session. A teardown failure is logged and never
// replaces the capture's own result or error.
func (o *Orchestrator) teardown(sess Session, pageURL string) {
	if err := sess.Close(); err != nil {
		o.logger.Warn("capture: session close failed", "url", pageURL, "error", err)
	}
}

// acquire takes a slot from the concurrency semaphore, if one is configured.
func (o *Orchestrator) acquire(ctx context.Context) (func(), error) {
	if o.sem == nil {
		return func() {}, nil
	}
	select {
	case o.sem <- struct{}{}:
		return func() { <-o.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for capture slot: %v", ErrTimeout, ctx.Err())
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidInput, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidInput, raw)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
