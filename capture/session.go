package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/snapkeep/capture/internal/browser"
)

// Session is one isolated browsing page, exclusively owned by exactly one
// in-flight capture. It lives for the duration of that single call and is
// released on every exit path.
type Session interface {
	// Navigate loads the URL. With settle=true it additionally waits for
	// the network-idle lifecycle event instead of plain load.
	Navigate(ctx context.Context, url string, settle bool) error
	// WaitVisible blocks until the selector matches a visible element or
	// the timeout expires.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// WaitSettle waits up to timeout for network activity to go quiet.
	// Best-effort: expiry is a normal outcome, not a failure.
	WaitSettle(ctx context.Context, timeout time.Duration)
	// ShotElement rasterizes the first element matching the selector.
	ShotElement(ctx context.Context, selector string) ([]byte, error)
	// ShotPage rasterizes the full page.
	ShotPage(ctx context.Context) ([]byte, error)
	// Info reads title, final URL and viewport size from the live page.
	Info(ctx context.Context) (*PageInfo, error)
	Close() error
}

// settleIdleWindow is how long the network must stay quiet before
// WaitSettle considers the page settled.
const settleIdleWindow = 300 * time.Millisecond

// rodSession implements Session on a stealth Rod page.
type rodSession struct {
	page *rod.Page
}

// newRodSession spawns an isolated stealth page sized to the configured
// viewport.
func newRodSession(mgr *browser.Manager, width, height int) (Session, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("capture: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("capture: create page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("capture: set viewport: %w", err)
	}

	return &rodSession{page: page}, nil
}

func (s *rodSession) Navigate(ctx context.Context, url string, settle bool) error {
	p := s.page.Context(ctx)

	if settle {
		// The waiter must be armed before Navigate or the event can be missed.
		wait := p.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
		if err := p.Navigate(url); err != nil {
			return err
		}
		wait()
		return ctx.Err()
	}

	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *rodSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p := s.page.Context(ctx).Timeout(timeout)
	el, err := p.Element(selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (s *rodSession) WaitSettle(ctx context.Context, timeout time.Duration) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	s.page.Context(tctx).WaitRequestIdle(settleIdleWindow, nil, nil, nil)()
}

func (s *rodSession) ShotElement(ctx context.Context, selector string) ([]byte, error) {
	p := s.page.Context(ctx)
	el, err := p.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", selector, err)
	}
	return el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}

func (s *rodSession) ShotPage(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (s *rodSession) Info(ctx context.Context) (*PageInfo, error) {
	p := s.page.Context(ctx)

	info, err := p.Info()
	if err != nil {
		return nil, fmt.Errorf("page info: %w", err)
	}

	res, err := p.Eval(`() => ({width: window.innerWidth, height: window.innerHeight})`)
	if err != nil {
		return nil, fmt.Errorf("viewport query: %w", err)
	}

	return &PageInfo{
		Title:          info.Title,
		URL:            info.URL,
		ViewportWidth:  int(res.Value.Get("width").Int()),
		ViewportHeight: int(res.Value.Get("height").Int()),
	}, nil
}

func (s *rodSession) Close() error {
	return s.page.Close()
}
