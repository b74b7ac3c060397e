package capture

import (
	"context"
	"net/http"
	"time"
)

// URLCheck is the structured result of a reachability probe. Probes never
// fail as errors: an unreachable target is a negative result.
type URLCheck struct {
	Accessible bool   `json:"accessible"`
	Status     int    `json:"status,omitempty"`
	FinalURL   string `json:"final_url,omitempty"`
	Error      string `json:"error,omitempty"`
}

// checkTimeout bounds the whole probe including redirects.
const checkTimeout = 10 * time.Second

// httpClient is package-level so tests can swap the transport.
var httpClient = &http.Client{
	Timeout: checkTimeout,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return http.ErrUseLastResponse
		}
		return nil
	},
}

// CheckURL probes pageURL over plain HTTP, without spending a browser
// session. HEAD first; servers that reject HEAD get one GET retry.
func (o *Orchestrator) CheckURL(ctx context.Context, pageURL string) *URLCheck {
	if err := validateURL(pageURL); err != nil {
		return &URLCheck{Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	resp, err := o.probe(ctx, http.MethodHead, pageURL)
	if err == nil && resp.StatusCode == http.StatusMethodNotAllowed {
		resp.Body.Close()
		resp, err = o.probe(ctx, http.MethodGet, pageURL)
	}
	if err != nil {
		return &URLCheck{Error: err.Error()}
	}
	defer resp.Body.Close()

	return &URLCheck{
		Accessible: resp.StatusCode < 400,
		Status:     resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}
}

func (o *Orchestrator) probe(ctx context.Context, method, pageURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "snapkeep-probe/1.0")
	return httpClient.Do(req)
}
