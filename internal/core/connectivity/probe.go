package connectivity

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	defaultProbeInterval = 15 * time.Second
	defaultProbeTimeout  = 3 * time.Second
)

// HTTPProbe derives connectivity from periodic HEAD requests against a
// reachable endpoint. A response of any status counts as online; only
// transport failures count as offline.
type HTTPProbe struct {
	url      string
	interval time.Duration
	client   *http.Client

	online atomic.Bool
}

// NewHTTPProbe creates a probe against the given URL. The initial state is
// determined by a synchronous first probe.
func NewHTTPProbe(url string, interval time.Duration) *HTTPProbe {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	p := &HTTPProbe{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: defaultProbeTimeout},
	}
	p.online.Store(p.probe(context.Background()))
	return p
}

// Online returns the result of the most recent probe.
func (p *HTTPProbe) Online() bool {
	return p.online.Load()
}

// Watch probes on the configured interval and delivers state transitions.
func (p *HTTPProbe) Watch(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				online := p.probe(ctx)
				if p.online.Swap(online) == online {
					continue
				}
				select {
				case ch <- online:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}

func (p *HTTPProbe) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}
