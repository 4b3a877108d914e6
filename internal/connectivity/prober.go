package connectivity

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Prober detects reachability by polling a probe URL. Any 2xx/3xx
// response counts as online; transport errors and server errors count
// as offline.
type Prober struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   zerolog.Logger

	online atomic.Bool

	mu        sync.Mutex
	callbacks []func(bool)
}

func NewProber(url string, interval time.Duration, logger *zerolog.Logger) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Prober{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger.With().Str("component", "prober").Logger(),
	}
}

func (p *Prober) Online() bool {
	return p.online.Load()
}

func (p *Prober) OnChange(fn func(online bool)) {
	p.mu.Lock()
	p.callbacks = append(p.callbacks, fn)
	p.mu.Unlock()
}

// Start runs the polling loop; stops when ctx is done.
func (p *Prober) Start(ctx context.Context) {
	p.logger.Info().Str("url", p.url).Dur("interval", p.interval).Msg("prober started")
	defer p.logger.Info().Msg("prober stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check probes once and fires callbacks if the state changed.
func (p *Prober) Check(ctx context.Context) bool {
	online := p.probe(ctx)
	was := p.online.Swap(online)
	if was == online {
		return online
	}

	p.logger.Info().Bool("online", online).Msg("connectivity changed")
	p.mu.Lock()
	callbacks := make([]func(bool), len(p.callbacks))
	copy(callbacks, p.callbacks)
	p.mu.Unlock()
	for _, fn := range callbacks {
		fn(online)
	}
	return online
}

func (p *Prober) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 400
}
