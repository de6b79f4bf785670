// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package proxyring

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

const (
	defaultProbeTimeout = 10 * time.Second
)

// Engine discovers a working proxy and caches it for session reuse.
// The cached selection is written only by the engine (write-once) and
// invalidated when a later connectivity check fails, which triggers
// re-discovery on the next request.
type Engine struct {
	cfg   types.ProxyConfig
	probe Probe

	mu       sync.Mutex
	selected *Candidate
}

// NewEngine builds an Engine around a candidate pool configuration and
// a connectivity probe.
func NewEngine(cfg types.ProxyConfig, probe Probe) *Engine {
	return &Engine{cfg: cfg, probe: probe}
}

func (e *Engine) probeTimeout() time.Duration {
	if e.cfg.ProbeTimeout > 0 {
		return e.cfg.ProbeTimeout
	}
	return defaultProbeTimeout
}

// Working returns the cached selected proxy after revalidating it, or
// races the candidate pool when there is no valid selection. A cached
// proxy that fails revalidation is discarded before re-discovery.
func (e *Engine) Working(ctx context.Context) (Candidate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selected != nil {
		probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout())
		err := e.probe(probeCtx, *e.selected)
		cancel()
		if err == nil {
			return *e.selected, nil
		}
		e.selected = nil
	}

	cands, err := LoadCandidates(e.cfg.CandidatesFile)
	if err != nil {
		return Candidate{}, err
	}
	cands = FilterExcluded(cands, e.cfg.ExcludedCountries)

	winner, err := Race(ctx, cands, e.probe, e.cfg.MaxWorkers, e.probeTimeout())
	if err != nil {
		return Candidate{}, err
	}
	e.selected = &winner
	return winner, nil
}

// Invalidate discards the cached selection so the next Working call
// re-discovers.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.selected = nil
	e.mu.Unlock()
}

// ConnectProbe returns a Probe that verifies a candidate can reach the
// real target endpoint, not a generic ping. Any HTTP response from the
// target counts as connectivity; dial, proxy, and timeout failures do
// not.
func ConnectProbe(targetURL, userAgent string) Probe {
	return func(ctx context.Context, c Candidate) error {
		transport, err := Transport(c)
		if err != nil {
			return err
		}
		defer transport.CloseIdleConnections()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		client := &http.Client{Transport: transport}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		return nil
	}
}
