// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package proxyring

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNoCandidates means the candidate pool is empty after filtering.
var ErrNoCandidates = errors.New("no proxy candidates")

// ErrNoneReachable means no candidate passed the connectivity probe.
var ErrNoneReachable = errors.New("no working proxy found")

// Probe tests one candidate's connectivity against the real target. It
// must honor ctx cancellation: once a race concludes no probe may keep
// running.
type Probe func(ctx context.Context, c Candidate) error

const defaultMaxWorkers = 16

// Race probes candidates concurrently with bounded workers and returns
// the first one that passes, with its measured latency filled in. The
// moment a winner is observed, the remaining probes are cancelled
// through their context and the function joins every launched task
// before returning, so no probe outlives the call.
func Race(ctx context.Context, cands []Candidate, probe Probe, maxWorkers int, probeTimeout time.Duration) (Candidate, error) {
	if len(cands) == 0 {
		return Candidate{}, ErrNoCandidates
	}
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		winOnce sync.Once
		winner  Candidate
		won     bool
	)

	g := new(errgroup.Group)
	g.SetLimit(maxWorkers)
	for _, c := range cands {
		c := c
		g.Go(func() error {
			// A settled race cancels queued probes before they dial.
			if raceCtx.Err() != nil {
				return nil
			}
			probeCtx, probeCancel := context.WithTimeout(raceCtx, probeTimeout)
			defer probeCancel()

			start := time.Now()
			if err := probe(probeCtx, c); err != nil {
				return nil
			}
			c.Latency = time.Since(start)
			winOnce.Do(func() {
				winner = c
				won = true
				cancel()
			})
			return nil
		})
	}
	g.Wait()

	if !won {
		if ctx.Err() != nil {
			return Candidate{}, ctx.Err()
		}
		return Candidate{}, ErrNoneReachable
	}
	return winner, nil
}

// RankFastest probes every candidate to completion (no early cancel),
// ranks the successful ones by measured latency, and returns the n
// fastest. Used to pre-rank a pool before the real race.
func RankFastest(ctx context.Context, cands []Candidate, probe Probe, n, maxWorkers int, probeTimeout time.Duration) ([]Candidate, error) {
	if len(cands) == 0 {
		return nil, ErrNoCandidates
	}
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	var (
		mu      sync.Mutex
		working []Candidate
	)

	g := new(errgroup.Group)
	g.SetLimit(maxWorkers)
	for _, c := range cands {
		c := c
		g.Go(func() error {
			probeCtx, probeCancel := context.WithTimeout(ctx, probeTimeout)
			defer probeCancel()

			start := time.Now()
			if err := probe(probeCtx, c); err != nil {
				return nil
			}
			c.Latency = time.Since(start)

			mu.Lock()
			working = append(working, c)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	sort.Slice(working, func(i, j int) bool {
		return working[i].Latency < working[j].Latency
	})
	if n > 0 && len(working) > n {
		working = working[:n]
	}
	return working, nil
}
