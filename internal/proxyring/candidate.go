// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package proxyring discovers and races candidate network proxies to
// establish connectivity to the bot transport when direct access is
// unavailable.
package proxyring

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Proxy types accepted in candidate records.
const (
	TypeHTTP   = "http"
	TypeSOCKS5 = "socks5"
)

// Candidate is one proxy endpoint under consideration.
type Candidate struct {
	Type     string `json:"type"`
	Addr     string `json:"addr"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Country is the source country tag used for exclusion filtering.
	Country string `json:"country,omitempty"`

	// Latency is the measured round-trip time of a successful probe,
	// zero until tested.
	Latency time.Duration `json:"-"`
}

// HostPort returns the "addr:port" dial string.
func (c Candidate) HostPort() string {
	return net.JoinHostPort(c.Addr, strconv.Itoa(c.Port))
}

func (c Candidate) String() string {
	return c.Type + "://" + c.HostPort()
}

// LoadCandidates reads a JSON array of candidate records from path.
func LoadCandidates(path string) ([]Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading proxy candidates: %w", err)
	}
	var cands []Candidate
	if err := json.Unmarshal(data, &cands); err != nil {
		return nil, fmt.Errorf("parsing proxy candidates %s: %w", path, err)
	}
	for i, c := range cands {
		if c.Type != TypeHTTP && c.Type != TypeSOCKS5 {
			return nil, fmt.Errorf("candidate %d: unsupported proxy type %q", i, c.Type)
		}
		if c.Addr == "" || c.Port <= 0 || c.Port > 65535 {
			return nil, fmt.Errorf("candidate %d: invalid address %q port %d", i, c.Addr, c.Port)
		}
	}
	return cands, nil
}

// FilterExcluded drops candidates whose country tag appears in the
// exclusion list. Matching is case-insensitive; untagged candidates are
// kept.
func FilterExcluded(cands []Candidate, excludedCountries []string) []Candidate {
	if len(excludedCountries) == 0 {
		return cands
	}
	excluded := make(map[string]bool, len(excludedCountries))
	for _, cc := range excludedCountries {
		excluded[strings.ToUpper(cc)] = true
	}
	kept := cands[:0:0]
	for _, c := range cands {
		if c.Country != "" && excluded[strings.ToUpper(c.Country)] {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
