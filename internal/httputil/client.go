// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"net/http"

	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

// NewClient builds an HTTP client from the shared HTTP settings.
// A nil transport means the default transport.
func NewClient(cfg types.HTTPConfig, transport http.RoundTripper) *http.Client {
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}
