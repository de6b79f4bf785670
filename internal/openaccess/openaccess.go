// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package openaccess answers whether a DOI is open access and locates
// the best open-access PDF for it.
package openaccess

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

// API endpoints. Declared as vars so tests can substitute httptest
// servers.
var (
	unpaywallAPIBase = "https://api.unpaywall.org/v2/"
	openAlexAPIBase  = "https://api.openalex.org/works/"
)

// lookupResult is the cached outcome of one open-access lookup.
type lookupResult struct {
	isOA   bool
	pdfURL string
}

// Resolver performs open-access lookups against Unpaywall, falling back
// to OpenAlex for the PDF location. Transport failures resolve to "not
// open access" so one flaky lookup cannot stall acquisition.
type Resolver struct {
	client *http.Client
	cfg    types.FetchConfig
	cache  *gocache.Cache
}

// NewResolver builds a Resolver using the given client for all lookups.
func NewResolver(client *http.Client, cfg types.FetchConfig) *Resolver {
	return &Resolver{
		client: client,
		cfg:    cfg,
		cache:  gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// IsOpenAccess reports whether the DOI has a known open-access copy.
// Fail-closed: any lookup failure returns false.
func (r *Resolver) IsOpenAccess(ctx context.Context, doi string) bool {
	res := r.lookup(ctx, doi)
	return res.isOA
}

// BestPDFURL returns the best open-access PDF URL for the DOI, or ""
// when no open-access copy is known.
func (r *Resolver) BestPDFURL(ctx context.Context, doi string) string {
	return r.lookup(ctx, doi).pdfURL
}

func (r *Resolver) lookup(ctx context.Context, doi string) lookupResult {
	if hit, ok := r.cache.Get(doi); ok {
		return hit.(lookupResult)
	}

	res, err := r.unpaywall(ctx, doi)
	if err != nil {
		// Unknown/paid rather than blocking the caller; not cached so a
		// later attempt can retry the lookup.
		return lookupResult{}
	}
	if res.isOA && res.pdfURL == "" {
		if u, err := r.openAlexPDF(ctx, doi); err == nil {
			res.pdfURL = u
		}
	}

	r.cache.Set(doi, res, gocache.DefaultExpiration)
	return res
}

// unpaywall queries the Unpaywall API for a DOI.
func (r *Resolver) unpaywall(ctx context.Context, doi string) (lookupResult, error) {
	apiURL := unpaywallAPIBase + url.PathEscape(doi) + "?email=" + url.QueryEscape(r.cfg.UnpaywallEmail)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return lookupResult{}, fmt.Errorf("creating Unpaywall request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return lookupResult{}, fmt.Errorf("Unpaywall API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return lookupResult{}, fmt.Errorf("Unpaywall API returned HTTP %d", resp.StatusCode)
	}

	var data struct {
		IsOA           bool `json:"is_oa"`
		BestOALocation struct {
			URLForPDF string `json:"url_for_pdf"`
			URL       string `json:"url"`
		} `json:"best_oa_location"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return lookupResult{}, fmt.Errorf("parsing Unpaywall response: %w", err)
	}

	res := lookupResult{isOA: data.IsOA}
	if data.BestOALocation.URLForPDF != "" {
		res.pdfURL = data.BestOALocation.URLForPDF
	} else {
		res.pdfURL = data.BestOALocation.URL
	}
	return res, nil
}

// openAlexPDF queries the OpenAlex API for an open-access PDF URL.
func (r *Resolver) openAlexPDF(ctx context.Context, doi string) (string, error) {
	apiURL := openAlexAPIBase + "https://doi.org/" + doi

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating OpenAlex request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oa struct {
		BestOALocation *struct {
			PDFURL string `json:"pdf_url"`
		} `json:"best_oa_location"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oa); err != nil {
		return "", fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	if oa.BestOALocation == nil {
		return "", nil
	}
	return oa.BestOALocation.PDFURL, nil
}
