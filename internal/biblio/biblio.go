// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package biblio looks up bibliographic metadata for DOIs and merges it
// into DocumentRecords.
package biblio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hoanganhduc/getscipapers-sub000/internal/httputil"
	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

// crossrefAPIBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works/"

// pageRangePattern matches a "first-last" page range.
var pageRangePattern = regexp.MustCompile(`^(\d+)\s*[-–]\s*(\d+)$`)

// Lookup fetches DocumentRecords from Crossref and caches them per DOI
// for the process lifetime.
type Lookup struct {
	client *http.Client
	cfg    types.FetchConfig
	cache  *gocache.Cache
}

// NewLookup builds a Lookup using the given client for all API calls.
func NewLookup(client *http.Client, cfg types.FetchConfig) *Lookup {
	return &Lookup{
		client: client,
		cfg:    cfg,
		cache:  gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// crossrefResponse captures the fields we need from a Crossref work.
type crossrefResponse struct {
	Message struct {
		Title          []string `json:"title"`
		ContainerTitle []string `json:"container-title"`
		Volume         string   `json:"volume"`
		Issue          string   `json:"issue"`
		Page           string   `json:"page"`
		Publisher      string   `json:"publisher"`
		ISSN           []string `json:"ISSN"`
		Author         []struct {
			Given  string `json:"given"`
			Family string `json:"family"`
		} `json:"author"`
		Issued struct {
			DateParts [][]int `json:"date-parts"`
		} `json:"issued"`
	} `json:"message"`
}

// Record returns the best available DocumentRecord for a DOI. Results
// are cached; a cached record is returned without a network call.
func (l *Lookup) Record(ctx context.Context, doi string) (types.DocumentRecord, error) {
	if hit, ok := l.cache.Get(doi); ok {
		return hit.(types.DocumentRecord), nil
	}

	rec := types.DocumentRecord{DOI: doi, OpenAccess: types.OAUnknown}
	cr, err := l.fetchCrossref(ctx, doi)
	if err != nil {
		return rec, err
	}
	rec.Merge(cr)

	l.cache.Set(doi, rec, gocache.DefaultExpiration)
	return rec, nil
}

// fetchCrossref retrieves one work record from the Crossref API.
func (l *Lookup) fetchCrossref(ctx context.Context, doi string) (types.DocumentRecord, error) {
	apiURL := crossrefAPIBase + doi
	if l.cfg.CrossrefMailto != "" {
		apiURL += "?mailto=" + url.QueryEscape(l.cfg.CrossrefMailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return types.DocumentRecord{}, fmt.Errorf("creating Crossref request: %w", err)
	}
	req.Header.Set("User-Agent", l.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, l.client, req, 0)
	if err != nil {
		return types.DocumentRecord{}, fmt.Errorf("Crossref API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.DocumentRecord{}, fmt.Errorf("Crossref API returned HTTP %d", resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return types.DocumentRecord{}, fmt.Errorf("parsing Crossref response: %w", err)
	}

	rec := types.DocumentRecord{DOI: doi, OpenAccess: types.OAUnknown}
	if len(cr.Message.Title) > 0 {
		rec.Title = cr.Message.Title[0]
	}
	if len(cr.Message.ContainerTitle) > 0 {
		rec.Journal = cr.Message.ContainerTitle[0]
	}
	rec.Volume = cr.Message.Volume
	rec.Issue = cr.Message.Issue
	rec.Pages = cr.Message.Page
	rec.Publisher = cr.Message.Publisher
	rec.ISSN = cr.Message.ISSN
	rec.PageCount = PageCount(cr.Message.Page)

	for _, a := range cr.Message.Author {
		rec.Authors = append(rec.Authors, types.Author{Given: a.Given, Family: a.Family})
	}

	if len(cr.Message.Issued.DateParts) > 0 && len(cr.Message.Issued.DateParts[0]) >= 1 {
		parts := cr.Message.Issued.DateParts[0]
		y, m, d := parts[0], 1, 1
		if len(parts) >= 2 {
			m = parts[1]
		}
		if len(parts) >= 3 {
			d = parts[2]
		}
		rec.Issued = time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	}
	return rec, nil
}

// PageCount derives an expected page count from a "first-last" page
// range. It returns 0 for electronic article numbers, single pages, and
// anything else it cannot interpret.
func PageCount(pages string) int {
	m := pageRangePattern.FindStringSubmatch(pages)
	if m == nil {
		return 0
	}
	first, err1 := strconv.Atoi(m[1])
	last, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || last < first {
		return 0
	}
	return last - first + 1
}
