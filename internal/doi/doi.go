// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package doi extracts, normalizes, and validates Digital Object
// Identifiers from free text, URLs, and publisher-specific identifier
// schemes.
package doi

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// Base URLs for identifier resolution. Declared as vars so tests can
// substitute httptest servers.
var (
	resolverBase      = "https://doi.org/"
	crossrefAPIBase   = "https://api.crossref.org/works/"
	scienceDirectBase = "https://www.sciencedirect.com/science/article/pii/"
)

// canonicalPattern matches a bare canonical DOI: "10.1145/1234567.1234568".
var canonicalPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// Extraction patterns, in priority order. Higher-priority matches are
// recorded first so their position wins in the order-preserving dedup.
var (
	prefixedPattern = regexp.MustCompile(`(?i)\bdoi\s*:\s*(10\.\d{4,9}/[^\s"'<>]+)`)
	resolverPattern = regexp.MustCompile(`(?i)https?://(?:dx\.)?doi\.org/(10\.\d{4,9}/[^\s"'<>]+)`)
	barePattern     = regexp.MustCompile(`\b10\.\d{4,9}/[^\s"'<>]+`)

	// piiPattern matches an Elsevier PII, either inside a ScienceDirect
	// URL or as a labelled identifier: "pii: S0167278919305974".
	piiPattern = regexp.MustCompile(`(?i)(?:sciencedirect\.com/science/article/(?:abs/)?pii/|\bpii\s*:\s*)(S[0-9X]{16,17})`)

	// mdpiPattern matches an MDPI article URL, which carries no visible
	// DOI and must be resolved by fetching the page.
	mdpiPattern = regexp.MustCompile(`https?://www\.mdpi\.com/\d{4}-\d{3,4}[\dX]/\d+/\d+/\d+\b`)

	// linkPattern matches any embedded http(s) link for the fallback
	// fetch-and-rescan step.
	linkPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)
)

// maxLinkFetches bounds the fetch-and-rescan step so extraction never
// turns into a crawl.
const maxLinkFetches = 3

// maxScanBytes bounds how much of a fetched page is scanned for DOIs.
const maxScanBytes = 1 << 20

// IsCanonical reports whether s is a bare canonical DOI.
func IsCanonical(s string) bool {
	return canonicalPattern.MatchString(s)
}

// Normalize strips resolver prefixes and the "doi:" label from s and
// returns the canonical DOI. ok is false when s carries no DOI.
func Normalize(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := prefixedPattern.FindStringSubmatch(s); m != nil {
		return clean(m[1]), true
	}
	if m := resolverPattern.FindStringSubmatch(s); m != nil {
		return clean(m[1]), true
	}
	if d := clean(s); canonicalPattern.MatchString(d) {
		return d, true
	}
	return "", false
}

// Slug returns a filesystem-safe filename stem for a DOI: slashes and
// colons replaced with dashes.
func Slug(doi string) string {
	return strings.NewReplacer("/", "-", ":", "-").Replace(doi)
}

// clean trims trailing punctuation that free-text extraction drags along.
func clean(doi string) string {
	return strings.TrimRight(doi, ".,;:)]}\"'")
}

// FindAll extracts every DOI visible in text without network access,
// deduplicated and order-preserving across the prioritized patterns.
func FindAll(text string) []string {
	var found []string
	seen := make(map[string]bool)
	add := func(doi string) {
		doi = clean(doi)
		if !canonicalPattern.MatchString(doi) || seen[doi] {
			return
		}
		seen[doi] = true
		found = append(found, doi)
	}

	for _, m := range prefixedPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range resolverPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range barePattern.FindAllString(text, -1) {
		add(m)
	}
	return found
}

// Extractor extracts and validates DOIs, following publisher links that
// carry no directly visible identifier.
type Extractor struct {
	client    *http.Client
	userAgent string
}

// NewExtractor builds an Extractor. The client's timeout bounds every
// resolution and validation call.
func NewExtractor(client *http.Client, userAgent string) *Extractor {
	return &Extractor{client: client, userAgent: userAgent}
}

// Extract returns every DOI found in text, deduplicated and
// order-preserving. Pattern matches come first; publisher identifiers
// (ScienceDirect PII, MDPI URLs) and other embedded links are then
// resolved over the network, bounded to the first few candidates.
// Resolution failures drop the candidate silently.
func (e *Extractor) Extract(ctx context.Context, text string) []string {
	found := FindAll(text)
	seen := make(map[string]bool, len(found))
	for _, d := range found {
		seen[d] = true
	}
	add := func(doi string) {
		if doi == "" || seen[doi] {
			return
		}
		seen[doi] = true
		found = append(found, doi)
	}

	fetches := 0
	fetched := make(map[string]bool)
	scan := func(link string) {
		if fetches >= maxLinkFetches || fetched[link] {
			return
		}
		fetched[link] = true
		fetches++
		for _, d := range e.scanLink(ctx, link) {
			add(d)
		}
	}

	for _, m := range piiPattern.FindAllStringSubmatch(text, -1) {
		scan(scienceDirectBase + m[1])
	}
	for _, m := range mdpiPattern.FindAllString(text, -1) {
		scan(m)
	}
	for _, link := range linkPattern.FindAllString(text, -1) {
		if resolverPattern.MatchString(link) || barePattern.MatchString(link) {
			continue // identifier already visible in the URL itself
		}
		scan(link)
	}
	return found
}

// scanLink fetches a link and re-scans its content for DOIs.
func (e *Extractor) scanLink(ctx context.Context, link string) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScanBytes))
	if err != nil {
		return nil
	}
	return FindAll(string(body))
}

// Validate confirms that a DOI resolves: first through the doi.org
// resolver (any redirect status counts), then through the Crossref works
// API. Both checks share the extractor client's timeout.
func (e *Extractor) Validate(ctx context.Context, doi string) bool {
	if !canonicalPattern.MatchString(doi) {
		return false
	}
	if e.resolves(ctx, doi) {
		return true
	}
	return e.inCrossref(ctx, doi)
}

func (e *Extractor) resolves(ctx context.Context, doi string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, resolverBase+doi, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", e.userAgent)

	// The resolver answers with a redirect to the publisher; do not
	// follow it, the 30x alone proves the DOI exists.
	noFollow := *e.client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := noFollow.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 300 && resp.StatusCode < 400 || resp.StatusCode == http.StatusOK
}

func (e *Extractor) inCrossref(ctx context.Context, doi string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefAPIBase+doi, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// ExtractValidated extracts DOIs from text and keeps only those that
// validate. Invalid candidates are dropped silently.
func (e *Extractor) ExtractValidated(ctx context.Context, text string) []string {
	var valid []string
	for _, d := range e.Extract(ctx, text) {
		if e.Validate(ctx, d) {
			valid = append(valid, d)
		}
	}
	return valid
}
