// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package doi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"bare doi", "10.1145/1234567.1234568", "10.1145/1234567.1234568", true},
		{"nature doi", "10.1038/s41586-024-07487-w", "10.1038/s41586-024-07487-w", true},
		{"doi prefix", "doi:10.1000/xyz123", "10.1000/xyz123", true},
		{"doi prefix spaced", "DOI: 10.1000/xyz123", "10.1000/xyz123", true},
		{"resolver url", "https://doi.org/10.1000/xyz123", "10.1000/xyz123", true},
		{"dx resolver url", "http://dx.doi.org/10.1000/xyz123", "10.1000/xyz123", true},
		{"trailing period", "10.1000/xyz123.", "10.1000/xyz123", true},
		{"whitespace", "  10.1000/xyz123  ", "10.1000/xyz123", true},
		{"not a doi", "hello world", "", false},
		{"short prefix", "10.99/abc", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		doi  string
		want string
	}{
		{"10.1145/1234567.1234568", "10.1145-1234567.1234568"},
		{"10.1000/xyz:123", "10.1000-xyz-123"},
	}
	for _, tt := range tests {
		if got := Slug(tt.doi); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.doi, got, tt.want)
		}
	}
}

func TestFindAllPriorityAndDedup(t *testing.T) {
	text := `See https://doi.org/10.1000/first and doi:10.1000/second,
also the bare identifier 10.1000/third and the repeat 10.1000/first.`

	got := FindAll(text)
	want := []string{"10.1000/second", "10.1000/first", "10.1000/third"}
	if len(got) != len(want) {
		t.Fatalf("FindAll returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindAll[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFindAllIgnoresMalformed(t *testing.T) {
	text := "10.12/too-short and doi: not-a-doi and 11.1234/wrong-prefix"
	if got := FindAll(text); len(got) != 0 {
		t.Errorf("FindAll(%q) = %v, want none", text, got)
	}
}

func TestExtractResolvesScienceDirectPII(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/S0167278919305974") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><meta name="citation_doi" content="10.1016/j.physd.2019.132306"></html>`)
	}))
	defer ts.Close()

	old := scienceDirectBase
	scienceDirectBase = ts.URL + "/"
	defer func() { scienceDirectBase = old }()

	e := NewExtractor(ts.Client(), "getscipapers-test")
	got := e.Extract(context.Background(), "the article pii: S0167278919305974 discusses chaos")
	if len(got) != 1 || got[0] != "10.1016/j.physd.2019.132306" {
		t.Errorf("Extract = %v, want the resolved PII DOI", got)
	}
}

func TestExtractFollowsEmbeddedLinksBounded(t *testing.T) {
	var fetches int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		fmt.Fprintf(w, "doi:10.1000/linked%s", strings.TrimPrefix(r.URL.Path, "/page"))
	}))
	defer ts.Close()

	var sb strings.Builder
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&sb, "%s/page%d ", ts.URL, i)
	}

	e := NewExtractor(ts.Client(), "getscipapers-test")
	got := e.Extract(context.Background(), sb.String())

	if fetches > maxLinkFetches {
		t.Errorf("link fetches = %d, want at most %d", fetches, maxLinkFetches)
	}
	if len(got) == 0 || len(got) > maxLinkFetches {
		t.Errorf("Extract = %v, want between 1 and %d linked DOIs", got, maxLinkFetches)
	}
}

func TestExtractSkipsLinksWithVisibleDOI(t *testing.T) {
	var fetches int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
	}))
	defer ts.Close()

	// The DOI is visible inside the link itself, so the link must not
	// be fetched.
	e := NewExtractor(ts.Client(), "getscipapers-test")
	got := e.Extract(context.Background(), ts.URL+"/article/10.1000/visible")
	if fetches != 0 {
		t.Errorf("fetches = %d, want 0 for a link with a visible DOI", fetches)
	}
	if len(got) != 1 || got[0] != "10.1000/visible" {
		t.Errorf("Extract = %v, want the visible DOI only", got)
	}
}

func TestValidateViaResolverRedirect(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "10.1000/known") {
			http.Redirect(w, r, "https://publisher.example/article", http.StatusFound)
			return
		}
		http.NotFound(w, r)
	}))
	defer ts.Close()

	oldResolver, oldCrossref := resolverBase, crossrefAPIBase
	resolverBase = ts.URL + "/"
	crossrefAPIBase = ts.URL + "/works/"
	defer func() { resolverBase, crossrefAPIBase = oldResolver, oldCrossref }()

	e := NewExtractor(ts.Client(), "getscipapers-test")

	if !e.Validate(context.Background(), "10.1000/known") {
		t.Error("Validate(known) = false, want true")
	}
	if e.Validate(context.Background(), "10.1000/unknown") {
		t.Error("Validate(unknown) = true, want false")
	}
	if e.Validate(context.Background(), "not-a-doi") {
		t.Error("Validate(malformed) = true, want false")
	}
}

func TestValidateFallsBackToCrossref(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/works/") {
			fmt.Fprint(w, `{"status":"ok"}`)
			return
		}
		// Resolver is down for this test.
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	oldResolver, oldCrossref := resolverBase, crossrefAPIBase
	resolverBase = ts.URL + "/resolver/"
	crossrefAPIBase = ts.URL + "/works/"
	defer func() { resolverBase, crossrefAPIBase = oldResolver, oldCrossref }()

	e := NewExtractor(ts.Client(), "getscipapers-test")
	if !e.Validate(context.Background(), "10.1000/xyz123") {
		t.Error("Validate = false, want true via Crossref fallback")
	}
}

func TestExtractValidatedDropsInvalidSilently(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "10.1000/good") {
			http.Redirect(w, r, "https://publisher.example/a", http.StatusFound)
			return
		}
		http.NotFound(w, r)
	}))
	defer ts.Close()

	oldResolver, oldCrossref := resolverBase, crossrefAPIBase
	resolverBase = ts.URL + "/"
	crossrefAPIBase = ts.URL + "/works/"
	defer func() { resolverBase, crossrefAPIBase = oldResolver, oldCrossref }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e := NewExtractor(ts.Client(), "getscipapers-test")
	got := e.ExtractValidated(ctx, "10.1000/good and 10.1000/bad")
	if len(got) != 1 || got[0] != "10.1000/good" {
		t.Errorf("ExtractValidated = %v, want [10.1000/good]", got)
	}
}
