// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package biblio

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

const sampleWorkJSON = `{
  "status": "ok",
  "message": {
    "title": ["A Study of Things"],
    "container-title": ["Journal of Thingology"],
    "volume": "42",
    "issue": "3",
    "page": "101-118",
    "publisher": "Example Press",
    "ISSN": ["1234-5678"],
    "author": [
      {"given": "Carol", "family": "White"},
      {"given": "Dave", "family": "Brown"}
    ],
    "issued": {"date-parts": [[2023, 6, 15]]}
  }
}`

func testLookup(ts *httptest.Server) *Lookup {
	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "getscipapers-test"},
	}
	return NewLookup(ts.Client(), cfg)
}

func TestRecordFromCrossref(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleWorkJSON)
	}))
	defer ts.Close()

	old := crossrefAPIBase
	crossrefAPIBase = ts.URL + "/"
	defer func() { crossrefAPIBase = old }()

	rec, err := testLookup(ts).Record(context.Background(), "10.1000/xyz123")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if rec.Title != "A Study of Things" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Journal != "Journal of Thingology" {
		t.Errorf("Journal = %q", rec.Journal)
	}
	if len(rec.Authors) != 2 || rec.Authors[0].Name() != "Carol White" {
		t.Errorf("Authors = %v", rec.Authors)
	}
	if rec.PageCount != 18 {
		t.Errorf("PageCount = %d, want 18", rec.PageCount)
	}
	if rec.OpenAccess != types.OAUnknown {
		t.Errorf("OpenAccess = %q, want unknown", rec.OpenAccess)
	}
	if rec.Issued.Year() != 2023 {
		t.Errorf("Issued = %v", rec.Issued)
	}
}

func TestRecordCachesPerDOI(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, sampleWorkJSON)
	}))
	defer ts.Close()

	old := crossrefAPIBase
	crossrefAPIBase = ts.URL + "/"
	defer func() { crossrefAPIBase = old }()

	l := testLookup(ts)
	for i := 0; i < 3; i++ {
		if _, err := l.Record(context.Background(), "10.1000/xyz123"); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("API calls = %d, want 1 (cached)", calls)
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		pages string
		want  int
	}{
		{"101-118", 18},
		{"1-1", 1},
		{"2201 - 2215", 15},
		{"e0123456", 0},
		{"55", 0},
		{"118-101", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := PageCount(tt.pages); got != tt.want {
			t.Errorf("PageCount(%q) = %d, want %d", tt.pages, got, tt.want)
		}
	}
}

func TestMergeNeverOverwrites(t *testing.T) {
	rec := types.DocumentRecord{DOI: "10.1000/xyz123", Title: "First Title", OpenAccess: types.OAUnknown}
	rec.Merge(types.DocumentRecord{
		Title:      "Second Title",
		Journal:    "Filled In",
		OpenAccess: types.OAOpen,
		PageCount:  12,
	})
	if rec.Title != "First Title" {
		t.Errorf("Title overwritten: %q", rec.Title)
	}
	if rec.Journal != "Filled In" {
		t.Errorf("Journal not filled: %q", rec.Journal)
	}
	if rec.OpenAccess != types.OAOpen {
		t.Errorf("unknown OA flag should be upgraded, got %q", rec.OpenAccess)
	}
	if rec.PageCount != 12 {
		t.Errorf("PageCount not filled: %d", rec.PageCount)
	}

	rec.Merge(types.DocumentRecord{OpenAccess: types.OAClosed, PageCount: 99})
	if rec.OpenAccess != types.OAOpen {
		t.Errorf("set OA flag overwritten: %q", rec.OpenAccess)
	}
	if rec.PageCount != 12 {
		t.Errorf("set PageCount overwritten: %d", rec.PageCount)
	}
}
