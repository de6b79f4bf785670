// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OAStatus is the tri-state open-access flag on a DocumentRecord.
type OAStatus string

const (
	OAUnknown OAStatus = "unknown"
	OAOpen    OAStatus = "open"
	OAClosed  OAStatus = "closed"
)

// Author is one author in source order.
type Author struct {
	Given  string `json:"given,omitempty" yaml:"given,omitempty"`
	Family string `json:"family,omitempty" yaml:"family,omitempty"`
}

// Name returns "Given Family" with missing parts omitted.
func (a Author) Name() string {
	switch {
	case a.Given == "":
		return a.Family
	case a.Family == "":
		return a.Given
	default:
		return a.Given + " " + a.Family
	}
}

// DocumentRecord holds the best available metadata for a single DOI,
// merged field-by-field across sources.
type DocumentRecord struct {
	DOI       string   `json:"doi" yaml:"doi"`
	Title     string   `json:"title,omitempty" yaml:"title,omitempty"`
	Authors   []Author `json:"authors,omitempty" yaml:"authors,omitempty"`
	Journal   string   `json:"journal,omitempty" yaml:"journal,omitempty"`
	Volume    string   `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue     string   `json:"issue,omitempty" yaml:"issue,omitempty"`
	Pages     string   `json:"pages,omitempty" yaml:"pages,omitempty"`
	Publisher string   `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	ISSN      []string `json:"issn,omitempty" yaml:"issn,omitempty"`

	// Identifiers holds alternate identifiers keyed by scheme
	// (e.g. "pmid", "arxiv", "pii").
	Identifiers map[string]string `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`

	OpenAccess OAStatus  `json:"open_access" yaml:"open_access"`
	Issued     time.Time `json:"issued,omitempty" yaml:"issued,omitempty"`

	// PageCount is the expected page count derived from the Pages range,
	// zero when unknown. Used by asset verification.
	PageCount int `json:"page_count,omitempty" yaml:"page_count,omitempty"`
}

// Merge copies fields from other into r where r's field is empty.
// A field set once is never overwritten; author lists and identifier
// sets follow the same first-wins rule per entry.
func (r *DocumentRecord) Merge(other DocumentRecord) {
	if r.DOI == "" {
		r.DOI = other.DOI
	}
	if r.Title == "" {
		r.Title = other.Title
	}
	if len(r.Authors) == 0 {
		r.Authors = other.Authors
	}
	if r.Journal == "" {
		r.Journal = other.Journal
	}
	if r.Volume == "" {
		r.Volume = other.Volume
	}
	if r.Issue == "" {
		r.Issue = other.Issue
	}
	if r.Pages == "" {
		r.Pages = other.Pages
	}
	if r.Publisher == "" {
		r.Publisher = other.Publisher
	}
	if len(r.ISSN) == 0 {
		r.ISSN = other.ISSN
	}
	for scheme, id := range other.Identifiers {
		if _, ok := r.Identifiers[scheme]; !ok {
			if r.Identifiers == nil {
				r.Identifiers = make(map[string]string)
			}
			r.Identifiers[scheme] = id
		}
	}
	if r.OpenAccess == "" || r.OpenAccess == OAUnknown {
		if other.OpenAccess != "" {
			r.OpenAccess = other.OpenAccess
		}
	}
	if r.Issued.IsZero() {
		r.Issued = other.Issued
	}
	if r.PageCount == 0 {
		r.PageCount = other.PageCount
	}
}
