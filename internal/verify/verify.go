// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify validates downloaded assets against expected metadata
// before they are accepted.
package verify

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNotPDF means the file is not a readable PDF (typically an HTTP-200
// error page saved as a download).
var ErrNotPDF = errors.New("not a readable PDF")

// ErrPageMismatch means the page count differs from the expected count.
var ErrPageMismatch = errors.New("page count mismatch")

// pageCount reads the page count of a PDF file. Declared as a var so
// tests can substitute a fake counter.
var pageCount = api.PageCountFile

// File checks a downloaded file against an expected page count. When
// expectedPages is known (> 0) the file's page count must match exactly;
// on any failure the file is deleted so a partial or bogus download is
// never left on disk. When expectedPages is 0 only PDF readability is
// required.
func File(path string, expectedPages int) error {
	count, err := pageCount(path)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("reading %s: %v: %w", path, err, ErrNotPDF)
	}
	if expectedPages > 0 && count != expectedPages {
		os.Remove(path)
		return fmt.Errorf("%s has %d pages, expected %d: %w", path, count, expectedPages, ErrPageMismatch)
	}
	return nil
}
