// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// pdfMagic is the leading byte signature of a PDF document.
var pdfMagic = []byte("%PDF-")

// downloadPDF fetches url to destPath using a temporary file, renamed
// only on success. Responses that do not start with the PDF signature
// are rejected so an HTML error page served with HTTP 200 never lands
// on disk.
func downloadPDF(client *http.Client, req *http.Request, destPath string) (int64, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, wrapErr(KindNetwork, "download", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, wrapErr(KindNotFound, "download", fmt.Errorf("HTTP 404 from %s", req.URL))
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, wrapErr(KindRateLimited, "download", fmt.Errorf("HTTP 429 from %s", req.URL))
	case resp.StatusCode != http.StatusOK:
		return 0, wrapErr(KindNetwork, "download", fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL))
	}

	body := bufio.NewReader(resp.Body)
	head, err := body.Peek(len(pdfMagic))
	if err != nil || !bytes.HasPrefix(head, pdfMagic) {
		return 0, wrapErr(KindVerification, "download", fmt.Errorf("%s did not return a PDF", req.URL))
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating download directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return 0, wrapErr(KindNetwork, "download", fmt.Errorf("writing download: %w", copyErr))
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}

// newDownloadRequest builds a GET for a PDF resource.
func newDownloadRequest(ctx context.Context, url, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/pdf")
	return req, nil
}
