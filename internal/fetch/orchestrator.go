// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/hoanganhduc/getscipapers-sub000/internal/doi"
	"github.com/hoanganhduc/getscipapers-sub000/internal/verify"
	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

const (
	rawDir      = "raw"
	metadataDir = "metadata"
)

// Recorder persists one provider attempt for later inspection. A nil
// Recorder disables history.
type Recorder interface {
	RecordAttempt(doi string, outcome types.DownloadOutcome) error
}

// OAChecker decides whether a DOI has an open-access copy. Satisfied by
// *openaccess.Resolver.
type OAChecker interface {
	IsOpenAccess(ctx context.Context, doi string) bool
}

// MetadataSource looks up bibliographic metadata for a DOI. Satisfied
// by *biblio.Lookup.
type MetadataSource interface {
	Record(ctx context.Context, doi string) (types.DocumentRecord, error)
}

// verifyFile is substituted in tests.
var verifyFile = verify.File

// Orchestrator runs the ordered provider fallback for one DOI at a
// time. The open-access provider is held apart from the general list:
// it runs first, and only when the resolver says the document is open.
type Orchestrator struct {
	oaResolver OAChecker
	oaProvider Provider
	providers  []Provider
	biblio     MetadataSource
	recorder   Recorder
	cfg        types.FetchConfig
	w          io.Writer
}

// NewOrchestrator wires the fallback chain. oaResolver and oaProvider
// may be nil to disable the open-access route; recorder may be nil.
func NewOrchestrator(oaResolver OAChecker, oaProvider Provider, providers []Provider, lookup MetadataSource, recorder Recorder, cfg types.FetchConfig, w io.Writer) *Orchestrator {
	return &Orchestrator{
		oaResolver: oaResolver,
		oaProvider: oaProvider,
		providers:  providers,
		biblio:     lookup,
		recorder:   recorder,
		cfg:        cfg,
		w:          w,
	}
}

// metadataRecord is the YAML document written next to each download.
type metadataRecord struct {
	Document types.DocumentRecord  `yaml:"document"`
	Outcome  types.DownloadOutcome `yaml:"outcome"`
}

// Fetch drives one normalized DOI to a terminal outcome. Providers
// after the first verified success are never invoked; a verification
// failure counts as a provider failure and the chain continues.
func (o *Orchestrator) Fetch(ctx context.Context, d string) types.DownloadOutcome {
	slug := doi.Slug(d)

	// An already-verified download short-circuits the whole chain.
	if out, ok := o.existing(slug); ok {
		fmt.Fprintf(o.w, "skipped: %s (already exists)\n", slug)
		return out
	}

	var record types.DocumentRecord
	if o.biblio != nil {
		var err error
		record, err = o.biblio.Record(ctx, d)
		if err != nil {
			fmt.Fprintf(o.w, "  warning: metadata lookup failed: %v\n", err)
		}
	}

	var requested *types.DownloadOutcome
	attempt := func(p Provider) (types.DownloadOutcome, bool) {
		dest := o.rawPath(slug, p.Tag())
		fmt.Fprintf(o.w, "trying %s: %s\n", p.Name(), slug)
		out := p.Attempt(ctx, d, dest)

		if out.Kind == types.OutcomeSuccess {
			if err := verifyFile(out.FilePath, record.PageCount); err != nil {
				out = types.Failed(p.Name(), fmt.Sprintf("verification: %v", err))
			}
		}
		o.record(d, out)

		switch out.Kind {
		case types.OutcomeSuccess:
			if err := o.writeMetadata(slug, record, out); err != nil {
				fmt.Fprintf(o.w, "  warning: writing metadata: %v\n", err)
			}
			fmt.Fprintf(o.w, "downloaded: %s (%s)\n", slug, p.Name())
			return out, true
		case types.OutcomeRequestable:
			fmt.Fprintf(o.w, "requested: %s (%s)\n", slug, p.Name())
			requested = &out
		default:
			fmt.Fprintf(o.w, "  %s: %s %s\n", p.Name(), out.Kind, out.Reason)
		}
		return out, false
	}

	open := o.oaResolver != nil && o.oaProvider != nil && o.oaResolver.IsOpenAccess(ctx, d)
	if open {
		if out, done := attempt(o.oaProvider); done {
			return out
		}
	}
	for _, p := range o.providers {
		if out, done := attempt(p); done {
			return out
		}
	}

	if requested != nil {
		return *requested
	}
	return types.Failed("", fmt.Sprintf("all providers exhausted for %s", d))
}

// existing reports a prior verified download for slug, if any provider
// already produced one.
func (o *Orchestrator) existing(slug string) (types.DownloadOutcome, bool) {
	all := o.providers
	if o.oaProvider != nil {
		all = append([]Provider{o.oaProvider}, all...)
	}
	for _, p := range all {
		path := o.rawPath(slug, p.Tag())
		if fi, err := os.Stat(path); err == nil {
			return types.Success(p.Name(), path, fi.Size()), true
		}
	}
	return types.DownloadOutcome{}, false
}

func (o *Orchestrator) rawPath(slug, tag string) string {
	return filepath.Join(o.cfg.DownloadDir, rawDir, fmt.Sprintf("%s_%s.pdf", slug, tag))
}

func (o *Orchestrator) record(d string, out types.DownloadOutcome) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordAttempt(d, out); err != nil {
		fmt.Fprintf(o.w, "  warning: recording attempt: %v\n", err)
	}
}

// writeMetadata writes the document record and terminal outcome as a
// YAML file next to the download.
func (o *Orchestrator) writeMetadata(slug string, record types.DocumentRecord, out types.DownloadOutcome) error {
	dir := filepath.Join(o.cfg.DownloadDir, metadataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}
	data, err := yaml.Marshal(metadataRecord{Document: record, Outcome: out})
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, slug+".yaml"), data, 0o644)
}
