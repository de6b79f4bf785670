// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch orchestrates document acquisition across an ordered
// list of providers: the open-access route, direct HTTP mirrors, and a
// conversational bot. The first verified success wins; everything else
// advances to the next provider.
package fetch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hoanganhduc/getscipapers-sub000/internal/bot"
	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

// Provider is one acquisition route. Attempt drives a single fetch of
// doi to destPath and always returns a terminal outcome; it never
// panics the orchestrator with an unclassified error.
type Provider interface {
	// Name is the human-readable provider name.
	Name() string

	// Tag is the short filename-safe suffix for files this provider
	// downloads.
	Tag() string

	// Attempt fetches one document. The outcome is Success only when
	// the file is on disk at destPath.
	Attempt(ctx context.Context, doi, destPath string) types.DownloadOutcome
}

// PDFLocator finds a direct PDF URL for a DOI. Satisfied by
// *openaccess.Resolver.
type PDFLocator interface {
	BestPDFURL(ctx context.Context, doi string) string
}

// OAProvider downloads the open-access copy located by the resolver.
type OAProvider struct {
	resolver  PDFLocator
	client    *http.Client
	userAgent string
}

// NewOAProvider builds the open-access route.
func NewOAProvider(resolver PDFLocator, client *http.Client, userAgent string) *OAProvider {
	return &OAProvider{resolver: resolver, client: client, userAgent: userAgent}
}

func (p *OAProvider) Name() string { return "openaccess" }
func (p *OAProvider) Tag() string  { return "oa" }

func (p *OAProvider) Attempt(ctx context.Context, doi, destPath string) types.DownloadOutcome {
	url := p.resolver.BestPDFURL(ctx, doi)
	if url == "" {
		return types.NotAvailable(p.Name())
	}
	req, err := newDownloadRequest(ctx, url, p.userAgent)
	if err != nil {
		return types.Failed(p.Name(), err.Error())
	}
	n, err := downloadPDF(p.client, req, destPath)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return types.NotAvailable(p.Name())
		}
		return types.Failed(p.Name(), err.Error())
	}
	return types.Success(p.Name(), destPath, n)
}

// MirrorProvider downloads from a direct HTTP mirror that serves PDFs
// at a fixed URL shape, e.g. "https://mirror.example/%s.pdf" where %s
// is the DOI.
type MirrorProvider struct {
	name        string
	tag         string
	urlTemplate string
	client      *http.Client
	userAgent   string
}

// NewMirrorProvider builds a direct-download route. urlTemplate must
// contain exactly one %s verb for the DOI.
func NewMirrorProvider(name, tag, urlTemplate string, client *http.Client, userAgent string) *MirrorProvider {
	return &MirrorProvider{name: name, tag: tag, urlTemplate: urlTemplate, client: client, userAgent: userAgent}
}

func (p *MirrorProvider) Name() string { return p.name }
func (p *MirrorProvider) Tag() string  { return p.tag }

func (p *MirrorProvider) Attempt(ctx context.Context, doi, destPath string) types.DownloadOutcome {
	url := fmt.Sprintf(p.urlTemplate, doi)
	req, err := newDownloadRequest(ctx, url, p.userAgent)
	if err != nil {
		return types.Failed(p.name, err.Error())
	}
	n, err := downloadPDF(p.client, req, destPath)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return types.NotAvailable(p.name)
		}
		return types.Failed(p.name, err.Error())
	}
	return types.Success(p.name, destPath, n)
}

// BotProvider acquires documents through a conversational bot session.
type BotProvider struct {
	session *bot.Session
}

// NewBotProvider wraps a bot session as an acquisition route.
func NewBotProvider(session *bot.Session) *BotProvider {
	return &BotProvider{session: session}
}

func (p *BotProvider) Name() string { return bot.ProviderName }
func (p *BotProvider) Tag() string  { return "bot" }

func (p *BotProvider) Attempt(ctx context.Context, doi, destPath string) types.DownloadOutcome {
	return p.session.Fetch(ctx, doi, destPath)
}
