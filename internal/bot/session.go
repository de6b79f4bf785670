// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bot drives a conversation with an asset-delivery bot: send a
// query, classify the reply, press the right button, and collect the
// delivered file. One session serializes one conversation; concurrent
// exchanges on the same session are rejected rather than interleaved.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hoanganhduc/getscipapers-sub000/internal/doi"
	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

// State is the conversation phase of a Session.
type State int

const (
	StateIdle State = iota
	StateAwaitingReply
	StateHasReply
	StateAwaitingPagination
	StateAwaitingButtonChoice
	StateAwaitingAsset
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting-reply"
	case StateHasReply:
		return "has-reply"
	case StateAwaitingPagination:
		return "awaiting-pagination"
	case StateAwaitingButtonChoice:
		return "awaiting-button-choice"
	case StateAwaitingAsset:
		return "awaiting-asset"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrBusy is returned when an exchange starts while another is running.
var ErrBusy = errors.New("session busy with another exchange")

// ProviderName tags outcomes produced by the bot session.
const ProviderName = "nexusbot"

// maxInterimAbsorbs bounds how many consecutive interim notices one
// exchange will wait through before giving up.
const maxInterimAbsorbs = 3

// SearchHit is one result surfaced by a keyword search.
type SearchHit struct {
	Title   string
	DOI     string
	Snippet string
}

// Session holds one bot conversation. It owns the transport and an
// optional re-authenticator used once when the session token expires.
type Session struct {
	tr      Transport
	auth    Authenticator
	cfg     types.BotConfig
	state   State
	busy    chan struct{} // capacity 1; holding the slot means an exchange is running
	pending []Message     // messages drained but not yet consumed
}

// NewSession wraps a transport in a conversation session. auth may be
// nil when no re-authentication path exists.
func NewSession(tr Transport, auth Authenticator, cfg types.BotConfig) *Session {
	return &Session{
		tr:   tr,
		auth: auth,
		cfg:  cfg,
		busy: make(chan struct{}, 1),
	}
}

// State reports the phase of the most recent exchange.
func (s *Session) State() State { return s.state }

// Close releases the underlying transport.
func (s *Session) Close() error { return s.tr.Close() }

// acquire claims the single exchange slot or fails fast.
func (s *Session) acquire() error {
	select {
	case s.busy <- struct{}{}:
		return nil
	default:
		return ErrBusy
	}
}

func (s *Session) release() { <-s.busy }

// ensureAuthorized probes the transport and, on an expired token, runs
// exactly one re-authentication before retrying. A second expiry is
// terminal.
func (s *Session) ensureAuthorized(ctx context.Context) error {
	err := s.tr.Probe(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrAuthExpired) || s.auth == nil {
		return err
	}

	token, authErr := s.auth.Authenticate(ctx)
	if authErr != nil {
		return fmt.Errorf("re-authenticating: %w", authErr)
	}
	if st, ok := s.tr.(interface{ SetToken(string) }); ok {
		st.SetToken(token)
	}
	if err := s.tr.Probe(ctx); err != nil {
		return fmt.Errorf("after re-authentication: %w", err)
	}
	return nil
}

// nextMessage returns the next bot message, polling the transport until
// the deadline. Messages drained beyond the first are queued for later
// calls so none are lost between polls.
func (s *Session) nextMessage(ctx context.Context, timeout time.Duration) (Message, error) {
	if len(s.pending) > 0 {
		m := s.pending[0]
		s.pending = s.pending[1:]
		return m, nil
	}

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		msgs, err := s.tr.Updates(ctx)
		if err != nil {
			return Message{}, err
		}
		if len(msgs) > 0 {
			s.pending = append(s.pending, msgs[1:]...)
			return msgs[0], nil
		}
		if time.Now().After(deadline) {
			return Message{}, fmt.Errorf("no reply within %s", timeout)
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// awaitReply waits for a non-interim reply, absorbing a bounded number
// of interim notices. Each interim grants a fresh interim window.
func (s *Session) awaitReply(ctx context.Context) (Reply, error) {
	timeout := s.cfg.ReplyTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interim := s.cfg.InterimTimeout
	if interim <= 0 {
		interim = 2 * timeout
	}

	wait := timeout
	for absorbed := 0; ; {
		msg, err := s.nextMessage(ctx, wait)
		if err != nil {
			return Reply{}, err
		}
		r := ParseReply(msg)
		if r.Kind != ReplyInterim {
			return r, nil
		}
		absorbed++
		if absorbed > maxInterimAbsorbs {
			return Reply{}, fmt.Errorf("bot still working after %d interim notices", absorbed)
		}
		wait = interim
	}
}

// Fetch asks the bot for one document by DOI and drives the exchange to
// a terminal outcome. The returned outcome is never in-progress.
func (s *Session) Fetch(ctx context.Context, doi, destPath string) types.DownloadOutcome {
	if err := s.acquire(); err != nil {
		return types.Failed(ProviderName, err.Error())
	}
	defer s.release()

	out := s.fetch(ctx, doi, destPath)
	switch out.Kind {
	case types.OutcomeSuccess:
		s.state = StateCompleted
	case types.OutcomeRequestable:
		// The exchange ends with the request button surfaced; the
		// choice belongs to the caller.
		s.state = StateAwaitingButtonChoice
	default:
		s.state = StateFailed
	}
	return out
}

func (s *Session) fetch(ctx context.Context, doi, destPath string) types.DownloadOutcome {
	if err := s.ensureAuthorized(ctx); err != nil {
		return types.Failed(ProviderName, fmt.Sprintf("bot session: %v", err))
	}

	s.pending = nil
	if err := s.tr.Send(ctx, doi); err != nil {
		return types.Failed(ProviderName, fmt.Sprintf("sending query: %v", err))
	}
	s.state = StateAwaitingReply

	reply, err := s.awaitReply(ctx)
	if err != nil {
		return types.Failed(ProviderName, err.Error())
	}
	s.state = StateHasReply

	switch reply.Kind {
	case ReplyError:
		return types.NotAvailable(ProviderName)
	case ReplyTerminalList:
		// A DOI query should resolve to one document; a list means
		// the bot did not recognize the identifier.
		return types.NotAvailable(ProviderName)
	}

	action := firstInteractive(reply.Message)
	if action == nil {
		return types.NotAvailable(ProviderName)
	}

	switch Classify(*action) {
	case ActionRequest:
		if !s.cfg.AutoConfirmRequests {
			return types.Requestable(ProviderName, action.Handle)
		}
		if err := s.tr.Invoke(ctx, action.Handle); err != nil {
			return types.Failed(ProviderName, fmt.Sprintf("confirming request: %v", err))
		}
		return types.Requestable(ProviderName, action.Handle)
	case ActionDownload:
		return s.collectAsset(ctx, reply, *action, destPath)
	default:
		return types.NotAvailable(ProviderName)
	}
}

// collectAsset presses the download button and waits for the asset,
// scaling the wait to the advertised size when one was given.
func (s *Session) collectAsset(ctx context.Context, reply Reply, action Action, destPath string) types.DownloadOutcome {
	if err := s.tr.Invoke(ctx, action.Handle); err != nil {
		return types.Failed(ProviderName, fmt.Sprintf("requesting download: %v", err))
	}
	s.state = StateAwaitingAsset

	wait := s.cfg.DefaultAssetWait
	if wait <= 0 {
		wait = 2 * time.Minute
	}
	if reply.SizeBytes > 0 && s.cfg.AssetBytesPerSecond > 0 {
		scaled := time.Duration(reply.SizeBytes/s.cfg.AssetBytesPerSecond+1) * time.Second
		if scaled > wait {
			wait = scaled
		}
	}

	deadline := time.Now().Add(wait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return types.Failed(ProviderName, fmt.Sprintf("asset not delivered within %s", wait))
		}
		msg, err := s.nextMessage(ctx, remaining)
		if err != nil {
			return types.Failed(ProviderName, err.Error())
		}
		if msg.Asset == nil {
			continue // status chatter while the asset is prepared
		}
		n, err := s.tr.Download(ctx, *msg.Asset, destPath)
		if err != nil {
			return types.Failed(ProviderName, fmt.Sprintf("downloading asset: %v", err))
		}
		return types.Success(ProviderName, destPath, n)
	}
}

// Search sends a keyword query and pages through the result list until
// the requested number of hits is collected or pagination is exhausted.
// Each pagination control is pressed at most once.
func (s *Session) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	hits, err := s.search(ctx, query, limit)
	if err != nil {
		s.state = StateFailed
		return nil, err
	}
	s.state = StateCompleted
	return hits, nil
}

func (s *Session) search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = s.cfg.ResultsPerQuery
	}
	if limit <= 0 {
		limit = 10
	}

	if err := s.ensureAuthorized(ctx); err != nil {
		return nil, fmt.Errorf("bot session: %w", err)
	}

	s.pending = nil
	if err := s.tr.Send(ctx, query); err != nil {
		return nil, fmt.Errorf("sending query: %w", err)
	}
	s.state = StateAwaitingReply

	var hits []SearchHit
	seen := make(map[string]bool)  // DOIs already collected
	tried := make(map[string]bool) // pagination handles already pressed

	for {
		reply, err := s.awaitReply(ctx)
		if err != nil {
			return nil, err
		}
		s.state = StateHasReply
		if reply.Kind == ReplyError {
			if len(hits) > 0 {
				return hits, nil
			}
			return nil, fmt.Errorf("bot error: %s", strings.TrimSpace(reply.Message.Text))
		}

		for _, h := range parseHits(reply.Message.Text) {
			if h.DOI != "" && seen[h.DOI] {
				continue
			}
			if h.DOI != "" {
				seen[h.DOI] = true
			}
			hits = append(hits, h)
		}
		if len(hits) >= limit {
			return hits[:limit], nil
		}

		next := paginationAction(reply.Message, tried)
		if next == nil {
			return hits, nil
		}
		tried[next.Handle] = true
		s.state = StateAwaitingPagination
		if err := s.tr.Invoke(ctx, next.Handle); err != nil {
			return nil, fmt.Errorf("requesting next page: %w", err)
		}
	}
}

// parseHits pulls result entries out of a list reply. Entries are
// line-oriented; a line that carries a DOI names the document on the
// nearest preceding title line.
func parseHits(text string) []SearchHit {
	lines := strings.Split(text, "\n")
	var hits []SearchHit
	var title string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			title = ""
			continue
		}
		if found := doi.FindAll(line); len(found) > 0 {
			h := SearchHit{DOI: found[0], Snippet: line}
			if title != "" {
				h.Title = title
			}
			hits = append(hits, h)
			title = ""
			continue
		}
		title = strings.TrimLeft(line, "0123456789.) \t")
	}
	return hits
}
