// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

// fakeProvider scripts one acquisition route and counts invocations.
type fakeProvider struct {
	name    string
	tag     string
	calls   int
	outcome func(destPath string) types.DownloadOutcome
}

func (p *fakeProvider) Name() string { return p.name }
func (p *fakeProvider) Tag() string  { return p.tag }

func (p *fakeProvider) Attempt(ctx context.Context, doi, destPath string) types.DownloadOutcome {
	p.calls++
	return p.outcome(destPath)
}

// succeeds writes a file at destPath and reports success, the way a
// real provider leaves a download on disk.
func succeeds(t *testing.T, name string) func(string) types.DownloadOutcome {
	return func(destPath string) types.DownloadOutcome {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(destPath, []byte("%PDF-1.4 stub"), 0o644); err != nil {
			t.Fatal(err)
		}
		return types.Success(name, destPath, 13)
	}
}

func notAvailable(name string) func(string) types.DownloadOutcome {
	return func(string) types.DownloadOutcome { return types.NotAvailable(name) }
}

func fails(name, reason string) func(string) types.DownloadOutcome {
	return func(string) types.DownloadOutcome { return types.Failed(name, reason) }
}

type fakeOA struct{ open bool }

func (f fakeOA) IsOpenAccess(ctx context.Context, doi string) bool { return f.open }

type fakeMetadata struct{ record types.DocumentRecord }

func (f fakeMetadata) Record(ctx context.Context, doi string) (types.DocumentRecord, error) {
	return f.record, nil
}

type memRecorder struct {
	attempts []types.DownloadOutcome
}

func (r *memRecorder) RecordAttempt(doi string, out types.DownloadOutcome) error {
	r.attempts = append(r.attempts, out)
	return nil
}

// withVerify substitutes the file verifier for the duration of a test.
func withVerify(t *testing.T, fn func(path string, pages int) error) {
	t.Helper()
	orig := verifyFile
	verifyFile = fn
	t.Cleanup(func() { verifyFile = orig })
}

func passVerify(string, int) error { return nil }

func newTestOrchestrator(t *testing.T, oa OAChecker, oaProv Provider, providers []Provider, rec Recorder) *Orchestrator {
	t.Helper()
	cfg := types.FetchConfig{DownloadDir: t.TempDir()}
	return NewOrchestrator(oa, oaProv, providers, fakeMetadata{}, rec, cfg, &bytes.Buffer{})
}

func TestFetchOpenAccessShortCircuitsEverything(t *testing.T) {
	withVerify(t, passVerify)

	oaProv := &fakeProvider{name: "openaccess", tag: "oa"}
	oaProv.outcome = succeeds(t, "openaccess")
	a := &fakeProvider{name: "a", tag: "a", outcome: notAvailable("a")}

	o := newTestOrchestrator(t, fakeOA{open: true}, oaProv, []Provider{a}, nil)
	out := o.Fetch(context.Background(), "10.1000/xyz123")

	if out.Kind != types.OutcomeSuccess || out.Provider != "openaccess" {
		t.Fatalf("outcome = %+v, want openaccess success", out)
	}
	if oaProv.calls != 1 {
		t.Errorf("oa provider called %d times, want 1", oaProv.calls)
	}
	if a.calls != 0 {
		t.Errorf("general provider called %d times, want 0", a.calls)
	}
}

func TestFetchFallsThroughWhenOpenAccessFails(t *testing.T) {
	withVerify(t, passVerify)

	oaProv := &fakeProvider{name: "openaccess", tag: "oa", outcome: fails("openaccess", "dead link")}
	a := &fakeProvider{name: "a", tag: "a"}
	a.outcome = succeeds(t, "a")

	o := newTestOrchestrator(t, fakeOA{open: true}, oaProv, []Provider{a}, nil)
	out := o.Fetch(context.Background(), "10.1000/xyz123")

	if out.Kind != types.OutcomeSuccess || out.Provider != "a" {
		t.Fatalf("outcome = %+v, want success from a", out)
	}
	if oaProv.calls != 1 || a.calls != 1 {
		t.Errorf("calls = oa:%d a:%d, want 1 each", oaProv.calls, a.calls)
	}
}

func TestFetchOrderedFallbackFirstSuccessWins(t *testing.T) {
	withVerify(t, passVerify)

	a := &fakeProvider{name: "a", tag: "a", outcome: notAvailable("a")}
	b := &fakeProvider{name: "b", tag: "b", outcome: fails("b", "connection refused")}
	c := &fakeProvider{name: "c", tag: "c"}
	c.outcome = succeeds(t, "c")
	d := &fakeProvider{name: "d", tag: "d"}
	d.outcome = succeeds(t, "d")
	rec := &memRecorder{}

	oaProv := &fakeProvider{name: "openaccess", tag: "oa", outcome: notAvailable("openaccess")}
	o := newTestOrchestrator(t, fakeOA{open: false}, oaProv, []Provider{a, b, c, d}, rec)
	out := o.Fetch(context.Background(), "10.1000/xyz123")

	if out.Kind != types.OutcomeSuccess || out.Provider != "c" {
		t.Fatalf("outcome = %+v, want success from c", out)
	}
	if oaProv.calls != 0 {
		t.Errorf("oa provider called %d times when closed, want 0", oaProv.calls)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("calls = a:%d b:%d c:%d, want 1 each", a.calls, b.calls, c.calls)
	}
	if d.calls != 0 {
		t.Errorf("provider after the winner called %d times, want 0", d.calls)
	}
	// Every attempt is recorded, not just the winner.
	if len(rec.attempts) != 3 {
		t.Errorf("recorded %d attempts, want 3", len(rec.attempts))
	}
}

func TestFetchVerificationFailureAdvancesChain(t *testing.T) {
	calls := 0
	withVerify(t, func(path string, pages int) error {
		calls++
		if calls == 1 {
			os.Remove(path)
			return os.ErrInvalid
		}
		return nil
	})

	a := &fakeProvider{name: "a", tag: "a"}
	a.outcome = succeeds(t, "a")
	b := &fakeProvider{name: "b", tag: "b"}
	b.outcome = succeeds(t, "b")
	rec := &memRecorder{}

	o := newTestOrchestrator(t, nil, nil, []Provider{a, b}, rec)
	out := o.Fetch(context.Background(), "10.1000/xyz123")

	if out.Kind != types.OutcomeSuccess || out.Provider != "b" {
		t.Fatalf("outcome = %+v, want success from b after a failed verification", out)
	}
	if rec.attempts[0].Kind != types.OutcomeFailed {
		t.Errorf("first recorded attempt = %+v, want failed", rec.attempts[0])
	}
}

func TestFetchExhaustionIsFailed(t *testing.T) {
	a := &fakeProvider{name: "a", tag: "a", outcome: notAvailable("a")}
	b := &fakeProvider{name: "b", tag: "b", outcome: fails("b", "timeout")}

	o := newTestOrchestrator(t, nil, nil, []Provider{a, b}, nil)
	out := o.Fetch(context.Background(), "10.1000/xyz123")
	if out.Kind != types.OutcomeFailed {
		t.Fatalf("outcome = %+v, want failed after exhaustion", out)
	}
}

func TestFetchRequestableSurvivesExhaustion(t *testing.T) {
	a := &fakeProvider{name: "a", tag: "a", outcome: notAvailable("a")}
	b := &fakeProvider{name: "b", tag: "b"}
	b.outcome = func(string) types.DownloadOutcome { return types.Requestable("b", "req_1") }

	o := newTestOrchestrator(t, nil, nil, []Provider{a, b}, nil)
	out := o.Fetch(context.Background(), "10.1000/xyz123")
	if out.Kind != types.OutcomeRequestable || out.ActionHandle != "req_1" {
		t.Fatalf("outcome = %+v, want requestable req_1", out)
	}
}

func TestFetchSkipsExistingDownload(t *testing.T) {
	withVerify(t, passVerify)

	a := &fakeProvider{name: "a", tag: "a"}
	a.outcome = succeeds(t, "a")
	o := newTestOrchestrator(t, nil, nil, []Provider{a}, nil)

	first := o.Fetch(context.Background(), "10.1000/xyz123")
	if first.Kind != types.OutcomeSuccess {
		t.Fatalf("first fetch = %+v", first)
	}
	second := o.Fetch(context.Background(), "10.1000/xyz123")
	if second.Kind != types.OutcomeSuccess {
		t.Fatalf("second fetch = %+v", second)
	}
	if a.calls != 1 {
		t.Errorf("provider called %d times, want 1 (second fetch skips)", a.calls)
	}
}

func TestFetchWritesMetadataForWinner(t *testing.T) {
	withVerify(t, passVerify)

	a := &fakeProvider{name: "a", tag: "a"}
	a.outcome = succeeds(t, "a")
	cfg := types.FetchConfig{DownloadDir: t.TempDir()}
	meta := fakeMetadata{record: types.DocumentRecord{DOI: "10.1000/xyz123", Title: "Quantum Widgets"}}
	o := NewOrchestrator(nil, nil, []Provider{a}, meta, nil, cfg, &bytes.Buffer{})

	out := o.Fetch(context.Background(), "10.1000/xyz123")
	if out.Kind != types.OutcomeSuccess {
		t.Fatalf("fetch = %+v", out)
	}

	metaPath := filepath.Join(cfg.DownloadDir, "metadata", "10.1000-xyz123.yaml")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("reading metadata: %v", err)
	}
	if !bytes.Contains(data, []byte("Quantum Widgets")) {
		t.Errorf("metadata missing title: %s", data)
	}
}
