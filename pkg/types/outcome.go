// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// OutcomeKind tags a DownloadOutcome variant.
type OutcomeKind string

const (
	// OutcomeSuccess means a verified file is on disk.
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeNotAvailable means the provider has no copy of the document.
	OutcomeNotAvailable OutcomeKind = "not_available"

	// OutcomeRequestable means the document can be requested from the
	// provider but is not immediately downloadable.
	OutcomeRequestable OutcomeKind = "requestable"

	// OutcomeFailed means the attempt failed (network, timeout,
	// verification, or validation).
	OutcomeFailed OutcomeKind = "failed"
)

// DownloadOutcome is the tagged result of one provider attempt, or the
// terminal result of a whole orchestrated fetch.
type DownloadOutcome struct {
	Kind OutcomeKind `json:"kind" yaml:"kind"`

	// FilePath and SizeBytes are set for OutcomeSuccess.
	FilePath  string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`

	// Provider names the provider that produced this outcome.
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	// ActionHandle is set for OutcomeRequestable: the opaque handle of
	// the provider-side request action.
	ActionHandle string `json:"action_handle,omitempty" yaml:"action_handle,omitempty"`

	// Reason is a human-readable failure reason for OutcomeFailed.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Success builds a success outcome.
func Success(provider, filePath string, sizeBytes int64) DownloadOutcome {
	return DownloadOutcome{Kind: OutcomeSuccess, Provider: provider, FilePath: filePath, SizeBytes: sizeBytes}
}

// NotAvailable builds a not-available outcome.
func NotAvailable(provider string) DownloadOutcome {
	return DownloadOutcome{Kind: OutcomeNotAvailable, Provider: provider}
}

// Requestable builds a requestable outcome.
func Requestable(provider, actionHandle string) DownloadOutcome {
	return DownloadOutcome{Kind: OutcomeRequestable, Provider: provider, ActionHandle: actionHandle}
}

// Failed builds a failed outcome.
func Failed(provider, reason string) DownloadOutcome {
	return DownloadOutcome{Kind: OutcomeFailed, Provider: provider, Reason: reason}
}

// BatchItem pairs one input identifier with its terminal outcome.
type BatchItem struct {
	Input   string          `json:"input" yaml:"input"`
	DOI     string          `json:"doi,omitempty" yaml:"doi,omitempty"`
	Outcome DownloadOutcome `json:"outcome" yaml:"outcome"`
}

// BatchResult holds one entry per input identifier, in input order.
// The entry count always equals the input count, including inputs that
// failed DOI validation.
type BatchResult struct {
	Items []BatchItem `json:"items" yaml:"items"`
}

// Counts returns the number of succeeded, requestable, and failed items.
// Not-available terminal outcomes count as failed.
func (r BatchResult) Counts() (succeeded, requestable, failed int) {
	for _, it := range r.Items {
		switch it.Outcome.Kind {
		case OutcomeSuccess:
			succeeded++
		case OutcomeRequestable:
			requestable++
		default:
			failed++
		}
	}
	return
}

// HasFailures reports whether any item failed.
func (r BatchResult) HasFailures() bool {
	_, _, failed := r.Counts()
	return failed > 0
}
