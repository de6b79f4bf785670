// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "getscipapers/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the acquisition pipeline.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadDir is the base directory for downloaded papers
	// (contains raw/ and metadata/).
	DownloadDir string `json:"download_dir" yaml:"download_dir"`

	// DownloadDelay is the delay between consecutive batch items (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// UnpaywallEmail identifies the caller to the Unpaywall API.
	UnpaywallEmail string `json:"unpaywall_email,omitempty" yaml:"unpaywall_email,omitempty"`

	// CrossrefMailto identifies the caller to the Crossref polite pool.
	CrossrefMailto string `json:"crossref_mailto,omitempty" yaml:"crossref_mailto,omitempty"`

	// Providers lists provider names in priority order. An empty list
	// means the built-in default order.
	Providers []string `json:"providers,omitempty" yaml:"providers,omitempty"`
}

// ProxyConfig holds settings for proxy discovery and racing.
type ProxyConfig struct {
	// CandidatesFile is a JSON file of proxy candidate records.
	CandidatesFile string `json:"candidates_file" yaml:"candidates_file"`

	// ProbeTimeout bounds each individual connectivity probe (default 10s).
	ProbeTimeout time.Duration `json:"probe_timeout" yaml:"probe_timeout"`

	// MaxWorkers caps concurrent probes (default 16).
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`

	// ExcludedCountries lists ISO country codes filtered out before testing.
	ExcludedCountries []string `json:"excluded_countries,omitempty" yaml:"excluded_countries,omitempty"`
}

// BotConfig holds settings for the conversational provider session.
type BotConfig struct {
	// Endpoint is the bot transport endpoint (ws:// or wss:// URL).
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// SessionToken is the persisted session blob reused across invocations.
	SessionToken string `json:"session_token,omitempty" yaml:"session_token,omitempty"`

	// ReplyTimeout bounds the wait for a terminal reply (default 30s).
	ReplyTimeout time.Duration `json:"reply_timeout" yaml:"reply_timeout"`

	// InterimTimeout extends the wait after an interim "still searching"
	// message (default 90s).
	InterimTimeout time.Duration `json:"interim_timeout" yaml:"interim_timeout"`

	// PollInterval is the granularity of the reply wait loop (default 500ms).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// AssetBytesPerSecond scales the asset-wait timeout to the advertised
	// file size (default 64 KiB/s).
	AssetBytesPerSecond int64 `json:"asset_bytes_per_second" yaml:"asset_bytes_per_second"`

	// DefaultAssetWait is the asset-wait timeout used when no size is
	// advertised (default 2m).
	DefaultAssetWait time.Duration `json:"default_asset_wait" yaml:"default_asset_wait"`

	// ResultsPerQuery is the result count requested from keyword queries
	// (default 10).
	ResultsPerQuery int `json:"results_per_query" yaml:"results_per_query"`

	// AutoConfirmRequests controls whether a "request" button is pressed
	// without asking the caller.
	AutoConfirmRequests bool `json:"auto_confirm_requests" yaml:"auto_confirm_requests"`
}

// StoreConfig holds settings for the acquisition history database.
type StoreConfig struct {
	// HistoryDir is the directory holding the history database
	// (default "<download_dir>/index").
	HistoryDir string `json:"history_dir" yaml:"history_dir"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Fetch FetchConfig `json:"fetch" yaml:"fetch"`
	Proxy ProxyConfig `json:"proxy" yaml:"proxy"`
	Bot   BotConfig   `json:"bot" yaml:"bot"`
	Store StoreConfig `json:"store" yaml:"store"`
}
