// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoanganhduc/getscipapers-sub000/internal/biblio"
	"github.com/hoanganhduc/getscipapers-sub000/internal/bot"
	"github.com/hoanganhduc/getscipapers-sub000/internal/fetch"
	"github.com/hoanganhduc/getscipapers-sub000/internal/httputil"
	"github.com/hoanganhduc/getscipapers-sub000/internal/openaccess"
	"github.com/hoanganhduc/getscipapers-sub000/internal/proxyring"
	"github.com/hoanganhduc/getscipapers-sub000/internal/store"
	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultDelay     = 1 * time.Second
	defaultUserAgent = "getscipapers/0.1"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [identifiers...]",
	Short: "Download documents by DOI through the provider chain",
	Long: `Fetch normalizes each identifier to a DOI and drives it through the
provider chain: open-access first when Unpaywall says the document is
open, then direct mirrors and the delivery bot in order. Existing
verified downloads are skipped, and every attempt is recorded in the
acquisition history.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	fetchCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	fetchCmd.Flags().String("download-dir", "papers", "base directory for downloads")
	fetchCmd.Flags().StringArray("mirror", nil, "direct mirror as name=urlTemplate (repeatable; %s is the DOI)")
	fetchCmd.Flags().String("bot-endpoint", "", "delivery bot websocket endpoint (ws:// or wss://)")
	fetchCmd.Flags().Bool("auto-confirm", false, "press request buttons without asking")
	fetchCmd.Flags().String("proxy-candidates", "", "JSON file of proxy candidates to race and route through")
	fetchCmd.Flags().StringSlice("exclude-country", nil, "ISO country codes to exclude from proxy candidates")
	fetchCmd.Flags().Bool("no-store", false, "skip recording attempts in the history database")
	fetchCmd.Flags().String("unpaywall-email", "", "email for the Unpaywall API (default: unpaywall-email secret)")
	fetchCmd.Flags().String("crossref-mailto", "", "email for the Crossref polite pool (default: crossref-mailto secret)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more document identifiers (DOIs or DOI URLs)")
	}
	ctx := cmd.Context()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = defaultDelay
	}
	downloadDir, _ := cmd.Flags().GetString("download-dir")
	unpaywallEmail, _ := cmd.Flags().GetString("unpaywall-email")
	crossrefMailto, _ := cmd.Flags().GetString("crossref-mailto")

	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		DownloadDir:    downloadDir,
		DownloadDelay:  delay,
		UnpaywallEmail: secretDefault("unpaywall-email", unpaywallEmail),
		CrossrefMailto: secretDefault("crossref-mailto", crossrefMailto),
	}

	client, netDial, err := buildClient(ctx, cmd, cfg.HTTPConfig)
	if err != nil {
		return err
	}

	oaResolver := openaccess.NewResolver(client, cfg)
	oaProvider := fetch.NewOAProvider(oaResolver, client, cfg.UserAgent)
	lookup := biblio.NewLookup(client, cfg)

	providers, session, err := buildProviders(cmd, client, netDial, cfg)
	if err != nil {
		return err
	}
	if session != nil {
		defer session.Close()
	}

	var recorder fetch.Recorder
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		st, err := store.NewStore(types.StoreConfig{HistoryDir: historyDir(downloadDir)})
		if err != nil {
			return err
		}
		defer st.Close()
		recorder = st
	}

	o := fetch.NewOrchestrator(oaResolver, oaProvider, providers, lookup, recorder, cfg, os.Stdout)
	result := o.Batch(ctx, args)
	if result.HasFailures() {
		_, _, failed := result.Counts()
		return fmt.Errorf("%d document(s) failed acquisition", failed)
	}
	return nil
}

// buildClient constructs the HTTP client, routed through a raced proxy
// when a candidates file is given. The returned dial function routes a
// raw connection through the same candidate so the bot websocket shares
// the selected path; it is nil when no proxy is in play.
func buildClient(ctx context.Context, cmd *cobra.Command, httpCfg types.HTTPConfig) (*http.Client, proxyring.DialFunc, error) {
	candidatesFile, _ := cmd.Flags().GetString("proxy-candidates")
	if candidatesFile == "" {
		return httputil.NewClient(httpCfg, nil), nil, nil
	}

	excluded, _ := cmd.Flags().GetStringSlice("exclude-country")
	pcfg := types.ProxyConfig{
		CandidatesFile:    candidatesFile,
		ExcludedCountries: excluded,
	}
	engine := proxyring.NewEngine(pcfg, proxyring.ConnectProbe("https://doi.org", httpCfg.UserAgent))
	cand, err := engine.Working(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("selecting proxy: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Routing through proxy %s\n", cand)

	transport, err := proxyring.Transport(cand)
	if err != nil {
		return nil, nil, err
	}
	netDial, err := proxyring.ContextDial(cand)
	if err != nil {
		return nil, nil, err
	}
	return httputil.NewClient(httpCfg, transport), netDial, nil
}

// buildProviders assembles the general provider list in order: mirrors
// as given, then the bot when an endpoint is configured. netDial, when
// non-nil, routes the bot websocket through the selected proxy.
func buildProviders(cmd *cobra.Command, client *http.Client, netDial proxyring.DialFunc, cfg types.FetchConfig) ([]fetch.Provider, *bot.Session, error) {
	var providers []fetch.Provider

	mirrors, _ := cmd.Flags().GetStringArray("mirror")
	for i, m := range mirrors {
		name, tmpl, ok := strings.Cut(m, "=")
		if !ok || !strings.Contains(tmpl, "%s") {
			return nil, nil, fmt.Errorf("mirror %q: want name=urlTemplate with a %%s verb", m)
		}
		tag := fmt.Sprintf("m%d", i+1)
		providers = append(providers, fetch.NewMirrorProvider(name, tag, tmpl, client, cfg.UserAgent))
	}

	endpoint, _ := cmd.Flags().GetString("bot-endpoint")
	if endpoint == "" {
		return providers, nil, nil
	}
	autoConfirm, _ := cmd.Flags().GetBool("auto-confirm")
	botCfg := types.BotConfig{
		Endpoint:            endpoint,
		SessionToken:        secretDefault("bot-session-token", ""),
		AutoConfirmRequests: autoConfirm,
	}
	tr := bot.NewWSTransport(endpoint, botCfg.SessionToken, cfg.UserAgent, netDial, client)
	session := bot.NewSession(tr, nil, botCfg)
	providers = append(providers, fetch.NewBotProvider(session))
	return providers, session, nil
}

func historyDir(downloadDir string) string {
	return downloadDir + "/index"
}
