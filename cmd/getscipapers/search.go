// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hoanganhduc/getscipapers-sub000/internal/bot"
	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [keywords...]",
	Short: "Search the delivery bot by keywords",
	Long: `Search sends a keyword query to the delivery bot and pages through the
result list, printing title and DOI for each hit.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("bot-endpoint", "", "delivery bot websocket endpoint (ws:// or wss://)")
	searchCmd.Flags().Int("limit", 10, "number of results to collect")
	searchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	searchCmd.Flags().String("proxy-candidates", "", "JSON file of proxy candidates to race and route through")
	searchCmd.Flags().StringSlice("exclude-country", nil, "ISO country codes to exclude from proxy candidates")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide search keywords")
	}
	endpoint, _ := cmd.Flags().GetString("bot-endpoint")
	if endpoint == "" {
		return fmt.Errorf("search requires --bot-endpoint")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpCfg := types.HTTPConfig{Timeout: timeout, UserAgent: defaultUserAgent}
	client, netDial, err := buildClient(cmd.Context(), cmd, httpCfg)
	if err != nil {
		return err
	}
	botCfg := types.BotConfig{
		Endpoint:     endpoint,
		SessionToken: secretDefault("bot-session-token", ""),
	}

	tr := bot.NewWSTransport(endpoint, botCfg.SessionToken, httpCfg.UserAgent, netDial, client)
	session := bot.NewSession(tr, nil, botCfg)
	defer session.Close()

	hits, err := session.Search(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, h := range hits {
		title := h.Title
		if title == "" {
			title = h.Snippet
		}
		fmt.Printf("%2d. %s\n", i+1, title)
		if h.DOI != "" {
			fmt.Printf("    doi:%s\n", h.DOI)
		}
	}
	return nil
}
