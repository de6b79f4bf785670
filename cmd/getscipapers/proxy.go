// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoanganhduc/getscipapers-sub000/internal/proxyring"
	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Probe and rank proxy candidates",
	Long: `Proxy races a pool of candidate proxies against a real HTTPS target.
"test" stops at the first working candidate; "rank" probes the whole
pool and prints the fastest candidates by connect latency.`,
}

var proxyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Find the first working proxy in the pool",
	RunE:  runProxyTest,
}

var proxyRankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank proxies by connect latency",
	RunE:  runProxyRank,
}

func init() {
	for _, c := range []*cobra.Command{proxyTestCmd, proxyRankCmd} {
		c.Flags().String("candidates", "proxies.json", "JSON file of proxy candidates")
		c.Flags().Duration("probe-timeout", 10*time.Second, "per-candidate probe timeout")
		c.Flags().Int("workers", 0, "concurrent probes (default 16)")
		c.Flags().StringSlice("exclude-country", nil, "ISO country codes to exclude")
		c.Flags().String("target", "https://doi.org", "URL fetched through each candidate")
	}
	proxyRankCmd.Flags().Int("top", 5, "number of ranked candidates to print")

	proxyCmd.AddCommand(proxyTestCmd)
	proxyCmd.AddCommand(proxyRankCmd)
	rootCmd.AddCommand(proxyCmd)
}

func proxyConfigFromFlags(cmd *cobra.Command) types.ProxyConfig {
	candidates, _ := cmd.Flags().GetString("candidates")
	probeTimeout, _ := cmd.Flags().GetDuration("probe-timeout")
	workers, _ := cmd.Flags().GetInt("workers")
	excluded, _ := cmd.Flags().GetStringSlice("exclude-country")
	return types.ProxyConfig{
		CandidatesFile:    candidates,
		ProbeTimeout:      probeTimeout,
		MaxWorkers:        workers,
		ExcludedCountries: excluded,
	}
}

func runProxyTest(cmd *cobra.Command, args []string) error {
	cfg := proxyConfigFromFlags(cmd)
	target, _ := cmd.Flags().GetString("target")

	engine := proxyring.NewEngine(cfg, proxyring.ConnectProbe(target, defaultUserAgent))
	cand, err := engine.Working(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", cand, cand.Latency.Round(time.Millisecond))
	return nil
}

func runProxyRank(cmd *cobra.Command, args []string) error {
	cfg := proxyConfigFromFlags(cmd)
	target, _ := cmd.Flags().GetString("target")
	top, _ := cmd.Flags().GetInt("top")

	cands, err := proxyring.LoadCandidates(cfg.CandidatesFile)
	if err != nil {
		return err
	}
	cands = proxyring.FilterExcluded(cands, cfg.ExcludedCountries)

	ranked, err := proxyring.RankFastest(cmd.Context(), cands,
		proxyring.ConnectProbe(target, defaultUserAgent), top, cfg.MaxWorkers, cfg.ProbeTimeout)
	if err != nil {
		return err
	}
	for i, c := range ranked {
		fmt.Printf("%2d. %s (%s)\n", i+1, c, c.Latency.Round(time.Millisecond))
	}
	return nil
}
