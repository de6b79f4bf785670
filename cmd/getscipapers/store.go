// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoanganhduc/getscipapers-sub000/internal/doi"
	"github.com/hoanganhduc/getscipapers-sub000/internal/store"
	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Query the acquisition history",
	Long: `Store queries the local SQLite acquisition history: every provider
attempt ever recorded, and the latest status per DOI.`,
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent acquisition attempts",
	RunE:  runStoreList,
}

var storeStatusCmd = &cobra.Command{
	Use:   "status [dois...]",
	Short: "Show the latest outcome per DOI",
	RunE:  runStoreStatus,
}

func init() {
	for _, c := range []*cobra.Command{storeListCmd, storeStatusCmd} {
		c.Flags().String("download-dir", "papers", "base directory for downloads")
	}
	storeListCmd.Flags().Int("limit", 20, "number of attempts to list")
	storeListCmd.Flags().String("doi", "", "restrict to one DOI's full history")

	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeStatusCmd)
	rootCmd.AddCommand(storeCmd)
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	downloadDir, _ := cmd.Flags().GetString("download-dir")
	return store.NewStore(types.StoreConfig{HistoryDir: historyDir(downloadDir)})
}

func runStoreList(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var attempts []store.Attempt
	if d, _ := cmd.Flags().GetString("doi"); d != "" {
		attempts, err = s.History(d)
	} else {
		limit, _ := cmd.Flags().GetInt("limit")
		attempts, err = s.Recent(limit)
	}
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Println("No recorded attempts.")
		return nil
	}
	for _, a := range attempts {
		fmt.Printf("%s  %-12s %-12s %s", a.At.Format(time.RFC3339), a.Provider, a.Kind, a.DOI)
		if a.Reason != "" {
			fmt.Printf("  (%s)", a.Reason)
		}
		fmt.Println()
	}
	return nil
}

func runStoreStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more DOIs")
	}
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	dois := make([]string, 0, len(args))
	for _, in := range args {
		d, ok := doi.Normalize(in)
		if !ok {
			fmt.Printf("%-40s invalid DOI\n", in)
			continue
		}
		dois = append(dois, d)
	}

	status, err := s.Status(dois)
	if err != nil {
		return err
	}
	for _, d := range dois {
		kind, ok := status[d]
		if !ok {
			fmt.Printf("%-40s never attempted\n", d)
			continue
		}
		fmt.Printf("%-40s %s\n", d, kind)
	}
	return nil
}
