// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hoanganhduc/getscipapers-sub000/internal/doi"
	"github.com/hoanganhduc/getscipapers-sub000/internal/httputil"
	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

var doiCmd = &cobra.Command{
	Use:   "doi",
	Short: "Extract, normalize, and validate DOIs",
}

var doiExtractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract DOIs from free-form text",
	Long: `Extract scans text (a file, or stdin when no file is given) for DOIs in
canonical, prefixed, URL, and publisher-specific forms, printing one
canonical DOI per line in discovery order. With --validate, each DOI is
checked against the DOI resolver and Crossref, and non-resolving
candidates are dropped.`,
	RunE: runDOIExtract,
}

var doiNormalizeCmd = &cobra.Command{
	Use:   "normalize [identifier]",
	Short: "Normalize one identifier to a canonical DOI",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("provide exactly one identifier")
		}
		d, ok := doi.Normalize(args[0])
		if !ok {
			return fmt.Errorf("not a recognizable DOI: %q", args[0])
		}
		fmt.Println(d)
		return nil
	},
}

func init() {
	doiExtractCmd.Flags().Bool("validate", false, "drop DOIs that do not resolve")
	doiExtractCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")

	doiCmd.AddCommand(doiExtractCmd)
	doiCmd.AddCommand(doiNormalizeCmd)
	rootCmd.AddCommand(doiCmd)
}

func runDOIExtract(cmd *cobra.Command, args []string) error {
	var text []byte
	var err error
	switch len(args) {
	case 0:
		text, err = io.ReadAll(os.Stdin)
	case 1:
		text, err = os.ReadFile(args[0])
	default:
		return fmt.Errorf("provide at most one file")
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	client := httputil.NewClient(types.HTTPConfig{Timeout: timeout, UserAgent: defaultUserAgent}, nil)
	extractor := doi.NewExtractor(client, defaultUserAgent)

	validate, _ := cmd.Flags().GetBool("validate")
	var found []string
	if validate {
		found = extractor.ExtractValidated(cmd.Context(), string(text))
	} else {
		found = extractor.Extract(cmd.Context(), string(text))
	}

	if len(found) == 0 {
		fmt.Fprintln(os.Stderr, "No DOIs found.")
		return nil
	}
	for _, d := range found {
		fmt.Println(d)
	}
	return nil
}
