// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the getscipapers CLI: scholarly
// document acquisition by DOI across open-access, mirror, and bot
// providers, with proxy discovery and an acquisition history.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hoanganhduc/getscipapers-sub000/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret value
// for key if one was loaded.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the getscipapers CLI.
var rootCmd = &cobra.Command{
	Use:   "getscipapers",
	Short: "Acquire scholarly documents by DOI",
	Long: `getscipapers resolves DOIs to PDF files and downloads them through an
ordered chain of providers: the open-access route (Unpaywall/OpenAlex),
direct HTTP mirrors, and a conversational delivery bot. Downloads are
verified against expected page counts and every attempt is recorded in
a local acquisition history.

Each stage is a subcommand: fetch, search, doi, proxy, and store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./getscipapers.yaml or ~/.config/getscipapers/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("getscipapers")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "getscipapers"))
		}
	}

	viper.SetEnvPrefix("GETSCIPAPERS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
