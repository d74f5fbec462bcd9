package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for markcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markcrawl",
		Short: "Convert web pages and whole sites to Markdown",
		Long: `markcrawl fetches HTML pages and converts them to clean Markdown.

It converts single pages, crawls a site breadth-first within one host,
and serves both operations over a small HTTP API.

Per-site cookies, headers and crawl patterns are read from a .markcrawl
file in the current or home directory. Run 'markcrawl init' to create one.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .markcrawl in current or home directory)")

	cmd.AddCommand(NewConvertCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
