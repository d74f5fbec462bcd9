package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/markcrawl/internal/config"
	"github.com/nao1215/markcrawl/internal/database"
	"github.com/spf13/cobra"
)

// historyTimeLayout is how session times are printed.
const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command and its subcommands.
// Crawls are stored with 'markcrawl crawl --save'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect crawls saved in the history database",
		Long: `History lists, shows and deletes crawls saved with 'markcrawl crawl --save'.

A crawl is addressed by its ID or any unique prefix of it.

Examples:
  # List the 20 most recent crawls
  markcrawl history list

  # List the pages of a crawl
  markcrawl history show 3f2a

  # Print the stored Markdown of one page
  markcrawl history show 3f2a https://example.com/docs/

  # Delete a crawl and its pages
  markcrawl history delete 3f2a`,
	}

	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved crawls, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryListCmd,
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of crawls to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <crawl-id> [url]",
		Short: "Show the pages of a saved crawl, or the Markdown of one page",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runHistoryShowCmd,
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <crawl-id>",
		Short: "Delete a saved crawl and its pages",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDeleteCmd,
	}
}

// openHistory opens the existing history database.
func openHistory(cmd *cobra.Command) (*database.CrawlDB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("no crawl history in %s (use 'markcrawl crawl --save' to record one)", dbDir)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// sessionJSON is the JSON form of a saved crawl.
type sessionJSON struct {
	ID          string    `json:"id"`
	SeedURL     string    `json:"seed_url"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	PageCount   int       `json:"page_count"`
	FailedCount int       `json:"failed_count"`
}

func runHistoryListCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := db.ListSessions(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list crawls: %w", err)
	}

	out := cmd.OutOrStdout()

	if jsonOutput {
		items := make([]sessionJSON, 0, len(sessions))
		for _, s := range sessions {
			items = append(items, sessionJSON(s))
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(items)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No saved crawls found.")
		fmt.Fprintln(out, "\nUse 'markcrawl crawl --save <url>' to record one.")
		return nil
	}

	printSessions(out, sessions)
	return nil
}

// printSessions writes sessions as an aligned table.
func printSessions(w io.Writer, sessions []database.Session) {
	fmt.Fprintf(w, "Saved crawls (%d):\n\n", len(sessions))
	fmt.Fprintf(w, "  %-8s  %-19s  %5s  %6s  %s\n", "ID", "Started", "Pages", "Failed", "Seed")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 72))

	for _, s := range sessions {
		fmt.Fprintf(w, "  %-8s  %-19s  %5d  %6d  %s\n",
			shortID(s.ID),
			s.StartedAt.Local().Format(historyTimeLayout),
			s.PageCount,
			s.FailedCount,
			s.SeedURL,
		)
	}

	fmt.Fprintln(w, "\nUse 'markcrawl history show <id>' to list the pages of a crawl.")
}

func runHistoryShowCmd(cmd *cobra.Command, args []string) error {
	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	session, err := findSession(cmd, db, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if len(args) == 2 {
		page, err := db.GetPage(ctx, session.ID, args[1])
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("page %s is not part of crawl %s", args[1], shortID(session.ID))
			}
			return fmt.Errorf("failed to load page: %w", err)
		}
		_, err = io.WriteString(out, page.Markdown+"\n")
		return err
	}

	pages, err := db.GetSessionPages(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load pages: %w", err)
	}

	fmt.Fprintf(out, "Crawl %s\n", session.ID)
	fmt.Fprintf(out, "  Seed:     %s\n", session.SeedURL)
	fmt.Fprintf(out, "  Started:  %s\n", session.StartedAt.Local().Format(historyTimeLayout))
	fmt.Fprintf(out, "  Duration: %s\n", session.FinishedAt.Sub(session.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(out, "  Pages:    %d (%d failed)\n\n", session.PageCount, session.FailedCount)

	for _, p := range pages {
		title := p.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(out, "  [%d] %s\n      %s\n", p.Depth, p.URL, title)
	}

	return nil
}

func runHistoryDeleteCmd(cmd *cobra.Command, args []string) error {
	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	session, err := findSession(cmd, db, args[0])
	if err != nil {
		return err
	}

	if err := db.DeleteSession(cmd.Context(), session.ID); err != nil {
		return fmt.Errorf("failed to delete crawl: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted crawl %s (%d page(s))\n", session.ID, session.PageCount)
	return nil
}

// findSession resolves an ID prefix with a friendly error.
func findSession(cmd *cobra.Command, db *database.CrawlDB, prefix string) (*database.Session, error) {
	session, err := db.FindSession(cmd.Context(), prefix)
	switch {
	case errors.Is(err, database.ErrAmbiguousID):
		return nil, fmt.Errorf("crawl ID prefix %q matches several crawls; use more characters", prefix)
	case errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("no crawl matches %q", prefix)
	case err != nil:
		return nil, fmt.Errorf("failed to find crawl: %w", err)
	}
	return session, nil
}

// shortID returns the first eight characters of a crawl ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
