package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"termbridge/internal/transcript"
)

var (
	historyLimit   int
	historySession string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently recorded queries",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().StringVarP(&historySession, "session", "s", "", "Show every entry of one session instead")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := transcript.Open(cfg.Transcript.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := commandContext(cmd)
	var entries []transcript.Entry
	if historySession != "" {
		entries, err = store.Session(ctx, historySession)
		// Session lists oldest first; printEntries wants newest first.
		slices.Reverse(entries)
	} else {
		entries, err = store.Recent(ctx, historyLimit)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no recorded queries in "+store.Path()))
		return nil
	}
	printEntries(cmd.OutOrStdout(), entries)
	return nil
}

// printEntries writes entries oldest first, the way they were typed.
func printEntries(w io.Writer, entries []transcript.Entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		header := fmt.Sprintf("%s  %s  %s  (%s)", e.At.Format("2006-01-02 15:04:05"), e.SessionID, e.Query, e.Duration.Round(time.Microsecond))
		fmt.Fprintln(w, mutedStyle.Render(header))
		if e.Err != "" {
			fmt.Fprintln(w, "  "+errorStyle.Render(e.Err))
			continue
		}
		fmt.Fprintln(w, "  "+strings.Join(e.Answers, "\n  "))
	}
}
