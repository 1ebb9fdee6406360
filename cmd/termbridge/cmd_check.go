package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"termbridge/internal/mangle"
	"termbridge/internal/session"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Check that module files load",
	Long: `Loads each file into a fresh engine and reports whether it was accepted,
with the facts and strata its evaluation produced. Exits non-zero if any
file fails to load.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	checked := 0

	for _, pattern := range args {
		// Handle glob expansion (if shell didn't already)
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, path := range matches {
			checked++
			eng := mangle.NewEngine(engineConfig(cfg))
			s := session.New(eng)
			if err := s.LoadModuleFromFile(moduleName(path), path); err != nil {
				failed++
				fmt.Fprintf(out, "%s %s: %v\n", errorStyle.Render("FAIL"), path, err)
				continue
			}
			st := eng.Stats()
			fmt.Fprintf(out, "%s %s %s\n", answerStyle.Render("ok  "), path,
				mutedStyle.Render(fmt.Sprintf("(%d facts, %d predicates, %d strata)", st.TotalFacts, len(st.PredicateCounts), st.Strata)))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to load", failed, checked)
	}
	return nil
}
