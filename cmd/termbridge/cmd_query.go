package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"termbridge/internal/query"
)

var (
	queryAll    bool
	queryLoads  []string
	queryRecord string
)

var queryCmd = &cobra.Command{
	Use:   "query GOAL",
	Short: "Run one goal and print its answers",
	Long: `Loads the configured modules plus any --load files, runs GOAL and prints
the first answer, or every answer with --all.`,
	Example: `  termbridge query --load family=family.mg "ancestor(/tom, X)." --all`,
	Args:    cobra.ExactArgs(1),
	RunE:    runQuery,
}

func init() {
	queryCmd.Flags().BoolVarP(&queryAll, "all", "a", false, "Print every answer instead of the first")
	queryCmd.Flags().StringArrayVarP(&queryLoads, "load", "l", nil, "Load a module (name=path, repeatable)")
	queryCmd.Flags().StringVar(&queryRecord, "record", "", "Record the query in this transcript database")
}

func runQuery(cmd *cobra.Command, args []string) error {
	goal := args[0]
	extra, err := parseLoads(queryLoads)
	if err != nil {
		return err
	}

	pool, err := newPool(cfg, extra)
	if err != nil {
		return err
	}
	defer pool.Close()

	recordPath, recordOn := cfg.Transcript.Path, cfg.Transcript.Enabled
	if queryRecord != "" {
		recordPath, recordOn = queryRecord, true
	}
	rec, err := openRecorder(recordPath, recordOn, uuid.NewString())
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	start := time.Now()
	var sols []query.Bindings
	if queryAll {
		sols, err = pool.QueryAll(ctx, goal)
	} else {
		var b query.Bindings
		var ok bool
		b, ok, err = pool.QueryFirst(ctx, goal)
		if ok {
			sols = []query.Bindings{b}
		}
	}
	elapsed := time.Since(start)

	var lines []string
	if err == nil {
		lines = renderAnswers(sols)
	}
	rec.record(context.Background(), goal, lines, err, elapsed)
	logger.Debug("query finished", zap.String("goal", goal), zap.Duration("elapsed", elapsed), zap.Error(err))
	if err != nil {
		return fmt.Errorf("query %s: %w", goal, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), styleAnswers(lines))
	return nil
}
