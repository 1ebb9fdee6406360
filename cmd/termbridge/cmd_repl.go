package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"termbridge/internal/config"
	"termbridge/internal/logging"
	"termbridge/internal/watch"
	"termbridge/internal/worker"
)

const (
	promptMain  = "?- "
	promptCont  = "|  "
	historyFile = ".termbridge_history"
)

var (
	replLoads []string
	replWatch bool
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Run goals interactively",
	Long: `Starts an interactive prompt. Goals end with "." or a blank line.

Commands:
  :load NAME PATH   load a module file
  :history [N]      show the last N recorded queries
  :help             show this help
  :quit             exit`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().StringArrayVarP(&replLoads, "load", "l", nil, "Load a module (name=path, repeatable)")
	replCmd.Flags().BoolVarP(&replWatch, "watch", "w", false, "Reload module files when they change")
}

// repl is the state behind one interactive session.
type repl struct {
	pool     *worker.Pool
	rec      *recorder
	reloader *watch.Reloader
	out      io.Writer
}

func runRepl(cmd *cobra.Command, args []string) error {
	extra, err := parseLoads(replLoads)
	if err != nil {
		return err
	}
	pool, err := newPool(cfg, extra)
	if err != nil {
		return err
	}
	defer pool.Close()

	sessionID := uuid.NewString()
	rec, err := openRecorder(cfg.Transcript.Path, cfg.Transcript.Enabled, sessionID)
	if err != nil {
		return err
	}
	defer rec.Close()

	r := &repl{pool: pool, rec: rec, out: cmd.OutOrStdout()}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()
	if replWatch || cfg.Watch.Enabled {
		if err := r.startWatching(ctx, append(append([]config.ModuleConfig(nil), cfg.Modules...), extra...)); err != nil {
			return err
		}
		defer r.reloader.Stop()
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(r.out, mutedStyle.Render(replBanner(sessionID)))
	for {
		input, ok := readGoal(ln)
		if !ok {
			fmt.Fprintln(r.out)
			return nil
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(input, "\n", " "))
		if r.eval(ctx, input) {
			return nil
		}
	}
}

func replBanner(sessionID string) string {
	lines := []string{
		"termbridge repl. Type :help for commands, :quit to exit.",
		"session " + sessionID,
	}
	if logging.IsDebugMode() {
		dest := "stderr"
		if cfg.Logging.Dir != "" {
			dest = cfg.Logging.Dir
		}
		lines = append(lines, "debug logging to "+dest)
	}
	return strings.Join(lines, "\n")
}

func (r *repl) startWatching(ctx context.Context, mods []config.ModuleConfig) error {
	rl, err := watch.New(r.pool,
		watch.WithDebounce(cfg.GetWatchDebounce()),
		watch.WithReloadHook(func(name string, err error) {
			if err != nil {
				fmt.Fprintln(r.out, errorStyle.Render(fmt.Sprintf("reload %s: %v", name, err)))
				return
			}
			fmt.Fprintln(r.out, mutedStyle.Render("reloaded "+name))
		}))
	if err != nil {
		return err
	}
	for _, m := range mods {
		if err := rl.Add(m.Name, m.Path); err != nil {
			rl.Stop()
			return err
		}
	}
	if err := rl.Start(ctx); err != nil {
		rl.Stop()
		return err
	}
	r.reloader = rl
	return nil
}

// readGoal reads lines until the goal ends with "." or a blank line.
func readGoal(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		trimmed := strings.TrimSpace(line)
		if b.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			return trimmed, true
		}
		if trimmed == "" {
			return b.String(), true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if strings.HasSuffix(trimmed, ".") {
			return b.String(), true
		}
	}
}

// eval runs one command or goal. It reports whether the repl should exit.
func (r *repl) eval(ctx context.Context, input string) bool {
	defer logging.Sync()
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, ":") {
		return r.command(ctx, input)
	}

	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	sols, err := r.pool.QueryAll(qctx, input)
	elapsed := time.Since(start)

	if err != nil {
		r.rec.record(ctx, input, nil, err, elapsed)
		if errors.Is(err, worker.ErrAbandoned) {
			fmt.Fprintln(r.out, errorStyle.Render(fmt.Sprintf("timed out after %s", timeout)))
			return false
		}
		fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		return false
	}
	lines := renderAnswers(sols)
	r.rec.record(ctx, input, lines, nil, elapsed)
	fmt.Fprintln(r.out, styleAnswers(lines))
	return false
}

func (r *repl) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprintln(r.out, replCmd.Long)
	case ":load":
		if len(fields) != 3 {
			fmt.Fprintln(r.out, errorStyle.Render("usage: :load NAME PATH"))
			return false
		}
		m := config.ModuleConfig{Name: fields[1], Path: fields[2]}
		if err := loadFile(r.pool, m); err != nil {
			fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
			return false
		}
		if r.reloader != nil {
			if err := r.reloader.Add(m.Name, m.Path); err != nil {
				logger.Warn("cannot watch module", zap.String("module", m.Name), zap.Error(err))
			}
		}
		fmt.Fprintln(r.out, mutedStyle.Render("loaded "+m.Name))
	case ":history":
		n := 10
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
				n = v
			}
		}
		if r.rec.store == nil {
			fmt.Fprintln(r.out, mutedStyle.Render("transcript disabled"))
			return false
		}
		entries, err := r.rec.store.Recent(ctx, n)
		if err != nil {
			fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
			return false
		}
		printEntries(r.out, entries)
	default:
		fmt.Fprintf(r.out, "unknown command %s. Type :help for commands.\n", fields[0])
	}
	return false
}
