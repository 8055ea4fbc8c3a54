package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"math-bot/api/internal/calc"
	"math-bot/api/internal/config"
	"math-bot/api/internal/equation"
	"math-bot/api/internal/store"
	"math-bot/api/internal/tui"
)

var (
	solveVars map[string]string

	historyChat  int64
	historyLimit int
	historyPurge time.Duration
)

var reduceCmd = &cobra.Command{
	Use:   "reduce <expression>",
	Short: "Reduce an arithmetic expression and print every step",
	Example: `  mathbot reduce "2+3*4"
  mathbot reduce 8/2/2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := strings.Join(args, "")
		red, err := calc.Evaluate(expr)
		if err != nil {
			return fmt.Errorf("reduce %q: %w", expr, err)
		}
		renderSteps(cmd.OutOrStdout(), calc.Normalize(expr), red.Steps)
		fmt.Fprintln(cmd.OutOrStdout(), "=", red.String())
		return nil
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve <shape> [equation]",
	Short: "Solve a fixed-shape equation",
	Long: `Shapes: linear2 (y = mx + b), linear3 (y = x(a + b) / (c + d)),
quadratic (y = ax^2 + bx + c), abcd ((a + b * c) / d).

Give either the equation text or the values with --var.`,
	Example: `  mathbot solve linear2 "10 = 2x + 4"
  mathbot solve quadratic --var y=0 --var a=1 --var b=-3 --var c=2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		shape, err := equation.ParseShape(args[0])
		if err != nil {
			return err
		}
		var bag map[string]any
		if len(solveVars) > 0 {
			bag = make(map[string]any, len(solveVars))
			for k, v := range solveVars {
				bag[strings.ToLower(k)] = v
			}
		}
		sol, err := equation.SolveBag(shape, strings.Join(args[1:], " "), bag)
		if err != nil {
			if errors.Is(err, equation.ErrInvalidEquation) {
				return fmt.Errorf("%w, expected %s", err, shape.Format())
			}
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s: %s\n", shape.Title(), shape.LaTeX(sol.Variables))
		renderSteps(w, "", sol.Steps)
		fmt.Fprintln(w, "Answer:", sol.Answer())
		return nil
	},
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Interactive keypad calculator in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		last, err := tui.Run()
		if err != nil {
			return err
		}
		logger.Debug("calculator closed", zap.String("expression", last))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show (or purge) the stored results of a chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return errors.New("database_url is not configured")
		}
		ctx := cmd.Context()
		db, err := openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := store.NewHistoryRepo(db)

		if historyPurge > 0 {
			n, err := repo.PurgeOlderThan(ctx, historyPurge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries\n", n)
			return nil
		}
		if historyChat == 0 {
			return errors.New("--chat is required")
		}
		entries, err := repo.Recent(ctx, historyChat, historyLimit)
		if err != nil {
			return err
		}
		renderHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return errors.New("database_url is not configured")
		}
		ctx := cmd.Context()
		db, err := openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		v, err := store.MigrationVersion(ctx, db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
		return nil
	},
}

func renderSteps(w io.Writer, input string, steps []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Step"})
	if input != "" {
		t.AppendRow(table.Row{0, input})
	}
	for i, s := range steps {
		t.AppendRow(table.Row{i + 1, s})
	}
	t.Render()
}

func renderHistory(w io.Writer, entries []store.Entry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"When", "Kind", "Shape", "Input", "Result"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Kind, e.Shape, e.Input, e.Result})
	}
	t.Render()
}
