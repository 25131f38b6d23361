package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stockdash/internal/app"
	"stockdash/internal/config"
	"stockdash/internal/logger"
	"stockdash/internal/present"
	"stockdash/internal/provider"
	"stockdash/internal/watchlist"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type env struct {
	configPath string
	timeout    time.Duration
	verbose    bool
	app        *app.App
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "fetch",
		Short:        "Query market data from the command line and print JSON",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(e.configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log := zap.NewNop()
			if e.verbose {
				if log, err = logger.New("debug", "console"); err != nil {
					return err
				}
			}
			e.app = app.New(cfg, log)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", os.Getenv("CONFIG_FILE"), "path to stockdash.yaml or .json (optional)")
	root.PersistentFlags().DurationVar(&e.timeout, "timeout", 30*time.Second, "overall deadline")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		quoteCmd(e),
		batchCmd(e),
		searchCmd(e),
		newsCmd(e),
		indicesCmd(e),
		pennyCmd(e),
	)
	return root
}

func (e *env) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.timeout)
}

func quoteCmd(e *env) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Profile, key metrics and price history of one symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := provider.ParsePeriod(period)
			if err != nil {
				return err
			}
			ctx, cancel := e.context(cmd)
			defer cancel()

			res := e.app.Market.FetchProfileAndHistory(ctx, args[0], p)
			if !res.Ok() {
				return fmt.Errorf("%s: %s", res.Status, res.Reason)
			}
			return printJSON(cmd.OutOrStdout(), struct {
				Profile provider.Profile `json:"profile"`
				Metrics present.Table    `json:"metrics"`
				Bars    int              `json:"bars"`
				Last    provider.Bar     `json:"last"`
			}{
				Profile: res.Value.Profile,
				Metrics: present.KeyMetrics(res.Value.Profile),
				Bars:    len(res.Value.History.Bars),
				Last:    res.Value.History.Last(),
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", string(provider.Period1Y), "1mo, 3mo, 6mo, 1y, 2y or 5y")
	return cmd
}

func batchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "batch [SYMBOLS]",
		Short: "Current price rows for comma-separated symbols (default: the watchlist seed)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := watchlist.Defaults
			if len(args) == 1 {
				symbols = splitCSV(args[0])
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no symbols provided")
			}
			ctx, cancel := e.context(cmd)
			defer cancel()

			rows := e.app.Market.FetchBatch(ctx, symbols)
			if len(rows) == 0 {
				return fmt.Errorf("no quotes received")
			}
			return printJSON(cmd.OutOrStdout(), present.WatchlistTable(rows))
		},
	}
}

func searchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Resolve free text to symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.context(cmd)
			defer cancel()
			return printJSON(cmd.OutOrStdout(), e.app.Search.Resolve(ctx, strings.Join(args, " ")))
		},
	}
}

func newsCmd(e *env) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "news SYMBOL",
		Short: "Company headlines with market fallback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.context(cmd)
			defer cancel()
			feed := e.app.Market.News(ctx, strings.ToUpper(args[0]), n)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"symbol":  feed.Symbol,
				"company": present.NewsCards(feed.Company),
				"market":  present.NewsCards(feed.Market),
			})
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 3, "headlines per section")
	return cmd
}

func indicesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "indices",
		Short: "Headline Indian indices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := e.context(cmd)
			defer cancel()
			return printJSON(cmd.OutOrStdout(), e.app.Market.Indices(ctx))
		},
	}
}

func pennyCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "penny",
		Short: "Curated penny stocks with 30-day change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := e.context(cmd)
			defer cancel()
			return printJSON(cmd.OutOrStdout(), e.app.Market.PennyStocks(ctx))
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
