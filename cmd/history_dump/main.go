package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stockdash/internal/app"
	"stockdash/internal/config"
	"stockdash/internal/logger"
	"stockdash/internal/market"
	"stockdash/internal/present"
	"stockdash/internal/provider"
	"stockdash/internal/watchlist"
)

type dumpOptions struct {
	symbols     []string
	period      provider.Period
	format      string
	outDir      string
	metrics     bool
	concurrency int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		symbols  string
		period   string
		format   string
		outDir   string
		metrics  bool
		timeout  time.Duration
		logLevel string
	)
	cmd := &cobra.Command{
		Use:          "history_dump",
		Short:        "Write price history of many symbols to CSV or XLSX files",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := provider.ParsePeriod(period)
			if err != nil {
				return err
			}
			format = strings.ToLower(format)
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unknown format %q (want csv or xlsx)", format)
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log, err := logger.New(logLevel, "console")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			syms := watchlist.Defaults
			if symbols != "" {
				syms = splitCSV(symbols)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a := app.New(cfg, log)
			written, err := dump(ctx, a.Market, log, dumpOptions{
				symbols:     syms,
				period:      p,
				format:      format,
				outDir:      outDir,
				metrics:     metrics,
				concurrency: cfg.Batch.Concurrency,
			})
			for _, f := range written {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to stockdash.yaml or .json (optional)")
	cmd.Flags().StringVar(&symbols, "symbols", "", "comma-separated symbols (default: the watchlist seed)")
	cmd.Flags().StringVar(&period, "period", string(provider.Period1Y), "1mo, 3mo, 6mo, 1y, 2y or 5y")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "also write a key metrics CSV per symbol")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}

// dump writes one history file per symbol and returns the written paths in
// symbol order. Symbols without data are skipped; the error reports them.
func dump(ctx context.Context, svc *market.Service, log *zap.Logger, opts dumpOptions) ([]string, error) {
	if len(opts.symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if opts.concurrency <= 0 {
		opts.concurrency = 1
	}

	files := make([][]string, len(opts.symbols))
	var (
		mu      sync.Mutex
		skipped []string
	)
	var g errgroup.Group
	g.SetLimit(opts.concurrency)
	for i, sym := range opts.symbols {
		g.Go(func() error {
			res := svc.FetchProfileAndHistory(ctx, sym, opts.period)
			if !res.Ok() {
				log.Warn("skipped", zap.String("symbol", sym), zap.String("status", res.Status.String()), zap.String("reason", res.Reason))
				mu.Lock()
				skipped = append(skipped, sym)
				mu.Unlock()
				return nil
			}
			symbol := res.Value.History.Symbol
			if symbol == "" {
				symbol = strings.ToUpper(sym)
			}
			path := filepath.Join(opts.outDir, fmt.Sprintf("%s_%s_history.%s", symbol, opts.period, opts.format))
			if err := writeTable(path, opts.format, symbol, present.HistoryTable(res.Value.History)); err != nil {
				return err
			}
			files[i] = append(files[i], path)
			if opts.metrics {
				mpath := filepath.Join(opts.outDir, symbol+"_metrics.csv")
				if err := writeTable(mpath, "csv", symbol, present.KeyMetrics(res.Value.Profile)); err != nil {
					return err
				}
				files[i] = append(files[i], mpath)
			}
			log.Info("written", zap.String("symbol", symbol), zap.Int("bars", len(res.Value.History.Bars)))
			return nil
		})
	}
	err := g.Wait()

	var written []string
	for _, fs := range files {
		written = append(written, fs...)
	}
	if err != nil {
		return written, err
	}
	if len(skipped) > 0 {
		return written, fmt.Errorf("no data for %d symbol(s): %s", len(skipped), strings.Join(skipped, ", "))
	}
	return written, nil
}

func writeTable(path, format, sheet string, t present.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if format == "xlsx" {
		err = present.WriteXLSX(f, t, sheet)
	} else {
		err = present.WriteCSV(f, t, false)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
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
