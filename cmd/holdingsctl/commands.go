package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/internal/di"
	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/portfolio"
	"github.com/aristath/holdings/internal/modules/snapshots"
	"github.com/aristath/holdings/internal/modules/valuation"
	"github.com/aristath/holdings/pkg/logger"
)

var commands = []subcommands.Command{
	&quoteCmd{},
	&totalsCmd{},
	&refreshCmd{},
	&snapshotCmd{},
	&historyCmd{},
}

// withContainer wires the application and runs fn against it.
func withContainer(ctx context.Context, fn func(*di.Container, *config.Config) error) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	if err := fn(container, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func parseUserArg(f *flag.FlagSet) (int64, error) {
	if f.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one user id")
	}
	id, err := strconv.ParseInt(f.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", f.Arg(0))
	}
	return id, nil
}

type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "look up the current price of one symbol" }
func (*quoteCmd) Usage() string {
	return `holdingsctl quote <asset_type> <symbol>

  Fetches a live quote through the cache and the source registered for the
  asset type, e.g. "holdingsctl quote jp_stock 7203".
`
}
func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	class, err := domain.ParseAssetClass(f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	symbol := f.Arg(1)

	return withContainer(ctx, func(c *di.Container, _ *config.Config) error {
		q, err := c.Registry.Lookup(ctx, class, symbol)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", q.Class, q.Symbol, q.Price.String(), q.Name)
		return nil
	})
}

type totalsCmd struct{}

func (*totalsCmd) Name() string     { return "totals" }
func (*totalsCmd) Synopsis() string { return "print live portfolio totals from stored prices" }
func (*totalsCmd) Usage() string {
	return `holdingsctl totals <user_id>

  Values the user's positions at their stored prices and compares them with
  the latest snapshot before today. No prices are fetched.
`
}
func (*totalsCmd) SetFlags(*flag.FlagSet) {}

func (*totalsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	userID, err := parseUserArg(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return withContainer(ctx, func(c *di.Container, _ *config.Config) error {
		summary, err := c.PortfolioService.GetLiveTotals(ctx, userID)
		if err != nil {
			return err
		}
		return writeSummary(os.Stdout, summary)
	})
}

func writeSummary(out io.Writer, s *domain.Summary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "class\tvalue\tprofit\tday change\t")
	for _, class := range domain.AllAssetClasses {
		t, ok := s.Classes[class]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", class.Label(),
			valuation.FormatJPY(t.Value), valuation.FormatJPY(t.Profit), valuation.FormatJPY(t.DayChange))
	}
	fmt.Fprintf(w, "total\t%s\t%s\t%s\t\n",
		valuation.FormatJPY(s.Total), valuation.FormatJPY(s.InvestmentProfit), valuation.FormatJPY(s.DayChange))
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "USD/JPY %s, US stocks %s\n", s.USDJPY.StringFixed(2), valuation.FormatUSD(s.USDTotal))
	return err
}

type refreshCmd struct {
	class string
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "fetch live prices and store them" }
func (*refreshCmd) Usage() string {
	return `holdingsctl refresh [-class <asset_type>] <user_id>

  Fetches quotes for the user's quotable positions and writes the prices that
  were obtained. Positions whose source failed keep their stored price.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.class, "class", "", "refresh only this asset type")
}

func (c *refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	userID, err := parseUserArg(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	var class *domain.AssetClass
	if c.class != "" {
		parsed, err := domain.ParseAssetClass(c.class)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		class = &parsed
	}

	return withContainer(ctx, func(ct *di.Container, _ *config.Config) error {
		result, err := ct.PortfolioService.RefreshPrices(ctx, userID, class)
		if err != nil {
			return err
		}
		fmt.Println(result.Message())
		return nil
	})
}

type snapshotCmd struct {
	noRefresh bool
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "refresh prices and record today's snapshot" }
func (*snapshotCmd) Usage() string {
	return `holdingsctl snapshot [-no-refresh] <user_id>

  Refreshes prices, then writes today's snapshot. Running it again on the
  same day overwrites the current values and keeps the previous-day values.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.noRefresh, "no-refresh", false, "record from stored prices without fetching")
}

func (c *snapshotCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	userID, err := parseUserArg(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	return withContainer(ctx, func(ct *di.Container, _ *config.Config) error {
		var (
			snap *domain.Snapshot
			err  error
		)
		if c.noRefresh {
			snap, err = ct.SnapshotService.RecordSnapshot(ctx, userID)
		} else {
			var result portfolio.RefreshResult
			result, snap, err = ct.PortfolioService.RefreshAndSnapshot(ctx, userID)
			if err == nil {
				fmt.Println(result.Message())
			}
		}
		if err != nil {
			return err
		}
		change, rate := snap.TotalDayChange()
		fmt.Printf("%s total %s, day change %s (%s)\n", snap.Date,
			valuation.FormatJPY(snap.Total), valuation.FormatJPY(change), valuation.FormatRate(rate))
		return nil
	})
}

type historyCmd struct {
	days int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list recorded snapshots" }
func (*historyCmd) Usage() string {
	return `holdingsctl history [-days <n>] <user_id>

  Prints the user's daily totals for the last n days, oldest first, followed
  by summary statistics.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 30, "number of days to show, 0 for all")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	userID, err := parseUserArg(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if c.days < 0 {
		fmt.Fprintln(os.Stderr, "days must not be negative")
		return subcommands.ExitUsageError
	}

	return withContainer(ctx, func(ct *di.Container, _ *config.Config) error {
		history, err := ct.SnapshotService.History(ctx, userID, c.days)
		if err != nil {
			return err
		}
		return writeHistory(os.Stdout, history)
	})
}

func writeHistory(out io.Writer, history []domain.Snapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "date\ttotal\tday change\t")
	for _, s := range history {
		change, _ := s.TotalDayChange()
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", s.Date, valuation.FormatJPY(s.Total), valuation.FormatJPY(change))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	sum := snapshots.Summarize(history)
	if sum.Count == 0 {
		_, err := fmt.Fprintln(out, "no snapshots")
		return err
	}
	_, err := fmt.Fprintf(out, "%d days, change %s (%s), high %s, low %s, max drawdown %.2f%%\n",
		sum.Count, valuation.FormatJPY(sum.Change), valuation.FormatRate(sum.ChangeRate),
		valuation.FormatJPY(sum.High), valuation.FormatJPY(sum.Low), sum.MaxDrawdown*100)
	return err
}
