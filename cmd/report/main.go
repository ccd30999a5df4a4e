package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/metrics"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

type options struct {
	CSVPath string
	Start   string
	End     string
	TopN    int
	Fetch   bool
	Verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "report",
		Short:        "Print the dashboard aggregates for a date range",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts options
			var err error
			if opts.CSVPath, err = cmd.Flags().GetString("csv"); err != nil {
				return fmt.Errorf("failed to get csv flag: %w", err)
			}
			if opts.Start, err = cmd.Flags().GetString("start"); err != nil {
				return fmt.Errorf("failed to get start flag: %w", err)
			}
			if opts.End, err = cmd.Flags().GetString("end"); err != nil {
				return fmt.Errorf("failed to get end flag: %w", err)
			}
			if opts.TopN, err = cmd.Flags().GetInt("top"); err != nil {
				return fmt.Errorf("failed to get top flag: %w", err)
			}
			if opts.Fetch, err = cmd.Flags().GetBool("fetch"); err != nil {
				return fmt.Errorf("failed to get fetch flag: %w", err)
			}
			if opts.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
				return fmt.Errorf("failed to get verbose flag: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, opts, cmd.OutOrStdout(), newLogger(cmd.ErrOrStderr(), opts.Verbose))
		},
	}

	cmd.Flags().String("csv", "all_data.csv", "Path to the transactions CSV")
	cmd.Flags().String("start", "", "First purchase date to include (YYYY-MM-DD, default dataset start)")
	cmd.Flags().String("end", "", "Last purchase date to include (YYYY-MM-DD, default dataset end)")
	cmd.Flags().Int("top", 5, "Rows shown in the ranked tables")
	cmd.Flags().Bool("fetch", false, "Download the dataset from the configured source when the file is missing")
	cmd.Flags().Bool("verbose", false, "Enable verbose logging")

	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func run(ctx context.Context, opts options, out io.Writer, log *slog.Logger) error {
	var fetcher *dataset.Fetcher
	if opts.Fetch {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fetcher = dataset.NewFetcher(cfg.Dataset.SourceURL(), cfg.Dataset.FetchTimeout, log)
	}

	loader := dataset.NewLoader(dataset.LoaderOptions{Fetcher: fetcher, Logger: log})
	ds, err := loader.Load(ctx, opts.CSVPath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	rng, err := reportRange(ds, opts.Start, opts.End)
	if err != nil {
		return err
	}

	start := time.Now()
	report := services.Render(ds, rng)
	metrics.RecordRender("cli", report.Rows, time.Since(start))
	log.Debug("report rendered", "range", rng.String(), "rows", report.Rows, "duration", time.Since(start))

	printReport(out, report, opts.TopN)
	return nil
}

func reportRange(ds *dataset.Dataset, start, end string) (models.DateRange, error) {
	rng, _ := ds.Bounds()
	if start != "" {
		t, err := time.Parse(models.DateLayout, start)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
		}
		rng.Start = t
	}
	if end != "" {
		t, err := time.Parse(models.DateLayout, end)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
		}
		rng.End = t
	}
	if rng.Empty() {
		return models.DateRange{}, fmt.Errorf("start %s is after end %s", rng.Start.Format(models.DateLayout), rng.End.Format(models.DateLayout))
	}
	return rng, nil
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

func printReport(out io.Writer, report *models.Report, topN int) {
	fmt.Fprintf(out, "Range: %s to %s (%d items)\n",
		report.Range.Start.Format(models.DateLayout),
		report.Range.End.Format(models.DateLayout),
		report.Rows)
	fmt.Fprintf(out, "Total orders:  %s\n", services.FormatCount(report.Summary.TotalOrders))
	fmt.Fprintf(out, "Total revenue: %s\n\n", services.FormatCurrency(report.Summary.TotalRevenue))

	fmt.Fprintf(out, "Top %d categories\n", topN)
	table := newTable(out, "Category", "Item Value")
	for _, c := range services.TopCategories(report.CategorySales, topN) {
		table.Append([]string{c.Category, services.FormatCurrency(c.ItemValue)})
	}
	table.Render()

	fmt.Fprintf(out, "\nBottom %d categories\n", topN)
	table = newTable(out, "Category", "Item Value")
	for _, c := range services.BottomCategories(report.CategorySales, topN) {
		table.Append([]string{c.Category, services.FormatCurrency(c.ItemValue)})
	}
	table.Render()

	fmt.Fprintln(out, "\nCustomers by state")
	table = newTable(out, "State", "Customers")
	for _, s := range services.StatesByCount(report.CustomersByState) {
		table.Append([]string{s.State, services.FormatCount(s.CustomerCount)})
	}
	table.Render()

	fmt.Fprintf(out, "\nBest customers by monetary value (top %d)\n", topN)
	table = newTable(out, "Customer", "Recency (days)", "Frequency", "Monetary")
	for _, c := range services.TopByMonetary(report.RFM, topN) {
		table.Append([]string{
			c.CustomerID,
			strconv.Itoa(c.Recency),
			strconv.Itoa(c.Frequency),
			services.FormatCurrency(c.Monetary),
		})
	}
	table.Render()

	fmt.Fprintln(out, "\nMonthly average delivery time")
	table = newTable(out, "Month", "Days")
	for _, m := range report.DeliveryTime {
		table.Append([]string{m.Month.Format("2006-01"), fmt.Sprintf("%.2f", m.DeliveryTime)})
	}
	table.Render()
}
