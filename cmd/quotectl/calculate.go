package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
	"github.com/odyssey-erp/odyssey-quote/internal/ratefeed"
)

type calculateOptions struct {
	file         string
	format       string
	externalRate int64
	rateFeedURL  string
	timeout      time.Duration
}

func newCalculateCmd() *cobra.Command {
	opts := calculateOptions{}
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Price a trip request",
		Long: `Validate a trip request and print the resulting quote.

The market hotel rate comes from --external-rate when given, from --rate-feed
when given, and from the market simulator otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalculate(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "-", "trip request JSON file, - for stdin")
	cmd.Flags().StringVarP(&opts.format, "format", "o", "json", "output format (json, text)")
	cmd.Flags().Int64Var(&opts.externalRate, "external-rate", 0, "fixed market rate per room-night in JPY")
	cmd.Flags().StringVar(&opts.rateFeedURL, "rate-feed", "", "base URL of a market rate feed")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", pricing.DefaultExternalTimeout, "market rate lookup timeout")
	return cmd
}

func runCalculate(cmd *cobra.Command, opts calculateOptions) error {
	if opts.format != "json" && opts.format != "text" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	req, err := readRequest(cmd, opts.file)
	if err != nil {
		return err
	}
	if err := pricing.Validate(req); err != nil {
		return err
	}

	table := pricing.DefaultCostTable()
	var rates pricing.RateSource = pricing.NewMarketSimulator(table)
	switch {
	case cmd.Flags().Changed("external-rate"):
		rates = pricing.FixedRate(opts.externalRate)
	case opts.rateFeedURL != "":
		rates = ratefeed.NewClient(opts.rateFeedURL, ratefeed.ClientConfig{Timeout: opts.timeout})
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	calc := pricing.NewCalculator(table, rates, pricing.CalculatorConfig{
		ExternalTimeout: opts.timeout,
		Logger:          logger,
	})
	quote, err := calc.Calculate(context.Background(), req)
	if err != nil {
		return err
	}

	if opts.format == "text" {
		return printQuote(cmd.OutOrStdout(), quote)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(quote)
}

func printQuote(w io.Writer, q pricing.QuoteResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	b := q.Breakdown
	rows := []struct {
		label  string
		amount int64
	}{
		{"Transport", b.TransportCost},
		{"Guide", b.GuideCost},
		{"Accommodation", b.HotelCostBasis},
		{"Margin", int64(b.MarginAmount)},
		{"Total", q.EstimatedTotalJPY},
		{"Per person", q.PerPersonJPY},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t\n", row.label, pricing.FormatJPY(row.amount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", b.SourcingStrategy)
	return err
}
