// Package report renders a plain text summary of a portfolio overview.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/portfolio"
)

// Write renders ov to w
func Write(w io.Writer, ov portfolio.Overview) error {
	var b strings.Builder
	m := ov.Metrics

	fmt.Fprintln(&b, "Portfolio summary")
	fmt.Fprintln(&b, strings.Repeat("=", 17))
	fmt.Fprintf(&b, "Value:       %s\n", Money(m.TotalMarketValue))
	fmt.Fprintf(&b, "Cost basis:  %s\n", Money(m.TotalCostBasis))
	fmt.Fprintf(&b, "Gain/loss:   %s (%s)\n", SignedMoney(m.AbsoluteGain), Fraction(m.RelativeGain))
	fmt.Fprintf(&b, "24h change:  %s (%s)\n", SignedMoney(m.DailyChangeValue), Fraction(m.DailyChangePercent))
	fmt.Fprintf(&b, "Last sync:   %s\n", syncLabel(ov.LastSync))
	if ov.QuoteError != "" {
		fmt.Fprintf(&b, "Quotes:      %s\n", ov.QuoteError)
	}

	if len(ov.Holdings) == 0 {
		fmt.Fprintln(&b, "\nNo holdings yet.")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintln(&b, "\nHoldings")
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Asset\tQuantity\tPrice\tValue\tGain/loss\t24h\t")
	for _, h := range ov.Holdings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			h.Symbol, h.Quantity.String(), Money(h.Price), Money(h.MarketValue),
			Fraction(h.GainLossPercent), Percent(h.Change24h))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(m.Allocations) > 0 {
		fmt.Fprintln(&b, "\nAllocation")
		for _, a := range m.Allocations {
			fmt.Fprintf(&b, "  %-15s %6s%%  %s\n", a.Label, a.Percentage.Mul(hundred).StringFixed(2), Money(a.Value))
		}
	}

	if m.TopPerformer != nil {
		fmt.Fprintf(&b, "\nTop performer:   %s\n", performerLine(m.TopPerformer))
	}
	if m.WorstPerformer != nil {
		fmt.Fprintf(&b, "Worst performer: %s\n", performerLine(m.WorstPerformer))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// String renders ov as a string
func String(ov portfolio.Overview) string {
	var b strings.Builder
	_ = Write(&b, ov)
	return b.String()
}

func performerLine(h *models.EnrichedHolding) string {
	return fmt.Sprintf("%s (%s) %s (%s)", h.Name, h.Symbol, Fraction(h.GainLossPercent), SignedMoney(h.GainLoss))
}

func syncLabel(t *time.Time) string {
	if t == nil {
		return "awaiting first synchronization"
	}
	return t.UTC().Format(time.RFC1123)
}
