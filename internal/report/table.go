// Package report prints a period summary to a terminal.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"workhours/internal/core"
	"workhours/internal/services"
)

type Options struct {
	NoColor bool
	// Days adds the per-day breakdown above the summary.
	Days bool
}

type palette struct {
	title, faint, good, bad *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		title: color.New(color.Bold, color.Underline),
		faint: color.New(color.Faint),
		good:  color.New(color.FgGreen),
		bad:   color.New(color.FgRed),
	}
	if noColor {
		for _, c := range []*color.Color{p.title, p.faint, p.good, p.bad} {
			c.DisableColor()
		}
	}
	return p
}

// Render writes the period label, optional day rows and the projection.
func Render(w io.Writer, st services.DashboardState, p core.Projection, opts Options) error {
	pal := newPalette(opts.NoColor)

	if _, err := pal.title.Fprintln(w, st.Label); err != nil {
		return err
	}
	if opts.Days {
		if _, err := fmt.Fprintln(w, dayTable(st.Current.Entries, pal)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, summaryTable(st, p, pal))
	return err
}

func dayTable(entries []core.WorkEntry, pal palette) *uitable.Table {
	extra := make(map[core.DateKey]int, len(entries))
	for _, e := range entries {
		extra[e.Date] += e.ExtraMinutes
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("Date", "Day", "Tracked", "Extra", "Total")
	for _, d := range core.DailyTotals(entries) {
		if d.Minutes == 0 {
			tbl.AddRow(
				pal.faint.Sprint(d.Date.String()),
				pal.faint.Sprint(d.Date.Weekday().String()[:3]),
				pal.faint.Sprint("-"), pal.faint.Sprint("-"), pal.faint.Sprint("-"))
			continue
		}
		tbl.AddRow(
			d.Date.String(),
			d.Date.Weekday().String()[:3],
			core.FormatDuration(d.Minutes-extra[d.Date]),
			core.FormatDuration(extra[d.Date]),
			core.FormatDuration(d.Minutes))
	}
	tbl.RightAlign(2)
	tbl.RightAlign(3)
	tbl.RightAlign(4)
	return tbl
}

func summaryTable(st services.DashboardState, p core.Projection, pal palette) *uitable.Table {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("Total", core.FormatDuration(p.TotalMinutes))
	tbl.AddRow("Decimal", core.FormatDecimalHours(p.TotalMinutes))
	tbl.AddRow("Previous", core.FormatDuration(p.PreviousMinutes))
	tbl.AddRow("Change", delta(p.DeltaMinutes, pal))
	tbl.AddRow("Earnings", "$"+core.FormatNumber(p.EarningsUSD, 2))
	if p.Currency.Code != "" && p.Currency.Rate > 0 {
		tbl.AddRow("Local", p.Currency.Code+" "+core.FormatNumber(p.EarningsLocal, 2))
	}
	if st.Mode == core.ViewWeek {
		tbl.AddRow("Target", fmt.Sprintf("%dh (%s)", p.TargetHours, core.FormatPercent(float64(p.ProgressPercent))))
		if p.RemainingDays > 0 {
			tbl.AddRow("Needed", fmt.Sprintf("%.1fh/day for %d days", p.RequiredHoursPerDay, p.RemainingDays))
		}
	}
	if st.Error != "" {
		tbl.AddRow("Error", pal.bad.Sprint(st.Error))
	}
	return tbl
}

func delta(minutes int, pal palette) string {
	switch {
	case minutes > 0:
		return pal.good.Sprint("+" + core.FormatDuration(minutes))
	case minutes < 0:
		return pal.bad.Sprint("-" + core.FormatDuration(-minutes))
	}
	return pal.faint.Sprint("0m")
}
