package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"workhours/internal/core"
	"workhours/internal/services"
	"workhours/internal/sources"
)

// App holds what the report command reads from. Currency is optional.
type App struct {
	Source   sources.WorkDataSource
	Settings sources.SettingsStore
	Currency sources.CurrencyProvider
	Defaults core.Settings
	Today    func() core.DateKey
	Timeout  time.Duration
	Out      io.Writer
}

type flags struct {
	date        string
	rate        float64
	target      int
	description string
	text        bool
	days        bool
	noColor     bool
}

// NewRootCmd creates the "workhours-report" command.
func NewRootCmd(app *App) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "workhours-report [week|month|year]",
		Short: "Print worked hours and earnings for a period",
		Example: `
workhours-report
workhours-report month --date 2024-02-10
workhours-report week --days --rate 65
workhours-report --text --description "March invoice"
`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(core.ViewWeek), string(core.ViewMonth), string(core.ViewYear)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, f, args)
		},
	}
	root.SilenceUsage = true

	fl := root.Flags()
	fl.StringVar(&f.date, "date", "", "any day inside the period (YYYY-MM-DD or DD-MM-YYYY), default today")
	fl.Float64Var(&f.rate, "rate", 0, "hourly rate override")
	fl.IntVar(&f.target, "target", 0, "weekly target hours override")
	fl.StringVar(&f.description, "description", "", "description line for --text output")
	fl.BoolVar(&f.text, "text", false, "print the plain-text work report")
	fl.BoolVar(&f.days, "days", false, "include the per-day breakdown")
	fl.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	return root
}

func run(cmd *cobra.Command, app *App, f *flags, args []string) error {
	mode := core.ViewWeek
	if len(args) == 1 {
		m, err := core.ParseViewMode(args[0])
		if err != nil {
			return fmt.Errorf("mode must be week, month or year: %w", err)
		}
		mode = m
	}

	today := app.Today
	if today == nil {
		today = func() core.DateKey { return core.DateKeyOf(time.Now()) }
	}
	anchor := today()
	if f.date != "" {
		d, err := core.ParseDateKey(f.date)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		anchor = d
	}
	if f.target != 0 {
		if err := core.ValidateTargetHours(f.target); err != nil {
			return fmt.Errorf("--target: %w", err)
		}
	}

	dash := services.NewDashboard(app.Source, func() core.DateKey { return anchor }, services.DashboardConfig{
		Mode:        mode,
		LoadTimeout: app.Timeout,
	})
	st, err := dash.Load(cmd.Context())
	if err != nil {
		return err
	}

	proj := services.NewProjectionService(app.Settings, app.Currency, app.Defaults, today)
	settings := proj.Settings(cmd.Context())
	if f.rate > 0 {
		settings.HourlyRate = f.rate
	}
	if f.target > 0 {
		settings.TargetHours = f.target
	}
	cur := proj.Currency(cmd.Context())
	p := core.Project(st.Range, st.Current, st.Previous, settings, cur, today())

	out := app.Out
	if out == nil {
		out = os.Stdout
	}
	if f.text {
		_, err := io.WriteString(out, core.WorkReport(st.Range, p.TotalMinutes, settings.HourlyRate, cur, strings.TrimSpace(f.description)))
		return err
	}
	return Render(out, st, p, Options{NoColor: f.noColor, Days: f.days})
}
